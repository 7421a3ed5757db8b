package agent

// Event is one step of a run's progress trace, in execution order.
type Event struct {
	Stage  string `json:"stage"`
	Detail string `json:"detail,omitempty"`
}

// Run stages.
const (
	StageRecall     = "memory_recall"
	StageRetrieval  = "retrieval"
	StageConfidence = "confidence"
	StageWebSearch  = "web_search"
	StageToolRound  = "tool_round"
	StageToolCall   = "tool_call"
	StageAnswer     = "answer"
	StageDegraded   = "degraded"
)

type eventRecorder struct {
	events []Event
}

func (r *eventRecorder) record(stage, detail string) {
	r.events = append(r.events, Event{Stage: stage, Detail: detail})
}
