// Package metrics exposes Prometheus instrumentation for the chat pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChatRequests counts chat requests by outcome (ok, degraded, error).
	ChatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docpilot",
		Name:      "chat_requests_total",
		Help:      "Chat requests by outcome.",
	}, []string{"outcome"})

	// ChatDuration observes end-to-end chat request latency.
	ChatDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "docpilot",
		Name:      "chat_request_duration_seconds",
		Help:      "End-to-end chat request latency.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	// ToolCalls counts tool invocations by tool name and outcome.
	ToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docpilot",
		Name:      "tool_calls_total",
		Help:      "Tool invocations by tool and outcome.",
	}, []string{"tool", "outcome"})

	// LLMTokens counts tokens consumed by kind (prompt, completion).
	LLMTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docpilot",
		Name:      "llm_tokens_total",
		Help:      "Model tokens consumed by kind.",
	}, []string{"kind"})

	// RetrievalConfidence observes the confidence score of retrievals.
	RetrievalConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "docpilot",
		Name:      "retrieval_confidence",
		Help:      "Top fused retrieval score per chat request.",
		Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
	})

	// MemorySweepDeleted counts memory items removed by the retention sweep.
	MemorySweepDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "docpilot",
		Name:      "memory_sweep_deleted_total",
		Help:      "Memory items removed by the retention sweep.",
	})
)

// RecordStats adds a model call's token usage.
func RecordStats(promptTokens, completionTokens int) {
	LLMTokens.WithLabelValues("prompt").Add(float64(promptTokens))
	LLMTokens.WithLabelValues("completion").Add(float64(completionTokens))
}
