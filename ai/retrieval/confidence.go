package retrieval

// Assessment is the outcome of the post-retrieval confidence check.
type Assessment struct {
	Score     float64
	Confident bool
}

// ConfidenceGate judges whether a retrieval result set is strong enough to
// answer from documents alone. Confidence is the fused score of the best
// fragment; an empty result set scores 0.
type ConfidenceGate struct {
	threshold float64
}

// NewConfidenceGate creates a gate with the given threshold.
func NewConfidenceGate(threshold float64) *ConfidenceGate {
	return &ConfidenceGate{threshold: threshold}
}

// Assess evaluates a ranked result set. The fragments are expected in the
// order Search returned them.
func (g *ConfidenceGate) Assess(fragments []*ScoredFragment) Assessment {
	score := 0.0
	if len(fragments) > 0 {
		score = fragments[0].HybridScore
	}
	return Assessment{
		Score:     score,
		Confident: score >= g.threshold,
	}
}

// Threshold reports the configured confidence threshold.
func (g *ConfidenceGate) Threshold() float64 {
	return g.threshold
}
