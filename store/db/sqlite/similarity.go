package sqlite

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// marshalVector serializes an embedding as JSON text. SQLite has no vector
// column type here, so embeddings live in a TEXT column.
func marshalVector(vector []float32) (*string, error) {
	if vector == nil {
		return nil, nil
	}
	raw, err := json.Marshal(vector)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal vector")
	}
	text := string(raw)
	return &text, nil
}

func unmarshalVector(text *string) ([]float32, error) {
	if text == nil || *text == "" {
		return nil, nil
	}
	var vector []float32
	if err := json.Unmarshal([]byte(*text), &vector); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal vector")
	}
	return vector, nil
}

// cosineSimilarity returns the cosine of the angle between a and b, clamped
// to [0, 1]. Mismatched or zero-length vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// trigramSimilarity mimics pg_trgm's similarity(): the Jaccard ratio of the
// two texts' trigram sets, case-insensitive, with each word padded the way
// pg_trgm pads ("  word ").
func trigramSimilarity(a, b string) float64 {
	setA := trigramSet(a)
	setB := trigramSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	common := 0
	for gram := range setA {
		if _, ok := setB[gram]; ok {
			common++
		}
	}
	union := len(setA) + len(setB) - common
	if union == 0 {
		return 0
	}
	return float64(common) / float64(union)
}

func trigramSet(text string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, word := range strings.Fields(strings.ToLower(text)) {
		padded := "  " + word + " "
		runes := []rune(padded)
		for i := 0; i+3 <= len(runes); i++ {
			set[string(runes[i:i+3])] = struct{}{}
		}
	}
	return set
}
