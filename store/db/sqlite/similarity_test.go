package sqlite

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	require.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-6)
	require.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	// Negative cosine clamps to zero.
	require.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}))
	require.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}))
	require.Zero(t, cosineSimilarity(nil, []float32{1}))
	require.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}

func TestTrigramSimilarity(t *testing.T) {
	require.InDelta(t, 1.0, trigramSimilarity("vacation", "vacation"), 1e-6)
	require.InDelta(t, 1.0, trigramSimilarity("Vacation", "vacation"), 1e-6)
	require.Greater(t,
		trigramSimilarity("vacation policy", "vacation policies"),
		trigramSimilarity("vacation policy", "database tuning"),
	)
	require.Zero(t, trigramSimilarity("", "anything"))
}

func TestVectorRoundTrip(t *testing.T) {
	in := []float32{0.25, -1, 3.5}
	text, err := marshalVector(in)
	require.NoError(t, err)
	require.NotNil(t, text)

	out, err := unmarshalVector(text)
	require.NoError(t, err)
	require.Equal(t, in, out)

	empty, err := marshalVector(nil)
	require.NoError(t, err)
	require.Nil(t, empty)
	out, err = unmarshalVector(empty)
	require.NoError(t, err)
	require.Nil(t, out)
}
