package embedder

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/JeremiasMeza/IA-Rag/internal/errors"
)

func TestNotReadyEmbedderFailsFast(t *testing.T) {
	e := &NotReadyEmbedder{}

	assert.False(t, e.Ready())
	assert.Equal(t, 0, e.Dimensions())

	_, err := e.EmbedBatch(context.Background(), []string{"hello"})
	require.Error(t, err)
	assert.True(t, apperrors.IsInfrastructure(err))
	appErr := apperrors.GetAppError(err)
	assert.Equal(t, apperrors.ErrCodeEmbedderNotReady, appErr.Code)
}

func TestNewOpenAIEmbedderWithoutKey(t *testing.T) {
	e := NewOpenAIEmbedder("", "text-embedding-3-small")
	assert.False(t, e.Ready())

	e = NewOpenAIEmbedder("   ", "text-embedding-3-small")
	assert.False(t, e.Ready())
}

func TestNewOpenAIEmbedderDimensions(t *testing.T) {
	cases := []struct {
		model string
		dims  int
	}{
		{"text-embedding-3-small", 1536},
		{"text-embedding-3-large", 3072},
		{"text-embedding-ada-002", 1536},
		{"unknown-model", 1536},
	}

	for _, tc := range cases {
		e := NewOpenAIEmbedder("test-key", tc.model)
		assert.True(t, e.Ready())
		assert.Equal(t, tc.dims, e.Dimensions(), tc.model)
	}
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	Normalize(v)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestNormalizeZeroVector(t *testing.T) {
	v := []float32{0, 0, 0}
	Normalize(v)
	assert.Equal(t, []float32{0, 0, 0}, v)
}
