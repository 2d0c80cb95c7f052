package vectorindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMilvusUpsertRejectsDimensionMismatch(t *testing.T) {
	idx := &milvusIndex{
		collection: "doc_chunks",
		vectorSize: 3,
		log:        zap.NewNop(),
	}

	err := idx.Upsert(context.Background(), []Chunk{
		testChunk("a_doc_0", "tenant-a", "doc.txt", 0, []float32{1, 0}),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")

	err = idx.Upsert(context.Background(), []Chunk{
		testChunk("a_doc_1", "tenant-a", "doc.txt", 1, []float32{1, 0, 0, 0}),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")

	assert.NoError(t, idx.Upsert(context.Background(), nil))
}

func TestEscapeExpr(t *testing.T) {
	assert.Equal(t, `plain`, escapeExpr(`plain`))
	assert.Equal(t, `with \"quotes\"`, escapeExpr(`with "quotes"`))
	assert.Equal(t, `back\\slash`, escapeExpr(`back\slash`))
}

func TestFormatMetricType(t *testing.T) {
	assert.Equal(t, "IP", string(formatMetricType("dot")))
	assert.Equal(t, "IP", string(formatMetricType("IP")))
	assert.Equal(t, "L2", string(formatMetricType("l2")))
	assert.Equal(t, "COSINE", string(formatMetricType("")))
}
