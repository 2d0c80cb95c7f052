package vectorindex

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/JeremiasMeza/IA-Rag/internal/errors"
)

func newTestIndex(t *testing.T) Index {
	t.Helper()
	idx, err := NewMemory(3)
	require.NoError(t, err)
	return idx
}

func testChunk(id, tenant, source string, seq int, vec []float32) Chunk {
	return Chunk{
		ID:               id,
		TenantID:         tenant,
		Source:           source,
		OriginalFilename: source,
		ChunkIndex:       seq,
		Text:             id + " text",
		Vector:           vec,
	}
}

func TestNewMemoryRejectsInvalidDimension(t *testing.T) {
	_, err := NewMemory(0)
	assert.Error(t, err)
	_, err = NewMemory(-5)
	assert.Error(t, err)
}

func TestSearchTenantIsolation(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []Chunk{
		testChunk("a_doc_0", "tenant-a", "doc.txt", 0, []float32{1, 0, 0}),
		testChunk("b_doc_0", "tenant-b", "doc.txt", 0, []float32{1, 0, 0}),
		testChunk("b_doc_1", "tenant-b", "doc.txt", 1, []float32{0, 1, 0}),
	}))

	matches, err := idx.Search(ctx, "tenant-a", []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "tenant-a", matches[0].Meta.TenantID)

	matches, err = idx.Search(ctx, "tenant-b", []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.Equal(t, "tenant-b", m.Meta.TenantID)
	}
}

func TestSearchUnknownTenantReturnsEmpty(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []Chunk{
		testChunk("a_doc_0", "tenant-a", "doc.txt", 0, []float32{1, 0, 0}),
	}))

	matches, err := idx.Search(ctx, "nobody", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSearchOrderingAndTruncation(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []Chunk{
		testChunk("t_d_0", "t", "d", 0, []float32{0, 1, 0}),
		testChunk("t_d_1", "t", "d", 1, []float32{1, 0, 0}),
		testChunk("t_d_2", "t", "d", 2, []float32{0.8, 0.6, 0}),
	}))

	matches, err := idx.Search(ctx, "t", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "t_d_1", matches[0].Meta.ID)
	assert.Equal(t, "t_d_2", matches[1].Meta.ID)
	assert.True(t, matches[0].Score >= matches[1].Score)
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []Chunk{
		testChunk("t_d_0", "t", "d", 0, []float32{1, 0, 0}),
		testChunk("t_d_1", "t", "d", 1, []float32{1, 0, 0}),
		testChunk("t_d_2", "t", "d", 2, []float32{1, 0, 0}),
	}))

	matches, err := idx.Search(ctx, "t", []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "t_d_0", matches[0].Meta.ID)
	assert.Equal(t, "t_d_1", matches[1].Meta.ID)
	assert.Equal(t, "t_d_2", matches[2].Meta.ID)
}

func TestUpsertReplacesByID(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []Chunk{
		testChunk("t_d_0", "t", "d", 0, []float32{1, 0, 0}),
	}))
	updated := testChunk("t_d_0", "t", "d", 0, []float32{0, 1, 0})
	updated.Text = "replaced"
	require.NoError(t, idx.Upsert(ctx, []Chunk{updated}))

	metas, err := idx.List(ctx, Filter{Field: FieldTenantID, Value: "t"})
	require.NoError(t, err)
	require.Len(t, metas, 1)

	matches, err := idx.Search(ctx, "t", []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "replaced", matches[0].Text)
}

func TestDeleteWhereBySource(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []Chunk{
		testChunk("t_a_0", "t", "a.txt", 0, []float32{1, 0, 0}),
		testChunk("t_a_1", "t", "a.txt", 1, []float32{0, 1, 0}),
		testChunk("t_b_0", "t", "b.txt", 0, []float32{0, 0, 1}),
	}))

	require.NoError(t, idx.DeleteWhere(ctx, Filter{Field: FieldSource, Value: "a.txt"}))

	metas, err := idx.List(ctx, Filter{Field: FieldTenantID, Value: "t"})
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, "b.txt", metas[0].Source)
}

func TestDeleteIDs(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []Chunk{
		testChunk("t_d_0", "t", "d", 0, []float32{1, 0, 0}),
		testChunk("t_d_1", "t", "d", 1, []float32{0, 1, 0}),
		testChunk("t_d_2", "t", "d", 2, []float32{0, 0, 1}),
	}))

	require.NoError(t, idx.DeleteIDs(ctx, []string{"t_d_0", "t_d_2", "missing"}))

	metas, err := idx.List(ctx, Filter{Field: FieldTenantID, Value: "t"})
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, "t_d_1", metas[0].ID)
}

func TestReset(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []Chunk{
		testChunk("t_d_0", "t", "d", 0, []float32{1, 0, 0}),
	}))
	require.NoError(t, idx.Reset(ctx))

	matches, err := idx.Search(ctx, "t", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFilterValidation(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	_, err := idx.List(ctx, Filter{Field: "content", Value: "x"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	err = idx.DeleteWhere(ctx, Filter{Field: FieldTenantID, Value: ""})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestUnavailableIndexFailsEveryOperation(t *testing.T) {
	idx := NewUnavailable()
	ctx := context.Background()

	assert.False(t, idx.Ready())

	err := idx.Upsert(ctx, []Chunk{testChunk("x", "t", "d", 0, []float32{1})})
	require.Error(t, err)
	assert.True(t, apperrors.IsInfrastructure(err))

	_, err = idx.Search(ctx, "t", []float32{1}, 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsInfrastructure(err))

	_, err = idx.List(ctx, Filter{Field: FieldTenantID, Value: "t"})
	assert.Error(t, err)
	assert.Error(t, idx.DeleteWhere(ctx, Filter{Field: FieldTenantID, Value: "t"}))
	assert.Error(t, idx.DeleteIDs(ctx, []string{"x"}))
	assert.Error(t, idx.Reset(ctx))
}

func TestConcurrentSearchDuringTenantChurn(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []Chunk{
		testChunk("a_doc_0", "tenant-a", "doc.txt", 0, []float32{1, 0, 0}),
		testChunk("a_doc_1", "tenant-a", "doc.txt", 1, []float32{0, 1, 0}),
		testChunk("a_doc_2", "tenant-a", "doc.txt", 2, []float32{0, 0, 1}),
	}))

	const rounds = 200
	var wg sync.WaitGroup

	// tenant-b反复写入和整租户删除，制造记录切片的持续重排
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			batch := []Chunk{
				testChunk(fmt.Sprintf("b_doc_%d", i), "tenant-b", "churn.txt", i, []float32{1, 0, 0}),
				testChunk(fmt.Sprintf("b_doc_%d_x", i), "tenant-b", "churn.txt", i+1, []float32{0, 1, 0}),
			}
			if err := idx.Upsert(ctx, batch); err != nil {
				t.Errorf("upsert: %v", err)
				return
			}
			if err := idx.DeleteWhere(ctx, Filter{Field: FieldTenantID, Value: "tenant-b"}); err != nil {
				t.Errorf("delete: %v", err)
				return
			}
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				matches, err := idx.Search(ctx, "tenant-a", []float32{1, 0, 0}, 10)
				if err != nil {
					t.Errorf("search: %v", err)
					return
				}
				if len(matches) != 3 {
					t.Errorf("expected 3 tenant-a matches, got %d", len(matches))
					return
				}
				for _, m := range matches {
					if m.Meta.TenantID != "tenant-a" {
						t.Errorf("tenant-a search surfaced chunk %s of tenant %s", m.Meta.ID, m.Meta.TenantID)
						return
					}
				}
			}
		}()
	}

	wg.Wait()
}
