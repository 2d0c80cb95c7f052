package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JeremiasMeza/IA-Rag/internal/vectorindex"
)

func TestDisabledCacheIsInert(t *testing.T) {
	c := NewQueryCache(Options{Enabled: false})
	ctx := context.Background()

	assert.False(t, c.Enabled())

	_, ok := c.Get(ctx, "t", "question", 4)
	assert.False(t, ok)

	// 所有写操作静默降级
	c.Set(ctx, "t", "question", 4, []vectorindex.Match{{Text: "x"}})
	c.InvalidateTenant(ctx, "t")
	c.InvalidateAll(ctx)
	assert.NoError(t, c.Close())
}

func TestNilCacheIsInert(t *testing.T) {
	var c *QueryCache
	ctx := context.Background()

	assert.False(t, c.Enabled())
	_, ok := c.Get(ctx, "t", "question", 4)
	assert.False(t, ok)
	c.Set(ctx, "t", "question", 4, nil)
}

func TestQueryKeyIsTenantScoped(t *testing.T) {
	c := &QueryCache{}

	keyA := c.queryKey("tenant-a", "what is go", 4)
	keyB := c.queryKey("tenant-b", "what is go", 4)
	assert.NotEqual(t, keyA, keyB)
	assert.Contains(t, keyA, "query:tenant-a:")

	// 相同输入产生相同键
	assert.Equal(t, keyA, c.queryKey("tenant-a", "what is go", 4))
	// top_k参与键值
	assert.NotEqual(t, keyA, c.queryKey("tenant-a", "what is go", 8))
}

func TestStatsCountsHitsAndMisses(t *testing.T) {
	c := NewQueryCache(Options{Enabled: false})

	c.recordHit()
	c.recordHit()
	c.recordMiss()

	hits, misses := c.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)

	// nil缓存读统计不崩，健康检查在缓存未配置时也会调用
	var nilCache *QueryCache
	hits, misses = nilCache.Stats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)
}
