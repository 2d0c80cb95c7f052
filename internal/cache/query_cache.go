package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JeremiasMeza/IA-Rag/internal/logger"
	"github.com/JeremiasMeza/IA-Rag/internal/vectorindex"
)

// QueryCache Redis检索结果缓存
// 缓存失败只降级不报错，写入路径负责按租户失效
type QueryCache struct {
	client   *redis.Client
	enabled  bool
	ttl      time.Duration
	hitStats *hitStats
}

type hitStats struct {
	hits   int64
	misses int64
	mu     sync.RWMutex
}

// Options 查询缓存配置
type Options struct {
	Enabled bool
	Host    string
	Port    string
	DB      int
	TTL     time.Duration
}

// NewQueryCache 创建查询缓存，未启用或Redis不可达时返回禁用实例
func NewQueryCache(opts Options) *QueryCache {
	cache := &QueryCache{enabled: false, hitStats: &hitStats{}}
	if !opts.Enabled {
		return cache
	}

	ttl := opts.TTL
	if ttl == 0 {
		ttl = 300 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", opts.Host, opts.Port),
		DB:   opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, query cache disabled", zap.Error(err))
		client.Close()
		return cache
	}

	cache.client = client
	cache.enabled = true
	cache.ttl = ttl
	return cache
}

// Enabled 缓存是否启用
func (c *QueryCache) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Get 查询缓存命中的检索结果
func (c *QueryCache) Get(ctx context.Context, tenantID, question string, topK int) ([]vectorindex.Match, bool) {
	if !c.Enabled() {
		return nil, false
	}

	data, err := c.client.Get(ctx, c.queryKey(tenantID, question, topK)).Bytes()
	if err != nil {
		c.recordMiss()
		if err != redis.Nil {
			logger.Warn("query cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var matches []vectorindex.Match
	if err := json.Unmarshal(data, &matches); err != nil {
		c.recordMiss()
		logger.Warn("query cache entry corrupted", zap.Error(err))
		return nil, false
	}

	c.recordHit()
	return matches, true
}

// Set 缓存检索结果
func (c *QueryCache) Set(ctx context.Context, tenantID, question string, topK int, matches []vectorindex.Match) {
	if !c.Enabled() {
		return
	}

	data, err := json.Marshal(matches)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.queryKey(tenantID, question, topK), data, c.ttl).Err(); err != nil {
		logger.Warn("query cache write failed", zap.Error(err))
	}
}

// InvalidateTenant 删除某租户的全部缓存条目
// 文档增删后调用，避免返回过期结果
func (c *QueryCache) InvalidateTenant(ctx context.Context, tenantID string) {
	if !c.Enabled() {
		return
	}

	pattern := fmt.Sprintf("query:%s:*", tenantID)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("failed to invalidate cache key", zap.String("key", iter.Val()), zap.Error(err))
		}
	}
	if err := iter.Err(); err != nil {
		logger.Warn("cache invalidation scan failed", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

// InvalidateAll 清空所有查询缓存
func (c *QueryCache) InvalidateAll(ctx context.Context) {
	if !c.Enabled() {
		return
	}

	iter := c.client.Scan(ctx, 0, "query:*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("failed to invalidate cache key", zap.String("key", iter.Val()), zap.Error(err))
		}
	}
	if err := iter.Err(); err != nil {
		logger.Warn("cache invalidation scan failed", zap.Error(err))
	}
}

// Close 关闭Redis连接
func (c *QueryCache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *QueryCache) queryKey(tenantID, question string, topK int) string {
	sum := sha1.Sum([]byte(question))
	return fmt.Sprintf("query:%s:%s:%d", tenantID, hex.EncodeToString(sum[:]), topK)
}

func (c *QueryCache) recordHit() {
	c.hitStats.mu.Lock()
	c.hitStats.hits++
	c.hitStats.mu.Unlock()
}

func (c *QueryCache) recordMiss() {
	c.hitStats.mu.Lock()
	c.hitStats.misses++
	c.hitStats.mu.Unlock()
}

// Stats 返回命中与未命中次数，供健康检查暴露
func (c *QueryCache) Stats() (hits, misses int64) {
	if c == nil || c.hitStats == nil {
		return 0, 0
	}
	c.hitStats.mu.RLock()
	defer c.hitStats.mu.RUnlock()
	return c.hitStats.hits, c.hitStats.misses
}
