package vectorindex

import (
	"go.uber.org/zap"

	"github.com/JeremiasMeza/IA-Rag/internal/logger"
)

// Open 按降级链打开向量索引
// 优先连接Milvus持久化存储，连接失败时退回内存索引，
// 内存索引也无法建立时返回不可用哨兵，服务仍然启动但写入和检索返回503
func Open(opts MilvusOptions) (Index, State) {
	log := logger.GetLogger()

	idx, err := NewMilvus(opts)
	if err == nil {
		log.Info("vector index ready",
			zap.String("backend", "milvus"),
			zap.String("address", opts.Address),
			zap.String("collection", opts.Collection))
		return idx, StateReady
	}
	log.Warn("milvus unavailable, falling back to in-memory index", zap.Error(err))

	memIdx, memErr := NewMemory(opts.VectorSize)
	if memErr == nil {
		log.Warn("vector index degraded",
			zap.String("backend", "memory"),
			zap.Int("vector_size", opts.VectorSize))
		return memIdx, StateDegraded
	}
	log.Error("failed to initialize in-memory index", zap.Error(memErr))

	return NewUnavailable(), StateUnavailable
}
