package vectorindex

import (
	"context"
	"fmt"

	apperrors "github.com/JeremiasMeza/IA-Rag/internal/errors"
)

// 元数据字段名，同时是Milvus集合的列名
const (
	FieldID               = "id"
	FieldTenantID         = "tenant_id"
	FieldSource           = "source"
	FieldOriginalFilename = "original_filename"
	FieldChunkIndex       = "chunk_index"
	FieldContent          = "content"
	FieldVector           = "vector"
)

// Chunk 向量索引中的存储单元
// ID由(tenant_id, source, chunk_index)确定性派生，重复写入同一ID覆盖旧值
type Chunk struct {
	ID               string
	TenantID         string
	Source           string
	OriginalFilename string
	ChunkIndex       int
	Text             string
	Vector           []float32
}

// ChunkMeta 不含向量的块元数据
type ChunkMeta struct {
	ID               string
	TenantID         string
	Source           string
	OriginalFilename string
	ChunkIndex       int
}

// Match 相似度检索结果
type Match struct {
	Text  string
	Score float64
	Meta  ChunkMeta
}

// Filter 精确匹配元数据过滤条件
// 受底层索引查询能力限制，一次只允许一个谓词字段；
// 复合过滤(tenant AND source)由Document Manager通过List+DeleteIDs模拟
type Filter struct {
	Field string
	Value string
}

// Validate 校验过滤条件
func (f Filter) Validate() error {
	switch f.Field {
	case FieldTenantID, FieldSource, FieldOriginalFilename:
	default:
		return apperrors.NewInvalidFilterError(fmt.Sprintf("unsupported field %q", f.Field))
	}
	if f.Value == "" {
		return apperrors.NewInvalidFilterError("value must not be empty")
	}
	return nil
}

// State 索引初始化状态
type State int

const (
	// StateReady 持久化后端可用
	StateReady State = iota
	// StateDegraded 持久化后端不可用，降级为进程内存储
	StateDegraded
	// StateUnavailable 没有任何可用后端，所有操作都会失败
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Index 租户分区的向量索引抽象
type Index interface {
	// Upsert 按ID插入或覆盖块
	Upsert(ctx context.Context, chunks []Chunk) error
	// Search 返回tenantID下与查询向量最相似的topK个块，相似度降序，
	// 同分按插入顺序。租户无数据时返回空序列而不是错误
	Search(ctx context.Context, tenantID string, vector []float32, topK int) ([]Match, error)
	// List 返回匹配过滤条件的块元数据
	List(ctx context.Context, filter Filter) ([]ChunkMeta, error)
	// DeleteWhere 删除匹配单字段过滤条件的所有块
	DeleteWhere(ctx context.Context, filter Filter) error
	// DeleteIDs 按ID批量删除，是复合过滤的模拟原语
	DeleteIDs(ctx context.Context, ids []string) error
	// Reset 删除并重建整个集合，仅用于全量重置
	Reset(ctx context.Context) error
	Ready() bool
}

// ErrUnavailable 索引未初始化错误
func ErrUnavailable() *apperrors.AppError {
	return apperrors.NewInfrastructureError(apperrors.ErrCodeIndexUnavailable,
		"vector index not initialized")
}

// unavailableIndex 哨兵实现：初始化彻底失败后，
// 每个操作都返回明确的"索引未初始化"错误而不是空指针崩溃
type unavailableIndex struct{}

// NewUnavailable 创建不可用索引哨兵
func NewUnavailable() Index { return &unavailableIndex{} }

func (u *unavailableIndex) Upsert(ctx context.Context, chunks []Chunk) error { return ErrUnavailable() }

func (u *unavailableIndex) Search(ctx context.Context, tenantID string, vector []float32, topK int) ([]Match, error) {
	return nil, ErrUnavailable()
}

func (u *unavailableIndex) List(ctx context.Context, filter Filter) ([]ChunkMeta, error) {
	return nil, ErrUnavailable()
}

func (u *unavailableIndex) DeleteWhere(ctx context.Context, filter Filter) error {
	return ErrUnavailable()
}

func (u *unavailableIndex) DeleteIDs(ctx context.Context, ids []string) error { return ErrUnavailable() }

func (u *unavailableIndex) Reset(ctx context.Context) error { return ErrUnavailable() }

func (u *unavailableIndex) Ready() bool { return false }
