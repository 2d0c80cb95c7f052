package embedder

import (
	"context"
	"math"

	apperrors "github.com/JeremiasMeza/IA-Rag/internal/errors"
)

// Embedder 定义文本向量化接口
// 实现必须返回L2归一化后的定长向量，使余弦相似度退化为点积
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Ready() bool
}

// ErrNotReady 向量化模型未就绪
// 模型加载失败后的每次调用都返回该错误，调用方应映射为可重试的基础设施错误
func ErrNotReady() *apperrors.AppError {
	return apperrors.NewInfrastructureError(apperrors.ErrCodeEmbedderNotReady,
		"embedding model not loaded")
}

// NotReadyEmbedder 占位实现：模型不可用时每次调用都快速失败
// 绝不返回零向量冒充结果
type NotReadyEmbedder struct{}

func (n *NotReadyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, ErrNotReady()
}

func (n *NotReadyEmbedder) Dimensions() int {
	return 0
}

func (n *NotReadyEmbedder) Ready() bool {
	return false
}

// Normalize 将向量原地归一化为单位长度
func Normalize(v []float32) {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range v {
		v[i] *= inv
	}
}
