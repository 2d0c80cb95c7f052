package chunker

import (
	"fmt"
	"strings"

	apperrors "github.com/JeremiasMeza/IA-Rag/internal/errors"
)

// Chunker 文本分块器
// 按空白切分为词元，再以固定窗口滑动切分，相邻窗口共享overlap个词元，
// 保证跨块边界的内容在检索时仍然连续可命中
type Chunker struct {
	windowSize int
	overlap    int
}

// New 创建分块器
// overlap >= windowSize 会导致窗口无法前进，必须在构造时拒绝
func New(windowSize, overlap int) (*Chunker, error) {
	if windowSize <= 0 {
		return nil, invalidChunking(fmt.Sprintf("window size must be positive, got %d", windowSize))
	}
	if overlap < 0 {
		return nil, invalidChunking(fmt.Sprintf("overlap must not be negative, got %d", overlap))
	}
	if overlap >= windowSize {
		return nil, invalidChunking(fmt.Sprintf("overlap (%d) must be smaller than window size (%d)", overlap, windowSize))
	}
	return &Chunker{
		windowSize: windowSize,
		overlap:    overlap,
	}, nil
}

// WindowSize 返回窗口大小
func (c *Chunker) WindowSize() int { return c.windowSize }

// Overlap 返回重叠词元数
func (c *Chunker) Overlap() int { return c.overlap }

// Split 将文本切分为有序的文本块序列
// 空输入返回nil，表示"无可索引内容"而不是错误
func (c *Chunker) Split(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := c.windowSize - c.overlap
	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + c.windowSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}

	return chunks
}

func invalidChunking(reason string) *apperrors.AppError {
	err := apperrors.NewValidationError(reason)
	err.Code = apperrors.ErrCodeInvalidChunking
	return err
}
