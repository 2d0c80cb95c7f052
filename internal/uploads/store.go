package uploads

import (
	"context"
	"io"
)

// Store 上传文件持久化存储
// 保存的是原始上传文件，命名空间化的文件名由上层决定
type Store interface {
	// Save 保存文件内容，同名文件覆盖
	Save(ctx context.Context, name string, data io.Reader, size int64) error
	// Exists 检查文件是否存在
	Exists(ctx context.Context, name string) (bool, error)
	// Remove 删除文件，不存在时不报错
	Remove(ctx context.Context, name string) error
	// List 列出所有已保存的文件名
	List(ctx context.Context) ([]string, error)
	// RemoveAll 清空存储
	RemoveAll(ctx context.Context) error
}
