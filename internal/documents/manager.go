package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JeremiasMeza/IA-Rag/internal/cache"
	"github.com/JeremiasMeza/IA-Rag/internal/chunker"
	"github.com/JeremiasMeza/IA-Rag/internal/embedder"
	apperrors "github.com/JeremiasMeza/IA-Rag/internal/errors"
	"github.com/JeremiasMeza/IA-Rag/internal/events"
	"github.com/JeremiasMeza/IA-Rag/internal/extractor"
	"github.com/JeremiasMeza/IA-Rag/internal/logger"
	"github.com/JeremiasMeza/IA-Rag/internal/metrics"
	"github.com/JeremiasMeza/IA-Rag/internal/uploads"
	"github.com/JeremiasMeza/IA-Rag/internal/vectorindex"
)

// Manager 文档生命周期编排器
// 负责上传、抽取、分块、向量化、入库以及租户隔离的检索和删除
type Manager struct {
	index     vectorindex.Index
	state     vectorindex.State
	embedder  embedder.Embedder
	chunker   *chunker.Chunker
	extractor *extractor.Extractor
	uploads   uploads.Store
	cache     *cache.QueryCache
	events    *events.Producer
	topK      int
	log       *zap.Logger
}

// Options Manager依赖配置
type Options struct {
	Index     vectorindex.Index
	State     vectorindex.State
	Embedder  embedder.Embedder
	Chunker   *chunker.Chunker
	Extractor *extractor.Extractor
	Uploads   uploads.Store
	Cache     *cache.QueryCache
	Events    *events.Producer
	TopK      int
}

// AddResult 文档入库结果
type AddResult struct {
	Filename   string `json:"filename"`
	TenantID   string `json:"tenant_id"`
	ChunkCount int    `json:"chunks_added"`
}

// DocumentInfo 已入库文档信息
type DocumentInfo struct {
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
}

// NewManager 创建文档管理器
func NewManager(opts Options) *Manager {
	topK := opts.TopK
	if topK <= 0 {
		topK = 4
	}
	return &Manager{
		index:     opts.Index,
		state:     opts.State,
		embedder:  opts.Embedder,
		chunker:   opts.Chunker,
		extractor: opts.Extractor,
		uploads:   opts.Uploads,
		cache:     opts.Cache,
		events:    opts.Events,
		topK:      topK,
		log:       logger.GetLogger(),
	}
}

// State 返回向量索引的初始化状态
func (m *Manager) State() vectorindex.State {
	return m.state
}

// Ready 索引与向量化后端是否都可用
func (m *Manager) Ready() bool {
	return m.index.Ready() && m.embedder.Ready()
}

// AddDocument 上传并入库一个文档
// 流程：命名空间化保存 → 文本抽取 → 分块 → 向量化 → 写入索引
// 文档不含可抽取文本时返回零块成功，上传文件仍被保留
func (m *Manager) AddDocument(ctx context.Context, tenantID, filename string, data io.Reader) (*AddResult, error) {
	start := time.Now()

	if strings.TrimSpace(tenantID) == "" {
		return nil, apperrors.NewValidationError("tenant_id must not be empty")
	}
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." {
		return nil, apperrors.NewValidationError("filename must not be empty")
	}
	if !m.extractor.Supports(filename) {
		return nil, apperrors.NewInvalidFileFormatError(filepath.Ext(filename))
	}
	if !m.embedder.Ready() {
		return nil, embedder.ErrNotReady()
	}
	if !m.index.Ready() {
		return nil, vectorindex.ErrUnavailable()
	}

	content, err := io.ReadAll(data)
	if err != nil {
		return nil, apperrors.NewInfrastructureError(apperrors.ErrCodeUploadFailed,
			"failed to read upload").WithCause(err)
	}

	// 同名文件不覆盖，追加数字后缀保留两份
	storedName, err := m.resolveStoredName(ctx, tenantID, filename)
	if err != nil {
		return nil, err
	}

	if err := m.uploads.Save(ctx, storedName, bytes.NewReader(content), int64(len(content))); err != nil {
		return nil, apperrors.NewInfrastructureError(apperrors.ErrCodeStorageFailed,
			"failed to persist upload").WithCause(err)
	}

	// 提取失败按空文本处理，文档以零块成功入库
	text, err := m.extractText(storedName, content)
	if err != nil {
		m.log.Warn("text extraction failed, treating document as empty",
			zap.String("tenant_id", tenantID),
			zap.String("filename", storedName),
			zap.Error(err))
		text = ""
	}

	pieces := m.chunker.Split(text)
	if len(pieces) == 0 {
		m.log.Info("document produced no chunks",
			zap.String("tenant_id", tenantID),
			zap.String("filename", storedName))
		metrics.DocumentsIndexed.WithLabelValues(tenantID).Inc()
		return &AddResult{Filename: storedName, TenantID: tenantID, ChunkCount: 0}, nil
	}

	vectors, err := m.embedder.EmbedBatch(ctx, pieces)
	if err != nil {
		metrics.EmbeddingRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.EmbeddingRequests.WithLabelValues("ok").Inc()

	chunks := make([]vectorindex.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = vectorindex.Chunk{
			ID:               chunkID(tenantID, storedName, i),
			TenantID:         tenantID,
			Source:           storedName,
			OriginalFilename: filename,
			ChunkIndex:       i,
			Text:             piece,
			Vector:           vectors[i],
		}
	}

	if err := m.index.Upsert(ctx, chunks); err != nil {
		return nil, err
	}

	m.invalidate(ctx, tenantID)
	m.publish(events.DocumentEvent{
		Type:       events.EventDocumentAdded,
		TenantID:   tenantID,
		Filename:   storedName,
		ChunkCount: len(chunks),
	})

	metrics.DocumentsIndexed.WithLabelValues(tenantID).Inc()
	metrics.ChunksIndexed.WithLabelValues(tenantID).Add(float64(len(chunks)))
	metrics.IngestDuration.WithLabelValues(tenantID).Observe(time.Since(start).Seconds())

	m.log.Info("document indexed",
		zap.String("tenant_id", tenantID),
		zap.String("filename", storedName),
		zap.Int("chunks", len(chunks)))

	return &AddResult{Filename: storedName, TenantID: tenantID, ChunkCount: len(chunks)}, nil
}

// QueryRelevant 返回租户下与问题最相关的topK个文本块
// 租户没有数据时返回空结果，这是正常情况而不是错误
func (m *Manager) QueryRelevant(ctx context.Context, tenantID, question string, topK int) ([]vectorindex.Match, error) {
	start := time.Now()

	if strings.TrimSpace(tenantID) == "" {
		return nil, apperrors.NewValidationError("tenant_id must not be empty")
	}
	if strings.TrimSpace(question) == "" {
		return nil, apperrors.NewValidationError("question must not be empty")
	}
	if topK <= 0 {
		topK = m.topK
	}

	if matches, ok := m.cache.Get(ctx, tenantID, question, topK); ok {
		metrics.CacheHits.WithLabelValues("hit").Inc()
		metrics.Queries.WithLabelValues(tenantID, "ok").Inc()
		return matches, nil
	}
	metrics.CacheHits.WithLabelValues("miss").Inc()

	if !m.embedder.Ready() {
		metrics.Queries.WithLabelValues(tenantID, "error").Inc()
		return nil, embedder.ErrNotReady()
	}

	vectors, err := m.embedder.EmbedBatch(ctx, []string{question})
	if err != nil {
		metrics.Queries.WithLabelValues(tenantID, "error").Inc()
		return nil, err
	}

	matches, err := m.index.Search(ctx, tenantID, vectors[0], topK)
	if err != nil {
		metrics.Queries.WithLabelValues(tenantID, "error").Inc()
		return nil, err
	}

	m.cache.Set(ctx, tenantID, question, topK, matches)

	metrics.Queries.WithLabelValues(tenantID, "ok").Inc()
	metrics.QueryDuration.WithLabelValues(tenantID).Observe(time.Since(start).Seconds())
	return matches, nil
}

// ListDocuments 列出租户已入库的文档及各自的块数
func (m *Manager) ListDocuments(ctx context.Context, tenantID string) ([]DocumentInfo, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, apperrors.NewValidationError("tenant_id must not be empty")
	}

	metas, err := m.index.List(ctx, vectorindex.Filter{
		Field: vectorindex.FieldTenantID,
		Value: tenantID,
	})
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, meta := range metas {
		name := meta.Source
		if name == "" {
			name = meta.OriginalFilename
		}
		counts[name]++
	}

	docs := make([]DocumentInfo, 0, len(counts))
	for name, count := range counts {
		docs = append(docs, DocumentInfo{Filename: name, ChunkCount: count})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Filename < docs[j].Filename })
	return docs, nil
}

// DeleteDocument 删除租户下的一个文档及其全部块
// 底层索引一次只支持单字段过滤，租户归属检查在这里完成：
// 先按source列出再按租户过滤，最后按ID删除
func (m *Manager) DeleteDocument(ctx context.Context, tenantID, filename string) (int, error) {
	if strings.TrimSpace(tenantID) == "" {
		return 0, apperrors.NewValidationError("tenant_id must not be empty")
	}
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." {
		return 0, apperrors.NewValidationError("filename must not be empty")
	}

	metas, err := m.index.List(ctx, vectorindex.Filter{
		Field: vectorindex.FieldSource,
		Value: filename,
	})
	if err != nil {
		return 0, err
	}

	var ids []string
	for _, meta := range metas {
		if meta.TenantID == tenantID {
			ids = append(ids, meta.ID)
		}
	}
	if len(ids) == 0 {
		// 零块文档只有上传文件没有索引元数据，按租户前缀校验后单独删除
		return 0, m.deleteStoredOnly(ctx, tenantID, filename)
	}

	if err := m.index.DeleteIDs(ctx, ids); err != nil {
		return 0, err
	}

	if err := m.uploads.Remove(ctx, filename); err != nil {
		m.log.Warn("failed to remove uploaded file",
			zap.String("filename", filename), zap.Error(err))
	}

	m.invalidate(ctx, tenantID)
	m.publish(events.DocumentEvent{
		Type:       events.EventDocumentDeleted,
		TenantID:   tenantID,
		Filename:   filename,
		ChunkCount: len(ids),
	})
	metrics.DocumentsDeleted.WithLabelValues(tenantID).Inc()

	m.log.Info("document deleted",
		zap.String("tenant_id", tenantID),
		zap.String("filename", filename),
		zap.Int("chunks", len(ids)))
	return len(ids), nil
}

// deleteStoredOnly 删除没有索引块的存储文件，文件名必须带调用方租户前缀
func (m *Manager) deleteStoredOnly(ctx context.Context, tenantID, filename string) error {
	if !strings.HasPrefix(filename, tenantID+"_") {
		return apperrors.NewNotFoundError("document")
	}
	exists, err := m.uploads.Exists(ctx, filename)
	if err != nil {
		return apperrors.NewInfrastructureError(apperrors.ErrCodeStorageFailed,
			"failed to check upload existence").WithCause(err)
	}
	if !exists {
		return apperrors.NewNotFoundError("document")
	}
	if err := m.uploads.Remove(ctx, filename); err != nil {
		return apperrors.NewInfrastructureError(apperrors.ErrCodeStorageFailed,
			"failed to remove uploaded file").WithCause(err)
	}

	m.publish(events.DocumentEvent{
		Type:     events.EventDocumentDeleted,
		TenantID: tenantID,
		Filename: filename,
	})
	metrics.DocumentsDeleted.WithLabelValues(tenantID).Inc()

	m.log.Info("document deleted",
		zap.String("tenant_id", tenantID),
		zap.String("filename", filename),
		zap.Int("chunks", 0))
	return nil
}

// DeleteTenant 删除租户的全部块和上传文件
func (m *Manager) DeleteTenant(ctx context.Context, tenantID string) error {
	if strings.TrimSpace(tenantID) == "" {
		return apperrors.NewValidationError("tenant_id must not be empty")
	}

	if err := m.index.DeleteWhere(ctx, vectorindex.Filter{
		Field: vectorindex.FieldTenantID,
		Value: tenantID,
	}); err != nil {
		return err
	}

	names, err := m.uploads.List(ctx)
	if err != nil {
		m.log.Warn("failed to list uploads during tenant deletion", zap.Error(err))
	} else {
		// 存储文件名只有{tenant_id}_{filename}一层结构，当一个租户ID恰好是
		// 另一个租户ID加下划线的前缀时(如user与user_1)无法从文件名区分归属，
		// 此时user的删除也会带走user_1的上传文件
		prefix := tenantID + "_"
		for _, name := range names {
			if !strings.HasPrefix(name, prefix) {
				continue
			}
			if err := m.uploads.Remove(ctx, name); err != nil {
				m.log.Warn("failed to remove uploaded file",
					zap.String("filename", name), zap.Error(err))
			}
		}
	}

	m.invalidate(ctx, tenantID)
	m.publish(events.DocumentEvent{
		Type:     events.EventTenantDeleted,
		TenantID: tenantID,
	})

	m.log.Info("tenant deleted", zap.String("tenant_id", tenantID))
	return nil
}

// ResetAll 清空索引、上传目录和查询缓存
func (m *Manager) ResetAll(ctx context.Context) error {
	if err := m.index.Reset(ctx); err != nil {
		return err
	}
	if err := m.uploads.RemoveAll(ctx); err != nil {
		m.log.Warn("failed to clear uploads during reset", zap.Error(err))
	}
	if m.cache != nil {
		m.cache.InvalidateAll(ctx)
	}
	m.publish(events.DocumentEvent{Type: events.EventIndexReset})

	m.log.Info("index reset")
	return nil
}

// resolveStoredName 生成租户命名空间化的存储文件名
// 命名为{tenant_id}_{filename}，冲突时在扩展名前追加递增数字后缀
func (m *Manager) resolveStoredName(ctx context.Context, tenantID, filename string) (string, error) {
	base := fmt.Sprintf("%s_%s", tenantID, filename)
	exists, err := m.uploads.Exists(ctx, base)
	if err != nil {
		return "", apperrors.NewInfrastructureError(apperrors.ErrCodeStorageFailed,
			"failed to check upload existence").WithCause(err)
	}
	if !exists {
		return base, nil
	}

	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		exists, err := m.uploads.Exists(ctx, candidate)
		if err != nil {
			return "", apperrors.NewInfrastructureError(apperrors.ErrCodeStorageFailed,
				"failed to check upload existence").WithCause(err)
		}
		if !exists {
			return candidate, nil
		}
	}
}

// extractText 将上传内容写入临时文件后做文本抽取
func (m *Manager) extractText(storedName string, content []byte) (string, error) {
	tmp, err := os.CreateTemp("", "extract-*"+filepath.Ext(storedName))
	if err != nil {
		return "", apperrors.NewInfrastructureError(apperrors.ErrCodeStorageFailed,
			"failed to create temp file").WithCause(err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return "", apperrors.NewInfrastructureError(apperrors.ErrCodeStorageFailed,
			"failed to write temp file").WithCause(err)
	}
	tmp.Close()

	text, err := m.extractor.Extract(tmpPath)
	if err != nil {
		return "", err
	}
	return text, nil
}

func (m *Manager) invalidate(ctx context.Context, tenantID string) {
	if m.cache != nil {
		m.cache.InvalidateTenant(ctx, tenantID)
	}
}

func (m *Manager) publish(event events.DocumentEvent) {
	if m.events != nil {
		m.events.Publish(event)
	}
}

// chunkID 确定性块ID，重复入库同一文档时按ID覆盖
func chunkID(tenantID, source string, index int) string {
	return fmt.Sprintf("%s_%s_%d", tenantID, source, index)
}
