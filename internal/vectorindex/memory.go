package vectorindex

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// memoryIndex 进程内向量索引，持久化后端不可用时的降级实现
// 暴力点积检索，记录按插入顺序保存，同分结果保持插入顺序
type memoryIndex struct {
	mu      sync.RWMutex
	dim     int
	records []Chunk
	byID    map[string]int
}

// NewMemory 创建内存向量索引
func NewMemory(dim int) (Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid vector dimension %d", dim)
	}
	return &memoryIndex{
		dim:  dim,
		byID: make(map[string]int),
	}, nil
}

func (m *memoryIndex) Upsert(ctx context.Context, chunks []Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, chunk := range chunks {
		if len(chunk.Vector) != m.dim {
			return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(chunk.Vector), m.dim)
		}
		if pos, ok := m.byID[chunk.ID]; ok {
			// 覆盖写保留原插入位置
			m.records[pos] = chunk
			continue
		}
		m.byID[chunk.ID] = len(m.records)
		m.records = append(m.records, chunk)
	}
	return nil
}

func (m *memoryIndex) Search(ctx context.Context, tenantID string, vector []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		return []Match{}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]Match, 0)
	for _, rec := range m.records {
		if rec.TenantID != tenantID {
			continue
		}
		matches = append(matches, Match{
			Text:  rec.Text,
			Score: dot(rec.Vector, vector),
			Meta: ChunkMeta{
				ID:               rec.ID,
				TenantID:         rec.TenantID,
				Source:           rec.Source,
				OriginalFilename: rec.OriginalFilename,
				ChunkIndex:       rec.ChunkIndex,
			},
		})
	}

	// 稳定排序保证同分结果按插入顺序返回
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *memoryIndex) List(ctx context.Context, filter Filter) ([]ChunkMeta, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	metas := make([]ChunkMeta, 0)
	for _, rec := range m.records {
		if !filterMatches(filter, rec) {
			continue
		}
		metas = append(metas, ChunkMeta{
			ID:               rec.ID,
			TenantID:         rec.TenantID,
			Source:           rec.Source,
			OriginalFilename: rec.OriginalFilename,
			ChunkIndex:       rec.ChunkIndex,
		})
	}
	return metas, nil
}

func (m *memoryIndex) DeleteWhere(ctx context.Context, filter Filter) error {
	if err := filter.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.rebuild(func(rec Chunk) bool { return !filterMatches(filter, rec) })
	return nil
}

func (m *memoryIndex) DeleteIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.rebuild(func(rec Chunk) bool {
		_, gone := drop[rec.ID]
		return !gone
	})
	return nil
}

func (m *memoryIndex) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = nil
	m.byID = make(map[string]int)
	return nil
}

func (m *memoryIndex) Ready() bool { return true }

// rebuild 按保留谓词重建记录切片并修正ID索引
func (m *memoryIndex) rebuild(keep func(Chunk) bool) {
	kept := m.records[:0]
	byID := make(map[string]int)
	for _, rec := range m.records {
		if !keep(rec) {
			continue
		}
		byID[rec.ID] = len(kept)
		kept = append(kept, rec)
	}
	m.records = kept
	m.byID = byID
}

func filterMatches(filter Filter, rec Chunk) bool {
	switch filter.Field {
	case FieldTenantID:
		return rec.TenantID == filter.Value
	case FieldSource:
		return rec.Source == filter.Value
	case FieldOriginalFilename:
		return rec.OriginalFilename == filter.Value
	default:
		return false
	}
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
