package vectorindex

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/JeremiasMeza/IA-Rag/internal/logger"
)

// MilvusOptions Milvus客户端配置
type MilvusOptions struct {
	Address    string
	Username   string
	Password   string
	Collection string
	Database   string
	UseTLS     bool
	VectorSize int
	Distance   string
	Timeout    time.Duration
}

// milvusIndex 基于Milvus的持久化向量索引
// 单一全局集合，所有租户的块混存，按tenant_id元数据字段逻辑分区
type milvusIndex struct {
	milvusClient client.Client
	collection   string
	vectorSize   int
	metricType   entity.MetricType
	log          *zap.Logger
}

// NewMilvus 创建Milvus向量索引并确保集合就绪
func NewMilvus(opts MilvusOptions) (Index, error) {
	if opts.Address == "" {
		opts.Address = "localhost:19530"
	}
	if opts.Collection == "" {
		opts.Collection = "doc_chunks"
	}
	if opts.VectorSize == 0 {
		opts.VectorSize = 1536
	}
	if opts.Database == "" {
		opts.Database = "default"
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	milvusClient, err := client.NewClient(ctx, client.Config{
		Address:       opts.Address,
		DBName:        opts.Database,
		Username:      opts.Username,
		Password:      opts.Password,
		EnableTLSAuth: opts.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	idx := &milvusIndex{
		milvusClient: milvusClient,
		collection:   opts.Collection,
		vectorSize:   opts.VectorSize,
		metricType:   formatMetricType(opts.Distance),
		log:          logger.GetLogger(),
	}

	if err := idx.ensureCollection(ctx); err != nil {
		milvusClient.Close()
		return nil, err
	}

	return idx, nil
}

func formatMetricType(value string) entity.MetricType {
	switch strings.ToUpper(value) {
	case "DOT", "IP", "INNER_PRODUCT":
		return entity.IP
	case "L2", "EUCLIDEAN":
		return entity.L2
	default:
		return entity.COSINE
	}
}

func (s *milvusIndex) ensureCollection(ctx context.Context) error {
	hasCollection, err := s.milvusClient.HasCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if !hasCollection {
		schema := &entity.Schema{
			CollectionName: s.collection,
			Description:    "tenant partitioned document chunks",
			Fields: []*entity.Field{
				{
					Name:       FieldID,
					DataType:   entity.FieldTypeVarChar,
					PrimaryKey: true,
					AutoID:     false,
					TypeParams: map[string]string{"max_length": "512"},
				},
				{
					Name:       FieldTenantID,
					DataType:   entity.FieldTypeVarChar,
					TypeParams: map[string]string{"max_length": "128"},
				},
				{
					Name:       FieldSource,
					DataType:   entity.FieldTypeVarChar,
					TypeParams: map[string]string{"max_length": "512"},
				},
				{
					Name:       FieldOriginalFilename,
					DataType:   entity.FieldTypeVarChar,
					TypeParams: map[string]string{"max_length": "512"},
				},
				{
					Name:     FieldChunkIndex,
					DataType: entity.FieldTypeInt64,
				},
				{
					Name:       FieldContent,
					DataType:   entity.FieldTypeVarChar,
					TypeParams: map[string]string{"max_length": "65535"},
				},
				{
					Name:       FieldVector,
					DataType:   entity.FieldTypeFloatVector,
					TypeParams: map[string]string{"dim": fmt.Sprintf("%d", s.vectorSize)},
				},
			},
		}

		if err := s.milvusClient.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}

		// 创建向量索引，HNSW失败时退回IVF_FLAT
		var index entity.Index
		index, indexErr := entity.NewIndexHNSW(s.metricType, 8, 64)
		if indexErr != nil {
			index, indexErr = entity.NewIndexIvfFlat(s.metricType, 128)
			if indexErr != nil {
				return fmt.Errorf("failed to create index: %w", indexErr)
			}
		}
		if err := s.milvusClient.CreateIndex(ctx, s.collection, FieldVector, index, false); err != nil {
			s.log.Warn("failed to create vector index", zap.String("collection", s.collection), zap.Error(err))
		}
	}

	if err := s.milvusClient.LoadCollection(ctx, s.collection, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	return nil
}

func (s *milvusIndex) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, len(chunks))
	tenants := make([]string, len(chunks))
	sources := make([]string, len(chunks))
	originals := make([]string, len(chunks))
	indexes := make([]int64, len(chunks))
	contents := make([]string, len(chunks))
	vectors := make([][]float32, len(chunks))

	for i, chunk := range chunks {
		if len(chunk.Vector) != s.vectorSize {
			return fmt.Errorf("vector dimension mismatch: got %d, want %d",
				len(chunk.Vector), s.vectorSize)
		}
		ids[i] = chunk.ID
		tenants[i] = chunk.TenantID
		sources[i] = chunk.Source
		originals[i] = chunk.OriginalFilename
		indexes[i] = int64(chunk.ChunkIndex)
		contents[i] = chunk.Text
		vectors[i] = chunk.Vector
	}

	_, err := s.milvusClient.Upsert(ctx, s.collection, "",
		entity.NewColumnVarChar(FieldID, ids),
		entity.NewColumnVarChar(FieldTenantID, tenants),
		entity.NewColumnVarChar(FieldSource, sources),
		entity.NewColumnVarChar(FieldOriginalFilename, originals),
		entity.NewColumnInt64(FieldChunkIndex, indexes),
		entity.NewColumnVarChar(FieldContent, contents),
		entity.NewColumnFloatVector(FieldVector, s.vectorSize, vectors),
	)
	if err != nil {
		return fmt.Errorf("milvus upsert failed: %w", err)
	}

	if err := s.milvusClient.Flush(ctx, s.collection, false); err != nil {
		s.log.Warn("failed to flush collection", zap.String("collection", s.collection), zap.Error(err))
	}

	return nil
}

func (s *milvusIndex) Search(ctx context.Context, tenantID string, vector []float32, topK int) ([]Match, error) {
	if len(vector) == 0 || topK <= 0 {
		return []Match{}, nil
	}

	sp, _ := entity.NewIndexHNSWSearchParam(64)
	expr := fmt.Sprintf(`%s == "%s"`, FieldTenantID, escapeExpr(tenantID))

	searchResults, err := s.milvusClient.Search(
		ctx,
		s.collection,
		[]string{},
		expr,
		[]string{FieldID, FieldTenantID, FieldSource, FieldOriginalFilename, FieldChunkIndex, FieldContent},
		[]entity.Vector{entity.FloatVector(vector)},
		FieldVector,
		s.metricType,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("milvus search failed: %w", err)
	}

	if len(searchResults) == 0 {
		return []Match{}, nil
	}
	result := searchResults[0]
	if result.Err != nil {
		return nil, fmt.Errorf("milvus search error: %w", result.Err)
	}
	if result.ResultCount == 0 {
		return []Match{}, nil
	}

	var (
		rids      []string
		tenants   []string
		sources   []string
		originals []string
		indexes   []int64
		contents  []string
	)
	for _, field := range result.Fields {
		switch field.Name() {
		case FieldID:
			if col, ok := field.(*entity.ColumnVarChar); ok {
				rids = col.Data()
			}
		case FieldTenantID:
			if col, ok := field.(*entity.ColumnVarChar); ok {
				tenants = col.Data()
			}
		case FieldSource:
			if col, ok := field.(*entity.ColumnVarChar); ok {
				sources = col.Data()
			}
		case FieldOriginalFilename:
			if col, ok := field.(*entity.ColumnVarChar); ok {
				originals = col.Data()
			}
		case FieldChunkIndex:
			if col, ok := field.(*entity.ColumnInt64); ok {
				indexes = col.Data()
			}
		case FieldContent:
			if col, ok := field.(*entity.ColumnVarChar); ok {
				contents = col.Data()
			}
		}
	}

	matches := make([]Match, 0, result.ResultCount)
	for i := 0; i < result.ResultCount; i++ {
		match := Match{}
		if i < len(contents) {
			match.Text = contents[i]
		}
		if i < len(result.Scores) {
			match.Score = float64(result.Scores[i])
		}
		if i < len(rids) {
			match.Meta.ID = rids[i]
		}
		if i < len(tenants) {
			match.Meta.TenantID = tenants[i]
		}
		if i < len(sources) {
			match.Meta.Source = sources[i]
		}
		if i < len(originals) {
			match.Meta.OriginalFilename = originals[i]
		}
		if i < len(indexes) {
			match.Meta.ChunkIndex = int(indexes[i])
		}
		matches = append(matches, match)
	}

	return matches, nil
}

func (s *milvusIndex) List(ctx context.Context, filter Filter) ([]ChunkMeta, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	expr := fmt.Sprintf(`%s == "%s"`, filter.Field, escapeExpr(filter.Value))
	rs, err := s.milvusClient.Query(ctx, s.collection, []string{}, expr,
		[]string{FieldID, FieldTenantID, FieldSource, FieldOriginalFilename, FieldChunkIndex})
	if err != nil {
		return nil, fmt.Errorf("milvus query failed: %w", err)
	}

	var (
		rids      []string
		tenants   []string
		sources   []string
		originals []string
		indexes   []int64
	)
	for _, col := range rs {
		switch col.Name() {
		case FieldID:
			if c, ok := col.(*entity.ColumnVarChar); ok {
				rids = c.Data()
			}
		case FieldTenantID:
			if c, ok := col.(*entity.ColumnVarChar); ok {
				tenants = c.Data()
			}
		case FieldSource:
			if c, ok := col.(*entity.ColumnVarChar); ok {
				sources = c.Data()
			}
		case FieldOriginalFilename:
			if c, ok := col.(*entity.ColumnVarChar); ok {
				originals = c.Data()
			}
		case FieldChunkIndex:
			if c, ok := col.(*entity.ColumnInt64); ok {
				indexes = c.Data()
			}
		}
	}

	metas := make([]ChunkMeta, 0, len(rids))
	for i := range rids {
		meta := ChunkMeta{ID: rids[i]}
		if i < len(tenants) {
			meta.TenantID = tenants[i]
		}
		if i < len(sources) {
			meta.Source = sources[i]
		}
		if i < len(originals) {
			meta.OriginalFilename = originals[i]
		}
		if i < len(indexes) {
			meta.ChunkIndex = int(indexes[i])
		}
		metas = append(metas, meta)
	}

	return metas, nil
}

func (s *milvusIndex) DeleteWhere(ctx context.Context, filter Filter) error {
	if err := filter.Validate(); err != nil {
		return err
	}

	expr := fmt.Sprintf(`%s == "%s"`, filter.Field, escapeExpr(filter.Value))
	if err := s.milvusClient.Delete(ctx, s.collection, "", expr); err != nil {
		return fmt.Errorf("milvus delete failed: %w", err)
	}

	if err := s.milvusClient.Flush(ctx, s.collection, false); err != nil {
		s.log.Warn("failed to flush after delete", zap.Error(err))
	}

	return nil
}

func (s *milvusIndex) DeleteIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = fmt.Sprintf(`"%s"`, escapeExpr(id))
	}
	expr := fmt.Sprintf("%s in [%s]", FieldID, strings.Join(quoted, ", "))
	if err := s.milvusClient.Delete(ctx, s.collection, "", expr); err != nil {
		return fmt.Errorf("milvus delete by ids failed: %w", err)
	}

	return nil
}

func (s *milvusIndex) Reset(ctx context.Context) error {
	hasCollection, err := s.milvusClient.HasCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if hasCollection {
		if err := s.milvusClient.DropCollection(ctx, s.collection); err != nil {
			return fmt.Errorf("failed to drop collection: %w", err)
		}
	}
	return s.ensureCollection(ctx)
}

func (s *milvusIndex) Ready() bool {
	if s.milvusClient == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := s.milvusClient.ListCollections(ctx)
	return err == nil
}

// escapeExpr 转义Milvus布尔表达式中的字符串字面量
func escapeExpr(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `"`, `\"`)
}
