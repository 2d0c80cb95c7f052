package bootstrap

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/JeremiasMeza/IA-Rag/internal/cache"
	"github.com/JeremiasMeza/IA-Rag/internal/chunker"
	"github.com/JeremiasMeza/IA-Rag/internal/config"
	"github.com/JeremiasMeza/IA-Rag/internal/documents"
	"github.com/JeremiasMeza/IA-Rag/internal/embedder"
	"github.com/JeremiasMeza/IA-Rag/internal/events"
	"github.com/JeremiasMeza/IA-Rag/internal/extractor"
	"github.com/JeremiasMeza/IA-Rag/internal/logger"
	"github.com/JeremiasMeza/IA-Rag/internal/metrics"
	"github.com/JeremiasMeza/IA-Rag/internal/uploads"
	"github.com/JeremiasMeza/IA-Rag/internal/vectorindex"
)

// App encapsulates lifecycle resources that need to be cleaned up on shutdown.
type App struct {
	cleanupTasks []func() error
	manager      *documents.Manager
	embedder     embedder.Embedder
	indexState   vectorindex.State
	queryCache   *cache.QueryCache
}

// Global app instance for controllers to access
var globalApp *App

// GetApp returns the global app instance
func GetApp() *App {
	return globalApp
}

// SetGlobalApp sets the global app instance
func SetGlobalApp(app *App) {
	globalApp = app
}

// Manager returns the document manager
func (a *App) Manager() *documents.Manager {
	return a.manager
}

// IndexState returns the vector index initialization state
func (a *App) IndexState() vectorindex.State {
	return a.indexState
}

// EmbedderReady reports whether the embedding backend is usable
func (a *App) EmbedderReady() bool {
	return a.embedder != nil && a.embedder.Ready()
}

// QueryCache returns the query cache for health reporting
func (a *App) QueryCache() *cache.QueryCache {
	return a.queryCache
}

// Init bootstraps configuration, logger and the retrieval engine components
// required by the Beego application.
func Init() (*App, error) {
	// Load environment variables from .env if present (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize structured logger.
	if err := logger.InitLogger(); err != nil {
		return nil, err
	}

	// Load dynamic configuration.
	if err := config.LoadConfig(); err != nil {
		return nil, err
	}
	cfg := config.AppConfig

	app := &App{}
	app.cleanupTasks = append(app.cleanupTasks, func() error {
		logger.Sync()
		return nil
	})

	// 分块器配置在LoadConfig已通过结构校验，这里的错误只剩编程失误
	chk, err := chunker.New(cfg.Chunking.WindowSize, cfg.Chunking.Overlap)
	if err != nil {
		return nil, err
	}

	// 向量化后端。API key缺失时降级为不可用实现，服务照常启动
	emb := embedder.NewOpenAIEmbedder(cfg.Embedding.APIKey, cfg.Embedding.Model)
	if !emb.Ready() {
		logger.Warn("embedding backend not ready, ingestion and queries will fail",
			zap.String("model", cfg.Embedding.Model))
	}
	app.embedder = emb

	// 向量索引：Milvus → 内存 → 不可用
	index, state := vectorindex.Open(vectorindex.MilvusOptions{
		Address:    cfg.Index.Address,
		Username:   cfg.Index.Username,
		Password:   cfg.Index.Password,
		Collection: cfg.Index.Collection,
		Database:   cfg.Index.Database,
		UseTLS:     cfg.Index.TLS,
		VectorSize: cfg.Index.VectorSize,
		Distance:   cfg.Index.Distance,
	})
	app.indexState = state
	metrics.IndexState.Set(float64(2 - int(state)))

	// 上传存储：MinIO失败时回退本地磁盘
	var uploadStore uploads.Store
	if cfg.Uploads.Provider == "minio" {
		minioStore, err := uploads.NewMinIOStore(uploads.MinIOOptions{
			Endpoint:  cfg.Uploads.Endpoint,
			AccessKey: cfg.Uploads.AccessKey,
			SecretKey: cfg.Uploads.SecretKey,
			Bucket:    cfg.Uploads.Bucket,
			UseSSL:    cfg.Uploads.UseSSL,
		})
		if err != nil {
			logger.Warn("failed to initialize MinIO, falling back to local uploads", zap.Error(err))
		} else {
			uploadStore = minioStore
		}
	}
	if uploadStore == nil {
		localStore, err := uploads.NewLocalStore(cfg.Uploads.Dir)
		if err != nil {
			return nil, err
		}
		uploadStore = localStore
	}

	// 查询缓存（可选）
	queryCache := cache.NewQueryCache(cache.Options{
		Enabled: cfg.Cache.Enabled,
		Host:    cfg.Cache.Host,
		Port:    cfg.Cache.Port,
		DB:      cfg.Cache.DB,
		TTL:     time.Duration(cfg.Cache.TTL) * time.Second,
	})
	app.queryCache = queryCache
	app.cleanupTasks = append(app.cleanupTasks, queryCache.Close)

	// 生命周期事件（可选）
	var producer *events.Producer
	if cfg.Events.Enabled {
		p, err := events.NewProducer(cfg.Events.Brokers, cfg.Events.Topic)
		if err != nil {
			logger.Warn("failed to initialize kafka producer, events disabled", zap.Error(err))
		} else {
			producer = p
			app.cleanupTasks = append(app.cleanupTasks, producer.Close)
		}
	}

	app.manager = documents.NewManager(documents.Options{
		Index:     index,
		State:     state,
		Embedder:  emb,
		Chunker:   chk,
		Extractor: extractor.New(),
		Uploads:   uploadStore,
		Cache:     queryCache,
		Events:    producer,
		TopK:      cfg.Retrieval.TopK,
	})

	logger.Info("application bootstrapped",
		zap.String("index_state", state.String()),
		zap.Bool("embedder_ready", emb.Ready()),
		zap.String("upload_provider", cfg.Uploads.Provider),
		zap.Bool("cache_enabled", queryCache.Enabled()),
		zap.Bool("events_enabled", producer != nil))

	SetGlobalApp(app)
	return app, nil
}

// Shutdown runs registered cleanup tasks in reverse order.
func (a *App) Shutdown() {
	for i := len(a.cleanupTasks) - 1; i >= 0; i-- {
		if err := a.cleanupTasks[i](); err != nil {
			log.Printf("cleanup task failed: %v", err)
		}
	}
}
