package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Embedding EmbeddingConfig
	Index     IndexConfig
	Uploads   UploadsConfig
	Chunking  ChunkingConfig `validate:"required"`
	Retrieval RetrievalConfig
	Cache     CacheConfig
	Events    EventsConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type EmbeddingConfig struct {
	APIKey string
	Model  string `validate:"required"`
}

type IndexConfig struct {
	Address    string `validate:"required"`
	Username   string
	Password   string
	Collection string `validate:"required"`
	Database   string
	TLS        bool
	VectorSize int `validate:"gt=0"`
	Distance   string
}

type UploadsConfig struct {
	Provider  string `validate:"oneof=local minio"`
	Dir       string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type ChunkingConfig struct {
	WindowSize int `validate:"gt=0"`
	Overlap    int `validate:"gte=0"`
}

type RetrievalConfig struct {
	TopK int `validate:"gt=0"`
}

type CacheConfig struct {
	Enabled bool
	Host    string
	Port    string
	DB      int
	TTL     int
}

type EventsConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

var AppConfig *Config

func LoadConfig() error {
	// 设置默认值
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")

	// 向量化配置默认值
	viper.SetDefault("embedding.model", "text-embedding-3-small")

	// 向量索引配置默认值
	viper.SetDefault("index.address", "localhost:19530")
	viper.SetDefault("index.collection", "doc_chunks")
	viper.SetDefault("index.database", "default")
	viper.SetDefault("index.tls", false)
	viper.SetDefault("index.vector_size", 1536)
	viper.SetDefault("index.distance", "cosine")

	// 上传存储配置默认值
	viper.SetDefault("uploads.provider", "local")
	viper.SetDefault("uploads.dir", "storage/uploads")
	viper.SetDefault("uploads.bucket", "doc-uploads")
	viper.SetDefault("uploads.use_ssl", false)

	// 分块配置默认值
	viper.SetDefault("chunking.window_size", 400)
	viper.SetDefault("chunking.overlap", 100)

	// 检索配置默认值
	viper.SetDefault("retrieval.top_k", 4)

	// 查询缓存配置默认值
	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.host", "localhost")
	viper.SetDefault("cache.port", "6379")
	viper.SetDefault("cache.db", 0)
	viper.SetDefault("cache.ttl", 300)

	// 事件配置默认值
	viper.SetDefault("events.enabled", false)
	viper.SetDefault("events.brokers", []string{"localhost:9092"})
	viper.SetDefault("events.topic", "document-events")

	// 读取环境变量
	viper.SetEnvPrefix("RAG")
	viper.AutomaticEnv()

	if port := os.Getenv("SERVER_PORT"); port != "" {
		viper.Set("server.port", port)
	}
	if env := os.Getenv("ENV"); env != "" {
		viper.Set("server.env", env)
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		viper.Set("embedding.api_key", apiKey)
	}
	if model := os.Getenv("EMBED_MODEL"); model != "" {
		viper.Set("embedding.model", model)
	}
	if addr := os.Getenv("MILVUS_ADDRESS"); addr != "" {
		viper.Set("index.address", addr)
	}
	if user := os.Getenv("MILVUS_USERNAME"); user != "" {
		viper.Set("index.username", user)
	}
	if pass := os.Getenv("MILVUS_PASSWORD"); pass != "" {
		viper.Set("index.password", pass)
	}
	if collection := os.Getenv("MILVUS_COLLECTION"); collection != "" {
		viper.Set("index.collection", collection)
	}
	if uploadDir := os.Getenv("UPLOAD_DIR"); uploadDir != "" {
		viper.Set("uploads.dir", uploadDir)
	}
	if provider := os.Getenv("UPLOAD_PROVIDER"); provider != "" {
		viper.Set("uploads.provider", provider)
	}
	// MinIO配置从环境变量读取
	if minioEndpoint := os.Getenv("MINIO_ENDPOINT"); minioEndpoint != "" {
		viper.Set("uploads.endpoint", minioEndpoint)
		viper.Set("uploads.provider", "minio")
	}
	if minioAccessKey := os.Getenv("MINIO_ACCESS_KEY"); minioAccessKey != "" {
		viper.Set("uploads.access_key", minioAccessKey)
	}
	if minioSecretKey := os.Getenv("MINIO_SECRET_KEY"); minioSecretKey != "" {
		viper.Set("uploads.secret_key", minioSecretKey)
	}
	if minioBucket := os.Getenv("MINIO_BUCKET"); minioBucket != "" {
		viper.Set("uploads.bucket", minioBucket)
	}
	if chunkSize := os.Getenv("CHUNK_SIZE"); chunkSize != "" {
		viper.Set("chunking.window_size", chunkSize)
	}
	if overlap := os.Getenv("CHUNK_OVERLAP"); overlap != "" {
		viper.Set("chunking.overlap", overlap)
	}
	if topK := os.Getenv("TOP_K"); topK != "" {
		viper.Set("retrieval.top_k", topK)
	}
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		viper.Set("cache.host", redisHost)
	}
	if redisPort := os.Getenv("REDIS_PORT"); redisPort != "" {
		viper.Set("cache.port", redisPort)
	}
	if cacheEnabled := os.Getenv("QUERY_CACHE_ENABLED"); cacheEnabled == "true" {
		viper.Set("cache.enabled", true)
	}
	if kafkaBrokers := os.Getenv("KAFKA_BROKERS"); kafkaBrokers != "" {
		// 支持逗号分隔的broker列表
		brokers := strings.Split(kafkaBrokers, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		viper.Set("events.brokers", brokers)
	}
	if kafkaTopic := os.Getenv("KAFKA_TOPIC"); kafkaTopic != "" {
		viper.Set("events.topic", kafkaTopic)
	}
	if kafkaEnabled := os.Getenv("KAFKA_ENABLED"); kafkaEnabled == "true" {
		viper.Set("events.enabled", true)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Embedding: EmbeddingConfig{
			APIKey: viper.GetString("embedding.api_key"),
			Model:  viper.GetString("embedding.model"),
		},
		Index: IndexConfig{
			Address:    viper.GetString("index.address"),
			Username:   viper.GetString("index.username"),
			Password:   viper.GetString("index.password"),
			Collection: viper.GetString("index.collection"),
			Database:   viper.GetString("index.database"),
			TLS:        viper.GetBool("index.tls"),
			VectorSize: viper.GetInt("index.vector_size"),
			Distance:   viper.GetString("index.distance"),
		},
		Uploads: UploadsConfig{
			Provider:  viper.GetString("uploads.provider"),
			Dir:       viper.GetString("uploads.dir"),
			Endpoint:  viper.GetString("uploads.endpoint"),
			AccessKey: viper.GetString("uploads.access_key"),
			SecretKey: viper.GetString("uploads.secret_key"),
			Bucket:    viper.GetString("uploads.bucket"),
			UseSSL:    viper.GetBool("uploads.use_ssl"),
		},
		Chunking: ChunkingConfig{
			WindowSize: viper.GetInt("chunking.window_size"),
			Overlap:    viper.GetInt("chunking.overlap"),
		},
		Retrieval: RetrievalConfig{
			TopK: viper.GetInt("retrieval.top_k"),
		},
		Cache: CacheConfig{
			Enabled: viper.GetBool("cache.enabled"),
			Host:    viper.GetString("cache.host"),
			Port:    viper.GetString("cache.port"),
			DB:      viper.GetInt("cache.db"),
			TTL:     viper.GetInt("cache.ttl"),
		},
		Events: EventsConfig{
			Enabled: viper.GetBool("events.enabled"),
			Brokers: viper.GetStringSlice("events.brokers"),
			Topic:   viper.GetString("events.topic"),
		},
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	AppConfig = cfg
	return nil
}

// Validate 校验配置的结构约束
// 分块重叠必须小于窗口大小，否则切分循环无法前进
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Chunking.Overlap >= cfg.Chunking.WindowSize {
		return fmt.Errorf("invalid configuration: chunk overlap (%d) must be smaller than window size (%d)",
			cfg.Chunking.Overlap, cfg.Chunking.WindowSize)
	}
	return nil
}
