package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port        int              `json:"port"`
	LogConfig   logger.LogConfig `json:"log_config"`
	Storage     StorageConfig    `json:"storage"`
	AI          AIConfig         `json:"ai"`
	Chunking    ChunkingConfig   `json:"chunking"`
	Retrieval   RetrievalConfig  `json:"retrieval"`
	Fetcher     FetcherConfig    `json:"fetcher"`
	Archive     ArchiveConfig    `json:"archive"`
	Market      MarketConfig     `json:"market"`
	Jobs        JobsConfig       `json:"jobs"`
	CORSOrigins []string         `json:"cors_origins"`
}

type StorageConfig struct {
	// Type selects the storage adapter: postgres (durable, default) or
	// memory (ephemeral, mainly for tests and local experiments).
	Type     string         `json:"type"`
	Postgres PostgresConfig `json:"postgres"`
}

type PostgresConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type AIConfig struct {
	// Provider/Data configure the text generator (script + summary calls);
	// EmbedProvider/EmbedData configure the embedding provider. Data blobs
	// are provider specific and decoded by the factory.
	Provider      string      `json:"provider"`
	Data          interface{} `json:"data"`
	Model         string      `json:"model"`
	EmbedProvider string      `json:"embed_provider"`
	EmbedData     interface{} `json:"embed_data"`
	EmbedModel    string      `json:"embed_model"`
	// MaxInputChars bounds a single embedding input; longer chunks are
	// rejected as invalid rather than silently truncated.
	MaxInputChars  int `json:"max_input_chars"`
	TimeoutSeconds int `json:"timeout_seconds"`
	MaxRetries     int `json:"max_retries"`
}

type ChunkingConfig struct {
	MaxLen  int `json:"max_len"`
	Overlap int `json:"overlap"`
}

type RetrievalConfig struct {
	TopK            int `json:"top_k"`
	MaxContextChars int `json:"max_context_chars"`
	QueryCacheSize  int `json:"query_cache_size"`
	QueryCacheTTL   int `json:"query_cache_ttl_seconds"`
}

type FetcherConfig struct {
	BaseURL     string `json:"base_url"`
	UserAgent   string `json:"user_agent"`
	DelayMillis int    `json:"delay_millis"`
}

type ArchiveConfig struct {
	// Type is local or s3; empty disables archiving of fetched articles.
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type MarketConfig struct {
	// YTDLPPath points at the yt-dlp binary used for video searches.
	YTDLPPath string `json:"ytdlp_path"`
	UserAgent string `json:"user_agent"`
	MaxVideos int    `json:"max_videos"`
}

type JobsConfig struct {
	RefreshSpec      string   `json:"refresh_spec"`
	RefreshTopics    []string `json:"refresh_topics"`
	CacheCleanupSpec string   `json:"cache_cleanup_spec"`
	CacheMaxAgeDays  int      `json:"cache_max_age_days"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "postgres"
	}
	switch cfg.Storage.Type {
	case "postgres":
		pg := cfg.Storage.Postgres
		if pg.DSN == "" && (pg.Host == "" || pg.DBName == "") {
			return fmt.Errorf("storage.postgres requires dsn or host/db_name")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.type must be postgres or memory")
	}
	if cfg.AI.EmbedProvider == "" {
		return fmt.Errorf("ai.embed_provider is required")
	}
	if cfg.AI.EmbedModel == "" {
		return fmt.Errorf("ai.embed_model is required")
	}
	if cfg.AI.MaxInputChars == 0 {
		cfg.AI.MaxInputChars = 20000
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = 60
	}
	if cfg.AI.MaxRetries == 0 {
		cfg.AI.MaxRetries = 3
	}
	if cfg.Chunking.MaxLen == 0 {
		cfg.Chunking.MaxLen = 1000
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 100
	}
	if cfg.Chunking.Overlap < 0 || cfg.Chunking.Overlap >= cfg.Chunking.MaxLen {
		return fmt.Errorf("chunking.overlap must satisfy 0 <= overlap < max_len")
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.TopK < 0 {
		return fmt.Errorf("retrieval.top_k must be positive")
	}
	if cfg.Retrieval.MaxContextChars == 0 {
		cfg.Retrieval.MaxContextChars = 4000
	}
	if cfg.Retrieval.QueryCacheSize == 0 {
		cfg.Retrieval.QueryCacheSize = 2048
	}
	if cfg.Retrieval.QueryCacheTTL == 0 {
		cfg.Retrieval.QueryCacheTTL = 3600
	}
	if cfg.Fetcher.BaseURL == "" {
		cfg.Fetcher.BaseURL = "https://en.wikipedia.org/w/api.php"
	}
	if cfg.Fetcher.UserAgent == "" {
		cfg.Fetcher.UserAgent = "scriptforge/1.0 (research tool)"
	}
	if cfg.Fetcher.DelayMillis == 0 {
		cfg.Fetcher.DelayMillis = 1000
	}
	if cfg.Market.YTDLPPath == "" {
		cfg.Market.YTDLPPath = "yt-dlp"
	}
	if cfg.Market.MaxVideos == 0 {
		cfg.Market.MaxVideos = 8
	}
	if cfg.Jobs.CacheMaxAgeDays == 0 {
		cfg.Jobs.CacheMaxAgeDays = 30
	}
	return nil
}
