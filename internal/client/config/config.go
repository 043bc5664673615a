package config

import (
	"log/slog"
	"time"

	"github.com/dmitrijs2005/inventaire/internal/client/imaging"
	"github.com/dmitrijs2005/inventaire/internal/client/services"
)

// Config holds runtime settings for the inventaire CLI.
//
// Intervals and timeouts are time.Duration values. Counts of zero fall back
// to the service defaults when the config is turned into a SyncConfig.
type Config struct {
	APIEndpoint         string
	DatabasePath        string
	LogFile             string
	LogLevel            string
	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration

	ScanBatchSize   int
	ArticlePageSize int
	MaxArticlePages int
	ImageQuality    int
	GroupRole       string

	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIEndpoint = "http://127.0.0.1:8080/graphql"
	c.DatabasePath = "inventaire.db"
	c.LogFile = "inventaire.log"
	c.LogLevel = "info"
	c.OnlineCheckInterval = 5 * time.Second
	c.RequestTimeout = 30 * time.Second
	c.ScanBatchSize = services.DefaultScanBatchSize
	c.ArticlePageSize = services.DefaultArticlePageSize
	c.MaxArticlePages = services.DefaultMaxArticlePages
	c.ImageQuality = imaging.DefaultQuality
	c.GroupRole = ""
	c.S3Region = "us-east-1"
}

// SyncConfig projects the sync tunables.
func (c *Config) SyncConfig() services.SyncConfig {
	return services.SyncConfig{
		BatchSize: c.ScanBatchSize,
		PageSize:  c.ArticlePageSize,
		MaxPages:  c.MaxArticlePages,
		GroupRole: c.GroupRole,
	}
}

// S3Config projects the object storage settings.
func (c *Config) S3Config() imaging.S3Config {
	return imaging.S3Config{
		Endpoint:  c.S3Endpoint,
		Region:    c.S3Region,
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
	}
}

// SlogLevel parses LogLevel, falling back to info for unknown names.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
