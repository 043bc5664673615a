package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dmitrijs2005/inventaire/internal/client/imaging"
	"github.com/dmitrijs2005/inventaire/internal/client/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080/graphql", c.APIEndpoint)
	assert.Equal(t, "inventaire.db", c.DatabasePath)
	assert.Equal(t, 5*time.Second, c.OnlineCheckInterval)
	assert.Equal(t, 30*time.Second, c.RequestTimeout)
	assert.Equal(t, services.DefaultScanBatchSize, c.ScanBatchSize)
	assert.Equal(t, imaging.DefaultQuality, c.ImageQuality)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "http://127.0.0.1:8080/graphql", cfg.APIEndpoint)
	assert.Equal(t, 5*time.Second, cfg.OnlineCheckInterval)
}

func TestLoadConfig_FlagsOverrideJSON(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, "", "", map[string]any{
		"api_endpoint":    "http://json/graphql",
		"scan_batch_size": 7,
	})
	os.Args = []string{"testbin", "-c", path, "-b", "4"}

	cfg := LoadConfig()

	assert.Equal(t, "http://json/graphql", cfg.APIEndpoint)
	assert.Equal(t, 4, cfg.ScanBatchSize)
}

func TestConfig_Projections(t *testing.T) {
	c := Config{
		ScanBatchSize:   3,
		ArticlePageSize: 100,
		MaxArticlePages: 9,
		GroupRole:       "counter",
		S3Endpoint:      "http://minio:9000",
		S3Region:        "eu-west-1",
		S3AccessKey:     "ak",
		S3SecretKey:     "sk",
	}

	assert.Equal(t, services.SyncConfig{BatchSize: 3, PageSize: 100, MaxPages: 9, GroupRole: "counter"}, c.SyncConfig())
	assert.Equal(t, imaging.S3Config{Endpoint: "http://minio:9000", Region: "eu-west-1", AccessKey: "ak", SecretKey: "sk"}, c.S3Config())
}

func TestConfig_SlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		c := Config{LogLevel: tt.in}
		assert.Equal(t, tt.want, c.SlogLevel(), tt.in)
	}
}
