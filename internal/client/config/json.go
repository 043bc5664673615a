package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/inventaire/internal/flagx"
	"github.com/dmitrijs2005/inventaire/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Pointer and zero
// values mean "not set" so a partial file only overrides what it names.
type JsonConfig struct {
	APIEndpoint         string          `json:"api_endpoint"`
	DatabasePath        string          `json:"database_path"`
	LogFile             string          `json:"log_file"`
	LogLevel            string          `json:"log_level"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	RequestTimeout      *timex.Duration `json:"request_timeout"`
	ScanBatchSize       int             `json:"scan_batch_size"`
	ArticlePageSize     int             `json:"article_page_size"`
	MaxArticlePages     int             `json:"max_article_pages"`
	ImageQuality        int             `json:"image_quality"`
	GroupRole           *string         `json:"group_role"`
	S3Endpoint          string          `json:"s3_endpoint"`
	S3Region            string          `json:"s3_region"`
	S3AccessKey         string          `json:"s3_access_key"`
	S3SecretKey         string          `json:"s3_secret_key"`
}

// parseJson overlays Config with values from the file named by -c or
// -config. It does nothing when neither flag is given and panics when the
// file cannot be read or decoded.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	setString(&cfg.APIEndpoint, jc.APIEndpoint)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.LogFile, jc.LogFile)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.S3Endpoint, jc.S3Endpoint)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3AccessKey, jc.S3AccessKey)
	setString(&cfg.S3SecretKey, jc.S3SecretKey)

	setInt(&cfg.ScanBatchSize, jc.ScanBatchSize)
	setInt(&cfg.ArticlePageSize, jc.ArticlePageSize)
	setInt(&cfg.MaxArticlePages, jc.MaxArticlePages)
	setInt(&cfg.ImageQuality, jc.ImageQuality)

	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.GroupRole != nil {
		cfg.GroupRole = *jc.GroupRole
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}
