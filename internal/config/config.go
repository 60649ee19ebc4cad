// Package config loads settings from flags, the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	KeyPort              = "port"
	KeyAPIKey            = "api_key"
	KeyLogLevel          = "log_level"
	KeyLogFormat         = "log_format"
	KeyMaxUploadBytes    = "max_upload_bytes"
	KeyWorkerCount       = "worker_count"
	KeyTokenizerModel    = "tokenizer_model"
	KeyTokenizerFile     = "tokenizer_file"
	KeyTokenizerCacheDir = "tokenizer_cache_dir"
	KeyMaxTokens         = "max_tokens"
	KeyMergePeers        = "merge_peers"
	KeyMergeListItems    = "merge_list_items"
	KeyPDFFallback       = "pdf_fallback_pdftotext"
)

var keys = []string{
	KeyPort, KeyAPIKey, KeyLogLevel, KeyLogFormat, KeyMaxUploadBytes,
	KeyWorkerCount, KeyTokenizerModel, KeyTokenizerFile, KeyTokenizerCacheDir,
	KeyMaxTokens, KeyMergePeers, KeyMergeListItems, KeyPDFFallback,
}

type Config struct {
	Port string

	// Auth. Empty disables bearer checks.
	APIKey string

	LogLevel  string
	LogFormat string

	// Upload limits
	MaxUploadBytes int64

	// Batch worker pool
	WorkerCount int

	// Tokenizer. TokenizerFile wins over TokenizerModel; with neither set
	// the byte estimator is used.
	TokenizerModel    string
	TokenizerFile     string
	TokenizerCacheDir string

	// Chunking defaults. MaxTokens 0 means the tokenizer's own budget.
	MaxTokens      int
	MergePeers     bool
	MergeListItems bool

	// PDF
	PDFFallbackPdftotext bool
}

// New returns a viper instance with defaults set, environment lookup on and
// envFile (if present) loaded into the process environment.
func New(envFile string) *viper.Viper {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv(KeyAPIKey, "DOCLING_API_KEY")
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, "8090")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "json")
	v.SetDefault(KeyMaxUploadBytes, 52428800) // 50MB
	v.SetDefault(KeyWorkerCount, 4)
	v.SetDefault(KeyTokenizerCacheDir, cacheDir())
	v.SetDefault(KeyMaxTokens, 0)
	v.SetDefault(KeyMergePeers, true)
	v.SetDefault(KeyMergeListItems, true)
	v.SetDefault(KeyPDFFallback, true)
}

func cacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "docling")
	}
	return ""
}

// BindFlags binds every flag in fs whose name matches a config key, with
// dashes read as underscores. A flag only overrides when it was set.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		for _, k := range keys {
			if k == key {
				errs = append(errs, v.BindPFlag(key, f))
				return
			}
		}
	})
	return errors.Join(errs...)
}

// Load reads a Config out of v.
func Load(v *viper.Viper) Config {
	cfg := Config{
		Port:                 v.GetString(KeyPort),
		APIKey:               v.GetString(KeyAPIKey),
		LogLevel:             v.GetString(KeyLogLevel),
		LogFormat:            v.GetString(KeyLogFormat),
		MaxUploadBytes:       v.GetInt64(KeyMaxUploadBytes),
		WorkerCount:          v.GetInt(KeyWorkerCount),
		TokenizerModel:       v.GetString(KeyTokenizerModel),
		TokenizerFile:        v.GetString(KeyTokenizerFile),
		TokenizerCacheDir:    v.GetString(KeyTokenizerCacheDir),
		MaxTokens:            v.GetInt(KeyMaxTokens),
		MergePeers:           v.GetBool(KeyMergePeers),
		MergeListItems:       v.GetBool(KeyMergeListItems),
		PDFFallbackPdftotext: v.GetBool(KeyPDFFallback),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	return cfg
}

func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must not be negative, got %d", c.MaxTokens)
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "console", "text":
	default:
		return fmt.Errorf("log_format must be json or console, got %q", c.LogFormat)
	}
	return nil
}
