package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Batch driver
	InputDir        string        `yaml:"input_dir"`
	OutputDir       string        `yaml:"output_dir"`
	InputPatterns   []string      `yaml:"input_patterns"`
	BatchWorkers    int           `yaml:"batch_workers"`
	DocumentTimeout time.Duration `yaml:"document_timeout"`

	// PDF
	PreferBookmarks bool `yaml:"prefer_bookmarks"`

	// HTTP service
	Port         string `yaml:"port"`
	APIKey       string `yaml:"api_key"`
	DBPath       string `yaml:"db_path"`
	WorkerCount  int    `yaml:"worker_count"`
	MaxQueueSize int    `yaml:"max_queue_size"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Job state
	JobTTL time.Duration `yaml:"job_ttl"`

	LogLevel string `yaml:"log_level"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		InputDir:      "input",
		OutputDir:     "output",
		InputPatterns: []string{"*.pdf"},
		BatchWorkers:  1,

		Port:         "8090",
		DBPath:       "outlines.db",
		WorkerCount:  4,
		MaxQueueSize: 100,

		MaxUploadBytes: 52428800, // 50MB

		JobTTL: 1 * time.Hour,

		LogLevel: "info",
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// OUTLINER_CONFIG (if any), then environment variables.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("OUTLINER_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.InputDir = envOr("INPUT_DIR", cfg.InputDir)
	cfg.OutputDir = envOr("OUTPUT_DIR", cfg.OutputDir)
	cfg.InputPatterns = envList("INPUT_PATTERNS", cfg.InputPatterns)
	cfg.BatchWorkers = envInt("BATCH_WORKERS", cfg.BatchWorkers)
	cfg.DocumentTimeout = envDuration("DOCUMENT_TIMEOUT", cfg.DocumentTimeout)

	cfg.PreferBookmarks = envBool("PREFER_BOOKMARKS", cfg.PreferBookmarks)

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = envOr("OUTLINER_API_KEY", cfg.APIKey)
	cfg.DBPath = envOr("DB_PATH", cfg.DBPath)
	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)

	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)

	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)

	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)

	cfg.clamp()
	return cfg, nil
}

func (c *Config) clamp() {
	d := Defaults()
	if len(c.InputPatterns) == 0 {
		c.InputPatterns = d.InputPatterns
	}
	if c.BatchWorkers <= 0 {
		c.BatchWorkers = d.BatchWorkers
	}
	if c.DocumentTimeout < 0 {
		c.DocumentTimeout = 0
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.JobTTL <= 0 {
		c.JobTTL = d.JobTTL
	}
}

// Validate checks the settings the HTTP service needs.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("OUTLINER_API_KEY is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	return nil
}

// ValidateBatch checks the settings the batch driver needs.
func (c Config) ValidateBatch() error {
	if c.InputDir == "" {
		return fmt.Errorf("INPUT_DIR is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("OUTPUT_DIR is required")
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList reads a comma-separated list.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
