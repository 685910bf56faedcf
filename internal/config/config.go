package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgallion1/legistruct/internal/storage"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// Parsing rules (YAML); empty means built-in defaults
	RulesPath string

	// Output sink
	OutputAdapter string // local or s3
	OutputDir     string
	S3Endpoint    string
	S3Region      string
	S3Bucket      string
	S3Prefix      string
	S3AccessKey   string
	S3SecretKey   string
	S3UseSSL      bool

	// PDF
	PDFBackend           string // text or layout
	PDFFallbackPdftotext bool

	// Chunking defaults
	DefaultChunkSize    int
	DefaultChunkOverlap int
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		APIKey: os.Getenv("LEGISTRUCT_API_KEY"),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 104857600), // 100MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		RulesPath: os.Getenv("RULES_PATH"),

		OutputAdapter: envOr("OUTPUT_ADAPTER", "local"),
		OutputDir:     envOr("OUTPUT_DIR", "./out"),
		S3Endpoint:    os.Getenv("S3_ENDPOINT"),
		S3Region:      envOr("S3_REGION", "us-east-1"),
		S3Bucket:      os.Getenv("S3_BUCKET"),
		S3Prefix:      os.Getenv("S3_PREFIX"),
		S3AccessKey:   os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretKey:   os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3UseSSL:      envBool("S3_USE_SSL", true),

		PDFBackend:           envOr("PDF_BACKEND", "text"),
		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		DefaultChunkSize:    envInt("DEFAULT_CHUNK_SIZE", 800),
		DefaultChunkOverlap: envInt("DEFAULT_CHUNK_OVERLAP", 100),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 104857600
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.DefaultChunkSize <= 0 {
		cfg.DefaultChunkSize = 800
	}
	if cfg.DefaultChunkOverlap < 0 {
		cfg.DefaultChunkOverlap = 100
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("LEGISTRUCT_API_KEY is required")
	}
	switch c.OutputAdapter {
	case "local":
		if c.OutputDir == "" {
			return fmt.Errorf("OUTPUT_DIR is required for the local adapter")
		}
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 adapter")
		}
	default:
		return fmt.Errorf("OUTPUT_ADAPTER must be local or s3, got %q", c.OutputAdapter)
	}
	switch c.PDFBackend {
	case "text", "layout":
	default:
		return fmt.Errorf("PDF_BACKEND must be text or layout, got %q", c.PDFBackend)
	}
	if c.DefaultChunkOverlap >= c.DefaultChunkSize {
		return fmt.Errorf("DEFAULT_CHUNK_OVERLAP (%d) must be smaller than DEFAULT_CHUNK_SIZE (%d)",
			c.DefaultChunkOverlap, c.DefaultChunkSize)
	}
	return nil
}

// StorageOptions returns the output adapter settings.
func (c Config) StorageOptions() storage.Options {
	return storage.Options{
		Adapter:   c.OutputAdapter,
		LocalPath: c.OutputDir,
		S3: storage.S3Options{
			Endpoint:        c.S3Endpoint,
			Region:          c.S3Region,
			Bucket:          c.S3Bucket,
			Prefix:          c.S3Prefix,
			AccessKeyID:     c.S3AccessKey,
			SecretAccessKey: c.S3SecretKey,
			UseSSL:          c.S3UseSSL,
		},
	}
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
