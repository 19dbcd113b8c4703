package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Env string

	// Logging
	LogLevel string
	LogFile  string

	// Redis (optional; sessions live in memory without it)
	RedisURL      string
	RedisPoolSize int
	RedisTimeout  time.Duration
	SessionTTL    time.Duration

	// Uploads
	MaxUploadBytes int64

	// Output
	OutputBackend string // local, r2, s3
	OutputDir     string
	OutputBaseURL string

	// Storage (R2)
	R2AccountID       string
	R2AccessKeyID     string
	R2AccessKeySecret string
	R2BucketName      string
	R2PublicURL       string

	// Storage (S3-compatible)
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3PublicURL string

	// Image normalization
	ScratchMode      string // memory, disk
	ScratchDir       string
	JPEGQuality      int
	DefaultDPI       float64
	NormalizeWorkers int

	// Report layout (YAML); empty uses the built-in layout
	LayoutFile string
}

// Load reads configuration from the environment, after applying a .env
// file when one exists. Variables already set take precedence.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Failed to read .env file")
	}

	return &Config{
		Env: getEnv("ENV", "development"),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		// Redis
		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPoolSize: parseInt(getEnv("REDIS_POOL_SIZE", "4"), 4),
		RedisTimeout:  parseDuration(getEnv("REDIS_TIMEOUT", "3s"), 3*time.Second),
		SessionTTL:    parseDuration(getEnv("SESSION_TTL", "24h"), 24*time.Hour),

		// Uploads
		MaxUploadBytes: parseInt64(getEnv("MAX_UPLOAD_BYTES", "20971520"), 20*1024*1024),

		// Output
		OutputBackend: getEnv("OUTPUT_BACKEND", "local"),
		OutputDir:     getEnv("OUTPUT_DIR", "."),
		OutputBaseURL: getEnv("OUTPUT_BASE_URL", ""),

		// Storage (R2)
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2AccessKeySecret: getEnv("R2_ACCESS_KEY_SECRET", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", "zeladoria-reports"),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),

		// Storage (S3-compatible)
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3Bucket:    getEnv("S3_BUCKET", "zeladoria-reports"),
		S3PublicURL: getEnv("S3_PUBLIC_URL", ""),

		// Image normalization
		ScratchMode:      getEnv("SCRATCH_MODE", "memory"),
		ScratchDir:       getEnv("SCRATCH_DIR", ""),
		JPEGQuality:      parseInt(getEnv("JPEG_QUALITY", "75"), 75),
		DefaultDPI:       parseFloat(getEnv("DEFAULT_DPI", "96"), 96),
		NormalizeWorkers: parseInt(getEnv("NORMALIZE_WORKERS", "1"), 1),

		LayoutFile: getEnv("LAYOUT_FILE", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func parseInt(s string, defaultValue int) int {
	value, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return value
}

func parseInt64(s string, defaultValue int64) int64 {
	value, err := strconv.ParseInt(s, 10, 64)
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

func parseFloat(s string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(s, 64)
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev"
}
