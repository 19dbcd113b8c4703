package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config represents logger configuration
type Config struct {
	Level   string // debug, info, warn, error, fatal
	Console bool   // human-readable stderr output instead of JSON
	LogFile string // optional file path for logs
}

// Init initializes the global logger with the given configuration.
// Logs go to stderr; stdout is reserved for command output.
// The returned closer releases the log file, if any.
func Init(cfg Config) (io.Closer, error) {
	// Configure time format
	zerolog.TimeFieldFormat = time.RFC3339

	// Parse log level
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var console io.Writer = os.Stderr
	if cfg.Console {
		console = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		}
	}

	writers := []io.Writer{console}
	var closer io.Closer = nopCloser{}

	// Add file output if specified; the file always receives JSON
	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return closer, err
		}
		writers = append(writers, file)
		closer = file
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().
		Timestamp().
		Logger()

	return closer, nil
}

// FromContext returns the logger from context or the global logger
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctxLogger := ctx.Value(ContextKey); ctxLogger != nil {
		if logger, ok := ctxLogger.(*zerolog.Logger); ok {
			return logger
		}
	}
	return &log.Logger
}

// WithContext returns a context with the logger attached
func WithContext(ctx context.Context, logger *zerolog.Logger) context.Context {
	return context.WithValue(ctx, ContextKey, logger)
}

// WithGeneration attaches a logger tagged with a fresh generation_id.
func WithGeneration(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	l := FromContext(ctx).With().Str("generation_id", id).Logger()
	return WithContext(ctx, &l), id
}

// ContextKey is the key used to store logger in context
type contextKey string

const ContextKey contextKey = "logger"

// LogError logs an error with key/value pairs, e.g. LogError(ctx, err, "msg", "session", id).
func LogError(ctx context.Context, err error, msg string, fields ...interface{}) {
	FromContext(ctx).Error().Err(err).Fields(fields).Msg(msg)
}

// LogInfo logs an info message with key/value pairs
func LogInfo(ctx context.Context, msg string, fields ...interface{}) {
	FromContext(ctx).Info().Fields(fields).Msg(msg)
}

// LogDebug logs a debug message with key/value pairs
func LogDebug(ctx context.Context, msg string, fields ...interface{}) {
	FromContext(ctx).Debug().Fields(fields).Msg(msg)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
