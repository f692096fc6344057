package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// Config holds logger configuration
type Config struct {
	Level      string `mapstructure:"level" yaml:"level"`
	OutputFile string `mapstructure:"file" yaml:"file"`         // Path to log file (empty = stderr only)
	MaxSize    int64  `mapstructure:"max_size" yaml:"max_size"` // Max size in bytes before rotation (default: 10MB)
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	JSONFormat bool   `mapstructure:"json" yaml:"json"`
}

// DefaultConfig returns a sensible default configuration. JSON output is
// used when stderr is not attached to a terminal (CI, cron).
func DefaultConfig(verbose bool) Config {
	level := "info"
	if verbose {
		level = "debug"
	}
	return Config{
		Level:      level,
		MaxSize:    10 * 1024 * 1024,
		MaxBackups: 3,
		JSONFormat: !term.IsTerminal(int(os.Stderr.Fd())),
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a logrus logger from cfg. The returned closer releases the log
// file, if any.
func New(cfg Config) (*logrus.Logger, io.Closer, error) {
	if cfg.MaxSize == 0 {
		cfg.MaxSize = 10 * 1024 * 1024
	}
	if cfg.MaxBackups == 0 {
		cfg.MaxBackups = 3
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		if cfg.Level != "" {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.JSONFormat {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.OutputFile == "" {
		return logger, nopCloser{}, nil
	}

	dir := filepath.Dir(cfg.OutputFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}
	if err := rotateIfNeeded(cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to rotate logs: %w", err)
	}

	file, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", cfg.OutputFile, err)
	}
	logger.SetOutput(io.MultiWriter(os.Stderr, file))

	return logger, file, nil
}

// rotateIfNeeded shifts file -> file.1 -> file.2 ... when file exceeds MaxSize
func rotateIfNeeded(cfg Config) error {
	info, err := os.Stat(cfg.OutputFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	if info.Size() < cfg.MaxSize {
		return nil
	}

	for i := cfg.MaxBackups - 1; i >= 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", cfg.OutputFile, i)
		newPath := fmt.Sprintf("%s.%d", cfg.OutputFile, i+1)
		if _, err := os.Stat(oldPath); err == nil {
			os.Rename(oldPath, newPath)
		}
	}

	backupPath := fmt.Sprintf("%s.1", cfg.OutputFile)
	if err := os.Rename(cfg.OutputFile, backupPath); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}

	return nil
}

// Discard returns a logger that drops everything. Handy for tests and for
// library callers that do not care about progress output.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
