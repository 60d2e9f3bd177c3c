package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig controls where run logs go.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	JSON       bool   `mapstructure:"json"`
	File       bool   `mapstructure:"file"`
	Dir        string `mapstructure:"dir"`
	MaxSizeMB  int    `mapstructure:"maxSizeMB"`
	MaxBackups int    `mapstructure:"maxBackups"`
}

// RunLogger is a zerolog logger that also owns its log file, if any.
type RunLogger struct {
	zerolog.Logger
	file io.Closer
}

// NewRunLogger creates a logger for the named source. Console output always
// goes to stderr; with cfg.File a rotating file under <dir>/<name>/ is added.
func NewRunLogger(name string, cfg LogConfig, console io.Writer) (*RunLogger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	if console == nil {
		console = os.Stderr
	}
	var writers []io.Writer
	if cfg.JSON {
		writers = append(writers, console)
	} else {
		writers = append(writers, zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339})
	}

	rl := &RunLogger{}
	if cfg.File {
		logPath, err := logFilePath(cfg.Dir, name)
		if err != nil {
			return nil, err
		}
		file := &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    max(cfg.MaxSizeMB, 1),
			MaxBackups: cfg.MaxBackups,
		}
		writers = append(writers, file)
		rl.file = file
	}

	rl.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Str("source", SanitizeName(name)).
		Logger()
	return rl, nil
}

// Close releases the log file.
func (l *RunLogger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// SanitizeName makes a source name safe for use as a directory name.
func SanitizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_").Replace(name)
	if name == "" {
		return "default"
	}
	return name
}

func logFilePath(dir, name string) (string, error) {
	if dir == "" {
		dir = "logs"
	}
	sanitized := SanitizeName(name)

	productDir := filepath.Join(dir, sanitized)
	if err := os.MkdirAll(productDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(productDir, fmt.Sprintf("sitemap_%s_%s.log", sanitized, timestamp)), nil
}
