// Package logging builds the zap loggers used by devices embedding the stack.
package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var ErrNoOutput = errors.New("logging: neither console nor file output enabled")

type Config struct {
	Level      string `toml:"level"`
	Console    bool   `toml:"console"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Console:    true,
		MaxSizeMB:  50,
		MaxBackups: 3,
		MaxAgeDays: 7,
	}
}

func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if !c.Console && c.File == "" {
		return ErrNoOutput
	}
	return nil
}

// New returns a JSON logger writing to stdout and, when c.File is set, to a
// size-rotated file. Console writes are unbuffered.
func New(c Config) (*zap.Logger, error) {
	return newLogger(c, zapcore.Lock(os.Stdout))
}

func newLogger(c Config, console zapcore.WriteSyncer) (*zap.Logger, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	level, _ := zapcore.ParseLevel(c.Level)

	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder

	var cores []zapcore.Core
	if c.Console {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(enc), console, level))
	}
	if c.File != "" {
		if err := os.MkdirAll(filepath.Dir(c.File), 0o755); err != nil {
			return nil, err
		}
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    c.MaxSizeMB, // MB
			MaxBackups: c.MaxBackups,
			MaxAge:     c.MaxAgeDays, // days
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(enc), w, level))
	}
	return zap.New(zapcore.NewTee(cores...)), nil
}
