// Package logging builds the zap loggers used across rum-count.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config contains logging configuration
type Config struct {
	// Level is the minimum log level (debug, info, warning, error, critical)
	Level string

	// Format is the output format (console, json)
	Format string

	// Output is stderr, stdout or a file path
	Output string
}

// DefaultConfig logs errors only, to stderr, so report output stays clean
func DefaultConfig() Config {
	return Config{
		Level:  "error",
		Format: "console",
		Output: "stderr",
	}
}

// ParseLevel accepts zap level names plus the warning/critical spellings
// used by the Terraform tooling
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "warning":
		return zapcore.WarnLevel
	case "critical":
		return zapcore.FatalLevel
	}
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.ErrorLevel
	}
	return l
}

// New builds a logger from cfg
func New(cfg Config) (*zap.Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	var writeSyncer zapcore.WriteSyncer
	switch cfg.Output {
	case "", "stderr":
		writeSyncer = zapcore.AddSync(os.Stderr)
	case "stdout":
		writeSyncer = zapcore.AddSync(os.Stdout)
	default:
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		writeSyncer = zapcore.AddSync(file)
	}

	core := zapcore.NewCore(encoder, writeSyncer, ParseLevel(cfg.Level))
	return zap.New(core, zap.AddCaller()), nil
}
