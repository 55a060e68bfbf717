// Package logging builds the process logger: console output on stdout and
// the same lines appended to a local log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	// FilePath is opened once in append mode. Empty disables the file sink.
	FilePath string
	// Level is "debug" or "info".
	Level string
	// Stdout defaults to os.Stdout.
	Stdout io.Writer
}

// New returns a logr.Logger and a function that flushes and closes the file.
func New(opts Options) (logr.Logger, func() error, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return logr.Discard(), nil, err
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	enc := zapcore.NewConsoleEncoder(encCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(enc, zapcore.AddSync(stdout), level),
	}

	var file *os.File
	if opts.FilePath != "" {
		if dir := filepath.Dir(opts.FilePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return logr.Discard(), nil, fmt.Errorf("creating log dir: %w", err)
			}
		}
		file, err = os.OpenFile(opts.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return logr.Discard(), nil, fmt.Errorf("opening log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(enc.Clone(), zapcore.AddSync(file), level))
	}

	zl := zap.New(zapcore.NewTee(cores...))
	closer := func() error {
		_ = zl.Sync()
		if file != nil {
			return file.Close()
		}
		return nil
	}
	return zapr.NewLogger(zl), closer, nil
}

func parseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		// logr V(1) maps to zap level -1
		return zapcore.DebugLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q", s)
	}
}
