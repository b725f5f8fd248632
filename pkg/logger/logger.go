// Package logger wraps zap with the application defaults: JSON lines to a log
// file and a console encoder to stderr.
package logger

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type (
	Config struct {
		LogFile   string
		LogLevel  string
		AppName   string
		AddCaller bool
	}

	Logger struct {
		*zap.Logger
	}
)

var (
	global *Logger
	mu     sync.RWMutex
)

// New builds a logger from cfg. An empty LogFile logs to stderr only.
func New(cfg Config) (*Logger, error) {
	level := zapcore.InfoLevel
	if cfg.LogLevel != "" {
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", cfg.LogLevel, err)
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level),
	}

	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), level))
	}

	opts := []zap.Option{}
	if cfg.AddCaller {
		opts = append(opts, zap.AddCaller())
	}

	z := zap.New(zapcore.NewTee(cores...), opts...)
	if cfg.AppName != "" {
		z = z.With(zap.String("app", cfg.AppName))
	}

	return &Logger{Logger: z}, nil
}

// Init builds the process logger returned by Get.
func Init(cfg Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}

	mu.Lock()
	global = l
	mu.Unlock()

	return nil
}

// Get returns the process logger, or a no-op logger before Init.
func Get() *Logger {
	mu.RLock()
	defer mu.RUnlock()

	if global == nil {
		return Nop()
	}
	return global
}

// Sync flushes the process logger.
func Sync() {
	_ = Get().Sync()
}

func Nop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}
