package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how verbosely the daemon logs.
type Options struct {
	Dir     string
	Level   string // debug, info, warn, error
	Console bool   // also write human-readable lines to stderr
}

func NewLogger(opts Options) (*zap.Logger, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, err
	}
	level := zap.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, err
		}
	}

	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, "unreadmail.log"),
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	})
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), w, level)

	if opts.Console {
		ccfg := zap.NewDevelopmentEncoderConfig()
		console := zapcore.NewCore(zapcore.NewConsoleEncoder(ccfg), zapcore.Lock(os.Stderr), level)
		core = zapcore.NewTee(core, console)
	}
	return zap.New(core), nil
}
