// Package wslog sets up the process-wide structured logger. It writes
// JSON to stderr at info level by default, the same shape the caddy
// package's default production log builds for a server with no explicit
// logging config.
package wslog

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.RWMutex
	current *zap.Logger
)

func init() {
	current, _ = newDefault(false)
}

func newDefault(debug bool) (*zap.Logger, error) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(zapcore.AddSync(os.Stderr)), level)
	return zap.New(core), nil
}

// Configure rebuilds the default logger, switching to debug level and a
// human-readable console encoder when debug is requested.
func Configure(debug bool) {
	l, err := build(debug)
	if err != nil {
		return
	}
	mu.Lock()
	current = l
	mu.Unlock()
}

func build(debug bool) (*zap.Logger, error) {
	if !debug {
		return newDefault(false)
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(zapcore.AddSync(os.Stderr)), zapcore.DebugLevel)
	return zap.New(core), nil
}

// Log returns the current process-wide logger.
func Log() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}
