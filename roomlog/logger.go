// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package roomlog is the structured-logging façade shared by every
// worker (Listener, Manager, Room, Server, Client): a package-level
// slog.Logger with level and output control for tests, plus the usual
// Debug/Info/Warn/Error free functions.
package roomlog

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

var (
	mu      sync.RWMutex
	out     io.Writer = os.Stderr
	level             = new(slog.LevelVar)
	logger  atomic.Pointer[slog.Logger]
)

func init() {
	rebuild()
}

func rebuild() {
	mu.RLock()
	w := out
	mu.RUnlock()
	logger.Store(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// SetOutput redirects all future log records to w. Tests use this to
// capture output.
func SetOutput(w io.Writer) {
	mu.Lock()
	out = w
	mu.Unlock()
	rebuild()
}

// SetLevel sets the minimum level that will be emitted.
func SetLevel(l slog.Level) { level.Set(l) }

func get() *slog.Logger { return logger.Load() }

// Debug logs at debug level with structured key-value fields.
func Debug(msg string, args ...any) { get().Debug(msg, args...) }

// Info logs at info level with structured key-value fields.
func Info(msg string, args ...any) { get().Info(msg, args...) }

// Warn logs at warn level with structured key-value fields.
func Warn(msg string, args ...any) { get().Warn(msg, args...) }

// Error logs at error level with structured key-value fields.
func Error(msg string, args ...any) { get().Error(msg, args...) }

// With returns a logger with args pre-bound, for a worker to hold onto
// for the lifetime of its loop (e.g. roomlog.With("worker", "manager")).
func With(args ...any) *slog.Logger { return get().With(args...) }
