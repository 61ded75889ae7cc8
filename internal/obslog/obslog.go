// Package obslog is the package-level structured logger used across the
// engine for warnings, runtime errors and the warmup notice; the percentile
// report lines are written directly to stderr, not through it.
//
// Grounded on eventloop/logging.go's pattern: a single RWMutex-guarded
// global Logger, swappable via SetLogger, defaulting to a no-op so library
// code never panics on an unconfigured logger. Backed by zerolog, the
// binding the pack itself adopts for this concern (joeycumines-go-utilpkg's
// logiface-zerolog).
package obslog

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var global struct {
	sync.RWMutex
	logger zerolog.Logger
	set    bool
}

// Default installs a console-writer zerolog.Logger at the given level as
// the package logger, used by cmd/schbench at startup.
func Default(level zerolog.Level) {
	l := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(level).
		With().Timestamp().Logger()
	SetLogger(l)
}

// SetLogger installs l as the package-level logger.
func SetLogger(l zerolog.Logger) {
	global.Lock()
	defer global.Unlock()
	global.logger = l
	global.set = true
}

// Get returns the current package-level logger, or a disabled one if none
// has been installed.
func Get() zerolog.Logger {
	global.RLock()
	defer global.RUnlock()
	if !global.set {
		return zerolog.Nop()
	}
	return global.logger
}
