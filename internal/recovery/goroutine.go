package recovery

import (
	"fmt"
	"runtime/debug"

	"github.com/vanpelt/monorail/internal/logger"
)

// SafeGo runs a function in a goroutine with automatic panic recovery
// so a single bad event never takes the daemon down.
func SafeGo(name string, fn func()) {
	go func() {
		defer Recover(name)
		fn()
	}()
}

// Recover logs a recovered panic. It must be called directly via defer.
func Recover(name string) {
	if r := recover(); r != nil {
		logger.Logger.Error().
			Str("goroutine", name).
			Str("stack", string(debug.Stack())).
			Msgf("🚨 PANIC recovered in '%s': %v", name, r)
	}
}

// Call runs fn synchronously and converts a panic into an error.
func Call(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Logger.Error().
				Str("goroutine", name).
				Str("stack", string(debug.Stack())).
				Msgf("🚨 PANIC recovered in '%s': %v", name, r)
			err = fmt.Errorf("panic in %s: %v", name, r)
		}
	}()
	return fn()
}
