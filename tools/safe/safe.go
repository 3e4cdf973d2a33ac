package safe

import (
	"runtime/debug"

	"PRelay/logger"
)

// Go runs f on a new goroutine and recovers any panic, so a single bad
// fan-out path cannot take the whole relay down.
func Go(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[safe] recovered panic: %v\n%s", r, debug.Stack())
			}
		}()
		f()
	}()
}
