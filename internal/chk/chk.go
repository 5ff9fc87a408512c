// Package chk provides one-line error-check-and-log helpers used pervasively
// at call sites in place of bare `if err != nil { log... }`.
package chk

import "relaygate.dev/internal/logger"

// E logs err at Error level and reports whether it was non-nil.
func E(err error) bool {
	if err == nil {
		return false
	}
	logger.E.F("%v", err)
	return true
}

// T logs err at Trace level and reports whether it was non-nil. Used for
// expected-path failures (context cancellation, best-effort cleanup) that
// aren't worth an Error-level line.
func T(err error) bool {
	if err == nil {
		return false
	}
	logger.T.F("%v", err)
	return true
}
