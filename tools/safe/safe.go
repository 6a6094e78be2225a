// Package safe provides small helpers for running background work that
// must not take the process down with it — used for the fire-and-forget
// log writes described in spec §4.4 (online direct-message branch).
package safe

import "go.uber.org/zap"

// Go starts f in a new goroutine and recovers any panic it raises,
// logging it instead of crashing the process. Suspension points inside
// f (log writes, cache calls) run off the caller's stack, so a slow or
// failing background persist never blocks the socket that triggered it.
func Go(log *zap.Logger, name string, f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("recovered panic in background task",
					zap.String("task", name), zap.Any("panic", r))
			}
		}()
		f()
	}()
}
