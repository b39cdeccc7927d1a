// Package lifecycle holds the gateway's drain flag. Once set, /readyz
// reports not-ready and new voice upgrades are refused with 503, while
// sessions already relaying are left to finish or be warned.
package lifecycle

import "sync/atomic"

// Lifecycle is shared by the readiness and voice handlers. The zero
// value is usable and not draining; a nil receiver behaves the same.
type Lifecycle struct {
	draining atomic.Bool
}

// SetDraining flips the drain flag. The daemon sets it at the start of
// graceful shutdown, before warning active voice sessions.
func (l *Lifecycle) SetDraining(draining bool) {
	if l == nil {
		return
	}
	l.draining.Store(draining)
}

// IsDraining reports whether the gateway is shutting down.
func (l *Lifecycle) IsDraining() bool {
	if l == nil {
		return false
	}
	return l.draining.Load()
}
