package chat

import (
	"sync"
	"time"
)

// DefaultDebounceInterval is how long a toggle stays locked after firing
const DefaultDebounceInterval = 250 * time.Millisecond

// Debouncer is a self-clearing boolean lock for UI toggles.
// It does not guard the send path.
type Debouncer struct {
	mu       sync.Mutex
	locked   bool
	interval time.Duration
}

// NewDebouncer creates a debouncer that re-opens after interval
func NewDebouncer(interval time.Duration) *Debouncer {
	if interval <= 0 {
		interval = DefaultDebounceInterval
	}
	return &Debouncer{interval: interval}
}

// TryAcquire takes the lock if it is free and schedules its release
func (d *Debouncer) TryAcquire() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.locked {
		return false
	}
	d.locked = true
	time.AfterFunc(d.interval, d.release)
	return true
}

func (d *Debouncer) release() {
	d.mu.Lock()
	d.locked = false
	d.mu.Unlock()
}
