package assess

import "time"

// Backoff escalates the wait interval after quota violations. The interval
// only grows while violations persist and is capped at the ceiling. It is
// session-scoped: a fresh Backoff is created for every scan session and a
// successful response does not shrink it mid-session, since regressing the
// interval tends to re-trigger the remote quota.
type Backoff struct {
	current time.Duration
	floor   time.Duration
	ceiling time.Duration
}

// NewBackoff builds a controller starting at floor and capped at ceiling.
func NewBackoff(floor, ceiling time.Duration) *Backoff {
	if floor <= 0 {
		floor = time.Second
	}
	if ceiling < floor {
		ceiling = floor
	}
	return &Backoff{current: floor, floor: floor, ceiling: ceiling}
}

// NextWait returns the interval to wait now and doubles the stored interval
// for the next call, capped at the ceiling. After N consecutive calls the
// returned wait equals min(floor * 2^(N-1), ceiling).
func (b *Backoff) NextWait() time.Duration {
	wait := b.current
	if wait > b.ceiling {
		wait = b.ceiling
	}
	next := b.current * 2
	if next > b.ceiling {
		next = b.ceiling
	}
	b.current = next
	return wait
}

// Reset restores the interval to its floor.
func (b *Backoff) Reset() {
	b.current = b.floor
}
