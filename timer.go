package tokensub

import "time"

// fetchTimer is the one-shot refresh timer owned by the run loop. It
// is an interface so tests can substitute a deterministic timer and
// assert on armed durations.
type fetchTimer interface {
	// C is the fire channel selected on by the run loop.
	C() <-chan time.Time

	// Reset arms the timer for d, replacing any pending fire.
	Reset(d time.Duration)

	// Stop disarms the timer and drains a pending fire. Only called
	// from the run loop goroutine.
	Stop()
}

// wallTimer wraps time.Timer. It is created disarmed.
type wallTimer struct {
	t *time.Timer
}

func newWallTimer() *wallTimer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return &wallTimer{t: t}
}

func (w *wallTimer) C() <-chan time.Time { return w.t.C }

func (w *wallTimer) Reset(d time.Duration) {
	w.Stop()
	w.t.Reset(d)
}

func (w *wallTimer) Stop() {
	if !w.t.Stop() {
		// Drain an already-delivered fire so a later Reset cannot be
		// consumed as a stale one. Safe: only the run loop reads C.
		select {
		case <-w.t.C:
		default:
		}
	}
}
