package share

import (
	"context"
	"sync"
	"time"
)

// ResetAfter is how long the copied flag stays on.
const ResetAfter = 2 * time.Second

// Flag is the "copied" indicator next to the share button. Set turns it on
// and schedules it off again; setting it while a reset is pending cancels
// that reset and starts the window over, so only the latest reset fires.
type Flag struct {
	// OnChange, if set, is called after every transition, outside the lock.
	OnChange func(on bool)

	after time.Duration

	mu     sync.Mutex
	on     bool
	cancel context.CancelFunc
}

func NewFlag(after time.Duration) *Flag {
	if after <= 0 {
		after = ResetAfter
	}
	return &Flag{after: after}
}

func (f *Flag) On() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on
}

// Set turns the flag on and replaces any pending reset.
func (f *Flag) Set() {
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.on = true
	hook := f.OnChange
	f.mu.Unlock()

	go f.resetLater(ctx, f.after)
	if hook != nil {
		hook(true)
	}
}

// Stop cancels a pending reset and leaves the flag as it is.
func (f *Flag) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}

func (f *Flag) resetLater(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return
	case <-t.C:
	}

	f.mu.Lock()
	// A Set that won the lock after the timer fired owns the flag now.
	if ctx.Err() != nil {
		f.mu.Unlock()
		return
	}
	f.cancel()
	f.cancel = nil
	f.on = false
	hook := f.OnChange
	f.mu.Unlock()

	if hook != nil {
		hook(false)
	}
}
