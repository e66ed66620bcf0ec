package game

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Countdown is the server-owned timer for the active question. Clients may
// mirror the broadcast duration for display, but only this countdown's expiry
// drives state transitions. Pause suspends the clock without resetting elapsed
// time; both Pause and Resume are idempotent.
type Countdown struct {
	clock clockwork.Clock

	mu       sync.Mutex
	timer    clockwork.Timer
	cancel   chan struct{}
	deadline time.Time
	// remaining is meaningful only while paused.
	remaining time.Duration
	active    bool
	running   bool
	onExpire  func()
}

func NewCountdown(clock clockwork.Clock) *Countdown {
	return &Countdown{clock: clock}
}

// Start arms the countdown for d and schedules onExpire. Any previous
// countdown is discarded; its expiry will never fire.
func (c *Countdown) Start(d time.Duration, onExpire func()) {
	c.mu.Lock()
	c.discardLocked()
	c.active = true
	c.running = true
	c.onExpire = onExpire
	c.deadline = c.clock.Now().Add(d)
	c.armLocked(d)
	c.mu.Unlock()
}

// Pause freezes the countdown, preserving the remaining duration.
func (c *Countdown) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active || !c.running {
		return
	}
	c.discardLocked()
	rem := c.deadline.Sub(c.clock.Now())
	if rem < 0 {
		rem = 0
	}
	c.remaining = rem
	c.active = true
	c.running = false
}

// Resume re-arms a paused countdown with its preserved remainder.
func (c *Countdown) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active || c.running {
		return
	}
	c.running = true
	c.deadline = c.clock.Now().Add(c.remaining)
	c.armLocked(c.remaining)
}

// Stop disarms the countdown entirely; a stopped countdown never expires.
func (c *Countdown) Stop() {
	c.mu.Lock()
	c.discardLocked()
	c.active = false
	c.running = false
	c.onExpire = nil
	c.mu.Unlock()
}

// Remaining reports the time left on the countdown, zero when inactive.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return 0
	}
	if !c.running {
		return c.remaining
	}
	rem := c.deadline.Sub(c.clock.Now())
	if rem < 0 {
		rem = 0
	}
	return rem
}

// Paused reports whether an armed countdown is currently suspended.
func (c *Countdown) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active && !c.running
}

func (c *Countdown) armLocked(d time.Duration) {
	t := c.clock.NewTimer(d)
	cancel := make(chan struct{})
	c.timer = t
	c.cancel = cancel
	go c.wait(t, cancel)
}

func (c *Countdown) wait(t clockwork.Timer, cancel chan struct{}) {
	select {
	case <-t.Chan():
	case <-cancel:
		return
	}

	c.mu.Lock()
	// A concurrent Pause/Stop/Start may have superseded this waiter.
	if c.cancel != cancel || !c.running {
		c.mu.Unlock()
		return
	}
	fn := c.onExpire
	c.active = false
	c.running = false
	c.onExpire = nil
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (c *Countdown) discardLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		close(c.cancel)
		c.cancel = nil
	}
}
