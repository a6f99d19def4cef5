package engine

import (
	"log/slog"
	"time"
)

// Clock drives the session in real time. The simulation itself only ever
// sees Tick(dt) calls, so tests can drive a Session directly and skip the
// clock entirely.
type Clock struct {
	Speed    float64       // Multiplier: 1.0 = real-time, 0 = paused
	Interval time.Duration // Base tick interval (default 250ms)
	Running  bool

	// OnTick receives the simulated dt for every tick.
	OnTick func(dt float64)

	// OnMinute fires once per simulated minute — the autosave hook.
	OnMinute func()

	minuteAcc float64
}

// NewClock creates a clock with default settings.
func NewClock() *Clock {
	return &Clock{
		Speed:    1.0,
		Interval: 250 * time.Millisecond,
	}
}

// Run starts the tick loop. Blocks until Stop is called.
func (c *Clock) Run() {
	c.Running = true
	slog.Info("session clock started", "interval", c.Interval, "speed", c.Speed)

	for c.Running {
		if c.Speed <= 0 {
			// Paused — sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()
		dt := c.Interval.Seconds() * c.Speed

		if c.OnTick != nil {
			c.OnTick(dt)
		}

		c.minuteAcc += dt
		if c.minuteAcc >= 60 {
			c.minuteAcc -= 60
			if c.OnMinute != nil {
				c.OnMinute()
			}
		}

		// Sleep for the remainder of the tick interval.
		elapsed := time.Since(start)
		if elapsed < c.Interval {
			time.Sleep(c.Interval - elapsed)
		}
	}

	slog.Info("session clock stopped")
}

// Stop halts the tick loop.
func (c *Clock) Stop() {
	c.Running = false
}
