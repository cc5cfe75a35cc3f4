package engine

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Clock drives a Simulation in real time with a speed multiplier and pause.
// Batch callers (tests, replays) skip the clock and call Step directly.
type Clock struct {
	Interval time.Duration

	speed   atomic.Int64 // speed × 100; 0 means paused
	running atomic.Bool

	// Mu, when set, is held across each step. The API server shares it to
	// read consistent state between ticks.
	Mu sync.Locker

	// OnStep runs after every simulation step, for periodic snapshots and
	// broadcast hooks.
	OnStep func(tick uint64)

	sim *Simulation
}

// NewClock creates a clock at 1.0 speed.
func NewClock(sim *Simulation, interval time.Duration) *Clock {
	c := &Clock{Interval: interval, sim: sim}
	c.speed.Store(100)
	return c
}

// SetSpeed sets the multiplier. 0 pauses.
func (c *Clock) SetSpeed(mult float64) {
	if mult < 0 {
		mult = 0
	}
	c.speed.Store(int64(mult * 100))
}

// Speed returns the current multiplier.
func (c *Clock) Speed() float64 {
	return float64(c.speed.Load()) / 100
}

// Run steps the simulation until Stop. Blocks.
func (c *Clock) Run() {
	c.running.Store(true)
	slog.Info("clock started", "tick", c.sim.Tick, "interval", c.Interval)

	for c.running.Load() {
		speed := c.Speed()
		if speed <= 0 {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()
		if c.Mu != nil {
			c.Mu.Lock()
		}
		c.sim.Step()
		if c.Mu != nil {
			c.Mu.Unlock()
		}
		if c.OnStep != nil {
			c.OnStep(c.sim.Tick)
		}

		elapsed := time.Since(start)
		target := time.Duration(float64(c.Interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}
	slog.Info("clock stopped", "tick", c.sim.Tick)
}

// Stop halts the loop after the current step.
func (c *Clock) Stop() {
	c.running.Store(false)
}
