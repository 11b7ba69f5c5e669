package ecs

import "sync/atomic"

// Tick is a reading of the world clock. Component and resource slots
// record the tick of their last write and of their insertion.
type Tick uint64

// Clock is the world's logical clock. It advances once per system and once
// per run-condition invocation, so systems running side by side in a batch
// advance it concurrently.
type Clock struct {
	now atomic.Uint64
}

// Advance moves the clock forward and returns the new reading.
func (c *Clock) Advance() Tick { return Tick(c.now.Add(1)) }

// Now returns the current reading without advancing.
func (c *Clock) Now() Tick { return Tick(c.now.Load()) }

// ChangedSince reports whether a slot stamped at stamp was written after
// a system last ran at lastRun.
func ChangedSince(stamp, lastRun Tick) bool { return stamp > lastRun }
