// Package reconciler keeps a viewer's local playback estimate in lockstep
// with host-originated events, compensating for the time a message spent in
// flight.
package reconciler

import (
	"math"
	"sync"
	"time"

	"github.com/watchlock/server/internal/playback"
)

const (
	// DefaultTolerance is the drift beyond which the local position is
	// force-set to the host-implied one.
	DefaultTolerance = 0.5
	// echoGuardWindow suppresses local event emission right after a remote
	// event was applied, so applying a remote play does not re-emit a play.
	echoGuardWindow = 200 * time.Millisecond
)

// Snapshot is an immutable view of the local estimate. Position is derived
// from it and a wall-clock instant, never mutated in place.
type Snapshot struct {
	Playing       bool
	BasePosition  float64
	BaseTimestamp time.Time
}

// PositionAt returns the estimated position at the given instant.
func (s Snapshot) PositionAt(now time.Time) float64 {
	if !s.Playing {
		return s.BasePosition
	}

	return s.BasePosition + now.Sub(s.BaseTimestamp).Seconds()
}

// SyncState is the host's exact state as carried by a point-to-point sync.
type SyncState struct {
	IsPlaying   bool    `json:"is_playing"`
	CurrentTime float64 `json:"current_time"`
	Timestamp   int64   `json:"timestamp"`
}

type Engine struct {
	controller playback.Controller
	tolerance  float64
	now        func() time.Time

	mu            sync.Mutex
	snapshot      Snapshot
	suppressUntil time.Time
}

func New(controller playback.Controller) *Engine {
	return &Engine{
		controller: controller,
		tolerance:  DefaultTolerance,
		now:        time.Now,
	}
}

// ApplyPlay reconciles against a host play event. The expected position is
// the event's position advanced by the message's one-way delay; the local
// estimate is only corrected when it drifted beyond tolerance.
func (e *Engine) ApplyPlay(currentTime float64, timestamp int64) {
	now := e.now()
	expected := currentTime + elapsedSeconds(now, timestamp)

	e.mu.Lock()
	local := e.snapshot.PositionAt(now)
	forced := math.Abs(local-expected) > e.tolerance
	base := local
	if forced {
		base = expected
	}
	e.snapshot = Snapshot{Playing: true, BasePosition: base, BaseTimestamp: now}
	e.suppressUntil = now.Add(echoGuardWindow)
	e.mu.Unlock()

	if forced {
		e.controller.SeekTo(base)
	}
	e.controller.Play()
}

// ApplySeek applies the same drift rule as play but leaves the playing flag
// untouched.
func (e *Engine) ApplySeek(currentTime float64, timestamp int64) {
	now := e.now()
	expected := currentTime + elapsedSeconds(now, timestamp)

	e.mu.Lock()
	local := e.snapshot.PositionAt(now)
	forced := math.Abs(local-expected) > e.tolerance
	base := local
	if forced {
		base = expected
	}
	e.snapshot = Snapshot{Playing: e.snapshot.Playing, BasePosition: base, BaseTimestamp: now}
	e.suppressUntil = now.Add(echoGuardWindow)
	e.mu.Unlock()

	if forced {
		e.controller.SeekTo(base)
	}
}

// ApplyPause sets the exact given position. A pause is a precise instant, so
// no drift tolerance and no latency compensation apply.
func (e *Engine) ApplyPause(currentTime float64) {
	now := e.now()

	e.mu.Lock()
	e.snapshot = Snapshot{Playing: false, BasePosition: currentTime, BaseTimestamp: now}
	e.suppressUntil = now.Add(echoGuardWindow)
	e.mu.Unlock()

	e.controller.Pause()
	e.controller.SeekTo(currentTime)
}

// ApplySync applies a point-to-point correction unconditionally. This path
// exists to fix large divergence, so the tolerance check is skipped.
func (e *Engine) ApplySync(state SyncState) {
	now := e.now()
	expected := state.CurrentTime + elapsedSeconds(now, state.Timestamp)

	e.mu.Lock()
	e.snapshot = Snapshot{Playing: state.IsPlaying, BasePosition: expected, BaseTimestamp: now}
	e.suppressUntil = now.Add(echoGuardWindow)
	e.mu.Unlock()

	e.controller.SeekTo(expected)
	if state.IsPlaying {
		e.controller.Play()
	} else {
		e.controller.Pause()
	}
}

// SuppressLocal reports whether locally observed surface events should be
// swallowed because a remote event was just applied. Remote events are never
// suppressed.
func (e *Engine) SuppressLocal() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.now().Before(e.suppressUntil)
}

// State returns the current snapshot.
func (e *Engine) State() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.snapshot
}

// Position returns the estimated position now.
func (e *Engine) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.snapshot.PositionAt(e.now())
}

// elapsedSeconds is the seconds between the event's wall-clock stamp and
// now. A missing stamp counts as zero delay.
func elapsedSeconds(now time.Time, timestamp int64) float64 {
	if timestamp <= 0 {
		return 0
	}

	return now.Sub(time.UnixMilli(timestamp)).Seconds()
}
