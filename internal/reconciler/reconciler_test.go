package reconciler

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	calls []string
}

func (f *fakeController) Play()  { f.calls = append(f.calls, "play") }
func (f *fakeController) Pause() { f.calls = append(f.calls, "pause") }
func (f *fakeController) SeekTo(seconds float64) {
	f.calls = append(f.calls, fmt.Sprintf("seek:%.1f", seconds))
}
func (f *fakeController) ClearProgress() { f.calls = append(f.calls, "clear") }

// fixedClock lets tests advance wall time deterministically.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time          { return c.t }
func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestEngine() (*Engine, *fakeController, *fixedClock) {
	controller := &fakeController{}
	clock := &fixedClock{t: time.UnixMilli(1700000000000)}
	engine := New(controller)
	engine.now = clock.now

	return engine, controller, clock
}

func TestApplyPlayForcesBeyondTolerance(t *testing.T) {
	engine, controller, clock := newTestEngine()

	// local estimate stuck at 10.0s
	engine.ApplyPause(10.0)
	controller.calls = nil

	// a play{10.0} stamped now arrives two seconds late: the host is at 12.0
	eventTS := clock.t.UnixMilli()
	clock.advance(2 * time.Second)
	engine.ApplyPlay(10.0, eventTS)

	assert.Equal(t, []string{"seek:12.0", "play"}, controller.calls)
	assert.InDelta(t, 12.0, engine.Position(), 1e-9)
}

func TestApplyPlayWithinToleranceKeepsLocal(t *testing.T) {
	engine, controller, clock := newTestEngine()

	engine.ApplySync(SyncState{IsPlaying: true, CurrentTime: 10.0, Timestamp: clock.t.UnixMilli()})
	controller.calls = nil

	// local has advanced to 12.3 while the host-implied position is 12.6:
	// 0.3s of drift stays under the 0.5s tolerance
	eventTS := clock.t.UnixMilli()
	clock.advance(2300 * time.Millisecond)
	engine.ApplyPlay(10.3, eventTS)

	assert.Equal(t, []string{"play"}, controller.calls, "no corrective seek within tolerance")
	assert.InDelta(t, 12.3, engine.Position(), 1e-9)
}

func TestApplyPlayAlwaysStartsPlayback(t *testing.T) {
	engine, controller, clock := newTestEngine()

	// paused locally at the host's exact position: zero drift, yet the
	// playing flag must still flip
	engine.ApplyPause(20.0)
	controller.calls = nil

	engine.ApplyPlay(20.0, clock.t.UnixMilli())

	assert.Equal(t, []string{"play"}, controller.calls)
	state := engine.State()
	assert.True(t, state.Playing)
}

func TestApplySeekLeavesPlayingFlag(t *testing.T) {
	engine, controller, clock := newTestEngine()

	engine.ApplyPause(5.0)
	controller.calls = nil

	engine.ApplySeek(42.0, clock.t.UnixMilli())

	assert.Equal(t, []string{"seek:42.0"}, controller.calls, "seek must not emit play or pause")
	state := engine.State()
	assert.False(t, state.Playing)
	assert.InDelta(t, 42.0, engine.Position(), 1e-9)
}

func TestApplyPauseIsExact(t *testing.T) {
	engine, controller, clock := newTestEngine()

	engine.ApplySync(SyncState{IsPlaying: true, CurrentTime: 10.0, Timestamp: clock.t.UnixMilli()})
	controller.calls = nil
	clock.advance(5 * time.Second)

	// a pause freezes the exact instant, no latency compensation
	engine.ApplyPause(14.2)

	assert.Equal(t, []string{"pause", "seek:14.2"}, controller.calls)
	assert.InDelta(t, 14.2, engine.Position(), 1e-9)

	clock.advance(time.Minute)
	assert.InDelta(t, 14.2, engine.Position(), 1e-9, "paused position must not advance")
}

func TestApplySyncIsUnconditional(t *testing.T) {
	engine, controller, clock := newTestEngine()

	engine.ApplySync(SyncState{IsPlaying: true, CurrentTime: 10.0, Timestamp: clock.t.UnixMilli()})
	controller.calls = nil

	// 0.2s off, under tolerance, but sync applies regardless
	eventTS := clock.t.UnixMilli()
	engine.ApplySync(SyncState{IsPlaying: true, CurrentTime: 10.2, Timestamp: eventTS})

	require.Equal(t, []string{"seek:10.2", "play"}, controller.calls)
	assert.InDelta(t, 10.2, engine.Position(), 1e-9)
}

func TestApplySyncIsIdempotent(t *testing.T) {
	engine, _, clock := newTestEngine()

	state := SyncState{IsPlaying: true, CurrentTime: 10.0, Timestamp: clock.t.UnixMilli()}

	engine.ApplySync(state)
	first := engine.Position()

	// the same state again in immediate succession must not move anything
	engine.ApplySync(state)
	assert.InDelta(t, first, engine.Position(), 1e-9)

	engine.ApplySync(state)
	assert.InDelta(t, first, engine.Position(), 1e-9)
}

func TestApplySyncCompensatesLatency(t *testing.T) {
	engine, controller, clock := newTestEngine()

	eventTS := clock.t.UnixMilli()
	clock.advance(500 * time.Millisecond)
	engine.ApplySync(SyncState{IsPlaying: false, CurrentTime: 30.0, Timestamp: eventTS})

	assert.Equal(t, []string{"seek:30.5", "pause"}, controller.calls)
	assert.InDelta(t, 30.5, engine.Position(), 1e-9)
}

func TestMissingTimestampCountsAsZeroDelay(t *testing.T) {
	engine, _, clock := newTestEngine()

	engine.ApplyPlay(10.0, 0)
	assert.InDelta(t, 10.0, engine.Position(), 1e-9)

	clock.advance(time.Second)
	assert.InDelta(t, 11.0, engine.Position(), 1e-9)
}

func TestSuppressLocal(t *testing.T) {
	engine, _, clock := newTestEngine()

	assert.False(t, engine.SuppressLocal(), "nothing applied yet")

	engine.ApplyPlay(10.0, clock.t.UnixMilli())
	assert.True(t, engine.SuppressLocal(), "just-applied remote event must arm the guard")

	clock.advance(250 * time.Millisecond)
	assert.False(t, engine.SuppressLocal(), "guard must expire")
}

func TestPositionWhilePlaying(t *testing.T) {
	engine, _, clock := newTestEngine()

	engine.ApplyPlay(100.0, clock.t.UnixMilli())
	clock.advance(90 * time.Second)

	assert.InDelta(t, 190.0, engine.Position(), 1e-9)

	state := engine.State()
	assert.InDelta(t, 100.0, state.BasePosition, 1e-9, "the snapshot base must stay immutable")
	assert.InDelta(t, 190.0, state.PositionAt(clock.t), 1e-9)
}
