// Package playback adapts the opaque rendering widget behind a small
// capability interface. The widget's accepted control schema is unknown, so
// the concrete adapter fires every candidate shape and ignores every error.
package playback

import (
	"encoding/json"
	"time"
)

type Controller interface {
	Play()
	Pause()
	SeekTo(seconds float64)
	ClearProgress()
}

// Sink delivers one raw control frame to the rendering surface. Delivery is
// advisory: the return value is only ever logged away.
type Sink func(frame []byte) error

const clearRetryDelay = 800 * time.Millisecond

// FrameCaster sends each command in several candidate wire shapes, since
// there is no feedback channel to learn which one the widget understands.
type FrameCaster struct {
	sink      Sink
	afterFunc func(time.Duration, func()) *time.Timer
}

func NewFrameCaster(sink Sink) *FrameCaster {
	return &FrameCaster{
		sink:      sink,
		afterFunc: time.AfterFunc,
	}
}

func (f *FrameCaster) Play() {
	f.cast("play", nil)
}

func (f *FrameCaster) Pause() {
	f.cast("pause", nil)
}

func (f *FrameCaster) SeekTo(seconds float64) {
	f.cast("seek", &seconds)
}

// ClearProgress fires once immediately and once more after a delay, to
// accommodate a widget that has not finished initializing yet.
func (f *FrameCaster) ClearProgress() {
	f.cast("clearProgress", nil)
	f.afterFunc(clearRetryDelay, func() {
		f.cast("clearProgress", nil)
	})
}

func (f *FrameCaster) cast(cmd string, value *float64) {
	for _, frame := range candidateFrames(cmd, value) {
		b, err := json.Marshal(frame)
		if err != nil {
			continue
		}

		f.sink(b)
	}
}

// candidateFrames enumerates the message formats observed across embedded
// players.
func candidateFrames(cmd string, value *float64) []map[string]any {
	args := []any{}
	if value != nil {
		args = append(args, *value)
	}

	var v any
	if value != nil {
		v = *value
	}

	return []map[string]any{
		{"event": "command", "func": cmd, "args": args},
		{"event": "command", "func": cmd},
		{"type": "command", "name": cmd, "value": v},
		{"method": cmd, "params": args},
		{"action": cmd, "value": v},
		{"command": cmd, "value": v},
	}
}
