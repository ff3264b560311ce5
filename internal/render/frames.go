package render

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultFrameInterval approximates one display frame at 60Hz
const DefaultFrameInterval = 16 * time.Millisecond

// FrameScheduler runs fn once at the next frame boundary
type FrameScheduler interface {
	RequestFrame(fn func())
}

// TimerFrames is the fallback frame source: a one-shot timer per request
type TimerFrames struct {
	clock    clockwork.Clock
	interval time.Duration
}

// NewTimerFrames creates a timer based frame scheduler
func NewTimerFrames(clock clockwork.Clock, interval time.Duration) *TimerFrames {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &TimerFrames{clock: clock, interval: interval}
}

func (f *TimerFrames) RequestFrame(fn func()) {
	f.clock.AfterFunc(f.interval, fn)
}

// FrameFunc adapts a plain function to FrameScheduler
type FrameFunc func(fn func())

func (f FrameFunc) RequestFrame(fn func()) { f(fn) }
