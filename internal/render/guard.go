// Package render coalesces render requests into frame-aligned passes and
// keeps one stalled or failing subscriber from holding up the others.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"crmgrip/internal/metrics"
)

// DefaultTimeout is the per-subscriber ceiling of a pass
const DefaultTimeout = 500 * time.Millisecond

// RenderFunc repaints one view. It may block; the pass stops waiting for it
// after the guard timeout and cancels ctx.
type RenderFunc func(ctx context.Context) error

// HookFunc runs after every subscriber of a pass settled or timed out
type HookFunc func()

// Options configures a Guard
type Options struct {
	Timeout time.Duration
	Frames  FrameScheduler
	Clock   clockwork.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// PassResult describes one flushed pass
type PassResult struct {
	Pass        uint64
	Subscribers int
	TimedOut    int
	Failed      int
	HookFailed  int
	Duration    time.Duration
}

// Stats are cumulative counters over all passes
type Stats struct {
	Requests     uint64
	Passes       uint64
	TimedOut     uint64
	Failed       uint64
	HookFailed   uint64
	LastDuration time.Duration
}

type outcome int

const (
	settled outcome = iota
	failed
	timedOut
)

// Guard is the render scheduler. One Guard serves the whole process.
type Guard struct {
	mu          sync.Mutex
	subscribers map[string]RenderFunc
	hooks       map[string]HookFunc
	scheduled   bool
	stats       Stats

	depth atomic.Int32

	timeout time.Duration
	frames  FrameScheduler
	clock   clockwork.Clock
	log     *slog.Logger
	metrics *metrics.Metrics
}

// New creates a guard. Missing options get the real clock, timer frames and
// the 500ms timeout.
func New(opts Options) *Guard {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Frames == nil {
		opts.Frames = NewTimerFrames(opts.Clock, DefaultFrameInterval)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Guard{
		subscribers: make(map[string]RenderFunc),
		hooks:       make(map[string]HookFunc),
		timeout:     opts.Timeout,
		frames:      opts.Frames,
		clock:       opts.Clock,
		log:         opts.Logger.With("component", "render"),
		metrics:     opts.Metrics,
	}
}

// Enter marks the start of a render
func (g *Guard) Enter() {
	g.depth.Add(1)
}

// Exit marks the end of a render. Depth never drops below zero.
func (g *Guard) Exit() {
	for {
		d := g.depth.Load()
		if d <= 0 {
			return
		}
		if g.depth.CompareAndSwap(d, d-1) {
			return
		}
	}
}

// IsRendering reports whether a pass is in flight
func (g *Guard) IsRendering() bool {
	return g.depth.Load() > 0
}

// Depth returns the current reentrancy depth
func (g *Guard) Depth() int {
	return int(g.depth.Load())
}

// Scheduled reports whether a pass is armed but not yet flushed
func (g *Guard) Scheduled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scheduled
}

// RequestRender arms one pass on the next frame. Calls made while a pass is
// already armed are merged into it.
func (g *Guard) RequestRender() {
	g.mu.Lock()
	g.stats.Requests++
	if g.scheduled {
		g.mu.Unlock()
		return
	}
	g.scheduled = true
	g.mu.Unlock()

	g.frames.RequestFrame(func() {
		g.Flush(context.Background())
	})
}

// Subscribe registers a render function under id. Returns false when id is
// already registered; the first registration is kept.
func (g *Guard) Subscribe(id string, fn RenderFunc) bool {
	if fn == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.subscribers[id]; ok {
		return false
	}
	g.subscribers[id] = fn
	return true
}

func (g *Guard) Unsubscribe(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.subscribers, id)
}

// RegisterHook adds an after-render hook; idempotent per id
func (g *Guard) RegisterHook(id string, fn HookFunc) bool {
	if fn == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.hooks[id]; ok {
		return false
	}
	g.hooks[id] = fn
	return true
}

func (g *Guard) UnregisterHook(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.hooks, id)
}

func (g *Guard) SubscriberCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subscribers)
}

func (g *Guard) HookCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.hooks)
}

// Stats returns a copy of the cumulative counters
func (g *Guard) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats
}

// Reset drops every registration and zeroes the state
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subscribers = make(map[string]RenderFunc)
	g.hooks = make(map[string]HookFunc)
	g.scheduled = false
	g.stats = Stats{}
	g.depth.Store(0)
}

// Flush runs one pass: every subscriber raced against the timeout, then
// every hook. Nothing escapes it; depth is restored even on panic.
func (g *Guard) Flush(ctx context.Context) (result PassResult) {
	g.mu.Lock()
	g.scheduled = false
	g.stats.Passes++
	result.Pass = g.stats.Passes
	subs := snapshot(g.subscribers)
	hooks := snapshot(g.hooks)
	g.mu.Unlock()

	start := g.clock.Now()
	g.Enter()
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("render pass panic", "pass", result.Pass, "panic", r)
		}
		result.Duration = g.clock.Since(start)
		g.record(result)
		g.Exit()
	}()

	result.Subscribers = len(subs)
	var timeouts, failures atomic.Int32
	var group errgroup.Group
	for _, s := range subs {
		group.Go(func() error {
			switch g.race(ctx, s.id, s.fn) {
			case timedOut:
				timeouts.Add(1)
			case failed:
				failures.Add(1)
			}
			// Failures are contained per subscriber and never cancel siblings.
			return nil
		})
	}
	_ = group.Wait()
	result.TimedOut = int(timeouts.Load())
	result.Failed = int(failures.Load())

	for _, h := range hooks {
		if !g.runHook(h.id, h.fn) {
			result.HookFailed++
		}
	}
	return result
}

// race runs fn on its own goroutine and waits for it or the timeout,
// whichever comes first. A late result is dropped.
func (g *Guard) race(ctx context.Context, id string, fn RenderFunc) outcome {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("subscriber panic: %v\n%s", r, debug.Stack())
			}
		}()
		done <- fn(runCtx)
	}()

	timer := g.clock.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			g.log.Warn("render subscriber failed", "subscriber", id, "error", err)
			return failed
		}
		return settled
	case <-timer.Chan():
		g.log.Debug("render subscriber timed out", "subscriber", id, "timeout", g.timeout)
		return timedOut
	case <-ctx.Done():
		g.log.Debug("render subscriber abandoned", "subscriber", id, "error", ctx.Err())
		return timedOut
	}
}

func (g *Guard) runHook(id string, fn HookFunc) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Debug("after-render hook failed", "hook", id, "panic", r)
			ok = false
		}
	}()
	fn()
	return true
}

func (g *Guard) record(r PassResult) {
	g.mu.Lock()
	g.stats.TimedOut += uint64(r.TimedOut)
	g.stats.Failed += uint64(r.Failed)
	g.stats.HookFailed += uint64(r.HookFailed)
	g.stats.LastDuration = r.Duration
	g.mu.Unlock()
	g.metrics.ObservePass(r.Duration.Seconds(), r.TimedOut, r.Failed, r.HookFailed)
}

type entry[F any] struct {
	id string
	fn F
}

// snapshot copies a registration map so the pass runs without the lock.
// Sorted for stable logs only; no ordering is promised to subscribers.
func snapshot[F any](m map[string]F) []entry[F] {
	out := make([]entry[F], 0, len(m))
	for id, fn := range m {
		out = append(out, entry[F]{id: id, fn: fn})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
