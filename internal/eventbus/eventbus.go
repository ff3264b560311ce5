package eventbus

import (
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"crmgrip/internal/domain"
	"crmgrip/internal/metrics"
)

// Re-export domain types for convenience
type DataChanged = domain.DataChanged

// EventHandler is a function that handles data changed events
type EventHandler func(DataChanged)

// RenderState reports whether a render pass is in flight
type RenderState interface {
	IsRendering() bool
}

// Meter is the observability snapshot of the bus. Count and LastSource only
// cover accepted signals; signals dropped while rendering are counted in
// Suppressed alone and never change LastSource.
type Meter struct {
	Count      uint64 // signals accepted, including coalesced ones
	Dispatched uint64 // events actually delivered to subscribers
	Suppressed uint64 // signals dropped while rendering
	LastSource string
}

// Options configures a Bus
type Options struct {
	// Debounce merges emits landing inside the window into one dispatch.
	// Zero dispatches synchronously.
	Debounce time.Duration
	Clock    clockwork.Clock
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

type installState uint8

const (
	notInstalled installState = iota
	installed
)

// Bus is the single dispatch path for data changed signals
type Bus struct {
	mu       sync.RWMutex
	handlers map[uint64]EventHandler
	order    []uint64
	nextID   uint64
	state    installState
	legacy   *LegacyBridge
	render   RenderState

	queueMu sync.Mutex
	queue   []DataChanged
	timer   clockwork.Timer

	meterMu sync.Mutex
	meter   Meter

	debounce time.Duration
	clock    clockwork.Clock
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// New creates a new bus
func New(opts Options) *Bus {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Bus{
		handlers: make(map[uint64]EventHandler),
		debounce: opts.Debounce,
		clock:    opts.Clock,
		log:      opts.Logger.With("component", "eventbus"),
		metrics:  opts.Metrics,
	}
}

// SetRenderState wires the render guard used to suppress render-triggered emits
func (b *Bus) SetRenderState(rs RenderState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.render = rs
}

// Subscribe registers a handler and returns its unsubscribe function
func (b *Bus) Subscribe(handler EventHandler) func() {
	if handler == nil {
		return func() {}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addLocked(handler)
}

func (b *Bus) addLocked(handler EventHandler) func() {
	b.nextID++
	id := b.nextID
	b.handlers[id] = handler
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Install makes the bus the canonical dispatch path and binds the legacy
// bridge. Only the first call does work; later calls return the same bridge.
func (b *Bus) Install() *LegacyBridge {
	b.mu.RLock()
	if b.state == installed {
		bridge := b.legacy
		b.mu.RUnlock()
		return bridge
	}
	b.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == installed {
		return b.legacy
	}
	bridge := &LegacyBridge{bus: b, listeners: make(map[uint64]EventHandler)}
	b.addLocked(bridge.forward)
	b.legacy = bridge
	b.state = installed
	b.log.Debug("data changed bus installed")
	return bridge
}

// Installed reports whether Install has run
func (b *Bus) Installed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state == installed
}

// Emit signals a data mutation. It never panics.
func (b *Bus) Emit(detail any) {
	b.Install()
	payload := Normalize(detail)

	if b.rendering() {
		b.meterMu.Lock()
		b.meter.Suppressed++
		b.meterMu.Unlock()
		b.metrics.ObserveSuppressed()
		b.log.Debug("data changed suppressed during render",
			"scope", payload.Scope, "source", payload.Source)
		return
	}

	if b.debounce <= 0 {
		b.dispatch(payload, 1)
		return
	}

	b.queueMu.Lock()
	defer b.queueMu.Unlock()
	b.queue = append(b.queue, payload)
	if b.timer == nil {
		b.timer = b.clock.AfterFunc(b.debounce, b.flushQueue)
	}
}

// Flush dispatches any debounced signals immediately
func (b *Bus) Flush() {
	b.queueMu.Lock()
	if b.timer != nil {
		b.timer.Stop()
	}
	b.queueMu.Unlock()
	b.flushQueue()
}

// flushQueue dispatches the pending batch. A batch that comes due while a
// pass is running is held and retried one window later, so a render never
// schedules another from inside itself.
func (b *Bus) flushQueue() {
	b.queueMu.Lock()
	b.timer = nil
	if len(b.queue) > 0 && b.rendering() {
		b.timer = b.clock.AfterFunc(b.debounce, b.flushQueue)
		b.queueMu.Unlock()
		b.log.Debug("debounced batch deferred during render", "pending", len(b.queue))
		return
	}
	queue := b.queue
	b.queue = nil
	b.queueMu.Unlock()

	if len(queue) == 0 {
		return
	}
	ev, lastSource := coalesce(queue)
	b.metrics.ObserveCoalesced(len(queue) - 1)
	b.dispatchAs(ev, len(queue), lastSource)
}

func (b *Bus) rendering() bool {
	b.mu.RLock()
	rs := b.render
	b.mu.RUnlock()
	return rs != nil && rs.IsRendering()
}

// coalesce collapses a debounce window into one event. The first destructive
// event wins over later ones so deletes are never swallowed.
func coalesce(queue []DataChanged) (DataChanged, string) {
	last := queue[len(queue)-1]
	base := last
	for _, d := range queue {
		if d.IsDestructive() {
			base = d
			break
		}
	}
	base.BatchSize = len(queue)
	if base.Reason == "" && len(queue) > 1 {
		base.Reason = domain.ReasonCoalesced
	}
	return base, last.Source
}

func (b *Bus) dispatch(ev DataChanged, n int) {
	b.dispatchAs(ev, n, ev.Source)
}

func (b *Bus) dispatchAs(ev DataChanged, n int, lastSource string) {
	b.meterMu.Lock()
	b.meter.Count += uint64(n)
	b.meter.Dispatched++
	b.meter.LastSource = lastSource
	b.meterMu.Unlock()
	b.metrics.ObserveDataChanged(ev.Source, n)

	// Copy handlers so none run under the lock
	b.mu.RLock()
	handlers := make([]EventHandler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.safeCall(h, ev)
	}
}

func (b *Bus) safeCall(h EventHandler, ev DataChanged) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Debug("data changed handler panic",
				"scope", ev.Scope, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	h(ev)
}

// Meter returns a copy of the bus counters
func (b *Bus) Meter() Meter {
	b.meterMu.Lock()
	defer b.meterMu.Unlock()
	return b.meter
}

// LegacyBridge is the backward compatible entry point. Everything sent
// through it goes into the same dispatch as Bus.Emit.
type LegacyBridge struct {
	bus       *Bus
	mu        sync.RWMutex
	listeners map[uint64]EventHandler
	nextID    uint64
}

// DispatchAppDataChanged is the legacy emit alias
func (l *LegacyBridge) DispatchAppDataChanged(detail any) {
	l.bus.Emit(detail)
}

// Listen registers a legacy listener
func (l *LegacyBridge) Listen(fn EventHandler) func() {
	if fn == nil {
		return func() {}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	id := l.nextID
	l.listeners[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.listeners, id)
	}
}

func (l *LegacyBridge) forward(ev DataChanged) {
	l.mu.RLock()
	listeners := make([]EventHandler, 0, len(l.listeners))
	for _, fn := range l.listeners {
		listeners = append(listeners, fn)
	}
	l.mu.RUnlock()
	for _, fn := range listeners {
		l.bus.safeCall(fn, ev)
	}
}
