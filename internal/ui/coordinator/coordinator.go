package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"crmgrip/internal/domain"
	"crmgrip/internal/eventbus"
	"crmgrip/internal/metrics"
	"crmgrip/internal/render"
	"crmgrip/internal/ui/services/actionbar"
	"crmgrip/internal/ui/services/selection"
)

// Notifier shows short user-facing messages (a toast). It is optional.
type Notifier interface {
	Notify(msg string)
}

// Options configures a Core
type Options struct {
	RenderTimeout time.Duration
	FrameInterval time.Duration
	Debounce      time.Duration
	Frames        render.FrameScheduler
	Clock         clockwork.Clock
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
	Notifier      Notifier
	// Events receives selection and render notifications; may be nil
	Events func(domain.DomainEvent)
}

// Core owns one bus, one render guard and one selection store and keeps
// them wired together. Views receive the Core at startup.
type Core struct {
	Bus       *eventbus.Bus
	Guard     *render.Guard
	Selection *selection.Store
	Bridge    *eventbus.LegacyBridge

	mu     sync.Mutex
	scope  string
	bar    actionbar.Element
	unsubs []func()

	notifier Notifier
	events   func(domain.DomainEvent)
	log      *slog.Logger
}

// New creates a Core and wires its services
func New(opts Options) *Core {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Frames == nil {
		interval := opts.FrameInterval
		if interval <= 0 {
			interval = render.DefaultFrameInterval
		}
		opts.Frames = render.NewTimerFrames(opts.Clock, interval)
	}

	c := &Core{
		Bus: eventbus.New(eventbus.Options{
			Debounce: opts.Debounce,
			Clock:    opts.Clock,
			Logger:   opts.Logger,
			Metrics:  opts.Metrics,
		}),
		Guard: render.New(render.Options{
			Timeout: opts.RenderTimeout,
			Frames:  opts.Frames,
			Clock:   opts.Clock,
			Logger:  opts.Logger,
			Metrics: opts.Metrics,
		}),
		Selection: selection.NewStore(selection.Options{
			Logger:  opts.Logger,
			Metrics: opts.Metrics,
		}),
		scope:    domain.ScopeContacts,
		notifier: opts.Notifier,
		events:   opts.Events,
		log:      opts.Logger.With("component", "coordinator"),
	}

	c.wireServices()
	c.subscribeToEvents()
	return c
}

// wireServices connects the bus, the guard and the store
func (c *Core) wireServices() {
	c.Bus.SetRenderState(c.Guard)
	c.Bridge = c.Bus.Install()

	// Every accepted mutation asks for one coalesced pass
	c.unsubs = append(c.unsubs, c.Bus.Subscribe(func(ev eventbus.DataChanged) {
		c.Guard.RequestRender()
	}))

	c.Guard.RegisterHook("coordinator:action-bar", c.syncActionBar)
	c.Guard.RegisterHook("coordinator:render-completed", func() {
		c.publish(domain.RenderCompletedEvent{Pass: c.Guard.Stats().Passes})
	})
}

// subscribeToEvents sets up reactions to store and bus changes
func (c *Core) subscribeToEvents() {
	// The bar follows the store synchronously, no pass needed
	c.unsubs = append(c.unsubs, c.Selection.Subscribe(func(s selection.Snapshot) {
		c.mu.Lock()
		active, bar := c.scope, c.bar
		c.mu.Unlock()
		if s.Scope == active {
			actionbar.ApplyScoped(bar, s.Scope, s.Count)
		}
		c.publish(domain.SelectionChangedEvent{Scope: s.Scope, Count: s.Count})
	}))

	c.unsubs = append(c.unsubs, c.Bus.Subscribe(func(ev eventbus.DataChanged) {
		if !ev.IsDestructive() {
			return
		}
		n := ev.Count
		if n <= 0 {
			n = ev.BatchSize
		}
		c.Notify(fmt.Sprintf("Deleted %d %s", n, plural(n, "record")))
	}))
}

// EmitDataChanged signals a data mutation
func (c *Core) EmitDataChanged(detail any) {
	c.Bus.Emit(detail)
}

// RequestRender arms a coalesced render pass
func (c *Core) RequestRender() {
	c.Guard.RequestRender()
}

// SubscribeRender registers a render subscriber under id
func (c *Core) SubscribeRender(id string, fn render.RenderFunc) bool {
	return c.Guard.Subscribe(id, fn)
}

func (c *Core) UnsubscribeRender(id string) {
	c.Guard.Unsubscribe(id)
}

// RegisterHook registers an after-render hook under id
func (c *Core) RegisterHook(id string, fn render.HookFunc) bool {
	return c.Guard.RegisterHook(id, fn)
}

func (c *Core) UnregisterHook(id string) {
	c.Guard.UnregisterHook(id)
}

func (c *Core) IsRendering() bool {
	return c.Guard.IsRendering()
}

// ApplyActionBarState writes the projection for count onto el
func (c *Core) ApplyActionBarState(el actionbar.Element, count int) {
	actionbar.Apply(el, count)
}

// ApplySelectAll runs the header checkbox policy against scope
func (c *Core) ApplySelectAll(header selection.Checkbox, scope string, entries []selection.VisibleRowEntry) selection.Outcome {
	return selection.ApplySelectAll(header, c.Selection, scope, entries)
}

// AttachActionBar binds the bar that mirrors the active scope
func (c *Core) AttachActionBar(el actionbar.Element) {
	c.mu.Lock()
	c.bar = el
	c.mu.Unlock()
	c.syncActionBar()
}

// Scope returns the active scope
func (c *Core) Scope() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scope
}

// Navigate switches the active scope. The scope being left is cleared so a
// hidden selection never drives bulk actions.
func (c *Core) Navigate(scope string) {
	scope = domain.NormalizeScope(scope)
	c.mu.Lock()
	prev := c.scope
	c.scope = scope
	c.mu.Unlock()

	if prev != scope && c.Selection.Count(prev) > 0 {
		c.log.Debug("clearing scope on navigation", "from", prev, "to", scope)
		c.Selection.Clear(prev)
	}
	c.syncActionBar()
}

// Projection returns the action bar state of scope
func (c *Core) Projection(scope string) actionbar.Projection {
	return actionbar.Project(scope, c.Selection.Count(scope))
}

// Notify forwards msg to the notifier when one is configured
func (c *Core) Notify(msg string) {
	if c.notifier == nil {
		c.log.Debug("notification dropped", "message", msg)
		return
	}
	c.notifier.Notify(msg)
}

// Flush drains pending bus signals and runs a pass right away
func (c *Core) Flush(ctx context.Context) render.PassResult {
	c.Bus.Flush()
	return c.Guard.Flush(ctx)
}

// Close detaches every internal subscription
func (c *Core) Close() {
	c.mu.Lock()
	unsubs := c.unsubs
	c.unsubs = nil
	c.mu.Unlock()
	for _, unsubscribe := range unsubs {
		unsubscribe()
	}
	c.Guard.UnregisterHook("coordinator:action-bar")
	c.Guard.UnregisterHook("coordinator:render-completed")
}

func (c *Core) syncActionBar() {
	c.mu.Lock()
	scope, bar := c.scope, c.bar
	c.mu.Unlock()
	if bar == nil {
		return
	}
	actionbar.ApplyScoped(bar, scope, c.Selection.Count(scope))
}

func (c *Core) publish(ev domain.DomainEvent) {
	if c.events != nil {
		c.events(ev)
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
