package coordinator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmgrip/internal/domain"
	"crmgrip/internal/render"
	"crmgrip/internal/ui/services/actionbar"
	"crmgrip/internal/ui/services/selection"
)

type queuedFrames struct {
	mu      sync.Mutex
	pending []func()
}

func (f *queuedFrames) RequestFrame(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, fn)
}

func (f *queuedFrames) Run() int {
	f.mu.Lock()
	pending := f.pending
	f.pending = nil
	f.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
	return len(pending)
}

type toasts struct {
	mu       sync.Mutex
	messages []string
}

func (t *toasts) Notify(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msg)
}

func newTestCore(t *testing.T, opts Options) (*Core, *queuedFrames) {
	t.Helper()
	frames := &queuedFrames{}
	opts.Frames = frames
	c := New(opts)
	t.Cleanup(c.Close)
	return c, frames
}

func visible(ids ...string) []selection.VisibleRowEntry {
	out := make([]selection.VisibleRowEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, selection.VisibleRowEntry{ID: id, Visible: true, Checkbox: &selection.CheckboxState{}})
	}
	return out
}

func TestCore_SelectThenSelectAllRoundTrip(t *testing.T) {
	c, _ := newTestCore(t, Options{})
	bar := actionbar.NewNode()
	c.AttachActionBar(bar)
	assert.False(t, bar.Visible())

	c.Selection.Toggle("7", "contacts")
	assert.Equal(t, 1, c.Selection.Count("contacts"))
	p := c.Projection("contacts")
	assert.True(t, p.Visible)
	assert.Equal(t, 1, p.Count)
	assert.True(t, bar.Visible())
	assert.Equal(t, "1", bar.Count())

	header := &selection.CheckboxState{}
	rows := visible("7", "8", "9")
	out := c.ApplySelectAll(header, "contacts", rows)
	assert.Equal(t, selection.ActionSelectedVisible, out.Action)
	assert.Equal(t, 3, c.Selection.Count("contacts"))
	assert.Equal(t, "3", bar.Count())

	out = c.ApplySelectAll(header, "contacts", rows)
	assert.Equal(t, selection.ActionClearedVisible, out.Action)
	assert.Equal(t, 0, c.Selection.Count("contacts"))
	assert.False(t, c.Projection("contacts").Visible)
	assert.False(t, bar.Visible())
	assert.Equal(t, "0", bar.Count())
}

func TestCore_MutationSchedulesOnePass(t *testing.T) {
	var events []domain.DomainEvent
	c, frames := newTestCore(t, Options{Events: func(ev domain.DomainEvent) { events = append(events, ev) }})

	var runs atomic.Int32
	require.True(t, c.SubscribeRender("list", func(context.Context) error {
		runs.Add(1)
		// A write made while painting must not loop back into another pass
		c.EmitDataChanged(domain.DataChanged{Scope: "contacts", Source: "list"})
		return nil
	}))

	c.EmitDataChanged("first")
	c.Bridge.DispatchAppDataChanged("legacy")
	c.RequestRender()

	assert.Equal(t, 1, frames.Run())
	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, 0, frames.Run())
	assert.Equal(t, uint64(1), c.Bus.Meter().Suppressed)

	require.NotEmpty(t, events)
	last, ok := events[len(events)-1].(domain.RenderCompletedEvent)
	require.True(t, ok)
	assert.Equal(t, uint64(1), last.Pass)
}

func TestCore_NavigateClearsPreviousScope(t *testing.T) {
	c, _ := newTestCore(t, Options{})
	bar := actionbar.NewNode()
	c.AttachActionBar(bar)

	c.Selection.Set([]string{"1", "2"}, "contacts")
	c.Selection.Set([]string{"p1"}, "partners")
	assert.Equal(t, "2", bar.Count())

	c.Navigate("partners")
	assert.Equal(t, "partners", c.Scope())
	assert.Equal(t, 0, c.Selection.Count("contacts"))
	assert.Equal(t, "1", bar.Count())
	kind, _ := bar.Attr(actionbar.AttrSelectionType)
	assert.Equal(t, "partners", kind)

	// Only the active scope drives the bar
	c.Selection.Set([]string{"x", "y", "z"}, "pipeline")
	assert.Equal(t, "1", bar.Count())

	c.Navigate("")
	assert.Equal(t, domain.ScopeContacts, c.Scope())
}

func TestCore_NotifierIsOptional(t *testing.T) {
	c, _ := newTestCore(t, Options{})
	assert.NotPanics(t, func() {
		c.EmitDataChanged(domain.DataChanged{Source: domain.SourceActionBarDelete, Count: 2})
	})

	sink := &toasts{}
	c2, _ := newTestCore(t, Options{Notifier: sink})
	c2.EmitDataChanged(domain.DataChanged{Source: domain.SourceActionBarDelete, Count: 2})
	c2.EmitDataChanged(domain.DataChanged{Source: "editor"})
	c2.EmitDataChanged(domain.DataChanged{Action: domain.ActionSoftDelete, Count: 1})
	assert.Equal(t, []string{"Deleted 2 records", "Deleted 1 record"}, sink.messages)
}

func TestCore_FlushRunsPassImmediately(t *testing.T) {
	c, frames := newTestCore(t, Options{})
	var runs atomic.Int32
	c.SubscribeRender("list", func(context.Context) error {
		runs.Add(1)
		return nil
	})

	c.RequestRender()
	result := c.Flush(context.Background())
	assert.Equal(t, 1, result.Subscribers)
	assert.Equal(t, int32(1), runs.Load())
	assert.False(t, c.IsRendering())

	// The frame armed before the manual flush still fires
	frames.Run()
	assert.Equal(t, int32(2), runs.Load())
	assert.IsType(t, render.PassResult{}, result)
}

func TestCore_CloseDetachesWiring(t *testing.T) {
	c, frames := newTestCore(t, Options{})
	c.Close()

	c.EmitDataChanged("after close")
	assert.Equal(t, 0, frames.Run())
	assert.Equal(t, 0, c.Guard.HookCount())
}
