package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmgrip/internal/domain"
	"crmgrip/internal/metrics"
)

type fakeRender struct{ rendering atomic.Bool }

func (f *fakeRender) IsRendering() bool { return f.rendering.Load() }

type recorder struct {
	mu     sync.Mutex
	events []DataChanged
}

func (r *recorder) handle(ev DataChanged) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []DataChanged {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]DataChanged(nil), r.events...)
}

func TestBus_InstallIsIdempotent(t *testing.T) {
	b := New(Options{})

	first := b.Install()
	second := b.Install()
	require.Same(t, first, second)
	assert.True(t, b.Installed())

	var modern, legacy recorder
	b.Subscribe(modern.handle)
	first.Listen(legacy.handle)

	b.Emit(DataChanged{Scope: "contacts", Source: "editor"})

	assert.Len(t, modern.all(), 1)
	assert.Len(t, legacy.all(), 1)
}

func TestBus_LegacyAliasSharesDispatch(t *testing.T) {
	b := New(Options{})
	var modern, legacy recorder
	b.Subscribe(modern.handle)
	bridge := b.Install()
	bridge.Listen(legacy.handle)
	b.Install()

	bridge.DispatchAppDataChanged("import")

	require.Len(t, modern.all(), 1)
	require.Len(t, legacy.all(), 1)
	assert.Equal(t, "import", modern.all()[0].Reason)
	assert.Equal(t, uint64(1), b.Meter().Dispatched)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		detail any
		want   DataChanged
	}{
		{"string becomes reason", "saved", DataChanged{Reason: "saved"}},
		{"nil", nil, DataChanged{}},
		{"number", 42, DataChanged{}},
		{"nil pointer", (*DataChanged)(nil), DataChanged{}},
		{"struct", DataChanged{Scope: "partners", Source: "merge"}, DataChanged{Scope: "partners", Source: "merge"}},
		{"map", map[string]any{"scope": "pipeline", "source": "kanban", "count": "3"},
			DataChanged{Scope: "pipeline", Source: "kanban", Count: 3}},
		{"string map", map[string]string{"scope": "contacts", "reason": "bulk"},
			DataChanged{Scope: "contacts", Reason: "bulk"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.detail))
		})
	}
}

func TestBus_SuppressesWhileRendering(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	b := New(Options{Metrics: m})
	rs := &fakeRender{}
	b.SetRenderState(rs)

	var got recorder
	b.Subscribe(got.handle)

	rs.rendering.Store(true)
	b.Emit(DataChanged{Source: "inline-edit", Reason: "during render"})
	assert.Empty(t, got.all())

	rs.rendering.Store(false)
	b.Emit(DataChanged{Source: "import", Reason: "after render"})
	require.Len(t, got.all(), 1)
	assert.Equal(t, "after render", got.all()[0].Reason)

	meter := b.Meter()
	assert.Equal(t, uint64(1), meter.Suppressed)
	assert.Equal(t, uint64(1), meter.Dispatched)
	assert.Equal(t, uint64(1), meter.Count)
	assert.Equal(t, "import", meter.LastSource)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Suppressed))
}

func TestBus_HandlerPanicIsContained(t *testing.T) {
	b := New(Options{})
	var after recorder
	b.Subscribe(func(DataChanged) { panic("boom") })
	b.Subscribe(after.handle)

	assert.NotPanics(t, func() { b.Emit("x") })
	assert.Len(t, after.all(), 1)
}

func TestBus_Unsubscribe(t *testing.T) {
	b := New(Options{})
	var got recorder
	unsubscribe := b.Subscribe(got.handle)
	b.Emit("one")
	unsubscribe()
	unsubscribe()
	b.Emit("two")
	assert.Len(t, got.all(), 1)
}

func TestBus_MeterTracksSources(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	b := New(Options{Metrics: m})

	b.Emit(DataChanged{Source: "editor"})
	b.Emit(DataChanged{Source: "import"})
	b.Emit(DataChanged{Source: "import"})

	meter := b.Meter()
	assert.Equal(t, uint64(3), meter.Count)
	assert.Equal(t, "import", meter.LastSource)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.DataChanged.WithLabelValues("import")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DataChanged.WithLabelValues("editor")))
}

func TestBus_DebounceKeepsDestructiveEvent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := New(Options{Debounce: 50 * time.Millisecond, Clock: clock})
	var got recorder
	b.Subscribe(got.handle)

	b.Emit(DataChanged{Scope: "contacts", Source: "editor"})
	b.Emit(DataChanged{Scope: "contacts", Source: domain.SourceActionBarDelete})
	b.Emit(DataChanged{Scope: "contacts", Source: "editor"})
	assert.Empty(t, got.all())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(50 * time.Millisecond)

	require.Eventually(t, func() bool { return len(got.all()) == 1 }, time.Second, time.Millisecond)
	ev := got.all()[0]
	assert.Equal(t, domain.SourceActionBarDelete, ev.Source)
	assert.Equal(t, 3, ev.BatchSize)
	assert.Equal(t, domain.ReasonCoalesced, ev.Reason)

	meter := b.Meter()
	assert.Equal(t, uint64(3), meter.Count)
	assert.Equal(t, uint64(1), meter.Dispatched)
	assert.Equal(t, "editor", meter.LastSource)
}

func TestBus_FlushDrainsDebounceQueue(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := New(Options{Debounce: time.Second, Clock: clock})
	var got recorder
	b.Subscribe(got.handle)

	b.Emit("only")
	b.Flush()

	require.Len(t, got.all(), 1)
	assert.Equal(t, "only", got.all()[0].Reason)
	assert.Equal(t, 1, got.all()[0].BatchSize)
}

func TestBus_DebouncedBatchWaitsForRenderToFinish(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := New(Options{Debounce: 50 * time.Millisecond, Clock: clock})
	rs := &fakeRender{}
	b.SetRenderState(rs)
	var got recorder
	b.Subscribe(got.handle)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	b.Emit(DataChanged{Scope: "contacts", Source: "editor"})
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	// The window closes while a pass is running
	rs.rendering.Store(true)
	clock.Advance(50 * time.Millisecond)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Empty(t, got.all())
	assert.Equal(t, uint64(0), b.Meter().Dispatched)

	rs.rendering.Store(false)
	clock.Advance(50 * time.Millisecond)
	require.Eventually(t, func() bool { return len(got.all()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, "editor", got.all()[0].Source)
	assert.Equal(t, uint64(0), b.Meter().Suppressed)
}
