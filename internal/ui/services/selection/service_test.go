package selection

import (
	"maps"
	"slices"
	"strconv"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmgrip/internal/domain"
	"crmgrip/internal/metrics"
)

func TestNormalizeIDSet(t *testing.T) {
	store := NewStore(Options{})
	store.Set([]string{"kept"}, "partners")

	existing := NewIDSet("a")
	tests := []struct {
		name  string
		ids   any
		scope string
		want  []string
	}{
		{"mixed numbers and strings", []any{1, 2, "3"}, "contacts", []string{"1", "2", "3"}},
		{"ints", []int{7, 7, 8}, "contacts", []string{"7", "8"}},
		{"strings", []string{"x", "", "y"}, "contacts", []string{"x", "y"}},
		{"sequence", slices.Values([]string{"b", "a"}), "contacts", []string{"a", "b"}},
		{"map set", map[string]bool{"on": true, "off": false}, "contacts", []string{"on"}},
		{"int sequence", slices.Values([]int{1, 2, 3}), "contacts", []string{"1", "2", "3"}},
		{"int map keys", maps.Keys(map[int]bool{4: true, 5: true}), "contacts", []string{"4", "5"}},
		{"int map set", map[int]bool{6: true, 7: false}, "contacts", []string{"6"}},
		{"channel", closedChan(8, 9), "contacts", []string{"8", "9"}},
		{"id set", existing, "contacts", []string{"a"}},
		{"unrecognized falls back to store", 42, "partners", []string{"kept"}},
		{"nil falls back to store", nil, "partners", []string{"kept"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeIDSet(tt.ids, tt.scope, store).Sorted())
		})
	}

	assert.Empty(t, NormalizeIDSet(struct{}{}, "contacts", nil))
}

func TestStore_NumericAndStringIDsConverge(t *testing.T) {
	store := NewStore(Options{})
	store.Set([]any{1, 2, "3"}, "contacts")

	ids := store.Get("contacts")
	assert.Equal(t, 3, store.Count("contacts"))
	assert.True(t, ids.Has("1"))
	assert.True(t, ids.Has("3"))
	assert.True(t, store.Has("contacts", 2))
	assert.True(t, store.Has("contacts", "2"))
}

func TestStore_GetReturnsCopy(t *testing.T) {
	store := NewStore(Options{})
	input := NewIDSet("1")
	store.Set(input, "contacts")

	input.Add("2")
	got := store.Get("contacts")
	got.Add("3")

	assert.Equal(t, []string{"1"}, store.Get("contacts").Sorted())
}

func TestStore_GetCreatesEmptyScope(t *testing.T) {
	store := NewStore(Options{})
	assert.Empty(t, store.Scopes())
	assert.Equal(t, 0, store.Get("pipeline").Len())
	assert.Equal(t, []string{"pipeline"}, store.Scopes())
}

func TestStore_EmptyScopeIsContacts(t *testing.T) {
	store := NewStore(Options{})
	store.Set([]string{"1"}, "")
	assert.Equal(t, 1, store.Count(domain.ScopeContacts))
	assert.Equal(t, 1, store.Count("  "))
}

func TestStore_ScopesAreIndependent(t *testing.T) {
	store := NewStore(Options{})
	store.Set([]string{"1", "2"}, "contacts")
	store.Set([]string{"1"}, "partners")
	store.Clear("contacts")

	assert.Equal(t, 0, store.Count("contacts"))
	assert.Equal(t, 1, store.Count("partners"))
}

func TestStore_SubscribersNotifiedSynchronously(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	store := NewStore(Options{Metrics: m})

	var got []Snapshot
	unsubscribe := store.Subscribe(func(s Snapshot) { got = append(got, s) })
	store.Subscribe(func(Snapshot) { panic("listener") })
	var last Snapshot
	store.Subscribe(func(s Snapshot) { last = s })

	require.NotPanics(t, func() { store.Set([]string{"a", "b"}, "partners") })
	require.Len(t, got, 1)
	assert.Equal(t, "partners", got[0].Scope)
	assert.Equal(t, 2, got[0].Count)
	assert.Equal(t, 2, last.Count)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.SelectionSize.WithLabelValues("partners")))

	// Mutating a snapshot never reaches the store
	got[0].IDs.Add("c")
	assert.Equal(t, 2, store.Count("partners"))

	unsubscribe()
	unsubscribe()
	store.Clear("partners")
	assert.Len(t, got, 1)
	assert.Equal(t, 0, last.Count)
}

func TestStore_Toggle(t *testing.T) {
	store := NewStore(Options{})
	assert.True(t, store.Toggle(7, "contacts"))
	assert.True(t, store.Has("contacts", "7"))
	assert.False(t, store.Toggle("7", "contacts"))
	assert.Equal(t, 0, store.Count("contacts"))
	assert.False(t, store.Toggle(nil, "contacts"))
}

func TestStore_Prune(t *testing.T) {
	store := NewStore(Options{})
	store.Set([]string{"1", "2", "3"}, "contacts")

	notified := 0
	store.Subscribe(func(Snapshot) { notified++ })

	assert.False(t, store.Prune("contacts", "9"))
	assert.Equal(t, 0, notified)
	assert.True(t, store.Prune("contacts", "1", "3", "9"))
	assert.Equal(t, 1, notified)
	assert.Equal(t, []string{"2"}, store.Get("contacts").Sorted())
}

func closedChan(ids ...int) <-chan int {
	ch := make(chan int, len(ids))
	for _, id := range ids {
		ch <- id
	}
	close(ch)
	return ch
}

func TestStore_SetWithIntSequence(t *testing.T) {
	store := NewStore(Options{})
	store.Set(slices.Values([]int{1, 2, 3}), "contacts")
	store.Set(maps.Keys(map[int]bool{4: true, 5: true}), "partners")

	assert.Equal(t, 3, store.Count("contacts"))
	assert.Equal(t, 2, store.Count("partners"))
}

func TestStore_ConcurrentTogglesAreNotLost(t *testing.T) {
	store := NewStore(Options{})
	const n = 2000

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Toggle(strconv.Itoa(i), "contacts")
		}()
	}
	wg.Wait()

	assert.Equal(t, n, store.Count("contacts"))

	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Prune("contacts", strconv.Itoa(i))
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, store.Count("contacts"))
}
