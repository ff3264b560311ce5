package selection

import (
	"fmt"
	"iter"
	"log/slog"
	"reflect"
	"runtime/debug"
	"slices"
	"sort"
	"sync"

	"github.com/spf13/cast"

	"crmgrip/internal/domain"
	"crmgrip/internal/metrics"
)

// Options configures a Store
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Store holds one id set per scope
type Store struct {
	mu     sync.RWMutex
	scopes map[string]IDSet

	lmu       sync.RWMutex
	listeners map[uint64]Listener
	order     []uint64
	nextID    uint64

	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewStore creates an empty selection store
func NewStore(opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store{
		scopes:    make(map[string]IDSet),
		listeners: make(map[uint64]Listener),
		log:       opts.Logger.With("component", "selection"),
		metrics:   opts.Metrics,
	}
}

// Get returns a copy of the scope's ids, creating the scope on first access
func (s *Store) Get(scope string) IDSet {
	scope = domain.NormalizeScope(scope)
	s.mu.RLock()
	ids, ok := s.scopes[scope]
	s.mu.RUnlock()
	if ok {
		return ids.Clone()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ids, ok = s.scopes[scope]; !ok {
		ids = make(IDSet)
		s.scopes[scope] = ids
	}
	return ids.Clone()
}

// Has reports whether id is selected in scope
func (s *Store) Has(scope string, id any) bool {
	scope = domain.NormalizeScope(scope)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scopes[scope].Has(toID(id))
}

// Count returns the number of selected ids in scope
func (s *Store) Count(scope string) int {
	scope = domain.NormalizeScope(scope)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scopes[scope])
}

// Set replaces the scope's selection and notifies subscribers synchronously.
// ids may be an IDSet, any slice or array, any iter.Seq, a receive channel
// or a map keyed by id; anything else leaves the scope unchanged.
func (s *Store) Set(ids any, scope string) {
	scope = domain.NormalizeScope(scope)
	next := NormalizeIDSet(ids, scope, s).Clone()

	s.mu.Lock()
	s.scopes[scope] = next
	s.mu.Unlock()

	s.notify(scope, next)
}

// Clear empties one scope
func (s *Store) Clear(scope string) {
	s.Set(IDSet{}, scope)
}

// Toggle flips one id and returns whether it is now selected
func (s *Store) Toggle(id any, scope string) bool {
	key := toID(id)
	if key == "" {
		return false
	}
	var selected bool
	s.update(scope, func(ids IDSet) bool {
		selected = !ids.Has(key)
		if selected {
			ids.Add(key)
		} else {
			ids.Delete(key)
		}
		return true
	})
	return selected
}

// Prune drops ids that no longer exist, e.g. after a delete. Subscribers are
// only notified when something was removed.
func (s *Store) Prune(scope string, ids ...string) bool {
	return s.update(scope, func(current IDSet) bool {
		changed := false
		for _, id := range ids {
			if current.Has(id) {
				current.Delete(id)
				changed = true
			}
		}
		return changed
	})
}

// update edits the scope's set in place and notifies once the lock is
// released. fn reports whether it changed anything.
func (s *Store) update(scope string, fn func(IDSet) bool) bool {
	scope = domain.NormalizeScope(scope)
	snap, changed := s.modify(scope, fn)
	if changed {
		s.notify(scope, snap)
	}
	return changed
}

// modify runs fn on the live set under the write lock and returns a copy of
// the result. Callers notify.
func (s *Store) modify(scope string, fn func(IDSet) bool) (IDSet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, ok := s.scopes[scope]
	if !ok {
		ids = make(IDSet)
		s.scopes[scope] = ids
	}
	if !fn(ids) {
		return nil, false
	}
	return ids.Clone(), true
}

// Scopes lists every scope touched so far
func (s *Store) Scopes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.scopes))
	for scope := range s.scopes {
		out = append(out, scope)
	}
	sort.Strings(out)
	return out
}

// Subscribe registers a listener and returns its unsubscribe function
func (s *Store) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	s.order = append(s.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lmu.Lock()
			defer s.lmu.Unlock()
			delete(s.listeners, id)
			if i := slices.Index(s.order, id); i >= 0 {
				s.order = slices.Delete(s.order, i, i+1)
			}
		})
	}
}

func (s *Store) notify(scope string, ids IDSet) {
	s.metrics.ObserveSelection(scope, len(ids))

	s.lmu.RLock()
	listeners := make([]Listener, 0, len(s.order))
	for _, id := range s.order {
		listeners = append(listeners, s.listeners[id])
	}
	s.lmu.RUnlock()

	for _, fn := range listeners {
		// Every listener gets its own copy
		s.safeNotify(fn, Snapshot{Scope: scope, IDs: ids.Clone(), Count: len(ids)})
	}
}

func (s *Store) safeNotify(fn Listener, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Debug("selection listener panic", "scope", snap.Scope, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn(snap)
}

// NormalizeIDSet coerces heterogeneous id collections into an IDSet.
// An IDSet is returned as is; unrecognized input falls back to the scope's
// current selection in store (or an empty set without a store).
func NormalizeIDSet(ids any, scope string, store *Store) IDSet {
	switch v := ids.(type) {
	case IDSet:
		if v == nil {
			return IDSet{}
		}
		return v
	case []string:
		return collect(slices.Values(v))
	case []any:
		return collect(slices.Values(v))
	case iter.Seq[string]:
		return collect(v)
	case iter.Seq[any]:
		return collect(v)
	case map[string]struct{}:
		return IDSet(v)
	case map[string]bool:
		out := make(IDSet, len(v))
		for id, on := range v {
			if on && id != "" {
				out.Add(id)
			}
		}
		return out
	}

	if ids != nil {
		rv := reflect.ValueOf(ids)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			out := make(IDSet, rv.Len())
			for i := 0; i < rv.Len(); i++ {
				if id := toID(rv.Index(i).Interface()); id != "" {
					out.Add(id)
				}
			}
			return out
		case reflect.Map:
			// Keys are the ids; a bool value of false means "not selected"
			out := make(IDSet, rv.Len())
			onlyTrue := rv.Type().Elem().Kind() == reflect.Bool
			for it := rv.MapRange(); it.Next(); {
				if onlyTrue && !it.Value().Bool() {
					continue
				}
				if id := toID(it.Key().Interface()); id != "" {
					out.Add(id)
				}
			}
			return out
		case reflect.Func, reflect.Chan:
			if rv.Type().CanSeq() {
				out := make(IDSet)
				for v := range rv.Seq() {
					if id := toID(v.Interface()); id != "" {
						out.Add(id)
					}
				}
				return out
			}
		}
	}

	if store == nil {
		return IDSet{}
	}
	return store.Get(scope)
}

func collect[T any](seq iter.Seq[T]) IDSet {
	out := make(IDSet)
	for v := range seq {
		if id := toID(v); id != "" {
			out.Add(id)
		}
	}
	return out
}

// toID string-coerces a source identifier; numbers and strings converge
func toID(v any) string {
	if v == nil {
		return ""
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}
