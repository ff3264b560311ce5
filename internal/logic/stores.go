package logic

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"crmgrip/internal/domain"
)

// MemoryRecordStore is an in-memory implementation of RecordStore
type MemoryRecordStore struct {
	mu      sync.RWMutex
	records map[string]map[string]*domain.Record // scope -> id -> record
	deleted map[string]map[string]bool
}

// NewMemoryRecordStore creates a new memory-based record store
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{
		records: make(map[string]map[string]*domain.Record),
		deleted: make(map[string]map[string]bool),
	}
}

func (s *MemoryRecordStore) GetRecord(scope, id string) *domain.Record {
	scope = domain.NormalizeScope(scope)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.deleted[scope][id] {
		return nil
	}
	return s.records[scope][id]
}

// GetRecords returns the live records of scope sorted by name, then id
func (s *MemoryRecordStore) GetRecords(scope string) []*domain.Record {
	scope = domain.NormalizeScope(scope)
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Record, 0, len(s.records[scope]))
	for id, r := range s.records[scope] {
		if !s.deleted[scope][id] {
			result = append(result, r)
		}
	}
	SortRecords(result, SortByName)
	return result
}

func (s *MemoryRecordStore) AddRecord(record *domain.Record) {
	if record == nil || record.ID == "" {
		return
	}
	record.Scope = domain.NormalizeScope(record.Scope)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records[record.Scope] == nil {
		s.records[record.Scope] = make(map[string]*domain.Record)
	}
	s.records[record.Scope][record.ID] = record
	delete(s.deleted[record.Scope], record.ID)
}

func (s *MemoryRecordStore) UpdateRecord(record *domain.Record) {
	s.AddRecord(record)
}

// SoftDelete hides ids from scope and returns the ids that were live
func (s *MemoryRecordStore) SoftDelete(scope string, ids ...string) []string {
	scope = domain.NormalizeScope(scope)
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for _, id := range ids {
		if _, ok := s.records[scope][id]; !ok || s.deleted[scope][id] {
			continue
		}
		if s.deleted[scope] == nil {
			s.deleted[scope] = make(map[string]bool)
		}
		s.deleted[scope][id] = true
		removed = append(removed, id)
	}
	return removed
}

// Scopes lists scopes that hold at least one record
func (s *MemoryRecordStore) Scopes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.records))
	for scope := range s.records {
		out = append(out, scope)
	}
	slices.Sort(out)
	return out
}

// SortRecords orders records in place by mode; ties fall back to id
func SortRecords(records []*domain.Record, mode SortMode) {
	key := func(r *domain.Record) string {
		switch mode {
		case SortByID:
			return r.ID
		case SortByStage:
			return strings.ToLower(r.Stage)
		case SortByCompany:
			return strings.ToLower(r.Company)
		default:
			return strings.ToLower(r.Name)
		}
	}
	slices.SortStableFunc(records, func(a, b *domain.Record) int {
		return cmp.Or(cmp.Compare(key(a), key(b)), cmp.Compare(a.ID, b.ID))
	})
}
