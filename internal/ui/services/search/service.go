package search

import (
	"strings"

	"crmgrip/internal/domain"
)

// Service filters the rows of a list view. Rows that do not match are not
// visible, so they are never touched by select-all.
type Service struct {
	state    State
	onChange func(FilterChangedEvent)
}

// NewService creates a new search service
func NewService() *Service {
	return &Service{}
}

// OnChange registers a callback fired when the query changes
func (s *Service) OnChange(fn func(FilterChangedEvent)) {
	s.onChange = fn
}

// SetQuery replaces the filter query
func (s *Service) SetQuery(query string) {
	query = strings.TrimSpace(query)
	if query == s.state.Query {
		return
	}
	s.state.Query = query
	if s.onChange != nil {
		s.onChange(FilterChangedEvent{Query: query, Matches: s.state.Matches})
	}
}

// ClearSearch clears the current filter
func (s *Service) ClearSearch() {
	s.SetQuery("")
}

// GetQuery returns the current filter query
func (s *Service) GetQuery() string {
	return s.state.Query
}

// GetMatchCount returns how many rows passed the last Apply
func (s *Service) GetMatchCount() int {
	return s.state.Matches
}

// Apply returns the records matching the current query
func (s *Service) Apply(records []*domain.Record) []*domain.Record {
	if s.state.Query == "" {
		s.state.Matches = len(records)
		return records
	}
	out := make([]*domain.Record, 0, len(records))
	for _, r := range records {
		if MatchesFilter(r, s.state.Query) {
			out = append(out, r)
		}
	}
	s.state.Matches = len(out)
	return out
}

// MatchesFilter checks a record against a query. "stage:" and "company:"
// prefixes restrict the match to one field.
func MatchesFilter(r *domain.Record, filterQuery string) bool {
	if r == nil {
		return false
	}
	if filterQuery == "" {
		return true
	}
	query := strings.ToLower(filterQuery)

	if v, ok := strings.CutPrefix(query, "stage:"); ok {
		return strings.Contains(strings.ToLower(r.Stage), strings.TrimSpace(v))
	}
	if v, ok := strings.CutPrefix(query, "company:"); ok {
		return strings.Contains(strings.ToLower(r.Company), strings.TrimSpace(v))
	}

	return strings.Contains(strings.ToLower(r.Name), query) ||
		strings.Contains(strings.ToLower(r.ID), query) ||
		strings.Contains(strings.ToLower(r.Company), query) ||
		strings.Contains(strings.ToLower(r.Stage), query)
}

// ShouldHighlight reports whether text contains the query
func (s *Service) ShouldHighlight(text string) bool {
	if s.state.Query == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(s.state.Query))
}
