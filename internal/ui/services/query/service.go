package query

import (
	"crmgrip/internal/domain"
	"crmgrip/internal/logic"
	"crmgrip/internal/ui/services/selection"
)

// Service answers the questions a list view asks about its rows
type Service struct {
	records logic.RecordStore
}

// NewService creates a new query service
func NewService(records logic.RecordStore) *Service {
	return &Service{records: records}
}

// Visible returns the records of scope that pass match, in store order.
// A nil match keeps every record.
func (s *Service) Visible(scope string, match Matcher) []*domain.Record {
	all := s.records.GetRecords(domain.NormalizeScope(scope))
	if match == nil {
		return all
	}
	out := make([]*domain.Record, 0, len(all))
	for _, r := range all {
		if match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Entries describes every record of scope to the select-all policy.
// Records missing from visible are passed as not visible.
func (s *Service) Entries(scope string, visible []*domain.Record) []selection.VisibleRowEntry {
	shown := make(map[string]bool, len(visible))
	for _, r := range visible {
		shown[r.ID] = true
	}
	all := s.records.GetRecords(domain.NormalizeScope(scope))
	out := make([]selection.VisibleRowEntry, 0, len(all))
	for _, r := range all {
		out = append(out, selection.VisibleRowEntry{
			ID:       r.ID,
			Disabled: r.Disabled,
			Visible:  shown[r.ID],
		})
	}
	return out
}

// RowAt returns the row at index, or nil when index is out of range
func (s *Service) RowAt(rows []*domain.Record, index int) *Row {
	if index < 0 || index >= len(rows) {
		return nil
	}
	return &Row{Index: index, Record: rows[index]}
}

// SelectedIn returns the ids of rows that are in selected, in row order
func (s *Service) SelectedIn(rows []*domain.Record, selected selection.IDSet) []string {
	out := make([]string, 0, len(selected))
	for _, r := range rows {
		if selected.Has(r.ID) {
			out = append(out, r.ID)
		}
	}
	return out
}
