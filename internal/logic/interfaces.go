package logic

import "crmgrip/internal/domain"

// RecordStore provides access to the rows shown in the list views
type RecordStore interface {
	GetRecord(scope, id string) *domain.Record
	GetRecords(scope string) []*domain.Record
	AddRecord(record *domain.Record)
	UpdateRecord(record *domain.Record)
	SoftDelete(scope string, ids ...string) []string
	Scopes() []string
}

// Sort modes
type SortMode int

const (
	SortByName SortMode = iota
	SortByID
	SortByStage
	SortByCompany
)

func (m SortMode) String() string {
	switch m {
	case SortByID:
		return "id"
	case SortByStage:
		return "stage"
	case SortByCompany:
		return "company"
	default:
		return "name"
	}
}

// Next cycles through the sort modes
func (m SortMode) Next() SortMode {
	return (m + 1) % (SortByCompany + 1)
}
