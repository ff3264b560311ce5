package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmgrip/internal/domain"
	"crmgrip/internal/logic"
	"crmgrip/internal/ui/services/selection"
)

func newService(t *testing.T) *Service {
	t.Helper()
	store := logic.NewMemoryRecordStore()
	store.AddRecord(&domain.Record{ID: "1", Name: "Ada", Stage: "funded"})
	store.AddRecord(&domain.Record{ID: "2", Name: "Grace", Stage: "processing"})
	store.AddRecord(&domain.Record{ID: "3", Name: "Hedy", Stage: "funded", Disabled: true})
	store.AddRecord(&domain.Record{ID: "p1", Name: "Partner", Scope: domain.ScopePartners})
	return NewService(store)
}

func TestService_VisibleAndEntries(t *testing.T) {
	s := newService(t)

	assert.Len(t, s.Visible("", nil), 3)

	funded := s.Visible(domain.ScopeContacts, func(r *domain.Record) bool { return r.Stage == "funded" })
	require.Len(t, funded, 2)

	entries := s.Entries(domain.ScopeContacts, funded)
	assert.Equal(t, []selection.VisibleRowEntry{
		{ID: "1", Visible: true},
		{ID: "2", Visible: false},
		{ID: "3", Disabled: true, Visible: true},
	}, entries)
}

func TestService_RowAtAndSelectedIn(t *testing.T) {
	s := newService(t)
	rows := s.Visible(domain.ScopeContacts, nil)

	assert.Nil(t, s.RowAt(rows, -1))
	assert.Nil(t, s.RowAt(rows, 3))
	assert.Equal(t, "2", s.RowAt(rows, 1).Record.ID)

	assert.Equal(t, []string{"1", "3"}, s.SelectedIn(rows, selection.NewIDSet("3", "1", "p1")))
}
