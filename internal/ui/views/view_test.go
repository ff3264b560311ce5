package views

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"crmgrip/internal/domain"
	"crmgrip/internal/ui/services/actionbar"
	"crmgrip/internal/ui/services/selection"
)

func sampleState() ViewState {
	return ViewState{
		Width:       100,
		Scopes:      []string{"contacts", "partners"},
		ActiveScope: "contacts",
		Rows: []*domain.Record{
			{ID: "1", Name: "Ada Lovelace", Stage: "application"},
			{ID: "2", Name: "Grace Hopper", Stage: "funded"},
		},
		Selected: selection.NewIDSet("2"),
		Header:   selection.Mixed,
	}
}

func TestRender_TableAndTabs(t *testing.T) {
	out := NewRenderer().Render(sampleState())
	assert.Contains(t, out, "crmgrip")
	assert.Contains(t, out, "1 contacts")
	assert.Contains(t, out, "2 partners")
	assert.Contains(t, out, "[~]")
	assert.Contains(t, out, "[x]")
	assert.Contains(t, out, "Ada Lovelace")
	assert.NotContains(t, out, "selected")
}

func TestRender_ActionBarFollowsProjection(t *testing.T) {
	state := sampleState()
	state.Bar = actionbar.Project("contacts", 1)
	state.BarVisible = true

	out := NewRenderer().Render(state)
	assert.Contains(t, out, "1 selected")
	assert.Contains(t, out, actionbar.ActionConvertToPipeline)
}

func TestRender_EmptyAndFiltered(t *testing.T) {
	state := sampleState()
	state.Rows = nil
	assert.Contains(t, NewRenderer().Render(state), "No records in this view.")

	state.FilterQuery = "zzz"
	out := NewRenderer().Render(state)
	assert.Contains(t, out, "No records match the filter.")
	assert.Contains(t, out, "[Filter: zzz]")
}

func TestRender_ConfirmDeletePopup(t *testing.T) {
	state := sampleState()
	state.Height = 20
	state.ConfirmDelete = 2

	out := NewRenderer().Render(state)
	assert.Contains(t, out, "Delete 2 selected records? (y/n)")
	assert.Len(t, strings.Split(out, "\n"), 20)
}

func TestRenderRow(t *testing.T) {
	tr := NewTableRenderer(NewStyles())
	assert.Contains(t, tr.RenderRow(&domain.Record{ID: "8", Name: "Locked", Disabled: true}, false, false, ""), "[-]")
	assert.Contains(t, tr.RenderRow(&domain.Record{ID: "9", Name: "Picked"}, true, true, ""), "[x]")
	assert.Empty(t, tr.RenderRow(nil, false, false, ""))
	assert.Equal(t, "[ ]", HeaderBox(selection.Unchecked))
	assert.Equal(t, "abc…", truncate("abcdefgh", 4))
}
