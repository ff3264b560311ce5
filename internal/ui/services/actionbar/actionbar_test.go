package actionbar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject(t *testing.T) {
	tests := []struct {
		name     string
		scope    string
		count    int
		visible  bool
		disabled []string
	}{
		{"empty", "contacts", 0, false, Actions},
		{"negative counts as empty", "contacts", -3, false, Actions},
		{"single", "contacts", 1, true, []string{ActionMerge}},
		{"pair", "partners", 2, true, []string{ActionEdit}},
		{"many", "pipeline", 5, true, []string{ActionEdit, ActionMerge}},
		{"notifications", "notifications", 3, true, []string{
			ActionEdit, ActionMerge, ActionEmailTogether, ActionEmailMass,
			ActionAddTask, ActionBulkLog, ActionConvertToPipeline, ActionDelete,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Project(tt.scope, tt.count)
			assert.Equal(t, tt.visible, p.Visible)
			assert.Equal(t, tt.disabled, p.DisabledActions)
			if tt.visible {
				assert.Equal(t, Visible, p.State)
			} else {
				assert.Equal(t, Hidden, p.State)
				assert.Equal(t, 0, p.Count)
			}
		})
	}
}

func TestProject_MergeReady(t *testing.T) {
	assert.False(t, Project("contacts", 1).MergeReady)
	assert.True(t, Project("contacts", 2).MergeReady)
	assert.True(t, Project("contacts", 9).MergeReady)
}

func TestApply_VisibleWithCount(t *testing.T) {
	el := NewNode()
	Apply(el, 5)

	assert.Equal(t, "5", el.Count())
	assert.False(t, el.Hidden())
	assert.NotEqual(t, DisplayNone, el.Display())
	assert.True(t, el.HasClass(ClassHasSelection))
	v, ok := el.Attr(AttrVisible)
	require.True(t, ok)
	assert.Equal(t, "1", v)
	mr, _ := el.Attr(AttrMergeReady)
	assert.Equal(t, "1", mr)
	assert.True(t, el.Visible())
}

func TestApply_HiddenAtZero(t *testing.T) {
	el := NewNode()
	Apply(el, 3)
	Apply(el, 0)

	assert.Equal(t, "0", el.Count())
	assert.True(t, el.Hidden())
	assert.Equal(t, DisplayNone, el.Display())
	assert.False(t, el.HasClass(ClassHasSelection))
	_, ok := el.Attr(AttrVisible)
	assert.False(t, ok)
	assert.False(t, el.Visible())
}

func TestApply_DoesNotThrash(t *testing.T) {
	el := NewNode()
	Apply(el, 0)
	writes := el.Writes()
	Apply(el, 0)
	assert.Equal(t, writes, el.Writes())

	Apply(el, 4)
	writes = el.Writes()
	Apply(el, 4)
	assert.Equal(t, writes, el.Writes())

	ApplyScoped(el, "contacts", 4)
	writes = el.Writes()
	ApplyScoped(el, "contacts", 4)
	assert.Equal(t, writes, el.Writes())
}

func TestApply_NilElement(t *testing.T) {
	assert.NotPanics(t, func() { Apply(nil, 3) })
	var p Projection
	assert.NotPanics(t, func() { p = ApplyScoped(nil, "contacts", 2) })
	assert.True(t, p.Visible)
}

func TestApplyScoped_TogglesActions(t *testing.T) {
	el := NewNode()
	p := ApplyScoped(el, "", 1)

	kind, _ := el.Attr(AttrSelectionType)
	assert.Equal(t, "contacts", kind)
	assert.Equal(t, p.DisabledActions, el.DisabledActions())
	assert.True(t, el.ActionEnabled(ActionEdit))
	assert.False(t, el.ActionEnabled(ActionMerge))

	ApplyScoped(el, "notifications", 2)
	assert.False(t, el.ActionEnabled(ActionEdit))
	assert.False(t, el.ActionEnabled(ActionDelete))
	assert.True(t, el.ActionEnabled(ActionClear))
}
