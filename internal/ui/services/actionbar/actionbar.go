// Package actionbar projects a selection count onto the bulk-action bar.
package actionbar

import (
	"strconv"

	"crmgrip/internal/domain"
)

// State of the bar; there are exactly two
type State int

const (
	Hidden State = iota
	Visible
)

func (s State) String() string {
	if s == Visible {
		return "visible"
	}
	return "hidden"
}

// Bulk actions offered by the bar
const (
	ActionEdit              = "edit"
	ActionMerge             = "merge"
	ActionEmailTogether     = "emailTogether"
	ActionEmailMass         = "emailMass"
	ActionAddTask           = "addTask"
	ActionBulkLog           = "bulkLog"
	ActionConvertToPipeline = "convertToPipeline"
	ActionDelete            = "delete"
	ActionClear             = "clear"
)

// Actions lists every bulk action in display order
var Actions = []string{
	ActionEdit,
	ActionMerge,
	ActionEmailTogether,
	ActionEmailMass,
	ActionAddTask,
	ActionBulkLog,
	ActionConvertToPipeline,
	ActionDelete,
	ActionClear,
}

// Attribute and class names written by Apply
const (
	AttrVisible       = "data-visible"
	AttrCount         = "data-count"
	AttrMergeReady    = "data-merge-ready"
	AttrSelectionType = "data-selection-type"
	ClassHasSelection = "has-selection"
	DisplayNone       = "none"
)

// Projection is the derived bar state for one count
type Projection struct {
	State           State
	Visible         bool
	Count           int
	MergeReady      bool
	DisabledActions []string
}

// Enabled reports whether action is usable under p
func (p Projection) Enabled(action string) bool {
	for _, a := range p.DisabledActions {
		if a == action {
			return false
		}
	}
	return true
}

// Project derives the bar state from a scope's selection count
func Project(scope string, count int) Projection {
	if count < 0 {
		count = 0
	}
	p := Projection{
		Count:      count,
		Visible:    count > 0,
		MergeReady: count >= 2,
	}
	if p.Visible {
		p.State = Visible
	}

	notifications := domain.NormalizeScope(scope) == domain.ScopeNotifications
	for _, action := range Actions {
		if !enabled(action, count, notifications) {
			p.DisabledActions = append(p.DisabledActions, action)
		}
	}
	return p
}

func enabled(action string, count int, notifications bool) bool {
	if notifications {
		return action == ActionClear && count > 0
	}
	switch action {
	case ActionEdit:
		return count == 1
	case ActionMerge:
		return count == 2
	default:
		return count > 0
	}
}

// Apply writes the visible/hidden projection for count onto el. Only values
// that differ from the element's current state are written. A nil element
// is ignored.
func Apply(el Element, count int) {
	if el == nil {
		return
	}
	if count < 0 {
		count = 0
	}
	countAttr := strconv.Itoa(count)
	mergeReady := "0"
	if count >= 2 {
		mergeReady = "1"
	}

	if count > 0 {
		setAttr(el, AttrVisible, "1")
		if el.Display() == DisplayNone {
			el.SetDisplay("")
		}
		if !el.HasClass(ClassHasSelection) {
			el.SetClass(ClassHasSelection, true)
		}
		setAttr(el, AttrCount, countAttr)
		if el.Hidden() {
			el.SetHidden(false)
		}
	} else {
		if _, ok := el.Attr(AttrVisible); ok {
			el.RemoveAttr(AttrVisible)
		}
		if el.Display() != DisplayNone {
			el.SetDisplay(DisplayNone)
		}
		if el.HasClass(ClassHasSelection) {
			el.SetClass(ClassHasSelection, false)
		}
		setAttr(el, AttrCount, countAttr)
		if !el.Hidden() {
			el.SetHidden(true)
		}
	}
	setAttr(el, AttrMergeReady, mergeReady)
}

// ApplyScoped applies the projection of scope and count, including the
// selection type attribute and, when el supports it, per-action guards.
func ApplyScoped(el Element, scope string, count int) Projection {
	p := Project(scope, count)
	if el == nil {
		return p
	}
	scope = domain.NormalizeScope(scope)
	setAttr(el, AttrSelectionType, scope)

	if toggler, ok := el.(ActionToggler); ok {
		for _, action := range Actions {
			want := p.Enabled(action)
			if toggler.ActionEnabled(action) != want {
				toggler.SetActionEnabled(action, want)
			}
		}
	}
	Apply(el, count)
	return p
}

func setAttr(el Element, name, value string) {
	if cur, ok := el.Attr(name); ok && cur == value {
		return
	}
	el.SetAttr(name, value)
}
