package selection

import (
	"maps"
	"slices"
)

// IDSet is a set of row identifiers. Ids are always strings.
type IDSet map[string]struct{}

// NewIDSet creates a set holding ids
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Add(id string) { s[id] = struct{}{} }

func (s IDSet) Delete(id string) { delete(s, id) }

func (s IDSet) Len() int { return len(s) }

// Clone returns an independent copy; a nil set clones to an empty one
func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	maps.Copy(out, s)
	return out
}

// Sorted returns the ids in lexical order
func (s IDSet) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}

func (s IDSet) Equal(o IDSet) bool {
	if len(s) != len(o) {
		return false
	}
	for id := range s {
		if !o.Has(id) {
			return false
		}
	}
	return true
}

// Snapshot is what subscribers receive after every change
type Snapshot struct {
	Scope string
	IDs   IDSet
	Count int
}

// Listener is notified synchronously on every Set
type Listener func(Snapshot)

// Checkbox is the small contract the core needs from a checkbox handle
type Checkbox interface {
	Checked() bool
	SetChecked(bool)
	SetIndeterminate(bool)
}

// CheckboxState is an in-memory Checkbox
type CheckboxState struct {
	checked       bool
	indeterminate bool
}

func (c *CheckboxState) Checked() bool { return c.checked }

func (c *CheckboxState) Indeterminate() bool { return c.indeterminate }

func (c *CheckboxState) SetChecked(v bool) { c.checked = v }

func (c *CheckboxState) SetIndeterminate(v bool) { c.indeterminate = v }

// VisibleRowEntry is a row as the view layer currently shows it
type VisibleRowEntry struct {
	ID       string
	Disabled bool
	Visible  bool
	Checkbox Checkbox
}

// TriState is the header checkbox state
type TriState int

const (
	Unchecked TriState = iota
	Mixed
	Checked
)

func (t TriState) String() string {
	switch t {
	case Checked:
		return "true"
	case Mixed:
		return "mixed"
	default:
		return "false"
	}
}

// Action is what a select-all call did
type Action int

const (
	ActionNone Action = iota
	ActionClearedScope
	ActionClearedVisible
	ActionSelectedVisible
)

func (a Action) String() string {
	switch a {
	case ActionClearedScope:
		return "cleared-scope"
	case ActionClearedVisible:
		return "cleared-visible"
	case ActionSelectedVisible:
		return "selected-visible"
	default:
		return "none"
	}
}

// Outcome reports a select-all call
type Outcome struct {
	Action  Action
	Targets int // visible, enabled rows considered
	Count   int // scope size afterwards
}
