package selection

import "crmgrip/internal/domain"

// ApplySelectAll handles a click on the header checkbox of a table.
//
// Only visible, enabled rows are targets. When every target is already
// selected they are removed from the scope; otherwise they are all added,
// so a partially selected table always upgrades to "all visible". Ids that
// are selected but not visible are left alone. No targets at all clears the
// whole scope. A nil header or store makes the call a no-op.
func ApplySelectAll(header Checkbox, store *Store, scope string, entries []VisibleRowEntry) Outcome {
	if header == nil || store == nil {
		return Outcome{}
	}
	scope = domain.NormalizeScope(scope)

	targets := targetsOf(entries)
	if len(targets) == 0 {
		header.SetIndeterminate(false)
		header.SetChecked(false)
		store.Set(IDSet{}, scope)
		return Outcome{Action: ActionClearedScope}
	}

	// Intent is decided against the live set so a concurrent toggle cannot
	// be overwritten.
	var allSelected bool
	next, _ := store.modify(scope, func(ids IDSet) bool {
		allSelected = true
		for _, e := range targets {
			if !ids.Has(e.ID) {
				allSelected = false
				break
			}
		}
		for _, e := range targets {
			if allSelected {
				ids.Delete(e.ID)
			} else {
				ids.Add(e.ID)
			}
		}
		return true
	})

	out := Outcome{Targets: len(targets), Count: next.Len()}
	for _, e := range targets {
		if e.Checkbox != nil {
			e.Checkbox.SetChecked(!allSelected)
		}
	}
	header.SetIndeterminate(false)
	header.SetChecked(!allSelected)
	if allSelected {
		out.Action = ActionClearedVisible
	} else {
		out.Action = ActionSelectedVisible
	}

	// Row checkboxes are already updated when subscribers run
	store.notify(scope, next)
	return out
}

// HeaderState computes the tri-state the header checkbox should show
func HeaderState(store *Store, scope string, entries []VisibleRowEntry) TriState {
	if store == nil {
		return Unchecked
	}
	targets := targetsOf(entries)
	if len(targets) == 0 {
		return Unchecked
	}
	selected := store.Get(scope)
	n := 0
	for _, e := range targets {
		if selected.Has(e.ID) {
			n++
		}
	}
	switch {
	case n == 0:
		return Unchecked
	case n == len(targets):
		return Checked
	default:
		return Mixed
	}
}

// SyncHeader writes HeaderState into header
func SyncHeader(header Checkbox, store *Store, scope string, entries []VisibleRowEntry) TriState {
	state := HeaderState(store, scope, entries)
	if header == nil {
		return state
	}
	header.SetChecked(state == Checked)
	header.SetIndeterminate(state == Mixed)
	return state
}

// SyncRows makes every row checkbox reflect the store
func SyncRows(store *Store, scope string, entries []VisibleRowEntry) {
	if store == nil {
		return
	}
	selected := store.Get(scope)
	for _, e := range entries {
		if e.Checkbox == nil {
			continue
		}
		want := selected.Has(e.ID)
		if e.Checkbox.Checked() != want {
			e.Checkbox.SetChecked(want)
		}
	}
}

func targetsOf(entries []VisibleRowEntry) []VisibleRowEntry {
	out := make([]VisibleRowEntry, 0, len(entries))
	for _, e := range entries {
		if e.Visible && !e.Disabled && e.ID != "" {
			out = append(out, e)
		}
	}
	return out
}
