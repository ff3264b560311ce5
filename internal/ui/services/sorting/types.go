package sorting

import "crmgrip/internal/logic"

// State holds sorting state
type State struct {
	CurrentMode logic.SortMode
}

// SortModeChangedEvent is passed to the change callback
type SortModeChangedEvent struct {
	OldMode logic.SortMode
	NewMode logic.SortMode
}
