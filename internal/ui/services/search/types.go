package search

// State holds the active filter
type State struct {
	Query   string
	Matches int // rows left visible after the last Apply
}

// FilterChangedEvent is passed to the change callback
type FilterChangedEvent struct {
	Query   string
	Matches int
}
