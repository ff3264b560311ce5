package navigation

// Service keeps a cursor and a scrolling window over a list of rows
type Service struct {
	state  State
	onMove func(CursorMovedEvent)
}

// reserved is the chrome around the table: tabs, header, action bar, help
const reserved = 8

// NewService creates a new navigation service
func NewService() *Service {
	return &Service{state: State{ViewportHeight: 20}}
}

// OnMove registers a callback fired when the cursor changes row
func (s *Service) OnMove(fn func(CursorMovedEvent)) {
	s.onMove = fn
}

func (s *Service) State() State { return s.state }

func (s *Service) Cursor() int { return s.state.Cursor }

// Window returns the half-open range of rows on screen
func (s *Service) Window() (start, end int) {
	start = s.state.ViewportOffset
	end = min(start+s.state.ViewportHeight, s.state.Rows)
	return start, end
}

// SetViewportHeight updates the window from the terminal height
func (s *Service) SetViewportHeight(height int) {
	s.state.ViewportHeight = max(height-reserved, 1)
	s.ensureVisible()
}

// SetRows resizes the list, e.g. after filtering, and clamps the cursor
func (s *Service) SetRows(n int) {
	s.state.Rows = max(n, 0)
	s.MoveToIndex(s.state.Cursor)
}

// Navigate handles navigation in a direction
func (s *Service) Navigate(direction Direction) {
	page := max(s.state.ViewportHeight-1, 1)
	switch direction {
	case DirectionUp:
		s.MoveToIndex(s.state.Cursor - 1)
	case DirectionDown:
		s.MoveToIndex(s.state.Cursor + 1)
	case DirectionPageUp:
		s.MoveToIndex(s.state.Cursor - page)
	case DirectionPageDown:
		s.MoveToIndex(s.state.Cursor + page)
	case DirectionHome:
		s.MoveToIndex(0)
	case DirectionEnd:
		s.MoveToIndex(s.state.Rows - 1)
	}
}

// MoveToIndex moves cursor to specific index
func (s *Service) MoveToIndex(index int) {
	old := s.state.Cursor
	s.state.Cursor = s.clampIndex(index)
	s.ensureVisible()
	if old != s.state.Cursor && s.onMove != nil {
		s.onMove(CursorMovedEvent{OldIndex: old, NewIndex: s.state.Cursor})
	}
}

func (s *Service) clampIndex(index int) int {
	if index >= s.state.Rows {
		index = s.state.Rows - 1
	}
	return max(index, 0)
}

func (s *Service) ensureVisible() {
	if s.state.Cursor < s.state.ViewportOffset {
		s.state.ViewportOffset = s.state.Cursor
	} else if s.state.Cursor >= s.state.ViewportOffset+s.state.ViewportHeight {
		s.state.ViewportOffset = s.state.Cursor - s.state.ViewportHeight + 1
	}
	// Shrinking lists must not leave empty space at the bottom
	if maxOffset := max(s.state.Rows-s.state.ViewportHeight, 0); s.state.ViewportOffset > maxOffset {
		s.state.ViewportOffset = maxOffset
	}
}
