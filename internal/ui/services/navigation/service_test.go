package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestService_NavigateClamps(t *testing.T) {
	s := NewService()
	s.SetRows(3)

	s.Navigate(DirectionUp)
	assert.Equal(t, 0, s.Cursor())
	s.Navigate(DirectionEnd)
	assert.Equal(t, 2, s.Cursor())
	s.Navigate(DirectionDown)
	assert.Equal(t, 2, s.Cursor())
	s.Navigate(DirectionHome)
	assert.Equal(t, 0, s.Cursor())
}

func TestService_ViewportFollowsCursor(t *testing.T) {
	s := NewService()
	s.SetViewportHeight(13) // five rows on screen
	s.SetRows(20)

	s.MoveToIndex(7)
	start, end := s.Window()
	assert.Equal(t, 3, start)
	assert.Equal(t, 8, end)

	s.Navigate(DirectionPageUp)
	assert.Equal(t, 3, s.Cursor())

	// Filtering down to two rows pulls cursor and window back
	s.SetRows(2)
	assert.Equal(t, 1, s.Cursor())
	start, end = s.Window()
	assert.Equal(t, 0, start)
	assert.Equal(t, 2, end)
}

func TestService_OnMove(t *testing.T) {
	s := NewService()
	s.SetRows(5)
	var moves []CursorMovedEvent
	s.OnMove(func(e CursorMovedEvent) { moves = append(moves, e) })

	s.Navigate(DirectionDown)
	s.Navigate(DirectionUp)
	s.Navigate(DirectionUp)
	assert.Equal(t, []CursorMovedEvent{{0, 1}, {1, 0}}, moves)
}

func TestService_EmptyList(t *testing.T) {
	s := NewService()
	s.SetRows(0)
	s.Navigate(DirectionEnd)
	assert.Equal(t, 0, s.Cursor())
	start, end := s.Window()
	assert.Equal(t, 0, start)
	assert.Equal(t, 0, end)
}
