package ui

import (
	"crmgrip/internal/domain"
)

// EventMsg wraps a domain event for the UI
type EventMsg struct {
	Event domain.DomainEvent
}

// renderPassMsg is sent by the list's render subscriber on every pass
type renderPassMsg struct{}

// toastMsg carries a notification for the status line
type toastMsg struct {
	text string
}

// helpPagerMsg contains the result of a help pager command
type helpPagerMsg struct {
	err error
}

// clearStatusMsg clears the status line after a delay
type clearStatusMsg struct{}

// pauseRenderingMsg signals to pause Bubble Tea rendering
type pauseRenderingMsg struct{}

// resumeRenderingMsg signals to resume Bubble Tea rendering
type resumeRenderingMsg struct{}
