package domain

import "strings"

// EventType represents the type of domain event
type EventType string

// Event types
const (
	EventDataChanged      EventType = "app:data:changed"
	EventSelectionChanged EventType = "selection:changed"
	EventRenderCompleted  EventType = "render:completed"
)

// Sources that must survive debounce coalescing
const (
	SourceSoftDelete      = "soft-delete"
	SourceActionBarDelete = "actionbar:delete"
	ActionSoftDelete      = "soft-delete"
)

// ReasonCoalesced is set when several emits were merged into one dispatch
const ReasonCoalesced = "coalesced-update"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	Type() EventType
}

// DataChanged is the normalized payload of a data mutation signal.
// It only lives for the duration of a dispatch.
type DataChanged struct {
	Scope     string
	Source    string
	Reason    string
	Action    string
	Count     int
	BatchSize int
}

func (e DataChanged) Type() EventType { return EventDataChanged }

// IsDestructive reports whether the change removed records.
func (e DataChanged) IsDestructive() bool {
	return e.Source == SourceSoftDelete ||
		e.Source == SourceActionBarDelete ||
		e.Action == ActionSoftDelete
}

// SelectionChangedEvent is emitted when a selection scope changes
type SelectionChangedEvent struct {
	Scope string
	Count int
}

func (e SelectionChangedEvent) Type() EventType { return EventSelectionChanged }

// RenderCompletedEvent is emitted after a render pass settled
type RenderCompletedEvent struct {
	Pass uint64
}

func (e RenderCompletedEvent) Type() EventType { return EventRenderCompleted }

// NormalizeScope trims a scope name and falls back to the contacts scope.
func NormalizeScope(scope string) string {
	s := strings.TrimSpace(scope)
	if s == "" {
		return ScopeContacts
	}
	return s
}
