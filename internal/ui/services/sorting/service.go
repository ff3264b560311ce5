package sorting

import (
	"crmgrip/internal/domain"
	"crmgrip/internal/logic"
)

// Service handles sorting logic
type Service struct {
	state    State
	onChange func(SortModeChangedEvent)
}

// NewService creates a new sorting service
func NewService() *Service {
	return &Service{
		state: State{CurrentMode: logic.SortByName},
	}
}

// OnChange registers a callback fired when the mode changes
func (s *Service) OnChange(fn func(SortModeChangedEvent)) {
	s.onChange = fn
}

// GetCurrentMode returns the current sort mode
func (s *Service) GetCurrentMode() logic.SortMode {
	return s.state.CurrentMode
}

// SetMode sets the sort mode
func (s *Service) SetMode(mode logic.SortMode) {
	if mode == s.state.CurrentMode {
		return
	}

	oldMode := s.state.CurrentMode
	s.state.CurrentMode = mode

	if s.onChange != nil {
		s.onChange(SortModeChangedEvent{OldMode: oldMode, NewMode: mode})
	}
}

// NextMode cycles to the next sort mode
func (s *Service) NextMode() {
	s.SetMode(s.state.CurrentMode.Next())
}

// SortRecords returns a sorted copy of records
func (s *Service) SortRecords(records []*domain.Record) []*domain.Record {
	out := make([]*domain.Record, len(records))
	copy(out, records)
	logic.SortRecords(out, s.state.CurrentMode)
	return out
}
