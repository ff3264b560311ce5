package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"crmgrip/internal/domain"
)

// ProgramBridge forwards core notifications into a running program. The core
// is built before the program exists, so the program is attached later.
// Messages sent before that are dropped.
type ProgramBridge struct {
	mu      sync.RWMutex
	program *tea.Program
}

// NewProgramBridge creates a bridge with no program attached
func NewProgramBridge() *ProgramBridge {
	return &ProgramBridge{}
}

// SetProgram attaches p
func (b *ProgramBridge) SetProgram(p *tea.Program) {
	b.mu.Lock()
	b.program = p
	b.mu.Unlock()
}

// Notify implements coordinator.Notifier
func (b *ProgramBridge) Notify(msg string) {
	b.send(toastMsg{text: msg})
}

// Publish forwards a domain event
func (b *ProgramBridge) Publish(ev domain.DomainEvent) {
	b.send(EventMsg{Event: ev})
}

func (b *ProgramBridge) send(msg tea.Msg) {
	b.mu.RLock()
	p := b.program
	b.mu.RUnlock()
	if p == nil {
		return
	}
	// Core callbacks often run inside Update; Send would block the loop
	go p.Send(msg)
}
