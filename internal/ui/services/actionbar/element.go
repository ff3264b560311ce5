package actionbar

import (
	"maps"
	"slices"
	"sync"
)

// Element is the small property contract the bar writes to
type Element interface {
	Hidden() bool
	SetHidden(bool)
	Display() string
	SetDisplay(string)
	HasClass(name string) bool
	SetClass(name string, on bool)
	Attr(name string) (string, bool)
	SetAttr(name, value string)
	RemoveAttr(name string)
}

// ActionToggler is implemented by elements that hold per-action buttons
type ActionToggler interface {
	ActionEnabled(action string) bool
	SetActionEnabled(action string, enabled bool)
}

// Node is an in-memory Element. It counts writes so callers can tell when a
// repaint is actually needed.
type Node struct {
	mu       sync.RWMutex
	hidden   bool
	display  string
	classes  map[string]bool
	attrs    map[string]string
	disabled map[string]bool
	writes   int
}

// NewNode creates a node in the hidden state, like an empty bar
func NewNode() *Node {
	return &Node{
		hidden:   true,
		display:  DisplayNone,
		classes:  make(map[string]bool),
		attrs:    make(map[string]string),
		disabled: make(map[string]bool),
	}
}

func (n *Node) Hidden() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.hidden
}

func (n *Node) SetHidden(v bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.hidden = v
	n.writes++
}

func (n *Node) Display() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.display
}

func (n *Node) SetDisplay(v string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.display = v
	n.writes++
}

func (n *Node) HasClass(name string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.classes[name]
}

func (n *Node) SetClass(name string, on bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if on {
		n.classes[name] = true
	} else {
		delete(n.classes, name)
	}
	n.writes++
}

func (n *Node) Attr(name string) (string, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	v, ok := n.attrs[name]
	return v, ok
}

func (n *Node) SetAttr(name, value string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.attrs[name] = value
	n.writes++
}

func (n *Node) RemoveAttr(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.attrs, name)
	n.writes++
}

func (n *Node) ActionEnabled(action string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return !n.disabled[action]
}

func (n *Node) SetActionEnabled(action string, enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if enabled {
		delete(n.disabled, action)
	} else {
		n.disabled[action] = true
	}
	n.writes++
}

// Writes returns how many mutations the node received
func (n *Node) Writes() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.writes
}

// Count returns the data-count attribute
func (n *Node) Count() string {
	v, _ := n.Attr(AttrCount)
	return v
}

// Visible reports the bar as a user would see it
func (n *Node) Visible() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return !n.hidden && n.display != DisplayNone
}

// DisabledActions returns the disabled actions in display order
func (n *Node) DisabledActions() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	keys := slices.Collect(maps.Keys(n.disabled))
	return slices.DeleteFunc(slices.Clone(Actions), func(a string) bool {
		return !slices.Contains(keys, a)
	})
}
