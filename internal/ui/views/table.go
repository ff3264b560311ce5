package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"crmgrip/internal/domain"
	"crmgrip/internal/ui/services/selection"
)

// TableRenderer renders the record table of one scope
type TableRenderer struct {
	styles *Styles
}

// NewTableRenderer creates a new table renderer
func NewTableRenderer(styles *Styles) *TableRenderer {
	return &TableRenderer{styles: styles}
}

// Render draws the header checkbox row and the rows inside the window
func (t *TableRenderer) Render(state ViewState) string {
	var b strings.Builder

	b.WriteString(t.styles.Header.Render(fmt.Sprintf("%s %-6s %-24s %-18s %s",
		HeaderBox(state.Header), "ID", "NAME", "STAGE", "COMPANY")))
	b.WriteString("\n")

	start, end := state.WindowStart, state.WindowEnd
	if end <= start || end > len(state.Rows) {
		start, end = 0, len(state.Rows)
	}
	if start > 0 {
		b.WriteString(t.styles.Scroll.Render(fmt.Sprintf("  ↑ %d more", start)))
		b.WriteString("\n")
	}
	for i := start; i < end; i++ {
		b.WriteString(t.RenderRow(state.Rows[i], i == state.Cursor, state.Selected.Has(state.Rows[i].ID), state.FilterQuery))
		b.WriteString("\n")
	}
	if end < len(state.Rows) {
		b.WriteString(t.styles.Scroll.Render(fmt.Sprintf("  ↓ %d more", len(state.Rows)-end)))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderRow renders one record line
func (t *TableRenderer) RenderRow(r *domain.Record, isCursor, isSelected bool, filterQuery string) string {
	if r == nil {
		return ""
	}
	box := "[ ]"
	if isSelected {
		box = "[x]"
	}
	if r.Disabled {
		box = "[-]"
	}

	name := truncate(r.Name, 24)
	nameCell := fmt.Sprintf("%-24s", name)
	if filterQuery != "" && strings.Contains(strings.ToLower(r.Name), strings.ToLower(filterQuery)) {
		nameCell = t.styles.Highlight.Render(nameCell)
	}
	stage := lipgloss.NewStyle().Foreground(lipgloss.Color(StageColor(r.Stage))).Render(fmt.Sprintf("%-18s", truncate(r.Stage, 18)))

	line := fmt.Sprintf("%s %-6s %s %s %s", box, truncate(r.ID, 6), nameCell, stage, r.Company)
	switch {
	case r.Disabled:
		line = t.styles.Disabled.Render(line)
	case isCursor:
		line = t.styles.Cursor.Render(line)
	}
	return line
}

// HeaderBox renders the tri-state header checkbox
func HeaderBox(state selection.TriState) string {
	switch state {
	case selection.Checked:
		return "[x]"
	case selection.Mixed:
		return "[~]"
	default:
		return "[ ]"
	}
}

func truncate(s string, n int) string {
	if lipgloss.Width(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
