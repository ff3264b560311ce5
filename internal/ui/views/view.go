package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"crmgrip/internal/domain"
	"crmgrip/internal/ui/services/actionbar"
	"crmgrip/internal/ui/services/selection"
)

// ViewState contains all the state needed for rendering
type ViewState struct {
	Width         int
	Height        int
	Scopes        []string
	ActiveScope   string
	Rows          []*domain.Record // filtered rows of the active scope
	Selected      selection.IDSet
	Cursor        int
	WindowStart   int
	WindowEnd     int
	Header        selection.TriState
	Bar           actionbar.Projection
	BarVisible    bool
	FilterQuery   string
	FilterInput   string // rendered text input while typing a filter
	SortMode      string
	StatusMessage string
	StatusIsError bool
	ConfirmDelete int
	Pass          uint64
	HelpModel     help.Model
	KeyMap        help.KeyMap
}

// Renderer handles all view rendering
type Renderer struct {
	styles      *Styles
	table       *TableRenderer
	popupRender *PopupRenderer
}

// NewRenderer creates a new renderer
func NewRenderer() *Renderer {
	styles := NewStyles()
	return &Renderer{
		styles:      styles,
		table:       NewTableRenderer(styles),
		popupRender: NewPopupRenderer(styles),
	}
}

// Render produces the complete view
func (r *Renderer) Render(state ViewState) string {
	content := &strings.Builder{}

	content.WriteString(r.renderTitle(state))
	content.WriteString("\n")
	content.WriteString(r.renderTabs(state))
	content.WriteString("\n\n")

	if state.FilterInput != "" {
		content.WriteString(state.FilterInput)
		content.WriteString("\n")
	}

	if len(state.Rows) == 0 {
		if state.FilterQuery != "" {
			content.WriteString(r.styles.Dim.Render("No records match the filter."))
		} else {
			content.WriteString(r.styles.Dim.Render("No records in this view."))
		}
		content.WriteString("\n")
	} else {
		content.WriteString(r.table.Render(state))
	}

	if state.BarVisible {
		content.WriteString("\n")
		content.WriteString(r.RenderActionBar(state.Bar))
		content.WriteString("\n")
	}

	if state.StatusMessage != "" {
		style := r.styles.StatusSuccess
		if state.StatusIsError {
			style = r.styles.StatusError
		}
		content.WriteString("\n")
		content.WriteString(style.Render(state.StatusMessage))
	}

	content.WriteString("\n")
	if state.KeyMap != nil {
		content.WriteString(state.HelpModel.View(state.KeyMap))
	} else {
		content.WriteString(r.styles.Help.Render("Press ? for help"))
	}

	mainStyle := r.styles.Main
	if state.Height > 0 {
		mainStyle = mainStyle.MaxHeight(state.Height)
	}
	finalContent := mainStyle.Render(content.String())

	if state.ConfirmDelete > 0 {
		prompt := r.styles.Confirm.Render(fmt.Sprintf("Delete %d selected %s? (y/n)", state.ConfirmDelete, plural(state.ConfirmDelete, "record")))
		return r.popupRender.RenderPopupOverlay(finalContent, prompt, state.Height, state.Width)
	}
	return finalContent
}

func (r *Renderer) renderTitle(state ViewState) string {
	logo := r.styles.Title.Render("crmgrip")

	var right []string
	if state.FilterQuery != "" {
		right = append(right, r.styles.Filter.Render(fmt.Sprintf("[Filter: %s]", state.FilterQuery)))
	}
	if state.SortMode != "" {
		right = append(right, r.styles.Dim.Render("sort: "+state.SortMode))
	}
	if state.Pass > 0 {
		right = append(right, r.styles.Dim.Render(fmt.Sprintf("pass %d", state.Pass)))
	}
	if len(right) == 0 {
		return logo
	}

	rightContent := strings.Join(right, "  ")
	termWidth := state.Width
	if termWidth <= 0 {
		termWidth = 80
	}
	padding := termWidth - 4 - lipgloss.Width(logo) - lipgloss.Width(rightContent)
	if padding < 2 {
		padding = 2
	}
	return logo + strings.Repeat(" ", padding) + rightContent
}

func (r *Renderer) renderTabs(state ViewState) string {
	tabs := make([]string, 0, len(state.Scopes))
	for i, scope := range state.Scopes {
		label := fmt.Sprintf("%d %s", i+1, scope)
		if scope == state.ActiveScope {
			tabs = append(tabs, r.styles.TabActive.Render(label))
		} else {
			tabs = append(tabs, r.styles.Tab.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// RenderActionBar draws the bulk-action bar for a projection
func (r *Renderer) RenderActionBar(p actionbar.Projection) string {
	parts := []string{r.styles.Header.Render(fmt.Sprintf("%d selected", p.Count))}
	for _, action := range actionbar.Actions {
		if p.Enabled(action) {
			parts = append(parts, r.styles.ActionEnabled.Render(action))
		} else {
			parts = append(parts, r.styles.ActionDisabled.Render(action))
		}
	}
	return r.styles.ActionBar.Render(strings.Join(parts, "  "))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
