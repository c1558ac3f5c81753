// Package labeledspinner shows a spinner next to a short status line while
// the recorder is between states.
package labeledspinner

import (
	"strings"

	"github.com/alkime/screenrec/internal/tui/style"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Model displays a spinner with a title and an optional detail line.
type Model struct {
	Spinner spinner.Model
	Title   string
	Detail  string
}

// New creates a labeled spinner using the given spinner frames.
func New(s spinner.Spinner, title string) Model {
	sp := spinner.New()
	sp.Spinner = s

	return Model{
		Spinner: sp,
		Title:   title,
	}
}

// WithLabel returns a copy showing title and detail.
func (ls Model) WithLabel(title, detail string) Model {
	ls.Title = title
	ls.Detail = detail

	return ls
}

// Init returns the initial command for the spinner.
func (ls Model) Init() tea.Cmd {
	return ls.Spinner.Tick
}

// Update handles spinner tick messages.
func (ls Model) Update(teaMsg tea.Msg) (Model, tea.Cmd) {
	if tickMsg, ok := teaMsg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		ls.Spinner, cmd = ls.Spinner.Update(tickMsg)

		return ls, cmd
	}

	return ls, nil
}

// View renders the spinner, title and detail on one line.
func (ls Model) View() string {
	var sb strings.Builder

	sb.WriteString(ls.Spinner.View())
	sb.WriteString(" ")
	sb.WriteString(style.Title.Render(ls.Title))

	if ls.Detail != "" {
		sb.WriteString(" ")
		sb.WriteString(style.Subtitle.Render(ls.Detail))
	}

	return sb.String()
}
