package labeledspinner_test

import (
	"testing"

	"github.com/alkime/screenrec/internal/tui/components/labeledspinner"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

//nolint:gochecknoinits // recommend for CI by bubbletea folks
func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func TestLabeledSpinner(t *testing.T) {
	m := labeledspinner.New(spinner.Dot, "Starting")

	t.Run("initial state", func(t *testing.T) {
		assert.Equal(t, "Starting", m.Title)
		assert.Empty(t, m.Detail)
		assert.Equal(t, spinner.Dot, m.Spinner.Spinner)
	})

	t.Run("relabel keeps the spinner", func(t *testing.T) {
		relabeled := m.WithLabel("Stopping", "waiting for wf-recorder")
		v := relabeled.View()

		assert.Contains(t, v, "Stopping")
		assert.Contains(t, v, "waiting for wf-recorder")
		assert.Equal(t, "Starting", m.Title, "the source model is untouched")
	})

	t.Run("check updates", func(t *testing.T) {
		v0 := m.View()
		assert.Contains(t, v0, spinner.Dot.Frames[0])
		m, _ = m.Update(spinner.TickMsg{})
		assert.Contains(t, m.View(), spinner.Dot.Frames[1])
		m, _ = m.Update(spinner.TickMsg{})
		assert.Contains(t, m.View(), spinner.Dot.Frames[2])
	})
}
