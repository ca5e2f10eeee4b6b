// Package tui is a terminal front end for one calculator engine.
package tui

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-chi-calculator/internal/engine"
	"go-chi-calculator/internal/keypad"
)

const displayWidth = 24

var (
	displayStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(displayWidth).
			Align(lipgloss.Right).
			Bold(true)
	errorStyle = displayStyle.Foreground(lipgloss.Color("196"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const hint = "0-9 . + - * /   enter/= equals   esc/c clear   q quit"

// Model is a bubbletea model wrapping one engine.
type Model struct {
	engine   *engine.Engine
	ignored  string
	quitting bool
}

func New() Model {
	return Model{engine: engine.New()}
}

// Display returns what the calculator currently shows.
func (m Model) Display() string { return m.engine.Display() }

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	var key string
	switch keyMsg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	case "enter":
		key = "Enter"
	case "esc", "c":
		key = "Escape"
	default:
		key = keyMsg.String()
	}

	m.ignored = ""
	if _, err := keypad.Press(m.engine, key); errors.Is(err, keypad.ErrUnknownKey) {
		m.ignored = key
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	style := displayStyle
	if m.engine.Display() == engine.ErrorDisplay {
		style = errorStyle
	}

	var b strings.Builder
	b.WriteString(style.Render(m.engine.Display()))
	b.WriteString("\n")
	if m.ignored != "" {
		b.WriteString(hintStyle.Render("ignored key " + m.ignored))
		b.WriteString("\n")
	}
	b.WriteString(hintStyle.Render(hint))
	b.WriteString("\n")
	return b.String()
}
