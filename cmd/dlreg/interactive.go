package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/multierr"

	"github.com/wippyai/dynlib"
	"github.com/wippyai/dynlib/config"
	"github.com/wippyai/dynlib/registry"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	tombStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Strikethrough(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateBrowse modelState = iota
	stateOpenInput
	stateSymbolInput
)

// interactiveModel drives the registry from the bubbletea update loop.
// All registry calls happen inside Update, never in a tea.Cmd, so the
// context is only ever touched from one goroutine.
type interactiveModel struct {
	err      error
	dl       *dynlib.Context
	input    textinput.Model
	result   string
	records  []registry.Record
	selected int
	state    modelState
	quitting bool
}

func newInteractiveModel(dl *dynlib.Context) *interactiveModel {
	m := &interactiveModel{
		dl:    dl,
		state: stateBrowse,
	}
	m.refresh()
	return m
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) refresh() {
	m.records = m.dl.Libraries().Records()
	if m.selected >= len(m.records) {
		m.selected = len(m.records) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.state != stateBrowse {
		return m.updateInput(key)
	}

	switch key.String() {
	case "ctrl+c", "q":
		m.err = m.dl.Close()
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.selected < len(m.records)-1 {
			m.selected++
		}

	case "o":
		m.prepareInput(stateOpenInput, "library: ", "physicsPlugin")

	case "s":
		if rec, ok := m.current(); ok && rec.Live() {
			m.prepareInput(stateSymbolInput, "symbol: ", "plugin_init")
		}

	case "c":
		rec, ok := m.current()
		if !ok || !rec.Live() {
			break
		}
		// Close picks the newest live record of that name, which may not be
		// the selected row when a name is loaded twice.
		m.setResult(fmt.Sprintf("closed %s", rec.Name), m.dl.Libraries().Close(rec.Name, true))
		m.refresh()
	}

	return m, nil
}

func (m *interactiveModel) updateInput(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "ctrl+c":
		m.err = m.dl.Close()
		m.quitting = true
		return m, tea.Quit

	case "esc":
		m.state = stateBrowse
		return m, nil

	case "enter":
		value := strings.TrimSpace(m.input.Value())
		state := m.state
		m.state = stateBrowse
		if value == "" {
			return m, nil
		}
		switch state {
		case stateOpenInput:
			m.setResult(fmt.Sprintf("opened %s", value), m.dl.Libraries().Open(value, true))
			m.refresh()
			if m.err == nil {
				m.selected = len(m.records) - 1
			}
		case stateSymbolInput:
			m.probe(value)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	return m, cmd
}

func (m *interactiveModel) prepareInput(state modelState, prompt, placeholder string) {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.Placeholder = placeholder
	ti.Width = 40
	ti.Focus()
	m.input = ti
	m.state = state
}

func (m *interactiveModel) probe(symbol string) {
	rec, ok := m.current()
	if !ok || !rec.Live() {
		return
	}
	ld := m.dl.Loader()
	if !ld.SymbolExists(rec.Handle, symbol) {
		m.setResult("", fmt.Errorf("%s: symbol %q not found", rec.Name, symbol))
		return
	}
	addr, err := ld.Symbol(rec.Handle, symbol)
	m.setResult(fmt.Sprintf("%s.%s = %#x", rec.Name, symbol, addr), err)
}

func (m *interactiveModel) setResult(result string, err error) {
	m.err = err
	if err != nil {
		m.result = ""
		return
	}
	m.result = result
}

func (m *interactiveModel) current() (registry.Record, bool) {
	if m.selected < 0 || m.selected >= len(m.records) {
		return registry.Record{}, false
	}
	return m.records[m.selected], true
}

func (m *interactiveModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Library Registry"))
	b.WriteString(" ")
	b.WriteString(m.dl.Loader().Platform().Name())
	b.WriteString("\n\n")

	if len(m.records) == 0 {
		b.WriteString(helpStyle.Render("no libraries loaded"))
		b.WriteString("\n")
	}
	for i, rec := range m.records {
		line := m.formatRecord(i, rec)
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch m.state {
	case stateOpenInput, stateSymbolInput:
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter confirm • esc back"))

	default:
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n\n")
		} else if m.result != "" {
			b.WriteString(resultStyle.Render(m.result))
			b.WriteString("\n\n")
		}
		b.WriteString(helpStyle.Render("↑/↓ select • o open • c close • s symbol • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatRecord(i int, rec registry.Record) string {
	if !rec.Live() {
		return tombStyle.Render(fmt.Sprintf("#%d closed", i))
	}
	path, _ := m.dl.Loader().Path(rec.Handle)
	return fmt.Sprintf("#%d %s %s", i, nameStyle.Render(rec.Name), pathStyle.Render(path))
}

func runInteractive(dl *dynlib.Context, cfg *config.Config, entry string, libs []string) error {
	m := newInteractiveModel(dl)
	if err := openRequested(dl, cfg, entry, libs); err != nil {
		m.err = fmt.Errorf("%d libraries failed to load", len(multierr.Errors(err)))
	}
	m.refresh()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		_ = dl.Close()
		return err
	}
	return m.err
}
