package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/scry-dev/scry/internal/schema"
)

// keyMap defines keybindings for the interactive TUI.
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Quit     key.Binding
	Help     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Quit, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Quit, k.Help},
	}
}

var defaultKeyMap = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("^/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("v/j", "down")),
	PageUp:   key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
	PageDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
}

// Styles for the TUI.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			MarginBottom(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	tuiHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	tuiBorderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63"))

	confHighStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("40"))
	confMediumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	confLowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
)

// extractModel is the Bubble Tea model for browsing derived schemas.
type extractModel struct {
	schemas  []*schema.Schema
	viewport viewport.Model
	help     help.Model
	keys     keyMap
	ready    bool
	content  string
}

func newExtractModel(schemas []*schema.Schema) extractModel {
	h := help.New()
	content := renderExtractContent(schemas)
	return extractModel{
		schemas: schemas,
		help:    h,
		keys:    defaultKeyMap,
		content: content,
	}
}

func renderExtractContent(schemas []*schema.Schema) string {
	var sb strings.Builder

	totalParams := 0
	for _, sc := range schemas {
		totalParams += len(sc.Input)
	}

	sb.WriteString(titleStyle.Render(
		fmt.Sprintf("Scry Extraction: %d schema(s), %d parameter(s)",
			len(schemas), totalParams)))
	sb.WriteString("\n\n")

	for _, sc := range schemas {
		name := sc.Function
		if sc.Module != "" {
			name = sc.Module + "." + sc.Function
		}
		sb.WriteString(tuiHeaderStyle.Render(fmt.Sprintf("=== %s ===", name)))
		sb.WriteString("\n")
		sb.WriteString(statusStyle.Render(fmt.Sprintf("    input: %s  output: %s",
			sc.InputConfidence, sc.OutputConfidence)))
		sb.WriteString("\n")

		params := sc.ParamsInOrder()
		if len(params) == 0 {
			sb.WriteString(statusStyle.Render("    No parameters."))
			sb.WriteString("\n\n")
			continue
		}

		rows := make([][]string, 0, len(params))
		for _, p := range params {
			desc := paramSummary(p)
			if len(desc) > 50 {
				desc = desc[:47] + "..."
			}
			rows = append(rows, []string{
				p.Name,
				string(p.Type),
				string(p.Optional),
				desc,
			})
		}

		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(tuiBorderStyle).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return tuiHeaderStyle
				}
				if col == 2 && row >= 0 && row < len(rows) {
					switch rows[row][2] {
					case string(schema.Required):
						return confHighStyle
					case string(schema.Optional):
						return confMediumStyle
					case string(schema.OptionalUnknown):
						return confLowStyle
					}
				}
				return lipgloss.NewStyle()
			}).
			Headers("PARAM", "TYPE", "OPTIONAL", "DETAIL").
			Rows(rows...)

		sb.WriteString(t.String())
		sb.WriteString("\n\n")
	}

	return sb.String()
}

// paramSummary condenses one parameter spec into a single cell.
func paramSummary(p *schema.ParameterSpec) string {
	var parts []string
	if p.Min != nil || p.Max != nil {
		bound := ""
		if p.Min != nil {
			bound += fmt.Sprintf("%g", *p.Min)
		}
		bound += ".."
		if p.Max != nil {
			bound += fmt.Sprintf("%g", *p.Max)
		}
		parts = append(parts, bound)
	}
	if len(p.Enum) > 0 {
		parts = append(parts, "enum{"+strings.Join(p.Enum, ",")+"}")
	}
	if p.Matches != "" {
		parts = append(parts, "matches "+p.Matches)
	}
	if p.Class != "" {
		parts = append(parts, p.Class)
	}
	if p.Semantic != "" {
		parts = append(parts, string(p.Semantic))
	}
	return strings.Join(parts, ", ")
}

func (m extractModel) Init() tea.Cmd {
	return nil
}

func (m extractModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		headerHeight := 0
		footerHeight := 2
		verticalMargin := headerHeight + footerHeight

		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-verticalMargin)
			m.viewport.SetContent(m.content)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - verticalMargin
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m extractModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	footer := statusStyle.Render(
		fmt.Sprintf(" %3.f%% ", m.viewport.ScrollPercent()*100)) +
		" " + m.help.View(m.keys)

	return m.viewport.View() + "\n" + footer
}

// runInteractiveExtract launches the Bubble Tea TUI for browsing
// derived schemas.
func runInteractiveExtract(schemas []*schema.Schema) error {
	model := newExtractModel(schemas)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}
