package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harrylevesque/listqr/internal/viewer"
)

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Back) || msg.String() == "q" {
		m.screen = screenGallery
		m.err = ""
	}
	return m, nil
}

func (m Model) viewDetail() string {
	l := m.detail.List
	header := viewer.Header(l)
	rows := viewer.Rows(l)

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, r := range rows {
		for i, v := range r {
			widths[i] = max(widths[i], lipgloss.Width(v))
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(l.Title) + "\n\n")
	if len(header) == 0 {
		b.WriteString(mutedStyle.Render("Esta lista no tiene ítems.") + "\n")
	} else {
		cells := make([]string, len(header))
		for i, h := range header {
			cells[i] = headerCell.Width(widths[i]).Render(h)
		}
		b.WriteString(strings.Join(cells, "  ") + "\n")
		for _, r := range rows {
			for i, v := range r {
				cells[i] = lipgloss.NewStyle().Width(widths[i]).Render(v)
			}
			b.WriteString(strings.Join(cells, "  ") + "\n")
		}
	}
	if m.detail.ShareURL != "" {
		b.WriteString("\n" + mutedStyle.Render("Compartir: ") + accentStyle.Render(m.detail.ShareURL) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("esc volver"))
	return b.String()
}
