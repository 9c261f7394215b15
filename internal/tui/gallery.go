package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) updateGallery(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.lists)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Open):
		if m.busy || len(m.lists) == 0 {
			return m, nil
		}
		m.busy = true
		m.status = ""
		return m, loadListCmd(m.backend, m.lists[m.cursor].ID)
	case key.Matches(msg, keys.New):
		m.screen = screenCompose
		m.ed.Reset()
		m.field = 0
		m.addCol = false
		m.err = ""
		m.status = ""
	case key.Matches(msg, keys.Refresh):
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.err = ""
		return m, loadListsCmd(m.backend)
	case key.Matches(msg, keys.SignOut):
		if m.busy {
			return m, nil
		}
		m.busy = true
		return m, signOutCmd(m.backend)
	case msg.String() == "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) viewGallery() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Mis listas") + "\n\n")
	if len(m.lists) == 0 && !m.busy {
		b.WriteString(mutedStyle.Render("Aún no tienes listas. Pulsa n para crear una.") + "\n")
	}
	for i, l := range m.lists {
		line := fmt.Sprintf("%-30s %3d ítems  %s", l.Title, l.ItemCount, l.CreatedAt.Local().Format("02/01/2006"))
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("› "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	b.WriteString("\n" + helpStyle.Render("↑/↓ mover • enter abrir • n nueva • r recargar • ctrl+o cerrar sesión • q salir"))
	return b.String()
}
