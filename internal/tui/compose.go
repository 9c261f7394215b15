package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harrylevesque/listqr/internal/dtos"
	"github.com/harrylevesque/listqr/internal/models"
)

// fieldCount is the title plus one field per cell.
func (m Model) fieldCount() int {
	return 1 + m.ed.RowCount()*len(m.ed.Columns())
}

// cellAt maps a field index (>= 1) to its row and column name.
func (m Model) cellAt(field int) (int, string) {
	cols := m.ed.Columns()
	i := field - 1
	return i / len(cols), cols[i%len(cols)]
}

func (m Model) fieldValue() string {
	if m.field == 0 {
		return m.ed.Title()
	}
	row, col := m.cellAt(m.field)
	return m.ed.Cell(row, col)
}

func (m Model) setFieldValue(v string) {
	if m.field == 0 {
		m.ed.SetTitle(v)
		return
	}
	row, col := m.cellAt(m.field)
	_ = m.ed.SetCell(row, col, v)
}

func (m Model) updateCompose(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.addCol {
		return m.updatePendingColumn(msg)
	}

	switch {
	case key.Matches(msg, keys.Back):
		m.screen = screenGallery
		m.err = ""
		return m, nil

	case key.Matches(msg, keys.Save):
		if m.busy {
			return m, nil
		}
		if err := m.ed.Validate(); err != nil {
			m.err = models.UserMessage(err, "Revisa la lista")
			return m, nil
		}
		m.err = ""
		m.busy = true
		return m, createListCmd(m.backend, dtos.CreateListRequest{
			Title:   m.ed.Title(),
			Columns: m.ed.Columns(),
			Rows:    m.ed.Rows(),
		})

	case key.Matches(msg, keys.Next):
		m.field = (m.field + 1) % m.fieldCount()
		return m, nil

	case key.Matches(msg, keys.Prev):
		m.field = (m.field - 1 + m.fieldCount()) % m.fieldCount()
		return m, nil

	case key.Matches(msg, keys.AddRow):
		m.ed.AddRow()
		m.field = 1 + (m.ed.RowCount()-1)*len(m.ed.Columns())
		return m, nil

	case key.Matches(msg, keys.AddCol):
		m.addCol = true
		m.pending.SetValue(m.ed.PendingColumnName())
		return m, m.pending.Focus()
	}

	switch msg.Type {
	case tea.KeyRunes:
		m.setFieldValue(m.fieldValue() + string(msg.Runes))
	case tea.KeySpace:
		m.setFieldValue(m.fieldValue() + " ")
	case tea.KeyBackspace:
		r := []rune(m.fieldValue())
		if len(r) > 0 {
			m.setFieldValue(string(r[:len(r)-1]))
		}
	}
	return m, nil
}

func (m Model) updatePendingColumn(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		m.addCol = false
		m.pending.Blur()
		m.ed.SetPendingColumnName(m.pending.Value())
		return m, nil
	case key.Matches(msg, keys.Submit):
		m.ed.SetPendingColumnName(m.pending.Value())
		if m.ed.CommitPendingColumn() {
			m.pending.SetValue("")
			m.addCol = false
			m.pending.Blur()
			m.err = ""
		} else {
			m.err = "Esa columna ya existe o está vacía"
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.pending, cmd = m.pending.Update(msg)
	return m, cmd
}

func (m Model) viewCompose() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Nueva lista") + "\n\n")

	title := m.ed.Title()
	if title == "" {
		title = mutedStyle.Render("Título de la lista")
	}
	if m.field == 0 && !m.addCol {
		title = selectedStyle.Render(m.ed.Title() + "_")
	}
	b.WriteString("Título: " + title + "\n\n")

	cols := m.ed.Columns()
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = max(12, lipgloss.Width(c))
		for r := 0; r < m.ed.RowCount(); r++ {
			widths[i] = max(widths[i], lipgloss.Width(m.ed.Cell(r, c))+1)
		}
	}
	cells := make([]string, len(cols))
	for i, c := range cols {
		cells[i] = headerCell.Width(widths[i]).Render(c)
	}
	b.WriteString(strings.Join(cells, " │ ") + "\n")
	for r := 0; r < m.ed.RowCount(); r++ {
		for i, c := range cols {
			v := m.ed.Cell(r, c)
			st := lipgloss.NewStyle().Width(widths[i])
			if !m.addCol && m.field == 1+r*len(cols)+i {
				st = selectedStyle.Width(widths[i])
				v += "_"
			}
			cells[i] = st.Render(v)
		}
		b.WriteString(strings.Join(cells, " │ ") + "\n")
	}

	if m.addCol {
		b.WriteString("\nNueva columna\n" + m.pending.View() + "\n")
		b.WriteString(helpStyle.Render("enter añadir • esc cancelar"))
	} else {
		b.WriteString("\n" + helpStyle.Render(fmt.Sprintf(
			"tab siguiente campo • ctrl+n fila • ctrl+k columna • ctrl+s guardar • esc volver  (%d filas)",
			m.ed.RowCount())))
	}
	return b.String()
}
