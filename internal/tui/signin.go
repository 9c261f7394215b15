package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harrylevesque/listqr/internal/auth"
	"github.com/harrylevesque/listqr/internal/models"
)

func (m Model) updateSignIn(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Toggle):
		m.signUp = !m.signUp
		m.err = ""
		return m, nil

	case key.Matches(msg, keys.Next), key.Matches(msg, keys.Prev):
		m.focusPw = !m.focusPw
		if m.focusPw {
			m.email.Blur()
			return m, m.password.Focus()
		}
		m.password.Blur()
		return m, m.email.Focus()

	case key.Matches(msg, keys.Submit):
		if m.busy {
			return m, nil
		}
		email := strings.TrimSpace(m.email.Value())
		password := m.password.Value()
		var err error
		if m.signUp {
			err = auth.ValidateSignUp(email, password)
		} else {
			err = auth.LoginRequest{Email: email, Password: password}.Validate()
		}
		if err != nil {
			m.err = models.UserMessage(err, "Datos inválidos")
			return m, nil
		}
		m.err = ""
		m.busy = true
		return m, authCmd(m.backend, m.signUp, email, password)
	}

	var cmd tea.Cmd
	if m.focusPw {
		m.password, cmd = m.password.Update(msg)
	} else {
		m.email, cmd = m.email.Update(msg)
	}
	return m, cmd
}

func (m Model) viewSignIn() string {
	var b strings.Builder
	if m.signUp {
		b.WriteString(titleStyle.Render("Crear cuenta") + "\n\n")
	} else {
		b.WriteString(titleStyle.Render("Iniciar sesión") + "\n\n")
	}
	b.WriteString("Correo\n" + m.email.View() + "\n\n")
	b.WriteString("Contraseña\n" + m.password.View() + "\n\n")
	alt := "¿No tienes cuenta? ctrl+t para registrarte"
	if m.signUp {
		alt = "¿Ya tienes cuenta? ctrl+t para entrar"
	}
	b.WriteString(mutedStyle.Render(alt) + "\n")
	b.WriteString(helpStyle.Render("tab cambiar campo • enter enviar • ctrl+c salir"))
	return panelStyle.Render(b.String())
}
