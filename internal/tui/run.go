package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harrylevesque/listqr/internal/auth"
)

// SessionSource is a Backend that also reports session changes.
type SessionSource interface {
	Backend
	OnSessionChange(fn func(auth.SessionEvent)) (cancel func())
}

// Run starts the shell and blocks until the user quits or ctx is done.
func Run(ctx context.Context, b SessionSource) error {
	p := tea.NewProgram(New(b), tea.WithAltScreen(), tea.WithContext(ctx))
	cancel := b.OnSessionChange(func(ev auth.SessionEvent) {
		p.Send(SessionChangedMsg{Event: ev})
	})
	defer cancel()
	_, err := p.Run()
	return err
}
