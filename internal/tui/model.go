// Package tui is the terminal shell: sign-in, gallery, composer and a
// read-only list view, gated on the session the client holds.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harrylevesque/listqr/internal/auth"
	"github.com/harrylevesque/listqr/internal/dtos"
	"github.com/harrylevesque/listqr/internal/editor"
	"github.com/harrylevesque/listqr/internal/models"
)

// Backend is what the shell needs from the API client.
type Backend interface {
	CurrentSession(ctx context.Context) (*models.Identity, error)
	SignIn(ctx context.Context, email, password string) (models.Identity, error)
	SignUp(ctx context.Context, email, password string) (models.Identity, error)
	SignOut(ctx context.Context) error
	Lists(ctx context.Context) ([]models.ListSummary, error)
	CreateList(ctx context.Context, req dtos.CreateListRequest) (dtos.GetListResponse, error)
	GetList(ctx context.Context, idOrPublicID string) (dtos.GetListResponse, error)
}

type screen int

const (
	screenLoading screen = iota
	screenSignIn
	screenGallery
	screenCompose
	screenDetail
)

const requestTimeout = 15 * time.Second

// Messages produced by commands.
type (
	sessionLoadedMsg struct {
		identity *models.Identity
		err      error
	}
	// SessionChangedMsg is sent by Run for every client session event.
	SessionChangedMsg struct{ Event auth.SessionEvent }

	authDoneMsg struct {
		identity models.Identity
		err      error
	}
	listsLoadedMsg struct {
		lists []models.ListSummary
		err   error
	}
	listLoadedMsg struct {
		list dtos.GetListResponse
		err  error
	}
	listCreatedMsg struct {
		list dtos.GetListResponse
		err  error
	}
	signedOutMsg struct{ err error }
)

type keyMap struct {
	Quit    key.Binding
	Back    key.Binding
	Up      key.Binding
	Down    key.Binding
	Open    key.Binding
	New     key.Binding
	Refresh key.Binding
	SignOut key.Binding
	Toggle  key.Binding
	Next    key.Binding
	Prev    key.Binding
	AddRow  key.Binding
	AddCol  key.Binding
	Save    key.Binding
	Submit  key.Binding
}

var keys = keyMap{
	Quit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "salir")),
	Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "volver")),
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "arriba")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "abajo")),
	Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "abrir")),
	New:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "nueva lista")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "recargar")),
	SignOut: key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "cerrar sesión")),
	Toggle:  key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "entrar/registrarse")),
	Next:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "siguiente")),
	Prev:    key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "anterior")),
	AddRow:  key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "fila")),
	AddCol:  key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("ctrl+k", "columna")),
	Save:    key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "guardar")),
	Submit:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "enviar")),
}

// Model is the root bubbletea model.
type Model struct {
	backend  Backend
	screen   screen
	identity *models.Identity
	busy     bool
	err      string
	status   string
	width    int

	// sign-in
	email    textinput.Model
	password textinput.Model
	signUp   bool
	focusPw  bool

	// gallery
	lists  []models.ListSummary
	cursor int

	// composer
	ed      *editor.Editor
	field   int // 0 title, then row-major cells
	addCol  bool
	pending textinput.Model

	// detail
	detail dtos.GetListResponse
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "> "
	ti.CharLimit = 200
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

func New(b Backend) Model {
	m := Model{
		backend:  b,
		screen:   screenLoading,
		email:    newInput("correo@ejemplo.com"),
		password: newInput("contraseña"),
		pending:  newInput("Nueva columna"),
		ed:       editor.New(),
	}
	m.password.EchoMode = textinput.EchoPassword
	m.password.EchoCharacter = '•'
	return m
}

func (m Model) Init() tea.Cmd {
	return loadSessionCmd(m.backend)
}

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func loadSessionCmd(b Backend) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		id, err := b.CurrentSession(ctx)
		return sessionLoadedMsg{identity: id, err: err}
	}
}

func loadListsCmd(b Backend) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		lists, err := b.Lists(ctx)
		return listsLoadedMsg{lists: lists, err: err}
	}
}

func loadListCmd(b Backend, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		l, err := b.GetList(ctx, id)
		return listLoadedMsg{list: l, err: err}
	}
}

func authCmd(b Backend, signUp bool, email, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		var (
			id  models.Identity
			err error
		)
		if signUp {
			id, err = b.SignUp(ctx, email, password)
		} else {
			id, err = b.SignIn(ctx, email, password)
		}
		return authDoneMsg{identity: id, err: err}
	}
}

func signOutCmd(b Backend) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		return signedOutMsg{err: b.SignOut(ctx)}
	}
}

func createListCmd(b Backend, req dtos.CreateListRequest) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		l, err := b.CreateList(ctx, req)
		return listCreatedMsg{list: l, err: err}
	}
}

// setIdentity routes to the gallery or the sign-in screen.
func (m Model) setIdentity(id *models.Identity) (Model, tea.Cmd) {
	m.identity = id
	m.busy = false
	if id == nil {
		m.screen = screenSignIn
		m.lists = nil
		m.password.SetValue("")
		m.focusPw = false
		m.password.Blur()
		return m, m.email.Focus()
	}
	if m.screen == screenSignIn || m.screen == screenLoading {
		m.screen = screenGallery
		m.err = ""
		m.busy = true
		return m, loadListsCmd(m.backend)
	}
	return m, nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case sessionLoadedMsg:
		if msg.err != nil {
			m.err = models.UserMessage(msg.err, "No se pudo contactar al servidor")
		}
		return m.setIdentity(msg.identity)

	case SessionChangedMsg:
		if msg.Event.Kind == auth.SignedOut {
			return m.setIdentity(nil)
		}
		return m.setIdentity(msg.Event.Identity)

	case authDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.err = models.UserMessage(msg.err, "No se pudo iniciar sesión")
			return m, nil
		}
		id := msg.identity
		return m.setIdentity(&id)

	case signedOutMsg:
		m.busy = false
		if msg.err != nil {
			m.err = models.UserMessage(msg.err, "No se pudo cerrar sesión")
			return m, nil
		}
		return m.setIdentity(nil)

	case listsLoadedMsg:
		m.busy = false
		if msg.err != nil {
			m.err = models.UserMessage(msg.err, "Error al cargar las listas")
			return m, nil
		}
		m.lists = msg.lists
		if m.cursor >= len(m.lists) {
			m.cursor = max(0, len(m.lists)-1)
		}
		return m, nil

	case listLoadedMsg:
		m.busy = false
		if msg.err != nil {
			m.err = models.UserMessage(msg.err, "Error al cargar la lista")
			return m, nil
		}
		m.detail = msg.list
		m.screen = screenDetail
		m.err = ""
		return m, nil

	case listCreatedMsg:
		m.busy = false
		if msg.err != nil {
			m.err = models.UserMessage(msg.err, "Error al crear la lista")
			return m, nil
		}
		m.ed.Reset()
		m.field = 0
		m.screen = screenGallery
		m.err = ""
		m.status = "Lista creada: " + msg.list.List.Title
		m.busy = true
		return m, loadListsCmd(m.backend)

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		switch m.screen {
		case screenSignIn:
			return m.updateSignIn(msg)
		case screenGallery:
			return m.updateGallery(msg)
		case screenCompose:
			return m.updateCompose(msg)
		case screenDetail:
			return m.updateDetail(msg)
		}
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("listqr"))
	if m.identity != nil {
		b.WriteString("  " + mutedStyle.Render(m.identity.Email))
	}
	b.WriteString("\n\n")

	switch m.screen {
	case screenLoading:
		b.WriteString(mutedStyle.Render("Cargando…"))
	case screenSignIn:
		b.WriteString(m.viewSignIn())
	case screenGallery:
		b.WriteString(m.viewGallery())
	case screenCompose:
		b.WriteString(m.viewCompose())
	case screenDetail:
		b.WriteString(m.viewDetail())
	}

	if m.busy {
		b.WriteString("\n" + accentStyle.Render("Procesando…"))
	}
	if m.err != "" {
		b.WriteString("\n" + errorStyle.Render("✖ "+m.err))
	} else if m.status != "" {
		b.WriteString("\n" + accentStyle.Render(m.status))
	}
	return b.String() + "\n"
}
