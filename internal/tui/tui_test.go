package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/harrylevesque/listqr/internal/auth"
	"github.com/harrylevesque/listqr/internal/dtos"
	"github.com/harrylevesque/listqr/internal/editor"
	"github.com/harrylevesque/listqr/internal/models"
)

type fakeBackend struct {
	identity  *models.Identity
	password  string
	lists     []models.ListSummary
	created   []dtos.CreateListRequest
	signIns   int
	createErr error
}

func (f *fakeBackend) CurrentSession(context.Context) (*models.Identity, error) {
	return f.identity, nil
}

func (f *fakeBackend) SignIn(_ context.Context, email, password string) (models.Identity, error) {
	f.signIns++
	if password != f.password {
		return models.Identity{}, models.ErrInvalidCredentials
	}
	f.identity = &models.Identity{UserID: "u--1", Email: email, IssuedAt: time.Now()}
	return *f.identity, nil
}

func (f *fakeBackend) SignUp(ctx context.Context, email, password string) (models.Identity, error) {
	f.password = password
	return f.SignIn(ctx, email, password)
}

func (f *fakeBackend) SignOut(context.Context) error {
	f.identity = nil
	return nil
}

func (f *fakeBackend) Lists(context.Context) ([]models.ListSummary, error) {
	return f.lists, nil
}

func (f *fakeBackend) CreateList(_ context.Context, req dtos.CreateListRequest) (dtos.GetListResponse, error) {
	if f.createErr != nil {
		return dtos.GetListResponse{}, f.createErr
	}
	f.created = append(f.created, req)
	f.lists = append([]models.ListSummary{{ID: "l1", PublicID: "pub1", Title: req.Title, ItemCount: len(req.Rows)}}, f.lists...)
	return dtos.GetListResponse{List: models.List{ID: "l1", PublicID: "pub1", Title: req.Title}}, nil
}

func (f *fakeBackend) GetList(_ context.Context, id string) (dtos.GetListResponse, error) {
	for _, l := range f.lists {
		if l.ID == id {
			return dtos.GetListResponse{
				List: models.List{ID: l.ID, PublicID: l.PublicID, Title: l.Title, Items: []models.Item{
					{ID: "i1", ColumnData: models.NewColumnData(editor.DefaultColumn, "Leche", "Cantidad", "2")},
				}},
				ShareURL: "http://localhost:8080/list/" + l.PublicID,
			}, nil
		}
	}
	return dtos.GetListResponse{}, models.ErrNotFound
}

func runeKey(k string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func special(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

func apply(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	got, ok := next.(Model)
	require.True(t, ok, "Update returned %T", next)
	return drain(t, got, cmd)
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m = apply(t, m, runeKey(string(r)))
	}
	return m
}

func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for i := 0; cmd != nil && i < 32; i++ {
		msg := cmd()
		if msg == nil {
			return m
		}
		next, nextCmd := m.Update(msg)
		got, ok := next.(Model)
		require.True(t, ok)
		m = got
		cmd = nextCmd
	}
	require.Nil(t, cmd, "command chain exceeded max depth")
	return m
}

func start(t *testing.T, b Backend) Model {
	t.Helper()
	m := New(b)
	return drain(t, m, m.Init())
}

func signedIn(t *testing.T, f *fakeBackend) Model {
	t.Helper()
	f.identity = &models.Identity{UserID: "u--1", Email: "ana@example.com"}
	m := start(t, f)
	require.Equal(t, screenGallery, m.screen)
	return m
}

func TestAnonymousStartsAtSignIn(t *testing.T) {
	m := start(t, &fakeBackend{})
	require.Equal(t, screenSignIn, m.screen)
	require.Contains(t, m.View(), "Iniciar sesión")
}

func TestSignInReachesGallery(t *testing.T) {
	f := &fakeBackend{password: "secreto", lists: []models.ListSummary{{ID: "a", Title: "Viaje", ItemCount: 3}}}
	m := start(t, f)

	m = typeText(t, m, "ana@example.com")
	m = apply(t, m, special(tea.KeyTab))
	m = typeText(t, m, "secreto")
	m = apply(t, m, special(tea.KeyEnter))

	require.Equal(t, screenGallery, m.screen)
	require.False(t, m.busy)
	require.Len(t, m.lists, 1)
	require.Contains(t, m.View(), "Viaje")
	require.Contains(t, m.View(), "ana@example.com")
}

func TestSignInErrors(t *testing.T) {
	f := &fakeBackend{password: "secreto"}
	m := start(t, f)

	m = apply(t, m, special(tea.KeyEnter))
	require.Equal(t, "Ingresa tu correo y contraseña", m.err)
	require.Zero(t, f.signIns)

	m = typeText(t, m, "ana@example.com")
	m = apply(t, m, special(tea.KeyTab))
	m = typeText(t, m, "otra")
	m = apply(t, m, special(tea.KeyEnter))
	require.Equal(t, screenSignIn, m.screen)
	require.Equal(t, "Correo o contraseña incorrectos", m.err)
	require.Equal(t, 1, f.signIns)
}

func TestSignUpValidatesPasswordLength(t *testing.T) {
	f := &fakeBackend{}
	m := start(t, f)
	m = apply(t, m, special(tea.KeyCtrlT))
	require.True(t, m.signUp)

	m = typeText(t, m, "ana@example.com")
	m = apply(t, m, special(tea.KeyTab))
	m = typeText(t, m, "123")
	m = apply(t, m, special(tea.KeyEnter))
	require.NotEmpty(t, m.err)
	require.Zero(t, f.signIns)
}

func TestComposeValidatesThenSaves(t *testing.T) {
	f := &fakeBackend{}
	m := signedIn(t, f)

	m = apply(t, m, runeKey("n"))
	require.Equal(t, screenCompose, m.screen)

	m = apply(t, m, special(tea.KeyCtrlS))
	require.Equal(t, "Por favor, ingresa un título para la lista", m.err)
	require.Empty(t, f.created)

	m = typeText(t, m, "Compras")
	m = apply(t, m, special(tea.KeyCtrlS))
	require.Equal(t, "Agrega al menos un ítem a la lista", m.err)

	m = apply(t, m, special(tea.KeyTab))
	m = typeText(t, m, "Leche")

	m = apply(t, m, special(tea.KeyCtrlK))
	require.True(t, m.addCol)
	m = typeText(t, m, "Cantidad")
	m = apply(t, m, special(tea.KeyEnter))
	require.False(t, m.addCol)
	require.Equal(t, []string{editor.DefaultColumn, "Cantidad"}, m.ed.Columns())

	m = apply(t, m, special(tea.KeyTab))
	m = typeText(t, m, "2")

	m = apply(t, m, special(tea.KeyCtrlS))
	require.Empty(t, m.err)
	require.Len(t, f.created, 1)
	req := f.created[0]
	require.Equal(t, "Compras", req.Title)
	require.Equal(t, []string{editor.DefaultColumn, "Cantidad"}, req.Columns)
	require.Equal(t, []map[string]string{{editor.DefaultColumn: "Leche", "Cantidad": "2"}}, req.Rows)

	require.Equal(t, screenGallery, m.screen)
	require.Len(t, m.lists, 1)
	require.Contains(t, m.View(), "Lista creada: Compras")
	require.Equal(t, "", m.ed.Title())
}

func TestComposeRejectsDuplicateColumn(t *testing.T) {
	m := signedIn(t, &fakeBackend{})
	m = apply(t, m, runeKey("n"))
	m = apply(t, m, special(tea.KeyCtrlK))
	m = typeText(t, m, editor.DefaultColumn)
	m = apply(t, m, special(tea.KeyEnter))
	require.True(t, m.addCol)
	require.NotEmpty(t, m.err)
	require.Len(t, m.ed.Columns(), 1)
}

func TestSaveIgnoredWhileBusy(t *testing.T) {
	f := &fakeBackend{}
	m := signedIn(t, f)
	m = apply(t, m, runeKey("n"))
	m = typeText(t, m, "Compras")
	m = apply(t, m, special(tea.KeyTab))
	m = typeText(t, m, "Leche")

	next, cmd := m.Update(special(tea.KeyCtrlS))
	require.NotNil(t, cmd)
	m = next.(Model)
	require.True(t, m.busy)

	_, dup := m.Update(special(tea.KeyCtrlS))
	require.Nil(t, dup)

	m = drain(t, m, cmd)
	require.Len(t, f.created, 1)
}

func TestCreateFailureKeepsComposer(t *testing.T) {
	f := &fakeBackend{createErr: &models.RemoteError{Op: "post /api/lists", Err: context.DeadlineExceeded}}
	m := signedIn(t, f)
	m = apply(t, m, runeKey("n"))
	m = typeText(t, m, "Compras")
	m = apply(t, m, special(tea.KeyTab))
	m = typeText(t, m, "Leche")
	m = apply(t, m, special(tea.KeyCtrlS))

	require.Equal(t, screenCompose, m.screen)
	require.Equal(t, "Error al crear la lista", m.err)
	require.Equal(t, "Compras", m.ed.Title())
	require.False(t, m.busy)
}

func TestOpenListShowsTable(t *testing.T) {
	f := &fakeBackend{lists: []models.ListSummary{{ID: "l1", PublicID: "pub1", Title: "Compras"}}}
	m := signedIn(t, f)

	m = apply(t, m, special(tea.KeyEnter))
	require.Equal(t, screenDetail, m.screen)
	view := m.View()
	require.Contains(t, view, "Leche")
	require.Contains(t, view, "Cantidad")
	require.Contains(t, view, "http://localhost:8080/list/pub1")

	m = apply(t, m, special(tea.KeyEsc))
	require.Equal(t, screenGallery, m.screen)
}

func TestSessionEventsRoute(t *testing.T) {
	f := &fakeBackend{}
	m := signedIn(t, f)

	m = apply(t, m, SessionChangedMsg{Event: auth.SessionEvent{Kind: auth.SignedOut}})
	require.Equal(t, screenSignIn, m.screen)
	require.Nil(t, m.identity)

	id := &models.Identity{UserID: "u--2", Email: "bea@example.com"}
	m = apply(t, m, SessionChangedMsg{Event: auth.SessionEvent{Kind: auth.SignedIn, Identity: id}})
	require.Equal(t, screenGallery, m.screen)
	require.Equal(t, "bea@example.com", m.identity.Email)
}

func TestSignOutFromGallery(t *testing.T) {
	f := &fakeBackend{}
	m := signedIn(t, f)
	m = apply(t, m, special(tea.KeyCtrlO))
	require.Equal(t, screenSignIn, m.screen)
	require.Nil(t, f.identity)
}
