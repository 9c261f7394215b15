package client

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/harrylevesque/listqr/internal/api"
	"github.com/harrylevesque/listqr/internal/auth"
	"github.com/harrylevesque/listqr/internal/crypto"
	"github.com/harrylevesque/listqr/internal/dtos"
	"github.com/harrylevesque/listqr/internal/editor"
	"github.com/harrylevesque/listqr/internal/models"
	"github.com/harrylevesque/listqr/internal/store"
)

func testServer(t *testing.T) string {
	t.Helper()
	db, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	st := store.New(db)
	t.Cleanup(func() { _ = st.Close() })

	keys, err := crypto.DeriveSessionKeys(crypto.MustRandom(crypto.MasterKeySize))
	require.NoError(t, err)
	sessions := auth.NewSessions(st, auth.Options{Keys: keys, MaxAge: time.Hour, BcryptCost: bcrypt.MinCost})
	s, err := api.NewServer(api.ServerOptions{Repo: st, Sessions: sessions})
	require.NoError(t, err)
	srv := httptest.NewServer(api.NewRouter(s))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("localhost", Options{})
	require.Error(t, err)
}

func TestSessionEventsAndPersistence(t *testing.T) {
	server := testServer(t)
	sessionFile := filepath.Join(t.TempDir(), "session.json")
	ctx := context.Background()

	c, err := New(server, Options{SessionFile: sessionFile})
	require.NoError(t, err)

	var mu sync.Mutex
	var kinds []auth.EventKind
	cancel := c.OnSessionChange(func(ev auth.SessionEvent) {
		mu.Lock()
		kinds = append(kinds, ev.Kind)
		mu.Unlock()
	})
	defer cancel()

	id, err := c.CurrentSession(ctx)
	require.NoError(t, err)
	require.Nil(t, id)

	_, err = c.SignUp(ctx, "ana@example.com", "secreto")
	require.NoError(t, err)
	require.NotNil(t, c.Identity())

	// A second client picks the session up from disk.
	c2, err := New(server, Options{SessionFile: sessionFile})
	require.NoError(t, err)
	id, err = c2.CurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, id)
	require.Equal(t, "ana@example.com", id.Email)

	require.NoError(t, c.SignOut(ctx))
	require.Nil(t, c.Identity())

	c3, err := New(server, Options{SessionFile: sessionFile})
	require.NoError(t, err)
	id, err = c3.CurrentSession(ctx)
	require.NoError(t, err)
	require.Nil(t, id)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []auth.EventKind{auth.SignedIn, auth.SignedOut}, kinds)
}

func TestErrorsMapToTaxonomy(t *testing.T) {
	server := testServer(t)
	ctx := context.Background()
	c, err := New(server, Options{})
	require.NoError(t, err)

	_, err = c.Lists(ctx)
	require.True(t, errors.Is(err, models.ErrSignInRequired))

	_, err = c.SignIn(ctx, "ana@example.com", "secreto")
	require.True(t, errors.Is(err, models.ErrInvalidCredentials))

	_, err = c.SignUp(ctx, "ana@example.com", "123")
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)

	_, err = c.SignUp(ctx, "ana@example.com", "secreto")
	require.NoError(t, err)

	_, err = c.CreateList(ctx, dtos.CreateListRequest{Title: "", Rows: []map[string]string{{editor.DefaultColumn: "x"}}})
	require.ErrorAs(t, err, &ve)
	require.Equal(t, editor.ReasonMissingTitle, ve.Reason)

	_, err = c.GetList(ctx, "missing")
	require.True(t, errors.Is(err, models.ErrNotFound))

	dead, err := New("http://127.0.0.1:1", Options{Timeout: time.Second})
	require.NoError(t, err)
	_, err = dead.Lists(ctx)
	var re *models.RemoteError
	require.ErrorAs(t, err, &re)
}

func TestListRoundTripAndDownload(t *testing.T) {
	server := testServer(t)
	ctx := context.Background()
	c, err := New(server, Options{})
	require.NoError(t, err)
	_, err = c.SignUp(ctx, "ana@example.com", "secreto")
	require.NoError(t, err)

	created, err := c.CreateList(ctx, dtos.CreateListRequest{
		Title:   "Compras",
		Columns: []string{editor.DefaultColumn},
		Rows:    []map[string]string{{editor.DefaultColumn: "Leche"}},
	})
	require.NoError(t, err)

	lists, err := c.Lists(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 1)

	got, err := c.GetList(ctx, created.List.PublicID)
	require.NoError(t, err)
	require.Equal(t, "Leche", got.List.Items[0].ColumnData.Value(editor.DefaultColumn))

	updated, err := c.UpdateList(ctx, created.List.ID, dtos.UpdateListRequest{Title: "Mercado"})
	require.NoError(t, err)
	require.Equal(t, "Mercado", updated.List.Title)

	var buf bytes.Buffer
	require.NoError(t, c.Download(ctx, created.List.PublicID, "pdf", &buf))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	err = c.Download(ctx, "missing", "pdf", &bytes.Buffer{})
	require.True(t, errors.Is(err, models.ErrNotFound))
}
