package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/harrylevesque/listqr/internal/models"
)

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "listqr.db")
	db, err := Open(context.Background(), path)
	require.NoError(t, err)
	s := New(db)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func testOwner(t *testing.T, s *Store, email string) models.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), email, "hash")
	require.NoError(t, err)
	return u
}

func TestMigrationsApplied(t *testing.T) {
	_, path := testStore(t)
	v, dirty, err := MigrationVersion(path)
	require.NoError(t, err)
	require.False(t, dirty)
	require.Equal(t, uint(1), v)

	// Running again is a no-op.
	require.NoError(t, RunMigrations(path))
}

func TestUsers(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	u := testOwner(t, s, " Ana@Example.com ")
	require.Equal(t, "ana@example.com", u.Email)

	_, err := s.CreateUser(ctx, "ana@example.com", "other")
	require.True(t, errors.Is(err, models.ErrEmailTaken))

	got, err := s.UserByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, "hash", got.PasswordHash)

	got, err = s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Email, got.Email)

	_, err = s.UserByID(ctx, "u--missing")
	require.True(t, errors.Is(err, models.ErrNotFound))
}

func TestCreateAndFetchListByPublicID(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	owner := testOwner(t, s, "owner@example.com")

	rows := []models.ColumnData{
		models.NewColumnData("Nombre del ítem", "Leche", "Cantidad", "2"),
		models.NewColumnData("Nombre del ítem", "Pan", "Cantidad", "1"),
		models.NewColumnData("Nombre del ítem", "Huevos", "Cantidad", "12"),
	}
	created, err := CreateListWithItems(ctx, s, owner.ID, "Compras", rows)
	require.NoError(t, err)
	require.Len(t, created.PublicID, PublicIDLength)
	require.Len(t, created.Items, 3)

	got, err := s.FetchListByID(ctx, created.PublicID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, "Compras", got.Title)
	require.Equal(t, owner.ID, got.OwnerID)
	require.Equal(t, created.CreatedAt, got.CreatedAt)
	require.Len(t, got.Items, 3)
	for i, it := range got.Items {
		require.Equal(t, created.Items[i].ID, it.ID)
		require.Equal(t, []string{"Nombre del ítem", "Cantidad"}, it.ColumnData.Keys())
	}
	require.Equal(t, "Huevos", got.Items[2].ColumnData.Value("Nombre del ítem"))

	byID, err := s.FetchListByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.PublicID, byID.PublicID)
}

func TestFetchListByIDNotFound(t *testing.T) {
	s, _ := testStore(t)
	_, err := s.FetchListByID(context.Background(), "nope")
	require.True(t, errors.Is(err, models.ErrNotFound))
	require.False(t, IsRemote(err))
}

func TestFetchListByIDAmbiguous(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	owner := testOwner(t, s, "o@example.com")
	a, err := s.CreateList(ctx, "A", owner.ID)
	require.NoError(t, err)
	b, err := s.CreateList(ctx, "B", owner.ID)
	require.NoError(t, err)

	_, err = s.db.ExecContext(ctx, `UPDATE lists SET public_id = ? WHERE id = ?`, a.ID, b.ID)
	require.NoError(t, err)

	_, err = s.FetchListByID(ctx, a.ID)
	require.True(t, errors.Is(err, models.ErrNotFound))
	require.False(t, IsRemote(err))

	got, err := s.FetchListByID(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, "B", got.Title)
}

func TestFetchListWithoutItems(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	owner := testOwner(t, s, "o@example.com")
	l, err := CreateListWithItems(ctx, s, owner.ID, "Vacía", nil)
	require.NoError(t, err)
	require.Empty(t, l.Items)

	got, err := s.FetchListByID(ctx, l.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Items)
	require.Empty(t, got.Items)
}

func TestFetchListsForOwner(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	a := testOwner(t, s, "a@example.com")
	b := testOwner(t, s, "b@example.com")

	first, err := CreateListWithItems(ctx, s, a.ID, "Primera", []models.ColumnData{models.NewColumnData("x", "1")})
	require.NoError(t, err)
	second, err := CreateListWithItems(ctx, s, a.ID, "Segunda", []models.ColumnData{
		models.NewColumnData("x", "1"), models.NewColumnData("x", "2"),
	})
	require.NoError(t, err)
	_, err = CreateListWithItems(ctx, s, b.ID, "Ajena", nil)
	require.NoError(t, err)

	lists, err := s.FetchListsForOwner(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, lists, 2)
	require.Equal(t, second.ID, lists[0].ID)
	require.Equal(t, 2, lists[0].ItemCount)
	require.Equal(t, first.ID, lists[1].ID)
	require.Equal(t, 1, lists[1].ItemCount)

	none, err := s.FetchListsForOwner(ctx, "u--nobody")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestUpdates(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	owner := testOwner(t, s, "o@example.com")
	l, err := CreateListWithItems(ctx, s, owner.ID, "Antes", []models.ColumnData{models.NewColumnData("A", "1")})
	require.NoError(t, err)

	require.NoError(t, s.UpdateListTitle(ctx, l.ID, "Después"))
	require.NoError(t, s.UpdateItemColumnData(ctx, l.Items[0].ID, models.NewColumnData("A", "2", "B", "3")))

	got, err := s.FetchListByID(ctx, l.ID)
	require.NoError(t, err)
	require.Equal(t, "Después", got.Title)
	require.Equal(t, []string{"A", "B"}, got.Items[0].ColumnData.Keys())
	require.Equal(t, "2", got.Items[0].ColumnData.Value("A"))

	err = s.UpdateListTitle(ctx, "missing", "x")
	require.True(t, errors.Is(err, models.ErrNotFound))
	err = s.UpdateItemColumnData(ctx, "missing", models.NewColumnData("A", "1"))
	require.True(t, errors.Is(err, models.ErrNotFound))
}

func TestItemsRequireExistingList(t *testing.T) {
	s, _ := testStore(t)
	_, err := s.CreateItems(context.Background(), "no-such-list", []models.ColumnData{models.NewColumnData("A", "1")})
	require.Error(t, err)
	require.True(t, IsRemote(err))
}

func TestClosedDatabaseIsRemoteError(t *testing.T) {
	s, _ := testStore(t)
	require.NoError(t, s.Close())
	_, err := s.CreateList(context.Background(), "x", "u--1")
	var re *models.RemoteError
	require.ErrorAs(t, err, &re)
	require.Equal(t, "create list", re.Op)
}
