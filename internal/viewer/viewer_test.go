package viewer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/harrylevesque/listqr/internal/models"
)

type fakeUpdater struct {
	failItem  string
	items     []string
	data      map[string]models.ColumnData
	titles    []string
	failTitle bool
}

func (f *fakeUpdater) UpdateItemColumnData(ctx context.Context, itemID string, data models.ColumnData) error {
	f.items = append(f.items, itemID)
	if itemID == f.failItem {
		return errors.New("connection reset")
	}
	if f.data == nil {
		f.data = map[string]models.ColumnData{}
	}
	f.data[itemID] = data.Clone()
	return nil
}

func (f *fakeUpdater) UpdateListTitle(ctx context.Context, listID, title string) error {
	if f.failTitle {
		return errors.New("timeout")
	}
	f.titles = append(f.titles, title)
	return nil
}

func sampleList() models.List {
	return models.List{
		ID:       "l1",
		PublicID: "pub",
		Title:    "Compras",
		OwnerID:  "u--owner",
		Items: []models.Item{
			{ID: "i1", ColumnData: models.NewColumnData("Nombre", "Leche", "Cantidad", "1")},
			{ID: "i2", ColumnData: models.NewColumnData("Nombre", "Pan")},
			{ID: "i3", ColumnData: models.NewColumnData("Nombre", "Huevos", "Cantidad", "12")},
		},
	}
}

var owner = &models.Identity{UserID: "u--owner"}

func TestHeaderAndRows(t *testing.T) {
	l := sampleList()
	require.Equal(t, []string{"Nombre", "Cantidad"}, Header(l))
	require.Equal(t, [][]string{
		{"Leche", "1"},
		{"Pan", ""},
		{"Huevos", "12"},
	}, Rows(l))

	require.Nil(t, Header(models.List{}))
	require.Empty(t, Rows(models.List{}))
}

func TestBeginRequiresOwner(t *testing.T) {
	_, err := Begin(nil, sampleList())
	require.True(t, errors.Is(err, models.ErrSignInRequired))

	_, err = Begin(&models.Identity{UserID: "u--other"}, sampleList())
	require.True(t, errors.Is(err, models.ErrNotOwner))
}

func TestEditsStayLocalUntilSave(t *testing.T) {
	l := sampleList()
	s, err := Begin(owner, l)
	require.NoError(t, err)

	require.NoError(t, s.SetTitle("Mercado"))
	require.NoError(t, s.SetCell("i1", "Nombre", "Leche entera"))
	require.Equal(t, "Compras", l.Title)
	require.Equal(t, "Leche", l.Items[0].ColumnData.Value("Nombre"))
	require.Equal(t, "Mercado", s.Draft().Title)

	err = s.SetCell("missing", "Nombre", "x")
	require.True(t, errors.Is(err, models.ErrNotFound))

	// A missing key written as empty is not added.
	require.NoError(t, s.SetCell("i2", "Cantidad", ""))
	require.Equal(t, []string{"Nombre"}, s.Draft().Items[1].ColumnData.Keys())

	persisted := s.Cancel()
	require.Equal(t, "Compras", persisted.Title)
	require.Equal(t, "Leche", persisted.Items[0].ColumnData.Value("Nombre"))
	require.True(t, errors.Is(s.SetTitle("x"), ErrSessionClosed))
}

func TestSaveWritesItemsThenTitle(t *testing.T) {
	s, err := Begin(owner, sampleList())
	require.NoError(t, err)
	require.NoError(t, s.SetTitle("Mercado"))
	require.NoError(t, s.SetCell("i2", "Cantidad", "3"))

	repo := &fakeUpdater{}
	saved, err := s.Save(context.Background(), repo)
	require.NoError(t, err)
	require.Equal(t, []string{"i1", "i2", "i3"}, repo.items)
	require.Equal(t, []string{"Mercado"}, repo.titles)
	require.Equal(t, "3", repo.data["i2"].Value("Cantidad"))
	require.Equal(t, "Mercado", saved.Title)

	_, err = s.Save(context.Background(), repo)
	require.True(t, errors.Is(err, ErrSessionClosed))
}

func TestSaveStopsAtFirstFailure(t *testing.T) {
	s, err := Begin(owner, sampleList())
	require.NoError(t, err)
	require.NoError(t, s.SetTitle("Mercado"))
	require.NoError(t, s.SetCell("i1", "Nombre", "Leche entera"))

	repo := &fakeUpdater{failItem: "i2"}
	_, err = s.Save(context.Background(), repo)
	require.Error(t, err)
	var re *models.RemoteError
	require.ErrorAs(t, err, &re)

	require.Equal(t, []string{"i1", "i2"}, repo.items, "third item must not be attempted")
	require.Equal(t, "Leche entera", repo.data["i1"].Value("Nombre"))
	require.Empty(t, repo.titles)

	// The session stays open and a retry sends the whole batch again.
	repo.failItem = ""
	repo.items = nil
	_, err = s.Save(context.Background(), repo)
	require.NoError(t, err)
	require.Equal(t, []string{"i1", "i2", "i3"}, repo.items)
	require.Equal(t, []string{"Mercado"}, repo.titles)
}

func TestSaveTitleFailure(t *testing.T) {
	s, err := Begin(owner, sampleList())
	require.NoError(t, err)
	repo := &fakeUpdater{failTitle: true}
	_, err = s.Save(context.Background(), repo)
	var re *models.RemoteError
	require.ErrorAs(t, err, &re)
	require.Len(t, repo.items, 3)
}

func TestSaveRejectsBlankTitle(t *testing.T) {
	s, err := Begin(owner, sampleList())
	require.NoError(t, err)
	require.NoError(t, s.SetTitle("  "))
	repo := &fakeUpdater{}
	_, err = s.Save(context.Background(), repo)
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Empty(t, repo.items)
}
