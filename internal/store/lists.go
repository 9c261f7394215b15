package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/harrylevesque/listqr/internal/models"
)

// PublicIDLength is the size of the shareable list identifier.
const PublicIDLength = 20

// ListRepository is the remote boundary for lists and their items.
type ListRepository interface {
	CreateList(ctx context.Context, title, ownerID string) (models.List, error)
	CreateItems(ctx context.Context, listID string, rows []models.ColumnData) ([]models.Item, error)
	FetchListsForOwner(ctx context.Context, ownerID string) ([]models.ListSummary, error)
	FetchListByID(ctx context.Context, idOrPublicID string) (models.List, error)
	UpdateListTitle(ctx context.Context, listID, title string) error
	UpdateItemColumnData(ctx context.Context, itemID string, data models.ColumnData) error
}

// Store implements ListRepository and Users on sqlite.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func remote(op string, err error) error {
	return &models.RemoteError{Op: op, Err: err}
}

func (s *Store) CreateList(ctx context.Context, title, ownerID string) (models.List, error) {
	publicID, err := gonanoid.New(PublicIDLength)
	if err != nil {
		return models.List{}, remote("create list", err)
	}
	l := models.List{
		ID:        uuid.NewString(),
		PublicID:  publicID,
		Title:     title,
		OwnerID:   ownerID,
		CreatedAt: now(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO lists (id, public_id, title, owner_id, created_at_unixms) VALUES (?, ?, ?, ?, ?)`,
		l.ID, l.PublicID, l.Title, l.OwnerID, l.CreatedAt.UnixMilli())
	if err != nil {
		return models.List{}, remote("create list", err)
	}
	return l, nil
}

// CreateItems inserts rows in one transaction, in the given order.
func (s *Store) CreateItems(ctx context.Context, listID string, rows []models.ColumnData) ([]models.Item, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	created := now()
	items := make([]models.Item, 0, len(rows))
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO items (id, list_id, column_data, created_at_unixms) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, cd := range rows {
			data, err := json.Marshal(cd)
			if err != nil {
				return err
			}
			it := models.Item{ID: uuid.NewString(), ListID: listID, ColumnData: cd.Clone(), CreatedAt: created}
			if _, err := stmt.ExecContext(ctx, it.ID, it.ListID, string(data), created.UnixMilli()); err != nil {
				return err
			}
			items = append(items, it)
		}
		return nil
	})
	if err != nil {
		return nil, remote("create items", err)
	}
	return items, nil
}

// FetchListsForOwner returns the owner's lists, newest first, with item counts.
func (s *Store) FetchListsForOwner(ctx context.Context, ownerID string) ([]models.ListSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, l.public_id, l.title, l.created_at_unixms, COUNT(i.id)
		FROM lists l
		LEFT JOIN items i ON i.list_id = l.id
		WHERE l.owner_id = ?
		GROUP BY l.id
		ORDER BY l.created_at_unixms DESC, l.rowid DESC`, ownerID)
	if err != nil {
		return nil, remote("fetch lists", err)
	}
	defer rows.Close()

	var out []models.ListSummary
	for rows.Next() {
		var ls models.ListSummary
		var created int64
		if err := rows.Scan(&ls.ID, &ls.PublicID, &ls.Title, &created, &ls.ItemCount); err != nil {
			return nil, remote("fetch lists", err)
		}
		ls.CreatedAt = fromUnixMilli(created)
		out = append(out, ls)
	}
	if err := rows.Err(); err != nil {
		return nil, remote("fetch lists", err)
	}
	return out, nil
}

// FetchListByID matches on id or public id. Anything but exactly one match is ErrNotFound.
func (s *Store) FetchListByID(ctx context.Context, idOrPublicID string) (models.List, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, public_id, title, owner_id, created_at_unixms FROM lists WHERE id = ? OR public_id = ?`,
		idOrPublicID, idOrPublicID)
	if err != nil {
		return models.List{}, remote("fetch list", err)
	}
	var matches []models.List
	for rows.Next() {
		var l models.List
		var created int64
		if err := rows.Scan(&l.ID, &l.PublicID, &l.Title, &l.OwnerID, &created); err != nil {
			rows.Close()
			return models.List{}, remote("fetch list", err)
		}
		l.CreatedAt = fromUnixMilli(created)
		matches = append(matches, l)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return models.List{}, remote("fetch list", err)
	}
	if len(matches) != 1 {
		return models.List{}, fmt.Errorf("list %q: %w", idOrPublicID, models.ErrNotFound)
	}

	l := matches[0]
	l.Items, err = s.fetchItems(ctx, l.ID)
	if err != nil {
		return models.List{}, err
	}
	return l, nil
}

func (s *Store) fetchItems(ctx context.Context, listID string) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, list_id, column_data, created_at_unixms FROM items WHERE list_id = ? ORDER BY created_at_unixms, rowid`,
		listID)
	if err != nil {
		return nil, remote("fetch items", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		var it models.Item
		var data string
		var created int64
		if err := rows.Scan(&it.ID, &it.ListID, &data, &created); err != nil {
			return nil, remote("fetch items", err)
		}
		if err := json.Unmarshal([]byte(data), &it.ColumnData); err != nil {
			return nil, remote("fetch items", fmt.Errorf("item %s: %w", it.ID, err))
		}
		it.CreatedAt = fromUnixMilli(created)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, remote("fetch items", err)
	}
	return items, nil
}

func (s *Store) UpdateListTitle(ctx context.Context, listID, title string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE lists SET title = ? WHERE id = ?`, title, listID)
	return checkUpdated("update list title", res, err)
}

func (s *Store) UpdateItemColumnData(ctx context.Context, itemID string, data models.ColumnData) error {
	b, err := json.Marshal(data)
	if err != nil {
		return remote("update item", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE items SET column_data = ? WHERE id = ?`, string(b), itemID)
	return checkUpdated("update item", res, err)
}

func checkUpdated(op string, res sql.Result, err error) error {
	if err != nil {
		return remote(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return remote(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

// CreateListWithItems stores a composed list: the list row first, then its rows.
// If the items fail the list row is kept and the error is returned.
func CreateListWithItems(ctx context.Context, repo ListRepository, ownerID, title string, rows []models.ColumnData) (models.List, error) {
	l, err := repo.CreateList(ctx, title, ownerID)
	if err != nil {
		return models.List{}, err
	}
	items, err := repo.CreateItems(ctx, l.ID, rows)
	if err != nil {
		return l, err
	}
	l.Items = items
	if l.Items == nil {
		l.Items = []models.Item{}
	}
	return l, nil
}

// IsRemote reports whether err came from the storage layer.
func IsRemote(err error) bool {
	var re *models.RemoteError
	return errors.As(err, &re)
}
