package viewer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harrylevesque/listqr/internal/models"
)

// SaveFailedMessage is the only thing a user learns about a failed save.
const SaveFailedMessage = "Error al actualizar la lista"

var ErrSessionClosed = errors.New("edit session already closed")

// Updater is the part of the repository an edit session writes through.
type Updater interface {
	UpdateItemColumnData(ctx context.Context, itemID string, data models.ColumnData) error
	UpdateListTitle(ctx context.Context, listID, title string) error
}

// EditSession holds a private copy of a list while its owner edits it.
// Nothing reaches the repository until Save.
type EditSession struct {
	persisted models.List
	draft     models.List
	closed    bool
}

// Begin opens an edit session. The caller must be signed in and own the list.
func Begin(id *models.Identity, l models.List) (*EditSession, error) {
	if id == nil {
		return nil, models.ErrSignInRequired
	}
	if !l.Owned(id.UserID) {
		return nil, models.ErrNotOwner
	}
	return &EditSession{persisted: l.Clone(), draft: l.Clone()}, nil
}

// Draft returns a copy of the edited list.
func (s *EditSession) Draft() models.List { return s.draft.Clone() }

func (s *EditSession) SetTitle(title string) error {
	if s.closed {
		return ErrSessionClosed
	}
	s.draft.Title = title
	return nil
}

// SetCell edits one cell of the draft. Writing "" to a key the item never had
// leaves the item unchanged.
func (s *EditSession) SetCell(itemID, column, value string) error {
	if s.closed {
		return ErrSessionClosed
	}
	for i := range s.draft.Items {
		it := &s.draft.Items[i]
		if it.ID != itemID {
			continue
		}
		if _, ok := it.ColumnData.Get(column); !ok && value == "" {
			return nil
		}
		it.ColumnData.Set(column, value)
		return nil
	}
	return fmt.Errorf("item %q: %w", itemID, models.ErrNotFound)
}

// Cancel drops the draft and returns the list as last persisted.
func (s *EditSession) Cancel() models.List {
	s.closed = true
	s.draft = s.persisted.Clone()
	return s.persisted.Clone()
}

// Save writes every item in order, then the title. The first failure stops the
// batch: later items and the title are not attempted and earlier writes stay.
// The session remains open after a failure so the whole batch can be retried.
func (s *EditSession) Save(ctx context.Context, repo Updater) (models.List, error) {
	if s.closed {
		return models.List{}, ErrSessionClosed
	}
	if strings.TrimSpace(s.draft.Title) == "" {
		return models.List{}, models.NewValidationError("missing title", "Por favor, ingresa un título para la lista")
	}
	for _, it := range s.draft.Items {
		if err := repo.UpdateItemColumnData(ctx, it.ID, it.ColumnData); err != nil {
			return models.List{}, &models.RemoteError{Op: "save list", Err: err}
		}
	}
	if err := repo.UpdateListTitle(ctx, s.draft.ID, s.draft.Title); err != nil {
		return models.List{}, &models.RemoteError{Op: "save list", Err: err}
	}
	s.persisted = s.draft.Clone()
	s.closed = true
	return s.persisted.Clone(), nil
}
