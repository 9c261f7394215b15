package dtos

import (
	"github.com/harrylevesque/listqr/internal/models"
)

// CreateListRequest carries an editor snapshot. Columns gives the order of
// the keys in each row.
type CreateListRequest struct {
	Title   string              `json:"title"`
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
}

// UpdateListRequest is an edit session commit.
type UpdateListRequest struct {
	Title string       `json:"title"`
	Items []ItemUpdate `json:"items"`
}

type ItemUpdate struct {
	ID    string            `json:"id"`
	Cells map[string]string `json:"cells"`
}

type GetListResponse struct {
	List     models.List `json:"list"`
	Header   []string    `json:"header"`
	ShareURL string      `json:"share_url"`
	CanEdit  bool        `json:"can_edit"`
}

type ListsResponse struct {
	Lists []models.ListSummary `json:"lists"`
}

type SessionResponse struct {
	Identity *models.Identity `json:"identity"`
}
