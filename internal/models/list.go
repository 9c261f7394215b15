package models

import "time"

// List is a titled collection of items. It is never hard-deleted.
type List struct {
	ID        string    `json:"id"`
	PublicID  string    `json:"public_id"`
	Title     string    `json:"title"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	Items     []Item    `json:"items"`
}

// ListSummary is a gallery entry.
type ListSummary struct {
	ID        string    `json:"id"`
	PublicID  string    `json:"public_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	ItemCount int       `json:"item_count"`
}

type Item struct {
	ID         string     `json:"id"`
	ListID     string     `json:"list_id"`
	ColumnData ColumnData `json:"column_data"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Clone returns a deep copy of the list and its items.
func (l List) Clone() List {
	out := l
	if l.Items != nil {
		out.Items = make([]Item, len(l.Items))
		for i, it := range l.Items {
			it.ColumnData = it.ColumnData.Clone()
			out.Items[i] = it
		}
	}
	return out
}

// Owned reports whether userID owns the list.
func (l List) Owned(userID string) bool {
	return userID != "" && l.OwnerID == userID
}
