// Package viewer renders stored lists and runs owner edit sessions.
package viewer

import (
	"github.com/harrylevesque/listqr/internal/models"
)

// Header is the column set shown for a list: the keys of the first item, in
// stored order. A list without items has no header.
func Header(l models.List) []string {
	if len(l.Items) == 0 {
		return nil
	}
	return l.Items[0].ColumnData.Keys()
}

// Rows returns each item's cells in header order. Keys an item lacks render as "".
func Rows(l models.List) [][]string {
	header := Header(l)
	out := make([][]string, 0, len(l.Items))
	for _, it := range l.Items {
		row := make([]string, len(header))
		for i, col := range header {
			row[i] = it.ColumnData.Value(col)
		}
		out = append(out, row)
	}
	return out
}
