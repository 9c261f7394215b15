// Package editor holds the in-memory model behind the list composer: a title,
// an ordered set of user-defined columns and rows keyed by column name.
package editor

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/harrylevesque/listqr/internal/models"
)

// DefaultColumn is the only column of a fresh editor.
const DefaultColumn = "Nombre del ítem"

const (
	ReasonMissingTitle    = "missing title"
	ReasonNoContent       = "no content"
	ReasonEmptyColumn     = "empty column"
	ReasonDuplicateColumn = "duplicate column"
	ReasonTooManyRows     = "too many rows"
	ReasonTooManyColumns  = "too many columns"

	msgMissingTitle    = "Por favor, ingresa un título para la lista"
	msgNoContent       = "Agrega al menos un ítem a la lista"
	msgEmptyColumn     = "El nombre de la columna no puede estar vacío"
	msgDuplicateColumn = "Esa columna ya existe"
	msgTooManyRows     = "La lista tiene demasiadas filas"
	msgTooManyColumns  = "La lista tiene demasiadas columnas"
)

// Upper bounds on a snapshot rebuilt from a request.
const (
	MaxRows    = 1000
	MaxColumns = 50
)

var ErrRowOutOfRange = errors.New("row index out of range")

// Editor is not safe for concurrent use; it belongs to one composing view.
type Editor struct {
	title   string
	columns []string
	rows    []map[string]string
	pending string
}

// Persistable is the normalized output handed to the repository.
type Persistable struct {
	Title string
	Rows  []models.ColumnData
}

func New() *Editor {
	e := &Editor{}
	e.Reset()
	return e
}

// CheckSnapshot rejects a posted column set with blank or repeated names, and
// snapshots larger than MaxRows or MaxColumns. An empty column set is fine
// and means the default column.
func CheckSnapshot(columns []string, rowCount int) error {
	if len(columns) > MaxColumns {
		return models.NewValidationError(ReasonTooManyColumns, msgTooManyColumns)
	}
	if rowCount > MaxRows {
		return models.NewValidationError(ReasonTooManyRows, msgTooManyRows)
	}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if strings.TrimSpace(c) == "" {
			return models.NewValidationError(ReasonEmptyColumn, msgEmptyColumn)
		}
		if seen[c] {
			return models.NewValidationError(ReasonDuplicateColumn, msgDuplicateColumn)
		}
		seen[c] = true
	}
	return nil
}

// FromState rebuilds an editor from a snapshot, e.g. a posted form. Duplicate
// and blank column names are dropped, and rows are padded to the column set.
func FromState(title string, columns []string, rows []map[string]string, pending string) *Editor {
	e := &Editor{title: title, pending: pending}
	for _, c := range columns {
		if strings.TrimSpace(c) == "" || e.hasColumn(c) {
			continue
		}
		e.columns = append(e.columns, c)
	}
	if len(e.columns) == 0 {
		e.columns = []string{DefaultColumn}
	}
	for _, r := range rows {
		row := make(map[string]string, len(e.columns))
		for _, c := range e.columns {
			row[c] = ""
		}
		for k, v := range r {
			row[k] = v
		}
		e.rows = append(e.rows, row)
	}
	return e
}

// Reset returns the editor to one default column and one empty row.
func (e *Editor) Reset() {
	e.title = ""
	e.pending = ""
	e.columns = []string{DefaultColumn}
	e.rows = []map[string]string{{DefaultColumn: ""}}
}

func (e *Editor) SetTitle(text string) { e.title = text }

func (e *Editor) Title() string { return e.title }

func (e *Editor) SetPendingColumnName(name string) { e.pending = name }

func (e *Editor) PendingColumnName() string { return e.pending }

// CommitPendingColumn adds the pending column name and clears it on success.
func (e *Editor) CommitPendingColumn() bool {
	if !e.AddColumn(e.pending) {
		return false
	}
	e.pending = ""
	return true
}

// AddColumn appends name and gives every existing row an empty cell for it.
// Blank or already present names (exact match) leave the editor unchanged.
func (e *Editor) AddColumn(name string) bool {
	if strings.TrimSpace(name) == "" || e.hasColumn(name) {
		return false
	}
	e.columns = append(e.columns, name)
	for _, row := range e.rows {
		row[name] = ""
	}
	return true
}

// AddRow appends a row with an empty cell for each current column.
func (e *Editor) AddRow() {
	row := make(map[string]string, len(e.columns))
	for _, c := range e.columns {
		row[c] = ""
	}
	e.rows = append(e.rows, row)
}

// SetCell writes value at (row, column). The column does not have to exist yet.
func (e *Editor) SetCell(row int, column, value string) error {
	if row < 0 || row >= len(e.rows) {
		return fmt.Errorf("%w: %d of %d", ErrRowOutOfRange, row, len(e.rows))
	}
	e.rows[row][column] = value
	return nil
}

func (e *Editor) Cell(row int, column string) string {
	if row < 0 || row >= len(e.rows) {
		return ""
	}
	return e.rows[row][column]
}

func (e *Editor) Columns() []string {
	out := make([]string, len(e.columns))
	copy(out, e.columns)
	return out
}

func (e *Editor) RowCount() int { return len(e.rows) }

// Rows returns copies of the current rows.
func (e *Editor) Rows() []map[string]string {
	out := make([]map[string]string, len(e.rows))
	for i, r := range e.rows {
		cp := make(map[string]string, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}

// Validate checks the state is ready to be saved.
func (e *Editor) Validate() error {
	if strings.TrimSpace(e.title) == "" {
		return models.NewValidationError(ReasonMissingTitle, msgMissingTitle)
	}
	for _, r := range e.rows {
		if !blankRow(r) {
			return nil
		}
	}
	return models.NewValidationError(ReasonNoContent, msgNoContent)
}

// ToPersistable drops blank rows and orders each row's keys by column order,
// with keys outside the column set appended in lexical order. It does not
// modify the editor.
func (e *Editor) ToPersistable() Persistable {
	p := Persistable{Title: e.title}
	for _, r := range e.rows {
		if blankRow(r) {
			continue
		}
		var cd models.ColumnData
		for _, c := range e.columns {
			if v, ok := r[c]; ok {
				cd.Set(c, v)
			}
		}
		var extra []string
		for k := range r {
			if !e.hasColumn(k) {
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
		for _, k := range extra {
			cd.Set(k, r[k])
		}
		p.Rows = append(p.Rows, cd)
	}
	return p
}

func (e *Editor) hasColumn(name string) bool {
	for _, c := range e.columns {
		if c == name {
			return true
		}
	}
	return false
}

func blankRow(r map[string]string) bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
