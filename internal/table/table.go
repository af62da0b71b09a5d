// Package table loads delimited text (and .xlsx) files into an in-memory
// table of uniquely named columns with typed cells.
//
// Every row of a Table has exactly one cell per header column, in header
// order. Cells are classified once at load time as numbers, text, or empty,
// so later stages never re-parse raw strings.
package table

import "fmt"

// CellKind is the primitive type of a single cell.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellNumber
	CellText
)

// String returns the lowercase name used in profiles and prompts.
func (k CellKind) String() string {
	switch k {
	case CellEmpty:
		return "empty"
	case CellNumber:
		return "numeric"
	case CellText:
		return "text"
	default:
		return "unknown"
	}
}

func (k CellKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *CellKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "empty":
		*k = CellEmpty
	case "numeric":
		*k = CellNumber
	case "text":
		*k = CellText
	default:
		return fmt.Errorf("unknown cell kind %q", b)
	}
	return nil
}

// Cell is one typed value. Raw keeps the trimmed source text for labels and
// layer names; Number is meaningful only when Kind is CellNumber.
type Cell struct {
	Kind   CellKind
	Raw    string
	Number float64
}

// Row is one data record. Line is the 1-based line (or spreadsheet row) the
// record started on, for error messages.
type Row struct {
	Line  int
	Cells []Cell
}

// Table is an ordered header plus ordered rows of equal width.
type Table struct {
	Columns []string
	Rows    []Row

	index map[string]int
}

func newTable(columns []string) *Table {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		idx[c] = i
	}
	return &Table{Columns: columns, index: idx}
}

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	if t.index == nil {
		t.index = make(map[string]int, len(t.Columns))
		for i, c := range t.Columns {
			t.index[c] = i
		}
	}
	i, ok := t.index[name]
	return i, ok
}

// Cell returns the cell at the given row index for the named column.
func (t *Table) Cell(row int, column string) (Cell, bool) {
	col, ok := t.ColumnIndex(column)
	if !ok || row < 0 || row >= len(t.Rows) {
		return Cell{}, false
	}
	return t.Rows[row].Cells[col], true
}
