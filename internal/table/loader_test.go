package table

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func readString(t *testing.T, s string, opts Options) (*Table, error) {
	t.Helper()
	return Read(strings.NewReader(s), opts)
}

func TestRead_PreservesColumnsAndWidth(t *testing.T) {
	input := "lon,lat,name\n2.35,48.85,Paris\n-0.12,51.5,London\n13.4,52.52,Berlin\n"

	tbl, err := readString(t, input, DefaultOptions())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	want := []string{"lon", "lat", "name"}
	if len(tbl.Columns) != len(want) {
		t.Fatalf("Columns = %v, want %v", tbl.Columns, want)
	}
	for i, c := range want {
		if tbl.Columns[i] != c {
			t.Errorf("Columns[%d] = %q, want %q", i, tbl.Columns[i], c)
		}
	}

	if len(tbl.Rows) != 3 {
		t.Fatalf("len(Rows) = %d, want 3", len(tbl.Rows))
	}
	for i, row := range tbl.Rows {
		if len(row.Cells) != len(tbl.Columns) {
			t.Errorf("row %d has %d cells, want %d", i, len(row.Cells), len(tbl.Columns))
		}
	}

	cell, ok := tbl.Cell(1, "lat")
	if !ok || cell.Kind != CellNumber || cell.Number != 51.5 {
		t.Errorf("Cell(1, lat) = %+v, want number 51.5", cell)
	}
	if tbl.Rows[2].Line != 4 {
		t.Errorf("Rows[2].Line = %d, want 4", tbl.Rows[2].Line)
	}
}

func TestRead_CellClassification(t *testing.T) {
	input := "a,b,c\n  ,1e3,hello\n"

	tbl, err := readString(t, input, DefaultOptions())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	cells := tbl.Rows[0].Cells
	if cells[0].Kind != CellEmpty {
		t.Errorf("whitespace cell kind = %v, want empty", cells[0].Kind)
	}
	if cells[1].Kind != CellNumber || cells[1].Number != 1000 {
		t.Errorf("b = %+v, want number 1000", cells[1])
	}
	if cells[2].Kind != CellText || cells[2].Raw != "hello" {
		t.Errorf("c = %+v, want text hello", cells[2])
	}
}

func TestRead_TrimsHeader(t *testing.T) {
	tbl, err := readString(t, " x , y \n1,2\n", DefaultOptions())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if tbl.Columns[0] != "x" || tbl.Columns[1] != "y" {
		t.Errorf("Columns = %q, want [x y]", tbl.Columns)
	}
}

func TestRead_DuplicateColumn(t *testing.T) {
	_, err := readString(t, "x, y ,y\n1,2,3\n", DefaultOptions())

	var dup *DuplicateColumnError
	if !errors.As(err, &dup) {
		t.Fatalf("Read() error = %v, want DuplicateColumnError", err)
	}
	if dup.Name != "y" || dup.First != 2 || dup.Second != 3 {
		t.Errorf("DuplicateColumnError = %+v, want y at 2 and 3", dup)
	}
}

func TestRead_BlankHeaderName(t *testing.T) {
	_, err := readString(t, "x,,z\n1,2,3\n", DefaultOptions())

	var mal *MalformedInputError
	if !errors.As(err, &mal) {
		t.Fatalf("Read() error = %v, want MalformedInputError", err)
	}
}

func TestRead_InconsistentWidth(t *testing.T) {
	_, err := readString(t, "x,y\n1,2\n3\n", DefaultOptions())

	var mal *MalformedInputError
	if !errors.As(err, &mal) {
		t.Fatalf("Read() error = %v, want MalformedInputError", err)
	}
	if mal.Line != 3 {
		t.Errorf("Line = %d, want 3", mal.Line)
	}
}

func TestRead_Empty(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no bytes", ""},
		{"header only", "x,y\n"},
		{"blank rows only", "x,y\n,\n , \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readString(t, tt.input, DefaultOptions())
			var empty *EmptyInputError
			if !errors.As(err, &empty) {
				t.Fatalf("Read() error = %v, want EmptyInputError", err)
			}
		})
	}
}

func TestRead_SkipsBlankRows(t *testing.T) {
	tbl, err := readString(t, "x,y\n1,2\n,\n3,4\n", DefaultOptions())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(tbl.Rows))
	}
	if tbl.Rows[1].Line != 4 {
		t.Errorf("Rows[1].Line = %d, want 4", tbl.Rows[1].Line)
	}
}

func TestRead_InvalidUTF8(t *testing.T) {
	input := "x,name\n1,Caf\xe9\n"

	_, err := readString(t, input, DefaultOptions())

	var mal *MalformedInputError
	if !errors.As(err, &mal) {
		t.Fatalf("Read() error = %v, want MalformedInputError", err)
	}
	if mal.Offset != int64(strings.Index(input, "\xe9")) {
		t.Errorf("Offset = %d, want %d", mal.Offset, strings.Index(input, "\xe9"))
	}
}

func TestRead_StripsBOM(t *testing.T) {
	tbl, err := readString(t, "\xef\xbb\xbfx,y\n1,2\n", DefaultOptions())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if tbl.Columns[0] != "x" {
		t.Errorf("Columns[0] = %q, want %q", tbl.Columns[0], "x")
	}
}

func TestRead_Windows1252(t *testing.T) {
	opts := DefaultOptions()
	opts.Encoding = "windows-1252"

	tbl, err := readString(t, "x,name\n1,Caf\xe9\n", opts)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got := tbl.Rows[0].Cells[1].Raw; got != "Café" {
		t.Errorf("name = %q, want %q", got, "Café")
	}
}

func TestRead_UnknownEncoding(t *testing.T) {
	opts := DefaultOptions()
	opts.Encoding = "klingon"

	_, err := readString(t, "x\n1\n", opts)
	var mal *MalformedInputError
	if !errors.As(err, &mal) {
		t.Fatalf("Read() error = %v, want MalformedInputError", err)
	}
}

func TestRead_SemicolonWithDecimalComma(t *testing.T) {
	opts := DefaultOptions()
	opts.Delimiter = ';'

	tbl, err := readString(t, "LONGUEUR;LARGEUR\n12,5;3\n", opts)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	cell := tbl.Rows[0].Cells[0]
	if cell.Kind != CellNumber || cell.Number != 12.5 {
		t.Errorf("LONGUEUR = %+v, want 12.5", cell)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		raw       string
		decimal   rune
		delimiter rune
		want      float64
		wantOK    bool
	}{
		{"123", '.', ',', 123, true},
		{"-4.5", '.', ',', -4.5, true},
		{"+.5", '.', ',', 0.5, true},
		{"7.", '.', ',', 7, true},
		{"1.5e3", '.', ',', 1500, true},
		{"2E-2", '.', ',', 0.02, true},
		{"  42  ", '.', ',', 42, true},
		{"1,5", ',', ';', 1.5, true},
		{"1,5", DecimalAuto, ';', 1.5, true},
		{"1,5", DecimalAuto, ',', 0, false},
		{"1,5", '.', ';', 0, false},
		{"1.234,5", ',', ';', 0, false},
		{"1,2,3", ',', ';', 0, false},
		{"abc", '.', ',', 0, false},
		{"1e", '.', ',', 0, false},
		{"NaN", '.', ',', 0, false},
		{"Inf", '.', ',', 0, false},
		{"1e999", '.', ',', 0, false},
		{"", '.', ',', 0, false},
		{"$12", '.', ',', 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseNumber(tt.raw, tt.decimal, tt.delimiter)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("ParseNumber(%q, %q, %q) = (%v, %v), want (%v, %v)",
				tt.raw, tt.decimal, tt.delimiter, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseDecimalSeparator(t *testing.T) {
	for in, want := range map[string]rune{"": DecimalAuto, "auto": DecimalAuto, ".": '.', ",": ','} {
		got, err := ParseDecimalSeparator(in)
		if err != nil || got != want {
			t.Errorf("ParseDecimalSeparator(%q) = (%q, %v), want %q", in, got, err, want)
		}
	}
	if _, err := ParseDecimalSeparator("'"); err == nil {
		t.Error("ParseDecimalSeparator(\"'\") expected error")
	}
}

func TestLoad_SetsPathOnErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, []byte("x,y\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path, DefaultOptions())
	var empty *EmptyInputError
	if !errors.As(err, &empty) {
		t.Fatalf("Load() error = %v, want EmptyInputError", err)
	}
	if empty.Path != path {
		t.Errorf("Path = %q, want %q", empty.Path, path)
	}
}

func TestLoad_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.xlsx")

	f := excelize.NewFile()
	rows := [][]any{
		{"east", "north", "tag"},
		{10.5, 20, "A"},
		{11, 21.25},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	tbl, err := Load(path, DefaultOptions())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(tbl.Columns) != 3 || tbl.Columns[1] != "north" {
		t.Fatalf("Columns = %v", tbl.Columns)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(tbl.Rows))
	}
	if c := tbl.Rows[0].Cells[0]; c.Kind != CellNumber || c.Number != 10.5 {
		t.Errorf("east[0] = %+v, want 10.5", c)
	}
	if c := tbl.Rows[1].Cells[2]; c.Kind != CellEmpty {
		t.Errorf("padded tag = %+v, want empty", c)
	}
	if tbl.Rows[1].Line != 3 {
		t.Errorf("Rows[1].Line = %d, want 3", tbl.Rows[1].Line)
	}
}
