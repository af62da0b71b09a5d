package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Options controls how a file is read.
type Options struct {
	Delimiter        rune   // field separator, default ','
	Encoding         string // WHATWG encoding label, default "utf-8"
	DecimalSeparator rune   // '.', ',' or DecimalAuto
	Sheet            string // worksheet for .xlsx inputs; empty selects the first
}

// DefaultOptions returns comma-delimited UTF-8 with automatic decimal handling.
func DefaultOptions() Options {
	return Options{
		Delimiter:        ',',
		Encoding:         "utf-8",
		DecimalSeparator: DecimalAuto,
	}
}

func (o Options) withDefaults() Options {
	if o.Delimiter == 0 {
		o.Delimiter = ','
	}
	if o.Encoding == "" {
		o.Encoding = "utf-8"
	}
	return o
}

// Load reads the file at path. Files ending in .xlsx are read with LoadXLSX;
// everything else is treated as delimited text.
func Load(path string, opts Options) (*Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return LoadXLSX(path, opts)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, err := Read(f, opts)
	if err != nil {
		return nil, withPath(err, path)
	}
	return t, nil
}

// Read parses delimited text from r. The first record is the header.
func Read(r io.Reader, opts Options) (*Table, error) {
	opts = opts.withDefaults()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	text, err := decode(data, opts.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(bytes.NewReader(text))
	cr.Comma = opts.Delimiter
	cr.FieldsPerRecord = 0 // header fixes the width

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &EmptyInputError{Reason: "missing header row"}
	}
	if err != nil {
		return nil, csvError(err, 0)
	}

	b, err := newBuilder(header, opts)
	if err != nil {
		return nil, err
	}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(err, len(b.t.Columns))
		}
		line, _ := cr.FieldPos(0)
		if err := b.add(record, line); err != nil {
			return nil, err
		}
	}

	return b.finish()
}

// csvError converts encoding/csv failures into MalformedInputError.
func csvError(err error, width int) error {
	var pe *csv.ParseError
	if !errors.As(err, &pe) {
		return &MalformedInputError{Offset: -1, Reason: err.Error(), Err: err}
	}
	if errors.Is(pe.Err, csv.ErrFieldCount) {
		return malformedAt(pe.StartLine, fmt.Sprintf("row width differs from header (%d columns)", width), pe.Err)
	}
	return malformedAt(pe.Line, pe.Err.Error(), pe.Err)
}

// builder accumulates rows for a known header. It is shared by the CSV and
// spreadsheet readers so both enforce the same invariants.
type builder struct {
	t         *Table
	decimal   rune
	delimiter rune
	padShort  bool
}

func newBuilder(header []string, opts Options) (*builder, error) {
	columns := make([]string, len(header))
	seen := make(map[string]int, len(header))

	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			return nil, malformedAt(1, fmt.Sprintf("column %d has a blank name", i+1), nil)
		}
		if first, dup := seen[name]; dup {
			return nil, &DuplicateColumnError{Name: name, First: first + 1, Second: i + 1}
		}
		seen[name] = i
		columns[i] = name
	}

	return &builder{
		t:         newTable(columns),
		decimal:   opts.DecimalSeparator,
		delimiter: opts.Delimiter,
	}, nil
}

func (b *builder) add(record []string, line int) error {
	width := len(b.t.Columns)
	if len(record) > width || (len(record) < width && !b.padShort) {
		return malformedAt(line, fmt.Sprintf("row has %d fields, header has %d", len(record), width), nil)
	}

	cells := make([]Cell, width)
	empty := true
	for i := range cells {
		if i >= len(record) {
			continue
		}
		cells[i] = parseCell(record[i], b.decimal, b.delimiter)
		if cells[i].Kind != CellEmpty {
			empty = false
		}
	}

	// Fully blank rows carry no geometry; skip them but keep line numbering.
	if empty {
		return nil
	}

	b.t.Rows = append(b.t.Rows, Row{Line: line, Cells: cells})
	return nil
}

func (b *builder) finish() (*Table, error) {
	if len(b.t.Rows) == 0 {
		return nil, &EmptyInputError{Reason: "no data rows after header"}
	}
	return b.t, nil
}
