package table

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// LoadXLSX reads one worksheet of an Excel workbook. The first row is the
// header. Excel drops trailing blank cells, so short rows are padded with
// empty cells; rows wider than the header are still malformed.
func LoadXLSX(path string, opts Options) (*Table, error) {
	opts = opts.withDefaults()

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, withPath(&MalformedInputError{Offset: -1, Reason: "not a readable xlsx workbook", Err: err}, path)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &EmptyInputError{Path: path, Reason: "workbook has no sheets"}
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, withPath(&MalformedInputError{Offset: -1, Reason: fmt.Sprintf("read sheet %q", sheet), Err: err}, path)
	}
	if len(rows) == 0 {
		return nil, &EmptyInputError{Path: path, Reason: fmt.Sprintf("sheet %q has no header row", sheet)}
	}

	// Numbers in xlsx cells always use '.', whatever the locale.
	opts.DecimalSeparator = '.'
	b, err := newBuilder(rows[0], opts)
	if err != nil {
		return nil, withPath(err, path)
	}
	b.padShort = true

	for i, record := range rows[1:] {
		if err := b.add(record, i+2); err != nil {
			return nil, withPath(err, path)
		}
	}

	t, err := b.finish()
	if err != nil {
		return nil, withPath(err, path)
	}
	return t, nil
}
