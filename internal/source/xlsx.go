package source

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/parking-cli/internal/ticket"
)

// XLSXOptions configures the XLSX reader.
type XLSXOptions struct {
	SheetName string // if empty, the first sheet is used
	Origin    uint64
}

// ReadXLSX reads a spreadsheet export whose first row is the header.
func ReadXLSX(path string, opts XLSXOptions) ([]ticket.RawRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheet, err := pickSheet(f, opts.SheetName)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, nil
	}

	cols, err := mapColumns(cellStrings(sheet.Rows[0]))
	if err != nil {
		return nil, err
	}

	out := make([]ticket.RawRecord, 0, len(sheet.Rows)-1)
	for i, row := range sheet.Rows[1:] {
		rec, err := cols.parseRecord(cellStrings(row), opts.Origin)
		if err != nil {
			return nil, eris.Wrapf(err, "xlsx: row %d", i+2)
		}
		out = append(out, rec)
	}
	return out, nil
}

func pickSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func cellStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
