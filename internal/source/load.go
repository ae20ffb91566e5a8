package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/parking-cli/internal/ticket"
)

// LoadOptions configures Load.
type LoadOptions struct {
	Origin    uint64 // for single-shard inputs (.csv, .xlsx); default 1
	Delimiter rune
	SheetName string
}

// Load reads an extract, picking the reader from the file extension:
// .zip (one shard per CSV entry), .csv, or .xlsx.
func Load(ctx context.Context, path string, opts LoadOptions) ([]ticket.RawRecord, error) {
	if opts.Origin == 0 {
		opts.Origin = 1
	}

	var (
		rows []ticket.RawRecord
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".zip":
		rows, err = ReadZIP(ctx, path)
	case ".xlsx":
		rows, err = ReadXLSX(path, XLSXOptions{SheetName: opts.SheetName, Origin: opts.Origin})
	case ".csv", ".txt":
		rows, err = loadCSVFile(ctx, path, opts)
	default:
		return nil, eris.Errorf("source: unsupported input %q (want .csv, .zip, or .xlsx)", path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "source: load %s", path)
	}

	zap.L().Info("source: loaded records", zap.String("path", path), zap.Int("rows", len(rows)))
	return rows, nil
}

func loadCSVFile(ctx context.Context, path string, opts LoadOptions) ([]ticket.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "csv: open file")
	}
	defer f.Close() //nolint:errcheck

	return ReadCSV(ctx, f, CSVOptions{Delimiter: opts.Delimiter, Origin: opts.Origin})
}
