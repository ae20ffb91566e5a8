package source

import (
	"archive/zip"
	"context"
	"path"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/parking-cli/internal/ticket"
)

// ReadZIP reads every CSV entry of a published archive. The yearly extract is
// split into shards; entries are taken in name order and the n-th shard gets
// origin n (1-based).
func ReadZIP(ctx context.Context, zipPath string) ([]ticket.RawRecord, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrap(err, "zip: open archive")
	}
	defer zr.Close() //nolint:errcheck

	var shards []*zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(path.Base(f.Name), ".") {
			continue
		}
		if strings.EqualFold(path.Ext(f.Name), ".csv") {
			shards = append(shards, f)
		}
	}
	if len(shards) == 0 {
		return nil, eris.New("zip: no CSV found in archive")
	}
	slices.SortFunc(shards, func(a, b *zip.File) int { return strings.Compare(a.Name, b.Name) })

	var out []ticket.RawRecord
	for i, f := range shards {
		origin := uint64(i + 1)
		rows, err := readZIPEntry(ctx, f, origin)
		if err != nil {
			return nil, err
		}
		zap.L().Debug("zip: read shard",
			zap.String("entry", f.Name),
			zap.Uint64("origin", origin),
			zap.Int("rows", len(rows)),
		)
		out = append(out, rows...)
	}
	return out, nil
}

func readZIPEntry(ctx context.Context, f *zip.File, origin uint64) ([]ticket.RawRecord, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, eris.Wrapf(err, "zip: open entry %s", f.Name)
	}
	defer rc.Close() //nolint:errcheck

	rows, err := ReadCSV(ctx, rc, CSVOptions{Origin: origin})
	if err != nil {
		return nil, eris.Wrapf(err, "zip: entry %s", f.Name)
	}
	return rows, nil
}
