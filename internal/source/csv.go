package source

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parking-cli/internal/ticket"
)

// CSVOptions configures the CSV reader.
type CSVOptions struct {
	Delimiter rune   // default ','
	Origin    uint64 // shard number stamped on every record
}

// StreamCSV parses a headered CSV extract and sends records to a channel.
// The caller must drain the record channel. At most one error is sent; both
// channels are closed when reading stops.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan ticket.RawRecord, <-chan error) {
	recCh := make(chan ticket.RawRecord, 256)
	errCh := make(chan error, 1)

	go func() {
		defer close(recCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1
		reader.ReuseRecord = true

		header, err := reader.Read()
		if err == io.EOF {
			return
		}
		if err != nil {
			errCh <- eris.Wrap(err, "csv: read header")
			return
		}
		cols, err := mapColumns(header)
		if err != nil {
			errCh <- err
			return
		}

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			rec, err := cols.parseRecord(record, opts.Origin)
			if err != nil {
				line, _ := reader.FieldPos(0)
				errCh <- eris.Wrapf(err, "csv: line %d", line)
				return
			}

			select {
			case recCh <- rec:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return recCh, errCh
}

// ReadCSV collects every record of a CSV extract.
func ReadCSV(ctx context.Context, r io.Reader, opts CSVOptions) ([]ticket.RawRecord, error) {
	recCh, errCh := StreamCSV(ctx, r, opts)
	var out []ticket.RawRecord
	for rec := range recCh {
		out = append(out, rec)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return out, nil
}
