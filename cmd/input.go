package main

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/parking-cli/internal/config"
	"github.com/sells-group/parking-cli/internal/normalize"
	"github.com/sells-group/parking-cli/internal/source"
	"github.com/sells-group/parking-cli/internal/ticket"
)

// inputFlags are shared by every command that reads an extract.
type inputFlags struct {
	path     string
	origin   uint64
	noRepair bool
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.path, "input", "", "extract to read: .csv, .zip, or .xlsx (default source.path)")
	cmd.Flags().Uint64Var(&f.origin, "origin", 1, "origin shard (1-4) for single-file inputs")
	cmd.Flags().BoolVar(&f.noRepair, "no-repair", false, "leave missing infraction codes flagged")
}

func (f *inputFlags) resolve(c *config.Config) string {
	if f.path != "" {
		return f.path
	}
	return c.Source.Path
}

func normalizeOptions(c *config.Config, noRepair bool) normalize.Options {
	return normalize.Options{
		SkipRepair: noRepair || !c.Normalize.RepairMissingCode,
		RepairCode: c.Normalize.RepairCode,
	}
}

// loadTable reads an extract and normalizes it. The diagnostics are returned
// even when ingest fails.
func loadTable(ctx context.Context, c *config.Config, f inputFlags) (*ticket.Table, *normalize.Diagnostics, error) {
	path := f.resolve(c)
	if path == "" {
		return nil, nil, eris.New("no input: pass --input or set source.path")
	}

	start := time.Now()
	records, err := source.Load(ctx, path, source.LoadOptions{
		Origin:    f.origin,
		Delimiter: c.Source.DelimiterRune(),
		SheetName: c.Source.Sheet,
	})
	if err != nil {
		return nil, nil, err
	}

	t, diag, err := normalize.Ingest(records, normalizeOptions(c, f.noRepair))
	logDiagnostics(path, diag, time.Since(start), err)
	if err != nil {
		return nil, diag, eris.Wrap(err, "ingest")
	}
	return t, diag, nil
}

func logDiagnostics(path string, d *normalize.Diagnostics, elapsed time.Duration, err error) {
	if d == nil {
		return
	}
	fields := []zap.Field{
		zap.String("path", path),
		zap.Int("rows", d.TotalRows),
		zap.Int("missing_infraction_code", d.MissingCodeCount()),
		zap.Int("missing_time_of_infraction", d.MissingTimeCount()),
		zap.Int("irregular_times", len(d.IrregularTimes)),
		zap.Int("repaired_rows", len(d.Repair.Rows)),
		zap.Duration("elapsed", elapsed),
	}

	var ambiguous *normalize.AmbiguousRepairError
	var overflow *normalize.RangeOverflowError
	switch {
	case errors.As(err, &ambiguous):
		zap.L().Error("ingest: repair rejected", append(fields,
			zap.Uint64("repair_code", ambiguous.Code),
			zap.Int("conflicting_rows", len(ambiguous.Conflicting)),
		)...)
	case errors.As(err, &overflow):
		zap.L().Error("ingest: value out of range", append(fields,
			zap.String("column", overflow.Column.String()),
			zap.Uint64("value", overflow.Value),
			zap.Int("row", overflow.Row.Index),
		)...)
	case err != nil:
		zap.L().Error("ingest failed", append(fields, zap.Error(err))...)
	default:
		zap.L().Info("ingest complete", fields...)
	}
}
