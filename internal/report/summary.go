// Package report assembles the summary views handed to presentation layers
// and renders them as text, JSON, YAML, or XLSX.
package report

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parking-cli/internal/aggregate"
	"github.com/sells-group/parking-cli/internal/normalize"
	"github.com/sells-group/parking-cli/internal/ticket"
)

// HistogramOptions selects the histogram included in a summary.
type HistogramOptions struct {
	Column  ticket.Column
	Min     float64
	Max     float64
	Buckets int
}

// Options controls which views Build computes.
type Options struct {
	Source string
	// TopN bounds the top codes and provinces views. 0 keeps every entry;
	// negative values are rejected.
	TopN      int
	Workers   int
	Histogram HistogramOptions
}

// DiagnosticsSummary is the count-level view of normalize.Diagnostics.
type DiagnosticsSummary struct {
	MissingInfractionCode   int    `json:"missing_infraction_code" yaml:"missing_infraction_code"`
	MissingTimeOfInfraction int    `json:"missing_time_of_infraction" yaml:"missing_time_of_infraction"`
	IrregularTimes          int    `json:"irregular_times" yaml:"irregular_times"`
	RepairedRows            int    `json:"repaired_rows" yaml:"repaired_rows"`
	RepairCode              uint64 `json:"repair_code" yaml:"repair_code"`
	RepairRejected          string `json:"repair_rejected,omitempty" yaml:"repair_rejected,omitempty"`
}

// Summary is the set of views produced for one extract.
type Summary struct {
	Source       string                   `json:"source" yaml:"source"`
	GeneratedAt  time.Time                `json:"generated_at" yaml:"generated_at"`
	Rows         int                      `json:"rows" yaml:"rows"`
	RevenueTotal uint64                   `json:"revenue_total" yaml:"revenue_total"`
	Fines        *aggregate.Description   `json:"fines" yaml:"fines"`
	FineCounts   aggregate.Counts         `json:"fine_counts" yaml:"fine_counts"`
	TopCodes     aggregate.Counts         `json:"top_codes" yaml:"top_codes"`
	Provinces    aggregate.Counts         `json:"provinces" yaml:"provinces"`
	Catalog      []aggregate.CatalogEntry `json:"catalog" yaml:"catalog"`
	Histogram    *aggregate.Histogram     `json:"histogram" yaml:"histogram"`
	Diagnostics  DiagnosticsSummary       `json:"diagnostics" yaml:"diagnostics"`
}

// Summarize condenses diagnostics into counts.
func Summarize(d *normalize.Diagnostics) DiagnosticsSummary {
	if d == nil {
		return DiagnosticsSummary{}
	}
	return DiagnosticsSummary{
		MissingInfractionCode:   d.MissingCodeCount(),
		MissingTimeOfInfraction: d.MissingTimeCount(),
		IrregularTimes:          len(d.IrregularTimes),
		RepairedRows:            len(d.Repair.Rows),
		RepairCode:              d.Repair.Code,
		RepairRejected:          d.Repair.Rejected,
	}
}

// Build computes every summary view over a normalized table.
func Build(ctx context.Context, t *ticket.Table, d *normalize.Diagnostics, opts Options) (*Summary, error) {
	s := &Summary{
		Source:       opts.Source,
		GeneratedAt:  time.Now().UTC(),
		Rows:         t.Len(),
		RevenueTotal: aggregate.RevenueTotal(t),
		Catalog:      aggregate.Catalog(t),
		Diagnostics:  Summarize(d),
	}

	var err error
	if s.Fines, err = aggregate.Describe(t, ticket.ColSetFineAmount); err != nil {
		return nil, eris.Wrap(err, "report: describe fines")
	}

	fines, err := aggregate.ValueCountsParallel(ctx, t, ticket.ColSetFineAmount, false, opts.Workers)
	if err != nil {
		return nil, eris.Wrap(err, "report: fine counts")
	}
	s.FineCounts = aggregate.SortByIndex(fines)

	codes, err := aggregate.ValueCountsParallel(ctx, t, ticket.ColInfractionCode, true, opts.Workers)
	if err != nil {
		return nil, eris.Wrap(err, "report: code counts")
	}
	if s.TopCodes, err = truncate(codes, opts.TopN); err != nil {
		return nil, eris.Wrap(err, "report: top codes")
	}

	provinces, err := aggregate.ValueCountsParallel(ctx, t, ticket.ColProvince, false, opts.Workers)
	if err != nil {
		return nil, eris.Wrap(err, "report: province counts")
	}
	if s.Provinces, err = truncate(provinces, opts.TopN); err != nil {
		return nil, eris.Wrap(err, "report: top provinces")
	}

	h := opts.Histogram
	if s.Histogram, err = aggregate.HistogramBuckets(t, h.Column, h.Min, h.Max, h.Buckets); err != nil {
		return nil, eris.Wrap(err, "report: histogram")
	}

	return s, nil
}

func truncate(c aggregate.Counts, n int) (aggregate.Counts, error) {
	if n == 0 {
		return c, nil
	}
	return aggregate.TopN(c, n)
}
