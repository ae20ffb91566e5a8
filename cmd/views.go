package main

import (
	"context"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/parking-cli/internal/aggregate"
	"github.com/sells-group/parking-cli/internal/report"
	"github.com/sells-group/parking-cli/internal/ticket"
)

// -- counts --

var (
	countsInput     inputFlags
	countsFormat    string
	countsNormalize bool
	countsSortIndex bool
	countsTop       int
	countsWhere     []string
)

var countsCmd = &cobra.Command{
	Use:   "counts <column>",
	Short: "Count rows per distinct value of a column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		col, err := ticket.ParseColumn(args[0])
		if err != nil {
			return err
		}
		format, err := streamFormat(countsFormat)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		t, _, err := loadTable(ctx, cfg, countsInput)
		if err != nil {
			return err
		}
		if t, err = applyWhere(t, countsWhere); err != nil {
			return err
		}

		c, err := countsView(ctx, t, col, countsNormalize, countsSortIndex, countsTop, cfg.Aggregate.Workers)
		if err != nil {
			return err
		}
		return writeView(cmd.OutOrStdout(), format, c, func(w io.Writer) error {
			return report.WriteCounts(w, c)
		})
	},
}

func countsView(ctx context.Context, t *ticket.Table, col ticket.Column, normalize, sortIndex bool, top, workers int) (aggregate.Counts, error) {
	c, err := aggregate.ValueCountsParallel(ctx, t, col, normalize, workers)
	if err != nil {
		return nil, err
	}
	if sortIndex {
		c = aggregate.SortByIndex(c)
	}
	if top != 0 {
		return aggregate.TopN(c, top)
	}
	return c, nil
}

// applyWhere narrows a table by column=value pairs.
func applyWhere(t *ticket.Table, where []string) (*ticket.Table, error) {
	for _, w := range where {
		col, v, err := parseWhere(w)
		if err != nil {
			return nil, err
		}
		if t, err = aggregate.FilterEquals(t, col, v); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func parseWhere(s string) (ticket.Column, ticket.Value, error) {
	name, raw, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return "", ticket.Value{}, eris.Errorf("where: expected column=value, got %q", s)
	}
	col, err := ticket.ParseColumn(name)
	if err != nil {
		return "", ticket.Value{}, err
	}
	v, err := ticket.ParseValue(col, raw)
	if err != nil {
		return "", ticket.Value{}, eris.Wrapf(err, "where %s", s)
	}
	return col, v, nil
}

// -- catalog --

var (
	catalogInput  inputFlags
	catalogFormat string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List distinct infraction codes with description and fine",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := streamFormat(catalogFormat)
		if err != nil {
			return err
		}
		t, _, err := loadTable(cmd.Context(), cfg, catalogInput)
		if err != nil {
			return err
		}
		entries := aggregate.Catalog(t)
		return writeView(cmd.OutOrStdout(), format, entries, func(w io.Writer) error {
			return report.WriteCatalog(w, entries)
		})
	},
}

// -- histogram --

var (
	histogramInput   inputFlags
	histogramFormat  string
	histogramMin     float64
	histogramMax     float64
	histogramBuckets int
)

var histogramCmd = &cobra.Command{
	Use:   "histogram [column]",
	Short: "Bin a numeric column into fixed-width buckets",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := cfg.Histogram.Column
		if len(args) == 1 {
			name = args[0]
		}
		col, err := ticket.ParseColumn(name)
		if err != nil {
			return err
		}
		format, err := streamFormat(histogramFormat)
		if err != nil {
			return err
		}

		lo, hi, buckets := cfg.Histogram.Min, cfg.Histogram.Max, cfg.Histogram.Buckets
		if cmd.Flags().Changed("min") {
			lo = histogramMin
		}
		if cmd.Flags().Changed("max") {
			hi = histogramMax
		}
		if cmd.Flags().Changed("buckets") {
			buckets = histogramBuckets
		}

		t, _, err := loadTable(cmd.Context(), cfg, histogramInput)
		if err != nil {
			return err
		}
		h, err := aggregate.HistogramBuckets(t, col, lo, hi, buckets)
		if err != nil {
			return err
		}
		return writeView(cmd.OutOrStdout(), format, h, func(w io.Writer) error {
			report.WriteHistogram(w, h)
			return nil
		})
	},
}

// -- describe --

var (
	describeInput  inputFlags
	describeFormat string
)

var describeCmd = &cobra.Command{
	Use:   "describe <column>",
	Short: "Descriptive statistics for a numeric column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		col, err := ticket.ParseColumn(args[0])
		if err != nil {
			return err
		}
		format, err := streamFormat(describeFormat)
		if err != nil {
			return err
		}
		t, _, err := loadTable(cmd.Context(), cfg, describeInput)
		if err != nil {
			return err
		}
		d, err := aggregate.Describe(t, col)
		if err != nil {
			return err
		}
		if format == report.FormatText {
			format = report.FormatYAML
		}
		return report.Write(cmd.OutOrStdout(), format, d)
	},
}

// streamFormat accepts every format except xlsx, which needs a summary.
func streamFormat(s string) (report.Format, error) {
	f, err := report.ParseFormat(s)
	if err != nil {
		return "", err
	}
	if f == report.FormatXLSX {
		return "", eris.New("xlsx output is only available from summarize")
	}
	return f, nil
}

func writeView(w io.Writer, f report.Format, v any, text func(io.Writer) error) error {
	if f == report.FormatText {
		return text(w)
	}
	return report.Write(w, f, v)
}

func init() {
	countsInput.register(countsCmd)
	countsCmd.Flags().StringVar(&countsFormat, "format", "text", "output format: text, json, yaml")
	countsCmd.Flags().BoolVar(&countsNormalize, "normalize", false, "include each value's fraction of all rows")
	countsCmd.Flags().BoolVar(&countsSortIndex, "sort-index", false, "order by value instead of count")
	countsCmd.Flags().IntVar(&countsTop, "top", 0, "keep only the first N entries")
	countsCmd.Flags().StringArrayVar(&countsWhere, "where", nil, "filter rows by column=value before counting (repeatable)")

	catalogInput.register(catalogCmd)
	catalogCmd.Flags().StringVar(&catalogFormat, "format", "text", "output format: text, json, yaml")

	histogramInput.register(histogramCmd)
	histogramCmd.Flags().StringVar(&histogramFormat, "format", "text", "output format: text, json, yaml")
	histogramCmd.Flags().Float64Var(&histogramMin, "min", 0, "range lower bound (default histogram.min)")
	histogramCmd.Flags().Float64Var(&histogramMax, "max", 0, "range upper bound (default histogram.max)")
	histogramCmd.Flags().IntVar(&histogramBuckets, "buckets", 0, "bucket count (default histogram.buckets)")

	describeInput.register(describeCmd)
	describeCmd.Flags().StringVar(&describeFormat, "format", "text", "output format: text (yaml), json, yaml")

	rootCmd.AddCommand(countsCmd, catalogCmd, histogramCmd, describeCmd)
}
