package main

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/parking-cli/internal/config"
	"github.com/sells-group/parking-cli/internal/report"
	"github.com/sells-group/parking-cli/internal/store"
	"github.com/sells-group/parking-cli/internal/ticket"
)

var (
	summarizeInput  inputFlags
	summarizeFormat string
	summarizeOutput string
	summarizeTop    int
	summarizeSave   bool
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Ingest an extract and print its summary views",
	Long:  "Loads and normalizes an extract, then reports revenue, fine counts, top infraction codes, provinces, the infraction catalog, and the time-of-day histogram.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("summarize"); err != nil {
			return err
		}
		format, err := report.ParseFormat(summarizeFormat)
		if err != nil {
			return err
		}
		if format == report.FormatXLSX && summarizeOutput == "" {
			return eris.New("xlsx output needs --output")
		}

		ctx := cmd.Context()
		source := summarizeInput.resolve(cfg)

		var st store.Store
		var run *store.Run
		if summarizeSave {
			st, err = initStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if run, err = st.CreateRun(ctx, source); err != nil {
				return err
			}
		}

		var top *int
		if cmd.Flags().Changed("top") {
			top = &summarizeTop
		}
		s, err := runSummary(ctx, cfg, summarizeInput, top)
		if err != nil {
			if run != nil {
				if ferr := st.FailRun(ctx, run.ID, err); ferr != nil {
					zap.L().Warn("summarize: record failed run", zap.Error(ferr))
				}
			}
			return err
		}

		if run != nil {
			if err := st.CompleteRun(ctx, run.ID, s); err != nil {
				return err
			}
			zap.L().Info("summarize: archived run", zap.String("run_id", run.ID))
		}

		return emitSummary(cmd.OutOrStdout(), format, summarizeOutput, s)
	},
}

// runSummary builds the summary for one extract. A nil top uses aggregate.top_n.
func runSummary(ctx context.Context, c *config.Config, in inputFlags, top *int) (*report.Summary, error) {
	t, diag, err := loadTable(ctx, c, in)
	if err != nil {
		return nil, err
	}
	return report.Build(ctx, t, diag, summaryOptions(c, in.resolve(c), top))
}

// summaryOptions maps config onto report options. top overrides
// aggregate.top_n when set; 0 keeps every entry and negative values fail in
// report.Build.
func summaryOptions(c *config.Config, src string, top *int) report.Options {
	n := c.Aggregate.TopN
	if top != nil {
		n = *top
	}
	col, err := ticket.ParseColumn(c.Histogram.Column)
	if err != nil {
		zap.L().Warn("summarize: unknown histogram column, using time_of_infraction", zap.String("column", c.Histogram.Column))
		col = ticket.ColTimeOfInfraction
	}
	return report.Options{
		Source:  src,
		TopN:    n,
		Workers: c.Aggregate.Workers,
		Histogram: report.HistogramOptions{
			Column:  col,
			Min:     c.Histogram.Min,
			Max:     c.Histogram.Max,
			Buckets: c.Histogram.Buckets,
		},
	}
}

func emitSummary(stdout io.Writer, format report.Format, output string, s *report.Summary) error {
	if format == report.FormatXLSX {
		return report.WriteXLSX(output, s)
	}

	w := stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return eris.Wrap(err, "summarize: create output")
		}
		defer f.Close() //nolint:errcheck
		w = f
	}

	if format == report.FormatText {
		return report.WriteText(w, s)
	}
	return report.Write(w, format, s)
}

func init() {
	summarizeInput.register(summarizeCmd)
	summarizeCmd.Flags().StringVar(&summarizeFormat, "format", "text", "output format: text, json, yaml, xlsx")
	summarizeCmd.Flags().StringVar(&summarizeOutput, "output", "", "write to a file instead of stdout")
	summarizeCmd.Flags().IntVar(&summarizeTop, "top", 0, "entries in top-N views, 0 for all (default aggregate.top_n)")
	summarizeCmd.Flags().BoolVar(&summarizeSave, "save", false, "archive the summary in the configured store")
	rootCmd.AddCommand(summarizeCmd)
}
