package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/parking-cli/internal/aggregate"
)

// Format names an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatYAML, FormatXLSX:
		return f, nil
	default:
		return "", eris.Errorf("report: unknown format %q (valid: text, json, yaml, xlsx)", s)
	}
}

// Write renders any view in a streaming format. XLSX is file-only; use WriteXLSX.
func Write(w io.Writer, f Format, v any) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "report: encode json")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "report: encode yaml")
		}
		return eris.Wrap(enc.Close(), "report: close yaml encoder")
	default:
		return eris.Errorf("report: format %q is not a stream format", f)
	}
}

var printer = message.NewPrinter(language.English)

// WriteText renders a summary as aligned plain-text tables.
func WriteText(w io.Writer, s *Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	p := func(format string, args ...any) { printer.Fprintf(tw, format, args...) }

	p("Source:\t%s\n", s.Source)
	p("Tickets:\t%d\n", s.Rows)
	p("Revenue:\t$%d\n", s.RevenueTotal)
	if s.Fines != nil && s.Fines.Count > 0 {
		p("Fine mean/median:\t$%.2f / $%.0f\n", s.Fines.Mean, s.Fines.Median)
	}
	d := s.Diagnostics
	p("Missing code/time:\t%d / %d\n", d.MissingInfractionCode, d.MissingTimeOfInfraction)
	if d.RepairedRows > 0 {
		p("Repaired codes:\t%d row(s) set to %d\n", d.RepairedRows, d.RepairCode)
	}
	if d.RepairRejected != "" {
		p("Repair rejected:\t%s\n", d.RepairRejected)
	}
	p("Irregular times:\t%d\n", d.IrregularTimes)

	p("\nTop infraction codes\n")
	writeCounts(tw, s.TopCodes)
	p("\nTop provinces\n")
	writeCounts(tw, s.Provinces)
	p("\nFine amounts\n")
	writeCounts(tw, s.FineCounts)

	if h := s.Histogram; h != nil {
		p("\n%s histogram (width %.4g, %d excluded, %d missing)\n", h.Column, h.Width, h.Excluded, h.Missing)
		WriteHistogram(tw, h)
	}

	if err := tw.Flush(); err != nil {
		return eris.Wrap(err, "report: flush text")
	}
	return nil
}

// WriteCounts renders a counts view as a two or three column table.
func WriteCounts(w io.Writer, c aggregate.Counts) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	writeCounts(tw, c)
	return eris.Wrap(tw.Flush(), "report: flush counts")
}

func writeCounts(w io.Writer, c aggregate.Counts) {
	normalized := false
	for _, e := range c {
		if e.Fraction > 0 {
			normalized = true
			break
		}
	}
	for _, e := range c {
		if normalized {
			printer.Fprintf(w, "  %s\t%d\t%.2f%%\n", e.Value, e.Count, e.Fraction*100)
		} else {
			printer.Fprintf(w, "  %s\t%d\n", e.Value, e.Count)
		}
	}
}

// WriteHistogram renders buckets with a proportional bar.
func WriteHistogram(w io.Writer, h *aggregate.Histogram) {
	peak := 0
	for _, b := range h.Buckets {
		peak = max(peak, b.Count)
	}
	for _, b := range h.Buckets {
		bar := 0
		if peak > 0 {
			bar = b.Count * 40 / peak
		}
		printer.Fprintf(w, "  %s\t%d\t%s\n", formatBound(b.Lower), b.Count, strings.Repeat("#", bar))
	}
}

func formatBound(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%.2f", f)
}

// WriteCatalog renders the infraction catalog.
func WriteCatalog(w io.Writer, entries []aggregate.CatalogEntry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tFINE\tDESCRIPTION")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%d\t%s\n", e.Code, e.Fine, e.Description)
	}
	return eris.Wrap(tw.Flush(), "report: flush catalog")
}

// WriteXLSX saves a summary as a workbook with one sheet per view.
func WriteXLSX(path string, s *Summary) error {
	f := xlsx.NewFile()

	overview, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "xlsx: add summary sheet")
	}
	addRow(overview, "source", s.Source)
	addRow(overview, "generated_at", s.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"))
	addRow(overview, "tickets", s.Rows)
	addRow(overview, "revenue_total", s.RevenueTotal)
	addRow(overview, "missing_infraction_code", s.Diagnostics.MissingInfractionCode)
	addRow(overview, "missing_time_of_infraction", s.Diagnostics.MissingTimeOfInfraction)
	addRow(overview, "irregular_times", s.Diagnostics.IrregularTimes)
	addRow(overview, "repaired_rows", s.Diagnostics.RepairedRows)

	for _, view := range []struct {
		name   string
		counts aggregate.Counts
	}{
		{"Top Codes", s.TopCodes},
		{"Provinces", s.Provinces},
		{"Fine Amounts", s.FineCounts},
	} {
		sheet, err := f.AddSheet(view.name)
		if err != nil {
			return eris.Wrapf(err, "xlsx: add %s sheet", view.name)
		}
		addRow(sheet, "value", "count", "fraction")
		for _, c := range view.counts {
			addRow(sheet, c.Value.String(), c.Count, c.Fraction)
		}
	}

	catalog, err := f.AddSheet("Catalog")
	if err != nil {
		return eris.Wrap(err, "xlsx: add catalog sheet")
	}
	addRow(catalog, "infraction_code", "set_fine_amount", "infraction_description")
	for _, e := range s.Catalog {
		addRow(catalog, int(e.Code), int(e.Fine), e.Description)
	}

	if s.Histogram != nil {
		hist, err := f.AddSheet("Histogram")
		if err != nil {
			return eris.Wrap(err, "xlsx: add histogram sheet")
		}
		addRow(hist, "lower", "count")
		for _, b := range s.Histogram.Buckets {
			addRow(hist, b.Lower, b.Count)
		}
	}

	return eris.Wrap(f.Save(path), "xlsx: save workbook")
}

func addRow(sheet *xlsx.Sheet, values ...any) {
	row := sheet.AddRow()
	for _, v := range values {
		cell := row.AddCell()
		switch x := v.(type) {
		case string:
			cell.SetString(x)
		case int:
			cell.SetInt(x)
		case uint64:
			cell.SetInt64(int64(x))
		case float64:
			cell.SetFloat(x)
		default:
			cell.SetString(fmt.Sprint(x))
		}
	}
}
