package aggregate

import (
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/parking-cli/internal/ticket"
)

// Description holds descriptive statistics for a numeric column.
type Description struct {
	Column  ticket.Column `json:"column" yaml:"column"`
	Count   int           `json:"count" yaml:"count"`
	Missing int           `json:"missing" yaml:"missing"`
	Mean    float64       `json:"mean" yaml:"mean"`
	Std     float64       `json:"std" yaml:"std"` // sample; 0 with fewer than two values
	Min     float64       `json:"min" yaml:"min"`
	P25     float64       `json:"p25" yaml:"p25"`
	Median  float64       `json:"median" yaml:"median"`
	P75     float64       `json:"p75" yaml:"p75"`
	Max     float64       `json:"max" yaml:"max"`
}

// Describe summarizes the present values of a numeric column. Quantiles use
// the empirical distribution.
func Describe(t *ticket.Table, col ticket.Column) (*Description, error) {
	if err := checkNumeric("describe", col); err != nil {
		return nil, err
	}
	d := &Description{Column: col}
	xs := make([]float64, 0, t.Len())
	t.Each(func(_ int, row ticket.Ticket) {
		v := row.Value(col)
		if v.IsMissing() {
			d.Missing++
			return
		}
		xs = append(xs, float64(v.Uint))
	})
	d.Count = len(xs)
	if d.Count == 0 {
		return d, nil
	}

	slices.Sort(xs)
	d.Min = xs[0]
	d.Max = xs[len(xs)-1]
	if d.Count > 1 {
		d.Mean, d.Std = stat.MeanStdDev(xs, nil)
	} else {
		d.Mean = xs[0]
	}
	d.P25 = stat.Quantile(0.25, stat.Empirical, xs, nil)
	d.Median = stat.Quantile(0.5, stat.Empirical, xs, nil)
	d.P75 = stat.Quantile(0.75, stat.Empirical, xs, nil)
	return d, nil
}
