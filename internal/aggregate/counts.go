// Package aggregate computes read-only summary views over a normalized
// ticket table: value counts, top-N, catalogs, revenue, and histograms.
package aggregate

import (
	"cmp"
	"slices"

	"github.com/sells-group/parking-cli/internal/ticket"
)

// Count is one entry of a counts view.
type Count struct {
	Value    ticket.Value `json:"value" yaml:"value"`
	Count    int          `json:"count" yaml:"count"`
	Fraction float64      `json:"fraction,omitempty" yaml:"fraction,omitempty"` // set when normalized
}

// Counts is an ordered counts view.
type Counts []Count

// Total returns the sum of all counts in the view.
func (c Counts) Total() int {
	n := 0
	for _, e := range c {
		n += e.Count
	}
	return n
}

// ValueCounts groups rows by exact value of col. The view is ordered by count
// descending, ties by value ascending; missing values group together and sort
// after present ones. With normalize set each entry also carries
// count/totalRows.
func ValueCounts(t *ticket.Table, col ticket.Column, normalize bool) (Counts, error) {
	if err := checkColumn("value counts", col); err != nil {
		return nil, err
	}
	groups := make(map[ticket.Value]int)
	t.Each(func(_ int, row ticket.Ticket) {
		groups[row.Value(col)]++
	})
	return finishCounts(groups, t.Len(), normalize), nil
}

func finishCounts(groups map[ticket.Value]int, total int, normalize bool) Counts {
	out := make(Counts, 0, len(groups))
	for v, n := range groups {
		e := Count{Value: v, Count: n}
		if normalize && total > 0 {
			e.Fraction = float64(n) / float64(total)
		}
		out = append(out, e)
	}
	slices.SortFunc(out, byCountDesc)
	return out
}

func byCountDesc(a, b Count) int {
	if a.Count != b.Count {
		return cmp.Compare(b.Count, a.Count)
	}
	return ticket.Compare(a.Value, b.Value)
}

func byValue(a, b Count) int {
	return ticket.Compare(a.Value, b.Value)
}

// SortByIndex returns the view reordered by value ascending. Counts are unchanged.
func SortByIndex(c Counts) Counts {
	out := slices.Clone(c)
	slices.SortStableFunc(out, byValue)
	return out
}

// TopN returns the first n entries of a count-descending view. n larger than
// the view returns the whole view.
func TopN(c Counts, n int) (Counts, error) {
	if n < 0 {
		return nil, invalidArg("top n", "n must be >= 0, got %d", n)
	}
	if n > len(c) {
		n = len(c)
	}
	return slices.Clone(c[:n]), nil
}
