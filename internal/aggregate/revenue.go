package aggregate

import (
	"cmp"
	"slices"

	"github.com/sells-group/parking-cli/internal/ticket"
)

// RevenueTotal sums set_fine_amount over every row as Σ fine × count over the
// fine-amount counts view. An empty table totals 0.
func RevenueTotal(t *ticket.Table) uint64 {
	counts, _ := ValueCounts(t, ticket.ColSetFineAmount, false)
	var total uint64
	for _, c := range counts {
		total += c.Value.Uint * uint64(c.Count)
	}
	return total
}

// Revenue is the fine total for one group.
type Revenue struct {
	Value   ticket.Value `json:"value" yaml:"value"`
	Tickets int          `json:"tickets" yaml:"tickets"`
	Total   uint64       `json:"total" yaml:"total"`
}

// RevenueBy totals fines per distinct value of col, ordered by total
// descending with ties by value ascending.
func RevenueBy(t *ticket.Table, col ticket.Column) ([]Revenue, error) {
	if err := checkColumn("revenue by", col); err != nil {
		return nil, err
	}
	groups := make(map[ticket.Value]*Revenue)
	t.Each(func(_ int, row ticket.Ticket) {
		v := row.Value(col)
		g, ok := groups[v]
		if !ok {
			g = &Revenue{Value: v}
			groups[v] = g
		}
		g.Tickets++
		g.Total += uint64(row.SetFineAmount)
	})

	out := make([]Revenue, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	slices.SortFunc(out, func(a, b Revenue) int {
		if a.Total != b.Total {
			return cmp.Compare(b.Total, a.Total)
		}
		return ticket.Compare(a.Value, b.Value)
	})
	return out, nil
}
