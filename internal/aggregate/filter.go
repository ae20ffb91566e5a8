package aggregate

import (
	"slices"

	"github.com/sells-group/parking-cli/internal/ticket"
)

// FilterEquals returns the rows whose col equals v, in their original order.
func FilterEquals(t *ticket.Table, col ticket.Column, v ticket.Value) (*ticket.Table, error) {
	if err := checkColumn("filter", col); err != nil {
		return nil, err
	}
	var rows []ticket.Ticket
	t.Each(func(_ int, row ticket.Ticket) {
		if row.Value(col) == v {
			rows = append(rows, row)
		}
	})
	return ticket.NewTable(rows), nil
}

// DistinctByKey stable-sorts the rows by col ascending and keeps the first
// row for each distinct key.
func DistinctByKey(t *ticket.Table, col ticket.Column) ([]ticket.Ticket, error) {
	if err := checkColumn("distinct", col); err != nil {
		return nil, err
	}
	rows := t.Rows()
	slices.SortStableFunc(rows, func(a, b ticket.Ticket) int {
		return ticket.Compare(a.Value(col), b.Value(col))
	})
	return slices.CompactFunc(rows, func(a, b ticket.Ticket) bool {
		return a.Value(col) == b.Value(col)
	}), nil
}

// CatalogEntry is one infraction code with its description and set fine.
type CatalogEntry struct {
	Code        uint16 `json:"infraction_code" yaml:"infraction_code"`
	Description string `json:"infraction_description" yaml:"infraction_description"`
	Fine        uint16 `json:"set_fine_amount" yaml:"set_fine_amount"`
}

// Catalog derives the infraction catalog: one entry per present infraction
// code, taken from the first row for that code in table order.
func Catalog(t *ticket.Table) []CatalogEntry {
	rows, _ := DistinctByKey(t, ticket.ColInfractionCode)
	out := make([]CatalogEntry, 0, len(rows))
	for _, r := range rows {
		if !r.InfractionCode.Valid {
			continue
		}
		out = append(out, CatalogEntry{
			Code:        r.InfractionCode.Value,
			Description: r.InfractionDescription,
			Fine:        r.SetFineAmount,
		})
	}
	return out
}
