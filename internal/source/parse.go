// Package source reads raw parking-ticket records from CSV, ZIP, and XLSX
// extracts and downloads published archives.
package source

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parking-cli/internal/ticket"
)

// columnIndex maps each source column to its position in a header row.
type columnIndex map[ticket.Column]int

// mapColumns matches header names case-insensitively and independent of
// order. Every source column must be present; extra columns are ignored.
func mapColumns(header []string) (columnIndex, error) {
	idx := make(columnIndex, len(ticket.SourceColumns))
	for i, name := range header {
		col, err := ticket.ParseColumn(strings.Trim(strings.TrimSpace(name), "\ufeff\""))
		if err != nil {
			continue
		}
		if _, dup := idx[col]; dup {
			return nil, eris.Errorf("source: duplicate column %q", name)
		}
		idx[col] = i
	}

	var missing []string
	for _, col := range ticket.SourceColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col.String())
		}
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("source: header missing columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

func (c columnIndex) get(record []string, col ticket.Column) string {
	i, ok := c[col]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// parseRecord converts one data row. Blank optional numbers become missing;
// anything else that is not an unsigned integer is an error. A combined
// extract may carry its own origin column, which overrides origin.
func (c columnIndex) parseRecord(record []string, origin uint64) (ticket.RawRecord, error) {
	r := ticket.RawRecord{
		TagNumberMasked:       c.get(record, ticket.ColTagNumber),
		DateOfInfraction:      c.get(record, ticket.ColDate),
		InfractionDescription: c.get(record, ticket.ColDescription),
		Location1:             c.get(record, ticket.ColLocation1),
		Location2:             c.get(record, ticket.ColLocation2),
		Location3:             c.get(record, ticket.ColLocation3),
		Location4:             c.get(record, ticket.ColLocation4),
		Province:              c.get(record, ticket.ColProvince),
		Origin:                origin,
	}

	var err error
	if r.InfractionCode, err = parseOptUint(c.get(record, ticket.ColInfractionCode)); err != nil {
		return r, eris.Wrap(err, "infraction_code")
	}
	if r.TimeOfInfraction, err = parseOptUint(c.get(record, ticket.ColTimeOfInfraction)); err != nil {
		return r, eris.Wrap(err, "time_of_infraction")
	}
	fine, err := parseOptUint(c.get(record, ticket.ColSetFineAmount))
	if err != nil {
		return r, eris.Wrap(err, "set_fine_amount")
	}
	if !fine.Valid {
		return r, eris.New("set_fine_amount: value required")
	}
	r.SetFineAmount = fine.Value

	own, err := parseOptUint(c.get(record, ticket.ColOrigin))
	if err != nil {
		return r, eris.Wrap(err, "origin")
	}
	if own.Valid {
		r.Origin = own.Value
	}
	return r, nil
}

// parseOptUint parses a wide unsigned integer. Empty strings and the "NaN"
// marker written by dataframe exports are missing.
func parseOptUint(s string) (ticket.OptUint, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return ticket.OptUint{}, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return ticket.OptUint{}, eris.Errorf("invalid unsigned integer %q", s)
	}
	return ticket.SomeUint(v), nil
}
