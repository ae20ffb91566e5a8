// Package ticket defines the parking-ticket record types and the immutable table
// that the normalizer produces and the aggregator reads.
package ticket

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Column identifies one column of the ticket schema.
type Column string

const (
	ColTagNumber        Column = "tag_number_masked"
	ColDate             Column = "date_of_infraction"
	ColInfractionCode   Column = "infraction_code"
	ColDescription      Column = "infraction_description"
	ColSetFineAmount    Column = "set_fine_amount"
	ColTimeOfInfraction Column = "time_of_infraction"
	ColLocation1        Column = "location1"
	ColLocation2        Column = "location2"
	ColLocation3        Column = "location3"
	ColLocation4        Column = "location4"
	ColProvince         Column = "province"
	ColOrigin           Column = "origin"
)

// SourceColumns are the eleven columns carried by a source extract, in
// publication order. Origin is assigned by the reader, not read from the file.
var SourceColumns = []Column{
	ColTagNumber,
	ColDate,
	ColInfractionCode,
	ColDescription,
	ColSetFineAmount,
	ColTimeOfInfraction,
	ColLocation1,
	ColLocation2,
	ColLocation3,
	ColLocation4,
	ColProvince,
}

// AllColumns is SourceColumns plus origin.
var AllColumns = append(append([]Column{}, SourceColumns...), ColOrigin)

// String returns the column name.
func (c Column) String() string { return string(c) }

// Numeric reports whether the column holds unsigned integers.
func (c Column) Numeric() bool {
	switch c {
	case ColInfractionCode, ColSetFineAmount, ColTimeOfInfraction, ColOrigin:
		return true
	default:
		return false
	}
}

// Optional reports whether the source may leave the column empty.
func (c Column) Optional() bool {
	switch c {
	case ColInfractionCode, ColTimeOfInfraction, ColLocation3, ColLocation4:
		return true
	default:
		return false
	}
}

// ParseColumn resolves a column name case-insensitively.
func ParseColumn(s string) (Column, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, c := range AllColumns {
		if string(c) == name {
			return c, nil
		}
	}
	return "", eris.Errorf("ticket: unknown column %q", s)
}
