package normalize

import "github.com/sells-group/parking-cli/internal/ticket"

// Diagnostics records every anomaly seen while ingesting. Nothing is dropped
// silently: rows listed here are still present in the table.
type Diagnostics struct {
	TotalRows int `json:"total_rows" yaml:"total_rows"`

	MissingInfractionCode   []ticket.RowRef `json:"missing_infraction_code" yaml:"missing_infraction_code"`
	MissingTimeOfInfraction []ticket.RowRef `json:"missing_time_of_infraction" yaml:"missing_time_of_infraction"`

	// IrregularTimes holds rows whose time_of_infraction is present but not a
	// valid HHMM clock reading (hour >= 24 or minute >= 60).
	IrregularTimes []ticket.RowRef `json:"irregular_times" yaml:"irregular_times"`

	Repair RepairOutcome `json:"repair" yaml:"repair"`
}

// RepairOutcome describes the missing infraction code repair.
type RepairOutcome struct {
	Attempted bool            `json:"attempted" yaml:"attempted"`
	Applied   bool            `json:"applied" yaml:"applied"`
	Code      uint64          `json:"code" yaml:"code"`
	Rows      []ticket.RowRef `json:"rows,omitempty" yaml:"rows,omitempty"`
	Rejected  string          `json:"rejected,omitempty" yaml:"rejected,omitempty"`
}

// MissingCodeCount is the number of rows still lacking an infraction code.
func (d *Diagnostics) MissingCodeCount() int { return len(d.MissingInfractionCode) }

// MissingTimeCount is the number of rows lacking a time of infraction.
func (d *Diagnostics) MissingTimeCount() int { return len(d.MissingTimeOfInfraction) }

// Clean reports whether ingest found nothing to flag.
func (d *Diagnostics) Clean() bool {
	return len(d.MissingInfractionCode) == 0 &&
		len(d.MissingTimeOfInfraction) == 0 &&
		len(d.IrregularTimes) == 0 &&
		d.Repair.Rejected == ""
}
