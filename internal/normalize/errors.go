package normalize

import (
	"fmt"

	"github.com/sells-group/parking-cli/internal/ticket"
)

// AmbiguousRepairError is returned when the value chosen to fill missing
// infraction codes is already used by another row.
type AmbiguousRepairError struct {
	Code        uint64
	Conflicting []ticket.RowRef // rows already carrying Code
	Missing     []ticket.RowRef // rows left unrepaired
}

func (e *AmbiguousRepairError) Error() string {
	return fmt.Sprintf("normalize: cannot assign infraction_code %d to %d row(s): code already used by %d row(s)",
		e.Code, len(e.Missing), len(e.Conflicting))
}

// RangeOverflowError is returned when a value does not fit its narrowed width.
type RangeOverflowError struct {
	Column ticket.Column
	Value  uint64
	Min    uint64
	Max    uint64
	Row    ticket.RowRef
}

func (e *RangeOverflowError) Error() string {
	return fmt.Sprintf("normalize: %s value %d at row %d outside [%d, %d]",
		e.Column, e.Value, e.Row.Index, e.Min, e.Max)
}
