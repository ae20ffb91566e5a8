package aggregate

import (
	"fmt"

	"github.com/sells-group/parking-cli/internal/ticket"
)

// InvalidArgumentError reports malformed aggregation parameters. No partial
// result accompanies it.
type InvalidArgumentError struct {
	Op     string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("aggregate: %s: %s", e.Op, e.Reason)
}

func invalidArg(op, format string, args ...any) error {
	return &InvalidArgumentError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

func checkColumn(op string, col ticket.Column) error {
	if c, err := ticket.ParseColumn(string(col)); err != nil || c != col {
		return invalidArg(op, "unknown column %q", col)
	}
	return nil
}

func checkNumeric(op string, col ticket.Column) error {
	if err := checkColumn(op, col); err != nil {
		return err
	}
	if !col.Numeric() {
		return invalidArg(op, "column %s is not numeric", col)
	}
	return nil
}
