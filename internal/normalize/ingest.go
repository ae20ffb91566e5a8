// Package normalize validates raw ticket records, repairs known gaps, and
// narrows them into an immutable ticket.Table.
package normalize

import (
	"math"

	"go.uber.org/zap"

	"github.com/sells-group/parking-cli/internal/ticket"
)

const (
	minOrigin = 1
	maxOrigin = 4
)

// Options controls ingest behaviour. The zero value repairs missing
// infraction codes with 0.
type Options struct {
	// SkipRepair leaves missing infraction codes flagged instead of filling them.
	SkipRepair bool
	// RepairCode is assigned to rows with a missing infraction code once it is
	// confirmed unused by every other row.
	RepairCode uint64
}

// Ingest turns raw records into a normalized table plus diagnostics.
//
// Missing codes and times are recorded, never dropped. When repair is enabled
// and any row lacks an infraction code, RepairCode must be unused by all
// other rows; otherwise *AmbiguousRepairError is returned and the rows stay
// flagged. Any value that does not fit its narrowed width aborts the whole
// table with *RangeOverflowError. On error the table is nil and the
// diagnostics collected so far are returned.
func Ingest(rows []ticket.RawRecord, opts Options) (*ticket.Table, *Diagnostics, error) {
	diag := &Diagnostics{TotalRows: len(rows)}

	for i, r := range rows {
		if !r.InfractionCode.Valid {
			diag.MissingInfractionCode = append(diag.MissingInfractionCode, r.Ref(i))
		}
		if !r.TimeOfInfraction.Valid {
			diag.MissingTimeOfInfraction = append(diag.MissingTimeOfInfraction, r.Ref(i))
		}
	}

	repair := false
	if !opts.SkipRepair && len(diag.MissingInfractionCode) > 0 {
		if err := confirmRepair(rows, opts.RepairCode, diag); err != nil {
			return nil, diag, err
		}
		repair = true
	}

	out := make([]ticket.Ticket, len(rows))
	for i, r := range rows {
		code := r.InfractionCode
		if !code.Valid && repair {
			code = ticket.SomeUint(opts.RepairCode)
		}

		t, err := narrow(i, r, code)
		if err != nil {
			zap.L().Warn("normalize: narrowing failed", zap.Error(err))
			return nil, diag, err
		}
		if t.TimeOfInfraction.Valid && !validClock(t.TimeOfInfraction.Value) {
			diag.IrregularTimes = append(diag.IrregularTimes, r.Ref(i))
		}
		out[i] = t
	}

	zap.L().Debug("normalize: ingest complete",
		zap.Int("rows", len(out)),
		zap.Int("missing_code", diag.MissingCodeCount()),
		zap.Int("missing_time", diag.MissingTimeCount()),
		zap.Int("irregular_times", len(diag.IrregularTimes)),
		zap.Bool("repaired", diag.Repair.Applied),
	)

	return ticket.NewTable(out), diag, nil
}

// confirmRepair verifies that code is free before any row is assigned it,
// then moves the missing-code rows into the repair outcome.
func confirmRepair(rows []ticket.RawRecord, code uint64, diag *Diagnostics) error {
	diag.Repair.Attempted = true
	diag.Repair.Code = code

	var conflicting []ticket.RowRef
	for i, r := range rows {
		if r.InfractionCode.Valid && r.InfractionCode.Value == code {
			conflicting = append(conflicting, r.Ref(i))
		}
	}
	if len(conflicting) > 0 {
		err := &AmbiguousRepairError{
			Code:        code,
			Conflicting: conflicting,
			Missing:     diag.MissingInfractionCode,
		}
		diag.Repair.Rejected = err.Error()
		return err
	}

	diag.Repair.Applied = true
	diag.Repair.Rows = diag.MissingInfractionCode
	diag.MissingInfractionCode = nil
	return nil
}

func narrow(i int, r ticket.RawRecord, code ticket.OptUint) (ticket.Ticket, error) {
	t := ticket.Ticket{
		TagNumberMasked:       r.TagNumberMasked,
		DateOfInfraction:      r.DateOfInfraction,
		InfractionDescription: r.InfractionDescription,
		Location1:             r.Location1,
		Location2:             r.Location2,
		Location3:             r.Location3,
		Location4:             r.Location4,
		Province:              r.Province,
	}

	var err error
	if t.InfractionCode, err = narrowOpt16(ticket.ColInfractionCode, code, r.Ref(i)); err != nil {
		return t, err
	}
	if t.TimeOfInfraction, err = narrowOpt16(ticket.ColTimeOfInfraction, r.TimeOfInfraction, r.Ref(i)); err != nil {
		return t, err
	}
	if t.SetFineAmount, err = narrow16(ticket.ColSetFineAmount, r.SetFineAmount, r.Ref(i)); err != nil {
		return t, err
	}
	if r.Origin < minOrigin || r.Origin > maxOrigin {
		return t, &RangeOverflowError{Column: ticket.ColOrigin, Value: r.Origin, Min: minOrigin, Max: maxOrigin, Row: r.Ref(i)}
	}
	t.Origin = uint8(r.Origin)

	return t, nil
}

func narrow16(col ticket.Column, v uint64, ref ticket.RowRef) (uint16, error) {
	if v > math.MaxUint16 {
		return 0, &RangeOverflowError{Column: col, Value: v, Max: math.MaxUint16, Row: ref}
	}
	return uint16(v), nil
}

func narrowOpt16(col ticket.Column, v ticket.OptUint, ref ticket.RowRef) (ticket.OptUint16, error) {
	if !v.Valid {
		return ticket.OptUint16{}, nil
	}
	n, err := narrow16(col, v.Value, ref)
	if err != nil {
		return ticket.OptUint16{}, err
	}
	return ticket.SomeUint16(n), nil
}

// validClock reports whether an HHMM value names a real time of day.
func validClock(hhmm uint16) bool {
	return hhmm/100 < 24 && hhmm%100 < 60
}
