package normalize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parking-cli/internal/ticket"
)

func raw(tag string, code ticket.OptUint, fine uint64) ticket.RawRecord {
	return ticket.RawRecord{
		TagNumberMasked:       tag,
		DateOfInfraction:      "20160101",
		InfractionCode:        code,
		InfractionDescription: "PARK-SIGNED HWY-PROHIBIT DY/TM",
		SetFineAmount:         fine,
		TimeOfInfraction:      ticket.SomeUint(1230),
		Location1:             "NR",
		Location2:             "1 KING ST W",
		Province:              "ON",
		Origin:                1,
	}
}

func TestIngest_Basic(t *testing.T) {
	rows := []ticket.RawRecord{
		raw("***1001", ticket.SomeUint(29), 30),
		raw("***1002", ticket.SomeUint(5), 450),
	}
	table, diag, err := Ingest(rows, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	first := table.Row(0)
	assert.Equal(t, ticket.SomeUint16(29), first.InfractionCode)
	assert.Equal(t, uint16(30), first.SetFineAmount)
	assert.Equal(t, ticket.SomeUint16(1230), first.TimeOfInfraction)
	assert.Equal(t, uint8(1), first.Origin)
	assert.Equal(t, "1 KING ST W", first.Location2)

	assert.Equal(t, 2, diag.TotalRows)
	assert.True(t, diag.Clean())
	assert.False(t, diag.Repair.Attempted)
}

func TestIngest_Empty(t *testing.T) {
	table, diag, err := Ingest(nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, 0, diag.TotalRows)
	assert.True(t, diag.Clean())
}

func TestIngest_MissingTimeKeptDistinctFromZero(t *testing.T) {
	missing := raw("***2001", ticket.SomeUint(29), 30)
	missing.TimeOfInfraction = ticket.OptUint{}
	midnight := raw("***2002", ticket.SomeUint(29), 30)
	midnight.TimeOfInfraction = ticket.SomeUint(0)

	table, diag, err := Ingest([]ticket.RawRecord{missing, midnight}, Options{})
	require.NoError(t, err)

	assert.False(t, table.Row(0).TimeOfInfraction.Valid)
	assert.Equal(t, ticket.SomeUint16(0), table.Row(1).TimeOfInfraction)
	require.Equal(t, 1, diag.MissingTimeCount())
	assert.Equal(t, ticket.RowRef{Index: 0, Origin: 1, Tag: "***2001"}, diag.MissingTimeOfInfraction[0])
}

func TestIngest_RepairMissingCode(t *testing.T) {
	rows := []ticket.RawRecord{
		raw("***3001", ticket.SomeUint(29), 30),
		raw("***3002", ticket.OptUint{}, 0),
		raw("***3003", ticket.SomeUint(5), 450),
	}

	// Without repair the row is flagged and stays missing.
	unrepaired, before, err := Ingest(rows, Options{SkipRepair: true})
	require.NoError(t, err)
	assert.Equal(t, 1, before.MissingCodeCount())
	assert.False(t, unrepaired.Row(1).InfractionCode.Valid)

	table, after, err := Ingest(rows, Options{})
	require.NoError(t, err)
	assert.Equal(t, before.MissingCodeCount()-1, after.MissingCodeCount())
	assert.Equal(t, ticket.SomeUint16(0), table.Row(1).InfractionCode)

	assert.True(t, after.Repair.Attempted)
	assert.True(t, after.Repair.Applied)
	assert.Equal(t, uint64(0), after.Repair.Code)
	assert.Equal(t, []ticket.RowRef{{Index: 1, Origin: 1, Tag: "***3002"}}, after.Repair.Rows)
	assert.Empty(t, after.Repair.Rejected)
}

func TestIngest_RepairAllMissingRowsConsistently(t *testing.T) {
	rows := []ticket.RawRecord{
		raw("***4001", ticket.OptUint{}, 0),
		raw("***4002", ticket.SomeUint(29), 30),
		raw("***4003", ticket.OptUint{}, 0),
	}
	table, diag, err := Ingest(rows, Options{})
	require.NoError(t, err)
	assert.Equal(t, ticket.SomeUint16(0), table.Row(0).InfractionCode)
	assert.Equal(t, ticket.SomeUint16(0), table.Row(2).InfractionCode)
	assert.Len(t, diag.Repair.Rows, 2)
	assert.Zero(t, diag.MissingCodeCount())
}

func TestIngest_AmbiguousRepair(t *testing.T) {
	rows := []ticket.RawRecord{
		raw("***5001", ticket.SomeUint(0), 0),
		raw("***5002", ticket.OptUint{}, 30),
	}
	table, diag, err := Ingest(rows, Options{})
	require.Error(t, err)
	assert.Nil(t, table)

	var are *AmbiguousRepairError
	require.True(t, errors.As(err, &are))
	assert.Equal(t, uint64(0), are.Code)
	assert.Equal(t, []ticket.RowRef{{Index: 0, Origin: 1, Tag: "***5001"}}, are.Conflicting)
	assert.Equal(t, []ticket.RowRef{{Index: 1, Origin: 1, Tag: "***5002"}}, are.Missing)

	require.NotNil(t, diag)
	assert.Equal(t, 1, diag.MissingCodeCount())
	assert.True(t, diag.Repair.Attempted)
	assert.False(t, diag.Repair.Applied)
	assert.Contains(t, diag.Repair.Rejected, "already used")
	assert.False(t, diag.Clean())
}

func TestIngest_CustomRepairCode(t *testing.T) {
	rows := []ticket.RawRecord{
		raw("***6001", ticket.SomeUint(0), 0),
		raw("***6002", ticket.OptUint{}, 30),
	}
	table, diag, err := Ingest(rows, Options{RepairCode: 9999})
	require.NoError(t, err)
	assert.Equal(t, ticket.SomeUint16(9999), table.Row(1).InfractionCode)
	assert.Equal(t, uint64(9999), diag.Repair.Code)
}

func TestIngest_RangeOverflow(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*ticket.RawRecord)
		col   ticket.Column
		value uint64
	}{
		{"fine", func(r *ticket.RawRecord) { r.SetFineAmount = 100000 }, ticket.ColSetFineAmount, 100000},
		{"code", func(r *ticket.RawRecord) { r.InfractionCode = ticket.SomeUint(70000) }, ticket.ColInfractionCode, 70000},
		{"time", func(r *ticket.RawRecord) { r.TimeOfInfraction = ticket.SomeUint(65536) }, ticket.ColTimeOfInfraction, 65536},
		{"origin zero", func(r *ticket.RawRecord) { r.Origin = 0 }, ticket.ColOrigin, 0},
		{"origin five", func(r *ticket.RawRecord) { r.Origin = 5 }, ticket.ColOrigin, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := raw("***7002", ticket.SomeUint(29), 30)
			tt.mod(&bad)
			rows := []ticket.RawRecord{raw("***7001", ticket.SomeUint(29), 30), bad}

			table, diag, err := Ingest(rows, Options{})
			require.Error(t, err)
			assert.Nil(t, table)
			assert.NotNil(t, diag)

			var roe *RangeOverflowError
			require.True(t, errors.As(err, &roe))
			assert.Equal(t, tt.col, roe.Column)
			assert.Equal(t, tt.value, roe.Value)
			assert.Equal(t, 1, roe.Row.Index)
		})
	}
}

func TestIngest_MaxWidthFits(t *testing.T) {
	r := raw("***8001", ticket.SomeUint(65535), 65535)
	r.Origin = 4
	table, _, err := Ingest([]ticket.RawRecord{r}, Options{})
	require.NoError(t, err)
	assert.Equal(t, uint16(65535), table.Row(0).SetFineAmount)
	assert.Equal(t, uint8(4), table.Row(0).Origin)
}

func TestIngest_IrregularTimes(t *testing.T) {
	late := raw("***9001", ticket.SomeUint(29), 30)
	late.TimeOfInfraction = ticket.SomeUint(2460)
	hour := raw("***9002", ticket.SomeUint(29), 30)
	hour.TimeOfInfraction = ticket.SomeUint(2400)
	ok := raw("***9003", ticket.SomeUint(29), 30)
	ok.TimeOfInfraction = ticket.SomeUint(2359)

	table, diag, err := Ingest([]ticket.RawRecord{late, hour, ok}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())
	require.Len(t, diag.IrregularTimes, 2)
	assert.Equal(t, 0, diag.IrregularTimes[0].Index)
	assert.Equal(t, 1, diag.IrregularTimes[1].Index)
}

func TestIngest_Idempotent(t *testing.T) {
	rows := []ticket.RawRecord{
		raw("***1101", ticket.SomeUint(29), 30),
		raw("***1102", ticket.OptUint{}, 0),
		raw("***1103", ticket.SomeUint(5), 450),
	}
	rows[2].TimeOfInfraction = ticket.OptUint{}

	t1, d1, err := Ingest(rows, Options{})
	require.NoError(t, err)
	t2, d2, err := Ingest(rows, Options{})
	require.NoError(t, err)

	assert.Equal(t, t1.Rows(), t2.Rows())
	assert.Equal(t, d1, d2)
}

func TestIngest_DoesNotMutateInput(t *testing.T) {
	rows := []ticket.RawRecord{raw("***1201", ticket.OptUint{}, 30)}
	_, _, err := Ingest(rows, Options{})
	require.NoError(t, err)
	assert.False(t, rows[0].InfractionCode.Valid)
}
