package ticket

// OptUint is a wide unsigned integer that may be absent.
type OptUint struct {
	Value uint64
	Valid bool
}

// SomeUint returns a present OptUint.
func SomeUint(v uint64) OptUint { return OptUint{Value: v, Valid: true} }

// OptUint16 is a narrowed unsigned integer that may be absent. Absent is
// distinct from zero: both 0 and missing occur in real extracts.
type OptUint16 struct {
	Value uint16
	Valid bool
}

// SomeUint16 returns a present OptUint16.
func SomeUint16(v uint16) OptUint16 { return OptUint16{Value: v, Valid: true} }

// MarshalJSON encodes a missing value as null.
func (o OptUint16) MarshalJSON() ([]byte, error) {
	return o.value().MarshalJSON()
}

// MarshalYAML encodes a missing value as null.
func (o OptUint16) MarshalYAML() (any, error) {
	return o.value().MarshalYAML()
}

func (o OptUint16) value() Value {
	if !o.Valid {
		return Missing()
	}
	return Uint(uint64(o.Value))
}

// RawRecord is one source row in its widest representation.
type RawRecord struct {
	TagNumberMasked       string
	DateOfInfraction      string // YYYYMMDD
	InfractionCode        OptUint
	InfractionDescription string
	SetFineAmount         uint64  // dollars
	TimeOfInfraction      OptUint // HHMM, 24h clock
	Location1             string
	Location2             string
	Location3             string
	Location4             string
	Province              string
	Origin                uint64 // source shard, 1-4
}

// Ticket is a validated, narrowed record.
type Ticket struct {
	TagNumberMasked       string    `json:"tag_number_masked"`
	DateOfInfraction      string    `json:"date_of_infraction"`
	InfractionCode        OptUint16 `json:"infraction_code"`
	InfractionDescription string    `json:"infraction_description"`
	SetFineAmount         uint16    `json:"set_fine_amount"`
	TimeOfInfraction      OptUint16 `json:"time_of_infraction"`
	Location1             string    `json:"location1"`
	Location2             string    `json:"location2"`
	Location3             string    `json:"location3,omitempty"`
	Location4             string    `json:"location4,omitempty"`
	Province              string    `json:"province"`
	Origin                uint8     `json:"origin"`
}

// Value returns the cell for col. Unknown columns yield a missing value.
func (t Ticket) Value(col Column) Value {
	switch col {
	case ColTagNumber:
		return Str(t.TagNumberMasked)
	case ColDate:
		return Str(t.DateOfInfraction)
	case ColInfractionCode:
		return t.InfractionCode.value()
	case ColDescription:
		return Str(t.InfractionDescription)
	case ColSetFineAmount:
		return Uint(uint64(t.SetFineAmount))
	case ColTimeOfInfraction:
		return t.TimeOfInfraction.value()
	case ColLocation1:
		return Str(t.Location1)
	case ColLocation2:
		return Str(t.Location2)
	case ColLocation3:
		return Str(t.Location3)
	case ColLocation4:
		return Str(t.Location4)
	case ColProvince:
		return Str(t.Province)
	case ColOrigin:
		return Uint(uint64(t.Origin))
	default:
		return Missing()
	}
}

// RowRef identifies a row in diagnostics. Index is the position in the
// ingested sequence and is informational only.
type RowRef struct {
	Index  int    `json:"index" yaml:"index"`
	Origin uint64 `json:"origin" yaml:"origin"`
	Tag    string `json:"tag" yaml:"tag"`
}

// Ref builds the RowRef for the raw record at position i.
func (r RawRecord) Ref(i int) RowRef {
	return RowRef{Index: i, Origin: r.Origin, Tag: r.TagNumberMasked}
}
