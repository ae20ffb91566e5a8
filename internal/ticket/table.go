package ticket

// Table is an immutable, ordered set of tickets. The zero value and nil are
// both empty tables.
type Table struct {
	rows []Ticket
}

// NewTable takes ownership of rows. Callers must not modify the slice afterwards.
func NewTable(rows []Ticket) *Table {
	return &Table{rows: rows}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Row returns a copy of row i.
func (t *Table) Row(i int) Ticket {
	return t.rows[i]
}

// Rows returns a copy of all rows in table order.
func (t *Table) Rows() []Ticket {
	if t == nil {
		return nil
	}
	out := make([]Ticket, len(t.rows))
	copy(out, t.rows)
	return out
}

// Each calls fn for every row in order without copying the backing slice.
func (t *Table) Each(fn func(i int, row Ticket)) {
	if t == nil {
		return
	}
	for i, r := range t.rows {
		fn(i, r)
	}
}

// Slice returns rows [lo, hi) as a new table sharing storage. Used to
// partition work; the result is as immutable as the parent.
func (t *Table) Slice(lo, hi int) *Table {
	return &Table{rows: t.rows[lo:hi:hi]}
}

// Concat returns a new table holding the rows of every table in order.
func Concat(tables ...*Table) *Table {
	n := 0
	for _, t := range tables {
		n += t.Len()
	}
	rows := make([]Ticket, 0, n)
	for _, t := range tables {
		if t != nil {
			rows = append(rows, t.rows...)
		}
	}
	return &Table{rows: rows}
}
