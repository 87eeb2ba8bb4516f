// Package session tracks the reviewer's position in the ordered record
// sequence for the lifetime of one review session.
package session

// Cursor is a bounded index into the record sequence. It saturates at
// both ends: advancing past the last record or retreating before the
// first one is a no-op, never a wrap and never an error.
type Cursor struct {
	position int
	total    int
}

// NewCursor creates a cursor over a sequence of the given length,
// starting at the first record.
func NewCursor(total int) *Cursor {
	if total < 0 {
		total = 0
	}
	return &Cursor{total: total}
}

// Position returns the current index.
func (c *Cursor) Position() int {
	return c.position
}

// Total returns the sequence length.
func (c *Cursor) Total() int {
	return c.total
}

// Advance moves to the next record, staying put at the last one.
func (c *Cursor) Advance() {
	if c.position < c.total-1 {
		c.position++
	}
}

// Retreat moves to the previous record, staying put at the first one.
func (c *Cursor) Retreat() {
	if c.position > 0 {
		c.position--
	}
}

// SkipLabeled advances past records for which labeled reports true. The
// walk is bounded by the sequence length: if every remaining record is
// labeled the cursor stops at the last index and the second return value
// is false, signalling that no unlabeled records remain.
func (c *Cursor) SkipLabeled(labeled func(position int) bool) (int, bool) {
	if c.total == 0 {
		return c.position, false
	}
	for c.position < c.total-1 && labeled(c.position) {
		c.position++
	}
	return c.position, !labeled(c.position)
}
