package vm

// ---------------------------------------------------------------------------
// Tape: the VM's byte memory
// ---------------------------------------------------------------------------

// Tape is a fixed-capacity, zero-initialized byte array addressed by a
// single data pointer. The pointer always satisfies 0 <= dp < capacity;
// any move that would break the invariant fails without moving at all, so
// a folded multi-cell move is rejected whole, never partially applied.
type Tape struct {
	cells []byte
	dp    int
}

// NewTape allocates a tape of the given capacity. The caller guarantees
// capacity > 0; Run validates it before construction.
func NewTape(capacity int) *Tape {
	return &Tape{cells: make([]byte, capacity)}
}

// Len returns the tape capacity.
func (t *Tape) Len() int {
	return len(t.cells)
}

// Pos returns the data pointer.
func (t *Tape) Pos() int {
	return t.dp
}

// Cell returns the byte under the data pointer.
func (t *Tape) Cell() byte {
	return t.cells[t.dp]
}

// SetCell overwrites the byte under the data pointer.
func (t *Tape) SetCell(b byte) {
	t.cells[t.dp] = b
}

// MoveRight advances the data pointer by n cells. A move with
// dp+n >= capacity is rejected whole; the strict >= is intentional.
func (t *Tape) MoveRight(n int) error {
	if t.dp+n >= len(t.cells) {
		return newError(CodeOutOfBounds, -1, "data pointer %d+%d past tape of %d cells", t.dp, n, len(t.cells))
	}
	t.dp += n
	return nil
}

// MoveLeft retreats the data pointer by n cells.
func (t *Tape) MoveLeft(n int) error {
	if t.dp < n {
		return newError(CodeOutOfBounds, -1, "data pointer %d-%d before start of tape", t.dp, n)
	}
	t.dp -= n
	return nil
}

// Add increments the current cell by n with 8-bit wraparound. Wrapping is
// defined behavior, not an error.
func (t *Tape) Add(n int) {
	t.cells[t.dp] += byte(n)
}

// Sub decrements the current cell by n with 8-bit wraparound.
func (t *Tape) Sub(n int) {
	t.cells[t.dp] -= byte(n)
}
