package vm

// ---------------------------------------------------------------------------
// I/O channels: bounded cursors over the caller's buffers
// ---------------------------------------------------------------------------

// inputReader is a cursor over an immutable byte sequence. Reading past
// the end yields 0 without advancing; that is the ',' end-of-input
// convention, never an error.
type inputReader struct {
	data []byte
	pos  int
}

func (r *inputReader) readByte() byte {
	if r.pos < len(r.data) {
		b := r.data[r.pos]
		r.pos++
		return b
	}
	return 0
}

// outputWriter accumulates program output up to a fixed capacity. Writing
// at capacity fails with output-overflow.
type outputWriter struct {
	buf []byte
	pos int
}

func newOutputWriter(capacity int) *outputWriter {
	// One spare byte holds the trailing NUL terminator when the program
	// fills the buffer short of capacity; it is never counted.
	return &outputWriter{buf: make([]byte, capacity+1)}
}

func (w *outputWriter) writeByte(b byte) error {
	if w.pos >= len(w.buf)-1 {
		return newError(CodeOutputOverflow, -1, "output full after %d bytes", w.pos)
	}
	w.buf[w.pos] = b
	w.pos++
	return nil
}

// terminate writes the trailing NUL after a normal run. It does not
// advance the cursor, so the terminator is excluded from the byte count.
func (w *outputWriter) terminate() {
	w.buf[w.pos] = 0
}

// bytes returns the written prefix, without the terminator.
func (w *outputWriter) bytes() []byte {
	return w.buf[:w.pos]
}
