package vm

// ---------------------------------------------------------------------------
// Machine: the dispatch loop
// ---------------------------------------------------------------------------

// DebugHook observes (program counter, data pointer, current cell value)
// immediately before an instruction executes. Returning true halts the run
// with the debug-halt outcome. The engine never owns the hook and calls it
// synchronously; it is consulted only when single-step mode is enabled.
type DebugHook func(ip, dp int, cell byte) bool

// Machine executes one program against one tape. It owns the tape and the
// jump table for the duration of a single run and holds borrowed views of
// the program text and input; nothing survives the run.
type Machine struct {
	code  []byte
	jumps JumpTable
	tape  *Tape
	in    inputReader
	out   *outputWriter
	ip    int

	hook       DebugHook
	singleStep bool
}

func newMachine(p *Program, tape *Tape, input []byte, outputLimit int, hook DebugHook, singleStep bool) *Machine {
	return &Machine{
		code:       p.Code,
		jumps:      p.Jumps,
		tape:       tape,
		in:         inputReader{data: input},
		out:        newOutputWriter(outputLimit),
		hook:       hook,
		singleStep: singleStep,
	}
}

// run drives the dispatch loop until the program counter falls off the end
// of the program (normal completion) or a failure short-circuits it. Any
// error returned here aborts the run with no further side effects.
func (m *Machine) run() error {
	stepping := m.hook != nil && m.singleStep

	for m.ip < len(m.code) {
		if stepping {
			if m.hook(m.ip, m.tape.Pos(), m.tape.Cell()) {
				return newError(CodeDebugHalt, m.ip, "hook requested halt at position %d", m.ip)
			}
		}

		switch m.code[m.ip] {
		case '>':
			n := m.runLength('>')
			if err := m.tape.MoveRight(n); err != nil {
				return m.at(err)
			}
			m.ip += n - 1
		case '<':
			n := m.runLength('<')
			if err := m.tape.MoveLeft(n); err != nil {
				return m.at(err)
			}
			m.ip += n - 1
		case '+':
			n := m.runLength('+')
			m.tape.Add(n)
			m.ip += n - 1
		case '-':
			n := m.runLength('-')
			m.tape.Sub(n)
			m.ip += n - 1
		case '.':
			if err := m.out.writeByte(m.tape.Cell()); err != nil {
				return m.at(err)
			}
		case ',':
			m.tape.SetCell(m.in.readByte())
		case '[':
			if m.clearIdiomAt(m.ip) {
				// O(1) replacement for the whole clear loop, taken
				// regardless of the current cell value.
				m.tape.SetCell(0)
				if stepping {
					if m.hook(m.ip, m.tape.Pos(), m.tape.Cell()) {
						return newError(CodeDebugHalt, m.ip, "hook requested halt at position %d", m.ip)
					}
				}
				m.ip += 2
			} else if m.tape.Cell() == 0 {
				m.ip = m.jumps[m.ip]
			}
		case ']':
			if m.tape.Cell() != 0 {
				m.ip = m.jumps[m.ip]
			}
			// A zero cell falls through and exits the loop.
		}
		m.ip++
	}

	m.out.terminate()
	return nil
}

// runLength counts the maximal run of the instruction at ip, so repeated
// moves and arithmetic fold into one bulk operation. Folding must stay
// indistinguishable from stepping the run one character at a time, side
// effects and failure points included.
func (m *Machine) runLength(c byte) int {
	n := 1
	for m.ip+n < len(m.code) && m.code[m.ip+n] == c {
		n++
	}
	return n
}

// clearIdiomAt recognizes exactly the two-character bodies '[-]' and
// '[+]'. Longer equivalent forms are executed as ordinary loops.
func (m *Machine) clearIdiomAt(ip int) bool {
	if ip+2 >= len(m.code) {
		return false
	}
	b := m.code[ip+1]
	return (b == '-' || b == '+') && m.code[ip+2] == ']'
}

// at stamps the current program position onto a dynamic failure.
func (m *Machine) at(err error) error {
	if e, ok := err.(*Error); ok && e.Pos < 0 {
		e.Pos = m.ip
	}
	return err
}
