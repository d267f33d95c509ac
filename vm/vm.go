package vm

// ---------------------------------------------------------------------------
// Run: the single entry point
// ---------------------------------------------------------------------------

const (
	// DefaultTapeSize is the conventional 30000-cell Brainfuck tape.
	DefaultTapeSize = 30000

	// DefaultOutputLimit bounds output for callers that do not pick one.
	DefaultOutputLimit = 64 * 1024

	// maxAllocSize caps the tape and the program length. Go cannot observe
	// allocator failure, so the cap is what keeps the tape-alloc and
	// jump-table-alloc codes live and testable.
	maxAllocSize = 1 << 30
)

// Options configure a single run. The zero value is not runnable: a tape
// size must be chosen. DefaultOptions supplies conventional limits.
type Options struct {
	TapeSize    int       // tape capacity in cells; must be > 0
	OutputLimit int       // output capacity in bytes; 0 is legal (first '.' overflows)
	Hook        DebugHook // optional; observed only when SingleStep is set
	SingleStep  bool
}

// DefaultOptions returns options with the conventional tape and output
// limits and no debugging.
func DefaultOptions() Options {
	return Options{TapeSize: DefaultTapeSize, OutputLimit: DefaultOutputLimit}
}

// RunResult is the successful outcome of a run.
type RunResult struct {
	Output       []byte // the bytes the program wrote, len == BytesWritten
	BytesWritten int
}

// Program is validated program text with its resolved jump table. The
// text is borrowed from the caller and never mutated.
type Program struct {
	Code  []byte
	Jumps JumpTable
}

// Compile validates program text and resolves its jump table. It performs
// the entire static analysis: a Program that compiles cannot fail for
// bracket reasons at runtime.
func Compile(code []byte) (*Program, error) {
	if len(code) == 0 {
		return nil, newError(CodeInvalidArgs, -1, "empty program")
	}
	if len(code) > maxAllocSize {
		return nil, newError(CodeJumpTableAlloc, -1, "program of %d bytes exceeds the %d-byte cap", len(code), maxAllocSize)
	}
	jumps, err := BuildJumpTable(code)
	if err != nil {
		return nil, err
	}
	return &Program{Code: code, Jumps: jumps}, nil
}

// Check runs only the static analysis and reports the first malformation,
// if any. Used by the syntax-check service and the LSP diagnostics.
func Check(code []byte) error {
	_, err := Compile(code)
	return err
}

// Run executes program against input under the given options and returns
// the output written, or the failure that stopped the run. Each call is a
// self-contained, synchronous execution: the tape and jump table are
// created here, owned exclusively by the run, and unreachable after it
// returns on every path.
func Run(program, input []byte, opts Options) (*RunResult, error) {
	p, err := Compile(program)
	if err != nil {
		return nil, err
	}
	return RunProgram(p, input, opts)
}

// RunProgram executes an already-compiled program. Callers loading .bfi
// images use this to skip re-resolving brackets.
func RunProgram(p *Program, input []byte, opts Options) (*RunResult, error) {
	if p == nil || len(p.Code) == 0 {
		return nil, newError(CodeInvalidArgs, -1, "empty program")
	}
	if len(p.Jumps) != len(p.Code) {
		return nil, newError(CodeInvalidArgs, -1, "jump table of %d entries for %d-byte program", len(p.Jumps), len(p.Code))
	}
	if opts.TapeSize <= 0 {
		return nil, newError(CodeInvalidArgs, -1, "tape capacity %d, want > 0", opts.TapeSize)
	}
	if opts.TapeSize > maxAllocSize {
		return nil, newError(CodeTapeAlloc, -1, "tape of %d cells exceeds the %d-cell cap", opts.TapeSize, maxAllocSize)
	}
	if opts.OutputLimit < 0 || opts.OutputLimit > maxAllocSize {
		return nil, newError(CodeInvalidArgs, -1, "output capacity %d out of range", opts.OutputLimit)
	}

	tape := NewTape(opts.TapeSize)
	m := newMachine(p, tape, input, opts.OutputLimit, opts.Hook, opts.SingleStep)
	if err := m.run(); err != nil {
		return nil, err
	}
	return &RunResult{Output: m.out.bytes(), BytesWritten: m.out.pos}, nil
}
