package vm

// ---------------------------------------------------------------------------
// Jump table: one-pass bracket resolution
// ---------------------------------------------------------------------------

// MaxLoopDepth bounds the pending-bracket stack while building the jump
// table. The limit is deliberate and testable; programs nesting deeper
// fail with stack-overflow instead of growing without bound.
const MaxLoopDepth = 4096

// JumpTable maps every bracket position in a program to its partner.
// Entries for non-bracket positions are -1. For any open bracket p,
// table[table[p]] == p.
type JumpTable []int

// Match returns the partner position for a bracket, or -1 when pos does
// not hold a bracket.
func (j JumpTable) Match(pos int) int {
	if pos < 0 || pos >= len(j) {
		return -1
	}
	return j[pos]
}

// BuildJumpTable resolves every loop pair in code with a single forward
// scan. It runs to completion before any instruction executes: a malformed
// program fails here, never mid-run. Characters other than '[' and ']'
// are ignored.
func BuildJumpTable(code []byte) (JumpTable, error) {
	table := make(JumpTable, len(code))
	for i := range table {
		table[i] = -1
	}

	stack := make([]int, 0, 32)
	for pos, c := range code {
		switch c {
		case '[':
			if len(stack) == MaxLoopDepth {
				return nil, newError(CodeStackOverflow, pos, "loop nesting exceeds %d at position %d", MaxLoopDepth, pos)
			}
			stack = append(stack, pos)
		case ']':
			if len(stack) == 0 {
				return nil, newError(CodeUnmatchedClose, pos, "']' at position %d has no matching '['", pos)
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			table[open] = pos
			table[pos] = open
		}
	}

	if len(stack) != 0 {
		open := stack[len(stack)-1]
		return nil, newError(CodeUnmatchedOpen, open, "'[' at position %d is never closed", open)
	}
	return table, nil
}
