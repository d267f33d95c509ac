// Package vm implements a bounded Brainfuck virtual machine.
//
// This package contains:
//   - Fixed-capacity, zero-initialized memory tape with a single data pointer
//   - One-pass loop bracket resolution into a bidirectional jump table
//   - Optimizing dispatch loop (run-length folding, clear-cell idiom)
//   - Single-step debugging through an external hook
package vm
