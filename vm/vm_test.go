package vm

import (
	"errors"
	"testing"
)

func TestRunValidation(t *testing.T) {
	cases := []struct {
		name    string
		program string
		opts    Options
		want    Code
	}{
		{"empty program", "", Options{TapeSize: 1}, CodeInvalidArgs},
		{"zero tape", "+", Options{TapeSize: 0}, CodeInvalidArgs},
		{"negative tape", "+", Options{TapeSize: -1}, CodeInvalidArgs},
		{"negative output limit", "+", Options{TapeSize: 1, OutputLimit: -1}, CodeInvalidArgs},
		{"oversized tape", "+", Options{TapeSize: maxAllocSize + 1}, CodeTapeAlloc},
	}
	for _, tc := range cases {
		_, err := Run([]byte(tc.program), nil, tc.opts)
		if CodeOf(err) != tc.want {
			t.Errorf("%s: code = %v, want %v", tc.name, CodeOf(err), tc.want)
		}
	}
}

func TestRunProgramRejectsMismatchedJumps(t *testing.T) {
	p := &Program{Code: []byte("++"), Jumps: JumpTable{-1}}
	_, err := RunProgram(p, nil, Options{TapeSize: 1})
	if CodeOf(err) != CodeInvalidArgs {
		t.Errorf("code = %v, want %v", CodeOf(err), CodeInvalidArgs)
	}
}

func TestCheck(t *testing.T) {
	if err := Check([]byte("+[>.<-]")); err != nil {
		t.Errorf("well-formed program: %v", err)
	}
	if err := Check([]byte("]")); CodeOf(err) != CodeUnmatchedClose {
		t.Errorf("code = %v, want %v", CodeOf(err), CodeUnmatchedClose)
	}
	if err := Check(nil); CodeOf(err) != CodeInvalidArgs {
		t.Errorf("code = %v, want %v", CodeOf(err), CodeInvalidArgs)
	}
}

func TestRunResultOutputLength(t *testing.T) {
	res, err := Run([]byte("+.+.+."), nil, Options{TapeSize: 1, OutputLimit: 16})
	if err != nil {
		t.Fatal(err)
	}
	if res.BytesWritten != 3 || len(res.Output) != 3 {
		t.Errorf("bytes = %d, len = %d, want 3 and 3", res.BytesWritten, len(res.Output))
	}
}

func TestCodeOf(t *testing.T) {
	if CodeOf(nil) != CodeOK {
		t.Errorf("CodeOf(nil) = %v, want %v", CodeOf(nil), CodeOK)
	}
	err := newError(CodeDebugHalt, 3, "halt")
	if CodeOf(err) != CodeDebugHalt {
		t.Errorf("CodeOf = %v, want %v", CodeOf(err), CodeDebugHalt)
	}
}

func TestErrorIsMatchesByCode(t *testing.T) {
	err := newError(CodeOutOfBounds, 5, "dp ran off")
	if !errors.Is(err, &Error{Code: CodeOutOfBounds}) {
		t.Error("errors.Is should match on code")
	}
	if errors.Is(err, &Error{Code: CodeOutputOverflow}) {
		t.Error("errors.Is matched a different code")
	}
}

func TestCodeStrings(t *testing.T) {
	if CodeUnmatchedOpen.String() != "unmatched-open" {
		t.Errorf("String() = %q", CodeUnmatchedOpen.String())
	}
	if Code(99).String() != "code(99)" {
		t.Errorf("unknown code String() = %q", Code(99).String())
	}
}
