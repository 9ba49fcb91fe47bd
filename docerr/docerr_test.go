package docerr

import (
	"errors"
	"strings"
	"testing"
)

func TestContainsTagWalksChain(t *testing.T) {
	root := New(FileEncrypted, "password protected")
	mid := Wrap(root, UninterpretableData, "could not parse body")
	top := Wrap(mid, ProgramLogic, "writer invariant violated")

	if !ContainsTag(top, FileEncrypted) {
		t.Fatalf("expected FileEncrypted tag to be found in chain")
	}
	if !ContainsTag(top, ProgramLogic) {
		t.Fatalf("expected ProgramLogic tag at the top of the chain")
	}
	if ContainsTag(top, NetworkFailure) {
		t.Fatalf("did not expect NetworkFailure tag")
	}
}

func TestContainsTagStdlibWrap(t *testing.T) {
	root := New(NetworkFailure, "dial timeout")
	wrapped := errors.New("post failed: " + root.Error())
	if ContainsTag(wrapped, NetworkFailure) {
		t.Fatalf("plain errors.New should not be tag-searchable")
	}
}

func TestDiagnosticNewestFirst(t *testing.T) {
	root := New(ProgramCorrupted, "signature database missing")
	top := Wrap(root, UninterpretableData, "detection failed")
	diag := Diagnostic(top)
	lines := strings.Split(diag, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %d: %q", len(lines), diag)
	}
	if !strings.Contains(lines[0], "detection failed") {
		t.Fatalf("first line should be the newest cause, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "signature database missing") {
		t.Fatalf("second line should be the root cause, got %q", lines[1])
	}
}

func TestErrorMessageIncludesTagWhenNoContext(t *testing.T) {
	e := New(ProgramLogic, "")
	if e.Error() != "program_logic" {
		t.Fatalf("expected bare tag string, got %q", e.Error())
	}
}
