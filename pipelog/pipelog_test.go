package pipelog

import "testing"

func TestGetCachesBySink(t *testing.T) {
	Reset()
	a := Get("off")
	b := Get("off")
	if a != b {
		t.Fatalf("expected the same cached logger instance for the same sink")
	}
}

func TestFieldsDoesNotPanic(t *testing.T) {
	Reset()
	l := Get("off")
	l.Fields("stage", "archive", "entry", "a.doc").Info("entered archive entry")
}
