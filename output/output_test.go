package output

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/docwire/docwire-go/datasource"
	"github.com/docwire/docwire-go/message"
)

func TestWriterStageCopiesDataSourceBytes(t *testing.T) {
	var buf bytes.Buffer
	stage := ToWriter(&buf)
	ds := datasource.FromBuffer([]byte("payload"))
	if _, err := stage.Process(message.FromDataSource(ds), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "payload" {
		t.Fatalf("expected payload copied to writer, got %q", buf.String())
	}
}

// TestWriterStageCopiesUncachedPathSource covers a data source whose
// cache has never been touched by an earlier stage (e.g. a bare
// input|output pipeline with no detector in between): the full file
// must reach the writer, not whatever Istream happened to have
// snapshotted already.
func TestWriterStageCopiesUncachedPathSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.txt")
	want := bytes.Repeat([]byte("x"), 9000) // bigger than one fillCache chunk
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	var buf bytes.Buffer
	stage := ToWriter(&buf)
	ds := datasource.FromPath(path)
	if _, err := stage.Process(message.FromDataSource(ds), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("expected the full file copied to the writer, got %d bytes, want %d", buf.Len(), len(want))
	}
}

func TestWriterStageRejectsNonDataSource(t *testing.T) {
	var buf bytes.Buffer
	stage := ToWriter(&buf)
	_, err := stage.Process(message.TextRun("nope"), nil)
	if err == nil {
		t.Fatalf("expected an error for a non-data_source message")
	}
}

func TestCollectorStageRecordsEveryMessage(t *testing.T) {
	var out []message.Message
	stage := ToMessages(&out)
	stage.Process(message.TextRun("a"), nil)
	stage.Process(message.TextRun("b"), nil)
	if len(out) != 2 || out[0].Text != "a" || out[1].Text != "b" {
		t.Fatalf("expected both messages recorded in order, got %v", out)
	}
}
