package container

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/docwire/docwire-go/datasource"
	"github.com/docwire/docwire-go/message"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("create entry: %v", err)
		}
		if _, err := f.Write([]byte(body)); err != nil {
			t.Fatalf("write entry: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return buf.Bytes()
}

func TestUnpackZipEmitsOneDataSourcePerEntry(t *testing.T) {
	raw := buildZip(t, map[string]string{"a.txt": "hello", "b.txt": "world"})
	ds := datasource.FromBuffer(raw)
	ds.AddMimeType("application/zip", datasource.ConfidenceVeryHigh)

	stage := New(nil)
	var emitted []message.Message
	_, err := stage.Process(message.FromDataSource(ds), func(m message.Message) error {
		emitted = append(emitted, m)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emitted) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(emitted))
	}
	for _, m := range emitted {
		if m.Kind != message.KindDataSource {
			t.Fatalf("expected data_source messages, got %s", m.Kind)
		}
	}
}

func TestNonArchiveIsForwardedUnchanged(t *testing.T) {
	ds := datasource.FromBuffer([]byte("just text"))
	stage := New(nil)
	var emitted []message.Message
	_, err := stage.Process(message.FromDataSource(ds), func(m message.Message) error {
		emitted = append(emitted, m)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emitted) != 1 || emitted[0].Source != ds {
		t.Fatalf("expected the original data source forwarded untouched")
	}
}

func TestNestedArchiveReentersStage(t *testing.T) {
	inner := buildZip(t, map[string]string{"leaf.txt": "leaf"})
	outer := buildZip(t, map[string]string{"inner.zip": string(inner)})
	ds := datasource.FromBuffer(outer)
	ds.AddMimeType("application/zip", datasource.ConfidenceVeryHigh)

	detectCalls := 0
	stage := New(func(entry *datasource.DataSource) error {
		detectCalls++
		if ext, ok := entry.FileExtension(); ok && ext == ".zip" {
			entry.AddMimeType("application/zip", datasource.ConfidenceVeryHigh)
		}
		return nil
	})
	var emitted []message.Message
	_, err := stage.Process(message.FromDataSource(ds), func(m message.Message) error {
		emitted = append(emitted, m)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detectCalls != 2 {
		t.Fatalf("expected detect to run for both the inner zip and its leaf entry, got %d calls", detectCalls)
	}
	if len(emitted) != 1 {
		t.Fatalf("expected only the fully-unpacked leaf entry to reach emit, got %d", len(emitted))
	}
}

func TestUnpackedEntriesCarryDistinctProvenance(t *testing.T) {
	raw := buildZip(t, map[string]string{"a.txt": "hello", "b.txt": "world"})
	ds := datasource.FromBuffer(raw)
	ds.AddMimeType("application/zip", datasource.ConfidenceVeryHigh)

	stage := New(nil)
	var emitted []message.Message
	_, err := stage.Process(message.FromDataSource(ds), func(m message.Message) error {
		emitted = append(emitted, m)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emitted) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(emitted))
	}
	p0, p1 := emitted[0].Source.Provenance(), emitted[1].Source.Provenance()
	if p0 == "" || p1 == "" {
		t.Fatalf("expected every unpacked entry to carry a provenance tag")
	}
	if p0 == p1 {
		t.Fatalf("expected distinct entries to carry distinct provenance tags")
	}
}

func TestDirectoryEntriesAreSkipped(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	if _, err := w.Create("dir/"); err != nil {
		t.Fatalf("create dir entry: %v", err)
	}
	f, err := w.Create("dir/file.txt")
	if err != nil {
		t.Fatalf("create file entry: %v", err)
	}
	f.Write([]byte("content"))
	w.Close()

	ds := datasource.FromBuffer(buf.Bytes())
	ds.AddMimeType("application/zip", datasource.ConfidenceVeryHigh)
	stage := New(nil)
	var emitted []message.Message
	_, err = stage.Process(message.FromDataSource(ds), func(m message.Message) error {
		emitted = append(emitted, m)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emitted) != 1 {
		t.Fatalf("expected the directory entry to be skipped, got %d emitted", len(emitted))
	}
}

func TestUnsupportedArchiveEmitsException(t *testing.T) {
	ds := datasource.FromBuffer([]byte("Rar!\x1a\x07payload"))
	ds.AddMimeType("application/vnd.rar", datasource.ConfidenceVeryHigh)
	stage := New(nil)
	var emitted []message.Message
	_, err := stage.Process(message.FromDataSource(ds), func(m message.Message) error {
		emitted = append(emitted, m)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emitted) != 1 || emitted[0].Kind != message.KindException {
		t.Fatalf("expected an exception_carrier for an unsupported format, got %v", emitted)
	}
}
