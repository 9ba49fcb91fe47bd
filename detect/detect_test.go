package detect

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/docwire/docwire-go/datasource"
)

func TestByFileExtensionAddsHighConfidence(t *testing.T) {
	ds := datasource.FromBuffer([]byte("irrelevant"))
	ds.SetFileExtension(".doc")
	if err := ByFileExtension(DefaultExtensionTable).Detect(ds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	conf := ds.MimeTypeConfidence("application/msword")
	if conf < datasource.ConfidenceHigh {
		t.Fatalf("expected at least high confidence, got %s", conf)
	}
}

func TestBySignatureDetectsZip(t *testing.T) {
	ds := datasource.FromBuffer([]byte("PK\x03\x04restofzipbytes"))
	if err := BySignature(DefaultSignatureTable).Detect(ds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mt, conf, ok := ds.HighestConfidenceMimeType()
	if !ok || mt != "application/zip" || conf != datasource.ConfidenceVeryHigh {
		t.Fatalf("expected application/zip at very_high, got %s/%s ok=%v", mt, conf, ok)
	}
}

func TestBySignatureSkipsWhenAlreadyHighest(t *testing.T) {
	ds := datasource.FromBuffer([]byte("nomagicbyteshere"))
	ds.AddMimeType("application/vnd.apple.pages", datasource.ConfidenceHighest)
	if err := BySignature(DefaultSignatureTable).Detect(ds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// no zip signature present anyway; this verifies the short-circuit
	// path returns without error and records no evidence.
	if conf := ds.MimeTypeConfidence("application/zip"); conf != datasource.ConfidenceNone {
		t.Fatalf("did not expect zip evidence, got %s", conf)
	}
}

func TestUnrecognisedBytesGetNoEvidenceAboveLow(t *testing.T) {
	ds := datasource.FromBuffer([]byte("this is just plain text with no magic"))
	bundle := StandardBundle(DefaultExtensionTable, DefaultSignatureTable)
	if err := bundle.Run(ds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, conf, ok := ds.HighestConfidenceMimeType(); ok && conf > datasource.ConfidenceLow {
		t.Fatalf("expected no evidence above low confidence, got %s", conf)
	}
}

func TestIWorkRefinerDetectsZippedPages(t *testing.T) {
	ds := datasource.FromBuffer([]byte("PK\x03\x04pagesbytes"))
	bundle := NewBundle(
		BySignature(DefaultSignatureTable),
		IWorkRefiner(func(ds *datasource.DataSource) ([]string, error) {
			return []string{"index.xml", "preview.jpg"}, nil
		}),
	)
	if err := bundle.Run(ds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mt, conf, ok := ds.HighestConfidenceMimeType()
	if !ok || mt != "application/vnd.apple.pages" || conf != datasource.ConfidenceHighest {
		t.Fatalf("expected pages at highest, got %s/%s ok=%v", mt, conf, ok)
	}
}

func buildTestZip(t *testing.T, names ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, n := range names {
		if _, err := w.Create(n); err != nil {
			t.Fatalf("create entry %s: %v", n, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	return buf.Bytes()
}

func TestZipEntryNames(t *testing.T) {
	ds := datasource.FromBuffer(buildTestZip(t, "index.xml", "preview.jpg"))
	names, err := ZipEntryNames(ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 2 || names[0] != "index.xml" || names[1] != "preview.jpg" {
		t.Fatalf("unexpected entry names: %v", names)
	}
}

// TestCachedEntryNamesReusesOneScanPerDataSource covers the lru-backed
// memoisation that lets IWorkRefiner and XLSBRefiner both probe a
// zip's layout without re-parsing it twice.
func TestCachedEntryNamesReusesOneScanPerDataSource(t *testing.T) {
	ds := datasource.FromBuffer(buildTestZip(t, "index.xml"))
	calls := 0
	cached := CachedEntryNames(func(ds *datasource.DataSource) ([]string, error) {
		calls++
		return ZipEntryNames(ds)
	}, 8)

	if _, err := cached(ds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := cached(ds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected the underlying extractor to run once, got %d calls", calls)
	}

	other := datasource.FromBuffer(buildTestZip(t, "xl/worksheets/sheet1.bin"))
	if _, err := cached(other); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected a fresh data source to trigger a fresh scan, got %d calls", calls)
	}
}

func TestODFOOXMLRefinerTellsApartContainerFamilies(t *testing.T) {
	cases := []struct {
		name    string
		entries []string
		want    datasource.MimeType
	}{
		{"odt", []string{"mimetype", "content.xml"}, "application/vnd.oasis.opendocument.text"},
		{"docx", []string{"[Content_Types].xml", "word/document.xml"}, "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ds := datasource.FromBuffer([]byte("PK\x03\x04containerbytes"))
			bundle := NewBundle(
				BySignature(DefaultSignatureTable),
				ODFOOXMLRefiner(func(*datasource.DataSource) ([]string, error) {
					return tc.entries, nil
				}),
			)
			if err := bundle.Run(ds); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			mt, conf, ok := ds.HighestConfidenceMimeType()
			if !ok || mt != tc.want || conf != datasource.ConfidenceHighest {
				t.Fatalf("expected %s at highest, got %s/%s ok=%v", tc.want, mt, conf, ok)
			}
		})
	}
}

func TestMailRefinerUpgradesHeaderedPlainText(t *testing.T) {
	ds := datasource.FromBuffer([]byte("Return-Path: <a@b.example>\nFrom: a@b.example\nSubject: hi\n\nbody"))
	ds.SetFileExtension(".txt")
	bundle := NewBundle(
		ByFileExtension(DefaultExtensionTable),
		MailRefiner(),
	)
	if err := bundle.Run(ds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mt, conf, ok := ds.HighestConfidenceMimeType()
	if !ok || mt != "message/rfc822" || conf != datasource.ConfidenceHighest {
		t.Fatalf("expected message/rfc822 at highest, got %s/%s ok=%v", mt, conf, ok)
	}
}

func TestLoadAndMergeExtensionTable(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "extensions.json")
	if err := os.WriteFile(p, []byte(`{".foo": ["application/x-foo"], ".doc": ["application/x-custom-doc"]}`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	overlay, err := LoadExtensionTable(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	merged := MergeExtensionTables(DefaultExtensionTable, overlay)
	if len(merged[".foo"]) != 1 || merged[".foo"][0] != "application/x-foo" {
		t.Fatalf("expected the overlay-only extension to be present, got %v", merged[".foo"])
	}
	if len(merged[".doc"]) != 1 || merged[".doc"][0] != "application/x-custom-doc" {
		t.Fatalf("expected the overlay to win over the default .doc mapping, got %v", merged[".doc"])
	}
	if len(merged[".pdf"]) != 1 || merged[".pdf"][0] != "application/pdf" {
		t.Fatalf("expected untouched default entries to survive the merge, got %v", merged[".pdf"])
	}
}

// Running the detector bundle twice produces the same
// highest-confidence MIME.
func TestIdempotence(t *testing.T) {
	ds := datasource.FromBuffer([]byte("PK\x03\x04zipbytes"))
	ds.SetFileExtension(".zip")
	bundle := StandardBundle(DefaultExtensionTable, DefaultSignatureTable)

	if err := bundle.Run(ds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mt1, conf1, _ := ds.HighestConfidenceMimeType()

	if err := bundle.Run(ds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mt2, conf2, _ := ds.HighestConfidenceMimeType()

	if mt1 != mt2 || conf1 != conf2 {
		t.Fatalf("detector bundle was not idempotent: (%s,%s) vs (%s,%s)", mt1, conf1, mt2, conf2)
	}
}
