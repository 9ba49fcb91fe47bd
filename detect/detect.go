// Package detect implements the content-type detection layer:
// graded-confidence MIME tagging with a pluggable, ordered bundle of
// detectors. The standard bundle runs an extension lookup, a bounded
// magic-byte prefix scan, and a set of refiners that upgrade a generic
// container type to a more specific one.
package detect

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/docwire/docwire-go/datasource"
	"github.com/docwire/docwire-go/ident"
	"github.com/docwire/docwire-go/lru"
)

// Detector records MIME evidence on ds. It must not mutate any field
// of ds other than the evidence store.
type Detector interface {
	Name() string
	Detect(ds *datasource.DataSource) error
}

// DetectorFunc adapts a plain function to the Detector interface.
type DetectorFunc struct {
	name string
	fn   func(ds *datasource.DataSource) error
}

func NewDetectorFunc(name string, fn func(ds *datasource.DataSource) error) DetectorFunc {
	return DetectorFunc{name: name, fn: fn}
}

func (d DetectorFunc) Name() string                           { return d.name }
func (d DetectorFunc) Detect(ds *datasource.DataSource) error { return d.fn(ds) }

// Bundle is an ordered set of detectors. Order matters: it is the
// tie-break rule for competing highest-confidence candidates and the
// order refiners get a chance to run in.
type Bundle struct {
	detectors []Detector
}

// NewBundle builds a bundle from detectors, in registration order.
func NewBundle(detectors ...Detector) *Bundle {
	return &Bundle{detectors: detectors}
}

// Run executes every detector in the bundle against ds, in order.
func (b *Bundle) Run(ds *datasource.DataSource) error {
	for _, d := range b.detectors {
		if err := d.Detect(ds); err != nil {
			return err
		}
	}
	return nil
}

// StandardBundle builds the standard detector bundle: by_file_extension,
// by_signature (short-circuited once any MIME has reached
// ConfidenceHighest), then the refiners.
func StandardBundle(extensions ExtensionTable, sigs SignatureTable, refiners ...Detector) *Bundle {
	all := []Detector{
		ByFileExtension(extensions),
		BySignature(sigs),
	}
	all = append(all, refiners...)
	return NewBundle(all...)
}

// --- by_file_extension -----------------------------------------------

// ExtensionTable maps a lower-cased file extension (including the
// leading dot) to its candidate MIME types.
type ExtensionTable map[string][]datasource.MimeType

// DefaultExtensionTable is a small, deterministic extension->MIME
// table covering the formats the toolkit routes; deployments layer
// their own entries on top via LoadExtensionTable and
// MergeExtensionTables.
var DefaultExtensionTable = ExtensionTable{
	".doc":   {"application/msword"},
	".docx":  {"application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	".odt":   {"application/vnd.oasis.opendocument.text"},
	".rtf":   {"application/rtf"},
	".pdf":   {"application/pdf"},
	".xls":   {"application/vnd.ms-excel"},
	".xlsx":  {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	".xlsb":  {"application/vnd.ms-excel.sheet.binary.macroenabled.12"},
	".ppt":   {"application/vnd.ms-powerpoint"},
	".pptx":  {"application/vnd.openxmlformats-officedocument.presentationml.presentation"},
	".pages": {"application/vnd.apple.pages"},
	".pst":   {"application/vnd.ms-outlook"},
	".eml":   {"message/rfc822"},
	".html":  {"text/html"},
	".htm":   {"text/html"},
	".xml":   {"application/xml"},
	".txt":   {"text/plain"},
	".csv":   {"text/csv"},
	".zip":   {"application/zip"},
	".tar":   {"application/x-tar"},
	".gz":    {"application/gzip"},
	".bz2":   {"application/x-bzip2"},
	".xz":    {"application/x-xz"},
	".rar":   {"application/vnd.rar"},
}

// LoadExtensionTable reads a JSON-encoded extension->MIME override
// table, e.g. {".foo": ["application/x-foo"]}, typically from a
// resource file located via resource.Resolver.
func LoadExtensionTable(path string) (ExtensionTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var table ExtensionTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, err
	}
	return table, nil
}

// MergeExtensionTables layers overlay's entries on top of base, with
// overlay winning on key collision, so a deployment-specific resource
// file can extend or override DefaultExtensionTable without replacing
// it outright.
func MergeExtensionTables(base, overlay ExtensionTable) ExtensionTable {
	merged := make(ExtensionTable, len(base)+len(overlay))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return merged
}

// ByFileExtension builds the by_file_extension detector: looks up
// ds.FileExtension() in table and records every candidate at
// ConfidenceHigh.
func ByFileExtension(table ExtensionTable) Detector {
	return NewDetectorFunc("by_file_extension", func(ds *datasource.DataSource) error {
		ext, ok := ds.FileExtension()
		if !ok {
			return nil
		}
		for _, mt := range table[strings.ToLower(ext)] {
			ds.AddMimeType(mt, datasource.ConfidenceHigh)
		}
		return nil
	})
}

// --- by_signature -----------------------------------------------------

// SignatureRule matches a byte prefix against a MIME candidate.
type SignatureRule struct {
	Prefix []byte
	Type   datasource.MimeType
}

// SignatureTable is an ordered set of signature rules, scanned in
// order; every matching rule's MIME type is recorded at
// ConfidenceVeryHigh.
type SignatureTable []SignatureRule

// DefaultSignatureTable is a small set of well-known magic-byte
// prefixes. A libmagic-backed lookup would slot in behind the same
// Detector interface.
var DefaultSignatureTable = SignatureTable{
	{Prefix: []byte("PK\x03\x04"), Type: "application/zip"},
	{Prefix: []byte{0x25, 0x50, 0x44, 0x46}, Type: "application/pdf"}, // "%PDF"
	{Prefix: []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, Type: "application/x-ole-storage"},
	{Prefix: []byte{0x1F, 0x8B}, Type: "application/gzip"},
	{Prefix: []byte("BZh"), Type: "application/x-bzip2"},
	{Prefix: []byte("Rar!\x1A\x07"), Type: "application/vnd.rar"},
	{Prefix: []byte{'{', '\\', 'r', 't', 'f'}, Type: "application/rtf"},
}

// signatureMu serialises access to the signature detector; a libmagic
// binding behind this interface is not reentrant, so concurrent
// pipelines must not enter it at once.
var signatureMu sync.Mutex

// defaultSignatureScanLimit bounds the prefix read.
const defaultSignatureScanLimit = 4096

// BySignature builds the by_signature detector. It short-circuits once
// any MIME type has already reached ConfidenceHighest.
func BySignature(table SignatureTable) Detector {
	return NewDetectorFunc("by_signature", func(ds *datasource.DataSource) error {
		if _, conf, ok := ds.HighestConfidenceMimeType(); ok && conf >= datasource.ConfidenceHighest {
			return nil
		}
		signatureMu.Lock()
		defer signatureMu.Unlock()

		prefix, err := ds.Span(defaultSignatureScanLimit)
		if err != nil {
			return err
		}
		for _, rule := range table {
			if len(prefix) >= len(rule.Prefix) && hasPrefix(prefix, rule.Prefix) {
				ds.AddMimeType(rule.Type, datasource.ConfidenceVeryHigh)
			}
		}
		return nil
	})
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

// --- refiners -----------------------------------------------------------

// Refiner builds a detector that only acts when prerequisite already
// has at least ConfidenceMedium evidence and no type has yet reached
// ConfidenceHighest; on match it records refined at ConfidenceHighest.
func Refiner(name string, prerequisite datasource.MimeType, refined datasource.MimeType, match func(ds *datasource.DataSource) (bool, error)) Detector {
	return NewDetectorFunc(name, func(ds *datasource.DataSource) error {
		if ds.MimeTypeConfidence(prerequisite) < datasource.ConfidenceMedium {
			return nil
		}
		if _, conf, ok := ds.HighestConfidenceMimeType(); ok && conf >= datasource.ConfidenceHighest {
			return nil
		}
		ok, err := match(ds)
		if err != nil {
			return err
		}
		if ok {
			ds.AddMimeType(refined, datasource.ConfidenceHighest)
		}
		return nil
	})
}

// IWorkRefiner refines a zip with an iWork-flavoured entry structure
// (an entry named "index.xml" or under "index.zip") into the Pages
// MIME type.
func IWorkRefiner(entryNames func(ds *datasource.DataSource) ([]string, error)) Detector {
	return Refiner("iwork", "application/zip", "application/vnd.apple.pages", func(ds *datasource.DataSource) (bool, error) {
		names, err := entryNames(ds)
		if err != nil {
			return false, err
		}
		for _, n := range names {
			if n == "index.xml" || strings.HasPrefix(n, "index.zip") {
				return true, nil
			}
		}
		return false, nil
	})
}

// XLSBRefiner refines an OOXML-zip container whose workbook part is
// binary (sheet*.bin entries) into the XLSB MIME type.
func XLSBRefiner(entryNames func(ds *datasource.DataSource) ([]string, error)) Detector {
	return Refiner("xlsb", "application/zip", "application/vnd.ms-excel.sheet.binary.macroenabled.12", func(ds *datasource.DataSource) (bool, error) {
		names, err := entryNames(ds)
		if err != nil {
			return false, err
		}
		for _, n := range names {
			if strings.HasPrefix(n, "xl/worksheets/sheet") && strings.HasSuffix(n, ".bin") {
				return true, nil
			}
		}
		return false, nil
	})
}

// ZipEntryNames lists the member names of a zip-shaped data source,
// the entryNames callback IWorkRefiner and XLSBRefiner both need to
// probe a zip's internal layout without the detect package depending
// on the container package (which owns full archive unpacking).
func ZipEntryNames(ds *datasource.DataSource) ([]string, error) {
	raw, err := ds.Span(0)
	if err != nil {
		return nil, err
	}
	r, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names, nil
}

// CachedEntryNames wraps extract so that multiple refiners probing the
// same data source's internal entry listing (iwork then xlsb both list
// a zip's members) reuse one scan instead of re-parsing the archive
// per refiner, keyed by the data source's process-wide id and bounded
// by an LRU so a long-lived detector bundle's memory doesn't grow
// without limit.
func CachedEntryNames(extract func(ds *datasource.DataSource) ([]string, error), capacity int) func(ds *datasource.DataSource) ([]string, error) {
	cache := lru.New[ident.ID, []string](capacity)
	return func(ds *datasource.DataSource) ([]string, error) {
		return cache.GetOrCreate(ds.ID(), func() ([]string, error) {
			return extract(ds)
		})
	}
}

// ODFOOXMLRefiner tells apart the two zip-based office container
// families by their tell-tale member names: "content.xml" marks an
// OpenDocument text file, "word/document.xml" an OOXML one.
func ODFOOXMLRefiner(entryNames func(ds *datasource.DataSource) ([]string, error)) Detector {
	return NewDetectorFunc("odf_ooxml", func(ds *datasource.DataSource) error {
		if ds.MimeTypeConfidence("application/zip") < datasource.ConfidenceMedium {
			return nil
		}
		if _, conf, ok := ds.HighestConfidenceMimeType(); ok && conf >= datasource.ConfidenceHighest {
			return nil
		}
		names, err := entryNames(ds)
		if err != nil {
			return err
		}
		hasContentXML, hasWordDocument := false, false
		for _, n := range names {
			switch n {
			case "content.xml":
				hasContentXML = true
			case "word/document.xml":
				hasWordDocument = true
			}
		}
		switch {
		case hasWordDocument:
			ds.AddMimeType("application/vnd.openxmlformats-officedocument.wordprocessingml.document", datasource.ConfidenceHighest)
		case hasContentXML:
			ds.AddMimeType("application/vnd.oasis.opendocument.text", datasource.ConfidenceHighest)
		}
		return nil
	})
}

// MailRefiner upgrades a plain-text source whose head carries RFC 822
// style headers to message/rfc822.
func MailRefiner() Detector {
	return Refiner("mail", "text/plain", "message/rfc822", func(ds *datasource.DataSource) (bool, error) {
		head, err := ds.String(2048)
		if err != nil {
			return false, err
		}
		for _, marker := range []string{"Received:", "From:", "Return-Path:"} {
			if strings.HasPrefix(head, marker) || strings.Contains(head, "\n"+marker) {
				return true, nil
			}
		}
		return false, nil
	})
}

// HTMLvsXMLRefiner distinguishes a generic XML document from HTML when
// the signature detector could only commit to "application/xml".
func HTMLvsXMLRefiner() Detector {
	return Refiner("html_vs_xml", "application/xml", "text/html", func(ds *datasource.DataSource) (bool, error) {
		head, err := ds.String(512)
		if err != nil {
			return false, err
		}
		lower := strings.ToLower(head)
		return strings.Contains(lower, "<html"), nil
	})
}
