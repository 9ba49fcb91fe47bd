// Package datasource implements the data_source abstraction: a lazy,
// cacheable byte source carrying layered MIME-type evidence. The five
// origin forms (owned buffer, borrowed span, filesystem path, seekable
// stream, forward-only stream) share one in-memory cache that is filled
// lazily and only ever extended, never shrunk.
package datasource

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/docwire/docwire-go/docerr"
	"github.com/docwire/docwire-go/ident"
)

// Confidence is the totally-ordered evidence grade attached to a MIME
// candidate.
type Confidence int

const (
	ConfidenceNone Confidence = iota
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
	ConfidenceVeryHigh
	ConfidenceHighest
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceNone:
		return "none"
	case ConfidenceLow:
		return "low"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceHigh:
		return "high"
	case ConfidenceVeryHigh:
		return "very_high"
	case ConfidenceHighest:
		return "highest"
	default:
		return "unknown"
	}
}

// MimeType is a normalized MIME type string, e.g. "application/msword".
type MimeType string

// originKind distinguishes the five origin variants a DataSource can
// wrap.
type originKind int

const (
	originBuffer originKind = iota
	originSpan
	originPath
	originSeekableStream
	originUnseekableStream
)

// DataSource is the lazy, cacheable byte source that flows through the
// pipeline wrapped in a message.Message.
type DataSource struct {
	kind   originKind
	buffer []byte // owned buffer / in-memory span (never mutated after construction)
	path   string
	stream io.Reader
	seeker io.ReadSeeker

	extension  string           // lower-cased, including leading dot; "" if unset
	provenance ident.Provenance // set by the recursive container stage for archive entries

	mu        sync.Mutex
	cache     []byte // lazily filled/extended memory cache for stream/path origins
	cacheFull bool   // true once the underlying source has been fully drained into cache
	totalSize int64
	haveSize  bool

	evMu     sync.Mutex
	evidence map[MimeType]Confidence
	evOrder  []MimeType // insertion order; breaks confidence ties

	idMu  sync.Mutex
	id    ident.ID
	idSet bool
}

func newBase() *DataSource {
	return &DataSource{evidence: make(map[MimeType]Confidence)}
}

// FromBuffer wraps an owned in-memory byte buffer.
func FromBuffer(b []byte) *DataSource {
	ds := newBase()
	ds.kind = originBuffer
	ds.buffer = b
	return ds
}

// FromSpan wraps a borrowed byte slice (treated identically to an owned
// buffer by this implementation, since Go slices are already
// reference-like views).
func FromSpan(b []byte) *DataSource {
	ds := newBase()
	ds.kind = originSpan
	ds.buffer = b
	return ds
}

// FromPath wraps a filesystem path. Bytes are read lazily on first
// span()/string() call.
func FromPath(path string) *DataSource {
	ds := newBase()
	ds.kind = originPath
	ds.path = path
	return ds
}

// FromSeekableStream wraps a random-access stream handle.
func FromSeekableStream(s io.ReadSeeker) *DataSource {
	ds := newBase()
	ds.kind = originSeekableStream
	ds.seeker = s
	return ds
}

// FromUnseekableStream wraps a forward-only stream handle.
func FromUnseekableStream(s io.Reader) *DataSource {
	ds := newBase()
	ds.kind = originUnseekableStream
	ds.stream = s
	return ds
}

// SetFileExtension records the (lower-cased) file extension associated
// with this source, e.g. used by the recursive container stage to tag
// entries by their archive member name.
func (ds *DataSource) SetFileExtension(ext string) {
	ds.extension = strings.ToLower(ext)
}

// FileExtension returns the recorded file extension, if any.
func (ds *DataSource) FileExtension() (string, bool) {
	if ds.extension == "" {
		return "", false
	}
	return ds.extension, true
}

// SetProvenance tags ds with an externally-visible origin marker,
// e.g. set by the recursive container stage on every archive entry it
// mints so a downstream consumer can trace an entry back to the
// archive-unpacking event that produced it, independent of the
// process-local ID() used for cache keying.
func (ds *DataSource) SetProvenance(p ident.Provenance) {
	ds.provenance = p
}

// Provenance returns the recorded provenance tag, or "" if none was
// set.
func (ds *DataSource) Provenance() ident.Provenance {
	return ds.provenance
}

const unlimited = -1

// fillCache ensures at least `limit` bytes (or everything, if limit is
// unlimited) are present in the in-memory cache, for path/stream
// origins. Reads never overshoot limit, and repeated calls with growing
// limits reuse and extend the existing cache in place.
func (ds *DataSource) fillCache(limit int) error {
	if ds.kind == originBuffer || ds.kind == originSpan {
		return nil // cache is irrelevant; span()/string() read ds.buffer directly
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.cacheFull {
		return nil
	}
	if limit != unlimited && len(ds.cache) >= limit {
		return nil
	}

	var reader io.Reader
	switch ds.kind {
	case originPath:
		if len(ds.cache) == 0 {
			f, err := os.Open(ds.path)
			if err != nil {
				return docerr.Wrap(err, docerr.ProgramCorrupted, fmt.Sprintf("cannot open %s", ds.path))
			}
			defer f.Close()
			reader = f
		} else {
			// a prior partial read already consumed some of the path's
			// bytes into the cache; re-open and skip ahead since os.File
			// has no resumable cursor across calls.
			f, err := os.Open(ds.path)
			if err != nil {
				return docerr.Wrap(err, docerr.ProgramCorrupted, fmt.Sprintf("cannot open %s", ds.path))
			}
			defer f.Close()
			if _, err := f.Seek(int64(len(ds.cache)), io.SeekStart); err != nil {
				return docerr.Wrap(err, docerr.ProgramCorrupted, fmt.Sprintf("cannot seek %s", ds.path))
			}
			reader = f
		}
	case originSeekableStream:
		if _, err := ds.seeker.Seek(int64(len(ds.cache)), io.SeekStart); err != nil {
			return docerr.Wrap(err, docerr.ProgramCorrupted, "stream-read-failed")
		}
		reader = ds.seeker
	case originUnseekableStream:
		reader = ds.stream
	}

	const chunkSize = 4096
	for {
		if limit != unlimited && len(ds.cache) >= limit {
			break
		}
		toRead := chunkSize
		if limit != unlimited {
			if remaining := limit - len(ds.cache); remaining < toRead {
				toRead = remaining
			}
		}
		buf := make([]byte, toRead)
		n, err := io.ReadFull(reader, buf)
		if n > 0 {
			ds.cache = append(ds.cache, buf[:n]...)
		}
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			ds.cacheFull = true
			break
		}
		if err != nil {
			return docerr.Wrap(err, docerr.ProgramCorrupted, "stream-read-failed")
		}
		if n < toRead {
			ds.cacheFull = true
			break
		}
	}
	return nil
}

// Span produces a contiguous read-only view of up to limit bytes (all
// bytes if limit <= 0). For stream/path origins the cache is filled (or
// extended) up to limit first.
func (ds *DataSource) Span(limit int) ([]byte, error) {
	if ds.kind == originBuffer || ds.kind == originSpan {
		if limit <= 0 || limit >= len(ds.buffer) {
			return ds.buffer, nil
		}
		return ds.buffer[:limit], nil
	}

	l := unlimited
	if limit > 0 {
		l = limit
	}
	if err := ds.fillCache(l); err != nil {
		return nil, err
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if limit > 0 && limit < len(ds.cache) {
		return ds.cache[:limit], nil
	}
	return ds.cache, nil
}

// String is Span rendered as a string.
func (ds *DataSource) String(limit int) (string, error) {
	b, err := ds.Span(limit)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Istream returns an independent seekable cursor over the bytes cached
// so far; the cursor does not observe future extensions of the cache.
// Unlike Span, it never grows the cache itself - it is a snapshot of
// whatever has already been read.
func (ds *DataSource) Istream() (io.ReadSeeker, error) {
	if ds.kind == originBuffer || ds.kind == originSpan {
		frozen := make([]byte, len(ds.buffer))
		copy(frozen, ds.buffer)
		return bytes.NewReader(frozen), nil
	}
	ds.mu.Lock()
	frozen := make([]byte, len(ds.cache))
	copy(frozen, ds.cache)
	ds.mu.Unlock()
	return bytes.NewReader(frozen), nil
}

// Size returns the total byte count of the source, reading/seeking to
// the end once and memoising the result thereafter.
func (ds *DataSource) Size() (int64, error) {
	if ds.kind == originBuffer || ds.kind == originSpan {
		return int64(len(ds.buffer)), nil
	}
	ds.mu.Lock()
	if ds.haveSize {
		size := ds.totalSize
		ds.mu.Unlock()
		return size, nil
	}
	ds.mu.Unlock()

	switch ds.kind {
	case originPath:
		fi, err := os.Stat(ds.path)
		if err != nil {
			return 0, docerr.Wrap(err, docerr.ProgramCorrupted, fmt.Sprintf("cannot stat %s", ds.path))
		}
		ds.mu.Lock()
		ds.totalSize = fi.Size()
		ds.haveSize = true
		ds.mu.Unlock()
		return ds.totalSize, nil
	case originSeekableStream:
		end, err := ds.seeker.Seek(0, io.SeekEnd)
		if err != nil {
			return 0, docerr.Wrap(err, docerr.ProgramCorrupted, "stream-read-failed")
		}
		ds.mu.Lock()
		ds.totalSize = end
		ds.haveSize = true
		ds.mu.Unlock()
		return end, nil
	default: // unseekable stream: must fully drain to learn the size
		if err := ds.fillCache(unlimited); err != nil {
			return 0, err
		}
		ds.mu.Lock()
		defer ds.mu.Unlock()
		ds.totalSize = int64(len(ds.cache))
		ds.haveSize = true
		return ds.totalSize, nil
	}
}

// ID returns a process-wide unique identifier for this data source,
// minting one on first use. It is stable for the lifetime of ds and is
// meant for keying caches (e.g. detect.CachedEntryNames) that must
// reuse work across multiple probes of the same source.
func (ds *DataSource) ID() ident.ID {
	ds.idMu.Lock()
	defer ds.idMu.Unlock()
	if !ds.idSet {
		ds.id = ident.Next()
		ds.idSet = true
	}
	return ds.id
}

// AddMimeType records evidence that ds is of MIME type mt at the given
// confidence. Multiple evidence entries may coexist for different
// types; a later call for the same type overwrites the confidence in
// place rather than duplicating the ordering slot.
func (ds *DataSource) AddMimeType(mt MimeType, confidence Confidence) {
	ds.evMu.Lock()
	defer ds.evMu.Unlock()
	if _, exists := ds.evidence[mt]; !exists {
		ds.evOrder = append(ds.evOrder, mt)
	}
	ds.evidence[mt] = confidence
}

// MimeTypeConfidence returns the recorded confidence for mt, or
// ConfidenceNone if no evidence was ever recorded.
func (ds *DataSource) MimeTypeConfidence(mt MimeType) Confidence {
	ds.evMu.Lock()
	defer ds.evMu.Unlock()
	return ds.evidence[mt]
}

// HighestConfidenceMimeType returns the argmax MIME type over recorded
// evidence. Ties are broken by insertion order: the earliest-recorded
// candidate at the top confidence wins.
func (ds *DataSource) HighestConfidenceMimeType() (MimeType, Confidence, bool) {
	ds.evMu.Lock()
	defer ds.evMu.Unlock()
	var best MimeType
	bestConf := ConfidenceNone
	found := false
	for _, mt := range ds.evOrder {
		conf := ds.evidence[mt]
		if !found || conf > bestConf {
			best, bestConf, found = mt, conf, true
		}
	}
	return best, bestConf, found
}

// AllEvidence returns a stable, insertion-ordered snapshot of every
// recorded (MimeType, Confidence) pair.
func (ds *DataSource) AllEvidence() []MimeEvidence {
	ds.evMu.Lock()
	defer ds.evMu.Unlock()
	out := make([]MimeEvidence, 0, len(ds.evOrder))
	for _, mt := range ds.evOrder {
		out = append(out, MimeEvidence{Type: mt, Confidence: ds.evidence[mt]})
	}
	return out
}

// MimeEvidence pairs a MIME type with its recorded confidence.
type MimeEvidence struct {
	Type       MimeType
	Confidence Confidence
}

// encryptedMimeTypes lists MIME types whose presence implies the
// underlying document is encrypted and cannot be parsed without
// credentials.
var encryptedMimeTypes = map[MimeType]bool{
	"application/x-ole-encrypted": true,
	"application/encrypted":       true,
}

// AssertNotEncrypted fails fast with a FileEncrypted-tagged error when
// evidence implies encryption.
func (ds *DataSource) AssertNotEncrypted() error {
	for _, ev := range ds.AllEvidence() {
		if encryptedMimeTypes[ev.Type] && ev.Confidence >= ConfidenceMedium {
			return docerr.New(docerr.FileEncrypted, fmt.Sprintf("data source is encrypted (%s)", ev.Type))
		}
	}
	return nil
}
