// Package container implements the recursive archive-decompression
// stage: an archive-typed data source is enumerated and every
// regular-file entry is emitted as a fresh data_source message, so
// nested archives re-enter the same stage.
//
// zip, tar, gzip and bzip2 are unpacked natively; rar, xz and 7z have
// no stdlib decoder and are reported as a non-fatal exception_carrier
// rather than silently dropped.
package container

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/docwire/docwire-go/datasource"
	"github.com/docwire/docwire-go/docerr"
	"github.com/docwire/docwire-go/ident"
	"github.com/docwire/docwire-go/message"
	"github.com/docwire/docwire-go/pipeline"
	"github.com/docwire/docwire-go/pipelog"
)

// archiveKind identifies which stdlib reader unpacks a data source.
type archiveKind int

const (
	kindNone archiveKind = iota
	kindZip
	kindTar
	kindGzip
	kindBzip2
	kindUnsupported
)

var mimeToKind = map[datasource.MimeType]archiveKind{
	"application/zip":             kindZip,
	"application/x-tar":           kindTar,
	"application/gzip":            kindGzip,
	"application/x-gzip":          kindGzip,
	"application/x-bzip2":         kindBzip2,
	"application/vnd.rar":         kindUnsupported,
	"application/x-rar":           kindUnsupported,
	"application/x-xz":            kindUnsupported,
	"application/x-7z-compressed": kindUnsupported,
}

var extToKind = map[string]archiveKind{
	".zip": kindZip,
	".tar": kindTar,
	".gz":  kindGzip,
	".tgz": kindGzip,
	".bz2": kindBzip2,
	".rar": kindUnsupported,
	".xz":  kindUnsupported,
	".7z":  kindUnsupported,
}

func classify(ds *datasource.DataSource) archiveKind {
	if mt, conf, ok := ds.HighestConfidenceMimeType(); ok && conf >= datasource.ConfidenceMedium {
		if k, known := mimeToKind[mt]; known {
			return k
		}
	}
	if ext, ok := ds.FileExtension(); ok {
		if k, known := extToKind[strings.ToLower(ext)]; known {
			return k
		}
	}
	return kindNone
}

// Stage unpacks archive data sources into one data_source message per
// regular-file entry. Detect, if set, runs content-type detection on
// each freshly-minted entry data source so a nested archive is
// recognised before this stage re-enters itself for it.
type Stage struct {
	Detect func(ds *datasource.DataSource) error

	// Log receives a warning for every non-fatal archive error this
	// stage converts into an exception_carrier message. Defaults to the
	// "off" sink if unset.
	Log pipelog.Logger
}

// New builds a container stage that re-detects every entry with
// detect before deciding whether to recurse into it.
func New(detect func(ds *datasource.DataSource) error) *Stage {
	return &Stage{Detect: detect, Log: pipelog.Get("off")}
}

// WithLog attaches a logger non-fatal archive errors are reported to.
func (s *Stage) WithLog(log pipelog.Logger) *Stage {
	s.Log = log
	return s
}

func (s *Stage) log() pipelog.Logger {
	if s.Log == nil {
		return pipelog.Get("off")
	}
	return s.Log
}

func (s *Stage) IsLeaf() bool { return false }

func (s *Stage) Process(msg message.Message, emit pipeline.Emit) (pipeline.Continuation, error) {
	if msg.Kind != message.KindDataSource {
		if err := emit(msg); err != nil {
			return pipeline.Proceed, err
		}
		return pipeline.Proceed, nil
	}
	if err := s.unpack(msg.Source, emit); err != nil {
		return pipeline.Proceed, err
	}
	return pipeline.Proceed, nil
}

// unpack classifies ds; non-archives are forwarded untouched, archives
// are enumerated and every regular-file entry re-enters unpack so
// nested archives are handled without any special-casing.
func (s *Stage) unpack(ds *datasource.DataSource, emit pipeline.Emit) error {
	kind := classify(ds)
	if kind == kindNone {
		return emit(message.FromDataSource(ds))
	}
	if kind == kindUnsupported {
		ext, _ := ds.FileExtension()
		err := docerr.New(docerr.UninterpretableData,
			fmt.Sprintf("archive format %q is not supported by this build", ext))
		s.log().Fields("stage", "container", "extension", ext).Warn(docerr.Diagnostic(err))
		return emit(message.Exception(err))
	}

	entries, closeFn, err := openArchive(kind, ds)
	if err != nil {
		return pipeline.Fatal(docerr.Wrap(err, docerr.ProgramCorrupted, "archive-open-failed"))
	}
	defer closeFn()

	for {
		entry, err := entries.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			wrapped := docerr.Wrap(err, docerr.UninterpretableData, "archive-entry-read-failed")
			s.log().Fields("stage", "container").Warn(docerr.Diagnostic(wrapped))
			if emitErr := emit(message.Exception(wrapped)); emitErr != nil {
				return emitErr
			}
			return nil
		}
		if entry.IsDir {
			continue
		}
		entryDS := datasource.FromUnseekableStream(entry.Body)
		entryDS.SetFileExtension(filepath.Ext(entry.Name))
		entryDS.SetProvenance(ident.NewProvenance())
		if s.Detect != nil {
			if err := s.Detect(entryDS); err != nil {
				return err
			}
		}
		if err := s.unpack(entryDS, emit); err != nil {
			return err
		}
	}
}

// entry is one regular-file (or directory) member of an archive.
type entry struct {
	Name  string
	IsDir bool
	Body  io.Reader
}

// entryIterator yields archive entries one at a time.
type entryIterator interface {
	Next() (entry, error)
}

func openArchive(kind archiveKind, ds *datasource.DataSource) (entryIterator, func(), error) {
	switch kind {
	case kindZip:
		return openZip(ds)
	case kindTar:
		return openTar(ds)
	case kindGzip:
		return openGzip(ds)
	case kindBzip2:
		return openBzip2(ds)
	default:
		return nil, func() {}, fmt.Errorf("unhandled archive kind %d", kind)
	}
}

// zipIterator walks a fully-buffered zip.Reader, since the zip central
// directory sits at the end of the file and stdlib requires io.ReaderAt.
type zipIterator struct {
	files []*zip.File
	pos   int
}

func openZip(ds *datasource.DataSource) (entryIterator, func(), error) {
	raw, err := ds.Span(0)
	if err != nil {
		return nil, func() {}, err
	}
	r, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, func() {}, err
	}
	return &zipIterator{files: r.File}, func() {}, nil
}

func (z *zipIterator) Next() (entry, error) {
	if z.pos >= len(z.files) {
		return entry{}, io.EOF
	}
	f := z.files[z.pos]
	z.pos++
	if f.FileInfo().IsDir() {
		return entry{Name: f.Name, IsDir: true}, nil
	}
	body, err := f.Open()
	if err != nil {
		return entry{}, err
	}
	return entry{Name: f.Name, Body: body}, nil
}

// tarIterator walks an archive/tar.Reader directly over the data
// source's full byte span; tar entries are sequential so no seeking is
// required.
type tarIterator struct{ r *tar.Reader }

func openTar(ds *datasource.DataSource) (entryIterator, func(), error) {
	raw, err := ds.Span(0)
	if err != nil {
		return nil, func() {}, err
	}
	return &tarIterator{r: tar.NewReader(bytes.NewReader(raw))}, func() {}, nil
}

func (t *tarIterator) Next() (entry, error) {
	hdr, err := t.r.Next()
	if err != nil {
		return entry{}, err
	}
	if hdr.Typeflag == tar.TypeDir {
		return entry{Name: hdr.Name, IsDir: true}, nil
	}
	return entry{Name: hdr.Name, Body: t.r}, nil
}

// gzipIterator exposes the single compressed member a gzip stream
// carries as one entry, named from the gzip header when present.
type gzipIterator struct {
	zr   *gzip.Reader
	done bool
}

func openGzip(ds *datasource.DataSource) (entryIterator, func(), error) {
	raw, err := ds.Span(0)
	if err != nil {
		return nil, func() {}, err
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, func() {}, err
	}
	return &gzipIterator{zr: zr}, func() { zr.Close() }, nil
}

func (g *gzipIterator) Next() (entry, error) {
	if g.done {
		return entry{}, io.EOF
	}
	g.done = true
	name := g.zr.Header.Name
	if name == "" {
		name = "decompressed"
	}
	return entry{Name: name, Body: g.zr}, nil
}

// bzip2Iterator exposes the single member a bzip2 stream carries.
type bzip2Iterator struct {
	r    io.Reader
	done bool
}

func openBzip2(ds *datasource.DataSource) (entryIterator, func(), error) {
	raw, err := ds.Span(0)
	if err != nil {
		return nil, func() {}, err
	}
	return &bzip2Iterator{r: bzip2.NewReader(bytes.NewReader(raw))}, func() {}, nil
}

func (b *bzip2Iterator) Next() (entry, error) {
	if b.done {
		return entry{}, io.EOF
	}
	b.done = true
	return entry{Name: "decompressed", Body: b.r}, nil
}
