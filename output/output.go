// Package output implements the chain exit points: a leaf stage that
// copies a terminal data_source's bytes to an io.Writer, and a leaf
// stage that collects every message it sees into a slice for
// programmatic inspection.
package output

import (
	"fmt"
	"io"

	"github.com/docwire/docwire-go/docerr"
	"github.com/docwire/docwire-go/message"
	"github.com/docwire/docwire-go/pipeline"
)

// WriterStage copies the bytes of every data_source message it
// receives to an underlying io.Writer. Any other terminal message
// variant is an error.
type WriterStage struct {
	w io.Writer
}

// ToWriter builds an output stage writing to w.
func ToWriter(w io.Writer) *WriterStage {
	return &WriterStage{w: w}
}

func (s *WriterStage) IsLeaf() bool { return true }

func (s *WriterStage) Process(msg message.Message, _ pipeline.Emit) (pipeline.Continuation, error) {
	if msg.Kind != message.KindDataSource {
		return pipeline.Proceed, pipeline.Fatal(docerr.New(docerr.ProgramLogic,
			fmt.Sprintf("output: only data_source messages are supported, got %s", msg.Kind)))
	}
	// Istream() only snapshots whatever is already cached; a
	// stream/path-origin source that no earlier stage has read from
	// would otherwise copy out empty or truncated bytes, so force the
	// full source into the cache first.
	if _, err := msg.Source.Span(0); err != nil {
		return pipeline.Proceed, pipeline.Fatal(docerr.Wrap(err, docerr.ProgramCorrupted, "output-span-failed"))
	}
	cursor, err := msg.Source.Istream()
	if err != nil {
		return pipeline.Proceed, pipeline.Fatal(docerr.Wrap(err, docerr.ProgramCorrupted, "output-istream-failed"))
	}
	if _, err := io.Copy(s.w, cursor); err != nil {
		return pipeline.Proceed, pipeline.Fatal(docerr.Wrap(err, docerr.ProgramCorrupted, "output-write-failed"))
	}
	return pipeline.Proceed, nil
}

// CollectorStage appends every message it receives to *out.
type CollectorStage struct {
	out *[]message.Message
}

// ToMessages builds an output stage that records every message into
// out, in arrival order.
func ToMessages(out *[]message.Message) *CollectorStage {
	return &CollectorStage{out: out}
}

func (s *CollectorStage) IsLeaf() bool { return true }

func (s *CollectorStage) Process(msg message.Message, _ pipeline.Emit) (pipeline.Continuation, error) {
	*s.out = append(*s.out, msg)
	return pipeline.Proceed, nil
}
