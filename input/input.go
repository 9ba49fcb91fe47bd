// Package input implements the chain entry point: a stage that, upon
// receiving the pipeline's start_processing kickoff message, emits the
// configured data_source and otherwise forwards whatever it is given
// unchanged.
package input

import (
	"io"

	"github.com/docwire/docwire-go/datasource"
	"github.com/docwire/docwire-go/message"
	"github.com/docwire/docwire-go/pipeline"
)

// Stage emits ds every time it sees a start_processing message.
type Stage struct {
	ds *datasource.DataSource
}

// FromPath builds an input stage reading path lazily on first use.
func FromPath(path string) *Stage {
	return &Stage{ds: datasource.FromPath(path)}
}

// FromBuffer builds an input stage over an in-memory buffer.
func FromBuffer(b []byte) *Stage {
	return &Stage{ds: datasource.FromBuffer(b)}
}

// FromString builds an input stage over the bytes of s.
func FromString(s string) *Stage {
	return &Stage{ds: datasource.FromBuffer([]byte(s))}
}

// FromSeekableStream builds an input stage over a seekable stream.
func FromSeekableStream(r io.ReadSeeker) *Stage {
	return &Stage{ds: datasource.FromSeekableStream(r)}
}

// FromUnseekableStream builds an input stage over a forward-only
// stream.
func FromUnseekableStream(r io.Reader) *Stage {
	return &Stage{ds: datasource.FromUnseekableStream(r)}
}

// FromDataSource adapts an already-constructed data source.
func FromDataSource(ds *datasource.DataSource) *Stage {
	return &Stage{ds: ds}
}

func (s *Stage) IsLeaf() bool { return false }

func (s *Stage) Process(msg message.Message, emit pipeline.Emit) (pipeline.Continuation, error) {
	if msg.Kind == message.KindStartProcessing {
		if err := emit(message.FromDataSource(s.ds)); err != nil {
			return pipeline.Proceed, err
		}
		return pipeline.Proceed, nil
	}
	if err := emit(msg); err != nil {
		return pipeline.Proceed, err
	}
	return pipeline.Proceed, nil
}
