package writer

import (
	"fmt"
	"strings"

	"github.com/docwire/docwire-go/message"
	"github.com/docwire/docwire-go/pipeline"
)

// Metadata emits a six-line block from the Document thunk's result,
// each missing field rendered as "unidentified".
type Metadata struct {
	docDepth int
	meta     message.Metadata
}

func NewMetadata() *Metadata { return &Metadata{} }

func (w *Metadata) IsLeaf() bool { return true }

func (w *Metadata) Process(msg message.Message, emit pipeline.Emit) (pipeline.Continuation, error) {
	switch msg.Kind {
	case message.KindDocument:
		w.docDepth++
		w.meta = message.Metadata{}
		if msg.MetaThunk != nil {
			m, err := msg.MetaThunk()
			if err != nil {
				return pipeline.Proceed, err
			}
			w.meta = m
		}
		return pipeline.Proceed, nil
	case message.KindCloseDocument:
		w.docDepth--
		if w.docDepth > 0 {
			return pipeline.Proceed, nil
		}
		out := emitBuffer([]byte(w.render()), ".txt")
		if err := emit(out); err != nil {
			return pipeline.Proceed, err
		}
		return pipeline.Proceed, nil
	}
	return pipeline.Proceed, nil
}

func (w *Metadata) render() string {
	var out strings.Builder
	line := func(label string, value *string) {
		if value != nil {
			out.WriteString(label + ": " + *value + "\n")
		} else {
			out.WriteString(label + ": unidentified\n")
		}
	}
	line("Author", w.meta.Author)
	if w.meta.CreationDate != nil {
		out.WriteString("Creation time: " + formatDate(*w.meta.CreationDate) + "\n")
	} else {
		out.WriteString("Creation time: unidentified\n")
	}
	line("Last modified by", w.meta.LastModifiedBy)
	if w.meta.LastModificationDate != nil {
		out.WriteString("Last modification time: " + formatDate(*w.meta.LastModificationDate) + "\n")
	} else {
		out.WriteString("Last modification time: unidentified\n")
	}
	if w.meta.PageCount != nil {
		out.WriteString(fmt.Sprintf("Page count: %d\n", *w.meta.PageCount))
	} else {
		out.WriteString("Page count: unidentified\n")
	}
	if w.meta.WordCount != nil {
		out.WriteString(fmt.Sprintf("Word count: %d\n", *w.meta.WordCount))
	} else {
		out.WriteString("Word count: unidentified\n")
	}
	return out.String()
}
