package writer

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/docwire/docwire-go/message"
	"github.com/docwire/docwire-go/pipeline"
)

// CSV emits table content only, RFC-4180-quoted via encoding/csv: rows
// separated by line breaks, cells separated by commas, quoting applied
// where a cell demands it.
type CSV struct {
	docDepth int
	rows     [][]string
	curRow   []string
	cell     strings.Builder
	inCell   bool
}

func NewCSV() *CSV { return &CSV{} }

func (w *CSV) IsLeaf() bool { return true }

func (w *CSV) Process(msg message.Message, emit pipeline.Emit) (pipeline.Continuation, error) {
	switch msg.Kind {
	case message.KindDocument:
		w.docDepth++
		return pipeline.Proceed, nil
	case message.KindCloseDocument:
		w.docDepth--
		if w.docDepth > 0 {
			return pipeline.Proceed, nil
		}
		var buf bytes.Buffer
		cw := csv.NewWriter(&buf)
		if err := cw.WriteAll(w.rows); err != nil {
			return pipeline.Proceed, err
		}
		w.rows = nil
		out := emitBuffer(buf.Bytes(), ".csv")
		if err := emit(out); err != nil {
			return pipeline.Proceed, err
		}
		return pipeline.Proceed, nil

	case message.KindTableRow:
		w.curRow = nil
	case message.KindTableCell:
		w.inCell = true
		w.cell.Reset()
	case message.KindCloseTableCell:
		w.inCell = false
		w.curRow = append(w.curRow, w.cell.String())
	case message.KindCloseTableRow:
		w.rows = append(w.rows, w.curRow)
		w.curRow = nil
	case message.KindTextRun:
		if w.inCell {
			w.cell.WriteString(msg.Text)
		}
	}
	return pipeline.Proceed, nil
}
