package writer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/docwire/docwire-go/docerr"
	"github.com/docwire/docwire-go/message"
	"github.com/docwire/docwire-go/pipeline"
)

// PlainText folds a structural event stream into a line-oriented text
// rendering. The zero value is not usable; build one with NewPlainText.
type PlainText struct {
	eol        string
	formatLink func(url, text string) string

	docDepth int
	body     strings.Builder
	footer   strings.Builder
	inFooter bool

	listMode    bool
	listType    message.ListType
	listCounter int

	tables []*tableFrame
}

type tableFrame struct {
	rows       [][]string
	cellActive bool
	cell       strings.Builder
}

// NewPlainText builds a plain-text writer using eol as the line
// terminator ("\n" unless the caller needs something else, e.g. a
// format-preserving round trip against CRLF input).
func NewPlainText(eol string) *PlainText {
	if eol == "" {
		eol = "\n"
	}
	return &PlainText{eol: eol, formatLink: defaultLinkFormat}
}

// WithLinkFormatter overrides how Link events render; it receives the
// link's URL and returns the text to emit.
func (w *PlainText) WithLinkFormatter(f func(url, text string) string) *PlainText {
	w.formatLink = f
	return w
}

func defaultLinkFormat(url, _ string) string {
	if url == "" {
		return ""
	}
	return "<" + url + ">"
}

func (w *PlainText) IsLeaf() bool { return true }

func (w *PlainText) Process(msg message.Message, emit pipeline.Emit) (pipeline.Continuation, error) {
	switch msg.Kind {
	case message.KindDocument:
		w.docDepth++
		return pipeline.Proceed, nil
	case message.KindCloseDocument:
		w.docDepth--
		if w.docDepth > 0 {
			return pipeline.Proceed, nil
		}
		if err := w.write(w.eol); err != nil {
			return pipeline.Proceed, err
		}
		if w.footer.Len() > 0 {
			footer := w.footer.String() + w.eol
			w.body.WriteString(footer)
			w.footer.Reset()
		}
		out := emitBuffer([]byte(w.body.String()), ".txt")
		w.body.Reset()
		if err := emit(out); err != nil {
			return pipeline.Proceed, err
		}
		return pipeline.Proceed, nil

	case message.KindTextRun:
		return pipeline.Proceed, w.write(msg.Text)
	case message.KindBreakLine:
		return pipeline.Proceed, w.write(w.eol)
	case message.KindCloseParagraph, message.KindCloseSection:
		if w.listMode {
			return pipeline.Proceed, nil
		}
		return pipeline.Proceed, w.write(w.eol)
	case message.KindCloseHeader:
		return pipeline.Proceed, w.write(w.eol)

	case message.KindList:
		w.listMode = true
		w.listCounter = 1
		w.listType = msg.ListType
		return pipeline.Proceed, w.write(w.eol)
	case message.KindCloseList:
		w.listMode = false
		w.listCounter = 1
		return pipeline.Proceed, nil
	case message.KindListItem:
		return pipeline.Proceed, w.write(w.listPrefix())
	case message.KindCloseListItem:
		w.listCounter++
		return pipeline.Proceed, w.write(w.eol)

	case message.KindLink:
		return pipeline.Proceed, w.write(w.formatLink(msg.URL, ""))
	case message.KindImage:
		if msg.Alt != "" {
			return pipeline.Proceed, w.write(msg.Alt)
		}
		return pipeline.Proceed, nil

	case message.KindTable:
		w.tables = append(w.tables, &tableFrame{})
		return pipeline.Proceed, nil
	case message.KindTableRow:
		if len(w.tables) == 0 {
			return pipeline.Proceed, nil
		}
		top := w.tables[len(w.tables)-1]
		top.rows = append(top.rows, []string{})
		return pipeline.Proceed, nil
	case message.KindTableCell:
		if len(w.tables) == 0 {
			return pipeline.Proceed, nil
		}
		top := w.tables[len(w.tables)-1]
		top.cellActive = true
		top.cell.Reset()
		return pipeline.Proceed, nil
	case message.KindCloseTableCell:
		if len(w.tables) == 0 {
			return pipeline.Proceed, nil
		}
		top := w.tables[len(w.tables)-1]
		if len(top.rows) == 0 {
			return pipeline.Proceed, pipeline.Fatal(docerr.New(docerr.UninterpretableData, "table cell closed without an active row"))
		}
		last := len(top.rows) - 1
		top.rows[last] = append(top.rows[last], top.cell.String())
		top.cellActive = false
		return pipeline.Proceed, nil
	case message.KindCloseTableRow:
		return pipeline.Proceed, nil
	case message.KindCloseTable:
		if len(w.tables) == 0 {
			return pipeline.Proceed, nil
		}
		top := w.tables[len(w.tables)-1]
		w.tables = w.tables[:len(w.tables)-1]
		return pipeline.Proceed, w.write(renderTable(top.rows, w.eol))

	case message.KindComment:
		return pipeline.Proceed, w.write(w.renderComment(msg))

	case message.KindFooter:
		w.inFooter = true
		w.footer.Reset()
		return pipeline.Proceed, nil
	case message.KindCloseFooter:
		w.inFooter = false
		return pipeline.Proceed, nil

	case message.KindMail:
		return pipeline.Proceed, w.write(renderMail(msg))
	case message.KindCloseMailBody:
		return pipeline.Proceed, w.write(w.eol)
	case message.KindAttachment:
		return pipeline.Proceed, w.write(renderAttachment(msg, w.eol))
	case message.KindCloseAttachment:
		return pipeline.Proceed, w.write(w.eol)
	case message.KindFolder:
		return pipeline.Proceed, w.write(renderFolder(msg, w.eol))

	default:
		return pipeline.Proceed, nil
	}
}

// write routes text to the currently active target: an open table
// cell, the footer buffer, or the main body.
func (w *PlainText) write(s string) error {
	if len(w.tables) > 0 {
		top := w.tables[len(w.tables)-1]
		if !top.cellActive {
			return pipeline.Fatal(docerr.New(docerr.UninterpretableData, "Cell content inside table without rows"))
		}
		top.cell.WriteString(s)
		return nil
	}
	if w.inFooter {
		w.footer.WriteString(s)
		return nil
	}
	w.body.WriteString(s)
	return nil
}

func (w *PlainText) listPrefix() string {
	switch w.listType {
	case "", "none":
		return ""
	case message.ListDecimal:
		return strconv.Itoa(w.listCounter) + ". "
	case message.ListDisc:
		return "* "
	default:
		return string(w.listType)
	}
}

// renderTable lays out buffered cells on a grid: every cell is padded
// to the widest cell's width, every row to its tallest cell's height.
func renderTable(rows [][]string, eol string) string {
	var out strings.Builder
	maxWidth := 0
	for _, row := range rows {
		for _, cell := range row {
			if w := maxCellLineWidth(cell, eol); w > maxWidth {
				maxWidth = w
			}
		}
	}
	for _, row := range rows {
		lines := make([][]string, len(row))
		maxHeight := 1
		for i, cell := range row {
			lines[i] = strings.Split(cell, eol)
			if len(lines[i]) > maxHeight {
				maxHeight = len(lines[i])
			}
		}
		for h := 0; h < maxHeight; h++ {
			for j, cellLines := range lines {
				line := ""
				if h < len(cellLines) {
					line = cellLines[h]
				}
				out.WriteString(line)
				margin := maxWidth - len(line)
				if j < len(row)-1 {
					margin += 2
				} else {
					margin = 0
				}
				out.WriteString(strings.Repeat(" ", margin))
			}
			out.WriteString(eol)
		}
	}
	return out.String()
}

func maxCellLineWidth(cell, eol string) int {
	width := 0
	for _, line := range strings.Split(cell, eol) {
		if len(line) > width {
			width = len(line)
		}
	}
	return width
}

func (w *PlainText) renderComment(msg message.Message) string {
	var out strings.Builder
	out.WriteString(w.eol + "[[[")
	if msg.CommentAuthor != nil {
		out.WriteString("COMMENT BY " + *msg.CommentAuthor)
	}
	if msg.CommentTime != nil {
		out.WriteString(" (" + formatDate(*msg.CommentTime) + ")")
	}
	out.WriteString("]]]" + w.eol)
	if msg.CommentBody != nil {
		body := *msg.CommentBody
		out.WriteString(body)
		if body == "" || !strings.HasSuffix(body, "\n") {
			out.WriteString(w.eol)
		}
	}
	out.WriteString("[[[---]]]" + w.eol)
	return out.String()
}

func renderMail(msg message.Message) string {
	var out strings.Builder
	if msg.Level != nil {
		out.WriteString(strings.Repeat("\t", *msg.Level))
	}
	out.WriteString("mail: ")
	if msg.Subject != nil {
		out.WriteString(*msg.Subject)
	}
	if msg.MailDate != nil {
		out.WriteString(" creation time: " + formatDate(*msg.MailDate) + "\n")
	}
	return out.String()
}

func renderAttachment(msg message.Message, eol string) string {
	var out strings.Builder
	out.WriteString("attachment: " + eol + eol)
	if msg.Name != nil {
		out.WriteString("name: " + *msg.Name + eol)
	}
	return out.String()
}

func renderFolder(msg message.Message, eol string) string {
	var out strings.Builder
	if msg.Level != nil {
		out.WriteString(strings.Repeat("\t", *msg.Level))
	}
	out.WriteString("folder: ")
	if msg.Name != nil {
		out.WriteString(*msg.Name + eol)
	}
	return out.String()
}

func formatDate(d message.Date) string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", d.Year, d.Month, d.Day, d.Hour, d.Minute, d.Second)
}
