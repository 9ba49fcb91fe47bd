package writer

import (
	"fmt"
	"html"
	"strings"

	"github.com/docwire/docwire-go/message"
	"github.com/docwire/docwire-go/pipeline"
)

// HTML maps structural events to HTML tags 1:1.
type HTML struct {
	docDepth int
	body     strings.Builder
	listTags []string // close tags to emit, matched to whatever List opened
}

func NewHTML() *HTML { return &HTML{} }

func (w *HTML) IsLeaf() bool { return true }

func (w *HTML) Process(msg message.Message, emit pipeline.Emit) (pipeline.Continuation, error) {
	switch msg.Kind {
	case message.KindDocument:
		w.docDepth++
		if w.docDepth == 1 {
			w.body.WriteString("<html><body>")
		}
		return pipeline.Proceed, nil
	case message.KindCloseDocument:
		w.docDepth--
		if w.docDepth > 0 {
			return pipeline.Proceed, nil
		}
		w.body.WriteString("</body></html>")
		out := emitBuffer([]byte(w.body.String()), ".html")
		w.body.Reset()
		if err := emit(out); err != nil {
			return pipeline.Proceed, err
		}
		return pipeline.Proceed, nil

	case message.KindTextRun:
		w.body.WriteString(html.EscapeString(msg.Text))
	case message.KindBreakLine:
		w.body.WriteString("<br/>")
	case message.KindParagraph:
		w.body.WriteString("<p>")
	case message.KindCloseParagraph:
		w.body.WriteString("</p>")
	case message.KindSection:
		w.body.WriteString("<section>")
	case message.KindCloseSection:
		w.body.WriteString("</section>")
	case message.KindHeader:
		w.body.WriteString("<header>")
	case message.KindCloseHeader:
		w.body.WriteString("</header>")
	case message.KindFooter:
		w.body.WriteString("<footer>")
	case message.KindCloseFooter:
		w.body.WriteString("</footer>")

	case message.KindBold:
		w.body.WriteString("<b>")
	case message.KindCloseBold:
		w.body.WriteString("</b>")
	case message.KindItalic:
		w.body.WriteString("<i>")
	case message.KindCloseItalic:
		w.body.WriteString("</i>")
	case message.KindUnderline:
		w.body.WriteString("<u>")
	case message.KindCloseUnderline:
		w.body.WriteString("</u>")

	case message.KindLink:
		w.body.WriteString(fmt.Sprintf(`<a href="%s">`, html.EscapeString(msg.URL)))
	case message.KindCloseLink:
		w.body.WriteString("</a>")
	case message.KindImage:
		w.body.WriteString(fmt.Sprintf(`<img src="%s" alt="%s"/>`, html.EscapeString(msg.Src), html.EscapeString(msg.Alt)))

	case message.KindList:
		open, close := "<ul>", "</ul>"
		if msg.ListType == message.ListDecimal {
			open, close = "<ol>", "</ol>"
		}
		w.body.WriteString(open)
		w.listTags = append(w.listTags, close)
	case message.KindCloseList:
		if n := len(w.listTags); n > 0 {
			w.body.WriteString(w.listTags[n-1])
			w.listTags = w.listTags[:n-1]
		}
	case message.KindListItem:
		w.body.WriteString("<li>")
	case message.KindCloseListItem:
		w.body.WriteString("</li>")

	case message.KindTable:
		w.body.WriteString("<table>")
	case message.KindCloseTable:
		w.body.WriteString("</table>")
	case message.KindTableRow:
		w.body.WriteString("<tr>")
	case message.KindCloseTableRow:
		w.body.WriteString("</tr>")
	case message.KindTableCell:
		w.body.WriteString("<td>")
	case message.KindCloseTableCell:
		w.body.WriteString("</td>")
	}
	return pipeline.Proceed, nil
}
