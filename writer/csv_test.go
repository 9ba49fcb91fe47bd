package writer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docwire/docwire-go/message"
)

func TestCSVEmitsOnlyTableContent(t *testing.T) {
	w := NewCSV()
	out := drive(t, w, []message.Message{
		message.Document(nil),
		message.TextRun("ignored prose outside any table"),
		{Kind: message.KindTable},
		{Kind: message.KindTableRow},
		{Kind: message.KindTableCell},
		message.TextRun("a"),
		{Kind: message.KindCloseTableCell},
		{Kind: message.KindTableCell},
		message.TextRun("b,c"),
		{Kind: message.KindCloseTableCell},
		{Kind: message.KindCloseTableRow},
		{Kind: message.KindCloseTable},
		message.CloseDocument(),
	})
	require.Equal(t, "a,\"b,c\"\n", textOf(t, out))
}

func TestCSVQuotesEmbeddedQuotesAndNewlines(t *testing.T) {
	w := NewCSV()
	out := drive(t, w, []message.Message{
		message.Document(nil),
		{Kind: message.KindTable},
		{Kind: message.KindTableRow},
		{Kind: message.KindTableCell},
		message.TextRun("he said \"hi\"\nnext line"),
		{Kind: message.KindCloseTableCell},
		{Kind: message.KindCloseTableRow},
		{Kind: message.KindCloseTable},
		message.CloseDocument(),
	})
	require.Equal(t, "\"he said \"\"hi\"\"\nnext line\"\n", textOf(t, out))
}
