package writer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docwire/docwire-go/message"
)

func TestHTMLWrapsBodyAndEscapesText(t *testing.T) {
	w := NewHTML()
	out := drive(t, w, []message.Message{
		message.Document(nil),
		{Kind: message.KindParagraph},
		message.TextRun("A & B < C"),
		{Kind: message.KindCloseParagraph},
		message.CloseDocument(),
	})
	require.Equal(t, "<html><body><p>A &amp; B &lt; C</p></body></html>", textOf(t, out))
}

func TestHTMLListsUseMatchingOpenCloseTags(t *testing.T) {
	w := NewHTML()
	out := drive(t, w, []message.Message{
		message.Document(nil),
		{Kind: message.KindList, ListType: message.ListDecimal},
		{Kind: message.KindListItem},
		message.TextRun("x"),
		{Kind: message.KindCloseListItem},
		{Kind: message.KindCloseList},
		message.CloseDocument(),
	})
	require.Equal(t, "<html><body><ol><li>x</li></ol></body></html>", textOf(t, out))
}

func TestHTMLTableTags(t *testing.T) {
	w := NewHTML()
	out := drive(t, w, []message.Message{
		message.Document(nil),
		{Kind: message.KindTable},
		{Kind: message.KindTableRow},
		{Kind: message.KindTableCell},
		message.TextRun("cell"),
		{Kind: message.KindCloseTableCell},
		{Kind: message.KindCloseTableRow},
		{Kind: message.KindCloseTable},
		message.CloseDocument(),
	})
	require.Equal(t, "<html><body><table><tr><td>cell</td></tr></table></body></html>", textOf(t, out))
}

func TestHTMLLinkAndImageAttributes(t *testing.T) {
	w := NewHTML()
	out := drive(t, w, []message.Message{
		message.Document(nil),
		{Kind: message.KindLink, URL: "http://example.com/?a=1&b=2"},
		message.TextRun("here"),
		{Kind: message.KindCloseLink},
		{Kind: message.KindImage, Src: "pic.png", Alt: "a picture"},
		message.CloseDocument(),
	})
	require.Equal(t,
		`<html><body><a href="http://example.com/?a=1&amp;b=2">here</a><img src="pic.png" alt="a picture"/></body></html>`,
		textOf(t, out))
}
