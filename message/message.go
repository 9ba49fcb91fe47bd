// Package message defines the tagged envelope that flows between
// pipeline stages and the structural event vocabulary every format
// parser emits and every writer consumes.
//
// Message is a single struct carrying a discriminant (Kind) plus the
// payload fields relevant to that kind. No variant is privileged by
// identity; stages dispatch purely on Kind.
package message

import "github.com/docwire/docwire-go/datasource"

// Kind identifies which variant of Message is populated.
type Kind int

const (
	KindDataSource Kind = iota
	KindDocument
	KindCloseDocument
	KindTextRun
	KindBreakLine
	KindParagraph
	KindCloseParagraph
	KindSection
	KindCloseSection
	KindHeader
	KindCloseHeader
	KindFooter
	KindCloseFooter
	KindList
	KindListItem
	KindCloseListItem
	KindCloseList
	KindTable
	KindTableRow
	KindTableCell
	KindCloseTableCell
	KindCloseTableRow
	KindCloseTable
	KindLink
	KindCloseLink
	KindImage
	KindBold
	KindCloseBold
	KindItalic
	KindCloseItalic
	KindUnderline
	KindCloseUnderline
	KindMail
	KindMailBody
	KindCloseMailBody
	KindCloseMail
	KindAttachment
	KindCloseAttachment
	KindFolder
	KindCloseFolder
	KindComment
	KindPage
	KindClosePage
	KindMetadata
	KindStartProcessing
	KindCancel
	KindException
	KindEmbedding
)

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

var kindNames = map[Kind]string{
	KindDataSource:      "data_source",
	KindDocument:        "Document",
	KindCloseDocument:   "CloseDocument",
	KindTextRun:         "TextRun",
	KindBreakLine:       "BreakLine",
	KindParagraph:       "Paragraph",
	KindCloseParagraph:  "CloseParagraph",
	KindSection:         "Section",
	KindCloseSection:    "CloseSection",
	KindHeader:          "Header",
	KindCloseHeader:     "CloseHeader",
	KindFooter:          "Footer",
	KindCloseFooter:     "CloseFooter",
	KindList:            "List",
	KindListItem:        "ListItem",
	KindCloseListItem:   "CloseListItem",
	KindCloseList:       "CloseList",
	KindTable:           "Table",
	KindTableRow:        "TableRow",
	KindTableCell:       "TableCell",
	KindCloseTableCell:  "CloseTableCell",
	KindCloseTableRow:   "CloseTableRow",
	KindCloseTable:      "CloseTable",
	KindLink:            "Link",
	KindCloseLink:       "CloseLink",
	KindImage:           "Image",
	KindBold:            "Bold",
	KindCloseBold:       "CloseBold",
	KindItalic:          "Italic",
	KindCloseItalic:     "CloseItalic",
	KindUnderline:       "Underline",
	KindCloseUnderline:  "CloseUnderline",
	KindMail:            "Mail",
	KindMailBody:        "MailBody",
	KindCloseMailBody:   "CloseMailBody",
	KindCloseMail:       "CloseMail",
	KindAttachment:      "Attachment",
	KindCloseAttachment: "CloseAttachment",
	KindFolder:          "Folder",
	KindCloseFolder:     "CloseFolder",
	KindComment:         "Comment",
	KindPage:            "Page",
	KindClosePage:       "ClosePage",
	KindMetadata:        "Metadata",
	KindStartProcessing: "pipeline::start_processing",
	KindCancel:          "Cancel",
	KindException:       "exception_carrier",
	KindEmbedding:       "Embedding",
}

// openerOf maps a closing Kind to the Kind of its opener, used by
// drivers and writers to track open/close nesting.
var openerOf = map[Kind]Kind{
	KindCloseDocument:   KindDocument,
	KindCloseParagraph:  KindParagraph,
	KindCloseSection:    KindSection,
	KindCloseHeader:     KindHeader,
	KindCloseFooter:     KindFooter,
	KindCloseListItem:   KindListItem,
	KindCloseList:       KindList,
	KindCloseTableCell:  KindTableCell,
	KindCloseTableRow:   KindTableRow,
	KindCloseTable:      KindTable,
	KindCloseLink:       KindLink,
	KindCloseBold:       KindBold,
	KindCloseItalic:     KindItalic,
	KindCloseUnderline:  KindUnderline,
	KindCloseMailBody:   KindMailBody,
	KindCloseMail:       KindMail,
	KindCloseAttachment: KindAttachment,
	KindCloseFolder:     KindFolder,
	KindClosePage:       KindPage,
}

// Opener returns the opening Kind for a closing Kind and true, or
// (0, false) if k is not a closer.
func Opener(k Kind) (Kind, bool) {
	o, ok := openerOf[k]
	return o, ok
}

// IsCloser reports whether k closes a container frame.
func IsCloser(k Kind) bool {
	_, ok := openerOf[k]
	return ok
}

// ListType distinguishes the rendering rule a List uses.
type ListType string

const (
	ListDecimal ListType = "decimal"
	ListDisc    ListType = "disc"
)

// Date is a broken-down civil date/time.
type Date struct {
	Year, Month, Day     int
	Hour, Minute, Second int
}

// Variant is the closed sum of metadata extra-field value kinds:
// string, unsigned integer, date, or nil. Exactly one accessor will
// report ok=true for a given Variant.
type Variant struct {
	kind variantKind
	str  string
	num  uint64
	date Date
}

type variantKind int

const (
	variantNil variantKind = iota
	variantString
	variantUint
	variantDate
)

func VariantString(s string) Variant { return Variant{kind: variantString, str: s} }
func VariantUint(n uint64) Variant   { return Variant{kind: variantUint, num: n} }
func VariantDate(d Date) Variant     { return Variant{kind: variantDate, date: d} }
func VariantNil() Variant            { return Variant{kind: variantNil} }

func (v Variant) AsString() (string, bool) { return v.str, v.kind == variantString }
func (v Variant) AsUint() (uint64, bool)   { return v.num, v.kind == variantUint }
func (v Variant) AsDate() (Date, bool)     { return v.date, v.kind == variantDate }
func (v Variant) IsNil() bool              { return v.kind == variantNil }

// Metadata is the document metadata record.
type Metadata struct {
	Author               *string
	CreationDate         *Date
	LastModifiedBy       *string
	LastModificationDate *Date
	PageCount            *int
	WordCount            *int
	Extra                map[string]Variant
}

// MetadataThunk produces a Metadata record on demand; Document carries
// one instead of an eagerly-computed Metadata so parsers can defer the
// work until a consumer actually asks.
type MetadataThunk func() (Metadata, error)

// Message is the tagged envelope passed between pipeline stages.
type Message struct {
	Kind Kind

	// KindDataSource
	Source *datasource.DataSource

	// KindDocument
	MetaThunk MetadataThunk

	// KindTextRun
	Text string

	// KindList
	ListType ListType

	// KindLink, KindImage
	URL string
	Alt string
	Src string

	// KindMail
	Subject *string
	MailDate *Date
	Level    *int

	// KindAttachment
	Name      *string
	Size      *int64
	Extension *string

	// KindFolder reuses Name and Level above.

	// KindComment
	CommentAuthor *string
	CommentTime   *Date
	CommentBody   *string

	// KindMetadata
	Metadata *Metadata

	// KindException
	Err error

	// KindEmbedding
	Vector []float64
}

// Document constructs a Document-opening Message carrying thunk.
func Document(thunk MetadataThunk) Message {
	return Message{Kind: KindDocument, MetaThunk: thunk}
}

// CloseDocument constructs the matching closer.
func CloseDocument() Message { return Message{Kind: KindCloseDocument} }

// TextRun constructs a leaf text-run Message.
func TextRun(text string) Message { return Message{Kind: KindTextRun, Text: text} }

// FromDataSource wraps a data source as a Message.
func FromDataSource(ds *datasource.DataSource) Message {
	return Message{Kind: KindDataSource, Source: ds}
}

// Exception wraps a non-fatal error as a message so the pipeline keeps
// flowing; downstream stages propagate it unless they handle it.
func Exception(err error) Message {
	return Message{Kind: KindException, Err: err}
}
