// Package filter implements the standard set of predicate stages: each
// forwards a message unchanged or tells the driver to skip the current
// subtree or stop the run.
package filter

import (
	"github.com/docwire/docwire-go/message"
	"github.com/docwire/docwire-go/pipeline"
)

// FolderWhitelist skips any Folder subtree whose name is present and
// not in the allowed set; a folder with no name passes.
type FolderWhitelist struct {
	Allowed map[string]bool
}

// NewFolderWhitelist builds a filter that only lets the named folders
// (and everything they contain) through.
func NewFolderWhitelist(names ...string) *FolderWhitelist {
	allowed := make(map[string]bool, len(names))
	for _, n := range names {
		allowed[n] = true
	}
	return &FolderWhitelist{Allowed: allowed}
}

func (f *FolderWhitelist) IsLeaf() bool { return false }

func (f *FolderWhitelist) Process(msg message.Message, emit pipeline.Emit) (pipeline.Continuation, error) {
	if msg.Kind == message.KindFolder && msg.Name != nil && !f.Allowed[*msg.Name] {
		return pipeline.Skip, nil
	}
	if err := emit(msg); err != nil {
		return pipeline.Stop, err
	}
	return pipeline.Proceed, nil
}

// AttachmentExtensionWhitelist skips any Attachment subtree whose
// extension is present and not in the allowed set; an attachment with
// no extension passes.
type AttachmentExtensionWhitelist struct {
	Allowed map[string]bool
}

// NewAttachmentExtensionWhitelist builds a filter over attachment
// extensions. Extensions are matched case-sensitively as given.
func NewAttachmentExtensionWhitelist(exts ...string) *AttachmentExtensionWhitelist {
	allowed := make(map[string]bool, len(exts))
	for _, e := range exts {
		allowed[e] = true
	}
	return &AttachmentExtensionWhitelist{Allowed: allowed}
}

func (f *AttachmentExtensionWhitelist) IsLeaf() bool { return false }

func (f *AttachmentExtensionWhitelist) Process(msg message.Message, emit pipeline.Emit) (pipeline.Continuation, error) {
	if msg.Kind == message.KindAttachment && msg.Extension != nil && !f.Allowed[*msg.Extension] {
		return pipeline.Skip, nil
	}
	if err := emit(msg); err != nil {
		return pipeline.Stop, err
	}
	return pipeline.Proceed, nil
}

// MailCreationTimeRange skips any Mail subtree whose creation date is
// present and falls outside [Min, Max]; either bound may be nil,
// meaning unbounded. A mail with no creation date passes.
type MailCreationTimeRange struct {
	Min, Max *message.Date
}

func (f *MailCreationTimeRange) IsLeaf() bool { return false }

func (f *MailCreationTimeRange) Process(msg message.Message, emit pipeline.Emit) (pipeline.Continuation, error) {
	if msg.Kind == message.KindMail && msg.MailDate != nil {
		if f.Min != nil && compareDate(*msg.MailDate, *f.Min) < 0 {
			return pipeline.Skip, nil
		}
		if f.Max != nil && compareDate(*msg.MailDate, *f.Max) > 0 {
			return pipeline.Skip, nil
		}
	}
	if err := emit(msg); err != nil {
		return pipeline.Stop, err
	}
	return pipeline.Proceed, nil
}

// compareDate orders two Date values chronologically: negative if a <
// b, zero if equal, positive if a > b.
func compareDate(a, b message.Date) int {
	switch {
	case a.Year != b.Year:
		return a.Year - b.Year
	case a.Month != b.Month:
		return a.Month - b.Month
	case a.Day != b.Day:
		return a.Day - b.Day
	case a.Hour != b.Hour:
		return a.Hour - b.Hour
	case a.Minute != b.Minute:
		return a.Minute - b.Minute
	default:
		return a.Second - b.Second
	}
}

// MaxEventCount stops the run once it has observed Max messages,
// including the one that crosses the threshold. It counts every
// message unconditionally; MaxPageCount below counts page boundaries
// only.
type MaxEventCount struct {
	Max   int
	count int
}

// NewMaxEventCount builds a filter that stops the pipeline once max
// messages have passed through it.
func NewMaxEventCount(max int) *MaxEventCount {
	return &MaxEventCount{Max: max}
}

func (f *MaxEventCount) IsLeaf() bool { return false }

func (f *MaxEventCount) Process(msg message.Message, emit pipeline.Emit) (pipeline.Continuation, error) {
	f.count++
	if err := emit(msg); err != nil {
		return pipeline.Stop, err
	}
	if f.count >= f.Max {
		return pipeline.Stop, nil
	}
	return pipeline.Proceed, nil
}

// MaxPageCount stops the run once it has observed Max page boundaries.
// A page boundary is either a Page event or a CloseSection event,
// since format parsers disagree on which one (or neither) marks a
// page.
type MaxPageCount struct {
	Max   int
	count int
}

// NewMaxPageCount builds a filter that stops the pipeline once max
// page boundaries have been observed.
func NewMaxPageCount(max int) *MaxPageCount {
	return &MaxPageCount{Max: max}
}

func (f *MaxPageCount) IsLeaf() bool { return false }

func (f *MaxPageCount) Process(msg message.Message, emit pipeline.Emit) (pipeline.Continuation, error) {
	isBoundary := msg.Kind == message.KindPage || msg.Kind == message.KindCloseSection
	if err := emit(msg); err != nil {
		return pipeline.Stop, err
	}
	if isBoundary {
		f.count++
		if f.count >= f.Max {
			return pipeline.Stop, nil
		}
	}
	return pipeline.Proceed, nil
}
