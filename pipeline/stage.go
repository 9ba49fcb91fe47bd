// Package pipeline implements the chain-element contract, the
// composition algebra by which stages are chained, and the cooperative
// single-threaded driver that executes a chain with skip/stop/error
// propagation.
package pipeline

import "github.com/docwire/docwire-go/message"

// Emit is the sink callback a Stage may invoke zero or more times while
// processing one message.
type Emit func(message.Message) error

// Continuation is a stage's response to the driver.
type Continuation int

const (
	// Proceed signals normal flow: the driver delivers subsequent
	// inputs as usual.
	Proceed Continuation = iota
	// Skip abandons the current logical sub-tree; the driver stops
	// delivering to this stage until the enclosing container frame is
	// popped.
	Skip
	// Stop terminates the whole pipeline; no further messages flow.
	Stop
)

func (c Continuation) String() string {
	switch c {
	case Proceed:
		return "proceed"
	case Skip:
		return "skip"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

// Stage is one unit of pipeline processing.
type Stage interface {
	// Process consumes one message, optionally invoking emit with zero
	// or more new messages, and tells the driver how to continue.
	Process(msg message.Message, emit Emit) (Continuation, error)
	// IsLeaf reports whether this stage is terminal (cannot be
	// composed further). Appending a leaf to a Chain does not trigger
	// execution; the chain runs only when Chain.Run is called.
	IsLeaf() bool
}

// StageFunc adapts a plain function to the Stage interface for
// non-leaf stages.
type StageFunc func(msg message.Message, emit Emit) (Continuation, error)

func (f StageFunc) Process(msg message.Message, emit Emit) (Continuation, error) {
	return f(msg, emit)
}
func (f StageFunc) IsLeaf() bool { return false }

// LeafFunc adapts a plain function to the Stage interface for leaf
// stages (output adapters, writers once they've emitted their terminal
// data_source).
type LeafFunc func(msg message.Message, emit Emit) (Continuation, error)

func (f LeafFunc) Process(msg message.Message, emit Emit) (Continuation, error) {
	return f(msg, emit)
}
func (f LeafFunc) IsLeaf() bool { return true }

// Decorator wraps a Stage with additional behaviour.
type Decorator func(Stage) Stage

// Decorate applies a sequence of decorators to a Stage, outermost last.
func Decorate(s Stage, ds ...Decorator) Stage {
	decorated := s
	for _, d := range ds {
		decorated = d(decorated)
	}
	return decorated
}
