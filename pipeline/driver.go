package pipeline

import (
	"github.com/docwire/docwire-go/message"
)

// containerFrameOpeners are the four Kinds that act as container
// frames: the resynchronisation points a skip unwinds to.
var containerFrameOpeners = map[message.Kind]bool{
	message.KindDocument:   true,
	message.KindMail:       true,
	message.KindFolder:     true,
	message.KindAttachment: true,
}

var containerFrameClosers = map[message.Kind]message.Kind{
	message.KindCloseDocument:   message.KindDocument,
	message.KindCloseMail:       message.KindMail,
	message.KindCloseFolder:     message.KindFolder,
	message.KindCloseAttachment: message.KindAttachment,
}

// Driver executes a chain's stages depth-first: a stage's emit call
// recurses directly into the next stage before control returns to the
// emitting stage, so one input message is driven to completion (or to
// the point every live stage has said proceed) before the next queued
// message is considered.
type Driver struct {
	stages []Stage
	Events Events

	stopped bool
	// skipDepth[i], when present, means stage i is currently skipping:
	// it stops receiving messages until depth[i] falls back below the
	// recorded value.
	skipDepth map[int]int
	depth     map[int]int
}

// NewDriver builds a driver over stages, in order.
func NewDriver(stages []Stage) *Driver {
	return &Driver{
		stages:    stages,
		skipDepth: make(map[int]int),
		depth:     make(map[int]int),
	}
}

// Run delivers initial to stage 0 and drives it to completion.
func (d *Driver) Run(initial message.Message) error {
	_, err := d.deliver(0, initial)
	return err
}

// Fatal marks err as fatal: the driver aborts the whole run and
// surfaces err to the caller, instead of converting it into an
// exception_carrier message.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

type fatalError struct{ err error }

func (f *fatalError) Error() string { return f.err.Error() }
func (f *fatalError) Unwrap() error { return f.err }

// deliver hands msg to stages[i], recursing into i+1 for anything it
// emits. It returns the continuation observed at this connection and
// any fatal error.
func (d *Driver) deliver(i int, msg message.Message) (Continuation, error) {
	if d.stopped {
		return Stop, nil
	}
	if i >= len(d.stages) {
		return Proceed, nil
	}

	if sd, skipping := d.skipDepth[i]; skipping {
		d.trackDepth(i, msg)
		if d.depth[i] < sd {
			delete(d.skipDepth, i)
		}
		return Proceed, nil
	}
	d.trackDepth(i, msg)

	stage := d.stages[i]
	var pending error
	cont, err := stage.Process(msg, func(m message.Message) error {
		c, e := d.deliver(i+1, m)
		if e != nil {
			pending = e
			return e
		}
		if c == Stop {
			d.stopped = true
		}
		return nil
	})
	if pending != nil {
		return Stop, pending
	}
	if err != nil {
		if fe, ok := err.(*fatalError); ok {
			d.stopped = true
			return Stop, fe.err
		}
		d.Events.publish(EventStageError, i, err)
		excCont, excErr := d.deliver(i+1, message.Exception(err))
		if excErr != nil {
			return Stop, excErr
		}
		if excCont == Stop {
			d.stopped = true
			return Stop, nil
		}
		return Proceed, nil
	}

	switch cont {
	case Stop:
		d.stopped = true
		d.Events.publish(EventRunStopped)
		return Stop, nil
	case Skip:
		d.skipDepth[i] = d.depth[i]
		d.Events.publish(EventStageSkipped, i, msg.Kind)
		return Proceed, nil
	default:
		return Proceed, nil
	}
}

// trackDepth updates the connection-local container-frame nesting depth
// so skip/resume can recognise the matching close regardless of what
// the stage itself does with the message.
func (d *Driver) trackDepth(i int, msg message.Message) {
	if containerFrameOpeners[msg.Kind] {
		d.depth[i]++
		return
	}
	if _, ok := containerFrameClosers[msg.Kind]; ok {
		d.depth[i]--
	}
}
