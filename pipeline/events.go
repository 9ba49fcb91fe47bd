package pipeline

import evbus "github.com/asaskevich/EventBus"

// LifecycleEvent names a driver lifecycle notification.
type LifecycleEvent int

const (
	// EventStageSkipped fires with the stage index and the Kind of the
	// message on which the stage returned Skip.
	EventStageSkipped LifecycleEvent = iota
	// EventRunStopped fires once, when a stage returns Stop.
	EventRunStopped
	// EventStageError fires with the stage index and the error every
	// time a non-fatal error is converted into an exception_carrier.
	EventStageError
)

var lifecycleNames = [...]string{
	"pipeline:stage_skipped",
	"pipeline:run_stopped",
	"pipeline:stage_error",
}

func (e LifecycleEvent) String() string { return lifecycleNames[e] }

// Events is the lifecycle notification bus for a driver run. The zero
// value is usable; the bus is created lazily on first Subscribe.
type Events struct {
	bus evbus.Bus
}

func (h *Events) Subscribe(topic LifecycleEvent, fn interface{}) error {
	if h.bus == nil {
		h.bus = evbus.New()
	}
	return h.bus.Subscribe(topic.String(), fn)
}

func (h *Events) publish(topic LifecycleEvent, args ...interface{}) {
	if h.bus == nil {
		return
	}
	h.bus.Publish(topic.String(), args...)
}
