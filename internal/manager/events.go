package manager

// Event names published by the manager.
const (
	EventSwitchStart       = "switch_start"
	EventStopError         = "stop_error"
	EventStartError        = "start_error"
	EventReadyTimeout      = "ready_timeout"
	EventSwitchReady       = "switch_ready"
	EventSwitchAborted     = "switch_aborted"
	EventProfileDiscovered = "profile_discovered"
	EventProbeError        = "probe_error"
)

// Event represents a manager lifecycle event.
// Minimal and stable: name + profile ID and optional fields via key/values.
type Event struct {
	Name      string
	ProfileID string
	Fields    map[string]any
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
