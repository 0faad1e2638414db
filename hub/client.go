package hub

// EventKind is the kind of roster/connection event a hub client emits
type EventKind int

// the events the lifecycle manager consumes
const (
	EventReady EventKind = iota
	EventConnected
	EventDisconnected
	EventDeviceAdded
	EventDeviceRemoved
	EventDeviceUpdated
)

func (k EventKind) String() string {
	switch k {
	case EventReady:
		return "ready"
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventDeviceAdded:
		return "deviceAdded"
	case EventDeviceRemoved:
		return "deviceRemoved"
	case EventDeviceUpdated:
		return "deviceUpdated"
	}
	return "unknown"
}

// Event is delivered on Client.Events. Device is nil for connection events.
type Event struct {
	Kind   EventKind
	Device *Device
}

// Client is what the bridge needs from a hub connection.
//
// EventReady is the roster-complete signal: it is sent once per connection
// session after every device of the roster is known, and Devices() called
// after it returns the full roster.
type Client interface {
	Devices() []*Device
	Events() <-chan Event
}
