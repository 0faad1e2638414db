package hub

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrUnknownProperty is returned when writing a property the device does not have
	ErrUnknownProperty = errors.New("unknown property")
	// ErrDisconnected is returned when a write is attempted while the hub is unreachable
	ErrDisconnected = errors.New("hub disconnected")
)

// Info is the device metadata reported by the hub
type Info struct {
	ID           string         `json:"id" yaml:"id"`
	Type         DeviceType     `json:"type" yaml:"type"`
	Manufacturer string         `json:"manufacturer" yaml:"manufacturer"`
	Model        string         `json:"model" yaml:"model"`
	Name         string         `json:"name" yaml:"name"`
	Props        map[string]int `json:"props" yaml:"props"` // symbolic property name -> hub property id, nil when unsupported
}

// Writer sends a property write to the hub. It must not wait for the
// hardware to confirm the change; confirmation arrives as a change event.
type Writer func(d *Device, prop int, v Value) error

// Listener is called with the new value after a property changed
type Listener func(v Value)

// Device is a hub device: metadata, last-known property values and
// per-property change listeners. The hub client owns it.
type Device struct {
	mu        sync.RWMutex
	info      Info
	values    map[int]Value
	listeners map[int]map[uint64]Listener
	nextID    uint64
	writer    Writer
}

// NewDevice creates a device. w may be nil for read-only devices.
func NewDevice(info Info, w Writer) *Device {
	return &Device{
		info:      copyInfo(info),
		values:    make(map[int]Value),
		listeners: make(map[int]map[uint64]Listener),
		writer:    w,
	}
}

func copyInfo(info Info) Info {
	if info.Props != nil {
		props := make(map[string]int, len(info.Props))
		for k, v := range info.Props {
			props[k] = v
		}
		info.Props = props
	}
	return info
}

// Info returns a copy of the device metadata
func (d *Device) Info() Info {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return copyInfo(d.info)
}

// SetInfo replaces the metadata; property values and listeners are kept
func (d *Device) SetInfo(info Info) {
	d.mu.Lock()
	d.info = copyInfo(info)
	d.mu.Unlock()
}

// ID is the hub's stable identity for the device
func (d *Device) ID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.info.ID
}

// Name is the display name
func (d *Device) Name() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.info.Name
}

// HasProps is false when the hub did not report any property map
func (d *Device) HasProps() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.info.Props != nil
}

// Prop resolves a symbolic property name to its hub id
func (d *Device) Prop(name string) (int, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.info.Props[name]
	return id, ok
}

// GetProp returns the last-known value of a property. It never blocks on the hub.
func (d *Device) GetProp(id int) Value {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.values[id]
}

// SetProp asks the hub to change a property. The stored value is not
// touched; it changes when the hub reports back through Apply.
func (d *Device) SetProp(id int, v Value) error {
	d.mu.RLock()
	w := d.writer
	known := false
	for _, pid := range d.info.Props {
		if pid == id {
			known = true
			break
		}
	}
	d.mu.RUnlock()

	if !known {
		return fmt.Errorf("device %s property %d: %w", d.ID(), id, ErrUnknownProperty)
	}
	if w == nil {
		return fmt.Errorf("device %s is read-only", d.ID())
	}
	return w(d, id, v)
}

// OnProp registers a listener for changes of one property. The returned
// func removes it again.
func (d *Device) OnProp(id int, fn Listener) (cancel func()) {
	d.mu.Lock()
	d.nextID++
	lid := d.nextID
	if d.listeners[id] == nil {
		d.listeners[id] = make(map[uint64]Listener)
	}
	d.listeners[id][lid] = fn
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.listeners[id], lid)
			if len(d.listeners[id]) == 0 {
				delete(d.listeners, id)
			}
			d.mu.Unlock()
		})
	}
}

// ListenerCount reports how many listeners are attached, across all properties
func (d *Device) ListenerCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, l := range d.listeners {
		n += len(l)
	}
	return n
}

// Apply is called by the hub client when the hub reports a property value.
// The value is stored before listeners run, so listeners reading other
// properties see a consistent device.
func (d *Device) Apply(id int, v Value) {
	d.mu.Lock()
	d.values[id] = v
	ls := make([]Listener, 0, len(d.listeners[id]))
	for _, l := range d.listeners[id] {
		ls = append(ls, l)
	}
	d.mu.Unlock()

	for _, l := range ls {
		l(v)
	}
}

// Load stores values without notifying anyone; used when a roster is first read
func (d *Device) Load(values map[int]Value) {
	d.mu.Lock()
	for k, v := range values {
		d.values[k] = v
	}
	d.mu.Unlock()
}
