// Package memhub is a hub that lives in memory. It backs the Static
// platform, which serves a fixed roster from a file, and the tests.
package memhub

import (
	"fmt"
	"sort"
	"sync"

	"github.com/brutella/hc/log"

	"github.com/cloudkucooland/almond-homekit/hub"
)

// Write is one property write a controller sent to the hub
type Write struct {
	DeviceID string
	Property int
	Value    hub.Value
}

// Hub is an in-memory hub.Client. Writes are confirmed right away, like a
// hub whose devices always do what they are told.
type Hub struct {
	mu        sync.Mutex
	devices   map[string]*hub.Device
	events    chan hub.Event
	writes    []Write
	connected bool
	closed    bool
	NoEcho    bool // when set, writes are recorded but never confirmed
}

// New returns an empty, disconnected hub. buffer is the event channel size.
func New(buffer int) *Hub {
	return &Hub{
		devices: make(map[string]*hub.Device),
		events:  make(chan hub.Event, buffer),
	}
}

// Devices implements hub.Client; the roster is ordered by device id
func (h *Hub) Devices() []*hub.Device {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*hub.Device, 0, len(h.devices))
	for _, d := range h.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Events implements hub.Client
func (h *Hub) Events() <-chan hub.Event {
	return h.events
}

// Device looks up a device by id
func (h *Hub) Device(id string) (*hub.Device, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	d, ok := h.devices[id]
	return d, ok
}

// Put adds or replaces a device without announcing it; values are keyed by
// property name. Use it to build the roster before Ready.
func (h *Hub) Put(info hub.Info, values map[string]hub.Value) *hub.Device {
	d := hub.NewDevice(info, h.write)
	loaded := make(map[int]hub.Value, len(values))
	for name, v := range values {
		if id, ok := info.Props[name]; ok {
			loaded[id] = v
		}
	}
	d.Load(loaded)

	h.mu.Lock()
	h.devices[info.ID] = d
	h.mu.Unlock()
	return d
}

// Add puts a device and announces it
func (h *Hub) Add(info hub.Info, values map[string]hub.Value) *hub.Device {
	d := h.Put(info, values)
	h.emit(hub.Event{Kind: hub.EventDeviceAdded, Device: d})
	return d
}

// Update replaces the metadata of a device and announces it
func (h *Hub) Update(info hub.Info) error {
	d, ok := h.Device(info.ID)
	if !ok {
		return fmt.Errorf("device %s: not found", info.ID)
	}
	d.SetInfo(info)
	h.emit(hub.Event{Kind: hub.EventDeviceUpdated, Device: d})
	return nil
}

// Remove drops a device and announces it
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	d, ok := h.devices[id]
	delete(h.devices, id)
	h.mu.Unlock()
	if ok {
		h.emit(hub.Event{Kind: hub.EventDeviceRemoved, Device: d})
	}
}

// Report is the hub telling us a property changed
func (h *Hub) Report(id, prop string, v hub.Value) error {
	d, ok := h.Device(id)
	if !ok {
		return fmt.Errorf("device %s: not found", id)
	}
	pid, ok := d.Prop(prop)
	if !ok {
		return fmt.Errorf("device %s property %s: %w", id, prop, hub.ErrUnknownProperty)
	}
	d.Apply(pid, v)
	return nil
}

// Connect marks the hub reachable
func (h *Hub) Connect() {
	h.mu.Lock()
	h.connected = true
	h.mu.Unlock()
	h.emit(hub.Event{Kind: hub.EventConnected})
}

// Disconnect marks the hub unreachable; writes fail until Connect
func (h *Hub) Disconnect() {
	h.mu.Lock()
	h.connected = false
	h.mu.Unlock()
	h.emit(hub.Event{Kind: hub.EventDisconnected})
}

// Ready announces that the roster is complete
func (h *Hub) Ready() {
	h.emit(hub.Event{Kind: hub.EventReady})
}

// Writes returns every write received so far
func (h *Hub) Writes() []Write {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Write{}, h.writes...)
}

// Close ends the event stream
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.events)
	}
}

func (h *Hub) emit(ev hub.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	select {
	case h.events <- ev:
	default:
		log.Info.Printf("memhub: event queue full, dropping %s", ev.Kind)
	}
}

func (h *Hub) write(d *hub.Device, prop int, v hub.Value) error {
	h.mu.Lock()
	if !h.connected {
		h.mu.Unlock()
		return hub.ErrDisconnected
	}
	h.writes = append(h.writes, Write{DeviceID: d.ID(), Property: prop, Value: v})
	echo := !h.NoEcho
	h.mu.Unlock()

	log.Debug.Printf("memhub: %s property %d = %s", d.ID(), prop, v)
	if echo {
		d.Apply(prop, v)
	}
	return nil
}
