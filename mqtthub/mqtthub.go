// Package mqtthub is a hub client for a gateway that mirrors the Almond's
// devices onto an MQTT broker.
package mqtthub

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/brutella/hc/log"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/cloudkucooland/almond-homekit/config"
	"github.com/cloudkucooland/almond-homekit/hub"
	"github.com/cloudkucooland/almond-homekit/platform"
)

const (
	statusOnline  = "online"
	statusOffline = "offline"
	writeQoS      = 1
	eventBuffer   = 256
)

// publisher is the part of mqtt.Client writes need
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Hub keeps the roster the gateway publishes and turns it into hub events.
//
// Device events are only sent after the session's EventReady; before that
// the roster is still being collected and Devices() is what counts.
type Hub struct {
	topics Topics
	pub    publisher

	mu      sync.Mutex
	devices map[string]*hub.Device
	pending map[string]map[string]hub.Value // values that arrived before their device's meta
	roster  map[string]bool
	online  bool
	ready   bool
	closed  bool
	events  chan hub.Event
	done    chan struct{}
}

// New returns a hub for the given topic prefix; pub sends the writes
func New(prefix string, pub publisher) *Hub {
	return &Hub{
		topics:  Topics{Prefix: strings.TrimSuffix(prefix, "/")},
		pub:     pub,
		devices: make(map[string]*hub.Device),
		pending: make(map[string]map[string]hub.Value),
		events:  make(chan hub.Event, eventBuffer),
		done:    make(chan struct{}),
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

// Topics returns the topic layout in use
func (h *Hub) Topics() Topics {
	return h.topics
}

// Message is the paho message handler
func (h *Hub) Message(_ mqtt.Client, msg mqtt.Message) {
	h.handle(msg.Topic(), msg.Payload())
}

// ConnectionLost is treated like the gateway going offline. The roster is
// dropped too; retained topics come back on the next subscribe.
func (h *Hub) ConnectionLost(_ mqtt.Client, err error) {
	log.Info.Printf("mqtt connection lost: %s", err.Error())
	h.mu.Lock()
	h.roster = nil
	h.mu.Unlock()
	h.status(statusOffline)
}

func (h *Hub) handle(topic string, payload []byte) {
	kind, id, prop := h.topics.parse(topic)
	switch kind {
	case topicStatus:
		h.status(strings.TrimSpace(string(payload)))
	case topicRoster:
		if err := h.rosterList(payload); err != nil {
			log.Info.Printf("mqtthub: %s", err.Error())
		}
	case topicMeta:
		if err := h.meta(id, payload); err != nil {
			log.Info.Printf("mqtthub: %s", err.Error())
		}
	case topicProp:
		h.prop(id, prop, hub.Value(strings.TrimSpace(string(payload))))
	}
}

func (h *Hub) status(s string) {
	h.mu.Lock()
	var ev hub.Event
	switch s {
	case statusOnline:
		if h.online {
			h.mu.Unlock()
			return
		}
		h.online = true
		ev = hub.Event{Kind: hub.EventConnected}
	case statusOffline:
		if !h.online {
			h.mu.Unlock()
			return
		}
		// the roster survives a gateway restart; the broker keeps it retained
		h.online = false
		h.ready = false
		ev = hub.Event{Kind: hub.EventDisconnected}
	default:
		h.mu.Unlock()
		log.Info.Printf("mqtthub: unknown status %q", s)
		return
	}
	events := []hub.Event{ev}
	events = append(events, h.checkReadyLocked()...)
	h.mu.Unlock()

	h.emit(events...)
}

func (h *Hub) rosterList(payload []byte) error {
	var ids []string
	if err := json.Unmarshal(payload, &ids); err != nil {
		return fmt.Errorf("roster: %w", err)
	}

	h.mu.Lock()
	h.roster = make(map[string]bool, len(ids))
	for _, id := range ids {
		h.roster[id] = true
	}
	var events []hub.Event
	for id, d := range h.devices {
		if !h.roster[id] {
			delete(h.devices, id)
			if h.ready {
				events = append(events, hub.Event{Kind: hub.EventDeviceRemoved, Device: d})
			}
		}
	}
	events = append(events, h.checkReadyLocked()...)
	h.mu.Unlock()

	h.emit(events...)
	return nil
}

func (h *Hub) meta(id string, payload []byte) error {
	if len(strings.TrimSpace(string(payload))) == 0 {
		h.mu.Lock()
		d, ok := h.devices[id]
		delete(h.devices, id)
		delete(h.pending, id)
		ready := h.ready
		h.mu.Unlock()
		if ok && ready {
			h.emit(hub.Event{Kind: hub.EventDeviceRemoved, Device: d})
		}
		return nil
	}

	var info hub.Info
	if err := json.Unmarshal(payload, &info); err != nil {
		return fmt.Errorf("device %s meta: %w", id, err)
	}
	info.ID = id

	h.mu.Lock()
	var events []hub.Event
	if d, ok := h.devices[id]; ok {
		d.SetInfo(info)
		if h.ready {
			events = append(events, hub.Event{Kind: hub.EventDeviceUpdated, Device: d})
		}
	} else {
		d := hub.NewDevice(info, h.write)
		loaded := make(map[int]hub.Value)
		for name, v := range h.pending[id] {
			if pid, ok := info.Props[name]; ok {
				loaded[pid] = v
			}
		}
		d.Load(loaded)
		delete(h.pending, id)
		h.devices[id] = d
		if h.ready {
			events = append(events, hub.Event{Kind: hub.EventDeviceAdded, Device: d})
		}
	}
	events = append(events, h.checkReadyLocked()...)
	h.mu.Unlock()

	h.emit(events...)
	return nil
}

func (h *Hub) prop(id, name string, v hub.Value) {
	h.mu.Lock()
	d, ok := h.devices[id]
	if !ok {
		if h.pending[id] == nil {
			h.pending[id] = make(map[string]hub.Value)
		}
		h.pending[id][name] = v
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	pid, ok := d.Prop(name)
	if !ok {
		log.Debug.Printf("mqtthub: device %s has no property %s", id, name)
		return
	}
	d.Apply(pid, v)
}

// checkReadyLocked returns EventReady once the gateway is online and every
// device on the roster has reported its meta
func (h *Hub) checkReadyLocked() []hub.Event {
	if h.ready || !h.online || h.roster == nil {
		return nil
	}
	for id := range h.roster {
		if _, ok := h.devices[id]; !ok {
			return nil
		}
	}
	h.ready = true
	return []hub.Event{{Kind: hub.EventReady}}
}

// write publishes to the property's set topic. It does not wait for the
// broker; only errors the client reports right away are returned.
func (h *Hub) write(d *hub.Device, prop int, v hub.Value) error {
	h.mu.Lock()
	online := h.online
	h.mu.Unlock()
	if !online || h.pub == nil {
		return hub.ErrDisconnected
	}

	name := ""
	for n, pid := range d.Info().Props {
		if pid == prop {
			name = n
			break
		}
	}
	if name == "" {
		return fmt.Errorf("device %s property %d: %w", d.ID(), prop, hub.ErrUnknownProperty)
	}

	log.Debug.Printf("mqtthub: %s %s = %s", d.ID(), name, v)
	t := h.pub.Publish(h.topics.Set(d.ID(), name), writeQoS, false, string(v))
	select {
	case <-t.Done():
		return t.Error()
	default:
		return nil
	}
}

func (h *Hub) emit(events ...hub.Event) {
	for _, ev := range events {
		select {
		case h.events <- ev:
		case <-h.done:
			return
		}
	}
}

// Close stops event delivery. The channel itself stays open since paho
// callbacks may still be running; consumers stop on their context.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.done)
}

// Platform is the platform handle
type Platform struct {
	Running bool
}

var (
	doOnce  sync.Once
	running *Hub
	client  mqtt.Client
	timeout time.Duration
)

// Startup is called by the platform bootstrap
func (p Platform) Startup(c *config.Config) platform.Control {
	doOnce.Do(func() {
		// paho logs through logrus, like the other chatty libraries
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		paho := l.WithField("lib", "paho")
		mqtt.ERROR = paho
		mqtt.CRITICAL = paho
		mqtt.WARN = paho

		timeout = time.Duration(c.Hub.ConnectTimeout) * time.Second
		running = New(c.Hub.TopicPrefix, nil)

		opts := mqtt.NewClientOptions()
		opts.AddBroker(c.Hub.Broker)
		opts.SetClientID(c.Hub.ClientID)
		if c.Hub.Username != "" {
			opts.SetUsername(c.Hub.Username)
			opts.SetPassword(c.Hub.Password)
		}
		opts.SetAutoReconnect(true)
		opts.SetConnectRetry(true)
		opts.SetConnectTimeout(timeout)
		opts.SetConnectionLostHandler(running.ConnectionLost)
		opts.SetOnConnectHandler(func(mc mqtt.Client) {
			// retained topics are delivered again on every subscribe
			topic := running.topics.Subscription()
			if t := mc.Subscribe(topic, writeQoS, running.Message); t.Wait() && t.Error() != nil {
				log.Info.Printf("mqtt subscribe %s: %s", topic, t.Error().Error())
				return
			}
			log.Info.Printf("mqtt subscribed to %s", topic)
		})

		client = mqtt.NewClient(opts)
		running.pub = client
	})
	p.Running = running != nil
	return p
}

// Background connects to the broker; paho keeps retrying after that
func (p Platform) Background() {
	if client == nil {
		return
	}
	t := client.Connect()
	if !t.WaitTimeout(timeout) {
		log.Info.Printf("mqtt broker not reachable yet, still trying")
		return
	}
	if err := t.Error(); err != nil {
		log.Info.Printf("mqtt connect: %s", err.Error())
	}
}

// Shutdown is called at process teardown
func (p Platform) Shutdown() platform.Control {
	if client != nil && client.IsConnected() {
		client.Disconnect(250)
	}
	if running != nil {
		running.Close()
	}
	p.Running = false
	return p
}

// Client implements platform.Hub
func (p Platform) Client() hub.Client {
	if running == nil {
		return nil
	}
	return running
}
