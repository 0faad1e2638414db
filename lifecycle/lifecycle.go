// Package lifecycle keeps the set of published accessories in step with the
// hub's device roster: accessories are created, re-bound, refreshed and
// withdrawn as devices come and go.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/brutella/hc/log"

	"github.com/cloudkucooland/almond-homekit/accessory"
	"github.com/cloudkucooland/almond-homekit/binding"
	"github.com/cloudkucooland/almond-homekit/config"
	"github.com/cloudkucooland/almond-homekit/host"
	"github.com/cloudkucooland/almond-homekit/hub"
	"github.com/cloudkucooland/almond-homekit/metrics"
	"github.com/cloudkucooland/almond-homekit/registry"
)

// State is where an accessory is in its life
type State int

// accessory states
const (
	Absent   State = iota // no accessory for the device
	Restored              // cached by the host, not yet matched to a live device
	Bound                 // published and bound to a live device
	Stale                 // its device is gone; about to be withdrawn
	Removed               // withdrawn from the host
)

var stateNames = []string{"absent", "restored", "bound", "stale", "removed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type entry struct {
	acc      host.Accessory
	deviceID string
	bound    *binding.Bound
	state    State
}

// Manager owns the accessory cache. Its mutating methods are meant to run on
// one goroutine, the one running Run; Snapshot may be called from anywhere.
type Manager struct {
	rt      host.Runtime
	reg     *registry.Registry
	devices map[string]config.DeviceConfig

	mu       sync.RWMutex
	cache    map[string]*entry // by accessory UUID
	pruned   bool
	client   hub.Client
	onSynced []func()
}

// New creates a manager publishing through rt
func New(rt host.Runtime, reg *registry.Registry, devices map[string]config.DeviceConfig) *Manager {
	if devices == nil {
		devices = make(map[string]config.DeviceConfig)
	}
	return &Manager{
		rt:      rt,
		reg:     reg,
		devices: devices,
		cache:   make(map[string]*entry),
	}
}

// OnSynced registers fn to run after every completed roster sync
func (m *Manager) OnSynced(fn func()) {
	m.mu.Lock()
	m.onSynced = append(m.onSynced, fn)
	m.mu.Unlock()
}

// RestoreAll hands every accessory the host persisted to ConfigureAccessory
func (m *Manager) RestoreAll() {
	for _, acc := range m.rt.Restored() {
		m.ConfigureAccessory(acc)
	}
}

// ConfigureAccessory takes an accessory the host restored from its cache.
// It stays unbound until its device shows up, or is pruned after the first
// roster sync if it never does.
func (m *Manager) ConfigureAccessory(acc host.Accessory) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.cache[acc.UUID()]; ok {
		return
	}
	log.Info.Printf("restored accessory from cache: %s (%s)", acc.DisplayName(), acc.UUID())
	m.cache[acc.UUID()] = &entry{acc: acc, state: Restored}
	m.gauge()
}

// AddDevice publishes the accessory for a device, or re-binds the existing one.
// Skipped and unsupported devices are logged and withdrawn if they were cached.
func (m *Manager) AddDevice(dev *hub.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.add(dev)
}

func (m *Manager) add(dev *hub.Device) error {
	info := dev.Info()
	uuid := accessory.UUIDForDevice(info.ID)
	e, cached := m.cache[uuid]

	opts := m.devices[info.ID]
	if opts.Skip {
		log.Info.Printf("skipping device %s [%s] by configuration", info.Name, info.ID)
		if cached {
			return m.remove(uuid, e)
		}
		return nil
	}

	bp, err := m.reg.Resolve(info, opts.Flags())
	if err != nil {
		if errors.Is(err, registry.ErrNotSupported) {
			log.Info.Printf("no services supported by %s [%s]: %s", info.Name, info.ID, err.Error())
		} else {
			log.Info.Printf("unable to describe %s [%s]: %s", info.Name, info.ID, err.Error())
		}
		if cached {
			if rerr := m.remove(uuid, e); rerr != nil {
				log.Info.Print(rerr)
			}
		}
		return err
	}

	if cached && e.bound != nil {
		log.Info.Printf("rebinding %s [%s] as %s", info.Name, info.ID, bp.Name)
		if err := e.bound.Rebind(dev, bp); err != nil {
			return err
		}
		e.deviceID = info.ID
		e.state = Bound
		e.acc.SetInfo(hostInfo(info))
		m.gauge()
		return nil
	}

	fresh := !cached
	var acc host.Accessory
	if cached {
		acc = e.acc
		log.Info.Printf("got device %s [%s] for cached accessory, binding as %s", info.Name, info.ID, bp.Name)
	} else {
		acc = m.rt.NewAccessory(uuid, info.Name)
		log.Info.Printf("got device %s [%s], adding as %s", info.Name, info.ID, bp.Name)
	}

	b, err := binding.Bind(acc, dev, bp)
	if err != nil {
		return fmt.Errorf("%s: %w", info.ID, err)
	}
	acc.SetInfo(hostInfo(info))
	acc.OnIdentify(func() {
		log.Info.Printf("identify called for %s [%s] (%v)", info.Name, info.ID, bp.Shape())
	})

	if fresh {
		if err := m.rt.Register(acc); err != nil {
			b.Unbind()
			return fmt.Errorf("register %s: %w", info.ID, err)
		}
		e = &entry{acc: acc}
		m.cache[uuid] = e
	}
	e.deviceID = info.ID
	e.bound = b
	e.state = Bound
	m.gauge()
	return nil
}

// UpdateDevice refreshes the accessory information of a device; unknown
// devices are added. The device is resolved again only to notice that it now
// needs a different set of services, in which case it is re-bound and the
// services it no longer needs are withdrawn.
func (m *Manager) UpdateDevice(dev *hub.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	info := dev.Info()
	e, ok := m.cache[accessory.UUIDForDevice(info.ID)]
	if !ok || e.bound == nil {
		return m.add(dev)
	}

	opts := m.devices[info.ID]
	bp, err := m.reg.Resolve(info, opts.Flags())
	if err != nil || !sameShape(bp, e.bound.Blueprint()) || dev != e.bound.Device() {
		return m.add(dev)
	}
	log.Info.Printf("updating accessory information for %s [%s]", info.Name, info.ID)
	e.acc.SetInfo(hostInfo(info))
	return nil
}

// RemoveDevice withdraws the accessory of a device right away
func (m *Manager) RemoveDevice(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	uuid := accessory.UUIDForDevice(id)
	e, ok := m.cache[uuid]
	if !ok {
		return nil
	}
	return m.remove(uuid, e)
}

func (m *Manager) remove(uuid string, e *entry) error {
	log.Info.Printf("removing accessory %s (%s)", e.acc.DisplayName(), uuid)
	if e.bound != nil {
		e.bound.Unbind()
		e.bound = nil
	}
	e.state = Removed
	delete(m.cache, uuid)
	m.gauge()
	if err := m.rt.Unregister(e.acc); err != nil {
		return fmt.Errorf("unregister %s: %w", uuid, err)
	}
	return nil
}

// SyncRoster adds every device of a complete roster, then, once per hub
// session, withdraws cached accessories no device claimed.
func (m *Manager) SyncRoster(devs []*hub.Device) {
	m.mu.Lock()

	touched := make(map[string]bool, len(devs))
	for _, dev := range devs {
		touched[accessory.UUIDForDevice(dev.ID())] = true
		if err := m.add(dev); err != nil && !errors.Is(err, registry.ErrNotSupported) {
			log.Info.Printf("device %s: %s", dev.ID(), err.Error())
		}
	}

	if !m.pruned {
		m.prune(touched)
		m.pruned = true
	}
	hooks := append([]func(){}, m.onSynced...)
	m.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// prune withdraws entries no device claimed in this pass. The live roster is
// consulted once more so a device that arrived meanwhile is bound, not lost.
func (m *Manager) prune(touched map[string]bool) {
	live := make(map[string]*hub.Device)
	if m.client != nil {
		for _, dev := range m.client.Devices() {
			live[accessory.UUIDForDevice(dev.ID())] = dev
		}
	}

	uuids := make([]string, 0, len(m.cache))
	for uuid := range m.cache {
		uuids = append(uuids, uuid)
	}
	sort.Strings(uuids)

	for _, uuid := range uuids {
		e, ok := m.cache[uuid]
		if !ok || touched[uuid] {
			continue
		}
		if dev, ok := live[uuid]; ok {
			if err := m.add(dev); err != nil && !errors.Is(err, registry.ErrNotSupported) {
				log.Info.Printf("device %s: %s", dev.ID(), err.Error())
			}
			continue
		}
		e.state = Stale
		if err := m.remove(uuid, e); err != nil {
			log.Info.Print(err)
		}
	}
}

// SetReachable marks every accessory reachable or not
func (m *Manager) SetReachable(r bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.cache {
		e.acc.SetReachable(r)
	}
}

// Run processes hub events until ctx ends or the event channel closes
func (m *Manager) Run(ctx context.Context, c hub.Client) error {
	m.mu.Lock()
	m.client = c
	m.mu.Unlock()

	events := c.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			m.handle(c, ev)
		}
	}
}

func (m *Manager) handle(c hub.Client, ev hub.Event) {
	metrics.HubEvents.WithLabelValues(ev.Kind.String()).Inc()

	switch ev.Kind {
	case hub.EventDeviceAdded, hub.EventDeviceUpdated, hub.EventDeviceRemoved:
		if ev.Device == nil {
			log.Info.Printf("%s event without a device", ev.Kind)
			return
		}
	}

	var err error
	switch ev.Kind {
	case hub.EventReady:
		log.Info.Print("hub roster complete")
		m.SyncRoster(c.Devices())
	case hub.EventConnected:
		log.Info.Print("hub connected")
		m.SetReachable(true)
	case hub.EventDisconnected:
		log.Info.Print("hub disconnected")
		m.SetReachable(false)
		// the roster may change while we are away; prune after the next sync
		m.mu.Lock()
		m.pruned = false
		m.mu.Unlock()
	case hub.EventDeviceAdded:
		err = m.AddDevice(ev.Device)
	case hub.EventDeviceUpdated:
		err = m.UpdateDevice(ev.Device)
	case hub.EventDeviceRemoved:
		err = m.RemoveDevice(ev.Device.ID())
	}
	if err != nil && !errors.Is(err, registry.ErrNotSupported) {
		log.Info.Printf("%s: %s", ev.Kind, err.Error())
	}
}

// Snapshot is one cached accessory as observers see it
type Snapshot struct {
	UUID     string   `json:"uuid"`
	Name     string   `json:"name"`
	DeviceID string   `json:"deviceId,omitempty"`
	State    string   `json:"state"`
	Bindings []string `json:"bindings,omitempty"`
}

// Snapshot lists the cache, ordered by name
func (m *Manager) Snapshot() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Snapshot, 0, len(m.cache))
	for uuid, e := range m.cache {
		s := Snapshot{UUID: uuid, Name: e.acc.DisplayName(), DeviceID: e.deviceID, State: e.state.String()}
		if e.bound != nil {
			s.Bindings = e.bound.Blueprint().Shape()
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].UUID < out[j].UUID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Bound returns the binding of a device's accessory, if it is bound
func (m *Manager) Bound(id string) (*binding.Bound, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.cache[accessory.UUIDForDevice(id)]
	if !ok || e.bound == nil {
		return nil, false
	}
	return e.bound, true
}

// gauge must be called with m.mu held
func (m *Manager) gauge() {
	counts := make(map[State]int)
	for _, e := range m.cache {
		counts[e.state]++
	}
	for _, s := range []State{Restored, Bound, Stale} {
		metrics.Accessories.WithLabelValues(s.String()).Set(float64(counts[s]))
	}
}

func hostInfo(info hub.Info) host.Info {
	return host.Info{
		Name:         info.Name,
		Manufacturer: info.Manufacturer,
		Model:        info.Model,
		SerialNumber: fmt.Sprintf("%s [%s]", info.Name, info.ID),
	}
}

func sameShape(a, b registry.Blueprint) bool {
	as, bs := a.Shape(), b.Shape()
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
