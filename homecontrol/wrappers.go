package homecontrol

import (
	"fmt"
	"net"
	"sync"

	"github.com/brutella/hc/accessory"
	"github.com/brutella/hc/characteristic"
	"github.com/brutella/hc/log"
	"github.com/brutella/hc/service"

	"github.com/cloudkucooland/almond-homekit/devices"
	"github.com/cloudkucooland/almond-homekit/host"
)

// Characteristic adapts an hc characteristic to host.Characteristic
type Characteristic struct {
	c    *characteristic.Characteristic
	kind host.CharacteristicKind

	mu  sync.Mutex
	get host.GetFunc
	set host.SetFunc
}

func wrapCharacteristic(kind host.CharacteristicKind, c *characteristic.Characteristic) *Characteristic {
	w := &Characteristic{c: c, kind: kind}
	c.OnValueGet(w.remoteGet)
	c.OnValueUpdateFromConn(w.remoteUpdate)
	return w
}

// Kind implements host.Characteristic
func (w *Characteristic) Kind() host.CharacteristicKind { return w.kind }

// OnGet implements host.Characteristic
func (w *Characteristic) OnGet(fn host.GetFunc) {
	w.mu.Lock()
	w.get = fn
	w.mu.Unlock()
}

// OnSet implements host.Characteristic
func (w *Characteristic) OnSet(fn host.SetFunc) {
	w.mu.Lock()
	w.set = fn
	w.mu.Unlock()
}

// UpdateValue implements host.Characteristic
func (w *Characteristic) UpdateValue(v interface{}) {
	w.c.UpdateValue(v)
}

// Value implements host.Characteristic; it never calls the read handler
func (w *Characteristic) Value() interface{} {
	return w.c.Value
}

func (w *Characteristic) remoteGet() interface{} {
	w.mu.Lock()
	fn := w.get
	w.mu.Unlock()
	if fn == nil {
		return w.c.Value
	}
	v, err := fn()
	if err != nil {
		log.Info.Printf("%s: %s", w.kind, err.Error())
		return w.c.Value
	}
	return v
}

// remoteUpdate only acts on writes from a controller; local updates come
// through with a nil connection
func (w *Characteristic) remoteUpdate(conn net.Conn, c *characteristic.Characteristic, newValue, oldValue interface{}) {
	if conn == nil {
		return
	}
	w.mu.Lock()
	fn := w.set
	w.mu.Unlock()
	if fn == nil {
		return
	}
	if err := fn(newValue); err != nil {
		log.Info.Printf("write from %s failed: %s", conn.RemoteAddr(), err.Error())
		// put the old value back so controllers do not show a change that never happened
		c.UpdateValue(oldValue)
	}
}

// Service adapts an hc service to host.Service
type Service struct {
	svc     *service.Service
	kind    host.ServiceKind
	subtype string
	changed func()

	mu    sync.Mutex
	chars map[host.CharacteristicKind]*Characteristic
}

// Kind implements host.Service
func (s *Service) Kind() host.ServiceKind { return s.kind }

// Subtype implements host.Service
func (s *Service) Subtype() string { return s.subtype }

// Characteristic implements host.Service
func (s *Service) Characteristic(kind host.CharacteristicKind) (host.Characteristic, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chars[kind]
	if !ok {
		return nil, false
	}
	return c, true
}

// AddCharacteristic implements host.Service
func (s *Service) AddCharacteristic(kind host.CharacteristicKind) (host.Characteristic, error) {
	s.mu.Lock()
	if _, ok := s.chars[kind]; ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("duplicate characteristic %s", kind)
	}
	c, err := devices.NewCharacteristic(kind)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.svc.AddCharacteristic(c)
	w := wrapCharacteristic(kind, c)
	s.chars[kind] = w
	s.mu.Unlock()

	s.changed()
	return w, nil
}

// Accessory adapts an hc accessory to host.Accessory
type Accessory struct {
	*accessory.Accessory
	uuid    string
	changed func()

	mu        sync.Mutex
	name      string
	services  []*Service
	reachable bool
}

func newAccessory(uuid, name string, aid uint64, changed func()) *Accessory {
	return &Accessory{
		Accessory: accessory.New(accessory.Info{Name: name, ID: aid}, accessory.TypeOther),
		uuid:      uuid,
		name:      name,
		changed:   changed,
		reachable: true,
	}
}

// UUID implements host.Accessory
func (a *Accessory) UUID() string { return a.uuid }

// DisplayName implements host.Accessory
func (a *Accessory) DisplayName() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.name
}

// Service implements host.Accessory
func (a *Accessory) Service(kind host.ServiceKind, subtype string) (host.Service, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range a.services {
		if s.kind == kind && s.subtype == subtype {
			return s, true
		}
	}
	return nil, false
}

// AddService implements host.Accessory
func (a *Accessory) AddService(kind host.ServiceKind, subtype, name string) (host.Service, error) {
	if _, ok := a.Service(kind, subtype); ok {
		return nil, fmt.Errorf("duplicate service %s", host.ServiceKey(kind, subtype))
	}
	svc, err := devices.NewService(kind, name)
	if err != nil {
		return nil, err
	}
	s := &Service{
		svc:     svc,
		kind:    kind,
		subtype: subtype,
		changed: a.changed,
		chars:   make(map[host.CharacteristicKind]*Characteristic),
	}
	for _, c := range svc.GetCharacteristics() {
		if c.Type == characteristic.TypeName {
			s.chars[host.Name] = wrapCharacteristic(host.Name, c)
		}
	}

	a.mu.Lock()
	a.Accessory.AddService(svc)
	a.services = append(a.services, s)
	a.mu.Unlock()

	a.changed()
	return s, nil
}

// RemoveService implements host.Accessory
func (a *Accessory) RemoveService(kind host.ServiceKind, subtype string) bool {
	a.mu.Lock()
	idx := -1
	for i, s := range a.services {
		if s.kind == kind && s.subtype == subtype {
			idx = i
			break
		}
	}
	if idx < 0 {
		a.mu.Unlock()
		return false
	}
	gone := a.services[idx]
	a.services = append(a.services[:idx], a.services[idx+1:]...)
	svcs := make([]*service.Service, 0, len(a.Accessory.Services))
	for _, s := range a.Accessory.Services {
		if s != gone.svc {
			svcs = append(svcs, s)
		}
	}
	a.Accessory.Services = svcs
	a.mu.Unlock()

	a.changed()
	return true
}

// SetInfo implements host.Accessory
func (a *Accessory) SetInfo(i host.Info) {
	info := a.Accessory.Info
	if i.Name != "" {
		info.Name.UpdateValue(i.Name)
		a.mu.Lock()
		a.name = i.Name
		a.mu.Unlock()
	}
	info.Manufacturer.UpdateValue(i.Manufacturer)
	info.Model.UpdateValue(i.Model)
	info.SerialNumber.UpdateValue(i.SerialNumber)
}

// SetReachable implements host.Accessory. hc has no per-accessory
// reachability, so this is only recorded and logged.
func (a *Accessory) SetReachable(r bool) {
	a.mu.Lock()
	changed := a.reachable != r
	a.reachable = r
	name := a.name
	a.mu.Unlock()
	if changed {
		log.Debug.Printf("%s reachable: %t", name, r)
	}
}

// Reachable reports the last reachability set
func (a *Accessory) Reachable() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reachable
}

// OnIdentify implements host.Accessory
func (a *Accessory) OnIdentify(fn func()) {
	a.Accessory.OnIdentify(fn)
}
