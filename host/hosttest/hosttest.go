// Package hosttest is an in-memory host.Runtime for tests. It records every
// handler and notification so tests can play the part of a HomeKit controller.
package hosttest

import (
	"fmt"
	"sync"

	"github.com/cloudkucooland/almond-homekit/host"
)

// Characteristic is an in-memory characteristic
type Characteristic struct {
	mu      sync.Mutex
	kind    host.CharacteristicKind
	value   interface{}
	get     host.GetFunc
	set     host.SetFunc
	updates []interface{}
}

// Kind implements host.Characteristic
func (c *Characteristic) Kind() host.CharacteristicKind { return c.kind }

// OnGet implements host.Characteristic
func (c *Characteristic) OnGet(fn host.GetFunc) {
	c.mu.Lock()
	c.get = fn
	c.mu.Unlock()
}

// OnSet implements host.Characteristic
func (c *Characteristic) OnSet(fn host.SetFunc) {
	c.mu.Lock()
	c.set = fn
	c.mu.Unlock()
}

// UpdateValue implements host.Characteristic and records the notify
func (c *Characteristic) UpdateValue(v interface{}) {
	c.mu.Lock()
	c.value = v
	c.updates = append(c.updates, v)
	c.mu.Unlock()
}

// Value implements host.Characteristic
func (c *Characteristic) Value() interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Read plays a controller read
func (c *Characteristic) Read() (interface{}, error) {
	c.mu.Lock()
	fn := c.get
	v := c.value
	c.mu.Unlock()
	if fn == nil {
		return v, nil
	}
	return fn()
}

// Write plays a controller write; like a real host the value is stored first
func (c *Characteristic) Write(v interface{}) error {
	c.mu.Lock()
	c.value = v
	fn := c.set
	c.mu.Unlock()
	if fn == nil {
		return fmt.Errorf("%s is read-only", c.kind)
	}
	return fn(v)
}

// Updates returns every value pushed with UpdateValue
func (c *Characteristic) Updates() []interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]interface{}, len(c.updates))
	copy(out, c.updates)
	return out
}

// LastUpdate returns the newest notify and whether there was one
func (c *Characteristic) LastUpdate() (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.updates) == 0 {
		return nil, false
	}
	return c.updates[len(c.updates)-1], true
}

// HasGet is true when a read handler is installed
func (c *Characteristic) HasGet() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.get != nil
}

// HasSet is true when a write handler is installed
func (c *Characteristic) HasSet() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.set != nil
}

// Service is an in-memory service
type Service struct {
	mu      sync.Mutex
	kind    host.ServiceKind
	subtype string
	name    string
	chars   []*Characteristic
}

// Kind implements host.Service
func (s *Service) Kind() host.ServiceKind { return s.kind }

// Subtype implements host.Service
func (s *Service) Subtype() string { return s.subtype }

// Name is the name given when the service was added
func (s *Service) Name() string { return s.name }

// Characteristic implements host.Service
func (s *Service) Characteristic(kind host.CharacteristicKind) (host.Characteristic, bool) {
	c, ok := s.Char(kind)
	if !ok {
		return nil, false
	}
	return c, true
}

// Char is Characteristic with the concrete type
func (s *Service) Char(kind host.CharacteristicKind) (*Characteristic, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.chars {
		if c.kind == kind {
			return c, true
		}
	}
	return nil, false
}

// AddCharacteristic implements host.Service. Adding a kind twice is an error,
// which is what makes duplicate acquisition visible in tests.
func (s *Service) AddCharacteristic(kind host.CharacteristicKind) (host.Characteristic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.chars {
		if c.kind == kind {
			return nil, fmt.Errorf("duplicate characteristic %s on %s", kind, s.kind)
		}
	}
	c := &Characteristic{kind: kind}
	s.chars = append(s.chars, c)
	return c, nil
}

// Characteristics returns all characteristics in insertion order
func (s *Service) Characteristics() []*Characteristic {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Characteristic, len(s.chars))
	copy(out, s.chars)
	return out
}

// Accessory is an in-memory accessory
type Accessory struct {
	mu        sync.Mutex
	uuid      string
	name      string
	info      host.Info
	reachable bool
	services  []*Service
	identify  []func()
}

// NewAccessory creates a standalone accessory
func NewAccessory(uuid, name string) *Accessory {
	return &Accessory{uuid: uuid, name: name, reachable: true}
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
	s, ok := a.Svc(kind, subtype)
	if !ok {
		return nil, false
	}
	return s, true
}

// Svc is Service with the concrete type
func (a *Accessory) Svc(kind host.ServiceKind, subtype string) (*Service, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range a.services {
		if s.kind == kind && s.subtype == subtype {
			return s, true
		}
	}
	return nil, false
}

// AddService implements host.Accessory; duplicates are an error
func (a *Accessory) AddService(kind host.ServiceKind, subtype, name string) (host.Service, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range a.services {
		if s.kind == kind && s.subtype == subtype {
			return nil, fmt.Errorf("duplicate service %s", host.ServiceKey(kind, subtype))
		}
	}
	s := &Service{kind: kind, subtype: subtype, name: name}
	a.services = append(a.services, s)
	return s, nil
}

// RemoveService implements host.Accessory
func (a *Accessory) RemoveService(kind host.ServiceKind, subtype string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, s := range a.services {
		if s.kind == kind && s.subtype == subtype {
			a.services = append(a.services[:i], a.services[i+1:]...)
			return true
		}
	}
	return false
}

// Services returns all services in insertion order
func (a *Accessory) Services() []*Service {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*Service, len(a.services))
	copy(out, a.services)
	return out
}

// SetInfo implements host.Accessory
func (a *Accessory) SetInfo(i host.Info) {
	a.mu.Lock()
	a.info = i
	if i.Name != "" {
		a.name = i.Name
	}
	a.mu.Unlock()
}

// Info returns what SetInfo stored
func (a *Accessory) Info() host.Info {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.info
}

// SetReachable implements host.Accessory
func (a *Accessory) SetReachable(r bool) {
	a.mu.Lock()
	a.reachable = r
	a.mu.Unlock()
}

// Reachable returns the last reachability set
func (a *Accessory) Reachable() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reachable
}

// OnIdentify implements host.Accessory
func (a *Accessory) OnIdentify(fn func()) {
	a.mu.Lock()
	a.identify = append(a.identify, fn)
	a.mu.Unlock()
}

// Identify plays a controller identify request
func (a *Accessory) Identify() {
	a.mu.Lock()
	fns := append([]func(){}, a.identify...)
	a.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Runtime is an in-memory host.Runtime
type Runtime struct {
	mu           sync.Mutex
	registered   map[string]*Accessory
	restored     []*Accessory
	unregistered []string
	registerErr  error
}

// NewRuntime returns a runtime that restores the given accessories
func NewRuntime(restored ...*Accessory) *Runtime {
	return &Runtime{registered: make(map[string]*Accessory), restored: restored}
}

// FailRegister makes every later Register call fail with err
func (r *Runtime) FailRegister(err error) {
	r.mu.Lock()
	r.registerErr = err
	r.mu.Unlock()
}

// NewAccessory implements host.Runtime
func (r *Runtime) NewAccessory(uuid, name string) host.Accessory {
	return NewAccessory(uuid, name)
}

// Register implements host.Runtime
func (r *Runtime) Register(accs ...host.Accessory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.registerErr != nil {
		return r.registerErr
	}
	for _, a := range accs {
		r.registered[a.UUID()] = a.(*Accessory)
	}
	return nil
}

// Unregister implements host.Runtime
func (r *Runtime) Unregister(accs ...host.Accessory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range accs {
		delete(r.registered, a.UUID())
		r.unregistered = append(r.unregistered, a.UUID())
	}
	return nil
}

// Restored implements host.Runtime. Restored accessories count as registered,
// as they would on a real host.
func (r *Runtime) Restored() []host.Accessory {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]host.Accessory, 0, len(r.restored))
	for _, a := range r.restored {
		r.registered[a.uuid] = a
		out = append(out, a)
	}
	return out
}

// Registered returns the accessory published under uuid
func (r *Runtime) Registered(uuid string) (*Accessory, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.registered[uuid]
	return a, ok
}

// RegisteredCount is the number of published accessories
func (r *Runtime) RegisteredCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.registered)
}

// Unregistered lists UUIDs passed to Unregister, in order
func (r *Runtime) Unregistered() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.unregistered...)
}
