// Package registry decides which HomeKit services and characteristics a hub
// device gets. Resolution is table driven: an exact device-type entry,
// vendor quirks within the type, the user's setupAs flag, then a structural
// fallback for types nobody described.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cloudkucooland/almond-homekit/host"
	"github.com/cloudkucooland/almond-homekit/hub"
	"github.com/cloudkucooland/almond-homekit/transform"
)

var (
	// ErrNotSupported means no blueprint applies to the device
	ErrNotSupported = errors.New("device not supported")
	// ErrDoubleBinding means two bindings claim the same characteristic
	ErrDoubleBinding = errors.New("characteristic bound twice")
)

// State is what transforms may look at besides the value they were handed:
// other properties of the same device (units, mode, setpoints) and the
// binding's restore cell, if it has one.
type State interface {
	Value(prop string) (hub.Value, bool)
	Restore() *transform.RestoreCell
}

// GetFunc turns a raw hub value into a characteristic value
type GetFunc func(v hub.Value, st State) (interface{}, error)

// SetFunc turns a characteristic value into zero or more hub writes.
// No writes and no error means the hub does not accept the change.
type SetFunc func(cv interface{}, st State) ([]Write, error)

// Write is one property write produced by a SetFunc
type Write struct {
	Property string
	Value    hub.Value
}

// Binding ties one characteristic to one hub property
type Binding struct {
	Service        host.ServiceKind
	Subtype        string
	NameSuffix     string // appended to the device name for the service name
	Characteristic host.CharacteristicKind
	Property       string // source property; empty for constants

	Get    GetFunc
	Set    SetFunc // nil for read-only characteristics
	Update GetFunc // nil to never notify

	Restore  *transform.RestorePolicy
	Triggers []string // other properties whose changes re-run Update

	// Event marks stateless characteristics: they are only ever pushed on
	// a hub change, never seeded from the last-known value.
	Event bool
}

// ServiceKey is the binding's service identity within the accessory
func (b Binding) ServiceKey() string {
	return host.ServiceKey(b.Service, b.Subtype)
}

func (b Binding) shape() string {
	var ops []string
	if b.Get != nil {
		ops = append(ops, "get")
	}
	if b.Set != nil {
		ops = append(ops, "set")
	}
	if b.Update != nil {
		ops = append(ops, "update")
	}
	if b.Restore != nil {
		ops = append(ops, "restore")
	}
	s := fmt.Sprintf("%s/%s<-%s [%s]", b.ServiceKey(), b.Characteristic, b.Property, strings.Join(ops, ","))
	if len(b.Triggers) > 0 {
		s += " +" + strings.Join(b.Triggers, "+")
	}
	return s
}

// Blueprint is the ordered binding list for one device
type Blueprint struct {
	Name     string
	Bindings []Binding
}

// Shape describes the blueprint without its functions, for comparison and logging
func (bp Blueprint) Shape() []string {
	out := make([]string, 0, len(bp.Bindings))
	for _, b := range bp.Bindings {
		out = append(out, b.shape())
	}
	return out
}

// Properties lists every property the blueprint reads, sorted
func (bp Blueprint) Properties() []string {
	seen := make(map[string]bool)
	for _, b := range bp.Bindings {
		if b.Property != "" {
			seen[b.Property] = true
		}
		for _, t := range b.Triggers {
			seen[t] = true
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Validate checks that no characteristic is owned by two bindings
func (bp Blueprint) Validate() error {
	owners := make(map[string]string)
	for _, b := range bp.Bindings {
		k := b.ServiceKey() + "/" + string(b.Characteristic)
		if prev, ok := owners[k]; ok {
			return fmt.Errorf("%w: %s (%s and %s)", ErrDoubleBinding, k, prev, b.Property)
		}
		owners[k] = b.Property
	}
	return nil
}

// Flags are the per-device user overrides
type Flags struct {
	SetupAs         string
	HideBatteryInfo bool
}

// Entry is one row of the registry
type Entry struct {
	Name string
	Type hub.DeviceType
	// Quirk, when set, must match the device for the entry to apply
	Quirk func(info hub.Info) bool
	// SetupAs, when set, must equal the user's setupAs flag
	SetupAs string
	Build   func(info hub.Info) []Binding
}

// Fallback describes devices of unknown type by a property they carry
type Fallback struct {
	Name     string
	Property string
	Build    func(info hub.Info) []Binding
}

// Registry is a resolution table. It is not safe to Register while resolving.
type Registry struct {
	byType    map[hub.DeviceType][]Entry
	fallbacks []Fallback
	battery   func(info hub.Info) []Binding
}

// New returns an empty registry
func New() *Registry {
	return &Registry{
		byType: make(map[hub.DeviceType][]Entry),
	}
}

// Register adds a type entry
func (r *Registry) Register(e Entry) {
	r.byType[e.Type] = append(r.byType[e.Type], e)
}

// RegisterFallback adds a structural fallback; fallbacks are tried in order
func (r *Registry) RegisterFallback(f Fallback) {
	r.fallbacks = append(r.fallbacks, f)
}

// Resolve picks the blueprint for a device. It only looks at its arguments,
// so two calls with the same input give the same blueprint.
func (r *Registry) Resolve(info hub.Info, f Flags) (Blueprint, error) {
	if len(info.Props) == 0 {
		return Blueprint{}, fmt.Errorf("%w: %s has no properties", ErrNotSupported, info.ID)
	}

	var name string
	var build func(hub.Info) []Binding

	if entries, ok := r.byType[info.Type]; ok {
		e, ok := pick(entries, info, f)
		if !ok {
			return Blueprint{}, fmt.Errorf("%w: %s (%s %q %q)", ErrNotSupported, info.ID, info.Type, info.Manufacturer, info.Model)
		}
		name, build = e.Name, e.Build
	} else {
		for _, fb := range r.fallbacks {
			if _, ok := info.Props[fb.Property]; ok {
				name, build = fb.Name, fb.Build
				break
			}
		}
		if build == nil {
			return Blueprint{}, fmt.Errorf("%w: %s (%s)", ErrNotSupported, info.ID, info.Type)
		}
	}

	bp := Blueprint{Name: name, Bindings: present(info, build(info))}
	if !hasSourced(bp) {
		return Blueprint{}, fmt.Errorf("%w: %s lacks the properties of %s", ErrNotSupported, info.ID, name)
	}
	if r.battery != nil && !f.HideBatteryInfo {
		bp.Bindings = append(bp.Bindings, present(info, r.battery(info))...)
	}
	if err := bp.Validate(); err != nil {
		return Blueprint{}, err
	}
	return bp, nil
}

// pick applies the precedence within a type: the setupAs flag wins over a
// vendor quirk, which wins over the plain entry.
func pick(entries []Entry, info hub.Info, f Flags) (Entry, bool) {
	var plain, quirk, flagged *Entry
	for i := range entries {
		e := &entries[i]
		if e.Quirk != nil && !e.Quirk(info) {
			continue
		}
		switch {
		case e.SetupAs != "":
			if f.SetupAs == e.SetupAs && flagged == nil {
				flagged = e
			}
		case e.Quirk != nil:
			if quirk == nil {
				quirk = e
			}
		default:
			if plain == nil {
				plain = e
			}
		}
	}
	switch {
	case flagged != nil:
		return *flagged, true
	case quirk != nil:
		return *quirk, true
	case plain != nil:
		return *plain, true
	}
	return Entry{}, false
}

// present drops bindings whose source property the device does not have
func present(info hub.Info, bindings []Binding) []Binding {
	out := make([]Binding, 0, len(bindings))
	for _, b := range bindings {
		if b.Property != "" {
			if _, ok := info.Props[b.Property]; !ok {
				continue
			}
		}
		out = append(out, b)
	}
	return out
}

// a blueprint made only of constants describes nothing about the device
func hasSourced(bp Blueprint) bool {
	for _, b := range bp.Bindings {
		if b.Property != "" {
			return true
		}
	}
	return false
}
