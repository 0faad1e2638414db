// Package binding wires a blueprint onto an accessory: every binding gets a
// read handler, a write handler and a subscription on its hub property.
package binding

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/brutella/hc/log"

	"github.com/cloudkucooland/almond-homekit/host"
	"github.com/cloudkucooland/almond-homekit/hub"
	"github.com/cloudkucooland/almond-homekit/metrics"
	"github.com/cloudkucooland/almond-homekit/registry"
	"github.com/cloudkucooland/almond-homekit/transform"
)

// Bound is a blueprint attached to an accessory and a device
type Bound struct {
	acc host.Accessory

	mu      sync.Mutex
	dev     *hub.Device
	bp      registry.Blueprint
	cells   map[string]*transform.RestoreCell
	cancels []func()
}

// Bind attaches bp to acc, backed by dev. Services and characteristics
// that already exist on the accessory are reused, so binding an accessory
// restored from the host's cache does not duplicate anything.
func Bind(acc host.Accessory, dev *hub.Device, bp registry.Blueprint) (*Bound, error) {
	b := &Bound{
		acc:   acc,
		cells: make(map[string]*transform.RestoreCell),
	}
	if err := b.attach(dev, bp); err != nil {
		b.Unbind()
		return nil, err
	}
	return b, nil
}

// Rebind moves the bound accessory onto a new device object or blueprint.
// Old subscriptions are cancelled first. Services the new blueprint no
// longer names are withdrawn along with their restore cells; a service that
// lost a characteristic is rebuilt. Other restore cells are kept.
func (b *Bound) Rebind(dev *hub.Device, bp registry.Blueprint) error {
	b.Unbind()
	b.prune(bp)
	return b.attach(dev, bp)
}

type serviceShape struct {
	kind    host.ServiceKind
	subtype string
	chars   map[host.CharacteristicKind]bool
}

func shapes(bp registry.Blueprint) map[string]*serviceShape {
	out := make(map[string]*serviceShape)
	for _, rb := range bp.Bindings {
		s, ok := out[rb.ServiceKey()]
		if !ok {
			s = &serviceShape{kind: rb.Service, subtype: rb.Subtype, chars: make(map[host.CharacteristicKind]bool)}
			out[rb.ServiceKey()] = s
		}
		s.chars[rb.Characteristic] = true
	}
	return out
}

// prune removes what the current blueprint published and next does not.
// hc cannot drop a single characteristic, so the whole service goes and
// attach adds it back.
func (b *Bound) prune(next registry.Blueprint) {
	b.mu.Lock()
	prev := b.bp
	b.mu.Unlock()

	want := shapes(next)
	for key, old := range shapes(prev) {
		keep, ok := want[key]
		stale := false
		if ok {
			for c := range old.chars {
				if !keep.chars[c] {
					stale = true
					break
				}
			}
		}
		if ok && !stale {
			continue
		}
		if b.acc.RemoveService(old.kind, old.subtype) {
			log.Debug.Printf("%s: withdrew service %s", b.acc.DisplayName(), key)
		}
		if !ok {
			b.dropCells(key)
		}
	}
}

func (b *Bound) dropCells(serviceKey string) {
	prefix := serviceKey + "/"
	b.mu.Lock()
	defer b.mu.Unlock()
	for k := range b.cells {
		if strings.HasPrefix(k, prefix) {
			delete(b.cells, k)
		}
	}
}

// Unbind cancels every subscription. Host handlers stay installed but the
// bridge drops the accessory right after, so they are never called again.
func (b *Bound) Unbind() {
	b.mu.Lock()
	cancels := b.cancels
	b.cancels = nil
	b.mu.Unlock()

	for _, c := range cancels {
		c()
	}
}

// Accessory returns the bound accessory
func (b *Bound) Accessory() host.Accessory {
	return b.acc
}

// Device returns the device currently backing the accessory
func (b *Bound) Device() *hub.Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dev
}

// Blueprint returns the blueprint currently attached
func (b *Bound) Blueprint() registry.Blueprint {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bp
}

// Subscriptions is the number of live hub subscriptions
func (b *Bound) Subscriptions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.cancels)
}

// RestoreCell returns the restore cell of a service key and property, if any
func (b *Bound) RestoreCell(serviceKey, prop string) (*transform.RestoreCell, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.cells[cellKey(serviceKey, prop)]
	return c, ok
}

func cellKey(serviceKey, prop string) string {
	return serviceKey + "/" + prop
}

func (b *Bound) attach(dev *hub.Device, bp registry.Blueprint) error {
	if err := bp.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	b.dev = dev
	b.bp = bp
	b.mu.Unlock()

	name := dev.Name()
	for _, rb := range bp.Bindings {
		svc, ok := b.acc.Service(rb.Service, rb.Subtype)
		if !ok {
			var err error
			svc, err = b.acc.AddService(rb.Service, rb.Subtype, name+rb.NameSuffix)
			if err != nil {
				return fmt.Errorf("%s: service %s: %w", dev.ID(), rb.ServiceKey(), err)
			}
		}
		ch, ok := svc.Characteristic(rb.Characteristic)
		if !ok {
			var err error
			ch, err = svc.AddCharacteristic(rb.Characteristic)
			if err != nil {
				return fmt.Errorf("%s: characteristic %s/%s: %w", dev.ID(), rb.ServiceKey(), rb.Characteristic, err)
			}
		}

		c := &wire{bound: b, rb: rb, ch: ch}
		if rb.Restore != nil {
			c.cell = b.cell(rb.ServiceKey(), rb.Property, *rb.Restore)
		}
		c.install()
	}
	return nil
}

func (b *Bound) cell(serviceKey, prop string, p transform.RestorePolicy) *transform.RestoreCell {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := cellKey(serviceKey, prop)
	c, ok := b.cells[k]
	if !ok {
		c = transform.NewRestoreCell(p)
		b.cells[k] = c
	}
	return c
}

func (b *Bound) track(cancel func()) {
	b.mu.Lock()
	b.cancels = append(b.cancels, cancel)
	b.mu.Unlock()
}

// wire is one binding installed on one characteristic
type wire struct {
	bound *Bound
	rb    registry.Binding
	ch    host.Characteristic
	cell  *transform.RestoreCell
}

// Value implements registry.State
func (w *wire) Value(prop string) (hub.Value, bool) {
	dev := w.bound.Device()
	id, ok := dev.Prop(prop)
	if !ok {
		return "", false
	}
	return dev.GetProp(id), true
}

// Restore implements registry.State
func (w *wire) Restore() *transform.RestoreCell {
	return w.cell
}

func (w *wire) source() hub.Value {
	if w.rb.Property == "" {
		return ""
	}
	v, _ := w.Value(w.rb.Property)
	return v
}

func (w *wire) label() string {
	return fmt.Sprintf("%s %s/%s", w.bound.Device().ID(), w.rb.ServiceKey(), w.rb.Characteristic)
}

func (w *wire) install() {
	if w.rb.Get != nil {
		w.ch.OnGet(w.get)
		if !w.rb.Event {
			w.seed()
		}
	}
	if w.rb.Set != nil {
		w.ch.OnSet(w.set)
	}
	if w.rb.Update != nil && w.rb.Property != "" {
		dev := w.bound.Device()
		for _, p := range append([]string{w.rb.Property}, w.rb.Triggers...) {
			id, ok := dev.Prop(p)
			if !ok {
				continue
			}
			w.bound.track(dev.OnProp(id, w.changed))
		}
	}
}

// seed puts the last-known value into the characteristic so a failed
// read has something sensible to answer with
func (w *wire) seed() {
	raw := w.source()
	if raw.IsZero() && w.rb.Property != "" {
		return
	}
	w.observe(raw)
	v, err := w.rb.Get(raw, w)
	if err != nil {
		return
	}
	w.ch.UpdateValue(v)
}

func (w *wire) get() (interface{}, error) {
	kind := string(w.rb.Characteristic)
	v, err := w.rb.Get(w.source(), w)
	if err != nil {
		last := w.ch.Value()
		if errors.Is(err, transform.ErrUnmappedValue) {
			metrics.Reads.WithLabelValues(kind, metrics.Unmapped).Inc()
		} else {
			metrics.Reads.WithLabelValues(kind, metrics.Error).Inc()
		}
		log.Info.Printf("%s: read: %s, answering %v", w.label(), err.Error(), last)
		return last, nil
	}
	metrics.Reads.WithLabelValues(kind, metrics.OK).Inc()
	log.Debug.Printf("%s: read %v", w.label(), v)
	return v, nil
}

func (w *wire) set(cv interface{}) error {
	kind := string(w.rb.Characteristic)
	writes, err := w.rb.Set(cv, w)
	if err != nil {
		metrics.Writes.WithLabelValues(kind, metrics.Error).Inc()
		return fmt.Errorf("%s: %v: %w", w.label(), cv, err)
	}
	if len(writes) == 0 {
		metrics.Writes.WithLabelValues(kind, metrics.Ignored).Inc()
		log.Debug.Printf("%s: hub does not accept %v here, ignoring", w.label(), cv)
		return nil
	}

	dev := w.bound.Device()
	for _, wr := range writes {
		id, ok := dev.Prop(wr.Property)
		if !ok {
			metrics.Writes.WithLabelValues(kind, metrics.Error).Inc()
			return fmt.Errorf("%s: %s: %w", w.label(), wr.Property, hub.ErrUnknownProperty)
		}
		log.Debug.Printf("%s: write %v -> %s=%s", w.label(), cv, wr.Property, wr.Value)
		if err := dev.SetProp(id, wr.Value); err != nil {
			metrics.Writes.WithLabelValues(kind, metrics.Error).Inc()
			return fmt.Errorf("%s: %w", w.label(), err)
		}
	}
	metrics.Writes.WithLabelValues(kind, metrics.OK).Inc()
	return nil
}

// changed runs on the hub event goroutine for the source property and
// every trigger; it always recomputes from the source property.
func (w *wire) changed(hub.Value) {
	kind := string(w.rb.Characteristic)
	raw := w.source()
	w.observe(raw)

	v, err := w.rb.Update(raw, w)
	switch {
	case err == nil:
	case errors.Is(err, transform.ErrSuppress):
		metrics.Notifies.WithLabelValues(kind, metrics.Suppressed).Inc()
		return
	case errors.Is(err, transform.ErrUnmappedValue):
		metrics.Notifies.WithLabelValues(kind, metrics.Unmapped).Inc()
		log.Info.Printf("%s: not notifying: %s", w.label(), err.Error())
		return
	default:
		metrics.Notifies.WithLabelValues(kind, metrics.Error).Inc()
		log.Info.Printf("%s: update: %s", w.label(), err.Error())
		return
	}
	metrics.Notifies.WithLabelValues(kind, metrics.OK).Inc()
	log.Debug.Printf("%s: %s -> %v", w.label(), raw, v)
	w.ch.UpdateValue(v)
}

func (w *wire) observe(raw hub.Value) {
	if w.cell == nil {
		return
	}
	if i, err := raw.Int(); err == nil {
		w.cell.Observe(i)
	}
}
