// Package homecontrol publishes the bridge's accessories through brutella/hc
package homecontrol

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/brutella/hc"
	hcaccessory "github.com/brutella/hc/accessory"
	"github.com/brutella/hc/log"
	"github.com/brutella/hc/util"

	"github.com/cloudkucooland/almond-homekit/accessory"
	"github.com/cloudkucooland/almond-homekit/config"
	"github.com/cloudkucooland/almond-homekit/host"
	"github.com/cloudkucooland/almond-homekit/platform"
)

// DefaultRestartDelay batches accessory changes made after the transport is up
const DefaultRestartDelay = 2 * time.Second

// Runtime is the host.Runtime on top of hc. Accessories are collected until
// Start; changes after that restart the IP transport.
type Runtime struct {
	cfg     hc.Config
	name    string
	serial  string
	storage util.Storage

	// RestartDelay is how long to wait for further changes before restarting
	RestartDelay time.Duration

	mu        sync.Mutex
	records   accessory.Records
	accs      map[string]*Accessory
	root      *hcaccessory.Bridge
	transport hc.Transport
	started   bool
	restart   *time.Timer
}

// NewRuntime opens the bridge's storage and loads the accessory records
func NewRuntime(c *config.Config) (*Runtime, error) {
	cfg := c.HCConfig
	if cfg.StoragePath == "" {
		cfg.StoragePath = c.Path(c.Name)
	}
	storage, err := util.NewFileStorage(filepath.Join(cfg.StoragePath, "almond"))
	if err != nil {
		return nil, fmt.Errorf("unable to get storage: %w", err)
	}
	recs, err := accessory.LoadRecords(storage)
	if err != nil {
		// start over with fresh ids rather than refusing to run
		log.Info.Println(err.Error())
	}

	serial := c.ID
	if serial == "" {
		serial = util.GetSerialNumberForAccessoryName(c.Name+"Root", storage)
	}

	return &Runtime{
		cfg:          cfg,
		name:         c.Name,
		serial:       serial,
		storage:      storage,
		RestartDelay: DefaultRestartDelay,
		records:      recs,
		accs:         make(map[string]*Accessory),
	}, nil
}

// NewAccessory implements host.Runtime. The aid is reserved right away so
// it stays the same across runs.
func (r *Runtime) NewAccessory(uuid, name string) host.Accessory {
	r.mu.Lock()
	rec := r.records.Assign(uuid, name, "")
	r.mu.Unlock()
	return r.newAccessory(rec)
}

func (r *Runtime) newAccessory(rec accessory.Record) *Accessory {
	uuid := rec.UUID
	return newAccessory(uuid, rec.Name, rec.AID, func() { r.changed(uuid) })
}

// Register implements host.Runtime
func (r *Runtime) Register(accs ...host.Accessory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range accs {
		if _, ok := a.(*Accessory); !ok {
			return fmt.Errorf("%s: not an hc accessory", a.DisplayName())
		}
	}
	for _, a := range accs {
		hca := a.(*Accessory)
		r.accs[hca.UUID()] = hca
		r.records.Assign(hca.UUID(), hca.DisplayName(), "")
		log.Debug.Printf("registered %s (aid %d)", hca.DisplayName(), hca.Accessory.ID)
	}
	if err := r.records.Save(r.storage); err != nil {
		return err
	}
	r.scheduleRestart()
	return nil
}

// Unregister implements host.Runtime
func (r *Runtime) Unregister(accs ...host.Accessory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range accs {
		delete(r.accs, a.UUID())
		delete(r.records, a.UUID())
		log.Debug.Printf("unregistered %s", a.DisplayName())
	}
	if err := r.records.Save(r.storage); err != nil {
		return err
	}
	r.scheduleRestart()
	return nil
}

// Restored implements host.Runtime. Restored accessories are published
// until they are unregistered.
func (r *Runtime) Restored() []host.Accessory {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]host.Accessory, 0, len(r.records))
	for _, rec := range r.records.Sorted() {
		a, ok := r.accs[rec.UUID]
		if !ok {
			a = r.newAccessory(rec)
			r.accs[rec.UUID] = a
		}
		out = append(out, a)
	}
	return out
}

// Accessories returns the published accessories ordered by aid
func (r *Runtime) Accessories() []*Accessory {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedLocked()
}

func (r *Runtime) sortedLocked() []*Accessory {
	out := make([]*Accessory, 0, len(r.accs))
	for _, rec := range r.records.Sorted() {
		if a, ok := r.accs[rec.UUID]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Start is called once the hub roster is reconciled; later calls are no-ops
func (r *Runtime) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	if err := r.startLocked(); err != nil {
		return err
	}
	r.started = true
	return nil
}

func (r *Runtime) startLocked() error {
	if r.root == nil {
		r.root = hcaccessory.NewBridge(hcaccessory.Info{
			Name:             r.name,
			ID:               accessory.BridgeAID,
			SerialNumber:     r.serial,
			Manufacturer:     "cloudkucooland",
			Model:            "almond-homekit",
			FirmwareRevision: "0.1.0",
		})
		root := r.root
		root.Accessory.OnIdentify(func() {
			log.Info.Printf("bridge root identify called: %s", root.Accessory.Info.Name.GetValue())
		})
	}

	values := []*hcaccessory.Accessory{}
	for _, a := range r.sortedLocked() {
		values = append(values, a.Accessory)
	}

	transport, err := hc.NewIPTransport(r.cfg, r.root.Accessory, values...)
	if err != nil {
		return err
	}
	r.transport = transport
	go transport.Start()

	uri, _ := transport.XHMURI()
	log.Info.Printf("publishing %d accessories; add this bridge with: %s", len(values), uri)
	return nil
}

// changed is called when a service or characteristic is added to an accessory
func (r *Runtime) changed(uuid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accs[uuid]; ok {
		r.scheduleRestart()
	}
}

// scheduleRestart must be called with r.mu held
func (r *Runtime) scheduleRestart() {
	if !r.started {
		return
	}
	if r.restart != nil {
		r.restart.Stop()
	}
	r.restart = time.AfterFunc(r.RestartDelay, r.restartTransport)
}

func (r *Runtime) restartTransport() {
	r.mu.Lock()
	t := r.transport
	r.transport = nil
	r.mu.Unlock()

	if t != nil {
		log.Info.Println("accessory set changed, restarting transport")
		<-t.Stop()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started || r.transport != nil {
		return
	}
	if err := r.startLocked(); err != nil {
		log.Info.Printf("unable to restart transport: %s", err.Error())
	}
}

// Stop takes the bridge off the network
func (r *Runtime) Stop() {
	r.mu.Lock()
	r.started = false
	if r.restart != nil {
		r.restart.Stop()
		r.restart = nil
	}
	t := r.transport
	r.transport = nil
	r.mu.Unlock()

	if t != nil {
		<-t.Stop()
	}
}

// Platform is the platform handle
type Platform struct {
	Running bool
}

var (
	doOnce  sync.Once
	running *Runtime
)

// Startup is called by the platform bootstrap
func (p Platform) Startup(c *config.Config) platform.Control {
	doOnce.Do(func() {
		r, err := NewRuntime(c)
		if err != nil {
			log.Info.Println(err.Error())
			return
		}
		running = r
	})
	p.Running = running != nil
	return p
}

// Background runs the various background tasks: none for HC
func (p Platform) Background() {}

// Shutdown is called at process teardown
func (p Platform) Shutdown() platform.Control {
	if running != nil {
		running.Stop()
	}
	p.Running = false
	return p
}

// Get returns the runtime created at startup, or nil
func Get() *Runtime {
	return running
}
