package memhub

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brutella/hc/log"
	"gopkg.in/yaml.v3"

	"github.com/cloudkucooland/almond-homekit/config"
	"github.com/cloudkucooland/almond-homekit/hub"
	"github.com/cloudkucooland/almond-homekit/platform"
)

// RosterEntry is one device in a roster file
type RosterEntry struct {
	hub.Info `yaml:",inline"`
	Values   map[string]hub.Value `json:"values" yaml:"values"`
}

// Roster is the roster file
type Roster struct {
	Devices []RosterEntry `json:"devices" yaml:"devices"`
}

// LoadRoster reads a JSON or YAML roster file, chosen by extension
func LoadRoster(path string) (*Roster, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Roster
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &r)
	default:
		err = json.Unmarshal(raw, &r)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &r, nil
}

// Load puts every roster device into the hub
func (h *Hub) Load(r *Roster) {
	for _, e := range r.Devices {
		h.Put(e.Info, e.Values)
	}
}

// Platform is the Static hub: a fixed roster read at startup, for demos
// and for running the bridge without a hub
type Platform struct {
	Running bool
}

var static *Hub

// Startup is called by the platform bootstrap
func (p Platform) Startup(c *config.Config) platform.Control {
	static = New(64)
	if c.Hub.RosterFile == "" {
		log.Info.Print("static hub: no roster file configured")
		return p
	}
	r, err := LoadRoster(c.Path(c.Hub.RosterFile))
	if err != nil {
		log.Info.Printf("static hub: %s", err.Error())
		return p
	}
	static.Load(r)
	log.Info.Printf("static hub: loaded %d devices", len(r.Devices))
	p.Running = true
	return p
}

// Background announces the roster
func (p Platform) Background() {
	if static == nil {
		return
	}
	static.Connect()
	static.Ready()
}

// Shutdown is called at process teardown
func (p Platform) Shutdown() platform.Control {
	if static != nil {
		static.Close()
	}
	p.Running = false
	return p
}

// Client implements platform.Hub
func (p Platform) Client() hub.Client {
	return static
}
