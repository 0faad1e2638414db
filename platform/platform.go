package platform

import (
	"sort"
	"sync"

	"github.com/brutella/hc/log"

	"github.com/cloudkucooland/almond-homekit/config"
	"github.com/cloudkucooland/almond-homekit/hub"
)

// Control is the interface which all platforms must satisfy
type Control interface {
	Startup(*config.Config) Control
	Background()
	Shutdown() Control
}

// Hub is a platform that connects to a hub and hands out its client
type Hub interface {
	Control
	Client() hub.Client
}

var (
	mu        sync.Mutex
	platforms = make(map[string]Control)
	order     []string
)

// RegisterPlatform is called whenever a new platform is instantiated
func RegisterPlatform(name string, control Control) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := platforms[name]; ok {
		return
	}
	platforms[name] = control
	order = append(order, name)
}

// GetPlatform looks up a registered platform by name
func GetPlatform(name string) (Control, bool) {
	mu.Lock()
	defer mu.Unlock()
	pc, ok := platforms[name]
	return pc, ok
}

// GetHub looks up a registered hub platform by name
func GetHub(name string) (Hub, bool) {
	pc, ok := GetPlatform(name)
	if !ok {
		return nil, false
	}
	h, ok := pc.(Hub)
	return h, ok
}

// Names lists the registered platforms, sorted
func Names() []string {
	mu.Lock()
	defer mu.Unlock()
	out := append([]string{}, order...)
	sort.Strings(out)
	return out
}

// StartupAllPlatforms is called at process start to initialize all platforms
// in registration order
func StartupAllPlatforms(c *config.Config) {
	each(func(name string, p Control) Control {
		log.Debug.Printf("starting up: %s", name)
		return p.Startup(c)
	})
}

// Background starts the background processes for every platform
func Background() {
	each(func(name string, p Control) Control {
		log.Debug.Printf("starting background processes: %s", name)
		p.Background()
		return p
	})
}

// ShutdownAllPlatforms is called at process stop to shutdown all platforms,
// last registered first
func ShutdownAllPlatforms() {
	mu.Lock()
	names := append([]string{}, order...)
	mu.Unlock()

	for i := len(names) - 1; i >= 0; i-- {
		name := names[i]
		p, _ := GetPlatform(name)
		log.Debug.Printf("shutting down: %s", name)
		set(name, p.Shutdown())
	}
}

func each(fn func(string, Control) Control) {
	mu.Lock()
	names := append([]string{}, order...)
	mu.Unlock()

	for _, name := range names {
		p, _ := GetPlatform(name)
		set(name, fn(name, p))
	}
}

func set(name string, p Control) {
	mu.Lock()
	platforms[name] = p
	mu.Unlock()
}

// reset forgets every platform; tests only
func reset() {
	mu.Lock()
	platforms = make(map[string]Control)
	order = nil
	mu.Unlock()
}
