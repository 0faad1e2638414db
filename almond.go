// Package almond wires the hub platforms, the lifecycle manager and the
// HomeKit runtime together.
package almond

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/brutella/hc/log"

	"github.com/cloudkucooland/almond-homekit/config"
	"github.com/cloudkucooland/almond-homekit/homecontrol"
	"github.com/cloudkucooland/almond-homekit/lifecycle"
	"github.com/cloudkucooland/almond-homekit/memhub"
	"github.com/cloudkucooland/almond-homekit/mqtthub"
	"github.com/cloudkucooland/almond-homekit/platform"
	"github.com/cloudkucooland/almond-homekit/registry"
	"github.com/cloudkucooland/almond-homekit/tfhttp"
)

// hub platform names
const (
	MQTT   = "MQTT"
	Static = "Static"
)

// HubPlatform is the hub platform the config selects. Without one, a
// configured broker means MQTT and anything else the static roster.
func HubPlatform(c *config.Config) string {
	switch strings.ToLower(c.Hub.Platform) {
	case "mqtt":
		return MQTT
	case "static":
		return Static
	case "":
		if c.Hub.Broker != "" {
			return MQTT
		}
		return Static
	}
	return c.Hub.Platform
}

// BootstrapPlatforms sets up all the platforms
func BootstrapPlatforms(c *config.Config) error {
	var h tfhttp.Platform
	platform.RegisterPlatform("HTTP", h)

	var hcp homecontrol.Platform
	platform.RegisterPlatform("HomeControl", hcp)

	switch name := HubPlatform(c); name {
	case MQTT:
		var mp mqtthub.Platform
		platform.RegisterPlatform(MQTT, mp)
	case Static:
		var sp memhub.Platform
		platform.RegisterPlatform(Static, sp)
	default:
		return fmt.Errorf("unknown hub platform: %s", name)
	}

	platform.StartupAllPlatforms(c)
	return nil
}

// Run starts the platforms' background work and keeps HomeKit in step with
// the hub until ctx is done
func Run(ctx context.Context, c *config.Config) error {
	rt := homecontrol.Get()
	if rt == nil {
		return errors.New("HomeControl runtime did not start")
	}
	hp, ok := platform.GetHub(HubPlatform(c))
	if !ok {
		return fmt.Errorf("hub platform %s not registered", HubPlatform(c))
	}
	client := hp.Client()
	if client == nil {
		return fmt.Errorf("hub platform %s has no client", HubPlatform(c))
	}

	m := lifecycle.New(rt, registry.Default(), c.Devices)
	// HC can only be started once all accessories are known
	m.OnSynced(func() {
		if err := rt.Start(); err != nil {
			log.Info.Printf("unable to start HomeControl: %s", err.Error())
		}
	})
	m.RestoreAll()
	tfhttp.SetSource(m)

	platform.Background()

	err := m.Run(ctx, client)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
