package almond

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cloudkucooland/almond-homekit/config"
)

func TestHubPlatform(t *testing.T) {
	assert.Equal(t, Static, HubPlatform(&config.Config{}))
	assert.Equal(t, MQTT, HubPlatform(&config.Config{Hub: config.HubConfig{Broker: "tcp://localhost:1883"}}))
	assert.Equal(t, MQTT, HubPlatform(&config.Config{Hub: config.HubConfig{Platform: "mqtt"}}))
	assert.Equal(t, Static, HubPlatform(&config.Config{Hub: config.HubConfig{Platform: "Static", Broker: "tcp://x:1883"}}))
	assert.Equal(t, "Zigbee", HubPlatform(&config.Config{Hub: config.HubConfig{Platform: "Zigbee"}}))
}
