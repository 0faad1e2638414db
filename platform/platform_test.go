package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudkucooland/almond-homekit/config"
	"github.com/cloudkucooland/almond-homekit/hub"
)

type fake struct {
	log *[]string
	tag string
}

func (f fake) Startup(*config.Config) Control {
	*f.log = append(*f.log, "start "+f.tag)
	return f
}

func (f fake) Background() {
	*f.log = append(*f.log, "bg "+f.tag)
}

func (f fake) Shutdown() Control {
	*f.log = append(*f.log, "stop "+f.tag)
	return f
}

type fakeHub struct{ fake }

func (fakeHub) Client() hub.Client { return nil }

func TestLifecycleOrder(t *testing.T) {
	reset()
	defer reset()

	var calls []string
	RegisterPlatform("HTTP", fake{&calls, "http"})
	RegisterPlatform("Static", fakeHub{fake{&calls, "static"}})
	RegisterPlatform("HTTP", fake{&calls, "dup"})

	StartupAllPlatforms(&config.Config{})
	Background()
	ShutdownAllPlatforms()

	assert.Equal(t, []string{
		"start http", "start static",
		"bg http", "bg static",
		"stop static", "stop http",
	}, calls)
	assert.Equal(t, []string{"HTTP", "Static"}, Names())
}

func TestGetHub(t *testing.T) {
	reset()
	defer reset()

	var calls []string
	RegisterPlatform("HTTP", fake{&calls, "http"})
	RegisterPlatform("Static", fakeHub{fake{&calls, "static"}})

	_, ok := GetHub("HTTP")
	assert.False(t, ok)
	h, ok := GetHub("Static")
	require.True(t, ok)
	assert.Nil(t, h.Client())
	_, ok = GetHub("MQTT")
	assert.False(t, ok)
}
