package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadJSON(t *testing.T) {
	p := write(t, "server.json", `{
		"Name": "Upstairs",
		"HTTPAddress": ":8080",
		"HCConfig": {"Pin": "00102003", "StoragePath": "db"},
		"Hub": {"Platform": "MQTT", "Broker": "tcp://localhost:1883"},
		"Devices": {"12": {"SetupAs": "outlet"}, "13": {"Skip": true}}
	}`)

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "Upstairs", c.Name)
	assert.Equal(t, "00102003", c.HCConfig.Pin)
	assert.Equal(t, filepath.Join(filepath.Dir(p), "db"), c.HCConfig.StoragePath)
	assert.Equal(t, "MQTT", c.Hub.Platform)
	assert.Equal(t, "almond", c.Hub.TopicPrefix)
	assert.Equal(t, "outlet", c.Devices["12"].Flags().SetupAs)
	assert.True(t, c.Devices["13"].Skip)
}

func TestLoadYAML(t *testing.T) {
	p := write(t, "server.yaml", `
name: Garage
hub:
  platform: Static
  rosterFile: roster.yaml
devices:
  "40":
    hideBatteryInfo: true
`)

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "Garage", c.Name)
	assert.Equal(t, "Static", c.Hub.Platform)
	assert.Equal(t, filepath.Join(filepath.Dir(p), "roster.yaml"), c.Path(c.Hub.RosterFile))
	assert.True(t, c.Devices["40"].Flags().HideBatteryInfo)
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load(write(t, "server.json", `{}`))
	require.NoError(t, err)
	assert.Equal(t, "Almond", c.Name)
	assert.Equal(t, 10, c.Hub.ConnectTimeout)
	assert.NotNil(t, c.Devices)
}

func TestLoadBroken(t *testing.T) {
	_, err := Load(write(t, "server.json", `{`))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
