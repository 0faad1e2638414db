package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brutella/hc"
	"gopkg.in/yaml.v3"

	"github.com/cloudkucooland/almond-homekit/registry"
)

// Config is the primary daemon configuration...
type Config struct {
	ConfigDir   string                  `json:"-" yaml:"-"` // passed in from CLI
	ConfigFile  string                  `json:"-" yaml:"-"` // server.json
	HTTPAddress string                  `yaml:"httpAddress"` // net.Dial address format, :port is good enough
	Name        string                  `yaml:"name"`        // what this bridge shows as
	ID          string                  `yaml:"id"`          // displayed serial number -- if you run multiple instances, make sure each has a distinct ID
	HCConfig    hc.Config               `yaml:"hcConfig"`    // base HomeControl configuration
	Hub         HubConfig               `yaml:"hub"`
	Devices     map[string]DeviceConfig `yaml:"devices"` // per-device overrides, keyed by hub device id
}

// HubConfig selects and configures the hub platform
type HubConfig struct {
	Platform       string `yaml:"platform"` // "MQTT" or "Static"
	Broker         string `yaml:"broker"`   // tcp://host:1883
	ClientID       string `yaml:"clientId"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	TopicPrefix    string `yaml:"topicPrefix"`    // defaults to "almond"
	ConnectTimeout int    `yaml:"connectTimeout"` // seconds
	RosterFile     string `yaml:"rosterFile"`     // Static: device list, relative to the config dir
}

// DeviceConfig are the user's overrides for one device
type DeviceConfig struct {
	Skip            bool   `yaml:"skip"`
	SetupAs         string `yaml:"setupAs"` // "outlet" publishes binary switches as outlets
	HideBatteryInfo bool   `yaml:"hideBatteryInfo"`
}

// Flags is the part of the overrides the registry looks at
func (d DeviceConfig) Flags() registry.Flags {
	return registry.Flags{SetupAs: d.SetupAs, HideBatteryInfo: d.HideBatteryInfo}
}

const (
	defaultName        = "Almond"
	defaultTopicPrefix = "almond"
	defaultTimeout     = 10
)

// Load reads a JSON or YAML config file, chosen by extension
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &c)
	default:
		err = json.Unmarshal(raw, &c)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	c.ConfigDir = filepath.Dir(path)
	c.ConfigFile = path
	c.defaults()
	return &c, nil
}

func (c *Config) defaults() {
	if c.Name == "" {
		c.Name = defaultName
	}
	if c.Hub.TopicPrefix == "" {
		c.Hub.TopicPrefix = defaultTopicPrefix
	}
	if c.Hub.ConnectTimeout == 0 {
		c.Hub.ConnectTimeout = defaultTimeout
	}
	if c.Hub.ClientID == "" {
		c.Hub.ClientID = "almond-homekit-" + c.Name
	}
	if c.Devices == nil {
		c.Devices = make(map[string]DeviceConfig)
	}
	if c.HCConfig.StoragePath != "" && !filepath.IsAbs(c.HCConfig.StoragePath) {
		c.HCConfig.StoragePath = filepath.Join(c.ConfigDir, c.HCConfig.StoragePath)
	}
}

// Path resolves a file name relative to the config directory
func (c *Config) Path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.ConfigDir, name)
}

var runningConfig *Config

// Get a pointer to the global config
func Get() *Config {
	return runningConfig
}

// should only be called by the bootstrap
func Set(c *Config) {
	runningConfig = c
}
