package hub

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DeviceType is the hub's numeric device-kind code
type DeviceType int

// Almond+ device personalities
const (
	TypeUnknown                 DeviceType = 0
	TypeBinarySwitch            DeviceType = 1
	TypeMultilevelSwitch        DeviceType = 2
	TypeBinarySensor            DeviceType = 3
	TypeMultilevelSwitchOnOff   DeviceType = 4
	TypeDoorLock                DeviceType = 5
	TypeAlarm                   DeviceType = 6
	TypeThermostat              DeviceType = 7
	TypeController              DeviceType = 8
	TypeSceneController         DeviceType = 9
	TypeStandardCIE             DeviceType = 10
	TypeMotionSensor            DeviceType = 11
	TypeContactSwitch           DeviceType = 12
	TypeFireSensor              DeviceType = 13
	TypeWaterSensor             DeviceType = 14
	TypeGasSensor               DeviceType = 15
	TypeTemperatureSensor       DeviceType = 27
	TypeSmokeDetector           DeviceType = 36
	TypeFloodSensor             DeviceType = 37
	TypeMultiSwitch             DeviceType = 43
	TypeUnknownOnOffModule      DeviceType = 44
	TypeGarageDoorOpener        DeviceType = 53
	TypeGenericPSM              DeviceType = 60
	TypeAlmondClick             DeviceType = 61
)

var typeNames = map[DeviceType]string{
	TypeUnknown:               "Unknown",
	TypeBinarySwitch:          "BinarySwitch",
	TypeMultilevelSwitch:      "MultilevelSwitch",
	TypeBinarySensor:          "BinarySensor",
	TypeMultilevelSwitchOnOff: "MultilevelSwitchOnOff",
	TypeDoorLock:              "DoorLock",
	TypeAlarm:                 "Alarm",
	TypeThermostat:            "Thermostat",
	TypeController:            "Controller",
	TypeSceneController:       "SceneController",
	TypeStandardCIE:           "StandardCIE",
	TypeMotionSensor:          "MotionSensor",
	TypeContactSwitch:         "ContactSwitch",
	TypeFireSensor:            "FireSensor",
	TypeWaterSensor:           "WaterSensor",
	TypeGasSensor:             "GasSensor",
	TypeTemperatureSensor:     "TemperatureSensor",
	TypeSmokeDetector:         "SmokeDetector",
	TypeFloodSensor:           "FloodSensor",
	TypeMultiSwitch:           "MultiSwitch",
	TypeUnknownOnOffModule:    "UnknownOnOffModule",
	TypeGarageDoorOpener:      "GarageDoorOpener",
	TypeGenericPSM:            "GenericPSM",
	TypeAlmondClick:           "AlmondClick",
}

func (t DeviceType) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return strconv.Itoa(int(t))
}

// ParseDeviceType accepts the numeric code or the friendly personality name
func ParseDeviceType(s string) (DeviceType, error) {
	if i, err := strconv.Atoi(s); err == nil {
		return DeviceType(i), nil
	}
	for t, n := range typeNames {
		if n == s {
			return t, nil
		}
	}
	return TypeUnknown, fmt.Errorf("unknown device type %q", s)
}

// UnmarshalJSON lets roster files use either 12 or "ContactSwitch"
func (t *DeviceType) UnmarshalJSON(b []byte) error {
	var i int
	if err := json.Unmarshal(b, &i); err == nil {
		*t = DeviceType(i)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	pt, err := ParseDeviceType(s)
	if err != nil {
		return err
	}
	*t = pt
	return nil
}

// UnmarshalYAML is the YAML counterpart of UnmarshalJSON
func (t *DeviceType) UnmarshalYAML(n *yaml.Node) error {
	pt, err := ParseDeviceType(n.Value)
	if err != nil {
		return err
	}
	*t = pt
	return nil
}
