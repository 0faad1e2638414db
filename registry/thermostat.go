package registry

import (
	"github.com/cloudkucooland/almond-homekit/host"
	"github.com/cloudkucooland/almond-homekit/hub"
	"github.com/cloudkucooland/almond-homekit/transform"
)

// The hub keeps separate heating and cooling setpoints; HomeKit has a single
// target temperature whose meaning depends on the mode. Thresholds are only
// writable in Auto, where both setpoints matter. Units are fixed at the hub.
func thermostat(hub.Info) []Binding {
	return []Binding{
		{Service: host.Thermostat, Characteristic: host.CurrentHeatingCoolingState, Property: "OperatingState",
			Get: getTable(operatingState), Update: getTable(operatingState)},
		{Service: host.Thermostat, Characteristic: host.TargetHeatingCoolingState, Property: "Mode",
			Get: getTable(thermostatMode), Set: setTable("Mode", thermostatMode), Update: getTable(thermostatMode)},
		{Service: host.Thermostat, Characteristic: host.CurrentTemperature, Property: "Temperature",
			Get: getTemperature, Update: getTemperature, Triggers: []string{"Units"}},
		{Service: host.Thermostat, Characteristic: host.TargetTemperature, Property: "Mode",
			Get: targetTemperature, Set: setTargetTemperature, Update: targetTemperature,
			Triggers: []string{"SetpointHeating", "SetpointCooling", "Units"}},
		{Service: host.Thermostat, Characteristic: host.TemperatureDisplayUnits, Property: "Units",
			Get: displayUnits, Set: ignoreWrite, Update: displayUnits},
		{Service: host.Thermostat, Characteristic: host.CurrentRelativeHumidity, Property: "Humidity",
			Get: getHumidity, Update: getHumidity},
		{Service: host.Thermostat, Characteristic: host.CoolingThresholdTemperature, Property: "SetpointCooling",
			Get: getTemperature, Set: setThreshold("SetpointCooling"), Update: getTemperature, Triggers: []string{"Units"}},
		{Service: host.Thermostat, Characteristic: host.HeatingThresholdTemperature, Property: "SetpointHeating",
			Get: getTemperature, Set: setThreshold("SetpointHeating"), Update: getTemperature, Triggers: []string{"Units"}},
		{Service: host.Fan, NameSuffix: " Fan", Characteristic: host.On, Property: "FanMode",
			Get: fanMode, Set: setFanMode, Update: fanMode},
	}
}

func mode(st State) string {
	if v, ok := st.Value("Mode"); ok {
		return v.String()
	}
	return ""
}

func setpoint(st State, prop string) (float64, error) {
	v, _ := st.Value(prop)
	return v.Float()
}

// targetTemperature is the active setpoint, or the midpoint when none is
func targetTemperature(m hub.Value, st State) (interface{}, error) {
	var raw float64
	switch m.String() {
	case "Heat":
		h, err := setpoint(st, "SetpointHeating")
		if err != nil {
			return nil, err
		}
		raw = h
	case "Cool":
		c, err := setpoint(st, "SetpointCooling")
		if err != nil {
			return nil, err
		}
		raw = c
	default:
		h, err := setpoint(st, "SetpointHeating")
		if err != nil {
			return nil, err
		}
		c, err := setpoint(st, "SetpointCooling")
		if err != nil {
			return nil, err
		}
		raw = transform.RoundTo((h+c)/2, 1)
	}
	return transform.ToCapabilityTemperature(raw, units(st)), nil
}

func setTargetTemperature(cv interface{}, st State) ([]Write, error) {
	switch mode(st) {
	case "Heat":
		return tempWrite("SetpointHeating", cv, st)
	case "Cool":
		return tempWrite("SetpointCooling", cv, st)
	}
	// Off and Auto have no single setpoint to move
	return nil, nil
}

func setThreshold(prop string) SetFunc {
	return func(cv interface{}, st State) ([]Write, error) {
		if mode(st) != "Auto" {
			return nil, nil
		}
		return tempWrite(prop, cv, st)
	}
}

func displayUnits(v hub.Value, _ State) (interface{}, error) {
	return transform.DisplayUnits(v.String())
}

func ignoreWrite(interface{}, State) ([]Write, error) {
	return nil, nil
}

func getHumidity(v hub.Value, _ State) (interface{}, error) {
	f, err := v.Float()
	if err != nil {
		return nil, err
	}
	return transform.RoundTo(f, 0), nil
}

func fanMode(v hub.Value, _ State) (interface{}, error) {
	return v.String() == fanOn, nil
}

func setFanMode(cv interface{}, _ State) ([]Write, error) {
	on, err := transform.Bool(cv)
	if err != nil {
		return nil, err
	}
	if on {
		return []Write{{Property: "FanMode", Value: hub.StringValue(fanOn)}}, nil
	}
	return []Write{{Property: "FanMode", Value: hub.StringValue(fanAuto)}}, nil
}
