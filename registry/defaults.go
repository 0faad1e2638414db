package registry

import (
	"fmt"

	"github.com/cloudkucooland/almond-homekit/host"
	"github.com/cloudkucooland/almond-homekit/hub"
	"github.com/cloudkucooland/almond-homekit/transform"
)

func twoState(name string, off, on int) transform.Table {
	return transform.Ordinal(name, off, on)
}

// hub code tables
var (
	contactState = twoState("contact", transform.ContactSensorStateContactDetected, transform.ContactSensorStateContactNotDetected)
	tamperState  = twoState("tamper", transform.StatusTamperedNotTampered, transform.StatusTamperedTampered)
	lowBattery   = twoState("low battery", transform.StatusLowBatteryNormal, transform.StatusLowBatteryLow)
	smokeState   = twoState("smoke", transform.SmokeDetectedNotDetected, transform.SmokeDetectedDetected)
	leakState    = twoState("leak", transform.LeakDetectedNotDetected, transform.LeakDetectedDetected)

	operatingState = transform.Keyed("operating state", map[string]int{
		"Idle":    transform.CurrentHeatingCoolingStateOff,
		"Heating": transform.CurrentHeatingCoolingStateHeat,
		"Cooling": transform.CurrentHeatingCoolingStateCool,
	})
	thermostatMode = transform.Keyed("thermostat mode", map[string]int{
		"Off":  transform.TargetHeatingCoolingStateOff,
		"Heat": transform.TargetHeatingCoolingStateHeat,
		"Cool": transform.TargetHeatingCoolingStateCool,
		"Auto": transform.TargetHeatingCoolingStateAuto,
	})

	// barrier operator codes: 0 closed, 252 closing, 253 stopped, 254 opening, 255 open
	doorState = transform.Keyed("barrier operator", map[string]int{
		"0":   transform.CurrentDoorStateClosed,
		"252": transform.CurrentDoorStateClosing,
		"253": transform.CurrentDoorStateStopped,
		"254": transform.CurrentDoorStateOpening,
		"255": transform.CurrentDoorStateOpen,
	})
	// the hub has no target, it is implied by motion; a stopped door reads as closed
	doorTarget = transform.Keyed("barrier target", map[string]int{
		"0":   transform.TargetDoorStateClosed,
		"252": transform.TargetDoorStateClosed,
		"253": transform.TargetDoorStateClosed,
		"254": transform.TargetDoorStateOpen,
		"255": transform.TargetDoorStateOpen,
	})
	doorCommand = transform.Keyed("barrier command", map[string]int{
		"0":   transform.TargetDoorStateClosed,
		"255": transform.TargetDoorStateOpen,
	})

	clickPress = transform.Keyed("click press", map[string]int{
		"3": transform.ProgrammableSwitchEventSinglePress,
		"0": transform.ProgrammableSwitchEventDoublePress,
		"2": transform.ProgrammableSwitchEventLongPress,
	})

	// HomeKit has an explicit unknown lock state; codes between the two
	// z-wave extremes (partially secured, timeouts) land there.
	lockCurrent = transform.Keyed("lock state", map[string]int{
		"0":   transform.LockCurrentStateUnsecured,
		"255": transform.LockCurrentStateSecured,
	}).WithFallback(transform.LockCurrentStateUnknown)
	lockTarget = transform.Keyed("lock target", map[string]int{
		"0":   transform.LockTargetStateUnsecured,
		"255": transform.LockTargetStateSecured,
	})
)

const (
	fanOn   = "On Low"
	fanAuto = "Auto Low"

	lowBatteryLevel = 20
)

var restoreLevel = &transform.DefaultRestorePolicy

// Default returns the registry of every device kind the bridge knows
func Default() *Registry {
	r := New()

	r.Register(Entry{Name: "MultilevelSwitch", Type: hub.TypeMultilevelSwitch, Build: dimmer})
	r.Register(Entry{Name: "MultilevelSwitchOnOff", Type: hub.TypeMultilevelSwitchOnOff, Build: dimmer255})
	r.Register(Entry{Name: "Thermostat", Type: hub.TypeThermostat, Build: thermostat})
	r.Register(Entry{Name: "ContactSwitch", Type: hub.TypeContactSwitch, Build: contactSensor})
	r.Register(Entry{Name: "FireSensor", Type: hub.TypeFireSensor, Build: fireSensor})
	r.Register(Entry{Name: "SmokeDetector", Type: hub.TypeSmokeDetector, Build: smokeDetector})
	r.Register(Entry{Name: "GarageDoorOpener", Type: hub.TypeGarageDoorOpener, Build: garageDoor})
	r.Register(Entry{Name: "GenericPSM (GE fan)", Type: hub.TypeGenericPSM, Quirk: geFanControl, Build: fan})
	r.Register(Entry{Name: "AlmondClick", Type: hub.TypeAlmondClick, Build: click})
	r.Register(Entry{Name: "MotionSensor", Type: hub.TypeMotionSensor, Build: motionSensor})
	r.Register(Entry{Name: "WaterSensor", Type: hub.TypeWaterSensor, Build: leakSensor})
	r.Register(Entry{Name: "FloodSensor", Type: hub.TypeFloodSensor, Build: leakSensor})
	r.Register(Entry{Name: "DoorLock", Type: hub.TypeDoorLock, Build: doorLock})
	r.Register(Entry{Name: "TemperatureSensor", Type: hub.TypeTemperatureSensor, Build: temperatureSensor})
	r.Register(Entry{Name: "MultiSwitch", Type: hub.TypeMultiSwitch, Build: multiSwitch})

	for _, t := range []hub.DeviceType{hub.TypeBinarySwitch, hub.TypeUnknownOnOffModule} {
		r.Register(Entry{Name: "BinarySwitch", Type: t, Build: binarySwitch})
		r.Register(Entry{Name: "BinarySwitch (outlet)", Type: t, SetupAs: "outlet", Build: outlet})
	}

	r.RegisterFallback(Fallback{Name: "generic switch", Property: "SwitchBinary", Build: binarySwitch})
	r.RegisterFallback(Fallback{Name: "generic dimmer", Property: "SwitchMultilevel", Build: dimmer})
	r.RegisterFallback(Fallback{Name: "generic temperature sensor", Property: "Temperature", Build: temperatureSensor})

	r.battery = battery
	return r
}

// GE fan controllers report as generic PSMs with a placeholder model
func geFanControl(info hub.Info) bool {
	return info.Manufacturer == "GE" && info.Model == "Unknown: type=4944,"
}

func dimmer(hub.Info) []Binding {
	return []Binding{
		{Service: host.Lightbulb, Characteristic: host.On, Property: "SwitchMultilevel",
			Get: levelOn, Set: setLevelOn("SwitchMultilevel"), Update: levelOnUpdate, Restore: restoreLevel},
		{Service: host.Lightbulb, Characteristic: host.Brightness, Property: "SwitchMultilevel",
			Get: getInt, Set: setLevel("SwitchMultilevel"), Update: levelUpdate, Restore: restoreLevel},
	}
}

func dimmer255(hub.Info) []Binding {
	return []Binding{
		{Service: host.Lightbulb, Characteristic: host.On, Property: "SwitchBinary",
			Get: getBool, Set: setBool("SwitchBinary"), Update: getBool},
		{Service: host.Lightbulb, Characteristic: host.Brightness, Property: "SwitchMultilevel",
			Get: getScaled(transform.Percent255), Set: setScaled("SwitchMultilevel", transform.Percent255), Update: getScaled(transform.Percent255)},
	}
}

func fan(hub.Info) []Binding {
	return []Binding{
		{Service: host.Fan, Characteristic: host.On, Property: "SwitchMultilevel",
			Get: levelOn, Set: setLevelOn("SwitchMultilevel"), Update: levelOnUpdate, Restore: restoreLevel},
		{Service: host.Fan, Characteristic: host.RotationSpeed, Property: "SwitchMultilevel",
			Get: getInt, Set: setLevel("SwitchMultilevel"), Update: levelUpdate, Restore: restoreLevel},
	}
}

func binarySwitch(hub.Info) []Binding {
	return []Binding{
		{Service: host.Switch, Characteristic: host.On, Property: "SwitchBinary",
			Get: getBool, Set: setBool("SwitchBinary"), Update: getBool},
	}
}

func outlet(hub.Info) []Binding {
	return []Binding{
		{Service: host.Outlet, Characteristic: host.On, Property: "SwitchBinary",
			Get: getBool, Set: setBool("SwitchBinary"), Update: getBool},
		{Service: host.Outlet, Characteristic: host.OutletInUse, Property: "SwitchBinary",
			Get: getBool, Update: getBool},
	}
}

func multiSwitch(hub.Info) []Binding {
	var out []Binding
	for _, n := range []string{"1", "2"} {
		prop := "SwitchBinary" + n
		out = append(out, Binding{Service: host.Switch, Subtype: n, NameSuffix: " " + n, Characteristic: host.On,
			Property: prop, Get: getBool, Set: setBool(prop), Update: getBool})
	}
	return out
}

func click(hub.Info) []Binding {
	return []Binding{
		{Service: host.StatelessProgrammableSwitch, Characteristic: host.ProgrammableSwitchEvent, Property: "Press",
			Get: getTable(clickPress), Update: getTable(clickPress), Event: true},
	}
}

// sensor builds the usual state + tamper + low battery trio
func sensor(kind host.ServiceKind, char host.CharacteristicKind, state transform.Table) []Binding {
	return []Binding{
		{Service: kind, Characteristic: char, Property: "State", Get: getTable(state), Update: getTable(state)},
		{Service: kind, Characteristic: host.StatusTampered, Property: "Tamper", Get: getTable(tamperState), Update: getTable(tamperState)},
		{Service: kind, Characteristic: host.StatusLowBattery, Property: "LowBattery", Get: getTable(lowBattery), Update: getTable(lowBattery)},
	}
}

func contactSensor(hub.Info) []Binding {
	return sensor(host.ContactSensor, host.ContactSensorState, contactState)
}

func fireSensor(hub.Info) []Binding {
	return sensor(host.SmokeSensor, host.SmokeDetected, smokeState)
}

func leakSensor(hub.Info) []Binding {
	return sensor(host.LeakSensor, host.LeakDetected, leakState)
}

func motionSensor(hub.Info) []Binding {
	b := sensor(host.MotionSensor, host.MotionDetected, transform.Table{})
	b[0].Get, b[0].Update = getBool, getBool
	return b
}

func smokeDetector(hub.Info) []Binding {
	smoke := func(v hub.Value, _ State) (interface{}, error) {
		i, err := v.Int()
		if err != nil {
			return nil, err
		}
		if i > 0 {
			return transform.SmokeDetectedDetected, nil
		}
		return transform.SmokeDetectedNotDetected, nil
	}
	low := belowOrEqual(lowBatteryLevel, transform.StatusLowBatteryLow, transform.StatusLowBatteryNormal)
	return []Binding{
		{Service: host.SmokeSensor, Characteristic: host.SmokeDetected, Property: "Status", Get: smoke, Update: smoke},
		{Service: host.SmokeSensor, Characteristic: host.StatusLowBattery, Property: "Battery", Get: low, Update: low},
	}
}

func temperatureSensor(hub.Info) []Binding {
	return []Binding{
		{Service: host.TemperatureSensor, Characteristic: host.CurrentTemperature, Property: "Temperature",
			Get: getTemperature, Update: getTemperature, Triggers: []string{"Units"}},
	}
}

func garageDoor(hub.Info) []Binding {
	// a stopped door has no target worth announcing
	targetUpdate := func(v hub.Value, st State) (interface{}, error) {
		if v.String() == "253" {
			return nil, transform.ErrSuppress
		}
		return doorTarget.Map(v)
	}
	obstruction := func(v hub.Value, _ State) (interface{}, error) {
		if _, err := doorState.Map(v); err != nil {
			return nil, err
		}
		return v.String() == "253", nil
	}
	// moving doors keep whatever obstruction state they had
	obstructionUpdate := func(v hub.Value, st State) (interface{}, error) {
		switch v.String() {
		case "252", "254":
			return nil, transform.ErrSuppress
		}
		return obstruction(v, st)
	}
	return []Binding{
		{Service: host.GarageDoorOpener, Characteristic: host.CurrentDoorState, Property: "BarrierOperator",
			Get: getTable(doorState), Update: getTable(doorState)},
		{Service: host.GarageDoorOpener, Characteristic: host.TargetDoorState, Property: "BarrierOperator",
			Get: getTable(doorTarget.WithFallback(transform.TargetDoorStateClosed)), Set: setTable("BarrierOperator", doorCommand), Update: targetUpdate},
		{Service: host.GarageDoorOpener, Characteristic: host.ObstructionDetected, Property: "BarrierOperator",
			Get: obstruction, Update: obstructionUpdate},
	}
}

func doorLock(hub.Info) []Binding {
	return []Binding{
		{Service: host.LockMechanism, Characteristic: host.LockCurrentState, Property: "LockState",
			Get: getTable(lockCurrent), Update: getTable(lockCurrent)},
		{Service: host.LockMechanism, Characteristic: host.LockTargetState, Property: "LockState",
			Get: getTable(lockTarget), Set: setTable("LockState", lockTarget), Update: getTable(lockTarget)},
	}
}

func battery(info hub.Info) []Binding {
	if _, ok := info.Props["Battery"]; !ok {
		return nil
	}
	level := func(v hub.Value, _ State) (interface{}, error) {
		i, err := v.Int()
		if err != nil {
			return nil, err
		}
		if i < 0 || i > 100 {
			return nil, fmt.Errorf("battery %d: %w", i, transform.ErrUnmappedValue)
		}
		return i, nil
	}
	low := belowOrEqual(lowBatteryLevel, transform.StatusLowBatteryLow, transform.StatusLowBatteryNormal)
	return []Binding{
		{Service: host.BatteryService, Characteristic: host.BatteryLevel, Property: "Battery", Get: level, Update: level},
		{Service: host.BatteryService, Characteristic: host.StatusLowBattery, Property: "Battery", Get: low, Update: low},
		{Service: host.BatteryService, Characteristic: host.ChargingState, Get: constant(transform.ChargingStateNotChargeable)},
	}
}
