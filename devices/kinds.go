package devices

import (
	"fmt"

	"github.com/brutella/hc/characteristic"
	"github.com/brutella/hc/service"

	"github.com/cloudkucooland/almond-homekit/host"
)

var serviceTypes = map[host.ServiceKind]string{
	host.AccessoryInformation:        service.TypeAccessoryInformation,
	host.Lightbulb:                   service.TypeLightbulb,
	host.Switch:                      service.TypeSwitch,
	host.Outlet:                      service.TypeOutlet,
	host.Fan:                         service.TypeFan,
	host.Thermostat:                  service.TypeThermostat,
	host.ContactSensor:               service.TypeContactSensor,
	host.SmokeSensor:                 service.TypeSmokeSensor,
	host.MotionSensor:                service.TypeMotionSensor,
	host.LeakSensor:                  service.TypeLeakSensor,
	host.TemperatureSensor:           service.TypeTemperatureSensor,
	host.GarageDoorOpener:            service.TypeGarageDoorOpener,
	host.LockMechanism:               service.TypeLockMechanism,
	host.StatelessProgrammableSwitch: service.TypeStatelessProgrammableSwitch,
	host.BatteryService:              service.TypeBatteryService,
}

var characteristics = map[host.CharacteristicKind]func() *characteristic.Characteristic{
	host.On:                          func() *characteristic.Characteristic { return characteristic.NewOn().Characteristic },
	host.Brightness:                  func() *characteristic.Characteristic { return characteristic.NewBrightness().Characteristic },
	host.RotationSpeed:               func() *characteristic.Characteristic { return characteristic.NewRotationSpeed().Characteristic },
	host.OutletInUse:                 func() *characteristic.Characteristic { return characteristic.NewOutletInUse().Characteristic },
	host.CurrentHeatingCoolingState:  func() *characteristic.Characteristic { return characteristic.NewCurrentHeatingCoolingState().Characteristic },
	host.TargetHeatingCoolingState:   func() *characteristic.Characteristic { return characteristic.NewTargetHeatingCoolingState().Characteristic },
	host.CurrentTemperature:          func() *characteristic.Characteristic { return characteristic.NewCurrentTemperature().Characteristic },
	host.TargetTemperature:           func() *characteristic.Characteristic { return characteristic.NewTargetTemperature().Characteristic },
	host.TemperatureDisplayUnits:     func() *characteristic.Characteristic { return characteristic.NewTemperatureDisplayUnits().Characteristic },
	host.CurrentRelativeHumidity:     func() *characteristic.Characteristic { return characteristic.NewCurrentRelativeHumidity().Characteristic },
	host.CoolingThresholdTemperature: func() *characteristic.Characteristic { return characteristic.NewCoolingThresholdTemperature().Characteristic },
	host.HeatingThresholdTemperature: func() *characteristic.Characteristic { return characteristic.NewHeatingThresholdTemperature().Characteristic },
	host.ContactSensorState:          func() *characteristic.Characteristic { return characteristic.NewContactSensorState().Characteristic },
	host.StatusTampered:              func() *characteristic.Characteristic { return characteristic.NewStatusTampered().Characteristic },
	host.StatusLowBattery:            func() *characteristic.Characteristic { return characteristic.NewStatusLowBattery().Characteristic },
	host.SmokeDetected:               func() *characteristic.Characteristic { return characteristic.NewSmokeDetected().Characteristic },
	host.MotionDetected:              func() *characteristic.Characteristic { return characteristic.NewMotionDetected().Characteristic },
	host.LeakDetected:                func() *characteristic.Characteristic { return characteristic.NewLeakDetected().Characteristic },
	host.CurrentDoorState:            func() *characteristic.Characteristic { return characteristic.NewCurrentDoorState().Characteristic },
	host.TargetDoorState:             func() *characteristic.Characteristic { return characteristic.NewTargetDoorState().Characteristic },
	host.ObstructionDetected:         func() *characteristic.Characteristic { return characteristic.NewObstructionDetected().Characteristic },
	host.LockCurrentState:            func() *characteristic.Characteristic { return characteristic.NewLockCurrentState().Characteristic },
	host.LockTargetState:             func() *characteristic.Characteristic { return characteristic.NewLockTargetState().Characteristic },
	host.ProgrammableSwitchEvent:     func() *characteristic.Characteristic { return characteristic.NewProgrammableSwitchEvent().Characteristic },
	host.BatteryLevel:                func() *characteristic.Characteristic { return characteristic.NewBatteryLevel().Characteristic },
	host.ChargingState:               func() *characteristic.Characteristic { return characteristic.NewChargingState().Characteristic },
	host.Name:                        func() *characteristic.Characteristic { return characteristic.NewName().Characteristic },
}

// NewService creates an empty hc service of the given kind. Named services
// get a Name characteristic so controllers can tell siblings apart.
func NewService(kind host.ServiceKind, name string) (*service.Service, error) {
	typ, ok := serviceTypes[kind]
	if !ok {
		return nil, fmt.Errorf("unknown service kind %s", kind)
	}
	svc := service.New(typ)
	if name != "" {
		n := characteristic.NewName()
		n.SetValue(name)
		svc.AddCharacteristic(n.Characteristic)
	}
	return svc, nil
}

// NewCharacteristic creates an hc characteristic of the given kind
func NewCharacteristic(kind host.CharacteristicKind) (*characteristic.Characteristic, error) {
	fn, ok := characteristics[kind]
	if !ok {
		return nil, fmt.Errorf("unknown characteristic kind %s", kind)
	}
	return fn(), nil
}
