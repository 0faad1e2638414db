// Package host is the bridge's view of the accessory host runtime: the thing
// that owns accessories, services and characteristics and talks to HomeKit
// controllers. homecontrol implements it on top of brutella/hc.
package host

// ServiceKind names a HomeKit service type
type ServiceKind string

// CharacteristicKind names a HomeKit characteristic type
type CharacteristicKind string

// services used by the bridge
const (
	AccessoryInformation        ServiceKind = "AccessoryInformation"
	Lightbulb                   ServiceKind = "Lightbulb"
	Switch                      ServiceKind = "Switch"
	Outlet                      ServiceKind = "Outlet"
	Fan                         ServiceKind = "Fan"
	Thermostat                  ServiceKind = "Thermostat"
	ContactSensor               ServiceKind = "ContactSensor"
	SmokeSensor                 ServiceKind = "SmokeSensor"
	MotionSensor                ServiceKind = "MotionSensor"
	LeakSensor                  ServiceKind = "LeakSensor"
	TemperatureSensor           ServiceKind = "TemperatureSensor"
	GarageDoorOpener            ServiceKind = "GarageDoorOpener"
	LockMechanism               ServiceKind = "LockMechanism"
	StatelessProgrammableSwitch ServiceKind = "StatelessProgrammableSwitch"
	BatteryService              ServiceKind = "BatteryService"
)

// characteristics used by the bridge
const (
	On                          CharacteristicKind = "On"
	Brightness                  CharacteristicKind = "Brightness"
	RotationSpeed               CharacteristicKind = "RotationSpeed"
	OutletInUse                 CharacteristicKind = "OutletInUse"
	CurrentHeatingCoolingState  CharacteristicKind = "CurrentHeatingCoolingState"
	TargetHeatingCoolingState   CharacteristicKind = "TargetHeatingCoolingState"
	CurrentTemperature          CharacteristicKind = "CurrentTemperature"
	TargetTemperature           CharacteristicKind = "TargetTemperature"
	TemperatureDisplayUnits     CharacteristicKind = "TemperatureDisplayUnits"
	CurrentRelativeHumidity     CharacteristicKind = "CurrentRelativeHumidity"
	CoolingThresholdTemperature CharacteristicKind = "CoolingThresholdTemperature"
	HeatingThresholdTemperature CharacteristicKind = "HeatingThresholdTemperature"
	ContactSensorState          CharacteristicKind = "ContactSensorState"
	StatusTampered              CharacteristicKind = "StatusTampered"
	StatusLowBattery            CharacteristicKind = "StatusLowBattery"
	SmokeDetected               CharacteristicKind = "SmokeDetected"
	MotionDetected              CharacteristicKind = "MotionDetected"
	LeakDetected                CharacteristicKind = "LeakDetected"
	CurrentDoorState            CharacteristicKind = "CurrentDoorState"
	TargetDoorState             CharacteristicKind = "TargetDoorState"
	ObstructionDetected         CharacteristicKind = "ObstructionDetected"
	LockCurrentState            CharacteristicKind = "LockCurrentState"
	LockTargetState             CharacteristicKind = "LockTargetState"
	ProgrammableSwitchEvent     CharacteristicKind = "ProgrammableSwitchEvent"
	BatteryLevel                CharacteristicKind = "BatteryLevel"
	ChargingState               CharacteristicKind = "ChargingState"
	Name                        CharacteristicKind = "Name"
)

// Info is what the AccessoryInformation service shows
type Info struct {
	Name         string
	Manufacturer string
	Model        string
	SerialNumber string
}

// GetFunc answers a controller read
type GetFunc func() (interface{}, error)

// SetFunc handles a controller write; a non-nil error is reported back to the controller
type SetFunc func(v interface{}) error

// Characteristic is one typed value on a service
type Characteristic interface {
	Kind() CharacteristicKind
	// OnGet and OnSet replace any previously installed handler
	OnGet(GetFunc)
	OnSet(SetFunc)
	// UpdateValue stores v and notifies subscribed controllers
	UpdateValue(v interface{})
	Value() interface{}
}

// Service is a set of characteristics. A subtype distinguishes several
// services of the same kind on one accessory.
type Service interface {
	Kind() ServiceKind
	Subtype() string
	Characteristic(kind CharacteristicKind) (Characteristic, bool)
	AddCharacteristic(kind CharacteristicKind) (Characteristic, error)
}

// Accessory is one bridged HomeKit accessory
type Accessory interface {
	UUID() string
	DisplayName() string
	Service(kind ServiceKind, subtype string) (Service, bool)
	AddService(kind ServiceKind, subtype, name string) (Service, error)
	// RemoveService withdraws a service; false if there was none
	RemoveService(kind ServiceKind, subtype string) bool
	SetInfo(Info)
	SetReachable(bool)
	OnIdentify(func())
}

// Runtime is the accessory host: it creates accessories and publishes or
// withdraws them.
type Runtime interface {
	NewAccessory(uuid, name string) Accessory
	Register(accs ...Accessory) error
	Unregister(accs ...Accessory) error
	// Restored returns the accessories the host persisted in a previous run
	Restored() []Accessory
}

// ServiceKey is the identity of a service within an accessory
func ServiceKey(kind ServiceKind, subtype string) string {
	if subtype == "" {
		return string(kind)
	}
	return string(kind) + "." + subtype
}
