package transform

// HomeKit characteristic values, as the accessory protocol defines them.
const (
	CurrentDoorStateOpen    = 0
	CurrentDoorStateClosed  = 1
	CurrentDoorStateOpening = 2
	CurrentDoorStateClosing = 3
	CurrentDoorStateStopped = 4

	TargetDoorStateOpen   = 0
	TargetDoorStateClosed = 1

	CurrentHeatingCoolingStateOff  = 0
	CurrentHeatingCoolingStateHeat = 1
	CurrentHeatingCoolingStateCool = 2

	TargetHeatingCoolingStateOff  = 0
	TargetHeatingCoolingStateHeat = 1
	TargetHeatingCoolingStateCool = 2
	TargetHeatingCoolingStateAuto = 3

	TemperatureDisplayUnitsCelsius    = 0
	TemperatureDisplayUnitsFahrenheit = 1

	ContactSensorStateContactDetected    = 0
	ContactSensorStateContactNotDetected = 1

	StatusTamperedNotTampered = 0
	StatusTamperedTampered    = 1

	StatusLowBatteryNormal = 0
	StatusLowBatteryLow    = 1

	SmokeDetectedNotDetected = 0
	SmokeDetectedDetected    = 1

	LeakDetectedNotDetected = 0
	LeakDetectedDetected    = 1

	ProgrammableSwitchEventSinglePress = 0
	ProgrammableSwitchEventDoublePress = 1
	ProgrammableSwitchEventLongPress   = 2

	ChargingStateNotCharging   = 0
	ChargingStateCharging      = 1
	ChargingStateNotChargeable = 2

	LockCurrentStateUnsecured = 0
	LockCurrentStateSecured   = 1
	LockCurrentStateJammed    = 2
	LockCurrentStateUnknown   = 3

	LockTargetStateUnsecured = 0
	LockTargetStateSecured   = 1
)
