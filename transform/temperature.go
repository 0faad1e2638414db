package transform

import "math"

// hub unit flags
const (
	UnitsCelsius    = "C"
	UnitsFahrenheit = "F"
)

// ToCapabilityTemperature converts a hub temperature in the hub's current
// units to Celsius, rounded to one decimal place.
func ToCapabilityTemperature(raw float64, units string) float64 {
	if units == UnitsFahrenheit {
		raw = (raw - 32) / 1.8
	}
	return RoundTo(raw, 1)
}

// ToHubTemperature converts Celsius to the hub's current units, rounded to
// a whole degree, which is all the hub stores.
func ToHubTemperature(celsius float64, units string) int {
	if units == UnitsFahrenheit {
		return int(math.Round(celsius*1.8 + 32))
	}
	return int(math.Round(celsius))
}

// DisplayUnits maps the hub unit flag to TemperatureDisplayUnits
func DisplayUnits(units string) (int, error) {
	switch units {
	case UnitsCelsius:
		return TemperatureDisplayUnitsCelsius, nil
	case UnitsFahrenheit:
		return TemperatureDisplayUnitsFahrenheit, nil
	}
	return 0, ErrUnmappedValue
}
