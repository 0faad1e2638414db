package transform

import (
	"fmt"
	"math"
	"strconv"
)

// Int coerces a characteristic value to an int. The host hands us whatever
// the controller sent, which may be an int, a float64 or a json.Number-ish string.
func Int(cv interface{}) (int, error) {
	switch v := cv.(type) {
	case int:
		return v, nil
	case int8:
		return int(v), nil
	case int16:
		return int(v), nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint8:
		return int(v), nil
	case uint16:
		return int(v), nil
	case uint32:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float32:
		return int(math.Round(float64(v))), nil
	case float64:
		return int(math.Round(v)), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, err
		}
		return int(math.Round(f)), nil
	}
	return 0, fmt.Errorf("cannot use %v (%T) as int", cv, cv)
}

// Float coerces a characteristic value to a float64
func Float(cv interface{}) (float64, error) {
	switch v := cv.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	}
	i, err := Int(cv)
	return float64(i), err
}

// Bool coerces a characteristic value to a bool
func Bool(cv interface{}) (bool, error) {
	switch v := cv.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	}
	i, err := Int(cv)
	return i != 0, err
}

// RoundTo rounds to the given number of decimal places
func RoundTo(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}
