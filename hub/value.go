package hub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Value is a raw property value as the hub reports it. The Almond+ sends
// everything as strings ("true", "255", "Heat"), so that is what we keep;
// the typed views below do the parsing at the point of use.
type Value string

// IntValue builds a Value from an integer
func IntValue(i int) Value {
	return Value(strconv.Itoa(i))
}

// BoolValue builds a Value from a boolean
func BoolValue(b bool) Value {
	return Value(strconv.FormatBool(b))
}

// StringValue builds a Value from a string
func StringValue(s string) Value {
	return Value(s)
}

// String returns the raw value
func (v Value) String() string {
	return string(v)
}

// IsZero is true for a property that has never reported a value
func (v Value) IsZero() bool {
	return v == ""
}

// Int parses the value as a (possibly fractional) number and rounds it
func (v Value) Int() (int, error) {
	s := strings.TrimSpace(string(v))
	if i, err := strconv.Atoi(s); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return int(f - 0.5), nil
	}
	return int(f + 0.5), nil
}

// Float parses the value as a number
func (v Value) Float() (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
}

// Bool parses the value as a boolean; numeric values are true when nonzero
func (v Value) Bool() (bool, error) {
	s := strings.ToLower(strings.TrimSpace(string(v)))
	switch s {
	case "true", "on", "yes":
		return true, nil
	case "false", "off", "no":
		return false, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false, err
	}
	return f != 0, nil
}

// UnmarshalJSON accepts strings as well as bare numbers and booleans, which
// is how hand-written roster files and most gateways spell them
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Value(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*v = ""
		return nil
	}
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch raw.(type) {
	case bool, float64:
		*v = Value(string(b))
		return nil
	}
	return fmt.Errorf("property value %s: not a scalar", b)
}
