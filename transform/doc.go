// Package transform converts between hub-native values (raw strings,
// ordinal codes, 0-255 levels, Fahrenheit) and the values HomeKit
// characteristics carry (booleans, percentages, enumerated states, Celsius).
//
// Everything here is a pure function except RestoreCell, which remembers
// the last nonzero magnitude for power-style characteristics.
package transform
