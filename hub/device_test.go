package hub

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueViews(t *testing.T) {
	i, err := Value("255").Int()
	require.NoError(t, err)
	assert.Equal(t, 255, i)

	i, err = Value("68.6").Int()
	require.NoError(t, err)
	assert.Equal(t, 69, i)

	b, err := Value("true").Bool()
	require.NoError(t, err)
	assert.True(t, b)

	b, err = Value("0").Bool()
	require.NoError(t, err)
	assert.False(t, b)

	_, err = Value("Heat").Int()
	assert.Error(t, err)

	assert.Equal(t, Value("71"), IntValue(71))
	assert.Equal(t, Value("false"), BoolValue(false))
	assert.True(t, Value("").IsZero())
}

func TestDeviceApplyNotifiesAfterStore(t *testing.T) {
	d := NewDevice(Info{ID: "7", Props: map[string]int{"Mode": 2, "SetpointHeating": 4}}, nil)

	var seen Value
	cancel := d.OnProp(2, func(v Value) {
		// the store must already hold the new value
		seen = d.GetProp(2)
	})
	d.Apply(2, "Heat")
	assert.Equal(t, Value("Heat"), seen)
	assert.Equal(t, 1, d.ListenerCount())

	cancel()
	cancel()
	assert.Equal(t, 0, d.ListenerCount())

	seen = ""
	d.Apply(2, "Cool")
	assert.Equal(t, Value(""), seen)
}

func TestDeviceSetProp(t *testing.T) {
	var wrote []Value
	d := NewDevice(Info{ID: "1", Props: map[string]int{"SwitchBinary": 1}}, func(d *Device, prop int, v Value) error {
		wrote = append(wrote, v)
		return nil
	})

	require.NoError(t, d.SetProp(1, BoolValue(true)))
	assert.Equal(t, []Value{"true"}, wrote)
	// a write does not change the last-known value
	assert.True(t, d.GetProp(1).IsZero())

	err := d.SetProp(9, IntValue(1))
	assert.True(t, errors.Is(err, ErrUnknownProperty))

	ro := NewDevice(Info{ID: "2", Props: map[string]int{"SwitchBinary": 1}}, nil)
	assert.Error(t, ro.SetProp(1, BoolValue(true)))
}

func TestDeviceInfoIsCopied(t *testing.T) {
	props := map[string]int{"State": 1}
	d := NewDevice(Info{ID: "3", Props: props}, nil)
	props["State"] = 99

	id, ok := d.Prop("State")
	assert.True(t, ok)
	assert.Equal(t, 1, id)

	noProps := NewDevice(Info{ID: "4"}, nil)
	assert.False(t, noProps.HasProps())
}

func TestDeviceTypeDecoding(t *testing.T) {
	var info Info
	require.NoError(t, json.Unmarshal([]byte(`{"id":"5","type":"GarageDoorOpener"}`), &info))
	assert.Equal(t, TypeGarageDoorOpener, info.Type)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"5","type":12}`), &info))
	assert.Equal(t, TypeContactSwitch, info.Type)
	assert.Equal(t, "ContactSwitch", info.Type.String())

	_, err := ParseDeviceType("Toaster")
	assert.Error(t, err)
}

func TestValueFromJSON(t *testing.T) {
	var m map[string]Value
	require.NoError(t, json.Unmarshal([]byte(`{"a": "Heat", "b": 255, "c": false, "d": 21.5, "e": null}`), &m))
	assert.Equal(t, map[string]Value{"a": "Heat", "b": "255", "c": "false", "d": "21.5", "e": ""}, m)

	assert.Error(t, json.Unmarshal([]byte(`{"a": [1]}`), &m))
}
