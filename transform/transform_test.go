package transform

import (
	"errors"
	"testing"

	"github.com/cloudkucooland/almond-homekit/hub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}

func TestScaleRoundTrip(t *testing.T) {
	for h := 0; h <= 255; h++ {
		back := Percent255.ToHub(Percent255.ToCapability(h))
		assert.LessOrEqual(t, abs(back-h), 1, "hub value %d came back as %d", h, back)
	}
	for c := 0; c <= 100; c++ {
		back := Percent255.ToCapability(Percent255.ToHub(c))
		assert.LessOrEqual(t, abs(back-c), 1, "percent %d came back as %d", c, back)
	}
}

func TestScaleClamps(t *testing.T) {
	assert.Equal(t, 100, Percent255.ToCapability(300))
	assert.Equal(t, 0, Percent255.ToCapability(-4))
	assert.Equal(t, 255, Percent255.ToHub(120))
	assert.Equal(t, 128, Percent255.ToHub(50))
	assert.Equal(t, 0, Scale{HubMin: 5, HubMax: 5, CapMin: 0, CapMax: 100}.ToCapability(5))
}

func TestTemperature(t *testing.T) {
	assert.Equal(t, 20.0, ToCapabilityTemperature(68, UnitsFahrenheit))
	assert.Equal(t, 22.2, ToCapabilityTemperature(72, UnitsFahrenheit))
	assert.Equal(t, 21.5, ToCapabilityTemperature(21.5, UnitsCelsius))

	assert.Equal(t, 71, ToHubTemperature(21.5, UnitsFahrenheit))
	assert.Equal(t, 68, ToHubTemperature(20.0, UnitsFahrenheit))
	assert.Equal(t, 22, ToHubTemperature(21.5, UnitsCelsius))

	u, err := DisplayUnits("F")
	require.NoError(t, err)
	assert.Equal(t, TemperatureDisplayUnitsFahrenheit, u)
	_, err = DisplayUnits("K")
	assert.True(t, errors.Is(err, ErrUnmappedValue))
}

func TestOrdinalTable(t *testing.T) {
	tamper := Ordinal("tamper", StatusTamperedNotTampered, StatusTamperedTampered)

	s, err := tamper.Map("1")
	require.NoError(t, err)
	assert.Equal(t, StatusTamperedTampered, s)

	s, err = tamper.Map("0.0")
	require.NoError(t, err)
	assert.Equal(t, StatusTamperedNotTampered, s)

	_, err = tamper.Map("7")
	assert.True(t, errors.Is(err, ErrUnmappedValue))
	_, err = tamper.Map("")
	assert.True(t, errors.Is(err, ErrUnmappedValue))

	raw, err := tamper.Reverse(StatusTamperedTampered)
	require.NoError(t, err)
	assert.Equal(t, hub.Value("1"), raw)
}

func TestKeyedTableFallback(t *testing.T) {
	lock := Keyed("lock", map[string]int{"0": LockCurrentStateUnsecured, "255": LockCurrentStateSecured})

	_, err := lock.Map("17")
	assert.True(t, errors.Is(err, ErrUnmappedValue))

	s, err := lock.WithFallback(LockCurrentStateUnknown).Map("17")
	require.NoError(t, err)
	assert.Equal(t, LockCurrentStateUnknown, s)

	_, err = lock.Reverse(LockCurrentStateJammed)
	assert.True(t, errors.Is(err, ErrUnmappedValue))
}

func TestCoercion(t *testing.T) {
	i, err := Int(42.6)
	require.NoError(t, err)
	assert.Equal(t, 43, i)

	b, err := Bool(1)
	require.NoError(t, err)
	assert.True(t, b)

	f, err := Float(int64(3))
	require.NoError(t, err)
	assert.Equal(t, 3.0, f)

	_, err = Int(struct{}{})
	assert.Error(t, err)
}

func TestRestoreCell(t *testing.T) {
	c := NewRestoreCell(DefaultRestorePolicy)

	_, ok := c.Value()
	assert.False(t, ok)

	// nothing ever observed: "on" restores the default
	assert.Equal(t, 100, c.Toggle(true, 0))

	c.Reset()
	assert.True(t, c.Observe(40))
	assert.False(t, c.Observe(0))
	assert.False(t, c.Observe(255))

	// turning off caches the live magnitude, turning on puts it back
	assert.Equal(t, 0, c.Toggle(false, 65))
	v, ok := c.Value()
	assert.True(t, ok)
	assert.Equal(t, 65, v)
	assert.Equal(t, 65, c.Toggle(true, 0))
	assert.Equal(t, 65, c.Restore())
}

func TestOrdinalTableAcceptsBooleans(t *testing.T) {
	contact := Ordinal("contact", ContactSensorStateContactDetected, ContactSensorStateContactNotDetected)

	s, err := contact.Map("true")
	require.NoError(t, err)
	assert.Equal(t, ContactSensorStateContactNotDetected, s)

	s, err = contact.Map("false")
	require.NoError(t, err)
	assert.Equal(t, ContactSensorStateContactDetected, s)
}
