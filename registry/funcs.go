package registry

import (
	"fmt"

	"github.com/cloudkucooland/almond-homekit/hub"
	"github.com/cloudkucooland/almond-homekit/transform"
)

func getBool(v hub.Value, _ State) (interface{}, error) {
	return v.Bool()
}

func getInt(v hub.Value, _ State) (interface{}, error) {
	return v.Int()
}

func setBool(prop string) SetFunc {
	return func(cv interface{}, _ State) ([]Write, error) {
		b, err := transform.Bool(cv)
		if err != nil {
			return nil, err
		}
		return []Write{{Property: prop, Value: hub.BoolValue(b)}}, nil
	}
}

func getTable(t transform.Table) GetFunc {
	return func(v hub.Value, _ State) (interface{}, error) {
		return t.Map(v)
	}
}

func setTable(prop string, t transform.Table) SetFunc {
	return func(cv interface{}, _ State) ([]Write, error) {
		s, err := transform.Int(cv)
		if err != nil {
			return nil, err
		}
		raw, err := t.Reverse(s)
		if err != nil {
			return nil, err
		}
		return []Write{{Property: prop, Value: raw}}, nil
	}
}

func getScaled(s transform.Scale) GetFunc {
	return func(v hub.Value, _ State) (interface{}, error) {
		i, err := v.Int()
		if err != nil {
			return nil, err
		}
		return s.ToCapability(i), nil
	}
}

func setScaled(prop string, s transform.Scale) SetFunc {
	return func(cv interface{}, _ State) ([]Write, error) {
		i, err := transform.Int(cv)
		if err != nil {
			return nil, err
		}
		return []Write{{Property: prop, Value: hub.IntValue(s.ToHub(i))}}, nil
	}
}

func constant(c interface{}) GetFunc {
	return func(hub.Value, State) (interface{}, error) {
		return c, nil
	}
}

// levelOn reads a dimmer-style level as a power state
func levelOn(v hub.Value, _ State) (interface{}, error) {
	i, err := v.Int()
	if err != nil {
		return nil, err
	}
	return i > 0, nil
}

// levelOnUpdate only notifies for levels the capability understands
func levelOnUpdate(v hub.Value, st State) (interface{}, error) {
	i, err := v.Int()
	if err != nil {
		return nil, err
	}
	switch {
	case i == 0:
		return false, nil
	case i > 0 && i <= 100:
		return true, nil
	}
	return nil, fmt.Errorf("level %d: %w", i, transform.ErrUnmappedValue)
}

// setLevelOn turns a power write into a level write: off caches the current
// level, on restores it.
func setLevelOn(prop string) SetFunc {
	return func(cv interface{}, st State) ([]Write, error) {
		on, err := transform.Bool(cv)
		if err != nil {
			return nil, err
		}
		current := 0
		if v, ok := st.Value(prop); ok {
			current, _ = v.Int()
		}
		level := on2level(on, current, st.Restore())
		return []Write{{Property: prop, Value: hub.IntValue(level)}}, nil
	}
}

func on2level(on bool, current int, cell *transform.RestoreCell) int {
	if cell == nil {
		if on {
			return transform.DefaultRestorePolicy.Default
		}
		return 0
	}
	return cell.Toggle(on, current)
}

// levelUpdate notifies brightness-like values, but not 0: the power
// characteristic reports off, the level keeps its last value.
func levelUpdate(v hub.Value, _ State) (interface{}, error) {
	i, err := v.Int()
	if err != nil {
		return nil, err
	}
	if i == 0 {
		return nil, transform.ErrSuppress
	}
	if i < 0 || i > 100 {
		return nil, fmt.Errorf("level %d: %w", i, transform.ErrUnmappedValue)
	}
	return i, nil
}

func setLevel(prop string) SetFunc {
	return func(cv interface{}, st State) ([]Write, error) {
		i, err := transform.Int(cv)
		if err != nil {
			return nil, err
		}
		if cell := st.Restore(); cell != nil {
			cell.Observe(i)
		}
		return []Write{{Property: prop, Value: hub.IntValue(i)}}, nil
	}
}

// units reads the device's temperature units, Celsius when it has none
func units(st State) string {
	if v, ok := st.Value("Units"); ok && !v.IsZero() {
		return v.String()
	}
	return transform.UnitsCelsius
}

func getTemperature(v hub.Value, st State) (interface{}, error) {
	f, err := v.Float()
	if err != nil {
		return nil, err
	}
	return transform.ToCapabilityTemperature(f, units(st)), nil
}

func tempWrite(prop string, cv interface{}, st State) ([]Write, error) {
	c, err := transform.Float(cv)
	if err != nil {
		return nil, err
	}
	return []Write{{Property: prop, Value: hub.IntValue(transform.ToHubTemperature(c, units(st)))}}, nil
}

// belowOrEqual reports true when the value is at or under the limit
func belowOrEqual(limit int, yes, no int) GetFunc {
	return func(v hub.Value, _ State) (interface{}, error) {
		i, err := v.Int()
		if err != nil {
			return nil, err
		}
		if i <= limit {
			return yes, nil
		}
		return no, nil
	}
}
