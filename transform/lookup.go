package transform

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cloudkucooland/almond-homekit/hub"
)

// Table maps raw hub codes to capability states. Keys are the raw strings
// the hub sends; numeric codes also match their canonical integer form, so
// "3" and "3.0" hit the same entry.
type Table struct {
	Name    string
	Entries map[string]int

	// HasFallback makes unknown codes map to Fallback instead of failing.
	// Only set it where the hub documents the fallback.
	HasFallback bool
	Fallback    int
}

// Ordinal builds a table indexed by position: raw "0" -> states[0], ...
func Ordinal(name string, states ...int) Table {
	t := Table{Name: name, Entries: make(map[string]int, len(states))}
	for i, s := range states {
		t.Entries[strconv.Itoa(i)] = s
	}
	return t
}

// Keyed builds a table from explicit raw keys
func Keyed(name string, entries map[string]int) Table {
	return Table{Name: name, Entries: entries}
}

// WithFallback returns a copy that maps unknown codes to state
func (t Table) WithFallback(state int) Table {
	t.HasFallback = true
	t.Fallback = state
	return t
}

// Map looks a raw value up
func (t Table) Map(v hub.Value) (int, error) {
	if s, ok := t.Entries[v.String()]; ok {
		return s, nil
	}
	if i, err := v.Int(); err == nil {
		if s, ok := t.Entries[strconv.Itoa(i)]; ok {
			return s, nil
		}
	}
	// some personalities report two-state codes as booleans
	switch strings.ToLower(v.String()) {
	case "true":
		if s, ok := t.Entries["1"]; ok {
			return s, nil
		}
	case "false":
		if s, ok := t.Entries["0"]; ok {
			return s, nil
		}
	}
	if t.HasFallback {
		return t.Fallback, nil
	}
	return 0, fmt.Errorf("%s: raw %q: %w", t.Name, v, ErrUnmappedValue)
}

// Reverse finds the raw code for a capability state. When several codes map
// to the same state the lowest key wins, so the answer is deterministic.
func (t Table) Reverse(state int) (hub.Value, error) {
	keys := make([]string, 0, len(t.Entries))
	for k, s := range t.Entries {
		if s == state {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", fmt.Errorf("%s: state %d: %w", t.Name, state, ErrUnmappedValue)
	}
	sort.Strings(keys)
	return hub.StringValue(keys[0]), nil
}
