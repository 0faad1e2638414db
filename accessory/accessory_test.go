package accessory

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStorage is an in-memory util.Storage
type memStorage map[string][]byte

func (m memStorage) Set(key string, value []byte) error {
	m[key] = value
	return nil
}

func (m memStorage) Get(key string) ([]byte, error) {
	v, ok := m[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return v, nil
}

func (m memStorage) Delete(key string) error {
	delete(m, key)
	return nil
}

func (m memStorage) KeysWithSuffix(suffix string) ([]string, error) {
	var keys []string
	for k := range m {
		if strings.HasSuffix(k, suffix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func TestUUIDIsStable(t *testing.T) {
	a := UUIDForDevice("12")
	assert.Equal(t, a, UUIDForDevice("12"))
	assert.NotEqual(t, a, UUIDForDevice("13"))
	assert.Len(t, a, 36)
}

func TestAssignAvoidsCollisions(t *testing.T) {
	recs := make(Records)
	u := UUIDForDevice("1")
	want := AIDForUUID(u)
	assert.Greater(t, want, BridgeAID)

	recs["other"] = Record{UUID: "other", AID: want}
	first := recs.Assign(u, "Lamp", "1")
	assert.Equal(t, want+1, first.AID)

	// known UUIDs keep their aid
	again := recs.Assign(u, "Lamp 2", "")
	assert.Equal(t, first.AID, again.AID)
	assert.Equal(t, "Lamp 2", again.Name)
	assert.Equal(t, "1", again.DeviceID)
}

func TestRecordsRoundTrip(t *testing.T) {
	s := make(memStorage)
	recs, err := LoadRecords(s)
	require.NoError(t, err)
	assert.Empty(t, recs)

	recs.Assign(UUIDForDevice("1"), "Lamp", "1")
	recs.Assign(UUIDForDevice("2"), "Door", "2")
	require.NoError(t, recs.Save(s))

	loaded, err := LoadRecords(s)
	require.NoError(t, err)
	assert.Equal(t, recs, loaded)
}
