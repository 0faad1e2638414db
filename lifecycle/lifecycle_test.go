package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudkucooland/almond-homekit/accessory"
	"github.com/cloudkucooland/almond-homekit/config"
	"github.com/cloudkucooland/almond-homekit/host"
	"github.com/cloudkucooland/almond-homekit/host/hosttest"
	"github.com/cloudkucooland/almond-homekit/hub"
	"github.com/cloudkucooland/almond-homekit/memhub"
	"github.com/cloudkucooland/almond-homekit/registry"
)

func dimmer(id string) hub.Info {
	return hub.Info{ID: id, Type: hub.TypeMultilevelSwitch, Name: "Lamp " + id, Props: map[string]int{"SwitchMultilevel": 1}}
}

func restored(ids ...string) []*hosttest.Accessory {
	out := make([]*hosttest.Accessory, 0, len(ids))
	for _, id := range ids {
		out = append(out, hosttest.NewAccessory(accessory.UUIDForDevice(id), "Lamp "+id))
	}
	return out
}

func setup(devices map[string]config.DeviceConfig, cached ...*hosttest.Accessory) (*Manager, *hosttest.Runtime, *memhub.Hub) {
	rt := hosttest.NewRuntime(cached...)
	m := New(rt, registry.Default(), devices)
	h := memhub.New(64)
	h.Connect()
	m.client = h
	m.RestoreAll()
	return m, rt, h
}

func TestReconcileRemovesOnlyMissing(t *testing.T) {
	m, rt, h := setup(nil, restored("A", "B", "C")...)
	a := h.Put(dimmer("A"), map[string]hub.Value{"SwitchMultilevel": "40"})
	c := h.Put(dimmer("C"), map[string]hub.Value{"SwitchMultilevel": "0"})

	m.SyncRoster([]*hub.Device{a, c})

	assert.Equal(t, []string{accessory.UUIDForDevice("B")}, rt.Unregistered())
	assert.Equal(t, 2, rt.RegisteredCount())
	for _, s := range m.Snapshot() {
		assert.Equal(t, "bound", s.State, s.Name)
	}

	b, ok := m.Bound("A")
	require.True(t, ok)
	cell, ok := b.RestoreCell("Lightbulb", "SwitchMultilevel")
	require.True(t, ok)
	level, _ := cell.Value()
	assert.Equal(t, 40, level)
}

func TestResyncKeepsRestoreCells(t *testing.T) {
	m, rt, h := setup(nil)
	a := h.Put(dimmer("A"), map[string]hub.Value{"SwitchMultilevel": "40"})
	b := h.Put(dimmer("B"), map[string]hub.Value{"SwitchMultilevel": "10"})
	m.SyncRoster([]*hub.Device{a, b})
	require.Equal(t, 2, rt.RegisteredCount())

	// the user turns A off; the level is cached
	bound, ok := m.Bound("A")
	require.True(t, ok)
	acc, _ := rt.Registered(accessory.UUIDForDevice("A"))
	svc, _ := acc.Svc(host.Lightbulb, "")
	on, _ := svc.Char(host.On)
	require.NoError(t, on.Write(false))

	// a new session comes back without B
	m.handle(h, hub.Event{Kind: hub.EventDisconnected})
	h.Remove("B")
	m.SyncRoster(h.Devices())

	assert.Equal(t, []string{accessory.UUIDForDevice("B")}, rt.Unregistered())
	again, ok := m.Bound("A")
	require.True(t, ok)
	assert.Same(t, bound, again)
	cell, _ := again.RestoreCell("Lightbulb", "SwitchMultilevel")
	level, _ := cell.Value()
	assert.Equal(t, 40, level)

	require.NoError(t, on.Write(true))
	writes := h.Writes()
	assert.Equal(t, hub.Value("40"), writes[len(writes)-1].Value)
}

func TestPruneOncePerSession(t *testing.T) {
	m, rt, h := setup(nil, restored("A", "B")...)
	a := h.Put(dimmer("A"), nil)
	m.client = nil

	m.SyncRoster([]*hub.Device{a})
	assert.Len(t, rt.Unregistered(), 1)

	m.ConfigureAccessory(restored("Z")[0])
	m.SyncRoster([]*hub.Device{a})
	assert.Len(t, rt.Unregistered(), 1, "second sync in the same session does not prune")
}

func TestSkipAndUnsupported(t *testing.T) {
	m, rt, h := setup(map[string]config.DeviceConfig{"2": {Skip: true}}, restored("2")...)
	one := h.Put(dimmer("1"), nil)
	two := h.Put(dimmer("2"), nil)
	three := h.Put(hub.Info{ID: "3", Type: hub.TypeAlarm, Name: "Siren", Props: map[string]int{"Volume": 1}}, nil)
	four := h.Put(hub.Info{ID: "4", Type: hub.TypeBinarySwitch, Name: "Bare"}, nil)

	m.SyncRoster([]*hub.Device{one, two, three, four})

	_, ok := rt.Registered(accessory.UUIDForDevice("1"))
	assert.True(t, ok)
	for _, id := range []string{"2", "3", "4"} {
		_, ok := rt.Registered(accessory.UUIDForDevice(id))
		assert.False(t, ok, id)
	}
	assert.Equal(t, []string{accessory.UUIDForDevice("2")}, rt.Unregistered())

	err := m.AddDevice(three)
	assert.ErrorIs(t, err, registry.ErrNotSupported)
}

func TestRemoveDeviceUnsubscribes(t *testing.T) {
	m, rt, h := setup(nil)
	d := h.Put(dimmer("1"), map[string]hub.Value{"SwitchMultilevel": "20"})
	require.NoError(t, m.AddDevice(d))
	assert.Equal(t, 2, d.ListenerCount())

	require.NoError(t, m.RemoveDevice("1"))
	assert.Equal(t, 0, d.ListenerCount())
	assert.Equal(t, 0, rt.RegisteredCount())
	assert.Empty(t, m.Snapshot())

	// removing twice is harmless
	require.NoError(t, m.RemoveDevice("1"))
}

func TestPruneRechecksLiveRoster(t *testing.T) {
	m, rt, h := setup(nil, restored("A", "late")...)
	a := h.Put(dimmer("A"), nil)
	// "late" joined the hub after the roster snapshot was taken
	h.Put(dimmer("late"), nil)

	m.SyncRoster([]*hub.Device{a})

	assert.Empty(t, rt.Unregistered())
	_, ok := m.Bound("late")
	assert.True(t, ok)
}

func TestRestoredAccessoryIsReused(t *testing.T) {
	cached := restored("1")[0]
	_, err := cached.AddService(host.Lightbulb, "", "Lamp 1")
	require.NoError(t, err)

	m, rt, h := setup(nil, cached)
	require.NoError(t, m.AddDevice(h.Put(dimmer("1"), map[string]hub.Value{"SwitchMultilevel": "30"})))

	acc, ok := rt.Registered(accessory.UUIDForDevice("1"))
	require.True(t, ok)
	assert.Same(t, cached, acc)
	assert.Len(t, acc.Services(), 1)
	assert.Equal(t, "Lamp 1 [1]", acc.Info().SerialNumber)
}

func TestRegisterFailure(t *testing.T) {
	m, rt, h := setup(nil)
	rt.FailRegister(errors.New("host is full"))
	d := h.Put(dimmer("1"), nil)

	assert.Error(t, m.AddDevice(d))
	assert.Equal(t, 0, d.ListenerCount())
	assert.Empty(t, m.Snapshot())
}

func TestUpdateDevice(t *testing.T) {
	m, rt, h := setup(nil)
	d := h.Put(dimmer("1"), nil)
	require.NoError(t, m.AddDevice(d))
	bound, _ := m.Bound("1")

	info := dimmer("1")
	info.Name = "Reading Lamp"
	info.Manufacturer = "Leviton"
	require.NoError(t, h.Update(info))
	require.NoError(t, m.UpdateDevice(d))

	acc, _ := rt.Registered(accessory.UUIDForDevice("1"))
	assert.Equal(t, "Leviton", acc.Info().Manufacturer)
	assert.Equal(t, "Reading Lamp [1]", acc.Info().SerialNumber)
	again, _ := m.Bound("1")
	assert.Same(t, bound, again)
}

func TestUpdateDeviceChangesServices(t *testing.T) {
	m, rt, h := setup(nil)
	plug := h.Put(hub.Info{ID: "9", Type: hub.TypeBinarySwitch, Name: "Plug", Props: map[string]int{"SwitchBinary": 1}},
		map[string]hub.Value{"SwitchBinary": "true"})
	m.SyncRoster([]*hub.Device{plug})
	acc, ok := rt.Registered(accessory.UUIDForDevice("9"))
	require.True(t, ok)
	_, ok = acc.Svc(host.Switch, "")
	require.True(t, ok)

	require.NoError(t, h.Update(hub.Info{ID: "9", Type: hub.TypeMultilevelSwitch, Name: "Plug", Props: map[string]int{"SwitchMultilevel": 1}}))
	require.NoError(t, m.UpdateDevice(plug))

	var kinds []host.ServiceKind
	for _, s := range acc.Services() {
		kinds = append(kinds, s.Kind())
	}
	assert.Equal(t, []host.ServiceKind{host.Lightbulb}, kinds)
	assert.Equal(t, 1, rt.RegisteredCount())
}

func TestRunProcessesEvents(t *testing.T) {
	rt := hosttest.NewRuntime()
	m := New(rt, registry.Default(), nil)
	h := memhub.New(64)

	synced := make(chan struct{}, 4)
	m.OnSynced(func() { synced <- struct{}{} })

	h.Put(dimmer("1"), nil)
	h.Connect()
	h.Ready()

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background(), h) }()

	select {
	case <-synced:
	case <-time.After(5 * time.Second):
		t.Fatal("roster never synced")
	}

	h.Add(hub.Info{ID: "2", Type: hub.TypeBinarySwitch, Name: "Plug", Props: map[string]int{"SwitchBinary": 1}}, nil)
	h.Disconnect()
	h.Remove("1")
	h.Close()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Close")
	}

	assert.Empty(t, synced, "one sync per ready")
	assert.Equal(t, []string{accessory.UUIDForDevice("1")}, rt.Unregistered())
	plug, ok := rt.Registered(accessory.UUIDForDevice("2"))
	require.True(t, ok)
	assert.False(t, plug.Reachable())
}

func TestRunStopsOnCancel(t *testing.T) {
	m := New(hosttest.NewRuntime(), registry.Default(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Run(ctx, memhub.New(1)), context.Canceled)
}
