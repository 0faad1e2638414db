package mqtthub

import (
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudkucooland/almond-homekit/hub"
)

type token struct {
	done chan struct{}
	err  error
}

func (t *token) Wait() bool                     { <-t.done; return true }
func (t *token) WaitTimeout(time.Duration) bool { return true }
func (t *token) Done() <-chan struct{}          { return t.done }
func (t *token) Error() error                   { return t.err }

type published struct {
	topic   string
	payload interface{}
}

type fakeBroker struct {
	sent []published
	err  error
	slow bool
}

func (b *fakeBroker) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	b.sent = append(b.sent, published{topic, payload})
	t := &token{done: make(chan struct{}), err: b.err}
	if !b.slow {
		close(t.done)
	}
	return t
}

const lamp = `{"type": "MultilevelSwitch", "name": "Lamp", "manufacturer": "GE", "props": {"SwitchMultilevel": 1}}`

func drain(h *Hub) []hub.EventKind {
	var kinds []hub.EventKind
	for {
		select {
		case ev := <-h.Events():
			kinds = append(kinds, ev.Kind)
		default:
			return kinds
		}
	}
}

func TestTopics(t *testing.T) {
	tp := Topics{Prefix: "almond"}
	cases := []struct {
		topic string
		kind  topicKind
		id    string
		prop  string
	}{
		{"almond/status", topicStatus, "", ""},
		{"almond/roster", topicRoster, "", ""},
		{"almond/devices/12/meta", topicMeta, "12", ""},
		{"almond/devices/12/props/SwitchBinary", topicProp, "12", "SwitchBinary"},
		{"almond/devices/12/props/SwitchBinary/set", topicOther, "", ""},
		{"almond/devices//meta", topicOther, "", ""},
		{"other/status", topicOther, "", ""},
		{"almondx/status", topicOther, "", ""},
	}
	for _, c := range cases {
		kind, id, prop := tp.parse(c.topic)
		assert.Equal(t, c.kind, kind, c.topic)
		assert.Equal(t, c.id, id, c.topic)
		assert.Equal(t, c.prop, prop, c.topic)
	}
	assert.Equal(t, "almond/devices/3/props/Mode/set", tp.Set("3", "Mode"))
	assert.Equal(t, "almond/#", tp.Subscription())
}

func TestReadyAfterRosterComplete(t *testing.T) {
	h := New("almond/", &fakeBroker{})

	// retained values can arrive before the meta that names them
	h.handle("almond/devices/1/props/SwitchMultilevel", []byte("40"))
	h.handle("almond/status", []byte("online"))
	h.handle("almond/roster", []byte(`["1", "2"]`))
	h.handle("almond/devices/1/meta", []byte(lamp))
	assert.Equal(t, []hub.EventKind{hub.EventConnected}, drain(h))

	h.handle("almond/devices/2/meta", []byte(`{"type": 1, "name": "Plug", "props": {"SwitchBinary": 1}}`))
	assert.Equal(t, []hub.EventKind{hub.EventReady}, drain(h))

	devs := h.Devices()
	require.Len(t, devs, 2)
	assert.Equal(t, "1", devs[0].ID())
	assert.Equal(t, hub.TypeMultilevelSwitch, devs[0].Info().Type)
	assert.Equal(t, hub.Value("40"), devs[0].GetProp(1))

	// after ready, changes are events
	h.handle("almond/devices/3/meta", []byte(lamp))
	h.handle("almond/devices/1/meta", []byte(`{"type": 2, "name": "Reading Lamp", "props": {"SwitchMultilevel": 1}}`))
	h.handle("almond/devices/2/meta", nil)
	assert.Equal(t, []hub.EventKind{hub.EventDeviceAdded, hub.EventDeviceUpdated, hub.EventDeviceRemoved}, drain(h))
	assert.Equal(t, "Reading Lamp", devs[0].Name())
}

func TestPropertyUpdates(t *testing.T) {
	h := New("almond", &fakeBroker{})
	h.handle("almond/devices/1/meta", []byte(lamp))
	d := h.Devices()[0]

	var seen []hub.Value
	d.OnProp(1, func(v hub.Value) { seen = append(seen, v) })
	h.handle("almond/devices/1/props/SwitchMultilevel", []byte("55\n"))
	h.handle("almond/devices/1/props/Battery", []byte("90"))
	assert.Equal(t, []hub.Value{"55"}, seen)
}

func TestOfflineStartsANewSession(t *testing.T) {
	h := New("almond", &fakeBroker{})
	h.handle("almond/status", []byte("online"))
	h.handle("almond/devices/1/meta", []byte(lamp))
	h.handle("almond/roster", []byte(`["1"]`))
	assert.Equal(t, []hub.EventKind{hub.EventConnected, hub.EventReady}, drain(h))

	h.ConnectionLost(nil, errors.New("broker went away"))
	h.handle("almond/status", []byte("offline"))
	h.handle("almond/status", []byte("online"))
	assert.Equal(t, []hub.EventKind{hub.EventDisconnected, hub.EventConnected}, drain(h))

	// the roster is needed again; a device gone from it is dropped quietly
	h.handle("almond/devices/2/meta", []byte(lamp))
	h.handle("almond/roster", []byte(`["2"]`))
	assert.Equal(t, []hub.EventKind{hub.EventReady}, drain(h))
	require.Len(t, h.Devices(), 1)
	assert.Equal(t, "2", h.Devices()[0].ID())
}

func TestGatewayRestartKeepsRoster(t *testing.T) {
	h := New("almond", &fakeBroker{})
	h.handle("almond/status", []byte("online"))
	h.handle("almond/roster", []byte(`["1"]`))
	h.handle("almond/devices/1/meta", []byte(lamp))
	assert.Equal(t, []hub.EventKind{hub.EventConnected, hub.EventReady}, drain(h))

	// the broker connection stays up, so nothing retained is sent again
	h.handle("almond/status", []byte("offline"))
	h.handle("almond/status", []byte("online"))
	assert.Equal(t, []hub.EventKind{hub.EventDisconnected, hub.EventConnected, hub.EventReady}, drain(h))

	h.handle("almond/devices/3/meta", []byte(lamp))
	assert.Equal(t, []hub.EventKind{hub.EventDeviceAdded}, drain(h))
	require.Len(t, h.Devices(), 2)
}

func TestWrites(t *testing.T) {
	b := &fakeBroker{}
	h := New("almond", b)
	h.handle("almond/devices/1/meta", []byte(lamp))
	d := h.Devices()[0]

	assert.ErrorIs(t, d.SetProp(1, "50"), hub.ErrDisconnected)

	h.handle("almond/status", []byte("online"))
	require.NoError(t, d.SetProp(1, "50"))
	assert.Equal(t, []published{{"almond/devices/1/props/SwitchMultilevel/set", "50"}}, b.sent)
	assert.Equal(t, hub.Value(""), d.GetProp(1), "the value changes when the gateway reports back")

	b.err = errors.New("not connected")
	assert.Error(t, d.SetProp(1, "60"))

	// a write still in flight is not waited for
	b.slow = true
	assert.NoError(t, d.SetProp(1, "70"))
}

func TestBadPayloads(t *testing.T) {
	h := New("almond", &fakeBroker{})
	h.handle("almond/roster", []byte(`{"1": true}`))
	h.handle("almond/devices/1/meta", []byte(`not json`))
	h.handle("almond/status", []byte("sleeping"))
	assert.Empty(t, h.Devices())
	assert.Empty(t, drain(h))
}

func TestCloseStopsDelivery(t *testing.T) {
	h := New("almond", &fakeBroker{})
	h.Close()
	h.Close()
	done := make(chan struct{})
	go func() {
		for i := 0; i < eventBuffer+10; i++ {
			h.handle("almond/status", []byte("online"))
			h.handle("almond/status", []byte("offline"))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("emit blocked after Close")
	}
}
