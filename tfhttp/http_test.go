package tfhttp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudkucooland/almond-homekit/lifecycle"
	"github.com/cloudkucooland/almond-homekit/metrics"
)

type fixed []lifecycle.Snapshot

func (f fixed) Snapshot() []lifecycle.Snapshot { return f }

func get(t *testing.T, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHome(t *testing.T) {
	rec := get(t, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "OK"}`, rec.Body.String())
}

func TestAccessories(t *testing.T) {
	SetSource(nil)
	rec := get(t, "/accessories")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	SetSource(fixed{{UUID: "u-1", Name: "Lamp", DeviceID: "1", State: "bound", Bindings: []string{"Lightbulb/On"}}})
	defer SetSource(nil)
	rec = get(t, "/accessories")
	var got []lifecycle.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Lamp", got[0].Name)
	assert.Equal(t, "bound", got[0].State)
}

func TestMetrics(t *testing.T) {
	metrics.HubEvents.WithLabelValues("ready").Inc()
	rec := get(t, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "almond_hub_events_total"), "bridge metrics are exported")
}

func TestUnknownRoute(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, get(t, "/shelly/on").Code)
}
