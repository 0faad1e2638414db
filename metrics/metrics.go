// Package metrics holds the bridge's prometheus collectors
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Reads counts controller reads by characteristic and outcome
	Reads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "almond_characteristic_reads_total",
			Help: "Characteristic reads by characteristic and result.",
		},
		[]string{"characteristic", "result"},
	)
	// Writes counts controller writes forwarded to the hub
	Writes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "almond_characteristic_writes_total",
			Help: "Characteristic writes by characteristic and result.",
		},
		[]string{"characteristic", "result"},
	)
	// Notifies counts hub changes pushed to controllers
	Notifies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "almond_characteristic_notifies_total",
			Help: "Hub changes pushed to controllers by characteristic and result.",
		},
		[]string{"characteristic", "result"},
	)
	// HubEvents counts hub events seen by the lifecycle manager
	HubEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "almond_hub_events_total",
			Help: "Hub events by kind.",
		},
		[]string{"kind"},
	)
	// Accessories is the number of cached accessories by lifecycle state
	Accessories = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "almond_accessories",
			Help: "Cached accessories by lifecycle state.",
		},
		[]string{"state"},
	)
)

// outcomes
const (
	OK         = "ok"
	Error      = "error"
	Unmapped   = "unmapped"
	Suppressed = "suppressed"
	Ignored    = "ignored"
)

func init() {
	prometheus.MustRegister(Reads, Writes, Notifies, HubEvents, Accessories)
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
