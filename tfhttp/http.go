package tfhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/brutella/hc/log"
	"github.com/gorilla/mux"

	"github.com/cloudkucooland/almond-homekit/config"
	"github.com/cloudkucooland/almond-homekit/lifecycle"
	"github.com/cloudkucooland/almond-homekit/metrics"
	"github.com/cloudkucooland/almond-homekit/platform"
)

// Source is what /accessories reports on
type Source interface {
	Snapshot() []lifecycle.Snapshot
}

// Platform is the primary handle
type Platform struct {
	Running bool
}

var (
	srv    *http.Server
	mu     sync.Mutex
	source Source
)

// SetSource tells the control channel which accessory cache to show
func SetSource(s Source) {
	mu.Lock()
	source = s
	mu.Unlock()
}

// Router builds the control channel's routes
func Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", homeHandler).Methods(http.MethodGet)
	r.HandleFunc("/accessories", accessoriesHandler).Methods(http.MethodGet)
	r.HandleFunc("/platforms", platformsHandler).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler())
	return r
}

// Startup is called by the platform management to get things running
func (h Platform) Startup(c *config.Config) platform.Control {
	if c.HTTPAddress == "" {
		log.Info.Print("no httpAddress set, HTTP control channel disabled")
		return h
	}

	srv = &http.Server{
		Addr:         c.HTTPAddress,
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      Router(),
	}

	go func(s *http.Server) {
		log.Info.Printf("starting up HTTP control channel on %s", s.Addr)
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Info.Print(err)
		}
	}(srv)

	h.Running = true
	return h
}

// Shutdown is called by the platform management to shut things down
func (h Platform) Shutdown() platform.Control {
	if srv == nil {
		return h
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Info.Print(err)
	}
	h.Running = false
	return h
}

// Background - just satisfies the Platform interface
func (h Platform) Background() {
	// nothing to do
}

func homeHandler(w http.ResponseWriter, r *http.Request) {
	log.Debug.Print("HomeHandler requested")
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	fmt.Fprint(w, "{ \"status\": \"OK\" }")
}

func accessoriesHandler(w http.ResponseWriter, r *http.Request) {
	mu.Lock()
	s := source
	mu.Unlock()

	snap := []lifecycle.Snapshot{}
	if s != nil {
		snap = s.Snapshot()
	}
	writeJSON(w, snap)
}

func platformsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, platform.Names())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Info.Print(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
