// Package adminapi implements the small HTTP surface cmd/rspstubd exposes
// alongside the RSP listener: a health check, a JWT-guarded session list,
// and a Prometheus /metrics endpoint, mirroring the teacher's optional
// debug-http surface pattern but independent of the wire protocol itself.
package adminapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SessionInfo is one row of the /sessions listing.
type SessionInfo struct {
	ID         string    `json:"id"`
	RemoteAddr string    `json:"remote_addr"`
	State      string    `json:"state"`
	StartedAt  time.Time `json:"started_at"`
}

// SessionLister is implemented by the daemon's connection registry.
type SessionLister interface {
	ListSessions() []SessionInfo
}

// Metrics holds the Prometheus collectors exported at /metrics. The RSP
// listener updates Sessions as it serves sessions; PacketsHandled and
// ResumesHandled are registered but nothing increments them.
type Metrics struct {
	Sessions        prometheus.Gauge
	PacketsHandled  prometheus.Counter
	ResumesHandled  prometheus.Counter
}

// NewMetrics registers a fresh set of collectors against reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rspstub_sessions_active",
			Help: "Number of currently connected RSP sessions.",
		}),
		PacketsHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rspstub_packets_handled_total",
			Help: "Total RSP packets dispatched.",
		}),
		ResumesHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rspstub_resumes_handled_total",
			Help: "Total continue/step/vCont resume commands dispatched.",
		}),
	}

	reg.MustRegister(m.Sessions, m.PacketsHandled, m.ResumesHandled)

	return m
}

// NewRouter builds the chi router. jwtSecret authenticates the /sessions
// listing endpoint; an empty secret disables auth entirely (local
// development).
func NewRouter(lister SessionLister, reg *prometheus.Registry, jwtSecret []byte) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		if len(jwtSecret) > 0 {
			r.Use(BearerAuth(jwtSecret))
		}

		r.Get("/sessions", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(lister.ListSessions())
		})
	})

	return r
}
