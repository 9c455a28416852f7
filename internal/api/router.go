package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gridwatch/alertflow/internal/engine"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestLogger(s.log))
	r.Use(PrometheusMiddleware)
	r.Use(Recoverer(s.log))

	// Probes and metrics are public.
	r.Get("/healthz", s.health.Health)
	r.Get("/readyz", s.health.Ready)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if len(s.config.AuthSecret) > 0 {
			jwtService := NewJWTService(s.config.AuthSecret, s.config.TokenTTL)
			r.Use(JWTAuth(jwtService))
		}

		r.Get("/rules", s.handleListRules)
		r.Get("/templates", s.handleListTemplates)
		r.Get("/receivers", s.handleListReceivers)
		r.Get("/stats", s.handleStats)
		r.Post("/refresh", s.handleRefresh)
	})

	return r
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	OK(w, s.snapshots.Current().Rules())
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	OK(w, s.snapshots.Current().Templates())
}

func (s *Server) handleListReceivers(w http.ResponseWriter, r *http.Request) {
	OK(w, s.snapshots.Current().Receivers())
}

// statsResponse exposes evaluation counters and snapshot metadata.
type statsResponse struct {
	Engine           engine.StatsSnapshot `json:"engine"`
	Rules            int                  `json:"rules"`
	Templates        int                  `json:"templates"`
	Receivers        int                  `json:"receivers"`
	SnapshotLoadedAt time.Time            `json:"snapshot_loaded_at"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshots.Current()
	resp := statsResponse{
		Rules:            len(snap.Rules()),
		Templates:        len(snap.Templates()),
		Receivers:        len(snap.Receivers()),
		SnapshotLoadedAt: snap.LoadedAt(),
	}
	if s.stats != nil {
		resp.Engine = s.stats.Stats()
	}
	OK(w, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.snapshots.ForceRefresh()
	Accepted(w, map[string]string{"status": "refresh scheduled"})
}
