package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/hellolink/internal/cache"
	"github.com/dropDatabas3/hellolink/internal/domain/repository"
	"github.com/dropDatabas3/hellolink/internal/domain/types"
)

// RouterDeps dependencias del endpoint de operación.
type RouterDeps struct {
	Gatherer prometheus.Gatherer // default prometheus.DefaultGatherer
	Metrics  *Metrics            // opcional
	// Store es el almacén de sesión: /readyz hace Ping y reporta sus Stats.
	Store cache.Client
	// Current devuelve la identidad de la sesión, nil si es anónima.
	Current func() *repository.RemoteIdentity
}

type readyView struct {
	Status string `json:"status"`
	Driver string `json:"driver,omitempty"`
	Keys   int64  `json:"keys"`
}

type sessionView struct {
	State     string               `json:"state"`
	UserID    string               `json:"user_id,omitempty"`
	Username  string               `json:"username,omitempty"`
	Providers []types.ProviderKind `json:"linked_providers,omitempty"`
}

// NewRouter arma el router chi.
func NewRouter(d RouterDeps) http.Handler {
	g := d.Gatherer
	if g == nil {
		g = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(WithRecover, WithRequestID, WithLogging, d.Metrics.Wrap)

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		view := readyView{Status: "ready"}
		if d.Store != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			if err := d.Store.Ping(ctx); err != nil {
				WriteError(w, http.StatusServiceUnavailable, "not_ready", err.Error())
				return
			}
			if st, err := d.Store.Stats(ctx); err == nil {
				view.Driver, view.Keys = st.Driver, st.Keys
			}
		}
		WriteJSON(w, http.StatusOK, view)
	})

	r.Get("/session", func(w http.ResponseWriter, _ *http.Request) {
		var id *repository.RemoteIdentity
		if d.Current != nil {
			id = d.Current()
		}
		if id == nil {
			WriteJSON(w, http.StatusOK, sessionView{State: "anonymous"})
			return
		}
		WriteJSON(w, http.StatusOK, sessionView{
			State:     "authenticated",
			UserID:    id.ID,
			Username:  id.Username,
			Providers: id.LinkedProviders,
		})
	})

	return r
}
