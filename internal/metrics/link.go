// Package metrics agrupa las métricas Prometheus de hellolink.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Link contiene las métricas del orquestador y del cliente del identity store.
// Un nil *Link es válido: todos los métodos son no-op.
type Link struct {
	ApplyTotal      *prometheus.CounterVec
	ApplyDuration   *prometheus.HistogramVec
	RemoteDuration  *prometheus.HistogramVec
	RemoteErrors    *prometheus.CounterVec
	SessionSignOuts prometheus.Counter
}

// NewLink crea y registra las métricas en reg (o el default si es nil).
// Registrar dos veces en el mismo registry reutiliza los collectors existentes.
func NewLink(reg prometheus.Registerer) (*Link, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Link{
		ApplyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hellolink_apply_total",
			Help: "Operaciones de sign-in/link por provider, modo y resultado",
		}, []string{"provider", "mode", "outcome", "error_kind"}),
		ApplyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hellolink_apply_duration_seconds",
			Help:    "Duración de Apply incluyendo round trips al store",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider", "mode"}),
		RemoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hellolink_remote_request_duration_seconds",
			Help:    "Latencia de los requests al identity store",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"op"}),
		RemoteErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hellolink_remote_errors_total",
			Help: "Errores del identity store por operación y categoría",
		}, []string{"op", "error_kind"}),
		SessionSignOuts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hellolink_session_signouts_total",
			Help: "Sesiones cerradas (explícitas o por email sin verificar)",
		}),
	}

	m.ApplyTotal = register(reg, m.ApplyTotal)
	m.ApplyDuration = register(reg, m.ApplyDuration)
	m.RemoteDuration = register(reg, m.RemoteDuration)
	m.RemoteErrors = register(reg, m.RemoteErrors)
	m.SessionSignOuts = register(reg, m.SessionSignOuts)
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

// ObserveApply registra el resultado de una operación.
func (m *Link) ObserveApply(provider, mode, outcome, errorKind string, d time.Duration) {
	if m == nil {
		return
	}
	m.ApplyTotal.WithLabelValues(provider, mode, outcome, errorKind).Inc()
	m.ApplyDuration.WithLabelValues(provider, mode).Observe(d.Seconds())
}

// ObserveRemote registra un request al store; errorKind vacío significa éxito.
func (m *Link) ObserveRemote(op, errorKind string, d time.Duration) {
	if m == nil {
		return
	}
	m.RemoteDuration.WithLabelValues(op).Observe(d.Seconds())
	if errorKind != "" {
		m.RemoteErrors.WithLabelValues(op, errorKind).Inc()
	}
}

// IncSignOut cuenta un cierre de sesión.
func (m *Link) IncSignOut() {
	if m == nil {
		return
	}
	m.SessionSignOuts.Inc()
}
