package app

import (
	"net/http"

	ophttp "github.com/dropDatabas3/hellolink/internal/http"
)

// OpsHandler arma el endpoint de operación sobre el registry de la app:
// /metrics incluye las métricas del orquestador, del cliente remoto y de los requests.
func (a *App) OpsHandler() (http.Handler, error) {
	m, err := ophttp.NewMetrics(a.Registry)
	if err != nil {
		return nil, err
	}
	return ophttp.NewRouter(ophttp.RouterDeps{
		Gatherer: a.Registry,
		Metrics:  m,
		Store:    a.Cache,
		Current:  a.Controller.Current,
	}), nil
}
