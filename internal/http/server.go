// Package http expone el endpoint de operación: /metrics, /healthz, /readyz y /session.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dropDatabas3/hellolink/internal/observability/logger"
)

const shutdownTimeout = 5 * time.Second

// Start sirve handler en addr hasta que ctx se cancela.
// Un cierre ordenado (ctx cancelado) devuelve nil.
func Start(ctx context.Context, addr string, handler http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, handler)
}

// Serve es Start sobre un listener ya abierto.
func Serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	log := logger.From(ctx).With(logger.Layer("http"), logger.Component("ops"))
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("ops server listening", logger.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Warn("ops server shutdown", logger.Err(err))
		return err
	}
	<-errCh
	log.Info("ops server stopped")
	return nil
}
