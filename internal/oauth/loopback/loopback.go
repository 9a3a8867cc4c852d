// Package loopback recibe el redirect de un flujo OAuth2 en 127.0.0.1.
//
// Uso:
//
//	rcv, _ := loopback.Listen(loopback.Config{Provider: "google"})
//	defer rcv.Close()
//	url := cfg.AuthCodeURL(state, ...)  // con rcv.RedirectURL() como redirect_uri
//	res, err := rcv.Authorize(ctx, opener, url, state)
//
// El receiver es de un solo uso: el primer callback gana, los siguientes se ignoran.
// Soporta response_mode=query (GET) y form_post (POST, usado por Apple).
package loopback

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dropDatabas3/hellolink/internal/domain/linkerr"
	"github.com/dropDatabas3/hellolink/internal/observability/logger"
)

const (
	DefaultAddr = "127.0.0.1:0"
	DefaultPath = "/callback"
)

// Config del receiver.
type Config struct {
	Addr     string // default 127.0.0.1:0 (puerto libre)
	Path     string // default /callback
	Provider string // para clasificar errores
}

// Result es lo que el provider mandó al redirect_uri.
type Result struct {
	Code    string
	IDToken string
	State   string
	Form    url.Values
}

// Receiver escucha un único callback.
type Receiver struct {
	provider string
	path     string
	ln       net.Listener
	srv      *http.Server
	results  chan url.Values
}

// Listen abre el listener y empieza a servir.
func Listen(cfg Config) (*Receiver, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, linkerr.Wrap(linkerr.KindProviderUnavailable, cfg.Provider, "cannot open local redirect listener", err)
	}

	r := &Receiver{
		provider: cfg.Provider,
		path:     path,
		ln:       ln,
		results:  make(chan url.Values, 1),
	}

	mux := chi.NewRouter()
	mux.Get(path, r.handle)
	mux.Post(path, r.handle)

	r.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := r.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Warn("loopback receiver stopped", logger.Component("loopback"), logger.Err(err))
		}
	}()
	return r, nil
}

// RedirectURL es el redirect_uri a registrar en el request de autorización.
func (r *Receiver) RedirectURL() string {
	return "http://" + r.ln.Addr().String() + r.path
}

// Close detiene el servidor.
func (r *Receiver) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return r.srv.Shutdown(ctx)
}

func (r *Receiver) handle(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	select {
	case r.results <- req.Form:
	default:
		// ya hubo un callback
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprint(w, "<html><body><p>You can close this window and return to the application.</p></body></html>")
}

// Wait bloquea hasta el callback o hasta que ctx termine y valida state.
func (r *Receiver) Wait(ctx context.Context, state string) (*Result, error) {
	log := logger.From(ctx).With(logger.Component("loopback"), logger.Provider(r.provider))

	select {
	case <-ctx.Done():
		return nil, linkerr.Classify(ctx.Err(), linkerr.StageProvider, r.provider)
	case form := <-r.results:
		return r.check(log, form, state)
	}
}

// Authorize abre authURL con opener y espera el callback.
func (r *Receiver) Authorize(ctx context.Context, open Opener, authURL, state string) (*Result, error) {
	if open == nil {
		open = BrowserOpener
	}
	if err := open(authURL); err != nil {
		return nil, linkerr.Wrap(linkerr.KindProviderUnavailable, r.provider, "cannot open the authorization page", err)
	}
	return r.Wait(ctx, state)
}

func (r *Receiver) check(log *zap.Logger, form url.Values, state string) (*Result, error) {
	if e := form.Get("error"); e != "" {
		switch e {
		case "access_denied", "user_cancelled_authorize", "user_denied", "user_cancelled_login":
			log.Debug("authorization denied by user", logger.String("oauth_error", e))
			return nil, linkerr.ErrUserCancelled.WithProvider(r.provider)
		}
		msg := e
		if d := form.Get("error_description"); d != "" {
			msg += ": " + d
		}
		return nil, linkerr.Wrap(linkerr.KindProviderProtocol, r.provider, "authorization failed", errors.New(msg))
	}

	res := &Result{
		Code:    form.Get("code"),
		IDToken: form.Get("id_token"),
		State:   form.Get("state"),
		Form:    form,
	}
	if state != "" && res.State != state {
		log.Warn("state mismatch on callback")
		return nil, linkerr.Wrap(linkerr.KindProviderProtocol, r.provider, "state mismatch", nil)
	}
	if res.Code == "" && res.IDToken == "" {
		return nil, linkerr.Wrap(linkerr.KindProviderProtocol, r.provider, "callback without code or id_token", nil)
	}
	return res, nil
}
