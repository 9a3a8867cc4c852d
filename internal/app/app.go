// Package app arma la aplicación a partir de la configuración.
//
// Orden de construcción:
//
//	config → logger → metrics → cache + secretbox → parse.Client →
//	link.Orchestrator → providers.Registry → notify.Sink → Controller
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropDatabas3/hellolink/internal/cache"
	"github.com/dropDatabas3/hellolink/internal/config"
	"github.com/dropDatabas3/hellolink/internal/link"
	"github.com/dropDatabas3/hellolink/internal/metrics"
	"github.com/dropDatabas3/hellolink/internal/notify"
	"github.com/dropDatabas3/hellolink/internal/observability/logger"
	"github.com/dropDatabas3/hellolink/internal/providers"
	"github.com/dropDatabas3/hellolink/internal/providers/password"
	"github.com/dropDatabas3/hellolink/internal/remote/parse"
	"github.com/dropDatabas3/hellolink/internal/search"
	"github.com/dropDatabas3/hellolink/internal/security/secretbox"
)

// Deps son las dependencias externas de la app.
type Deps struct {
	Config *config.Config
	// Stdout recibe los avisos del sink "stdout". Default os.Stdout.
	Stdout io.Writer
	// Stderr recibe la URL de autorización cuando no hay browser. Default os.Stderr.
	Stderr io.Writer
	// Prompter para usuario/contraseña. nil deja el provider password sin registrar.
	Prompter password.Prompter
	// Registry de métricas. nil crea uno nuevo.
	Registry *prometheus.Registry
}

// App es la aplicación armada.
type App struct {
	Config       *config.Config
	Cache        cache.Client
	Client       *parse.Client
	Orchestrator *link.Orchestrator
	Providers    *providers.Registry
	Search       *search.Service
	Sink         notify.Sink
	Metrics      *metrics.Link
	Registry     *prometheus.Registry
	Controller   *Controller
}

// New construye la app. Llamar Close al terminar.
func New(ctx context.Context, d Deps) (*App, error) {
	cfg := d.Config
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if d.Stdout == nil {
		d.Stdout = os.Stdout
	}
	if d.Stderr == nil {
		d.Stderr = os.Stderr
	}
	log := logger.From(ctx).With(logger.Layer("app"), logger.Op("New"))

	reg := d.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m, err := metrics.NewLink(reg)
	if err != nil {
		return nil, fmt.Errorf("app: metrics: %w", err)
	}

	store, err := openCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	box, err := openSecretbox(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if box == nil {
		log.Debug("session token stored without encryption")
	}

	client, err := parse.New(parse.Deps{
		Config: parse.Config{
			ServerURL:  cfg.Remote.ServerURL,
			AppID:      cfg.Remote.AppID,
			RESTKey:    cfg.Remote.RESTKey,
			Timeout:    cfg.Remote.Timeout,
			QueryLimit: cfg.Remote.QueryLimit,
		},
		Tokens:  parse.NewTokenStore(store, box),
		Metrics: m,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	sink, err := buildSink(cfg, d.Stdout)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	orch := link.New(link.Deps{Client: client, Metrics: m})
	provs := buildProviders(cfg, d.Prompter, d.Stderr)

	a := &App{
		Config:       cfg,
		Cache:        store,
		Client:       client,
		Orchestrator: orch,
		Providers:    provs,
		Search:       search.New(client, sink, cfg.Remote.QueryLimit),
		Sink:         sink,
		Metrics:      m,
		Registry:     reg,
		Controller:   NewController(orch, provs, sink, cfg.Providers.DialogTimeout),
	}
	log.Debug("app ready", logger.Count(len(provs.Available())))
	return a, nil
}

// Close libera recursos (persiste el cache en disco si corresponde).
func (a *App) Close() error {
	if a.Cache == nil {
		return nil
	}
	return a.Cache.Close()
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Client, error) {
	cc := cache.Config{
		Driver:   cfg.Session.Driver,
		Addr:     cfg.Session.Redis.Addr,
		Password: cfg.Session.Redis.Password,
		DB:       cfg.Session.Redis.DB,
		Prefix:   cfg.Session.Redis.Prefix,
	}
	if cc.Driver == "memory" && !cfg.SessionInMemoryOnly() {
		cc.Path = cfg.Session.Path
	}
	c, err := cache.New(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("app: session store: %w", err)
	}
	return c, nil
}

func openSecretbox(cfg *config.Config) (*secretbox.Box, error) {
	switch {
	case cfg.Session.SecretboxKey != "":
		return secretbox.FromKey(cfg.Session.SecretboxKey)
	case cfg.Session.Passphrase != "":
		return secretbox.FromPassphrase(cfg.Session.Passphrase, []byte("hellolink:"+cfg.Remote.AppID))
	}
	return nil, nil
}

func buildSink(cfg *config.Config, stdout io.Writer) (notify.Sink, error) {
	var out notify.Multi
	for _, name := range cfg.Notify.Sinks {
		switch name {
		case "log":
			out = append(out, notify.LogSink{})
		case "stdout":
			out = append(out, notify.WriterSink{W: stdout})
		case "mail":
			mc := cfg.Notify.Mail
			ms, err := notify.NewMailSink(notify.SMTPConfig{
				Host:               mc.Host,
				Port:               mc.Port,
				Username:           mc.Username,
				Password:           mc.Password,
				From:               mc.From,
				To:                 mc.To,
				TLSMode:            mc.TLSMode,
				InsecureSkipVerify: mc.InsecureSkipVerify,
				MinLevel:           parseLevel(mc.MinLevel),
			})
			if err != nil {
				return nil, err
			}
			out = append(out, ms)
		default:
			return nil, fmt.Errorf("app: unknown notify sink %q", name)
		}
	}
	return out, nil
}

func parseLevel(s string) notify.Level {
	switch s {
	case "warning":
		return notify.LevelWarning
	case "error":
		return notify.LevelError
	}
	return notify.LevelSuccess
}
