package app

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/dropDatabas3/hellolink/internal/domain/repository"
	"github.com/dropDatabas3/hellolink/internal/domain/types"
	"github.com/dropDatabas3/hellolink/internal/link"
	"github.com/dropDatabas3/hellolink/internal/notify"
	"github.com/dropDatabas3/hellolink/internal/observability/logger"
	"github.com/dropDatabas3/hellolink/internal/providers"
)

// ErrBusy: ya hay una operación de sesión en curso.
var ErrBusy = errors.New("app: another sign-in operation is in progress")

// Controller serializa las operaciones sobre la sesión y publica el resultado.
// No encola: una segunda llamada concurrente falla con ErrBusy.
type Controller struct {
	orch     *link.Orchestrator
	registry *providers.Registry
	sink     notify.Sink
	timeout  time.Duration
	sem      *semaphore.Weighted
}

// NewController crea el controller. timeout limita sólo el diálogo del provider
// (Acquire); las llamadas al store remoto usan su propio timeout HTTP.
// timeout <= 0 no limita el diálogo.
func NewController(orch *link.Orchestrator, registry *providers.Registry, sink notify.Sink, timeout time.Duration) *Controller {
	return &Controller{
		orch:     orch,
		registry: registry,
		sink:     sink,
		timeout:  timeout,
		sem:      semaphore.NewWeighted(1),
	}
}

// Run adquiere la credencial del provider, la aplica y notifica el resultado.
// El error sólo es ErrBusy; los fallos de la operación viajan en el Outcome.
func (c *Controller) Run(ctx context.Context, kind types.ProviderKind, mode types.LinkMode) (link.Outcome, error) {
	if !c.sem.TryAcquire(1) {
		return link.Outcome{}, ErrBusy
	}
	defer c.sem.Release(1)

	var acq link.Acquirer
	a, err := c.registry.Get(kind)
	if err != nil {
		// el orquestador igual chequea precondiciones y registra la métrica
		acq = unavailable{kind: kind, err: err}
	} else {
		acq = a
	}
	if c.timeout > 0 {
		acq = timedAcquirer{Acquirer: acq, timeout: c.timeout}
	}

	out := c.orch.Run(ctx, acq, mode)
	notify.Outcome(ctx, c.sink, out)
	return out, nil
}

// Restore carga la sesión persistida.
func (c *Controller) Restore(ctx context.Context) (*repository.RemoteIdentity, error) {
	if !c.sem.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer c.sem.Release(1)
	return c.orch.Restore(ctx)
}

// SignOut cierra la sesión.
func (c *Controller) SignOut(ctx context.Context) error {
	if !c.sem.TryAcquire(1) {
		return ErrBusy
	}
	defer c.sem.Release(1)

	if err := c.orch.SignOut(ctx); err != nil {
		logger.From(ctx).Warn("sign-out", logger.Layer("app"), logger.Err(err))
		return err
	}
	return nil
}

// Current devuelve la identidad autenticada o nil.
func (c *Controller) Current() *repository.RemoteIdentity {
	return c.orch.Session().Current()
}

type unavailable struct {
	kind types.ProviderKind
	err  error
}

func (u unavailable) Kind() types.ProviderKind { return u.kind }

func (u unavailable) Acquire(context.Context) (types.Credential, error) { return nil, u.err }

// timedAcquirer corta el diálogo del provider a los timeout.
type timedAcquirer struct {
	link.Acquirer
	timeout time.Duration
}

func (t timedAcquirer) Acquire(ctx context.Context) (types.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Acquirer.Acquire(ctx)
}
