// Package link orquesta sign-in y vinculación de credenciales contra el identity store.
//
// Flujo: Acquirer (adapter del provider) → Orchestrator.Apply → IdentityClient →
// re-lectura de la identidad actual → Session → Outcome.
//
// Invariantes:
//   - La Session sólo cambia después de que el store confirmó la operación y
//     la identidad actual fue re-leída del store.
//   - Link sin sesión falla con InvalidState sin tocar la red.
//   - Un login por password con email sin verificar cierra la sesión.
//   - Ningún error crudo sale de acá: todo se clasifica en linkerr.Error.
//
// Se asume a lo sumo un Apply en vuelo por Session; serializar es
// responsabilidad del llamador (ver app.Controller).
package link

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/hellolink/internal/domain/linkerr"
	"github.com/dropDatabas3/hellolink/internal/domain/repository"
	"github.com/dropDatabas3/hellolink/internal/domain/types"
	"github.com/dropDatabas3/hellolink/internal/metrics"
	"github.com/dropDatabas3/hellolink/internal/observability/logger"
)

// Acquirer obtiene una credencial de un provider. Lo implementan los adapters de internal/providers.
type Acquirer interface {
	Kind() types.ProviderKind
	Acquire(ctx context.Context) (types.Credential, error)
}

// Deps contiene las dependencias del orquestador.
type Deps struct {
	Client  repository.IdentityClient
	Session *Session      // opcional, default: sesión anónima nueva
	Metrics *metrics.Link // opcional
}

// Orchestrator es el único escritor de la Session.
type Orchestrator struct {
	client  repository.IdentityClient
	session *Session
	metrics *metrics.Link
}

// New crea un Orchestrator.
func New(d Deps) *Orchestrator {
	s := d.Session
	if s == nil {
		s = NewSession()
	}
	return &Orchestrator{client: d.Client, session: s, metrics: d.Metrics}
}

// Session devuelve la sesión (sólo lectura para quien no sea el orquestador).
func (o *Orchestrator) Session() *Session { return o.session }

// Restore carga la sesión persistida por el store. Pensado para el arranque.
func (o *Orchestrator) Restore(ctx context.Context) (*repository.RemoteIdentity, error) {
	log := logger.From(ctx).With(logger.Layer("orchestrator"), logger.Component("link"), logger.Op("Restore"))

	id, err := o.client.CurrentIdentity(ctx)
	if err != nil {
		le := linkerr.Classify(err, linkerr.StageRemote, "")
		log.Warn("session restore failed", logger.ErrorKind(string(le.Kind)), logger.Err(le))
		return nil, le
	}
	o.session.set(id)
	if id != nil {
		log.Debug("session restored", logger.UserID(id.ID))
	}
	return o.session.Current(), nil
}

// Run adquiere la credencial del adapter y la aplica.
// Las precondiciones se chequean antes de abrir el diálogo del provider.
func (o *Orchestrator) Run(ctx context.Context, a Acquirer, mode types.LinkMode) Outcome {
	start := time.Now()
	kind := a.Kind()
	log := o.logFor(ctx, "Run", kind, mode)

	if le := o.precondition(kind, mode); le != nil {
		return o.finish(log, start, failed(kind, mode, le))
	}

	cred, err := a.Acquire(ctx)
	if err != nil {
		le := linkerr.Classify(err, linkerr.StageProvider, string(kind))
		if le.Kind == linkerr.KindUserCancelled {
			return o.finish(log, start, cancelled(kind, mode))
		}
		return o.finish(log, start, failed(kind, mode, le))
	}
	if cred == nil {
		return o.finish(log, start, failed(kind, mode, linkerr.ErrProviderProtocol.WithProvider(string(kind))))
	}
	return o.apply(ctx, log, start, cred, mode)
}

// Apply aplica una credencial ya adquirida.
func (o *Orchestrator) Apply(ctx context.Context, cred types.Credential, mode types.LinkMode) Outcome {
	start := time.Now()
	if cred == nil {
		return o.finish(o.logFor(ctx, "Apply", "", mode), start, failed("", mode, linkerr.ErrProviderProtocol))
	}
	return o.apply(ctx, o.logFor(ctx, "Apply", cred.Kind(), mode), start, cred, mode)
}

// SignOut cierra la sesión en el store y deja la Session anónima.
// La sesión local se limpia aunque el store falle.
func (o *Orchestrator) SignOut(ctx context.Context) error {
	log := logger.From(ctx).With(logger.Layer("orchestrator"), logger.Component("link"), logger.Op("SignOut"))

	err := o.client.SignOut(ctx)
	o.session.set(nil)
	o.metrics.IncSignOut()
	if err != nil {
		le := linkerr.Classify(err, linkerr.StageRemote, "")
		log.Warn("remote sign-out failed, local session cleared anyway", logger.Err(le))
		return le
	}
	log.Info("signed out")
	return nil
}

func (o *Orchestrator) apply(ctx context.Context, log *zap.Logger, start time.Time, cred types.Credential, mode types.LinkMode) Outcome {
	kind := cred.Kind()

	if le := o.precondition(kind, mode); le != nil {
		return o.finish(log, start, failed(kind, mode, le))
	}
	if err := cred.Validate(); err != nil {
		return o.finish(log, start, failed(kind, mode, linkerr.Classify(err, linkerr.StageProvider, string(kind))))
	}

	var out Outcome
	switch c := cred.(type) {
	case types.PasswordCredential:
		out = o.passwordSignIn(ctx, log, c)
	case types.SocialCredential:
		out = o.linkSocial(ctx, log, c, mode)
	default:
		out = failed(kind, mode, linkerr.Wrap(linkerr.KindUnsupportedOperation, string(kind), "unknown credential type", nil))
	}
	return o.finish(log, start, out)
}

// precondition: password nunca se vincula a posteriori (tiene prioridad sobre
// la falta de sesión) y Link necesita una identidad autenticada.
func (o *Orchestrator) precondition(kind types.ProviderKind, mode types.LinkMode) *linkerr.Error {
	switch mode {
	case types.ModeSignIn, types.ModeLink:
	default:
		return linkerr.Wrap(linkerr.KindInvalidState, string(kind), "unknown link mode", nil)
	}
	if mode == types.ModeLink && kind == types.ProviderPassword {
		return linkerr.Wrap(linkerr.KindUnsupportedOperation, string(kind), "password credentials cannot be linked to an existing user", nil)
	}
	if mode == types.ModeLink && o.session.State() != StateAuthenticated {
		return linkerr.ErrInvalidState.WithProvider(string(kind))
	}
	return nil
}

func (o *Orchestrator) passwordSignIn(ctx context.Context, log *zap.Logger, c types.PasswordCredential) Outcome {
	const kind, mode = types.ProviderPassword, types.ModeSignIn

	if _, err := o.client.PasswordLogin(ctx, c.Username, c.Secret); err != nil {
		return failed(kind, mode, linkerr.Classify(err, linkerr.StageRemote, string(kind)))
	}

	id, le := o.confirm(ctx, kind)
	if le != nil {
		o.discardRemoteSession(ctx, log, kind)
		return failed(kind, mode, le)
	}

	if !id.EmailVerified {
		if err := o.client.SignOut(ctx); err != nil {
			log.Warn("sign-out of unverified user failed", logger.UserID(id.ID), logger.Err(err))
		}
		o.session.set(nil)
		o.metrics.IncSignOut()
		return failed(kind, mode, linkerr.ErrEmailNotVerified.WithProvider(string(kind)))
	}

	o.session.set(id)
	return succeeded(kind, mode, id)
}

func (o *Orchestrator) linkSocial(ctx context.Context, log *zap.Logger, c types.SocialCredential, mode types.LinkMode) Outcome {
	kind := c.Kind()

	var target repository.RemoteIdentity
	if mode == types.ModeSignIn {
		// Identidad provisional nueva en cada llamada: el store decide crear u obtener por subject id.
		username := types.ProvisionalUsername(c)
		target = repository.RemoteIdentity{Username: username, Email: c.DisclosedEmail()}
	} else {
		cur := o.session.Current()
		if cur == nil {
			return failed(kind, mode, linkerr.ErrInvalidState.WithProvider(string(kind)))
		}
		target = *cur
	}

	if _, err := o.client.LinkCredential(ctx, target, kind, c.Payload()); err != nil {
		return failed(kind, mode, linkerr.Classify(err, linkerr.StageRemote, string(kind)))
	}

	id, le := o.confirm(ctx, kind)
	if le != nil {
		if mode == types.ModeSignIn {
			o.discardRemoteSession(ctx, log, kind)
		}
		return failed(kind, mode, le)
	}
	o.session.set(id)
	return succeeded(kind, mode, id)
}

// discardRemoteSession invalida el token que el store acaba de persistir en un
// SignIn que no se pudo confirmar, para que un Restore posterior no lo levante.
// La Session en memoria no se toca.
func (o *Orchestrator) discardRemoteSession(ctx context.Context, log *zap.Logger, kind types.ProviderKind) {
	if err := o.client.SignOut(ctx); err != nil {
		log.Warn("cannot discard unconfirmed session", logger.Provider(string(kind)), logger.Err(err))
	}
}

// confirm re-lee la identidad actual del store; la respuesta del login/link no es autoritativa.
func (o *Orchestrator) confirm(ctx context.Context, kind types.ProviderKind) (*repository.RemoteIdentity, *linkerr.Error) {
	id, err := o.client.CurrentIdentity(ctx)
	if err != nil {
		return nil, linkerr.Classify(err, linkerr.StageRemote, string(kind))
	}
	if id == nil {
		return nil, linkerr.Wrap(linkerr.KindInvalidState, string(kind), "identity store reported no current user after the operation", nil)
	}
	return id, nil
}

func (o *Orchestrator) logFor(ctx context.Context, op string, kind types.ProviderKind, mode types.LinkMode) *zap.Logger {
	return logger.From(ctx).With(
		logger.Layer("orchestrator"),
		logger.Component("link"),
		logger.Op(op),
		logger.Provider(string(kind)),
		logger.Mode(mode.String()),
	)
}

func (o *Orchestrator) finish(log *zap.Logger, start time.Time, out Outcome) Outcome {
	elapsed := time.Since(start)
	o.metrics.ObserveApply(string(out.Provider), out.Mode.String(), out.Status.String(), string(out.ErrorKind()), elapsed)

	switch out.Status {
	case StatusSuccess:
		log.Info("operation succeeded",
			logger.Outcome(out.Status.String()),
			logger.UserID(out.Identity.ID),
			logger.Duration(elapsed),
		)
	case StatusCancelled:
		log.Info("operation cancelled by user", logger.Outcome(out.Status.String()))
	default:
		log.Warn("operation failed",
			logger.Outcome(out.Status.String()),
			logger.ErrorKind(string(out.ErrorKind())),
			logger.Bool("retryable", out.ErrorKind().Retryable()),
			logger.Err(out.Err),
			logger.Duration(elapsed),
		)
	}
	return out
}
