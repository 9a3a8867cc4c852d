// Package search consulta usuarios del identity store y arma el aviso para el usuario.
package search

import (
	"context"
	"time"

	"github.com/dropDatabas3/hellolink/internal/domain/linkerr"
	"github.com/dropDatabas3/hellolink/internal/domain/repository"
	"github.com/dropDatabas3/hellolink/internal/notify"
	"github.com/dropDatabas3/hellolink/internal/observability/logger"
)

// CreatedAtLayout es el formato de fecha en los avisos.
const CreatedAtLayout = time.RFC1123

// Service ejecuta búsquedas.
type Service struct {
	client repository.IdentityClient
	sink   notify.Sink
	limit  int
}

// New crea el servicio. sink puede ser nil.
func New(client repository.IdentityClient, sink notify.Sink, limit int) *Service {
	return &Service{client: client, sink: sink, limit: limit}
}

// ByUsername busca usuarios cuyo username contiene q. Un error de red devuelve un slice vacío además del error.
func (s *Service) ByUsername(ctx context.Context, q string) ([]repository.RemoteIdentity, error) {
	log := logger.From(ctx).With(logger.Component("search"), logger.Op("ByUsername"))

	users, err := s.client.QueryUsers(ctx, repository.UserFilter{UsernameContains: q}, nil, s.limit)
	if err != nil {
		le := linkerr.Classify(err, linkerr.StageRemote, "")
		log.Warn("user search failed", logger.Err(le))
		s.notify(ctx, notify.New(notify.LevelError, "%s", le.Message))
		return []repository.RemoteIdentity{}, le
	}

	log.Debug("user search done", logger.Count(len(users)))
	if len(users) == 0 {
		s.notify(ctx, notify.New(notify.LevelWarning, "No users were found containing %q in their username", q))
		return []repository.RemoteIdentity{}, nil
	}
	s.notify(ctx, notify.New(notify.LevelSuccess, "%d users were found containing %q in their username", len(users), q))
	return users, nil
}

// Latest devuelve el último usuario creado, o nil si no hay usuarios.
func (s *Service) Latest(ctx context.Context) (*repository.RemoteIdentity, error) {
	users, err := s.client.QueryUsers(ctx, repository.UserFilter{}, &repository.UserOrder{By: "createdAt", Desc: true}, 1)
	if err != nil {
		le := linkerr.Classify(err, linkerr.StageRemote, "")
		logger.From(ctx).Warn("latest user query failed", logger.Component("search"), logger.Err(le))
		s.notify(ctx, notify.New(notify.LevelError, "%s", le.Message))
		return nil, le
	}
	if len(users) == 0 {
		s.notify(ctx, notify.New(notify.LevelWarning, "No users where created yet!"))
		return nil, nil
	}
	u := users[0]
	s.notify(ctx, notify.New(notify.LevelSuccess, "%s is the latest user, created on %s", u.Username, u.CreatedAt.Format(CreatedAtLayout)))
	return &u, nil
}

func (s *Service) notify(ctx context.Context, n notify.Notice) {
	if s.sink != nil {
		s.sink.Notify(ctx, n)
	}
}
