package parse

import (
	"context"

	"github.com/dropDatabas3/hellolink/internal/cache"
	"github.com/dropDatabas3/hellolink/internal/observability/logger"
	"github.com/dropDatabas3/hellolink/internal/security/secretbox"
)

const sessionTokenKey = "parse:session_token"

// TokenStore persiste el session token entre ejecuciones.
// Con box != nil el token se guarda cifrado.
type TokenStore struct {
	cache cache.Client
	box   *secretbox.Box
}

func NewTokenStore(c cache.Client, box *secretbox.Box) *TokenStore {
	return &TokenStore{cache: c, box: box}
}

// Load devuelve "" si no hay sesión. Un token ilegible se descarta.
func (s *TokenStore) Load(ctx context.Context) (string, error) {
	v, err := s.cache.Get(ctx, sessionTokenKey)
	if cache.IsNotFound(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if s.box == nil {
		return v, nil
	}
	tok, err := s.box.Open(v)
	if err != nil {
		logger.From(ctx).Warn("discarding unreadable session token", logger.Component("parse"), logger.Err(err))
		_ = s.cache.Delete(ctx, sessionTokenKey)
		return "", nil
	}
	return tok, nil
}

func (s *TokenStore) Save(ctx context.Context, token string) error {
	v := token
	if s.box != nil {
		sealed, err := s.box.Seal(token)
		if err != nil {
			return err
		}
		v = sealed
	}
	return s.cache.Set(ctx, sessionTokenKey, v, 0)
}

func (s *TokenStore) Clear(ctx context.Context) error {
	return s.cache.Delete(ctx, sessionTokenKey)
}
