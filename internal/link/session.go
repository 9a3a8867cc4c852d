package link

import (
	"sync"

	"github.com/dropDatabas3/hellolink/internal/domain/repository"
)

// State es el estado de la sesión.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticated
)

func (s State) String() string {
	if s == StateAuthenticated {
		return "authenticated"
	}
	return "anonymous"
}

// Session guarda la identidad autenticada actual (o ninguna).
//
// Sólo el Orchestrator escribe en ella, y siempre después de que el store
// confirmó la operación. Los lectores reciben copias.
type Session struct {
	mu      sync.RWMutex
	current *repository.RemoteIdentity
}

// NewSession crea una sesión anónima.
func NewSession() *Session {
	return &Session{}
}

// Current devuelve una copia de la identidad actual, o nil si es anónima.
func (s *Session) Current() *repository.RemoteIdentity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// State devuelve Anonymous o Authenticated.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return StateAnonymous
	}
	return StateAuthenticated
}

func (s *Session) set(identity *repository.RemoteIdentity) {
	c := identity.Clone()
	s.mu.Lock()
	s.current = c
	s.mu.Unlock()
}
