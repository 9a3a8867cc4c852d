package link

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dropDatabas3/hellolink/internal/domain/linkerr"
	"github.com/dropDatabas3/hellolink/internal/domain/repository"
	"github.com/dropDatabas3/hellolink/internal/domain/types"
)

type fakeAccount struct {
	secret   string
	identity repository.RemoteIdentity
}

// fakeStore imita un identity store: crea-u-obtiene por (provider, subject) y
// guarda la sesión actual como hace el SDK real.
type fakeStore struct {
	mu        sync.Mutex
	seq       int
	accounts  map[string]*fakeAccount // username -> cuenta
	bySubject map[string]string       // provider:subject -> username
	current   string                  // username con sesión, "" si ninguno

	loginErr   error
	linkErr    error
	currentErr error
	signOutErr error

	calls map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts:  map[string]*fakeAccount{},
		bySubject: map[string]string{},
		calls:     map[string]int{},
	}
}

func (f *fakeStore) addUser(username, secret, email string, verified bool) *repository.RemoteIdentity {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	acc := &fakeAccount{secret: secret, identity: repository.RemoteIdentity{
		ID:              fmt.Sprintf("u%03d", f.seq),
		Username:        username,
		Email:           email,
		EmailVerified:   verified,
		CreatedAt:       time.Date(2024, 1, f.seq, 0, 0, 0, 0, time.UTC),
		LinkedProviders: []types.ProviderKind{types.ProviderPassword},
	}}
	f.accounts[username] = acc
	return acc.identity.Clone()
}

func (f *fakeStore) remoteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeStore) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeStore) PasswordLogin(ctx context.Context, username, secret string) (*repository.RemoteIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["login"]++
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	acc, ok := f.accounts[username]
	if !ok || acc.secret != secret {
		return nil, linkerr.ErrInvalidCredentials
	}
	f.current = username
	return acc.identity.Clone(), nil
}

func (f *fakeStore) LinkCredential(ctx context.Context, identity repository.RemoteIdentity, provider types.ProviderKind, payload types.AuthPayload) (*repository.RemoteIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["link"]++
	if f.linkErr != nil {
		return nil, f.linkErr
	}
	key := string(provider) + ":" + payload.ID
	owner, taken := f.bySubject[key]

	if identity.IsProvisional() {
		if taken {
			f.current = owner
			return f.accounts[owner].identity.Clone(), nil
		}
		f.seq++
		acc := &fakeAccount{identity: repository.RemoteIdentity{
			ID:              fmt.Sprintf("u%03d", f.seq),
			Username:        identity.Username,
			Email:           identity.Email,
			EmailVerified:   identity.Email != "",
			CreatedAt:       time.Date(2024, 2, f.seq, 0, 0, 0, 0, time.UTC),
			LinkedProviders: []types.ProviderKind{provider},
		}}
		f.accounts[identity.Username] = acc
		f.bySubject[key] = identity.Username
		f.current = identity.Username
		return acc.identity.Clone(), nil
	}

	if taken && owner != identity.Username {
		return nil, linkerr.ErrAlreadyLinked
	}
	acc, ok := f.accounts[identity.Username]
	if !ok {
		return nil, linkerr.ErrInvalidPayload
	}
	f.bySubject[key] = identity.Username
	if !acc.identity.HasProvider(provider) {
		acc.identity.LinkedProviders = append(acc.identity.LinkedProviders, provider)
	}
	// la respuesta del link es parcial a propósito: el orquestador debe re-leer
	return &repository.RemoteIdentity{ID: acc.identity.ID}, nil
}

func (f *fakeStore) CurrentIdentity(ctx context.Context) (*repository.RemoteIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["current"]++
	if f.currentErr != nil {
		return nil, f.currentErr
	}
	if f.current == "" {
		return nil, nil
	}
	return f.accounts[f.current].identity.Clone(), nil
}

func (f *fakeStore) SignOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["signout"]++
	f.current = ""
	return f.signOutErr
}

func (f *fakeStore) QueryUsers(ctx context.Context, filter repository.UserFilter, order *repository.UserOrder, limit int) ([]repository.RemoteIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["query"]++
	return []repository.RemoteIdentity{}, nil
}

// stubAdapter devuelve una credencial o un error fijo.
type stubAdapter struct {
	kind  types.ProviderKind
	cred  types.Credential
	err   error
	calls int
}

func (s *stubAdapter) Kind() types.ProviderKind { return s.kind }

func (s *stubAdapter) Acquire(ctx context.Context) (types.Credential, error) {
	s.calls++
	return s.cred, s.err
}
