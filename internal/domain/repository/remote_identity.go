package repository

import (
	"context"
	"time"

	"github.com/dropDatabas3/hellolink/internal/domain/types"
)

// RemoteIdentity es el registro canónico del usuario en el identity store.
// El store es la autoridad; acá sólo se mantiene una copia de lectura.
type RemoteIdentity struct {
	ID              string
	Username        string
	Email           string
	EmailVerified   bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LinkedProviders []types.ProviderKind
}

// IsProvisional retorna true si la identidad todavía no existe en el store.
func (r RemoteIdentity) IsProvisional() bool { return r.ID == "" }

// HasProvider retorna true si el provider ya está vinculado.
func (r RemoteIdentity) HasProvider(kind types.ProviderKind) bool {
	for _, p := range r.LinkedProviders {
		if p == kind {
			return true
		}
	}
	return false
}

// Clone devuelve una copia independiente.
func (r *RemoteIdentity) Clone() *RemoteIdentity {
	if r == nil {
		return nil
	}
	out := *r
	if r.LinkedProviders != nil {
		out.LinkedProviders = append([]types.ProviderKind(nil), r.LinkedProviders...)
	}
	return &out
}

// UserFilter filtra QueryUsers. Campos vacíos no filtran.
type UserFilter struct {
	UsernameContains string
}

// UserOrder ordena QueryUsers.
type UserOrder struct {
	By   string // "createdAt", "username", ...
	Desc bool
}

// IdentityClient es el contrato del cliente del identity store remoto.
// La persistencia de la sesión (session token) es responsabilidad de la implementación.
type IdentityClient interface {
	// PasswordLogin autentica con usuario/contraseña y deja la sesión persistida.
	// Errores: linkerr.KindInvalidCredentials, linkerr.KindNetwork.
	PasswordLogin(ctx context.Context, username, secret string) (*RemoteIdentity, error)

	// LinkCredential vincula la credencial del provider a identity.
	// Si identity es provisional el store crea u obtiene el usuario por subject id
	// (idempotente) y deja la sesión persistida.
	// Errores: linkerr.KindAlreadyLinked, linkerr.KindInvalidPayload, linkerr.KindNetwork.
	LinkCredential(ctx context.Context, identity RemoteIdentity, provider types.ProviderKind, payload types.AuthPayload) (*RemoteIdentity, error)

	// CurrentIdentity lee la sesión persistida. Retorna nil, nil si no hay sesión.
	CurrentIdentity(ctx context.Context) (*RemoteIdentity, error)

	// SignOut invalida la sesión persistida.
	SignOut(ctx context.Context) error

	// QueryUsers lista usuarios. Cero resultados es un slice vacío, nunca un error.
	// limit <= 0 usa el default del store.
	QueryUsers(ctx context.Context, filter UserFilter, order *UserOrder, limit int) ([]RemoteIdentity, error)
}
