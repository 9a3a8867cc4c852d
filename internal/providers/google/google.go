// Package google adapta Google Sign-In a una GoogleCredential.
//
// El handshake nativo queda detrás de Native: en mobile es el SDK de Google
// (Play Services), en desktop/CLI es OAuthClient (OIDC + PKCE + loopback).
package google

import (
	"context"

	"github.com/dropDatabas3/hellolink/internal/domain/types"
	"github.com/dropDatabas3/hellolink/internal/providers"
)

// User es el perfil que devuelve el sign-in.
type User struct {
	ID    string
	Email string
	Name  string
}

// SignInResult es la respuesta del sign-in nativo.
type SignInResult struct {
	IDToken string
	User    User
}

// Native es el SDK de Google Sign-In.
type Native interface {
	// HasPlayServices falla si la plataforma no tiene los servicios necesarios.
	HasPlayServices(ctx context.Context) error
	// SignIn abre el diálogo. Un diálogo descartado devuelve UserCancelled.
	SignIn(ctx context.Context) (*SignInResult, error)
}

// Adapter implementa providers.Adapter para Google.
type Adapter struct {
	native Native
}

func New(n Native) *Adapter { return &Adapter{native: n} }

func (a *Adapter) Kind() types.ProviderKind { return types.ProviderGoogle }

// Acquire verifica la disponibilidad, abre el sign-in y normaliza la respuesta.
func (a *Adapter) Acquire(ctx context.Context) (types.Credential, error) {
	const kind = types.ProviderGoogle
	if a.native == nil {
		return nil, providers.Unavailable(kind, "google sign-in is not available on this platform", nil)
	}
	if err := a.native.HasPlayServices(ctx); err != nil {
		return nil, providers.Unavailable(kind, "google services are not available", err)
	}

	res, err := a.native.SignIn(ctx)
	if err != nil {
		return nil, providers.Classify(kind, err)
	}
	if res == nil {
		return nil, providers.Protocol(kind, "empty sign-in response", nil)
	}

	cred := types.GoogleCredential{
		SubjectID: res.User.ID,
		IDToken:   res.IDToken,
		Email:     res.User.Email,
	}
	if err := cred.Validate(); err != nil {
		return nil, err
	}
	return cred, nil
}
