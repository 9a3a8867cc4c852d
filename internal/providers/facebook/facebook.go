// Package facebook adapta Facebook Login a una FacebookCredential.
//
// Dos etapas: (1) diálogo de permisos que devuelve cancelación o access token,
// (2) graph request /me con ese token para obtener el id del usuario.
// Acquire no vuelve hasta que la etapa 2 termina.
package facebook

import (
	"context"
	"errors"

	"github.com/dropDatabas3/hellolink/internal/domain/types"
	"github.com/dropDatabas3/hellolink/internal/observability/logger"
	"github.com/dropDatabas3/hellolink/internal/providers"
)

// DefaultPermissions pedidos en el diálogo.
var DefaultPermissions = []string{"email"}

const profileFields = "id,email,name"

// LoginResult es la respuesta del diálogo de permisos.
type LoginResult struct {
	IsCancelled        bool
	AccessToken        string
	GrantedPermissions []string
}

// Profile es la respuesta del graph request /me.
type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// LoginManager abre el diálogo de permisos.
type LoginManager interface {
	LogInWithPermissions(ctx context.Context, permissions []string) (*LoginResult, error)
}

// GraphClient consulta el Graph API.
type GraphClient interface {
	Me(ctx context.Context, accessToken, fields string) (*Profile, error)
}

// Adapter implementa providers.Adapter para Facebook.
type Adapter struct {
	login       LoginManager
	graph       GraphClient
	permissions []string
}

func New(login LoginManager, graph GraphClient) *Adapter {
	return &Adapter{login: login, graph: graph, permissions: DefaultPermissions}
}

func (a *Adapter) Kind() types.ProviderKind { return types.ProviderFacebook }

func (a *Adapter) Acquire(ctx context.Context) (types.Credential, error) {
	const kind = types.ProviderFacebook
	log := logger.From(ctx).With(logger.Component("facebook"), logger.Op("Acquire"))

	if a.login == nil || a.graph == nil {
		return nil, providers.Unavailable(kind, "facebook login is not available on this platform", nil)
	}

	res, err := a.login.LogInWithPermissions(ctx, a.permissions)
	if err != nil {
		return nil, providers.Classify(kind, err)
	}
	if res == nil {
		return nil, providers.Protocol(kind, "empty login response", nil)
	}
	if res.IsCancelled {
		return nil, providers.Cancelled(kind)
	}
	if res.AccessToken == "" {
		return nil, providers.Protocol(kind, "login response without access token", nil)
	}

	// Etapa 2: un fallo acá no se traga; llega al llamador como error de protocolo.
	prof, err := a.graph.Me(ctx, res.AccessToken, profileFields)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, providers.Classify(kind, err)
		}
		log.Warn("graph request failed", logger.Err(err))
		return nil, providers.Protocol(kind, "profile request failed", err)
	}
	if prof == nil {
		return nil, providers.Protocol(kind, "empty profile response", nil)
	}

	cred := types.FacebookCredential{
		SubjectID:   prof.ID,
		AccessToken: res.AccessToken,
		Email:       prof.Email,
	}
	if err := cred.Validate(); err != nil {
		return nil, err
	}
	return cred, nil
}

// WithPermissions devuelve una copia que pide otros permisos.
func (a *Adapter) WithPermissions(perms []string) *Adapter {
	out := *a
	out.permissions = append([]string(nil), perms...)
	return &out
}
