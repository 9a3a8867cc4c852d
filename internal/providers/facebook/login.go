package facebook

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/dropDatabas3/hellolink/internal/domain/linkerr"
	"github.com/dropDatabas3/hellolink/internal/domain/types"
	"github.com/dropDatabas3/hellolink/internal/oauth/loopback"
	"github.com/dropDatabas3/hellolink/internal/providers"
)

// OAuthConfig configura el login por browser.
type OAuthConfig struct {
	AppID        string
	AppSecret    string
	RedirectAddr string
	Opener       loopback.Opener
	// Endpoint opcional (tests); default endpoints.Facebook.
	Endpoint oauth2.Endpoint
}

// OAuthLogin implementa LoginManager con el flujo de authorization code y redirect a loopback.
type OAuthLogin struct {
	cfg OAuthConfig
}

func NewOAuthLogin(cfg OAuthConfig) (*OAuthLogin, error) {
	if cfg.AppID == "" || cfg.AppSecret == "" {
		return nil, errors.New("facebook: app_id and app_secret are required")
	}
	if cfg.Endpoint.AuthURL == "" {
		cfg.Endpoint = endpoints.Facebook
	}
	return &OAuthLogin{cfg: cfg}, nil
}

// LogInWithPermissions devuelve IsCancelled si el usuario rechaza el diálogo.
func (l *OAuthLogin) LogInWithPermissions(ctx context.Context, permissions []string) (*LoginResult, error) {
	const kind = types.ProviderFacebook

	rcv, err := loopback.Listen(loopback.Config{Addr: l.cfg.RedirectAddr, Provider: string(kind)})
	if err != nil {
		return nil, err
	}
	defer rcv.Close()

	oc := &oauth2.Config{
		ClientID:     l.cfg.AppID,
		ClientSecret: l.cfg.AppSecret,
		RedirectURL:  rcv.RedirectURL(),
		Endpoint:     l.cfg.Endpoint,
		Scopes:       permissions,
	}
	state := uuid.NewString()

	res, err := rcv.Authorize(ctx, l.cfg.Opener, oc.AuthCodeURL(state), state)
	if err != nil {
		if linkerr.KindOf(err) == linkerr.KindUserCancelled {
			return &LoginResult{IsCancelled: true}, nil
		}
		return nil, err
	}

	tok, err := oc.Exchange(ctx, res.Code)
	if err != nil {
		return nil, providers.Protocol(kind, "token exchange failed", err)
	}
	return &LoginResult{AccessToken: tok.AccessToken, GrantedPermissions: permissions}, nil
}
