package apple

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/dropDatabas3/hellolink/internal/domain/types"
	"github.com/dropDatabas3/hellolink/internal/oauth/loopback"
	"github.com/dropDatabas3/hellolink/internal/providers"
)

var appleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://appleid.apple.com/auth/authorize",
	TokenURL: "https://appleid.apple.com/auth/token",
}

// WebConfig configura el flujo web.
type WebConfig struct {
	ServiceID    string // client_id del Services ID
	RedirectAddr string
	Opener       loopback.Opener
	AuthURL      string // opcional (tests)
}

// OAuthWeb implementa WebSignIn con response_type "code id_token" y response_mode form_post.
type OAuthWeb struct {
	cfg WebConfig
}

func NewOAuthWeb(cfg WebConfig) (*OAuthWeb, error) {
	if cfg.ServiceID == "" {
		return nil, errors.New("apple: service_id is required")
	}
	return &OAuthWeb{cfg: cfg}, nil
}

func (w *OAuthWeb) SignIn(ctx context.Context) (*WebResponse, error) {
	const kind = types.ProviderApple

	rcv, err := loopback.Listen(loopback.Config{Addr: w.cfg.RedirectAddr, Provider: string(kind)})
	if err != nil {
		return nil, err
	}
	defer rcv.Close()

	ep := appleEndpoint
	if w.cfg.AuthURL != "" {
		ep.AuthURL = w.cfg.AuthURL
	}
	oc := &oauth2.Config{
		ClientID:    w.cfg.ServiceID,
		RedirectURL: rcv.RedirectURL(),
		Endpoint:    ep,
		Scopes:      []string{"name", "email"},
	}

	state := uuid.NewString()
	nonce := uuid.NewString()
	authURL := oc.AuthCodeURL(state,
		oauth2.SetAuthURLParam("response_type", "code id_token"),
		oauth2.SetAuthURLParam("response_mode", "form_post"),
		oauth2.SetAuthURLParam("nonce", nonce),
	)

	res, err := rcv.Authorize(ctx, w.cfg.Opener, authURL, state)
	if err != nil {
		return nil, err
	}
	if res.IDToken == "" {
		return nil, providers.Protocol(kind, "apple callback without id_token", nil)
	}
	if claims, err := DecodeIdentityToken(res.IDToken); err == nil && claims.Nonce != "" && claims.Nonce != nonce {
		return nil, providers.Protocol(kind, "id_token nonce mismatch", nil)
	}
	return &WebResponse{IDToken: res.IDToken, Code: res.Code, State: res.State}, nil
}
