package google

import (
	"context"
	"errors"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/dropDatabas3/hellolink/internal/domain/types"
	"github.com/dropDatabas3/hellolink/internal/oauth/loopback"
	"github.com/dropDatabas3/hellolink/internal/observability/logger"
	"github.com/dropDatabas3/hellolink/internal/providers"
)

const DefaultIssuer = "https://accounts.google.com"

// OAuthConfig configura el sign-in por browser.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	Issuer       string // default accounts.google.com
	Scopes       []string
	RedirectAddr string // default 127.0.0.1:0
	Opener       loopback.Opener
}

// OAuthClient implementa Native con OIDC authorization code + PKCE y redirect a loopback.
type OAuthClient struct {
	cfg OAuthConfig

	mu       sync.Mutex
	provider *oidc.Provider
}

// NewOAuthClient valida la configuración. El discovery se hace en HasPlayServices.
func NewOAuthClient(cfg OAuthConfig) (*OAuthClient, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("google: client_id is required")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}
	return &OAuthClient{cfg: cfg}, nil
}

// HasPlayServices resuelve el discovery del issuer; sin discovery no hay sign-in posible.
func (c *OAuthClient) HasPlayServices(ctx context.Context) error {
	_, err := c.oidcProvider(ctx)
	return err
}

func (c *OAuthClient) oidcProvider(ctx context.Context) (*oidc.Provider, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.provider != nil {
		return c.provider, nil
	}
	p, err := oidc.NewProvider(ctx, c.cfg.Issuer)
	if err != nil {
		return nil, err
	}
	c.provider = p
	return p, nil
}

// SignIn abre el browser y espera el callback.
func (c *OAuthClient) SignIn(ctx context.Context) (*SignInResult, error) {
	const kind = types.ProviderGoogle
	log := logger.From(ctx).With(logger.Component("google"), logger.Op("SignIn"))

	p, err := c.oidcProvider(ctx)
	if err != nil {
		return nil, providers.Unavailable(kind, "google discovery failed", err)
	}

	rcv, err := loopback.Listen(loopback.Config{Addr: c.cfg.RedirectAddr, Provider: string(kind)})
	if err != nil {
		return nil, err
	}
	defer rcv.Close()

	oc := &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		RedirectURL:  rcv.RedirectURL(),
		Endpoint:     p.Endpoint(),
		Scopes:       c.cfg.Scopes,
	}

	state := uuid.NewString()
	nonce := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	authURL := oc.AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oidc.Nonce(nonce),
		oauth2.S256ChallengeOption(verifier),
	)

	res, err := rcv.Authorize(ctx, c.cfg.Opener, authURL, state)
	if err != nil {
		return nil, err
	}

	tok, err := oc.Exchange(ctx, res.Code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, providers.Protocol(kind, "token exchange failed", err)
	}
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return nil, providers.Protocol(kind, "google did not return id_token", nil)
	}

	idt, err := p.Verifier(&oidc.Config{ClientID: c.cfg.ClientID}).Verify(ctx, raw)
	if err != nil {
		return nil, providers.Protocol(kind, "id_token verification failed", err)
	}
	if idt.Nonce != nonce {
		return nil, providers.Protocol(kind, "id_token nonce mismatch", nil)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idt.Claims(&claims); err != nil {
		return nil, providers.Protocol(kind, "id_token claims parse failed", err)
	}

	log.Debug("google id_token verified",
		logger.Bool("email_present", claims.Email != ""),
		logger.Bool("email_verified", claims.EmailVerified),
	)
	return &SignInResult{
		IDToken: raw,
		User:    User{ID: idt.Subject, Email: claims.Email, Name: claims.Name},
	}, nil
}
