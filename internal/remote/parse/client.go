// Package parse implementa repository.IdentityClient sobre el REST API de Parse Server.
//
// Endpoints:
//   - POST /login               login con usuario/contraseña
//   - POST /users               sign-up o login con authData (idempotente por subject id)
//   - PUT  /users/{id}          agrega authData a un usuario existente
//   - GET  /users/me            usuario de la sesión
//   - POST /logout              invalida la sesión
//   - GET  /users?where=...     búsqueda
//
// El session token vive en un TokenStore (cache + secretbox).
package parse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/hellolink/internal/domain/linkerr"
	"github.com/dropDatabas3/hellolink/internal/domain/repository"
	"github.com/dropDatabas3/hellolink/internal/domain/types"
	"github.com/dropDatabas3/hellolink/internal/metrics"
	"github.com/dropDatabas3/hellolink/internal/observability/logger"
)

// Config del cliente.
type Config struct {
	ServerURL      string // ej. https://parseapi.back4app.com
	AppID          string
	RESTKey        string
	InstallationID string // opcional, se genera si falta
	Timeout        time.Duration
	QueryLimit     int // default para QueryUsers
}

// Deps del cliente.
type Deps struct {
	Config  Config
	Tokens  *TokenStore
	Metrics *metrics.Link // opcional
	HTTP    *http.Client  // opcional
}

// Client implementa repository.IdentityClient.
type Client struct {
	cfg     Config
	base    string
	tokens  *TokenStore
	metrics *metrics.Link
	http    *http.Client
	sf      singleflight.Group
}

var _ repository.IdentityClient = (*Client)(nil)

// New valida la configuración y crea el cliente.
func New(d Deps) (*Client, error) {
	cfg := d.Config
	if cfg.ServerURL == "" {
		return nil, errors.New("parse: server_url is required")
	}
	if cfg.AppID == "" {
		return nil, errors.New("parse: app_id is required")
	}
	if d.Tokens == nil {
		return nil, errors.New("parse: token store is required")
	}
	if cfg.InstallationID == "" {
		cfg.InstallationID = uuid.NewString()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.QueryLimit <= 0 {
		cfg.QueryLimit = 100
	}
	hc := d.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		cfg:     cfg,
		base:    strings.TrimRight(cfg.ServerURL, "/"),
		tokens:  d.Tokens,
		metrics: d.Metrics,
		http:    hc,
	}, nil
}

// PasswordLogin hace POST /login y persiste el session token.
func (c *Client) PasswordLogin(ctx context.Context, username, secret string) (*repository.RemoteIdentity, error) {
	const op = "login"
	provider := string(types.ProviderPassword)

	var u parseUser
	err := c.call(ctx, op, provider, http.MethodPost, "/login", "", map[string]string{
		"username": username,
		"password": secret,
	}, &u, map[string]string{"X-Parse-Revocable-Session": "1"})
	if err != nil {
		return nil, err
	}
	if u.SessionToken == "" {
		return nil, linkerr.Wrap(linkerr.KindInvalidPayload, provider, "login response without session token", nil)
	}
	if err := c.tokens.Save(ctx, u.SessionToken); err != nil {
		return nil, linkerr.Wrap(linkerr.KindNetwork, provider, "cannot persist session", err)
	}
	return u.identity(), nil
}

// LinkCredential vincula authData. Una identidad provisional hace POST /users
// (201 crea, 200 obtiene el usuario existente); una existente hace PUT /users/{id}.
func (c *Client) LinkCredential(ctx context.Context, identity repository.RemoteIdentity, provider types.ProviderKind, payload types.AuthPayload) (*repository.RemoteIdentity, error) {
	p := string(provider)
	authData := map[string]any{p: authDataFor(provider, payload)}

	if identity.IsProvisional() {
		body := map[string]any{"authData": authData}
		if identity.Username != "" {
			body["username"] = identity.Username
		}
		if identity.Email != "" {
			body["email"] = identity.Email
		}
		var u parseUser
		if err := c.call(ctx, "link_signin", p, http.MethodPost, "/users", "", body, &u, map[string]string{"X-Parse-Revocable-Session": "1"}); err != nil {
			return nil, err
		}
		if u.SessionToken == "" {
			return nil, linkerr.Wrap(linkerr.KindInvalidPayload, p, "sign-up response without session token", nil)
		}
		if err := c.tokens.Save(ctx, u.SessionToken); err != nil {
			return nil, linkerr.Wrap(linkerr.KindNetwork, p, "cannot persist session", err)
		}
		if u.Username == "" {
			u.Username, u.Email = identity.Username, identity.Email
		}
		return u.identity(), nil
	}

	tok, err := c.tokens.Load(ctx)
	if err != nil {
		return nil, linkerr.Wrap(linkerr.KindNetwork, p, "cannot read session", err)
	}
	if tok == "" {
		return nil, linkerr.ErrInvalidState.WithProvider(p)
	}
	var u parseUser
	if err := c.call(ctx, "link", p, http.MethodPut, "/users/"+url.PathEscape(identity.ID), tok, map[string]any{"authData": authData}, &u, nil); err != nil {
		return nil, err
	}
	out := identity.Clone()
	if t, ok := parseTime(u.UpdatedAt); ok {
		out.UpdatedAt = t
	}
	if !out.HasProvider(provider) {
		out.LinkedProviders = append(out.LinkedProviders, provider)
	}
	return out, nil
}

// CurrentIdentity hace GET /users/me. Sin token o con token vencido devuelve nil, nil.
// Llamadas concurrentes comparten el mismo request.
func (c *Client) CurrentIdentity(ctx context.Context) (*repository.RemoteIdentity, error) {
	v, err, _ := c.sf.Do("me", func() (any, error) {
		return c.me(ctx)
	})
	if err != nil {
		return nil, err
	}
	id, _ := v.(*repository.RemoteIdentity)
	return id.Clone(), nil
}

func (c *Client) me(ctx context.Context) (*repository.RemoteIdentity, error) {
	tok, err := c.tokens.Load(ctx)
	if err != nil {
		return nil, linkerr.Wrap(linkerr.KindNetwork, "", "cannot read session", err)
	}
	if tok == "" {
		return nil, nil
	}
	var u parseUser
	err = c.call(ctx, "me", "", http.MethodGet, "/users/me", tok, nil, &u, nil)
	if err != nil {
		var ae *APIError
		if errors.As(err, &ae) && ae.Code == codeInvalidSessionToken {
			logger.From(ctx).Info("stored session is no longer valid", logger.Component("parse"))
			_ = c.tokens.Clear(ctx)
			return nil, nil
		}
		return nil, err
	}
	return u.identity(), nil
}

// SignOut hace POST /logout. El token local se borra siempre.
func (c *Client) SignOut(ctx context.Context) error {
	tok, err := c.tokens.Load(ctx)
	if err != nil {
		return linkerr.Wrap(linkerr.KindNetwork, "", "cannot read session", err)
	}
	if tok == "" {
		return nil
	}
	callErr := c.call(ctx, "logout", "", http.MethodPost, "/logout", tok, map[string]any{}, nil, nil)
	if err := c.tokens.Clear(ctx); err != nil {
		logger.From(ctx).Warn("cannot clear stored session", logger.Component("parse"), logger.Err(err))
	}
	var ae *APIError
	if errors.As(callErr, &ae) && ae.Code == codeInvalidSessionToken {
		return nil
	}
	return callErr
}

// QueryUsers hace GET /users con where/order/limit.
func (c *Client) QueryUsers(ctx context.Context, filter repository.UserFilter, order *repository.UserOrder, limit int) ([]repository.RemoteIdentity, error) {
	q := url.Values{}
	if filter.UsernameContains != "" {
		where, err := json.Marshal(map[string]any{
			"username": map[string]string{"$regex": quoteRegex(filter.UsernameContains)},
		})
		if err != nil {
			return nil, linkerr.Wrap(linkerr.KindInvalidPayload, "", "invalid filter", err)
		}
		q.Set("where", string(where))
	}
	if order != nil && order.By != "" {
		o := order.By
		if order.Desc {
			o = "-" + o
		}
		q.Set("order", o)
	}
	if limit <= 0 {
		limit = c.cfg.QueryLimit
	}
	q.Set("limit", fmt.Sprint(limit))

	tok, err := c.tokens.Load(ctx)
	if err != nil {
		return nil, linkerr.Wrap(linkerr.KindNetwork, "", "cannot read session", err)
	}

	var res struct {
		Results []parseUser `json:"results"`
	}
	if err := c.call(ctx, "query", "", http.MethodGet, "/users?"+q.Encode(), tok, nil, &res, nil); err != nil {
		return nil, err
	}
	out := make([]repository.RemoteIdentity, 0, len(res.Results))
	for i := range res.Results {
		out = append(out, *res.Results[i].identity())
	}
	return out, nil
}

// call ejecuta el request y clasifica cualquier error. out puede ser nil.
func (c *Client) call(ctx context.Context, op, provider, method, path, sessionToken string, body, out any, headers map[string]string) error {
	start := time.Now()
	log := logger.From(ctx).With(logger.Layer("remote"), logger.Component("parse"), logger.Op(op))

	err := c.do(ctx, method, path, sessionToken, body, out, headers)
	var le *linkerr.Error
	if err != nil {
		var ae *APIError
		if errors.As(err, &ae) {
			le = classify(ae, provider)
		} else {
			le = linkerr.Classify(err, linkerr.StageRemote, provider)
		}
	}

	kind := ""
	if le != nil {
		kind = string(le.Kind)
	}
	c.metrics.ObserveRemote(op, kind, time.Since(start))

	if le != nil {
		log.Debug("parse request failed", logger.Method(method), logger.ErrorKind(kind), logger.Err(err), logger.Duration(time.Since(start)))
		return le
	}
	log.Debug("parse request ok", logger.Method(method), logger.Duration(time.Since(start)))
	return nil
}

func (c *Client) do(ctx context.Context, method, path, sessionToken string, body, out any, headers map[string]string) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return linkerr.Wrap(linkerr.KindInvalidPayload, "", "cannot encode request", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("X-Parse-Application-Id", c.cfg.AppID)
	if c.cfg.RESTKey != "" {
		req.Header.Set("X-Parse-REST-API-Key", c.cfg.RESTKey)
	}
	req.Header.Set("X-Parse-Installation-Id", c.cfg.InstallationID)
	if sessionToken != "" {
		req.Header.Set("X-Parse-Session-Token", sessionToken)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		ae := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(b, ae)
		return ae
	}
	if out == nil || len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return &APIError{Status: resp.StatusCode, Code: codeInvalidJSON, Message: "invalid response body: " + err.Error()}
	}
	return nil
}
