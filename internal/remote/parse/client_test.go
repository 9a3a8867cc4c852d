package parse

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellolink/internal/cache"
	"github.com/dropDatabas3/hellolink/internal/domain/linkerr"
	"github.com/dropDatabas3/hellolink/internal/domain/repository"
	"github.com/dropDatabas3/hellolink/internal/domain/types"
	"github.com/dropDatabas3/hellolink/internal/link"
	"github.com/dropDatabas3/hellolink/internal/metrics"
	"github.com/dropDatabas3/hellolink/internal/security/secretbox"
)

// recorded guarda lo que recibió el servidor fake.
type recorded struct {
	Method  string
	Path    string
	Query   string
	Session string
	Body    map[string]any
}

type fakeParse struct {
	t       *testing.T
	mu      sync.Mutex
	reqs    []recorded
	handler func(w http.ResponseWriter, r recorded)
}

func (f *fakeParse) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	assert.Equal(f.t, "app-1", r.Header.Get("X-Parse-Application-Id"))
	assert.Equal(f.t, "rest-1", r.Header.Get("X-Parse-REST-API-Key"))
	assert.NotEmpty(f.t, r.Header.Get("X-Parse-Installation-Id"))

	rec := recorded{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Session: r.Header.Get("X-Parse-Session-Token")}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&rec.Body)
	}
	f.mu.Lock()
	f.reqs = append(f.reqs, rec)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	f.handler(w, rec)
}

func (f *fakeParse) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

func reply(w http.ResponseWriter, status int, body any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func parseErr(w http.ResponseWriter, status, code int, msg string) {
	reply(w, status, map[string]any{"code": code, "error": msg})
}

type harness struct {
	client *Client
	tokens *TokenStore
	store  cache.Client
	server *fakeParse
	m      *metrics.Link
}

func newHarness(t *testing.T, h func(w http.ResponseWriter, r recorded)) *harness {
	t.Helper()
	fp := &fakeParse{t: t, handler: h}
	srv := httptest.NewServer(fp)
	t.Cleanup(srv.Close)

	store, err := cache.NewMemory("test", "")
	require.NoError(t, err)
	m, err := metrics.NewLink(prometheus.NewRegistry())
	require.NoError(t, err)

	tokens := NewTokenStore(store, nil)
	c, err := New(Deps{
		Config:  Config{ServerURL: srv.URL + "/", AppID: "app-1", RESTKey: "rest-1", Timeout: 5 * time.Second},
		Tokens:  tokens,
		Metrics: m,
	})
	require.NoError(t, err)
	return &harness{client: c, tokens: tokens, store: store, server: fp, m: m}
}

var aliceJSON = map[string]any{
	"objectId":      "u1",
	"username":      "alice",
	"email":         "alice@example.com",
	"emailVerified": true,
	"createdAt":     "2021-03-04T05:06:07.000Z",
	"updatedAt":     "2021-03-05T05:06:07.000Z",
	"authData":      map[string]any{"google": map[string]any{"id": "g-1"}, "facebook": nil},
}

func TestPasswordLogin(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r recorded) {
		switch {
		case r.Path == "/login" && r.Body["password"] == "pw":
			body := map[string]any{"sessionToken": "r:tok"}
			for k, v := range aliceJSON {
				body[k] = v
			}
			reply(w, http.StatusOK, body)
		case r.Path == "/login" && r.Body["password"] == "unverified":
			parseErr(w, http.StatusBadRequest, 205, "User email is not verified.")
		case r.Path == "/login":
			parseErr(w, http.StatusNotFound, 101, "Invalid username/password.")
		case r.Path == "/users/me" && r.Session == "r:tok":
			reply(w, http.StatusOK, aliceJSON)
		default:
			parseErr(w, http.StatusBadRequest, 209, "Invalid session token")
		}
	})
	ctx := context.Background()

	id, err := h.client.PasswordLogin(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u1", id.ID)
	assert.True(t, id.EmailVerified)
	assert.Equal(t, []types.ProviderKind{types.ProviderGoogle}, id.LinkedProviders)
	assert.Equal(t, 2021, id.CreatedAt.Year())

	tok, err := h.tokens.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r:tok", tok)

	cur, err := h.client.CurrentIdentity(ctx)
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, "alice", cur.Username)
	assert.Equal(t, "r:tok", h.server.last().Session)

	_, err = h.client.PasswordLogin(ctx, "alice", "nope")
	assert.Equal(t, linkerr.KindInvalidCredentials, linkerr.KindOf(err))

	_, err = h.client.PasswordLogin(ctx, "alice", "unverified")
	assert.Equal(t, linkerr.KindEmailNotVerified, linkerr.KindOf(err))

	assert.Equal(t, float64(1), testutil.ToFloat64(h.m.RemoteErrors.WithLabelValues("login", string(linkerr.KindInvalidCredentials))))
}

func TestLinkCredential_ProvisionalSignUp(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r recorded) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/users", r.Path)
		reply(w, http.StatusCreated, map[string]any{"objectId": "u9", "createdAt": "2022-01-01T00:00:00.000Z", "sessionToken": "r:new"})
	})
	ctx := context.Background()

	id, err := h.client.LinkCredential(ctx,
		repository.RemoteIdentity{Username: "carol@gmail.com", Email: "carol@gmail.com"},
		types.ProviderGoogle,
		types.AuthPayload{ID: "g-1", Token: "idt"},
	)
	require.NoError(t, err)
	assert.Equal(t, "u9", id.ID)
	assert.Equal(t, "carol@gmail.com", id.Username)

	body := h.server.last().Body
	assert.Equal(t, "carol@gmail.com", body["username"])
	assert.Equal(t, map[string]any{"google": map[string]any{"id": "g-1", "id_token": "idt"}}, body["authData"])

	tok, _ := h.tokens.Load(ctx)
	assert.Equal(t, "r:new", tok)
}

func TestLinkCredential_ExistingUser(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r recorded) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/users/u1", r.Path)
		if r.Session != "r:tok" {
			parseErr(w, http.StatusBadRequest, 209, "Invalid session token")
			return
		}
		ad := r.Body["authData"].(map[string]any)
		if _, ok := ad["facebook"]; ok {
			parseErr(w, http.StatusBadRequest, 208, "this auth is already used")
			return
		}
		reply(w, http.StatusOK, map[string]any{"updatedAt": "2023-06-01T00:00:00.000Z"})
	})
	ctx := context.Background()
	require.NoError(t, h.tokens.Save(ctx, "r:tok"))

	alice := repository.RemoteIdentity{ID: "u1", Username: "alice"}
	id, err := h.client.LinkCredential(ctx, alice, types.ProviderApple, types.AuthPayload{ID: "a-1", Token: "atok", SecondaryToken: "code"})
	require.NoError(t, err)
	assert.True(t, id.HasProvider(types.ProviderApple))
	assert.Equal(t, 2023, id.UpdatedAt.Year())
	assert.Equal(t, map[string]any{"apple": map[string]any{"id": "a-1", "token": "atok", "code": "code"}}, h.server.last().Body["authData"])

	_, err = h.client.LinkCredential(ctx, alice, types.ProviderFacebook, types.AuthPayload{ID: "fb-1", Token: "fbt"})
	assert.Equal(t, linkerr.KindAlreadyLinked, linkerr.KindOf(err))

	le, ok := linkerr.As(err)
	require.True(t, ok)
	assert.Equal(t, "facebook", le.Provider)
}

func TestLinkCredential_ExistingUserWithoutSession(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r recorded) {
		t.Errorf("unexpected request %s %s", r.Method, r.Path)
	})
	_, err := h.client.LinkCredential(context.Background(), repository.RemoteIdentity{ID: "u1"}, types.ProviderGoogle, types.AuthPayload{ID: "g", Token: "t"})
	assert.Equal(t, linkerr.KindInvalidState, linkerr.KindOf(err))
}

func TestCurrentIdentity_NoSessionAndExpired(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r recorded) {
		parseErr(w, http.StatusBadRequest, 209, "Invalid session token")
	})
	ctx := context.Background()

	id, err := h.client.CurrentIdentity(ctx)
	require.NoError(t, err)
	assert.Nil(t, id)
	assert.Empty(t, h.server.reqs, "no token means no request")

	require.NoError(t, h.tokens.Save(ctx, "r:old"))
	id, err = h.client.CurrentIdentity(ctx)
	require.NoError(t, err)
	assert.Nil(t, id)

	tok, _ := h.tokens.Load(ctx)
	assert.Empty(t, tok, "expired token is cleared")
}

func TestSignOut_ClearsTokenEvenOnFailure(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r recorded) {
		parseErr(w, http.StatusServiceUnavailable, 1, "maintenance")
	})
	ctx := context.Background()
	require.NoError(t, h.tokens.Save(ctx, "r:tok"))

	err := h.client.SignOut(ctx)
	assert.Equal(t, linkerr.KindNetwork, linkerr.KindOf(err))

	tok, _ := h.tokens.Load(ctx)
	assert.Empty(t, tok)

	// Sin sesión no hay request.
	assert.NoError(t, h.client.SignOut(ctx))
	assert.Len(t, h.server.reqs, 1)
}

func TestQueryUsers(t *testing.T) {
	var results []map[string]any
	h := newHarness(t, func(w http.ResponseWriter, r recorded) {
		reply(w, http.StatusOK, map[string]any{"results": results})
	})
	ctx := context.Background()

	out, err := h.client.QueryUsers(ctx, repository.UserFilter{UsernameContains: "ali"}, &repository.UserOrder{By: "createdAt", Desc: true}, 5)
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)

	q := h.server.last().Query
	assert.Contains(t, q, "limit=5")
	assert.Contains(t, q, "order=-createdAt")
	assert.Contains(t, q, "where=")

	results = []map[string]any{aliceJSON, {"objectId": "u2", "username": "malia", "emailVerified": false}}
	out, err = h.client.QueryUsers(ctx, repository.UserFilter{}, nil, 0)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "alice", out[0].Username)
	assert.False(t, out[1].EmailVerified)
	assert.Contains(t, h.server.last().Query, "limit=100")
	assert.NotContains(t, h.server.last().Query, "where=")
}

func TestNetworkFailures(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r recorded) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := h.client.PasswordLogin(context.Background(), "a", "b")
	assert.Equal(t, linkerr.KindNetwork, linkerr.KindOf(err))

	store, _ := cache.NewMemory("", "")
	c, err := New(Deps{Config: Config{ServerURL: "http://127.0.0.1:1", AppID: "app-1"}, Tokens: NewTokenStore(store, nil)})
	require.NoError(t, err)
	_, err = c.QueryUsers(context.Background(), repository.UserFilter{}, nil, 1)
	assert.Equal(t, linkerr.KindNetwork, linkerr.KindOf(err))
}

func TestTokenStore_Encrypted(t *testing.T) {
	ctx := context.Background()
	store, err := cache.NewMemory("", "")
	require.NoError(t, err)
	box, err := secretbox.New(make([]byte, 32))
	require.NoError(t, err)

	ts := NewTokenStore(store, box)
	require.NoError(t, ts.Save(ctx, "r:secret"))

	raw, err := store.Get(ctx, sessionTokenKey)
	require.NoError(t, err)
	assert.NotContains(t, raw, "r:secret")

	tok, err := ts.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r:secret", tok)

	// Un valor ilegible se descarta.
	require.NoError(t, store.Set(ctx, sessionTokenKey, "garbage", 0))
	tok, err = ts.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
	ok, _ := store.Exists(ctx, sessionTokenKey)
	assert.False(t, ok)
}

func TestQuoteRegex(t *testing.T) {
	assert.Equal(t, `\Qali\E`, quoteRegex("ali"))
	assert.Equal(t, `\Qa\E\\E\Qb\E`, quoteRegex(`a\Eb`))
}

func TestNew_Validates(t *testing.T) {
	store, _ := cache.NewMemory("", "")
	_, err := New(Deps{Config: Config{AppID: "a"}, Tokens: NewTokenStore(store, nil)})
	assert.Error(t, err)
	_, err = New(Deps{Config: Config{ServerURL: "http://x"}, Tokens: NewTokenStore(store, nil)})
	assert.Error(t, err)
	_, err = New(Deps{Config: Config{ServerURL: "http://x", AppID: "a"}})
	assert.Error(t, err)
}

// bobJSON no trae emailVerified: servidores sin verificación de email lo omiten.
var bobJSON = map[string]any{"objectId": "u9", "username": "bob", "email": "bob@example.com"}

func bobServer(w http.ResponseWriter, r recorded) {
	switch r.Path {
	case "/login":
		body := map[string]any{"sessionToken": "r:bob"}
		for k, v := range bobJSON {
			body[k] = v
		}
		reply(w, http.StatusOK, body)
	case "/users/me":
		if r.Session != "r:bob" {
			parseErr(w, http.StatusBadRequest, 209, "Invalid session token")
			return
		}
		reply(w, http.StatusOK, bobJSON)
	case "/logout":
		reply(w, http.StatusOK, map[string]any{})
	default:
		parseErr(w, http.StatusNotFound, 119, "not found")
	}
}

func TestPasswordLogin_MissingEmailVerifiedIsUnverified(t *testing.T) {
	h := newHarness(t, bobServer)

	id, err := h.client.PasswordLogin(context.Background(), "bob", "pw")
	require.NoError(t, err)
	assert.False(t, id.EmailVerified)

	cur, err := h.client.CurrentIdentity(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.False(t, cur.EmailVerified)
}

func TestSignIn_MissingEmailVerifiedIsSignedOut(t *testing.T) {
	h := newHarness(t, bobServer)
	ctx := context.Background()
	o := link.New(link.Deps{Client: h.client, Metrics: h.m})

	out := o.Apply(ctx, types.PasswordCredential{Username: "bob", Secret: "pw"}, types.ModeSignIn)

	require.Equal(t, link.StatusFailure, out.Status)
	assert.Equal(t, linkerr.KindEmailNotVerified, out.ErrorKind())
	assert.Nil(t, o.Session().Current())
	assert.Equal(t, "/logout", h.server.last().Path)

	tok, err := h.tokens.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok, "the session token must not survive")
}

// brokenCache falla en toda lectura.
type brokenCache struct{ cache.Client }

func (brokenCache) Get(context.Context, string) (string, error) {
	return "", errors.New("redis: connection refused")
}

func TestQueryUsers_TokenReadFailure(t *testing.T) {
	calls := 0
	h := newHarness(t, func(w http.ResponseWriter, r recorded) {
		calls++
		reply(w, http.StatusOK, map[string]any{"results": []any{}})
	})
	h.client.tokens = NewTokenStore(brokenCache{h.store}, nil)

	_, err := h.client.QueryUsers(context.Background(), repository.UserFilter{}, nil, 1)
	assert.Equal(t, linkerr.KindNetwork, linkerr.KindOf(err))
	assert.Zero(t, calls, "no anonymous query when the session cannot be read")
}
