package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellolink/internal/config"
	"github.com/dropDatabas3/hellolink/internal/domain/types"
	"github.com/dropDatabas3/hellolink/internal/link"
	"github.com/dropDatabas3/hellolink/internal/providers/password"
)

func fakeParseServer(t *testing.T) *httptest.Server {
	t.Helper()
	user := map[string]any{
		"objectId":      "u1",
		"username":      "alice",
		"email":         "alice@example.com",
		"emailVerified": true,
		"createdAt":     "2024-03-01T10:00:00.000Z",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		if body["username"] != "alice" || body["password"] != "secret" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":101,"error":"Invalid username/password."}`))
			return
		}
		out := map[string]any{"sessionToken": "r:abc"}
		for k, v := range user {
			out[k] = v
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("X-Parse-Session-Token") != "r:abc" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":209,"error":"Invalid session token"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(user)
	})
	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(serverURL string) *config.Config {
	var c config.Config
	c.Remote.ServerURL = serverURL
	c.Remote.AppID = "app-1"
	c.Remote.RESTKey = "rest-1"
	c.Remote.QueryLimit = 10
	c.Session.Driver = "memory"
	c.Session.Path = "-"
	c.Providers.Password.Enabled = true
	c.Providers.Apple.Platform = "android"
	c.Notify.Sinks = []string{"stdout"}
	return &c
}

func TestNew_PasswordSignInEndToEnd(t *testing.T) {
	srv := fakeParseServer(t)
	var out bytes.Buffer

	a, err := New(context.Background(), Deps{
		Config:   testConfig(srv.URL),
		Stdout:   &out,
		Prompter: password.Static("alice", "secret"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	res, err := a.Controller.Run(context.Background(), types.ProviderPassword, types.ModeSignIn)
	require.NoError(t, err)
	require.Equal(t, link.StatusSuccess, res.Status, "err: %+v", res.Err)
	assert.Equal(t, "alice", a.Controller.Current().Username)
	assert.Contains(t, out.String(), "Success! User alice has successfully signed in!")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Metrics.ApplyTotal.WithLabelValues("password", "signin", "success", "")))

	// Restore relee la identidad con el token guardado en el cache
	id, err := a.Controller.Restore(context.Background())
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "u1", id.ID)

	require.NoError(t, a.Controller.SignOut(context.Background()))
	assert.Nil(t, a.Controller.Current())
}

func TestNew_WrongPasswordIsReported(t *testing.T) {
	srv := fakeParseServer(t)
	var out bytes.Buffer

	a, err := New(context.Background(), Deps{
		Config:   testConfig(srv.URL),
		Stdout:   &out,
		Prompter: password.Static("alice", "nope"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	res, err := a.Controller.Run(context.Background(), types.ProviderPassword, types.ModeSignIn)
	require.NoError(t, err)
	assert.Equal(t, link.StatusFailure, res.Status)
	assert.Contains(t, out.String(), "Error!")
	assert.Nil(t, a.Controller.Current())
}

func TestNew_RejectsUnknownSink(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Notify.Sinks = []string{"pager"}

	_, err := New(context.Background(), Deps{Config: cfg})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pager")
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(context.Background(), Deps{})
	require.Error(t, err)
}

func TestBuildProviders(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")

	reg := buildProviders(cfg, nil, nil)
	assert.Equal(t, []types.ProviderKind{types.ProviderApple}, reg.Available())

	reg = buildProviders(cfg, password.Static("a", "b"), nil)
	assert.Equal(t, []types.ProviderKind{types.ProviderApple, types.ProviderPassword}, reg.Available())

	cfg.Providers.Password.Enabled = false
	cfg.Providers.Google.ClientID = "cid"
	cfg.Providers.Facebook.AppID = "fb"
	reg = buildProviders(cfg, password.Static("a", "b"), nil)
	assert.Equal(t, []types.ProviderKind{types.ProviderApple, types.ProviderFacebook, types.ProviderGoogle}, reg.Available())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "warning", parseLevel("warning").String())
	assert.Equal(t, "error", parseLevel("error").String())
	assert.Equal(t, "success", parseLevel("").String())
}

func TestOpsHandler_ServesAppMetrics(t *testing.T) {
	srv := fakeParseServer(t)
	a, err := New(context.Background(), Deps{
		Config:   testConfig(srv.URL),
		Stdout:   &bytes.Buffer{},
		Prompter: password.Static("alice", "secret"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	res, err := a.Controller.Run(context.Background(), types.ProviderPassword, types.ModeSignIn)
	require.NoError(t, err)
	require.Equal(t, link.StatusSuccess, res.Status)

	h, err := a.OpsHandler()
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/session", nil))
	assert.JSONEq(t, `{"state":"authenticated","user_id":"u1","username":"alice"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"driver":"memory"`)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",path="/session",status="200"} 1`)
	assert.Contains(t, body, `http_requests_total{method="GET",path="/readyz",status="200"} 1`)
	assert.Contains(t, body, "hellolink_apply_total")
}
