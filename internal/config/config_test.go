package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
app:
  env: staging
remote:
  server_url: https://parse.example.com
  app_id: app-1
  timeout: 7s
session:
  driver: redis
  redis:
    addr: localhost:6380
providers:
  google:
    client_id: gid
    scopes: [openid, email]
  apple:
    platform: ios
notify:
  sinks: [log]
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_YAMLAndDefaults(t *testing.T) {
	c, err := Load(writeFile(t, "config.yaml", sample))
	require.NoError(t, err)

	assert.Equal(t, "staging", c.App.Env)
	assert.Equal(t, "debug", c.App.LogLevel)
	assert.Equal(t, 7*time.Second, c.Remote.Timeout)
	assert.Equal(t, 100, c.Remote.QueryLimit)
	assert.Equal(t, "redis", c.Session.Driver)
	assert.Equal(t, "hellolink", c.Session.Redis.Prefix)
	assert.Equal(t, []string{"openid", "email"}, c.Providers.Google.Scopes)
	assert.Equal(t, "ios", c.Providers.Apple.Platform)
	assert.Equal(t, 5*time.Minute, c.Providers.DialogTimeout)
	assert.Equal(t, []string{"log"}, c.Notify.Sinks)
	assert.NotEmpty(t, c.Session.Path)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PARSE_SERVER_URL", "https://override.example.com")
	t.Setenv("PARSE_TIMEOUT", "3s")
	t.Setenv("HELLOLINK_SESSION_DRIVER", "memory")
	t.Setenv("HELLOLINK_SESSION_PATH", "-")
	t.Setenv("GOOGLE_SCOPES", "openid, profile ,email")
	t.Setenv("HELLOLINK_NOTIFY_SINKS", "stdout")

	c, err := Load(writeFile(t, "config.yaml", sample))
	require.NoError(t, err)

	assert.Equal(t, "https://override.example.com", c.Remote.ServerURL)
	assert.Equal(t, 3*time.Second, c.Remote.Timeout)
	assert.Equal(t, "memory", c.Session.Driver)
	assert.True(t, c.SessionInMemoryOnly())
	assert.Equal(t, []string{"openid", "profile", "email"}, c.Providers.Google.Scopes)
	assert.Equal(t, []string{"stdout"}, c.Notify.Sinks)
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("PARSE_SERVER_URL", "https://parse.example.com")
	t.Setenv("PARSE_APP_ID", "app-1")
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "dev", c.App.Env)
	assert.Equal(t, "memory", c.Session.Driver)
	assert.True(t, c.Providers.Password.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing remote", "app: {env: dev}", "remote.server_url is required"},
		{"bad driver", "remote: {server_url: x, app_id: y}\nsession: {driver: etcd}", "session.driver"},
		{"bad platform", "remote: {server_url: x, app_id: y}\nproviders: {apple: {platform: tvos}}", "providers.apple.platform"},
		{"mail without smtp", "remote: {server_url: x, app_id: y}\nnotify: {sinks: [mail]}", "notify.mail requires"},
		{"unknown sink", "remote: {server_url: x, app_id: y}\nnotify: {sinks: [slack]}", "unknown notify sink"},
		{"bad google scope", "remote: {server_url: x, app_id: y}\nproviders: {google: {scopes: [openid, 'bad scope']}}", "providers.google.scopes"},
		{"bad facebook permission", "remote: {server_url: x, app_id: y}\nproviders: {facebook: {permissions: [Email]}}", "providers.facebook.permissions"},
		{"prod plaintext token", "app: {env: prod}\nremote: {server_url: x, app_id: y}", "prod requires"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "c.yaml", tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	assert.NoError(t, LoadEnvFile(""))
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))

	t.Setenv("PARSE_APP_ID", "")
	os.Unsetenv("PARSE_APP_ID")
	p := writeFile(t, ".env", "PARSE_APP_ID=from-dotenv\n")
	require.NoError(t, LoadEnvFile(p))
	assert.Equal(t, "from-dotenv", os.Getenv("PARSE_APP_ID"))
}
