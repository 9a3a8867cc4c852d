// Package config carga la configuración: config.yaml + .env + variables de entorno.
//
// Precedencia: defaults < YAML < entorno. El .env (godotenv) sólo completa
// variables que no estén ya seteadas.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/hellolink/internal/validation"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env      string `yaml:"env"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Remote struct {
		ServerURL  string        `yaml:"server_url"`
		AppID      string        `yaml:"app_id"`
		RESTKey    string        `yaml:"rest_key"`
		Timeout    time.Duration `yaml:"timeout"`
		QueryLimit int           `yaml:"query_limit"`
	} `yaml:"remote"`

	Session struct {
		// memory | redis
		Driver string `yaml:"driver"`
		// memory: archivo donde persiste el session token ("-" = sólo en memoria)
		Path  string `yaml:"path"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		// Cifrado del token: master key (base64) o passphrase (argon2id).
		SecretboxKey string `yaml:"secretbox_key"`
		Passphrase   string `yaml:"passphrase"`
	} `yaml:"session"`

	Providers struct {
		Password struct {
			Enabled bool `yaml:"enabled"`
		} `yaml:"password"`
		Google struct {
			ClientID     string   `yaml:"client_id"`
			ClientSecret string   `yaml:"client_secret"`
			Issuer       string   `yaml:"issuer"`
			Scopes       []string `yaml:"scopes"`
			RedirectAddr string   `yaml:"redirect_addr"`
		} `yaml:"google"`
		Facebook struct {
			AppID        string   `yaml:"app_id"`
			AppSecret    string   `yaml:"app_secret"`
			Permissions  []string `yaml:"permissions"`
			GraphURL     string   `yaml:"graph_url"`
			RedirectAddr string   `yaml:"redirect_addr"`
		} `yaml:"facebook"`
		Apple struct {
			// ios | android | "" (según runtime)
			Platform     string `yaml:"platform"`
			ServiceID    string `yaml:"service_id"`
			RedirectAddr string `yaml:"redirect_addr"`
		} `yaml:"apple"`
		// Timeout del diálogo del provider (Acquire: diálogo + callback). No cubre las llamadas al store.
		DialogTimeout time.Duration `yaml:"dialog_timeout"`
		// Sin browser: imprimir la URL en vez de abrirla.
		PrintURL bool `yaml:"print_url"`
	} `yaml:"providers"`

	Notify struct {
		// log | stdout | mail
		Sinks []string `yaml:"sinks"`
		Mail  struct {
			Host               string `yaml:"host"`
			Port               int    `yaml:"port"`
			Username           string `yaml:"username"`
			Password           string `yaml:"password"`
			From               string `yaml:"from"`
			To                 string `yaml:"to"`
			TLSMode            string `yaml:"tls_mode"`
			InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
			MinLevel           string `yaml:"min_level"`
		} `yaml:"mail"`
	} `yaml:"notify"`

	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

// Load lee path (vacío = sin archivo), aplica defaults y entorno, y valida.
func Load(path string) (*Config, error) {
	var c Config
	c.Providers.Password.Enabled = true
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	c.applyEnvOverrides()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadEnvFile carga un .env. Un archivo inexistente no es error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		if c.IsProd() {
			c.App.LogLevel = "info"
		} else {
			c.App.LogLevel = "debug"
		}
	}
	if c.Remote.Timeout == 0 {
		c.Remote.Timeout = 15 * time.Second
	}
	if c.Remote.QueryLimit == 0 {
		c.Remote.QueryLimit = 100
	}
	if c.Session.Driver == "" {
		c.Session.Driver = "memory"
	}
	if c.Session.Path == "" {
		c.Session.Path = defaultSessionPath()
	}
	if c.Session.Redis.Prefix == "" {
		c.Session.Redis.Prefix = "hellolink"
	}
	if c.Providers.DialogTimeout == 0 {
		c.Providers.DialogTimeout = 5 * time.Minute
	}
	if len(c.Notify.Sinks) == 0 {
		c.Notify.Sinks = []string{"stdout", "log"}
	}
	if c.Notify.Mail.Port == 0 {
		c.Notify.Mail.Port = 587
	}
	if c.Notify.Mail.TLSMode == "" {
		c.Notify.Mail.TLSMode = "auto"
	}
}

// IsProd retorna true si app.env es prod/production.
func (c *Config) IsProd() bool {
	e := strings.ToLower(c.App.Env)
	return e == "prod" || e == "production"
}

// SessionInMemoryOnly indica que el token no se persiste en disco.
func (c *Config) SessionInMemoryOnly() bool { return c.Session.Path == "-" }

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(".hellolink", "session.json")
	}
	return filepath.Join(dir, "hellolink", "session.json")
}

// Validate chequea combinaciones inválidas.
func (c *Config) Validate() error {
	var errs []error
	if c.Remote.ServerURL == "" {
		errs = append(errs, errors.New("remote.server_url is required (PARSE_SERVER_URL)"))
	}
	if c.Remote.AppID == "" {
		errs = append(errs, errors.New("remote.app_id is required (PARSE_APP_ID)"))
	}
	switch c.Session.Driver {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("session.driver must be memory or redis, got %q", c.Session.Driver))
	}
	if bad := validation.InvalidScopes(c.Providers.Google.Scopes); len(bad) > 0 {
		errs = append(errs, fmt.Errorf("providers.google.scopes: invalid scope(s) %q", bad))
	}
	if bad := validation.InvalidScopes(c.Providers.Facebook.Permissions); len(bad) > 0 {
		errs = append(errs, fmt.Errorf("providers.facebook.permissions: invalid permission(s) %q", bad))
	}
	switch c.Providers.Apple.Platform {
	case "", "ios", "android":
	default:
		errs = append(errs, fmt.Errorf("providers.apple.platform must be ios or android, got %q", c.Providers.Apple.Platform))
	}
	for _, s := range c.Notify.Sinks {
		switch s {
		case "log", "stdout":
		case "mail":
			m := c.Notify.Mail
			if m.Host == "" || m.From == "" || m.To == "" {
				errs = append(errs, errors.New("notify.mail requires host, from and to"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown notify sink %q", s))
		}
	}
	switch c.Notify.Mail.MinLevel {
	case "", "success", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("notify.mail.min_level must be success, warning or error, got %q", c.Notify.Mail.MinLevel))
	}
	if c.IsProd() && c.Session.Driver == "memory" && !c.SessionInMemoryOnly() &&
		c.Session.SecretboxKey == "" && c.Session.Passphrase == "" {
		errs = append(errs, errors.New("prod requires session.secretbox_key or session.passphrase to persist the session token"))
	}
	return errors.Join(errs...)
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}
func getEnvCSV(key string) ([]string, bool) {
	s, ok := getEnvStr(key)
	if !ok {
		return nil, false
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, true
}

// applyEnvOverrides pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("HELLOLINK_LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}

	// REMOTE
	if v, ok := getEnvStr("PARSE_SERVER_URL"); ok {
		c.Remote.ServerURL = v
	}
	if v, ok := getEnvStr("PARSE_APP_ID"); ok {
		c.Remote.AppID = v
	}
	if v, ok := getEnvStr("PARSE_REST_KEY"); ok {
		c.Remote.RESTKey = v
	}
	if v, ok := getEnvDur("PARSE_TIMEOUT"); ok {
		c.Remote.Timeout = v
	}
	if v, ok := getEnvInt("PARSE_QUERY_LIMIT"); ok {
		c.Remote.QueryLimit = v
	}

	// SESSION
	if v, ok := getEnvStr("HELLOLINK_SESSION_DRIVER"); ok {
		c.Session.Driver = v
	}
	if v, ok := getEnvStr("HELLOLINK_SESSION_PATH"); ok {
		c.Session.Path = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Session.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Session.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Session.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Session.Redis.Prefix = v
	}
	if v, ok := getEnvStr("SECRETBOX_MASTER_KEY"); ok {
		c.Session.SecretboxKey = v
	}
	if v, ok := getEnvStr("HELLOLINK_SESSION_PASSPHRASE"); ok {
		c.Session.Passphrase = v
	}

	// PROVIDERS
	if v, ok := getEnvBool("HELLOLINK_PASSWORD_ENABLED"); ok {
		c.Providers.Password.Enabled = v
	}
	if v, ok := getEnvStr("GOOGLE_CLIENT_ID"); ok {
		c.Providers.Google.ClientID = v
	}
	if v, ok := getEnvStr("GOOGLE_CLIENT_SECRET"); ok {
		c.Providers.Google.ClientSecret = v
	}
	if v, ok := getEnvStr("GOOGLE_ISSUER"); ok {
		c.Providers.Google.Issuer = v
	}
	if v, ok := getEnvCSV("GOOGLE_SCOPES"); ok {
		c.Providers.Google.Scopes = v
	}
	if v, ok := getEnvStr("FACEBOOK_APP_ID"); ok {
		c.Providers.Facebook.AppID = v
	}
	if v, ok := getEnvStr("FACEBOOK_APP_SECRET"); ok {
		c.Providers.Facebook.AppSecret = v
	}
	if v, ok := getEnvCSV("FACEBOOK_PERMISSIONS"); ok {
		c.Providers.Facebook.Permissions = v
	}
	if v, ok := getEnvStr("FACEBOOK_GRAPH_URL"); ok {
		c.Providers.Facebook.GraphURL = v
	}
	if v, ok := getEnvStr("APPLE_PLATFORM"); ok {
		c.Providers.Apple.Platform = strings.ToLower(v)
	}
	if v, ok := getEnvStr("APPLE_SERVICE_ID"); ok {
		c.Providers.Apple.ServiceID = v
	}
	if v, ok := getEnvDur("HELLOLINK_DIALOG_TIMEOUT"); ok {
		c.Providers.DialogTimeout = v
	}
	if v, ok := getEnvBool("HELLOLINK_PRINT_URL"); ok {
		c.Providers.PrintURL = v
	}

	// NOTIFY
	if v, ok := getEnvCSV("HELLOLINK_NOTIFY_SINKS"); ok {
		c.Notify.Sinks = v
	}
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.Notify.Mail.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.Notify.Mail.Port = v
	}
	if v, ok := getEnvStr("SMTP_USER"); ok {
		c.Notify.Mail.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASS"); ok {
		c.Notify.Mail.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.Notify.Mail.From = v
	}
	if v, ok := getEnvStr("HELLOLINK_NOTIFY_MAIL_TO"); ok {
		c.Notify.Mail.To = v
	}
	if v, ok := getEnvStr("SMTP_TLS"); ok {
		c.Notify.Mail.TLSMode = strings.ToLower(v)
	}
	if v, ok := getEnvBool("SMTP_INSECURE_SKIP_VERIFY"); ok {
		c.Notify.Mail.InsecureSkipVerify = v
	}

	// METRICS
	if v, ok := getEnvStr("HELLOLINK_METRICS_ADDR"); ok {
		c.Metrics.Addr = v
	}
}
