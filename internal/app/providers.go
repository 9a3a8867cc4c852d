package app

import (
	"io"

	"github.com/dropDatabas3/hellolink/internal/config"
	"github.com/dropDatabas3/hellolink/internal/domain/types"
	"github.com/dropDatabas3/hellolink/internal/oauth/loopback"
	"github.com/dropDatabas3/hellolink/internal/providers"
	"github.com/dropDatabas3/hellolink/internal/providers/apple"
	"github.com/dropDatabas3/hellolink/internal/providers/facebook"
	"github.com/dropDatabas3/hellolink/internal/providers/google"
	"github.com/dropDatabas3/hellolink/internal/providers/password"
)

// buildProviders registra una factory por provider configurado.
// Apple siempre se registra: sin configuración su Acquire falla con ProviderUnavailable.
func buildProviders(cfg *config.Config, prompter password.Prompter, stderr io.Writer) *providers.Registry {
	reg := providers.NewRegistry()
	pc := cfg.Providers

	opener := loopback.BrowserOpener
	if pc.PrintURL {
		opener = loopback.PrintOpener(stderr)
	}

	if prompter != nil && pc.Password.Enabled {
		reg.RegisterFactory(types.ProviderPassword, func() (providers.Adapter, error) {
			return password.New(prompter), nil
		})
	}

	if pc.Google.ClientID != "" {
		reg.RegisterFactory(types.ProviderGoogle, func() (providers.Adapter, error) {
			native, err := google.NewOAuthClient(google.OAuthConfig{
				ClientID:     pc.Google.ClientID,
				ClientSecret: pc.Google.ClientSecret,
				Issuer:       pc.Google.Issuer,
				Scopes:       pc.Google.Scopes,
				RedirectAddr: pc.Google.RedirectAddr,
				Opener:       opener,
			})
			if err != nil {
				return nil, err
			}
			return google.New(native), nil
		})
	}

	if pc.Facebook.AppID != "" {
		reg.RegisterFactory(types.ProviderFacebook, func() (providers.Adapter, error) {
			login, err := facebook.NewOAuthLogin(facebook.OAuthConfig{
				AppID:        pc.Facebook.AppID,
				AppSecret:    pc.Facebook.AppSecret,
				RedirectAddr: pc.Facebook.RedirectAddr,
				Opener:       opener,
			})
			if err != nil {
				return nil, err
			}
			a := facebook.New(login, &facebook.HTTPGraph{BaseURL: pc.Facebook.GraphURL})
			if len(pc.Facebook.Permissions) > 0 {
				a = a.WithPermissions(pc.Facebook.Permissions)
			}
			return a, nil
		})
	}

	reg.RegisterFactory(types.ProviderApple, func() (providers.Adapter, error) {
		platform, _ := apple.ParsePlatform(pc.Apple.Platform)
		opts := apple.Options{Platform: platform}
		if pc.Apple.ServiceID != "" {
			web, err := apple.NewOAuthWeb(apple.WebConfig{
				ServiceID:    pc.Apple.ServiceID,
				RedirectAddr: pc.Apple.RedirectAddr,
				Opener:       opener,
			})
			if err != nil {
				return nil, err
			}
			opts.Web = web
		}
		return apple.New(opts), nil
	})

	return reg
}
