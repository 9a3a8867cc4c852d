// Package apple adapta Sign in with Apple a una AppleCredential.
//
// La rama de plataforma vive sólo acá:
//   - ios: el request nativo devuelve user id + identity token (+ email).
//   - android: el flujo web devuelve un id_token opaco que se decodifica para
//     recuperar sub y email.
//
// Las dos ramas terminan en la misma AppleCredential.
package apple

import (
	"context"
	"runtime"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/hellolink/internal/domain/types"
	"github.com/dropDatabas3/hellolink/internal/observability/logger"
	"github.com/dropDatabas3/hellolink/internal/providers"
)

// Platform selecciona la rama del adapter.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// DefaultPlatform deriva la plataforma del runtime: ios usa el request nativo, el resto el flujo web.
func DefaultPlatform() Platform {
	if runtime.GOOS == "ios" {
		return PlatformIOS
	}
	return PlatformAndroid
}

// ParsePlatform acepta "", "ios" o "android". Vacío usa DefaultPlatform.
func ParsePlatform(s string) (Platform, bool) {
	switch Platform(s) {
	case "":
		return DefaultPlatform(), true
	case PlatformIOS, PlatformAndroid:
		return Platform(s), true
	}
	return "", false
}

var defaultScopes = []string{"email", "name"}

// NativeResponse es lo que devuelve el request nativo de iOS.
type NativeResponse struct {
	User          string
	IdentityToken string
	Email         string
}

// NativeRequester es AuthenticationServices en iOS.
type NativeRequester interface {
	PerformRequest(ctx context.Context, scopes []string) (*NativeResponse, error)
}

// WebResponse es lo que devuelve el flujo web.
type WebResponse struct {
	IDToken string
	Code    string
	State   string
}

// WebSignIn es el flujo web de Sign in with Apple.
type WebSignIn interface {
	SignIn(ctx context.Context) (*WebResponse, error)
}

// Options del adapter. Native o Web pueden faltar: la rama correspondiente queda no disponible.
type Options struct {
	Platform Platform
	Native   NativeRequester
	Web      WebSignIn
}

// Adapter implementa providers.Adapter para Apple.
type Adapter struct {
	platform Platform
	native   NativeRequester
	web      WebSignIn
}

func New(opts Options) *Adapter {
	p := opts.Platform
	if p == "" {
		p = DefaultPlatform()
	}
	return &Adapter{platform: p, native: opts.Native, web: opts.Web}
}

func (a *Adapter) Kind() types.ProviderKind { return types.ProviderApple }

// Platform devuelve la rama activa.
func (a *Adapter) Platform() Platform { return a.platform }

func (a *Adapter) Acquire(ctx context.Context) (types.Credential, error) {
	log := logger.From(ctx).With(logger.Component("apple"), logger.Platform(string(a.platform)))

	switch a.platform {
	case PlatformIOS:
		log.Debug("apple native request")
		return a.acquireNative(ctx)
	case PlatformAndroid:
		log.Debug("apple web flow")
		return a.acquireWeb(ctx)
	}
	return nil, providers.Unavailable(types.ProviderApple, "sign in with apple is not supported on platform "+string(a.platform), nil)
}

func (a *Adapter) acquireNative(ctx context.Context) (types.Credential, error) {
	const kind = types.ProviderApple
	if a.native == nil {
		return nil, providers.Unavailable(kind, "sign in with apple is not available on this device", nil)
	}
	res, err := a.native.PerformRequest(ctx, defaultScopes)
	if err != nil {
		return nil, providers.Classify(kind, err)
	}
	if res == nil {
		return nil, providers.Protocol(kind, "empty apple response", nil)
	}
	cred := types.AppleCredential{
		SubjectID:     res.User,
		IdentityToken: res.IdentityToken,
		Email:         res.Email,
	}
	if err := cred.Validate(); err != nil {
		return nil, err
	}
	return cred, nil
}

func (a *Adapter) acquireWeb(ctx context.Context) (types.Credential, error) {
	const kind = types.ProviderApple
	if a.web == nil {
		return nil, providers.Unavailable(kind, "sign in with apple web flow is not configured", nil)
	}
	res, err := a.web.SignIn(ctx)
	if err != nil {
		return nil, providers.Classify(kind, err)
	}
	if res == nil || res.IDToken == "" {
		return nil, providers.Protocol(kind, "apple response without id_token", nil)
	}

	claims, err := DecodeIdentityToken(res.IDToken)
	if err != nil {
		return nil, providers.Protocol(kind, "cannot decode apple id_token", err)
	}
	cred := types.AppleCredential{
		SubjectID:         claims.Subject,
		IdentityToken:     res.IDToken,
		Email:             claims.Email,
		AuthorizationCode: res.Code,
	}
	if err := cred.Validate(); err != nil {
		return nil, err
	}
	return cred, nil
}

// IdentityClaims son los claims que interesan del id_token de Apple.
type IdentityClaims struct {
	Subject string
	Email   string
	Nonce   string
}

// DecodeIdentityToken lee los claims sin verificar la firma; la verificación la hace el identity store.
// Un token sin sub es inválido.
func DecodeIdentityToken(raw string) (*IdentityClaims, error) {
	mc := jwtv5.MapClaims{}
	if _, _, err := jwtv5.NewParser().ParseUnverified(raw, mc); err != nil {
		return nil, err
	}
	sub, err := mc.GetSubject()
	if err != nil {
		return nil, err
	}
	if sub == "" {
		return nil, jwtv5.ErrTokenRequiredClaimMissing
	}
	out := &IdentityClaims{Subject: sub}
	out.Email, _ = mc["email"].(string)
	out.Nonce, _ = mc["nonce"].(string)
	return out, nil
}
