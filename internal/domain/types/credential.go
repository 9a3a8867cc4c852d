package types

import (
	"strings"

	"github.com/dropDatabas3/hellolink/internal/domain/linkerr"
)

// Credential es la forma normalizada de lo que devuelve un provider.
// Es una unión cerrada: sólo los tipos de este paquete la implementan.
type Credential interface {
	Kind() ProviderKind
	Validate() error
	credential()
}

// AuthPayload es lo que se envía al identity store para vincular un provider.
type AuthPayload struct {
	ID             string
	Token          string
	SecondaryToken string // opcional
}

// SocialCredential expone los datos comunes a las credenciales de providers externos.
type SocialCredential interface {
	Credential
	Subject() string
	DisclosedEmail() string
	Payload() AuthPayload
}

// PasswordCredential viene de los campos usuario/contraseña.
type PasswordCredential struct {
	Username string
	Secret   string
}

func (PasswordCredential) Kind() ProviderKind { return ProviderPassword }
func (PasswordCredential) credential()        {}

// Validate exige ambos campos no vacíos.
func (c PasswordCredential) Validate() error {
	if strings.TrimSpace(c.Username) == "" || c.Secret == "" {
		return linkerr.Wrap(linkerr.KindProviderProtocol, string(ProviderPassword), "username and password are required", nil)
	}
	return nil
}

// GoogleCredential resulta del sign-in nativo de Google.
type GoogleCredential struct {
	SubjectID string
	IDToken   string
	Email     string
}

func (GoogleCredential) Kind() ProviderKind       { return ProviderGoogle }
func (GoogleCredential) credential()              {}
func (c GoogleCredential) Subject() string        { return c.SubjectID }
func (c GoogleCredential) DisclosedEmail() string { return c.Email }
func (c GoogleCredential) Validate() error {
	return requireSocial(ProviderGoogle, c.SubjectID, c.IDToken, "id_token")
}
func (c GoogleCredential) Payload() AuthPayload {
	return AuthPayload{ID: c.SubjectID, Token: c.IDToken}
}

// FacebookCredential resulta del login de Facebook + el graph request /me.
type FacebookCredential struct {
	SubjectID   string
	AccessToken string
	Email       string
}

func (FacebookCredential) Kind() ProviderKind       { return ProviderFacebook }
func (FacebookCredential) credential()              {}
func (c FacebookCredential) Subject() string        { return c.SubjectID }
func (c FacebookCredential) DisclosedEmail() string { return c.Email }
func (c FacebookCredential) Validate() error {
	return requireSocial(ProviderFacebook, c.SubjectID, c.AccessToken, "access_token")
}
func (c FacebookCredential) Payload() AuthPayload {
	return AuthPayload{ID: c.SubjectID, Token: c.AccessToken}
}

// AppleCredential resulta de Sign in with Apple (request nativo o token decodificado).
type AppleCredential struct {
	SubjectID         string
	IdentityToken     string
	Email             string
	AuthorizationCode string // sólo en el flujo web
}

func (AppleCredential) Kind() ProviderKind       { return ProviderApple }
func (AppleCredential) credential()              {}
func (c AppleCredential) Subject() string        { return c.SubjectID }
func (c AppleCredential) DisclosedEmail() string { return c.Email }
func (c AppleCredential) Validate() error {
	return requireSocial(ProviderApple, c.SubjectID, c.IdentityToken, "identity_token")
}
func (c AppleCredential) Payload() AuthPayload {
	return AuthPayload{ID: c.SubjectID, Token: c.IdentityToken, SecondaryToken: c.AuthorizationCode}
}

func requireSocial(kind ProviderKind, subject, token, tokenName string) error {
	switch {
	case strings.TrimSpace(subject) == "":
		return linkerr.Wrap(linkerr.KindProviderProtocol, string(kind), "provider response is missing the user id", nil)
	case strings.TrimSpace(token) == "":
		return linkerr.Wrap(linkerr.KindProviderProtocol, string(kind), "provider response is missing the "+tokenName, nil)
	}
	return nil
}

// ProvisionalUsername deriva el username/email semilla para un sign-in social:
// el email si el provider lo reveló, si no el subject id.
func ProvisionalUsername(c SocialCredential) string {
	if e := strings.TrimSpace(c.DisclosedEmail()); e != "" {
		return e
	}
	return c.Subject()
}
