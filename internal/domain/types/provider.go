// Package types define tipos de dominio compartidos entre paquetes.
package types

import "strings"

// ProviderKind identifica el origen de una credencial.
type ProviderKind string

const (
	ProviderPassword ProviderKind = "password"
	ProviderGoogle   ProviderKind = "google"
	ProviderFacebook ProviderKind = "facebook"
	ProviderApple    ProviderKind = "apple"
)

// IsValid retorna true si el provider es conocido.
func (k ProviderKind) IsValid() bool {
	switch k {
	case ProviderPassword, ProviderGoogle, ProviderFacebook, ProviderApple:
		return true
	}
	return false
}

// IsSocial retorna true para providers externos (todos menos password).
func (k ProviderKind) IsSocial() bool {
	return k.IsValid() && k != ProviderPassword
}

// DisplayName devuelve el nombre para mensajes de UI ("Google", "Facebook", ...).
func (k ProviderKind) DisplayName() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// ParseProviderKind normaliza un nombre de provider (case-insensitive).
func ParseProviderKind(s string) (ProviderKind, bool) {
	k := ProviderKind(strings.ToLower(strings.TrimSpace(s)))
	return k, k.IsValid()
}

// LinkMode decide si una credencial inicia sesión o se agrega a la sesión actual.
type LinkMode int

const (
	// ModeSignIn crea u obtiene la identidad asociada a la credencial.
	ModeSignIn LinkMode = iota
	// ModeLink agrega la credencial a la identidad ya autenticada.
	ModeLink
)

func (m LinkMode) String() string {
	switch m {
	case ModeSignIn:
		return "signin"
	case ModeLink:
		return "link"
	}
	return "unknown"
}
