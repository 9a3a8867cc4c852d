// Package validation valida nombres de scopes OAuth y permisos de Facebook de la configuración.
package validation

import (
	"net/url"
	"regexp"
)

// Reglas de un scope simple:
// - Minúsculas, empieza y termina en [a-z0-9].
// - En el medio se permite [a-z0-9:_.-].
// - Largo 1..64, sin espacios ni ';'.
//
// Válidos: openid, email, public_profile, user_link
// Inválidos: "", "Email", "bad space", ";hack", ":lead"
var scopeNameRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9:_\.-]{0,62}[a-z0-9])?$`)

// ValidScopeName acepta un scope simple o un scope URL https (https://www.googleapis.com/auth/...).
func ValidScopeName(name string) bool {
	if scopeNameRe.MatchString(name) {
		return true
	}
	u, err := url.Parse(name)
	return err == nil && u.Scheme == "https" && u.Host != "" && u.RawQuery == "" && u.Fragment == "" && u.User == nil
}

// InvalidScopes devuelve los scopes que no pasan ValidScopeName.
func InvalidScopes(scopes []string) []string {
	var bad []string
	for _, s := range scopes {
		if !ValidScopeName(s) {
			bad = append(bad, s)
		}
	}
	return bad
}
