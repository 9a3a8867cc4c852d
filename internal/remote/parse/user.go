package parse

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/dropDatabas3/hellolink/internal/domain/repository"
	"github.com/dropDatabas3/hellolink/internal/domain/types"
)

// parseUser es la representación REST de _User.
type parseUser struct {
	ObjectID      string                     `json:"objectId"`
	Username      string                     `json:"username"`
	Email         string                     `json:"email"`
	EmailVerified *bool                      `json:"emailVerified"`
	CreatedAt     string                     `json:"createdAt"`
	UpdatedAt     string                     `json:"updatedAt"`
	SessionToken  string                     `json:"sessionToken"`
	AuthData      map[string]json.RawMessage `json:"authData"`
}

func (u *parseUser) identity() *repository.RemoteIdentity {
	id := &repository.RemoteIdentity{
		ID:       u.ObjectID,
		Username: u.Username,
		Email:    u.Email,
		// Sólo un true explícito cuenta como verificado.
		EmailVerified: u.EmailVerified != nil && *u.EmailVerified,
	}
	if t, ok := parseTime(u.CreatedAt); ok {
		id.CreatedAt = t
	}
	if t, ok := parseTime(u.UpdatedAt); ok {
		id.UpdatedAt = t
	} else {
		id.UpdatedAt = id.CreatedAt
	}
	for k, v := range u.AuthData {
		// Parse deja {"provider": null} al desvincular.
		if t := bytes.TrimSpace(v); len(t) == 0 || bytes.Equal(t, []byte("null")) {
			continue
		}
		if kind, ok := types.ParseProviderKind(k); ok {
			id.LinkedProviders = append(id.LinkedProviders, kind)
		}
	}
	sort.Slice(id.LinkedProviders, func(i, j int) bool { return id.LinkedProviders[i] < id.LinkedProviders[j] })
	return id
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// authDataFor arma el authData que espera cada adapter de Parse Server.
func authDataFor(kind types.ProviderKind, p types.AuthPayload) map[string]string {
	out := map[string]string{"id": p.ID}
	switch kind {
	case types.ProviderGoogle:
		out["id_token"] = p.Token
		if p.SecondaryToken != "" {
			out["access_token"] = p.SecondaryToken
		}
	case types.ProviderFacebook:
		out["access_token"] = p.Token
	case types.ProviderApple:
		out["token"] = p.Token
		if p.SecondaryToken != "" {
			out["code"] = p.SecondaryToken
		}
	default:
		out["token"] = p.Token
	}
	return out
}

// quoteRegex arma un $regex literal (\Q...\E), escapando \E dentro del texto.
func quoteRegex(s string) string {
	return `\Q` + strings.ReplaceAll(s, `\E`, `\E\\E\Q`) + `\E`
}
