// Package password adapta los campos usuario/contraseña a una PasswordCredential.
package password

import (
	"context"
	"errors"
	"strings"

	"github.com/dropDatabas3/hellolink/internal/domain/types"
	"github.com/dropDatabas3/hellolink/internal/providers"
)

// ErrPromptClosed lo devuelve un Prompter cuando el usuario cerró el input.
var ErrPromptClosed = errors.New("password: prompt closed")

// Prompter pide los campos al usuario.
type Prompter interface {
	Prompt(ctx context.Context) (username, secret string, err error)
}

// PrompterFunc adapta una función a Prompter.
type PrompterFunc func(ctx context.Context) (string, string, error)

func (f PrompterFunc) Prompt(ctx context.Context) (string, string, error) { return f(ctx) }

// Static devuelve siempre los mismos valores (flags de CLI, tests).
func Static(username, secret string) Prompter {
	return PrompterFunc(func(context.Context) (string, string, error) { return username, secret, nil })
}

// Adapter implementa providers.Adapter para password.
type Adapter struct {
	prompter Prompter
}

// New crea el adapter.
func New(p Prompter) *Adapter { return &Adapter{prompter: p} }

func (a *Adapter) Kind() types.ProviderKind { return types.ProviderPassword }

// Acquire lee los campos. Campos vacíos son ProviderProtocol; un prompt cerrado es UserCancelled.
func (a *Adapter) Acquire(ctx context.Context) (types.Credential, error) {
	if a.prompter == nil {
		return nil, providers.Unavailable(types.ProviderPassword, "no input available for username and password", nil)
	}
	username, secret, err := a.prompter.Prompt(ctx)
	if err != nil {
		if errors.Is(err, ErrPromptClosed) {
			return nil, providers.Cancelled(types.ProviderPassword)
		}
		return nil, providers.Classify(types.ProviderPassword, err)
	}
	cred := types.PasswordCredential{Username: strings.TrimSpace(username), Secret: secret}
	if err := cred.Validate(); err != nil {
		return nil, err
	}
	return cred, nil
}
