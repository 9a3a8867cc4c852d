// Package linkerr define la taxonomía de errores del flujo de sign-in / link.
//
// Adapters de providers y el cliente remoto devuelven *Error con un Kind;
// el orquestador clasifica cualquier otro error antes de devolverlo, de modo
// que la capa de UI nunca recibe errores crudos.
package linkerr

import (
	"context"
	"errors"
	"fmt"
)

// Kind identifica la categoría de un error de vinculación.
type Kind string

const (
	KindProviderUnavailable  Kind = "provider_unavailable"
	KindUserCancelled        Kind = "user_cancelled"
	KindProviderProtocol     Kind = "provider_protocol_error"
	KindInvalidState         Kind = "invalid_state"
	KindUnsupportedOperation Kind = "unsupported_operation"
	KindInvalidCredentials   Kind = "invalid_credentials"
	KindAlreadyLinked        Kind = "already_linked"
	KindInvalidPayload       Kind = "invalid_payload"
	KindNetwork              Kind = "network_error"
	KindEmailNotVerified     Kind = "email_not_verified"
)

// Retryable indica si re-invocar la operación puede tener éxito sin intervención del usuario.
func (k Kind) Retryable() bool {
	return k == KindNetwork
}

// Error es el error estándar del dominio de vinculación.
type Error struct {
	Kind     Kind
	Provider string // "google", "facebook", ... vacío si no aplica
	Message  string
	Err      error // causa original, sólo para logs
}

// Error implementa la interfaz error.
func (e *Error) Error() string {
	prefix := string(e.Kind)
	if e.Provider != "" {
		prefix = e.Provider + ": " + prefix
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", prefix, e.Message)
}

// Unwrap permite acceder al error original.
func (e *Error) Unwrap() error { return e.Err }

// Is compara por Kind, así errors.Is(err, ErrNetwork) funciona con cualquier mensaje.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithProvider devuelve una COPIA con el provider seteado.
func (e *Error) WithProvider(provider string) *Error {
	out := *e
	out.Provider = provider
	return &out
}

// New crea un *Error sin causa.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap crea un *Error envolviendo err.
func Wrap(kind Kind, provider, message string, err error) *Error {
	return &Error{Kind: kind, Provider: provider, Message: message, Err: err}
}

// Errores base. Usar con errors.Is o como plantilla vía WithProvider.
var (
	ErrProviderUnavailable  = New(KindProviderUnavailable, "provider is not available on this device")
	ErrUserCancelled        = New(KindUserCancelled, "user cancelled the sign-in")
	ErrProviderProtocol     = New(KindProviderProtocol, "provider returned an incomplete response")
	ErrInvalidState         = New(KindInvalidState, "no authenticated user to link with")
	ErrUnsupportedOperation = New(KindUnsupportedOperation, "operation not supported for this credential")
	ErrInvalidCredentials   = New(KindInvalidCredentials, "invalid username/password")
	ErrAlreadyLinked        = New(KindAlreadyLinked, "this account is already linked to another user")
	ErrInvalidPayload       = New(KindInvalidPayload, "identity store rejected the request")
	ErrNetwork              = New(KindNetwork, "identity store is unreachable")
	ErrEmailNotVerified     = New(KindEmailNotVerified, "email address is not verified")
)

// As extrae el *Error de la cadena, si existe.
func As(err error) (*Error, bool) {
	var le *Error
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// KindOf devuelve el Kind de err o "" si no es un *Error.
func KindOf(err error) Kind {
	if le, ok := As(err); ok {
		return le.Kind
	}
	return ""
}

// Stage indica en qué tramo del flujo ocurrió un error sin clasificar.
type Stage int

const (
	StageProvider Stage = iota // handshake con el provider nativo
	StageRemote                // round trip contra el identity store
)

// Classify convierte cualquier error en *Error.
// Un *Error existente se devuelve tal cual (con provider si faltaba).
// Errores crudos se clasifican por tramo: en el provider context.Canceled es
// cancelación del usuario y el resto es error de protocolo; en el store todo
// error crudo es de red.
func Classify(err error, stage Stage, provider string) *Error {
	if err == nil {
		return nil
	}
	if le, ok := As(err); ok {
		if le.Provider == "" && provider != "" {
			return le.WithProvider(provider)
		}
		return le
	}
	switch stage {
	case StageProvider:
		if errors.Is(err, context.Canceled) {
			return Wrap(KindUserCancelled, provider, ErrUserCancelled.Message, err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return Wrap(KindNetwork, provider, "provider did not answer in time", err)
		}
		return Wrap(KindProviderProtocol, provider, ErrProviderProtocol.Message, err)
	default:
		return Wrap(KindNetwork, provider, ErrNetwork.Message, err)
	}
}
