// Package providers define el contrato común de los adapters de identity providers.
//
// Cada adapter traduce el handshake nativo de un provider (diálogo del SDK,
// graph request, flujo web) a una types.Credential normalizada.
//
// Arquitectura:
//   - Adapter: Acquire(ctx) bloquea hasta tener la credencial o un error clasificado.
//   - Registry: factories por provider, instancias cacheadas.
//   - Una sub-package por provider (password, google, facebook, apple).
//
// Errores: los adapters devuelven *linkerr.Error con Kind ProviderUnavailable,
// UserCancelled o ProviderProtocol; nunca errores crudos del SDK.
package providers

import (
	"context"

	"github.com/dropDatabas3/hellolink/internal/domain/linkerr"
	"github.com/dropDatabas3/hellolink/internal/domain/types"
)

// Adapter obtiene una credencial de un provider.
type Adapter interface {
	Kind() types.ProviderKind
	Acquire(ctx context.Context) (types.Credential, error)
}

// Unavailable construye el error de capacidad nativa ausente.
func Unavailable(kind types.ProviderKind, msg string, cause error) *linkerr.Error {
	return linkerr.Wrap(linkerr.KindProviderUnavailable, string(kind), msg, cause)
}

// Cancelled construye el error de diálogo descartado por el usuario.
func Cancelled(kind types.ProviderKind) *linkerr.Error {
	return linkerr.ErrUserCancelled.WithProvider(string(kind))
}

// Protocol construye el error de respuesta malformada.
func Protocol(kind types.ProviderKind, msg string, cause error) *linkerr.Error {
	return linkerr.Wrap(linkerr.KindProviderProtocol, string(kind), msg, cause)
}

// Classify deja pasar un *linkerr.Error y clasifica cualquier otro error del SDK nativo.
func Classify(kind types.ProviderKind, err error) error {
	if err == nil {
		return nil
	}
	return linkerr.Classify(err, linkerr.StageProvider, string(kind))
}
