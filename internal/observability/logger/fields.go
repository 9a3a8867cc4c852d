package logger

import (
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/hellolink/internal/util"
)

// =================================================================================
// CAMPOS ESTÁNDAR - VINCULACIÓN
// =================================================================================

// Provider crea un campo para el provider ("google", "apple", ...).
func Provider(v string) zap.Field {
	return zap.String("provider", v)
}

// Mode crea un campo para el modo de la operación ("signin" | "link").
func Mode(v string) zap.Field {
	return zap.String("mode", v)
}

// Outcome crea un campo para el resultado ("success" | "failure" | "cancelled").
func Outcome(v string) zap.Field {
	return zap.String("outcome", v)
}

// ErrorKind crea un campo para la categoría del error.
func ErrorKind(v string) zap.Field {
	return zap.String("error_kind", v)
}

// UserID crea un campo para el ID del usuario en el store.
func UserID(v string) zap.Field {
	return zap.String("user_id", v)
}

// Username crea un campo para el username.
func Username(v string) zap.Field {
	return zap.String("username", v)
}

// EmailMasked crea un campo con el email enmascarado.
func EmailMasked(v string) zap.Field {
	return zap.String("email_masked", util.MaskEmail(v))
}

// Platform crea un campo para la plataforma del flujo nativo.
func Platform(v string) zap.Field {
	return zap.String("platform", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - HTTP / STORE
// =================================================================================

// Method crea un campo para el método HTTP.
func Method(v string) zap.Field {
	return zap.String("method", v)
}

// Path crea un campo para el path del request.
func Path(v string) zap.Field {
	return zap.String("path", v)
}

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

// Duration crea un campo para la duración de una operación.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - SISTEMA
// =================================================================================

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field {
	return zap.String("component", v)
}

// Op crea un campo para la operación actual.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Layer crea un campo para la capa (adapter, orchestrator, client, ui).
func Layer(v string) zap.Field {
	return zap.String("layer", v)
}

// Err crea un campo para un error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// Count crea un campo para un conteo.
func Count(v int) zap.Field {
	return zap.Int("count", v)
}

// String crea un campo string genérico.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}

// Int crea un campo int genérico.
func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}

// Bool crea un campo bool genérico.
func Bool(key string, v bool) zap.Field {
	return zap.Bool(key, v)
}
