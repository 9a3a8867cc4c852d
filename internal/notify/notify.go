// Package notify muestra al usuario el resultado de las operaciones.
//
// Sink es fire and forget: un sink que falla lo registra en el log y sigue.
package notify

import (
	"context"
	"fmt"
	"io"

	"github.com/dropDatabas3/hellolink/internal/domain/types"
	"github.com/dropDatabas3/hellolink/internal/link"
	"github.com/dropDatabas3/hellolink/internal/observability/logger"
)

// Level del aviso.
type Level int

const (
	LevelSuccess Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	}
	return "unknown"
}

// Title devuelve el título estándar de cada nivel.
func (l Level) Title() string {
	switch l {
	case LevelSuccess:
		return "Success!"
	case LevelWarning:
		return "Warning!"
	}
	return "Error!"
}

// Notice es un aviso para el usuario.
type Notice struct {
	Level   Level
	Title   string
	Message string
}

// New arma un Notice con el título estándar del nivel.
func New(level Level, format string, args ...any) Notice {
	return Notice{Level: level, Title: level.Title(), Message: fmt.Sprintf(format, args...)}
}

// Sink recibe avisos.
type Sink interface {
	Notify(ctx context.Context, n Notice)
}

// Multi reparte el aviso a todos los sinks.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, n Notice) {
	for _, s := range m {
		if s != nil {
			s.Notify(ctx, n)
		}
	}
}

// LogSink escribe el aviso en el logger del contexto.
type LogSink struct{}

func (LogSink) Notify(ctx context.Context, n Notice) {
	log := logger.From(ctx).With(logger.Component("notify"), logger.String("level", n.Level.String()))
	switch n.Level {
	case LevelError:
		log.Warn(n.Title, logger.String("message", n.Message))
	default:
		log.Info(n.Title, logger.String("message", n.Message))
	}
}

// WriterSink imprime el aviso (salida de la CLI).
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Notify(ctx context.Context, n Notice) {
	if _, err := fmt.Fprintf(s.W, "%s %s\n", n.Title, n.Message); err != nil {
		logger.From(ctx).Debug("notice write failed", logger.Component("notify"), logger.Err(err))
	}
}

// RenderOutcome traduce un Outcome a Notice. Un Outcome cancelado no genera aviso.
func RenderOutcome(o link.Outcome) (Notice, bool) {
	switch o.Status {
	case link.StatusSuccess:
		username := ""
		if o.Identity != nil {
			username = o.Identity.Username
		}
		if o.Mode == types.ModeLink {
			return New(LevelSuccess, "User %s has successfully linked their %s account!", username, o.Provider.DisplayName()), true
		}
		return New(LevelSuccess, "User %s has successfully signed in!", username), true
	case link.StatusFailure:
		msg := "unknown error"
		if o.Err != nil {
			msg = o.Err.Message
		}
		return New(LevelError, "%s", msg), true
	}
	return Notice{}, false
}

// Outcome notifica el resultado en sink, si corresponde.
func Outcome(ctx context.Context, sink Sink, o link.Outcome) {
	if sink == nil {
		return
	}
	if n, ok := RenderOutcome(o); ok {
		sink.Notify(ctx, n)
	}
}
