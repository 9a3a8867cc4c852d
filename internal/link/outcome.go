package link

import (
	"github.com/dropDatabas3/hellolink/internal/domain/linkerr"
	"github.com/dropDatabas3/hellolink/internal/domain/repository"
	"github.com/dropDatabas3/hellolink/internal/domain/types"
)

// Status discrimina el resultado de una operación.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Outcome es el resultado terminal de Apply/Run.
// Identity sólo está presente en Success y Err sólo en Failure.
type Outcome struct {
	Status   Status
	Provider types.ProviderKind
	Mode     types.LinkMode
	Identity *repository.RemoteIdentity
	Err      *linkerr.Error
}

func succeeded(p types.ProviderKind, m types.LinkMode, id *repository.RemoteIdentity) Outcome {
	return Outcome{Status: StatusSuccess, Provider: p, Mode: m, Identity: id.Clone()}
}

func failed(p types.ProviderKind, m types.LinkMode, err *linkerr.Error) Outcome {
	return Outcome{Status: StatusFailure, Provider: p, Mode: m, Err: err}
}

func cancelled(p types.ProviderKind, m types.LinkMode) Outcome {
	return Outcome{Status: StatusCancelled, Provider: p, Mode: m}
}

// OK retorna true si el resultado es Success.
func (o Outcome) OK() bool { return o.Status == StatusSuccess }

// ErrorKind devuelve el Kind del error o "" si no es Failure.
func (o Outcome) ErrorKind() linkerr.Kind {
	if o.Err == nil {
		return ""
	}
	return o.Err.Kind
}
