package parse

import (
	"fmt"
	"net/http"

	"github.com/dropDatabas3/hellolink/internal/domain/linkerr"
)

// Códigos de error del Parse REST API que se mapean explícitamente.
const (
	codeConnectionFailed    = 100
	codeObjectNotFound      = 101
	codeInvalidJSON         = 107
	codeIncorrectType       = 111
	codeInvalidEmail        = 125
	codeValidationError     = 142
	codeUsernameTaken       = 202
	codeEmailTaken          = 203
	codeEmailNotFound       = 205 // también "email not verified" en login
	codeAccountLinked       = 208
	codeInvalidSessionToken = 209
	codeUnsupportedService  = 252
	codeLinkedIDMissing     = 250
	codeInvalidLinkedSess   = 251
)

// APIError es el cuerpo de error de Parse: {"code": 101, "error": "..."}.
type APIError struct {
	Status  int    `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("parse: %s (code %d, http %d)", e.Message, e.Code, e.Status)
}

// classify traduce un APIError al taxonomy de linkerr.
func classify(e *APIError, provider string) *linkerr.Error {
	var kind linkerr.Kind
	switch e.Code {
	case codeObjectNotFound, codeInvalidSessionToken:
		kind = linkerr.KindInvalidCredentials
	case codeAccountLinked:
		kind = linkerr.KindAlreadyLinked
	case codeEmailNotFound:
		kind = linkerr.KindEmailNotVerified
	case codeLinkedIDMissing, codeInvalidLinkedSess, codeUnsupportedService,
		codeInvalidJSON, codeIncorrectType, codeValidationError,
		codeUsernameTaken, codeEmailTaken, codeInvalidEmail:
		kind = linkerr.KindInvalidPayload
	case codeConnectionFailed:
		kind = linkerr.KindNetwork
	default:
		if e.Status >= http.StatusInternalServerError || e.Status == 0 {
			kind = linkerr.KindNetwork
		} else {
			kind = linkerr.KindInvalidPayload
		}
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return linkerr.Wrap(kind, provider, msg, e)
}
