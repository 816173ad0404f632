package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type Kind int

const (
	KindValidation Kind = iota // entrada faltante o inválida
	KindConflict               // clave única duplicada o referencia en uso
	KindNotFound
	KindState // herramientas no prestables, con detalle de ofensoras
	KindAuth
	KindForbidden
	KindInternal
)

// Ofensora identifica una herramienta que bloquea un préstamo.
type Ofensora struct {
	ID     uint   `json:"id"`
	Nombre string `json:"nombre"`
	Estado string `json:"estado"`
}

type Error struct {
	Kind      Kind
	Msg       string
	Ofensoras []Ofensora
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindState:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func State(msg string, ofensoras []Ofensora) *Error {
	return &Error{Kind: KindState, Msg: msg, Ofensoras: ofensoras}
}

func Authf(format string, args ...any) *Error {
	return &Error{Kind: KindAuth, Msg: fmt.Sprintf(format, args...)}
}

func Forbiddenf(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Msg: fmt.Sprintf(format, args...)}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Msg: "error interno del servidor", Err: err}
}

// FromGorm traduce los errores que GORM ya clasificó (TranslateError activo)
// a la taxonomía propia. Cualquier otro error queda como interno.
func FromGorm(err error, notFound, duplicate string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFoundf("%s", notFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Conflictf("%s", duplicate)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return Conflictf("registro referenciado por otros datos")
	default:
		return Internal(err)
	}
}

// Abort es la frontera única entre errores y respuestas HTTP. Los errores
// internos se loguean con detalle y al cliente solo llega un mensaje genérico.
func Abort(c *gin.Context, err error) {
	var ae *Error
	if !errors.As(err, &ae) {
		ae = Internal(err)
	}
	if ae.Kind == KindInternal {
		log.Error().Err(ae.Err).Str("path", c.FullPath()).Msg("internal error")
	}
	body := gin.H{"ok": false, "error": ae.Msg}
	if ae.Kind == KindState && len(ae.Ofensoras) > 0 {
		body["herramientas_danadas"] = ae.Ofensoras
	}
	c.AbortWithStatusJSON(ae.HTTPStatus(), body)
}
