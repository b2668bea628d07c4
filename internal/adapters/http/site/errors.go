package site

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/hrdesk/internal/domain/catalog"
	"github.com/okian/hrdesk/internal/domain/flows"
	"github.com/okian/hrdesk/internal/domain/form"
)

// Sentinel kinds for console errors.
var (
	ErrRender   = errors.New("render page")
	ErrReadForm = errors.New("read submitted form")
)

// Messages shown by the console.
const (
	MsgNotFound   = "El registro solicitado no existe."
	MsgTransition = "La operación no está permitida en el estado actual."
	MsgBadForm    = "El formulario enviado no es válido."
	MsgSaved      = "Cambios guardados."
	MsgDeleted    = "Registro eliminado."
	MsgTerminated = "Egreso registrado."
	MsgDecided    = "Solicitudes procesadas."
	MsgRender     = "No se pudo mostrar la página."
)

// describe maps a load or save error onto a status and the message shown.
func describe(err error) (int, string) {
	switch {
	case errors.Is(err, catalog.ErrUnknownCatalog):
		return http.StatusNotFound, MsgNotFound
	case errors.Is(err, flows.ErrTransition):
		return http.StatusConflict, MsgTransition
	case errors.Is(err, flows.ErrInvalidInput), errors.Is(err, ErrReadForm):
		return http.StatusBadRequest, MsgBadForm
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, form.MsgTransport
	}
	if se, ok := catalog.AsStatus(err); ok {
		if se.HTTPStatus() == http.StatusNotFound {
			return http.StatusNotFound, MsgNotFound
		}
		return http.StatusBadGateway, form.MapServerErrors(se.HTTPStatus(), se.ResponseBody(), nil).Banner
	}
	return http.StatusBadGateway, form.MsgTransport
}
