package form

import (
	"errors"
	"strconv"
)

// ErrInvalidSchema is returned when descriptors cannot form a schema.
var ErrInvalidSchema = errors.New("invalid form schema")

// Messages shown under inputs and in the banner.
const (
	MsgRequired  = "Este campo es obligatorio."
	MsgSelectOne = "Seleccione al menos una opción."
	MsgNumber    = "Ingrese un número válido."
	MsgEmail     = "Ingrese un correo electrónico válido."
	MsgDate      = "Ingrese una fecha válida (AAAA-MM-DD)."
	MsgNoDigits  = "No se permiten números en este campo."
	MsgChoice    = "Seleccione una opción válida."

	MsgDuplicate = "Este registro ya existe (posible duplicado)."
	MsgTransport = "Error de conexión. Verifique su conexión e intente de nuevo."
)

// MsgMin is the lower-bound message.
func MsgMin(n float64) string {
	return "Debe ser mayor o igual a " + formatNumber(n) + "."
}

// MsgMax is the upper-bound message.
func MsgMax(n float64) string {
	return "Debe ser menor o igual a " + formatNumber(n) + "."
}

// MsgServer is the banner for responses that carry no usable detail.
// status 0 means the status is unknown.
func MsgServer(status int) string {
	s := "Desconocido"
	if status > 0 {
		s = strconv.Itoa(status)
	}
	return "Ocurrió un problema de conexión o del servidor (" + s + ")."
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
