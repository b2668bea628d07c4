package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNoBackend = errors.New("no backend configured")
	// ErrUnknownField is returned for option lookups on a field the catalog
	// does not have, or one that has no options.
	ErrUnknownField = errors.New("unknown choice field")
)

// Messages shown to users.
const (
	MsgAlreadySubmitted = "Este formulario ya fue enviado."
	MsgQueueFull        = "El sistema está ocupado. Intente nuevamente."
	MsgNoReply          = "Sin respuesta del servidor."
	MsgBulkPartial      = "Algunos registros no se guardaron."
	MsgNotPending       = "El participante no tiene una solicitud pendiente."
)
