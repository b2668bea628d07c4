package catalog

import "errors"

// Sentinel kinds for catalog errors.
var (
	ErrInvalidCatalog = errors.New("invalid catalog")
	ErrUnknownCatalog = errors.New("unknown catalog")
	ErrLoad           = errors.New("load catalog page")
)

// Messages shown in the table banner.
const (
	MsgLoadFailed         = "Error de conexión al cargar datos."
	MsgDeleteDependencies = "No se pudo eliminar: Este registro tiene dependencias."
	MsgDeleteFailed       = "Error de conexión al intentar eliminar."
	MsgConfirmEdit        = "¿Está seguro de realizar los cambios?"
)

// StatusError is implemented by errors that carry an HTTP response.
type StatusError interface {
	error
	HTTPStatus() int
	ResponseBody() []byte
}

// AsStatus extracts the response carried by err, if any.
func AsStatus(err error) (StatusError, bool) {
	var se StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
