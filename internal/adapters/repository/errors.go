package repository

import (
	"errors"
	"fmt"
)

// Sentinel kinds for upstream errors.
var (
	ErrUnavailable = errors.New("backend unavailable")
	ErrDecode      = errors.New("unexpected backend response")
	ErrBaseURL     = errors.New("invalid backend base url")
)

// APIError is a non-2xx backend response.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: backend returned %d", e.Method, e.Path, e.Status)
}

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int { return e.Status }

// ResponseBody returns the raw response body.
func (e *APIError) ResponseBody() []byte { return e.Body }

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == 404
}
