// Package types contains common types used across the application
package types

// Option is one selectable value of a select field.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// File is an uploaded file carried in a form payload. A payload holding a
// File is sent to the backend as multipart form-data.
type File struct {
	Field       string `json:"-"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// FieldErrors maps a field name to the message shown under its input.
type FieldErrors map[string]string

// Empty reports whether there are no messages.
func (e FieldErrors) Empty() bool { return len(e) == 0 }
