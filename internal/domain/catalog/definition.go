// Package catalog binds REST collections to paginated tables whose rows are
// created and edited through the form engine.
package catalog

import (
	"fmt"
	"strings"

	"github.com/okian/hrdesk/internal/domain/form"
)

// Column is one table column.
type Column struct {
	Header string `yaml:"header" json:"header"`
	Key    string `yaml:"key" json:"key"`
}

// DefaultColumns apply when a catalog configures none.
var DefaultColumns = []Column{{Header: "ID", Key: "id"}, {Header: "Nombre", Key: "name"}} //nolint:gochecknoglobals // read-only default

// DefaultFields apply when a catalog configures none: a single required name.
var DefaultFields = []form.Descriptor{{Name: "name", Label: "Nombre", Type: form.KindText, Required: true}} //nolint:gochecknoglobals // read-only default

// Definition describes one catalog.
type Definition struct {
	Name       string            `yaml:"name" json:"name"`
	Title      string            `yaml:"title" json:"title"`
	Group      string            `yaml:"group" json:"group"`
	Endpoint   string            `yaml:"endpoint" json:"endpoint"`
	Columns    []Column          `yaml:"columns" json:"columns"`
	Fields     []form.Descriptor `yaml:"fields" json:"fields"`
	Searchable bool              `yaml:"searchable" json:"searchable"`
	// ConfirmEdit asks for confirmation before an existing row is patched.
	ConfirmEdit bool `yaml:"confirm_edit" json:"confirmEdit"`

	schema *form.Schema
}

// Schema is the validated form of the catalog.
func (d *Definition) Schema() *form.Schema {
	return d.schema
}

// ItemPath is the path of one record: endpoint + id + "/".
func (d *Definition) ItemPath(id string) string {
	return d.Endpoint + id + "/"
}

// prepare fills defaults and builds the schema.
func (d *Definition) prepare() error {
	if d.Name == "" {
		return fmt.Errorf("%w: catalog without name", ErrInvalidCatalog)
	}
	if !strings.HasPrefix(d.Endpoint, "/") {
		return fmt.Errorf("%w: %s: endpoint must be an absolute path", ErrInvalidCatalog, d.Name)
	}
	if !strings.HasSuffix(d.Endpoint, "/") {
		d.Endpoint += "/"
	}
	if d.Title == "" {
		d.Title = d.Name
	}
	if len(d.Columns) == 0 {
		d.Columns = DefaultColumns
	}
	if len(d.Fields) == 0 {
		d.Fields = DefaultFields
	}
	s, err := form.NewSchema(d.Fields)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidCatalog, d.Name, err)
	}
	d.schema = s
	d.Fields = s.Fields()
	return nil
}
