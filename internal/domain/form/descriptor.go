// Package form builds validation schemas from field descriptors, coerces
// submitted values, and maps backend validation failures back onto fields.
package form

import (
	"github.com/okian/hrdesk/internal/domain/types"
)

// Kind is the input type of a field.
type Kind string

const (
	KindText        Kind = "text"
	KindNumber      Kind = "number"
	KindEmail       Kind = "email"
	KindDate        Kind = "date"
	KindBoolean     Kind = "boolean"
	KindSelect      Kind = "select"
	KindMultiSelect Kind = "multiselect"
	KindTextarea    Kind = "textarea"
	KindFile        Kind = "file"
)

// Descriptor declares one form field.
type Descriptor struct {
	Name         string `yaml:"name" json:"name"`
	Label        string `yaml:"label" json:"label"`
	Type         Kind   `yaml:"type" json:"type"`
	Required     bool   `yaml:"required" json:"required"`
	DefaultValue any    `yaml:"default_value" json:"defaultValue,omitempty"`
	HelpText     string `yaml:"help_text" json:"helpText,omitempty"`

	// Remote options. OptionsEndpoint is a collection path such as
	// "/api/core/countries/".
	OptionsEndpoint string `yaml:"options_endpoint" json:"optionsEndpoint,omitempty"`
	OptionsLabelKey string `yaml:"options_label_key" json:"optionsLabelKey,omitempty"`
	OptionsValueKey string `yaml:"options_value_key" json:"optionsValueKey,omitempty"`
	DependsOn       string `yaml:"depends_on" json:"dependsOn,omitempty"`
	FilterParam     string `yaml:"filter_param" json:"filterParam,omitempty"`

	// Choices are static options; values stay strings.
	Choices []types.Option `yaml:"choices" json:"choices,omitempty"`

	Min      *float64 `yaml:"min" json:"min,omitempty"`
	Max      *float64 `yaml:"max" json:"max,omitempty"`
	NoDigits bool     `yaml:"no_digits" json:"noDigits,omitempty"`
}

// LabelKey is the option attribute displayed to the user.
func (d Descriptor) LabelKey() string {
	if d.OptionsLabelKey == "" {
		return "name"
	}
	return d.OptionsLabelKey
}

// ValueKey is the option attribute submitted as the value.
func (d Descriptor) ValueKey() string {
	if d.OptionsValueKey == "" {
		return "id"
	}
	return d.OptionsValueKey
}

// FilterKey is the query parameter that carries the dependency value.
func (d Descriptor) FilterKey() string {
	if d.FilterParam == "" {
		return d.DependsOn
	}
	return d.FilterParam
}

// IsChoice reports whether the field picks from an option set.
func (d Descriptor) IsChoice() bool {
	return d.Type == KindSelect || d.Type == KindMultiSelect
}

// HasStaticChoices reports whether options resolve without a request.
func (d Descriptor) HasStaticChoices() bool {
	return len(d.Choices) > 0
}

// InputType is the HTML input rendered for the field.
func (d Descriptor) InputType() string {
	if s, ok := kinds[d.Type]; ok {
		return s.input
	}
	return "text"
}

// coerceFunc turns a raw submitted value into the payload value. present is
// false when the key was not submitted at all. A non-empty message rejects
// the value.
type coerceFunc func(d Descriptor, raw any, present bool) (value any, message string)

type strategy struct {
	coerce coerceFunc
	input  string
}

// kinds is the closed set of supported field types.
var kinds = map[Kind]strategy{ //nolint:gochecknoglobals // read-only dispatch table
	KindText:        {coerce: coerceText, input: "text"},
	KindTextarea:    {coerce: coerceText, input: "textarea"},
	KindEmail:       {coerce: coerceEmail, input: "email"},
	KindNumber:      {coerce: coerceNumber, input: "number"},
	KindDate:        {coerce: coerceDate, input: "date"},
	KindBoolean:     {coerce: coerceBoolean, input: "checkbox"},
	KindSelect:      {coerce: coerceSelect, input: "select"},
	KindMultiSelect: {coerce: coerceMultiSelect, input: "multiselect"},
	KindFile:        {coerce: coerceFile, input: "file"},
}

// Known reports whether k is a supported kind.
func Known(k Kind) bool {
	_, ok := kinds[k]
	return ok
}
