package form

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/types"
)

// Mode selects create or update semantics for a submit.
type Mode int

const (
	// Create posts a new record.
	Create Mode = iota
	// Update patches an existing record.
	Update
)

// Schema is a validated, ordered set of descriptors with the dependency
// edges between them.
type Schema struct {
	fields     []Descriptor
	index      map[string]int
	dependents map[string][]string
}

// NewSchema checks descriptors and indexes them. Names must be unique, kinds
// known, and dependsOn must reference another field of the same schema.
func NewSchema(fields []Descriptor) (*Schema, error) {
	s := &Schema{
		fields:     make([]Descriptor, len(fields)),
		index:      make(map[string]int, len(fields)),
		dependents: make(map[string][]string),
	}
	copy(s.fields, fields)
	for i, f := range s.fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: field %d has no name", ErrInvalidSchema, i)
		}
		if f.Type == "" {
			s.fields[i].Type = KindText
		} else if !Known(f.Type) {
			return nil, fmt.Errorf("%w: field %q has unknown type %q", ErrInvalidSchema, f.Name, f.Type)
		}
		if f.Label == "" {
			s.fields[i].Label = f.Name
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %q", ErrInvalidSchema, f.Name)
		}
		s.index[f.Name] = i
	}
	for _, f := range s.fields {
		if f.IsChoice() && f.OptionsEndpoint == "" && !f.HasStaticChoices() {
			return nil, fmt.Errorf("%w: field %q needs options_endpoint or choices", ErrInvalidSchema, f.Name)
		}
		if f.DependsOn == "" {
			continue
		}
		if f.DependsOn == f.Name {
			return nil, fmt.Errorf("%w: field %q depends on itself", ErrInvalidSchema, f.Name)
		}
		if _, ok := s.index[f.DependsOn]; !ok {
			return nil, fmt.Errorf("%w: field %q depends on unknown field %q", ErrInvalidSchema, f.Name, f.DependsOn)
		}
		s.dependents[f.DependsOn] = append(s.dependents[f.DependsOn], f.Name)
	}
	return s, nil
}

// Fields returns the descriptors in declaration order.
func (s *Schema) Fields() []Descriptor {
	return s.fields
}

// Field looks a descriptor up by name.
func (s *Schema) Field(name string) (Descriptor, bool) {
	i, ok := s.index[name]
	if !ok {
		return Descriptor{}, false
	}
	return s.fields[i], true
}

// Has reports whether name is a field of the schema.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Dependents returns the fields whose options are filtered by name. When
// name changes those fields must re-query their options.
func (s *Schema) Dependents(name string) []string {
	return s.dependents[name]
}

// HasFile reports whether any field uploads a file.
func (s *Schema) HasFile() bool {
	for _, f := range s.fields {
		if f.Type == KindFile {
			return true
		}
	}
	return false
}

// DependencyValue returns the current value of the field d depends on, or ""
// when d has no dependency.
func (s *Schema) DependencyValue(d Descriptor, values map[string]any) string {
	if d.DependsOn == "" {
		return ""
	}
	return strings.TrimSpace(scalar(values[d.DependsOn]))
}

// Validate coerces raw submitted values into the payload sent upstream.
// Absent file fields are left out of the payload so an update keeps the
// stored file.
func (s *Schema) Validate(raw map[string]any, mode Mode) (map[string]any, types.FieldErrors) {
	payload := make(map[string]any, len(s.fields))
	errs := types.FieldErrors{}
	for _, f := range s.fields {
		v, present := raw[f.Name]
		value, msg := kinds[f.Type].coerce(f, v, present)
		if f.Type == KindFile && value == nil {
			if f.Required && mode == Create {
				errs[f.Name] = MsgRequired
			}
			continue
		}
		if msg != "" {
			errs[f.Name] = msg
		}
		payload[f.Name] = value
	}
	return payload, errs
}

// Overlay lays raw over base, the prefilled values of a stored record, so
// an update changes only the fields raw names. Stored files are not resent.
func (s *Schema) Overlay(base, raw map[string]any) map[string]any {
	out := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		if v, ok := base[f.Name]; ok && f.Type != KindFile {
			out[f.Name] = v
		}
	}
	for k, v := range raw {
		out[k] = v
	}
	return out
}

// FromForm reads an HTML form submission into raw values. A browser leaves
// unticked checkboxes and empty multi-selects out of the body, so those read
// as false and as no selection.
func (s *Schema) FromForm(form url.Values, files map[string]*types.File) map[string]any {
	raw := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		switch f.Type {
		case KindFile:
			if file, ok := files[f.Name]; ok {
				raw[f.Name] = file
			}
		case KindBoolean:
			raw[f.Name] = false
			if vs := form[f.Name]; len(vs) > 0 {
				raw[f.Name] = vs[len(vs)-1]
			}
		case KindMultiSelect:
			vs, ok := form[f.Name]
			if !ok {
				vs = []string{}
			}
			raw[f.Name] = vs
		default:
			if vs, ok := form[f.Name]; ok && len(vs) > 0 {
				raw[f.Name] = vs[0]
			}
		}
	}
	return raw
}

// Prefill turns a backend record (or nil for a new record) into form values:
// related objects collapse to their value key, dates drop any time part.
func (s *Schema) Prefill(item model.Item) map[string]any {
	values := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		v, ok := item[f.Name]
		if !ok || v == nil {
			v = f.DefaultValue
		}
		switch f.Type {
		case KindBoolean:
			b, _ := coerceBoolean(f, v, v != nil)
			values[f.Name] = b
		case KindMultiSelect:
			ids := make([]string, 0)
			if vs, isList := v.([]any); isList {
				for _, e := range vs {
					ids = append(ids, relatedValue(f, e))
				}
			} else {
				ids = append(ids, list(v)...)
			}
			values[f.Name] = ids
		case KindSelect:
			values[f.Name] = relatedValue(f, v)
		case KindDate:
			d := scalar(v)
			if len(d) > len(dateLayout) {
				d = d[:len(dateLayout)]
			}
			values[f.Name] = d
		case KindFile:
			values[f.Name] = scalar(v)
		default:
			values[f.Name] = scalar(v)
		}
	}
	return values
}

func relatedValue(f Descriptor, v any) string {
	if obj, ok := v.(map[string]any); ok {
		return model.FormatID(obj[f.ValueKey()])
	}
	return scalar(v)
}

// FieldView is everything a renderer needs for one input.
type FieldView struct {
	Descriptor
	Value    string
	Values   []string
	Checked  bool
	Error    string
	Options  []types.Option
	Disabled bool
	// OptionsError is shown when the option source failed.
	OptionsError string
	// Dependents lists fields to refresh when this one changes.
	Dependents []string
}

// Selected reports whether v is among the field's current values.
func (v FieldView) Selected(value string) bool {
	if v.Type == KindMultiSelect {
		for _, s := range v.Values {
			if s == value {
				return true
			}
		}
		return false
	}
	return v.Value == value
}

// Views builds render state from current values and field errors. Option
// sets are filled by the caller.
func (s *Schema) Views(values map[string]any, errs types.FieldErrors) []FieldView {
	out := make([]FieldView, 0, len(s.fields))
	for _, f := range s.fields {
		v := values[f.Name]
		fv := FieldView{
			Descriptor: f,
			Error:      errs[f.Name],
			Dependents: s.dependents[f.Name],
		}
		switch f.Type {
		case KindBoolean:
			b, _ := coerceBoolean(f, v, v != nil)
			fv.Checked, _ = b.(bool)
		case KindMultiSelect:
			fv.Values = list(v)
		default:
			fv.Value = scalar(v)
		}
		out = append(out, fv)
	}
	return out
}
