package form

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/types"
)

const dateLayout = "2006-01-02"

var validate = validator.New() //nolint:gochecknoglobals // validator caches struct metadata, one instance is intended

// scalar reads a single submitted value as a string. Lists yield their first
// element.
func scalar(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		if len(v) == 0 {
			return ""
		}
		return v[0]
	case []any:
		if len(v) == 0 {
			return ""
		}
		return scalar(v[0])
	case bool:
		return strconv.FormatBool(v)
	case map[string]any:
		return model.FormatID(v["id"])
	default:
		return model.FormatID(v)
	}
}

// list reads a submitted value as a list of strings.
func list(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return nil
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			out = append(out, scalar(e))
		}
		return out
	default:
		if s := scalar(v); s != "" {
			return []string{s}
		}
		return nil
	}
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func coerceText(d Descriptor, raw any, _ bool) (any, string) {
	s := scalar(raw)
	if d.Required && blank(s) {
		return s, MsgRequired
	}
	if d.NoDigits && strings.IndexFunc(s, unicode.IsDigit) >= 0 {
		return s, MsgNoDigits
	}
	return s, ""
}

func coerceEmail(d Descriptor, raw any, _ bool) (any, string) {
	s := strings.TrimSpace(scalar(raw))
	if s == "" {
		if d.Required {
			return s, MsgRequired
		}
		return s, ""
	}
	if validate.Var(s, "email") != nil {
		return s, MsgEmail
	}
	return s, ""
}

func coerceNumber(d Descriptor, raw any, _ bool) (any, string) {
	if f, ok := raw.(float64); ok {
		return checkBounds(d, f)
	}
	s := strings.TrimSpace(scalar(raw))
	if s == "" {
		if d.Required {
			return nil, MsgRequired
		}
		return nil, ""
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, MsgNumber
	}
	return checkBounds(d, f)
}

func checkBounds(d Descriptor, f float64) (any, string) {
	if d.Min != nil && f < *d.Min {
		return f, MsgMin(*d.Min)
	}
	if d.Max != nil && f > *d.Max {
		return f, MsgMax(*d.Max)
	}
	return f, ""
}

func coerceDate(d Descriptor, raw any, _ bool) (any, string) {
	s := strings.TrimSpace(scalar(raw))
	if s == "" {
		if d.Required {
			return nil, MsgRequired
		}
		return nil, ""
	}
	if validate.Var(s, "datetime="+dateLayout) != nil {
		return nil, MsgDate
	}
	return s, ""
}

func coerceBoolean(_ Descriptor, raw any, present bool) (any, string) {
	if !present {
		return false, ""
	}
	if b, ok := raw.(bool); ok {
		return b, ""
	}
	switch strings.ToLower(strings.TrimSpace(scalar(raw))) {
	case "true", "on", "1", "yes", "si", "sí":
		return true, ""
	default:
		return false, ""
	}
}

// choiceValue coerces one selected value. Remote options keyed by id become
// integers; anything else that is not numeric becomes nil. Static choices and
// options keyed by another attribute keep their string value.
func choiceValue(d Descriptor, s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if d.HasStaticChoices() || d.ValueKey() != "id" {
		return s
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return n
}

func validChoice(d Descriptor, s string) bool {
	if !d.HasStaticChoices() {
		return true
	}
	for _, c := range d.Choices {
		if c.Value == s {
			return true
		}
	}
	return false
}

func coerceSelect(d Descriptor, raw any, _ bool) (any, string) {
	v := choiceValue(d, scalar(raw))
	if v == nil {
		if d.Required {
			return nil, MsgRequired
		}
		return nil, ""
	}
	if s, ok := v.(string); ok && !validChoice(d, s) {
		return nil, MsgChoice
	}
	return v, ""
}

func coerceMultiSelect(d Descriptor, raw any, _ bool) (any, string) {
	out := make([]any, 0)
	for _, s := range list(raw) {
		v := choiceValue(d, s)
		if v == nil {
			continue
		}
		if str, ok := v.(string); ok && !validChoice(d, str) {
			return out, MsgChoice
		}
		out = append(out, v)
	}
	if d.Required && len(out) == 0 {
		return out, MsgSelectOne
	}
	return out, ""
}

func coerceFile(d Descriptor, raw any, _ bool) (any, string) {
	switch f := raw.(type) {
	case *types.File:
		if f != nil && f.Filename != "" {
			f.Field = d.Name
			return f, ""
		}
	case types.File:
		if f.Filename != "" {
			f.Field = d.Name
			return &f, ""
		}
	}
	return nil, ""
}
