package form

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/okian/hrdesk/internal/domain/types"
)

// Keys the backend uses for errors that belong to no single field.
const (
	KeyNonField = "non_field_errors"
	KeyDetail   = "detail"
	KeyError    = "error"
)

// bannerKeys are copied to the banner verbatim, in this order.
var bannerKeys = []string{KeyNonField, KeyDetail, KeyError} //nolint:gochecknoglobals // read-only

// Feedback is what a failed submit shows: messages under inputs and a
// banner above the form.
type Feedback struct {
	Fields    types.FieldErrors `json:"fields,omitempty"`
	Banner    string            `json:"banner,omitempty"`
	Duplicate bool              `json:"duplicate,omitempty"`
}

// Empty reports whether there is nothing to show.
func (f Feedback) Empty() bool {
	return f.Banner == "" && f.Fields.Empty()
}

// TransportFailure is the feedback when the backend could not be reached.
func TransportFailure() Feedback {
	return Feedback{Banner: MsgTransport}
}

// MapServerErrors distributes a backend error response over the schema.
// A key naming a field gets the first message of that key. non_field_errors,
// detail and error go to the banner verbatim; any other key goes to the banner as
// "key: msg1, msg2". A unique-set violation collapses to the duplicate
// banner. Responses that are not 4xx or not a JSON object produce the
// generic server banner.
func MapServerErrors(status int, body []byte, s *Schema) Feedback {
	if status < 400 || status >= 500 {
		return Feedback{Banner: MsgServer(status)}
	}
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
		return Feedback{Banner: MsgServer(status)}
	}

	perKey := make(map[string][]string, len(obj))
	var all strings.Builder
	all.WriteString(strings.ToLower(string(body)))
	for k, v := range obj {
		msgs := messages(v)
		perKey[k] = msgs
		for _, m := range msgs {
			all.WriteString(" ")
			all.WriteString(strings.ToLower(m))
		}
	}
	if isDuplicate(all.String()) {
		return Feedback{Banner: MsgDuplicate, Duplicate: true}
	}

	fb := Feedback{Fields: types.FieldErrors{}}
	var lines []string
	for _, k := range orderedKeys(perKey) {
		msgs := perKey[k]
		if len(msgs) == 0 {
			continue
		}
		switch {
		case s != nil && s.Has(k):
			fb.Fields[k] = msgs[0]
		case slices.Contains(bannerKeys, k):
			lines = append(lines, strings.Join(msgs, ", "))
		default:
			lines = append(lines, k+": "+strings.Join(msgs, ", "))
		}
	}
	fb.Banner = strings.Join(lines, "\n")
	if fb.Empty() {
		fb.Banner = MsgServer(status)
	}
	return fb
}

func isDuplicate(text string) bool {
	return strings.Contains(text, "unique set") || strings.Contains(text, "conjunto único")
}

// orderedKeys puts the banner keys first, then the rest sorted.
func orderedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if !slices.Contains(bannerKeys, k) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	var head []string
	for _, k := range bannerKeys {
		if _, ok := m[k]; ok {
			head = append(head, k)
		}
	}
	return append(head, keys...)
}

func messages(v any) []string {
	switch m := v.(type) {
	case nil:
		return nil
	case string:
		return []string{m}
	case []any:
		out := make([]string, 0, len(m))
		for _, e := range m {
			out = append(out, messages(e)...)
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		out := make([]string, 0, len(m))
		for _, k := range keys {
			out = append(out, k+": "+strings.Join(messages(m[k]), ", "))
		}
		return out
	default:
		return []string{fmt.Sprint(m)}
	}
}
