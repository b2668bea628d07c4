// Package flows holds the hand-written screens that do not fit the catalog
// table: attendance taking, course grading, enrollment requests, review
// scoring and employment termination. Each flow turns loaded rows plus user edits into a list of
// mutations; dispatching them is up to the caller.
package flows

import (
	"errors"
	"strconv"

	"github.com/okian/hrdesk/internal/domain/model"
)

// Sentinel kinds for flow errors.
var (
	ErrInvalidInput = errors.New("invalid flow input")
	ErrTransition   = errors.New("action not allowed in current status")
)

// Backend paths of the flows.
const (
	CoursesPath       = "/api/training/courses/"
	ParticipantsPath  = "/api/training/participants/"
	AttendancePath    = "/api/training/attendance/"
	SessionsPath      = "/api/training/sessions/"
	ReviewsPath       = "/api/performance/reviews/"
	ReviewDetailsPath = "/api/performance/details/"
	EmploymentsPath   = "/api/employment/employments/"
)

// wireID sends numeric ids as numbers, anything else as a string.
func wireID(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}

func str(it model.Item, key string) string {
	return model.FormatID(it[key])
}

// relatedID reads a foreign key that may be an id or a nested object.
func relatedID(it model.Item, key string) string {
	if obj, ok := it[key].(map[string]any); ok {
		return model.FormatID(obj["id"])
	}
	return str(it, key)
}
