package flows

import (
	"slices"
	"time"

	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/types"
)

// Decision answers one enrollment request.
type Decision string

const (
	Approve Decision = "approve"
	Reject  Decision = "reject"
)

// Valid reports whether d is approve or reject.
func (d Decision) Valid() bool { return d == Approve || d == Reject }

// MsgDecision rejects anything but approve or reject.
const MsgDecision = "Decisión inválida: use approve o reject."

// EnrollmentRequest is a participant waiting to be admitted to a course.
type EnrollmentRequest struct {
	ParticipantID string `json:"participant_id"`
	PersonName    string `json:"person_name"`
	// RequestedOn is the request date, YYYY-MM-DD when the backend sent a
	// timestamp.
	RequestedOn string `json:"requested_on"`
}

// PendingRequests keeps the participants whose enrollment is still
// requested.
func PendingRequests(participants []model.Item) []EnrollmentRequest {
	out := make([]EnrollmentRequest, 0, len(participants))
	for _, p := range participants {
		if str(p, "enrollment_status") != model.EnrollmentRequested {
			continue
		}
		out = append(out, EnrollmentRequest{
			ParticipantID: p.ID(),
			PersonName:    str(p, "person_name"),
			RequestedOn:   day(str(p, "created_at")),
		})
	}
	return out
}

func day(ts string) string {
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return t.Format(time.DateOnly)
	}
	return ts
}

// EnrollmentMutations builds one course action per decision, in participant
// order. Any unknown decision blocks the batch.
func EnrollmentMutations(courseID string, decisions map[string]Decision) ([]model.Mutation, types.FieldErrors) {
	errs := types.FieldErrors{}
	ids := make([]string, 0, len(decisions))
	for pid, d := range decisions {
		if !d.Valid() {
			errs[pid] = MsgDecision
			continue
		}
		ids = append(ids, pid)
	}
	if !errs.Empty() {
		return nil, errs
	}
	slices.Sort(ids)
	out := make([]model.Mutation, 0, len(ids))
	for _, pid := range ids {
		out = append(out, model.Mutation{
			Key:     pid,
			Method:  "POST",
			Path:    EnrollmentActionPath(courseID, decisions[pid]),
			Payload: map[string]any{"participant_id": wireID(pid)},
		})
	}
	return out, nil
}

// EnrollmentActionPath is the course action that answers a request.
func EnrollmentActionPath(courseID string, d Decision) string {
	return CoursesPath + courseID + "/" + string(d) + "_enrollment/"
}
