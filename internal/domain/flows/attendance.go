package flows

import (
	"fmt"

	"github.com/okian/hrdesk/internal/domain/model"
)

// RosterRow is one student of a session's attendance sheet.
type RosterRow struct {
	ParticipantID string                 `json:"participant_id"`
	PersonName    string                 `json:"person_name"`
	RecordID      string                 `json:"record_id,omitempty"`
	Status        model.AttendanceStatus `json:"status"`
	Notes         string                 `json:"notes"`
}

// IsStudent reports whether a participant row belongs on attendance and
// grading sheets: enrolled students only.
func IsStudent(p model.Item) bool {
	return str(p, "role") == model.RoleStudent && str(p, "enrollment_status") == model.EnrollmentEnrolled
}

// MergeRoster joins the enrolled students of a course with the attendance
// records already stored for a session. Students without a record default
// to present.
func MergeRoster(participants, records []model.Item) []RosterRow {
	byParticipant := make(map[string]model.Item, len(records))
	for _, r := range records {
		byParticipant[relatedID(r, "participant")] = r
	}
	rows := make([]RosterRow, 0, len(participants))
	for _, p := range participants {
		if !IsStudent(p) {
			continue
		}
		row := RosterRow{
			ParticipantID: p.ID(),
			PersonName:    str(p, "person_name"),
			Status:        model.DefaultAttendance,
		}
		if rec, ok := byParticipant[row.ParticipantID]; ok {
			row.RecordID = rec.ID()
			row.Notes = str(rec, "notes")
			if st := model.AttendanceStatus(str(rec, "status")); st.Valid() {
				row.Status = st
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// AttendanceEdit changes one row. A nil Notes keeps the loaded notes.
type AttendanceEdit struct {
	Status model.AttendanceStatus `json:"status"`
	Notes  *string                `json:"notes,omitempty"`
}

// ApplyAttendance applies edits keyed by participant id. Unknown
// participants and statuses are rejected.
func ApplyAttendance(rows []RosterRow, edits map[string]AttendanceEdit) ([]RosterRow, error) {
	out := make([]RosterRow, len(rows))
	copy(out, rows)
	index := make(map[string]int, len(out))
	for i, r := range out {
		index[r.ParticipantID] = i
	}
	for pid, e := range edits {
		i, ok := index[pid]
		if !ok {
			return nil, fmt.Errorf("%w: participant %s is not on the roster", ErrInvalidInput, pid)
		}
		if e.Status != "" {
			if !e.Status.Valid() {
				return nil, fmt.Errorf("%w: unknown attendance status %q", ErrInvalidInput, e.Status)
			}
			out[i].Status = e.Status
		}
		if e.Notes != nil {
			out[i].Notes = *e.Notes
		}
	}
	return out, nil
}

// AttendanceMutations builds one write per row: PATCH of the existing record
// or POST of a new one. Mutation keys are participant ids.
func AttendanceMutations(sessionID string, rows []RosterRow) []model.Mutation {
	out := make([]model.Mutation, 0, len(rows))
	for _, r := range rows {
		m := model.Mutation{
			Key:    r.ParticipantID,
			Method: "POST",
			Path:   AttendancePath,
			Payload: map[string]any{
				"session":     wireID(sessionID),
				"participant": wireID(r.ParticipantID),
				"status":      string(r.Status),
				"notes":       r.Notes,
			},
		}
		if r.RecordID != "" {
			m.Method = "PATCH"
			m.Path = AttendancePath + r.RecordID + "/"
		}
		out = append(out, m)
	}
	return out
}

// SessionAttendancePath lists the stored records of a session.
func SessionAttendancePath(sessionID string) string {
	return SessionsPath + sessionID + "/attendance/"
}
