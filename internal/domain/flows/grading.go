package flows

import (
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/scoring"
	"github.com/okian/hrdesk/internal/domain/types"
)

// MsgDuplicateParticipant rejects a participant graded twice in one batch.
const MsgDuplicateParticipant = "Participante repetido en el lote."

// GradeRow is one student of a course's grade sheet.
type GradeRow struct {
	ParticipantID  string               `json:"participant_id"`
	PersonName     string               `json:"person_name"`
	Grade          *float64             `json:"grade"`
	AcademicStatus model.AcademicStatus `json:"academic_status"`
}

// GradeSheet lists the enrolled students of a course with their grades.
func GradeSheet(participants []model.Item) []GradeRow {
	rows := make([]GradeRow, 0, len(participants))
	for _, p := range participants {
		if !IsStudent(p) {
			continue
		}
		row := GradeRow{
			ParticipantID:  p.ID(),
			PersonName:     str(p, "person_name"),
			AcademicStatus: model.AcademicStatus(str(p, "academic_status")),
		}
		if !row.AcademicStatus.Valid() {
			row.AcademicStatus = model.AcademicPending
		}
		if g, msg := scoring.GradeScale.Parse(str(p, "grade")); msg == "" {
			row.Grade = g
		}
		rows = append(rows, row)
	}
	return rows
}

// GradeInput is the submitted grade of one participant.
type GradeInput struct {
	ParticipantID  string `json:"participant_id"`
	Grade          string `json:"grade"`
	AcademicStatus string `json:"academic_status"`
}

// GradeMutations validates every input and builds one PATCH per
// participant. Any invalid input blocks the whole batch; errors are keyed by
// participant id. A participant may appear once.
func GradeMutations(inputs []GradeInput) ([]model.Mutation, types.FieldErrors) {
	errs := types.FieldErrors{}
	out := make([]model.Mutation, 0, len(inputs))
	seen := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		if seen[in.ParticipantID] {
			errs[in.ParticipantID] = MsgDuplicateParticipant
			continue
		}
		seen[in.ParticipantID] = true
		grade, msg := scoring.GradeScale.Parse(in.Grade)
		if msg != "" {
			errs[in.ParticipantID] = msg
			continue
		}
		status := model.AcademicStatus(in.AcademicStatus)
		if status == "" {
			status = model.AcademicPending
		}
		if !status.Valid() {
			errs[in.ParticipantID] = "Estatus académico inválido."
			continue
		}
		payload := map[string]any{"academic_status": string(status), "grade": nil}
		if grade != nil {
			payload["grade"] = *grade
		}
		out = append(out, model.Mutation{
			Key:     in.ParticipantID,
			Method:  "PATCH",
			Path:    ParticipantsPath + in.ParticipantID + "/",
			Payload: payload,
		})
	}
	if !errs.Empty() {
		return nil, errs
	}
	return out, nil
}
