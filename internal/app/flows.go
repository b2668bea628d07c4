package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/hrdesk/internal/domain/catalog"
	"github.com/okian/hrdesk/internal/domain/dedupe"
	"github.com/okian/hrdesk/internal/domain/flows"
	"github.com/okian/hrdesk/internal/domain/form"
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/types"
	"github.com/okian/hrdesk/pkg/logger"
)

// maxRosterPages stops listAll on a backend that never reports a count.
const maxRosterPages = 50

// listAll reads every page of a collection.
func (s *Service) listAll(ctx context.Context, endpoint string, q url.Values) ([]model.Item, error) {
	var out []model.Item
	for page := 1; page <= maxRosterPages; page++ {
		pq := url.Values{}
		for k, v := range q {
			pq[k] = v
		}
		pq.Set("page", strconv.Itoa(page))
		pq.Set("page_size", strconv.Itoa(s.optionPageSize))
		p, err := s.backend.List(ctx, endpoint, pq)
		if err != nil {
			return nil, err
		}
		out = append(out, p.Items...)
		if len(p.Items) == 0 || len(out) >= p.Count {
			break
		}
	}
	return out, nil
}

func (s *Service) dispatch(ctx context.Context, flow string, muts []model.Mutation) model.BulkReport {
	ctx, cancel := context.WithTimeout(ctx, s.bulkTimeout)
	defer cancel()
	return s.bulk.Dispatch(ctx, flow, muts)
}

// AttendanceSheet is the roster of one session.
type AttendanceSheet struct {
	SessionID string            `json:"session_id"`
	CourseID  string            `json:"course_id"`
	Rows      []flows.RosterRow `json:"rows"`
}

// Attendance loads a session's roster. courseID may be empty, in which case
// it is read from the session.
func (s *Service) Attendance(ctx context.Context, sessionID, courseID string) (AttendanceSheet, error) {
	if courseID == "" {
		session, err := s.backend.Get(ctx, flows.SessionsPath+sessionID+"/")
		if err != nil {
			return AttendanceSheet{}, fmt.Errorf("load session %s: %w", sessionID, err)
		}
		courseID = model.FormatID(session["course"])
		if obj, ok := session["course"].(map[string]any); ok {
			courseID = model.FormatID(obj["id"])
		}
	}
	participants, err := s.listAll(ctx, flows.ParticipantsPath, url.Values{"course": {courseID}})
	if err != nil {
		return AttendanceSheet{}, fmt.Errorf("load participants of course %s: %w", courseID, err)
	}
	records, err := s.listAll(ctx, flows.SessionAttendancePath(sessionID), nil)
	if err != nil {
		return AttendanceSheet{}, fmt.Errorf("load attendance of session %s: %w", sessionID, err)
	}
	return AttendanceSheet{
		SessionID: sessionID,
		CourseID:  courseID,
		Rows:      flows.MergeRoster(participants, records),
	}, nil
}

// SaveAttendance applies edits to the freshly loaded roster and writes every
// row.
func (s *Service) SaveAttendance(ctx context.Context, sessionID, courseID string, edits map[string]flows.AttendanceEdit) (model.BulkReport, error) {
	sheet, err := s.Attendance(ctx, sessionID, courseID)
	if err != nil {
		return model.BulkReport{}, err
	}
	rows, err := flows.ApplyAttendance(sheet.Rows, edits)
	if err != nil {
		return model.BulkReport{}, err
	}
	report := s.dispatch(ctx, "attendance", flows.AttendanceMutations(sessionID, rows))
	s.logger.Info(ctx, "attendance saved",
		logger.String("session", sessionID),
		logger.Int("succeeded", len(report.Succeeded)),
		logger.Int("failed", len(report.Failed)))
	return report, nil
}

// Grades loads the grade sheet of a course.
func (s *Service) Grades(ctx context.Context, courseID string) ([]flows.GradeRow, error) {
	participants, err := s.listAll(ctx, flows.ParticipantsPath, url.Values{"course": {courseID}})
	if err != nil {
		return nil, fmt.Errorf("load participants of course %s: %w", courseID, err)
	}
	return flows.GradeSheet(participants), nil
}

// SaveGrades validates and writes grades. Inputs for participants outside
// the course's student roster are rejected.
func (s *Service) SaveGrades(ctx context.Context, courseID string, inputs []flows.GradeInput) (model.BulkReport, types.FieldErrors, error) {
	sheet, err := s.Grades(ctx, courseID)
	if err != nil {
		return model.BulkReport{}, nil, err
	}
	known := make(map[string]bool, len(sheet))
	for _, r := range sheet {
		known[r.ParticipantID] = true
	}
	errs := types.FieldErrors{}
	for _, in := range inputs {
		if !known[in.ParticipantID] {
			errs[in.ParticipantID] = "El participante no pertenece al curso."
		}
	}
	if !errs.Empty() {
		return model.BulkReport{}, errs, nil
	}
	muts, errs := flows.GradeMutations(inputs)
	if !errs.Empty() {
		return model.BulkReport{}, errs, nil
	}
	return s.dispatch(ctx, "grading", muts), nil, nil
}

// EnrollmentRequests lists the pending enrollment requests of a course.
func (s *Service) EnrollmentRequests(ctx context.Context, courseID string) ([]flows.EnrollmentRequest, error) {
	participants, err := s.listAll(ctx, flows.ParticipantsPath, url.Values{
		"course":            {courseID},
		"enrollment_status": {model.EnrollmentRequested},
	})
	if err != nil {
		return nil, fmt.Errorf("load enrollment requests of course %s: %w", courseID, err)
	}
	return flows.PendingRequests(participants), nil
}

// DecideEnrollments approves or rejects pending requests, one course action
// per participant. Participants without a pending request are rejected
// before anything is sent.
func (s *Service) DecideEnrollments(ctx context.Context, courseID string, decisions map[string]flows.Decision) (model.BulkReport, types.FieldErrors, error) {
	pending, err := s.EnrollmentRequests(ctx, courseID)
	if err != nil {
		return model.BulkReport{}, nil, err
	}
	known := make(map[string]bool, len(pending))
	for _, r := range pending {
		known[r.ParticipantID] = true
	}
	errs := types.FieldErrors{}
	for pid := range decisions {
		if !known[pid] {
			errs[pid] = MsgNotPending
		}
	}
	if !errs.Empty() {
		return model.BulkReport{}, errs, nil
	}
	muts, errs := flows.EnrollmentMutations(courseID, decisions)
	if !errs.Empty() {
		return model.BulkReport{}, errs, nil
	}
	report := s.dispatch(ctx, "enrollment", muts)
	s.logger.Info(ctx, "enrollment requests decided",
		logger.String("course", courseID),
		logger.Int("succeeded", len(report.Succeeded)),
		logger.Int("failed", len(report.Failed)))
	return report, nil, nil
}

// Review loads a performance review.
func (s *Service) Review(ctx context.Context, id string) (flows.Review, error) {
	it, err := s.backend.Get(ctx, flows.ReviewsPath+id+"/")
	if err != nil {
		return flows.Review{}, fmt.Errorf("load review %s: %w", id, err)
	}
	return flows.ParseReview(it), nil
}

// ReviewResult is the outcome of a review save.
type ReviewResult struct {
	Report model.BulkReport  `json:"report"`
	Errors types.FieldErrors `json:"errors,omitempty"`
	Banner string            `json:"banner,omitempty"`
}

// OK reports whether everything was written.
func (r ReviewResult) OK() bool {
	return r.Errors.Empty() && r.Banner == "" && r.Report.OK()
}

// reviewHeaderKey is the report key of the review header write.
const reviewHeaderKey = "review"

// SaveReview writes detail scores in parallel, then the review header only
// if every detail was saved.
func (s *Service) SaveReview(ctx context.Context, id string, in flows.ReviewInput) (ReviewResult, error) {
	r, err := s.Review(ctx, id)
	if err != nil {
		return ReviewResult{}, err
	}
	plan, errs, err := flows.PlanReview(r, in)
	if err != nil {
		return ReviewResult{}, err
	}
	if !errs.Empty() {
		return ReviewResult{Errors: errs}, nil
	}

	report := s.dispatch(ctx, "review", plan.Details)
	report.Total++
	if !report.OK() {
		report.Failed = append(report.Failed, model.ItemFailure{Key: reviewHeaderKey, Message: MsgBulkPartial})
		return ReviewResult{Report: report, Banner: MsgBulkPartial}, nil
	}
	if _, err := s.backend.Update(ctx, plan.Header.Path, plan.Header.Payload); err != nil {
		s.logger.Warn(ctx, "review header save failed", logger.String("review", id), logger.Error(err))
		fb := feedbackFor(err, nil)
		status := 0
		if se, ok := catalog.AsStatus(err); ok {
			status = se.HTTPStatus()
		}
		report.Failed = append(report.Failed, model.ItemFailure{Key: reviewHeaderKey, Status: status, Message: fb.Banner})
		return ReviewResult{Report: report, Banner: fb.Banner}, nil
	}
	report.Succeeded = append(report.Succeeded, reviewHeaderKey)
	s.logger.Info(ctx, "review saved", logger.String("review", id), logger.String("action", string(in.Action)))
	return ReviewResult{Report: report}, nil
}

// feedbackFor maps a failed write onto a form.
func feedbackFor(err error, schema *form.Schema) form.Feedback {
	if se, ok := catalog.AsStatus(err); ok {
		return form.MapServerErrors(se.HTTPStatus(), se.ResponseBody(), schema)
	}
	return form.TransportFailure()
}

// TerminationPage is the offboarding form of one employment.
type TerminationPage struct {
	Employment model.Item
	Token      string
	Fields     []form.FieldView
	Banner     string
}

// TerminationForm loads an employment and builds its offboarding form.
func (s *Service) TerminationForm(ctx context.Context, employmentID string) (TerminationPage, error) {
	emp, err := s.backend.Get(ctx, flows.EmploymentsPath+employmentID+"/")
	if err != nil {
		return TerminationPage{}, fmt.Errorf("load employment %s: %w", employmentID, err)
	}
	return s.terminationPage(emp, flows.TerminationDefaults(time.Now()), form.Feedback{}), nil
}

func (s *Service) terminationPage(emp model.Item, values map[string]any, fb form.Feedback) TerminationPage {
	schema := flows.TerminationSchema()
	views := schema.Views(values, fb.Fields)
	for i := range views {
		if views[i].HasStaticChoices() {
			views[i].Options = views[i].Choices
		}
	}
	return TerminationPage{Employment: emp, Token: dedupe.NewToken(), Fields: views, Banner: fb.Banner}
}

// TerminationResult is the outcome of an offboarding submit. When not OK,
// Page holds the form to show again.
type TerminationResult struct {
	OK       bool
	Feedback form.Feedback
	Page     TerminationPage
}

// Terminate validates the offboarding form and posts the terminate action.
func (s *Service) Terminate(ctx context.Context, employmentID, token string, raw map[string]any) (TerminationResult, error) {
	emp, err := s.backend.Get(ctx, flows.EmploymentsPath+employmentID+"/")
	if err != nil {
		return TerminationResult{}, fmt.Errorf("load employment %s: %w", employmentID, err)
	}
	fail := func(fb form.Feedback) TerminationResult {
		return TerminationResult{Feedback: fb, Page: s.terminationPage(emp, raw, fb)}
	}
	if !s.guard.Acquire(ctx, token) {
		return fail(form.Feedback{Banner: MsgAlreadySubmitted}), nil
	}
	m, errs := flows.PlanTermination(emp, raw)
	if !errs.Empty() {
		s.guard.Release(ctx, token)
		return fail(form.Feedback{Fields: errs}), nil
	}
	if _, err := s.backend.Post(ctx, m.Path, m.Payload); err != nil {
		s.guard.Release(ctx, token)
		s.logger.Warn(ctx, "termination failed", logger.String("employment", employmentID), logger.Error(err))
		return fail(feedbackFor(err, flows.TerminationSchema())), nil
	}
	s.logger.Info(ctx, "employment terminated",
		logger.String("employment", employmentID),
		logger.Any("exit_reason", m.Payload["exit_reason"]))
	return TerminationResult{OK: true}, nil
}
