package site

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/hrdesk/internal/app"
	"github.com/okian/hrdesk/internal/domain/flows"
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/types"
)

type attendanceView struct {
	layout
	Sheet  service.AttendanceSheet
	Report *model.BulkReport
}

func (h *Handler) attendance(w http.ResponseWriter, r *http.Request) {
	sheet, err := h.deps.Attendance(r.Context(), chi.URLParam(r, "session"), r.URL.Query().Get("course"))
	if err != nil {
		h.fail(w, r, "attendance", err)
		return
	}
	h.render(w, r, http.StatusOK, "attendance.html", attendanceView{
		layout: layout{Title: "Asistencia de la sesión " + sheet.SessionID, Notice: notice(r)},
		Sheet:  sheet,
	})
}

func (h *Handler) saveAttendance(w http.ResponseWriter, r *http.Request) {
	session := chi.URLParam(r, "session")
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, "save attendance", err)
		return
	}
	course := r.PostForm.Get("course")
	edits := make(map[string]flows.AttendanceEdit)
	for _, pid := range r.PostForm["participant"] {
		notes := r.PostForm.Get("notes_" + pid)
		edits[pid] = flows.AttendanceEdit{
			Status: model.AttendanceStatus(r.PostForm.Get("status_" + pid)),
			Notes:  &notes,
		}
	}
	report, err := h.deps.SaveAttendance(r.Context(), session, course, edits)
	if err != nil {
		h.fail(w, r, "save attendance", err)
		return
	}
	if report.OK() {
		q := url.Values{"course": {course}, "notice": {"saved"}}
		http.Redirect(w, r, "/sessions/"+url.PathEscape(session)+"/attendance?"+q.Encode(), http.StatusSeeOther)
		return
	}
	sheet, err := h.deps.Attendance(r.Context(), session, course)
	if err != nil {
		h.fail(w, r, "save attendance", err)
		return
	}
	h.render(w, r, http.StatusOK, "attendance.html", attendanceView{
		layout: layout{Title: "Asistencia de la sesión " + session, Banner: service.MsgBulkPartial},
		Sheet:  sheet,
		Report: &report,
	})
}

type gradesView struct {
	layout
	CourseID string
	Rows     []flows.GradeRow
	// Inputs hold the submitted values when the sheet is shown again.
	Inputs map[string]flows.GradeInput
	Errors types.FieldErrors
	Report *model.BulkReport
}

func (h *Handler) grades(w http.ResponseWriter, r *http.Request) {
	course := chi.URLParam(r, "course")
	rows, err := h.deps.Grades(r.Context(), course)
	if err != nil {
		h.fail(w, r, "grades", err)
		return
	}
	h.render(w, r, http.StatusOK, "grades.html", gradesView{
		layout:   layout{Title: "Calificaciones del curso " + course, Notice: notice(r)},
		CourseID: course,
		Rows:     rows,
	})
}

func (h *Handler) saveGrades(w http.ResponseWriter, r *http.Request) {
	course := chi.URLParam(r, "course")
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, "save grades", err)
		return
	}
	pids := r.PostForm["participant"]
	inputs := make([]flows.GradeInput, 0, len(pids))
	byID := make(map[string]flows.GradeInput, len(pids))
	for _, pid := range pids {
		in := flows.GradeInput{
			ParticipantID:  pid,
			Grade:          strings.TrimSpace(r.PostForm.Get("grade_" + pid)),
			AcademicStatus: r.PostForm.Get("academic_status_" + pid),
		}
		inputs = append(inputs, in)
		byID[pid] = in
	}
	report, errs, err := h.deps.SaveGrades(r.Context(), course, inputs)
	if err != nil {
		h.fail(w, r, "save grades", err)
		return
	}
	if errs.Empty() && report.OK() {
		http.Redirect(w, r, "/courses/"+url.PathEscape(course)+"/grades?notice=saved", http.StatusSeeOther)
		return
	}
	rows, err := h.deps.Grades(r.Context(), course)
	if err != nil {
		h.fail(w, r, "save grades", err)
		return
	}
	view := gradesView{
		layout:   layout{Title: "Calificaciones del curso " + course},
		CourseID: course,
		Rows:     rows,
		Inputs:   byID,
		Errors:   errs,
	}
	status := http.StatusUnprocessableEntity
	if errs.Empty() {
		status = http.StatusOK
		view.Banner = service.MsgBulkPartial
		view.Report = &report
	}
	h.render(w, r, status, "grades.html", view)
}

type enrollmentsView struct {
	layout
	CourseID string
	Requests []flows.EnrollmentRequest
	Errors   types.FieldErrors
	Report   *model.BulkReport
}

func (h *Handler) enrollments(w http.ResponseWriter, r *http.Request) {
	course := chi.URLParam(r, "course")
	reqs, err := h.deps.EnrollmentRequests(r.Context(), course)
	if err != nil {
		h.fail(w, r, "enrollments", err)
		return
	}
	h.render(w, r, http.StatusOK, "enrollments.html", enrollmentsView{
		layout:   layout{Title: "Solicitudes de inscripción del curso " + course, Notice: notice(r)},
		CourseID: course,
		Requests: reqs,
	})
}

// decideEnrollments reads one decision_<participant> value per row; rows
// left undecided are not sent.
func (h *Handler) decideEnrollments(w http.ResponseWriter, r *http.Request) {
	course := chi.URLParam(r, "course")
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, "decide enrollments", err)
		return
	}
	decisions := make(map[string]flows.Decision)
	for _, pid := range r.PostForm["participant"] {
		if d := r.PostForm.Get("decision_" + pid); d != "" {
			decisions[pid] = flows.Decision(d)
		}
	}
	report, errs, err := h.deps.DecideEnrollments(r.Context(), course, decisions)
	if err != nil {
		h.fail(w, r, "decide enrollments", err)
		return
	}
	if errs.Empty() && report.OK() {
		http.Redirect(w, r, "/courses/"+url.PathEscape(course)+"/enrollments?notice=decided", http.StatusSeeOther)
		return
	}
	reqs, err := h.deps.EnrollmentRequests(r.Context(), course)
	if err != nil {
		h.fail(w, r, "decide enrollments", err)
		return
	}
	view := enrollmentsView{
		layout:   layout{Title: "Solicitudes de inscripción del curso " + course},
		CourseID: course,
		Requests: reqs,
		Errors:   errs,
	}
	status := http.StatusUnprocessableEntity
	if errs.Empty() {
		status = http.StatusOK
		view.Banner = service.MsgBulkPartial
		view.Report = &report
	}
	h.render(w, r, status, "enrollments.html", view)
}

type reviewView struct {
	layout
	Review   flows.Review
	Average  float64
	Averaged bool
	Inputs   map[string]flows.DetailEdit
	Feedback string
	Errors   types.FieldErrors
	Report   *model.BulkReport
}

func newReviewView(rev flows.Review, note string) reviewView {
	v := reviewView{
		layout:   layout{Title: "Evaluación de " + rev.EmployeeName, Notice: note},
		Review:   rev,
		Inputs:   make(map[string]flows.DetailEdit, len(rev.Details)),
		Feedback: rev.FeedbackManager,
	}
	for _, d := range rev.Details {
		v.Inputs[d.ID] = flows.DetailEdit{Score: d.Score, Comment: d.Comment}
	}
	if rev.Status == model.ReviewSent {
		v.Feedback = rev.FeedbackEmployee
	}
	v.Average, v.Averaged = rev.Average()
	return v
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request) {
	rev, err := h.deps.Review(r.Context(), chi.URLParam(r, "review"))
	if err != nil {
		h.fail(w, r, "review", err)
		return
	}
	h.render(w, r, http.StatusOK, "review.html", newReviewView(rev, notice(r)))
}

func (h *Handler) saveReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "review")
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, "save review", err)
		return
	}
	in := flows.ReviewInput{
		Action:   flows.ReviewAction(r.PostForm.Get("action")),
		Feedback: strings.TrimSpace(r.PostForm.Get("feedback")),
		Details:  make(map[string]flows.DetailEdit),
	}
	for _, did := range r.PostForm["detail"] {
		// A blank score stays unscored.
		score, _ := strconv.Atoi(r.PostForm.Get("score_" + did))
		in.Details[did] = flows.DetailEdit{Score: score, Comment: strings.TrimSpace(r.PostForm.Get("comment_" + did))}
	}
	res, err := h.deps.SaveReview(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, "save review", err)
		return
	}
	if res.OK() {
		http.Redirect(w, r, "/reviews/"+url.PathEscape(id)+"?notice=saved", http.StatusSeeOther)
		return
	}
	rev, err := h.deps.Review(r.Context(), id)
	if err != nil {
		h.fail(w, r, "save review", err)
		return
	}
	view := newReviewView(rev, "")
	for did, d := range in.Details {
		view.Inputs[did] = d
	}
	view.Feedback = in.Feedback
	view.Errors = res.Errors
	view.Banner = res.Banner
	status := http.StatusUnprocessableEntity
	if res.Errors.Empty() {
		status = http.StatusOK
		view.Report = &res.Report
	}
	h.render(w, r, status, "review.html", view)
}

type terminationView struct {
	layout
	Page service.TerminationPage
}

func (h *Handler) terminationForm(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.TerminationForm(r.Context(), chi.URLParam(r, "employment"))
	if err != nil {
		h.fail(w, r, "termination", err)
		return
	}
	h.render(w, r, http.StatusOK, "terminate.html", terminationView{
		layout: layout{Title: "Registrar egreso", Banner: p.Banner},
		Page:   p,
	})
}

func (h *Handler) terminate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, "terminate", err)
		return
	}
	raw := flows.TerminationSchema().FromForm(r.PostForm, nil)
	res, err := h.deps.Terminate(r.Context(), chi.URLParam(r, "employment"), r.PostForm.Get(tokenField), raw)
	if err != nil {
		h.fail(w, r, "terminate", err)
		return
	}
	if res.OK {
		http.Redirect(w, r, "/?notice=terminated", http.StatusSeeOther)
		return
	}
	status := http.StatusUnprocessableEntity
	if res.Feedback.Banner == service.MsgAlreadySubmitted {
		status = http.StatusConflict
	}
	h.render(w, r, status, "terminate.html", terminationView{
		layout: layout{Title: "Registrar egreso", Banner: res.Page.Banner},
		Page:   res.Page,
	})
}
