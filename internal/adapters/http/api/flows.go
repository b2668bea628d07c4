package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/hrdesk/internal/app"
	"github.com/okian/hrdesk/internal/domain/flows"
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/types"
)

// reportStatus is 200 when every write succeeded and 207 otherwise.
func reportStatus(r model.BulkReport) int {
	if r.OK() {
		return http.StatusOK
	}
	return http.StatusMultiStatus
}

func (s *Server) handleAttendance(w http.ResponseWriter, r *http.Request) {
	sheet, err := s.deps.Attendance(r.Context(), chi.URLParam(r, "session"), r.URL.Query().Get("course"))
	if err != nil {
		s.fail(w, r, "attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}

type attendanceRequest struct {
	Course string                         `json:"course"`
	Edits  map[string]flows.AttendanceEdit `json:"edits"`
}

func (s *Server) handleSaveAttendance(w http.ResponseWriter, r *http.Request) {
	var req attendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, "save attendance", err)
		return
	}
	report, err := s.deps.SaveAttendance(r.Context(), chi.URLParam(r, "session"), req.Course, req.Edits)
	if err != nil {
		s.fail(w, r, "save attendance", err)
		return
	}
	writeJSON(w, reportStatus(report), report)
}

func (s *Server) handleGrades(w http.ResponseWriter, r *http.Request) {
	rows, err := s.deps.Grades(r.Context(), chi.URLParam(r, "course"))
	if err != nil {
		s.fail(w, r, "grades", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

type gradesRequest struct {
	Grades []flows.GradeInput `json:"grades"`
}

// gradesResponse also answers enrollment decisions.
type gradesResponse struct {
	Report model.BulkReport  `json:"report"`
	Errors types.FieldErrors `json:"errors,omitempty"`
}

func (s *Server) handleSaveGrades(w http.ResponseWriter, r *http.Request) {
	var req gradesRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, "save grades", err)
		return
	}
	report, errs, err := s.deps.SaveGrades(r.Context(), chi.URLParam(r, "course"), req.Grades)
	switch {
	case err != nil:
		s.fail(w, r, "save grades", err)
	case !errs.Empty():
		writeJSON(w, http.StatusBadRequest, gradesResponse{Errors: errs})
	default:
		writeJSON(w, reportStatus(report), gradesResponse{Report: report})
	}
}

func (s *Server) handleEnrollments(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.deps.EnrollmentRequests(r.Context(), chi.URLParam(r, "course"))
	if err != nil {
		s.fail(w, r, "enrollments", err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

type enrollmentsRequest struct {
	// Decisions maps participant ids to approve or reject.
	Decisions map[string]flows.Decision `json:"decisions"`
}

func (s *Server) handleDecideEnrollments(w http.ResponseWriter, r *http.Request) {
	var req enrollmentsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, "decide enrollments", err)
		return
	}
	report, errs, err := s.deps.DecideEnrollments(r.Context(), chi.URLParam(r, "course"), req.Decisions)
	switch {
	case err != nil:
		s.fail(w, r, "decide enrollments", err)
	case !errs.Empty():
		writeJSON(w, http.StatusBadRequest, gradesResponse{Errors: errs})
	default:
		writeJSON(w, reportStatus(report), gradesResponse{Report: report})
	}
}

type reviewResponse struct {
	flows.Review
	// Average is absent while no detail is scored.
	Average  *float64 `json:"average"`
	Editable bool     `json:"editable"`
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	rev, err := s.deps.Review(r.Context(), chi.URLParam(r, "review"))
	if err != nil {
		s.fail(w, r, "review", err)
		return
	}
	resp := reviewResponse{Review: rev, Editable: rev.Editable()}
	if avg, ok := rev.Average(); ok {
		resp.Average = &avg
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSaveReview(w http.ResponseWriter, r *http.Request) {
	var in flows.ReviewInput
	if err := decodeJSON(r, &in); err != nil {
		s.fail(w, r, "save review", err)
		return
	}
	res, err := s.deps.SaveReview(r.Context(), chi.URLParam(r, "review"), in)
	switch {
	case err != nil:
		s.fail(w, r, "save review", err)
	case !res.Errors.Empty():
		writeJSON(w, http.StatusBadRequest, res)
	default:
		writeJSON(w, reportStatus(res.Report), res)
	}
}

type terminationResponse struct {
	Employment model.Item      `json:"employment"`
	Token      string          `json:"token"`
	Fields     []fieldResponse `json:"fields"`
	Banner     string          `json:"banner,omitempty"`
}

func (s *Server) handleTerminationForm(w http.ResponseWriter, r *http.Request) {
	page, err := s.deps.TerminationForm(r.Context(), chi.URLParam(r, "employment"))
	if err != nil {
		s.fail(w, r, "termination form", err)
		return
	}
	writeJSON(w, http.StatusOK, terminationResponse{
		Employment: page.Employment,
		Token:      page.Token,
		Fields:     fieldResponses(page.Fields),
		Banner:     page.Banner,
	})
}

type terminateResponse struct {
	OK     bool              `json:"ok"`
	Errors types.FieldErrors `json:"errors,omitempty"`
	Banner string            `json:"banner,omitempty"`
	// Token replaces the spent one when the form must be sent again.
	Token string `json:"token,omitempty"`
}

func (s *Server) handleTerminate(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, "terminate", err)
		return
	}
	if req.Values == nil {
		req.Values = map[string]any{}
	}
	res, err := s.deps.Terminate(r.Context(), chi.URLParam(r, "employment"), req.Token, req.Values)
	if err != nil {
		s.fail(w, r, "terminate", err)
		return
	}
	if res.OK {
		writeJSON(w, http.StatusOK, terminateResponse{OK: true})
		return
	}
	status := http.StatusBadRequest
	if res.Feedback.Banner == service.MsgAlreadySubmitted {
		status = http.StatusConflict
	}
	writeJSON(w, status, terminateResponse{
		Errors: res.Feedback.Fields,
		Banner: res.Feedback.Banner,
		Token:  res.Page.Token,
	})
}
