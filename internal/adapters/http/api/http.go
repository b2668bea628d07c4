// Package api serves the console's JSON API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/hrdesk/internal/app"
	"github.com/okian/hrdesk/internal/domain/catalog"
	"github.com/okian/hrdesk/internal/domain/flows"
	"github.com/okian/hrdesk/internal/domain/form"
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/options"
	"github.com/okian/hrdesk/internal/domain/types"
	"github.com/okian/hrdesk/pkg/logger"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	Ready() bool
	GetStats() map[string]any
	Registry() *catalog.Registry

	Table(ctx context.Context, name string, q service.TableQuery) (service.TablePage, error)
	Form(ctx context.Context, name, id string, ignored map[string]bool) (service.FormPage, error)
	Submit(ctx context.Context, name string, in service.SubmitInput) (catalog.SubmitResult, error)
	Delete(ctx context.Context, name, id string) (catalog.DeleteResult, error)
	FieldOptions(ctx context.Context, name, field, depValue string, ignoreDependency bool) (options.Set, error)
	OptionsLoading(name, field, depValue string, ignoreDependency bool) (bool, error)

	Attendance(ctx context.Context, sessionID, courseID string) (service.AttendanceSheet, error)
	SaveAttendance(ctx context.Context, sessionID, courseID string, edits map[string]flows.AttendanceEdit) (model.BulkReport, error)
	Grades(ctx context.Context, courseID string) ([]flows.GradeRow, error)
	SaveGrades(ctx context.Context, courseID string, inputs []flows.GradeInput) (model.BulkReport, types.FieldErrors, error)
	EnrollmentRequests(ctx context.Context, courseID string) ([]flows.EnrollmentRequest, error)
	DecideEnrollments(ctx context.Context, courseID string, decisions map[string]flows.Decision) (model.BulkReport, types.FieldErrors, error)
	Review(ctx context.Context, id string) (flows.Review, error)
	SaveReview(ctx context.Context, id string, in flows.ReviewInput) (service.ReviewResult, error)
	TerminationForm(ctx context.Context, employmentID string) (service.TerminationPage, error)
	Terminate(ctx context.Context, employmentID, token string, raw map[string]any) (service.TerminationResult, error)
}

// Server wires HTTP routes for the JSON API.
type Server struct {
	deps   Dependencies
	health *HealthHandler
	stats  *StatsHandler
	log    logger.Logger
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		deps:   deps,
		health: NewHealthHandler(deps.Ready),
		stats:  NewStatsHandler(deps),
		log:    log,
	}
}

// Register attaches the API routes to r.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", s.health.HandleHealth)
	r.Get("/metrics", s.health.HandleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.stats.HandleStats)

		r.Group(func(r chi.Router) {
			r.Use(s.requireReady)
			s.registerDomain(r)
		})
	})
}

// requireReady answers 503 until the service has started.
func (s *Server) requireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.deps.Ready() {
			s.fail(w, r, "api", NewKind("api", ErrNotReady))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerDomain(r chi.Router) {
	r.Get("/catalogs", s.handleCatalogs)
	r.Route("/catalogs/{catalog}", func(r chi.Router) {
		r.Get("/items", s.handleTable)
		r.Post("/items", s.handleCreate)
		r.Patch("/items/{id}", s.handleUpdate)
		r.Delete("/items/{id}", s.handleDelete)
		r.Get("/form", s.handleForm)
		r.Get("/fields/{field}/options", s.handleOptions)
	})

	r.Get("/sessions/{session}/attendance", s.handleAttendance)
	r.Put("/sessions/{session}/attendance", s.handleSaveAttendance)
	r.Get("/courses/{course}/grades", s.handleGrades)
	r.Put("/courses/{course}/grades", s.handleSaveGrades)
	r.Get("/courses/{course}/enrollments", s.handleEnrollments)
	r.Post("/courses/{course}/enrollments", s.handleDecideEnrollments)
	r.Get("/reviews/{review}", s.handleReview)
	r.Post("/reviews/{review}", s.handleSaveReview)
	r.Get("/employments/{employment}/terminate", s.handleTerminationForm)
	r.Post("/employments/{employment}/terminate", s.handleTerminate)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail maps err onto a status and writes it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := statusFor(err)
	if status == http.StatusBadGateway {
		err = WrapKind(op, ErrUpstream, err)
	} else {
		err = Wrap(op, err)
	}
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		s.log.Error(r.Context(), "request failed", logger.String("op", op), logger.Error(err))
	}
	writeError(w, status, code, err)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, flows.ErrInvalidInput):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, catalog.ErrUnknownCatalog), errors.Is(err, service.ErrUnknownField), errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, flows.ErrTransition), errors.Is(err, ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, ErrNotReady):
		return http.StatusServiceUnavailable, "not_ready"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "upstream_timeout"
	}
	if se, ok := catalog.AsStatus(err); ok && se.HTTPStatus() == http.StatusNotFound {
		return http.StatusNotFound, "not_found"
	}
	return http.StatusBadGateway, "upstream_error"
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return WrapKind("decode", ErrBadRequest, err)
	}
	return nil
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

// ignoredFields reads ?ignore=a,b or repeated ?ignore=a&ignore=b.
func ignoredFields(r *http.Request) map[string]bool {
	out := map[string]bool{}
	for _, v := range r.URL.Query()["ignore"] {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out[name] = true
			}
		}
	}
	return out
}

// fieldResponse is one form input as the API exposes it.
type fieldResponse struct {
	form.Descriptor
	Value        string         `json:"value,omitempty"`
	Values       []string       `json:"values,omitempty"`
	Checked      bool           `json:"checked,omitempty"`
	Error        string         `json:"error,omitempty"`
	Options      []types.Option `json:"options,omitempty"`
	Disabled     bool           `json:"disabled,omitempty"`
	OptionsError string         `json:"optionsError,omitempty"`
	Dependents   []string       `json:"dependents,omitempty"`
}

func fieldResponses(views []form.FieldView) []fieldResponse {
	out := make([]fieldResponse, len(views))
	for i, v := range views {
		out[i] = fieldResponse{
			Descriptor:   v.Descriptor,
			Value:        v.Value,
			Values:       v.Values,
			Checked:      v.Checked,
			Error:        v.Error,
			Options:      v.Options,
			Disabled:     v.Disabled,
			OptionsError: v.OptionsError,
			Dependents:   v.Dependents,
		}
	}
	return out
}
