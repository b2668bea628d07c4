// Package site serves the server-rendered HR console.
package site

import (
	"context"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/hrdesk/internal/app"
	"github.com/okian/hrdesk/internal/domain/catalog"
	"github.com/okian/hrdesk/internal/domain/flows"
	"github.com/okian/hrdesk/internal/domain/form"
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/types"
	"github.com/okian/hrdesk/pkg/logger"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Dependencies required by the console pages.
type Dependencies interface {
	Registry() *catalog.Registry

	Table(ctx context.Context, name string, q service.TableQuery) (service.TablePage, error)
	Form(ctx context.Context, name, id string, ignored map[string]bool) (service.FormPage, error)
	Refill(ctx context.Context, name, id string, values map[string]any, fb form.Feedback, ignored map[string]bool) (service.FormPage, error)
	Submit(ctx context.Context, name string, in service.SubmitInput) (catalog.SubmitResult, error)
	Delete(ctx context.Context, name, id string) (catalog.DeleteResult, error)

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

// Handler renders the console.
type Handler struct {
	deps      Dependencies
	pages     *template.Template
	log       logger.Logger
	debounce  time.Duration
	maxUpload int64
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithSearchDebounce sets how long the search box waits after the last
// keystroke before reloading the table.
func WithSearchDebounce(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.debounce = d
		}
	}
}

// WithMaxUpload caps the size of a multipart form.
func WithMaxUpload(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUpload = n
		}
	}
}

// New parses the embedded templates.
func New(deps Dependencies, opts ...Option) (*Handler, error) {
	h := &Handler{
		deps:      deps,
		log:       logger.Nop(),
		debounce:  300 * time.Millisecond,
		maxUpload: 32 << 20,
	}
	for _, opt := range opts {
		opt(h)
	}
	pages, err := template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	h.pages = pages
	return h, nil
}

// Register attaches the console routes to r.
func (h *Handler) Register(r chi.Router) {
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/", h.index)
	r.Route("/catalogs/{catalog}", func(r chi.Router) {
		r.Get("/", h.table)
		r.Post("/", h.create)
		r.Get("/new", h.newForm)
		r.Get("/{id}/edit", h.editForm)
		r.Post("/{id}", h.update)
		r.Post("/{id}/delete", h.remove)
	})

	r.Get("/sessions/{session}/attendance", h.attendance)
	r.Post("/sessions/{session}/attendance", h.saveAttendance)
	r.Get("/courses/{course}/grades", h.grades)
	r.Post("/courses/{course}/grades", h.saveGrades)
	r.Get("/courses/{course}/enrollments", h.enrollments)
	r.Post("/courses/{course}/enrollments", h.decideEnrollments)
	r.Get("/reviews/{review}", h.review)
	r.Post("/reviews/{review}", h.saveReview)
	r.Get("/employments/{employment}/terminate", h.terminationForm)
	r.Post("/employments/{employment}/terminate", h.terminate)
}
