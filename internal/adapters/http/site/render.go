package site

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/hrdesk/internal/domain/catalog"
	"github.com/okian/hrdesk/internal/domain/form"
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/scoring"
	"github.com/okian/hrdesk/internal/domain/types"
	"github.com/okian/hrdesk/pkg/logger"
)

// Form field names owned by the console rather than a schema.
const (
	tokenField  = "_token"
	ignoreField = "_ignore"
)

var funcs = template.FuncMap{ //nolint:gochecknoglobals // read-only template helpers
	"pageSizes":          func() []int { return catalog.PageSizes },
	"attendanceStatuses": func() []model.AttendanceStatus { return model.AttendanceStatuses },
	"academicStatuses":   func() []model.AcademicStatus { return academicStatuses },
	"academicLabel":      academicLabel,
	"grade":              formatGrade,
	"score2":             func(v float64) string { return strconv.FormatFloat(scoring.Round2(v), 'f', 2, 64) },
	"scores":             func() []int { return []int{1, 2, 3, 4, 5} },
	"pageURL":            pageURL,
	"confirmEdit":        func() string { return catalog.MsgConfirmEdit },
	"text":               func(it model.Item, key string) string { return model.FormatID(it[key]) },
}

var academicStatuses = []model.AcademicStatus{model.AcademicPending, model.AcademicApproved, model.AcademicFailed} //nolint:gochecknoglobals // enumeration

func formatGrade(g *float64) string {
	if g == nil {
		return ""
	}
	return strconv.FormatFloat(*g, 'f', -1, 64)
}

func academicLabel(s model.AcademicStatus) string {
	switch s {
	case model.AcademicApproved:
		return "Aprobado"
	case model.AcademicFailed:
		return "Reprobado"
	default:
		return "Pendiente"
	}
}

// pageURL links to one page of a table keeping size and search.
func pageURL(name string, page int, p catalog.Pagination, search string) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(p.PageSize))
	if search != "" {
		q.Set("search", search)
	}
	return "/catalogs/" + url.PathEscape(name) + "/?" + q.Encode()
}

// layout is the part of every view the shared header reads.
type layout struct {
	Title  string
	Notice string
	Banner string
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.pages.ExecuteTemplate(&buf, name, data); err != nil {
		h.log.Error(r.Context(), "template failed", logger.String("template", name), logger.Error(err))
		http.Error(w, MsgRender, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type errorView struct {
	layout
	Status int
}

// fail renders the error page for a load or save error.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := describe(err)
	if status >= http.StatusInternalServerError {
		h.log.Warn(r.Context(), "console request failed", logger.String("op", op), logger.Error(err))
	}
	h.render(w, r, status, "error.html", errorView{layout: layout{Title: "Error", Banner: msg}, Status: status})
}

// readForm parses a urlencoded or multipart submission and returns the
// uploaded files of schema's file fields.
func (h *Handler) readForm(r *http.Request, schema *form.Schema) (url.Values, map[string]*types.File, error) {
	if schema != nil && schema.HasFile() && strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(h.maxUpload); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrReadForm, err)
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrReadForm, err)
	}
	files := map[string]*types.File{}
	if r.MultipartForm == nil || schema == nil {
		return r.PostForm, files, nil
	}
	for _, f := range schema.Fields() {
		if f.Type != form.KindFile {
			continue
		}
		fh, ok := r.MultipartForm.File[f.Name]
		if !ok || len(fh) == 0 || fh[0].Filename == "" {
			continue
		}
		src, err := fh[0].Open()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s: %w", ErrReadForm, f.Name, err)
		}
		data, err := io.ReadAll(src)
		_ = src.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s: %w", ErrReadForm, f.Name, err)
		}
		files[f.Name] = &types.File{
			Field:       f.Name,
			Filename:    fh[0].Filename,
			ContentType: fh[0].Header.Get("Content-Type"),
			Data:        data,
		}
	}
	return r.PostForm, files, nil
}

// ignoredSet reads the dependency toggles from a query or form.
func ignoredSet(values url.Values) map[string]bool {
	out := map[string]bool{}
	for _, v := range values[ignoreField] {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out[name] = true
			}
		}
	}
	return out
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}
