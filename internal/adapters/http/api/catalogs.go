package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/hrdesk/internal/app"
	"github.com/okian/hrdesk/internal/domain/catalog"
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/options"
	"github.com/okian/hrdesk/internal/domain/types"
	"github.com/okian/hrdesk/pkg/logger"
)

type catalogSummary struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Group       string `json:"group"`
	Searchable  bool   `json:"searchable"`
	ConfirmEdit bool   `json:"confirmEdit"`
}

type catalogGroup struct {
	Name     string           `json:"name"`
	Catalogs []catalogSummary `json:"catalogs"`
}

func (s *Server) handleCatalogs(w http.ResponseWriter, _ *http.Request) {
	groups := s.deps.Registry().Groups()
	out := make([]catalogGroup, 0, len(groups))
	for _, g := range groups {
		cg := catalogGroup{Name: g.Name, Catalogs: make([]catalogSummary, 0, len(g.Catalogs))}
		for _, d := range g.Catalogs {
			cg.Catalogs = append(cg.Catalogs, catalogSummary{
				Name: d.Name, Title: d.Title, Group: d.Group,
				Searchable: d.Searchable, ConfirmEdit: d.ConfirmEdit,
			})
		}
		out = append(out, cg)
	}
	writeJSON(w, http.StatusOK, out)
}

type tableResponse struct {
	Catalog    string             `json:"catalog"`
	Columns    []catalog.Column   `json:"columns"`
	Rows       []model.Item       `json:"rows"`
	Cells      [][]string         `json:"cells"`
	Pagination catalog.Pagination `json:"pagination"`
	TotalPages int                `json:"totalPages"`
	Search     string             `json:"search,omitempty"`
	Banner     string             `json:"banner,omitempty"`
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "catalog")
	page, err := s.deps.Table(r.Context(), name, service.TableQuery{
		Page:     queryInt(r, "page"),
		Size:     queryInt(r, "page_size"),
		PrevSize: queryInt(r, "prev_page_size"),
		Search:   r.URL.Query().Get("search"),
	})
	if page.Catalog == nil {
		s.fail(w, r, "table", err)
		return
	}
	// A failed load still renders: empty rows and the banner.
	if err != nil {
		s.log.Warn(r.Context(), "table load failed", logger.String("catalog", name), logger.Error(err))
	}
	cells := make([][]string, len(page.Rows))
	for i, row := range page.Rows {
		cells[i] = make([]string, len(page.Catalog.Columns))
		for j, col := range page.Catalog.Columns {
			cells[i][j] = page.Cell(row, col)
		}
	}
	writeJSON(w, http.StatusOK, tableResponse{
		Catalog:    page.Catalog.Name,
		Columns:    page.Catalog.Columns,
		Rows:       page.Rows,
		Cells:      cells,
		Pagination: page.Pagination,
		TotalPages: page.Pagination.TotalPages(),
		Search:     page.Search,
		Banner:     page.Banner,
	})
}

type formResponse struct {
	Catalog     string          `json:"catalog"`
	ID          string          `json:"id,omitempty"`
	Token       string          `json:"token"`
	ConfirmEdit bool            `json:"confirmEdit,omitempty"`
	Fields      []fieldResponse `json:"fields"`
	Banner      string          `json:"banner,omitempty"`
}

func newFormResponse(p service.FormPage) formResponse {
	return formResponse{
		Catalog:     p.Catalog.Name,
		ID:          p.ID,
		Token:       p.Token,
		ConfirmEdit: p.Editing() && p.Catalog.ConfirmEdit,
		Fields:      fieldResponses(p.Fields),
		Banner:      p.Banner,
	}
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	page, err := s.deps.Form(r.Context(), chi.URLParam(r, "catalog"), r.URL.Query().Get("id"), ignoredFields(r))
	if err != nil {
		s.fail(w, r, "form", err)
		return
	}
	writeJSON(w, http.StatusOK, newFormResponse(page))
}

type submitRequest struct {
	Token  string         `json:"token"`
	Values map[string]any `json:"values"`
}

type submitResponse struct {
	Outcome string            `json:"outcome"`
	Item    model.Item        `json:"item,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
	Banner  string            `json:"banner,omitempty"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, "")
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, chi.URLParam(r, "id"))
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, id string) {
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, "submit", err)
		return
	}
	if req.Values == nil {
		req.Values = map[string]any{}
	}
	res, err := s.deps.Submit(r.Context(), chi.URLParam(r, "catalog"), service.SubmitInput{
		ID: id, Token: req.Token, Values: req.Values,
	})
	if err != nil {
		s.fail(w, r, "submit", err)
		return
	}
	writeJSON(w, submitStatus(res.Outcome), submitResponse{
		Outcome: res.Outcome,
		Item:    res.Item,
		Errors:  res.Feedback.Fields,
		Banner:  res.Feedback.Banner,
	})
}

func submitStatus(outcome string) int {
	switch outcome {
	case catalog.OutcomeCreated:
		return http.StatusCreated
	case catalog.OutcomeUpdated:
		return http.StatusOK
	case catalog.OutcomeDuplicate, service.OutcomeResubmitted:
		return http.StatusConflict
	case catalog.OutcomeFailed:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Delete(r.Context(), chi.URLParam(r, "catalog"), chi.URLParam(r, "id"))
	switch {
	case err != nil:
		s.fail(w, r, "delete", err)
	case res.OK:
		w.WriteHeader(http.StatusNoContent)
	case res.Banner == catalog.MsgDeleteFailed:
		writeJSON(w, http.StatusBadGateway, res)
	default:
		writeJSON(w, http.StatusConflict, res)
	}
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name, field := chi.URLParam(r, "catalog"), chi.URLParam(r, "field")
	dep, ignore := q.Get("depends"), q.Get("ignore") == "true"
	// wait=false answers 202 instead of joining a fetch already running.
	if q.Get("wait") == "false" {
		if loading, err := s.deps.OptionsLoading(name, field, dep, ignore); err == nil && loading {
			writeJSON(w, http.StatusAccepted, options.Set{Options: []types.Option{}, Loading: true})
			return
		}
	}
	set, err := s.deps.FieldOptions(r.Context(), name, field, dep, ignore)
	if err != nil {
		if status, code := statusFor(err); status >= http.StatusInternalServerError {
			s.log.Warn(r.Context(), "options load failed", logger.Error(err))
			writeJSON(w, status, errorResponse{Code: code, Message: options.MsgLoadFailed})
			return
		}
		s.fail(w, r, "options", err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}
