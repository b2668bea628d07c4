package site

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/hrdesk/internal/app"
	"github.com/okian/hrdesk/internal/domain/catalog"
	"github.com/okian/hrdesk/internal/domain/form"
	"github.com/okian/hrdesk/pkg/logger"
)

var notices = map[string]string{ //nolint:gochecknoglobals // read-only
	"saved":      MsgSaved,
	"deleted":    MsgDeleted,
	"terminated": MsgTerminated,
	"decided":    MsgDecided,
}

func notice(r *http.Request) string {
	return notices[r.URL.Query().Get("notice")]
}

type indexView struct {
	layout
	Groups []catalog.Group
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "index.html", indexView{
		layout: layout{Title: "Consola de Recursos Humanos", Notice: notice(r)},
		Groups: h.deps.Registry().Groups(),
	})
}

type tableView struct {
	layout
	Page       service.TablePage
	DebounceMS int64
}

func (h *Handler) table(w http.ResponseWriter, r *http.Request) {
	h.showTable(w, r, http.StatusOK, service.TableQuery{
		Page:     queryInt(r, "page"),
		Size:     queryInt(r, "page_size"),
		PrevSize: queryInt(r, "prev_page_size"),
		Search:   r.URL.Query().Get("search"),
	}, notice(r), "")
}

// showTable renders a table page; banner overrides the load banner.
func (h *Handler) showTable(w http.ResponseWriter, r *http.Request, status int, q service.TableQuery, note, banner string) {
	name := chi.URLParam(r, "catalog")
	p, err := h.deps.Table(r.Context(), name, q)
	if p.Catalog == nil {
		h.fail(w, r, "table", err)
		return
	}
	if err != nil {
		h.log.Warn(r.Context(), "table load failed", logger.String("catalog", name), logger.Error(err))
	}
	if banner == "" {
		banner = p.Banner
	}
	h.render(w, r, status, "table.html", tableView{
		layout:     layout{Title: p.Catalog.Title, Notice: note, Banner: banner},
		Page:       p,
		DebounceMS: h.debounce.Milliseconds(),
	})
}

type formView struct {
	layout
	Page      service.FormPage
	Action    string
	Multipart bool
	Confirm   bool
}

func (h *Handler) newForm(w http.ResponseWriter, r *http.Request) {
	h.showForm(w, r, "")
}

func (h *Handler) editForm(w http.ResponseWriter, r *http.Request) {
	h.showForm(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.deps.Form(r.Context(), chi.URLParam(r, "catalog"), id, ignoredSet(r.URL.Query()))
	if err != nil {
		h.fail(w, r, "form", err)
		return
	}
	h.renderForm(w, r, http.StatusOK, p)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, p service.FormPage) {
	title := "Nuevo registro: " + p.Catalog.Title
	action := "/catalogs/" + url.PathEscape(p.Catalog.Name) + "/"
	if p.Editing() {
		title = "Editar registro: " + p.Catalog.Title
		action += url.PathEscape(p.ID)
	}
	h.render(w, r, status, "form.html", formView{
		layout:    layout{Title: title, Banner: p.Banner},
		Page:      p,
		Action:    action,
		Multipart: p.Catalog.Schema().HasFile(),
		Confirm:   p.Editing() && p.Catalog.ConfirmEdit,
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, "")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, id string) {
	name := chi.URLParam(r, "catalog")
	def, err := h.deps.Registry().Get(name)
	if err != nil {
		h.fail(w, r, "submit", err)
		return
	}
	values, files, err := h.readForm(r, def.Schema())
	if err != nil {
		h.fail(w, r, "submit", err)
		return
	}
	raw := def.Schema().FromForm(values, files)
	res, err := h.deps.Submit(r.Context(), name, service.SubmitInput{ID: id, Token: values.Get(tokenField), Values: raw})
	if err != nil {
		h.fail(w, r, "submit", err)
		return
	}
	if res.OK() {
		http.Redirect(w, r, "/catalogs/"+url.PathEscape(name)+"/?notice=saved", http.StatusSeeOther)
		return
	}

	// File inputs cannot be refilled.
	for _, f := range def.Schema().Fields() {
		if f.Type == form.KindFile {
			delete(raw, f.Name)
		}
	}
	p, err := h.deps.Refill(r.Context(), name, id, raw, res.Feedback, ignoredSet(values))
	if err != nil {
		h.fail(w, r, "submit", err)
		return
	}
	h.renderForm(w, r, submitStatus(res.Outcome), p)
}

func submitStatus(outcome string) int {
	switch outcome {
	case catalog.OutcomeDuplicate, service.OutcomeResubmitted:
		return http.StatusConflict
	case catalog.OutcomeFailed:
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "catalog")
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, "delete", err)
		return
	}
	res, err := h.deps.Delete(r.Context(), name, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "delete", err)
		return
	}
	page, _ := strconv.Atoi(r.PostForm.Get("page"))
	size, _ := strconv.Atoi(r.PostForm.Get("page_size"))
	search := r.PostForm.Get("search")
	if res.OK {
		q := url.Values{"notice": {"deleted"}, "page": {strconv.Itoa(max(page, 1))}}
		if size > 0 {
			q.Set("page_size", strconv.Itoa(size))
		}
		if search != "" {
			q.Set("search", search)
		}
		http.Redirect(w, r, "/catalogs/"+url.PathEscape(name)+"/?"+q.Encode(), http.StatusSeeOther)
		return
	}
	status := http.StatusConflict
	if res.Banner == catalog.MsgDeleteFailed {
		status = http.StatusBadGateway
	}
	h.showTable(w, r, status, service.TableQuery{Page: page, Size: size, Search: search}, "", res.Banner)
}
