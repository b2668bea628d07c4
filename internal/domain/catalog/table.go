package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/hrdesk/internal/domain/form"
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/options"
	"github.com/okian/hrdesk/pkg/logger"
	"github.com/okian/hrdesk/pkg/metrics"
)

// Store is the slice of the REST client a table needs.
type Store interface {
	List(ctx context.Context, endpoint string, query url.Values) (model.Page, error)
	Get(ctx context.Context, path string) (model.Item, error)
	Create(ctx context.Context, endpoint string, payload map[string]any) (model.Item, error)
	Update(ctx context.Context, path string, payload map[string]any) (model.Item, error)
	Delete(ctx context.Context, path string) error
}

// Table runs the list, submit and delete operations of catalogs.
type Table struct {
	store Store
	log   logger.Logger
}

// NewTable creates a table over store.
func NewTable(store Store, log logger.Logger) *Table {
	if log == nil {
		log = logger.Nop()
	}
	return &Table{store: store, log: log}
}

// Listing is one loaded page.
type Listing struct {
	Rows       []model.Item `json:"rows"`
	Pagination Pagination   `json:"pagination"`
	Search     string       `json:"search,omitempty"`
	// Banner is set when loading failed.
	Banner string `json:"banner,omitempty"`
}

// Load fetches one page. A 404 on a page past the first steps back one page
// and retries, which happens when the last row of the last page was deleted.
// On failure the listing is empty and carries the banner.
func (t *Table) Load(ctx context.Context, def *Definition, p Pagination, search string) (Listing, error) {
	search = strings.TrimSpace(search)
	for {
		q := url.Values{}
		q.Set("page", strconv.Itoa(p.Page))
		q.Set("page_size", strconv.Itoa(p.PageSize))
		if search != "" && def.Searchable {
			q.Set("search", search)
		}
		page, err := t.store.List(ctx, def.Endpoint, q)
		if err == nil {
			p.Total = page.Count
			return Listing{Rows: page.Items, Pagination: p, Search: search}, nil
		}
		if se, ok := AsStatus(err); ok && se.HTTPStatus() == http.StatusNotFound && p.StepBack() {
			t.log.Debug(ctx, "page out of range, stepping back",
				logger.String("catalog", def.Name), logger.Int("page", p.Page))
			continue
		}
		t.log.Error(ctx, "catalog load failed", logger.String("catalog", def.Name), logger.Error(err))
		metrics.RecordErrorByComponent("catalog", "load")
		return Listing{Rows: []model.Item{}, Pagination: p, Search: search, Banner: MsgLoadFailed},
			fmt.Errorf("%w: %s: %w", ErrLoad, def.Name, err)
	}
}

// Get fetches one record for editing.
func (t *Table) Get(ctx context.Context, def *Definition, id string) (model.Item, error) {
	return t.store.Get(ctx, def.ItemPath(id))
}

// Outcome labels recorded for submits and deletes.
const (
	OutcomeCreated   = "created"
	OutcomeUpdated   = "updated"
	OutcomeDeleted   = "deleted"
	OutcomeInvalid   = "invalid"
	OutcomeRejected  = "rejected"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

// SubmitResult is the outcome of one create or update.
type SubmitResult struct {
	Outcome  string
	Item     model.Item
	Feedback form.Feedback
}

// OK reports whether the record was written.
func (r SubmitResult) OK() bool {
	return r.Outcome == OutcomeCreated || r.Outcome == OutcomeUpdated
}

// Submit validates raw values and writes them: POST to the endpoint when id
// is empty, PATCH to endpoint+id+"/" otherwise. An update reads the stored
// record first and lays raw over it, so fields raw leaves out keep their
// values. Invalid values never reach the network. Exactly one write is sent
// per valid submit.
func (t *Table) Submit(ctx context.Context, def *Definition, id string, raw map[string]any) SubmitResult {
	mode := form.Create
	if id != "" {
		mode = form.Update
		stored, err := t.store.Get(ctx, def.ItemPath(id))
		if err != nil {
			t.log.Warn(ctx, "catalog record read before update failed",
				logger.String("catalog", def.Name), logger.String("id", id), logger.Error(err))
			return t.failed(def, err)
		}
		raw = def.Schema().Overlay(def.Schema().Prefill(stored), raw)
	}
	payload, errs := def.Schema().Validate(raw, mode)
	if !errs.Empty() {
		return t.record(def, SubmitResult{Outcome: OutcomeInvalid, Feedback: form.Feedback{Fields: errs}})
	}

	var (
		item model.Item
		err  error
	)
	if mode == form.Create {
		item, err = t.store.Create(ctx, def.Endpoint, payload)
	} else {
		item, err = t.store.Update(ctx, def.ItemPath(id), payload)
	}
	if err == nil {
		outcome := OutcomeCreated
		if mode == form.Update {
			outcome = OutcomeUpdated
		}
		t.log.Info(ctx, "catalog record saved",
			logger.String("catalog", def.Name), logger.String("id", item.ID()), logger.String("outcome", outcome))
		return t.record(def, SubmitResult{Outcome: outcome, Item: item})
	}

	t.log.Warn(ctx, "catalog submit failed", logger.String("catalog", def.Name), logger.Error(err))
	return t.failed(def, err)
}

// failed maps a backend error onto the submit outcome and feedback.
func (t *Table) failed(def *Definition, err error) SubmitResult {
	if se, ok := AsStatus(err); ok {
		fb := form.MapServerErrors(se.HTTPStatus(), se.ResponseBody(), def.Schema())
		outcome := OutcomeRejected
		if fb.Duplicate {
			outcome = OutcomeDuplicate
		} else if se.HTTPStatus() >= http.StatusInternalServerError {
			outcome = OutcomeFailed
		}
		return t.record(def, SubmitResult{Outcome: outcome, Feedback: fb})
	}
	return t.record(def, SubmitResult{Outcome: OutcomeFailed, Feedback: form.TransportFailure()})
}

func (t *Table) record(def *Definition, r SubmitResult) SubmitResult {
	metrics.RecordFormSubmission(def.Name, r.Outcome)
	return r
}

// DeleteResult is the outcome of a delete. On failure the row stays in the
// listing and Banner explains why.
type DeleteResult struct {
	OK     bool   `json:"ok"`
	Banner string `json:"banner,omitempty"`
}

// Delete removes one record.
func (t *Table) Delete(ctx context.Context, def *Definition, id string) DeleteResult {
	err := t.store.Delete(ctx, def.ItemPath(id))
	if err == nil {
		metrics.RecordCatalogDelete(def.Name, OutcomeDeleted)
		t.log.Info(ctx, "catalog record deleted", logger.String("catalog", def.Name), logger.String("id", id))
		return DeleteResult{OK: true}
	}
	t.log.Warn(ctx, "catalog delete failed",
		logger.String("catalog", def.Name), logger.String("id", id), logger.Error(err))

	res := DeleteResult{Banner: MsgDeleteFailed}
	if se, ok := AsStatus(err); ok {
		switch status := se.HTTPStatus(); {
		case status == http.StatusBadRequest:
			res.Banner = MsgDeleteDependencies
		case status > http.StatusBadRequest && status < http.StatusInternalServerError:
			if msg := detailMessage(se.ResponseBody()); msg != "" {
				res.Banner = msg
			}
		}
	}
	outcome := OutcomeFailed
	if res.Banner != MsgDeleteFailed {
		outcome = OutcomeRejected
	}
	metrics.RecordCatalogDelete(def.Name, outcome)
	return res
}

// detailMessage extracts detail or non_field_errors from an error body.
func detailMessage(body []byte) string {
	var obj map[string]any
	if json.Unmarshal(body, &obj) != nil {
		return ""
	}
	var lines []string
	for _, k := range []string{form.KeyDetail, form.KeyNonField, form.KeyError} {
		switch v := obj[k].(type) {
		case string:
			lines = append(lines, v)
		case []any:
			for _, e := range v {
				if s, ok := e.(string); ok {
					lines = append(lines, s)
				}
			}
		}
	}
	return strings.Join(lines, "\n")
}

// Cell renders the value of col in row. Select columns show the option
// label from sets, related objects their name, booleans Sí/No.
func Cell(def *Definition, row model.Item, col Column, sets map[string]options.Set) string {
	v := row[col.Key]
	if f, ok := def.Schema().Field(col.Key); ok && f.IsChoice() {
		if set, ok := sets[col.Key]; ok {
			switch vv := v.(type) {
			case []any:
				ids := make([]string, 0, len(vv))
				for _, e := range vv {
					ids = append(ids, relatedID(f, e))
				}
				return strings.Join(set.Labels(ids...), ", ")
			default:
				if id := relatedID(f, v); id != "" {
					return set.Label(id)
				}
				return ""
			}
		}
	}
	switch vv := v.(type) {
	case nil:
		return ""
	case bool:
		if vv {
			return "Sí"
		}
		return "No"
	case map[string]any:
		if name, ok := vv["name"]; ok {
			return model.FormatID(name)
		}
		return model.FormatID(vv["id"])
	case []any:
		parts := make([]string, 0, len(vv))
		for _, e := range vv {
			parts = append(parts, model.FormatID(e))
		}
		return strings.Join(parts, ", ")
	default:
		return model.FormatID(vv)
	}
}

func relatedID(f form.Descriptor, v any) string {
	if obj, ok := v.(map[string]any); ok {
		return model.FormatID(obj[f.ValueKey()])
	}
	return model.FormatID(v)
}
