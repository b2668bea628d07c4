package service

import (
	"context"
	"fmt"

	"github.com/okian/hrdesk/internal/domain/catalog"
	"github.com/okian/hrdesk/internal/domain/dedupe"
	"github.com/okian/hrdesk/internal/domain/form"
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/options"
	"github.com/okian/hrdesk/pkg/logger"
	"github.com/okian/hrdesk/pkg/metrics"
)

// OutcomeResubmitted marks a submit whose form token was already used.
const OutcomeResubmitted = "resubmitted"

// TablePage is a loaded catalog page plus the option sets its select
// columns are labelled with.
type TablePage struct {
	Catalog *catalog.Definition
	catalog.Listing
	Sets map[string]options.Set
}

// Cell renders one cell of the page.
func (p TablePage) Cell(row model.Item, col catalog.Column) string {
	return catalog.Cell(p.Catalog, row, col, p.Sets)
}

// TableQuery is the paging state a table request carries. PrevSize is the
// page size the caller was showing; zero when unknown.
type TableQuery struct {
	Page     int
	Size     int
	PrevSize int
	Search   string
}

// Pagination applies q over the default size. A size different from the
// one shown before returns to the first page.
func (q TableQuery) Pagination(defaultSize int) catalog.Pagination {
	shown := q.PrevSize
	if shown <= 0 {
		shown = q.Size
	}
	p := catalog.NewPagination(q.Page, shown, defaultSize)
	if q.Size > 0 && q.Size != p.PageSize {
		p.SetPageSize(q.Size)
	}
	return p
}

// Table loads one page of a catalog. On a load failure the page is still
// returned, empty and with its banner set, together with the error.
func (s *Service) Table(ctx context.Context, name string, q TableQuery) (TablePage, error) {
	def, err := s.registry.Get(name)
	if err != nil {
		return TablePage{}, err
	}
	p := q.Pagination(s.defaultPageSize)
	listing, loadErr := s.table.Load(ctx, def, p, q.Search)
	out := TablePage{Catalog: def, Listing: listing, Sets: map[string]options.Set{}}
	if loadErr != nil || len(listing.Rows) == 0 {
		return out, loadErr
	}
	for _, col := range def.Columns {
		f, ok := def.Schema().Field(col.Key)
		if !ok || !f.IsChoice() {
			continue
		}
		// Cells show every label, so the dependency filter is off.
		set, err := s.resolver.Resolve(ctx, f, "", true)
		if err != nil {
			continue
		}
		out.Sets[col.Key] = set
	}
	return out, nil
}

// FormPage is the render state of a create or edit form.
type FormPage struct {
	Catalog *catalog.Definition
	// ID is empty for a new record.
	ID     string
	Token  string
	Fields []form.FieldView
	Banner string
	// Ignored lists fields whose dependency filter is switched off.
	Ignored map[string]bool
}

// Editing reports whether the form updates an existing record.
func (p FormPage) Editing() bool { return p.ID != "" }

// Form builds a blank form, or one prefilled from record id.
func (s *Service) Form(ctx context.Context, name, id string, ignored map[string]bool) (FormPage, error) {
	def, err := s.registry.Get(name)
	if err != nil {
		return FormPage{}, err
	}
	var item model.Item
	if id != "" {
		item, err = s.table.Get(ctx, def, id)
		if err != nil {
			s.logger.Warn(ctx, "record load failed",
				logger.String("catalog", name), logger.String("id", id), logger.Error(err))
			return FormPage{}, fmt.Errorf("load %s/%s: %w", name, id, err)
		}
	}
	return s.render(ctx, def, id, def.Schema().Prefill(item), form.Feedback{}, ignored), nil
}

// Refill re-renders a submitted form with its feedback.
func (s *Service) Refill(ctx context.Context, name, id string, values map[string]any, fb form.Feedback, ignored map[string]bool) (FormPage, error) {
	def, err := s.registry.Get(name)
	if err != nil {
		return FormPage{}, err
	}
	return s.render(ctx, def, id, values, fb, ignored), nil
}

func (s *Service) render(ctx context.Context, def *catalog.Definition, id string, values map[string]any, fb form.Feedback, ignored map[string]bool) FormPage {
	schema := def.Schema()
	if ignored == nil {
		ignored = map[string]bool{}
	}
	views := schema.Views(values, fb.Fields)
	resolved := s.resolver.ResolveAll(ctx, schema, values, ignored)
	for i := range views {
		r, ok := resolved[views[i].Name]
		if !ok {
			continue
		}
		views[i].Options = r.Options
		views[i].Disabled = r.Disabled
		views[i].OptionsError = r.Err
	}
	return FormPage{
		Catalog: def,
		ID:      id,
		Token:   dedupe.NewToken(),
		Fields:  views,
		Banner:  fb.Banner,
		Ignored: ignored,
	}
}

// SubmitInput is one create (ID empty) or update.
type SubmitInput struct {
	ID     string
	Token  string
	Values map[string]any
}

// Submit writes a catalog record. A token already used by an earlier
// successful or in-flight submit is refused without a request. Writes
// invalidate cached option sets of the catalog's endpoint.
func (s *Service) Submit(ctx context.Context, name string, in SubmitInput) (catalog.SubmitResult, error) {
	def, err := s.registry.Get(name)
	if err != nil {
		return catalog.SubmitResult{}, err
	}
	if !s.guard.Acquire(ctx, in.Token) {
		metrics.RecordFormSubmission(def.Name, OutcomeResubmitted)
		s.logger.Info(ctx, "repeated submit ignored", logger.String("catalog", name))
		return catalog.SubmitResult{
			Outcome:  OutcomeResubmitted,
			Feedback: form.Feedback{Banner: MsgAlreadySubmitted},
		}, nil
	}
	res := s.table.Submit(ctx, def, in.ID, in.Values)
	if !res.OK() {
		s.guard.Release(ctx, in.Token)
		return res, nil
	}
	s.resolver.InvalidateEndpoint(def.Endpoint)
	return res, nil
}

// Delete removes a catalog record.
func (s *Service) Delete(ctx context.Context, name, id string) (catalog.DeleteResult, error) {
	def, err := s.registry.Get(name)
	if err != nil {
		return catalog.DeleteResult{}, err
	}
	res := s.table.Delete(ctx, def, id)
	if res.OK {
		s.resolver.InvalidateEndpoint(def.Endpoint)
	}
	return res, nil
}

// FieldOptions resolves the options of one field of a catalog form for the
// given dependency value.
func (s *Service) FieldOptions(ctx context.Context, name, field, depValue string, ignoreDependency bool) (options.Set, error) {
	def, err := s.registry.Get(name)
	if err != nil {
		return options.Set{}, err
	}
	f, ok := def.Schema().Field(field)
	if !ok || !f.IsChoice() {
		return options.Set{}, fmt.Errorf("%w: %s.%s", ErrUnknownField, name, field)
	}
	return s.resolver.Resolve(ctx, f, depValue, ignoreDependency)
}

// OptionsLoading reports whether the options FieldOptions would return are
// being fetched right now.
func (s *Service) OptionsLoading(name, field, depValue string, ignoreDependency bool) (bool, error) {
	def, err := s.registry.Get(name)
	if err != nil {
		return false, err
	}
	f, ok := def.Schema().Field(field)
	if !ok || !f.IsChoice() {
		return false, fmt.Errorf("%w: %s.%s", ErrUnknownField, name, field)
	}
	return s.resolver.Loading(f, depValue, ignoreDependency), nil
}
