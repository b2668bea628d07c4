// Package options resolves the candidate values of select fields from the
// backend, filtered by the value of the field they depend on.
package options

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/okian/hrdesk/internal/domain/form"
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/types"
	"github.com/okian/hrdesk/pkg/logger"
	"github.com/okian/hrdesk/pkg/metrics"
)

// ErrFetch wraps failures of the option source.
var ErrFetch = errors.New("fetch options")

// Source lists a backend collection.
type Source interface {
	List(ctx context.Context, endpoint string, query url.Values) (model.Page, error)
}

// Set is the resolved option list of one field.
type Set struct {
	Options []types.Option `json:"options"`
	// Disabled is true when the dependency has no value and nothing was
	// fetched.
	Disabled bool `json:"disabled"`
	// Loading is set on the placeholder answered while a fetch is in flight.
	Loading bool `json:"loading,omitempty"`
}

// Label returns the label of value, or value itself when it is unknown.
func (s Set) Label(value string) string {
	for _, o := range s.Options {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}

// Labels returns the labels of the selected values in order.
func (s Set) Labels(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		out = append(out, s.Label(v))
	}
	return out
}

type entry struct {
	items   []model.Item
	fetched time.Time
}

// Resolver fetches and caches option sets per (endpoint, dependency value).
type Resolver struct {
	src         Source
	pageSize    int
	ttl         time.Duration
	concurrency int
	now         func() time.Time
	log         logger.Logger

	mu       sync.Mutex
	cache    map[string]entry
	inflight map[string]int
	group    singleflight.Group
}

// NewResolver creates a resolver over src.
func NewResolver(src Source, opts ...Option) *Resolver {
	r := &Resolver{
		src:         src,
		pageSize:    defaultPageSize,
		ttl:         defaultTTL,
		concurrency: defaultConcurrency,
		now:         time.Now,
		log:         logger.Nop(),
		cache:       make(map[string]entry),
		inflight:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// request is what one resolve sends upstream.
type request struct {
	key   string
	query url.Values
}

func (r *Resolver) request(d form.Descriptor, depValue string, ignoreDependency bool) request {
	q := url.Values{}
	q.Set("page_size", strconv.Itoa(r.pageSize))
	dep := ""
	if d.DependsOn != "" && !ignoreDependency {
		dep = depValue
		q.Set(d.FilterKey(), depValue)
	}
	return request{key: d.OptionsEndpoint + "\x00" + d.FilterKey() + "=" + dep, query: q}
}

// Resolve returns the options of d. A field whose dependency has no value
// yields an empty disabled set without a request unless ignoreDependency is
// set. Static choices never hit the backend.
func (r *Resolver) Resolve(ctx context.Context, d form.Descriptor, depValue string, ignoreDependency bool) (Set, error) {
	if d.HasStaticChoices() {
		return Set{Options: d.Choices}, nil
	}
	if d.OptionsEndpoint == "" {
		return Set{}, fmt.Errorf("%w: field %q has no options endpoint", ErrFetch, d.Name)
	}
	if d.DependsOn != "" && depValue == "" && !ignoreDependency {
		metrics.RecordOptionFetch("skipped")
		return Set{Options: []types.Option{}, Disabled: true}, nil
	}

	req := r.request(d, depValue, ignoreDependency)
	if items, ok := r.cached(req.key); ok {
		metrics.RecordOptionFetch("hit")
		return toSet(d, items), nil
	}
	metrics.RecordOptionFetch("miss")

	ch := r.group.DoChan(req.key, func() (any, error) {
		r.setLoading(req.key, 1)
		defer r.setLoading(req.key, -1)
		// Shared by every waiter, so it must outlive any single caller.
		page, err := r.src.List(context.WithoutCancel(ctx), d.OptionsEndpoint, req.query)
		if err != nil {
			return nil, err
		}
		r.store(req.key, page.Items)
		return page.Items, nil
	})

	select {
	case <-ctx.Done():
		return Set{}, fmt.Errorf("%w: %s: %w", ErrFetch, d.OptionsEndpoint, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			metrics.RecordOptionFetch("error")
			r.log.Warn(ctx, "option fetch failed",
				logger.String("field", d.Name),
				logger.String("endpoint", d.OptionsEndpoint),
				logger.Error(res.Err))
			return Set{}, fmt.Errorf("%w: %s: %w", ErrFetch, d.OptionsEndpoint, res.Err)
		}
		items, _ := res.Val.([]model.Item)
		return toSet(d, items), nil
	}
}

// Loading reports whether a fetch for this field and dependency value is in
// flight.
func (r *Resolver) Loading(d form.Descriptor, depValue string, ignoreDependency bool) bool {
	key := r.request(d, depValue, ignoreDependency).key
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inflight[key] > 0
}

// Invalidate drops every cached set of d.
func (r *Resolver) Invalidate(d form.Descriptor) {
	r.InvalidateEndpoint(d.OptionsEndpoint)
}

// InvalidateEndpoint drops every cached set fetched from endpoint. Used after
// writes to a catalog that other forms pick from.
func (r *Resolver) InvalidateEndpoint(endpoint string) {
	prefix := endpoint + "\x00"
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.cache {
		if strings.HasPrefix(k, prefix) {
			delete(r.cache, k)
		}
	}
}

func (r *Resolver) cached(key string) ([]model.Item, bool) {
	if r.ttl == 0 {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.cache[key]
	if !ok {
		return nil, false
	}
	if r.now().Sub(e.fetched) > r.ttl {
		delete(r.cache, key)
		return nil, false
	}
	return e.items, true
}

func (r *Resolver) store(key string, items []model.Item) {
	if r.ttl == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[key] = entry{items: items, fetched: r.now()}
}

func (r *Resolver) setLoading(key string, delta int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inflight[key] += delta
	if r.inflight[key] <= 0 {
		delete(r.inflight, key)
	}
}

func toSet(d form.Descriptor, items []model.Item) Set {
	labelKey, valueKey := d.LabelKey(), d.ValueKey()
	out := make([]types.Option, 0, len(items))
	for _, it := range items {
		v := model.FormatID(it[valueKey])
		if v == "" {
			continue
		}
		label := model.FormatID(it[labelKey])
		if label == "" {
			label = v
		}
		out = append(out, types.Option{Value: v, Label: label})
	}
	return Set{Options: out}
}

// MsgLoadFailed replaces the options of a field whose source failed.
const MsgLoadFailed = "Error al cargar opciones."

// Resolved is the outcome for one field of ResolveAll.
type Resolved struct {
	Set
	// Err is the message shown in place of the options when the source
	// failed.
	Err string `json:"error,omitempty"`
}

// ResolveAll fetches every choice field of schema concurrently. ignored
// holds the fields whose dependency filter is switched off. A failing source
// degrades to an empty set with an error message on that field.
func (r *Resolver) ResolveAll(ctx context.Context, schema *form.Schema, values map[string]any, ignored map[string]bool) map[string]Resolved {
	out := make(map[string]Resolved)
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, d := range schema.Fields() {
		if !d.IsChoice() {
			continue
		}
		g.Go(func() error {
			set, err := r.Resolve(gctx, d, schema.DependencyValue(d, values), ignored[d.Name])
			res := Resolved{Set: set}
			if err != nil {
				res = Resolved{Set: Set{Options: []types.Option{}}, Err: MsgLoadFailed}
			}
			mu.Lock()
			out[d.Name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // goroutines never fail; errors are folded into Resolved.Err
	return out
}
