package service_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/okian/hrdesk/internal/domain/model"
)

type statusErr struct {
	status int
	body   string
}

func (e *statusErr) Error() string        { return fmt.Sprintf("backend returned %d", e.status) }
func (e *statusErr) HTTPStatus() int      { return e.status }
func (e *statusErr) ResponseBody() []byte { return []byte(e.body) }

var errDown = errors.New("connection refused")

type call struct {
	Method  string
	Path    string
	Payload map[string]any
}

// fakeBackend serves collections keyed by endpoint and records every call.
type fakeBackend struct {
	mu     sync.Mutex
	lists  map[string][]model.Item
	items  map[string]model.Item
	fail   map[string]error
	calls  []call
	nextID int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		lists:  map[string][]model.Item{},
		items:  map[string]model.Item{},
		fail:   map[string]error{},
		nextID: 100,
	}
}

func (b *fakeBackend) record(method, path string, payload map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call{Method: method, Path: path, Payload: payload})
	return b.fail[method+" "+path]
}

func (b *fakeBackend) count(method, prefix string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c.Method == method && strings.HasPrefix(c.Path, prefix) {
			n++
		}
	}
	return n
}

func (b *fakeBackend) last(method, path string) (call, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.calls) - 1; i >= 0; i-- {
		if b.calls[i].Method == method && b.calls[i].Path == path {
			return b.calls[i], true
		}
	}
	return call{}, false
}

func (b *fakeBackend) List(_ context.Context, endpoint string, q url.Values) (model.Page, error) {
	if err := b.record("GET", endpoint, nil); err != nil {
		return model.Page{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []model.Item
	for _, it := range b.lists[endpoint] {
		match := true
		for k, vs := range q {
			if k == "page" || k == "page_size" || k == "search" {
				continue
			}
			if model.FormatID(it[k]) != vs[0] {
				match = false
			}
		}
		if match {
			out = append(out, it)
		}
	}
	if out == nil {
		out = []model.Item{}
	}
	return model.Page{Items: out, Count: len(out), Page: 1}, nil
}

func (b *fakeBackend) Get(_ context.Context, path string) (model.Item, error) {
	if err := b.record("GET", path, nil); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	it, ok := b.items[path]
	if !ok {
		return nil, &statusErr{status: 404, body: `{"detail": "No encontrado."}`}
	}
	return it, nil
}

func (b *fakeBackend) Create(ctx context.Context, endpoint string, payload map[string]any) (model.Item, error) {
	return b.Post(ctx, endpoint, payload)
}

func (b *fakeBackend) Post(_ context.Context, path string, payload map[string]any) (model.Item, error) {
	if err := b.record("POST", path, payload); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	it := model.Item{"id": float64(b.nextID)}
	for k, v := range payload {
		it[k] = v
	}
	b.lists[path] = append(b.lists[path], it)
	return it, nil
}

func (b *fakeBackend) Update(_ context.Context, path string, payload map[string]any) (model.Item, error) {
	if err := b.record("PATCH", path, payload); err != nil {
		return nil, err
	}
	return model.Item(payload), nil
}

func (b *fakeBackend) Delete(_ context.Context, path string) error {
	return b.record("DELETE", path, nil)
}

func (b *fakeBackend) Execute(ctx context.Context, m model.Mutation) model.MutationResult {
	res := model.MutationResult{Key: m.Key, Status: 200}
	var err error
	switch m.Method {
	case "POST":
		res.Body, err = b.Post(ctx, m.Path, m.Payload)
	default:
		res.Body, err = b.Update(ctx, m.Path, m.Payload)
	}
	if err != nil {
		res.Err = err
		res.Status = 0
		var se *statusErr
		if errors.As(err, &se) {
			res.Status = se.status
		}
	}
	return res
}
