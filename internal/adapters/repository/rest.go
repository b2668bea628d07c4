// Package repository talks to the HR backend REST API.
package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/types"
	"github.com/okian/hrdesk/pkg/logger"
	"github.com/okian/hrdesk/pkg/metrics"
)

const (
	defaultTimeout = 10 * time.Second
	// maxBody caps how much of a response is read.
	maxBody = 8 << 20
)

// RESTStore is the backend client used by catalogs, option lookups and
// flows.
type RESTStore struct {
	base    *url.URL
	client  *http.Client
	token   string
	timeout time.Duration
	log     logger.Logger
}

// NewRESTStore creates a client for the backend rooted at baseURL.
func NewRESTStore(baseURL string, opts ...Option) (*RESTStore, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrBaseURL, baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	s := &RESTStore{
		base:    u,
		client:  &http.Client{},
		timeout: defaultTimeout,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// List fetches one page of a collection. Both a bare JSON array and the
// paginated {"results", "count"} envelope are accepted.
func (s *RESTStore) List(ctx context.Context, endpoint string, query url.Values) (model.Page, error) {
	body, _, err := s.do(ctx, http.MethodGet, endpoint, query, nil)
	if err != nil {
		return model.Page{}, err
	}
	page := model.Page{Page: 1}
	if p, convErr := strconv.Atoi(query.Get("page")); convErr == nil && p > 0 {
		page.Page = p
	}
	trimmed := bytes.TrimSpace(body)
	switch {
	case len(trimmed) > 0 && trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &page.Items); err != nil {
			return model.Page{}, fmt.Errorf("%w: %s: %w", ErrDecode, endpoint, err)
		}
		page.Count = len(page.Items)
	default:
		var env struct {
			Results []model.Item `json:"results"`
			Count   *int         `json:"count"`
		}
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return model.Page{}, fmt.Errorf("%w: %s: %w", ErrDecode, endpoint, err)
		}
		page.Items = env.Results
		page.Count = len(env.Results)
		if env.Count != nil {
			page.Count = *env.Count
		}
	}
	if page.Items == nil {
		page.Items = []model.Item{}
	}
	page.PageSize = len(page.Items)
	if ps, convErr := strconv.Atoi(query.Get("page_size")); convErr == nil && ps > 0 {
		page.PageSize = ps
	}
	return page, nil
}

// Get fetches one record.
func (s *RESTStore) Get(ctx context.Context, path string) (model.Item, error) {
	body, _, err := s.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeItem(path, body)
}

// Create posts a new record to a collection.
func (s *RESTStore) Create(ctx context.Context, endpoint string, payload map[string]any) (model.Item, error) {
	return s.Post(ctx, endpoint, payload)
}

// Update patches a record.
func (s *RESTStore) Update(ctx context.Context, path string, payload map[string]any) (model.Item, error) {
	body, _, err := s.do(ctx, http.MethodPatch, path, nil, payload)
	if err != nil {
		return nil, err
	}
	return decodeItem(path, body)
}

// Post calls a collection or an action route.
func (s *RESTStore) Post(ctx context.Context, path string, payload map[string]any) (model.Item, error) {
	body, _, err := s.do(ctx, http.MethodPost, path, nil, payload)
	if err != nil {
		return nil, err
	}
	return decodeItem(path, body)
}

// Delete removes a record.
func (s *RESTStore) Delete(ctx context.Context, path string) error {
	_, _, err := s.do(ctx, http.MethodDelete, path, nil, nil)
	return err
}

// Execute runs one queued mutation.
func (s *RESTStore) Execute(ctx context.Context, m model.Mutation) model.MutationResult {
	res := model.MutationResult{Key: m.Key}
	body, status, err := s.do(ctx, m.Method, m.Path, nil, m.Payload)
	res.Status = status
	if err != nil {
		res.Err = err
		return res
	}
	res.Body, res.Err = decodeItem(m.Path, body)
	return res
}

func decodeItem(path string, body []byte) (model.Item, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return model.Item{}, nil
	}
	var it model.Item
	if err := json.Unmarshal(body, &it); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	return it, nil
}

func (s *RESTStore) resolve(path string, query url.Values) string {
	u := *s.base
	rel, err := url.Parse(path)
	if err == nil {
		u.Path = s.base.Path + "/" + strings.TrimPrefix(rel.Path, "/")
		q := rel.Query()
		for k, vs := range query {
			q[k] = vs
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (s *RESTStore) do(ctx context.Context, method, path string, query url.Values, payload map[string]any) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, contentType, err := encode(payload)
	if err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, method, s.resolve(path, query), body)
	if err != nil {
		return nil, 0, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	if id := logger.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := float64(time.Since(start).Nanoseconds()) / 1e6
	if err != nil {
		metrics.RecordUpstreamRequest(method, "error", latency)
		metrics.RecordErrorByComponent("upstream", "transport")
		s.log.Warn(ctx, "backend request failed",
			logger.String("method", method),
			logger.String("path", path),
			logger.Error(err))
		return nil, 0, fmt.Errorf("%w: %s %s: %w", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()
	metrics.RecordUpstreamRequest(method, metrics.StatusClass(resp.StatusCode), latency)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read %s %s: %w", ErrUnavailable, method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.log.Debug(ctx, "backend rejected request",
			logger.String("method", method),
			logger.String("path", path),
			logger.Int("status", resp.StatusCode))
		return data, resp.StatusCode, &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: data}
	}
	return data, resp.StatusCode, nil
}

// encode picks JSON, or multipart form data when the payload carries a file.
func encode(payload map[string]any) (io.Reader, string, error) {
	if payload == nil {
		return nil, "", nil
	}
	if !hasFile(payload) {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, "", fmt.Errorf("encode payload: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range payload {
		if err := writePart(mw, k, v); err != nil {
			return nil, "", fmt.Errorf("encode field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("encode payload: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

func hasFile(payload map[string]any) bool {
	for _, v := range payload {
		if _, ok := v.(*types.File); ok {
			return true
		}
	}
	return false
}

func writePart(mw *multipart.Writer, key string, v any) error {
	switch val := v.(type) {
	case nil:
		// Multipart has no null; the field is left out.
		return nil
	case *types.File:
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, key, val.Filename))
		ct := val.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		w, err := mw.CreatePart(h)
		if err != nil {
			return err
		}
		_, err = w.Write(val.Data)
		return err
	case []any:
		for _, e := range val {
			if err := writePart(mw, key, e); err != nil {
				return err
			}
		}
		return nil
	case string:
		return mw.WriteField(key, val)
	case bool:
		return mw.WriteField(key, strconv.FormatBool(val))
	case int64:
		return mw.WriteField(key, strconv.FormatInt(val, 10))
	case float64:
		return mw.WriteField(key, strconv.FormatFloat(val, 'f', -1, 64))
	default:
		return mw.WriteField(key, fmt.Sprint(val))
	}
}

