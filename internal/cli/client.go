package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/hrdesk/internal/domain/catalog"
	"github.com/okian/hrdesk/internal/domain/flows"
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/pkg/logger"
)

// ErrBaseURL is returned for a console URL that is not absolute.
var ErrBaseURL = errors.New("invalid console url")

// APIError is an error answer of the console API.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// Client talks to the JSON API of a running console.
type Client struct {
	base string
	http *http.Client
	log  logger.Logger
}

// NewClient creates a client for the console at baseURL.
func NewClient(baseURL string, timeout time.Duration, log logger.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrBaseURL, baseURL)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		base: strings.TrimSuffix(u.String(), "/") + "/api",
		http: &http.Client{Timeout: timeout},
		log:  log,
	}, nil
}

// CatalogSummary is one entry of the catalog index.
type CatalogSummary struct {
	Name       string `json:"name"`
	Title      string `json:"title"`
	Group      string `json:"group"`
	Searchable bool   `json:"searchable"`
}

// CatalogGroup is a heading of the catalog index.
type CatalogGroup struct {
	Name     string           `json:"name"`
	Catalogs []CatalogSummary `json:"catalogs"`
}

// Table is one loaded catalog page.
type Table struct {
	Catalog    string             `json:"catalog"`
	Columns    []catalog.Column   `json:"columns"`
	Cells      [][]string         `json:"cells"`
	Pagination catalog.Pagination `json:"pagination"`
	TotalPages int                `json:"totalPages"`
	Banner     string             `json:"banner"`
}

// SubmitResult is the answer to a create or update.
type SubmitResult struct {
	Status  int               `json:"-"`
	Outcome string            `json:"outcome"`
	Item    model.Item        `json:"item"`
	Errors  map[string]string `json:"errors"`
	Banner  string            `json:"banner"`
}

// OK reports whether the record was written.
func (r SubmitResult) OK() bool {
	return r.Status == http.StatusOK || r.Status == http.StatusCreated
}

// AttendanceSheet is the roster of one session.
type AttendanceSheet struct {
	SessionID string            `json:"session_id"`
	CourseID  string            `json:"course_id"`
	Rows      []flows.RosterRow `json:"rows"`
}

// Catalogs lists the catalogs grouped the way the console index shows them.
func (c *Client) Catalogs(ctx context.Context) ([]CatalogGroup, error) {
	var out []CatalogGroup
	if _, err := c.do(ctx, http.MethodGet, "/catalogs", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// List loads one page of a catalog.
func (c *Client) List(ctx context.Context, name string, page, size int, search string) (Table, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if size > 0 {
		q.Set("page_size", strconv.Itoa(size))
	}
	if search != "" {
		q.Set("search", search)
	}
	var out Table
	_, err := c.do(ctx, http.MethodGet, "/catalogs/"+url.PathEscape(name)+"/items", q, nil, &out)
	return out, err
}

// Submit creates a record when id is empty and updates it otherwise.
func (c *Client) Submit(ctx context.Context, name, id string, values map[string]any) (SubmitResult, error) {
	method, path := http.MethodPost, "/catalogs/"+url.PathEscape(name)+"/items"
	if id != "" {
		method, path = http.MethodPatch, path+"/"+url.PathEscape(id)
	}
	var out SubmitResult
	status, err := c.do(ctx, method, path, nil, map[string]any{"values": values}, &out)
	out.Status = status
	return out, err
}

// Delete removes one record. A refused delete returns the banner as an
// APIError.
func (c *Client) Delete(ctx context.Context, name, id string) error {
	var res catalog.DeleteResult
	status, err := c.do(ctx, http.MethodDelete, "/catalogs/"+url.PathEscape(name)+"/items/"+url.PathEscape(id), nil, nil, &res)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent && !res.OK {
		return &APIError{Status: status, Code: "delete_refused", Message: res.Banner}
	}
	return nil
}

// Attendance loads a session roster. course may be empty.
func (c *Client) Attendance(ctx context.Context, session, course string) (AttendanceSheet, error) {
	q := url.Values{}
	if course != "" {
		q.Set("course", course)
	}
	var out AttendanceSheet
	_, err := c.do(ctx, http.MethodGet, "/sessions/"+url.PathEscape(session)+"/attendance", q, nil, &out)
	return out, err
}

// SaveAttendance writes the roster with edits applied.
func (c *Client) SaveAttendance(ctx context.Context, session, course string, edits map[string]flows.AttendanceEdit) (model.BulkReport, error) {
	var out model.BulkReport
	body := map[string]any{"course": course, "edits": edits}
	_, err := c.do(ctx, http.MethodPut, "/sessions/"+url.PathEscape(session)+"/attendance", nil, body, &out)
	return out, err
}

// EnrollmentRequests lists the pending enrollment requests of a course.
func (c *Client) EnrollmentRequests(ctx context.Context, course string) ([]flows.EnrollmentRequest, error) {
	var out []flows.EnrollmentRequest
	_, err := c.do(ctx, http.MethodGet, "/courses/"+url.PathEscape(course)+"/enrollments", nil, nil, &out)
	return out, err
}

// EnrollmentAnswer is the console's reply to a batch of decisions: either
// per-participant errors, when nothing was sent, or the bulk report.
type EnrollmentAnswer struct {
	Report model.BulkReport  `json:"report"`
	Errors map[string]string `json:"errors,omitempty"`
}

// DecideEnrollments approves or rejects requests keyed by participant id.
func (c *Client) DecideEnrollments(ctx context.Context, course string, decisions map[string]flows.Decision) (EnrollmentAnswer, error) {
	var out EnrollmentAnswer
	body := map[string]any{"decisions": decisions}
	_, err := c.do(ctx, http.MethodPost, "/courses/"+url.PathEscape(course)+"/enrollments", nil, body, &out)
	return out, err
}

// do sends one request. Error answers carrying a code become an APIError;
// any other body is decoded into out, so 207 and field-error answers reach
// the caller together with their status.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (int, error) {
	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	c.log.Debug(ctx, "console request",
		logger.String("method", method),
		logger.String("path", path),
		logger.Int("status", resp.StatusCode),
		logger.Duration("took", time.Since(start)))

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(data, apiErr) == nil && apiErr.Code != "" {
			return resp.StatusCode, apiErr
		}
	}
	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode %s %s answer: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}
