package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/hrdesk/internal/domain/catalog"
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/types"
	"github.com/okian/hrdesk/pkg/logger"
)

func newStore(t *testing.T, h http.HandlerFunc, opts ...Option) *RESTStore {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	s, err := NewRESTStore(srv.URL+"/", append([]Option{WithLogger(logger.Nop())}, opts...)...)
	require.NoError(t, err)
	return s
}

func TestNewRESTStoreRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8000", "://x"} {
		_, err := NewRESTStore(raw)
		assert.ErrorIs(t, err, ErrBaseURL, raw)
	}
}

func TestListPaginatedEnvelope(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/core/genders/", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "ana", r.URL.Query().Get("search"))
		_, _ = io.WriteString(w, `{"count": 12, "results": [{"id": 11, "name": "A"}]}`)
	})

	page, err := s.List(context.Background(), "/api/core/genders/", url.Values{
		"page": {"2"}, "page_size": {"10"}, "search": {"ana"},
	})
	require.NoError(t, err)
	assert.Equal(t, 12, page.Count)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 10, page.PageSize)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "11", page.Items[0].ID())
}

func TestListBareArray(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"id": 1}, {"id": 2}]`)
	})

	page, err := s.List(context.Background(), "/api/core/countries/", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Count)
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Items, 2)
}

func TestListKeepsEndpointQuery(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "EST", r.URL.Query().Get("role"))
		assert.Equal(t, "3", r.URL.Query().Get("course"))
		_, _ = io.WriteString(w, `[]`)
	})

	page, err := s.List(context.Background(), "/api/training/participants/?role=EST", url.Values{"course": {"3"}})
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
}

func TestCreateSendsJSONWithToken(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var got map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "Acme", got["name"])
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id": 9, "name": "Acme"}`)
	}, WithToken("secret"))

	it, err := s.Create(context.Background(), "/api/core/companies/", map[string]any{"name": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "9", it.ID())
}

func TestUpdateSendsMultipartWhenFilePresent(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Go", r.FormValue("name"))
		assert.Equal(t, []string{"1", "2"}, r.MultipartForm.Value["tags"])
		assert.Equal(t, "true", r.FormValue("active"))
		_, hasNull := r.MultipartForm.Value["category"]
		assert.False(t, hasNull)
		f, hdr, err := r.FormFile("syllabus")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "temario.pdf", hdr.Filename)
		assert.Equal(t, "%PDF", string(data))
		_, _ = io.WriteString(w, `{"id": 4}`)
	})

	_, err := s.Update(context.Background(), "/api/training/courses/4/", map[string]any{
		"name":     "Go",
		"tags":     []any{int64(1), int64(2)},
		"active":   true,
		"category": nil,
		"syllabus": &types.File{Filename: "temario.pdf", ContentType: "application/pdf", Data: []byte("%PDF")},
	})
	require.NoError(t, err)
}

func TestAPIErrorCarriesBody(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"detail": "dependencies"}`)
	})

	err := s.Delete(context.Background(), "/api/core/genders/1/")
	require.Error(t, err)
	se, ok := catalog.AsStatus(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, se.HTTPStatus())
	assert.JSONEq(t, `{"detail": "dependencies"}`, string(se.ResponseBody()))
	assert.False(t, IsNotFound(err))
}

func TestNotFound(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	})
	_, err := s.Get(context.Background(), "/api/core/genders/99/")
	assert.True(t, IsNotFound(err))
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()
	s, err := NewRESTStore(base, WithTimeout(time.Second))
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "/api/core/genders/")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, ok := catalog.AsStatus(err)
	assert.False(t, ok)
}

func TestDecodeFailure(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<html>`)
	})
	_, err := s.List(context.Background(), "/api/core/genders/", nil)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestExecuteReportsStatus(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/2/") {
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"detail": "locked"}`)
			return
		}
		_, _ = io.WriteString(w, `{"id": 1, "status": "AUS"}`)
	})

	ok := s.Execute(context.Background(), model.Mutation{Key: "a", Method: http.MethodPatch, Path: "/api/training/attendance/1/", Payload: map[string]any{"status": "AUS"}})
	require.NoError(t, ok.Err)
	assert.Equal(t, "a", ok.Key)
	assert.Equal(t, http.StatusOK, ok.Status)
	assert.Equal(t, "AUS", ok.Body["status"])

	bad := s.Execute(context.Background(), model.Mutation{Key: "b", Method: http.MethodPatch, Path: "/api/training/attendance/2/", Payload: map[string]any{}})
	assert.Equal(t, http.StatusConflict, bad.Status)
	var ae *APIError
	assert.True(t, errors.As(bad.Err, &ae))
}

func TestDeleteNoContent(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	})
	assert.NoError(t, s.Delete(context.Background(), "/api/core/genders/1/"))
}
