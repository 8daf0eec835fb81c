package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"audioswarm/searchservice/internal/domain"
	"audioswarm/searchservice/internal/search"
)

type stubSearchService struct {
	lastRequest domain.SearchRequest
	response    domain.SearchResponse
	err         error
}

func (s *stubSearchService) Search(ctx context.Context, request domain.SearchRequest) (domain.SearchResponse, error) {
	s.lastRequest = request
	if s.err != nil {
		return domain.SearchResponse{}, s.err
	}
	return s.response, nil
}

func (s *stubSearchService) Sources() []domain.SourceInfo {
	return []domain.SourceInfo{{Name: "jsonbay", Label: "JSONBay", Enabled: true}}
}

func (s *stubSearchService) SourceDiagnostics() []domain.SourceDiagnostics {
	return []domain.SourceDiagnostics{{Name: "jsonbay", Enabled: true}}
}

type stubToggler struct {
	name    string
	enabled bool
	err     error
}

func (s *stubToggler) SetEnabled(name string, enabled bool) error {
	s.name = name
	s.enabled = enabled
	return s.err
}

func newTestHandler(svc SearchService, toggler SourceToggler) http.Handler {
	opts := []ServerOption{}
	if toggler != nil {
		opts = append(opts, WithSourceToggler(toggler))
	}
	return NewServer(svc, opts...).Handler()
}

func TestHandleSearchOK(t *testing.T) {
	svc := &stubSearchService{
		response: domain.SearchResponse{
			Query:      "the wall",
			Items:      []domain.RankedRecord{{Title: "The Wall FLAC", Score: 90}},
			TotalItems: 1,
			Page:       1,
		},
	}
	handler := newTestHandler(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search?q=the+wall&page=2&nocache=1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	if svc.lastRequest.Query != "the wall" || svc.lastRequest.Page != 2 || !svc.lastRequest.NoCache {
		t.Fatalf("request not forwarded: %#v", svc.lastRequest)
	}

	var payload domain.SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload.TotalItems != 1 || len(payload.Items) != 1 {
		t.Fatalf("unexpected payload: %#v", payload)
	}
}

func TestHandleSearchStructuredFields(t *testing.T) {
	svc := &stubSearchService{}
	handler := newTestHandler(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search?title=The+Wall&artist=Pink+Floyd&year=1979", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	if svc.lastRequest.Title != "The Wall" || svc.lastRequest.Artist != "Pink Floyd" || svc.lastRequest.Year != 1979 {
		t.Fatalf("structured fields not forwarded: %#v", svc.lastRequest)
	}
}

func TestHandleSearchValidation(t *testing.T) {
	handler := newTestHandler(&stubSearchService{}, nil)

	cases := []struct {
		name string
		url  string
	}{
		{"missing query", "/search"},
		{"bad page", "/search?q=x&page=0"},
		{"bad year", "/search?q=x&year=123"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.url, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", tc.name, rec.Code)
		}
	}
}

func TestHandleSearchErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{search.ErrInvalidQuery, http.StatusBadRequest},
		{search.ErrNoSources, http.StatusServiceUnavailable},
		{errors.New("backend exploded"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		handler := newTestHandler(&stubSearchService{err: tc.err}, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search?q=x", nil))
		if rec.Code != tc.want {
			t.Errorf("error %v: status %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}

func TestHandleSearchMethodNotAllowed(t *testing.T) {
	handler := newTestHandler(&stubSearchService{}, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/search?q=x", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status %d, want 405", rec.Code)
	}
}

func TestHandleSources(t *testing.T) {
	handler := newTestHandler(&stubSearchService{}, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search/sources", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var payload struct {
		Items []domain.SourceInfo `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(payload.Items) != 1 || payload.Items[0].Name != "jsonbay" {
		t.Fatalf("unexpected payload: %#v", payload)
	}
}

func TestHandleSourcesHealth(t *testing.T) {
	handler := newTestHandler(&stubSearchService{}, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search/sources/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var payload struct {
		Items []domain.SourceDiagnostics `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(payload.Items) != 1 {
		t.Fatalf("unexpected payload: %#v", payload)
	}
}

func TestHandleSourceToggle(t *testing.T) {
	toggler := &stubToggler{}
	handler := newTestHandler(&stubSearchService{}, toggler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/search/sources/JSONBay/disable", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	if toggler.name != "jsonbay" || toggler.enabled {
		t.Fatalf("toggle not forwarded: %#v", toggler)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/search/sources/jsonbay/enable", nil))
	if rec.Code != http.StatusOK || !toggler.enabled {
		t.Fatalf("enable failed: status %d, %#v", rec.Code, toggler)
	}
}

func TestHandleSourceToggleUnknown(t *testing.T) {
	toggler := &stubToggler{err: errors.New("unknown source")}
	handler := newTestHandler(&stubSearchService{}, toggler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/search/sources/ghost/disable", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
}

func TestHandleSourceToggleGetRejected(t *testing.T) {
	handler := newTestHandler(&stubSearchService{}, &stubToggler{})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search/sources/jsonbay/disable", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status %d, want 405", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	handler := newTestHandler(&stubSearchService{}, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	handler := newTestHandler(&stubSearchService{}, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
}
