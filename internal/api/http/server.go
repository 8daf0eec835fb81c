package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"audioswarm/searchservice/internal/domain"
	"audioswarm/searchservice/internal/search"
)

type SearchService interface {
	Search(ctx context.Context, request domain.SearchRequest) (domain.SearchResponse, error)
	Sources() []domain.SourceInfo
	SourceDiagnostics() []domain.SourceDiagnostics
}

// SourceToggler flips sources on and off at runtime. The registry
// implements it.
type SourceToggler interface {
	SetEnabled(name string, enabled bool) error
}

const maxQueryLength = 500

type Server struct {
	search  SearchService
	toggler SourceToggler
	logger  *slog.Logger
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithSourceToggler(toggler SourceToggler) ServerOption {
	return func(s *Server) {
		s.toggler = toggler
	}
}

func NewServer(searchService SearchService, options ...ServerOption) *Server {
	server := &Server{
		search: searchService,
		logger: slog.Default(),
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/search/sources", s.handleSources)
	mux.HandleFunc("/search/sources/", s.handleSourcesSubtree)
	mux.HandleFunc("/search", s.handleSearch)
	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "audioswarm-search",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	return recoveryMiddleware(s.logger, rateLimitMiddleware(50, 100, metricsMiddleware(traced)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}

	params := r.URL.Query()
	query := strings.TrimSpace(params.Get("q"))
	title := strings.TrimSpace(params.Get("title"))
	artist := strings.TrimSpace(params.Get("artist"))
	if query == "" && title == "" && artist == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}
	if len(query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "query too long (max 500 characters)")
		return
	}
	year, err := parseOptionalYear(params.Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid year")
		return
	}
	page, err := parsePositiveInt(params.Get("page"), 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid page")
		return
	}
	noCache := parseOptionalBool(params.Get("nocache")) || parseOptionalBool(params.Get("noCache"))

	response, err := s.search.Search(r.Context(), domain.SearchRequest{
		Query:   query,
		Title:   title,
		Artist:  artist,
		Year:    year,
		Page:    page,
		NoCache: noCache,
	})
	if err != nil {
		s.logger.Warn("search request failed",
			slog.String("query", truncate(query, 80)),
			slog.String("error", err.Error()),
		)
		switch {
		case errors.Is(err, search.ErrInvalidQuery):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		case errors.Is(err, search.ErrInvalidPage):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		case errors.Is(err, search.ErrNoSources):
			writeError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "search failed")
		}
		return
	}

	failedSources := make([]string, 0, len(response.Sources))
	for _, status := range response.Sources {
		if !status.OK {
			failedSources = append(failedSources, status.Name)
		}
	}
	s.logger.Info("search completed",
		slog.String("query", truncate(response.Query, 80)),
		slog.Int("totalItems", response.TotalItems),
		slog.Int64("elapsedMs", response.ElapsedMS),
		slog.Int("failedSources", len(failedSources)),
	)
	if len(failedSources) > 0 {
		s.logger.Warn("search sources partially failed",
			slog.String("query", truncate(response.Query, 80)),
			slog.Any("failedSources", failedSources),
		)
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": s.search.Sources(),
	})
}

func (s *Server) handleSourcesSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/search/sources/")
	if rest == "health" {
		s.handleSourcesHealth(w, r)
		return
	}

	name, action, ok := strings.Cut(rest, "/")
	if !ok || (action != "enable" && action != "disable") {
		http.NotFound(w, r)
		return
	}
	s.handleSourceToggle(w, r, name, action == "enable")
}

func (s *Server) handleSourcesHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"checkedAt": time.Now().UTC(),
		"items":     s.search.SourceDiagnostics(),
	})
}

func (s *Server) handleSourceToggle(w http.ResponseWriter, r *http.Request, name string, enabled bool) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.toggler == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "source management is not configured")
		return
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "source name is required")
		return
	}
	if err := s.toggler.SetEnabled(name, enabled); err != nil {
		writeError(w, http.StatusNotFound, "unknown_source", err.Error())
		return
	}
	s.logger.Info("source toggled",
		slog.String("source", name),
		slog.Bool("enabled", enabled),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"source":  name,
		"enabled": enabled,
	})
}

func parsePositiveInt(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, errors.New("invalid value")
	}
	return parsed, nil
}

func parseOptionalYear(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1900 || parsed > 2100 {
		return 0, errors.New("invalid year")
	}
	return parsed, nil
}

func parseOptionalBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
