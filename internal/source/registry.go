package source

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"

	"audioswarm/searchservice/internal/domain"
)

// Registry is the process-wide catalog of sources. Each entry owns its
// definition and session state; login runs lazily on first
// authenticated request, never at registration.
type Registry struct {
	fetch      *Client
	httpClient *http.Client
	userAgent  string

	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string
}

func NewRegistry(fetch *Client, httpClient *http.Client, userAgent string) *Registry {
	return &Registry{
		fetch:      fetch,
		httpClient: httpClient,
		userAgent:  userAgent,
		entries:    make(map[string]*Entry),
	}
}

// Register adds or overwrites a source by name.
func (r *Registry) Register(def Definition) {
	name := strings.ToLower(strings.TrimSpace(def.Name))
	if name == "" {
		return
	}
	def.Name = name

	entry := &Entry{
		def:     def,
		fetch:   r.fetch,
		enabled: !def.Disabled,
	}
	if def.Login != nil {
		entry.session = NewSession(name, *def.Login, r.httpClient, r.userAgent)
	}

	r.mu.Lock()
	if _, exists := r.entries[name]; !exists {
		r.order = append(r.order, name)
	}
	r.entries[name] = entry
	r.mu.Unlock()

	slog.Info("source registered",
		slog.String("source", name),
		slog.Bool("enabled", entry.Enabled()),
		slog.Bool("auth", def.Login != nil),
	)
}

func (r *Registry) Get(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[strings.ToLower(strings.TrimSpace(name))]
	return entry, ok
}

// Entries returns every registered source, enabled or not, in
// registration order.
func (r *Registry) Entries() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Entry, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name])
	}
	return out
}

func (r *Registry) List() []domain.SourceInfo {
	entries := r.Entries()
	items := make([]domain.SourceInfo, 0, len(entries))
	for _, entry := range entries {
		items = append(items, entry.Info())
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
	return items
}

var ErrUnknownSource = errors.New("unknown source")

func (r *Registry) SetEnabled(name string, enabled bool) error {
	entry, ok := r.Get(name)
	if !ok {
		return ErrUnknownSource
	}
	entry.setEnabled(enabled)
	slog.Info("source toggled",
		slog.String("source", entry.Name()),
		slog.Bool("enabled", enabled),
	)
	return nil
}

// Entry binds a definition to its mutable runtime state and drives the
// generic fetch/extract engine for that source.
type Entry struct {
	def     Definition
	session *Session
	fetch   *Client

	mu      sync.Mutex
	enabled bool
}

func (e *Entry) Name() string {
	return e.def.Name
}

func (e *Entry) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

func (e *Entry) setEnabled(enabled bool) {
	e.mu.Lock()
	e.enabled = enabled
	e.mu.Unlock()
}

func (e *Entry) Info() domain.SourceInfo {
	label := e.def.Label
	if label == "" {
		label = e.def.Name
	}
	return domain.SourceInfo{
		Name:    e.def.Name,
		Label:   label,
		Auth:    e.def.Login != nil,
		Enabled: e.Enabled(),
	}
}

func (e *Entry) Authenticated() bool {
	return e.session != nil && e.session.Authenticated()
}

func (e *Entry) LoginAttempts() int {
	if e.session == nil {
		return 0
	}
	return e.session.Attempts()
}

// Search fetches one listing page and extracts its rows. A failed or
// exhausted login degrades to an unauthenticated request instead of
// failing the source.
func (e *Entry) Search(ctx context.Context, query string, page int) ([]domain.PartialRecord, error) {
	cookie := e.sessionCookie(ctx)
	urls := e.def.candidateURLs(query, page)
	payload, finalURL, err := e.fetch.FetchFirst(ctx, e.def, urls, cookie)
	if err != nil {
		return nil, err
	}
	return ExtractRows(e.def, payload, finalURL), nil
}

// Resolve fills in a record's magnet from its detail page.
func (e *Entry) Resolve(ctx context.Context, record domain.PartialRecord) (domain.PartialRecord, error) {
	magnet, err := e.fetch.ResolveDetail(ctx, e.def, e.sessionCookie(ctx), record)
	if err != nil {
		return record, err
	}
	record.Magnet = magnet
	return record, nil
}

func (e *Entry) sessionCookie(ctx context.Context) string {
	if e.session == nil {
		return ""
	}
	cookie, err := e.session.Cookie(ctx)
	if err != nil {
		slog.Debug("proceeding unauthenticated",
			slog.String("source", e.def.Name),
			slog.String("error", err.Error()),
		)
		return ""
	}
	return cookie
}
