package search

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"audioswarm/searchservice/internal/domain"
)

var (
	ErrInvalidQuery  = errors.New("query is required")
	ErrInvalidPage   = errors.New("page must be >= 0")
	ErrNoSources     = errors.New("no search sources configured")
	ErrUnknownSource = errors.New("unknown source")
)

// Source is one external catalog the coordinator can fan out to.
type Source interface {
	Name() string
	Info() domain.SourceInfo
	Enabled() bool
	Search(ctx context.Context, query string, page int) ([]domain.PartialRecord, error)
	Resolve(ctx context.Context, record domain.PartialRecord) (domain.PartialRecord, error)
}

// SessionReporter is an optional interface for sources that hold login
// state, used by diagnostics.
type SessionReporter interface {
	Authenticated() bool
	LoginAttempts() int
}

// Options carries the hand-tuned coordinator knobs. They are empirical
// and domain-specific, so they come from configuration rather than
// constants.
type Options struct {
	GlobalTimeout time.Duration
	MinScore      int
	EnrichMin     int
	EnrichMax     int
	FallbackLimit int
	Classifier    *Classifier
}

func (o Options) normalized() Options {
	if o.GlobalTimeout <= 0 {
		o.GlobalTimeout = 8 * time.Second
	}
	if o.MinScore <= 0 {
		o.MinScore = 45
	}
	if o.EnrichMin <= 0 {
		o.EnrichMin = 5
	}
	if o.EnrichMax < o.EnrichMin {
		o.EnrichMax = o.EnrichMin
	}
	if o.FallbackLimit <= 0 {
		o.FallbackLimit = 15
	}
	if o.Classifier == nil {
		o.Classifier = NewClassifier(domain.ClassifierModeSoft)
	}
	return o
}

type Service struct {
	sources []Source
	byName  map[string]Source
	opts    Options

	cacheDisabled bool
	cacheTTL      time.Duration
	cacheMu       sync.RWMutex
	cache         map[string]*cachedResponse
	redisCache    *RedisCacheBackend

	healthMu sync.Mutex
	health   map[string]*sourceHealth
}

type ServiceOption func(*Service)

func WithRedisCache(backend *RedisCacheBackend) ServiceOption {
	return func(s *Service) {
		s.redisCache = backend
	}
}

func WithCacheTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

func WithCacheDisabled(disabled bool) ServiceOption {
	return func(s *Service) {
		s.cacheDisabled = disabled
	}
}

func NewService(sources []Source, opts Options, optFns ...ServiceOption) *Service {
	byName := make(map[string]Source, len(sources))
	kept := make([]Source, 0, len(sources))
	for _, src := range sources {
		if src == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(src.Name()))
		if name == "" {
			continue
		}
		if _, exists := byName[name]; exists {
			continue
		}
		byName[name] = src
		kept = append(kept, src)
	}

	svc := &Service{
		sources:  kept,
		byName:   byName,
		opts:     opts.normalized(),
		cacheTTL: defaultCacheTTL,
		cache:    make(map[string]*cachedResponse),
		health:   make(map[string]*sourceHealth),
	}
	for _, fn := range optFns {
		fn(svc)
	}
	return svc
}

// Sources lists every registered source for UI display, enabled or
// not.
func (s *Service) Sources() []domain.SourceInfo {
	items := make([]domain.SourceInfo, 0, len(s.sources))
	for _, src := range s.sources {
		info := src.Info()
		if info.Name == "" {
			info.Name = strings.ToLower(strings.TrimSpace(src.Name()))
		}
		if info.Label == "" {
			info.Label = info.Name
		}
		items = append(items, info)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
	return items
}

func (s *Service) enabledSources() []Source {
	enabled := make([]Source, 0, len(s.sources))
	for _, src := range s.sources {
		if src.Enabled() {
			enabled = append(enabled, src)
		}
	}
	return enabled
}
