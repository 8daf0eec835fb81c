package search

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"audioswarm/searchservice/internal/domain"
	"audioswarm/searchservice/internal/metrics"
)

const (
	defaultCacheTTL        = 30 * time.Minute
	defaultCacheMaxEntries = 400
)

type cachedResponse struct {
	response  domain.SearchResponse
	updatedAt time.Time
	expiresAt time.Time
}

func (s *Service) cacheLookup(ctx context.Context, key string, now time.Time) (domain.SearchResponse, bool) {
	if s.redisCache != nil {
		resp, found, err := s.redisCache.Get(ctx, key)
		if err == nil && found {
			metrics.CacheHitsTotal.Inc()
			s.cacheStoreMemory(key, resp, now)
			return resp, true
		}
	}

	s.cacheMu.RLock()
	entry, ok := s.cache[key]
	s.cacheMu.RUnlock()
	if !ok || now.After(entry.expiresAt) {
		metrics.CacheMissesTotal.Inc()
		return domain.SearchResponse{}, false
	}
	metrics.CacheHitsTotal.Inc()
	return cloneResponse(entry.response), true
}

func (s *Service) cacheStore(ctx context.Context, key string, response domain.SearchResponse, now time.Time) {
	ttl := s.cacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if s.redisCache != nil {
		_ = s.redisCache.Set(ctx, key, response, ttl)
	}
	s.cacheStoreMemory(key, response, now)
}

func (s *Service) cacheStoreMemory(key string, response domain.SearchResponse, now time.Time) {
	ttl := s.cacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.cache[key] = &cachedResponse{
		response:  cloneResponse(response),
		updatedAt: now,
		expiresAt: now.Add(ttl),
	}
	s.trimCacheLocked(now)
}

func (s *Service) trimCacheLocked(now time.Time) {
	for key, entry := range s.cache {
		if now.After(entry.expiresAt) {
			delete(s.cache, key)
		}
	}
	if len(s.cache) <= defaultCacheMaxEntries {
		return
	}

	type pair struct {
		key   string
		entry *cachedResponse
	}
	items := make([]pair, 0, len(s.cache))
	for key, entry := range s.cache {
		items = append(items, pair{key: key, entry: entry})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].entry.updatedAt.Before(items[j].entry.updatedAt)
	})
	for i := 0; i < len(items)-defaultCacheMaxEntries; i++ {
		delete(s.cache, items[i].key)
	}
}

func cloneResponse(response domain.SearchResponse) domain.SearchResponse {
	cloned := response
	if response.Items != nil {
		cloned.Items = append([]domain.RankedRecord(nil), response.Items...)
	}
	if response.Sources != nil {
		cloned.Sources = append([]domain.SourceStatus(nil), response.Sources...)
	}
	return cloned
}

func buildCacheKey(query string, page int, selected []Source) string {
	names := make([]string, 0, len(selected))
	for _, src := range selected {
		name := strings.ToLower(strings.TrimSpace(src.Name()))
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return strings.Join([]string{
		"q=" + strings.ToLower(strings.TrimSpace(query)),
		"p=" + strconv.Itoa(page),
		"s=" + strings.Join(names, ","),
	}, "|")
}
