package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"log/slog"

	"golang.org/x/sync/semaphore"

	"audioswarm/searchservice/internal/domain"
)

// maxConcurrentFetches limits simultaneous listing and detail requests
// across all source and variant pairs.
const maxConcurrentFetches = 10

type listingResult struct {
	source  string
	variant string
	records []domain.PartialRecord
	err     error
}

type collectedRecord struct {
	record  domain.PartialRecord
	variant string
}

func (s *Service) Search(ctx context.Context, request domain.SearchRequest) (domain.SearchResponse, error) {
	query := CanonicalQuery(request)
	if query == "" {
		return domain.SearchResponse{}, ErrInvalidQuery
	}
	if request.Page < 0 {
		return domain.SearchResponse{}, ErrInvalidPage
	}
	selected := s.enabledSources()
	if len(selected) == 0 {
		return domain.SearchResponse{}, ErrNoSources
	}

	if s.cacheDisabled || request.NoCache {
		return s.execute(ctx, query, request, selected)
	}

	startedAt := time.Now()
	key := buildCacheKey(query, request.Page, selected)
	if cached, ok := s.cacheLookup(ctx, key, startedAt); ok {
		cached.ElapsedMS = time.Since(startedAt).Milliseconds()
		return cached, nil
	}
	response, err := s.execute(ctx, query, request, selected)
	if err != nil {
		return domain.SearchResponse{}, err
	}
	s.cacheStore(ctx, key, response, time.Now())
	return response, nil
}

func (s *Service) execute(ctx context.Context, query string, request domain.SearchRequest, selected []Source) (domain.SearchResponse, error) {
	startedAt := time.Now()
	page := request.Page
	if page < 1 {
		page = 1
	}
	variants := QueryVariants(request)

	collected, statuses := s.fanOut(ctx, selected, variants, page)
	scored := s.provisionalScore(query, collected)
	candidates := s.selectCandidates(scored)
	enriched := s.enrich(ctx, query, candidates)
	items := Dedupe(s.finalFilter(enriched))

	slog.Info("search completed",
		slog.String("query", query),
		slog.Int("sources", len(selected)),
		slog.Int("variants", len(variants)),
		slog.Int("collected", len(collected)),
		slog.Int("results", len(items)),
		slog.Int64("elapsedMs", time.Since(startedAt).Milliseconds()),
	)

	return domain.SearchResponse{
		Query:      query,
		Items:      items,
		Sources:    statuses,
		ElapsedMS:  time.Since(startedAt).Milliseconds(),
		TotalItems: len(items),
		Page:       page,
	}, nil
}

// fanOut issues one listing request per enabled source per query
// variant and waits until everything settles or the global budget runs
// out. Hitting the budget stops the wait, not the work: whatever has
// already landed in the result channel is kept, and stragglers die on
// their own deadline instead of being reaped mid-flight.
func (s *Service) fanOut(ctx context.Context, selected []Source, variants []string, page int) ([]collectedRecord, []domain.SourceStatus) {
	deadline := time.Now().Add(s.opts.GlobalTimeout)
	taskCtx, cancel := context.WithDeadline(context.WithoutCancel(ctx), deadline)
	defer cancel()

	total := len(selected) * len(variants)
	results := make(chan listingResult, total)
	sem := semaphore.NewWeighted(maxConcurrentFetches)

	for _, src := range selected {
		for _, variant := range variants {
			go s.runListing(taskCtx, src, variant, page, sem, results)
		}
	}

	order := make([]string, 0, len(selected))
	statusBySource := make(map[string]*domain.SourceStatus, len(selected))
	for _, src := range selected {
		name := strings.ToLower(strings.TrimSpace(src.Name()))
		order = append(order, name)
		statusBySource[name] = &domain.SourceStatus{Name: name}
	}

	var collected []collectedRecord
	absorb := func(result listingResult) {
		status := statusBySource[result.source]
		if status == nil {
			return
		}
		if result.err != nil {
			if !status.OK {
				status.Error = result.err.Error()
			}
			return
		}
		status.OK = true
		status.Error = ""
		status.Count += len(result.records)
		for _, record := range result.records {
			collected = append(collected, collectedRecord{record: record, variant: result.variant})
		}
	}

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	received := 0
collect:
	for received < total {
		select {
		case result := <-results:
			received++
			absorb(result)
		case <-timer.C:
			break collect
		case <-ctx.Done():
			break collect
		}
	}

	// Budget exhausted: keep every task that already settled.
drain:
	for received < total {
		select {
		case result := <-results:
			received++
			absorb(result)
		default:
			break drain
		}
	}

	statuses := make([]domain.SourceStatus, 0, len(order))
	for _, name := range order {
		statuses = append(statuses, *statusBySource[name])
	}
	return collected, statuses
}

func (s *Service) runListing(ctx context.Context, src Source, variant string, page int, sem *semaphore.Weighted, results chan<- listingResult) {
	name := strings.ToLower(strings.TrimSpace(src.Name()))
	if err := sem.Acquire(ctx, 1); err != nil {
		results <- listingResult{source: name, variant: variant, err: err}
		return
	}
	defer sem.Release(1)

	now := time.Now()
	if blocked, until, lastErr := s.isSourceBlocked(name, now); blocked {
		results <- listingResult{
			source:  name,
			variant: variant,
			err:     fmt.Errorf("source temporarily unhealthy until %s: %s", until.UTC().Format(time.RFC3339), lastErr),
		}
		return
	}

	startedAt := time.Now()
	var records []domain.PartialRecord
	err := RetryWithBackoff(ctx, DefaultRetryConfig(), func() error {
		var searchErr error
		records, searchErr = src.Search(ctx, variant, page)
		return searchErr
	})
	s.recordSourceResult(name, err, time.Since(startedAt), time.Now())
	if err != nil {
		slog.Warn("source listing failed",
			slog.String("source", name),
			slog.String("variant", variant),
			slog.String("error", err.Error()),
		)
	}
	results <- listingResult{source: name, variant: variant, records: records, err: err}
}

// provisionalScore rates every collected record on title and seeders
// alone, cheap enough to run on the whole pool before deciding which
// records earn a detail fetch.
func (s *Service) provisionalScore(query string, collected []collectedRecord) []domain.RankedRecord {
	scored := make([]domain.RankedRecord, 0, len(collected))
	for _, entry := range collected {
		record := entry.record
		if strings.TrimSpace(record.Title) == "" {
			continue
		}
		item := domain.RankedRecord{
			Title:     record.Title,
			InfoHash:  ExtractInfoHash(record.Magnet),
			Magnet:    record.Magnet,
			DetailURL: record.DetailURL,
			Size:      record.Size,
			SizeBytes: record.SizeBytes,
			Seeders:   record.Seeders,
			Leechers:  record.Leechers,
			Source:    record.Source,
			Variant:   entry.variant,
		}
		item.Score = Score(query, item.Title, item.Seeders)
		scored = append(scored, item)
	}
	return scored
}

// selectCandidates keeps everything at or above the score threshold.
// When nothing qualifies it falls back to the top slice of the pool,
// bounded both ways, so a long-tail query still gets enrichment work
// without a bad one getting unbounded work.
func (s *Service) selectCandidates(scored []domain.RankedRecord) []domain.RankedRecord {
	qualified := make([]domain.RankedRecord, 0, len(scored))
	for _, item := range scored {
		if item.Score >= s.opts.MinScore {
			qualified = append(qualified, item)
		}
	}
	if len(qualified) > 0 {
		return qualified
	}
	if len(scored) == 0 {
		return nil
	}

	sortByScore(scored)
	k := len(scored) / 3
	if k < s.opts.EnrichMin {
		k = s.opts.EnrichMin
	}
	if k > s.opts.EnrichMax {
		k = s.opts.EnrichMax
	}
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k]
}

// enrich resolves missing magnets for the selected candidates,
// re-scores them with whatever the detail page added and applies the
// content-type policy. A failed resolution drops the record, never the
// search.
func (s *Service) enrich(ctx context.Context, query string, candidates []domain.RankedRecord) []domain.RankedRecord {
	out := make([]domain.RankedRecord, 0, len(candidates))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := semaphore.NewWeighted(maxConcurrentFetches)

	for _, candidate := range candidates {
		wg.Add(1)
		go func(item domain.RankedRecord) {
			defer wg.Done()

			if item.Magnet == "" {
				src, ok := s.byName[item.Source]
				if !ok || item.DetailURL == "" {
					return
				}
				if err := sem.Acquire(ctx, 1); err != nil {
					return
				}
				resolved, err := src.Resolve(ctx, domain.PartialRecord{
					Title:     item.Title,
					DetailURL: item.DetailURL,
					Size:      item.Size,
					SizeBytes: item.SizeBytes,
					Seeders:   item.Seeders,
					Leechers:  item.Leechers,
					Source:    item.Source,
				})
				sem.Release(1)
				if err != nil {
					slog.Debug("detail resolution failed",
						slog.String("source", item.Source),
						slog.String("title", item.Title),
						slog.String("error", err.Error()),
					)
					return
				}
				item.Magnet = resolved.Magnet
				if resolved.Seeders > item.Seeders {
					item.Seeders = resolved.Seeders
				}
				if resolved.Leechers > item.Leechers {
					item.Leechers = resolved.Leechers
				}
			}

			if item.InfoHash == "" {
				item.InfoHash = ExtractInfoHash(item.Magnet)
			}
			score, keep := s.opts.Classifier.Apply(item.Title, Score(query, item.Title, item.Seeders))
			if !keep {
				return
			}
			item.Score = score

			mu.Lock()
			out = append(out, item)
			mu.Unlock()
		}(candidate)
	}
	wg.Wait()
	return out
}

// finalFilter keeps enriched records with a magnet at or above the
// threshold; when that leaves nothing it returns the best-effort top of
// the enriched set instead of an empty answer.
func (s *Service) finalFilter(enriched []domain.RankedRecord) []domain.RankedRecord {
	withMagnet := make([]domain.RankedRecord, 0, len(enriched))
	kept := make([]domain.RankedRecord, 0, len(enriched))
	for _, item := range enriched {
		if item.Magnet == "" {
			continue
		}
		withMagnet = append(withMagnet, item)
		if item.Score >= s.opts.MinScore {
			kept = append(kept, item)
		}
	}
	if len(kept) > 0 {
		return kept
	}

	sortByScore(withMagnet)
	if len(withMagnet) > s.opts.FallbackLimit {
		withMagnet = withMagnet[:s.opts.FallbackLimit]
	}
	return withMagnet
}

func sortByScore(items []domain.RankedRecord) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		if items[i].Seeders != items[j].Seeders {
			return items[i].Seeders > items[j].Seeders
		}
		return strings.ToLower(items[i].Title) < strings.ToLower(items[j].Title)
	})
}
