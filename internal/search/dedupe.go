package search

import (
	"sort"

	"audioswarm/searchservice/internal/domain"
)

func dedupeKey(item domain.RankedRecord) string {
	if item.InfoHash != "" {
		return "hash|" + item.InfoHash
	}
	if normalized := NormalizeTitle(item.Title); normalized != "" {
		return "title|" + normalized
	}
	return ""
}

// Dedupe groups same-content records by info hash, falling back to the
// normalized title, keeps the best record of each group and merges the
// group's magnet links so the survivor carries the union of trackers.
// The output is sorted by score, then seeders, descending, with the
// title breaking ties so ordering never depends on source arrival.
func Dedupe(items []domain.RankedRecord) []domain.RankedRecord {
	groups := make(map[string][]domain.RankedRecord)
	order := make([]string, 0, len(items))
	out := make([]domain.RankedRecord, 0, len(items))

	for _, item := range items {
		key := dedupeKey(item)
		if key == "" {
			out = append(out, item)
			continue
		}
		if _, exists := groups[key]; !exists {
			order = append(order, key)
		}
		groups[key] = append(groups[key], item)
	}

	for _, key := range order {
		group := groups[key]
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].Score != group[j].Score {
				return group[i].Score > group[j].Score
			}
			return group[i].Seeders > group[j].Seeders
		})
		representative := group[0]
		if merged := mergeGroupMagnets(group); merged != "" {
			representative.Magnet = merged
		}
		out = append(out, representative)
	}

	sortByScore(out)
	return out
}

func mergeGroupMagnets(group []domain.RankedRecord) string {
	links := make([]string, 0, len(group))
	seen := make(map[string]struct{}, len(group))
	for _, item := range group {
		if item.Magnet == "" {
			continue
		}
		if _, exists := seen[item.Magnet]; exists {
			continue
		}
		seen[item.Magnet] = struct{}{}
		links = append(links, item.Magnet)
	}
	if len(links) < 2 {
		if len(links) == 1 {
			return links[0]
		}
		return ""
	}
	return MergeMagnets(links)
}
