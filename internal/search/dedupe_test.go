package search

import (
	"testing"

	"audioswarm/searchservice/internal/domain"
)

func TestDedupeByInfoHash(t *testing.T) {
	hash := "c9e15763f722f23e98a29decdfae341b98d53056"
	items := []domain.RankedRecord{
		{Title: "The Wall [FLAC]", InfoHash: hash, Magnet: BuildMagnet(hash, "The Wall", []string{"udp://a:1/announce"}), Score: 70, Seeders: 10, Source: "jsonbay"},
		{Title: "The Wall flac rip", InfoHash: hash, Magnet: BuildMagnet(hash, "The Wall", []string{"udp://b:2/announce"}), Score: 85, Seeders: 50, Source: "audionexus"},
		{Title: "Unrelated Album", InfoHash: "ffffffffffffffffffffffffffffffffffffffff", Magnet: BuildMagnet("ffffffffffffffffffffffffffffffffffffffff", "Other", nil), Score: 60, Seeders: 5, Source: "jsonbay"},
	}

	out := Dedupe(items)
	if len(out) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(out))
	}
	if out[0].Score != 85 || out[0].Source != "audionexus" {
		t.Fatalf("highest-scoring record must represent the group: %#v", out[0])
	}

	parts, ok := ParseMagnet(out[0].Magnet)
	if !ok {
		t.Fatalf("representative magnet unparseable")
	}
	if len(parts.Trackers) != 2 {
		t.Fatalf("representative must carry the tracker union, got %v", parts.Trackers)
	}
}

func TestDedupeByNormalizedTitle(t *testing.T) {
	items := []domain.RankedRecord{
		{Title: "Pink Floyd - The Wall", Score: 80, Seeders: 10},
		{Title: "pink floyd   the WALL!!", Score: 75, Seeders: 99},
	}
	out := Dedupe(items)
	if len(out) != 1 {
		t.Fatalf("title-equivalent records must merge, got %d", len(out))
	}
	if out[0].Score != 80 {
		t.Fatalf("best score must survive, got %d", out[0].Score)
	}
}

func TestDedupeOrdering(t *testing.T) {
	items := []domain.RankedRecord{
		{Title: "bbb", InfoHash: "b1", Score: 50, Seeders: 5},
		{Title: "aaa", InfoHash: "a1", Score: 90, Seeders: 1},
		{Title: "ccc", InfoHash: "c1", Score: 50, Seeders: 50},
	}
	out := Dedupe(items)
	if len(out) != 3 {
		t.Fatalf("expected 3 records, got %d", len(out))
	}
	if out[0].Title != "aaa" {
		t.Fatalf("score must order first: %v", out)
	}
	if out[1].Title != "ccc" || out[2].Title != "bbb" {
		t.Fatalf("seeders must break score ties: %v", out)
	}
}

func TestDedupeEmpty(t *testing.T) {
	if out := Dedupe(nil); len(out) != 0 {
		t.Fatalf("expected empty output, got %v", out)
	}
}
