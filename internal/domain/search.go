package domain

import "time"

// ClassifierMode controls how titles carrying video-release markers are
// treated: excluded outright or kept with a score penalty.
type ClassifierMode string

const (
	ClassifierModeHard ClassifierMode = "hard"
	ClassifierModeSoft ClassifierMode = "soft"
)

func NormalizeClassifierMode(raw string) ClassifierMode {
	switch ClassifierMode(raw) {
	case ClassifierModeHard:
		return ClassifierModeHard
	default:
		return ClassifierModeSoft
	}
}

// SearchRequest is either a free-text Query or a structured
// Title/Artist/Year tuple; when Query is empty the structured fields
// are used to build it.
type SearchRequest struct {
	Query   string
	Title   string
	Artist  string
	Year    int
	Page    int
	NoCache bool
}

// PartialRecord is what a listing row yields before enrichment. Rows
// without a title are discarded upstream, so Title is always set.
type PartialRecord struct {
	Title     string
	DetailURL string
	Magnet    string
	Size      string
	SizeBytes int64
	Seeders   int
	Leechers  int
	Source    string
}

// RankedRecord is the externally visible result shape. InfoHash is
// derived from the magnet once and never changes; it is the dedup key.
type RankedRecord struct {
	Title     string `json:"title"`
	InfoHash  string `json:"infoHash,omitempty"`
	Magnet    string `json:"magnet"`
	DetailURL string `json:"detailUrl,omitempty"`
	Size      string `json:"size,omitempty"`
	SizeBytes int64  `json:"sizeBytes,omitempty"`
	Seeders   int    `json:"seeders"`
	Leechers  int    `json:"leechers"`
	Source    string `json:"source"`
	Score     int    `json:"score"`
	Variant   string `json:"-"`
}

type SourceStatus struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}

type SourceInfo struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Auth    bool   `json:"auth"`
	Enabled bool   `json:"enabled"`
}

type SourceDiagnostics struct {
	Name                string     `json:"name"`
	Label               string     `json:"label"`
	Enabled             bool       `json:"enabled"`
	Authenticated       bool       `json:"authenticated"`
	LoginAttempts       int        `json:"loginAttempts,omitempty"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	BlockedUntil        *time.Time `json:"blockedUntil,omitempty"`
	LastError           string     `json:"lastError,omitempty"`
	LastSuccessAt       *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *time.Time `json:"lastFailureAt,omitempty"`
	LastLatencyMS       int64      `json:"lastLatencyMs,omitempty"`
	TotalRequests       int64      `json:"totalRequests,omitempty"`
	TotalFailures       int64      `json:"totalFailures,omitempty"`
}

type SearchResponse struct {
	Query      string         `json:"query"`
	Items      []RankedRecord `json:"items"`
	Sources    []SourceStatus `json:"sources"`
	ElapsedMS  int64          `json:"elapsedMs"`
	TotalItems int            `json:"totalItems"`
	Page       int            `json:"page"`
}
