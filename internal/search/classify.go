package search

import (
	"regexp"

	"audioswarm/searchservice/internal/domain"
)

var (
	audioMarkerPattern = regexp.MustCompile(`(?i)\b(flac|alac|ape|wavpack|wv|mp3|aac|ogg|opus|m4a|lossless|soundtrack|ost|discography|vinyl|tracklist|\d{2,3}\s?kbps|(16|24)\s?-?\s?bit)\b`)

	videoStrongPattern = regexp.MustCompile(`(?i)\b(x26[45]|h\.?26[45]|hevc|av1|xvid|divx|blu-?ray|bd-?rip|dvd-?rip|web-?rip|web-?dl|remux|s\d{1,2}\s?e\d{1,3}|season\s?\d{1,2})\b|\.(mkv|avi|mp4|m2ts)\b`)
	videoWeakPattern   = regexp.MustCompile(`(?i)\b(\d{3,4}p|hdtv|cam(rip)?|telesync|screener)\b`)
)

const (
	penaltyVideoCombo  = 30
	penaltyVideoStrong = 20
	penaltyVideoWeak   = 8
)

// Classifier decides how titles carrying video-release markers affect
// the result set.
type Classifier struct {
	mode domain.ClassifierMode
}

func NewClassifier(mode domain.ClassifierMode) *Classifier {
	return &Classifier{mode: mode}
}

func (c *Classifier) Mode() domain.ClassifierMode {
	return c.mode
}

// Apply returns the adjusted score and whether the record should be
// kept. In hard mode a video-marked title without an audio marker is
// dropped; in soft mode it is kept with a tiered penalty, floored at
// zero. Titles with an audio marker are never touched.
func (c *Classifier) Apply(title string, score int) (int, bool) {
	if audioMarkerPattern.MatchString(title) {
		return score, true
	}
	strong := videoStrongPattern.MatchString(title)
	weak := videoWeakPattern.MatchString(title)
	if !strong && !weak {
		return score, true
	}
	if c.mode == domain.ClassifierModeHard {
		return score, false
	}
	penalty := penaltyVideoWeak
	switch {
	case strong && weak:
		penalty = penaltyVideoCombo
	case strong:
		penalty = penaltyVideoStrong
	}
	score -= penalty
	if score < 0 {
		score = 0
	}
	return score, true
}
