package search

import (
	"net/url"
	"strings"
)

// MagnetParts is the decomposed form of a magnet link.
type MagnetParts struct {
	InfoHash    string
	DisplayName string
	Trackers    []string
}

func NormalizeInfoHash(raw string) string {
	value := strings.TrimSpace(strings.ToLower(raw))
	value = strings.TrimPrefix(value, "urn:btih:")
	return value
}

func ExtractInfoHash(rawMagnet string) string {
	value := strings.TrimSpace(rawMagnet)
	if value == "" {
		return ""
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return ""
	}
	for _, xt := range parsed.Query()["xt"] {
		hash := NormalizeInfoHash(xt)
		if hash != "" {
			return hash
		}
	}
	return ""
}

func ParseMagnet(rawMagnet string) (MagnetParts, bool) {
	value := strings.TrimSpace(rawMagnet)
	if value == "" {
		return MagnetParts{}, false
	}
	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme != "magnet" {
		return MagnetParts{}, false
	}
	query := parsed.Query()
	parts := MagnetParts{}
	for _, xt := range query["xt"] {
		if hash := NormalizeInfoHash(xt); hash != "" {
			parts.InfoHash = hash
			break
		}
	}
	if parts.InfoHash == "" {
		return MagnetParts{}, false
	}
	parts.DisplayName = strings.TrimSpace(query.Get("dn"))
	for _, tracker := range query["tr"] {
		value := strings.TrimSpace(tracker)
		if value == "" {
			continue
		}
		parts.Trackers = append(parts.Trackers, value)
	}
	return parts, true
}

func BuildMagnet(infoHash, name string, trackers []string) string {
	hash := NormalizeInfoHash(infoHash)
	if hash == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("magnet:?xt=urn:btih:")
	builder.WriteString(hash)
	if strings.TrimSpace(name) != "" {
		builder.WriteString("&dn=")
		builder.WriteString(url.QueryEscape(strings.TrimSpace(name)))
	}
	for _, tracker := range trackers {
		value := strings.TrimSpace(tracker)
		if value == "" {
			continue
		}
		builder.WriteString("&tr=")
		builder.WriteString(url.QueryEscape(value))
	}
	return builder.String()
}

// MergeMagnets combines several magnet links pointing at the same
// content: the first link's info hash, the first non-empty display
// name, and the order-preserving union of every tracker.
func MergeMagnets(links []string) string {
	var (
		infoHash    string
		displayName string
		trackers    []string
		seen        = make(map[string]struct{})
	)
	for _, link := range links {
		parts, ok := ParseMagnet(link)
		if !ok {
			continue
		}
		if infoHash == "" {
			infoHash = parts.InfoHash
		}
		if displayName == "" {
			displayName = parts.DisplayName
		}
		for _, tracker := range parts.Trackers {
			key := strings.ToLower(tracker)
			if _, exists := seen[key]; exists {
				continue
			}
			seen[key] = struct{}{}
			trackers = append(trackers, tracker)
		}
	}
	if infoHash == "" {
		return ""
	}
	return BuildMagnet(infoHash, displayName, trackers)
}
