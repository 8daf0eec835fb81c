package source

import (
	"bytes"
	"context"
	"errors"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"audioswarm/searchservice/internal/domain"
	"audioswarm/searchservice/internal/metrics"
	"audioswarm/searchservice/internal/search"
)

var magnetPattern = regexp.MustCompile(`magnet:\?xt=urn:btih:[a-zA-Z0-9]{32,40}[^\s"'<>]*`)

// ResolveDetail fetches a record's detail page and extracts its magnet
// link, reusing the source's session cookie. The page magnet is
// rebuilt around the record title and the source's tracker list when
// it carries no display name of its own.
func (c *Client) ResolveDetail(ctx context.Context, def Definition, cookie string, record domain.PartialRecord) (string, error) {
	if strings.TrimSpace(record.DetailURL) == "" {
		return "", errors.New("record has no detail url")
	}
	if err := c.limiter(def.Name, def.RequestsPerSec).Wait(ctx); err != nil {
		return "", err
	}
	payload, err := c.fetchOne(ctx, record.DetailURL, cookie, def.Charset)
	if err != nil {
		metrics.EnrichmentsTotal.WithLabelValues(def.Name, "error").Inc()
		return "", err
	}

	magnet := extractDetailMagnet(def, payload)
	if magnet == "" {
		metrics.EnrichmentsTotal.WithLabelValues(def.Name, "miss").Inc()
		return "", errors.New("no magnet on detail page")
	}

	if parts, ok := search.ParseMagnet(magnet); ok && parts.DisplayName == "" {
		trackers := parts.Trackers
		if len(trackers) == 0 {
			trackers = def.Trackers
		}
		magnet = search.BuildMagnet(parts.InfoHash, record.Title, trackers)
	}
	metrics.EnrichmentsTotal.WithLabelValues(def.Name, "ok").Inc()
	return magnet, nil
}

func extractDetailMagnet(def Definition, payload []byte) string {
	if def.DetailField != "" {
		if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload)); err == nil {
			value := strings.TrimSpace(extractField(doc.Selection, def.DetailField))
			if strings.HasPrefix(value, "magnet:") {
				return value
			}
		}
	}
	return strings.TrimSpace(html.UnescapeString(magnetPattern.FindString(string(payload))))
}
