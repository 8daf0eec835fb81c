package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/time/rate"
)

const (
	maxPayloadBytes    = 4 * 1024 * 1024
	defaultFetchLimit  = 2.0
	defaultFetchBurst  = 2
	defaultFetchWindow = 4 * time.Second
)

var ErrNoCandidates = errors.New("no candidate urls")

// Client resolves listing and detail pages for every source. A logical
// fetch walks a source's candidate URLs in order with a hard per-URL
// timeout and returns the first success. Each source gets its own rate
// limiter so one slow search cannot hammer a tracker.
type Client struct {
	http      *http.Client
	userAgent string
	timeout   time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewClient(httpClient *http.Client, userAgent string, perURLTimeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if perURLTimeout <= 0 {
		perURLTimeout = defaultFetchWindow
	}
	return &Client{
		http:      httpClient,
		userAgent: strings.TrimSpace(userAgent),
		timeout:   perURLTimeout,
		limiters:  make(map[string]*rate.Limiter),
	}
}

func (c *Client) limiter(sourceName string, perSec float64) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if limiter, ok := c.limiters[sourceName]; ok {
		return limiter
	}
	if perSec <= 0 {
		perSec = defaultFetchLimit
	}
	burst := defaultFetchBurst
	if perSec < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(perSec), burst)
	c.limiters[sourceName] = limiter
	return limiter
}

// FetchFirst tries each candidate URL in order and returns the decoded
// body of the first that answers with HTTP 200, plus the URL that won.
func (c *Client) FetchFirst(ctx context.Context, def Definition, urls []string, cookie string) ([]byte, string, error) {
	if len(urls) == 0 {
		return nil, "", ErrNoCandidates
	}
	if err := c.limiter(def.Name, def.RequestsPerSec).Wait(ctx); err != nil {
		return nil, "", err
	}
	var lastErr error
	for _, rawURL := range urls {
		payload, err := c.fetchOne(ctx, rawURL, cookie, def.Charset)
		if err != nil {
			lastErr = err
			continue
		}
		return payload, rawURL, nil
	}
	return nil, "", lastErr
}

func (c *Client) fetchOne(ctx context.Context, rawURL, cookie, charset string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json")
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := c.doWithRetry(reqCtx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("source HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, err
	}
	return decodePayload(payload, charset), nil
}

func (c *Client) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	const maxAttempts = 3
	backoffs := []time.Duration{0, 250 * time.Millisecond, 700 * time.Millisecond}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		retryReq := req.Clone(ctx)
		resp, err := c.http.Do(retryReq)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isTransientNetworkError(err) || attempt == maxAttempts-1 {
			break
		}
		timer := time.NewTimer(backoffs[attempt+1])
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

func isTransientNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "eof") ||
		strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "handshake") ||
		strings.Contains(lower, "timeout")
}

func decodePayload(payload []byte, charset string) []byte {
	if charset != CharsetWindows1251 || utf8.Valid(payload) {
		return payload
	}
	decoded, err := charmap.Windows1251.NewDecoder().Bytes(payload)
	if err != nil {
		return payload
	}
	return decoded
}
