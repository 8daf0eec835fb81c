package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"audioswarm/searchservice/internal/metrics"
)

const defaultMaxLoginAttempts = 3

var ErrLoginExhausted = errors.New("login attempts exhausted")

// Session is the per-source login state machine. A cookie, once
// obtained, is reused for the process lifetime. Failed handshakes are
// retried at most MaxAttempts times in total; after that every caller
// short-circuits without touching the network and the source runs
// unauthenticated.
type Session struct {
	name      string
	spec      LoginSpec
	client    *http.Client
	userAgent string

	group    singleflight.Group
	mu       sync.Mutex
	cookie   string
	attempts int
}

func NewSession(name string, spec LoginSpec, client *http.Client, userAgent string) *Session {
	if client == nil {
		client = &http.Client{}
	}
	if spec.MaxAttempts <= 0 {
		spec.MaxAttempts = defaultMaxLoginAttempts
	}
	return &Session{
		name:      name,
		spec:      spec,
		client:    client,
		userAgent: strings.TrimSpace(userAgent),
	}
}

// Cookie returns the cached session cookie, running the login
// handshake lazily on first use. Concurrent callers share a single
// in-flight attempt, so a burst of searches cannot burn through the
// attempt budget.
func (s *Session) Cookie(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.cookie != "" {
		cookie := s.cookie
		s.mu.Unlock()
		return cookie, nil
	}
	if s.attempts >= s.spec.MaxAttempts {
		s.mu.Unlock()
		return "", ErrLoginExhausted
	}
	s.mu.Unlock()

	value, err, _ := s.group.Do("login", func() (any, error) {
		s.mu.Lock()
		if s.cookie != "" {
			cookie := s.cookie
			s.mu.Unlock()
			return cookie, nil
		}
		if s.attempts >= s.spec.MaxAttempts {
			s.mu.Unlock()
			return "", ErrLoginExhausted
		}
		s.attempts++
		s.mu.Unlock()

		cookie, loginErr := s.authenticate(ctx)
		if loginErr != nil {
			metrics.LoginAttemptsTotal.WithLabelValues(s.name, "error").Inc()
			slog.Warn("source login failed",
				slog.String("source", s.name),
				slog.String("error", loginErr.Error()),
			)
			return "", loginErr
		}
		metrics.LoginAttemptsTotal.WithLabelValues(s.name, "ok").Inc()
		slog.Info("source login succeeded", slog.String("source", s.name))

		s.mu.Lock()
		s.cookie = cookie
		s.mu.Unlock()
		return cookie, nil
	})
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cookie != ""
}

func (s *Session) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// authenticate runs the two-step handshake. Step one fetches the login
// page; a response without cookies means the tracker is refusing bots
// and the attempt fails outright. Step two posts credentials with the
// bootstrap cookie attached; fewer than two cookies back means wrong
// credentials or an anti-bot challenge.
func (s *Session) authenticate(ctx context.Context) (string, error) {
	client := s.redirectlessClient()

	pageReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.spec.PageURL, nil)
	if err != nil {
		return "", err
	}
	s.setHeaders(pageReq)
	pageResp, err := client.Do(pageReq)
	if err != nil {
		return "", fmt.Errorf("login page fetch: %w", err)
	}
	io.Copy(io.Discard, io.LimitReader(pageResp.Body, maxPayloadBytes))
	pageResp.Body.Close()
	if pageResp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("login page HTTP %d", pageResp.StatusCode)
	}
	bootstrap := pageResp.Cookies()
	if len(bootstrap) == 0 {
		return "", errors.New("login page returned no session cookie")
	}

	form := url.Values{}
	for key, value := range s.spec.Form {
		form.Set(key, value)
	}
	form.Set(s.spec.UserField, s.spec.Username)
	form.Set(s.spec.PassField, s.spec.Password)

	submitReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.spec.SubmitURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	s.setHeaders(submitReq)
	submitReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	submitReq.Header.Set("Cookie", cookieHeader(bootstrap))

	submitResp, err := client.Do(submitReq)
	if err != nil {
		return "", fmt.Errorf("login submit: %w", err)
	}
	io.Copy(io.Discard, io.LimitReader(submitResp.Body, maxPayloadBytes))
	submitResp.Body.Close()
	if submitResp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("login submit HTTP %d", submitResp.StatusCode)
	}
	granted := submitResp.Cookies()
	if len(granted) < 2 {
		return "", fmt.Errorf("login rejected: %d cookies returned", len(granted))
	}

	return mergeCookies(bootstrap, granted), nil
}

// redirectlessClient keeps Set-Cookie headers visible: a post-login
// redirect would otherwise swallow them.
func (s *Session) redirectlessClient() *http.Client {
	client := *s.client
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &client
}

func (s *Session) setHeaders(req *http.Request) {
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
}

func cookieHeader(cookies []*http.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, cookie := range cookies {
		if cookie.Name == "" {
			continue
		}
		parts = append(parts, cookie.Name+"="+cookie.Value)
	}
	return strings.Join(parts, "; ")
}

// mergeCookies joins cookie groups into one header value; later groups
// win on name collisions, first-seen order is kept.
func mergeCookies(groups ...[]*http.Cookie) string {
	order := make([]string, 0, 4)
	values := make(map[string]string, 4)
	for _, group := range groups {
		for _, cookie := range group {
			if cookie.Name == "" {
				continue
			}
			if _, exists := values[cookie.Name]; !exists {
				order = append(order, cookie.Name)
			}
			values[cookie.Name] = cookie.Value
		}
	}
	parts := make([]string, 0, len(order))
	for _, name := range order {
		parts = append(parts, name+"="+values[name])
	}
	return strings.Join(parts, "; ")
}
