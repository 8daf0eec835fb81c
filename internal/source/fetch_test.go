package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchFirstFallsBackToMirror(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer dead.Close()

	alive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("user agent not set: %q", r.Header.Get("User-Agent"))
		}
		if r.Header.Get("Cookie") != "session=abc" {
			t.Errorf("cookie not forwarded: %q", r.Header.Get("Cookie"))
		}
		w.Write([]byte("payload"))
	}))
	defer alive.Close()

	client := NewClient(alive.Client(), "test-agent", time.Second)
	def := Definition{Name: "mirrored", RequestsPerSec: 100}

	payload, winner, err := client.FetchFirst(context.Background(), def, []string{dead.URL, alive.URL}, "session=abc")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if string(payload) != "payload" {
		t.Fatalf("unexpected payload %q", payload)
	}
	if winner != alive.URL {
		t.Fatalf("winning url must be the live mirror, got %q", winner)
	}
}

func TestFetchFirstAllMirrorsDown(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer dead.Close()

	client := NewClient(dead.Client(), "", time.Second)
	def := Definition{Name: "down", RequestsPerSec: 100}

	_, _, err := client.FetchFirst(context.Background(), def, []string{dead.URL}, "")
	if err == nil {
		t.Fatalf("expected an error when every mirror fails")
	}
}

func TestFetchFirstNoCandidates(t *testing.T) {
	client := NewClient(nil, "", time.Second)
	_, _, err := client.FetchFirst(context.Background(), Definition{Name: "empty"}, nil, "")
	if !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
}

func TestIsTransientNetworkError(t *testing.T) {
	if isTransientNetworkError(nil) {
		t.Fatalf("nil is not transient")
	}
	if !isTransientNetworkError(errors.New("read tcp: connection reset by peer")) {
		t.Fatalf("connection reset is transient")
	}
	if isTransientNetworkError(errors.New("source HTTP 403: forbidden")) {
		t.Fatalf("http status errors are permanent")
	}
}
