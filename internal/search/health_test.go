package search

import (
	"errors"
	"testing"
	"time"
)

func TestSourceBlockedAfterConsecutiveFailures(t *testing.T) {
	service := NewService(nil, testOptions())
	now := time.Now()
	failure := errors.New("HTTP 502")

	for i := 0; i < sourceFailureThreshold-1; i++ {
		service.recordSourceResult("jsonbay", failure, 10*time.Millisecond, now)
		if blocked, _, _ := service.isSourceBlocked("jsonbay", now); blocked {
			t.Fatalf("blocked after only %d failures", i+1)
		}
	}

	service.recordSourceResult("jsonbay", failure, 10*time.Millisecond, now)
	blocked, until, lastErr := service.isSourceBlocked("jsonbay", now)
	if !blocked {
		t.Fatalf("expected block after %d failures", sourceFailureThreshold)
	}
	if until.Before(now.Add(sourceBlockBase)) {
		t.Fatalf("block window too short: %v", until.Sub(now))
	}
	if lastErr == "" {
		t.Fatalf("block must carry the last error")
	}

	if stillBlocked, _, _ := service.isSourceBlocked("jsonbay", until.Add(time.Second)); stillBlocked {
		t.Fatalf("block must lift after its window")
	}
}

func TestSourceSuccessResetsFailures(t *testing.T) {
	service := NewService(nil, testOptions())
	now := time.Now()
	failure := errors.New("boom")

	for i := 0; i < sourceFailureThreshold; i++ {
		service.recordSourceResult("jsonbay", failure, time.Millisecond, now)
	}
	service.recordSourceResult("jsonbay", nil, time.Millisecond, now)

	if blocked, _, _ := service.isSourceBlocked("jsonbay", now); blocked {
		t.Fatalf("success must clear the block")
	}
	for i := 0; i < sourceFailureThreshold-1; i++ {
		service.recordSourceResult("jsonbay", failure, time.Millisecond, now)
	}
	if blocked, _, _ := service.isSourceBlocked("jsonbay", now); blocked {
		t.Fatalf("failure count must restart after a success")
	}
}

func TestExponentialBlockDuration(t *testing.T) {
	if d := exponentialBlockDuration(sourceFailureThreshold); d != sourceBlockBase {
		t.Fatalf("threshold failures: got %v, want %v", d, sourceBlockBase)
	}
	if d := exponentialBlockDuration(sourceFailureThreshold + 1); d != 2*sourceBlockBase {
		t.Fatalf("threshold+1 failures: got %v, want %v", d, 2*sourceBlockBase)
	}
	if d := exponentialBlockDuration(sourceFailureThreshold + 10); d != sourceBlockMax {
		t.Fatalf("deep failure streak must cap at %v, got %v", sourceBlockMax, d)
	}
}

func TestSourceDiagnostics(t *testing.T) {
	src := &fakeSource{name: "jsonbay"}
	service := NewService([]Source{src}, testOptions())
	now := time.Now()
	service.recordSourceResult("jsonbay", errors.New("boom"), 42*time.Millisecond, now)

	items := service.SourceDiagnostics()
	if len(items) != 1 {
		t.Fatalf("expected 1 diagnostic entry, got %d", len(items))
	}
	entry := items[0]
	if entry.Name != "jsonbay" || !entry.Enabled {
		t.Fatalf("unexpected entry: %#v", entry)
	}
	if entry.ConsecutiveFailures != 1 || entry.TotalFailures != 1 || entry.TotalRequests != 1 {
		t.Fatalf("failure accounting wrong: %#v", entry)
	}
	if entry.LastError != "boom" {
		t.Fatalf("last error missing: %#v", entry)
	}
	if entry.LastLatencyMS != 42 {
		t.Fatalf("latency not recorded: %#v", entry)
	}
}
