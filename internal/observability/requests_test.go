package observability

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"strings"
	"testing"
	"time"
)

func TestRecordRateLimitedAlertsEveryTenth(t *testing.T) {
	var buf bytes.Buffer
	obs := NewRequestObserver(log.New(&buf, "", 0))
	for i := 0; i < 10; i++ {
		obs.RecordRateLimited("10.0.0.1", time.Minute)
	}
	if obs.DenyCount("10.0.0.1") != 10 {
		t.Fatalf("expected 10 denies, got %d", obs.DenyCount("10.0.0.1"))
	}
	if strings.Count(buf.String(), "ratelimit alert") != 1 {
		t.Fatalf("expected one alert line, got:\n%s", buf.String())
	}
}

func TestRecordFailureLine(t *testing.T) {
	var buf bytes.Buffer
	obs := NewRequestObserver(log.New(&buf, "", 0))
	obs.RecordFailure("req-1", "assess", "parse", errors.New("boom"), 12*time.Millisecond)
	line := buf.String()
	for _, want := range []string{"assess outcome", "request_id=req-1", "kind=parse", "took_ms=12", `err="boom"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestNilObserverIsSafe(t *testing.T) {
	var obs *RequestObserver
	obs.RecordSuccess("r", "chat", "string", 0)
	obs.RecordRateLimited("x", 0)
	if obs.DenyCount("x") != 0 {
		t.Fatalf("expected zero deny count")
	}
}

func TestDenyCountsAreBounded(t *testing.T) {
	var buf bytes.Buffer
	obs := NewRequestObserver(log.New(&buf, "", 0))
	obs.maxTracked = 3
	for i := 0; i < 10; i++ {
		obs.RecordRateLimited(fmt.Sprintf("10.0.0.%d", i), time.Minute)
		if n := len(obs.denyCounts); n > 3 {
			t.Fatalf("expected at most 3 tracked clients, got %d", n)
		}
	}
	if !strings.Contains(buf.String(), "deny counters reset") {
		t.Fatalf("expected reset line, got:\n%s", buf.String())
	}

	obs.RecordRateLimited("10.0.0.9", time.Minute)
	if obs.DenyCount("10.0.0.9") != 2 {
		t.Fatalf("expected repeat offender to keep counting, got %d", obs.DenyCount("10.0.0.9"))
	}
}
