package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"speakgate/internal/provider"
)

func TestGenerateSendsWireEnvelope(t *testing.T) {
	var gotBody map[string]any
	var gotAuth, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		_, _ = w.Write([]byte(`{"output_text":"hi"}`))
	}))
	defer srv.Close()

	target, err := provider.Resolve(srv.URL+"/generate", "tok")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	raw, err := NewClient(0, 0).Generate(context.Background(), target, TaskChat, "hello prompt")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if string(raw) != `{"output_text":"hi"}` {
		t.Fatalf("unexpected raw body %s", raw)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
	if gotType != "application/json" {
		t.Fatalf("expected json content type, got %q", gotType)
	}
	contents := gotBody["contents"].([]any)
	parts := contents[0].(map[string]any)["parts"].([]any)
	if text := parts[0].(map[string]any)["text"]; text != "hello prompt" {
		t.Fatalf("expected prompt in parts, got %v", text)
	}
}

func TestGenerateNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"API key not valid: ` + r.URL.Query().Get("key") + `"}}`))
	}))
	defer srv.Close()

	// httptest URLs never match the query-key marker; attach the key by hand.
	target, _ := provider.Resolve(srv.URL+"/x", "sekrit")
	target.URL += "?key=sekrit"

	_, err := NewClient(0, 0).Generate(context.Background(), target, TaskAssessment, "p")
	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if upErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", upErr.StatusCode)
	}
	if !strings.Contains(upErr.Body, "API key not valid") {
		t.Fatalf("expected provider body for diagnostics, got %q", upErr.Body)
	}
	if strings.Contains(err.Error(), "sekrit") {
		t.Fatalf("error leaks credential: %v", err)
	}
}

func TestGenerateTransportErrorOmitsURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	target, _ := provider.Resolve(addr+"/x", "sekrit")
	target.URL += "?key=sekrit"
	_, err := NewClient(0, 0).Generate(context.Background(), target, TaskChat, "p")
	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if strings.Contains(err.Error(), "sekrit") || strings.Contains(err.Error(), addr) {
		t.Fatalf("error leaks url: %v", err)
	}
}

func TestGenerateTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	target, _ := provider.Resolve(srv.URL, "tok")
	client := NewClient(50*time.Millisecond, 50*time.Millisecond)

	start := time.Now()
	_, err := client.Generate(context.Background(), target, TaskAssessment, "p")
	elapsed := time.Since(start)

	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if !upErr.Timeout {
		t.Fatalf("expected timeout flag, got %+v", upErr)
	}
	if elapsed > 2*time.Second {
		t.Fatalf("expected timeout near 50ms, took %s", elapsed)
	}
}

func TestTaskTimeouts(t *testing.T) {
	c := NewClient(0, 0)
	if c.timeout(TaskAssessment) != 30*time.Second {
		t.Fatalf("expected 30s assessment timeout")
	}
	if c.timeout(TaskChat) != 20*time.Second {
		t.Fatalf("expected 20s chat timeout")
	}
}
