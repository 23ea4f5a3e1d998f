package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"speakgate/internal/provider"
)

type TaskKind string

const (
	TaskAssessment TaskKind = "assessment"
	TaskChat       TaskKind = "chat"
)

const (
	DefaultAssessTimeout = 30 * time.Second
	DefaultChatTimeout   = 20 * time.Second

	maxErrorBody = 8 << 10
)

// Generator sends one prompt to the provider and returns the raw envelope.
type Generator interface {
	Generate(ctx context.Context, target provider.Target, task TaskKind, prompt string) ([]byte, error)
}

// UpstreamError reports a failed provider call. It never carries the request URL.
type UpstreamError struct {
	Task       TaskKind
	StatusCode int
	Timeout    bool
	Message    string
	Body       string
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s request failed: %s", e.Task, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s request failed: http %d: %s", e.Task, e.StatusCode, e.Message)
	}
	if e.Body != "" {
		msg += " - response: " + e.Body
	}
	return msg
}

type Client struct {
	HTTP          *http.Client
	AssessTimeout time.Duration
	ChatTimeout   time.Duration
}

func NewClient(assessTimeout, chatTimeout time.Duration) *Client {
	if assessTimeout <= 0 {
		assessTimeout = DefaultAssessTimeout
	}
	if chatTimeout <= 0 {
		chatTimeout = DefaultChatTimeout
	}
	return &Client{
		HTTP:          &http.Client{},
		AssessTimeout: assessTimeout,
		ChatTimeout:   chatTimeout,
	}
}

func (c *Client) timeout(task TaskKind) time.Duration {
	if task == TaskChat {
		return c.ChatTimeout
	}
	return c.AssessTimeout
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

func Payload(prompt string) ([]byte, error) {
	return json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
}

func (c *Client) Generate(ctx context.Context, target provider.Target, task TaskKind, prompt string) ([]byte, error) {
	timeout := c.timeout(task)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := Payload(prompt)
	if err != nil {
		return nil, &UpstreamError{Task: task, Message: err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, bytes.NewReader(body))
	if err != nil {
		return nil, &UpstreamError{Task: task, Message: target.Scrub(transportMessage(err))}
	}
	for key, values := range target.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &UpstreamError{Task: task, Timeout: true, Message: fmt.Sprintf("timeout of %s exceeded", timeout)}
		}
		return nil, &UpstreamError{Task: task, Message: target.Scrub(transportMessage(err))}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &UpstreamError{Task: task, StatusCode: resp.StatusCode, Timeout: true, Message: fmt.Sprintf("timeout of %s exceeded", timeout)}
		}
		return nil, &UpstreamError{Task: task, StatusCode: resp.StatusCode, Message: target.Scrub(transportMessage(err))}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{
			Task:       task,
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       target.Scrub(truncate(string(raw), maxErrorBody)),
		}
	}
	return raw, nil
}

// transportMessage drops the request URL that net/http puts into *url.Error.
func transportMessage(err error) string {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err.Error()
	}
	return err.Error()
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
