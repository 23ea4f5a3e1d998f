package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/NYTimes/gziphandler"

	"speakgate/internal/assess"
	"speakgate/internal/config"
	"speakgate/internal/observability"
	"speakgate/internal/prompt"
	"speakgate/internal/ratelimit"
)

const minTranscriptWords = 20

// Pipeline is the assessment and chat core the handlers delegate to.
type Pipeline interface {
	Assess(ctx context.Context, transcript string, promptID string, md prompt.Metadata) (assess.Result, error)
	Chat(ctx context.Context, message string, sessionID string, md prompt.Metadata) (assess.ChatReply, error)
}

type Handler struct {
	Config   config.Config
	Pipeline Pipeline
	Limiter  ratelimit.Limiter
	Observer *observability.RequestObserver
	Logger   *log.Logger

	// Ready reports whether backing services are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

func NewHandler(cfg config.Config, pipeline Pipeline, limiter ratelimit.Limiter, observer *observability.RequestObserver) *Handler {
	return &Handler{
		Config:   cfg,
		Pipeline: pipeline,
		Limiter:  limiter,
		Observer: observer,
		Logger:   log.Default(),
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/readyz", h.handleReady)
	mux.Handle("/api/assess", h.rateLimit(http.HandlerFunc(h.handleAssess)))
	mux.Handle("/api/chat", h.rateLimit(http.HandlerFunc(h.handleChat)))
	mux.Handle("/api/upload", h.rateLimit(http.HandlerFunc(h.handleUpload)))
	mux.Handle("/uploads/", h.rateLimit(h.uploadsFileServer()))
}

// Routes returns the full middleware chain around a fresh mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return h.recoverer(h.requestID(h.cors(gziphandler.GzipHandler(mux))))
}

func (h *Handler) logger() *log.Logger {
	if h.Logger == nil {
		return log.Default()
	}
	return h.Logger
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.Ready != nil {
		if err := h.Ready(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

type assessRequest struct {
	Transcript   string   `json:"transcript"`
	AudioURL     string   `json:"audioUrl"`
	DurationSec  *float64 `json:"durationSec"`
	PromptID     string   `json:"promptId"`
	UserLocale   string   `json:"userLocale"`
	TopicContext string   `json:"topicContext"`
	QuestionText string   `json:"questionText"`
}

func (h *Handler) handleAssess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req assessRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(strings.Fields(req.Transcript)) < minTranscriptWords {
		writeError(w, &ValidationError{Message: "Please speak at least 30 seconds or 20 words to be assessable."})
		return
	}
	promptID := strings.TrimSpace(req.PromptID)
	if promptID == "" {
		promptID = "unknown"
	}

	md := prompt.Metadata{
		AudioURL:     req.AudioURL,
		DurationSec:  req.DurationSec,
		UserLocale:   req.UserLocale,
		TopicContext: req.TopicContext,
		QuestionText: req.QuestionText,
	}
	res, err := h.Pipeline.Assess(r.Context(), req.Transcript, promptID, md)
	if err != nil {
		h.logger().Printf("assess error request_id=%s: %v", observability.RequestIDFromContext(r.Context()), err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type chatRequest struct {
	Message    string `json:"message"`
	SessionID  string `json:"sessionId"`
	UserLocale string `json:"userLocale"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req chatRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, &ValidationError{Message: "Message is required"})
		return
	}

	out, err := h.Pipeline.Chat(r.Context(), req.Message, req.SessionID, prompt.Metadata{UserLocale: req.UserLocale})
	if err != nil {
		h.logger().Printf("chat error request_id=%s: %v", observability.RequestIDFromContext(r.Context()), err)
		if statusFor(err) == http.StatusBadRequest {
			writeError(w, err)
			return
		}
		writeJSON(w, statusFor(err), map[string]any{"message": "Assistant failed. Please try again later."})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	limit := h.Config.HTTP.MaxBodyBytes
	if limit <= 0 {
		limit = 2 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &ValidationError{Status: http.StatusRequestEntityTooLarge, Message: "request body too large"}
		}
		return &ValidationError{Message: "invalid json"}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
