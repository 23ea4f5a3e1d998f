package assess

import (
	"context"
	"errors"
	"strings"
	"time"

	"speakgate/internal/envelope"
	"speakgate/internal/llm"
	"speakgate/internal/observability"
	"speakgate/internal/prompt"
	"speakgate/internal/provider"
	"speakgate/internal/recovery"
)

// Service runs the assessment and chat pipelines. It holds no per-request
// state and is safe for concurrent use.
type Service struct {
	Target   provider.Target
	LLM      llm.Generator
	Observer *observability.RequestObserver
	Now      func() time.Time
}

func NewService(target provider.Target, generator llm.Generator, observer *observability.RequestObserver) *Service {
	return &Service{
		Target:   target,
		LLM:      generator,
		Observer: observer,
		Now:      time.Now,
	}
}

func (s *Service) Assess(ctx context.Context, transcript string, promptID string, md prompt.Metadata) (Result, error) {
	if strings.TrimSpace(transcript) == "" {
		return Result{}, ErrMissingInput
	}
	start := s.Now()
	requestID := observability.RequestIDFromContext(ctx)

	raw, err := s.LLM.Generate(ctx, s.Target, llm.TaskAssessment, prompt.Assessment(transcript, promptID, md))
	if err != nil {
		s.Observer.RecordFailure(requestID, "assess", ErrorKind(err), err, s.Now().Sub(start))
		return Result{}, err
	}

	env := envelope.Classify(raw)
	fields, err := recovery.ParseObject(env.Text)
	if err != nil {
		s.Observer.RecordFailure(requestID, "assess", ErrorKind(err), err, s.Now().Sub(start))
		return Result{}, err
	}
	res, err := AssembleAssessment(fields, env.Text)
	if err != nil {
		s.Observer.RecordFailure(requestID, "assess", ErrorKind(err), err, s.Now().Sub(start))
		return Result{}, err
	}

	s.Observer.RecordAdjustments(requestID, res.Adjustments)
	s.Observer.RecordSuccess(requestID, "assess", env.Kind.String(), s.Now().Sub(start))
	return res, nil
}

// Chat sends one tutoring turn. The session id is accepted for the caller's
// bookkeeping; the pipeline keeps no session state.
func (s *Service) Chat(ctx context.Context, message string, _ string, md prompt.Metadata) (ChatReply, error) {
	if strings.TrimSpace(message) == "" {
		return ChatReply{}, ErrMissingInput
	}
	start := s.Now()
	requestID := observability.RequestIDFromContext(ctx)

	raw, err := s.LLM.Generate(ctx, s.Target, llm.TaskChat, prompt.Chat(message, md))
	if err != nil {
		s.Observer.RecordFailure(requestID, "chat", ErrorKind(err), err, s.Now().Sub(start))
		return ChatReply{}, err
	}

	env := envelope.Classify(raw)
	s.Observer.RecordSuccess(requestID, "chat", env.Kind.String(), s.Now().Sub(start))
	return AssembleChat(env.Text, raw), nil
}

// ErrorKind names the failure class of a pipeline error for logs and metrics.
func ErrorKind(err error) string {
	var upErr *llm.UpstreamError
	var parseErr *recovery.ParseError
	var shapeErr *ShapeError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &upErr):
		if upErr.Timeout {
			return "upstream_timeout"
		}
		return "upstream"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &shapeErr):
		return "bad_shape"
	case errors.Is(err, ErrMissingInput):
		return "missing_input"
	default:
		return "internal"
	}
}
