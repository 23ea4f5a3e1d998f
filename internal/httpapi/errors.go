package httpapi

import (
	"errors"
	"net/http"

	"speakgate/internal/assess"
	"speakgate/internal/llm"
	"speakgate/internal/recovery"
)

// ValidationError is a client input problem reported before the pipeline runs.
type ValidationError struct {
	Status  int
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func statusFor(err error) int {
	var validation *ValidationError
	var upstream *llm.UpstreamError
	var parse *recovery.ParseError
	var shape *assess.ShapeError
	switch {
	case errors.As(err, &validation):
		if validation.Status != 0 {
			return validation.Status
		}
		return http.StatusBadRequest
	case errors.Is(err, assess.ErrMissingInput):
		return http.StatusBadRequest
	case errors.As(err, &upstream):
		if upstream.Timeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case errors.As(err, &parse), errors.As(err, &shape):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) string {
	var shape *assess.ShapeError
	switch {
	case errors.As(err, &shape):
		return "Model returned unexpected output"
	case statusFor(err) == http.StatusInternalServerError:
		return "Failed to assess. Please try again later."
	default:
		return err.Error()
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]any{"message": messageFor(err)})
}
