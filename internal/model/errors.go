package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Dispatch error taxonomy. The dispatcher wraps collaborator failures in
// one of these sentinels so the retry policy can classify them without
// interpreting transport-specific codes. Check with errors.Is().
var (
	// ErrTransientDelivery indicates a delivery failure that may succeed
	// on retry (transport timeout, rate limit, temporary outage).
	ErrTransientDelivery = errors.New("transient delivery error")

	// ErrTerminalRecipient indicates the recipient cannot be delivered to
	// at all (no address, unknown user). Never retried.
	ErrTerminalRecipient = errors.New("terminal recipient error")

	// ErrTemplateRender indicates template rendering failed. Rendering is
	// deterministic, so retrying cannot succeed.
	ErrTemplateRender = errors.New("template render error")

	// ErrQueueUnavailable indicates an enqueue could not be persisted.
	// Callers must surface it, never swallow it.
	ErrQueueUnavailable = errors.New("queue unavailable")

	// ErrNotFound indicates a referenced record does not exist
	ErrNotFound = errors.New("record not found")
)

// TerminalError reports whether err can never succeed on retry
func TerminalError(err error) bool {
	return errors.Is(err, ErrTerminalRecipient) ||
		errors.Is(err, ErrTemplateRender) ||
		errors.Is(err, ErrNotFound)
}

// ErrorCode represents API error codes
type ErrorCode int

const (
	// Authentication errors (1xxx)
	ErrCodeUnauthorized ErrorCode = 1001

	// Resource errors (3xxx)
	ErrCodeNotFound ErrorCode = 3001

	// Validation errors (4xxx)
	ErrCodeInvalidInput ErrorCode = 4002

	// Internal errors (5xxx)
	ErrCodeInternal ErrorCode = 5001
)

// ProblemDetails represents RFC 9457 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	// Extension fields
	Code ErrorCode `json:"code,omitempty"`
}

// Error implements the error interface
func (p *ProblemDetails) Error() string {
	return fmt.Sprintf("[%d] %s: %s", p.Status, p.Title, p.Detail)
}

// WriteJSON writes the problem details as JSON response
func (p *ProblemDetails) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// Common error constructors

func NewUnauthorizedError(detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:   "https://api.jobdeck.dev/errors/unauthorized",
		Title:  "Unauthorized",
		Status: http.StatusUnauthorized,
		Detail: detail,
		Code:   ErrCodeUnauthorized,
	}
}

func NewNotFoundError(resource string) *ProblemDetails {
	return &ProblemDetails{
		Type:   "https://api.jobdeck.dev/errors/not-found",
		Title:  "Not Found",
		Status: http.StatusNotFound,
		Detail: fmt.Sprintf("%s not found", resource),
		Code:   ErrCodeNotFound,
	}
}

func NewBadRequestError(detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:   "https://api.jobdeck.dev/errors/bad-request",
		Title:  "Bad Request",
		Status: http.StatusBadRequest,
		Detail: detail,
		Code:   ErrCodeInvalidInput,
	}
}

func NewInternalError(detail string) *ProblemDetails {
	if detail == "" {
		detail = "An unexpected error occurred"
	}
	return &ProblemDetails{
		Type:   "https://api.jobdeck.dev/errors/internal",
		Title:  "Internal Server Error",
		Status: http.StatusInternalServerError,
		Detail: detail,
		Code:   ErrCodeInternal,
	}
}
