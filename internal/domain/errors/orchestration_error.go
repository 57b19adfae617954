// Package errors defines error types and classification for response orchestration.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"

	"relay-server/services/response-orchestrator/internal/domain/status"
)

// OrchestrationError represents a failure raised by the execution engine or
// the conversation state manager.
type OrchestrationError struct {
	Code           string               `json:"code"`
	Message        string               `json:"message"`
	Severity       status.ErrorSeverity `json:"severity"`
	HTTPStatus     int                  `json:"http_status,omitempty"`
	ConversationID string               `json:"conversation_id,omitempty"`
	ResponseID     string               `json:"response_id,omitempty"`
	Cause          error                `json:"-"`
	Retryable      bool                 `json:"retryable"`
	Details        map[string]any       `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *OrchestrationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *OrchestrationError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns true if the error can be retried.
func (e *OrchestrationError) IsRetryable() bool {
	return e.Retryable && e.Severity.IsRetryable()
}

// IsTerminal returns true if the error must surface without retry.
func (e *OrchestrationError) IsTerminal() bool {
	return e.Severity.IsTerminal()
}

// NewOrchestrationError creates a new orchestration error.
func NewOrchestrationError(code, message string, severity status.ErrorSeverity) *OrchestrationError {
	return &OrchestrationError{
		Code:      code,
		Message:   message,
		Severity:  severity,
		Retryable: severity.IsRetryable(),
	}
}

// WithCause adds an underlying cause to the error.
func (e *OrchestrationError) WithCause(cause error) *OrchestrationError {
	e.Cause = cause
	return e
}

// WithConversation adds the conversation id the failure belongs to.
func (e *OrchestrationError) WithConversation(conversationID string) *OrchestrationError {
	e.ConversationID = conversationID
	return e
}

// WithResponse adds the upstream response id, when one was assigned.
func (e *OrchestrationError) WithResponse(responseID string) *OrchestrationError {
	e.ResponseID = responseID
	return e
}

// WithHTTPStatus records the upstream HTTP status the failure maps to.
func (e *OrchestrationError) WithHTTPStatus(httpStatus int) *OrchestrationError {
	e.HTTPStatus = httpStatus
	return e
}

// WithDetails adds additional details to the error.
func (e *OrchestrationError) WithDetails(details map[string]any) *OrchestrationError {
	e.Details = details
	return e
}

// Taxonomy codes.
const (
	// Caller contract violations
	ErrCodeInvalidRequest = "INVALID_REQUEST"

	// Absorbed by the retry loop; callers never see this code
	ErrCodeUpstreamRetryable = "UPSTREAM_RETRYABLE"

	// Surfaced upstream failures
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamTerminal    = "UPSTREAM_TERMINAL"
	ErrCodeMidStreamFailure    = "MID_STREAM_FAILURE"

	// Conversation state failures
	ErrCodeConversationNotFound = "CONVERSATION_NOT_FOUND"
	ErrCodeOptimizerUnavailable = "OPTIMIZER_UNAVAILABLE"
)

// NewInvalidRequest reports a malformed request. Never retried.
func NewInvalidRequest(message string) *OrchestrationError {
	return NewOrchestrationError(ErrCodeInvalidRequest, message, status.ErrorSeverityTerminal)
}

// NewUpstreamRetryable wraps a transient upstream failure for the retry loop.
func NewUpstreamRetryable(cause error) *OrchestrationError {
	return NewOrchestrationError(ErrCodeUpstreamRetryable, "transient upstream failure", status.ErrorSeverityRetryable).
		WithCause(cause)
}

// NewUpstreamTerminal wraps a non-retryable upstream rejection.
func NewUpstreamTerminal(cause error) *OrchestrationError {
	return NewOrchestrationError(ErrCodeUpstreamTerminal, "upstream rejected the request", status.ErrorSeverityTerminal).
		WithCause(cause)
}

// NewUpstreamUnavailable reports exhausted retries, keeping the last cause.
func NewUpstreamUnavailable(lastErr error) *OrchestrationError {
	return NewOrchestrationError(ErrCodeUpstreamUnavailable, "upstream unavailable after retries", status.ErrorSeverityTerminal).
		WithCause(lastErr)
}

// NewConversationNotFound reports a state update against an unknown conversation.
func NewConversationNotFound(conversationID string) *OrchestrationError {
	return NewOrchestrationError(ErrCodeConversationNotFound, "conversation not found", status.ErrorSeverityTerminal).
		WithConversation(conversationID)
}

// NewOptimizerUnavailable reports optimization without a configured optimizer.
func NewOptimizerUnavailable() *OrchestrationError {
	return NewOrchestrationError(ErrCodeOptimizerUnavailable, "no context optimizer configured", status.ErrorSeverityTerminal)
}

// NewMidStreamFailure reports a stream that broke after the first chunk.
// The call is never retried: partial side effects are already in flight upstream.
func NewMidStreamFailure(cause error) *OrchestrationError {
	return NewOrchestrationError(ErrCodeMidStreamFailure, "stream terminated abnormally", status.ErrorSeverityTerminal).
		WithCause(cause)
}

// SeverityForHTTPStatus classifies an upstream HTTP status. Request timeout,
// rate limiting and server errors are transient; every other 4xx is terminal.
func SeverityForHTTPStatus(httpStatus int) status.ErrorSeverity {
	switch {
	case httpStatus == 408 || httpStatus == 429:
		return status.ErrorSeverityRetryable
	case httpStatus >= 500:
		return status.ErrorSeverityRetryable
	default:
		return status.ErrorSeverityTerminal
	}
}

// FromHTTPStatus builds the upstream error matching an HTTP failure status.
// The raw body is kept in Details for diagnostics; Message stays generic so
// upstream error text never leaks to callers.
func FromHTTPStatus(httpStatus int, body string) *OrchestrationError {
	severity := SeverityForHTTPStatus(httpStatus)
	var e *OrchestrationError
	if severity.IsRetryable() {
		e = NewOrchestrationError(ErrCodeUpstreamRetryable, fmt.Sprintf("upstream returned status %d", httpStatus), severity)
	} else {
		e = NewOrchestrationError(ErrCodeUpstreamTerminal, fmt.Sprintf("upstream returned status %d", httpStatus), severity)
	}
	e.HTTPStatus = httpStatus
	if body != "" {
		e.Details = map[string]any{"body": body}
	}
	return e
}

// HasCode reports whether err or any error in its chain carries the given code.
func HasCode(err error, code string) bool {
	var oe *OrchestrationError
	if errors.As(err, &oe) {
		return oe.Code == code
	}
	return false
}

// CodeOf returns the taxonomy code of err, or empty when err is not ours.
func CodeOf(err error) string {
	var oe *OrchestrationError
	if errors.As(err, &oe) {
		return oe.Code
	}
	return ""
}

// Classifier classifies errors into severity levels.
type Classifier struct {
	rules []ClassificationRule
}

// ClassificationRule defines a rule for classifying errors.
type ClassificationRule struct {
	Match    func(error) bool
	Severity status.ErrorSeverity
}

// NewClassifier creates a new error classifier with default rules.
func NewClassifier() *Classifier {
	c := &Classifier{}
	c.addDefaultRules()
	return c
}

// addDefaultRules adds the default classification rules.
func (c *Classifier) addDefaultRules() {
	// Cancellation ends the attempt loop immediately
	c.rules = append(c.rules, ClassificationRule{
		Match: func(err error) bool {
			return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		Severity: status.ErrorSeverityTerminal,
	})

	// Connection-level failures are transient
	c.rules = append(c.rules, ClassificationRule{
		Match: func(err error) bool {
			var netErr net.Error
			return errors.As(err, &netErr)
		},
		Severity: status.ErrorSeverityRetryable,
	})
}

// AddRule adds a classification rule.
func (c *Classifier) AddRule(rule ClassificationRule) {
	c.rules = append(c.rules, rule)
}

// Classify determines the severity of an error.
func (c *Classifier) Classify(err error) status.ErrorSeverity {
	if err == nil {
		return ""
	}

	// Already classified at the transport edge
	var oe *OrchestrationError
	if errors.As(err, &oe) {
		return oe.Severity
	}

	// Apply rules
	for _, rule := range c.rules {
		if rule.Match(err) {
			return rule.Severity
		}
	}

	// Unknown failures are treated like connection loss
	return status.ErrorSeverityRetryable
}

// Wrap wraps an error with orchestration context.
func Wrap(err error, code, message string, severity status.ErrorSeverity) *OrchestrationError {
	return &OrchestrationError{
		Code:      code,
		Message:   message,
		Severity:  severity,
		Cause:     err,
		Retryable: severity.IsRetryable(),
	}
}

// WrapRetryable wraps an error as retryable.
func WrapRetryable(err error, message string) *OrchestrationError {
	return Wrap(err, ErrCodeUpstreamRetryable, message, status.ErrorSeverityRetryable)
}

// WrapTerminal wraps an error as terminal.
func WrapTerminal(err error, message string) *OrchestrationError {
	return Wrap(err, ErrCodeUpstreamTerminal, message, status.ErrorSeverityTerminal)
}
