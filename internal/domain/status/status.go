// Package status defines the conversation lifecycle and error severity types.
package status

import "errors"

// Status represents the lifecycle status of a conversation.
type Status string

const (
	// StatusCreated means the conversation exists but no turn has completed.
	StatusCreated Status = "created"
	// StatusActive means at least one turn has completed.
	StatusActive Status = "active"
	// StatusOptimized means the context optimizer truncated or scored the
	// conversation since the last completed turn.
	StatusOptimized Status = "optimized"
)

// ErrInvalidTransition is returned when a status transition is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsOptimized returns true if the optimizer acted on the conversation more
// recently than any completed turn.
func (s Status) IsOptimized() bool {
	return s == StatusOptimized
}

// ValidTransitions defines allowed status transitions. A completed turn moves
// any state to active; optimization moves any state to optimized. There is no
// terminal state: deletion and expiry belong to the store, not the lifecycle.
var ValidTransitions = map[Status][]Status{
	StatusCreated:   {StatusActive, StatusOptimized},
	StatusActive:    {StatusActive, StatusOptimized},
	StatusOptimized: {StatusActive, StatusOptimized},
}

// CanTransitionTo checks if a transition from current status to target status is valid.
func (s Status) CanTransitionTo(target Status) bool {
	validTargets, ok := ValidTransitions[s]
	if !ok {
		return false
	}
	for _, t := range validTargets {
		if t == target {
			return true
		}
	}
	return false
}

// TransitionTo attempts to transition to the target status and returns error if invalid.
func (s Status) TransitionTo(target Status) (Status, error) {
	if !s.CanTransitionTo(target) {
		return s, ErrInvalidTransition
	}
	return target, nil
}

// ErrorSeverity indicates how a failed operation should be handled.
type ErrorSeverity string

const (
	ErrorSeverityRetryable ErrorSeverity = "retryable" // Retry with backoff
	ErrorSeverityTerminal  ErrorSeverity = "terminal"  // Surface immediately, no retry
)

// String returns the string representation of the error severity.
func (e ErrorSeverity) String() string {
	return string(e)
}

// IsRetryable returns true if the error can be retried.
func (e ErrorSeverity) IsRetryable() bool {
	return e == ErrorSeverityRetryable
}

// IsTerminal returns true if the error must surface without retry.
func (e ErrorSeverity) IsTerminal() bool {
	return e == ErrorSeverityTerminal
}
