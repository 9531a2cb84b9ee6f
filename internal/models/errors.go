package models

import (
	"errors"
	"fmt"
)

// Domain errors surfaced to callers as distinct conditions. The mobile
// clients branch on these, so they must never be collapsed into a generic
// failure.
var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrBidNotFound     = errors.New("bid not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrReviewNotFound  = errors.New("review not found")

	// ErrForbidden means the actor is not authorized for the target entity.
	ErrForbidden = errors.New("actor is not authorized for this entity")

	// ErrDuplicateBid means a live (submitted or accepted) bid already
	// exists for the same task and tasker.
	ErrDuplicateBid = errors.New("a live bid already exists for this task and tasker")

	// ErrDuplicateReview means the task was already reviewed by this client.
	ErrDuplicateReview = errors.New("task already reviewed by this client")

	// ErrStaleVersion is the optimistic-concurrency conflict. Callers are
	// expected to re-read current state and retry.
	ErrStaleVersion = errors.New("stale version, re-read current state and retry")

	// ErrSettlementFailed means the external payment gateway rejected or
	// exhausted all settlement attempts for a payment.
	ErrSettlementFailed = errors.New("payment settlement failed")
)

// StateTransitionError reports an operation that is not valid from the
// entity's current state, naming both the current and the requested state.
type StateTransitionError struct {
	Entity    string
	Current   string
	Requested string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("invalid %s state transition: current %q, requested %q", e.Entity, e.Current, e.Requested)
}

// NewStateTransitionError builds a StateTransitionError for the given entity.
func NewStateTransitionError(entity, current, requested string) *StateTransitionError {
	return &StateTransitionError{Entity: entity, Current: current, Requested: requested}
}

// IsInvalidTransition reports whether err is a StateTransitionError.
func IsInvalidTransition(err error) bool {
	var stErr *StateTransitionError
	return errors.As(err, &stErr)
}

// ValidationError reports malformed input on a named field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
