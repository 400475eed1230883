package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound           = errors.New("resource not found")
	ErrHypothesisNotFound = fmt.Errorf("%w: hypothesis", ErrNotFound)
	ErrRunNotFound        = fmt.Errorf("%w: run", ErrNotFound)
	ErrPlanNotFound       = fmt.Errorf("%w: plan", ErrNotFound)

	// Budget errors
	ErrBudgetExceeded = errors.New("budget exceeded")

	// LLM errors
	ErrAPIFailure       = errors.New("llm api failure")
	ErrScoreParse       = errors.New("reviewer score unparseable")
	ErrGenerationFailed = errors.New("idea generation failed")
	ErrReviewFailed     = errors.New("review failed")

	// Validation errors
	ErrValidation        = errors.New("validation failed")
	ErrHypothesisFrozen  = errors.New("hypothesis is accepted and immutable")
	ErrRoundLimitReached = errors.New("refinement round limit reached")

	// Determinism errors
	ErrSeedMismatch = errors.New("seed mismatch")
)

// Error constructors with context
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w for %s: %s", ErrValidation, field, reason)
}

func NewBudgetError(cap string, used, limit float64) error {
	return fmt.Errorf("%w: %s cap (used %.0f of %.0f)", ErrBudgetExceeded, cap, used, limit)
}

func NewAPIError(attempts int, err error) error {
	return fmt.Errorf("%w after %d attempts: %v", ErrAPIFailure, attempts, err)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsBudgetError(err error) bool {
	return errors.Is(err, ErrBudgetExceeded)
}

func IsAPIError(err error) bool {
	return errors.Is(err, ErrAPIFailure)
}
