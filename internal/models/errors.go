package models

import "fmt"

// AuthError indicates invalid or expired credentials. It is unrecoverable
// for the run: callers surface it immediately and abort before any plan
// is built.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("authentication failed: %v", e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// ProviderError indicates a remote failure on a single provider call.
// The Executor isolates it to the failing plan entry and continues.
type ProviderError struct {
	Op  string // the provider operation that failed, e.g. "update"
	Err error
}

func (e *ProviderError) Error() string { return fmt.Sprintf("provider %s failed: %v", e.Op, e.Err) }
func (e *ProviderError) Unwrap() error { return e.Err }

// ValidationError indicates malformed Criteria or FieldChange input.
// It is raised before any remote call and aborts the run.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid input: " + e.Reason }
