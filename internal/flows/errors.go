package flows

import (
	"errors"
	"fmt"
)

// ErrExpiredBeforeStore is returned by RunCreate when the new record's
// lifetime ran out before its blob could be written. CreateDeps.ExpiredErr
// replaces it when set.
var ErrExpiredBeforeStore = errors.New("session expired before it could be stored")

// StepError records which backend step failed. It unwraps to both the
// engine's infrastructure sentinel and the backend error.
type StepError struct {
	Step     string
	infraErr error
	err      error
}

func (e *StepError) Error() string {
	if e.infraErr == nil {
		return fmt.Sprintf("%s: %v", e.Step, e.err)
	}
	return fmt.Sprintf("%v: %s: %v", e.infraErr, e.Step, e.err)
}

func (e *StepError) Unwrap() []error {
	if e.infraErr == nil {
		return []error{e.err}
	}
	return []error{e.infraErr, e.err}
}

func stepErr(b Backends, step string, err error) error {
	return &StepError{Step: step, infraErr: b.InfraErr, err: err}
}
