package errorvalues

import "errors"

var (
	ErrConfigDecode     = errors.New("widget config is invalid")
	ErrValidation       = errors.New("validation failed")
	ErrUpstream         = errors.New("upstream request failed")
	ErrPayloadTooLarge  = errors.New("payload too large")
	ErrInvalidPayload   = errors.New("invalid payload")
	ErrStoreUnavailable = errors.New("persistent store unavailable")

	ErrNoRoutines         = errors.New("no routines configured")
	ErrRoutineNotStarted  = errors.New("routine not started")
	ErrRoutineFinished    = errors.New("all routines are finished")
	ErrRoutineIndex       = errors.New("routine index out of range")
	ErrWizardStep         = errors.New("action not available at this step")
	ErrNoDatabaseSelected = errors.New("no database selected")
)

// ValidationError names the request field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return "missing required field: " + e.Field
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
