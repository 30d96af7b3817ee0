package model

import "fmt"

// ErrorKind classifies model-invocation failures so callers can react
// per class instead of matching on message text
type ErrorKind string

const (
	// KindDownload covers transport-level failures reaching the service
	KindDownload ErrorKind = "download"
	// KindModel covers failures reported by the model itself
	KindModel ErrorKind = "model"
	// KindMissingColumn covers flights lacking the inputs the model needs
	KindMissingColumn ErrorKind = "missing_column"
)

// Error is a tagged model-invocation error
type Error struct {
	Kind     ErrorKind
	FlightID string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("model: %s failure for flight %s: %v", e.Kind, e.FlightID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
