package upload

import (
	"errors"
	"fmt"
)

var (
	// ErrAmbiguous marks a submission whose outcome is unknown. The
	// transaction may have been accepted; query its status before rebuilding.
	ErrAmbiguous = errors.New("upload: submission outcome unknown")
	// ErrAlreadyUploaded is returned when the journal already holds the blob
	// and Config.Force is not set.
	ErrAlreadyUploaded = errors.New("upload: file already uploaded")
)

// StepError reports the stage at which an upload failed.
type StepError struct {
	Stage Stage
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage.step(), e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// AmbiguousError carries the identity of a transaction whose submission
// outcome is unknown. It matches ErrAmbiguous under errors.Is.
type AmbiguousError struct {
	TransactionID string
	IntentHash    string
	Err           error
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("submission of %s may or may not have been accepted: %v", e.TransactionID, e.Err)
}

func (e *AmbiguousError) Unwrap() error { return e.Err }

func (e *AmbiguousError) Is(target error) bool { return target == ErrAmbiguous }

// FailedStage returns the stage recorded in err, if any.
func FailedStage(err error) (Stage, bool) {
	var se *StepError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return 0, false
}
