package backup

import (
	"errors"
	"fmt"
)

// ErrDirectoryUnavailable means the repository listing itself failed. The
// whole run aborts and the summary carries the error with zero outcomes.
var ErrDirectoryUnavailable = errors.New("repository listing unavailable")

// Step identifies where inside a single-repository backup a failure happened.
type Step string

const (
	StepClone   Step = "clone"
	StepArchive Step = "archive"
	StepFolder  Step = "folder"
	StepUpload  Step = "upload"
)

// StepError wraps a per-repository failure with the step that produced it.
// Step errors never abort the run; they become the outcome's error message.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
