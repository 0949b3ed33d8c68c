package pipeline

import (
	"context"
	"errors"
	"fmt"

	apperrors "video-redub/pkg/errors"
)

// SynthesisError is raised when a segment could not be synthesized within the
// retry budget. It carries everything needed to reproduce the call.
type SynthesisError struct {
	Segment  int
	Text     string
	Voice    string
	Rate     string
	Attempts int
	Err      error
}

func (e *SynthesisError) Error() string {
	rate := e.Rate
	if rate == "" {
		rate = "default"
	}
	return fmt.Sprintf("synthesize segment %d failed after %d attempts (voice=%s rate=%s text=%q): %v",
		e.Segment, e.Attempts, e.Voice, rate, e.Text, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// stageError tags err with the stage it happened in. Cancellation keeps its
// own code so callers can tell an abort from a failure.
func stageError(stage Stage, code int, message, detail string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		code, message = apperrors.CodeCanceled, apperrors.ErrCanceled.Message
	}
	full := "stage=" + stage.String()
	if detail != "" {
		full += " " + detail
	}
	return apperrors.WrapWithDetail(code, message, full, err)
}
