package domain

import (
	"errors"
	"fmt"
)

// ErrUnsupportedDocType marks a classified document type with no registered
// extractor. A known limitation, not a reliability failure: the pipeline
// reports it as a terminal error without escalating.
var ErrUnsupportedDocType = errors.New("unsupported document type")

// DecodeError means the uploaded bytes could not be decoded as an image.
// Terminal, never retried. UserMessage is safe to show to the end user.
type DecodeError struct {
	Err         error
	UserMessage string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ModelLoadError means the inference backend failed to load a model.
// The gateway's active-model slot is left in a degraded state (the previous
// model was already unloaded); callers must treat the current run as failed.
type ModelLoadError struct {
	Model string
	Err   error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("loading model %s: %v", e.Model, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// ParseError means the model's text output could not be decoded into the
// expected structured payload, even after stripping markdown fences and
// trailing commas. Each stage retries once with a corrective prompt before
// letting a ParseError propagate.
type ParseError struct {
	Err       error
	RawOutput string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing model output: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// BackendError is a transport-level failure talking to the inference
// backend. Timeout is set when the call exceeded its deadline; retry and
// escalation policy treat timeouts and other backend failures identically.
type BackendError struct {
	Model   string
	Err     error
	Timeout bool
}

func (e *BackendError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("inference backend timeout (model %s): %v", e.Model, e.Err)
	}
	return fmt.Sprintf("inference backend error (model %s): %v", e.Model, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
