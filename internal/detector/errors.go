package detector

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedImage marks input that cannot be decoded into a 3-channel
// raster. Maps to a client error at the HTTP layer.
var ErrUnsupportedImage = errors.New("unsupported image")

// ErrModelUnavailable is returned when inference is requested on a handle
// that has no weights applied (degraded startup).
var ErrModelUnavailable = errors.New("model not initialized")

// InferenceError wraps a numeric or shape failure during the forward pass.
type InferenceError struct {
	Reason string
	Err    error
}

func (e *InferenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("inference failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("inference failed: %s", e.Reason)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// CheckpointLoadError reports that every loading strategy was exhausted. It
// keeps the per-strategy failure reasons for diagnostics.
type CheckpointLoadError struct {
	Path     string
	Attempts []error
}

func (e *CheckpointLoadError) Error() string {
	reasons := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		reasons = append(reasons, a.Error())
	}
	return fmt.Sprintf("failed to load checkpoint %q: all strategies exhausted: [%s]",
		e.Path, strings.Join(reasons, "; "))
}
