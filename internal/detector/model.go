package detector

import (
	"fmt"
	"os"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// initRuntime initializes the process-wide ONNX runtime environment once.
func initRuntime(sharedLibrary string) error {
	ortInitOnce.Do(func() {
		if sharedLibrary != "" {
			ort.SetSharedLibraryPath(sharedLibrary)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// ModelHandle is the loaded classifier: architecture tag, its input
// resolution and an inference session with weights applied. It is built
// once at startup and read-only afterwards; concurrent forward passes are
// serialized internally because the session's output binding is shared.
type ModelHandle struct {
	modelType string
	inputSize int
	label     string
	session   *ort.DynamicAdvancedSession
	mu        sync.Mutex
}

// NewModelHandle constructs a handle for modelType and applies weights from
// checkpointPath through the loading cascade. An empty checkpointPath falls
// back to the bundled default model; if that is also absent the handle
// starts without a session and Ready reports false.
//
// A cascade exhaustion returns the (sessionless, still usable for health
// reporting) handle together with the *CheckpointLoadError, so callers can
// log it and keep the service up.
func NewModelHandle(modelType, checkpointPath, defaultModelPath, sharedLibrary string) (*ModelHandle, error) {
	if err := initRuntime(sharedLibrary); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	h := NewUnloadedHandle(modelType)

	apply := func(payload []byte) error {
		session, err := newSession(payload)
		if err != nil {
			return err
		}
		h.session = session
		return nil
	}

	if checkpointPath != "" {
		if err := resolveCheckpoint(checkpointPath, apply); err != nil {
			return h, err
		}
		return h, nil
	}

	if defaultModelPath != "" {
		if payload, err := os.ReadFile(defaultModelPath); err == nil {
			if err := apply(payload); err != nil {
				return h, fmt.Errorf("failed to load default model %q: %w", defaultModelPath, err)
			}
		}
	}
	return h, nil
}

// NewUnloadedHandle returns a handle that knows its architecture but has no
// weights applied. Inference on it reports ErrModelUnavailable; the health
// endpoint uses it to keep a degraded service observable.
func NewUnloadedHandle(modelType string) *ModelHandle {
	return &ModelHandle{
		modelType: modelType,
		inputSize: InputSizeFor(modelType),
		label:     fmt.Sprintf("SelfMAD %s", strings.ToUpper(modelType)),
	}
}

// newSession builds an inference-mode session from a weight payload. The
// CUDA execution provider is appended when available; failure to do so
// falls back to CPU silently.
func newSession(payload []byte) (*ort.DynamicAdvancedSession, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	if cudaOptions, err := ort.NewCUDAProviderOptions(); err == nil {
		if err := options.AppendExecutionProviderCUDA(cudaOptions); err == nil {
			defer cudaOptions.Destroy()
		} else {
			cudaOptions.Destroy()
		}
	}

	session, err := ort.NewDynamicAdvancedSessionWithONNXData(payload,
		[]string{"input"}, []string{"output"}, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return session, nil
}

// Ready reports whether weights were applied and inference can run.
func (h *ModelHandle) Ready() bool { return h != nil && h.session != nil }

// ModelType returns the architecture tag the handle was built for.
func (h *ModelHandle) ModelType() string { return h.modelType }

// InputSize returns the square input resolution for the architecture.
func (h *ModelHandle) InputSize() int { return h.inputSize }

// Label is the human-readable model identifier reported in results.
func (h *ModelHandle) Label() string { return h.label }

// Close releases the inference session. The handle is unusable afterwards.
func (h *ModelHandle) Close() {
	if h.session != nil {
		h.session.Destroy()
		h.session = nil
	}
}
