package detector

import (
	"math"

	ort "github.com/yalue/onnxruntime_go"
)

// Infer runs one read-only forward pass over a preprocessed tensor and
// extracts the raw class scores. No parameters are mutated; passes are
// serialized on the handle's mutex.
func (h *ModelHandle) Infer(t PreprocessedTensor) (RawScores, error) {
	if !h.Ready() {
		return RawScores{}, ErrModelUnavailable
	}

	shape := ort.NewShape(1, 3, int64(t.Size), int64(t.Size))
	input, err := ort.NewTensor(shape, t.Data)
	if err != nil {
		return RawScores{}, &InferenceError{Reason: "failed to create input tensor", Err: err}
	}
	defer input.Destroy()

	h.mu.Lock()
	outputs := []ort.Value{nil}
	err = h.session.Run([]ort.Value{input}, outputs)
	h.mu.Unlock()
	if err != nil {
		return RawScores{}, &InferenceError{Reason: "forward pass failed", Err: err}
	}
	defer outputs[0].Destroy()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return RawScores{}, &InferenceError{Reason: "output is not a float32 tensor"}
	}
	return extractScores(out.GetData())
}

// extractScores reads raw class scores out of a flattened output vector.
// Two or more values: index 0 is genuine, index 1 is morphed, the rest are
// ignored. A single value is a degraded output where only the morphed logit
// exists. Anything non-finite is an inference failure, not a result.
func extractScores(output []float32) (RawScores, error) {
	switch {
	case len(output) >= 2:
		scores := RawScores{
			Genuine: float64(output[0]),
			Morphed: float64(output[1]),
		}
		if !finite(scores.Genuine) || !finite(scores.Morphed) {
			return RawScores{}, &InferenceError{Reason: "non-finite class scores"}
		}
		return scores, nil
	case len(output) == 1:
		scores := RawScores{Morphed: float64(output[0]), Degraded: true}
		if !finite(scores.Morphed) {
			return RawScores{}, &InferenceError{Reason: "non-finite scalar score"}
		}
		return scores, nil
	default:
		return RawScores{}, &InferenceError{Reason: "empty model output"}
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
