package detector

import (
	"time"

	"go.uber.org/zap"
)

// Detector drives the analysis pipeline: decode, preprocess, forward pass,
// interpretation. The handle is injected once and shared read-only.
type Detector struct {
	handle *ModelHandle
	log    *zap.Logger
}

func New(handle *ModelHandle, log *zap.Logger) *Detector {
	return &Detector{handle: handle, log: log}
}

// Ready reports whether the underlying model has weights applied.
func (d *Detector) Ready() bool { return d.handle.Ready() }

// ModelType returns the architecture tag in use.
func (d *Detector) ModelType() string { return d.handle.ModelType() }

// Detect classifies a single image supplied as raw bytes.
func (d *Detector) Detect(data []byte) (*Analysis, error) {
	start := time.Now()

	img, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}

	tensor := Preprocess(img, d.handle.InputSize())

	scores, err := d.handle.Infer(tensor)
	if err != nil {
		return nil, err
	}
	if scores.Degraded {
		d.log.Warn("model produced a scalar output, using degraded single-logit path",
			zap.Float64("raw_logit", scores.Morphed))
	}

	result, interp := Interpret(scores, d.handle.Label())

	analysis := &Analysis{
		Result:           result,
		Interpretation:   interp,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
		Timestamp:        time.Now().UTC(),
	}

	d.log.Info("analysis completed",
		zap.String("class", result.ClassName),
		zap.Float64("raw_logit", result.RawLogit),
		zap.String("risk", string(interp.RiskLevel)),
		zap.Int64("processing_time_ms", analysis.ProcessingTimeMS))

	return analysis, nil
}
