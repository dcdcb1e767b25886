package detector

import "time"

// Class indices produced by the SelfMAD classifier.
const (
	ClassGenuine = 0
	ClassMorphed = 1
)

const (
	ClassNameGenuine = "GENUINE"
	ClassNameMorphed = "MORPHED"
)

// RiskLevel is the discrete severity band derived from the morphed-class
// probability.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RawScores holds the class logits from one forward pass. Index 0 is
// genuine, index 1 is morphed. Degraded marks the scalar-output path where
// the model produced a single value: Morphed carries it and Genuine is
// meaningless.
type RawScores struct {
	Genuine  float64
	Morphed  float64
	Degraded bool
}

// DetectionResult is the raw model output plus its class reading. Immutable
// once constructed.
type DetectionResult struct {
	RawLogit       float64 `json:"raw_logit"`
	PredictedClass int     `json:"predicted_class"`
	ProbMorphed    float64 `json:"prob_morphed"`
	ClassName      string  `json:"class_name"`
	Model          string  `json:"model"`
}

// Interpretation is the presentation-facing risk reading. IsMorphed comes
// from the predicted class while RiskLevel comes from the probability; the
// two can disagree near the decision boundary and both are reported as-is.
type Interpretation struct {
	IsMorphed  bool      `json:"is_morphed"`
	RiskLevel  RiskLevel `json:"risk_level"`
	Confidence float64   `json:"confidence"`
}

// Analysis bundles everything one detection produced.
type Analysis struct {
	Result           DetectionResult
	Interpretation   Interpretation
	ProcessingTimeMS int64
	Timestamp        time.Time
}
