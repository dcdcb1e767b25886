package detector

import "math"

// Interpret turns raw class scores into a detection result and its risk
// reading. modelLabel becomes the Model field verbatim.
func Interpret(scores RawScores, modelLabel string) (DetectionResult, Interpretation) {
	var (
		rawLogit  float64
		predicted int
		prob      float64
	)

	if scores.Degraded {
		// Single-value output: the scalar is the morphed logit and there is
		// no genuine logit to compare against.
		rawLogit = scores.Morphed
		prob = sigmoid(rawLogit)
		if rawLogit > 0 {
			predicted = ClassMorphed
		} else {
			predicted = ClassGenuine
		}
	} else {
		rawLogit = scores.Morphed
		// Argmax with ties going to the lower index, i.e. genuine.
		if scores.Morphed > scores.Genuine {
			predicted = ClassMorphed
		} else {
			predicted = ClassGenuine
		}
		prob = softmaxMorphed(scores.Genuine, scores.Morphed)
		if math.IsNaN(prob) || math.IsInf(prob, 0) {
			prob = sigmoid(rawLogit)
		}
	}

	className := ClassNameGenuine
	if predicted == ClassMorphed {
		className = ClassNameMorphed
	}

	result := DetectionResult{
		RawLogit:       rawLogit,
		PredictedClass: predicted,
		ProbMorphed:    prob,
		ClassName:      className,
		Model:          modelLabel,
	}
	interp := Interpretation{
		IsMorphed:  predicted == ClassMorphed,
		RiskLevel:  RiskLevelFor(prob),
		Confidence: ConfidencePercent(prob),
	}
	return result, interp
}

// RiskLevelFor maps a morphed-class probability to a severity band. The
// thresholds are inclusive on the lower bound and checked descending.
func RiskLevelFor(prob float64) RiskLevel {
	switch {
	case prob >= 0.9:
		return RiskCritical
	case prob >= 0.75:
		return RiskHigh
	case prob >= 0.5:
		return RiskMedium
	default:
		return RiskLow
	}
}

// ConfidencePercent converts a probability to a percentage rounded to one
// decimal place.
func ConfidencePercent(prob float64) float64 {
	return math.Round(prob*1000) / 10
}

// softmaxMorphed computes the morphed-class component of a two-class
// softmax, shifted by the max logit for numeric stability.
func softmaxMorphed(genuine, morphed float64) float64 {
	m := math.Max(genuine, morphed)
	eg := math.Exp(genuine - m)
	em := math.Exp(morphed - m)
	return em / (eg + em)
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
