package detector

import "strings"

// InputSizeFor resolves the square input resolution for a model type tag.
// Sizes come from the SelfMAD training setup and are keyed on substrings of
// the tag, checked in a fixed order.
func InputSizeFor(modelType string) int {
	tag := strings.ToLower(modelType)
	switch {
	case strings.Contains(tag, "hrnet"):
		return 384
	case strings.Contains(tag, "efficientnet"):
		if strings.Contains(tag, "b0") {
			return 224
		}
		if strings.Contains(tag, "b4") {
			return 380
		}
		return 224
	case strings.Contains(tag, "swin"):
		return 224
	case strings.Contains(tag, "resnet"):
		return 224
	default:
		return 380
	}
}
