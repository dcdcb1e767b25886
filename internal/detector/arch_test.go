package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInputSizeFor(t *testing.T) {
	cases := []struct {
		modelType string
		want      int
	}{
		{"hrnet_w18", 384},
		{"hrnet_w64", 384},
		{"efficientnet-b0", 224},
		{"efficientnet-b4", 380},
		{"efficientnet-b7", 224},
		{"swin", 224},
		{"resnet", 224},
		{"vit-large", 380},
		{"", 380},
	}

	for _, tc := range cases {
		t.Run(tc.modelType, func(t *testing.T) {
			assert.Equal(t, tc.want, InputSizeFor(tc.modelType))
		})
	}
}

func TestInputSizeForIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, 384, InputSizeFor("HRNet_W64"))
	assert.Equal(t, 380, InputSizeFor("EfficientNet-B4"))
}
