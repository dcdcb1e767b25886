package detector

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	_, err := DecodeImage([]byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestDecodeImageRejectsGrayscale(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 8, 8))
	_, err := DecodeImage(encodePNG(t, gray))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestDecodeImageAcceptsRGB(t *testing.T) {
	img, err := DecodeImage(encodePNG(t, solidImage(8, 8, color.RGBA{R: 255, A: 255})))
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
}

func TestPreprocessShapeAndRange(t *testing.T) {
	img := solidImage(10, 6, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	tensor := Preprocess(img, 32)

	assert.Equal(t, 32, tensor.Size)
	require.Len(t, tensor.Data, 3*32*32)
	for _, v := range tensor.Data {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
	}
}

func TestPreprocessChannelFirstLayout(t *testing.T) {
	// A solid red source must come out as an all-ones R plane followed by
	// all-zero G and B planes.
	img := solidImage(16, 16, color.RGBA{R: 255, A: 255})
	tensor := Preprocess(img, 8)

	plane := 8 * 8
	for i := 0; i < plane; i++ {
		assert.InDelta(t, 1.0, float64(tensor.Data[i]), 0.02, "R plane at %d", i)
		assert.InDelta(t, 0.0, float64(tensor.Data[plane+i]), 0.02, "G plane at %d", i)
		assert.InDelta(t, 0.0, float64(tensor.Data[2*plane+i]), 0.02, "B plane at %d", i)
	}
}

func TestPreprocessIsDeterministic(t *testing.T) {
	img := solidImage(20, 20, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	first := Preprocess(img, 8)
	second := Preprocess(img, 8)
	assert.Equal(t, first.Data, second.Data)
}
