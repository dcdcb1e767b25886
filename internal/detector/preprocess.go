package detector

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// PreprocessedTensor is a [1, 3, Size, Size] channel-first float32 tensor
// with values in [0, 1], ready for the forward pass.
type PreprocessedTensor struct {
	Data []float32
	Size int
}

// DecodeImage decodes raw bytes into a 3-channel raster. Undecodable input
// and grayscale sources are rejected with ErrUnsupportedImage.
func DecodeImage(data []byte) (image.Image, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		return nil, fmt.Errorf("%w: empty %s image", ErrUnsupportedImage, format)
	}
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		return nil, fmt.Errorf("%w: %s image is not 3-channel", ErrUnsupportedImage, format)
	}
	return img, nil
}

// Preprocess resizes img to inputSize x inputSize and lays it out as a
// channel-first tensor normalized to [0, 1] with a leading batch dimension.
// Deterministic; no hidden state.
func Preprocess(img image.Image, inputSize int) PreprocessedTensor {
	resized := resize.Resize(uint(inputSize), uint(inputSize), img, resize.Lanczos3)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height
	data := make([]float32, 3*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()

			idx := y*width + x
			data[idx] = float32(r) / 65535.0
			data[plane+idx] = float32(g) / 65535.0
			data[2*plane+idx] = float32(b) / 65535.0
		}
	}

	return PreprocessedTensor{Data: data, Size: inputSize}
}
