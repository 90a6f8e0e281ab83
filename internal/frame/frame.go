// Package frame prepares camera frames and registration photos for embedding.
package frame

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/kozaktomas/presence-station/internal/constants"
)

// Options controls Normalize.
type Options struct {
	// Mirror flips the frame horizontally, matching what the user saw in the preview.
	Mirror  bool
	MaxSize int
}

// DefaultOptions returns the options used for camera frames.
func DefaultOptions() Options {
	return Options{Mirror: true, MaxSize: constants.MaxFrameSize}
}

// Decode decodes a JPEG, PNG or BMP image. JPEGs are rotated upright according
// to their EXIF orientation, as phone photos used for registration often need.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Normalize decodes data, applies opts and re-encodes the result as JPEG.
func Normalize(data []byte, opts Options) ([]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if opts.Mirror {
		img = imaging.FlipH(img)
	}
	if opts.MaxSize > 0 {
		img = Fit(img, opts.MaxSize)
	}
	return EncodeJPEG(img)
}

// Fit scales img down to fit within maxSize (width or height) while keeping aspect ratio.
// Smaller images are returned unchanged.
func Fit(img image.Image, maxSize int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxSize && height <= maxSize {
		return img
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxSize
		newHeight = max(1, int(float64(height)*float64(maxSize)/float64(width)))
	} else {
		newHeight = maxSize
		newWidth = max(1, int(float64(width)*float64(maxSize)/float64(height)))
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
	return resized
}

// EncodeJPEG encodes img with the station's frame quality.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(constants.FrameJPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
