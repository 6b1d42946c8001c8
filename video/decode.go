package video

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// Decode turns f into RGBA pixels, top row first. Images larger than
// maxSize on either side are scaled down to fit, keeping their aspect
// ratio; maxSize <= 0 disables scaling.
func Decode(f *Frame, maxSize int) (*image.RGBA, error) {
	if f == nil {
		return nil, ErrNoFrame
	}

	var img image.Image
	switch f.Format {
	case FormatRGBA:
		if f.Width <= 0 || f.Height <= 0 {
			return nil, fmt.Errorf("%w: %dx%d", ErrMalformedFrame, f.Width, f.Height)
		}
		if want := f.Width * f.Height * 4; len(f.Data) != want {
			return nil, fmt.Errorf("%w: %d bytes for %dx%d rgba, want %d", ErrMalformedFrame, len(f.Data), f.Width, f.Height, want)
		}
		img = &image.RGBA{Pix: f.Data, Stride: f.Width * 4, Rect: image.Rect(0, 0, f.Width, f.Height)}
	case FormatJPEG:
		decoded, err := jpeg.Decode(bytes.NewReader(f.Data))
		if err != nil {
			return nil, fmt.Errorf("%w: jpeg: %v", ErrMalformedFrame, err)
		}
		img = decoded
	case FormatPNG:
		decoded, err := png.Decode(bytes.NewReader(f.Data))
		if err != nil {
			return nil, fmt.Errorf("%w: png: %v", ErrMalformedFrame, err)
		}
		img = decoded
	default:
		return nil, fmt.Errorf("%w: format %v", ErrMalformedFrame, f.Format)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSize > 0 && (w > maxSize || h > maxSize) {
		scale := float64(maxSize) / float64(max(w, h))
		dst := image.NewRGBA(image.Rect(0, 0, max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale))))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		return dst, nil
	}
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba, nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst, nil
}
