// Package imaging normalises uploaded photos before they reach storage.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
)

// JPEGQuality is the compression quality for JPEG output.
const JPEGQuality = 85

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrTooLarge          = errors.New("image exceeds the upload size limit")
)

var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Result is a processed image ready to be stored.
type Result struct {
	Data   []byte
	MIME   string
	Ext    string
	Width  int
	Height int
}

// Processor validates, downscales and re-encodes images.
type Processor struct {
	maxDimension int
	maxBytes     int64
}

// NewProcessor returns a Processor. Non-positive limits fall back to 1600px and 10 MiB.
func NewProcessor(maxDimension int, maxBytes int64) *Processor {
	if maxDimension <= 0 {
		maxDimension = 1600
	}
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Processor{maxDimension: maxDimension, maxBytes: maxBytes}
}

// Process sniffs the real content type, rejects anything but JPEG or PNG,
// shrinks the image to fit maxDimension and always emits JPEG.
func (p *Processor) Process(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(io.LimitReader(r, p.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if int64(len(data)) > p.maxBytes {
		return nil, ErrTooLarge
	}

	detected := http.DetectContentType(data)
	if !allowedMIME[detected] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	img = downscale(img, p.maxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	b := img.Bounds()
	return &Result{Data: buf.Bytes(), MIME: "image/jpeg", Ext: ".jpg", Width: b.Dx(), Height: b.Dy()}, nil
}

func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := maxDim, maxDim
	if w > h {
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}
	newW = max(newW, 1)
	newH = max(newH, 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
