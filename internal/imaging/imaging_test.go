package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{200, 30, 30, 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solid(w, h), &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func encodePNG(t *testing.T, w, h int) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(w, h)))
	return buf.Bytes()
}

func TestProcessor_Process_JPEGWithinBounds(t *testing.T) {
	p := NewProcessor(200, 0)
	res, err := p.Process(bytes.NewReader(encodeJPEG(t, 120, 80)))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", res.MIME)
	assert.Equal(t, ".jpg", res.Ext)
	assert.Equal(t, 120, res.Width)
	assert.Equal(t, 80, res.Height)
	assert.NotEmpty(t, res.Data)
}

func TestProcessor_Process_PNGIsDownscaledToJPEG(t *testing.T) {
	p := NewProcessor(100, 0)
	res, err := p.Process(bytes.NewReader(encodePNG(t, 400, 200)))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", res.MIME)
	assert.Equal(t, 100, res.Width)
	assert.Equal(t, 50, res.Height)

	decoded, err := jpeg.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, 100, decoded.Bounds().Dx())
}

func TestProcessor_Process_RejectsNonImage(t *testing.T) {
	p := NewProcessor(0, 0)
	_, err := p.Process(bytes.NewReader([]byte("GIF89a not really")))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = p.Process(bytes.NewReader([]byte("plain text")))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestProcessor_Process_RejectsOversized(t *testing.T) {
	data := encodePNG(t, 64, 64)
	p := NewProcessor(0, int64(len(data)-1))
	_, err := p.Process(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrTooLarge)
}
