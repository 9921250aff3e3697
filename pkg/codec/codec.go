// Package codec decodes the supported input image formats and re-encodes them
// as baseline JPEG.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultQuality is the JPEG quality used when none is configured.
	DefaultQuality = 80
	MinQuality     = 1
	MaxQuality     = 100

	// MaxPixels caps width*height of an input image. Decoders allocate the
	// full pixel buffer from the header before reading any data.
	MaxPixels = 0x3FFF * 0x3FFF
)

var (
	// ErrUnsupportedFormat is returned for content no registered decoder understands.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrImageTooLarge is returned when the header announces more than MaxPixels.
	ErrImageTooLarge = errors.New("image dimensions exceed limit")
)

// Options controls how images are re-encoded.
type Options struct {
	// Quality is the JPEG quality, 1..100.
	Quality int
	// MaxDimension limits the longest edge in pixels. 0 disables resizing.
	MaxDimension int
}

// JPEGEncoder converts encoded images of any supported format into JPEG.
type JPEGEncoder struct {
	opts Options
}

// NewJPEGEncoder returns an encoder for opts. Out-of-range qualities are clamped.
func NewJPEGEncoder(opts Options) *JPEGEncoder {
	switch {
	case opts.Quality == 0:
		opts.Quality = DefaultQuality
	case opts.Quality < MinQuality:
		opts.Quality = MinQuality
	case opts.Quality > MaxQuality:
		opts.Quality = MaxQuality
	}
	if opts.MaxDimension < 0 {
		opts.MaxDimension = 0
	}
	return &JPEGEncoder{opts: opts}
}

// Options returns the effective options after clamping.
func (e *JPEGEncoder) Options() Options {
	return e.opts
}

// ToJPEG decodes data, flattens transparency onto white, optionally downscales
// and returns the JPEG encoding.
func (e *JPEGEncoder) ToJPEG(data []byte) ([]byte, error) {
	img, format, err := Decode(data)
	if err != nil {
		return nil, err
	}

	if e.opts.MaxDimension > 0 {
		maxEdge := uint(e.opts.MaxDimension)
		// Thumbnail keeps the aspect ratio and returns img untouched when it already fits.
		img = resize.Thumbnail(maxEdge, maxEdge, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: e.opts.Quality}); err != nil {
		return nil, fmt.Errorf("encode %s as jpeg: %w", format, err)
	}
	return buf.Bytes(), nil
}

// Decode sniffs the format of data and decodes it. The returned format is the
// name of the decoder used, e.g. "png" or "svg".
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty file", ErrUnsupportedFormat)
	}
	if isAVIF(data) {
		return nil, "avif", fmt.Errorf("%w: avif", ErrUnsupportedFormat)
	}
	if isSVG(data) {
		img, err := decodeSVG(bytes.NewReader(data))
		if err != nil {
			return nil, "svg", fmt.Errorf("decode svg: %w", err)
		}
		return img, "svg", nil
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		return nil, format, fmt.Errorf("decode %s header: %w", format, err)
	}
	if err := checkPixels(cfg.Width, cfg.Height); err != nil {
		return nil, format, err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, format, fmt.Errorf("decode %s: %w", format, err)
	}
	return img, format, nil
}

func checkPixels(w, h int) error {
	if int64(w)*int64(h) > MaxPixels {
		return fmt.Errorf("%w: %dx%d is more than %d pixels", ErrImageTooLarge, w, h, MaxPixels)
	}
	return nil
}

// isAVIF checks for an ISO-BMFF "ftyp" box with an AVIF brand.
func isAVIF(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	brand := string(data[8:12])
	return brand == "avif" || brand == "avis"
}

// isSVG looks for an <svg element near the start of the document.
func isSVG(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	head = bytes.TrimLeft(head, "\xef\xbb\xbf \t\r\n")
	if len(head) == 0 || head[0] != '<' {
		return false
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<svg"))
}

// flatten composites img onto an opaque white canvas. JPEG has no alpha
// channel; without this, transparent regions would be encoded as black.
func flatten(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}
