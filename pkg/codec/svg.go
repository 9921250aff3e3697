package codec

import (
	"fmt"
	"image"
	"io"
	"math"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// maxSVGEdge bounds the raster size of an SVG so a huge viewBox cannot
// exhaust memory.
const maxSVGEdge = 8192

// decodeSVG rasterises an SVG document at its viewBox size.
func decodeSVG(r io.Reader) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(r, oksvg.WarnErrorMode)
	if err != nil {
		return nil, err
	}

	w := int(math.Ceil(icon.ViewBox.W))
	h := int(math.Ceil(icon.ViewBox.H))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("svg has no usable size (%dx%d)", w, h)
	}
	if w > maxSVGEdge || h > maxSVGEdge {
		scale := float64(maxSVGEdge) / math.Max(float64(w), float64(h))
		w = max(1, int(float64(w)*scale))
		h = max(1, int(float64(h)*scale))
	}

	icon.SetTarget(0, 0, float64(w), float64(h))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)
	return img, nil
}
