package imaging

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/transform"
	"github.com/disintegration/imaging"

	"github.com/ironsheep/plate-tools-mcp/internal/detection"
)

const (
	// UpscaleFactor is the linear factor applied to a plate crop before
	// binarization. Component rectangles are reported in upscaled pixels.
	UpscaleFactor = 3

	// PatchPadding is the margin kept around a component when it is cut out
	// of the binarized image for OCR.
	PatchPadding = 5
)

// Segmentation is the output of one segmentation pass over a plate crop.
type Segmentation struct {
	// Binary is the inverse-binarized, upscaled crop: strokes are 255,
	// background is 0. Character patches are cut from this image.
	Binary *image.Gray

	// Width and Height are the upscaled image dimensions.
	Width  int
	Height int

	// Scale is the upscale factor relative to the input crop.
	Scale int

	// Components are the bounding rectangles of the connected components of
	// the morphologically cleaned image, sorted left-to-right.
	Components []image.Rectangle
}

// Segmenter turns a plate crop into candidate character components.
//
// Implementations must be deterministic: identical pixels in, identical
// Segmentation out.
type Segmenter interface {
	// Segment converts the crop to grayscale, upscales, smooths, binarizes
	// and cleans it, then extracts component rectangles.
	Segment(img image.Image) (*Segmentation, error)

	// Patch cuts the padded, inverted and smoothed OCR input for one
	// component out of seg.Binary.
	Patch(seg *Segmentation, r image.Rectangle) image.Image
}

// BildSegmenter is the pure-Go Segmenter built on bild.
//
// Pipeline (all kernels 3x3 unless stated):
//  1. Grayscale
//  2. Resize by UpscaleFactor with Catmull-Rom (bicubic) resampling
//  3. Gaussian blur (5x5), then median blur
//  4. Otsu threshold, inverted so dark strokes become foreground
//  5. Dilate, then open (erode + dilate)
//  6. Connected components of the result, sorted by left edge
type BildSegmenter struct{}

// Segment implements Segmenter.
func (BildSegmenter) Segment(img image.Image) (*Segmentation, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("cannot segment empty image")
	}

	width := bounds.Dx() * UpscaleFactor
	height := bounds.Dy() * UpscaleFactor

	gray := effect.Grayscale(img)
	upscaled := asGray(transform.Resize(gray, width, height, transform.CatmullRom))
	smoothed := asGray(effect.Median(blur.Gaussian(upscaled, 2), 1))

	thresh := BinarizeInverse(smoothed, OtsuThreshold(smoothed))

	dilated := effect.Dilate(thresh, 1)
	opened := asGray(effect.Dilate(effect.Erode(dilated, 1), 1))

	return &Segmentation{
		Binary:     thresh,
		Width:      width,
		Height:     height,
		Scale:      UpscaleFactor,
		Components: ConnectedComponents(opened),
	}, nil
}

// Patch implements Segmenter.
func (BildSegmenter) Patch(seg *Segmentation, r image.Rectangle) image.Image {
	return CharacterPatch(seg.Binary, r, PatchPadding)
}

// CharacterPatch cuts r out of bin with pad pixels of margin (clamped to the
// image), inverts it to dark-on-light and applies a 5x5 median blur.
func CharacterPatch(bin *image.Gray, r image.Rectangle, pad int) image.Image {
	bounds := bin.Bounds()
	padded := image.Rect(r.Min.X-pad, r.Min.Y-pad, r.Max.X+pad, r.Max.Y+pad).Intersect(bounds)
	if padded.Empty() {
		return image.NewGray(image.Rect(0, 0, 0, 0))
	}

	roi := imaging.Crop(bin, padded)
	return asGray(effect.Median(effect.Invert(roi), 2))
}

// OtsuThreshold returns the gray level that maximizes the between-class
// variance of the histogram. Pixels strictly above the level are the bright
// class.
func OtsuThreshold(gray *image.Gray) uint8 {
	bounds := gray.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 0
	}

	var hist [256]int
	for y := 0; y < bounds.Dy(); y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+bounds.Dx()]
		for _, v := range row {
			hist[v]++
		}
	}

	var sum float64
	for i, n := range hist {
		sum += float64(i * n)
	}
	mu := sum / float64(total)

	var (
		q1, mu1   float64
		maxSigma  float64
		threshold uint8
	)
	for i := 0; i < 256; i++ {
		p := float64(hist[i]) / float64(total)
		q1next := q1 + p
		if q1next == 0 || q1next >= 1 {
			q1 = q1next
			continue
		}
		mu1 = (mu1*q1 + float64(i)*p) / q1next
		q1 = q1next
		q2 := 1 - q1
		mu2 := (mu - q1*mu1) / q2
		sigma := q1 * q2 * (mu1 - mu2) * (mu1 - mu2)
		if sigma > maxSigma {
			maxSigma = sigma
			threshold = uint8(i)
		}
	}

	return threshold
}

// BinarizeInverse maps pixels above level to 0 and all others to 255.
//
// This works on the raw gray values rather than through a luminance
// conversion so that a pixel equal to level is never misclassified.
func BinarizeInverse(gray *image.Gray, level uint8) *image.Gray {
	bounds := gray.Bounds()
	out := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		src := gray.Pix[y*gray.Stride : y*gray.Stride+bounds.Dx()]
		dst := out.Pix[y*out.Stride : y*out.Stride+bounds.Dx()]
		for x, v := range src {
			if v <= level {
				dst[x] = 255
			}
		}
	}
	return out
}

// ConnectedComponents returns the outer bounding rectangles of the
// 8-connected foreground regions of bin, sorted left-to-right.
func ConnectedComponents(bin *image.Gray) []image.Rectangle {
	return detection.BoundingRects(bin)
}

// asGray converts to *image.Gray with origin (0, 0). Neutral gray inputs
// convert exactly.
func asGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
