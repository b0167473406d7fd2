package plate

import (
	"context"
	"fmt"
	"image"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/plate-tools-mcp/internal/imaging"
	"github.com/ironsheep/plate-tools-mcp/internal/ocr"
)

// Component shape limits, all ratios against the upscaled crop.
const (
	// maxHeightRatio rejects components shorter than a quarter of the crop.
	maxHeightRatio = 4.0

	// minAspect rejects components that are not at least 1.2x taller than wide.
	minAspect = 1.2

	// maxWidthRatio rejects components narrower than 1/50 of the crop.
	maxWidthRatio = 50.0
)

// CharacterReader recognizes the glyph in one character patch.
type CharacterReader interface {
	ReadCharacter(ctx context.Context, patch image.Image) ([]ocr.Token, error)
}

// Detection is one recognized character. X and Y are in full-image pixels;
// Width and Height stay in upscaled segmentation pixels and are only kept for
// debugging.
type Detection struct {
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Glyph      ocr.Token `json:"glyph"`
	Confidence float64   `json:"confidence"`
	Method     Method    `json:"method"`
}

// NewDetection builds a detection whose confidence is the token's.
func NewDetection(x, y float64, tok ocr.Token, m Method) Detection {
	return Detection{X: x, Y: y, Glyph: tok, Confidence: tok.Confidence, Method: m}
}

// Text is the character this detection contributes to a plate string.
func (d Detection) Text() string {
	return d.Glyph.String()
}

// AcceptComponent applies the character shape filters to a component of a
// width x height segmentation. Zero-size components are rejected.
func AcceptComponent(width, height int, r image.Rectangle) bool {
	cw, ch := r.Dx(), r.Dy()
	if cw <= 0 || ch <= 0 {
		return false
	}
	if float64(height)/float64(ch) > maxHeightRatio {
		return false
	}
	if float64(ch)/float64(cw) < minAspect {
		return false
	}
	if float64(width)/float64(cw) > maxWidthRatio {
		return false
	}
	return true
}

// BestTokens keeps every token that shares the highest confidence, in input
// order.
func BestTokens(tokens []ocr.Token) []ocr.Token {
	if len(tokens) == 0 {
		return nil
	}
	best := tokens[0].Confidence
	for _, t := range tokens[1:] {
		if t.Confidence > best {
			best = t.Confidence
		}
	}
	out := make([]ocr.Token, 0, 1)
	for _, t := range tokens {
		if t.Confidence == best {
			out = append(out, t)
		}
	}
	return out
}

// Rebase maps the top-left corner of a component in a segmentation upscaled
// by scale back to full-image pixels, given the crop origin.
func Rebase(r image.Rectangle, scale int, xStart, yStart int) (float64, float64) {
	s := float64(scale)
	return float64(r.Min.X)/s + float64(xStart), float64(r.Min.Y)/s + float64(yStart)
}

// Recognizer turns one crop variant into character detections.
type Recognizer struct {
	segmenter imaging.Segmenter
	reader    CharacterReader
	log       logrus.FieldLogger
}

// NewRecognizer creates a recognizer. Both collaborators must be safe for
// concurrent use.
func NewRecognizer(segmenter imaging.Segmenter, reader CharacterReader, log logrus.FieldLogger) *Recognizer {
	return &Recognizer{segmenter: segmenter, reader: reader, log: log}
}

// Recognize segments the region, filters components by shape, reads each
// surviving patch and returns the detections in left-to-right component
// order.
//
// An OCR failure on one patch is logged and skipped. Context cancellation
// aborts the whole variant.
func (r *Recognizer) Recognize(ctx context.Context, region *Region) ([]Detection, error) {
	log := r.log.WithFields(logrus.Fields{
		"method":  region.Method.String(),
		"x_start": region.XStart,
		"y_start": region.YStart,
	})

	seg, err := r.segmenter.Segment(region.Image)
	if err != nil {
		return nil, fmt.Errorf("segmentation failed: %w", err)
	}

	detections := make([]Detection, 0)
	accepted := 0
	for _, comp := range seg.Components {
		if !AcceptComponent(seg.Width, seg.Height, comp) {
			continue
		}
		accepted++

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tokens, err := r.reader.ReadCharacter(ctx, r.segmenter.Patch(seg, comp))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.WithError(err).WithField("component", comp.String()).Warn("character OCR failed")
			continue
		}

		x, y := Rebase(comp, seg.Scale, region.XStart, region.YStart)
		for _, tok := range BestTokens(tokens) {
			if tok.Empty() {
				continue
			}
			d := NewDetection(x, y, tok, region.Method)
			d.Width, d.Height = comp.Dx(), comp.Dy()
			detections = append(detections, d)
		}
	}

	log.WithFields(logrus.Fields{
		"components": len(seg.Components),
		"accepted":   accepted,
		"detections": len(detections),
	}).Debug("variant recognized")

	return detections, nil
}
