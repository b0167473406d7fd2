// Package locate proposes plate bounding boxes for a frame.
//
// The reader itself never locates plates; it is handed a box. This package
// supplies one, either a fixed box for smoke tests and callers that already
// know where the plate is, or the output of an ONNX bounding-box model.
package locate

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"strings"

	apperrors "github.com/ironsheep/plate-tools-mcp/internal/errors"
	"github.com/ironsheep/plate-tools-mcp/internal/plate"
)

// Predictor returns the plate bounding box for a frame.
type Predictor interface {
	Predict(ctx context.Context, img image.Image) (plate.Box, error)
}

// DefaultBox is the reference plate box used by the smoke-test harness, as
// fractions of a 608x456 frame.
var DefaultBox = plate.Box{X: 305.0 / 608, Y: 267.0 / 456, W: 111.0 / 608, H: 25.0 / 456}

// Static always predicts the same box.
type Static struct {
	Box plate.Box
}

// Predict implements Predictor.
func (s Static) Predict(ctx context.Context, _ image.Image) (plate.Box, error) {
	if err := ctx.Err(); err != nil {
		return plate.Box{}, err
	}
	if err := s.Box.Validate(); err != nil {
		return plate.Box{}, err
	}
	return s.Box, nil
}

// ParseBox parses "x,y,w,h". Each value is a decimal fraction or a ratio
// such as "305/608".
func ParseBox(s string) (plate.Box, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return plate.Box{}, apperrors.NewInvalidBoxError(
			fmt.Sprintf("box %q must have four comma-separated values", s), nil)
	}

	var vals [4]float64
	for i, p := range parts {
		v, err := parseFraction(strings.TrimSpace(p))
		if err != nil {
			return plate.Box{}, apperrors.NewInvalidBoxError(
				fmt.Sprintf("box value %q: %v", p, err), nil)
		}
		vals[i] = v
	}

	box := plate.Box{X: vals[0], Y: vals[1], W: vals[2], H: vals[3]}
	if err := box.Validate(); err != nil {
		return plate.Box{}, err
	}
	return box, nil
}

func parseFraction(s string) (float64, error) {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return strconv.ParseFloat(s, 64)
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return 0, err
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return 0, fmt.Errorf("zero denominator")
	}
	return n / d, nil
}
