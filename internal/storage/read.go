// Package storage persists plate reads.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/plate-tools-mcp/internal/plate"
)

// PlateRead is one stored plate reading.
type PlateRead struct {
	ID        uuid.UUID `json:"id"`
	ImagePath string    `json:"image_path"`
	Box       plate.Box `json:"box"`

	// Plate is the composed string; empty when nothing was readable.
	Plate string `json:"plate"`

	// Characters and Confidences are parallel, one entry per selected
	// detection, left-to-right.
	Characters  []string  `json:"characters"`
	Confidences []float64 `json:"confidences"`

	// Methods are the crop variants that ran.
	Methods []string `json:"methods"`

	// Variants is the per-variant report, stored as JSONB.
	Variants []plate.VariantReport `json:"variants"`

	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewPlateRead builds a record for res with a fresh ID.
func NewPlateRead(imagePath string, box plate.Box, res *plate.Result) *PlateRead {
	r := &PlateRead{
		ID:          uuid.New(),
		ImagePath:   imagePath,
		Box:         box,
		Characters:  make([]string, 0),
		Confidences: make([]float64, 0),
		Methods:     make([]string, 0),
		Variants:    make([]plate.VariantReport, 0),
		CreatedAt:   time.Now().UTC(),
	}
	if res == nil {
		return r
	}

	r.Plate = res.Plate
	r.DurationMs = res.Duration.Milliseconds()
	for _, d := range res.Detections {
		r.Characters = append(r.Characters, d.Text())
		r.Confidences = append(r.Confidences, sanitizeConfidence(d.Confidence))
	}
	for _, v := range res.Variants {
		r.Methods = append(r.Methods, v.Method.String())
	}
	r.Variants = append(r.Variants, res.Variants...)
	return r
}

// Store saves plate reads.
type Store interface {
	SaveRead(ctx context.Context, read *PlateRead) error
	Close() error
}

// sanitizeConfidence clamps an OCR confidence to [0, 100] and rounds it to
// two decimals to fit NUMERIC(5,2).
func sanitizeConfidence(confidence float64) float64 {
	if confidence < 0 {
		return 0
	}
	if confidence > 100 {
		return 100
	}
	return float64(int(confidence*100+0.5)) / 100
}
