package storage

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/plate-tools-mcp/internal/ocr"
	"github.com/ironsheep/plate-tools-mcp/internal/plate"
)

func TestNewPlateRead(t *testing.T) {
	box := plate.Box{X: 0.5, Y: 0.5, W: 0.2, H: 0.1}
	res := &plate.Result{
		Plate: "AB7",
		Detections: []plate.Detection{
			plate.NewDetection(10, 5, ocr.TextToken("A", 91.234), plate.Centered),
			plate.NewDetection(20, 5, ocr.TextToken("B", 80), plate.ShiftUp),
			plate.NewDetection(30, 5, ocr.CodeToken(7, 150), plate.ShiftLeft),
		},
		Variants: []plate.VariantReport{
			{Method: plate.Centered, Detections: 2},
			{Method: plate.ShiftUp, Detections: 1},
		},
		Duration: 1500 * time.Millisecond,
	}

	read := NewPlateRead("/frames/cam1.jpg", box, res)

	if read.ID == uuid.Nil {
		t.Error("ID should be set")
	}
	if read.ImagePath != "/frames/cam1.jpg" {
		t.Errorf("ImagePath: got %s", read.ImagePath)
	}
	if read.Box != box {
		t.Errorf("Box: got %v, want %v", read.Box, box)
	}
	if read.Plate != "AB7" {
		t.Errorf("Plate: got %q, want AB7", read.Plate)
	}
	if read.DurationMs != 1500 {
		t.Errorf("DurationMs: got %d, want 1500", read.DurationMs)
	}

	wantChars := []string{"A", "B", "7"}
	wantConf := []float64{91.23, 80, 100}
	if len(read.Characters) != len(wantChars) || len(read.Confidences) != len(wantConf) {
		t.Fatalf("got %d characters and %d confidences, want 3 each", len(read.Characters), len(read.Confidences))
	}
	for i := range wantChars {
		if read.Characters[i] != wantChars[i] {
			t.Errorf("Characters[%d]: got %q, want %q", i, read.Characters[i], wantChars[i])
		}
		if read.Confidences[i] != wantConf[i] {
			t.Errorf("Confidences[%d]: got %v, want %v", i, read.Confidences[i], wantConf[i])
		}
	}

	if len(read.Methods) != 2 || read.Methods[0] != "centered" || read.Methods[1] != "up" {
		t.Errorf("Methods: got %v, want [centered up]", read.Methods)
	}
	if len(read.Variants) != 2 {
		t.Errorf("Variants: got %d, want 2", len(read.Variants))
	}
	if read.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestNewPlateRead_NilResult(t *testing.T) {
	read := NewPlateRead("/frames/empty.jpg", plate.Box{X: 0.1, Y: 0.1, W: 0.1, H: 0.1}, nil)

	if read.Plate != "" {
		t.Errorf("Plate: got %q, want empty", read.Plate)
	}
	if read.Characters == nil || read.Confidences == nil || read.Methods == nil {
		t.Error("slices should be empty, not nil, so they store as empty arrays")
	}
}

func TestNewPlateRead_UniqueIDs(t *testing.T) {
	a := NewPlateRead("a.jpg", plate.Box{}, nil)
	b := NewPlateRead("a.jpg", plate.Box{}, nil)
	if a.ID == b.ID {
		t.Error("two reads should not share an ID")
	}
}

func TestSanitizeConfidence(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-5, 0},
		{0, 0},
		{40, 40},
		{87.654, 87.65},
		{87.655001, 87.66},
		{100, 100},
		{250, 100},
	}

	for _, tt := range tests {
		if got := sanitizeConfidence(tt.in); got != tt.want {
			t.Errorf("sanitizeConfidence(%v): got %v, want %v", tt.in, got, tt.want)
		}
	}
}
