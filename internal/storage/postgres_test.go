package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/ironsheep/plate-tools-mcp/internal/errors"
	"github.com/ironsheep/plate-tools-mcp/internal/ocr"
	"github.com/ironsheep/plate-tools-mcp/internal/plate"
)

// testDatabaseURL returns the database used by integration tests, skipping
// the test when none is configured.
func testDatabaseURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("PLATE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("PLATE_TEST_DATABASE_URL not set")
	}
	return url
}

func TestNewPostgresStore_RequiresURL(t *testing.T) {
	if _, err := NewPostgresStore(""); err == nil {
		t.Fatal("expected error for empty database URL")
	}
}

func TestSaveRead_Validation(t *testing.T) {
	p := &PostgresStore{}
	ctx := context.Background()

	if err := p.SaveRead(ctx, nil); err == nil {
		t.Error("expected error for nil read")
	}

	err := p.SaveRead(ctx, &PlateRead{})
	if err == nil {
		t.Fatal("expected error for read without ID")
	}
	if apperrors.CodeOf(err) != apperrors.ErrorStorageFailed {
		t.Errorf("CodeOf: got %s, want %s", apperrors.CodeOf(err), apperrors.ErrorStorageFailed)
	}
}

func TestPostgresStore_SaveAndGet(t *testing.T) {
	store, err := NewPostgresStore(testDatabaseURL(t))
	if err != nil {
		t.Fatalf("NewPostgresStore failed: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	box := plate.Box{X: 0.5, Y: 0.58, W: 0.18, H: 0.05}
	res := &plate.Result{
		Plate: "K7",
		Detections: []plate.Detection{
			plate.NewDetection(310, 270, ocr.TextToken("K", 88.5), plate.Centered),
			plate.NewDetection(320, 270, ocr.CodeToken(7, 61), plate.ShiftUp),
		},
		Variants: []plate.VariantReport{{Method: plate.Centered, Detections: 1}},
		Duration: 250 * time.Millisecond,
	}
	read := NewPlateRead("/frames/cam1.jpg", box, res)

	if err := store.SaveRead(ctx, read); err != nil {
		t.Fatalf("SaveRead failed: %v", err)
	}
	// Saving again is a no-op
	if err := store.SaveRead(ctx, read); err != nil {
		t.Fatalf("second SaveRead failed: %v", err)
	}

	got, err := store.GetRead(ctx, read.ID)
	if err != nil {
		t.Fatalf("GetRead failed: %v", err)
	}
	if got.Plate != "K7" {
		t.Errorf("Plate: got %q, want K7", got.Plate)
	}
	if got.Box != box {
		t.Errorf("Box: got %v, want %v", got.Box, box)
	}
	if len(got.Characters) != 2 || got.Characters[1] != "7" {
		t.Errorf("Characters: got %v", got.Characters)
	}
	if len(got.Confidences) != 2 || got.Confidences[0] != 88.5 {
		t.Errorf("Confidences: got %v", got.Confidences)
	}
	if len(got.Variants) != 1 || got.Variants[0].Method != plate.Centered {
		t.Errorf("Variants: got %+v", got.Variants)
	}

	if _, err := store.GetRead(ctx, uuid.New()); err == nil {
		t.Error("expected error for unknown ID")
	}
}
