package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestOtsuThreshold_Bimodal(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 20, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			v := uint8(20)
			if x >= 10 {
				v = 230
			}
			img.SetGray(x, y, color.Gray{v})
		}
	}

	if got := OtsuThreshold(img); got != 20 {
		t.Errorf("OtsuThreshold: got %d, want 20", got)
	}
}

func TestOtsuThreshold_Uniform(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 128
	}

	// A single-level histogram has no between-class variance
	if got := OtsuThreshold(img); got != 0 {
		t.Errorf("OtsuThreshold: got %d, want 0", got)
	}
}

func TestBinarizeInverse(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 1))
	copy(img.Pix, []uint8{0, 99, 100, 101})

	out := BinarizeInverse(img, 100)
	want := []uint8{255, 255, 255, 0}
	for i, w := range want {
		if out.Pix[i] != w {
			t.Errorf("pixel %d: got %d, want %d", i, out.Pix[i], w)
		}
	}
}

func TestBildSegmenter_Bars(t *testing.T) {
	// Three dark character bars on a light plate
	img := createPlateImage(60, 30,
		image.Rect(40, 5, 46, 25),
		image.Rect(10, 5, 16, 25),
		image.Rect(25, 5, 31, 25),
	)

	seg, err := BildSegmenter{}.Segment(img)
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}

	if seg.Width != 180 || seg.Height != 90 || seg.Scale != UpscaleFactor {
		t.Errorf("got %dx%d scale %d, want 180x90 scale %d", seg.Width, seg.Height, seg.Scale, UpscaleFactor)
	}
	if seg.Binary.Bounds().Dx() != 180 || seg.Binary.Bounds().Dy() != 90 {
		t.Errorf("Binary bounds: got %v", seg.Binary.Bounds())
	}

	if len(seg.Components) != 3 {
		t.Fatalf("got %d components, want 3: %v", len(seg.Components), seg.Components)
	}

	wantLeft := []int{30, 75, 120}
	for i, c := range seg.Components {
		if d := c.Min.X - wantLeft[i]; d < -6 || d > 6 {
			t.Errorf("component %d: left edge %d, want about %d", i, c.Min.X, wantLeft[i])
		}
		if c.Dy() < 50 || c.Dy() > 72 {
			t.Errorf("component %d: height %d, want about 60", i, c.Dy())
		}
	}
}

func TestBildSegmenter_Deterministic(t *testing.T) {
	img := createPlateImage(40, 20, image.Rect(8, 4, 12, 16), image.Rect(20, 4, 24, 16))

	a, err := BildSegmenter{}.Segment(img)
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	b, err := BildSegmenter{}.Segment(img)
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}

	if len(a.Components) != len(b.Components) {
		t.Fatalf("component counts differ: %d vs %d", len(a.Components), len(b.Components))
	}
	for i := range a.Components {
		if a.Components[i] != b.Components[i] {
			t.Errorf("component %d differs: %v vs %v", i, a.Components[i], b.Components[i])
		}
	}
}

func TestBildSegmenter_EmptyImage(t *testing.T) {
	if _, err := (BildSegmenter{}).Segment(image.NewRGBA(image.Rect(0, 0, 0, 0))); err == nil {
		t.Error("Segment should fail on an empty image")
	}
}

func TestCharacterPatch(t *testing.T) {
	bin := image.NewGray(image.Rect(0, 0, 50, 40))
	for y := 10; y < 30; y++ {
		for x := 20; x < 30; x++ {
			bin.SetGray(x, y, color.Gray{255})
		}
	}

	tests := []struct {
		name         string
		rect         image.Rectangle
		wantW, wantH int
	}{
		{"interior", image.Rect(20, 10, 30, 30), 20, 30},
		{"clamped at origin", image.Rect(2, 1, 10, 10), 15, 15},
		{"clamped at far corner", image.Rect(45, 35, 50, 40), 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patch := CharacterPatch(bin, tt.rect, PatchPadding)
			b := patch.Bounds()
			if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("got %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
		})
	}

	// The glyph is dark on a light background after inversion
	patch := CharacterPatch(bin, image.Rect(20, 10, 30, 30), PatchPadding)
	if g := color.GrayModel.Convert(patch.At(10, 15)).(color.Gray); g.Y != 0 {
		t.Errorf("glyph center: got %d, want 0", g.Y)
	}
	if g := color.GrayModel.Convert(patch.At(1, 1)).(color.Gray); g.Y != 255 {
		t.Errorf("margin: got %d, want 255", g.Y)
	}
}

func TestConnectedComponents(t *testing.T) {
	bin := image.NewGray(image.Rect(0, 0, 30, 10))
	bin.SetGray(25, 5, color.Gray{255})
	bin.SetGray(3, 2, color.Gray{255})

	rects := ConnectedComponents(bin)
	if len(rects) != 2 {
		t.Fatalf("got %d rects, want 2", len(rects))
	}
	if rects[0].Min.X != 3 || rects[1].Min.X != 25 {
		t.Errorf("not sorted left-to-right: %v", rects)
	}
}
