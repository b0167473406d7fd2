package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestAnnotate(t *testing.T) {
	img := createInMemoryImage(60, 40, color.RGBA{0, 0, 0, 255})

	result, err := Annotate(img, []AnnotatedBox{
		{Rect: image.Rect(10, 10, 30, 30), Color: "#FF0000"},
		{Rect: image.Rect(35, 5, 55, 35), Group: 3, Label: "87"},
	})
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}

	if result.Width != 60 || result.Height != 40 || result.Boxes != 2 {
		t.Errorf("got %dx%d with %d boxes", result.Width, result.Height, result.Boxes)
	}

	out := decodeResult(t, &CropResult{ImageBase64: result.ImageBase64})

	// Outline edge is red, interior untouched
	r, g, b, _ := out.At(10, 20).RGBA()
	if r>>8 != 255 || g>>8 != 0 || b>>8 != 0 {
		t.Errorf("outline: got (%d,%d,%d), want (255,0,0)", r>>8, g>>8, b>>8)
	}
	r, g, b, _ = out.At(20, 20).RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Errorf("interior: got (%d,%d,%d), want black", r>>8, g>>8, b>>8)
	}

	// Palette box takes its group color on the right edge
	want := Palette(PaletteSize)[3]
	r, g, b, _ = out.At(54, 30).RGBA()
	if uint8(r>>8) != want.R || uint8(g>>8) != want.G || uint8(b>>8) != want.B {
		t.Errorf("palette outline: got (%d,%d,%d), want %v", r>>8, g>>8, b>>8, want)
	}
}

func TestAnnotate_InvalidColor(t *testing.T) {
	img := createInMemoryImage(10, 10, color.RGBA{0, 0, 0, 255})
	if _, err := Annotate(img, []AnnotatedBox{{Rect: image.Rect(0, 0, 5, 5), Color: "#12"}}); err == nil {
		t.Error("Annotate should fail for an invalid color")
	}
}

func TestPalette_Distinct(t *testing.T) {
	p := Palette(PaletteSize)
	seen := make(map[color.RGBA]bool)
	for i, c := range p {
		if c.A != 255 {
			t.Errorf("color %d: alpha %d, want 255", i, c.A)
		}
		if seen[c] {
			t.Errorf("color %d duplicates an earlier entry: %v", i, c)
		}
		seen[c] = true
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"#FF8000", color.RGBA{255, 128, 0, 255}, false},
		{"00FF0080", color.RGBA{0, 255, 0, 128}, false},
		{"", color.RGBA{}, true},
		{"#GGGGGG", color.RGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseHexColor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
