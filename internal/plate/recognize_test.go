package plate

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/ironsheep/plate-tools-mcp/internal/imaging"
	"github.com/ironsheep/plate-tools-mcp/internal/logging"
	"github.com/ironsheep/plate-tools-mcp/internal/ocr"
)

// fakeSegmenter returns a fixed segmentation. Patches are empty gray images
// whose bounds are the component rectangle, so fakeReader can tell them apart.
type fakeSegmenter struct {
	seg *imaging.Segmentation
	err error
}

func (f *fakeSegmenter) Segment(image.Image) (*imaging.Segmentation, error) {
	return f.seg, f.err
}

func (f *fakeSegmenter) Patch(_ *imaging.Segmentation, r image.Rectangle) image.Image {
	return image.NewGray(r)
}

// fakeReader answers by patch bounds.
type fakeReader struct {
	tokens map[image.Rectangle][]ocr.Token
	errs   map[image.Rectangle]error
	calls  int
}

func (f *fakeReader) ReadCharacter(ctx context.Context, patch image.Image) ([]ocr.Token, error) {
	f.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.errs[patch.Bounds()]; err != nil {
		return nil, err
	}
	return f.tokens[patch.Bounds()], nil
}

func TestAcceptComponent(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		rect          image.Rectangle
		want          bool
	}{
		{"glyph", 300, 90, image.Rect(30, 15, 45, 75), true},
		{"too short", 300, 90, image.Rect(0, 0, 4, 20), false},
		{"height ratio exactly 4", 300, 80, image.Rect(0, 0, 10, 20), true},
		{"too wide", 300, 90, image.Rect(0, 0, 60, 70), false},
		{"aspect exactly 1.2", 300, 90, image.Rect(100, 10, 150, 70), true},
		{"speck", 300, 90, image.Rect(200, 10, 205, 70), false},
		{"width ratio exactly 50", 500, 90, image.Rect(0, 0, 10, 30), true},
		{"zero width", 300, 90, image.Rect(5, 5, 5, 60), false},
		{"zero height", 300, 90, image.Rect(5, 5, 10, 5), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AcceptComponent(tt.width, tt.height, tt.rect); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAcceptComponent_ScaleInvariant(t *testing.T) {
	rects := []image.Rectangle{
		image.Rect(30, 15, 45, 75),
		image.Rect(0, 0, 4, 20),
		image.Rect(100, 10, 150, 70),
		image.Rect(200, 10, 205, 70),
		image.Rect(0, 0, 60, 70),
	}

	for _, r := range rects {
		base := AcceptComponent(300, 90, r)
		for _, k := range []int{2, 3, 5} {
			scaled := image.Rect(r.Min.X*k, r.Min.Y*k, r.Max.X*k, r.Max.Y*k)
			if got := AcceptComponent(300*k, 90*k, scaled); got != base {
				t.Errorf("%v at x%d: got %v, want %v", r, k, got, base)
			}
		}
	}
}

func TestBestTokens(t *testing.T) {
	tests := []struct {
		name   string
		tokens []ocr.Token
		want   []string
	}{
		{"empty", nil, nil},
		{"single", []ocr.Token{ocr.TextToken("A", 10)}, []string{"A"}},
		{"max wins", []ocr.Token{ocr.TextToken("B", 40), ocr.TextToken("8", 75), ocr.TextToken("3", 60)}, []string{"8"}},
		{"ties kept in order", []ocr.Token{ocr.TextToken("0", 80), ocr.TextToken("O", 50), ocr.TextToken("D", 80)}, []string{"0", "D"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BestTokens(tt.tokens)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i].String() != tt.want[i] {
					t.Errorf("token %d: got %q, want %q", i, got[i].String(), tt.want[i])
				}
			}
		})
	}
}

func TestRebase(t *testing.T) {
	x, y := Rebase(image.Rect(31, 16, 45, 75), 3, 100, 50)
	if x != 31.0/3+100 || y != 16.0/3+50 {
		t.Errorf("got (%v,%v), want (%v,%v)", x, y, 31.0/3+100, 16.0/3+50)
	}
}

func TestRecognizer_Recognize(t *testing.T) {
	glyph := image.Rect(30, 15, 45, 75)
	emptyBest := image.Rect(100, 10, 150, 70)
	failing := image.Rect(260, 10, 272, 70)

	seg := &imaging.Segmentation{
		Binary: image.NewGray(image.Rect(0, 0, 300, 90)),
		Width:  300,
		Height: 90,
		Scale:  3,
		Components: []image.Rectangle{
			glyph,
			image.Rect(60, 80, 70, 85),   // too short
			emptyBest,                    // best token has no text
			image.Rect(200, 10, 205, 70), // speck
			failing,                      // OCR error
		},
	}
	reader := &fakeReader{
		tokens: map[image.Rectangle][]ocr.Token{
			glyph:     {ocr.TextToken("A", 80), ocr.TextToken("4", 80), ocr.TextToken("", 20)},
			emptyBest: {ocr.TextToken("", 90), ocr.TextToken("B", 50)},
		},
		errs: map[image.Rectangle]error{failing: errors.New("engine crashed")},
	}

	rec := NewRecognizer(&fakeSegmenter{seg: seg}, reader, logging.Discard())
	region := &Region{Method: ShiftLeft, XStart: 100, YStart: 50, Width: 100, Height: 30}

	dets, err := rec.Recognize(context.Background(), region)
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}

	if reader.calls != 3 {
		t.Errorf("OCR calls: got %d, want 3 (filtered components are not read)", reader.calls)
	}
	if len(dets) != 2 {
		t.Fatalf("got %d detections, want 2: %+v", len(dets), dets)
	}

	for i, want := range []string{"A", "4"} {
		d := dets[i]
		if d.Text() != want || d.Confidence != 80 {
			t.Errorf("detection %d: got %q@%v, want %q@80", i, d.Text(), d.Confidence, want)
		}
		if d.X != 110 || d.Y != 55 {
			t.Errorf("detection %d: position (%v,%v), want (110,55)", i, d.X, d.Y)
		}
		if d.Width != 15 || d.Height != 60 || d.Method != ShiftLeft {
			t.Errorf("detection %d: got %dx%d %v", i, d.Width, d.Height, d.Method)
		}
	}
}

func TestRecognizer_NoComponents(t *testing.T) {
	seg := &imaging.Segmentation{Width: 300, Height: 90, Scale: 3, Components: []image.Rectangle{}}
	rec := NewRecognizer(&fakeSegmenter{seg: seg}, &fakeReader{}, logging.Discard())

	dets, err := rec.Recognize(context.Background(), &Region{})
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if len(dets) != 0 {
		t.Errorf("got %d detections, want 0", len(dets))
	}
}

func TestRecognizer_Errors(t *testing.T) {
	seg := &imaging.Segmentation{
		Width: 300, Height: 90, Scale: 3,
		Components: []image.Rectangle{image.Rect(30, 15, 45, 75)},
	}

	t.Run("segmentation failure", func(t *testing.T) {
		boom := errors.New("bad pixels")
		rec := NewRecognizer(&fakeSegmenter{err: boom}, &fakeReader{}, logging.Discard())
		if _, err := rec.Recognize(context.Background(), &Region{}); !errors.Is(err, boom) {
			t.Errorf("got %v, want wrapped segmentation error", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		rec := NewRecognizer(&fakeSegmenter{seg: seg}, &fakeReader{}, logging.Discard())
		if _, err := rec.Recognize(ctx, &Region{}); !errors.Is(err, context.Canceled) {
			t.Errorf("got %v, want context.Canceled", err)
		}
	})
}
