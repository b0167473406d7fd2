package plate

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/disintegration/imaging"

	apperrors "github.com/ironsheep/plate-tools-mcp/internal/errors"
)

// ErrInvalidBox is the cause of every bounding-box validation failure.
var ErrInvalidBox = apperrors.ErrInvalidBox

// shiftFraction is the share of the box origin used as the shift magnitude.
const shiftFraction = 0.1

// Box is a plate bounding box as fractions of the image size, with (X, Y) the
// top-left corner.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Validate checks that every field is a fraction in [0, 1] and the box has
// positive width and height.
func (b Box) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{{"x", b.X}, {"y", b.Y}, {"w", b.W}, {"h", b.H}}

	for _, f := range fields {
		if math.IsNaN(f.value) || f.value < 0 || f.value > 1 {
			return apperrors.NewInvalidBoxError(
				fmt.Sprintf("box %s=%v is not a fraction in [0,1]", f.name, f.value),
				map[string]interface{}{f.name: f.value},
			)
		}
	}
	if b.W == 0 || b.H == 0 {
		return apperrors.NewInvalidBoxError("box has zero width or height",
			map[string]interface{}{"w": b.W, "h": b.H})
	}
	return nil
}

func (b Box) String() string {
	return fmt.Sprintf("(%.4f,%.4f %.4fx%.4f)", b.X, b.Y, b.W, b.H)
}

// Method is one of the nine crop variants derived from a bounding box.
type Method int

const (
	Centered Method = iota
	ShiftUp
	ShiftDown
	ShiftLeft
	ShiftRight
	TopRight
	BottomRight
	BottomLeft
	TopLeft
)

var methodNames = [...]string{
	Centered:    "centered",
	ShiftUp:     "up",
	ShiftDown:   "down",
	ShiftLeft:   "left",
	ShiftRight:  "right",
	TopRight:    "topright",
	BottomRight: "bottomright",
	BottomLeft:  "bottomleft",
	TopLeft:     "topleft",
}

// offsetSigns holds the (dx, dy) direction of each method's shift.
var offsetSigns = [...][2]int{
	Centered:    {0, 0},
	ShiftUp:     {0, -1},
	ShiftDown:   {0, 1},
	ShiftLeft:   {-1, 0},
	ShiftRight:  {1, 0},
	TopRight:    {1, -1},
	BottomRight: {1, 1},
	BottomLeft:  {-1, 1},
	TopLeft:     {-1, -1},
}

// Methods returns all nine methods in canonical order.
func Methods() []Method {
	return []Method{Centered, ShiftUp, ShiftDown, ShiftLeft, ShiftRight, TopRight, BottomRight, BottomLeft, TopLeft}
}

// Valid reports whether m is one of the nine methods.
func (m Method) Valid() bool {
	return m >= Centered && m <= TopLeft
}

func (m Method) String() string {
	if !m.Valid() {
		return fmt.Sprintf("method(%d)", int(m))
	}
	return methodNames[m]
}

// ParseMethod maps a method name to its Method. "normal" is accepted as an
// alias for centered.
func ParseMethod(name string) (Method, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "normal" {
		return Centered, nil
	}
	for i, s := range methodNames {
		if s == n {
			return Method(i), nil
		}
	}
	return 0, apperrors.NewInvalidMethodError(name)
}

// ParseMethods parses a list of names. An empty list means all methods.
func ParseMethods(names []string) ([]Method, error) {
	if len(names) == 0 {
		return Methods(), nil
	}
	out := make([]Method, 0, len(names))
	seen := make(map[Method]bool, len(names))
	for _, name := range names {
		m, err := ParseMethod(name)
		if err != nil {
			return nil, err
		}
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out, nil
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, apperrors.NewInvalidMethodError(m.String())
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Region is one crop variant in absolute pixel coordinates of the full image.
type Region struct {
	Method Method `json:"method"`

	// XStart and YStart are the crop origin after clamping.
	XStart int `json:"x_start"`
	YStart int `json:"y_start"`
	Width  int `json:"width"`
	Height int `json:"height"`

	// Shift is the offset the method asked for, before clamping.
	Shift image.Point `json:"shift"`

	// Clamped is set when the shifted rectangle had to be moved or truncated
	// to fit the image.
	Clamped bool `json:"clamped"`

	// Image is the cropped pixel buffer with origin (0, 0).
	Image image.Image `json:"-"`
}

// Rect returns the region as a rectangle in full-image coordinates.
func (r *Region) Rect() image.Rectangle {
	return image.Rect(r.XStart, r.YStart, r.XStart+r.Width, r.YStart+r.Height)
}

// round is round-half-to-even, so 0.5 pixel ties do not all drift one way.
func round(v float64) int {
	return int(math.RoundToEven(v))
}

// PixelRect converts box to an absolute pixel rectangle on a width x height
// image. The result is not clamped.
func PixelRect(box Box, width, height int) image.Rectangle {
	x := round(box.X * float64(width))
	y := round(box.Y * float64(height))
	w := round(box.W * float64(width))
	h := round(box.H * float64(height))
	return image.Rect(x, y, x+w, y+h)
}

// Offset returns the origin shift for m. Magnitudes scale with the box
// origin: 10% of its x for horizontal shifts and 10% of its y for vertical
// ones.
func Offset(m Method, box Box, width, height int) image.Point {
	if !m.Valid() {
		return image.Point{}
	}
	horiz := round(box.X * float64(width) * shiftFraction)
	vert := round(box.Y * float64(height) * shiftFraction)
	s := offsetSigns[m]
	return image.Pt(s[0]*horiz, s[1]*vert)
}

// clampSpan moves [start, start+size) inside [0, limit) without changing its
// size. A span larger than limit is truncated to [0, limit).
func clampSpan(start, size, limit int) (int, int, bool) {
	switch {
	case size >= limit:
		return 0, limit, start != 0 || size != limit
	case start < 0:
		return 0, size, true
	case start+size > limit:
		return limit - size, size, true
	default:
		return start, size, false
	}
}

// RegionRect computes the clamped pixel rectangle for one method without
// cropping.
func RegionRect(bounds image.Rectangle, box Box, m Method) (*Region, error) {
	if err := box.Validate(); err != nil {
		return nil, err
	}
	if !m.Valid() {
		return nil, apperrors.NewInvalidMethodError(m.String())
	}

	width, height := bounds.Dx(), bounds.Dy()
	rect := PixelRect(box, width, height)
	if rect.Dx() <= 0 || rect.Dy() <= 0 {
		return nil, apperrors.NewInvalidBoxError(
			fmt.Sprintf("box %v is smaller than one pixel on a %dx%d image", box, width, height),
			map[string]interface{}{"image_width": width, "image_height": height},
		)
	}

	shift := Offset(m, box, width, height)
	shifted := rect.Add(shift)

	x, w, cx := clampSpan(shifted.Min.X, shifted.Dx(), width)
	y, h, cy := clampSpan(shifted.Min.Y, shifted.Dy(), height)

	return &Region{
		Method:  m,
		XStart:  x,
		YStart:  y,
		Width:   w,
		Height:  h,
		Shift:   shift,
		Clamped: cx || cy,
	}, nil
}

// Extract crops the variant m of box out of img.
//
// The shifted rectangle is translated back inside the image keeping its size,
// and truncated only when it is larger than the image. Every method therefore
// yields a crop of the same size for a given box and image.
func Extract(img image.Image, box Box, m Method) (*Region, error) {
	bounds := img.Bounds()
	region, err := RegionRect(bounds, box, m)
	if err != nil {
		return nil, err
	}

	region.Image = imaging.Crop(img, region.Rect().Add(bounds.Min))
	return region, nil
}

// Regions computes all nine variant rectangles for box without cropping.
func Regions(bounds image.Rectangle, box Box) ([]*Region, error) {
	out := make([]*Region, 0, len(methodNames))
	for _, m := range Methods() {
		r, err := RegionRect(bounds, box, m)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
