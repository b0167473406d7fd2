package detection

import (
	"image"
	"sort"
)

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

// Component is one connected group of foreground pixels.
type Component struct {
	// Bounds is the bounding rectangle (Min inclusive, Max exclusive).
	Bounds image.Rectangle `json:"bounds"`

	// Pixels is the number of foreground pixels in the component.
	Pixels int `json:"pixels"`
}

// FindComponents returns the 8-connected foreground components of a binary
// image, sorted left-to-right by their left edge.
//
// Parameters:
//   - bin: Binary image. Any non-zero gray value is foreground.
//
// Returns:
//   - []Component: Components with bounds in bin's coordinate system. Ties on
//     the left edge keep scan order (top-to-bottom, then left-to-right).
//
// An image with no foreground pixels yields an empty, non-nil slice.
func FindComponents(bin *image.Gray) []Component {
	bounds := bin.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	visited := make([][]bool, height)
	for y := 0; y < height; y++ {
		visited[y] = make([]bool, width)
	}

	foreground := func(x, y int) bool {
		return bin.Pix[y*bin.Stride+x] != 0
	}

	components := make([]Component, 0)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if visited[y][x] || !foreground(x, y) {
				continue
			}
			r, n := floodFill(foreground, visited, x, y, width, height)
			components = append(components, Component{
				Bounds: r.Add(bounds.Min),
				Pixels: n,
			})
		}
	}

	sort.SliceStable(components, func(i, j int) bool {
		return components[i].Bounds.Min.X < components[j].Bounds.Min.X
	})

	return components
}

// BoundingRects returns just the rectangles of FindComponents.
func BoundingRects(bin *image.Gray) []image.Rectangle {
	components := FindComponents(bin)
	rects := make([]image.Rectangle, len(components))
	for i, c := range components {
		rects[i] = c.Bounds
	}
	return rects
}

// floodFill performs iterative flood-fill from a starting point and returns
// the bounding rectangle (relative to the pixel grid) and pixel count.
//
// Uses a stack-based approach (not recursive) to avoid stack overflow
// on large components. Uses 8-connectivity (includes diagonal neighbors).
func floodFill(foreground func(x, y int) bool, visited [][]bool, startX, startY, width, height int) (image.Rectangle, int) {
	stack := []Point{{X: startX, Y: startY}}
	minX, minY := startX, startY
	maxX, maxY := startX, startY
	count := 0

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		if visited[p.Y][p.X] || !foreground(p.X, p.Y) {
			continue
		}

		visited[p.Y][p.X] = true
		count++

		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}

	return image.Rect(minX, minY, maxX+1, maxY+1), count
}
