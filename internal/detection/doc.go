// Package detection finds character-shaped connected components in binary
// images.
//
// The plate segmenters binarize an upscaled plate crop so that character
// strokes are foreground (non-zero) and background is zero. This package groups
// foreground pixels into connected components and reports each component's
// bounding rectangle, which the recognizer then filters by shape before OCR.
//
// # Algorithm Overview
//
//  1. Scan the image row by row for unvisited foreground pixels
//  2. Flood-fill from each one with 8-connectivity (diagonals included)
//  3. Track the min/max X and Y of the filled pixels
//  4. Emit the bounding rectangle of the component
//  5. Sort components left-to-right by their left edge
//
// Only outer extents are reported: a hole inside a glyph (the counter of an
// "A" or "0") belongs to the glyph's component and is never reported on its
// own.
//
// # Coordinate System
//
// Rectangles use the image's own coordinate system with the usual Go
// convention: Min is inclusive and Max is exclusive, so a single foreground
// pixel at (3, 4) yields image.Rect(3, 4, 4, 5).
//
// # Performance Considerations
//
// Every pixel is visited a constant number of times, so the cost is linear in
// the image area. The fill uses an explicit stack rather than recursion, so
// large components cannot overflow the goroutine stack.
package detection
