// Package imaging holds the pixel-level stages of plate reading.
//
// It loads and caches frames, segments a plate crop into candidate character
// components, cuts OCR patches out of the binarized crop, and renders
// annotation overlays and crops as base64 PNG for the MCP tools.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward. Regions follow the Go
// convention: Min is inclusive, Max is exclusive.
//
// Segmentation works on a crop upscaled by UpscaleFactor. Component
// rectangles in a Segmentation are in upscaled pixels; callers divide by
// Segmentation.Scale to map them back onto the crop.
//
// # Segmenters
//
// BildSegmenter is pure Go and is the default. Building with the gocv tag
// switches DefaultSegmenter to an OpenCV implementation of the same pipeline,
// which needs OpenCV 4 installed:
//
//	go build -tags gocv ./...
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Segmenters are stateless; the plate
// reader calls one Segmenter from several goroutines at once.
package imaging
