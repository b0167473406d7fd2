// Package server implements the MCP (Model Context Protocol) server for the
// plate reading tools.
//
// This package provides a JSON-RPC 2.0 server that exposes the plate reader
// through the MCP protocol, so an MCP client can load a frame, inspect the
// crop variants of a plate box and read the plate.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Image Information:
//   - image_load: Load image and get metadata
//
// Region Operations:
//   - plate_regions: Pixel rectangles of the nine crop variants of a box
//   - plate_crop_variant: One variant as base64 PNG
//
// Recognition:
//   - plate_read: Full pipeline, box given or predicted
//   - plate_validate: Consensus over a caller-supplied detection pool
//   - plate_annotate: Variant rectangles and detections drawn on the frame
//   - plate_ocr_info: OCR backend status
//
// Boxes are always fractions of the image size: {"x", "y", "w", "h"} with
// (x, y) the top-left corner.
//
// # Image Caching
//
// The server maintains an in-memory cache of loaded images. Images are cached
// by path and reused across multiple tool calls, avoiding redundant disk I/O.
// The cache persists for the lifetime of the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: the error's code and details for pipeline errors (INVALID_BOX,
//     INVALID_METHOD, PREDICTION_FAILED), otherwise the Go error string
//
// # Usage
//
//	srv := server.New(
//	    server.WithReader(reader),
//	    server.WithPredictor(predictor),
//	    server.WithLogger(log),
//	)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
