package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math"
	"strconv"

	"github.com/sirupsen/logrus"

	apperrors "github.com/ironsheep/plate-tools-mcp/internal/errors"
	"github.com/ironsheep/plate-tools-mcp/internal/imaging"
	"github.com/ironsheep/plate-tools-mcp/internal/ocr"
	"github.com/ironsheep/plate-tools-mcp/internal/plate"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "plate_read").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
// Coded pipeline errors carry their code and details in the error data.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"tool": params.Name,
			"code": apperrors.CodeOf(err),
		}).WithError(err).Warn("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", errorData(err))
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads images from cache as needed
//  4. Calls the appropriate plate/imaging function
//  5. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_load":
		return s.handleImageLoad(args)

	case "plate_regions":
		return s.handlePlateRegions(args)
	case "plate_crop_variant":
		return s.handlePlateCropVariant(args)

	case "plate_read":
		return s.handlePlateRead(ctx, args)
	case "plate_validate":
		return s.handlePlateValidate(args)
	case "plate_annotate":
		return s.handlePlateAnnotate(ctx, args)
	case "plate_ocr_info":
		return s.ocr.Info(), nil

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// errorData is the structured form of a coded error, or the plain message.
func errorData(err error) interface{} {
	var pe *apperrors.PlateError
	if errors.As(err, &pe) {
		return pe.ToMap()
	}
	return err.Error()
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// methodEnum lists the method names accepted by the tools.
func methodEnum() []string {
	methods := plate.Methods()
	out := make([]string, len(methods))
	for i, m := range methods {
		out[i] = m.String()
	}
	return out
}

// === Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

// === Region Operation Handlers ===

type plateRegionsArgs struct {
	Path string    `json:"path"`
	Box  plate.Box `json:"box"`
}

type plateRegionsResult struct {
	Width   int             `json:"width"`
	Height  int             `json:"height"`
	Box     image.Rectangle `json:"box"`
	Regions []*plate.Region `json:"regions"`
}

func (s *Server) handlePlateRegions(args json.RawMessage) (interface{}, error) {
	var a plateRegionsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	regions, err := plate.Regions(bounds, a.Box)
	if err != nil {
		return nil, err
	}
	return &plateRegionsResult{
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
		Box:     plate.PixelRect(a.Box, bounds.Dx(), bounds.Dy()),
		Regions: regions,
	}, nil
}

type plateCropVariantArgs struct {
	Path   string    `json:"path"`
	Box    plate.Box `json:"box"`
	Method string    `json:"method"`
	Scale  float64   `json:"scale"`
}

type plateCropVariantResult struct {
	*imaging.CropResult
	Region *plate.Region `json:"region"`
}

func (s *Server) handlePlateCropVariant(args json.RawMessage) (interface{}, error) {
	var a plateCropVariantArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	if a.Method == "" {
		a.Method = plate.Centered.String()
	}

	m, err := plate.ParseMethod(a.Method)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	region, err := plate.Extract(img, a.Box, m)
	if err != nil {
		return nil, err
	}
	crop, err := imaging.Encode(region.Image, a.Scale)
	if err != nil {
		return nil, err
	}
	return &plateCropVariantResult{CropResult: crop, Region: region}, nil
}

// === Recognition Handlers ===

type plateReadArgs struct {
	Path        string     `json:"path"`
	Box         *plate.Box `json:"box"`
	Methods     []string   `json:"methods"`
	IncludePool bool       `json:"include_pool"`
}

type plateReadResult struct {
	Plate      string                `json:"plate"`
	Box        plate.Box             `json:"box"`
	Predicted  bool                  `json:"predicted"`
	Detections []plate.Detection     `json:"detections"`
	Pool       []plate.Detection     `json:"pool,omitempty"`
	Variants   []plate.VariantReport `json:"variants"`
	DurationMs int64                 `json:"duration_ms"`
}

// resolveBox returns the caller's box, or asks the predictor for one.
func (s *Server) resolveBox(ctx context.Context, img image.Image, box *plate.Box) (plate.Box, bool, error) {
	if box != nil {
		return *box, false, nil
	}
	if s.predictor == nil {
		return plate.Box{}, false, apperrors.NewInvalidBoxError("box is required when no predictor is configured", nil)
	}
	predicted, err := s.predictor.Predict(ctx, img)
	if err != nil {
		var pe *apperrors.PlateError
		if errors.As(err, &pe) {
			return plate.Box{}, true, err
		}
		return plate.Box{}, true, apperrors.NewPredictionError(err)
	}
	return predicted, true, nil
}

func (s *Server) readPlate(ctx context.Context, a plateReadArgs) (*plateReadResult, image.Image, error) {
	methods, err := plate.ParseMethods(a.Methods)
	if err != nil {
		return nil, nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, nil, err
	}
	box, predicted, err := s.resolveBox(ctx, img, a.Box)
	if err != nil {
		return nil, nil, err
	}

	res, err := s.reader.WithMethods(methods).Read(ctx, img, box)
	if err != nil {
		return nil, nil, err
	}

	out := &plateReadResult{
		Plate:      res.Plate,
		Box:        box,
		Predicted:  predicted,
		Detections: res.Detections,
		Variants:   res.Variants,
		DurationMs: res.Duration.Milliseconds(),
	}
	if a.IncludePool {
		out.Pool = res.Pool
	}
	return out, img, nil
}

func (s *Server) handlePlateRead(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a plateReadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	res, _, err := s.readPlate(ctx, a)
	return res, err
}

type poolEntry struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Text       string  `json:"text"`
	Code       *int    `json:"code"`
	Confidence float64 `json:"confidence"`
}

type plateValidateArgs struct {
	Detections    []poolEntry `json:"detections"`
	MinConfidence *float64    `json:"min_confidence"`
}

type plateValidateResult struct {
	Plate      string            `json:"plate"`
	Clusters   int               `json:"clusters"`
	Detections []plate.Detection `json:"detections"`
}

func (s *Server) handlePlateValidate(args json.RawMessage) (interface{}, error) {
	var a plateValidateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	minConf := plate.MinConfidence
	if a.MinConfidence != nil {
		minConf = *a.MinConfidence
	}

	pool := make([]plate.Detection, len(a.Detections))
	for i, e := range a.Detections {
		tok := ocr.TextToken(e.Text, e.Confidence)
		if e.Code != nil {
			tok = ocr.CodeToken(*e.Code, e.Confidence)
		}
		pool[i] = plate.NewDetection(e.X, e.Y, tok, plate.Centered)
	}

	selected := plate.Select(pool, minConf)
	return &plateValidateResult{
		Plate:      plate.Compose(selected),
		Clusters:   len(plate.Consensus(pool)),
		Detections: selected,
	}, nil
}

// === Annotation Handlers ===

type plateAnnotateArgs struct {
	Path string    `json:"path"`
	Box  plate.Box `json:"box"`
	Read bool      `json:"read"`
}

type plateAnnotateResult struct {
	*imaging.AnnotateResult
	Plate string `json:"plate,omitempty"`
}

func (s *Server) handlePlateAnnotate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a plateAnnotateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	var read *plateReadResult
	if a.Read {
		box := a.Box
		read, _, err = s.readPlate(ctx, plateReadArgs{Path: a.Path, Box: &box})
		if err != nil {
			return nil, err
		}
	}

	boxes, err := AnnotationBoxes(img.Bounds(), a.Box, read.selected())
	if err != nil {
		return nil, err
	}
	ann, err := imaging.Annotate(img, boxes)
	if err != nil {
		return nil, err
	}

	out := &plateAnnotateResult{AnnotateResult: ann}
	if read != nil {
		out.Plate = read.Plate
	}
	return out, nil
}

func (r *plateReadResult) selected() []plate.Detection {
	if r == nil {
		return nil
	}
	return r.Detections
}

// AnnotationBoxes lays out an overlay for box: the nine variant rectangles
// labelled with their method index, the plate box in white, then one box per
// detection labelled with its rounded confidence.
func AnnotationBoxes(bounds image.Rectangle, box plate.Box, detections []plate.Detection) ([]imaging.AnnotatedBox, error) {
	regions, err := plate.Regions(bounds, box)
	if err != nil {
		return nil, err
	}

	boxes := make([]imaging.AnnotatedBox, 0, len(regions)+1+len(detections))
	for _, r := range regions {
		boxes = append(boxes, imaging.AnnotatedBox{
			Rect:  r.Rect().Add(bounds.Min),
			Label: strconv.Itoa(int(r.Method)),
			Group: int(r.Method),
		})
	}
	boxes = append(boxes, imaging.AnnotatedBox{
		Rect:  plate.PixelRect(box, bounds.Dx(), bounds.Dy()).Add(bounds.Min),
		Color: "#FFFFFF",
	})

	for _, d := range detections {
		x, y := int(math.Floor(d.X)), int(math.Floor(d.Y))
		w := max(d.Width/imaging.UpscaleFactor, 1)
		h := max(d.Height/imaging.UpscaleFactor, 1)
		boxes = append(boxes, imaging.AnnotatedBox{
			Rect:  image.Rect(x, y, x+w, y+h).Add(bounds.Min),
			Label: strconv.Itoa(int(math.Round(d.Confidence))),
			Color: "#00FF00",
		})
	}
	return boxes, nil
}
