package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// boxSchema describes a normalized plate bounding box argument.
func boxSchema(description string) map[string]interface{} {
	fraction := func(desc string) map[string]interface{} {
		return map[string]interface{}{
			"type":        "number",
			"minimum":     0,
			"maximum":     1,
			"description": desc,
		}
	}
	return map[string]interface{}{
		"type":        "object",
		"description": description,
		"properties": map[string]interface{}{
			"x": fraction("Left edge as a fraction of image width"),
			"y": fraction("Top edge as a fraction of image height"),
			"w": fraction("Width as a fraction of image width"),
			"h": fraction("Height as a fraction of image height"),
		},
		"required": []string{"x", "y", "w", "h"},
	}
}

func pathSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func methodsSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string", "enum": methodEnum()},
		"description": "Crop variants to run. Default: all nine",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format. Plate boxes are fractions of these dimensions.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathSchema(),
				},
				"required": []string{"path"},
			},
		},

		// Region Operations
		{
			Name:        "plate_regions",
			Description: "Compute the nine shifted crop rectangles (centered, left, right, top, bottom and the four diagonals) for a plate bounding box, in image pixels.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathSchema(),
					"box":  boxSchema("Plate bounding box"),
				},
				"required": []string{"path", "box"},
			},
		},
		{
			Name:        "plate_crop_variant",
			Description: "Crop one variant of a plate bounding box and return it as base64-encoded PNG. Use this to inspect what the recognizer sees for a method.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathSchema(),
					"box":  boxSchema("Plate bounding box"),
					"method": map[string]interface{}{
						"type":        "string",
						"enum":        methodEnum(),
						"description": "Crop variant. Default: centered",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 3.0 to triple size). Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"path", "box"},
			},
		},

		// Recognition
		{
			Name:        "plate_read",
			Description: "Read the license plate in an image. Runs OCR on nine shifted crops of the box in parallel and reconciles the characters. When box is omitted the configured predictor locates the plate.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":    pathSchema(),
					"box":     boxSchema("Plate bounding box. Optional when a predictor is configured"),
					"methods": methodsSchema(),
					"include_pool": map[string]interface{}{
						"type":        "boolean",
						"description": "Include every raw detection from every variant. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "plate_validate",
			Description: "Reconcile a pool of character detections into a plate string: cluster detections within one pixel, keep the most confident per cluster, drop those under the confidence floor and order left to right.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"detections": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x":          map[string]interface{}{"type": "number"},
								"y":          map[string]interface{}{"type": "number"},
								"text":       map[string]interface{}{"type": "string"},
								"code":       map[string]interface{}{"type": "integer"},
								"confidence": map[string]interface{}{"type": "number"},
							},
							"required": []string{"x", "y", "confidence"},
						},
						"description": "Detections in full-image pixel coordinates. Give text, or code for a numeric class",
					},
					"min_confidence": map[string]interface{}{
						"type":        "number",
						"description": "Confidence floor. Default 40",
						"default":     40,
					},
				},
				"required": []string{"detections"},
			},
		},
		{
			Name:        "plate_annotate",
			Description: "Draw the plate box, its nine variant rectangles and optionally the characters of a read onto the image. Returns base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathSchema(),
					"box":  boxSchema("Plate bounding box"),
					"read": map[string]interface{}{
						"type":        "boolean",
						"description": "Run plate_read first and label the selected characters. Default false",
						"default":     false,
					},
				},
				"required": []string{"path", "box"},
			},
		},
		{
			Name:        "plate_ocr_info",
			Description: "Report the OCR backend: availability, version, language and character whitelist.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
