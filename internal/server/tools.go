package server

import "github.com/ironsheep/bento-measure-mcp/internal/calibration"

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var modeEnum = []string{"classical", "learned", "fused"}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func numberProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "number",
		"description": description,
	}
}

func integerProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Detection
		{
			Name:        "bento_detect",
			Description: "Detect the bento box in an image and measure it in millimeters. Pass either a file path or a base64 image. Every call is recorded in the detection log.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"image_base64": map[string]interface{}{
						"type":        "string",
						"description": "Base64-encoded image, used when path is empty",
					},
					"filename": map[string]interface{}{
						"type":        "string",
						"description": "Label for the detection log. Defaults to the file name of path",
					},
					"mode": map[string]interface{}{
						"type":        "string",
						"enum":        modeEnum,
						"description": "Detection strategy. Default fused",
						"default":     "fused",
					},
					"threshold":          numberProperty("Learned detector confidence threshold (0-1). Default from configuration"),
					"physical_width_mm":  numberProperty("Real width of the whole frame, used to derive the mm per pixel ratio"),
					"physical_height_mm": numberProperty("Real height of the whole frame"),
					"gt_width_mm":        numberProperty("True box width, used to compute error_mm"),
					"gt_height_mm":       numberProperty("True box height"),
					"preview": map[string]interface{}{
						"type":        "boolean",
						"description": "Fast preview: forces the classical strategy",
						"default":     false,
					},
					"include_position": map[string]interface{}{
						"type":        "boolean",
						"description": "Add framing guidance for the detected box",
						"default":     false,
					},
				},
			},
		},
		{
			Name:        "bento_annotate",
			Description: "Detect the bento box and return the image with the box drawn on it as base64-encoded PNG. Pass either a file path or a base64 image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"image_base64": map[string]interface{}{
						"type":        "string",
						"description": "Base64-encoded image, used when path is empty",
					},
					"filename": map[string]interface{}{
						"type":        "string",
						"description": "Label for the detection log. Defaults to the file name of path",
					},
					"mode": map[string]interface{}{
						"type":        "string",
						"enum":        modeEnum,
						"description": "Detection strategy. Default fused",
						"default":     "fused",
					},
					"threshold": numberProperty("Learned detector confidence threshold (0-1)"),
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Box color as #RRGGBB. Default #00FF00",
						"default":     "#00FF00",
					},
					"thickness": map[string]interface{}{
						"type":        "integer",
						"description": "Box line thickness in pixels. Default 3",
						"default":     3,
					},
				},
			},
		},
		{
			Name:        "bento_position",
			Description: "Describe where a box sits in the frame (left/right, top/bottom, too small/too large) and suggest how to reframe it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":         pathProperty(),
					"x":            integerProperty("Box left edge"),
					"y":            integerProperty("Box top edge"),
					"width":        integerProperty("Box width"),
					"height":       integerProperty("Box height"),
					"image_width":  integerProperty("Frame width, used when path is empty"),
					"image_height": integerProperty("Frame height, used when path is empty"),
				},
				"required": []string{"x", "y", "width", "height"},
			},
		},

		// Calibration
		{
			Name:        "bento_calibrate",
			Description: "Find a reference card in the image and derive the mm per pixel ratio from its known size.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"card_type": map[string]interface{}{
						"type":        "string",
						"enum":        calibration.CardNames(),
						"description": "Reference card. Default from configuration",
					},
				},
				"required": []string{"path"},
			},
		},

		// Evaluation
		{
			Name:        "bento_evaluate",
			Description: "Run every detection strategy over a folder of images and compare accuracy, speed and success rate. Optionally writes metrics.csv and evaluation summaries.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"folder": map[string]interface{}{
						"type":        "string",
						"description": "Folder with .jpg, .jpeg, .png or .bmp images",
					},
					"ground_truth": map[string]interface{}{
						"type":        "string",
						"description": "JSON or YAML file mapping file names to width_mm and height_mm",
					},
					"output_dir": map[string]interface{}{
						"type":        "string",
						"description": "Where to write the exports. Empty skips writing",
					},
					"mode": map[string]interface{}{
						"type":        "string",
						"enum":        modeEnum,
						"description": "Evaluate a single strategy instead of comparing all three",
					},
					"threshold": numberProperty("Learned detector confidence threshold (0-1)"),
				},
				"required": []string{"folder"},
			},
		},
		{
			Name:        "bento_logs",
			Description: "List the most recent detection log records, newest first, with the total stored. Set clear to delete the whole log instead.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum records to return. Default 50",
						"default":     50,
					},
					"clear": map[string]interface{}{
						"type":        "boolean",
						"description": "Delete every stored record and report how many were removed",
						"default":     false,
					},
				},
			},
		},

		// Image information
		{
			Name:        "bento_image_info",
			Description: "Get the dimensions, format, brightness and file size of an image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
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
