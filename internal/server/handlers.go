package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ironsheep/bento-measure-mcp/internal/calibration"
	"github.com/ironsheep/bento-measure-mcp/internal/detection"
	"github.com/ironsheep/bento-measure-mcp/internal/engine"
	"github.com/ironsheep/bento-measure-mcp/internal/evaluation"
	"github.com/ironsheep/bento-measure-mcp/internal/imaging"
	"github.com/ironsheep/bento-measure-mcp/internal/store"
	"github.com/pkg/errors"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "bento_detect").
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
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.WithField("tool", params.Name).WithError(err).Warn("Tool execution failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
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
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	switch name {
	// Detection
	case "bento_detect":
		return s.handleDetect(ctx, args)
	case "bento_annotate":
		return s.handleAnnotate(ctx, args)
	case "bento_position":
		return s.handlePosition(args)

	// Calibration
	case "bento_calibrate":
		return s.handleCalibrate(args)

	// Evaluation
	case "bento_evaluate":
		return s.handleEvaluate(ctx, args)
	case "bento_logs":
		return s.handleLogs(ctx, args)

	// Image information
	case "bento_image_info":
		return s.handleImageInfo(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
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

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// parseMode maps an optional mode argument to a strategy, defaulting to fused.
func parseMode(mode string) (engine.Strategy, error) {
	if mode == "" {
		return engine.Fused, nil
	}
	return engine.ParseStrategy(mode)
}

// sizeArg builds a size from a pair of optional arguments. Both must be
// positive for the size to be used.
func sizeArg(widthMM, heightMM float64) *engine.Size {
	if widthMM <= 0 || heightMM <= 0 {
		return nil
	}
	return &engine.Size{WidthMM: widthMM, HeightMM: heightMM}
}

// === Detection Handlers ===

type detectArgs struct {
	Path            string  `json:"path"`
	ImageBase64     string  `json:"image_base64"`
	Filename        string  `json:"filename"`
	Mode            string  `json:"mode"`
	Threshold       float64 `json:"threshold"`
	PhysicalWidth   float64 `json:"physical_width_mm"`
	PhysicalHeight  float64 `json:"physical_height_mm"`
	GTWidth         float64 `json:"gt_width_mm"`
	GTHeight        float64 `json:"gt_height_mm"`
	Preview         bool    `json:"preview"`
	IncludePosition bool    `json:"include_position"`
}

// detectResponse is the detection result plus optional framing guidance.
type detectResponse struct {
	*engine.Result
	Position *engine.PositionInfo `json:"position,omitempty"`
}

func (a detectArgs) request() (engine.Request, error) {
	strategy, err := parseMode(a.Mode)
	if err != nil {
		return engine.Request{}, err
	}
	req := engine.Request{
		Path:         a.Path,
		Filename:     a.Filename,
		Strategy:     strategy,
		Threshold:    a.Threshold,
		PhysicalSize: sizeArg(a.PhysicalWidth, a.PhysicalHeight),
		GroundTruth:  sizeArg(a.GTWidth, a.GTHeight),
		Preview:      a.Preview,
	}
	if a.Path == "" {
		if a.ImageBase64 == "" {
			return engine.Request{}, errors.New("either path or image_base64 is required")
		}
		data, err := decodeBase64Image(a.ImageBase64)
		if err != nil {
			return engine.Request{}, err
		}
		req.Data = data
	}
	return req, nil
}

// decodeBase64Image accepts plain base64 or a data URL.
func decodeBase64Image(s string) ([]byte, error) {
	if i := strings.Index(s, ";base64,"); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.Wrap(err, "invalid image_base64")
	}
	return data, nil
}

func (s *Server) handleDetect(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a detectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	req, err := a.request()
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Detect(ctx, req)
	if err != nil {
		return nil, err
	}

	resp := detectResponse{Result: result}
	if a.IncludePosition {
		if p, ok := engine.Position(result.BBox.Box, result.ImageWidth, result.ImageHeight); ok {
			resp.Position = &p
		}
	}
	return resp, nil
}

type annotateArgs struct {
	Path        string  `json:"path"`
	ImageBase64 string  `json:"image_base64"`
	Filename    string  `json:"filename"`
	Mode        string  `json:"mode"`
	Threshold   float64 `json:"threshold"`
	Color       string  `json:"color"`
	Thickness   int     `json:"thickness"`
}

type annotateResponse struct {
	*imaging.AnnotatedImage
	Detection *engine.Result `json:"detection"`
}

func (s *Server) handleAnnotate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a annotateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Color == "" {
		a.Color = "#00FF00"
	}
	if a.Thickness == 0 {
		a.Thickness = 3
	}

	req, err := detectArgs{
		Path:        a.Path,
		ImageBase64: a.ImageBase64,
		Filename:    a.Filename,
		Mode:        a.Mode,
		Threshold:   a.Threshold,
	}.request()
	if err != nil {
		return nil, err
	}

	// Decode once and hand the pixels to Detect.
	img, name, err := s.engine.LoadImage(req)
	if err != nil {
		return nil, err
	}
	req.Path, req.Data, req.Image, req.Filename = "", nil, img, name

	result, err := s.engine.Detect(ctx, req)
	if err != nil {
		return nil, err
	}

	label := fmt.Sprintf("%s %.2f %.0fx%.0fmm", result.Strategy, result.Confidence, result.BBox.WidthMM, result.BBox.HeightMM)
	annotated, err := imaging.DrawBox(img, result.BBox.Rect(), label, a.Color, a.Thickness)
	if err != nil {
		return nil, err
	}
	return annotateResponse{AnnotatedImage: annotated, Detection: result}, nil
}

type positionArgs struct {
	Path        string `json:"path"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageWidth  int    `json:"image_width"`
	ImageHeight int    `json:"image_height"`
}

func (s *Server) handlePosition(args json.RawMessage) (interface{}, error) {
	var a positionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	if a.Path != "" {
		img, err := s.cache.Load(a.Path)
		if err != nil {
			return nil, err
		}
		a.ImageWidth, a.ImageHeight = img.Bounds().Dx(), img.Bounds().Dy()
	}

	box := detection.Box{X: a.X, Y: a.Y, Width: a.Width, Height: a.Height}
	p, ok := engine.Position(box, a.ImageWidth, a.ImageHeight)
	if !ok {
		return nil, errors.New("position needs a non-empty box and frame size")
	}
	return p, nil
}

// === Calibration Handlers ===

type calibrateArgs struct {
	Path     string `json:"path"`
	CardType string `json:"card_type"`
}

type calibrateResponse struct {
	Found bool `json:"found"`
	*calibration.Ratio
}

func (s *Server) handleCalibrate(args json.RawMessage) (interface{}, error) {
	var a calibrateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.CardType != "" {
		if _, ok := calibration.CardByName(a.CardType); !ok {
			return nil, errors.Errorf("unknown card type %q", a.CardType)
		}
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	c := s.calibrator
	if c == nil || (a.CardType != "" && a.CardType != c.Card().Name) {
		c = calibration.New(a.CardType, calibration.DefaultOptions(), s.log)
	}

	ratio, ok := c.CalculateRatio(img)
	if !ok {
		return calibrateResponse{Found: false}, nil
	}
	return calibrateResponse{Found: true, Ratio: &ratio}, nil
}

// === Evaluation Handlers ===

type evaluateArgs struct {
	Folder      string  `json:"folder"`
	GroundTruth string  `json:"ground_truth"`
	OutputDir   string  `json:"output_dir"`
	Mode        string  `json:"mode"`
	Threshold   float64 `json:"threshold"`
}

func (s *Server) handleEvaluate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a evaluateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Folder == "" {
		return nil, errors.New("folder is required")
	}

	var truth evaluation.GroundTruth
	if a.GroundTruth != "" {
		var err error
		if truth, err = evaluation.LoadGroundTruth(a.GroundTruth); err != nil {
			return nil, err
		}
	}

	ev := evaluation.New(s.engine, truth, evaluation.Options{Workers: s.workers, Threshold: a.Threshold, Cache: s.cache}, s.log)

	if a.Mode != "" {
		strategy, err := engine.ParseStrategy(a.Mode)
		if err != nil {
			return nil, err
		}
		paths, err := evaluation.CollectImages(a.Folder)
		if err != nil {
			return nil, err
		}
		metrics, _ := ev.EvaluateStrategy(ctx, paths, strategy)
		return metrics, nil
	}

	_, summary, err := ev.EvaluateFolder(ctx, a.Folder, a.OutputDir)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

type logsArgs struct {
	Limit int  `json:"limit"`
	Clear bool `json:"clear"`
}

type logsResponse struct {
	Count   int            `json:"count"`
	Total   int            `json:"total"`
	Records []store.Record `json:"records"`
}

type logsClearResponse struct {
	Cleared int `json:"cleared"`
}

func (s *Server) handleLogs(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a logsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	st := s.engine.Store()
	if st == nil {
		return nil, errors.New("detection log is disabled")
	}

	if a.Clear {
		n, err := st.Clear(ctx)
		if err != nil {
			return nil, err
		}
		s.log.WithField("records", n).Info("Detection log cleared")
		return logsClearResponse{Cleared: n}, nil
	}

	records, err := st.Recent(ctx, a.Limit)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []store.Record{}
	}
	total, err := st.Count(ctx)
	if err != nil {
		return nil, err
	}
	return logsResponse{Count: len(records), Total: total, Records: records}, nil
}

// === Image Information Handlers ===

type imageInfoArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageInfo(args json.RawMessage) (interface{}, error) {
	var a imageInfoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}
