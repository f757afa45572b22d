package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ironsheep/exposure-control/internal/camera"
	"github.com/ironsheep/exposure-control/internal/exposure"
	"github.com/ironsheep/exposure-control/internal/imaging"
	"github.com/ironsheep/exposure-control/internal/loop"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "exposure_measure").
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
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Debug("tool failed", zap.String("tool", params.Name), zap.Error(err))
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
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "exposure_measure":
		return s.handleMeasure(args)

	// Step-driven sessions
	case "exposure_session_start":
		return s.handleSessionStart(args)
	case "exposure_session_step":
		return s.handleSessionStep(args)
	case "exposure_session_state":
		return s.handleSessionState(args)
	case "exposure_session_end":
		return s.handleSessionEnd(args)

	case "exposure_simulate":
		return s.handleSimulate(args)

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
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return errors.New("missing arguments")
	}
	return json.Unmarshal(args, v)
}

// === Measurement ===

type rectArgs struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

type measureArgs struct {
	Path   string    `json:"path"`
	Region string    `json:"region"`
	Rect   *rectArgs `json:"rect"`
}

type measureResult struct {
	Path      string             `json:"path"`
	Width     int                `json:"width"`
	Height    int                `json:"height"`
	Region    imaging.Region     `json:"region"`
	Rows      int                `json:"rows"`
	Cols      int                `json:"cols"`
	Channels  int                `json:"channels"`
	Histogram exposure.Histogram `json:"histogram"`
	MSV       float64            `json:"msv"`
}

func (s *Server) handleMeasure(args json.RawMessage) (interface{}, error) {
	var a measureArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	return s.measure(a.Path, a.Region, a.Rect)
}

func (s *Server) measure(path, regionName string, rect *rectArgs) (*measureResult, error) {
	region, err := imaging.ParseRegion(regionName)
	if err != nil {
		return nil, err
	}

	img, err := s.cache.Load(path)
	if err != nil {
		return nil, err
	}

	metered := img
	if rect != nil {
		metered, err = imaging.CropRect(img, rect.X1, rect.Y1, rect.X2, rect.Y2)
	} else {
		metered, err = imaging.Meter(img, region)
	}
	if err != nil {
		return nil, err
	}

	frame := imaging.ToFrame(metered)
	hist, err := exposure.ComputeHistogram(frame)
	if err != nil {
		return nil, err
	}

	return &measureResult{
		Path:      path,
		Width:     img.Bounds().Dx(),
		Height:    img.Bounds().Dy(),
		Region:    region,
		Rows:      frame.Rows,
		Cols:      frame.Cols,
		Channels:  frame.Channels,
		Histogram: hist,
		MSV:       hist.MSV(),
	}, nil
}

// === Sessions ===

// controllerParams decodes a params object over the configured tuning, so
// omitted fields keep their configured values.
func (s *Server) controllerParams(raw json.RawMessage) (exposure.Params, error) {
	p := s.cfg.Controller
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return exposure.Params{}, fmt.Errorf("invalid params: %w", err)
	}
	return p, nil
}

type sessionStartArgs struct {
	StartEV           *float64        `json:"start_ev"`
	Params            json.RawMessage `json:"params"`
	ConvergenceCycles int             `json:"convergence_cycles"`
	Region            string          `json:"region"`
}

func (s *Server) handleSessionStart(args json.RawMessage) (interface{}, error) {
	a := sessionStartArgs{}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
	}

	startEV := s.cfg.Dataset.StartEV
	if a.StartEV != nil {
		startEV = *a.StartEV
	}
	params, err := s.controllerParams(a.Params)
	if err != nil {
		return nil, err
	}
	cycles := s.cfg.ConvergenceCycles
	if a.ConvergenceCycles > 0 {
		cycles = a.ConvergenceCycles
	}
	regionName := s.cfg.Region
	if a.Region != "" {
		regionName = a.Region
	}
	region, err := imaging.ParseRegion(regionName)
	if err != nil {
		return nil, err
	}

	ctrl, err := exposure.NewController(startEV, params)
	if err != nil {
		return nil, err
	}

	ss := s.addSession(ctrl, cycles, region)
	s.logger.Info("session started", zap.String("session", ss.id), zap.Float64("start_ev", startEV))

	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.snapshot(), nil
}

type sessionStepArgs struct {
	SessionID string    `json:"session_id"`
	MSV       *float64  `json:"msv"`
	Path      string    `json:"path"`
	Region    string    `json:"region"`
	Rect      *rectArgs `json:"rect"`
}

type sessionStepResult struct {
	sessionState
	MSV     float64 `json:"msv"`
	Changed bool    `json:"changed"`
}

func (s *Server) handleSessionStep(args json.RawMessage) (interface{}, error) {
	var a sessionStepArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if (a.MSV == nil) == (a.Path == "") {
		return nil, errors.New("exactly one of msv or path is required")
	}

	ss, err := s.getSession(a.SessionID)
	if err != nil {
		return nil, err
	}

	// Measure outside the session lock; decoding is the slow part.
	var msv float64
	if a.MSV != nil {
		msv = *a.MSV
	} else {
		region := a.Region
		if region == "" {
			region = string(ss.region)
		}
		m, err := s.measure(a.Path, region, a.Rect)
		if err != nil {
			return nil, err
		}
		msv = m.MSV
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()

	prev := ss.ctrl.EV()
	ev, err := ss.ctrl.Step(msv)
	if err != nil {
		return nil, err
	}
	ss.cycles++
	if ss.conv.Observe(ev) {
		ss.converged = true
	}

	return sessionStepResult{
		sessionState: ss.snapshot(),
		MSV:          msv,
		Changed:      ev != prev,
	}, nil
}

type sessionIDArgs struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleSessionState(args json.RawMessage) (interface{}, error) {
	var a sessionIDArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	ss, err := s.getSession(a.SessionID)
	if err != nil {
		return nil, err
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.snapshot(), nil
}

func (s *Server) handleSessionEnd(args json.RawMessage) (interface{}, error) {
	var a sessionIDArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	ss, err := s.removeSession(a.SessionID)
	if err != nil {
		return nil, err
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()
	s.logger.Info("session ended", zap.String("session", ss.id), zap.Int("cycles", ss.cycles))
	return ss.snapshot(), nil
}

// === Simulation ===

type simulateArgs struct {
	Dataset           string          `json:"dataset"`
	StartEV           *float64        `json:"start_ev"`
	Params            json.RawMessage `json:"params"`
	MaxCycles         *int            `json:"max_cycles"`
	ConvergenceCycles int             `json:"convergence_cycles"`
	Region            string          `json:"region"`
	MissPolicy        string          `json:"miss_policy"`
	Trace             bool            `json:"trace"`
}

type simulateResult struct {
	loop.Result
	StartEV float64      `json:"start_ev"`
	Frames  int          `json:"frames"`
	MinEV   float64      `json:"min_ev"`
	MaxEV   float64      `json:"max_ev"`
	Trace   []loop.Cycle `json:"trace,omitempty"`
}

// defaultSimulateMaxCycles bounds simulations when neither the request nor the
// config sets a limit, so a non-converging tuning cannot hang the server.
const defaultSimulateMaxCycles = 1000

func (s *Server) handleSimulate(args json.RawMessage) (interface{}, error) {
	var a simulateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	pattern := a.Dataset
	if pattern == "" {
		pattern = s.cfg.Dataset.Pattern
	}
	if pattern == "" {
		return nil, errors.New("dataset is required")
	}

	opts := append(s.cfg.DatasetOptions(), camera.WithCache(s.cache), camera.WithLogger(s.logger))
	if a.MissPolicy != "" {
		policy, err := camera.ParseMissPolicy(a.MissPolicy)
		if err != nil {
			return nil, err
		}
		opts = append(opts, camera.WithMissPolicy(policy))
	}

	startEV := s.cfg.Dataset.StartEV
	if a.StartEV != nil {
		startEV = *a.StartEV
	}
	params, err := s.controllerParams(a.Params)
	if err != nil {
		return nil, err
	}
	maxCycles := s.cfg.MaxCycles
	if a.MaxCycles != nil {
		maxCycles = *a.MaxCycles
	}
	if maxCycles <= 0 {
		maxCycles = defaultSimulateMaxCycles
	}
	cycles := s.cfg.ConvergenceCycles
	if a.ConvergenceCycles > 0 {
		cycles = a.ConvergenceCycles
	}
	regionName := s.cfg.Region
	if a.Region != "" {
		regionName = a.Region
	}
	region, err := imaging.ParseRegion(regionName)
	if err != nil {
		return nil, err
	}

	ds, err := camera.LoadDataset(pattern, opts...)
	if err != nil {
		return nil, err
	}
	ctrl, err := exposure.NewController(startEV, params)
	if err != nil {
		return nil, err
	}

	out := &simulateResult{StartEV: startEV, Frames: ds.Len()}
	out.MinEV, out.MaxEV = ds.Range()

	runOpts := loop.Options{
		ConvergenceCycles: cycles,
		MaxCycles:         maxCycles,
		Region:            region,
		Logger:            s.logger,
	}
	if a.Trace {
		runOpts.OnCycle = func(c loop.Cycle) {
			out.Trace = append(out.Trace, c)
		}
	}

	res, err := loop.Run(context.Background(), ds, ctrl, runOpts)
	out.Result = res
	if err != nil && !errors.Is(err, loop.ErrMaxCycles) {
		return nil, err
	}
	return out, nil
}
