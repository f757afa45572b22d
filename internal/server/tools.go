package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func regionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Metering region. Default full",
		"enum": []string{
			"full", "center",
			"top-half", "bottom-half", "left-half", "right-half",
			"top-left", "top-right", "bottom-left", "bottom-right",
		},
	}
}

func rectProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": "Explicit spot-metering rectangle; overrides region. x2 and y2 are exclusive",
		"properties": map[string]interface{}{
			"x1": map[string]interface{}{"type": "integer"},
			"y1": map[string]interface{}{"type": "integer"},
			"x2": map[string]interface{}{"type": "integer"},
			"y2": map[string]interface{}{"type": "integer"},
		},
		"required": []string{"x1", "y1", "x2", "y2"},
	}
}

func paramsProperty() map[string]interface{} {
	number := func(desc string) map[string]interface{} {
		return map[string]interface{}{"type": "number", "description": desc}
	}
	return map[string]interface{}{
		"type":        "object",
		"description": "PI controller tuning. Omitted fields keep the server configuration",
		"properties": map[string]interface{}{
			"desired_msv":  number("MSV setpoint, 2.5 by default"),
			"kp":           number("Proportional gain, 0.05 by default"),
			"ki":           number("Integral gain, 0.01 by default"),
			"max_integral": number("Integral clamp, 3 by default"),
			"deadband":     number("Error magnitude that leaves EV unchanged, 0.5 by default"),
		},
	}
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session id returned by exposure_session_start",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "exposure_measure",
			Description: "Compute the 5-bin brightness histogram and mean sample value (MSV, 1 to 5) of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"region": regionProperty(),
					"rect":   rectProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Sessions
		{
			Name:        "exposure_session_start",
			Description: "Start a PI exposure control session. Returns a session id and the initial state.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"start_ev": map[string]interface{}{
						"type":        "number",
						"description": "Initial exposure value",
					},
					"params": paramsProperty(),
					"convergence_cycles": map[string]interface{}{
						"type":        "integer",
						"description": "Identical EVs in a row that mark the session converged. Default 10",
					},
					"region": regionProperty(),
				},
			},
		},
		{
			Name:        "exposure_session_step",
			Description: "Advance a session by one frame. Supply either a measured msv or the path of the frame captured at the current EV. Returns the EV to apply next.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
					"msv": map[string]interface{}{
						"type":        "number",
						"description": "Mean sample value of the latest frame",
					},
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path of the latest frame",
					},
					"region": regionProperty(),
					"rect":   rectProperty(),
				},
				"required": []string{"session_id"},
			},
		},
		{
			Name:        "exposure_session_state",
			Description: "Get the current EV, integral error and convergence status of a session.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
				},
				"required": []string{"session_id"},
			},
		},
		{
			Name:        "exposure_session_end",
			Description: "End a session and return its final state.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty(),
				},
				"required": []string{"session_id"},
			},
		},

		{
			Name:        "exposure_simulate",
			Description: "Run the closed loop against a dataset of frames captured at known exposure values until the EV converges.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"dataset": map[string]interface{}{
						"type":        "string",
						"description": "Glob matching the dataset frames, e.g. /data/144550/*.jpg",
					},
					"start_ev": map[string]interface{}{
						"type":        "number",
						"description": "Initial exposure value. Default 1.3",
					},
					"params": paramsProperty(),
					"max_cycles": map[string]interface{}{
						"type":        "integer",
						"description": "Give up after this many cycles. Default 1000",
					},
					"convergence_cycles": map[string]interface{}{
						"type":        "integer",
						"description": "Identical EVs in a row that end the run. Default 10",
					},
					"region": regionProperty(),
					"miss_policy": map[string]interface{}{
						"type":        "string",
						"description": "What to do with an EV outside the dataset. Default fail",
						"enum":        []string{"fail", "nearest"},
					},
					"trace": map[string]interface{}{
						"type":        "boolean",
						"description": "Include every cycle in the result",
					},
				},
				"required": []string{"dataset"},
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
