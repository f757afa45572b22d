// Package server implements the MCP (Model Context Protocol) server for
// exposure control tools.
//
// The server speaks JSON-RPC 2.0 over stdio, one request per line on stdin and
// one response per line on stdout. Logs go to stderr.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - exposure_measure: 5-bin brightness histogram and MSV of an image file
//   - exposure_session_start: create a PI controller session
//   - exposure_session_step: feed one MSV or frame to a session, get the next EV
//   - exposure_session_state: inspect a session
//   - exposure_session_end: discard a session
//   - exposure_simulate: run the closed loop against a dataset until it converges
//
// # Sessions
//
// A session owns one exposure.Controller and its convergence tracker. Calls on
// the same session are serialized; separate sessions are independent. Session
// ids are random UUIDs and live until exposure_session_end or process exit.
//
// # Image Caching
//
// Images are cached by path for the lifetime of the process, so repeated
// simulations over the same dataset decode each frame once.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: the Go error string
package server
