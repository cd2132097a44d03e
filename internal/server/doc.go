// Package server implements the MCP (Model Context Protocol) server for bento
// box measurement.
//
// This package provides a JSON-RPC 2.0 server that exposes the detection,
// calibration and evaluation engines through the MCP protocol, so an MCP
// client can measure a bento box in a photo, check framing, calibrate against
// a reference card and compare detection strategies over a dataset.
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
// Detection:
//   - bento_detect: Detect and measure the box (classical, learned or fused)
//   - bento_annotate: Detect and return the image with the box drawn on it
//   - bento_position: Framing guidance for a box in a frame
//
// Calibration:
//   - bento_calibrate: Derive mm per pixel from a reference card
//
// Evaluation:
//   - bento_evaluate: Compare the strategies over a folder of images
//   - bento_logs: Most recent detection log records and their total, or clear the log
//
// Image information:
//   - bento_image_info: Dimensions, format and brightness
//
// # Image Caching
//
// The server shares the engine's image cache. Images are cached by path and
// reused across tool calls until the file's modification time or size
// changes. bento_evaluate evicts each folder image once it is measured.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// A detection that finds nothing is not an error: the result carries the
// (0, 0, 0, 0) box with zero confidence and success false.
//
// # Usage
//
//	srv, err := server.New(server.Options{Engine: eng, Cache: cache, Logger: log})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
