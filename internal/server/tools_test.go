package server

import (
	"context"
	"encoding/json"
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	expectedTools := []string{
		"bento_detect",
		"bento_annotate",
		"bento_position",
		"bento_calibrate",
		"bento_evaluate",
		"bento_logs",
		"bento_image_info",
	}
	if len(tools) != len(expectedTools) {
		t.Errorf("got %d tools, want %d", len(tools), len(expectedTools))
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		toolMap[tool.Name] = tool
	}
	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want object", tool.InputSchema["type"])
			}
			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema properties should be a map")
			}

			required, _ := tool.InputSchema["required"].([]string)
			for _, name := range required {
				if _, ok := props[name]; !ok {
					t.Errorf("required property %s is not defined", name)
				}
			}
		})
	}
}

func TestToolDefinitions_ModeEnum(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		props := tool.InputSchema["properties"].(map[string]interface{})
		mode, ok := props["mode"].(map[string]interface{})
		if !ok {
			continue
		}
		enum, ok := mode["enum"].([]string)
		if !ok || len(enum) != 3 {
			t.Errorf("%s: mode enum got %v", tool.Name, mode["enum"])
		}
	}
}

func TestHandleToolsList(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/list"})

	if resp == nil || resp.Error != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}

	// Round trip through JSON the way a client sees it.
	data, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("marshal tools/list: %v", err)
	}
	var decoded struct {
		Tools []Tool `json:"tools"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode tools/list: %v", err)
	}
	if len(decoded.Tools) != len(GetToolDefinitions()) {
		t.Errorf("got %d tools, want %d", len(decoded.Tools), len(GetToolDefinitions()))
	}
}
