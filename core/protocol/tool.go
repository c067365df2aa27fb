package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/callcenter/tools"
)

// ToolUse is the body of a model toolUse event. Content is a JSON object
// encoded as a string.
type ToolUse struct {
	PromptName string `json:"promptName,omitempty"`
	ContentID  string `json:"contentId,omitempty"`
	ToolName   string `json:"toolName"`
	ToolUseID  string `json:"toolUseId"`
	Content    string `json:"content"`
	Role       Role   `json:"role,omitempty"`
}

// CallRequest converts the tool use into a registry call. Empty content
// means no arguments.
func (u ToolUse) CallRequest() (tools.CallRequest, error) {
	req := tools.CallRequest{
		ToolName:  u.ToolName,
		ID:        u.ToolUseID,
		Arguments: map[string]any{},
	}
	if u.Content == "" {
		return req, nil
	}
	if err := json.Unmarshal([]byte(u.Content), &req.Arguments); err != nil {
		return req, fmt.Errorf("%w: tool content is not a JSON object: %v", tools.ErrValidation, err)
	}
	if req.Arguments == nil {
		req.Arguments = map[string]any{}
	}
	return req, nil
}

// ToolResultEvents builds the contentStart / toolResult / contentEnd
// sequence that returns a tool result to the model. All three events share
// a freshly generated content name.
func ToolResultEvents(promptName, toolUseID string, result tools.ToolResult) ([][]byte, error) {
	contentName := uuid.NewString()

	start, err := New(EventContentStart, map[string]any{
		"promptName":  promptName,
		"contentName": contentName,
		"interactive": true,
		"type":        ContentTool,
		"role":        RoleTool,
		"toolResultInputConfiguration": map[string]any{
			"toolUseId": toolUseID,
			"type":      ContentText,
			"textInputConfiguration": map[string]string{
				"mediaType": "text/plain",
			},
		},
	})
	if err != nil {
		return nil, err
	}

	body, err := New(EventToolResult, map[string]string{
		"promptName":  promptName,
		"contentName": contentName,
		"content":     result.String(),
	})
	if err != nil {
		return nil, err
	}

	end, err := New(EventContentEnd, map[string]string{
		"promptName":  promptName,
		"contentName": contentName,
	})
	if err != nil {
		return nil, err
	}

	return [][]byte{start, body, end}, nil
}

// ToolSpec advertises one tool in a promptStart toolConfiguration.
type ToolSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema struct {
		JSON string `json:"json"`
	} `json:"inputSchema"`
}

// ToolConfiguration is the promptStart section listing the tools the model
// may call.
type ToolConfiguration struct {
	Tools []ToolEntry `json:"tools"`
}

// ToolEntry wraps a ToolSpec.
type ToolEntry struct {
	ToolSpec ToolSpec `json:"toolSpec"`
}

// NewToolConfiguration renders registry definitions in the form the model
// expects, with each input schema embedded as a JSON string.
func NewToolConfiguration(defs []tools.Definition) (ToolConfiguration, error) {
	var cfg ToolConfiguration
	for _, def := range defs {
		schema, err := json.Marshal(def.Schema())
		if err != nil {
			return ToolConfiguration{}, fmt.Errorf("tool %s: %w", def.Name, err)
		}

		var spec ToolSpec
		spec.Name = def.Name
		spec.Description = def.Description
		spec.InputSchema.JSON = string(schema)

		cfg.Tools = append(cfg.Tools, ToolEntry{ToolSpec: spec})
	}
	return cfg, nil
}
