package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type toolDef struct {
	name        string
	description string
	params      []string
	schema      map[string]any
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

var (
	fileKeyProp = str("Figma file key")
	pageProp    = str("Only scan the page with this name")

	userContextProp = map[string]any{
		"type":        "object",
		"description": "Business context of the project",
		"properties": map[string]any{
			"project_objective": str("What the product is for"),
			"target_users":      str("Who uses it"),
			"project_type":      str("Kind of project"),
			"detail_level":      str("Depth of the expected specification"),
			"integrations":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
	}
)

var toolDefs = []toolDef{
	{
		name:        "analyze_figma_project",
		description: "Scan every screen of a Figma file and forward the project to the analysis workflow.",
		params:      []string{"figma_file_key", "business_context", "page", "include_screenshots"},
		schema: inputSchema(map[string]any{
			"figma_file_key":      fileKeyProp,
			"business_context":    userContextProp,
			"page":                pageProp,
			"include_screenshots": map[string]any{"type": "boolean"},
		}, []string{"figma_file_key"}),
	},
	{
		name:        "extract_project_screens",
		description: "List the main screens of a Figma file with their content analysis and render URLs.",
		params:      []string{"figma_file_key", "page"},
		schema: inputSchema(map[string]any{
			"figma_file_key": fileKeyProp,
			"page":           pageProp,
		}, []string{"figma_file_key"}),
	},
	{
		name:        "analyze_screen_content",
		description: "Analyze one screen: text hierarchy, interactive elements, forms, navigation, and a vision model specification when configured.",
		params:      []string{"figma_file_key", "screen_id", "objective", "forward"},
		schema: inputSchema(map[string]any{
			"figma_file_key": fileKeyProp,
			"screen_id":      str("Node id of the screen frame"),
			"objective":      str("Product objective given to the vision model"),
			"forward":        map[string]any{"type": "boolean", "description": "Also send the screen to the analysis workflow"},
		}, []string{"figma_file_key", "screen_id"}),
	},
	{
		name:        "export_screenshots_batch",
		description: "Render a batch of screens and return their screenshot URLs.",
		params:      []string{"figma_file_key", "screens"},
		schema: inputSchema(map[string]any{
			"figma_file_key": fileKeyProp,
			"screens": map[string]any{
				"type":        "array",
				"description": "Screen ids, or objects with an id field",
			},
		}, []string{"figma_file_key", "screens"}),
	},
	{
		name:        "detect_user_flows",
		description: "Resolve navigation flows between screens, keyed by source screen id.",
		params:      []string{"screens", "figma_file_key"},
		schema: inputSchema(map[string]any{
			"figma_file_key": fileKeyProp,
			"screens":        map[string]any{"type": "array", "description": "Screen records with connections"},
		}, nil),
	},
}

// RegisterMCP registers the operations as MCP tools
func (s *Service) RegisterMCP(srv *mcp.Server) {
	for _, def := range toolDefs {
		tool := &mcp.Tool{Name: def.name, Description: def.description, InputSchema: def.schema}
		switch def.name {
		case "analyze_figma_project":
			addTool(srv, tool, s.AnalyzeProject)
		case "extract_project_screens":
			addTool(srv, tool, s.ExtractScreens)
		case "analyze_screen_content":
			addTool(srv, tool, s.AnalyzeScreen)
		case "export_screenshots_batch":
			addTool(srv, tool, s.ExportScreenshots)
		case "detect_user_flows":
			addTool(srv, tool, s.DetectUserFlows)
		}
	}
}

func addTool[Req, Resp any](srv *mcp.Server, tool *mcp.Tool, op func(context.Context, Req) (Resp, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var in Req
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &in); err != nil {
				var res mcp.CallToolResult
				res.SetError(fmt.Errorf("invalid arguments: %w", err))
				return &res, nil
			}
		}

		out, err := op(ctx, in)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(err.Error()))
			return &res, nil
		}

		data, err := json.Marshal(out)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}
