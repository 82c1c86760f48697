// Package tools exposes the transform over the Model Context Protocol.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/lazycode/internal/cache"
	"github.com/DeusData/lazycode/internal/config"
)

// Server wraps the MCP server with tool handlers.
type Server struct {
	mcp   *mcp.Server
	cfg   *config.Config
	cache *cache.Cache
}

// NewServer creates an MCP server with all tools registered. cfg supplies
// the defaults every tool call starts from; c may be nil.
func NewServer(cfg *config.Config, c *cache.Cache, version string) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	srv := &Server{
		cfg:   cfg,
		cache: c,
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    "lazycode",
				Version: version,
			},
			nil,
		),
	}
	srv.registerTools()
	return srv
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "transform_source",
		Description: "Rewrite an AMD bundle so module bodies are evaluated lazily. Returns the transformed source and the number of modules found. Options default to the server configuration.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"source": {
					"type": "string",
					"description": "JavaScript source of the bundle"
				},
				"mode": {
					"type": "string",
					"description": "Transform strategy",
					"enum": ["strings", "eval", "function", "none"]
				},
				"app_name": {
					"type": "string",
					"description": "Application name, used to collect initializers in strings mode"
				},
				"wrap_in_iife": {
					"type": "array",
					"items": {"type": "string"},
					"description": "Module ids whose body is wrapped in an immediately invoked function (eval mode)"
				},
				"quote": {
					"type": "string",
					"description": "Quote character for generated string literals",
					"enum": ["'", "\""]
				}
			},
			"required": ["source"]
		}`),
	}, s.handleTransformSource)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_modules",
		Description: "List the define() calls of an AMD bundle with their ids, imports, factory parameters and byte ranges. With app_name, also reports which modules are initializers.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"source": {
					"type": "string",
					"description": "JavaScript source of the bundle"
				},
				"app_name": {
					"type": "string",
					"description": "Application name for initializer matching"
				}
			},
			"required": ["source"]
		}`),
	}, s.handleListModules)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "transform_bundle",
		Description: "Transform the bundles of a built app directory on disk using the server configuration. Writes in place unless out_dir is given. Returns per-file statistics.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"dist_dir": {
					"type": "string",
					"description": "Absolute path to the build output directory"
				},
				"app_name": {
					"type": "string",
					"description": "Application name; selects assets/<app_name>.js"
				},
				"out_dir": {
					"type": "string",
					"description": "Directory for transformed bundles (default: in place)"
				}
			},
			"required": ["dist_dir"]
		}`),
	}, s.handleTransformBundle)
}

// jsonResult marshals data to JSON and returns as tool result.
func jsonResult(data any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errResult("json marshal err=" + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

// errResult returns a tool result indicating an error.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// parseArgs unmarshals the raw JSON arguments into a map.
func parseArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	if len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &m); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return m, nil
}

// getStringArg extracts a string argument from parsed args.
func getStringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// getStringSliceArg extracts an array of strings. ok is false when the key
// is absent; non-string elements are an error.
func getStringSliceArg(args map[string]any, key string) (vals []string, ok bool, err error) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, false, nil
	}
	items, isList := v.([]any)
	if !isList {
		return nil, true, fmt.Errorf("%s must be an array of strings", key)
	}
	vals = make([]string, 0, len(items))
	for _, it := range items {
		s, isStr := it.(string)
		if !isStr {
			return nil, true, fmt.Errorf("%s must be an array of strings", key)
		}
		vals = append(vals, s)
	}
	return vals, true, nil
}
