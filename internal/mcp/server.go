// Package mcp serves the analyzer and fixer as Model Context Protocol tools
// over stdio.
package mcp

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	ilalog "github.com/standardbeagle/ila/internal/debug"
	"github.com/standardbeagle/ila/internal/version"
	"github.com/standardbeagle/ila/internal/workspace"
)

// Server wires a workspace runner to an MCP server.
type Server struct {
	runner   *workspace.Runner
	root     string
	server   *mcp.Server
	previews *previewStore
}

// NewServer creates a server for runner and registers its tools. Nothing is
// read from disk until a tool is called.
func NewServer(runner *workspace.Runner) (*Server, error) {
	if runner == nil {
		return nil, fmt.Errorf("mcp: runner is required")
	}
	s := &Server{
		runner:   runner,
		root:     runner.Config().Project.Root,
		previews: newPreviewStore(),
	}
	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "ila-mcp-server",
		Version: version.Info(),
	}, nil)
	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	sourceProps := map[string]*jsonschema.Schema{
		"path": {
			Type:        "string",
			Description: "C# file or directory, relative to the project root. Ignored when source is set.",
		},
		"source": {
			Type:        "string",
			Description: "Inline C# source to work on instead of a file",
		},
	}
	withProps := func(extra map[string]*jsonschema.Schema) map[string]*jsonschema.Schema {
		out := make(map[string]*jsonschema.Schema, len(sourceProps)+len(extra))
		for k, v := range sourceProps {
			out[k] = v
		}
		for k, v := range extra {
			out[k] = v
		}
		return out
	}
	offset := &jsonschema.Schema{
		Type:        "integer",
		Description: "Byte offset inside the field declaration, e.g. location.span.start from analyze",
	}
	action := &jsonschema.Schema{
		Type:        "string",
		Description: "Fix to apply",
		Enum:        []any{"RetypeFix", "SplitBaseClassFix"},
	}

	s.server.AddTool(&mcp.Tool{
		Name:        "analyze",
		Description: "Find ILogger<T> fields whose type argument is not the class that declares them. Returns diagnostics with the fixes offered for each.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: withProps(nil),
		},
	}, s.handleAnalyze)

	s.server.AddTool(&mcp.Tool{
		Name:        "list_fixes",
		Description: "List the fixes offered for the logger field at an offset",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: withProps(map[string]*jsonschema.Schema{"offset": offset}),
			Required:   []string{"offset"},
		},
	}, s.handleListFixes)

	s.server.AddTool(&mcp.Tool{
		Name:        "preview_fix",
		Description: "Compute a fix without writing it. Returns a unified diff and a token for apply_fix.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: withProps(map[string]*jsonschema.Schema{"offset": offset, "action": action}),
			Required:   []string{"offset", "action"},
		},
	}, s.handlePreviewFix)

	s.server.AddTool(&mcp.Tool{
		Name:        "apply_fix",
		Description: "Write a fix. Pass the token from preview_fix, or path, offset and action to compute and write in one step. Files changed since the fix was computed are not overwritten.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"token":  {Type: "string", Description: "Token returned by preview_fix"},
				"path":   sourceProps["path"],
				"offset": offset,
				"action": action,
			},
		},
	}, s.handleApplyFix)

	s.server.AddTool(&mcp.Tool{
		Name:        "info",
		Description: "Server version and the rule table in effect",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleInfo)
}

// recoverFromPanic turns a panic inside a tool into an error result so one
// bad file cannot take the server down.
func (s *Server) recoverFromPanic(operation string, handler func() (*mcp.CallToolResult, error)) (result *mcp.CallToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			ilalog.LogMCP("PANIC RECOVERED in %s: %v\n%s", operation, r, debug.Stack())
			result, err = createErrorResponse(operation, fmt.Errorf("internal error: %v", r))
		}
	}()
	return handler()
}

// Start serves over stdio until ctx is done or the client disconnects.
// Callers put the debug package into MCP mode first; stdout belongs to the
// protocol.
func (s *Server) Start(ctx context.Context) error {
	ilalog.LogMCP("starting MCP server for %s\n", s.root)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer exposes the underlying server, e.g. to connect it to an
// in-memory transport.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
