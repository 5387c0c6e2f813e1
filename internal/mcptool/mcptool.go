// Package mcptool exposes outline extraction as an MCP tool.
package mcptool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dgallion1/docoutline/internal/batch"
	"github.com/dgallion1/docoutline/internal/parser"
	"github.com/dgallion1/docoutline/internal/render"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const ToolName = "extract_outline"

type extractReq struct {
	Path            string `json:"path"`
	Format          string `json:"format"`
	PreferBookmarks *bool  `json:"prefer_bookmarks"`
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

// Register adds the extract_outline tool to srv. opts supplies defaults that
// a call may override.
func Register(srv *mcp.Server, opts parser.Options, log *slog.Logger) {
	tool := &mcp.Tool{
		Name:        ToolName,
		Description: "Extract the title and H1/H2/H3 outline of a document file (pdf, md, html, docx).",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "File path to read"},
			"format": map[string]any{
				"type":        "string",
				"enum":        []string{"json", "markdown"},
				"description": "Output format, json by default",
			},
			"prefer_bookmarks": map[string]any{"type": "boolean", "description": "Use embedded PDF bookmarks when present"},
		}, []string{"path"}),
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r extractReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return toolError(fmt.Errorf("invalid arguments: %w", err)), nil
		}
		if r.Path == "" {
			return toolError(fmt.Errorf("path is required")), nil
		}

		callOpts := opts
		if r.PreferBookmarks != nil {
			callOpts.PreferBookmarks = *r.PreferBookmarks
		}
		res, err := batch.ExtractFile(r.Path, callOpts)
		if err != nil {
			log.Warn("mcp extract failed", "path", r.Path, "error", err)
			return toolError(err), nil
		}
		log.Info("mcp extract", "path", r.Path, "headings", len(res.Outline))

		var text string
		switch r.Format {
		case "", "json":
			data, err := batch.Encode(res)
			if err != nil {
				return toolError(fmt.Errorf("marshal: %w", err)), nil
			}
			text = string(data)
		case "markdown":
			text = render.Markdown(res)
		default:
			return toolError(fmt.Errorf("unknown format %q", r.Format)), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil
	})
}

func toolError(err error) *mcp.CallToolResult {
	var res mcp.CallToolResult
	res.SetError(err)
	return &res
}

// NewServer builds an MCP server with the outline tool registered.
func NewServer(version string, opts parser.Options, log *slog.Logger) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "outliner", Version: version}, nil)
	Register(srv, opts, log)
	return srv
}

// ServeStdio serves the tool over stdin/stdout until ctx ends or the client
// disconnects.
func ServeStdio(ctx context.Context, srv *mcp.Server) error {
	return srv.Run(ctx, &mcp.StdioTransport{})
}
