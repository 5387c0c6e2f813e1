package mcptool

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/dgallion1/docoutline/internal/parser"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var testImpl = &mcp.Implementation{Name: "outliner-test", Version: "0.1.0"}

func session(t *testing.T) *mcp.ClientSession {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	srv := NewServer("test", parser.Options{Log: log}, log)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testImpl, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

func call(t *testing.T, cs *mcp.ClientSession, args any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: ToolName, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	return tc.Text
}

func writeDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guide.md")
	if err := os.WriteFile(path, []byte("# Guide\n\n## Install\n\n### Linux\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractOutline_JSON(t *testing.T) {
	cs := session(t)
	res := call(t, cs, map[string]any{"path": writeDoc(t)})
	if err := res.GetError(); err != nil {
		t.Fatalf("tool error: %v", err)
	}

	var got outline.Result
	if err := json.Unmarshal([]byte(text(t, res)), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Title != "Guide" || len(got.Outline) != 2 {
		t.Fatalf("unexpected result %+v", got)
	}
	if got.Outline[1] != (outline.Heading{Level: outline.H3, Text: "Linux", Page: 1}) {
		t.Errorf("unexpected heading %+v", got.Outline[1])
	}
}

func TestExtractOutline_Markdown(t *testing.T) {
	cs := session(t)
	res := call(t, cs, map[string]any{"path": writeDoc(t), "format": "markdown"})
	if err := res.GetError(); err != nil {
		t.Fatalf("tool error: %v", err)
	}
	if got := text(t, res); !strings.HasPrefix(got, "# Guide\n") || !strings.Contains(got, "- Install (p. 1)") {
		t.Errorf("unexpected markdown:\n%s", got)
	}
}

func TestExtractOutline_Errors(t *testing.T) {
	cs := session(t)
	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing file", map[string]any{"path": filepath.Join(t.TempDir(), "nope.md")}},
		{"unsupported", map[string]any{"path": "data.xlsx"}},
		{"bad format", map[string]any{"path": writeDoc(t), "format": "yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := call(t, cs, tt.args); !res.IsError {
				t.Error("expected tool error")
			}
		})
	}
}
