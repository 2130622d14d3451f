package marker

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/ccmark/kit"
	"github.com/hazyhaar/ccmark/vocab"
)

// RegisterMCP registers the ccmark tools on srv.
func (m *Marker) RegisterMCP(srv *mcp.Server) {
	ep := m.endpoints()

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "ccmark_highlight",
		Description: "Highlight conventional-comment prefixes (\"issue (blocking): ...\") in the comment containers of an HTML page or fragment.",
		InputSchema: inputSchema(map[string]any{
			"html":     map[string]any{"type": "string", "description": "HTML document or fragment"},
			"fragment": map[string]any{"type": "boolean", "description": "Treat html as body content and return body content"},
		}, []string{"html"}),
	}, ep.highlight, kit.DecodeArgs[highlightReq])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "ccmark_extract",
		Description: "List the conventional comments of an HTML review page: label, decorations, blocking flag, Markdown subject.",
		InputSchema: inputSchema(map[string]any{
			"html":   map[string]any{"type": "string", "description": "HTML of the review page"},
			"domain": map[string]any{"type": "string", "description": "Base URL for relative links"},
		}, []string{"html"}),
	}, ep.extract, kit.DecodeArgs[extractReq])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "ccmark_render",
		Description: "Render a Markdown review comment to highlighted comment HTML.",
		InputSchema: inputSchema(map[string]any{
			"markdown": map[string]any{"type": "string", "description": "Comment source, e.g. \"suggestion (non-blocking): use a map\""},
		}, []string{"markdown"}),
	}, ep.render, kit.DecodeArgs[renderReq])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "ccmark_vocabulary",
		Description: "List the labels and decorations in use with their colours.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}, ep.vocabulary, func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{}, nil
	})

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "ccmark_add_label",
		Description: "Add a custom label.",
		InputSchema: termSchema(),
	}, ep.addTerm, decodeTermArgs(vocab.KindLabel))

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "ccmark_add_decoration",
		Description: "Add a custom decoration.",
		InputSchema: termSchema(),
	}, ep.addTerm, decodeTermArgs(vocab.KindDecoration))

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "ccmark_set_color",
		Description: "Override the background colour of a label or decoration.",
		InputSchema: inputSchema(map[string]any{
			"kind":  map[string]any{"type": "string", "enum": []string{"label", "decoration"}},
			"name":  map[string]any{"type": "string"},
			"color": map[string]any{"type": "string", "description": "#rgb or #rrggbb"},
		}, []string{"kind", "name", "color"}),
	}, ep.setColor, kit.DecodeArgs[termReq])
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

func termSchema() map[string]any {
	return inputSchema(map[string]any{
		"name":  map[string]any{"type": "string"},
		"color": map[string]any{"type": "string", "description": "Optional #rgb or #rrggbb"},
	}, []string{"name"})
}

func decodeTermArgs(kind vocab.Kind) func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	return func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		res, err := kit.DecodeArgs[termReq](req)
		if err != nil {
			return nil, err
		}
		res.Request.(*termReq).Kind = kind
		return res, nil
	}
}
