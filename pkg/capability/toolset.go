package capability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/canopy/internal/jsonutil"
	"github.com/cloudwego/eino/schema"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// ErrUnknownTool is returned when a call names a tool the server did not advertise.
var ErrUnknownTool = errors.New("unknown tool")

// Toolset is a domain.Toolset backed by one initialized MCP client.
type Toolset struct {
	client *client.Client
	label  string
	tools  []*schema.ToolInfo
	names  map[string]bool
}

// NewToolset lists the tools of an initialized client.
func NewToolset(ctx context.Context, c *client.Client, label string) (*Toolset, error) {
	res, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	ts := &Toolset{client: c, label: label, names: make(map[string]bool)}
	for _, t := range res.Tools {
		info, err := ToolInfo(t)
		if err != nil {
			return nil, fmt.Errorf("tool %q: %w", t.Name, err)
		}
		ts.tools = append(ts.tools, info)
		ts.names[t.Name] = true
	}
	return ts, nil
}

// ToolInfo converts an MCP tool description into eino's function-calling format.
func ToolInfo(t mcp.Tool) (*schema.ToolInfo, error) {
	raw := t.RawInputSchema
	if len(raw) == 0 {
		var err error
		raw, err = json.Marshal(t.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal input schema: %w", err)
		}
	}

	info := &schema.ToolInfo{Name: t.Name, Desc: t.Description}
	var params openapi3.Schema
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("unsupported input schema: %w", err)
	}
	if len(params.Properties) > 0 {
		info.ParamsOneOf = schema.NewParamsOneOfByOpenAPIV3(&params)
	}
	return info, nil
}

// Label identifies the server in logs.
func (t *Toolset) Label() string { return t.label }

// Tools returns the advertised tools.
func (t *Toolset) Tools() []*schema.ToolInfo { return t.tools }

// Call invokes a tool. Arguments that are not valid JSON are repaired first.
// A result the server flags as an error is returned as both text and error.
func (t *Toolset) Call(ctx context.Context, name string, argumentsJSON string) (string, error) {
	if !t.names[name] {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	args := map[string]any{}
	if strings.TrimSpace(argumentsJSON) != "" {
		if _, err := jsonutil.Unmarshal(argumentsJSON, &args); err != nil {
			return "", fmt.Errorf("invalid arguments for %s: %w", name, err)
		}
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := t.client.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("call %s: %w", name, err)
	}

	text := resultText(res)
	if res.IsError {
		return text, fmt.Errorf("tool %s failed: %s", name, text)
	}
	return text, nil
}

// Close shuts down the client transport.
func (t *Toolset) Close() error {
	return t.client.Close()
}

func resultText(res *mcp.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		if tc, ok := mcp.AsTextContent(c); ok {
			parts = append(parts, tc.Text)
			continue
		}
		if data, err := json.Marshal(c); err == nil {
			parts = append(parts, string(data))
		}
	}
	if len(parts) == 0 && res.StructuredContent != nil {
		if data, err := json.Marshal(res.StructuredContent); err == nil {
			parts = append(parts, string(data))
		}
	}
	return strings.Join(parts, "\n")
}
