package capability

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
)

// SSE connects to a server over the legacy HTTP+SSE transport.
func SSE(ctx context.Context, desc domain.CapabilityDescriptor) (*client.Client, error) {
	if desc.URL == "" {
		return nil, errors.New("sse capability requires a url")
	}
	c, err := client.NewSSEMCPClient(desc.URL, transport.WithHeaders(authHeaders(desc)))
	if err != nil {
		return nil, err
	}
	// The event stream outlives the resolving request.
	if err := c.Start(context.WithoutCancel(ctx)); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// StreamableHTTP connects to a server over the streamable HTTP transport.
func StreamableHTTP(ctx context.Context, desc domain.CapabilityDescriptor) (*client.Client, error) {
	if desc.URL == "" {
		return nil, errors.New("http capability requires a url")
	}
	c, err := client.NewStreamableHttpClient(desc.URL, transport.WithHTTPHeaders(authHeaders(desc)))
	if err != nil {
		return nil, err
	}
	if err := c.Start(context.WithoutCancel(ctx)); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// Stdio launches a local server process. Python scripts run under python3; anything else
// is executed directly.
func Stdio(ctx context.Context, desc domain.CapabilityDescriptor) (*client.Client, error) {
	if desc.ScriptPath == "" {
		return nil, errors.New("stdio capability requires a script_path")
	}
	command, args := StdioCommand(desc)
	return client.NewStdioMCPClient(command, envList(desc.Env), args...)
}

// StdioCommand returns the command line used to launch a stdio server.
func StdioCommand(desc domain.CapabilityDescriptor) (string, []string) {
	if strings.EqualFold(filepath.Ext(desc.ScriptPath), ".py") {
		return "python3", append([]string{desc.ScriptPath}, desc.Args...)
	}
	return desc.ScriptPath, desc.Args
}

func authHeaders(desc domain.CapabilityDescriptor) map[string]string {
	if desc.AuthToken == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + desc.AuthToken}
}

func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}
