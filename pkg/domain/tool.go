package domain

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// CapabilityDescriptor identifies an external tool/resource server an agent may call.
// Only non-empty fields are copied from the graph.
type CapabilityDescriptor struct {
	Type       string            `json:"type,omitempty" yaml:"type,omitempty"`
	URL        string            `json:"url,omitempty" yaml:"url,omitempty"`
	AuthToken  string            `json:"auth_token,omitempty" yaml:"auth_token,omitempty"`
	ScriptPath string            `json:"script_path,omitempty" yaml:"script_path,omitempty"`
	Args       []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env        map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

// IsZero reports whether no field was set.
func (d CapabilityDescriptor) IsZero() bool {
	return d.Type == "" && d.URL == "" && d.AuthToken == "" && d.ScriptPath == "" &&
		len(d.Args) == 0 && len(d.Env) == 0
}

// Label is a short identifier for logs.
func (d CapabilityDescriptor) Label() string {
	switch {
	case d.URL != "":
		return d.Type + ":" + d.URL
	case d.ScriptPath != "":
		return d.Type + ":" + d.ScriptPath
	default:
		return d.Type
	}
}

// Toolset is a resolved capability: a set of callable tools backed by one server.
type Toolset interface {
	// Tools describes the callable tools in the model's function-calling format.
	Tools() []*schema.ToolInfo
	// Call executes a tool with JSON-encoded arguments and returns its textual result.
	Call(ctx context.Context, name string, argumentsJSON string) (string, error)
	Close() error
}

// ToolCall is a function call requested by a model, as persisted in history.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}
