package domain

import (
	"fmt"
	"sort"
	"strconv"
)

// NodeClass is the class tag of a record in a graph document.
type NodeClass string

const (
	ClassUser       NodeClass = "user"
	ClassAgent      NodeClass = "agent"
	ClassSupervisor NodeClass = "supervisor"
	ClassTool       NodeClass = "tool"
	// ClassMCP marks an external capability (MCP) server.
	ClassMCP NodeClass = "mcp"
)

// ParseNodeClass validates a raw class tag.
func ParseNodeClass(raw string) (NodeClass, error) {
	switch c := NodeClass(raw); c {
	case ClassUser, ClassAgent, ClassSupervisor, ClassTool, ClassMCP:
		return c, nil
	default:
		return "", fmt.Errorf("unknown node class %q", raw)
	}
}

// IsWorker reports whether records of this class instantiate a WorkerNode.
func (c NodeClass) IsWorker() bool {
	return c == ClassAgent || c == ClassSupervisor
}

// NodeData is the typed payload of a graph record.
// Fields that only apply to some classes are ignored for the others.
type NodeData struct {
	UUID          string `json:"uuid" mapstructure:"uuid"`
	Name          string `json:"name" mapstructure:"name"`
	SystemMessage string `json:"system_message" mapstructure:"system_message"`

	KeepHistory  *bool  `json:"keep_history,omitempty" mapstructure:"keep_history"`
	UseAgents    *bool  `json:"use_agents,omitempty" mapstructure:"use_agents"`
	OutputSchema string `json:"output_schema,omitempty" mapstructure:"output_schema"`
	Strict       bool   `json:"strict,omitempty" mapstructure:"strict"`

	// Capability server fields.
	Type       string            `json:"type,omitempty" mapstructure:"type"`
	URL        string            `json:"url,omitempty" mapstructure:"url"`
	AuthToken  string            `json:"auth_token,omitempty" mapstructure:"auth_token"`
	ScriptPath string            `json:"script_path,omitempty" mapstructure:"script_path"`
	Args       []string          `json:"args,omitempty" mapstructure:"args"`
	Env        map[string]string `json:"env,omitempty" mapstructure:"env"`
}

// NodeRecord is one entry of a graph document.
type NodeRecord struct {
	ID    string
	Class NodeClass
	Data  NodeData
	// Outputs lists target record IDs in connection order.
	Outputs []string
}

// Key returns the identity used to resolve connections to instantiated nodes.
func (r *NodeRecord) Key() string {
	if r.Data.UUID != "" {
		return r.Data.UUID
	}
	return r.ID
}

// GraphDocument is the parsed, indexed form of a node-link graph.
type GraphDocument struct {
	Records map[string]*NodeRecord
}

// Record returns the record with the given graph-local ID.
func (d *GraphDocument) Record(id string) (*NodeRecord, bool) {
	r, ok := d.Records[id]
	return r, ok
}

// IDs returns record IDs in a stable order: numeric IDs ascending, then the rest lexically.
// Drawflow assigns increasing integer IDs, so this matches creation order.
func (d *GraphDocument) IDs() []string {
	ids := make([]string, 0, len(d.Records))
	for id := range d.Records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return ids[i] < ids[j]
		}
	})
	return ids
}

// ByClass returns the records of one class in stable order.
func (d *GraphDocument) ByClass(class NodeClass) []*NodeRecord {
	var out []*NodeRecord
	for _, id := range d.IDs() {
		if r := d.Records[id]; r.Class == class {
			out = append(out, r)
		}
	}
	return out
}
