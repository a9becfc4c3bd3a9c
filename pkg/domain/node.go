package domain

import (
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// NodeKind tags the two worker variants.
type NodeKind int

const (
	KindAgent NodeKind = iota + 1
	KindSupervisor
)

func (k NodeKind) String() string {
	switch k {
	case KindAgent:
		return "agent"
	case KindSupervisor:
		return "supervisor"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// LLMConfig is the connection descriptor shared by every node of a compiled workflow.
// It is read-only once a workflow has been compiled.
type LLMConfig struct {
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model    string `json:"model" yaml:"model"`
	APIKey   string `json:"api_key" yaml:"api_key"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
}

// WorkerNode is a node of the compiled call hierarchy.
// The set of implementations is closed: only *Agent and *Supervisor satisfy it.
type WorkerNode interface {
	Name() string
	SystemMessage() string
	LLM() *LLMConfig
	Kind() NodeKind

	// PersistsHistory reports whether the node's turns are stored per session.
	PersistsHistory() bool

	sealed()
}

type base struct {
	name          string
	systemMessage string
	llm           *LLMConfig
}

func (b *base) Name() string          { return b.name }
func (b *base) SystemMessage() string { return b.systemMessage }
func (b *base) LLM() *LLMConfig       { return b.llm }

// Supervisor delegates work to the children registered under it.
type Supervisor struct {
	base

	// RootEntry is true only for the supervisor the user talks to directly.
	RootEntry bool
	// UseAgents disables delegation tools when false.
	UseAgents bool

	children []WorkerNode
}

// NewSupervisor creates a delegated (non-root) supervisor.
func NewSupervisor(name, systemMessage string, llm *LLMConfig) *Supervisor {
	return &Supervisor{
		base:      base{name: name, systemMessage: systemMessage, llm: llm},
		UseAgents: true,
	}
}

func (s *Supervisor) Kind() NodeKind        { return KindSupervisor }
func (s *Supervisor) PersistsHistory() bool { return true }
func (s *Supervisor) sealed()               {}

// Register appends a child in connection order.
func (s *Supervisor) Register(child WorkerNode) {
	s.children = append(s.children, child)
}

// Children returns the owned children in registration order.
func (s *Supervisor) Children() []WorkerNode {
	out := make([]WorkerNode, len(s.children))
	copy(out, s.children)
	return out
}

// Child finds a direct child by name.
func (s *Supervisor) Child(name string) (WorkerNode, bool) {
	for _, c := range s.children {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// OutputSchema is a structured-output contract attached to an agent.
type OutputSchema struct {
	Raw    json.RawMessage
	Schema *openapi3.Schema
}

// Agent is a leaf worker, optionally backed by external capability servers.
type Agent struct {
	base

	KeepHistory  bool
	OutputSchema *OutputSchema
	Strict       bool

	Capabilities []CapabilityDescriptor
	UsesTools    bool

	// Toolsets holds the capabilities that resolved successfully.
	Toolsets []Toolset
}

// NewAgent creates an agent with the default persistence policy.
func NewAgent(name, systemMessage string, llm *LLMConfig) *Agent {
	return &Agent{
		base:        base{name: name, systemMessage: systemMessage, llm: llm},
		KeepHistory: true,
	}
}

func (a *Agent) Kind() NodeKind        { return KindAgent }
func (a *Agent) PersistsHistory() bool { return a.KeepHistory }
func (a *Agent) sealed()               {}

// Attach records a capability descriptor and marks the agent as tool-using.
func (a *Agent) Attach(desc CapabilityDescriptor) {
	a.Capabilities = append(a.Capabilities, desc)
	a.UsesTools = true
}

// Ref is the wire form of a node reference used in events and exports.
type Ref struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// RefOf returns the reference for a node.
func RefOf(n WorkerNode) Ref {
	return Ref{Name: n.Name(), Type: n.Kind().String()}
}
