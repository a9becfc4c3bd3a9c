package graph

import (
	"bytes"
	"fmt"

	"github.com/aretw0/canopy/pkg/domain"
	"gopkg.in/yaml.v3"
)

// ExportedWorkflowID is the workflow id written by ExportYAML.
const ExportedWorkflowID = "exported-workflow"

// Export is the portable YAML form of a compiled hierarchy. Credentials are never
// exported; llm_config carries environment placeholders instead.
type Export struct {
	WorkflowID string     `yaml:"workflow_id"`
	Supervisor ExportNode `yaml:"supervisor"`
}

// ExportNode is one worker in the exported tree.
type ExportNode struct {
	Name          string            `yaml:"name"`
	Type          string            `yaml:"type"`
	IsAssistant   *bool             `yaml:"is_assistant,omitempty"`
	LLMConfig     map[string]string `yaml:"llm_config"`
	SystemMessage string            `yaml:"system_message"`
	UseAgents     *bool             `yaml:"use_agents,omitempty"`
	Children      []ExportNode      `yaml:"children,omitempty"`

	KeepHistory  *bool                         `yaml:"keep_history,omitempty"`
	OutputSchema *yaml.Node                    `yaml:"output_schema,omitempty"`
	Strict       *bool                         `yaml:"strict,omitempty"`
	MCPServers   []domain.CapabilityDescriptor `yaml:"mcp_servers,omitempty"`
	UseTools     bool                          `yaml:"use_tools,omitempty"`
}

func placeholderLLM() map[string]string {
	return map[string]string{
		"model":    "${LLM_MODEL}",
		"api_key":  "${LLM_API_KEY}",
		"base_url": "${LLM_BASE_URL}",
	}
}

func ptr[T any](v T) *T { return &v }

// BuildExport converts a workflow into its export tree. An agent entry point is wrapped in
// a synthetic MainSupervisor so the export always has a supervisor at the root.
func BuildExport(wf *domain.Workflow) (*Export, error) {
	if wf == nil {
		return nil, domain.ErrNoWorkflow
	}
	root, err := exportNode(wf.EntryPoint(), map[string]bool{})
	if err != nil {
		return nil, err
	}
	if root.Type == domain.KindAgent.String() {
		root = ExportNode{
			Name:          "MainSupervisor",
			Type:          domain.KindSupervisor.String(),
			IsAssistant:   ptr(false),
			LLMConfig:     placeholderLLM(),
			SystemMessage: "You are the main supervisor coordinating the workflow.",
			Children:      []ExportNode{root},
		}
	}
	return &Export{WorkflowID: ExportedWorkflowID, Supervisor: root}, nil
}

func exportNode(n domain.WorkerNode, path map[string]bool) (ExportNode, error) {
	if path[n.Name()] {
		return ExportNode{}, domain.Structural(domain.ErrCyclicHierarchy, n.Name(), "")
	}
	path[n.Name()] = true
	defer delete(path, n.Name())

	out := ExportNode{
		Name:          n.Name(),
		Type:          n.Kind().String(),
		LLMConfig:     placeholderLLM(),
		SystemMessage: n.SystemMessage(),
	}

	switch v := n.(type) {
	case *domain.Supervisor:
		out.IsAssistant = ptr(!v.RootEntry)
		if !v.UseAgents {
			out.UseAgents = ptr(false)
		}
		for _, child := range v.Children() {
			c, err := exportNode(child, path)
			if err != nil {
				return ExportNode{}, err
			}
			out.Children = append(out.Children, c)
		}
	case *domain.Agent:
		out.KeepHistory = ptr(v.KeepHistory)
		if v.OutputSchema != nil {
			var doc yaml.Node
			if err := yaml.Unmarshal(v.OutputSchema.Raw, &doc); err != nil {
				return ExportNode{}, fmt.Errorf("output schema of '%s': %w", v.Name(), err)
			}
			if len(doc.Content) > 0 {
				out.OutputSchema = doc.Content[0]
				out.Strict = ptr(v.Strict)
			}
		}
		for _, desc := range v.Capabilities {
			desc.AuthToken = ""
			out.MCPServers = append(out.MCPServers, desc)
		}
		out.UseTools = v.UsesTools
	default:
		return ExportNode{}, fmt.Errorf("internal error: unhandled worker node %T", n)
	}
	return out, nil
}

// ExportYAML renders the export tree with two-space indentation, in field order.
func ExportYAML(wf *domain.Workflow) ([]byte, error) {
	exp, err := BuildExport(wf)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(exp); err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
