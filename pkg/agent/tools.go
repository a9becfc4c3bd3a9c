package agent

import (
	"fmt"
	"regexp"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/cloudwego/eino/schema"
)

// DelegatePrefix starts the name of every delegation tool.
const DelegatePrefix = "delegate_to_"

// maxToolName is the longest function name providers accept.
const maxToolName = 64

var unsafeToolChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// DelegateToolName derives the tool name a supervisor uses to reach a child.
func DelegateToolName(child string) string {
	name := DelegatePrefix + unsafeToolChars.ReplaceAllString(child, "_")
	if len(name) > maxToolName {
		name = name[:maxToolName]
	}
	return name
}

type delegateArgs struct {
	Reasoning string `json:"reasoning"`
	Query     string `json:"query"`
}

// binding routes a tool name to what executes it.
type binding struct {
	child   domain.WorkerNode
	toolset domain.Toolset
}

// toolbox is the set of tools one node offers the model in one turn.
type toolbox struct {
	infos  []*schema.ToolInfo
	routes map[string]binding
}

func (tb *toolbox) add(info *schema.ToolInfo, b binding) {
	if _, dup := tb.routes[info.Name]; dup {
		return
	}
	tb.infos = append(tb.infos, info)
	tb.routes[info.Name] = b
}

// toolsFor assembles delegation tools for supervisors and capability tools for agents.
func toolsFor(n domain.WorkerNode) (*toolbox, error) {
	tb := &toolbox{routes: make(map[string]binding)}
	switch node := n.(type) {
	case *domain.Supervisor:
		if !node.UseAgents {
			return tb, nil
		}
		for _, child := range node.Children() {
			info := delegateTool(child)
			if prev, dup := tb.routes[info.Name]; dup {
				return nil, domain.Structural(domain.ErrToolNameClash, node.Name(),
					fmt.Sprintf("'%s' and '%s' both become %s", prev.child.Name(), child.Name(), info.Name))
			}
			tb.add(info, binding{child: child})
		}
	case *domain.Agent:
		for _, ts := range node.Toolsets {
			for _, info := range ts.Tools() {
				tb.add(info, binding{toolset: ts})
			}
		}
	default:
		return nil, fmt.Errorf("internal error: unknown worker node type %T", n)
	}
	return tb, nil
}

func delegateTool(child domain.WorkerNode) *schema.ToolInfo {
	desc := fmt.Sprintf("Delegate a task to %s (%s).", child.Name(), child.Kind())
	if msg := child.SystemMessage(); msg != "" {
		desc += " Its directive: " + msg
	}
	return &schema.ToolInfo{
		Name: DelegateToolName(child.Name()),
		Desc: desc,
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"reasoning": {
				Type:     schema.String,
				Desc:     "Why this worker is the right one for the task.",
				Required: true,
			},
			"query": {
				Type:     schema.String,
				Desc:     "The complete, self-contained request for the worker.",
				Required: true,
			},
		}),
	}
}
