package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/canopy/pkg/domain"
)

// GraphOverlay contains session data to visualize on the graph.
type GraphOverlay struct {
	// VisitedNodes are nodes with persisted history in the session.
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart of a compiled hierarchy.
// It applies semantic styling:
// - Root supervisor: ((Circle))
// - Supervisor: [Rectangle]
// - Agent: ([Stadium])
// - Capability server: [/Parallelogram/], linked with a dotted edge
func GenerateMermaid(wf *domain.Workflow, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if wf == nil {
		return sb.String()
	}

	_ = wf.Walk(func(n domain.WorkerNode) error {
		safeID := sanitizeMermaidID(n.Name())

		opener, closer := "[", "]"
		switch node := n.(type) {
		case *domain.Supervisor:
			if node.RootEntry {
				opener, closer = "((", "))"
			}
		case *domain.Agent:
			opener, closer = "([", "])"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, escapeLabel(n.Name()), closer)

		switch node := n.(type) {
		case *domain.Supervisor:
			arrow := "-->"
			if !node.UseAgents {
				arrow = "-.->"
			}
			for _, child := range node.Children() {
				fmt.Fprintf(&sb, "    %s %s %s\n", safeID, arrow, sanitizeMermaidID(child.Name()))
			}
		case *domain.Agent:
			for i, desc := range node.Capabilities {
				capID := fmt.Sprintf("%s_cap%d", safeID, i+1)
				fmt.Fprintf(&sb, "    %s[/\"%s\"/]\n", capID, escapeLabel(desc.Label()))
				fmt.Fprintf(&sb, "    %s -. tools .-> %s\n", safeID, capID)
			}
		}
		return nil
	})

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast regardless of theme.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, name := range overlay.VisitedNodes {
			if _, ok := wf.Lookup(name); !ok {
				continue
			}
			safeID := sanitizeMermaidID(name)
			if !visitedSet[safeID] {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	var sb strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}
