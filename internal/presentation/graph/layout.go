package graph

import "github.com/aretw0/canopy/pkg/domain"

// Layout constants, in canvas pixels.
const (
	MarginX  = 50
	MarginY  = 500
	XSpacing = 350
	YSpacing = 150
)

// Layout is a renderable node-link view of a compiled hierarchy.
type Layout struct {
	Nodes []LayoutNode `json:"nodes"`
	Edges []LayoutEdge `json:"edges"`
}

// LayoutNode is one positioned worker node.
type LayoutNode struct {
	ID   string         `json:"id"`
	Type string         `json:"type"`
	PosX float64        `json:"pos_x"`
	PosY float64        `json:"pos_y"`
	Data LayoutNodeData `json:"data"`
}

// LayoutNodeData is the display payload of a node.
type LayoutNodeData struct {
	Title         string `json:"title"`
	Subtitle      string `json:"subtitle"`
	SystemMessage string `json:"system_message"`
}

// LayoutEdge links a supervisor to one child.
type LayoutEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// BuildLayout places nodes in columns by depth (breadth-first from the entry point) and
// spreads each column vertically around MarginY. Nodes and edges are emitted in pre-order.
func BuildLayout(wf *domain.Workflow) Layout {
	out := Layout{Nodes: []LayoutNode{}, Edges: []LayoutEdge{}}
	if wf == nil {
		return out
	}

	levels := make(map[string]int)
	levelCounts := make(map[int]int)
	type item struct {
		node  domain.WorkerNode
		level int
	}
	queue := []item{{wf.EntryPoint(), 0}}
	levels[wf.EntryPoint().Name()] = 0
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		levelCounts[it.level]++
		sup, ok := it.node.(*domain.Supervisor)
		if !ok {
			continue
		}
		for _, child := range sup.Children() {
			if _, seen := levels[child.Name()]; seen {
				continue
			}
			levels[child.Name()] = it.level + 1
			queue = append(queue, item{child, it.level + 1})
		}
	}

	offsets := make(map[int]int)
	_ = wf.Walk(func(n domain.WorkerNode) error {
		level := levels[n.Name()]
		total := float64(levelCounts[level]-1) * YSpacing
		startY := MarginY - total/2

		node := LayoutNode{
			ID:   n.Name(),
			Type: n.Kind().String(),
			PosX: float64(MarginX + level*XSpacing),
			PosY: startY + float64(offsets[level]*YSpacing),
			Data: LayoutNodeData{
				Title:         n.Name(),
				SystemMessage: n.SystemMessage(),
			},
		}
		offsets[level]++

		switch v := n.(type) {
		case *domain.Supervisor:
			node.Data.Subtitle = "Manages agents"
			for _, child := range v.Children() {
				out.Edges = append(out.Edges, LayoutEdge{Source: n.Name(), Target: child.Name()})
			}
		case *domain.Agent:
			node.Data.Subtitle = "Performs tasks"
		}
		if node.Data.SystemMessage == "" {
			node.Data.SystemMessage = "Not set"
		}
		out.Nodes = append(out.Nodes, node)
		return nil
	})
	return out
}
