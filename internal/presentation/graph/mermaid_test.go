package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/canopy/internal/presentation/graph"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/stretchr/testify/assert"
)

// sample builds Root -> {Research Team -> {Web Agent}, Writer}.
func sample() *domain.Workflow {
	llm := &domain.LLMConfig{Model: "m", APIKey: "secret"}
	root := domain.NewSupervisor("Root", "", llm)
	root.RootEntry = true
	team := domain.NewSupervisor("Research Team", "Coordinate research.", llm)
	web := domain.NewAgent("Web-Agent", "Search the web.", llm)
	web.Attach(domain.CapabilityDescriptor{Type: "sse", URL: "http://search/sse", AuthToken: "tok"})
	writer := domain.NewAgent("Writer", "Write.", llm)
	writer.KeepHistory = false

	team.Register(web)
	root.Register(team)
	root.Register(writer)
	return domain.NewWorkflow(root, 1)
}

func TestGenerateMermaid(t *testing.T) {
	out := graph.GenerateMermaid(sample(), nil)

	for _, want := range []string{
		"graph TD\n",
		`Root(("Root"))`,
		`Research_Team["Research Team"]`,
		`Web_Agent(["Web-Agent"])`,
		"Root --> Research_Team",
		"Root --> Writer",
		"Research_Team --> Web_Agent",
		`Web_Agent_cap1[/"sse:http://search/sse"/]`,
		"Web_Agent -. tools .-> Web_Agent_cap1",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Overlay")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	out := graph.GenerateMermaid(sample(), &graph.GraphOverlay{
		VisitedNodes: []string{"Root", "Root", "Ghost"},
		CurrentNode:  "Writer",
	})

	assert.Equal(t, 1, strings.Count(out, "class Root visited;"))
	assert.NotContains(t, out, "Ghost")
	assert.Contains(t, out, "class Writer current;")
}

func TestGenerateMermaid_NilWorkflow(t *testing.T) {
	assert.Equal(t, "graph TD\n", graph.GenerateMermaid(nil, nil))
}
