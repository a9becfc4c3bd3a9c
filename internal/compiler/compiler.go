package compiler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/canopy/internal/logging"
	"github.com/aretw0/canopy/pkg/agent"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/observability"
	"github.com/getkin/kin-openapi/openapi3"
	"golang.org/x/sync/errgroup"
)

// Resolver turns a capability descriptor into a live toolset.
type Resolver interface {
	Resolve(ctx context.Context, desc domain.CapabilityDescriptor) (domain.Toolset, error)
}

// Compiler turns graph documents into compiled workflows.
type Compiler struct {
	parser      *Parser
	resolver    Resolver
	logger      *slog.Logger
	metrics     *observability.Metrics
	concurrency int
}

// Option configures the Compiler.
type Option func(*Compiler)

// WithResolver enables the capability resolution pass.
// Without a resolver, descriptors are attached but no toolsets are loaded.
func WithResolver(r Resolver) Option {
	return func(c *Compiler) {
		c.resolver = r
	}
}

// WithLogger configures a logger for the Compiler.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		c.logger = logger
	}
}

// WithMetrics records compile outcomes and capability failures.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Compiler) {
		c.metrics = m
	}
}

// WithConcurrency bounds how many capability servers are resolved at once.
func WithConcurrency(n int) Option {
	return func(c *Compiler) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// New creates a Compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		parser:      NewParser(),
		logger:      logging.NewNop(),
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CompileBytes parses a JSON graph export and compiles it.
func (c *Compiler) CompileBytes(ctx context.Context, data []byte, llm *domain.LLMConfig) (*domain.Workflow, error) {
	doc, err := c.parser.Parse(data)
	if err != nil {
		c.metrics.ObserveCompile(err)
		return nil, err
	}
	return c.Compile(ctx, doc, llm)
}

// Compile validates doc and builds the call hierarchy rooted at the node the user record
// points to. Every node shares llm. The returned workflow has generation zero; the caller
// stamps it before publishing.
func (c *Compiler) Compile(ctx context.Context, doc *domain.GraphDocument, llm *domain.LLMConfig) (*domain.Workflow, error) {
	wf, err := c.compile(ctx, doc, llm)
	c.metrics.ObserveCompile(err)
	if err != nil {
		c.logger.Debug("compile failed", "err", err)
		return nil, err
	}
	c.logger.Info("workflow compiled", "entry_point", wf.EntryPoint().Name(), "nodes", wf.Len())
	return wf, nil
}

func (c *Compiler) compile(ctx context.Context, doc *domain.GraphDocument, llm *domain.LLMConfig) (*domain.Workflow, error) {
	if doc == nil || len(doc.Records) == 0 {
		return nil, domain.Structural(domain.ErrInvalidDocument, "", "empty graph export")
	}

	nodes, err := c.instantiate(doc, llm)
	if err != nil {
		return nil, err
	}

	entry, err := resolveEntry(doc, nodes)
	if err != nil {
		return nil, err
	}

	c.wire(doc, nodes)

	if err := checkDelegateNames(doc, nodes); err != nil {
		return nil, err
	}
	if err := detectCycles(doc, nodes); err != nil {
		return nil, err
	}

	wf := domain.NewWorkflow(entry, 0)
	if err := c.resolveCapabilities(ctx, wf.Agents()); err != nil {
		return nil, err
	}
	return wf, nil
}

// instantiate builds one WorkerNode per agent/supervisor record, keyed by record key.
func (c *Compiler) instantiate(doc *domain.GraphDocument, llm *domain.LLMConfig) (map[string]domain.WorkerNode, error) {
	nodes := make(map[string]domain.WorkerNode)
	names := make(map[string]bool)

	for _, id := range doc.IDs() {
		rec := doc.Records[id]
		if !rec.Class.IsWorker() {
			continue
		}

		name := strings.TrimSpace(rec.Data.Name)
		if name == "" {
			return nil, domain.Structural(domain.ErrInvalidDocument, id, fmt.Sprintf("%s record has no name", rec.Class))
		}
		if names[name] {
			return nil, domain.Structural(domain.ErrDuplicateName, name, "all names must be unique")
		}
		names[name] = true

		key := rec.Key()
		if _, dup := nodes[key]; dup {
			return nil, domain.Structural(domain.ErrInvalidDocument, id, fmt.Sprintf("duplicate uuid %q", key))
		}

		systemMessage := rec.Data.SystemMessage
		if strings.TrimSpace(systemMessage) == "" {
			systemMessage = fmt.Sprintf("You are %s.", name)
		}

		switch rec.Class {
		case domain.ClassSupervisor:
			sup := domain.NewSupervisor(name, systemMessage, llm)
			if rec.Data.UseAgents != nil {
				sup.UseAgents = *rec.Data.UseAgents
			}
			nodes[key] = sup

		case domain.ClassAgent:
			agent := domain.NewAgent(name, systemMessage, llm)
			if rec.Data.KeepHistory != nil {
				agent.KeepHistory = *rec.Data.KeepHistory
			}
			agent.Strict = rec.Data.Strict
			schema, err := ParseOutputSchema(rec.Data.OutputSchema)
			if err != nil {
				return nil, domain.Structural(domain.ErrSchemaParse, name, err.Error())
			}
			agent.OutputSchema = schema
			nodes[key] = agent

		default:
			return nil, fmt.Errorf("internal error: unhandled worker class %q", rec.Class)
		}
	}
	return nodes, nil
}

// ParseOutputSchema parses a structured-output contract. A blank string means no contract.
func ParseOutputSchema(raw string) (*domain.OutputSchema, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var schema openapi3.Schema
	if err := json.Unmarshal([]byte(raw), &schema); err != nil {
		return nil, err
	}
	return &domain.OutputSchema{Raw: json.RawMessage(raw), Schema: &schema}, nil
}

func resolveEntry(doc *domain.GraphDocument, nodes map[string]domain.WorkerNode) (domain.WorkerNode, error) {
	users := doc.ByClass(domain.ClassUser)
	if len(users) != 1 {
		return nil, domain.Structural(domain.ErrMissingUserNode, "", fmt.Sprintf("found %d", len(users)))
	}
	user := users[0]
	if len(user.Outputs) == 0 {
		return nil, domain.Structural(domain.ErrUnresolvedEntry, "", "user node has no connection")
	}

	target, ok := doc.Record(user.Outputs[0])
	if !ok {
		return nil, domain.Structural(domain.ErrUnresolvedEntry, user.Outputs[0], "connection points to a missing record")
	}
	entry, ok := nodes[target.Key()]
	if !ok {
		return nil, domain.Structural(domain.ErrUnresolvedEntry, target.ID, fmt.Sprintf("target is a %s record", target.Class))
	}

	if sup, ok := entry.(*domain.Supervisor); ok {
		sup.RootEntry = true
	}
	return entry, nil
}

// wire registers supervisor children and attaches agent capability descriptors,
// both in connection order.
func (c *Compiler) wire(doc *domain.GraphDocument, nodes map[string]domain.WorkerNode) {
	for _, id := range doc.IDs() {
		rec := doc.Records[id]
		source, ok := nodes[rec.Key()]
		if !ok {
			continue
		}

		for _, targetID := range rec.Outputs {
			target, ok := doc.Record(targetID)
			if !ok {
				c.logger.Warn("dangling connection ignored", "source", source.Name(), "target_id", targetID)
				continue
			}

			switch src := source.(type) {
			case *domain.Supervisor:
				child, ok := nodes[target.Key()]
				if !ok {
					c.logger.Warn("supervisor connection ignored", "source", src.Name(), "target_class", target.Class)
					continue
				}
				if _, dup := src.Child(child.Name()); dup {
					continue
				}
				src.Register(child)
				c.logger.Debug("registered child", "supervisor", src.Name(), "child", child.Name())

			case *domain.Agent:
				switch target.Class {
				case domain.ClassMCP:
					desc := Descriptor(target.Data)
					if desc.IsZero() {
						continue
					}
					src.Attach(desc)
				case domain.ClassTool:
					c.logger.Warn("built-in tool nodes are not supported", "agent", src.Name(), "target_id", targetID)
				default:
					c.logger.Warn("agent connection ignored", "agent", src.Name(), "target_class", target.Class)
				}

			default:
				c.logger.Error("internal error: unhandled worker node", "type", fmt.Sprintf("%T", source))
			}
		}
	}
}

// Descriptor normalizes a capability-server record, copying only non-empty fields.
func Descriptor(data domain.NodeData) domain.CapabilityDescriptor {
	desc := domain.CapabilityDescriptor{
		Type:       strings.TrimSpace(data.Type),
		URL:        strings.TrimSpace(data.URL),
		AuthToken:  strings.TrimSpace(data.AuthToken),
		ScriptPath: strings.TrimSpace(data.ScriptPath),
	}
	for _, a := range data.Args {
		if a != "" {
			desc.Args = append(desc.Args, a)
		}
	}
	for k, v := range data.Env {
		if k == "" || v == "" {
			continue
		}
		if desc.Env == nil {
			desc.Env = make(map[string]string)
		}
		desc.Env[k] = v
	}
	return desc
}

// checkDelegateNames rejects a supervisor whose children map to the same delegation tool,
// which happens when names differ only in characters the tool name cannot carry.
func checkDelegateNames(doc *domain.GraphDocument, nodes map[string]domain.WorkerNode) error {
	for _, id := range doc.IDs() {
		sup, ok := nodes[doc.Records[id].Key()].(*domain.Supervisor)
		if !ok {
			continue
		}
		seen := make(map[string]string)
		for _, child := range sup.Children() {
			tool := agent.DelegateToolName(child.Name())
			if other, dup := seen[tool]; dup {
				return domain.Structural(domain.ErrToolNameClash, sup.Name(),
					fmt.Sprintf("'%s' and '%s' both become %s", other, child.Name(), tool))
			}
			seen[tool] = child.Name()
		}
	}
	return nil
}

// detectCycles checks every supervisor for a path back to itself using DFS.
// A node reachable through two different supervisors is not a cycle.
func detectCycles(doc *domain.GraphDocument, nodes map[string]domain.WorkerNode) error {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)
	var path []string

	var visit func(n domain.WorkerNode) error
	visit = func(n domain.WorkerNode) error {
		visiting[n.Name()] = true
		path = append(path, n.Name())
		if sup, ok := n.(*domain.Supervisor); ok {
			for _, child := range sup.Children() {
				if visiting[child.Name()] {
					return domain.Structural(domain.ErrCyclicHierarchy, child.Name(),
						strings.Join(append(path, child.Name()), " -> "))
				}
				if !visited[child.Name()] {
					if err := visit(child); err != nil {
						return err
					}
				}
			}
		}
		path = path[:len(path)-1]
		delete(visiting, n.Name())
		visited[n.Name()] = true
		return nil
	}

	for _, id := range doc.IDs() {
		n, ok := nodes[doc.Records[id].Key()]
		if !ok || visited[n.Name()] {
			continue
		}
		if err := visit(n); err != nil {
			return err
		}
	}
	return nil
}

// resolveCapabilities loads toolsets for every reachable agent. Failures are logged and
// skipped; the agent keeps whatever resolved.
func (c *Compiler) resolveCapabilities(ctx context.Context, agents []*domain.Agent) error {
	if c.resolver == nil {
		return nil
	}

	type job struct {
		agent *domain.Agent
		slot  int
	}
	var jobs []job
	results := make(map[*domain.Agent][]domain.Toolset)
	for _, a := range agents {
		if len(a.Capabilities) == 0 {
			continue
		}
		results[a] = make([]domain.Toolset, len(a.Capabilities))
		for i := range a.Capabilities {
			jobs = append(jobs, job{agent: a, slot: i})
		}
	}
	if len(jobs) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, j := range jobs {
		slots := results[j.agent]
		desc := j.agent.Capabilities[j.slot]
		g.Go(func() error {
			ts, err := c.resolver.Resolve(gctx, desc)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				capErr := &domain.CapabilityError{Agent: j.agent.Name(), Descriptor: desc, Err: err}
				c.logger.Warn("capability resolution failed", "agent", j.agent.Name(), "capability", desc.Label(), "err", capErr)
				c.metrics.CapabilityFailed()
				return nil
			}
			slots[j.slot] = ts
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, slots := range results {
			for _, ts := range slots {
				if ts != nil {
					_ = ts.Close()
				}
			}
		}
		return fmt.Errorf("capability resolution aborted: %w", err)
	}

	for a, slots := range results {
		for _, ts := range slots {
			if ts != nil {
				a.Toolsets = append(a.Toolsets, ts)
			}
		}
		c.logger.Debug("capabilities resolved", "agent", a.Name(), "toolsets", len(a.Toolsets), "descriptors", len(a.Capabilities))
	}
	return nil
}

// CloseToolsets releases every toolset held by the agents of wf.
func CloseToolsets(wf *domain.Workflow) error {
	var errs []error
	for _, a := range wf.Agents() {
		for _, ts := range a.Toolsets {
			if err := ts.Close(); err != nil {
				errs = append(errs, fmt.Errorf("agent '%s': %w", a.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}
