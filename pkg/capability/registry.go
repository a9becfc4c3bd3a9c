package capability

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/canopy/internal/logging"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// Factory connects to one kind of capability server. The returned client must be started
// but not yet initialized.
type Factory func(ctx context.Context, desc domain.CapabilityDescriptor) (*client.Client, error)

// Registry resolves capability descriptors by type.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory

	clientName    string
	clientVersion string
	timeout       time.Duration
	logger        *slog.Logger
}

// Option configures the Registry.
type Option func(*Registry)

// WithClientInfo sets the implementation name and version sent on initialize.
func WithClientInfo(name, version string) Option {
	return func(r *Registry) {
		r.clientName = name
		r.clientVersion = version
	}
}

// WithTimeout bounds connect, initialize and tool listing for one server.
func WithTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.timeout = d
	}
}

// WithLogger configures a logger for the Registry.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates a registry with the built-in transports registered.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		factories:     make(map[string]Factory),
		clientName:    "canopy",
		clientVersion: "dev",
		timeout:       30 * time.Second,
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.Register(TypeSSE, SSE)
	r.Register(TypeHTTP, StreamableHTTP)
	r.Register(TypeStdio, Stdio)
	return r
}

// Register adds a factory for a descriptor type.
// If a factory with the same type exists, it is overwritten.
func (r *Registry) Register(kind string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[normalizeType(kind)] = f
}

// Types lists the registered descriptor types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Resolve connects to the server a descriptor names, performs the MCP handshake and
// lists its tools.
func (r *Registry) Resolve(ctx context.Context, desc domain.CapabilityDescriptor) (domain.Toolset, error) {
	kind := InferType(desc)

	r.mu.RLock()
	factory, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no transport registered for type %q", desc.Type)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	c, err := factory(ctx, desc)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: r.clientName, Version: r.clientVersion}
	res, err := c.Initialize(ctx, initReq)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("initialize: %w", err)
	}

	ts, err := NewToolset(ctx, c, desc.Label())
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	r.logger.Info("capability server connected",
		"capability", desc.Label(),
		"server", res.ServerInfo.Name,
		"tools", len(ts.Tools()),
	)
	return ts, nil
}

// Descriptor types with a built-in transport.
const (
	TypeSSE   = "sse"
	TypeHTTP  = "http"
	TypeStdio = "stdio"
)

func normalizeType(kind string) string {
	k := strings.ToLower(strings.TrimSpace(kind))
	switch k {
	case "streamable_http", "streamable-http", "streamablehttp":
		return TypeHTTP
	default:
		return k
	}
}

// InferType returns the descriptor's transport type. An untyped descriptor is stdio when
// it names a script and sse when it names a URL.
func InferType(desc domain.CapabilityDescriptor) string {
	if k := normalizeType(desc.Type); k != "" {
		return k
	}
	if desc.ScriptPath != "" {
		return TypeStdio
	}
	if desc.URL != "" {
		return TypeSSE
	}
	return ""
}
