package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/internal/logging"
	"github.com/aretw0/canopy/internal/presentation/graph"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Resource URIs exposed by the server.
const (
	HierarchyURI = "canopy://hierarchy"
	MermaidURI   = "canopy://hierarchy/mermaid"
)

// Studio defines the facade operations the MCP server exposes.
type Studio interface {
	Workflow() *domain.Workflow
	Chat(ctx context.Context, sessionID, query string) (string, error)
	CreateSession(ctx context.Context) (string, error)
	ListSessions(ctx context.Context) ([]string, error)
	SessionExists(ctx context.Context, sessionID string) (bool, error)
	History(ctx context.Context, sessionID string) ([]domain.Message, error)
}

// ChatArgs are the arguments of the chat tool.
type ChatArgs struct {
	SessionID string `json:"session_id,omitempty"`
	Query     string `json:"query"`
}

// ChatResult is the structured output of the chat tool.
type ChatResult struct {
	SessionID string `json:"session_id" jsonschema_description:"Session the query ran in; pass it back to continue the conversation"`
	Response  string `json:"response" jsonschema_description:"Final answer of the entry node"`
}

// SessionsResult is the structured output of the list_sessions tool.
type SessionsResult struct {
	Sessions []string `json:"sessions"`
}

// HistoryArgs are the arguments of the get_history tool.
type HistoryArgs struct {
	SessionID string `json:"session_id"`
}

// HistoryResult is the structured output of the get_history tool.
type HistoryResult struct {
	SessionID string           `json:"session_id"`
	Messages  []domain.Message `json:"messages"`
}

// Server exposes a Studio as an MCP server, so other agents can converse with the hierarchy.
type Server struct {
	studio    Studio
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(studio Studio, opts ...Option) *Server {
	s := &Server{
		studio: studio,
		logger: logging.NewNop(),
		mcpServer: server.NewMCPServer("canopy-mcp", strings.TrimSpace(canopy.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, for in-process clients.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio serves on Stdin/Stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("chat",
		mcp.WithDescription("Send a query to the compiled agent hierarchy. Omit session_id to start a new conversation."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The user query")),
		mcp.WithString("session_id", mcp.Description("Existing session to continue (optional)")),
		mcp.WithOutputSchema[ChatResult](),
	), mcp.NewStructuredToolHandler(s.handleChat))

	s.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List every stored conversation session."),
		mcp.WithOutputSchema[SessionsResult](),
	), mcp.NewStructuredToolHandler(s.handleListSessions))

	s.mcpServer.AddTool(mcp.NewTool("get_history",
		mcp.WithDescription("Get the full message history of a session, oldest first."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithOutputSchema[HistoryResult](),
	), mcp.NewStructuredToolHandler(s.handleGetHistory))
}

func (s *Server) handleChat(ctx context.Context, request mcp.CallToolRequest, args ChatArgs) (ChatResult, error) {
	if strings.TrimSpace(args.Query) == "" {
		return ChatResult{}, errors.New("query is required")
	}
	if s.studio.Workflow() == nil {
		return ChatResult{}, domain.ErrNoWorkflow
	}

	id := args.SessionID
	if id == "" {
		var err error
		if id, err = s.studio.CreateSession(ctx); err != nil {
			return ChatResult{}, err
		}
	}

	out, err := s.studio.Chat(ctx, id, args.Query)
	if err != nil {
		s.logger.Warn("MCP chat failed", "session_id", id, "err", err)
		return ChatResult{}, err
	}
	return ChatResult{SessionID: id, Response: out}, nil
}

func (s *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest, _ struct{}) (SessionsResult, error) {
	ids, err := s.studio.ListSessions(ctx)
	if err != nil {
		return SessionsResult{}, err
	}
	if ids == nil {
		ids = []string{}
	}
	return SessionsResult{Sessions: ids}, nil
}

func (s *Server) handleGetHistory(ctx context.Context, request mcp.CallToolRequest, args HistoryArgs) (HistoryResult, error) {
	ok, err := s.studio.SessionExists(ctx, args.SessionID)
	if err != nil {
		return HistoryResult{}, err
	}
	if !ok {
		return HistoryResult{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, args.SessionID)
	}

	msgs, err := s.studio.History(ctx, args.SessionID)
	if err != nil {
		return HistoryResult{}, err
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return HistoryResult{SessionID: args.SessionID, Messages: msgs}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(HierarchyURI, "Compiled Agent Hierarchy",
		mcp.WithResourceDescription("Nodes and delegation edges of the active workflow"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		wf := s.studio.Workflow()
		if wf == nil {
			return nil, domain.ErrNoWorkflow
		}
		data, err := json.Marshal(graph.BuildLayout(wf))
		if err != nil {
			return nil, fmt.Errorf("failed to encode hierarchy: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      HierarchyURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})

	s.mcpServer.AddResource(mcp.NewResource(MermaidURI, "Agent Hierarchy Diagram",
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		wf := s.studio.Workflow()
		if wf == nil {
			return nil, domain.ErrNoWorkflow
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      MermaidURI,
				MIMEType: "text/plain",
				Text:     graph.GenerateMermaid(wf, nil),
			},
		}, nil
	})
}
