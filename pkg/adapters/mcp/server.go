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

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/internal/presentation/graph"
	"github.com/aretw0/tendril/pkg/codec"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/runner"
	"github.com/aretw0/tendril/pkg/validator"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

// BotsResourceURI lists the stored bots.
const BotsResourceURI = "tendril://bots"

// BotArgs selects a bot.
type BotArgs struct {
	BotID string `json:"bot_id"`
}

// ChatArgs are the arguments of the chat tool.
type ChatArgs struct {
	BotID     string `json:"bot_id"`
	SessionID string `json:"session_id,omitempty"`
	Input     string `json:"input,omitempty"`
	Action    string `json:"action,omitempty"`
}

// BotList is the result of list_bots.
type BotList struct {
	Bots []string `json:"bots" jsonschema_description:"Ids of the stored bots"`
}

// GraphResult is the result of get_graph.
type GraphResult struct {
	Mermaid string `json:"mermaid" jsonschema_description:"Mermaid flowchart of the bot"`
}

// ChatResult is the result of chat. The session id must be passed back on the next call.
type ChatResult struct {
	SessionID string      `json:"session_id"`
	Turn      domain.Turn `json:"turn"`
}

// Server exposes bot inspection and conversations as an MCP server.
type Server struct {
	repo      ports.BotRepository
	runner    *runner.Runner
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a structured logger for the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(repo ports.BotRepository, run *runner.Runner, version string, opts ...Option) *Server {
	s := &Server{
		repo:      repo,
		runner:    run,
		mcpServer: server.NewMCPServer("tendril-mcp", strings.TrimSpace(version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_bots",
		mcp.WithDescription("List the ids of the stored bots."),
		mcp.WithOutputSchema[BotList](),
	), mcp.NewStructuredToolHandler(s.handleListBots))

	s.mcpServer.AddTool(mcp.NewTool("get_bot",
		mcp.WithDescription("Get the canonical server representation of a bot."),
		mcp.WithString("bot_id", mcp.Required(), mcp.Description("The bot id")),
	), mcp.NewStructuredToolHandler(s.handleGetBot))

	s.mcpServer.AddTool(mcp.NewTool("validate_bot",
		mcp.WithDescription("Check a stored bot for structural errors and warnings (dangling targets, orphans, unreachable nodes)."),
		mcp.WithString("bot_id", mcp.Required(), mcp.Description("The bot id")),
		mcp.WithOutputSchema[validator.Report](),
	), mcp.NewStructuredToolHandler(s.handleValidateBot))

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Render a bot as a Mermaid flowchart, flagging nodes with issues."),
		mcp.WithString("bot_id", mcp.Required(), mcp.Description("The bot id")),
		mcp.WithOutputSchema[GraphResult](),
	), mcp.NewStructuredToolHandler(s.handleGetGraph))

	s.mcpServer.AddTool(mcp.NewTool("chat",
		mcp.WithDescription("Run one conversation turn. Omit session_id to start a new conversation."),
		mcp.WithString("bot_id", mcp.Required(), mcp.Description("The bot id")),
		mcp.WithString("session_id", mcp.Description("Session id returned by a previous turn")),
		mcp.WithString("input", mcp.Description("Option id or free-form input")),
		mcp.WithString("action", mcp.Enum(string(domain.ActionBack), string(domain.ActionEnd)), mcp.Description("Go back or end the conversation instead of answering")),
	), mcp.NewStructuredToolHandler(s.handleChat))
}

func (s *Server) handleListBots(ctx context.Context, request mcp.CallToolRequest, args struct{}) (BotList, error) {
	ids, err := s.repo.List(ctx)
	if err != nil {
		return BotList{}, fmt.Errorf("list failed: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return BotList{Bots: ids}, nil
}

func (s *Server) handleGetBot(ctx context.Context, request mcp.CallToolRequest, args BotArgs) (map[string]any, error) {
	bot, err := s.repo.Get(ctx, args.BotID)
	if err != nil {
		return nil, err
	}
	return codec.Serialize(bot), nil
}

func (s *Server) handleValidateBot(ctx context.Context, request mcp.CallToolRequest, args BotArgs) (validator.Report, error) {
	bot, err := s.repo.Get(ctx, args.BotID)
	if err != nil {
		return validator.Report{}, err
	}
	return validator.Check(bot), nil
}

func (s *Server) handleGetGraph(ctx context.Context, request mcp.CallToolRequest, args BotArgs) (GraphResult, error) {
	bot, err := s.repo.Get(ctx, args.BotID)
	if err != nil {
		return GraphResult{}, err
	}
	overlay := &graph.GraphOverlay{FlaggedNodes: validator.Check(bot).NodeIDs()}
	return GraphResult{Mermaid: graph.GenerateMermaid(bot, overlay)}, nil
}

func (s *Server) handleChat(ctx context.Context, request mcp.CallToolRequest, args ChatArgs) (ChatResult, error) {
	res, err := s.runner.Answer(ctx, args.BotID, args.SessionID, runner.Reply{Input: args.Input, Action: domain.ActionType(args.Action)})
	if err != nil {
		s.logger.Debug("MCP chat: turn rejected", "bot_id", args.BotID, "session_id", args.SessionID, "err", err)
		return ChatResult{}, fmt.Errorf("turn failed: %w", err)
	}
	return ChatResult{SessionID: res.SessionID, Turn: res.Turn}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(BotsResourceURI, "Stored Bots",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		list, err := s.handleListBots(ctx, mcp.CallToolRequest{}, struct{}{})
		if err != nil {
			return nil, err
		}
		jsonBytes, _ := json.Marshal(list)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      BotsResourceURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
