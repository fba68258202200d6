package toolserver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rune-engine/rune/internal/config"
	"github.com/rune-engine/rune/internal/engine"
	"github.com/rune-engine/rune/internal/search"
	"github.com/rune-engine/rune/pkg/version"
)

// Server is the MCP front end for one Engine. It owns no state of its own
// beyond the SDK server handle — every tool call reads or mutates the
// Engine it was built with.
type Server struct {
	mcp    *mcp.Server
	engine *engine.Engine
	cfg    *config.Config
	logger *slog.Logger
}

// NewServer builds a Server around eng and registers the four tools
// spec.md's external interface names: search, index_status, reindex,
// configure.
func NewServer(eng *engine.Engine, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if eng == nil {
		return nil, fmt.Errorf("toolserver: engine is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		engine: eng,
		cfg:    cfg,
		logger: logger,
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "rune",
		Version: version.Version,
	}, nil)

	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying SDK server, for callers that need direct
// access (e.g. to register additional transports in tests).
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Search the indexed workspace in literal, regex, symbol, semantic, or fused hybrid mode.",
	}, s.handleSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: "Report indexed file/symbol counts, index size, and watcher health.",
	}, s.handleIndexStatus)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "reindex",
		Description: "Re-walk one or more repositories, re-chunking files whose content changed.",
	}, s.handleReindex)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "configure",
		Description: "Apply a partial configuration update and report the effective configuration.",
	}, s.handleConfigure)

	s.logger.Debug("registered MCP tools", slog.Int("count", 4))
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult, SearchOutput, error,
) {
	if input.Query == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query is required")
	}

	req := search.SearchRequest{
		Query:        input.Query,
		Mode:         search.Mode(input.Mode),
		Repositories: input.Repositories,
		FilePatterns: input.FilePatterns,
		Limit:        input.Limit,
		Offset:       input.Offset,
	}

	resp, err := s.engine.Search(ctx, req)
	if err != nil {
		return nil, SearchOutput{}, mapError(err)
	}

	out := SearchOutput{
		Results:      make([]ResultOutput, 0, len(resp.Results)),
		TotalMatches: resp.TotalMatches,
		SearchTimeMs: resp.SearchTimeMs,
		Degraded:     resp.Degraded,
	}
	for _, r := range resp.Results {
		out.Results = append(out.Results, ResultOutput{
			Path:          r.Path,
			Repository:    r.Repository,
			LineNumber:    r.LineNumber,
			Column:        r.Column,
			Content:       r.Content,
			ContextBefore: strings.Join(r.ContextBefore, "\n"),
			ContextAfter:  strings.Join(r.ContextAfter, "\n"),
			Score:         r.Score,
			MatchType:     string(r.MatchType),
		})
	}

	return nil, out, nil
}

func (s *Server) handleIndexStatus(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult, IndexStatusOutput, error,
) {
	stats, err := s.engine.Stats(ctx)
	if err != nil {
		return nil, IndexStatusOutput{}, mapError(err)
	}

	lastIndexAt := ""
	if !stats.IndexedAt.IsZero() {
		lastIndexAt = stats.IndexedAt.Format(time.RFC3339)
	}

	out := IndexStatusOutput{
		IndexedFiles:   stats.IndexedFiles,
		TotalSymbols:   stats.TotalSymbols,
		IndexSizeBytes: stats.IndexSizeBytes,
		CacheSizeBytes: 0,
		WatcherRunning: stats.WatcherStatus == "healthy" || stats.WatcherStatus == "degraded",
		LastIndexAt:    lastIndexAt,
	}
	return nil, out, nil
}

func (s *Server) handleReindex(ctx context.Context, _ *mcp.CallToolRequest, input ReindexInput) (
	*mcp.CallToolResult, ReindexOutput, error,
) {
	start := time.Now()

	res, err := s.engine.Reindex(ctx, engine.ReindexOptions{
		Repositories: input.Repositories,
		Force:        input.Force,
	})
	if err != nil {
		return nil, ReindexOutput{}, mapError(err)
	}

	out := ReindexOutput{
		FilesIndexed: res.FilesIndexed,
		TimeTakenMs:  time.Since(start).Milliseconds(),
	}
	return nil, out, nil
}

func (s *Server) handleConfigure(ctx context.Context, _ *mcp.CallToolRequest, input ConfigureInput) (
	*mcp.CallToolResult, ConfigureOutput, error,
) {
	update := engine.ConfigUpdate{
		MaxFileSize:     input.MaxFileSize,
		IndexingThreads: input.IndexingThreads,
		EnableSemantic:  input.EnableSemantic,
		Languages:       input.Languages,
		DebounceMs:      input.FileWatchDebounceMs,
		FuzzyEnabled:    input.FuzzyEnabled,
		FuzzyThreshold:  input.FuzzyThreshold,
		FuzzyMaxDist:    input.FuzzyMaxDistance,
	}
	if input.QuantizationMode != "" {
		qm := config.QuantizationMode(input.QuantizationMode)
		update.Quantization = &qm
	}

	effective, err := s.engine.Configure(update)
	if err != nil {
		return nil, ConfigureOutput{Success: false, Config: effective}, mapError(err)
	}

	return nil, ConfigureOutput{Success: true, Config: effective}, nil
}

// Serve runs the MCP server on the given transport until ctx is canceled.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio", "":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("MCP server stopped")
		return nil
	default:
		return fmt.Errorf("toolserver: unsupported transport %q (supported: stdio)", transport)
	}
}
