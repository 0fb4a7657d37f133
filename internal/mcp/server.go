package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/harborai/docvector-mcp/internal/config"
	"github.com/harborai/docvector-mcp/internal/embedder"
	"github.com/harborai/docvector-mcp/internal/indexer"
	"github.com/harborai/docvector-mcp/internal/searcher"
	"github.com/harborai/docvector-mcp/internal/store"
)

const (
	// ServerName is the MCP server name
	ServerName = "docvector-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDBPath is the default location for the database
	DefaultDBPath = "~/.docvector"
)

// Server wraps the MCP server with application dependencies.
type Server struct {
	mcp      *server.MCPServer
	store    store.Store
	embedder embedder.Embedder
	indexer  *indexer.DocumentIndexer
	searcher *searcher.DocumentSearch
	cfg      *config.Config

	indexLock indexer.IndexLock
}

// NewServer creates a new MCP server instance. The store and embedder
// are shared by the indexing and search paths, so embeddings cached
// while indexing are reusable at query time.
func NewServer(dbPath string, cfg *config.Config) (*Server, error) {
	if dbPath == "" || dbPath == DefaultDBPath {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".docvector")
	}
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	dbFile := filepath.Join(dbPath, "docvector.db")

	st, err := store.Open(dbFile, cfg.EmbeddingDim)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	emb, err := embedder.NewFromEnv(cfg)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	if err := st.CreateIndexes(context.Background()); err != nil {
		_ = emb.Close()
		_ = st.Close()
		return nil, fmt.Errorf("failed to build indexes: %w", err)
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		store:    st,
		embedder: emb,
		indexer:  indexer.New(st, emb, cfg),
		searcher: searcher.New(st, emb, cfg),
		cfg:      cfg,
	}
	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	defer func() {
		_ = s.embedder.Close()
		_ = s.store.Close()
	}()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools.
func (s *Server) registerTools() {
	s.mcp.AddTool(indexWorkspaceTool(), s.handleIndexWorkspace)
	s.mcp.AddTool(searchDocumentsTool(), s.handleSearchDocuments)
	s.mcp.AddTool(workspaceStatusTool(), s.handleWorkspaceStatus)
}
