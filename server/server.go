package server

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/pdf-regions/internal/config"
	"github.com/Epistemic-Technology/pdf-regions/internal/logger"
	"github.com/Epistemic-Technology/pdf-regions/internal/pdf"
	"github.com/Epistemic-Technology/pdf-regions/internal/registry"
	"github.com/Epistemic-Technology/pdf-regions/internal/storage"
	"github.com/Epistemic-Technology/pdf-regions/resources"
	"github.com/Epistemic-Technology/pdf-regions/tools"
)

const (
	serverName    = "pdf-regions"
	serverVersion = "v0.1.0"
)

// CreateServer opens the session database named by cfg and returns a server
// rasterising pages with ghostscript.
func CreateServer(cfg *config.Config, log logger.Logger) *mcp.Server {
	store, err := initializeStorage(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize storage: %v", err)
	}

	gs := pdf.NewGhostscript(cfg.GhostscriptPath, log)
	if !gs.Available() {
		log.Warn("Ghostscript binary %q not found, page-view and regions-export will fail", cfg.GhostscriptPath)
	}

	return NewServer(cfg, store, gs, log)
}

// NewServer registers the region tools and resources on a new MCP server.
func NewServer(cfg *config.Config, store storage.Store, renderer pdf.Rasterizer, log logger.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)

	sessions := registry.New()
	regionResourceHandler := resources.NewRegionResourceHandler(sessions, store)

	// Register tools with session, storage and logger dependencies
	mcp.AddTool(server, tools.DocumentOpenTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.DocumentOpenQuery) (*mcp.CallToolResult, *tools.DocumentOpenResponse, error) {
		return tools.DocumentOpenToolHandler(ctx, req, query, sessions, cfg, store, renderer, log)
	})

	mcp.AddTool(server, tools.PageViewTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.PageViewQuery) (*mcp.CallToolResult, *tools.PageViewResponse, error) {
		return tools.PageViewToolHandler(ctx, req, query, sessions, store, log)
	})

	mcp.AddTool(server, tools.PageNavigateTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.PageNavigateQuery) (*mcp.CallToolResult, *tools.PageNavigateResponse, error) {
		return tools.PageNavigateToolHandler(ctx, req, query, sessions, store, log)
	})

	mcp.AddTool(server, tools.RegionAddTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.RegionAddQuery) (*mcp.CallToolResult, *tools.RegionAddResponse, error) {
		return tools.RegionAddToolHandler(ctx, req, query, sessions, store, log)
	})

	mcp.AddTool(server, tools.RegionDragTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.RegionDragQuery) (*mcp.CallToolResult, *tools.RegionDragResponse, error) {
		return tools.RegionDragToolHandler(ctx, req, query, sessions, store, log)
	})

	mcp.AddTool(server, tools.RegionClearTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.RegionClearQuery) (*mcp.CallToolResult, *tools.RegionClearResponse, error) {
		return tools.RegionClearToolHandler(ctx, req, query, sessions, store, log)
	})

	mcp.AddTool(server, tools.RegionsListTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.RegionsListQuery) (*mcp.CallToolResult, *tools.RegionsListResponse, error) {
		return tools.RegionsListToolHandler(ctx, req, query, sessions, log)
	})

	mcp.AddTool(server, tools.AnnotationsSaveTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.AnnotationsSaveQuery) (*mcp.CallToolResult, *tools.AnnotationsSaveResponse, error) {
		return tools.AnnotationsSaveToolHandler(ctx, req, query, sessions, store, log)
	})

	mcp.AddTool(server, tools.AnnotationsLoadTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.AnnotationsLoadQuery) (*mcp.CallToolResult, *tools.AnnotationsLoadResponse, error) {
		return tools.AnnotationsLoadToolHandler(ctx, req, query, sessions, store, log)
	})

	mcp.AddTool(server, tools.RegionsExportTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.RegionsExportQuery) (*mcp.CallToolResult, *tools.RegionsExportResponse, error) {
		return tools.RegionsExportToolHandler(ctx, req, query, sessions, cfg, store, log)
	})

	mcp.AddTool(server, tools.SessionsListTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.SessionsListQuery) (*mcp.CallToolResult, *tools.SessionsListResponse, error) {
		return tools.SessionsListToolHandler(ctx, req, query, sessions, store, log)
	})

	mcp.AddTool(server, tools.ZoteroSearchTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.ZoteroSearchQuery) (*mcp.CallToolResult, *tools.ZoteroSearchResponse, error) {
		return tools.ZoteroSearchToolHandler(ctx, req, query, cfg, store, log)
	})

	readRegions := func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return regionResourceHandler.ReadResource(ctx, req.Params.URI)
	}

	// Template for a document's regions
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "regions://{documentId}",
		Name:        "document-regions",
		Description: "Regions of an annotated document grouped by page, in PDF points",
		MIMEType:    "application/json",
	}, readRegions)

	// Template for the annotation file
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "regions://{documentId}/annotations",
		Name:        "document-annotations",
		Description: "Markdown annotation file of the document's regions",
		MIMEType:    "text/markdown",
	}, readRegions)

	// Template for one page
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "regions://{documentId}/pages/{pageIndex}",
		Name:        "page-regions",
		Description: "Regions of a specific page (0-indexed)",
		MIMEType:    "application/json",
	}, readRegions)

	// Saved sessions are listed as concrete resources
	saved, err := regionResourceHandler.ListResources(context.Background())
	if err != nil {
		log.Warn("Failed to list saved sessions: %v", err)
	}
	for _, resource := range saved {
		server.AddResource(resource, readRegions)
	}

	return server
}

// initializeStorage creates and initializes the storage backend
func initializeStorage(cfg *config.Config, log logger.Logger) (storage.Store, error) {
	log.Info("Initializing SQLite database at: %s", cfg.DatabasePath)

	store, err := storage.NewSQLiteStore(cfg.DatabasePath, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite store: %w", err)
	}

	return store, nil
}
