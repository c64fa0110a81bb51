package tools

import (
	"context"
	"slices"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/pdf-regions/internal/logger"
	"github.com/Epistemic-Technology/pdf-regions/internal/registry"
	"github.com/Epistemic-Technology/pdf-regions/internal/storage"
	"github.com/Epistemic-Technology/pdf-regions/models"
)

type SessionsListQuery struct{}

type SessionInfo struct {
	DocumentID  string            `json:"document_id"`
	Title       string            `json:"title,omitempty"`
	PageCount   int               `json:"page_count"`
	RegionCount int               `json:"region_count"`
	Source      models.SourceInfo `json:"source"`
	Open        bool              `json:"open"`
}

type SessionsListResponse struct {
	Sessions []SessionInfo `json:"sessions"`
	Count    int           `json:"count"`
}

func SessionsListTool() *mcp.Tool {
	inputschema, err := jsonschema.For[SessionsListQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "sessions-list",
		Description: "List the documents with saved annotation sessions, most recently updated first, and whether each is open in this server.",
		InputSchema: inputschema,
	}
}

func SessionsListToolHandler(ctx context.Context, req *mcp.CallToolRequest, query SessionsListQuery, sessions *registry.Registry, store storage.Store, log logger.Logger) (*mcp.CallToolResult, *SessionsListResponse, error) {
	log.Info("sessions-list tool called")

	docs, err := store.ListDocuments(ctx)
	if err != nil {
		log.Error("sessions-list tool failed: %v", err)
		return nil, nil, err
	}

	open := sessions.IDs()
	results := make([]SessionInfo, len(docs))
	for i, doc := range docs {
		_, isOpen := slices.BinarySearch(open, doc.DocumentID)
		results[i] = SessionInfo{
			DocumentID:  doc.DocumentID,
			Title:       doc.Title,
			PageCount:   doc.PageCount,
			RegionCount: doc.RegionCount,
			Source:      doc.SourceInfo,
			Open:        isOpen,
		}
	}
	return nil, &SessionsListResponse{Sessions: results, Count: len(results)}, nil
}
