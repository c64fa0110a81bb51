package tools

import (
	"context"
	"errors"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/pdf-regions/internal/logger"
	"github.com/Epistemic-Technology/pdf-regions/internal/operations"
	"github.com/Epistemic-Technology/pdf-regions/internal/registry"
	"github.com/Epistemic-Technology/pdf-regions/internal/storage"
)

type AnnotationsLoadQuery struct {
	DocumentID string `json:"document_id,omitempty"`
	Path       string `json:"path" jsonschema:"markdown annotation file to read"`
}

type AnnotationsLoadResponse struct {
	DocumentID  string `json:"document_id"`
	Path        string `json:"path"`
	Title       string `json:"title"`
	RegionCount int    `json:"region_count"`
	Pages       []int  `json:"pages"`
}

func AnnotationsLoadTool() *mcp.Tool {
	inputschema, err := jsonschema.For[AnnotationsLoadQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "annotations-load",
		Description: "Replace the regions of an open document with those read from a markdown annotation file. A malformed file is rejected as a whole and leaves the current regions untouched.",
		InputSchema: inputschema,
	}
}

func AnnotationsLoadToolHandler(ctx context.Context, req *mcp.CallToolRequest, query AnnotationsLoadQuery, sessions *registry.Registry, store storage.Store, log logger.Logger) (*mcp.CallToolResult, *AnnotationsLoadResponse, error) {
	log.Info("annotations-load tool called")
	if query.Path == "" {
		return nil, nil, errors.New("path is required")
	}

	var response *AnnotationsLoadResponse
	err := sessions.With(query.DocumentID, func(doc *operations.Document) error {
		if err := operations.LoadAnnotations(ctx, doc, query.Path, store, log); err != nil {
			return err
		}
		rs := doc.Session.Regions()
		response = &AnnotationsLoadResponse{
			DocumentID:  doc.ID,
			Path:        query.Path,
			Title:       doc.Title,
			RegionCount: rs.Len(),
			Pages:       append([]int{}, rs.PagesWithRegions()...),
		}
		return nil
	})
	if err != nil {
		log.Error("annotations-load tool failed: %v", err)
		return nil, nil, err
	}
	return nil, response, nil
}
