package tools

import (
	"context"
	"errors"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/pdf-regions/internal/annotations"
	"github.com/Epistemic-Technology/pdf-regions/internal/logger"
	"github.com/Epistemic-Technology/pdf-regions/internal/operations"
	"github.com/Epistemic-Technology/pdf-regions/internal/registry"
	"github.com/Epistemic-Technology/pdf-regions/internal/storage"
)

type AnnotationsSaveQuery struct {
	DocumentID string `json:"document_id,omitempty"`
	Path       string `json:"path" jsonschema:"markdown file to write"`
}

type AnnotationsSaveResponse struct {
	DocumentID  string `json:"document_id"`
	Path        string `json:"path"`
	RegionCount int    `json:"region_count"`
	Markdown    string `json:"markdown"`
}

func AnnotationsSaveTool() *mcp.Tool {
	inputschema, err := jsonschema.For[AnnotationsSaveQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "annotations-save",
		Description: "Write the regions of an open document to a markdown annotation file: one \"## Page N\" section per page with regions, one \"### Box k\" entry and \"- Coordinates: [x1, y1, x2, y2]\" line in PDF points per region.",
		InputSchema: inputschema,
	}
}

func AnnotationsSaveToolHandler(ctx context.Context, req *mcp.CallToolRequest, query AnnotationsSaveQuery, sessions *registry.Registry, store storage.Store, log logger.Logger) (*mcp.CallToolResult, *AnnotationsSaveResponse, error) {
	log.Info("annotations-save tool called")
	if query.Path == "" {
		return nil, nil, errors.New("path is required")
	}

	var response *AnnotationsSaveResponse
	err := sessions.With(query.DocumentID, func(doc *operations.Document) error {
		if err := operations.SaveAnnotations(ctx, doc, query.Path, store, log); err != nil {
			return err
		}
		rs := doc.Session.Regions()
		response = &AnnotationsSaveResponse{
			DocumentID:  doc.ID,
			Path:        query.Path,
			RegionCount: rs.Len(),
			Markdown:    annotations.Serialize(rs, doc.Title),
		}
		return nil
	})
	if err != nil {
		log.Error("annotations-save tool failed: %v", err)
		return nil, nil, err
	}
	return nil, response, nil
}
