package tools

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/pdf-regions/internal/logger"
	"github.com/Epistemic-Technology/pdf-regions/internal/operations"
	"github.com/Epistemic-Technology/pdf-regions/internal/registry"
	"github.com/Epistemic-Technology/pdf-regions/internal/session"
	"github.com/Epistemic-Technology/pdf-regions/internal/storage"
)

type RegionClearQuery struct {
	DocumentID string `json:"document_id,omitempty"`
	Scope      string `json:"scope,omitempty" jsonschema:"page (default) clears the current page, all clears every page"`
}

type RegionClearResponse struct {
	DocumentID  string `json:"document_id"`
	Cleared     int    `json:"cleared"`
	RegionCount int    `json:"region_count"`
}

func RegionClearTool() *mcp.Tool {
	inputschema, err := jsonschema.For[RegionClearQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "region-clear",
		Description: "Remove the regions of the current page, or of the whole document with scope all.",
		InputSchema: inputschema,
	}
}

func RegionClearToolHandler(ctx context.Context, req *mcp.CallToolRequest, query RegionClearQuery, sessions *registry.Registry, store storage.Store, log logger.Logger) (*mcp.CallToolResult, *RegionClearResponse, error) {
	log.Info("region-clear tool called")

	var response *RegionClearResponse
	err := sessions.With(query.DocumentID, func(doc *operations.Document) error {
		sess := doc.Session
		before := sess.Regions().Len()
		err := operations.UpdateRegions(ctx, doc, store, func(sess *session.Session) error {
			switch query.Scope {
			case "", "page":
				sess.ClearPage()
				return nil
			case "all":
				return sess.ClearAll()
			default:
				return fmt.Errorf("unknown scope %q", query.Scope)
			}
		})
		if err != nil {
			return err
		}
		after := sess.Regions().Len()
		response = &RegionClearResponse{DocumentID: doc.ID, Cleared: before - after, RegionCount: after}
		return nil
	})
	if err != nil {
		log.Error("region-clear tool failed: %v", err)
		return nil, nil, err
	}
	return nil, response, nil
}
