package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/pdf-regions/internal/logger"
	"github.com/Epistemic-Technology/pdf-regions/internal/operations"
	"github.com/Epistemic-Technology/pdf-regions/internal/registry"
	"github.com/Epistemic-Technology/pdf-regions/models"
)

type RegionsListQuery struct {
	DocumentID string `json:"document_id,omitempty"`
	Page       *int   `json:"page,omitempty" jsonschema:"0-based page, lists every page when omitted"`
}

type PageRegions struct {
	Page    int                   `json:"page"`
	Regions []models.DocumentRect `json:"regions"`
}

type RegionsListResponse struct {
	DocumentID  string        `json:"document_id"`
	CurrentPage int           `json:"current_page"`
	RegionCount int           `json:"region_count"`
	Pages       []PageRegions `json:"pages"`
}

func RegionsListTool() *mcp.Tool {
	inputschema, err := jsonschema.For[RegionsListQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "regions-list",
		Description: "List the stored regions of an open document in PDF points, grouped by 0-based page in ascending order.",
		InputSchema: inputschema,
	}
}

func RegionsListToolHandler(ctx context.Context, req *mcp.CallToolRequest, query RegionsListQuery, sessions *registry.Registry, log logger.Logger) (*mcp.CallToolResult, *RegionsListResponse, error) {
	log.Info("regions-list tool called")

	var response *RegionsListResponse
	err := sessions.With(query.DocumentID, func(doc *operations.Document) error {
		rs := doc.Session.Regions()
		response = &RegionsListResponse{
			DocumentID:  doc.ID,
			CurrentPage: doc.Session.CurrentPage(),
			RegionCount: rs.Len(),
			Pages:       []PageRegions{},
		}
		pages := rs.PagesWithRegions()
		if query.Page != nil {
			pages = []int{*query.Page}
		}
		for _, page := range pages {
			rects := append([]models.DocumentRect{}, rs.RegionsFor(page)...)
			response.Pages = append(response.Pages, PageRegions{Page: page, Regions: rects})
		}
		return nil
	})
	if err != nil {
		log.Error("regions-list tool failed: %v", err)
		return nil, nil, err
	}
	return nil, response, nil
}
