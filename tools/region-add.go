package tools

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/pdf-regions/internal/geometry"
	"github.com/Epistemic-Technology/pdf-regions/internal/logger"
	"github.com/Epistemic-Technology/pdf-regions/internal/operations"
	"github.com/Epistemic-Technology/pdf-regions/internal/registry"
	"github.com/Epistemic-Technology/pdf-regions/internal/session"
	"github.com/Epistemic-Technology/pdf-regions/internal/storage"
	"github.com/Epistemic-Technology/pdf-regions/models"
)

type RegionAddQuery struct {
	DocumentID string  `json:"document_id,omitempty"`
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Units      string  `json:"units,omitempty" jsonschema:"display (default) for pixels of page-view, or document for PDF points"`
}

type RegionAddResponse struct {
	DocumentID    string              `json:"document_id"`
	Page          int                 `json:"page"`
	Region        models.DocumentRect `json:"region"`
	DisplayRegion models.DisplayRect  `json:"display_region"`
	PageRegions   int                 `json:"page_regions"`
}

func RegionAddTool() *mcp.Tool {
	inputschema, err := jsonschema.For[RegionAddQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "region-add",
		Description: "Add a rectangular region to the current page. Corners may be given in any order. Display coordinates are divided by the page's scale factor and stored in PDF points; zero-area rectangles are rejected.",
		InputSchema: inputschema,
	}
}

func RegionAddToolHandler(ctx context.Context, req *mcp.CallToolRequest, query RegionAddQuery, sessions *registry.Registry, store storage.Store, log logger.Logger) (*mcp.CallToolResult, *RegionAddResponse, error) {
	log.Info("region-add tool called")

	var response *RegionAddResponse
	err := sessions.With(query.DocumentID, func(doc *operations.Document) error {
		sess := doc.Session
		page := sess.CurrentPage()

		var rect models.DocumentRect
		err := operations.UpdateRegions(ctx, doc, store, func(sess *session.Session) error {
			var err error
			switch query.Units {
			case "", "display":
				rect, err = sess.AddDisplayRegion(models.NewDisplayRect(query.X1, query.Y1, query.X2, query.Y2))
			case "document":
				rect = models.NewDocumentRect(query.X1, query.Y1, query.X2, query.Y2)
				err = sess.Regions().Add(page, rect)
			default:
				err = fmt.Errorf("unknown units %q", query.Units)
			}
			return err
		})
		if err != nil {
			return err
		}

		display, err := geometry.ToDisplay(rect, sess.Scale())
		if err != nil {
			return err
		}
		response = &RegionAddResponse{
			DocumentID:    doc.ID,
			Page:          page,
			Region:        rect,
			DisplayRegion: display,
			PageRegions:   len(sess.Regions().RegionsFor(page)),
		}
		return nil
	})
	if err != nil {
		log.Error("region-add tool failed: %v", err)
		return nil, nil, err
	}
	return nil, response, nil
}
