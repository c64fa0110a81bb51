package tools

import (
	"context"
	"image"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/pdf-regions/internal/logger"
	"github.com/Epistemic-Technology/pdf-regions/internal/operations"
	"github.com/Epistemic-Technology/pdf-regions/internal/registry"
	"github.com/Epistemic-Technology/pdf-regions/internal/render"
	"github.com/Epistemic-Technology/pdf-regions/internal/storage"
	"github.com/Epistemic-Technology/pdf-regions/models"
)

type PageViewQuery struct {
	DocumentID  string  `json:"document_id,omitempty"`
	Page        *int    `json:"page,omitempty" jsonschema:"0-based page to show, defaults to the current page"`
	Width       float64 `json:"width,omitempty" jsonschema:"display width in pixels, defaults to the session width"`
	HideRegions bool    `json:"hide_regions,omitempty" jsonschema:"do not outline the page's regions"`
}

type PageViewResponse struct {
	DocumentID string               `json:"document_id"`
	Page       int                  `json:"page"`
	PageLabel  string               `json:"page_label"`
	Scale      float64              `json:"scale"`
	Width      int                  `json:"width"`
	Height     int                  `json:"height"`
	Regions    []models.DisplayRect `json:"regions"`
	Preview    *models.DisplayRect  `json:"preview,omitempty"`
}

func PageViewTool() *mcp.Tool {
	inputschema, err := jsonschema.For[PageViewQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "page-view",
		Description: "Render a page of an open document as a PNG image at the session's display width, with its regions outlined. Region coordinates in the response are display pixels of this image, the same units region-add and region-drag expect.",
		InputSchema: inputschema,
	}
}

func PageViewToolHandler(ctx context.Context, req *mcp.CallToolRequest, query PageViewQuery, sessions *registry.Registry, store storage.Store, log logger.Logger) (*mcp.CallToolResult, *PageViewResponse, error) {
	log.Info("page-view tool called")

	var pngData []byte
	var response *PageViewResponse
	err := sessions.With(query.DocumentID, func(doc *operations.Document) error {
		sess := doc.Session
		if query.Page != nil && *query.Page != sess.CurrentPage() {
			if err := sess.GoTo(*query.Page); err != nil {
				return err
			}
			if err := operations.PersistSession(ctx, doc, store); err != nil {
				return err
			}
		}
		if query.Width > 0 && query.Width != sess.TargetWidth() {
			if err := sess.Resize(query.Width); err != nil {
				return err
			}
		}

		view, err := render.View(ctx, doc.PDF, sess.CurrentPage(), sess.TargetWidth())
		if err != nil {
			return err
		}

		displayRegions, err := sess.DisplayRegions()
		if err != nil {
			return err
		}
		var img image.Image = view.Image
		preview, dragging := sess.Preview()
		if !query.HideRegions {
			img = render.Outline(img, displayRegions, render.RegionColor, 2)
			if dragging {
				img = render.Outline(img, []models.DisplayRect{preview}, render.PreviewColor, 1)
			}
		}

		pngData, err = render.EncodePNG(img)
		if err != nil {
			return err
		}

		bounds := img.Bounds()
		response = &PageViewResponse{
			DocumentID: doc.ID,
			Page:       sess.CurrentPage(),
			PageLabel:  sess.Label(),
			Scale:      view.Scale,
			Width:      bounds.Dx(),
			Height:     bounds.Dy(),
			Regions:    displayRegions,
		}
		if dragging {
			response.Preview = &preview
		}
		return nil
	})
	if err != nil {
		log.Error("page-view tool failed: %v", err)
		return nil, nil, err
	}

	result := &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.ImageContent{Data: pngData, MIMEType: "image/png"},
		},
	}
	return result, response, nil
}
