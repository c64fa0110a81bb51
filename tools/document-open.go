package tools

import (
	"context"
	"errors"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/pdf-regions/internal/config"
	"github.com/Epistemic-Technology/pdf-regions/internal/logger"
	"github.com/Epistemic-Technology/pdf-regions/internal/operations"
	"github.com/Epistemic-Technology/pdf-regions/internal/pdf"
	"github.com/Epistemic-Technology/pdf-regions/internal/registry"
	"github.com/Epistemic-Technology/pdf-regions/internal/storage"
	"github.com/Epistemic-Technology/pdf-regions/models"
)

type DocumentOpenQuery struct {
	Path         string  `json:"path,omitempty" jsonschema:"local path of the PDF"`
	URL          string  `json:"url,omitempty" jsonschema:"URL to download the PDF from"`
	ZoteroID     string  `json:"zotero_id,omitempty" jsonschema:"key of a Zotero PDF attachment"`
	RawData      []byte  `json:"raw_data,omitempty" jsonschema:"PDF bytes, used instead of a source"`
	DisplayWidth float64 `json:"display_width,omitempty" jsonschema:"width in pixels pages are shown at"`
}

type DocumentOpenResponse struct {
	DocumentID    string   `json:"document_id"`
	Title         string   `json:"title"`
	PageCount     int      `json:"page_count"`
	CurrentPage   int      `json:"current_page"`
	PageLabel     string   `json:"page_label"`
	Scale         float64  `json:"scale"`
	RegionCount   int      `json:"region_count"`
	ResourcePaths []string `json:"resource_paths"`
}

func DocumentOpenTool() *mcp.Tool {
	inputschema, err := jsonschema.For[DocumentOpenQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "document-open",
		Description: "Open a PDF from a local path, a URL or a Zotero attachment and start an annotation session for it. Regions saved for the same document in an earlier session are restored. Returns the document ID used by the other region tools.",
		InputSchema: inputschema,
	}
}

func DocumentOpenToolHandler(ctx context.Context, req *mcp.CallToolRequest, query DocumentOpenQuery, sessions *registry.Registry, cfg *config.Config, store storage.Store, renderer pdf.Rasterizer, log logger.Logger) (*mcp.CallToolResult, *DocumentOpenResponse, error) {
	log.Info("document-open tool called")

	source := models.SourceInfo{Path: query.Path, URL: query.URL, ZoteroID: query.ZoteroID}
	if source == (models.SourceInfo{}) && query.RawData == nil {
		return nil, nil, errors.New("one of path, url, zotero_id or raw_data is required")
	}

	doc, err := operations.OpenDocument(ctx, source, query.RawData, cfg, store, renderer, log)
	if err != nil {
		log.Error("document-open tool failed: %v", err)
		return nil, nil, err
	}
	if query.DisplayWidth > 0 {
		if err := doc.Session.Resize(query.DisplayWidth); err != nil {
			return nil, nil, err
		}
	}
	sessions.Put(doc)

	return nil, &DocumentOpenResponse{
		DocumentID:    doc.ID,
		Title:         doc.Title,
		PageCount:     doc.Session.PageCount(),
		CurrentPage:   doc.Session.CurrentPage(),
		PageLabel:     doc.Session.Label(),
		Scale:         doc.Session.Scale(),
		RegionCount:   doc.Session.Regions().Len(),
		ResourcePaths: storage.CalculateResourcePaths(doc.ID, doc.Session.Regions()),
	}, nil
}
