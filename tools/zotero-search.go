package tools

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/pdf-regions/internal/config"
	"github.com/Epistemic-Technology/pdf-regions/internal/logger"
	"github.com/Epistemic-Technology/pdf-regions/internal/operations"
	"github.com/Epistemic-Technology/pdf-regions/internal/storage"
)

type ZoteroSearchQuery struct {
	Query      string   `json:"query,omitempty"`      // Quick search text (searches title, creator, year)
	Tags       []string `json:"tags,omitempty"`       // Filter by tags
	Collection string   `json:"collection,omitempty"` // Filter by collection key (optional)
	Limit      int      `json:"limit,omitempty"`      // Max items searched (default 25)
}

type ZoteroSearchResponse struct {
	Items []ZoteroPDFResult `json:"items"`
	Count int               `json:"count"`
}

type ZoteroPDFResult struct {
	AttachmentKey string   `json:"attachment_key"` // Use this as zotero_id in document-open
	ParentKey     string   `json:"parent_key"`
	Title         string   `json:"title"`
	Creators      []string `json:"creators,omitempty"`
	Date          string   `json:"date,omitempty"`
	Filename      string   `json:"filename"`
	// DocumentID is set when regions were already saved for the attachment
	DocumentID  string `json:"document_id,omitempty"`
	RegionCount int    `json:"region_count,omitempty"`
}

func ZoteroSearchTool() *mcp.Tool {
	inputschema, err := jsonschema.For[ZoteroSearchQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "zotero-search",
		Description: "Search a Zotero library for PDF attachments that can be annotated. Use the attachment_key as zotero_id with document-open. Attachments with saved regions report their document ID and region count.",
		InputSchema: inputschema,
	}
}

func ZoteroSearchToolHandler(ctx context.Context, req *mcp.CallToolRequest, query ZoteroSearchQuery, cfg *config.Config, store storage.Store, log logger.Logger) (*mcp.CallToolResult, *ZoteroSearchResponse, error) {
	log.Info("zotero-search tool called")

	if cfg.ZoteroAPIKey == "" {
		return nil, nil, fmt.Errorf("ZOTERO_API_KEY environment variable not set")
	}
	if cfg.ZoteroLibraryID == "" {
		return nil, nil, fmt.Errorf("ZOTERO_LIBRARY_ID environment variable not set")
	}

	searchParams := operations.ZoteroSearchParams{
		Query:      query.Query,
		Tags:       query.Tags,
		Collection: query.Collection,
		Limit:      query.Limit,
	}

	pdfs, err := operations.SearchZotero(ctx, cfg.ZoteroAPIKey, cfg.ZoteroLibraryID, searchParams, log)
	if err != nil {
		return nil, nil, err
	}

	results := make([]ZoteroPDFResult, len(pdfs))
	for i, pdf := range pdfs {
		results[i] = ZoteroPDFResult{
			AttachmentKey: pdf.AttachmentKey,
			ParentKey:     pdf.ParentKey,
			Title:         pdf.Title,
			Creators:      pdf.Creators,
			Date:          pdf.Date,
			Filename:      pdf.Filename,
		}
		if store == nil {
			continue
		}
		// Zotero documents are keyed by attachment
		docID := "zotero_" + pdf.AttachmentKey
		info, err := store.GetDocument(ctx, docID)
		if err != nil {
			continue
		}
		results[i].DocumentID = info.DocumentID
		results[i].RegionCount = info.RegionCount
	}

	return nil, &ZoteroSearchResponse{Items: results, Count: len(results)}, nil
}
