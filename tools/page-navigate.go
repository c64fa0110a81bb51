package tools

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/pdf-regions/internal/logger"
	"github.com/Epistemic-Technology/pdf-regions/internal/operations"
	"github.com/Epistemic-Technology/pdf-regions/internal/registry"
	"github.com/Epistemic-Technology/pdf-regions/internal/storage"
)

type PageNavigateQuery struct {
	DocumentID string `json:"document_id,omitempty"`
	Action     string `json:"action" jsonschema:"one of next, previous, first, last, goto"`
	Page       int    `json:"page,omitempty" jsonschema:"0-based target page for goto"`
}

type PageNavigateResponse struct {
	DocumentID  string  `json:"document_id"`
	CurrentPage int     `json:"current_page"`
	PageCount   int     `json:"page_count"`
	PageLabel   string  `json:"page_label"`
	Moved       bool    `json:"moved"`
	Scale       float64 `json:"scale"`
	RegionCount int     `json:"region_count"`
}

func PageNavigateTool() *mcp.Tool {
	inputschema, err := jsonschema.For[PageNavigateQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "page-navigate",
		Description: "Move the annotation session to another page. next and previous do nothing at the last and first page. Any drag in progress is cancelled.",
		InputSchema: inputschema,
	}
}

func PageNavigateToolHandler(ctx context.Context, req *mcp.CallToolRequest, query PageNavigateQuery, sessions *registry.Registry, store storage.Store, log logger.Logger) (*mcp.CallToolResult, *PageNavigateResponse, error) {
	log.Info("page-navigate tool called: %s", query.Action)

	var response *PageNavigateResponse
	err := sessions.With(query.DocumentID, func(doc *operations.Document) error {
		sess := doc.Session
		before := sess.CurrentPage()

		var err error
		switch query.Action {
		case "next":
			_, err = sess.Next()
		case "previous":
			_, err = sess.Previous()
		case "first":
			err = sess.GoTo(0)
		case "last":
			err = sess.GoTo(sess.PageCount() - 1)
		case "goto":
			err = sess.GoTo(query.Page)
		default:
			return fmt.Errorf("unknown action %q", query.Action)
		}
		if err != nil {
			return err
		}
		if err := operations.PersistSession(ctx, doc, store); err != nil {
			return err
		}

		response = &PageNavigateResponse{
			DocumentID:  doc.ID,
			CurrentPage: sess.CurrentPage(),
			PageCount:   sess.PageCount(),
			PageLabel:   sess.Label(),
			Moved:       sess.CurrentPage() != before,
			Scale:       sess.Scale(),
			RegionCount: len(sess.Regions().RegionsFor(sess.CurrentPage())),
		}
		return nil
	})
	if err != nil {
		log.Error("page-navigate tool failed: %v", err)
		return nil, nil, err
	}
	return nil, response, nil
}
