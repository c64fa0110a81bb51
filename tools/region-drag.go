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
	"github.com/Epistemic-Technology/pdf-regions/models"
)

type RegionDragQuery struct {
	DocumentID string  `json:"document_id,omitempty"`
	Event      string  `json:"event" jsonschema:"one of press, move, release, cancel"`
	X          float64 `json:"x,omitempty" jsonschema:"display x of the pointer"`
	Y          float64 `json:"y,omitempty" jsonschema:"display y of the pointer"`
}

type RegionDragResponse struct {
	DocumentID string               `json:"document_id"`
	State      string               `json:"state"`
	Preview    *models.DisplayRect  `json:"preview,omitempty"`
	Region     *models.DocumentRect `json:"region,omitempty"`
}

func RegionDragTool() *mcp.Tool {
	inputschema, err := jsonschema.For[RegionDragQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "region-drag",
		Description: "Feed a pointer event to the region drag of the current page. press starts a drag, move updates its preview rectangle and release stores the region in document units. A zero-area release (a click) is rejected and stores nothing.",
		InputSchema: inputschema,
	}
}

func RegionDragToolHandler(ctx context.Context, req *mcp.CallToolRequest, query RegionDragQuery, sessions *registry.Registry, store storage.Store, log logger.Logger) (*mcp.CallToolResult, *RegionDragResponse, error) {
	log.Debug("region-drag tool called: %s (%g, %g)", query.Event, query.X, query.Y)

	var response *RegionDragResponse
	err := sessions.With(query.DocumentID, func(doc *operations.Document) error {
		sess := doc.Session
		response = &RegionDragResponse{DocumentID: doc.ID}

		switch query.Event {
		case "press":
			sess.Press(query.X, query.Y)
		case "move":
			sess.Move(query.X, query.Y)
		case "cancel":
			sess.Cancel()
		case "release":
			err := operations.UpdateRegions(ctx, doc, store, func(sess *session.Session) error {
				rect, ok, err := sess.Release(query.X, query.Y)
				if ok && err == nil {
					response.Region = &rect
				}
				return err
			})
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown event %q", query.Event)
		}

		response.State = sess.DragState().String()
		if preview, ok := sess.Preview(); ok {
			response.Preview = &preview
		}
		return nil
	})
	if err != nil {
		log.Error("region-drag tool failed: %v", err)
		return nil, nil, err
	}
	return nil, response, nil
}
