package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/pdf-regions/internal/annotations"
	"github.com/Epistemic-Technology/pdf-regions/internal/operations"
	"github.com/Epistemic-Technology/pdf-regions/internal/registry"
	"github.com/Epistemic-Technology/pdf-regions/internal/regions"
	"github.com/Epistemic-Technology/pdf-regions/internal/storage"
	"github.com/Epistemic-Technology/pdf-regions/models"
)

const scheme = "regions://"

// RegionResourceHandler serves the regions of annotated documents. Open
// sessions are read live; other documents are read from storage.
type RegionResourceHandler struct {
	sessions *registry.Registry
	store    storage.Store
}

// NewRegionResourceHandler creates a new region resource handler
func NewRegionResourceHandler(sessions *registry.Registry, store storage.Store) *RegionResourceHandler {
	return &RegionResourceHandler{sessions: sessions, store: store}
}

// snapshot is a consistent copy of a document's regions.
type snapshot struct {
	info    models.DocumentInfo
	regions *regions.Store
}

// ListResources returns a list of available resources
func (h *RegionResourceHandler) ListResources(ctx context.Context) ([]*mcp.Resource, error) {
	docs, err := h.store.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	var resources []*mcp.Resource
	for _, doc := range docs {
		resources = append(resources,
			&mcp.Resource{
				URI:         scheme + doc.DocumentID,
				Name:        fmt.Sprintf("%s (Regions)", doc.Title),
				Description: fmt.Sprintf("%d regions on %d pages", doc.RegionCount, doc.PageCount),
				MIMEType:    "application/json",
			},
			&mcp.Resource{
				URI:         scheme + doc.DocumentID + "/annotations",
				Name:        fmt.Sprintf("%s (Annotations)", doc.Title),
				Description: "Markdown annotation file of the document's regions",
				MIMEType:    "text/markdown",
			},
		)
	}
	return resources, nil
}

// ReadResource reads a specific resource by URI
func (h *RegionResourceHandler) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	// Parse URI: regions://doc_id/resource_type/optional_index
	if !strings.HasPrefix(uri, scheme) {
		return nil, fmt.Errorf("invalid URI scheme, expected %s", scheme)
	}

	parts := strings.Split(strings.TrimPrefix(uri, scheme), "/")
	docID := parts[0]
	if docID == "" {
		return nil, fmt.Errorf("invalid URI, missing document ID")
	}

	snap, err := h.load(ctx, docID)
	if err != nil {
		return nil, err
	}

	mimeType := "application/json"
	var content string
	switch {
	case len(parts) == 1:
		content, err = documentSummary(snap)
	case len(parts) == 2 && parts[1] == "annotations":
		mimeType = "text/markdown"
		content = annotations.Serialize(snap.regions, snap.info.Title)
	case len(parts) == 3 && parts[1] == "pages":
		page, convErr := strconv.Atoi(parts[2])
		if convErr != nil || page < 0 {
			return nil, fmt.Errorf("invalid page index: %s", parts[2])
		}
		content, err = pageRegions(snap, page)
	default:
		return nil, fmt.Errorf("unknown resource: %s", uri)
	}
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: mimeType,
				Text:     content,
			},
		},
	}, nil
}

// load copies the regions of an open session, or reads them from storage.
func (h *RegionResourceHandler) load(ctx context.Context, docID string) (*snapshot, error) {
	var snap *snapshot
	err := h.sessions.With(docID, func(doc *operations.Document) error {
		snap = &snapshot{info: doc.Info(), regions: doc.Session.Regions().Clone()}
		return nil
	})
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, registry.ErrUnknownDocument) {
		return nil, err
	}

	info, err := h.store.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	rs, err := h.store.LoadRegions(ctx, docID)
	if err != nil {
		return nil, err
	}
	return &snapshot{info: *info, regions: rs}, nil
}

func documentSummary(snap *snapshot) (string, error) {
	pages := make(map[string][]models.DocumentRect)
	for _, page := range snap.regions.PagesWithRegions() {
		pages[strconv.Itoa(page)] = snap.regions.RegionsFor(page)
	}
	summary := map[string]any{
		"document_id":  snap.info.DocumentID,
		"title":        snap.info.Title,
		"page_count":   snap.info.PageCount,
		"region_count": snap.regions.Len(),
		"source":       snap.info.SourceInfo,
		"pages":        pages,
	}
	summary["available_resources"] = storage.CalculateResourcePaths(snap.info.DocumentID, snap.regions)
	return toJSON(summary)
}

func pageRegions(snap *snapshot, page int) (string, error) {
	if snap.info.PageCount > 0 && page >= snap.info.PageCount {
		return "", fmt.Errorf("%w: page %d of %d", models.ErrPageIndexOutOfRange, page+1, snap.info.PageCount)
	}
	rects := snap.regions.RegionsFor(page)
	if rects == nil {
		rects = []models.DocumentRect{}
	}
	return toJSON(map[string]any{
		"document_id": snap.info.DocumentID,
		"page":        page,
		"regions":     rects,
	})
}

func toJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal resource: %w", err)
	}
	return string(data), nil
}
