package operations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Epistemic-Technology/pdf-regions/internal/logger"
	"github.com/Epistemic-Technology/zotero/zotero"
)

const pdfContentType = "application/pdf"

// ZoteroSearchParams contains parameters for finding annotatable PDFs in a Zotero library.
type ZoteroSearchParams struct {
	Query      string   // Quick search text (title, creator, year)
	Tags       []string // Filter by tags
	Collection string   // Filter by collection key (optional)
	Limit      int      // Max parent items to inspect (default 25)
}

// ZoteroPDF is a PDF attachment that can be opened with document-open.
type ZoteroPDF struct {
	AttachmentKey string
	ParentKey     string
	Title         string
	Creators      []string
	Date          string
	Filename      string
}

// SearchZotero searches a Zotero library and returns the PDF attachments of
// the matching items. Items without a PDF are left out.
func SearchZotero(ctx context.Context, apiKey, libraryID string, params ZoteroSearchParams, log logger.Logger) ([]ZoteroPDF, error) {
	if apiKey == "" {
		return nil, errors.New("Zotero API key is required")
	}
	if libraryID == "" {
		return nil, errors.New("Zotero library ID is required")
	}

	client := zotero.NewClient(libraryID, zotero.LibraryTypeUser, zotero.WithAPIKey(apiKey))

	queryParams := &zotero.QueryParams{
		Q:        params.Query,
		QMode:    "titleCreatorYear",
		Tag:      params.Tags,
		ItemType: []string{"-attachment"},
		Limit:    params.Limit,
		Sort:     "dateModified",
	}
	if queryParams.Limit == 0 {
		queryParams.Limit = 25
	}

	var items []zotero.Item
	var err error
	if params.Collection != "" {
		items, err = client.CollectionItems(ctx, params.Collection, queryParams)
	} else {
		items, err = client.Items(ctx, queryParams)
	}
	if err != nil {
		log.Error("Failed to search Zotero library: %v", err)
		return nil, fmt.Errorf("failed to search Zotero library: %w", err)
	}

	log.Info("Found %d items in Zotero library", len(items))

	var results []ZoteroPDF
	for _, item := range items {
		children, err := client.Children(ctx, item.Key, nil)
		if err != nil {
			log.Error("Failed to retrieve children for item %s: %v", item.Key, err)
			continue
		}
		creators := creatorNames(&item)
		date, _ := item.Data.Extra["date"].(string)
		for _, child := range children {
			if !isPDFAttachment(child.Data.ItemType, child.Data.ContentType, child.Data.Filename) {
				continue
			}
			results = append(results, ZoteroPDF{
				AttachmentKey: child.Key,
				ParentKey:     item.Key,
				Title:         item.Data.Title,
				Creators:      creators,
				Date:          date,
				Filename:      child.Data.Filename,
			})
		}
	}

	log.Info("Returning %d PDF attachments", len(results))
	return results, nil
}

func creatorNames(item *zotero.Item) []string {
	var names []string
	for _, creator := range item.Data.Creators {
		if creator.Name != "" {
			names = append(names, creator.Name)
			continue
		}
		name := strings.TrimSpace(creator.FirstName + " " + creator.LastName)
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func isPDFAttachment(itemType, contentType, filename string) bool {
	if itemType != "attachment" {
		return false
	}
	if contentType != "" {
		return contentType == pdfContentType
	}
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}
