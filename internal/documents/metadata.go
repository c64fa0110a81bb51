package documents

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Epistemic-Technology/pdf-regions/models"
	"github.com/Epistemic-Technology/zotero/zotero"
)

// FetchZoteroTitle returns the title of a Zotero item. For an attachment the
// parent item's title is used; an orphaned attachment falls back to its own.
func FetchZoteroTitle(ctx context.Context, zoteroID string, creds ZoteroCredentials) (string, error) {
	if zoteroID == "" || creds.APIKey == "" || creds.LibraryID == "" {
		return "", fmt.Errorf("zoteroID, apiKey, and libraryID are required")
	}

	client := zotero.NewClient(creds.LibraryID, zotero.LibraryTypeUser, zotero.WithAPIKey(creds.APIKey))

	item, err := client.Item(ctx, zoteroID, nil)
	if err != nil {
		return "", fmt.Errorf("failed to fetch Zotero item %s: %w", zoteroID, err)
	}

	if item.Data.ItemType == "attachment" && item.Data.ParentItem != "" {
		parentItem, err := client.Item(ctx, item.Data.ParentItem, nil)
		if err != nil {
			return "", fmt.Errorf("failed to fetch parent item %s: %w", item.Data.ParentItem, err)
		}
		item = parentItem
	}

	return item.Data.Title, nil
}

// DefaultTitle derives an annotation title from the source when no better one
// is known.
func DefaultTitle(sourceInfo models.SourceInfo) string {
	switch {
	case sourceInfo.Path != "":
		return filepath.Base(sourceInfo.Path)
	case sourceInfo.URL != "":
		url := strings.TrimRight(sourceInfo.URL, "/")
		if i := strings.LastIndex(url, "/"); i >= 0 && i < len(url)-1 {
			return url[i+1:]
		}
		return url
	case sourceInfo.ZoteroID != "":
		return "zotero " + sourceInfo.ZoteroID
	default:
		return ""
	}
}
