package storage

import (
	"fmt"

	"github.com/Epistemic-Technology/pdf-regions/internal/regions"
)

// CalculateResourcePaths generates all available resource URIs for an annotated document.
// Page paths are listed for every page that holds regions.
func CalculateResourcePaths(docID string, store *regions.Store) []string {
	resourcePaths := []string{
		fmt.Sprintf("regions://%s", docID),
		fmt.Sprintf("regions://%s/annotations", docID),
	}

	for _, page := range store.PagesWithRegions() {
		resourcePaths = append(resourcePaths, fmt.Sprintf("regions://%s/pages/%d", docID, page))
	}

	// Add template for accessing any page
	resourcePaths = append(resourcePaths, fmt.Sprintf("regions://%s/pages/{pageIndex}", docID))

	return resourcePaths
}
