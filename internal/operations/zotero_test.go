package operations

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/Epistemic-Technology/pdf-regions/internal/logger"
)

// getZoteroCredentials retrieves Zotero credentials from environment.
// Skips the test if credentials are not available.
func getZoteroCredentials(t *testing.T) (apiKey, libraryID string) {
	apiKey = os.Getenv("ZOTERO_API_KEY")
	libraryID = os.Getenv("ZOTERO_LIBRARY_ID")

	if apiKey == "" || libraryID == "" {
		t.Skip("ZOTERO_API_KEY and ZOTERO_LIBRARY_ID not set, skipping integration test")
	}

	return apiKey, libraryID
}

func TestSearchZotero_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	apiKey, libraryID := getZoteroCredentials(t)
	ctx := context.Background()
	log := logger.NewNoOpLogger()

	tests := []struct {
		name   string
		params ZoteroSearchParams
	}{
		{"Basic search with limit", ZoteroSearchParams{Limit: 5}},
		{"Search with query", ZoteroSearchParams{Query: "climate", Limit: 3}},
		{"Default parameters", ZoteroSearchParams{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := SearchZotero(ctx, apiKey, libraryID, tt.params, log)
			if err != nil {
				t.Fatalf("SearchZotero failed: %v", err)
			}

			t.Logf("Found %d PDF attachments", len(results))
			for i, pdf := range results {
				if pdf.AttachmentKey == "" || pdf.ParentKey == "" {
					t.Errorf("Result %d is missing keys: %+v", i, pdf)
				}
				t.Logf("  %s: %s (%s)", pdf.AttachmentKey, pdf.Title, pdf.Filename)
			}
		})
	}
}

func TestSearchZotero_MissingCredentials(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNoOpLogger()

	tests := []struct {
		name      string
		apiKey    string
		libraryID string
		wantError string
	}{
		{
			name:      "Missing API key",
			apiKey:    "",
			libraryID: "12345",
			wantError: "Zotero API key is required",
		},
		{
			name:      "Missing library ID",
			apiKey:    "test-key",
			libraryID: "",
			wantError: "Zotero library ID is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SearchZotero(ctx, tt.apiKey, tt.libraryID, ZoteroSearchParams{Limit: 5}, log)
			if err == nil {
				t.Fatal("Expected error but got none")
			}
			if !strings.Contains(err.Error(), tt.wantError) {
				t.Errorf("Expected error %q, got %q", tt.wantError, err.Error())
			}
		})
	}
}

func TestIsPDFAttachment(t *testing.T) {
	tests := []struct {
		itemType, contentType, filename string
		want                            bool
	}{
		{"attachment", "application/pdf", "paper.pdf", true},
		{"attachment", "", "Paper.PDF", true},
		{"attachment", "text/html", "snapshot.html", false},
		{"attachment", "text/html", "misnamed.pdf", false},
		{"note", "", "", false},
		{"journalArticle", "application/pdf", "paper.pdf", false},
	}
	for _, tt := range tests {
		if got := isPDFAttachment(tt.itemType, tt.contentType, tt.filename); got != tt.want {
			t.Errorf("isPDFAttachment(%q, %q, %q) = %v, want %v", tt.itemType, tt.contentType, tt.filename, got, tt.want)
		}
	}
}
