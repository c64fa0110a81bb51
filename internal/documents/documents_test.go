package documents

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Epistemic-Technology/pdf-regions/models"
)

func TestDetectDocumentType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{
			name:     "PDF document",
			data:     []byte("%PDF-1.4\nsome pdf content"),
			expected: "pdf",
		},
		{
			name:     "PDF with leading garbage",
			data:     append([]byte("\x00\x00junk\n"), []byte("%PDF-1.7\n")...),
			expected: "pdf",
		},
		{
			name:     "HTML with DOCTYPE",
			data:     []byte("<!DOCTYPE html><html><body>test</body></html>"),
			expected: "html",
		},
		{
			name:     "HTML with whitespace",
			data:     []byte("  \n  <html><body>test</body></html>"),
			expected: "html",
		},
		{
			name:     "ZIP file",
			data:     []byte{0x50, 0x4B, 0x03, 0x04, 0x00, 0x00},
			expected: "zip",
		},
		{
			name:     "Empty data",
			data:     []byte{},
			expected: "unknown",
		},
		{
			name:     "Plain text",
			data:     []byte("just some notes"),
			expected: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectDocumentType(tt.data); got != tt.expected {
				t.Errorf("DetectDocumentType() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetDataFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4\n"), 0644); err != nil {
		t.Fatal(err)
	}
	data, err := GetData(context.Background(), models.SourceInfo{Path: path}, ZoteroCredentials{})
	if err != nil {
		t.Fatalf("GetData failed: %v", err)
	}
	if data.Type != "pdf" {
		t.Errorf("Type = %q, want pdf", data.Type)
	}
}

func TestGetDataFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.pdf" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("%PDF-1.5\n"))
	}))
	defer srv.Close()

	data, err := GetData(context.Background(), models.SourceInfo{URL: srv.URL + "/paper.pdf"}, ZoteroCredentials{})
	if err != nil {
		t.Fatalf("GetData failed: %v", err)
	}
	if data.Type != "pdf" {
		t.Errorf("Type = %q, want pdf", data.Type)
	}

	_, err = GetData(context.Background(), models.SourceInfo{URL: srv.URL + "/missing.pdf"}, ZoteroCredentials{})
	if !errors.Is(err, models.ErrDocumentOpen) {
		t.Errorf("expected ErrDocumentOpen for 404, got %v", err)
	}
}

func TestGetDataErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := GetData(ctx, models.SourceInfo{}, ZoteroCredentials{}); err == nil {
		t.Error("expected error for empty source")
	}
	_, err := GetData(ctx, models.SourceInfo{Path: filepath.Join(t.TempDir(), "nope.pdf")}, ZoteroCredentials{})
	if !errors.Is(err, models.ErrDocumentOpen) {
		t.Errorf("expected ErrDocumentOpen, got %v", err)
	}
	_, err = GetData(ctx, models.SourceInfo{ZoteroID: "ABCD1234"}, ZoteroCredentials{})
	if !errors.Is(err, models.ErrDocumentOpen) {
		t.Errorf("expected ErrDocumentOpen without credentials, got %v", err)
	}
}

func TestDefaultTitle(t *testing.T) {
	tests := []struct {
		source models.SourceInfo
		want   string
	}{
		{models.SourceInfo{Path: "/home/me/papers/thesis.pdf"}, "thesis.pdf"},
		{models.SourceInfo{URL: "https://example.org/files/report.pdf"}, "report.pdf"},
		{models.SourceInfo{URL: "https://example.org/"}, "example.org"},
		{models.SourceInfo{ZoteroID: "ABCD1234"}, "zotero ABCD1234"},
		{models.SourceInfo{}, ""},
	}
	for _, tt := range tests {
		if got := DefaultTitle(tt.source); got != tt.want {
			t.Errorf("DefaultTitle(%+v) = %q, want %q", tt.source, got, tt.want)
		}
	}
}

func TestFetchZoteroTitle_MissingCredentials(t *testing.T) {
	if _, err := FetchZoteroTitle(context.Background(), "ABCD1234", ZoteroCredentials{}); err == nil {
		t.Error("expected error without credentials")
	}
}

func TestFetchZoteroTitle_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	creds := ZoteroCredentials{APIKey: os.Getenv("ZOTERO_API_KEY"), LibraryID: os.Getenv("ZOTERO_LIBRARY_ID")}
	itemID := os.Getenv("ZOTERO_TEST_ITEM")
	if creds.APIKey == "" || creds.LibraryID == "" || itemID == "" {
		t.Skip("ZOTERO_API_KEY, ZOTERO_LIBRARY_ID and ZOTERO_TEST_ITEM not set, skipping integration test")
	}
	title, err := FetchZoteroTitle(context.Background(), itemID, creds)
	if err != nil {
		t.Fatalf("FetchZoteroTitle failed: %v", err)
	}
	t.Logf("Zotero item %s: %q", itemID, title)
}
