package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/Epistemic-Technology/pdf-regions/models"
	"github.com/Epistemic-Technology/zotero/zotero"
)

// maxHeaderOffset is how far into a file the %PDF marker may appear.
// Some producers prepend junk bytes before the header.
const maxHeaderOffset = 1024

// ZoteroCredentials authenticate against a Zotero user library.
type ZoteroCredentials struct {
	APIKey    string
	LibraryID string
}

// DetectDocumentType determines the type of document from the raw data
// by checking magic bytes/headers
func DetectDocumentType(data []byte) string {
	if len(data) == 0 {
		return "unknown"
	}
	if bytes.Contains(data[:min(len(data), maxHeaderOffset)], []byte("%PDF-")) {
		return "pdf"
	}
	trimmed := bytes.TrimSpace(data[:min(len(data), 512)])
	if bytes.HasPrefix(bytes.ToLower(trimmed), []byte("<!doctype html")) ||
		bytes.HasPrefix(bytes.ToLower(trimmed), []byte("<html")) {
		return "html"
	}
	if len(data) >= 4 && data[0] == 0x50 && data[1] == 0x4B {
		return "zip"
	}
	return "unknown"
}

// GetData retrieves document data from a source and detects its type. Exactly
// one of the source's fields is used, in the order path, Zotero ID, URL.
func GetData(ctx context.Context, sourceInfo models.SourceInfo, creds ZoteroCredentials) (models.DocumentData, error) {
	var data []byte
	var err error

	switch {
	case sourceInfo.Path != "":
		data, err = os.ReadFile(sourceInfo.Path)
	case sourceInfo.ZoteroID != "":
		data, err = GetFromZotero(ctx, sourceInfo.ZoteroID, creds.APIKey, creds.LibraryID)
	case sourceInfo.URL != "":
		data, err = GetFromURL(ctx, sourceInfo.URL)
	default:
		return models.DocumentData{}, errors.New("no data provided")
	}
	if err != nil {
		return models.DocumentData{}, fmt.Errorf("%w: %v", models.ErrDocumentOpen, err)
	}
	if data == nil {
		return models.DocumentData{}, fmt.Errorf("%w: no data retrieved", models.ErrDocumentOpen)
	}

	return models.DocumentData{
		Data: data,
		Type: DetectDocumentType(data),
	}, nil
}

// GetFromURL fetches document data from a URL
func GetFromURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status fetching %s: %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// GetFromZotero fetches an attachment file from a Zotero library
func GetFromZotero(ctx context.Context, zoteroID string, apiKey string, libraryID string) ([]byte, error) {
	if apiKey == "" || libraryID == "" {
		return nil, errors.New("ZOTERO_API_KEY and ZOTERO_LIBRARY_ID are required for Zotero sources")
	}
	client := zotero.NewClient(libraryID, zotero.LibraryTypeUser, zotero.WithAPIKey(apiKey))
	data, err := client.File(ctx, zoteroID)
	if err != nil {
		return nil, err
	}
	return data, nil
}
