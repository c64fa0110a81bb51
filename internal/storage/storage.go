package storage

import (
	"context"
	"errors"

	"github.com/Epistemic-Technology/pdf-regions/internal/regions"
	"github.com/Epistemic-Technology/pdf-regions/models"
)

// ErrNotFound is returned when a document has no saved session.
var ErrNotFound = errors.New("document not found")

// Store defines the interface for persisting annotation sessions
type Store interface {
	// SaveSession stores document information and replaces its saved regions
	SaveSession(ctx context.Context, info models.DocumentInfo, store *regions.Store) error

	// LoadRegions restores the regions and current page saved for a document
	LoadRegions(ctx context.Context, docID string) (*regions.Store, error)

	// DocumentExists reports whether a session was saved for the document
	DocumentExists(ctx context.Context, docID string) (bool, error)

	// GetDocument retrieves the stored information for a document
	GetDocument(ctx context.Context, docID string) (*models.DocumentInfo, error)

	// ListDocuments returns all documents with saved sessions, most recently updated first
	ListDocuments(ctx context.Context) ([]models.DocumentInfo, error)

	// RecordExport replaces the export records of a document
	RecordExport(ctx context.Context, docID string, crops []models.ExportedCrop) error

	// GetExports retrieves the crops recorded by the last export
	GetExports(ctx context.Context, docID string) ([]models.ExportedCrop, error)

	// DeleteDocument removes a document and all associated data
	DeleteDocument(ctx context.Context, docID string) error

	// Close closes the database connection
	Close() error
}
