package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Epistemic-Technology/pdf-regions/internal/logger"
	"github.com/Epistemic-Technology/pdf-regions/internal/regions"
	"github.com/Epistemic-Technology/pdf-regions/models"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db  *sql.DB
	log logger.Logger
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(dbPath string, log logger.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases intact and serialises writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, log: log}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Debug("Opened session database at %s", dbPath)
	return store, nil
}

// initSchema creates the database tables if they don't exist
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT,
		page_count INTEGER NOT NULL DEFAULT 0,
		current_page INTEGER NOT NULL DEFAULT 0,
		path TEXT,
		zotero_id TEXT,
		url TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS regions (
		document_id TEXT NOT NULL,
		page_index INTEGER NOT NULL,
		position INTEGER NOT NULL,
		x1 REAL NOT NULL,
		y1 REAL NOT NULL,
		x2 REAL NOT NULL,
		y2 REAL NOT NULL,
		PRIMARY KEY (document_id, page_index, position),
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS exports (
		document_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		page_index INTEGER NOT NULL,
		position INTEGER NOT NULL,
		x1 REAL NOT NULL,
		y1 REAL NOT NULL,
		x2 REAL NOT NULL,
		y2 REAL NOT NULL,
		path TEXT NOT NULL,
		caption TEXT,
		exported_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (document_id, seq),
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_documents_zotero_id ON documents(zotero_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveSession stores document information and replaces its saved regions
func (s *SQLiteStore) SaveSession(ctx context.Context, info models.DocumentInfo, store *regions.Store) error {
	if info.DocumentID == "" {
		return errors.New("document ID is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, title, page_count, current_page, path, zotero_id, url)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			page_count = excluded.page_count,
			current_page = excluded.current_page,
			path = excluded.path,
			zotero_id = excluded.zotero_id,
			url = excluded.url,
			updated_at = CURRENT_TIMESTAMP
	`, info.DocumentID, info.Title, info.PageCount, store.CurrentPage(),
		info.SourceInfo.Path, info.SourceInfo.ZoteroID, info.SourceInfo.URL)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM regions WHERE document_id = ?`, info.DocumentID); err != nil {
		return fmt.Errorf("failed to clear regions: %w", err)
	}

	for _, page := range store.PagesWithRegions() {
		for i, r := range store.RegionsFor(page) {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO regions (document_id, page_index, position, x1, y1, x2, y2)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, info.DocumentID, page, i, r.X1, r.Y1, r.X2, r.Y2)
			if err != nil {
				return fmt.Errorf("failed to insert region %d on page %d: %w", i+1, page+1, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Debug("Saved %d regions for %s", store.Len(), info.DocumentID)
	return nil
}

// LoadRegions restores the regions and current page saved for a document
func (s *SQLiteStore) LoadRegions(ctx context.Context, docID string) (*regions.Store, error) {
	var currentPage int
	err := s.db.QueryRowContext(ctx, `SELECT current_page FROM documents WHERE id = ?`, docID).Scan(&currentPage)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, docID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT page_index, x1, y1, x2, y2
		FROM regions
		WHERE document_id = ?
		ORDER BY page_index, position
	`, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to query regions: %w", err)
	}
	defer rows.Close()

	store := regions.New()
	for rows.Next() {
		var page int
		var r models.DocumentRect
		if err := rows.Scan(&page, &r.X1, &r.Y1, &r.X2, &r.Y2); err != nil {
			return nil, fmt.Errorf("failed to scan region: %w", err)
		}
		if err := store.Add(page, r); err != nil {
			return nil, fmt.Errorf("invalid stored region: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating regions: %w", err)
	}

	if err := store.SetCurrentPage(currentPage); err != nil {
		return nil, err
	}
	return store, nil
}

// DocumentExists reports whether a session was saved for the document
func (s *SQLiteStore) DocumentExists(ctx context.Context, docID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE id = ?`, docID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check document existence: %w", err)
	}
	return count > 0, nil
}

const documentInfoQuery = `
	SELECT d.id, d.title, d.page_count, d.path, d.zotero_id, d.url,
		(SELECT COUNT(*) FROM regions r WHERE r.document_id = d.id)
	FROM documents d
`

func scanDocumentInfo(row interface{ Scan(...any) error }) (models.DocumentInfo, error) {
	var doc models.DocumentInfo
	var path, zoteroID, url sql.NullString
	err := row.Scan(&doc.DocumentID, &doc.Title, &doc.PageCount, &path, &zoteroID, &url, &doc.RegionCount)
	doc.SourceInfo = models.SourceInfo{Path: path.String, ZoteroID: zoteroID.String, URL: url.String}
	return doc, err
}

// GetDocument retrieves the stored information for a document
func (s *SQLiteStore) GetDocument(ctx context.Context, docID string) (*models.DocumentInfo, error) {
	doc, err := scanDocumentInfo(s.db.QueryRowContext(ctx, documentInfoQuery+` WHERE d.id = ?`, docID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, docID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return &doc, nil
}

// ListDocuments returns all documents with saved sessions, most recently updated first
func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]models.DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx, documentInfoQuery+` ORDER BY d.updated_at DESC, d.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var documents []models.DocumentInfo
	for rows.Next() {
		doc, err := scanDocumentInfo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		documents = append(documents, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return documents, nil
}

// RecordExport replaces the export records of a document
func (s *SQLiteStore) RecordExport(ctx context.Context, docID string, crops []models.ExportedCrop) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM exports WHERE document_id = ?`, docID); err != nil {
		return fmt.Errorf("failed to clear exports: %w", err)
	}
	for i, c := range crops {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO exports (document_id, seq, page_index, position, x1, y1, x2, y2, path, caption)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, docID, i, c.Page, c.Index, c.Rect.X1, c.Rect.Y1, c.Rect.X2, c.Rect.Y2, c.Path, c.Caption)
		if err != nil {
			return fmt.Errorf("failed to insert export %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// GetExports retrieves the crops recorded by the last export
func (s *SQLiteStore) GetExports(ctx context.Context, docID string) ([]models.ExportedCrop, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT page_index, position, x1, y1, x2, y2, path, caption
		FROM exports
		WHERE document_id = ?
		ORDER BY seq
	`, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to query exports: %w", err)
	}
	defer rows.Close()

	var crops []models.ExportedCrop
	for rows.Next() {
		var c models.ExportedCrop
		var caption sql.NullString
		if err := rows.Scan(&c.Page, &c.Index, &c.Rect.X1, &c.Rect.Y1, &c.Rect.X2, &c.Rect.Y2, &c.Path, &caption); err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		c.Caption = caption.String
		crops = append(crops, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exports: %w", err)
	}
	return crops, nil
}

// DeleteDocument removes a document and all associated data
func (s *SQLiteStore) DeleteDocument(ctx context.Context, docID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"regions", "exports"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE document_id = ?`, docID); err != nil {
			return fmt.Errorf("failed to delete %s: %w", table, err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, docID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, docID)
	}

	return tx.Commit()
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GenerateDocumentID creates a stable document ID from the document source.
// Local files are identified by content so a moved file keeps its session.
func GenerateDocumentID(sourceInfo models.SourceInfo, data []byte) string {
	if sourceInfo.ZoteroID != "" {
		return "zotero_" + sourceInfo.ZoteroID
	}
	if sourceInfo.URL != "" {
		return fmt.Sprintf("url_%x", hashString(sourceInfo.URL))
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("pdf_%x", sum[:8])
}

// hashString creates a simple hash of a string
func hashString(s string) uint32 {
	var hash uint32
	for i := 0; i < len(s); i++ {
		hash = hash*31 + uint32(s[i])
	}
	return hash
}

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)
