package operations

import (
	"context"
	"errors"
	"fmt"

	"github.com/Epistemic-Technology/pdf-regions/internal/annotations"
	"github.com/Epistemic-Technology/pdf-regions/internal/config"
	"github.com/Epistemic-Technology/pdf-regions/internal/documents"
	"github.com/Epistemic-Technology/pdf-regions/internal/export"
	"github.com/Epistemic-Technology/pdf-regions/internal/llm"
	"github.com/Epistemic-Technology/pdf-regions/internal/logger"
	"github.com/Epistemic-Technology/pdf-regions/internal/pdf"
	"github.com/Epistemic-Technology/pdf-regions/internal/regions"
	"github.com/Epistemic-Technology/pdf-regions/internal/session"
	"github.com/Epistemic-Technology/pdf-regions/internal/storage"
	"github.com/Epistemic-Technology/pdf-regions/models"
)

// Document is an open PDF together with its annotation session.
type Document struct {
	ID      string
	Title   string
	Source  models.SourceInfo
	PDF     *pdf.Document
	Session *session.Session
}

// Info summarises the document for storage and tool responses.
func (d *Document) Info() models.DocumentInfo {
	return models.DocumentInfo{
		DocumentID:  d.ID,
		Title:       d.Title,
		PageCount:   d.PDF.PageCount(),
		RegionCount: d.Session.Regions().Len(),
		SourceInfo:  d.Source,
	}
}

// OpenDocument fetches a PDF and starts an annotation session for it. If the
// store holds a saved session for the same document its regions and current
// page are restored.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - source: Where to fetch the PDF from (path, URL or Zotero attachment)
//   - rawData: Optional raw PDF bytes, used instead of fetching the source
//   - cfg: Configuration supplying the display width and Zotero credentials
//   - store: Storage backend for saved sessions, may be nil
//   - renderer: Rasterizer used to render pages
//   - log: Logger for recording operations
func OpenDocument(ctx context.Context, source models.SourceInfo, rawData []byte, cfg *config.Config, store storage.Store, renderer pdf.Rasterizer, log logger.Logger) (*Document, error) {
	creds := documents.ZoteroCredentials{APIKey: cfg.ZoteroAPIKey, LibraryID: cfg.ZoteroLibraryID}

	var data models.DocumentData
	if rawData != nil {
		data = models.DocumentData{Data: rawData, Type: documents.DetectDocumentType(rawData)}
	} else {
		var err error
		data, err = documents.GetData(ctx, source, creds)
		if err != nil {
			log.Error("Failed to fetch document: %v", err)
			return nil, fmt.Errorf("failed to fetch PDF data: %w", err)
		}
	}

	doc, err := pdf.Open(data, renderer)
	if err != nil {
		log.Error("Failed to open document: %v", err)
		return nil, err
	}

	docID := storage.GenerateDocumentID(source, data.Data)
	log.Info("Opened document %s with %d pages", docID, doc.PageCount())

	title := documents.DefaultTitle(source)
	if source.ZoteroID != "" && creds.APIKey != "" {
		if zoteroTitle, err := documents.FetchZoteroTitle(ctx, source.ZoteroID, creds); err != nil {
			log.Warn("Failed to fetch Zotero title for %s: %v", source.ZoteroID, err)
		} else if zoteroTitle != "" {
			title = zoteroTitle
		}
	}

	rs := regions.New()
	if store != nil {
		saved, err := store.LoadRegions(ctx, docID)
		switch {
		case err == nil:
			log.Info("Restored %d saved regions for %s", saved.Len(), docID)
			rs = saved
			if info, err := store.GetDocument(ctx, docID); err == nil && info.Title != "" {
				title = info.Title
			}
		case errors.Is(err, storage.ErrNotFound):
		default:
			return nil, fmt.Errorf("failed to load saved regions: %w", err)
		}
	}

	sess, err := session.New(doc, rs, cfg.DisplayWidth)
	if err != nil {
		return nil, err
	}

	opened := &Document{
		ID:      docID,
		Title:   title,
		Source:  source,
		PDF:     doc,
		Session: sess,
	}
	if err := PersistSession(ctx, opened, store); err != nil {
		return nil, err
	}
	return opened, nil
}

// PersistSession saves the document's regions and current page. A nil store
// is a no-op.
func PersistSession(ctx context.Context, doc *Document, store storage.Store) error {
	if store == nil {
		return nil
	}
	if err := store.SaveSession(ctx, doc.Info(), doc.Session.Regions()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// UpdateRegions applies change to the document's session and persists the
// result. When change or the save fails the regions held before the call are
// put back, so memory never runs ahead of storage.
func UpdateRegions(ctx context.Context, doc *Document, store storage.Store, change func(sess *session.Session) error) error {
	before := doc.Session.Regions().Clone()
	err := change(doc.Session)
	if err == nil {
		err = PersistSession(ctx, doc, store)
	}
	if err != nil {
		if restoreErr := doc.Session.ReplaceRegions(before); restoreErr != nil {
			return errors.Join(err, fmt.Errorf("failed to restore regions: %w", restoreErr))
		}
		return err
	}
	return nil
}

// SaveAnnotations writes the document's regions to an annotation file and
// persists the session.
func SaveAnnotations(ctx context.Context, doc *Document, path string, store storage.Store, log logger.Logger) error {
	rs := doc.Session.Regions()
	if err := annotations.WriteFile(path, rs, doc.Title); err != nil {
		log.Error("Failed to write annotations to %s: %v", path, err)
		return err
	}
	log.Info("Saved %d regions of %s to %s", rs.Len(), doc.ID, path)
	return PersistSession(ctx, doc, store)
}

// LoadAnnotations replaces the document's regions with those of an
// annotation file. The file's title, when present, becomes the document
// title.
func LoadAnnotations(ctx context.Context, doc *Document, path string, store storage.Store, log logger.Logger) error {
	rs, title, err := annotations.ReadFile(path)
	if err != nil {
		log.Error("Failed to load annotations from %s: %v", path, err)
		return err
	}
	if pages := rs.PagesWithRegions(); len(pages) > 0 && pages[len(pages)-1] >= doc.PDF.PageCount() {
		// kept: the export reports the out-of-range page
		log.Warn("Annotation file %s refers to page %d of a %d-page document", path, pages[len(pages)-1]+1, doc.PDF.PageCount())
	}
	previousTitle := doc.Title
	err = UpdateRegions(ctx, doc, store, func(sess *session.Session) error {
		if title != "" {
			doc.Title = title
		}
		return sess.ReplaceRegions(rs)
	})
	if err != nil {
		doc.Title = previousTitle
		log.Error("Failed to load annotations from %s: %v", path, err)
		return err
	}
	log.Info("Loaded %d regions from %s", rs.Len(), path)
	return nil
}

// ExportRegions crops every region of the document into outDir. With a
// non-nil describe function each crop is captioned and the manifest is
// rewritten with the captions. Crops written before a failure are returned
// along with the error.
func ExportRegions(ctx context.Context, doc *Document, outDir string, dpi float64, describe llm.DescribeFunc, store storage.Store, log logger.Logger) ([]models.ExportedCrop, error) {
	exporter := export.NewExporter(dpi, log)
	crops, err := exporter.Export(ctx, doc.PDF, doc.Session.Regions(), outDir)
	if err != nil {
		return crops, err
	}

	if describe != nil && len(crops) > 0 {
		captioned, err := llm.CaptionCrops(ctx, crops, describe, log)
		if err != nil {
			return crops, fmt.Errorf("failed to caption regions: %w", err)
		}
		crops = captioned
		if err := export.WriteManifest(outDir, crops); err != nil {
			return crops, err
		}
	}

	if store != nil {
		if err := PersistSession(ctx, doc, store); err != nil {
			return crops, err
		}
		if err := store.RecordExport(ctx, doc.ID, crops); err != nil {
			return crops, fmt.Errorf("failed to record export: %w", err)
		}
	}
	return crops, nil
}

// CropAnnotationFile runs the load-and-crop flow on files: it opens the PDF at
// pdfPath, reads the regions of the annotation file and exports them.
func CropAnnotationFile(ctx context.Context, pdfPath, annotationPath, outDir string, dpi float64, renderer pdf.Rasterizer, log logger.Logger) ([]models.ExportedCrop, error) {
	doc, err := pdf.OpenFile(pdfPath, renderer)
	if err != nil {
		return nil, err
	}
	rs, _, err := annotations.ReadFile(annotationPath)
	if err != nil {
		return nil, err
	}
	log.Info("Exporting %d regions of %s", rs.Len(), pdfPath)
	return export.NewExporter(dpi, log).Export(ctx, doc, rs, outDir)
}
