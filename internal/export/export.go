// Package export crops annotated regions out of a document and writes them as
// PNG files.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/Epistemic-Technology/pdf-regions/internal/logger"
	"github.com/Epistemic-Technology/pdf-regions/internal/regions"
	"github.com/Epistemic-Technology/pdf-regions/models"
)

// DefaultDPI matches the native resolution of document units.
const DefaultDPI = 72.0

// ManifestName is the file listing every crop of an export.
const ManifestName = "index.json"

// Document is the part of a PDF document the exporter needs.
type Document interface {
	PageCount() int
	Render(ctx context.Context, page int, clip *models.DocumentRect, dpi float64) (image.Image, error)
}

// Exporter writes one PNG per region.
type Exporter struct {
	DPI float64
	Log logger.Logger
}

// NewExporter returns an exporter rendering at dpi. Zero selects DefaultDPI.
func NewExporter(dpi float64, log logger.Logger) *Exporter {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Exporter{DPI: dpi, Log: log}
}

// FileName returns the base name of the crop for rect on the 0-based page.
func FileName(page int, rect models.DocumentRect) string {
	return fmt.Sprintf("page_%d_crop_%d_%d.png", page+1, int(math.Round(rect.X1)), int(math.Round(rect.Y1)))
}

// Export renders every region of store, page by page in ascending order and
// in stored order within a page, into outDir.
//
// The first failure stops the export. Crops written before the failure stay
// on disk and are returned together with the error.
func (e *Exporter) Export(ctx context.Context, doc Document, store *regions.Store, outDir string) ([]models.ExportedCrop, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create output directory: %v", models.ErrExportIO, err)
	}

	var crops []models.ExportedCrop
	used := make(map[string]int)
	for _, page := range store.PagesWithRegions() {
		if page >= doc.PageCount() {
			e.Log.Error("Region on page %d but document has %d pages", page+1, doc.PageCount())
			return crops, fmt.Errorf("%w: page %d of %d", models.ErrPageIndexOutOfRange, page+1, doc.PageCount())
		}
		for i, rect := range store.RegionsFor(page) {
			if err := ctx.Err(); err != nil {
				return crops, err
			}
			name := uniqueName(used, FileName(page, rect))
			path := filepath.Join(outDir, name)

			img, err := doc.Render(ctx, page, &rect, e.DPI)
			if err != nil {
				e.Log.Error("Failed to render region %d on page %d: %v", i+1, page+1, err)
				return crops, err
			}
			if err := writePNG(path, img); err != nil {
				e.Log.Error("Failed to write %s: %v", path, err)
				return crops, err
			}
			e.Log.Debug("Wrote %s", path)
			crops = append(crops, models.ExportedCrop{Page: page, Index: i, Rect: rect, Path: path})
		}
	}

	if err := WriteManifest(outDir, crops); err != nil {
		return crops, err
	}
	e.Log.Info("Exported %d regions to %s", len(crops), outDir)
	return crops, nil
}

// uniqueName appends a per-name sequence number when two regions of a page
// round to the same top-left corner.
func uniqueName(used map[string]int, name string) string {
	used[name]++
	n := used[name]
	if n == 1 {
		return name
	}
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s_%d%s", name[:len(name)-len(ext)], n, ext)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrExportIO, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("%w: failed to encode %s: %v", models.ErrExportIO, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrExportIO, err)
	}
	return nil
}

// WriteManifest records the crops of an export in outDir/index.json.
func WriteManifest(outDir string, crops []models.ExportedCrop) error {
	if crops == nil {
		crops = []models.ExportedCrop{}
	}
	data, err := json.MarshalIndent(crops, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, ManifestName), data, 0644); err != nil {
		return fmt.Errorf("%w: failed to write manifest: %v", models.ErrExportIO, err)
	}
	return nil
}

// ReadManifest loads the crops recorded by WriteManifest.
func ReadManifest(outDir string) ([]models.ExportedCrop, error) {
	data, err := os.ReadFile(filepath.Join(outDir, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var crops []models.ExportedCrop
	if err := json.Unmarshal(data, &crops); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return crops, nil
}
