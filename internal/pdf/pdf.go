// Package pdf opens PDF documents and renders their pages to raster images.
//
// Parsing, page geometry and single-page extraction are done with pdfcpu;
// rasterisation is delegated to Ghostscript.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	xdraw "golang.org/x/image/draw"

	"github.com/Epistemic-Technology/pdf-regions/internal/geometry"
	"github.com/Epistemic-Technology/pdf-regions/models"
)

// Document is an opened PDF. It is safe for concurrent use.
type Document struct {
	pdfContext *model.Context
	sizes      []models.PageSize
	renderer   Rasterizer

	mu    sync.Mutex
	cache *renderedPage
}

// Rasterizer turns a single-page PDF into an image at the given resolution.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdf []byte, dpi float64) (image.Image, error)
}

type renderedPage struct {
	page int
	dpi  float64
	img  image.Image
}

// Open parses PDF bytes. The renderer is used by Render and may be nil when
// only page geometry is needed.
func Open(data models.DocumentData, renderer Rasterizer) (*Document, error) {
	if data.Type != "" && data.Type != "pdf" {
		return nil, fmt.Errorf("%w: unsupported document type %q", models.ErrDocumentOpen, data.Type)
	}
	conf := model.NewDefaultConfiguration()
	pdfContext, err := api.ReadValidateAndOptimize(bytes.NewReader(data.Data), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDocumentOpen, err)
	}
	dims, err := pdfContext.PageDims()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read page sizes: %v", models.ErrDocumentOpen, err)
	}
	sizes := make([]models.PageSize, len(dims))
	for i, d := range dims {
		sizes[i] = models.PageSize{Width: d.Width, Height: d.Height}
	}
	return &Document{
		pdfContext: pdfContext,
		sizes:      sizes,
		renderer:   renderer,
	}, nil
}

// OpenFile reads and parses the PDF at path.
func OpenFile(path string, renderer Rasterizer) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDocumentOpen, err)
	}
	return Open(models.DocumentData{Data: data, Type: "pdf"}, renderer)
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return d.pdfContext.PageCount
}

// NativeSize returns the size of the page in PDF points.
func (d *Document) NativeSize(page int) (models.PageSize, error) {
	if page < 0 || page >= len(d.sizes) {
		return models.PageSize{}, fmt.Errorf("%w: page %d of %d", models.ErrPageIndexOutOfRange, page+1, len(d.sizes))
	}
	return d.sizes[page], nil
}

// ExtractPage returns the page as a standalone single-page PDF.
func (d *Document) ExtractPage(page int) ([]byte, error) {
	if page < 0 || page >= d.PageCount() {
		return nil, fmt.Errorf("%w: page %d of %d", models.ErrPageIndexOutOfRange, page+1, d.PageCount())
	}
	pageReader, err := api.ExtractPage(d.pdfContext, page+1)
	if err != nil {
		return nil, fmt.Errorf("failed to extract page %d: %w", page+1, err)
	}
	return io.ReadAll(pageReader)
}

// Render rasterises the page at dpi. When clip is non-nil only that part of
// the page, given in document units, is returned.
func (d *Document) Render(ctx context.Context, page int, clip *models.DocumentRect, dpi float64) (image.Image, error) {
	if d.renderer == nil {
		return nil, fmt.Errorf("%w: no rasterizer configured", models.ErrRender)
	}
	if page < 0 || page >= d.PageCount() {
		return nil, fmt.Errorf("%w: page %d of %d", models.ErrPageIndexOutOfRange, page+1, d.PageCount())
	}

	img, err := d.renderPage(ctx, page, dpi)
	if err != nil {
		return nil, err
	}
	if clip == nil {
		return img, nil
	}

	bounds, err := geometry.PixelBounds(*clip, dpi)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrRender, err)
	}
	bounds = bounds.Add(img.Bounds().Min).Intersect(img.Bounds())
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: clip %v lies outside page %d", models.ErrRender, *clip, page+1)
	}
	cropped := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Copy(cropped, image.Point{}, img, bounds, xdraw.Src, nil)
	return cropped, nil
}

// renderPage keeps the most recent full-page raster so that several crops of
// the same page only invoke the rasterizer once.
func (d *Document) renderPage(ctx context.Context, page int, dpi float64) (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c := d.cache; c != nil && c.page == page && c.dpi == dpi {
		return c.img, nil
	}

	pageData, err := d.ExtractPage(page)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrRender, err)
	}
	img, err := d.renderer.Rasterize(ctx, pageData, dpi)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %v", models.ErrRender, page+1, err)
	}
	d.cache = &renderedPage{page: page, dpi: dpi, img: img}
	return img, nil
}
