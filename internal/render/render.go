// Package render prepares pages for on-screen display: it derives the scale
// factor between display pixels and document units and produces a raster of
// exactly the requested width.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/Epistemic-Technology/pdf-regions/internal/geometry"
	"github.com/Epistemic-Technology/pdf-regions/models"
)

// Document is the part of a PDF document needed to display a page.
type Document interface {
	PageCount() int
	NativeSize(page int) (models.PageSize, error)
	Render(ctx context.Context, page int, clip *models.DocumentRect, dpi float64) (image.Image, error)
}

// PageView is a page rendered for display.
type PageView struct {
	Page  int
	Scale float64
	Size  models.PageSize
	Image image.Image
}

// ComputeScale returns targetWidth / nativeWidth.
func ComputeScale(targetWidth, nativeWidth float64) (float64, error) {
	if !(targetWidth > 0) || !(nativeWidth > 0) || math.IsInf(targetWidth, 0) || math.IsInf(nativeWidth, 0) {
		return 0, fmt.Errorf("%w: target width %v, native width %v", models.ErrInvalidGeometry, targetWidth, nativeWidth)
	}
	return targetWidth / nativeWidth, nil
}

// View renders page so that it is targetWidth pixels wide. The returned scale
// converts between the image's pixel coordinates and document units.
func View(ctx context.Context, doc Document, page int, targetWidth float64) (*PageView, error) {
	size, err := doc.NativeSize(page)
	if err != nil {
		return nil, err
	}
	scale, err := ComputeScale(targetWidth, size.Width)
	if err != nil {
		return nil, err
	}
	img, err := doc.Render(ctx, page, nil, geometry.PointsPerInch*scale)
	if err != nil {
		return nil, err
	}
	return &PageView{
		Page:  page,
		Scale: scale,
		Size:  size,
		Image: fit(img, int(math.Round(targetWidth)), int(math.Round(size.Height*scale))),
	}, nil
}

// fit resamples img to w x h. Rasterizers round page dimensions to whole
// pixels, so the raster can be off by one from what the scale predicts.
func fit(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if w <= 0 || h <= 0 || (b.Dx() == w && b.Dy() == h) {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
