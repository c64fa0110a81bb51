// Package geometry converts rectangles between display space (scaled pixels
// of a rendered page) and document space (unscaled PDF points).
package geometry

import (
	"fmt"
	"image"
	"math"
	"strconv"

	"github.com/Epistemic-Technology/pdf-regions/models"
)

const (
	// PointsPerInch is the resolution of document space.
	PointsPerInch = 72.0

	// CoordinateDecimals is the precision annotation files store
	// coordinates at.
	CoordinateDecimals = 2
)

func checkScale(scale float64) error {
	if !(scale > 0) || math.IsInf(scale, 0) {
		return fmt.Errorf("%w: %v", models.ErrInvalidScale, scale)
	}
	return nil
}

// ToDocument divides every coordinate of r by scale.
func ToDocument(r models.DisplayRect, scale float64) (models.DocumentRect, error) {
	if err := checkScale(scale); err != nil {
		return models.DocumentRect{}, err
	}
	return models.NewDocumentRect(r.X1/scale, r.Y1/scale, r.X2/scale, r.Y2/scale), nil
}

// ToDisplay multiplies every coordinate of r by scale.
func ToDisplay(r models.DocumentRect, scale float64) (models.DisplayRect, error) {
	if err := checkScale(scale); err != nil {
		return models.DisplayRect{}, err
	}
	return models.NewDisplayRect(r.X1*scale, r.Y1*scale, r.X2*scale, r.Y2*scale), nil
}

// Width returns the horizontal extent of r.
func Width(r models.DocumentRect) float64 { return r.X2 - r.X1 }

// Height returns the vertical extent of r.
func Height(r models.DocumentRect) float64 { return r.Y2 - r.Y1 }

// FormatCoordinate writes v with CoordinateDecimals decimals.
func FormatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', CoordinateDecimals, 64)
}

// Quantize rounds v to the value an annotation file reads back.
func Quantize(v float64) float64 {
	q, err := strconv.ParseFloat(FormatCoordinate(v), 64)
	if err != nil {
		return v
	}
	return q
}

// IsDegenerate reports whether r has no width or no height once its
// coordinates are rounded to CoordinateDecimals. A region narrower than that
// could be stored but never read back from a saved file.
func IsDegenerate(r models.DocumentRect) bool {
	return Quantize(r.X2) <= Quantize(r.X1) || Quantize(r.Y2) <= Quantize(r.Y1)
}

// Clamp restricts r to the page area. The result may be degenerate when r lies
// entirely outside the page.
func Clamp(r models.DocumentRect, page models.PageSize) models.DocumentRect {
	clamp := func(v, hi float64) float64 { return math.Max(0, math.Min(v, hi)) }
	return models.DocumentRect{
		X1: clamp(r.X1, page.Width),
		Y1: clamp(r.Y1, page.Height),
		X2: clamp(r.X2, page.Width),
		Y2: clamp(r.Y2, page.Height),
	}
}

// PixelBounds maps r to the pixel grid of a page rendered at dpi. Edges are
// rounded outward so the crop never loses a partially covered pixel.
func PixelBounds(r models.DocumentRect, dpi float64) (image.Rectangle, error) {
	if err := checkScale(dpi); err != nil {
		return image.Rectangle{}, err
	}
	k := dpi / PointsPerInch
	return image.Rect(
		int(math.Floor(r.X1*k)),
		int(math.Floor(r.Y1*k)),
		int(math.Ceil(r.X2*k)),
		int(math.Ceil(r.Y2*k)),
	), nil
}
