package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/Epistemic-Technology/pdf-regions/models"
)

var (
	// RegionColor outlines finalised regions.
	RegionColor = color.RGBA{R: 220, G: 20, B: 60, A: 255}
	// PreviewColor outlines the rectangle of a drag in progress.
	PreviewColor = color.RGBA{R: 30, G: 144, B: 255, A: 255}
)

// Outline returns a copy of img with the border of every rect drawn in c.
// Rects are in the image's pixel coordinates; parts outside the image are
// dropped.
func Outline(img image.Image, rects []models.DisplayRect, c color.Color, thickness int) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)
	if thickness < 1 {
		thickness = 1
	}
	src := image.NewUniform(c)
	for _, r := range rects {
		box := image.Rect(
			int(math.Floor(r.X1)), int(math.Floor(r.Y1)),
			int(math.Ceil(r.X2)), int(math.Ceil(r.Y2)),
		).Add(b.Min)
		t := min(thickness, (box.Dx()+1)/2, (box.Dy()+1)/2)
		edges := []image.Rectangle{
			image.Rect(box.Min.X, box.Min.Y, box.Max.X, box.Min.Y+t),
			image.Rect(box.Min.X, box.Max.Y-t, box.Max.X, box.Max.Y),
			image.Rect(box.Min.X, box.Min.Y, box.Min.X+t, box.Max.Y),
			image.Rect(box.Max.X-t, box.Min.Y, box.Max.X, box.Max.Y),
		}
		for _, e := range edges {
			draw.Draw(dst, e.Intersect(b), src, image.Point{}, draw.Over)
		}
	}
	return dst
}
