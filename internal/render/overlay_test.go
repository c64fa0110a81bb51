package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/Epistemic-Technology/pdf-regions/models"
)

func TestOutline(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 80))
	rects := []models.DisplayRect{{X1: 10, Y1: 10, X2: 50, Y2: 40}}

	out := Outline(src, rects, RegionColor, 2)

	tests := []struct {
		x, y int
		want color.RGBA
	}{
		{10, 10, RegionColor},
		{11, 25, RegionColor},
		{49, 39, RegionColor},
		{30, 11, RegionColor},
		{30, 25, color.RGBA{}},
		{12, 12, color.RGBA{}},
		{5, 5, color.RGBA{}},
		{50, 40, color.RGBA{}},
	}
	for _, tt := range tests {
		if got := out.RGBAAt(tt.x, tt.y); got != tt.want {
			t.Errorf("pixel (%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}

	if src.RGBAAt(10, 10) != (color.RGBA{}) {
		t.Error("Outline must not modify its input")
	}
}

func TestOutlineClipsToImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 20, 20))
	rects := []models.DisplayRect{
		{X1: -10, Y1: -10, X2: 100, Y2: 100},
		{X1: 5, Y1: 5, X2: 5, Y2: 15},
	}
	out := Outline(src, rects, PreviewColor, 1)
	if out.Bounds() != src.Bounds() {
		t.Errorf("bounds = %v, want %v", out.Bounds(), src.Bounds())
	}
	if got := out.RGBAAt(10, 10); got != (color.RGBA{}) {
		t.Errorf("interior pixel = %v, want transparent", got)
	}
}
