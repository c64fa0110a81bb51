// Package pdftest builds small PDF files for tests.
package pdftest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync/atomic"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Epistemic-Technology/pdf-regions/models"
)

// Minimal returns a PDF with one page per entry of sizes. Every page carries
// a filled rectangle so that rendered pages are not blank.
func Minimal(sizes ...models.PageSize) []byte {
	n := len(sizes)
	var objects []string

	kids := ""
	for i := range n {
		kids += fmt.Sprintf("%d 0 R ", 3+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, n),
	)
	for i, size := range sizes {
		content := "0 0 1 rg 10 10 50 50 re f"
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g] /Resources << >> /Contents %d 0 R >>",
				size.Width, size.Height, 4+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

// Rasterizer renders a single-page PDF as a white image of the page's size
// at the requested resolution. It lets tests render without ghostscript.
type Rasterizer struct {
	calls atomic.Int32
}

// Calls returns how many pages were rasterised.
func (r *Rasterizer) Calls() int {
	return int(r.calls.Load())
}

func (r *Rasterizer) Rasterize(ctx context.Context, pdf []byte, dpi float64) (image.Image, error) {
	r.calls.Add(1)
	pdfContext, err := api.ReadValidateAndOptimize(bytes.NewReader(pdf), model.NewDefaultConfiguration())
	if err != nil {
		return nil, err
	}
	dims, err := pdfContext.PageDims()
	if err != nil {
		return nil, err
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("no pages")
	}
	k := dpi / 72
	img := image.NewRGBA(image.Rect(0, 0, int(dims[0].Width*k+0.5), int(dims[0].Height*k+0.5)))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img, nil
}
