package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Epistemic-Technology/pdf-regions/internal/logger"
)

// ErrNoGhostscript is returned if the ghostscript command-line tool is not
// available.
var ErrNoGhostscript = errors.New("cannot run ghostscript")

// Ghostscript rasterises PDF pages by running the gs command-line tool with
// the png16m device.
type Ghostscript struct {
	// Path of the gs binary. Defaults to "gs" on $PATH.
	Path string
	Log  logger.Logger
}

// NewGhostscript returns a rasterizer using the given binary.
func NewGhostscript(path string, log logger.Logger) *Ghostscript {
	if path == "" {
		path = "gs"
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Ghostscript{Path: path, Log: log}
}

// Available reports whether the gs binary can be found.
func (g *Ghostscript) Available() bool {
	_, err := exec.LookPath(g.Path)
	return err == nil
}

// Rasterize renders the first page of pdf at dpi and decodes the result.
func (g *Ghostscript) Rasterize(ctx context.Context, pdf []byte, dpi float64) (image.Image, error) {
	if !g.Available() {
		return nil, fmt.Errorf("%w: %s not found", ErrNoGhostscript, g.Path)
	}
	if !(dpi > 0) {
		return nil, fmt.Errorf("invalid resolution: %v", dpi)
	}

	dir, err := os.MkdirTemp("", "pdf-regions")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(dir)

	pdfName := filepath.Join(dir, "page.pdf")
	pngName := filepath.Join(dir, "page.png")
	if err := os.WriteFile(pdfName, pdf, 0600); err != nil {
		return nil, fmt.Errorf("failed to write page: %w", err)
	}

	cmd := exec.CommandContext(ctx,
		g.Path, "-q", "-dSAFER", "-dBATCH", "-dNOPAUSE",
		"-sDEVICE=png16m", fmt.Sprintf("-r%g", dpi),
		"-dTextAlphaBits=4", "-dGraphicsAlphaBits=4",
		"-dFirstPage=1", "-dLastPage=1",
		"-o", pngName,
		pdfName)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ghostscript failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if len(out) > 0 {
		g.Log.Debug("unexpected ghostscript output: %s", strings.TrimSpace(string(out)))
	}

	fd, err := os.Open(pngName)
	if err != nil {
		return nil, fmt.Errorf("ghostscript produced no image: %w", err)
	}
	defer fd.Close()

	img, err := png.Decode(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ghostscript output: %w", err)
	}
	g.Log.Debug("Rasterized page at %g dpi: %dx%d", dpi, img.Bounds().Dx(), img.Bounds().Dy())
	return img, nil
}
