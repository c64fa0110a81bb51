// Command pdf-regions works with markdown annotation files outside the MCP
// server: it crops the regions of a file out of its PDF, prints page sizes
// and lists the regions a file holds.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/Epistemic-Technology/pdf-regions/internal/annotations"
	"github.com/Epistemic-Technology/pdf-regions/internal/config"
	"github.com/Epistemic-Technology/pdf-regions/internal/logger"
	"github.com/Epistemic-Technology/pdf-regions/internal/operations"
	"github.com/Epistemic-Technology/pdf-regions/internal/pdf"
)

const usage = `Usage: pdf-regions <command> [flags]

Commands:
  crop   -pdf file.pdf -annotations file.md -out dir [-dpi n]
  pages  -pdf file.pdf
  show   -annotations file.md
`

type options struct {
	command     string
	pdfPath     string
	annotations string
	outDir      string
	dpi         float64
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "pdf-regions: %v\n\n%s", err, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "pdf-regions: %v\n", err)
		os.Exit(1)
	}
}

func parseArgs(args []string) (options, error) {
	if len(args) == 0 {
		return options{}, errors.New("missing command")
	}
	opts := options{command: args[0]}

	fs := flag.NewFlagSet(opts.command, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.pdfPath, "pdf", "", "PDF file")
	fs.StringVar(&opts.annotations, "annotations", "", "markdown annotation file")
	fs.StringVar(&opts.outDir, "out", "", "directory for cropped PNGs")
	fs.Float64Var(&opts.dpi, "dpi", config.DefaultExportDPI, "crop resolution")
	if err := fs.Parse(args[1:]); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	switch opts.command {
	case "crop":
		if opts.pdfPath == "" || opts.annotations == "" || opts.outDir == "" {
			return options{}, errors.New("crop needs -pdf, -annotations and -out")
		}
		if opts.dpi <= 0 {
			return options{}, fmt.Errorf("dpi must be positive, got %v", opts.dpi)
		}
	case "pages":
		if opts.pdfPath == "" {
			return options{}, errors.New("pages needs -pdf")
		}
	case "show":
		if opts.annotations == "" {
			return options{}, errors.New("show needs -annotations")
		}
	default:
		return options{}, fmt.Errorf("unknown command %q", opts.command)
	}
	return opts, nil
}

func run(ctx context.Context, opts options, out io.Writer) error {
	switch opts.command {
	case "crop":
		return crop(ctx, opts, out)
	case "pages":
		return pages(opts, out)
	case "show":
		return show(opts, out)
	}
	return fmt.Errorf("unknown command %q", opts.command)
}

func crop(ctx context.Context, opts options, out io.Writer) error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	log, err := logger.NewLogger(logger.LogConfig{Output: "stderr", Level: cfg.Log.Level})
	if err != nil {
		return err
	}

	gs := pdf.NewGhostscript(cfg.GhostscriptPath, log)
	if !gs.Available() {
		return fmt.Errorf("ghostscript binary %q not found", cfg.GhostscriptPath)
	}

	crops, err := operations.CropAnnotationFile(ctx, opts.pdfPath, opts.annotations, opts.outDir, opts.dpi, gs, log)
	for _, c := range crops {
		fmt.Fprintln(out, c.Path)
	}
	if err != nil {
		return fmt.Errorf("stopped after %d crops: %w", len(crops), err)
	}
	return nil
}

func pages(opts options, out io.Writer) error {
	doc, err := pdf.OpenFile(opts.pdfPath, nil)
	if err != nil {
		return err
	}
	for i := 0; i < doc.PageCount(); i++ {
		size, err := doc.NativeSize(i)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d\t%.2f x %.2f pt\n", i+1, size.Width, size.Height)
	}
	return nil
}

func show(opts options, out io.Writer) error {
	rs, title, err := annotations.ReadFile(opts.annotations)
	if err != nil {
		return err
	}
	if title != "" {
		fmt.Fprintln(out, title)
	}
	for _, page := range rs.PagesWithRegions() {
		for i, r := range rs.RegionsFor(page) {
			fmt.Fprintf(out, "page %d box %d\t[%.2f, %.2f, %.2f, %.2f]\n", page+1, i+1, r.X1, r.Y1, r.X2, r.Y2)
		}
	}
	fmt.Fprintf(out, "%d regions\n", rs.Len())
	return nil
}
