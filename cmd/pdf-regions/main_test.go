package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Epistemic-Technology/pdf-regions/internal/pdf/pdftest"
	"github.com/Epistemic-Technology/pdf-regions/models"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    options
		wantErr bool
	}{
		{
			name: "crop",
			args: []string{"crop", "-pdf", "a.pdf", "-annotations", "a.md", "-out", "crops", "-dpi", "150"},
			want: options{command: "crop", pdfPath: "a.pdf", annotations: "a.md", outDir: "crops", dpi: 150},
		},
		{
			name: "crop default dpi",
			args: []string{"crop", "-pdf", "a.pdf", "-annotations", "a.md", "-out", "crops"},
			want: options{command: "crop", pdfPath: "a.pdf", annotations: "a.md", outDir: "crops", dpi: 72},
		},
		{
			name: "show",
			args: []string{"show", "-annotations", "a.md"},
			want: options{command: "show", annotations: "a.md", dpi: 72},
		},
		{name: "no command", args: nil, wantErr: true},
		{name: "unknown command", args: []string{"rotate"}, wantErr: true},
		{name: "crop without out", args: []string{"crop", "-pdf", "a.pdf", "-annotations", "a.md"}, wantErr: true},
		{name: "zero dpi", args: []string{"crop", "-pdf", "a.pdf", "-annotations", "a.md", "-out", "o", "-dpi", "0"}, wantErr: true},
		{name: "pages without pdf", args: []string{"pages"}, wantErr: true},
		{name: "stray argument", args: []string{"show", "-annotations", "a.md", "extra"}, wantErr: true},
		{name: "unknown flag", args: []string{"show", "-verbose"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArgs(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(options{})); diff != "" {
				t.Errorf("options mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	data := pdftest.Minimal(models.PageSize{Width: 612, Height: 792}, models.PageSize{Width: 400, Height: 300})
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := run(context.Background(), options{command: "pages", pdfPath: path}, &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	want := "1\t612.00 x 792.00 pt\n2\t400.00 x 300.00 pt\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestRunShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	text := "# Annotations: Paper\n\n## Page 2\n### Box 1\n- Coordinates: [10, 20, 30, 40]\n### Box 2\n- Coordinates: [1.5, 2.5, 3.5, 4.5]\n"
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := run(context.Background(), options{command: "show", annotations: path}, &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	want := "Paper\npage 2 box 1\t[10.00, 20.00, 30.00, 40.00]\npage 2 box 2\t[1.50, 2.50, 3.50, 4.50]\n2 regions\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestRunShow_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.md")
	if err := os.WriteFile(path, []byte("## Page 1\n- Coordinates: [1, 2, 3]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := run(context.Background(), options{command: "show", annotations: path}, &out); err == nil {
		t.Error("expected error for a malformed annotation file")
	}
}
