// Package annotations reads and writes region lists as markdown text.
//
// A file looks like this:
//
//	# Annotations: report.pdf
//
//	## Page 2
//	### Box 1
//	- Coordinates: [10.00, 20.00, 110.00, 220.00]
//
// Page numbers are 1-based, coordinates are PDF points with two decimals.
package annotations

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/Epistemic-Technology/pdf-regions/internal/geometry"
	"github.com/Epistemic-Technology/pdf-regions/internal/regions"
	"github.com/Epistemic-Technology/pdf-regions/models"
)

const titlePrefix = "# Annotations"

var (
	pageHeaderRe = regexp.MustCompile(`^##\s+Page\s+([+-]?\d+)\s*$`)
	coordLineRe  = regexp.MustCompile(`^-\s*Coordinates:\s*(.*?)\s*$`)
	decimalRe    = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)
)

// Serialize renders the store as annotation text. Pages without regions are
// left out. Whitespace runs in the title, line breaks included, collapse to
// one space so the title stays on its line.
func Serialize(store *regions.Store, title string) string {
	title = strings.Join(strings.Fields(title), " ")

	var b strings.Builder
	b.WriteString(titlePrefix)
	if title != "" {
		b.WriteString(": ")
		b.WriteString(title)
	}
	b.WriteString("\n")

	for _, page := range store.PagesWithRegions() {
		fmt.Fprintf(&b, "\n## Page %d\n", page+1)
		for i, r := range store.RegionsFor(page) {
			fmt.Fprintf(&b, "### Box %d\n", i+1)
			fmt.Fprintf(&b, "- Coordinates: [%s, %s, %s, %s]\n",
				geometry.FormatCoordinate(r.X1), geometry.FormatCoordinate(r.Y1),
				geometry.FormatCoordinate(r.X2), geometry.FormatCoordinate(r.Y2))
		}
	}
	return b.String()
}

// Deserialize parses annotation text into a new store. Unrecognised lines are
// skipped. Any malformed page header or coordinate line fails the whole parse.
func Deserialize(text string) (*regions.Store, error) {
	store := regions.New()
	page := -1

	scanner := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if m := pageHeaderRe.FindStringSubmatch(line); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil || n < 1 {
				return nil, fmt.Errorf("%w: line %d: invalid page number %q", models.ErrMalformedAnnotationFile, lineNo, m[1])
			}
			page = n - 1
			continue
		}

		m := coordLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if page < 0 {
			return nil, fmt.Errorf("%w: line %d: coordinates before any page header", models.ErrMalformedAnnotationFile, lineNo)
		}
		values, err := parseCoordinates(m[1])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", models.ErrMalformedAnnotationFile, lineNo, err)
		}
		rect := models.NewDocumentRect(values[0], values[1], values[2], values[3])
		if err := store.Add(page, rect); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", models.ErrMalformedAnnotationFile, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedAnnotationFile, err)
	}
	return store, nil
}

// parseCoordinates accepts exactly "[a, b, c, d]" where every element is a
// plain decimal literal.
func parseCoordinates(payload string) ([4]float64, error) {
	var out [4]float64
	if !strings.HasPrefix(payload, "[") || !strings.HasSuffix(payload, "]") {
		return out, fmt.Errorf("coordinates must be a bracketed list, got %q", payload)
	}
	fields := strings.Split(payload[1:len(payload)-1], ",")
	if len(fields) != 4 {
		return out, fmt.Errorf("expected 4 coordinates, got %d", len(fields))
	}
	for i, f := range fields {
		f = strings.TrimSpace(f)
		if !decimalRe.MatchString(f) {
			return out, fmt.Errorf("coordinate %d is not a number: %q", i+1, f)
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsInf(v, 0) {
			return out, fmt.Errorf("coordinate %d out of range: %q", i+1, f)
		}
		out[i] = v
	}
	return out, nil
}

// Title returns the document title recorded in the first title line, or ""
// when there is none.
func Title(text string) string {
	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, titlePrefix) {
			continue
		}
		rest := strings.TrimPrefix(line, titlePrefix)
		return strings.TrimSpace(strings.TrimPrefix(rest, ":"))
	}
	return ""
}

// WriteFile serializes the store to path.
func WriteFile(path string, store *regions.Store, title string) error {
	if err := os.WriteFile(path, []byte(Serialize(store, title)), 0644); err != nil {
		return fmt.Errorf("failed to write annotations: %w", err)
	}
	return nil
}

// ReadFile parses the annotation file at path. The title line is returned
// alongside the regions.
func ReadFile(path string) (*regions.Store, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read annotations: %w", err)
	}
	text := string(data)
	store, err := Deserialize(text)
	if err != nil {
		return nil, "", err
	}
	return store, Title(text), nil
}
