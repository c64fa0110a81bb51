package models

// DisplayRect is an axis-aligned rectangle in display pixels, relative to the
// top-left corner of the rendered page image.
type DisplayRect struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// NewDisplayRect returns the rectangle spanned by two corners, normalised so
// that X2 >= X1 and Y2 >= Y1 regardless of drag direction.
func NewDisplayRect(x1, y1, x2, y2 float64) DisplayRect {
	x1, x2 = order(x1, x2)
	y1, y2 = order(y1, y2)
	return DisplayRect{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// DocumentRect is an axis-aligned rectangle in document-native units (PDF
// points), relative to the top-left corner of the page.
type DocumentRect struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// NewDocumentRect returns a normalised document rectangle.
func NewDocumentRect(x1, y1, x2, y2 float64) DocumentRect {
	x1, x2 = order(x1, x2)
	y1, y2 = order(y1, y2)
	return DocumentRect{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

func order(a, b float64) (float64, float64) {
	if b < a {
		return b, a
	}
	return a, b
}

// PageSize is the native size of a page in PDF points.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// SourceInfo contains information about where the PDF came from
type SourceInfo struct {
	Path     string `json:"path,omitempty"`
	ZoteroID string `json:"zotero_id,omitempty"`
	URL      string `json:"url,omitempty"`
}

// DocumentData holds raw document bytes along with the detected type
type DocumentData struct {
	Data []byte `json:"data"`
	Type string `json:"type"` // "pdf", "html", "zip", "unknown"
}

// DocumentInfo contains basic information about a stored document
type DocumentInfo struct {
	DocumentID  string     `json:"document_id"`
	Title       string     `json:"title,omitempty"`
	PageCount   int        `json:"page_count"`
	RegionCount int        `json:"region_count"`
	SourceInfo  SourceInfo `json:"source_info,omitempty"`
}

// ExportedCrop describes one PNG written by the crop exporter.
type ExportedCrop struct {
	Page    int          `json:"page"`  // 0-based page index
	Index   int          `json:"index"` // 0-based position within the page
	Rect    DocumentRect `json:"rect"`
	Path    string       `json:"path"`
	Caption string       `json:"caption,omitempty"`
}
