// Package session holds the state of one annotation session: the open
// document, the page on display, the scale factor of every page shown so far,
// the drag in progress and the region store.
package session

import (
	"fmt"

	"github.com/Epistemic-Technology/pdf-regions/internal/geometry"
	"github.com/Epistemic-Technology/pdf-regions/internal/regions"
	"github.com/Epistemic-Technology/pdf-regions/internal/render"
	"github.com/Epistemic-Technology/pdf-regions/models"
)

// Document provides the page geometry a session needs.
type Document interface {
	PageCount() int
	NativeSize(page int) (models.PageSize, error)
}

// Session is not safe for concurrent use.
type Session struct {
	doc         Document
	regions     *regions.Store
	targetWidth float64
	scales      map[int]float64
	drag        Drag
}

// New starts a session showing the store's current page at targetWidth
// display pixels. A nil store starts empty.
func New(doc Document, store *regions.Store, targetWidth float64) (*Session, error) {
	if store == nil {
		store = regions.New()
	}
	if doc.PageCount() == 0 {
		return nil, fmt.Errorf("%w: document has no pages", models.ErrPageIndexOutOfRange)
	}
	s := &Session{
		doc:         doc,
		regions:     store,
		targetWidth: targetWidth,
		scales:      make(map[int]float64),
	}
	page := store.CurrentPage()
	if page >= doc.PageCount() {
		page = 0
	}
	if err := s.GoTo(page); err != nil {
		return nil, err
	}
	return s, nil
}

// CurrentPage returns the 0-based index of the displayed page.
func (s *Session) CurrentPage() int {
	return s.regions.CurrentPage()
}

// PageCount returns the number of pages in the document.
func (s *Session) PageCount() int {
	return s.doc.PageCount()
}

// TargetWidth returns the display width pages are scaled to.
func (s *Session) TargetWidth() float64 {
	return s.targetWidth
}

// Label returns the page indicator shown next to the navigation buttons.
func (s *Session) Label() string {
	return fmt.Sprintf("Page %d / %d", s.CurrentPage()+1, s.PageCount())
}

// GoTo displays page and recomputes its scale factor. A drag in progress is
// abandoned.
func (s *Session) GoTo(page int) error {
	if page < 0 || page >= s.doc.PageCount() {
		return fmt.Errorf("%w: page %d of %d", models.ErrPageIndexOutOfRange, page+1, s.doc.PageCount())
	}
	scale, err := s.scaleOf(page, s.targetWidth)
	if err != nil {
		return err
	}
	if err := s.regions.SetCurrentPage(page); err != nil {
		return err
	}
	s.scales[page] = scale
	s.drag.Cancel()
	return nil
}

// Next moves to the following page. It reports false on the last page.
func (s *Session) Next() (bool, error) {
	if s.CurrentPage() >= s.PageCount()-1 {
		return false, nil
	}
	return true, s.GoTo(s.CurrentPage() + 1)
}

// Previous moves to the preceding page. It reports false on the first page.
func (s *Session) Previous() (bool, error) {
	if s.CurrentPage() <= 0 {
		return false, nil
	}
	return true, s.GoTo(s.CurrentPage() - 1)
}

// Resize changes the display width and recomputes the scale of the current
// page. Regions already stored are not touched.
func (s *Session) Resize(targetWidth float64) error {
	scale, err := s.scaleOf(s.CurrentPage(), targetWidth)
	if err != nil {
		return err
	}
	s.targetWidth = targetWidth
	s.scales[s.CurrentPage()] = scale
	return nil
}

func (s *Session) scaleOf(page int, targetWidth float64) (float64, error) {
	size, err := s.doc.NativeSize(page)
	if err != nil {
		return 0, err
	}
	return render.ComputeScale(targetWidth, size.Width)
}

// Scale returns the scale factor of the current page.
func (s *Session) Scale() float64 {
	return s.scales[s.CurrentPage()]
}

// ScaleFor returns the scale factor last computed for page.
func (s *Session) ScaleFor(page int) (float64, bool) {
	scale, ok := s.scales[page]
	return scale, ok
}

// AddDisplayRegion converts a rectangle drawn on the current page into
// document units and stores it.
func (s *Session) AddDisplayRegion(r models.DisplayRect) (models.DocumentRect, error) {
	rect, err := geometry.ToDocument(r, s.Scale())
	if err != nil {
		return models.DocumentRect{}, err
	}
	if err := s.regions.Add(s.CurrentPage(), rect); err != nil {
		return models.DocumentRect{}, err
	}
	return rect, nil
}

// DisplayRegions returns the current page's regions in display coordinates,
// for drawing them over the page image.
func (s *Session) DisplayRegions() ([]models.DisplayRect, error) {
	rects := s.regions.RegionsFor(s.CurrentPage())
	out := make([]models.DisplayRect, 0, len(rects))
	for _, r := range rects {
		d, err := geometry.ToDisplay(r, s.Scale())
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Press begins a drag on the current page.
func (s *Session) Press(x, y float64) { s.drag.Press(x, y) }

// Move updates the drag in progress.
func (s *Session) Move(x, y float64) { s.drag.Move(x, y) }

// Preview returns the rectangle of the drag in progress.
func (s *Session) Preview() (models.DisplayRect, bool) { return s.drag.Preview() }

// Cancel abandons the drag in progress without storing a region.
func (s *Session) Cancel() { s.drag.Cancel() }

// DragState returns the state of the drag machine.
func (s *Session) DragState() DragState { return s.drag.State() }

// Release finishes the drag and stores the resulting region. ok is false when
// no drag was in progress.
func (s *Session) Release(x, y float64) (rect models.DocumentRect, ok bool, err error) {
	display, ok := s.drag.Release(x, y)
	if !ok {
		return models.DocumentRect{}, false, nil
	}
	rect, err = s.AddDisplayRegion(display)
	return rect, true, err
}

// ClearPage removes the regions of the current page.
func (s *Session) ClearPage() {
	s.regions.ClearPage(s.CurrentPage())
}

// ClearAll removes every region of the document.
func (s *Session) ClearAll() error {
	page := s.CurrentPage()
	s.regions.ClearAll()
	// keep the displayed page registered
	return s.regions.SetCurrentPage(page)
}

// Regions returns the session's region store.
func (s *Session) Regions() *regions.Store {
	return s.regions
}

// ReplaceRegions swaps in a store loaded from elsewhere and keeps the current
// page on display.
func (s *Session) ReplaceRegions(store *regions.Store) error {
	page := s.CurrentPage()
	s.regions = store
	return s.GoTo(page)
}
