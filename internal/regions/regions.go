// Package regions keeps the per-page list of user-marked rectangles.
package regions

import (
	"fmt"
	"math"
	"slices"

	"github.com/Epistemic-Technology/pdf-regions/internal/geometry"
	"github.com/Epistemic-Technology/pdf-regions/models"
)

// Store maps 0-based page indices to the regions drawn on that page, in
// creation order. The zero value is not usable; call New.
type Store struct {
	pages       map[int][]models.DocumentRect
	currentPage int
}

// New creates an empty store.
func New() *Store {
	return &Store{pages: make(map[int][]models.DocumentRect)}
}

// SetCurrentPage selects the active page and makes sure it has an entry.
// Calling it repeatedly with the same index has no further effect.
func (s *Store) SetCurrentPage(page int) error {
	if page < 0 {
		return fmt.Errorf("%w: %d", models.ErrPageIndexOutOfRange, page)
	}
	s.currentPage = page
	if _, ok := s.pages[page]; !ok {
		s.pages[page] = nil
	}
	return nil
}

// CurrentPage returns the page last selected with SetCurrentPage.
func (s *Store) CurrentPage() int {
	return s.currentPage
}

// Add appends rect to the page's list. Rectangles with no width or height at
// the precision of annotation files are rejected with ErrDegenerateRegion.
func (s *Store) Add(page int, rect models.DocumentRect) error {
	if page < 0 {
		return fmt.Errorf("%w: %d", models.ErrPageIndexOutOfRange, page)
	}
	rect = models.NewDocumentRect(rect.X1, rect.Y1, rect.X2, rect.Y2)
	if geometry.IsDegenerate(rect) {
		return fmt.Errorf("%w: %.2f x %.2f on page %d", models.ErrDegenerateRegion,
			geometry.Width(rect), geometry.Height(rect), page+1)
	}
	s.pages[page] = append(s.pages[page], rect)
	return nil
}

// ClearPage removes all regions of one page. The page keeps its entry.
func (s *Store) ClearPage(page int) {
	if _, ok := s.pages[page]; ok {
		s.pages[page] = nil
	}
}

// ClearAll removes every region of every page.
func (s *Store) ClearAll() {
	s.pages = make(map[int][]models.DocumentRect)
}

// RegionsFor returns a copy of the regions recorded for page.
func (s *Store) RegionsFor(page int) []models.DocumentRect {
	return slices.Clone(s.pages[page])
}

// PagesWithRegions returns the indices of pages holding at least one region,
// in ascending order.
func (s *Store) PagesWithRegions() []int {
	var pages []int
	for page, rects := range s.pages {
		if len(rects) > 0 {
			pages = append(pages, page)
		}
	}
	slices.Sort(pages)
	return pages
}

// Clone returns an independent copy of the store.
func (s *Store) Clone() *Store {
	c := &Store{pages: make(map[int][]models.DocumentRect, len(s.pages)), currentPage: s.currentPage}
	for page, rects := range s.pages {
		c.pages[page] = slices.Clone(rects)
	}
	return c
}

// Len returns the total number of regions across all pages.
func (s *Store) Len() int {
	n := 0
	for _, rects := range s.pages {
		n += len(rects)
	}
	return n
}

// Equal reports whether both stores hold the same regions on the same pages,
// comparing coordinates with the given absolute tolerance. Pages without
// regions are ignored.
func (s *Store) Equal(other *Store, tolerance float64) bool {
	pages := s.PagesWithRegions()
	if !slices.Equal(pages, other.PagesWithRegions()) {
		return false
	}
	within := func(a, b float64) bool { return math.Abs(a-b) <= tolerance }
	for _, page := range pages {
		a, b := s.pages[page], other.pages[page]
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !within(a[i].X1, b[i].X1) || !within(a[i].Y1, b[i].Y1) ||
				!within(a[i].X2, b[i].X2) || !within(a[i].Y2, b[i].Y2) {
				return false
			}
		}
	}
	return true
}
