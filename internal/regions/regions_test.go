package regions

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Epistemic-Technology/pdf-regions/internal/geometry"
	"github.com/Epistemic-Technology/pdf-regions/models"
)

func mustAdd(t *testing.T, s *Store, page int, r models.DocumentRect) {
	t.Helper()
	if err := s.Add(page, r); err != nil {
		t.Fatalf("Add(%d, %v) failed: %v", page, r, err)
	}
}

func TestAddKeepsInsertionOrder(t *testing.T) {
	s := New()
	a := models.DocumentRect{X1: 50, Y1: 50, X2: 60, Y2: 60}
	b := models.DocumentRect{X1: 1, Y1: 1, X2: 2, Y2: 2}
	mustAdd(t, s, 0, a)
	mustAdd(t, s, 0, b)

	if diff := cmp.Diff([]models.DocumentRect{a, b}, s.RegionsFor(0)); diff != "" {
		t.Errorf("RegionsFor(0) mismatch (-want +got):\n%s", diff)
	}
}

func TestAddNormalises(t *testing.T) {
	s := New()
	mustAdd(t, s, 0, models.DocumentRect{X1: 10, Y1: 20, X2: 5, Y2: 2})
	want := []models.DocumentRect{{X1: 5, Y1: 2, X2: 10, Y2: 20}}
	if diff := cmp.Diff(want, s.RegionsFor(0)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestAddRejectsDegenerate(t *testing.T) {
	s := New()
	click, err := geometry.ToDocument(models.NewDisplayRect(10, 10, 10, 10), 2.0)
	if err != nil {
		t.Fatalf("ToDocument failed: %v", err)
	}
	if click != (models.DocumentRect{X1: 5, Y1: 5, X2: 5, Y2: 5}) {
		t.Fatalf("unexpected conversion: %v", click)
	}

	tests := []struct {
		name string
		rect models.DocumentRect
	}{
		{"click without drag", click},
		{"zero width", models.DocumentRect{X1: 5, Y1: 5, X2: 5, Y2: 50}},
		{"zero height", models.DocumentRect{X1: 5, Y1: 5, X2: 50, Y2: 5}},
		{"narrower than a hundredth", models.DocumentRect{X1: 10.001, Y1: 10, X2: 10.004, Y2: 20}},
		{"shorter than a hundredth", models.DocumentRect{X1: 10, Y1: 0.25, X2: 20, Y2: 0.2525}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Add(0, tt.rect); !errors.Is(err, models.ErrDegenerateRegion) {
				t.Errorf("expected ErrDegenerateRegion, got %v", err)
			}
		})
	}
	if s.Len() != 0 {
		t.Errorf("expected no regions after rejected adds, got %d", s.Len())
	}
}

func TestAddAcceptsWidthThatSurvivesRounding(t *testing.T) {
	s := New()
	// 0.002pt wide, but the edges round to 10.00 and 10.01
	mustAdd(t, s, 0, models.DocumentRect{X1: 10.004, Y1: 10, X2: 10.006, Y2: 20})
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestAddRejectsNegativePage(t *testing.T) {
	s := New()
	err := s.Add(-1, models.DocumentRect{X1: 0, Y1: 0, X2: 1, Y2: 1})
	if !errors.Is(err, models.ErrPageIndexOutOfRange) {
		t.Errorf("expected ErrPageIndexOutOfRange, got %v", err)
	}
}

func TestSetCurrentPage(t *testing.T) {
	s := New()
	for range 3 {
		if err := s.SetCurrentPage(4); err != nil {
			t.Fatalf("SetCurrentPage failed: %v", err)
		}
	}
	if s.CurrentPage() != 4 {
		t.Errorf("CurrentPage() = %d, want 4", s.CurrentPage())
	}
	if got := s.RegionsFor(4); len(got) != 0 {
		t.Errorf("expected empty page, got %v", got)
	}
	if got := s.PagesWithRegions(); len(got) != 0 {
		t.Errorf("visited but empty pages must not be listed, got %v", got)
	}
}

func TestClearPage(t *testing.T) {
	s := New()
	r := models.DocumentRect{X1: 0, Y1: 0, X2: 10, Y2: 10}
	for _, page := range []int{1, 2, 3} {
		mustAdd(t, s, page, r)
	}

	s.ClearPage(3)
	s.ClearPage(42) // unseen page

	if diff := cmp.Diff([]int{1, 2}, s.PagesWithRegions()); diff != "" {
		t.Errorf("PagesWithRegions mismatch (-want +got):\n%s", diff)
	}
	if len(s.RegionsFor(1)) != 1 || len(s.RegionsFor(2)) != 1 {
		t.Error("pages 1 and 2 must be unaffected")
	}
	if len(s.RegionsFor(3)) != 0 {
		t.Error("page 3 must be empty")
	}
}

func TestClearAll(t *testing.T) {
	s := New()
	mustAdd(t, s, 0, models.DocumentRect{X1: 0, Y1: 0, X2: 1, Y2: 1})
	mustAdd(t, s, 7, models.DocumentRect{X1: 0, Y1: 0, X2: 1, Y2: 1})
	s.ClearAll()
	if s.Len() != 0 || len(s.PagesWithRegions()) != 0 {
		t.Errorf("expected empty store, got %d regions", s.Len())
	}
}

func TestRegionsForReturnsCopy(t *testing.T) {
	s := New()
	mustAdd(t, s, 0, models.DocumentRect{X1: 0, Y1: 0, X2: 1, Y2: 1})
	got := s.RegionsFor(0)
	got[0].X2 = 99
	if s.RegionsFor(0)[0].X2 != 1 {
		t.Error("mutating the returned slice changed the store")
	}
}

func TestClone(t *testing.T) {
	s := New()
	mustAdd(t, s, 3, models.DocumentRect{X1: 0, Y1: 0, X2: 1, Y2: 1})
	s.SetCurrentPage(3)

	c := s.Clone()
	if !c.Equal(s, 0) || c.CurrentPage() != 3 {
		t.Fatal("clone differs from original")
	}
	mustAdd(t, c, 3, models.DocumentRect{X1: 2, Y1: 2, X2: 3, Y2: 3})
	c.ClearAll()
	if s.Len() != 1 {
		t.Errorf("changing the clone changed the original: Len = %d", s.Len())
	}
}

func TestPagesWithRegionsSorted(t *testing.T) {
	s := New()
	for _, page := range []int{9, 0, 4, 2} {
		mustAdd(t, s, page, models.DocumentRect{X1: 0, Y1: 0, X2: 1, Y2: 1})
	}
	if diff := cmp.Diff([]int{0, 2, 4, 9}, s.PagesWithRegions()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestEqual(t *testing.T) {
	a, b := New(), New()
	mustAdd(t, a, 1, models.DocumentRect{X1: 1.004, Y1: 2, X2: 3, Y2: 4})
	mustAdd(t, b, 1, models.DocumentRect{X1: 1, Y1: 2, X2: 3, Y2: 4})
	if !a.Equal(b, 0.005) {
		t.Error("expected stores to be equal within tolerance")
	}
	if a.Equal(b, 0.001) {
		t.Error("expected stores to differ at tighter tolerance")
	}
	b.SetCurrentPage(5)
	if !a.Equal(b, 0.005) {
		t.Error("empty pages must not affect equality")
	}
}
