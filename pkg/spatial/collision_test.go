package spatial

import (
	"reflect"
	"sort"
	"testing"

	"github.com/chazu/polyedit/pkg/geom"
	"github.com/chazu/polyedit/pkg/invariant"
	"github.com/go-gl/mathgl/mgl64"
)

func expectViolation(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if _, ok := r.(*invariant.Violation); !ok {
			t.Fatalf("expected invariant violation, got %v", r)
		}
	}()
	fn()
}

func unitAt(x, y, z float64) geom.Bounds {
	return geom.NewBounds(mgl64.Vec3{x, y, z}, mgl64.Vec3{1, 1, 1})
}

func sorted(ids []int) []int {
	out := append([]int(nil), ids...)
	sort.Ints(out)
	return out
}

var backends = []Backend{BackendRTree, BackendFlat}

func TestCollisionSystem(t *testing.T) {
	for _, b := range backends {
		t.Run(string(b), func(t *testing.T) {
			s := newSystem[int](b)
			for i := 0; i < 10; i++ {
				s.Add(i, unitAt(float64(i)*2, 0, 0))
			}
			if s.Len() != 10 {
				t.Fatalf("Len = %d", s.Len())
			}

			got := sorted(s.IntersectedBy(geom.NewBoundsMinMax(mgl64.Vec3{1.5, -1, -1}, mgl64.Vec3{4.5, 1, 1}), 0))
			if !reflect.DeepEqual(got, []int{1, 2}) {
				t.Errorf("IntersectedBy = %v, want [1 2]", got)
			}

			// The query touches box 0 at x=0.5 and box 1 at x=1.5.
			touch := geom.NewBoundsMinMax(mgl64.Vec3{0.5, 0, 0}, mgl64.Vec3{1.5, 0, 0})
			if got := sorted(s.IntersectedBy(touch, 0)); !reflect.DeepEqual(got, []int{0, 1}) {
				t.Errorf("IntersectedBy touching = %v, want [0 1]", got)
			}

			got = sorted(s.ContainedBy(geom.NewBoundsMinMax(mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{5, 1, 1}), 0))
			if !reflect.DeepEqual(got, []int{0, 1, 2}) {
				t.Errorf("ContainedBy = %v, want [0 1 2]", got)
			}

			if got := s.IntersectedBy(geom.NewBoundsMinMax(mgl64.Vec3{-5, -5, -5}, mgl64.Vec3{50, 5, 5}), 3); len(got) != 3 {
				t.Errorf("limited search returned %d items", len(got))
			}

			s.Update(3, unitAt(100, 0, 0))
			if got := s.IntersectedBy(unitAt(6, 0, 0), 0); len(got) != 0 {
				t.Errorf("found %v at the old place of a moved item", got)
			}
			if bb, ok := s.Bounds(3); !ok || bb.Center != (mgl64.Vec3{100, 0, 0}) {
				t.Errorf("Bounds(3) = %v, %v", bb, ok)
			}

			s.Remove(0)
			s.Remove(9)
			if s.Has(0) || s.Has(9) || !s.Has(5) || s.Len() != 8 {
				t.Errorf("after removal: Has(0)=%v Has(9)=%v Has(5)=%v Len=%d", s.Has(0), s.Has(9), s.Has(5), s.Len())
			}
			if got := sorted(s.IntersectedBy(unitAt(10, 0, 0), 0)); !reflect.DeepEqual(got, []int{5}) {
				t.Errorf("IntersectedBy after removal = %v, want [5]", got)
			}
			if _, ok := s.Bounds(0); ok {
				t.Error("Bounds found a removed item")
			}

			expectViolation(t, func() { s.Add(5, unitAt(0, 0, 0)) })
			expectViolation(t, func() { s.Remove(42) })
			expectViolation(t, func() { s.Update(42, unitAt(0, 0, 0)) })
		})
	}
}

func TestPointItems(t *testing.T) {
	for _, b := range backends {
		t.Run(string(b), func(t *testing.T) {
			s := newSystem[VertexKey](b)
			s.Add(VertexKey{1, 0}, geom.Bounds{Center: mgl64.Vec3{1, 1, 1}})
			s.Add(VertexKey{1, 1}, geom.Bounds{Center: mgl64.Vec3{3, 1, 1}})
			got := s.IntersectedBy(unitAt(1, 1, 1), 0)
			if !reflect.DeepEqual(got, []VertexKey{{1, 0}}) {
				t.Errorf("IntersectedBy = %v", got)
			}
		})
	}
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{"", BackendRTree, false},
		{"rtree", BackendRTree, false},
		{"flat", BackendFlat, false},
		{"octree", "", true},
	}
	for _, tt := range tests {
		got, err := ParseBackend(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseBackend(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestFlatSystemSwapRemove(t *testing.T) {
	s := NewFlatSystem[string]()
	s.Add("a", unitAt(0, 0, 0))
	s.Add("b", unitAt(2, 0, 0))
	s.Add("c", unitAt(4, 0, 0))
	s.Remove("a")
	if s.entries[0].item != "c" || s.index["c"] != 0 {
		t.Errorf("last entry not moved into the freed slot: %v", s.entries)
	}
	s.Update("c", unitAt(8, 0, 0))
	if bb, _ := s.Bounds("c"); bb.Center != (mgl64.Vec3{8, 0, 0}) {
		t.Errorf("Bounds(c) = %v", bb)
	}
}
