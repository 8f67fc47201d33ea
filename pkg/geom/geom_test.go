package geom

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func vecNear(a, b mgl64.Vec3) bool {
	return a.Sub(b).Len() < 1e-9
}

func TestNewellClockwiseSquare(t *testing.T) {
	// Clockwise when viewed from +Y.
	square := []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}}
	n := SafeNormalize(Newell(square))
	if !vecNear(n, mgl64.Vec3{0, 1, 0}) {
		t.Errorf("normal = %v, want +Y", n)
	}
	if got := Newell(square).Len(); math.Abs(got-2) > 1e-9 {
		t.Errorf("|newell| = %v, want twice the area (2)", got)
	}
}

func TestNewellTooFewPoints(t *testing.T) {
	if n := Newell([]mgl64.Vec3{{0, 0, 0}, {1, 0, 0}}); n != (mgl64.Vec3{}) {
		t.Errorf("Newell of a segment = %v, want zero", n)
	}
}

func TestPlaneSideAndDistance(t *testing.T) {
	p := NewPlane(mgl64.Vec3{0, 2, 0}, mgl64.Vec3{0, 1, 0})
	tests := []struct {
		name string
		pt   mgl64.Vec3
		dist float64
		side bool
	}{
		{"above", mgl64.Vec3{5, 3, 1}, 2, true},
		{"below", mgl64.Vec3{0, -1, 0}, -2, false},
		{"on", mgl64.Vec3{4, 1, 4}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if d := p.GetDistanceToPoint(tt.pt); math.Abs(d-tt.dist) > 1e-9 {
				t.Errorf("distance = %v, want %v", d, tt.dist)
			}
			if s := p.GetSide(tt.pt); s != tt.side {
				t.Errorf("side = %v, want %v", s, tt.side)
			}
		})
	}
}

func TestPlaneRaycast(t *testing.T) {
	p := NewPlane(mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 0, 5})

	d, ok := p.Raycast(NewRay(mgl64.Vec3{}, mgl64.Vec3{0, 0, 1}))
	if !ok || math.Abs(d-5) > 1e-9 {
		t.Errorf("forward raycast = (%v, %v), want (5, true)", d, ok)
	}
	if _, ok := p.Raycast(NewRay(mgl64.Vec3{}, mgl64.Vec3{0, 0, -1})); ok {
		t.Error("raycast away from the plane should fail")
	}
	if _, ok := p.Raycast(NewRay(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0})); ok {
		t.Error("parallel raycast should fail")
	}
}

func TestBoundsOperations(t *testing.T) {
	b := NewBoundsMinMax(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 2, 2})
	if !vecNear(b.Center, mgl64.Vec3{1, 1, 1}) {
		t.Errorf("center = %v", b.Center)
	}
	if !b.Contains(mgl64.Vec3{2, 2, 2}) {
		t.Error("max corner should be contained")
	}
	if b.Contains(mgl64.Vec3{2.1, 0, 0}) {
		t.Error("outside point reported contained")
	}
	o := NewBoundsMinMax(mgl64.Vec3{2, 2, 2}, mgl64.Vec3{3, 3, 3})
	if !b.Intersects(o) {
		t.Error("touching boxes should intersect")
	}
	far := NewBoundsMinMax(mgl64.Vec3{5, 5, 5}, mgl64.Vec3{6, 6, 6})
	if b.Intersects(far) {
		t.Error("disjoint boxes reported intersecting")
	}
	if got := b.SqrDistance(mgl64.Vec3{4, 1, 1}); math.Abs(got-4) > 1e-9 {
		t.Errorf("SqrDistance = %v, want 4", got)
	}
	u := b.EncapsulateBounds(far)
	if !vecNear(u.Min(), mgl64.Vec3{}) || !vecNear(u.Max(), mgl64.Vec3{6, 6, 6}) {
		t.Errorf("union = [%v %v]", u.Min(), u.Max())
	}
}

func TestBoundsTransformRotation(t *testing.T) {
	b := NewBoundsMinMax(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 1, 1})
	rot := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})
	tb := b.Transform(mgl64.Vec3{10, 0, 0}, rot)
	if !vecNear(tb.Size(), mgl64.Vec3{1, 2, 1}) {
		t.Errorf("rotated size = %v, want (1,2,1)", tb.Size())
	}
	if math.Abs(tb.Center[0]-(10-0.5)) > 1e-9 {
		t.Errorf("rotated center x = %v, want 9.5", tb.Center[0])
	}
}
