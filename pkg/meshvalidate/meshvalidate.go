// Package meshvalidate detects exposed back faces. The check is a heuristic:
// it casts rays into the solid from the triangles near an edit and reports
// the mesh invalid when a ray fails to leave it through a front face. It
// prefers reporting a sound mesh invalid over missing a broken one.
package meshvalidate

import (
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/chazu/polyedit/pkg/geom"
	"github.com/chazu/polyedit/pkg/mesh"
	"github.com/chazu/polyedit/pkg/meshutil"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/unixpickle/model3d/model3d"
)

var pkgLogger atomic.Pointer[slog.Logger]

// SetLogger sets the logger used by the package. nil restores slog.Default.
func SetLogger(l *slog.Logger) {
	pkgLogger.Store(l)
}

func logger() *slog.Logger {
	if l := pkgLogger.Load(); l != nil {
		return l
	}
	return slog.Default()
}

// Options tunes the ray test.
type Options struct {
	// Scale multiplies every mesh-space position before testing.
	Scale float64
	// Bend tilts the corner rays away from the triangle centre.
	Bend float64
	// Inflation grows each hit triangle about its centroid so rays along a
	// shared edge still register.
	Inflation float64
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{Scale: 1000, Bend: 0.1, Inflation: 1.005}
}

const (
	// fraction of the way from a corner to the centroid where corner rays start
	cornerInset = 0.1
	minHitDist  = 1e-4
)

type triangle struct {
	faceID int
	ids    [3]int
	pts    [3]mgl64.Vec3
	normal mgl64.Vec3
}

func (t triangle) centroid() mgl64.Vec3 {
	return t.pts[0].Add(t.pts[1]).Add(t.pts[2]).Mul(1.0 / 3)
}

func (t triangle) touches(set map[int]struct{}) bool {
	for _, id := range t.ids {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}

// IsValidMesh runs the check with DefaultOptions.
func IsValidMesh(m *mesh.MMesh, updatedVertexIDs []int) bool {
	return DefaultOptions().IsValidMesh(m, updatedVertexIDs)
}

// IsValidMesh reports whether every ray cast from the triangles touching an
// updated vertex leaves the mesh through a front face. An empty update list
// checks every triangle.
func (o Options) IsValidMesh(m *mesh.MMesh, updatedVertexIDs []int) bool {
	tris := o.triangles(m)
	hits := o.newHitSet(tris)

	updated := make(map[int]struct{}, len(updatedVertexIDs))
	for _, id := range updatedVertexIDs {
		updated[id] = struct{}{}
	}

	for _, t := range tris {
		if len(updated) > 0 && !t.touches(updated) {
			continue
		}
		if t.normal.Len() < geom.Epsilon {
			continue
		}
		for _, r := range o.rays(t) {
			if !hits.exits(r, t.faceID) {
				logger().Debug("meshvalidate: exposed back face", "mesh", m.ID(), "face", t.faceID)
				return false
			}
		}
	}
	return true
}

func (o Options) triangles(m *mesh.MMesh) []triangle {
	var tris []triangle
	for _, f := range m.Faces() {
		for _, ids := range meshutil.TriangulateFace(m, f) {
			t := triangle{faceID: f.ID(), ids: ids}
			for i, id := range ids {
				t.pts[i] = m.VertexLocation(id).Mul(o.Scale)
			}
			t.normal = geom.SafeNormalize(geom.Newell(t.pts[:]))
			tris = append(tris, t)
		}
	}
	return tris
}

// rays returns one ray from the centroid straight along the anti-normal and
// one from near each corner bent outward.
func (o Options) rays(t triangle) []geom.Ray {
	c := t.centroid()
	inward := t.normal.Mul(-1)
	rays := make([]geom.Ray, 0, 4)
	rays = append(rays, geom.NewRay(c, inward))
	for _, p := range t.pts {
		out := geom.SafeNormalize(p.Sub(c))
		origin := p.Add(c.Sub(p).Mul(cornerInset))
		rays = append(rays, geom.NewRay(origin, inward.Add(out.Mul(o.Bend))))
	}
	return rays
}

// hitSet is the collider rays are tested against: every non-degenerate
// triangle grown about its centroid, tagged with the face it came from.
type hitSet struct {
	collider model3d.Collider
	faces    map[*model3d.Triangle]int
}

func (o Options) newHitSet(tris []triangle) hitSet {
	hs := hitSet{faces: make(map[*model3d.Triangle]int, len(tris))}
	grown := make([]*model3d.Triangle, 0, len(tris))
	for _, t := range tris {
		if t.normal.Len() < geom.Epsilon {
			continue
		}
		c := t.centroid()
		hit := &model3d.Triangle{}
		for i, p := range t.pts {
			hit[i] = coord(c.Add(p.Sub(c).Mul(o.Inflation)))
		}
		hs.faces[hit] = t.faceID
		grown = append(grown, hit)
	}
	if len(grown) > 0 {
		hs.collider = model3d.MeshToCollider(model3d.NewMeshTriangles(grown))
	}
	return hs
}

// exits reports whether the first triangle r hits, ignoring the face it
// starts on, is crossed from inside to outside.
func (hs hitSet) exits(r geom.Ray, fromFace int) bool {
	if hs.collider == nil {
		return false
	}
	best := math.Inf(1)
	var normal model3d.Coord3D
	ray := &model3d.Ray{Origin: coord(r.Origin), Direction: coord(r.Direction)}
	hs.collider.RayCollisions(ray, func(rc model3d.RayCollision) {
		tc, ok := rc.Extra.(*model3d.TriangleCollision)
		if !ok || rc.Scale <= minHitDist || rc.Scale >= best {
			return
		}
		if face, ok := hs.faces[tc.Triangle]; !ok || face == fromFace {
			return
		}
		best, normal = rc.Scale, rc.Normal
	})
	if math.IsInf(best, 1) {
		return false
	}
	return r.Direction.Dot(vec(normal)) > 0
}

func coord(v mgl64.Vec3) model3d.Coord3D {
	return model3d.Coord3D{X: v.X(), Y: v.Y(), Z: v.Z()}
}

func vec(c model3d.Coord3D) mgl64.Vec3 {
	return mgl64.Vec3{c.X, c.Y, c.Z}
}
