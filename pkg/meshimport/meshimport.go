// Package meshimport turns triangle soup from a kernel or an interchange
// file into an editable mesh. Positions closer than the weld distance share
// one vertex, every surviving triangle becomes a face, and coplanar
// neighbours can be coalesced back into polygons.
package meshimport

import (
	"math"

	"github.com/chazu/polyedit/pkg/geom"
	"github.com/chazu/polyedit/pkg/kernel"
	"github.com/chazu/polyedit/pkg/mesh"
	"github.com/chazu/polyedit/pkg/meshmath"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

// Options controls FromTriangles.
type Options struct {
	// WeldDistance merges positions closer than this. Zero uses
	// meshmath.MergeDistance.
	WeldDistance float64
	// Coalesce merges coplanar neighbouring faces after welding.
	Coalesce bool
	// Properties is applied to every face.
	Properties mesh.FaceProperties
}

// FromTriangles builds mesh id from a triangle buffer. The mesh offset is
// the centre of the input bounds, so vertices are stored relative to it.
// Triangles that collapse under welding are dropped.
func FromTriangles(id int, km *kernel.Mesh, opts Options) *mesh.MMesh {
	weld := opts.WeldDistance
	if weld <= 0 {
		weld = meshmath.MergeDistance
	}

	positions := make([]mgl64.Vec3, km.VertexCount())
	for i := range positions {
		positions[i] = km.Position(i)
	}
	center := geom.BoundsOf(positions).Center

	w := newWelder(weld)
	remap := make([]int, len(positions))
	for i, p := range positions {
		remap[i] = w.add(p.Sub(center))
	}

	var faces []mesh.Face
	for t := 0; t < km.TriangleCount(); t++ {
		tri := km.Triangle(t)
		a, b, c := remap[tri[0]], remap[tri[1]], remap[tri[2]]
		if a == b || b == c || a == c {
			continue
		}
		// Buffers are counter-clockwise; faces are clockwise.
		faces = append(faces, mesh.NewFace(len(faces), []int{a, c, b}, mgl64.Vec3{}, opts.Properties))
	}

	used := make(map[int]struct{}, len(w.points))
	for _, f := range faces {
		for _, vid := range f.VertexIDs() {
			used[vid] = struct{}{}
		}
	}
	var verts []mesh.Vertex
	for vid, p := range w.points {
		if _, ok := used[vid]; ok {
			verts = append(verts, mesh.NewVertex(vid, p))
		}
	}

	m := mesh.New(id, center, mgl64.QuatIdent(), verts, faces)
	if opts.Coalesce {
		CoalesceCoplanarFaces(m)
	}
	return m
}

// welder assigns one id per cluster of positions, hashing them into cubic
// cells the size of the weld distance.
type welder struct {
	dist   float64
	points []mgl64.Vec3
	cells  map[[3]int64][]int
}

func newWelder(dist float64) *welder {
	return &welder{dist: dist, cells: make(map[[3]int64][]int)}
}

func (w *welder) cell(p mgl64.Vec3) [3]int64 {
	return [3]int64{
		int64(math.Floor(p[0] / w.dist)),
		int64(math.Floor(p[1] / w.dist)),
		int64(math.Floor(p[2] / w.dist)),
	}
}

func (w *welder) add(p mgl64.Vec3) int {
	c := w.cell(p)
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				for _, id := range w.cells[[3]int64{c[0] + dx, c[1] + dy, c[2] + dz}] {
					if w.points[id].Sub(p).Len() < w.dist {
						return id
					}
				}
			}
		}
	}
	id := len(w.points)
	w.points = append(w.points, p)
	w.cells[c] = append(w.cells[c], id)
	return id
}

// CoalesceCoplanarFaces merges pairs of faces that share exactly one edge,
// carry the same properties, have no holes and together lie within
// meshmath.MaxCoplanarDistance of one plane. It reports whether any faces
// were merged.
func CoalesceCoplanarFaces(m *mesh.MMesh) bool {
	op := m.StartOperation()
	changed := false
	for _, fid := range op.CurrentFaceIDs() {
		if _, ok := op.GetCurrentFace(fid); !ok {
			continue
		}
		for absorbNeighbour(op, fid) {
			changed = true
		}
	}
	if changed {
		op.Commit()
	} else {
		op.Abort()
	}
	return changed
}

// absorbNeighbour merges the first eligible neighbour of fid into it.
func absorbNeighbour(op *mesh.GeometryOperation, fid int) bool {
	f, _ := op.GetCurrentFace(fid)
	if len(f.Holes()) > 0 {
		return false
	}
	ids := f.VertexIDs()
	n := len(ids)
	for i := range ids {
		a, b := ids[i], ids[(i+1)%n]
		shared := lo.Without(lo.Intersect(op.FacesUsingVertex(a), op.FacesUsingVertex(b)), fid)
		for _, gid := range shared {
			g, _ := op.GetCurrentFace(gid)
			if g.Properties() != f.Properties() || len(g.Holes()) > 0 {
				continue
			}
			merged, ok := spliceAlongEdge(ids, g.VertexIDs(), a, b)
			if !ok {
				continue
			}
			pts := meshmath.OperationLocations(op, merged)
			if !meshmath.IsCoplanar(pts, meshmath.MaxCoplanarDistance) {
				continue
			}
			if meshmath.CalculateNormal(pts).Dot(f.Normal()) <= 0 {
				continue
			}
			op.ModifyFace(fid, merged, f.Properties())
			op.DeleteFace(gid)
			return true
		}
	}
	return false
}

// spliceAlongEdge joins cycle f, which runs a to b, with cycle g, which
// runs b to a, into one cycle without the shared edge. ok is false when g
// does not contain the reversed edge or the result would repeat a vertex.
func spliceAlongEdge(f, g []int, a, b int) ([]int, bool) {
	gi := -1
	for i := range g {
		if g[i] == b && g[(i+1)%len(g)] == a {
			gi = i
			break
		}
	}
	if gi < 0 {
		return nil, false
	}
	fi := lo.IndexOf(f, b)
	// f from b round to a, then g after a round to before b.
	out := make([]int, 0, len(f)+len(g)-2)
	for k := 0; k < len(f); k++ {
		out = append(out, f[(fi+k)%len(f)])
	}
	for k := 2; k < len(g); k++ {
		out = append(out, g[(gi+k)%len(g)])
	}
	if len(lo.Uniq(out)) != len(out) {
		return nil, false
	}
	return out, true
}
