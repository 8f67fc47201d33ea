// Package meshutil provides the face-level edits the repair pipeline and
// tools build on: triangulating and splitting faces, merging vertices and
// normalizing vertex cycles. Every edit goes through an open
// GeometryOperation so callers decide when to commit.
package meshutil

import (
	"github.com/chazu/polyedit/pkg/geom"
	"github.com/chazu/polyedit/pkg/invariant"
	"github.com/chazu/polyedit/pkg/mesh"
	"github.com/chazu/polyedit/pkg/meshmath"
	"github.com/go-gl/mathgl/mgl64"
)

// FaceVertexLocations returns the mesh-space positions of a face border.
func FaceVertexLocations(m *mesh.MMesh, f mesh.Face) []mgl64.Vec3 {
	return m.FaceLocations(f)
}

// FaceCenter returns the mesh-space centroid of a face border.
func FaceCenter(m *mesh.MMesh, f mesh.Face) mgl64.Vec3 {
	return geom.Centroid(m.FaceLocations(f))
}

// TriangulateFace returns the triangles of f as clockwise triples of vertex
// ids. Holes are ignored.
func TriangulateFace(m *mesh.MMesh, f mesh.Face) [][3]int {
	return triangleIDs(f.VertexIDs(), m.FaceLocations(f), f.Normal())
}

func triangleIDs(ids []int, pts []mgl64.Vec3, normal mgl64.Vec3) [][3]int {
	if normal.Len() < meshmath.Epsilon {
		normal = meshmath.CalculateNormal(pts)
	}
	tris := meshmath.Triangulate(pts, normal)
	out := make([][3]int, len(tris))
	for i, t := range tris {
		out[i] = [3]int{ids[t[0]], ids[t[1]], ids[t[2]]}
	}
	return out
}

// IsVertexConvex reports whether corner index of the buffered face is convex
// relative to the face's own Newell normal.
func IsVertexConvex(op *mesh.GeometryOperation, f mesh.Face, index int) bool {
	ids := f.VertexIDs()
	pts := meshmath.OperationLocations(op, ids)
	return meshmath.IsConvexAt(pts, index, meshmath.CalculateNormal(pts))
}

// SplitFaceAtVertex separates vertexID from face faceID. When the vertex is a
// convex corner a triangle with its two neighbours is carved off, once per
// occurrence of the id in the cycle; otherwise the whole face is
// triangulated. Holes stay with the remaining face. It reports whether the
// face changed.
func SplitFaceAtVertex(op *mesh.GeometryOperation, faceID, vertexID int) bool {
	f, ok := op.GetCurrentFace(faceID)
	invariant.Check(ok, "split of missing face %d", faceID)
	if f.IndexOf(vertexID) < 0 || f.Len() <= 3 {
		return false
	}

	cycle := f.VertexIDs()
	for i := range cycle {
		if cycle[i] == vertexID && !IsVertexConvex(op, f, i) {
			return TriangulateInPlace(op, faceID)
		}
	}

	props := f.Properties()
	for len(cycle) > 3 {
		i := indexOf(cycle, vertexID)
		if i < 0 {
			break
		}
		n := len(cycle)
		prev, next := cycle[(i-1+n)%n], cycle[(i+1)%n]
		op.AddFace([]int{prev, vertexID, next}, props)
		cycle = append(cycle[:i:i], cycle[i+1:]...)
	}
	op.ModifyFaceWithHoles(faceID, cycle, f.Holes(), props)
	return true
}

// TriangulateInPlace replaces a face by its ear triangulation, keeping the
// face id for the first triangle. It reports whether anything changed.
func TriangulateInPlace(op *mesh.GeometryOperation, faceID int) bool {
	f, ok := op.GetCurrentFace(faceID)
	invariant.Check(ok, "triangulation of missing face %d", faceID)
	if f.Len() <= 3 {
		return false
	}
	ids := f.VertexIDs()
	pts := meshmath.OperationLocations(op, ids)
	tris := triangleIDs(ids, pts, meshmath.CalculateNormal(pts))
	props := f.Properties()
	op.ModifyFace(faceID, tris[0][:], props)
	for _, t := range tris[1:] {
		op.AddFace(t[:], props)
	}
	return true
}

// MergeVertices re-points every reference to remove at keep, holes included,
// and deletes remove. The caller runs the cycle normalizers afterwards.
func MergeVertices(op *mesh.GeometryOperation, keep, remove int) {
	invariant.Check(keep != remove, "merge of vertex %d into itself", keep)
	for _, fid := range op.FacesUsingVertex(remove) {
		f, _ := op.GetCurrentFace(fid)
		holes := f.Holes()
		for i, h := range holes {
			holes[i] = mesh.NewHole(replaceID(h.VertexIDs(), remove, keep), h.Normals())
		}
		op.ModifyFaceWithHoles(fid, replaceID(f.VertexIDs(), remove, keep), holes, f.Properties())
	}
	op.DeleteVertex(remove)
}

// FlipFace reverses the winding of a face, turning its normal around.
func FlipFace(op *mesh.GeometryOperation, faceID int) {
	f, ok := op.GetCurrentFace(faceID)
	invariant.Check(ok, "flip of missing face %d", faceID)
	ids := f.VertexIDs()
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	op.ModifyFaceWithHoles(faceID, ids, f.Holes(), f.Properties())
}

// DedupeAdjacent drops consecutive repeats from a cyclic id list, including
// a repeat across the wrap. The input is not modified.
func DedupeAdjacent(ids []int) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if len(out) > 0 && out[len(out)-1] == id {
			continue
		}
		out = append(out, id)
	}
	for len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}

// RemoveSpikes collapses every a,b,a run in a cyclic id list to a, and
// consecutive repeats with it, until none is left. The input is not modified.
func RemoveSpikes(ids []int) []int {
	out := DedupeAdjacent(ids)
	for {
		n := len(out)
		if n < 3 {
			return out
		}
		spike := -1
		for i := 0; i < n; i++ {
			if out[i] == out[(i+2)%n] {
				spike = i
				break
			}
		}
		if spike < 0 {
			return out
		}
		// Drop the middle element and the second occurrence.
		drop := map[int]bool{(spike + 1) % n: true, (spike + 2) % n: true}
		next := make([]int, 0, n-2)
		for i, id := range out {
			if !drop[i] {
				next = append(next, id)
			}
		}
		out = DedupeAdjacent(next)
	}
}

// HasAdjacentDuplicate reports whether a cyclic id list repeats an id in
// consecutive positions.
func HasAdjacentDuplicate(ids []int) bool {
	n := len(ids)
	if n < 2 {
		return false
	}
	for i := range ids {
		if ids[i] == ids[(i+1)%n] {
			return true
		}
	}
	return false
}

// HasSpike reports whether a cyclic id list contains an a,b,a run.
func HasSpike(ids []int) bool {
	n := len(ids)
	if n < 3 {
		return false
	}
	for i := range ids {
		if ids[i] == ids[(i+2)%n] {
			return true
		}
	}
	return false
}

func indexOf(ids []int, id int) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func replaceID(ids []int, from, to int) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		if id == from {
			id = to
		}
		out[i] = id
	}
	return out
}
