// Package tessellate converts editable meshes into the flat triangle buffers
// a renderer consumes. Faces are ear-clipped, positions are emitted in model
// space and every triangle carries its face's model-space normal, so
// adjacent faces never share a buffer vertex. Holes are not cut.
package tessellate

import (
	"fmt"

	"github.com/chazu/polyedit/pkg/kernel"
	"github.com/chazu/polyedit/pkg/mesh"
	"github.com/chazu/polyedit/pkg/meshutil"
)

// MeshSource lists the meshes of a scene and which of them are hidden.
type MeshSource interface {
	GetAllMeshes() []*mesh.MMesh
	IsMeshHidden(id int) bool
}

// Tessellate builds the buffer for one mesh. The buffer is named after the
// mesh id.
func Tessellate(m *mesh.MMesh) *kernel.Mesh {
	if m == nil {
		return &kernel.Mesh{}
	}
	out := &kernel.Mesh{Name: Name(m.ID())}
	for _, f := range m.Faces() {
		if f.Len() < 3 {
			continue
		}
		normal := m.FaceNormalModelSpace(f)
		for _, tri := range meshutil.TriangulateFace(m, f) {
			// Faces are clockwise from the front; buffers are
			// counter-clockwise.
			a := out.AddVertex(m.VertexPositionInModelCoords(tri[0]), normal)
			b := out.AddVertex(m.VertexPositionInModelCoords(tri[2]), normal)
			c := out.AddVertex(m.VertexPositionInModelCoords(tri[1]), normal)
			out.AddTriangle(a, b, c)
		}
	}
	return out
}

// TessellateModel builds one buffer per visible mesh, in ascending id
// order.
func TessellateModel(src MeshSource) []*kernel.Mesh {
	if src == nil {
		return nil
	}
	var out []*kernel.Mesh
	for _, m := range src.GetAllMeshes() {
		if src.IsMeshHidden(m.ID()) {
			continue
		}
		out = append(out, Tessellate(m))
	}
	return out
}

// Name returns the buffer name used for a mesh id.
func Name(meshID int) string {
	return fmt.Sprintf("mesh-%d", meshID)
}
