package kernel

import "github.com/go-gl/mathgl/mgl64"

// Mesh is a flat triangle buffer. Vertices and Normals hold three floats per
// vertex and Indices three entries per triangle. Triangles are wound
// counter-clockwise when seen from the front, the order renderers and STL
// expect.
type Mesh struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Name     string    `json:"name"`
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty reports whether the buffer has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Position returns vertex i as a double-precision vector.
func (m *Mesh) Position(i int) mgl64.Vec3 {
	return mgl64.Vec3{float64(m.Vertices[3*i]), float64(m.Vertices[3*i+1]), float64(m.Vertices[3*i+2])}
}

// Normal returns the normal stored for vertex i.
func (m *Mesh) Normal(i int) mgl64.Vec3 {
	return mgl64.Vec3{float64(m.Normals[3*i]), float64(m.Normals[3*i+1]), float64(m.Normals[3*i+2])}
}

// Triangle returns the vertex indices of triangle t.
func (m *Mesh) Triangle(t int) [3]int {
	return [3]int{int(m.Indices[3*t]), int(m.Indices[3*t+1]), int(m.Indices[3*t+2])}
}

// AddVertex appends a vertex with its normal and returns its index.
func (m *Mesh) AddVertex(p, n mgl64.Vec3) uint32 {
	idx := uint32(m.VertexCount())
	m.Vertices = append(m.Vertices, float32(p[0]), float32(p[1]), float32(p[2]))
	m.Normals = append(m.Normals, float32(n[0]), float32(n[1]), float32(n[2]))
	return idx
}

// AddTriangle appends one triangle.
func (m *Mesh) AddTriangle(a, b, c uint32) {
	m.Indices = append(m.Indices, a, b, c)
}
