package mesh

import "github.com/go-gl/mathgl/mgl64"

// boxFaces lists the box faces, clockwise from outside. Corners 0-3 are the
// bottom ring and 4-7 the top ring, each starting at -X-Z and turning to +X.
var boxFaces = [6][4]int{
	{0, 3, 2, 1}, // -Y
	{4, 5, 6, 7}, // +Y
	{0, 1, 5, 4}, // -Z
	{3, 7, 6, 2}, // +Z
	{0, 4, 7, 3}, // -X
	{1, 2, 6, 5}, // +X
}

// NewBox returns an axis-aligned box of the given size whose mesh-space
// origin is its centre, placed at center in model space.
func NewBox(id int, center, size mgl64.Vec3, props FaceProperties) *MMesh {
	h := size.Mul(0.5)
	corners := [8]mgl64.Vec3{
		{-h[0], -h[1], -h[2]},
		{h[0], -h[1], -h[2]},
		{h[0], -h[1], h[2]},
		{-h[0], -h[1], h[2]},
		{-h[0], h[1], -h[2]},
		{h[0], h[1], -h[2]},
		{h[0], h[1], h[2]},
		{-h[0], h[1], h[2]},
	}
	verts := make([]Vertex, len(corners))
	for i, c := range corners {
		verts[i] = NewVertex(i, c)
	}
	faces := make([]Face, len(boxFaces))
	for i, ids := range boxFaces {
		faces[i] = NewFace(i, ids[:], mgl64.Vec3{}, props)
	}
	return New(id, center, mgl64.QuatIdent(), verts, faces)
}
