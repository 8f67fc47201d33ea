package mesh

import (
	"fmt"
	"sort"
)

// ValidationSeverity indicates whether a finding means the mesh is corrupt
// or merely untidy.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // corrupt; the mesh cannot be trusted
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single structural finding.
type ValidationError struct {
	MeshID   int
	FaceID   int // -1 if the finding is not about a face
	VertexID int // -1 if the finding is not about a vertex
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	switch {
	case e.FaceID >= 0:
		return fmt.Sprintf("[%s] mesh %d face %d: %s", e.Severity, e.MeshID, e.FaceID, e.Message)
	case e.VertexID >= 0:
		return fmt.Sprintf("[%s] mesh %d vertex %d: %s", e.Severity, e.MeshID, e.VertexID, e.Message)
	default:
		return fmt.Sprintf("[%s] mesh %d: %s", e.Severity, e.MeshID, e.Message)
	}
}

// HasErrors reports whether any finding has error severity.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate runs the structural checks on m and returns every finding. An
// empty slice means the mesh is consistent. Validate never mutates m.
func Validate(m *MMesh) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateReferences(m)...)
	errs = append(errs, validateHoles(m)...)
	errs = append(errs, validateReverseTable(m)...)
	errs = append(errs, validateFaceSizes(m)...)
	errs = append(errs, validateUnusedVertices(m)...)
	return errs
}

func faceError(m *MMesh, faceID int, sev ValidationSeverity, format string, args ...any) ValidationError {
	return ValidationError{MeshID: m.id, FaceID: faceID, VertexID: -1, Message: fmt.Sprintf(format, args...), Severity: sev}
}

func vertexError(m *MMesh, vertexID int, sev ValidationSeverity, format string, args ...any) ValidationError {
	return ValidationError{MeshID: m.id, FaceID: -1, VertexID: vertexID, Message: fmt.Sprintf(format, args...), Severity: sev}
}

// validateReferences checks that every face refers only to existing vertices.
func validateReferences(m *MMesh) []ValidationError {
	var errs []ValidationError
	for _, f := range m.Faces() {
		for _, vid := range f.allVertexIDs() {
			if !m.HasVertex(vid) {
				errs = append(errs, faceError(m, f.id, SeverityError, "references missing vertex %d", vid))
			}
		}
	}
	return errs
}

// validateHoles checks that each hole carries one normal per vertex.
func validateHoles(m *MMesh) []ValidationError {
	var errs []ValidationError
	for _, f := range m.Faces() {
		for i, h := range f.holes {
			if len(h.vertexIDs) != len(h.normals) {
				errs = append(errs, faceError(m, f.id, SeverityError,
					"hole %d has %d vertices but %d normals", i, len(h.vertexIDs), len(h.normals)))
			}
		}
	}
	return errs
}

// validateReverseTable rebuilds adjacency from the faces and compares it with
// the incrementally maintained table.
func validateReverseTable(m *MMesh) []ValidationError {
	want := make(map[int]map[int]struct{})
	for _, f := range m.faces {
		for _, vid := range f.allVertexIDs() {
			if want[vid] == nil {
				want[vid] = make(map[int]struct{})
			}
			want[vid][f.id] = struct{}{}
		}
	}

	vids := make(map[int]struct{}, len(want)+len(m.reverseTable))
	for vid := range want {
		vids[vid] = struct{}{}
	}
	for vid := range m.reverseTable {
		vids[vid] = struct{}{}
	}
	sorted := make([]int, 0, len(vids))
	for vid := range vids {
		sorted = append(sorted, vid)
	}
	sort.Ints(sorted)

	var errs []ValidationError
	for _, vid := range sorted {
		if !sameSet(want[vid], m.reverseTable[vid]) {
			errs = append(errs, vertexError(m, vid, SeverityError,
				"adjacency lists faces %v, faces actually using it are %v", m.ReverseTableValue(vid), sortedKeys(want[vid])))
		}
	}
	return errs
}

// validateFaceSizes flags faces that have collapsed below a triangle.
func validateFaceSizes(m *MMesh) []ValidationError {
	var errs []ValidationError
	for _, f := range m.Faces() {
		if len(f.vertexIDs) < 3 {
			errs = append(errs, faceError(m, f.id, SeverityWarning, "has only %d vertices", len(f.vertexIDs)))
		}
	}
	return errs
}

// validateUnusedVertices flags vertices no face refers to.
func validateUnusedVertices(m *MMesh) []ValidationError {
	var errs []ValidationError
	for _, id := range m.VertexIDs() {
		if len(m.reverseTable[id]) == 0 {
			errs = append(errs, vertexError(m, id, SeverityWarning, "is not used by any face"))
		}
	}
	return errs
}

func sameSet(a, b map[int]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func sortedKeys(s map[int]struct{}) []int {
	out := make([]int, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
