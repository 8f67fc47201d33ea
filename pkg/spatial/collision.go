package spatial

import (
	"fmt"

	"github.com/chazu/polyedit/pkg/geom"
)

// CollisionSystem is a bounding-volume index over comparable items. It is
// not safe for concurrent use; Index serializes access to it.
type CollisionSystem[T comparable] interface {
	// Add inserts an item. Adding an item twice is an invariant violation.
	Add(item T, bounds geom.Bounds)
	// Update replaces the bounds of an existing item.
	Update(item T, bounds geom.Bounds)
	// Remove deletes an existing item.
	Remove(item T)
	Has(item T) bool
	Bounds(item T) (geom.Bounds, bool)
	// IntersectedBy returns up to limit items whose bounds overlap bounds,
	// touching included. A limit of zero or less means no limit.
	IntersectedBy(bounds geom.Bounds, limit int) []T
	// ContainedBy returns up to limit items whose bounds lie inside bounds.
	ContainedBy(bounds geom.Bounds, limit int) []T
	Len() int
}

// Backend selects the CollisionSystem implementation behind an Index.
type Backend string

const (
	// BackendRTree stores items in an R-tree.
	BackendRTree Backend = "rtree"
	// BackendFlat scans a flat array of boxes.
	BackendFlat Backend = "flat"
)

// ParseBackend validates a backend name. The empty string selects the
// R-tree.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case "", BackendRTree:
		return BackendRTree, nil
	case BackendFlat:
		return BackendFlat, nil
	default:
		return "", fmt.Errorf("spatial: unknown collision backend %q", s)
	}
}

func newSystem[T comparable](b Backend) CollisionSystem[T] {
	if b == BackendFlat {
		return NewFlatSystem[T]()
	}
	return NewRTree[T]()
}
