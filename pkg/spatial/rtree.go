package spatial

import (
	"github.com/chazu/polyedit/pkg/geom"
	"github.com/chazu/polyedit/pkg/invariant"
	"github.com/dhconnelly/rtreego"
)

const (
	rtreeMinChildren = 25
	rtreeMaxChildren = 50
	// rectPadding grows every rectangle handed to the tree. rtreego treats
	// touching rectangles as disjoint and rejects zero-size ones; exact
	// overlap is decided on the unpadded bounds afterwards.
	rectPadding = 1e-6
)

type rtreeEntry[T comparable] struct {
	item   T
	bounds geom.Bounds
	rect   rtreego.Rect
}

func (e *rtreeEntry[T]) Bounds() rtreego.Rect { return e.rect }

// RTree is a CollisionSystem backed by github.com/dhconnelly/rtreego.
type RTree[T comparable] struct {
	tree    *rtreego.Rtree
	entries map[T]*rtreeEntry[T]
}

// NewRTree returns an empty three-dimensional R-tree.
func NewRTree[T comparable]() *RTree[T] {
	return &RTree[T]{
		tree:    rtreego.NewTree(3, rtreeMinChildren, rtreeMaxChildren),
		entries: make(map[T]*rtreeEntry[T]),
	}
}

func toRect(b geom.Bounds) rtreego.Rect {
	bmin, bmax := b.Min(), b.Max()
	r, err := rtreego.NewRectFromPoints(
		rtreego.Point{bmin[0] - rectPadding, bmin[1] - rectPadding, bmin[2] - rectPadding},
		rtreego.Point{bmax[0] + rectPadding, bmax[1] + rectPadding, bmax[2] + rectPadding},
	)
	invariant.Check(err == nil, "spatial: bad bounds %v: %v", b, err)
	return r
}

func (t *RTree[T]) Add(item T, bounds geom.Bounds) {
	_, exists := t.entries[item]
	invariant.Check(!exists, "spatial: item %v already indexed", item)
	e := &rtreeEntry[T]{item: item, bounds: bounds, rect: toRect(bounds)}
	t.entries[item] = e
	t.tree.Insert(e)
}

func (t *RTree[T]) Update(item T, bounds geom.Bounds) {
	e, ok := t.entries[item]
	invariant.Check(ok, "spatial: update of unindexed item %v", item)
	t.tree.Delete(e)
	e.bounds = bounds
	e.rect = toRect(bounds)
	t.tree.Insert(e)
}

func (t *RTree[T]) Remove(item T) {
	e, ok := t.entries[item]
	invariant.Check(ok, "spatial: removal of unindexed item %v", item)
	t.tree.Delete(e)
	delete(t.entries, item)
}

func (t *RTree[T]) Has(item T) bool {
	_, ok := t.entries[item]
	return ok
}

func (t *RTree[T]) Bounds(item T) (geom.Bounds, bool) {
	e, ok := t.entries[item]
	if !ok {
		return geom.Bounds{}, false
	}
	return e.bounds, true
}

func (t *RTree[T]) Len() int { return len(t.entries) }

func (t *RTree[T]) IntersectedBy(bounds geom.Bounds, limit int) []T {
	return t.search(bounds, limit, bounds.Intersects)
}

func (t *RTree[T]) ContainedBy(bounds geom.Bounds, limit int) []T {
	return t.search(bounds, limit, bounds.ContainsBounds)
}

func (t *RTree[T]) search(bounds geom.Bounds, limit int, keep func(geom.Bounds) bool) []T {
	filters := []rtreego.Filter{func(_ []rtreego.Spatial, obj rtreego.Spatial) (bool, bool) {
		return !keep(obj.(*rtreeEntry[T]).bounds), false
	}}
	if limit > 0 {
		filters = append(filters, rtreego.LimitFilter(limit))
	}
	found := t.tree.SearchIntersect(toRect(bounds), filters...)
	out := make([]T, len(found))
	for i, obj := range found {
		out[i] = obj.(*rtreeEntry[T]).item
	}
	return out
}
