package spatial

import (
	"github.com/chazu/polyedit/pkg/geom"
	"github.com/chazu/polyedit/pkg/invariant"
)

type flatEntry[T comparable] struct {
	item   T
	bounds geom.Bounds
}

// FlatSystem is a CollisionSystem over a packed array of boxes. Queries
// scan every entry; removal swaps the last entry into the freed slot.
type FlatSystem[T comparable] struct {
	entries []flatEntry[T]
	index   map[T]int
}

// NewFlatSystem returns an empty flat system.
func NewFlatSystem[T comparable]() *FlatSystem[T] {
	return &FlatSystem[T]{index: make(map[T]int)}
}

func (s *FlatSystem[T]) Add(item T, bounds geom.Bounds) {
	_, exists := s.index[item]
	invariant.Check(!exists, "spatial: item %v already indexed", item)
	s.index[item] = len(s.entries)
	s.entries = append(s.entries, flatEntry[T]{item: item, bounds: bounds})
}

func (s *FlatSystem[T]) Update(item T, bounds geom.Bounds) {
	i, ok := s.index[item]
	invariant.Check(ok, "spatial: update of unindexed item %v", item)
	s.entries[i].bounds = bounds
}

func (s *FlatSystem[T]) Remove(item T) {
	i, ok := s.index[item]
	invariant.Check(ok, "spatial: removal of unindexed item %v", item)
	last := len(s.entries) - 1
	if i != last {
		s.entries[i] = s.entries[last]
		s.index[s.entries[i].item] = i
	}
	s.entries = s.entries[:last]
	delete(s.index, item)
}

func (s *FlatSystem[T]) Has(item T) bool {
	_, ok := s.index[item]
	return ok
}

func (s *FlatSystem[T]) Bounds(item T) (geom.Bounds, bool) {
	i, ok := s.index[item]
	if !ok {
		return geom.Bounds{}, false
	}
	return s.entries[i].bounds, true
}

func (s *FlatSystem[T]) Len() int { return len(s.entries) }

func (s *FlatSystem[T]) IntersectedBy(bounds geom.Bounds, limit int) []T {
	return s.scan(limit, func(b geom.Bounds) bool { return bounds.Intersects(b) })
}

func (s *FlatSystem[T]) ContainedBy(bounds geom.Bounds, limit int) []T {
	return s.scan(limit, func(b geom.Bounds) bool { return bounds.ContainsBounds(b) })
}

func (s *FlatSystem[T]) scan(limit int, keep func(geom.Bounds) bool) []T {
	var out []T
	for _, e := range s.entries {
		if !keep(e.bounds) {
			continue
		}
		out = append(out, e.item)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
