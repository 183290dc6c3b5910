// internal/engine/ratingindex.go
package engine

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// ratingIndex maps a rating to the bucket of player names holding it. Buckets
// remember insertion order so that scans and listings are deterministic; the
// set exists for O(1) membership checks on the hot remove path.
type ratingIndex struct {
	buckets map[int]*ratingBucket
}

type ratingBucket struct {
	order   []string
	members mapset.Set[string]
}

func newRatingIndex() *ratingIndex {
	return &ratingIndex{buckets: make(map[int]*ratingBucket)}
}

func (ri *ratingIndex) add(rating int, name string) {
	b, ok := ri.buckets[rating]
	if !ok {
		b = &ratingBucket{members: mapset.NewThreadUnsafeSet[string]()}
		ri.buckets[rating] = b
	}
	if b.members.Contains(name) {
		return
	}
	b.members.Add(name)
	b.order = append(b.order, name)
}

func (ri *ratingIndex) remove(rating int, name string) {
	b, ok := ri.buckets[rating]
	if !ok || !b.members.Contains(name) {
		return
	}
	b.members.Remove(name)
	for i, n := range b.order {
		if n == name {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	if b.members.Cardinality() == 0 {
		delete(ri.buckets, rating)
	}
}

func (ri *ratingIndex) contains(rating int, name string) bool {
	b, ok := ri.buckets[rating]
	return ok && b.members.Contains(name)
}

// scan walks the window [lo, hi] from the highest rating downward and returns
// the first occupant other than skip. The first occupant encountered wins;
// inside a bucket that is the earliest inserted name.
func (ri *ratingIndex) scan(hi, lo int, skip string) (string, bool) {
	for rating := hi; rating >= lo; rating-- {
		b, ok := ri.buckets[rating]
		if !ok {
			continue
		}
		for _, name := range b.order {
			if name != skip {
				return name, true
			}
		}
	}
	return "", false
}

// descending visits every bucket from the highest rating down, yielding names
// in insertion order. Used for the full listing.
func (ri *ratingIndex) descending(visit func(rating int, name string)) {
	ratings := make([]int, 0, len(ri.buckets))
	for rating := range ri.buckets {
		ratings = append(ratings, rating)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ratings)))
	for _, rating := range ratings {
		for _, name := range ri.buckets[rating].order {
			visit(rating, name)
		}
	}
}

func (ri *ratingIndex) empty() bool {
	return len(ri.buckets) == 0
}
