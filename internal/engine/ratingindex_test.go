// internal/engine/ratingindex_test.go
package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatingIndexScan(t *testing.T) {
	ri := newRatingIndex()
	ri.add(1500, "a")
	ri.add(1500, "b")
	ri.add(1600, "c")
	ri.add(1000, "d")

	tests := []struct {
		name      string
		hi, lo    int
		skip      string
		want      string
		wantFound bool
	}{
		{"highest bucket wins", 1600, 1400, "", "c", true},
		{"skips the requester", 1600, 1400, "c", "a", true},
		{"insertion order inside a bucket", 1500, 1400, "", "a", true},
		{"skip inside a bucket", 1500, 1400, "a", "b", true},
		{"empty window", 1400, 1100, "", "", false},
		{"window below everything", 900, 800, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ri.scan(tt.hi, tt.lo, tt.skip)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRatingIndexRemove(t *testing.T) {
	ri := newRatingIndex()
	ri.add(1500, "a")
	ri.add(1500, "b")
	ri.add(1500, "a") // duplicate add is a no-op
	ri.remove(1500, "a")

	assert.False(t, ri.contains(1500, "a"))
	assert.True(t, ri.contains(1500, "b"))

	ri.remove(1500, "missing") // harmless
	ri.remove(1500, "b")
	assert.True(t, ri.empty(), "empty buckets are pruned")
}

func TestRatingIndexDescending(t *testing.T) {
	ri := newRatingIndex()
	ri.add(1200, "alice")
	ri.add(1500, "bob")
	ri.add(1500, "carol")
	ri.add(900, "dave")

	var got []string
	ri.descending(func(_ int, name string) {
		got = append(got, name)
	})
	assert.Equal(t, []string{"bob", "carol", "alice", "dave"}, got)
}
