package reaction

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// InvalidIndex marks "no match" for every index column. Valid indices are
// never negative.
const InvalidIndex = -1

// ValidIndex reports whether i can be used to dereference a jagged list of
// length n.
func ValidIndex(i int, n int) bool {
	return i >= 0 && i < n
}

// NthOccurrence returns the position of the rank-th entry (1-indexed) of tags
// equal to target, or InvalidIndex when there are fewer matches.
func NthOccurrence[T constraints.Integer](tags []T, target T, rank int) int {
	if rank < 1 {
		return InvalidIndex
	}
	count := 0
	for i, tag := range tags {
		if tag != target {
			continue
		}
		count++
		if count == rank {
			return i
		}
	}
	return InvalidIndex
}

// Selector resolves a particle index from the tag array of one event.
type Selector interface {
	Select(tags []int32) int
	String() string
}

// NthOccurrenceRule selects the Rank-th entry carrying Tag.
type NthOccurrenceRule struct {
	Tag  int32
	Rank int
}

func UseNthOccurrence(rank int, tag int32) NthOccurrenceRule {
	return NthOccurrenceRule{Tag: tag, Rank: rank}
}

func (r NthOccurrenceRule) Select(tags []int32) int {
	return NthOccurrence(tags, r.Tag, r.Rank)
}

func (r NthOccurrenceRule) String() string {
	return fmt.Sprintf("occurrence %d of tag %d", r.Rank, r.Tag)
}

// FixedIndexRule is used for files with a fixed particle order.
type FixedIndexRule struct {
	Index int
}

func UseFixedIndex(index int) FixedIndexRule {
	return FixedIndexRule{Index: index}
}

func (r FixedIndexRule) Select(tags []int32) int {
	if !ValidIndex(r.Index, len(tags)) {
		return InvalidIndex
	}
	return r.Index
}

func (r FixedIndexRule) String() string {
	return fmt.Sprintf("fixed index %d", r.Index)
}
