package reaction

import (
	"fmt"
	"reflect"

	"golang.org/x/exp/constraints"
)

// Permutation is the inverse of a correspondence array: for each truth slot
// the reconstructed position aligned with it, or InvalidIndex.
type Permutation struct {
	slots      []int
	duplicates int
	dropped    int
}

// NewPermutation inverts correspondence (one truth index, or a negative
// sentinel, per reconstructed entry) over truthCount truth slots.
// When several reconstructed entries claim the same slot the first one in
// reconstructed order is kept and the others are counted as duplicates.
// Entries pointing outside [0, truthCount) are dropped.
func NewPermutation[T constraints.Integer](correspondence []T, truthCount int) Permutation {
	if truthCount < 0 {
		truthCount = 0
	}
	p := Permutation{slots: make([]int, truthCount)}
	for t := range p.slots {
		p.slots[t] = InvalidIndex
	}
	for i, match := range correspondence {
		t := int(match)
		if !ValidIndex(t, truthCount) {
			p.dropped++
			continue
		}
		if p.slots[t] != InvalidIndex {
			p.duplicates++
			continue
		}
		p.slots[t] = i
	}
	return p
}

// Len is the number of truth slots.
func (p Permutation) Len() int { return len(p.slots) }

// Source returns the reconstructed position aligned with truth slot t.
func (p Permutation) Source(t int) int {
	if !ValidIndex(t, len(p.slots)) {
		return InvalidIndex
	}
	return p.slots[t]
}

// Duplicates counts reconstructed entries that lost a tie for a truth slot.
func (p Permutation) Duplicates() int { return p.duplicates }

// Dropped counts unmatched or out of range reconstructed entries.
func (p Permutation) Dropped() int { return p.dropped }

// Reorder moves values from reconstructed order into truth order. Slots with
// no reconstructed partner hold the zero value of V.
func Reorder[V any](values []V, p Permutation) []V {
	out := make([]V, len(p.slots))
	for t, i := range p.slots {
		if ValidIndex(i, len(values)) {
			out[t] = values[i]
		}
	}
	return out
}

// ReorderColumn applies Reorder to a slice held in an interface, keeping its
// concrete slice type.
func ReorderColumn(values any, p Permutation) (any, error) {
	v := reflect.ValueOf(values)
	if v.Kind() != reflect.Slice {
		return nil, fmt.Errorf("cannot reorder %T: not a slice", values)
	}
	out := reflect.MakeSlice(v.Type(), len(p.slots), len(p.slots))
	for t, i := range p.slots {
		if ValidIndex(i, v.Len()) {
			out.Index(t).Set(v.Index(i))
		}
	}
	return out.Interface(), nil
}

// CorrespondenceFromPairs turns match pairs (reconstructed index, truth index)
// into a per reconstructed entry correspondence array of length recCount.
// The first pair naming a reconstructed entry wins.
func CorrespondenceFromPairs[T constraints.Integer](recIndices []T, truthIndices []T, recCount int) []int {
	correspondence := make([]int, recCount)
	for i := range correspondence {
		correspondence[i] = InvalidIndex
	}
	n := min(len(recIndices), len(truthIndices))
	for k := 0; k < n; k++ {
		rec := int(recIndices[k])
		if !ValidIndex(rec, recCount) || correspondence[rec] != InvalidIndex {
			continue
		}
		if truthIndices[k] < 0 {
			continue
		}
		correspondence[rec] = int(truthIndices[k])
	}
	return correspondence
}
