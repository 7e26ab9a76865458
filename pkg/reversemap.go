package reaction

import "golang.org/x/exp/constraints"

// ReverseMap lists, for each particle index, the positions of the detector
// entries that reference it, in source order.
type ReverseMap [][]int

// BuildReverseMap inverts a many-to-one reference list. The map has at least
// max(declaredTargetCount, max(ref)+1) slots. Negative references point to
// no particle and are skipped. A zero declaredTargetCount gives an empty map.
func BuildReverseMap[T constraints.Integer](sourceRefs []T, declaredTargetCount int) ReverseMap {
	if declaredTargetCount <= 0 {
		return ReverseMap{}
	}
	size := declaredTargetCount
	for _, ref := range sourceRefs {
		if int(ref) >= size {
			size = int(ref) + 1
		}
	}
	mapping := make(ReverseMap, size)
	for i, ref := range sourceRefs {
		if ref < 0 {
			continue
		}
		mapping[int(ref)] = append(mapping[int(ref)], i)
	}
	return mapping
}

// Entries returns the total number of references held by the map.
func (m ReverseMap) Entries() int {
	total := 0
	for _, refs := range m {
		total += len(refs)
	}
	return total
}

// SubsetValue returns the value of the first entry referencing targetIndex
// whose discriminator equals required. Out of range indices, particles with
// no entries and particles with no entry of the required category all give
// the zero value of V.
func SubsetValue[V any, D comparable](targetIndex int, mapping ReverseMap, discriminator []D, values []V, required D) V {
	var zero V
	if !ValidIndex(targetIndex, len(mapping)) {
		return zero
	}
	for _, entry := range mapping[targetIndex] {
		if !ValidIndex(entry, len(discriminator)) || !ValidIndex(entry, len(values)) {
			continue
		}
		if discriminator[entry] != required {
			continue
		}
		return values[entry]
	}
	return zero
}

// FirstValue returns the value of the first entry referencing targetIndex,
// whatever its category.
func FirstValue[V any](targetIndex int, mapping ReverseMap, values []V) V {
	var zero V
	if !ValidIndex(targetIndex, len(mapping)) {
		return zero
	}
	refs := mapping[targetIndex]
	if len(refs) == 0 || !ValidIndex(refs[0], len(values)) {
		return zero
	}
	return values[refs[0]]
}
