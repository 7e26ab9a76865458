package reaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNthOccurrence(t *testing.T) {
	tags := []int32{11, 211, -211, 211, 2212}
	tests := []struct {
		name   string
		target int32
		rank   int
		want   int
	}{
		{"first pi+", 211, 1, 1},
		{"second pi+", 211, 2, 3},
		{"third pi+ missing", 211, 3, InvalidIndex},
		{"electron", 11, 1, 0},
		{"absent tag", 22, 1, InvalidIndex},
		{"rank zero", 211, 0, InvalidIndex},
		{"negative rank", 211, -1, InvalidIndex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NthOccurrence(tags, tt.target, tt.rank))
		})
	}
	assert.Equal(t, InvalidIndex, NthOccurrence([]int32{}, 11, 1))
	assert.Equal(t, 2, NthOccurrence([]int16{1, 2, 1}, 1, 2))
}

func TestNthOccurrenceIsStable(t *testing.T) {
	tags := []int32{211, 211, 211}
	for i := 0; i < 10; i++ {
		assert.Equal(t, 1, NthOccurrence(tags, 211, 2))
	}
}

func TestSelectors(t *testing.T) {
	tags := []int32{11, 211, -211, 211, 2212}

	assert.Equal(t, 3, UseNthOccurrence(2, 211).Select(tags))
	assert.Equal(t, InvalidIndex, UseNthOccurrence(1, 321).Select(tags))
	assert.Equal(t, "occurrence 2 of tag 211", UseNthOccurrence(2, 211).String())

	assert.Equal(t, 4, UseFixedIndex(4).Select(tags))
	assert.Equal(t, InvalidIndex, UseFixedIndex(5).Select(tags))
	assert.Equal(t, InvalidIndex, UseFixedIndex(-2).Select(tags))
	assert.Equal(t, "fixed index 4", UseFixedIndex(4).String())
}

func TestValidIndex(t *testing.T) {
	assert.False(t, ValidIndex(InvalidIndex, 3))
	assert.True(t, ValidIndex(0, 3))
	assert.True(t, ValidIndex(2, 3))
	assert.False(t, ValidIndex(3, 3))
	assert.False(t, ValidIndex(0, 0))
}
