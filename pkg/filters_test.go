package reaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func filteredReaction(t *testing.T) *Reaction {
	t.Helper()
	r := NewReaction()
	r.Use(RecParticles{Fields: KinematicFields})
	r.SetParticleIndex("el", "rec_pid", UseNthOccurrence(1, 11), 11)
	r.SetParticleIndex("pip", "rec_pid", UseNthOccurrence(1, 211), 211)
	r.RequireOK("topology", "el", "pip")
	r.Filter("two_tracks", func(n int) bool { return n >= 2 }, RecCountColumn)
	r.Cut("el_px", "rec_px", "el", ptr(0.5), nil)
	require.NoError(t, r.Build())
	return r
}

func TestFilterChain(t *testing.T) {
	r := filteredReaction(t)
	assert.Equal(t, []string{"topology", "two_tracks", "el_px"}, r.Filters())

	tests := []struct {
		name   string
		record Record
		pass   bool
		passed int
	}{
		{"accepted", recRecord([]float64{1, 2}, []int32{11, 211}), true, 3},
		{"no pion", recRecord([]float64{1, 2}, []int32{11, 2212}), false, 0},
		{"slow electron", recRecord([]float64{0.1, 2}, []int32{11, 211}), false, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEvent(t, r, tt.record)
			pass, passed, err := r.Accept(e)
			require.NoError(t, err)
			assert.Equal(t, tt.pass, pass)
			assert.Equal(t, tt.passed, passed)
		})
	}
}

func TestFilterStopsAtFirstFailure(t *testing.T) {
	r := NewReaction()
	r.Input("n", tInt)
	evaluated := 0
	r.Filter("never", func(n int) bool { return false }, "n")
	r.Filter("counted", func(n int) bool {
		evaluated++
		return true
	}, "n")
	require.NoError(t, r.Build())

	e := newEvent(t, r, Record{"n": 1})
	pass, passed, err := r.Accept(e)
	require.NoError(t, err)
	assert.False(t, pass)
	assert.Equal(t, 0, passed)
	assert.Equal(t, 0, evaluated)
}

func TestFilterMustReturnBool(t *testing.T) {
	r := NewReaction()
	r.Input("n", tInt)
	r.Filter("bad", func(n int) int { return n }, "n")
	assert.ErrorIs(t, r.Build(), ErrTypeMismatch)
}

func TestFilterLabelsAreUnique(t *testing.T) {
	r := NewReaction()
	r.Input("n", tInt)
	r.Filter("same", func(n int) bool { return true }, "n")
	r.Cut("same", "n", "", nil, ptr(3.0))
	assert.ErrorIs(t, r.Build(), ErrMisconfiguredDependency)
}

func TestCutOnScalar(t *testing.T) {
	r := NewReaction()
	r.Input("w", tFloat64)
	r.Cut("window", "w", "", ptr(1.0), ptr(2.0))
	require.NoError(t, r.Build())

	for _, tt := range []struct {
		w    float64
		pass bool
	}{{0.5, false}, {1, true}, {1.5, true}, {2, true}, {2.5, false}} {
		e := newEvent(t, r, Record{"w": tt.w})
		pass, _, err := r.Accept(e)
		require.NoError(t, err)
		assert.Equal(t, tt.pass, pass, "w=%v", tt.w)
	}
}

func TestAcceptWithoutFilters(t *testing.T) {
	r := NewReaction()
	require.NoError(t, r.Build())
	e := newEvent(t, r, Record{})
	pass, passed, err := r.Accept(e)
	require.NoError(t, err)
	assert.True(t, pass)
	assert.Equal(t, 0, passed)
}

func TestAcceptReportsDataErrors(t *testing.T) {
	r := filteredReaction(t)
	e := newEvent(t, r, Record{})
	_, _, err := r.Accept(e)
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestCutFlow(t *testing.T) {
	r := filteredReaction(t)
	a := r.NewCutFlow()
	b := r.NewCutFlow()
	a.Record(3)
	a.Record(0)
	b.Record(2)
	b.Record(3)
	a.Merge(b)

	assert.Equal(t, int64(4), a.Total)
	assert.Equal(t, []int64{3, 3, 2}, a.Passed)
	assert.Contains(t, a.String(), "two_tracks")
	assert.Contains(t, a.String(), "events: 4")
}
