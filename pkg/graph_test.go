package reaction

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphMemoizesPerEvent(t *testing.T) {
	g := NewGraph(Unmatched)
	require.NoError(t, g.Input("n", tInt))
	calls := 0
	require.NoError(t, g.Define("double", func(n int) int {
		calls++
		return 2 * n
	}, []string{"n"}))
	require.NoError(t, g.Define("plus", func(d int, n int) int { return d + n }, []string{"double", "n"}))
	require.NoError(t, g.Build())

	e, err := g.NewEvent()
	require.NoError(t, err)
	e.Reset(Record{"n": 3}, 0)
	require.NoError(t, e.Evaluate())
	v, err := Get[int](e, "plus")
	require.NoError(t, err)
	assert.Equal(t, 9, v)
	v, err = Get[int](e, "double")
	require.NoError(t, err)
	assert.Equal(t, 6, v)
	assert.Equal(t, 1, calls)

	e.Reset(Record{"n": 1}, 1)
	v, err = Get[int](e, "double")
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, calls)
}

func TestGraphLazyEvaluation(t *testing.T) {
	g := NewGraph(Unmatched)
	require.NoError(t, g.Input("n", tInt))
	require.NoError(t, g.Input("unused", tFloat64s))
	require.NoError(t, g.Define("m", func(n int) int { return n + 1 }, []string{"n"}))
	require.NoError(t, g.Build())

	e, err := g.NewEvent()
	require.NoError(t, err)
	e.Reset(Record{"n": 1}, 0)
	v, err := Get[int](e, "m")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = e.Get("unused")
	assert.ErrorIs(t, err, ErrMissingInput)
	assert.Error(t, e.Evaluate())
}

func TestGraphRedefinition(t *testing.T) {
	g := NewGraph(Unmatched)
	require.NoError(t, g.Input("n", tInt))
	require.NoError(t, g.Define("y", func(n int) int { return 2 * n }, []string{"n"}))
	// declared before the redefinition, still reads the final y
	require.NoError(t, g.Define("z", func(y int) int { return y * 10 }, []string{"y"}))
	require.NoError(t, g.Define("y", func(y int) int { return y + 1 }, []string{"y"}))
	require.NoError(t, g.Build())

	e, err := g.NewEvent()
	require.NoError(t, err)
	e.Reset(Record{"n": 2}, 0)
	y, err := Get[int](e, "y")
	require.NoError(t, err)
	assert.Equal(t, 5, y)
	z, err := Get[int](e, "z")
	require.NoError(t, err)
	assert.Equal(t, 50, z)

	assert.Equal(t, []string{"n", "y", "z"}, g.Columns())
}

func TestGraphRedefinitionTypeMismatch(t *testing.T) {
	g := NewGraph(Unmatched)
	require.NoError(t, g.Input("n", tInt))
	require.NoError(t, g.Define("y", func(n int) int { return n }, []string{"n"}))
	err := g.Define("y", func(y int) float64 { return float64(y) }, []string{"y"})
	assert.ErrorIs(t, err, ErrTypeMismatch)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "y", cfgErr.Column)
}

func TestGraphSelfReferenceWithoutDefinition(t *testing.T) {
	g := NewGraph(Unmatched)
	err := g.Define("y", func(y int) int { return y }, []string{"y"})
	assert.ErrorIs(t, err, ErrMisconfiguredDependency)
}

func TestGraphArgumentTypeMismatch(t *testing.T) {
	g := NewGraph(Unmatched)
	require.NoError(t, g.Input("px", tFloat64s))
	require.NoError(t, g.Define("bad", func(px []int32) int { return len(px) }, []string{"px"}))
	assert.ErrorIs(t, g.Build(), ErrTypeMismatch)
}

func TestGraphDefineChecksSignature(t *testing.T) {
	g := NewGraph(Unmatched)
	assert.ErrorIs(t, g.Define("a", 3, nil), ErrTypeMismatch)
	assert.ErrorIs(t, g.Define("a", func(x int) int { return x }, nil), ErrTypeMismatch)
	assert.ErrorIs(t, g.Define("a", func() {}, nil), ErrTypeMismatch)
	assert.ErrorIs(t, g.Input("a", nil), ErrTypeMismatch)
}

func TestGraphCycle(t *testing.T) {
	g := NewGraph(Unmatched)
	require.NoError(t, g.Define("a", func(b int) int { return b }, []string{"b"}))
	require.NoError(t, g.Define("b", func(a int) int { return a }, []string{"a"}))
	err := g.Build()
	assert.ErrorIs(t, err, ErrCycle)
	assert.ErrorIs(t, err, ErrMisconfiguredDependency)
	assert.False(t, g.Built())
}

func TestGraphUndeclaredDependency(t *testing.T) {
	g := NewGraph(Unmatched)
	require.NoError(t, g.Define("a", func(b int) int { return b }, []string{"b"}))
	assert.ErrorIs(t, g.Build(), ErrMisconfiguredDependency)
}

func TestGraphAlias(t *testing.T) {
	g := NewGraph(Unmatched)
	require.NoError(t, g.Input("REC_Particle_px", tFloat64s))
	require.NoError(t, g.Alias("rec_px", "REC_Particle_px"))
	nodes := len(g.nodes)
	require.NoError(t, g.Alias("rec_px", "REC_Particle_px"))
	assert.Equal(t, nodes, len(g.nodes))

	assert.ErrorIs(t, g.Alias("rec_py", "REC_Particle_py"), ErrMisconfiguredDependency)
	require.NoError(t, g.Build())

	e, err := g.NewEvent()
	require.NoError(t, err)
	e.Reset(Record{"REC_Particle_px": []float64{1, 2}}, 0)
	px, err := Get[[]float64](e, "rec_px")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, px)
}

func TestGraphAliasIdempotentAfterRedefinition(t *testing.T) {
	g := NewGraph(Unmatched)
	require.NoError(t, g.Input("raw", tFloat64s))
	require.NoError(t, g.Alias("x", "raw"))
	require.NoError(t, g.Define("x", func(x []float64) []float64 { return x }, []string{"x"}))
	nodes := len(g.nodes)
	require.NoError(t, g.Alias("x", "raw"))
	assert.Equal(t, nodes, len(g.nodes))
}

func TestGraphFrozenAfterBuild(t *testing.T) {
	g := NewGraph(Unmatched)
	_, err := g.NewEvent()
	assert.ErrorIs(t, err, ErrNotBuilt)

	require.NoError(t, g.Constant("beam", 10.6))
	require.NoError(t, g.Build())
	assert.ErrorIs(t, g.Build(), ErrGraphBuilt)
	assert.ErrorIs(t, g.Input("late", tInt), ErrGraphBuilt)

	e, err := g.NewEvent()
	require.NoError(t, err)
	e.Reset(Record{}, 0)
	beam, err := Get[float64](e, "beam")
	require.NoError(t, err)
	assert.Equal(t, 10.6, beam)
}

func TestEventErrors(t *testing.T) {
	g := NewGraph(Unmatched)
	require.NoError(t, g.Input("n", tInt))
	require.NoError(t, g.Define("checked", func(n int) (int, error) {
		if n < 0 {
			return 0, errors.New("negative")
		}
		return n, nil
	}, []string{"n"}))
	require.NoError(t, g.Build())
	e, err := g.NewEvent()
	require.NoError(t, err)

	e.Reset(Record{"n": int16(2)}, 0)
	_, err = e.Get("n")
	assert.ErrorIs(t, err, ErrInputType)

	e.Reset(Record{"n": -1}, 1)
	_, err = e.Get("checked")
	var eventErr *EventError
	require.True(t, errors.As(err, &eventErr))
	assert.Equal(t, "checked", eventErr.Column)

	_, err = e.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownColumn)

	e.Reset(Record{"n": 4}, 2)
	_, err = Get[string](e, "n")
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestGraphHiddenColumnsAndInputs(t *testing.T) {
	g := NewGraph(Unmatched)
	require.NoError(t, g.Input("b", tInt))
	require.NoError(t, g.Input("a", tFloat64s))
	require.NoError(t, g.Define("secret", func(b int) bool { return b > 0 }, []string{"b"}, Hidden()))
	assert.Equal(t, []string{"b", "a"}, g.Columns())
	assert.Equal(t, []string{"a", "b"}, g.InputNames())
	assert.Equal(t, tFloat64s, g.Inputs()["a"])
	typ, ok := g.TypeOf("secret")
	assert.True(t, ok)
	assert.Equal(t, tBool, typ)
}

func TestGraphTruthMatchedRequiresReorder(t *testing.T) {
	g := NewGraph(TruthMatched)
	require.NoError(t, g.Input("REC_Particle_px", tFloat64s, FromSource(SourceRec)))
	require.NoError(t, g.Alias("rec_px", "REC_Particle_px", Fundamental(SourceRec)))
	err := g.Build()
	assert.ErrorIs(t, err, ErrMisconfiguredDependency)
	assert.Contains(t, err.Error(), "rec_px")
}

func TestGraphTruthMatchedRejectsUnorderedReads(t *testing.T) {
	g := NewGraph(TruthMatched)
	require.NoError(t, g.Input("REC_Particle_px", tFloat64s, FromSource(SourceRec)))
	require.NoError(t, g.Input("perm", tPerm))
	require.NoError(t, g.Alias("rec_px", "REC_Particle_px", Fundamental(SourceRec)))
	require.NoError(t, g.derive("rec_px", tFloat64s, []string{"rec_px", "perm"}, []reflect.Type{tFloat64s, tPerm},
		func(args []any) (any, error) {
			return Reorder(args[0].([]float64), args[1].(Permutation)), nil
		}, reorderRule()))
	require.NoError(t, g.Define("sum", func(px []float64) float64 {
		total := 0.0
		for _, x := range px {
			total += x
		}
		return total
	}, []string{"REC_Particle_px"}))
	err := g.Build()
	assert.ErrorIs(t, err, ErrMisconfiguredDependency)
	assert.Contains(t, err.Error(), "REC_Particle_px")
}

func TestGraphTruthMatchedReordersFundamentals(t *testing.T) {
	g := NewGraph(TruthMatched)
	require.NoError(t, g.Input("REC_Particle_px", tFloat64s, FromSource(SourceRec)))
	require.NoError(t, g.Input("perm", tPerm))
	require.NoError(t, g.Alias("rec_px", "REC_Particle_px", Fundamental(SourceRec)))
	require.NoError(t, g.Define("first", func(px []float64) float64 { return px[0] }, []string{"rec_px"}))
	require.NoError(t, g.derive("rec_px", tFloat64s, []string{"rec_px", "perm"}, []reflect.Type{tFloat64s, tPerm},
		func(args []any) (any, error) {
			return Reorder(args[0].([]float64), args[1].(Permutation)), nil
		}, reorderRule()))
	require.NoError(t, g.Build())

	e, err := g.NewEvent()
	require.NoError(t, err)
	e.Reset(Record{
		"REC_Particle_px": []float64{1, 2},
		"perm":            NewPermutation([]int{1, 0}, 2),
	}, 0)
	first, err := Get[float64](e, "first")
	require.NoError(t, err)
	assert.Equal(t, 2.0, first)
}

func TestGraphTruthMatchedRedefinitions(t *testing.T) {
	build := func(correctBefore bool) (*Graph, error) {
		g := NewGraph(TruthMatched)
		require.NoError(t, g.Input("REC_Particle_px", tFloat64s, FromSource(SourceRec)))
		require.NoError(t, g.Input("perm", tPerm))
		require.NoError(t, g.Alias("rec_px", "REC_Particle_px", Fundamental(SourceRec)))
		double := func(px []float64) []float64 {
			out := make([]float64, len(px))
			for i, x := range px {
				out[i] = 2 * x
			}
			return out
		}
		if correctBefore {
			require.NoError(t, g.Define("rec_px", double, []string{"rec_px"}))
		}
		require.NoError(t, g.derive("rec_px", tFloat64s, []string{"rec_px", "perm"}, []reflect.Type{tFloat64s, tPerm},
			func(args []any) (any, error) {
				return Reorder(args[0].([]float64), args[1].(Permutation)), nil
			}, reorderRule()))
		if !correctBefore {
			require.NoError(t, g.Define("rec_px", double, []string{"rec_px"}))
		}
		return g, g.Build()
	}

	// a correction of the aligned column
	g, err := build(false)
	require.NoError(t, err)
	e, err := g.NewEvent()
	require.NoError(t, err)
	e.Reset(Record{
		"REC_Particle_px": []float64{1, 2},
		"perm":            NewPermutation([]int{1, 0}, 2),
	}, 0)
	px, err := Get[[]float64](e, "rec_px")
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 2}, px)

	// a correction that reads the column in reconstructed order
	_, err = build(true)
	assert.ErrorIs(t, err, ErrMisconfiguredDependency)
	assert.Contains(t, err.Error(), "before it is reordered")
}
