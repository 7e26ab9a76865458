package reaction

import (
	"math"

	"go-hep.org/x/hep/fmom"
)

// Components adds spherical momentum components for every data type and,
// when truth matched, the resolution of each against truth.
type Components struct{}

func (Components) Name() string { return "components" }

func (Components) Configure(r *Reaction) error {
	inputs := []string{"{p}px", "{p}py", "{p}pz"}
	r.DefineForAllTypes("pmag", func(px, py, pz []float64) []float64 {
		return mapVectors(px, py, pz, func(v *fmom.PxPyPzE) float64 { return v.P() })
	}, inputs)
	r.DefineForAllTypes("theta", func(px, py, pz []float64) []float64 {
		return mapVectors(px, py, pz, func(v *fmom.PxPyPzE) float64 { return math.Atan2(v.Pt(), v.Pz()) })
	}, inputs)
	r.DefineForAllTypes("phi", func(px, py, pz []float64) []float64 {
		return mapVectors(px, py, pz, func(v *fmom.PxPyPzE) float64 { return v.Phi() })
	}, inputs)

	if r.IsTruthMatched() && r.HasType(RecPrefix) && r.HasType(TruthPrefix) {
		r.resolution("pmag", true)
		r.resolution("theta", false)
		r.resolution("phi", false)
	}
	return nil
}

// resolution defines res_name as tru-rec, divided by tru when fractional.
func (r *Reaction) resolution(name string, fractional bool) {
	r.Define(ResPrefix+name, func(tru, rec []float64) []float64 {
		n := min(len(tru), len(rec))
		res := make([]float64, n)
		for i := 0; i < n; i++ {
			res[i] = tru[i] - rec[i]
			if fractional {
				if tru[i] == 0 {
					res[i] = 0
					continue
				}
				res[i] /= tru[i]
			}
		}
		return res
	}, []string{TruthPrefix + name, RecPrefix + name})
}

func mapVectors(px, py, pz []float64, f func(v *fmom.PxPyPzE) float64) []float64 {
	n := min(len(px), len(py), len(pz))
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v := fmom.NewPxPyPzE(px[i], py[i], pz[i], 0)
		out[i] = f(&v)
	}
	return out
}
