package reaction

import (
	"fmt"
	"math"
	"reflect"

	"go-hep.org/x/hep/fmom"
)

type particle struct {
	name         string
	tagColumn    string
	selector     Selector
	expected     *int32
	composite    bool
	constituents []string
}

// OKSuffix names the validity flag of a particle binding.
const OKSuffix = "_OK"

// P4Column names the four-vector column of a particle for a data type.
func P4Column(prefix string, name string) string {
	return prefix + name + "_p4"
}

// SetParticleIndex binds name to the entry selected from tagColumn. The index
// column is called name and holds InvalidIndex when nothing is selected. With
// an expected tag a name_OK column is added: 1 when the selected entry
// carries that tag, else 0.
func (r *Reaction) SetParticleIndex(name string, tagColumn string, sel Selector, expected ...int32) {
	if r.mapped {
		r.fail(misconfigured(name, "particle declared after the particle map was made"))
		return
	}
	if _, ok := r.byName[name]; ok {
		r.fail(misconfigured(name, "particle declared twice"))
		return
	}
	p := &particle{name: name, tagColumn: tagColumn, selector: sel}
	if len(expected) > 0 {
		tag := expected[0]
		p.expected = &tag
	}
	r.particles = append(r.particles, p)
	r.byName[name] = p

	r.fail(r.graph.derive(name, tInt, []string{tagColumn}, []reflect.Type{tInt32s},
		func(args []any) (any, error) {
			return sel.Select(args[0].([]int32)), nil
		}))

	if p.expected != nil {
		want := *p.expected
		r.fail(r.graph.derive(name+OKSuffix, tInt, []string{name, tagColumn}, []reflect.Type{tInt, tInt32s},
			func(args []any) (any, error) {
				idx := args[0].(int)
				tags := args[1].([]int32)
				if ValidIndex(idx, len(tags)) && tags[idx] == want {
					return 1, nil
				}
				return 0, nil
			}))
	}
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Particle %s: %v of %s", name, sel, tagColumn), "particles")
	}
}

// SetScatElectronIndex binds the scattered electron.
func (r *Reaction) SetScatElectronIndex(tagColumn string, sel Selector, expected ...int32) {
	r.SetParticleIndex(ScatElectron, tagColumn, sel, expected...)
}

const ScatElectron = "scat_ele"

// Sum declares a composite particle whose four-vector is the sum of its
// constituents. Constituents must already be declared.
func (r *Reaction) Sum(name string, constituents ...string) {
	if r.mapped {
		r.fail(misconfigured(name, "composite declared after the particle map was made"))
		return
	}
	if _, ok := r.byName[name]; ok {
		r.fail(misconfigured(name, "particle declared twice"))
		return
	}
	if len(constituents) == 0 {
		r.fail(misconfigured(name, "composite without constituents"))
		return
	}
	for _, c := range constituents {
		if _, ok := r.byName[c]; !ok {
			r.fail(misconfigured(name, "composite constituent %q is not declared", c))
			return
		}
	}
	p := &particle{name: name, composite: true, constituents: append([]string(nil), constituents...)}
	r.particles = append(r.particles, p)
	r.byName[name] = p
}

// Particles lists the declared particle names in declaration order.
func (r *Reaction) Particles() []string {
	names := make([]string, len(r.particles))
	for i, p := range r.particles {
		names[i] = p.name
	}
	return names
}

// IsComposite reports whether name is a composite particle.
func (r *Reaction) IsComposite(name string) bool {
	p, ok := r.byName[name]
	return ok && p.composite
}

// MakeParticleMap creates the four-vector columns of every particle for every
// data type. It must follow all particle declarations; Build calls it when
// needed.
func (r *Reaction) MakeParticleMap() {
	if r.mapped {
		return
	}
	r.mapped = true
	for _, prefix := range r.types {
		if !r.graph.Has(prefix + "px") {
			continue
		}
		for _, p := range r.particles {
			if p.composite {
				r.defineComposite(prefix, p)
				continue
			}
			r.defineParticleP4(prefix, p)
		}
	}
}

func (r *Reaction) defineParticleP4(prefix string, p *particle) {
	inputs := []string{p.name, prefix + "px", prefix + "py", prefix + "pz", prefix + massPrefix}
	argTypes := []reflect.Type{tInt, tFloat64s, tFloat64s, tFloat64s, tFloat64s}
	r.fail(r.graph.derive(P4Column(prefix, p.name), tP4, inputs, argTypes,
		func(args []any) (any, error) {
			return particleP4(args[0].(int), args[1].([]float64), args[2].([]float64),
				args[3].([]float64), args[4].([]float64)), nil
		}))
}

func (r *Reaction) defineComposite(prefix string, p *particle) {
	inputs := make([]string, len(p.constituents))
	argTypes := make([]reflect.Type, len(p.constituents))
	for i, c := range p.constituents {
		inputs[i] = P4Column(prefix, c)
		argTypes[i] = tP4
	}
	r.fail(r.graph.derive(P4Column(prefix, p.name), tP4, inputs, argTypes,
		func(args []any) (any, error) {
			zero := fmom.NewPxPyPzE(0, 0, 0, 0)
			var sum fmom.P4 = &zero
			for _, a := range args {
				v := a.(fmom.PxPyPzE)
				sum = fmom.Add(sum, &v)
			}
			return fmom.NewPxPyPzE(sum.Px(), sum.Py(), sum.Pz(), sum.E()), nil
		}))
}

// particleP4 builds the four-vector of entry idx, or a zero vector when idx
// is the sentinel or out of range.
func particleP4(idx int, px, py, pz, m []float64) fmom.PxPyPzE {
	n := min(len(px), len(py), len(pz))
	if !ValidIndex(idx, n) {
		return fmom.PxPyPzE{}
	}
	var mass float64
	if ValidIndex(idx, len(m)) {
		mass = m[idx]
	}
	p2 := px[idx]*px[idx] + py[idx]*py[idx] + pz[idx]*pz[idx]
	return fmom.NewPxPyPzE(px[idx], py[idx], pz[idx], math.Sqrt(p2+mass*mass))
}
