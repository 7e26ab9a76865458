package reaction

import (
	"fmt"
	"reflect"
)

// DetectorAssociation attaches per-hit detector information to particles.
// For each particle, field and sub-detector it creates the column
// particle_DETNAME_field holding the value of the first hit of that
// sub-detector produced by the particle, or 0. With Layers set the hits are
// also selected by layer and the columns are named particle_LAYERNAME_field.
type DetectorAssociation struct {
	Bank         string
	Subdetectors []DetectorID
	Layers       []LayerID
	Particles    []string
	Fields       []string
}

// hitKey selects detector hits by detector and layer.
type hitKey struct {
	Detector DetectorID
	Layer    LayerID
}

var tHitKeys = TypeOf[[]hitKey]()

// HitKeyColumn names the per-hit detector and layer keys of a bank.
func HitKeyColumn(bank string) string {
	return bank + "_hit_layer"
}

func (m DetectorAssociation) Name() string {
	return "detector-" + m.Bank
}

// ReverseMapColumn names the hit-to-particle reverse map of a detector bank.
func ReverseMapColumn(bank string) string {
	return bank + "_to_rec"
}

// DetectorColumn names an associated detector column.
func DetectorColumn(particle string, detector string, field string) string {
	return particle + "_" + detector + "_" + field
}

func (m DetectorAssociation) Configure(r *Reaction) error {
	if m.Bank == "" {
		return misconfigured("", "detector association without a bank")
	}
	for _, p := range m.Particles {
		if _, ok := r.byName[p]; !ok {
			return misconfigured(p, "detector association for undeclared particle")
		}
		if r.IsComposite(p) {
			return misconfigured(p, "composite particles have no detector hits")
		}
	}

	detCol := "REC_" + m.Bank + "_"
	pindex := detCol + "pindex"
	detector := detCol + "detector"
	r.Input(pindex, tInt16s)
	r.Input(detector, tInt16s)

	// many detector hits may go to a single particle
	toRec := ReverseMapColumn(m.Bank)
	if !r.graph.Has(toRec) {
		r.fail(r.graph.derive(toRec, tRevMap, []string{pindex, RecCountColumn}, []reflect.Type{tInt16s, tInt},
			func(args []any) (any, error) {
				return BuildReverseMap(args[0].([]int16), args[1].(int)), nil
			}, Hidden()))
		if r.IsTruthMatched() {
			// the map is indexed by reconstructed position, particles by truth position
			r.fail(r.graph.derive(toRec, tRevMap, []string{toRec, PermutationColumn}, []reflect.Type{tRevMap, tPerm},
				func(args []any) (any, error) {
					return ReverseMap(Reorder(args[0].(ReverseMap), args[1].(Permutation))), nil
				}, Hidden()))
		}
	}

	if len(m.Layers) > 0 {
		layer := detCol + "layer"
		r.Input(layer, tInt16s)
		keys := HitKeyColumn(m.Bank)
		if !r.graph.Has(keys) {
			r.fail(r.graph.derive(keys, tHitKeys, []string{detector, layer}, []reflect.Type{tInt16s, tInt16s},
				func(args []any) (any, error) {
					dets, layers := args[0].([]int16), args[1].([]int16)
					hits := make([]hitKey, min(len(dets), len(layers)))
					for i := range hits {
						det := DetectorID(dets[i])
						hits[i] = hitKey{Detector: det, Layer: LayerKey(det, layers[i])}
					}
					return hits, nil
				}, Hidden()))
		}
		for _, field := range m.Fields {
			values := detCol + field
			r.Input(values, tFloat64s)
			for _, p := range m.Particles {
				for _, sub := range m.Subdetectors {
					for _, l := range m.Layers {
						required := hitKey{Detector: sub, Layer: l}
						m.define(r, DetectorColumn(p, r.tables.LayerName(sub, l), field),
							[]string{p, toRec, keys, values}, tHitKeys,
							func(args []any) (any, error) {
								return SubsetValue(args[0].(int), args[1].(ReverseMap), args[2].([]hitKey), args[3].([]float64), required), nil
							})
					}
				}
			}
		}
		return nil
	}

	for _, field := range m.Fields {
		values := detCol + field
		r.Input(values, tFloat64s)
		for _, p := range m.Particles {
			for _, sub := range m.Subdetectors {
				required := int16(sub)
				m.define(r, DetectorColumn(p, r.tables.DetectorName(sub), field),
					[]string{p, toRec, detector, values}, tInt16s,
					func(args []any) (any, error) {
						return SubsetValue(args[0].(int), args[1].(ReverseMap), args[2].([]int16), args[3].([]float64), required), nil
					})
			}
		}
	}
	return nil
}

func (m DetectorAssociation) define(r *Reaction, name string, inputs []string, keyType reflect.Type, fn deriveFunc) {
	r.fail(r.graph.derive(name, tFloat64, inputs, []reflect.Type{tInt, tRevMap, keyType, tFloat64s}, fn))
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Define particle/detector column : %s", name), "detectors")
	}
}

// AssociateDetector is a shortcut for Use(DetectorAssociation{...}).
func (r *Reaction) AssociateDetector(bank string, subdetectors []DetectorID, particles []string, fields []string) {
	r.Use(DetectorAssociation{Bank: bank, Subdetectors: subdetectors, Particles: particles, Fields: fields})
}
