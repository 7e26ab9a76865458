package reaction

import (
	"reflect"
)

// Field is a per-entry quantity of a particle bank.
type Field struct {
	Name string
	Type reflect.Type
	// Bank overrides the module bank for this field.
	Bank string
}

// KinematicFields are the fields needed for particle four-vectors.
var KinematicFields = []Field{
	{Name: "px", Type: tFloat64s},
	{Name: "py", Type: tFloat64s},
	{Name: "pz", Type: tFloat64s},
	{Name: "pid", Type: tInt32s},
}

// ParticleFields is the full REC::Particle content.
var ParticleFields = append(append([]Field(nil), KinematicFields...),
	Field{Name: "status", Type: tInt16s},
	Field{Name: "vt", Type: tFloat64s},
	Field{Name: "vx", Type: tFloat64s},
	Field{Name: "vy", Type: tFloat64s},
	Field{Name: "vz", Type: tFloat64s},
	Field{Name: "beta", Type: tFloat64s},
	Field{Name: "chi2pid", Type: tFloat64s},
)

const (
	RecBank = "REC_Particle"
	// FTBank is the forward-tagger based particle bank. It carries no
	// vertex position, which still comes from RecBank.
	FTBank      = "RECFT_Particle"
	TruthBank   = "MC_Lund"
	MatchBank   = "MC_GenMatch"
	massPrefix  = "m"
	countSource = "px"
)

// RecParticles aliases the reconstructed particle bank to rec_ columns and
// adds rec_m and rec_n.
type RecParticles struct {
	UseFTB bool
	Fields []Field
}

func (m RecParticles) Name() string { return "rec-particles" }

func (m RecParticles) Configure(r *Reaction) error {
	bank := RecBank
	if m.UseFTB {
		bank = FTBank
	}
	fields := m.Fields
	if len(fields) == 0 {
		fields = ParticleFields
	}
	r.AddType(RecPrefix)
	for _, f := range fields {
		fieldBank := bank
		if f.Bank != "" {
			fieldBank = f.Bank
		} else if m.UseFTB && (f.Name == "vx" || f.Name == "vy" || f.Name == "vz") {
			fieldBank = RecBank
		}
		r.Fundamental(SourceRec, fieldBank+"_"+f.Name, RecPrefix+f.Name, f.Type)
	}

	tables := r.tables
	r.Define(RecPrefix+massPrefix, func(pid []int32) []float64 {
		return tables.AssignMasses(pid)
	}, []string{RecPrefix + "pid"})

	// rec_n counts entries in reconstructed order; reverse maps and match
	// ids index that order.
	r.Define(RecCountColumn, func(px []float64) int {
		return len(px)
	}, []string{bank + "_" + countSource}, ReadsUnordered())
	return nil
}

// TruthParticles aliases the generated particle bank to tru_ columns.
// With GenType set, tru_n counts the entries of that generator type.
type TruthParticles struct {
	GenType *int32
}

func (m TruthParticles) Name() string { return "truth-particles" }

func (m TruthParticles) Configure(r *Reaction) error {
	r.AddType(TruthPrefix)
	for _, f := range KinematicFields {
		r.Fundamental(SourceTruth, TruthBank+"_"+f.Name, TruthPrefix+f.Name, f.Type)
	}
	r.Fundamental(SourceTruth, TruthBank+"_mass", TruthPrefix+massPrefix, tFloat64s)

	if m.GenType != nil {
		genType := *m.GenType
		r.Input(TruthBank+"_type", tInt32s, FromSource(SourceTruth))
		r.Define(TruthCountColumn, func(types []int32) int {
			n := 0
			for _, t := range types {
				if t == genType {
					n++
				}
			}
			return n
		}, []string{TruthBank + "_type"})
	} else {
		r.Define(TruthCountColumn, func(px []float64) int {
			return len(px)
		}, []string{TruthPrefix + "px"})
	}
	return nil
}

// TruthMatching builds the correspondence between reconstructed and truth
// entries from the generator match bank and exposes the permutation used by
// every reorder rule. With Correspondence set, that raw column already holds
// one truth index per reconstructed entry and the match bank is not read.
type TruthMatching struct {
	Correspondence string
	Quality        bool
}

func (m TruthMatching) Name() string { return "truth-matching" }

func (m TruthMatching) Configure(r *Reaction) error {
	if r.mode != TruthMatched {
		return misconfigured(PermutationColumn, "truth matching module used in %v mode", r.mode)
	}
	if m.Correspondence != "" {
		r.Input(m.Correspondence, tInt16s)
		r.Define(MatchIDColumn, func(match []int16) []int {
			correspondence := make([]int, len(match))
			for i, t := range match {
				correspondence[i] = int(t)
			}
			return correspondence
		}, []string{m.Correspondence})
	} else {
		r.Input(MatchBank+"_pindex", tInt16s)
		r.Input(MatchBank+"_mcindex", tInt16s)
		r.Define(MatchIDColumn, func(rec []int16, mc []int16, n int) []int {
			return CorrespondenceFromPairs(rec, mc, n)
		}, []string{MatchBank + "_pindex", MatchBank + "_mcindex", RecCountColumn})
	}
	if m.Quality {
		r.Input(MatchBank+"_quality", tFloat64s)
		r.fail(r.graph.Alias(TruthPrefix+"match_qual", MatchBank+"_quality"))
	}

	r.fail(r.graph.derive(PermutationColumn, tPerm, []string{MatchIDColumn, TruthCountColumn},
		[]reflect.Type{TypeOf[[]int](), tInt},
		func(args []any) (any, error) {
			return NewPermutation(args[0].([]int), args[1].(int)), nil
		}, Hidden()))

	r.Define(DuplicatesColumn, func(p Permutation) int {
		return p.Duplicates()
	}, []string{PermutationColumn}, Hidden())
	return nil
}
