package reaction

import (
	"fmt"
	"sort"
)

// BuildReaction assembles and builds the reaction described by cfg.
func BuildReaction(cfg Configuration, tables Tables, opts ...Option) (*Reaction, error) {
	opts = append([]Option{WithTables(tables)}, opts...)
	if cfg.TruthMatched {
		opts = append(opts, WithTruthMatching())
	}
	r := NewReaction(opts...)

	extra := make([]string, 0, len(cfg.Extra))
	for name := range cfg.Extra {
		extra = append(extra, name)
	}
	sort.Strings(extra)
	for _, name := range extra {
		typ, err := ParseType(cfg.Extra[name])
		if err != nil {
			return nil, fmt.Errorf("extra input %q: %w", name, err)
		}
		r.Input(name, typ)
	}

	useRec, useTruth := false, cfg.TruthMatched
	for _, t := range cfg.Types {
		switch t {
		case "rec":
			useRec = true
		case "tru":
			useTruth = true
		}
	}
	if useRec || cfg.TruthMatched {
		r.Use(RecParticles{UseFTB: cfg.UseFTB})
	}
	if useTruth {
		r.Use(TruthParticles{GenType: cfg.TruthGenType})
	}
	if cfg.TruthMatched {
		r.Use(TruthMatching{Quality: cfg.MatchQuality})
	}

	for _, p := range cfg.Particles {
		tagColumn := p.TagColumn
		if tagColumn == "" {
			tagColumn = RecPrefix + "pid"
			if !useRec && !cfg.TruthMatched {
				tagColumn = TruthPrefix + "pid"
			}
		}
		var sel Selector = UseNthOccurrence(p.Rank, p.Tag)
		if p.FixedIndex != nil {
			sel = UseFixedIndex(*p.FixedIndex)
		}
		if p.Expected != nil {
			r.SetParticleIndex(p.Name, tagColumn, sel, *p.Expected)
		} else {
			r.SetParticleIndex(p.Name, tagColumn, sel)
		}
	}
	for _, c := range cfg.Composites {
		r.Sum(c.Name, c.Constituents...)
	}
	r.MakeParticleMap()

	for _, d := range cfg.Detectors {
		subdets := make([]DetectorID, len(d.Subdetectors))
		for i, s := range d.Subdetectors {
			subdets[i] = DetectorID(s)
		}
		layers := make([]LayerID, len(d.Layers))
		for i, l := range d.Layers {
			layers[i] = LayerID(l)
		}
		r.Use(DetectorAssociation{Bank: d.Bank, Subdetectors: subdets, Layers: layers, Particles: d.Particles, Fields: d.Fields})
	}
	r.Use(Components{})

	if len(cfg.RequireOK) > 0 {
		r.RequireOK("particles_ok", cfg.RequireOK...)
	}
	for _, c := range cfg.Cuts {
		r.Cut(c.Label, c.Column, c.Particle, c.Min, c.Max)
	}

	if err := r.Build(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewOutputs creates the aggregators requested by cfg for a built reaction.
// Either returned collaborator is nil when not configured.
func NewOutputs(r *Reaction, cfg Configuration) (Aggregators, *Histogrammer, *Snapshot, error) {
	var aggs Aggregators
	var histos *Histogrammer
	var snapshot *Snapshot
	var err error
	if len(cfg.Histograms) > 0 {
		if histos, err = NewHistogrammer(r, cfg.Histograms); err != nil {
			return nil, nil, nil, err
		}
		aggs = append(aggs, histos)
	}
	if len(cfg.Snapshot) > 0 {
		if snapshot, err = NewSnapshot(r, cfg.Snapshot); err != nil {
			return nil, nil, nil, err
		}
		aggs = append(aggs, snapshot)
	}
	return aggs, histos, snapshot, nil
}
