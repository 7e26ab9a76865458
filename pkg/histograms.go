package reaction

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"go-hep.org/x/hep/hbook"
)

type histoSpec struct {
	name     string
	title    string
	column   string
	particle string
	bins     int
	min      float64
	max      float64
}

// Histogrammer fills one-dimensional histograms from accepted events. Each
// worker owns one; partial results are combined with Merge, which is
// commutative.
type Histogrammer struct {
	specs []histoSpec
	hists []*hbook.H1D
}

// NewHistogrammer checks the histogram definitions against the built
// reaction. Typed definitions are expanded over the reaction data types, with
// "{p}" in the column replaced by the type prefix.
func NewHistogrammer(r *Reaction, configs []HistogramConfig) (*Histogrammer, error) {
	var specs []histoSpec
	for _, c := range configs {
		prefixes := []string{""}
		if c.Typed {
			prefixes = r.Types()
		}
		for _, prefix := range prefixes {
			spec := histoSpec{
				name:     prefix + c.Name,
				title:    c.Title,
				column:   expandPrefix(c.Column, prefix),
				particle: c.Particle,
				bins:     c.Bins,
				min:      c.Min,
				max:      c.Max,
			}
			if spec.title == "" {
				spec.title = spec.name
			}
			if !r.graph.Has(spec.column) {
				return nil, misconfigured(spec.column, "histogram %q of undeclared column", spec.name)
			}
			if spec.particle != "" && !r.graph.Has(spec.particle) {
				return nil, misconfigured(spec.particle, "histogram %q indexed by undeclared particle", spec.name)
			}
			if spec.bins <= 0 || spec.max <= spec.min {
				return nil, fmt.Errorf("histogram %q: invalid binning %d [%v, %v]", spec.name, spec.bins, spec.min, spec.max)
			}
			specs = append(specs, spec)
		}
	}
	return newHistogrammer(specs), nil
}

func newHistogrammer(specs []histoSpec) *Histogrammer {
	h := &Histogrammer{specs: specs, hists: make([]*hbook.H1D, len(specs))}
	for i, s := range specs {
		h.hists[i] = hbook.NewH1D(s.bins, s.min, s.max)
		h.hists[i].Ann["name"] = s.name
		h.hists[i].Ann["title"] = s.title
	}
	return h
}

// Clone returns an empty histogrammer with the same definitions.
func (h *Histogrammer) Clone() Aggregator {
	return newHistogrammer(h.specs)
}

// Fill adds the values of one event. Jagged columns without a particle fill
// every entry; with a particle only the selected entry, if any.
func (h *Histogrammer) Fill(e *Event) error {
	for i, s := range h.specs {
		v, err := e.Get(s.column)
		if err != nil {
			return err
		}
		if s.particle != "" {
			idx, err := Get[int](e, s.particle)
			if err != nil {
				return err
			}
			if x, ok := elementFloat(v, idx); ok {
				h.hists[i].Fill(x, 1)
			}
			continue
		}
		if x, ok := toFloat(v); ok {
			h.hists[i].Fill(x, 1)
			continue
		}
		for k := 0; ; k++ {
			x, ok := elementFloat(v, k)
			if !ok {
				break
			}
			h.hists[i].Fill(x, 1)
		}
	}
	return nil
}

// Merge adds the contents of another histogrammer with the same definitions.
func (h *Histogrammer) Merge(other Aggregator) error {
	o, ok := other.(*Histogrammer)
	if !ok {
		return fmt.Errorf("cannot merge %T into histograms", other)
	}
	if len(o.hists) != len(h.hists) {
		return fmt.Errorf("cannot merge %d histograms into %d", len(o.hists), len(h.hists))
	}
	for i := range h.hists {
		if h.specs[i].name != o.specs[i].name {
			return fmt.Errorf("cannot merge histogram %q into %q", o.specs[i].name, h.specs[i].name)
		}
		sum := hbook.AddH1D(h.hists[i], o.hists[i])
		sum.Ann["name"] = h.specs[i].name
		sum.Ann["title"] = h.specs[i].title
		h.hists[i] = sum
	}
	return nil
}

// Histogram returns the histogram called name, or nil.
func (h *Histogrammer) Histogram(name string) *hbook.H1D {
	for i, s := range h.specs {
		if s.name == name {
			return h.hists[i]
		}
	}
	return nil
}

// Names lists the histogram names in definition order.
func (h *Histogrammer) Names() []string {
	names := make([]string, len(h.specs))
	for i, s := range h.specs {
		names[i] = s.name
	}
	return names
}

// MarshalYODA encodes every histogram in YODA format.
func (h *Histogrammer) MarshalYODA() ([]byte, error) {
	var buf bytes.Buffer
	for i, hist := range h.hists {
		raw, err := hist.MarshalYODA()
		if err != nil {
			return nil, fmt.Errorf("histogram %q: %w", h.specs[i].name, err)
		}
		buf.Write(raw)
		if !strings.HasSuffix(string(raw), "\n") {
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes(), nil
}

// Save writes the histograms to filename in YODA format.
func (h *Histogrammer) Save(filename string) error {
	raw, err := h.MarshalYODA()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, raw, 0o644); err != nil {
		return &ErrOpenFile{Filename: filename, Err: err}
	}
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Histograms written to %s", filename), "histograms")
	}
	return nil
}
