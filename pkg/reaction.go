package reaction

import (
	"errors"
	"fmt"
	"reflect"
)

// Column name prefixes of the data types.
const (
	RecPrefix   = "rec_"
	TruthPrefix = "tru_"
	ResPrefix   = "res_"
)

const (
	RecCountColumn    = RecPrefix + "n"
	TruthCountColumn  = TruthPrefix + "n"
	MatchIDColumn     = RecPrefix + "match_id"
	PermutationColumn = RecPrefix + "match_perm"
	DuplicatesColumn  = RecPrefix + "match_duplicates"
)

// Module is a capability plugged into a Reaction: basic aliasing, truth
// matching, detector association and so on.
type Module interface {
	Name() string
	Configure(r *Reaction) error
}

// Reaction assembles the column graph of a final state from modules, particle
// bindings and filters. Configuration errors are collected and reported by
// Build, before any event is processed.
type Reaction struct {
	graph     *Graph
	mode      MatchMode
	tables    Tables
	types     []string
	modules   []string
	particles []*particle
	byName    map[string]*particle
	gates     []gate
	mapped    bool
	metrics   *Metrics
	errs      []error
}

type Option func(*Reaction)

// WithTruthMatching switches the reaction to truth-matched mode: every
// reconstructed fundamental is reordered into truth order.
func WithTruthMatching() Option {
	return func(r *Reaction) { r.mode = TruthMatched }
}

func WithTables(t Tables) Option {
	return func(r *Reaction) { r.tables = t }
}

func WithMetrics(m *Metrics) Option {
	return func(r *Reaction) { r.metrics = m }
}

func NewReaction(opts ...Option) *Reaction {
	r := &Reaction{
		tables: DefaultTables(),
		byName: make(map[string]*particle),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.graph = NewGraph(r.mode)
	return r
}

func (r *Reaction) Graph() *Graph { return r.graph }

func (r *Reaction) Mode() MatchMode { return r.mode }

func (r *Reaction) IsTruthMatched() bool { return r.mode == TruthMatched }

func (r *Reaction) Tables() Tables { return r.tables }

func (r *Reaction) fail(err error) {
	if err != nil {
		r.errs = append(r.errs, err)
	}
}

// Err returns the configuration errors collected so far.
func (r *Reaction) Err() error {
	return errors.Join(r.errs...)
}

// Use configures the given modules in order.
func (r *Reaction) Use(modules ...Module) {
	for _, m := range modules {
		if configuration.Verbosity > 0 {
			logger.Info(fmt.Sprintf("Configuring module %s", m.Name()), "reaction")
		}
		r.modules = append(r.modules, m.Name())
		if err := m.Configure(r); err != nil {
			r.fail(fmt.Errorf("module %s: %w", m.Name(), err))
		}
	}
}

// HasModule reports whether a module with that name was configured.
func (r *Reaction) HasModule(name string) bool {
	for _, m := range r.modules {
		if m == name {
			return true
		}
	}
	return false
}

// AddType registers a data type prefix (rec_, tru_) for per-type columns.
func (r *Reaction) AddType(prefix string) {
	for _, t := range r.types {
		if t == prefix {
			return
		}
	}
	r.types = append(r.types, prefix)
}

func (r *Reaction) Types() []string {
	return append([]string(nil), r.types...)
}

func (r *Reaction) HasType(prefix string) bool {
	for _, t := range r.types {
		if t == prefix {
			return true
		}
	}
	return false
}

// Input declares a raw column. Declaring the same input twice with the same
// type is allowed.
func (r *Reaction) Input(name string, typ reflect.Type, opts ...NodeOption) {
	if have, ok := r.graph.TypeOf(name); ok {
		if have != typ {
			r.fail(mismatch(name, "input redeclared as %v, declared as %v", typ, have))
		}
		return
	}
	r.fail(r.graph.Input(name, typ, opts...))
}

// Fundamental aliases a raw per-entry column under name. In truth-matched
// mode reconstructed fundamentals get their reorder rule here.
func (r *Reaction) Fundamental(src Source, raw string, name string, typ reflect.Type) {
	r.Input(raw, typ, FromSource(src))
	if err := r.graph.Alias(name, raw, Fundamental(src)); err != nil {
		r.fail(err)
		return
	}
	if r.mode == TruthMatched && src == SourceRec {
		r.reorder(name, typ)
	}
}

func (r *Reaction) reorder(name string, typ reflect.Type) {
	if id, ok := r.graph.latest[name]; ok && r.graph.nodes[id].reorder {
		return
	}
	fn := func(args []any) (any, error) {
		return ReorderColumn(args[0], args[1].(Permutation))
	}
	r.fail(r.graph.derive(name, typ, []string{name, PermutationColumn}, []reflect.Type{typ, tPerm}, fn, reorderRule()))
}

// Define declares or redefines a derived column, see Graph.Define.
func (r *Reaction) Define(name string, fn any, inputs []string, opts ...NodeOption) {
	r.fail(r.graph.Define(name, fn, inputs, opts...))
}

// Redefine replaces the definition of an existing column. The column's own
// name in inputs refers to its previous definition.
func (r *Reaction) Redefine(name string, fn any, inputs []string, opts ...NodeOption) {
	if !r.graph.Has(name) {
		r.fail(misconfigured(name, "redefinition of undeclared column"))
		return
	}
	r.Define(name, fn, inputs, opts...)
}

// DefineForAllTypes declares prefix+name for every data type, replacing the
// "{p}" placeholder in inputs by the type prefix.
func (r *Reaction) DefineForAllTypes(name string, fn any, inputs []string, opts ...NodeOption) {
	for _, prefix := range r.types {
		typed := make([]string, len(inputs))
		for i, in := range inputs {
			typed[i] = expandPrefix(in, prefix)
		}
		r.Define(prefix+name, fn, typed, opts...)
	}
}

func expandPrefix(column string, prefix string) string {
	const placeholder = "{p}"
	if len(column) >= len(placeholder) && column[:len(placeholder)] == placeholder {
		return prefix + column[len(placeholder):]
	}
	return column
}

// Build finishes the configuration: particle vectors are created, truth
// matching requirements are checked and the graph is frozen.
func (r *Reaction) Build() error {
	if !r.mapped {
		r.MakeParticleMap()
	}
	if r.mode == TruthMatched {
		if !r.graph.Has(PermutationColumn) {
			r.fail(misconfigured(PermutationColumn, "truth matching enabled without a correspondence input"))
		}
		if !r.HasType(TruthPrefix) {
			r.fail(misconfigured(TruthCountColumn, "truth matching enabled without truth particles"))
		}
	}
	if err := r.Err(); err != nil {
		return err
	}
	if err := r.graph.Build(); err != nil {
		return err
	}
	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Reaction built: %d columns, %d filters, mode %v", len(r.graph.Columns()), len(r.gates), r.mode)
		logger.Info(message, "reaction")
	}
	return nil
}

// NewEvent returns an evaluation context for the built reaction.
func (r *Reaction) NewEvent() (*Event, error) {
	return r.graph.NewEvent()
}
