package reaction

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
)

// MatchMode says whether reconstructed particles are reordered into truth
// order. It is fixed when the graph is created.
type MatchMode int

const (
	Unmatched MatchMode = iota
	TruthMatched
)

func (m MatchMode) String() string {
	switch m {
	case Unmatched:
		return "unmatched"
	case TruthMatched:
		return "truth-matched"
	default:
		return "unknown"
	}
}

// Source is the data-source kind of a column.
type Source int

const (
	SourceNone Source = iota
	SourceRec
	SourceTruth
)

func (s Source) String() string {
	switch s {
	case SourceRec:
		return "rec"
	case SourceTruth:
		return "truth"
	default:
		return "none"
	}
}

type ruleKind int

const (
	ruleInput ruleKind = iota
	ruleAlias
	ruleDerive
	ruleConstant
)

func (k ruleKind) String() string {
	switch k {
	case ruleInput:
		return "input"
	case ruleAlias:
		return "alias"
	case ruleDerive:
		return "derive"
	case ruleConstant:
		return "constant"
	default:
		return "unknown"
	}
}

type deriveFunc func(args []any) (any, error)

type node struct {
	id       int
	name     string
	typ      reflect.Type
	kind     ruleKind
	inputs   []string
	argTypes []reflect.Type
	deps     []int
	selfRefs []bool
	previous int
	fn       deriveFunc
	constant any

	source      Source
	fundamental bool
	reorder     bool
	unordered   bool
	hidden      bool
}

// NodeOption sets registration flags on a column.
type NodeOption func(*node)

// FromSource tags an input column with the list it is drawn from.
func FromSource(src Source) NodeOption {
	return func(n *node) { n.source = src }
}

// Fundamental marks a direct alias of a raw per-entry quantity. In
// truth-matched mode reconstructed fundamentals must be reordered.
func Fundamental(src Source) NodeOption {
	return func(n *node) {
		n.source = src
		n.fundamental = true
	}
}

// ReadsUnordered allows a derivation to read reconstructed columns in their
// original order, e.g. to count entries.
func ReadsUnordered() NodeOption {
	return func(n *node) { n.unordered = true }
}

// Hidden keeps a column out of Columns and snapshots.
func Hidden() NodeOption {
	return func(n *node) { n.hidden = true }
}

func reorderRule() NodeOption {
	return func(n *node) { n.reorder = true }
}

// Graph is the set of named, typed per-event columns. Its shape is frozen by
// Build; evaluation happens through Event.
type Graph struct {
	mode   MatchMode
	nodes  []*node
	latest map[string]int
	order  []int
	built  bool
}

func NewGraph(mode MatchMode) *Graph {
	return &Graph{mode: mode, latest: make(map[string]int)}
}

func (g *Graph) Mode() MatchMode { return g.mode }

func (g *Graph) Built() bool { return g.built }

// Has reports whether name has been declared.
func (g *Graph) Has(name string) bool {
	_, ok := g.latest[name]
	return ok
}

// TypeOf returns the declared type of the latest definition of name.
func (g *Graph) TypeOf(name string) (reflect.Type, bool) {
	id, ok := g.latest[name]
	if !ok {
		return nil, false
	}
	return g.nodes[id].typ, true
}

func (g *Graph) add(n *node, opts []NodeOption) error {
	if g.built {
		return fmt.Errorf("declaring %q: %w", n.name, ErrGraphBuilt)
	}
	for _, opt := range opts {
		opt(n)
	}
	n.id = len(g.nodes)
	n.previous = -1
	if prev, ok := g.latest[n.name]; ok {
		old := g.nodes[prev]
		if old.typ != nil && n.typ != nil && old.typ != n.typ {
			return mismatch(n.name, "redefinition as %v, declared as %v", n.typ, old.typ)
		}
		if n.typ == nil {
			n.typ = old.typ
		}
		n.previous = prev
		if old.fundamental && !n.fundamental {
			n.source = old.source
		}
	}
	n.selfRefs = make([]bool, len(n.inputs))
	for i, in := range n.inputs {
		if in == n.name {
			if n.previous < 0 {
				return misconfigured(n.name, "reads itself before any definition")
			}
			n.selfRefs[i] = true
		}
	}
	g.nodes = append(g.nodes, n)
	g.latest[n.name] = n.id
	return nil
}

// Input declares a raw column read from each event record.
func (g *Graph) Input(name string, typ reflect.Type, opts ...NodeOption) error {
	if typ == nil {
		return mismatch(name, "input declared without a type")
	}
	return g.add(&node{name: name, typ: typ, kind: ruleInput}, opts)
}

// Alias declares name as a pure rename of target. Aliasing the same target
// twice under one name is a no-op.
func (g *Graph) Alias(name string, target string, opts ...NodeOption) error {
	if id, ok := g.latest[name]; ok {
		for ; id >= 0; id = g.nodes[id].previous {
			n := g.nodes[id]
			if n.kind == ruleAlias && n.inputs[0] == target {
				return nil
			}
		}
	}
	typ, ok := g.TypeOf(target)
	if !ok {
		return misconfigured(name, "alias of undeclared column %q", target)
	}
	return g.add(&node{name: name, typ: typ, kind: ruleAlias, inputs: []string{target}}, opts)
}

// Constant declares a column holding the same value in every event.
func (g *Graph) Constant(name string, value any, opts ...NodeOption) error {
	return g.add(&node{name: name, typ: reflect.TypeOf(value), kind: ruleConstant, constant: value}, opts)
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Define declares (or redefines) a derived column. fn must be a function
// taking one argument per input, with the inputs' declared types, and
// returning the column value, optionally followed by an error. Inside a
// redefinition the column's own name refers to its previous definition.
func (g *Graph) Define(name string, fn any, inputs []string, opts ...NodeOption) error {
	fv := reflect.ValueOf(fn)
	ft := fv.Type()
	if ft.Kind() != reflect.Func {
		return mismatch(name, "derivation is %v, not a function", ft)
	}
	if ft.NumIn() != len(inputs) {
		return mismatch(name, "derivation takes %d arguments, %d inputs given", ft.NumIn(), len(inputs))
	}
	withErr := ft.NumOut() == 2 && ft.Out(1) == errorType
	if ft.NumOut() != 1 && !withErr {
		return mismatch(name, "derivation must return a value and optionally an error")
	}
	argTypes := make([]reflect.Type, ft.NumIn())
	for i := range argTypes {
		argTypes[i] = ft.In(i)
	}
	call := func(args []any) (any, error) {
		in := make([]reflect.Value, len(args))
		for i, a := range args {
			if a == nil {
				in[i] = reflect.Zero(argTypes[i])
				continue
			}
			in[i] = reflect.ValueOf(a)
		}
		out := fv.Call(in)
		if withErr && !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return out[0].Interface(), nil
	}
	return g.derive(name, ft.Out(0), inputs, argTypes, call, opts...)
}

// derive is Define without reflection on the call path.
func (g *Graph) derive(name string, typ reflect.Type, inputs []string, argTypes []reflect.Type, fn deriveFunc, opts ...NodeOption) error {
	n := &node{
		name:     name,
		typ:      typ,
		kind:     ruleDerive,
		inputs:   append([]string(nil), inputs...),
		argTypes: argTypes,
		fn:       fn,
	}
	return g.add(n, opts)
}

// Columns lists the visible column names in declaration order.
func (g *Graph) Columns() []string {
	var names []string
	seen := make(map[string]bool)
	for _, n := range g.nodes {
		if n.hidden || seen[n.name] {
			continue
		}
		if g.nodes[g.latest[n.name]].hidden {
			continue
		}
		seen[n.name] = true
		names = append(names, n.name)
	}
	return names
}

// Inputs returns the raw columns an event record must provide.
func (g *Graph) Inputs() map[string]reflect.Type {
	inputs := make(map[string]reflect.Type)
	for _, n := range g.nodes {
		if n.kind == ruleInput {
			inputs[n.name] = n.typ
		}
	}
	return inputs
}

// InputNames returns the raw column names sorted.
func (g *Graph) InputNames() []string {
	var names []string
	for name := range g.Inputs() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build resolves dependencies, checks types, orders the graph and validates
// the reorder rules of truth-matched mode. After Build the graph shape is
// immutable.
func (g *Graph) Build() error {
	if g.built {
		return ErrGraphBuilt
	}
	var errs []error
	for _, n := range g.nodes {
		n.deps = make([]int, len(n.inputs))
		for i, in := range n.inputs {
			if n.selfRefs[i] {
				n.deps[i] = n.previous
				continue
			}
			id, ok := g.latest[in]
			if !ok {
				errs = append(errs, misconfigured(n.name, "reads undeclared column %q", in))
				n.deps[i] = -1
				continue
			}
			n.deps[i] = id
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	order, err := g.topologicalOrder()
	if err != nil {
		return err
	}
	for _, id := range order {
		n := g.nodes[id]
		switch n.kind {
		case ruleAlias:
			target := g.nodes[n.deps[0]]
			if n.typ != target.typ {
				errs = append(errs, mismatch(n.name, "alias declared as %v, %q is %v", n.typ, target.name, target.typ))
			}
		case ruleDerive:
			for i, dep := range n.deps {
				want := n.argTypes[i]
				have := g.nodes[dep].typ
				if want == nil || have == nil {
					continue
				}
				if !have.AssignableTo(want) {
					errs = append(errs, mismatch(n.name, "argument %d (%q) is %v, derivation expects %v", i, n.inputs[i], have, want))
				}
			}
		}
	}
	if g.mode == TruthMatched {
		errs = append(errs, g.validateReorder()...)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	g.order = order
	g.built = true
	return nil
}

func (g *Graph) topologicalOrder() ([]int, error) {
	const (
		white = iota
		grey
		black
	)
	color := make([]int, len(g.nodes))
	order := make([]int, 0, len(g.nodes))
	var visit func(id int, path []string) error
	visit = func(id int, path []string) error {
		n := g.nodes[id]
		switch color[id] {
		case grey:
			return &ConfigError{Kind: ErrMisconfiguredDependency, Column: n.name,
				Err: fmt.Errorf("%w through %v", ErrCycle, append(path, n.name))}
		case black:
			return nil
		}
		color[id] = grey
		for _, dep := range n.deps {
			if err := visit(dep, append(path, n.name)); err != nil {
				return err
			}
		}
		color[id] = black
		order = append(order, id)
		return nil
	}
	for id := range g.nodes {
		if err := visit(id, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// preReorder reports whether node id exposes reconstructed per-entry data in
// its original order: a raw reconstructed input, or a definition of a
// reconstructed fundamental that precedes its reorder rule.
func (g *Graph) preReorder(id int) bool {
	n := g.nodes[id]
	if n.kind == ruleInput && n.source == SourceRec {
		return true
	}
	if !g.recFundamental(n.name) {
		return false
	}
	return !g.reordered(id)
}

func (g *Graph) recFundamental(name string) bool {
	for _, n := range g.nodes {
		if n.name == name && n.fundamental && n.source == SourceRec {
			return true
		}
	}
	return false
}

// reordered reports whether id or one of its previous definitions is a
// reorder rule.
func (g *Graph) reordered(id int) bool {
	for ; id >= 0; id = g.nodes[id].previous {
		if g.nodes[id].reorder {
			return true
		}
	}
	return false
}

func (g *Graph) validateReorder() []error {
	var errs []error
	checked := make(map[string]bool)
	for _, n := range g.nodes {
		if !n.fundamental || n.source != SourceRec || checked[n.name] {
			continue
		}
		checked[n.name] = true
		if !g.reordered(g.latest[n.name]) {
			errs = append(errs, misconfigured(n.name, "reconstructed fundamental has no reorder rule"))
		}
	}
	for _, n := range g.nodes {
		if n.reorder || n.unordered {
			continue
		}
		for i, dep := range n.deps {
			if !g.preReorder(dep) {
				continue
			}
			// the fundamental alias itself is the pre-reorder stage
			if n.fundamental && n.kind == ruleAlias && g.nodes[dep].kind == ruleInput {
				continue
			}
			errs = append(errs, misconfigured(n.name, "reads %q before it is reordered into truth order", n.inputs[i]))
		}
	}
	return errs
}
