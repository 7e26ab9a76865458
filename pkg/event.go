package reaction

import (
	"fmt"
	"reflect"
)

// Event is the evaluation context of one event. Column values are computed
// lazily and at most once until the next Reset. An Event is not safe for
// concurrent use; each worker owns one.
type Event struct {
	graph  *Graph
	record Record
	values []any
	done   []bool
	Number int
}

// NewEvent returns an evaluation context for a built graph.
func (g *Graph) NewEvent() (*Event, error) {
	if !g.built {
		return nil, ErrNotBuilt
	}
	return &Event{
		graph:  g,
		values: make([]any, len(g.nodes)),
		done:   make([]bool, len(g.nodes)),
	}, nil
}

// Reset invalidates every value and loads the next record.
func (e *Event) Reset(record Record, number int) {
	e.record = record
	e.Number = number
	for i := range e.values {
		e.values[i] = nil
		e.done[i] = false
	}
}

// Get returns the value of the latest definition of name.
func (e *Event) Get(name string) (any, error) {
	id, ok := e.graph.latest[name]
	if !ok {
		return nil, &EventError{Column: name, Err: ErrUnknownColumn}
	}
	return e.value(id)
}

// Evaluate computes every column of the event in dependency order.
func (e *Event) Evaluate() error {
	for _, id := range e.graph.order {
		if _, err := e.value(id); err != nil {
			return err
		}
	}
	return nil
}

func (e *Event) value(id int) (any, error) {
	if e.done[id] {
		return e.values[id], nil
	}
	n := e.graph.nodes[id]
	var v any
	switch n.kind {
	case ruleInput:
		raw, ok := e.record[n.name]
		if !ok {
			return nil, &EventError{Column: n.name, Err: ErrMissingInput}
		}
		if reflect.TypeOf(raw) != n.typ {
			return nil, &EventError{Column: n.name, Err: fmt.Errorf("%w: %T, declared %v", ErrInputType, raw, n.typ)}
		}
		v = raw
	case ruleConstant:
		v = n.constant
	case ruleAlias:
		target, err := e.value(n.deps[0])
		if err != nil {
			return nil, err
		}
		v = target
	case ruleDerive:
		args := make([]any, len(n.deps))
		for i, dep := range n.deps {
			a, err := e.value(dep)
			if err != nil {
				return nil, err
			}
			args[i] = a
		}
		out, err := n.fn(args)
		if err != nil {
			return nil, &EventError{Column: n.name, Err: err}
		}
		v = out
	}
	e.values[id] = v
	e.done[id] = true
	return v, nil
}

// Get returns the value of column name as a T.
func Get[T any](e *Event, name string) (T, error) {
	var zero T
	v, err := e.Get(name)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, &EventError{Column: name, Err: fmt.Errorf("%w: column is %T, read as %v", ErrTypeMismatch, v, TypeOf[T]())}
	}
	return t, nil
}
