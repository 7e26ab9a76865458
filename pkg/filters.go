package reaction

import (
	"fmt"
	"reflect"
)

type gate struct {
	label  string
	column string
}

const filterPrefix = "filter_"

// Filter registers a named gate. fn must return bool; its arguments follow
// the same rules as Define. Gates are combined by logical AND in
// registration order.
func (r *Reaction) Filter(label string, fn any, inputs ...string) {
	column := filterPrefix + label
	if err := r.graph.Define(column, fn, inputs, Hidden()); err != nil {
		r.fail(err)
		return
	}
	if typ, _ := r.graph.TypeOf(column); typ != tBool {
		r.fail(mismatch(column, "filter %q returns %v, not bool", label, typ))
		return
	}
	r.addGate(label, column)
}

func (r *Reaction) addGate(label string, column string) {
	for _, g := range r.gates {
		if g.label == label {
			r.fail(misconfigured(column, "filter %q registered twice", label))
			return
		}
	}
	r.gates = append(r.gates, gate{label: label, column: column})
}

// RequireOK keeps events where every listed particle has its _OK flag set.
func (r *Reaction) RequireOK(label string, particles ...string) {
	inputs := make([]string, len(particles))
	argTypes := make([]reflect.Type, len(particles))
	for i, p := range particles {
		inputs[i] = p + OKSuffix
		argTypes[i] = tInt
	}
	column := filterPrefix + label
	r.fail(r.graph.derive(column, tBool, inputs, argTypes, func(args []any) (any, error) {
		for _, a := range args {
			if a.(int) != 1 {
				return false, nil
			}
		}
		return true, nil
	}, Hidden()))
	r.addGate(label, column)
}

// Cut keeps events whose column value lies in [min, max]; nil bounds are
// open. With a particle the column is a jagged list read at the particle
// index, and an unresolved particle fails the cut.
func (r *Reaction) Cut(label string, column string, particle string, min *float64, max *float64) {
	inputs := []string{column}
	argTypes := []reflect.Type{nil}
	if particle != "" {
		inputs = append(inputs, particle)
		argTypes = append(argTypes, tInt)
	}
	gateColumn := filterPrefix + label
	r.fail(r.graph.derive(gateColumn, tBool, inputs, argTypes, func(args []any) (any, error) {
		var v float64
		var ok bool
		if len(args) == 2 {
			v, ok = elementFloat(args[0], args[1].(int))
		} else {
			v, ok = toFloat(args[0])
		}
		if !ok {
			return false, nil
		}
		if min != nil && v < *min {
			return false, nil
		}
		if max != nil && v > *max {
			return false, nil
		}
		return true, nil
	}, Hidden()))
	r.addGate(label, gateColumn)
}

// Filters lists the gate labels in evaluation order.
func (r *Reaction) Filters() []string {
	labels := make([]string, len(r.gates))
	for i, g := range r.gates {
		labels[i] = g.label
	}
	return labels
}

// Accept evaluates the gates in order and stops at the first false one. It
// returns whether the event passed and how many gates it passed.
func (r *Reaction) Accept(e *Event) (bool, int, error) {
	for i, g := range r.gates {
		v, err := Get[bool](e, g.column)
		if err != nil {
			return false, i, fmt.Errorf("filter %q: %w", g.label, err)
		}
		if !v {
			return false, i, nil
		}
	}
	return true, len(r.gates), nil
}

// CutFlow counts, per gate, the events reaching and passing it.
type CutFlow struct {
	Labels []string
	Passed []int64
	Total  int64
}

func (r *Reaction) NewCutFlow() *CutFlow {
	return &CutFlow{Labels: r.Filters(), Passed: make([]int64, len(r.gates))}
}

// Record adds an event that passed the first passed gates.
func (c *CutFlow) Record(passed int) {
	c.Total++
	for i := 0; i < passed && i < len(c.Passed); i++ {
		c.Passed[i]++
	}
}

// Merge adds the counts of other. Both must come from the same reaction.
func (c *CutFlow) Merge(other *CutFlow) {
	c.Total += other.Total
	for i := range c.Passed {
		if i < len(other.Passed) {
			c.Passed[i] += other.Passed[i]
		}
	}
}

func (c *CutFlow) String() string {
	s := fmt.Sprintf("events: %d", c.Total)
	reaching := c.Total
	for i, label := range c.Labels {
		eff := 0.0
		if reaching > 0 {
			eff = 100 * float64(c.Passed[i]) / float64(reaching)
		}
		s += fmt.Sprintf("\n%-20s pass=%-10d all=%-10d -- eff=%.2f %%", label, c.Passed[i], reaching, eff)
		reaching = c.Passed[i]
	}
	return s
}
