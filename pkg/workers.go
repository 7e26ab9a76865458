package reaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// EventData is one raw event handed to a worker.
type EventData struct {
	Number int
	Record Record
}

// Aggregator accumulates results from accepted events. Each worker fills
// its own; Merge combines partial results and must be commutative.
type Aggregator interface {
	Fill(e *Event) error
	Merge(other Aggregator) error
}

// Cloner is an Aggregator able to produce an empty copy of itself.
type Cloner interface {
	Aggregator
	Clone() Aggregator
}

// Aggregators fills and merges several aggregators together.
type Aggregators []Cloner

func (a Aggregators) Fill(e *Event) error {
	for _, agg := range a {
		if err := agg.Fill(e); err != nil {
			return err
		}
	}
	return nil
}

func (a Aggregators) Merge(other Aggregator) error {
	o, ok := other.(Aggregators)
	if !ok || len(o) != len(a) {
		return fmt.Errorf("cannot merge %T into %d aggregators", other, len(a))
	}
	for i := range a {
		if err := a[i].Merge(o[i]); err != nil {
			return err
		}
	}
	return nil
}

func (a Aggregators) Clone() Aggregator {
	clone := make(Aggregators, len(a))
	for i, agg := range a {
		clone[i] = agg.Clone().(Cloner)
	}
	return clone
}

// Summary counts the outcome of processed events.
type Summary struct {
	Processed  int64
	Accepted   int64
	Rejected   int64
	Failed     int64
	Duplicates int64
	CutFlow    *CutFlow
}

func (s *Summary) merge(other Summary) {
	s.Processed += other.Processed
	s.Accepted += other.Accepted
	s.Rejected += other.Rejected
	s.Failed += other.Failed
	s.Duplicates += other.Duplicates
	s.CutFlow.Merge(other.CutFlow)
}

// Run evaluates the events of jobs on nWorkers partitions. Every worker owns
// an Event and a clone of prototype (which may be nil); the partial results
// are merged into prototype once jobs is drained. Data errors only discard
// the event they occur in.
func (r *Reaction) Run(ctx context.Context, jobs <-chan EventData, nWorkers int, prototype Cloner) (Summary, error) {
	if !r.graph.Built() {
		return Summary{}, ErrNotBuilt
	}
	if nWorkers < 1 {
		nWorkers = 1
	}
	summaries := make([]Summary, nWorkers)
	partials := make([]Aggregator, nWorkers)

	g, ctx := errgroup.WithContext(ctx)
	for id := 0; id < nWorkers; id++ {
		var agg Aggregator
		if prototype != nil {
			agg = prototype.Clone()
		}
		partials[id] = agg
		summaries[id] = Summary{CutFlow: r.NewCutFlow()}
		g.Go(func() error {
			return r.worker(ctx, id, jobs, agg, &summaries[id])
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	total := Summary{CutFlow: r.NewCutFlow()}
	var errs []error
	for id := range summaries {
		total.merge(summaries[id])
		if prototype != nil {
			if err := prototype.Merge(partials[id]); err != nil {
				errs = append(errs, fmt.Errorf("merging worker %d: %w", id, err))
			}
		}
	}
	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Processed %d events: %d accepted, %d rejected, %d failed",
			total.Processed, total.Accepted, total.Rejected, total.Failed)
		logger.Info(message, "workers")
	}
	return total, errors.Join(errs...)
}

func (r *Reaction) worker(ctx context.Context, id int, jobs <-chan EventData, agg Aggregator, summary *Summary) error {
	event, err := r.NewEvent()
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-jobs:
			if !ok {
				return nil
			}
			start := time.Now()
			status, err := r.processEvent(event, data, agg, summary)
			if err != nil {
				message := fmt.Errorf("worker %d discarding event %d: %w", id, data.Number, err)
				logger.Error(message.Error())
			}
			summary.Processed++
			switch status {
			case StatusAccepted:
				summary.Accepted++
			case StatusRejected:
				summary.Rejected++
			default:
				summary.Failed++
			}
			r.metrics.event(status, time.Since(start))
		}
	}
}

func (r *Reaction) processEvent(event *Event, data EventData, agg Aggregator, summary *Summary) (status string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			status = StatusFailed
			err = fmt.Errorf("recovered from panic: %v", rec)
		}
	}()

	event.Reset(data.Record, data.Number)
	if r.IsTruthMatched() {
		perm, err := Get[Permutation](event, PermutationColumn)
		if err != nil {
			return StatusFailed, err
		}
		r.metrics.matching(perm)
		if perm.Duplicates() > 0 {
			summary.Duplicates += int64(perm.Duplicates())
			if configuration.Verbosity > 1 {
				message := fmt.Sprintf("Event %d: %d reconstructed entries share a truth slot, first kept", data.Number, perm.Duplicates())
				logger.Info(message, "workers")
			}
		}
	}

	pass, passed, err := r.Accept(event)
	if err != nil {
		return StatusFailed, err
	}
	summary.CutFlow.Record(passed)
	if !pass {
		r.metrics.rejected(r.gates[passed].label)
		return StatusRejected, nil
	}
	if agg != nil {
		if err := agg.Fill(event); err != nil {
			return StatusFailed, err
		}
	}
	return StatusAccepted, nil
}
