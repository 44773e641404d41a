// Package transformer sequences the transform stages over a table.Store.
// Each stage reads the tables it needs, replaces them wholesale, and hands
// the same store to the next stage.
package transformer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bendy2509/etl-projet-1/internal/metrics"
	"github.com/bendy2509/etl-projet-1/internal/table"

	"github.com/jonboulle/clockwork"
)

// Stage is one transform step.
type Stage interface {
	Name() string
	Apply(ctx context.Context, s *table.Store) (*table.Store, error)
}

// Chain is an ordered list of stages.
type Chain []Stage

// Apply runs the stages in order without instrumentation.
func (c Chain) Apply(ctx context.Context, s *table.Store) (*table.Store, error) {
	return Runner{}.Run(ctx, c, s)
}

// Runner executes a Chain, timing each stage and recording it under the run
// id. The zero value is usable.
type Runner struct {
	RunID string
	Log   *slog.Logger
	Clock clockwork.Clock
}

// Run applies every stage of c to s. The context is checked before each
// stage; the first stage error aborts the chain.
func (r Runner) Run(ctx context.Context, c Chain, s *table.Store) (*table.Store, error) {
	log := r.Log
	if log == nil {
		log = slog.Default()
	}
	clock := r.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	out := s
	for _, st := range c {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := clock.Now()
		next, err := st.Apply(ctx, out)
		elapsed := clock.Since(start)
		metrics.RecordStep(r.RunID, st.Name(), err, elapsed)
		if err != nil {
			log.Error("stage failed", "stage", st.Name(), "err", err)
			return nil, fmt.Errorf("%s: %w", st.Name(), err)
		}
		log.Debug("stage done", "stage", st.Name(), "elapsed", elapsed)
		out = next
	}
	return out, nil
}
