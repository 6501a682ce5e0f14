package backtest

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/uhyunpark/tickreplay/pkg/policy"
	"github.com/uhyunpark/tickreplay/pkg/sim"
)

// Spec describes one isolated run. Source and Policy are factories so every
// run gets its own instances.
type Spec struct {
	Label   string
	Config  sim.Config
	Rule    sim.PriceRule
	Verbose bool
	Source  func() (sim.Source, error)
	Policy  func() policy.Policy
}

// RunMany executes specs concurrently, each on its own engine. Logger,
// Store, Journal, Clock and Publisher are taken from shared and must be safe
// for concurrent use. Results are returned in spec order. The first failing
// run cancels the rest.
func RunMany(ctx context.Context, specs []Spec, shared Runner) ([]*Result, error) {
	results := make([]*Result, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			src, err := spec.Source()
			if err != nil {
				return fmt.Errorf("run %d (%s): failed to build source: %w", i, spec.Label, err)
			}
			opts := []sim.Option{sim.WithPriceRule(spec.Rule), sim.WithVerbose(spec.Verbose)}
			if shared.Logger != nil {
				opts = append(opts, sim.WithLogger(shared.Logger.With("label", spec.Label)))
			}
			eng, err := sim.New(spec.Config, src, opts...)
			if err != nil {
				return fmt.Errorf("run %d (%s): %w", i, spec.Label, err)
			}

			r := Runner{
				Engine:    eng,
				Policy:    spec.Policy(),
				Logger:    shared.Logger,
				Store:     shared.Store,
				Journal:   shared.Journal,
				Clock:     shared.Clock,
				Publisher: shared.Publisher,
				Label:     spec.Label,
			}
			res, err := r.Run(gctx)
			results[i] = res
			if err != nil {
				return fmt.Errorf("run %d (%s): %w", i, spec.Label, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
