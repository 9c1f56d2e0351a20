package sim

import (
	"context"
	"errors"
	"sync"
)

// Factory builds an independent runner for one ensemble member.
type Factory func(idx int, seed int64) (*Runner, error)

// Ensemble runs several independently seeded runners concurrently.
type Ensemble struct {
	factory   Factory
	numRuns   int
	seedStart int64
	// Workers bounds the number of concurrent runs. Zero runs them all at once.
	Workers int
}

func NewEnsemble(f Factory, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{factory: f, numRuns: numRuns, seedStart: seedStart}
}

func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	workers := e.Workers
	if workers <= 0 || workers > e.numRuns {
		workers = e.numRuns
	}
	sem := make(chan struct{}, max(workers, 1))

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			r, err := e.factory(idx, e.seedStart+int64(idx))
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx], errs[idx] = r.Run(ctx)
		}(i)
	}

	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return results, err
	}
	return results, nil
}
