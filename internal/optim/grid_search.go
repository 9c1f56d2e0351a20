package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var ErrNoCandidates = errors.New("optim: no candidate evaluated successfully")

// Objective scores one parameter assignment. Lower is better.
type Objective func(ctx context.Context, params map[string]float64) (float64, error)

// GridSearch evaluates every combination of the given parameter values.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Size is the number of points in the grid.
func (g *GridSearch) Size() int {
	if len(g.ranges) == 0 {
		return 0
	}
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

type Result struct {
	Params    map[string]float64
	Score     float64
	Evaluated int
	Failed    int
}

// Search returns the best scoring point. Points whose objective fails are
// counted and skipped; a cancelled context stops the search and returns the
// best point found so far with ctx.Err().
func (g *GridSearch) Search(ctx context.Context, objective Objective) (*Result, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, fmt.Errorf("optim: %d names for %d ranges", len(g.paramNames), len(g.ranges))
	}

	res := &Result{Score: math.Inf(1)}
	err := g.searchRecursive(ctx, 0, make(map[string]float64), objective, res)
	if res.Params == nil {
		if err != nil {
			return nil, err
		}
		return nil, ErrNoCandidates
	}
	return res, err
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	objective Objective,
	res *Result,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		val, err := objective(ctx, current)
		res.Evaluated++
		if err != nil || math.IsNaN(val) {
			res.Failed++
			return nil
		}
		if val < res.Score {
			res.Score = val
			res.Params = make(map[string]float64, len(current))
			for k, v := range current {
				res.Params[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, objective, res); err != nil {
			return err
		}
	}
	return nil
}
