package optim

import (
	"context"
	"errors"
	"testing"
)

func bowl(_ context.Context, p map[string]float64) (float64, error) {
	x, y := p["x"]-2, p["y"]+1
	return x*x + y*y, nil
}

func TestGridSearchFindsMinimum(t *testing.T) {
	g := NewGridSearch([]string{"x", "y"}, [][]float64{{0, 1, 2, 3}, {-2, -1, 0}})
	if g.Size() != 12 {
		t.Fatalf("expected 12 points, got %d", g.Size())
	}

	res, err := g.Search(context.Background(), bowl)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if res.Params["x"] != 2 || res.Params["y"] != -1 {
		t.Errorf("expected (2, -1), got %v", res.Params)
	}
	if res.Score != 0 {
		t.Errorf("expected score 0, got %v", res.Score)
	}
	if res.Evaluated != 12 || res.Failed != 0 {
		t.Errorf("expected 12 evaluated 0 failed, got %d/%d", res.Evaluated, res.Failed)
	}
}

func TestGridSearchSkipsFailures(t *testing.T) {
	g := NewGridSearch([]string{"x"}, [][]float64{{1, 2, 3}})
	res, err := g.Search(context.Background(), func(_ context.Context, p map[string]float64) (float64, error) {
		if p["x"] == 3 {
			return 0, errors.New("diverged")
		}
		return p["x"], nil
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if res.Params["x"] != 1 || res.Failed != 1 {
		t.Errorf("unexpected result %+v", res)
	}

	_, err = g.Search(context.Background(), func(context.Context, map[string]float64) (float64, error) {
		return 0, errors.New("always")
	})
	if !errors.Is(err, ErrNoCandidates) {
		t.Errorf("expected ErrNoCandidates, got %v", err)
	}
}

func TestGridSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := NewGridSearch([]string{"x"}, [][]float64{{5, 4, 3, 2, 1}})

	calls := 0
	res, err := g.Search(ctx, func(_ context.Context, p map[string]float64) (float64, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return p["x"], nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 evaluations, got %d", calls)
	}
	if res == nil || res.Params["x"] != 4 {
		t.Errorf("expected best-so-far x=4, got %+v", res)
	}
}

func TestGridSearchMismatchedRanges(t *testing.T) {
	g := NewGridSearch([]string{"x", "y"}, [][]float64{{1}})
	if _, err := g.Search(context.Background(), bowl); err == nil {
		t.Error("expected error for mismatched ranges")
	}
}
