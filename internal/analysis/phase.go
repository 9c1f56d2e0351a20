package analysis

import (
	"fmt"
	"strings"
)

type Point struct{ X, Y float64 }

// PhasePortrait2D holds data for a 2D phase space plot
type PhasePortrait2D struct {
	XLabel, YLabel string
	Points         []Point
}

// NewPhasePortrait pairs xs with ys, truncating to the shorter slice.
func NewPhasePortrait(xLabel string, xs []float64, yLabel string, ys []float64) *PhasePortrait2D {
	n := min(len(xs), len(ys))
	p := &PhasePortrait2D{
		XLabel: xLabel,
		YLabel: yLabel,
		Points: make([]Point, n),
	}
	for i := 0; i < n; i++ {
		p.Points[i] = Point{X: xs[i], Y: ys[i]}
	}
	return p
}

// PhasePortraitToASCII plots the portrait on a width x height character grid,
// with axes drawn where zero is in range and the labels on the first line.
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := portrait.Points[0].X, portrait.Points[0].X
	minY, maxY := portrait.Points[0].Y, portrait.Points[0].Y
	for _, p := range portrait.Points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	minX, maxX = pad(minX, maxX)
	minY, maxY = pad(minY, maxY)

	col := func(x float64) int { return int((x - minX) / (maxX - minX) * float64(width-1)) }
	row := func(y float64) int { return height - 1 - int((y-minY)/(maxY-minY)*float64(height-1)) }

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	if minX <= 0 && maxX >= 0 {
		c := col(0)
		for r := range canvas {
			canvas[r][c] = '│'
		}
	}
	if minY <= 0 && maxY >= 0 {
		r := row(0)
		for c := range canvas[r] {
			if canvas[r][c] == '│' {
				canvas[r][c] = '┼'
			} else {
				canvas[r][c] = '─'
			}
		}
	}
	for _, p := range portrait.Points {
		canvas[row(p.Y)][col(p.X)] = '•'
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s vs %s  x:[%.1f, %.1f] y:[%.1f, %.1f]\n",
		portrait.YLabel, portrait.XLabel, minX, maxX, minY, maxY)
	for _, r := range canvas {
		sb.WriteString(string(r))
		sb.WriteRune('\n')
	}
	return sb.String()
}

// pad widens [lo, hi] by 10% on each side, or to unit width if empty.
func pad(lo, hi float64) (float64, float64) {
	span := hi - lo
	if span == 0 {
		span = 1
	}
	return lo - span*0.1, hi + span*0.1
}
