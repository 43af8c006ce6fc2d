// Package stats holds the small numeric helpers behind trend detection.
package stats

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Point is a single (time, value) sample.
type Point struct {
	Time  time.Time
	Value float64
}

// Regression is an ordinary least squares fit of value against hours elapsed
// since the first point.
type Regression struct {
	Slope     float64 // units per hour
	Intercept float64
	R2        float64 // clamped to [0,1]
}

// LinearRegression fits the points in order. Fewer than two points yield the
// zero Regression. A constant series has R2 == 0, and points sharing one
// timestamp have Slope == 0.
func LinearRegression(points []Point) Regression {
	n := len(points)
	if n < 2 {
		return Regression{}
	}

	first := points[0].Time
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, p := range points {
		xs[i] = p.Time.Sub(first).Hours()
		ys[i] = p.Value
	}

	var intercept, slope float64
	if stat.Variance(xs, nil) == 0 {
		intercept = stat.Mean(ys, nil)
	} else {
		intercept, slope = stat.LinearRegression(xs, ys, nil, false)
	}

	var r2 float64
	if stat.Variance(ys, nil) != 0 {
		r2 = stat.RSquared(xs, ys, nil, intercept, slope)
	}

	return Regression{
		Slope:     slope,
		Intercept: intercept,
		R2:        math.Max(0, math.Min(1, r2)),
	}
}

// ProjectValue extrapolates hoursAhead from the latest observed value rather
// than from the fitted intercept.
func ProjectValue(reg Regression, hoursAhead, currentValue float64) float64 {
	return currentValue + reg.Slope*hoursAhead
}
