package stats

import (
	"fmt"
	"math"
)

// DurationHours is the span between the first and last point, in hours.
func DurationHours(points []Point) float64 {
	if len(points) == 0 {
		return 0
	}
	return points[len(points)-1].Time.Sub(points[0].Time).Hours()
}

// FormatDuration renders hours as minutes, hours or days.
func FormatDuration(hours float64) string {
	switch {
	case hours < 1:
		return plural(int(math.Round(hours*60)), "minute")
	case hours < 24:
		return plural(int(math.Round(hours)), "hour")
	default:
		return plural(int(math.Round(hours/24)), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
