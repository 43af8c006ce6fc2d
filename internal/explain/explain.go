// Package explain turns rule findings into plain-English insight text.
package explain

import (
	"fmt"
	"math"
	"strings"

	"garden_insights/internal/models"
	"garden_insights/internal/stats"
)

// Context is one of Threshold, Duration, Trend or SensorOffline.
type Context interface {
	context()
}

// Threshold describes a single reading outside the ideal band.
type Threshold struct {
	Zone     models.Zone
	Metric   models.Metric
	Value    float64
	Severity models.Severity
}

// Duration describes readings that stayed out of range for Hours.
type Duration struct {
	Zone     models.Zone
	Metric   models.Metric
	Hours    float64
	Severity models.Severity
}

// Trend describes a fitted slope and its projection HoursAhead out.
type Trend struct {
	Zone       models.Zone
	Metric     models.Metric
	Slope      float64
	Projected  float64
	HoursAhead float64
}

// SensorOffline describes a sensor that has not reported for Minutes.
type SensorOffline struct {
	Zone    models.Zone
	Metric  models.Metric
	Minutes int
}

func (Threshold) context() {}
func (Duration) context() {}
func (Trend) context() {}
func (SensorOffline) context() {}

// Explain renders c. Output depends only on c.
func Explain(c Context) string {
	var b strings.Builder
	switch c := c.(type) {
	case Threshold:
		threshold(&b, c)
	case Duration:
		duration(&b, c)
	case Trend:
		trend(&b, c)
	case SensorOffline:
		sensorOffline(&b, c)
	default:
		b.WriteString("An issue has been detected with this zone.")
	}
	return strings.TrimSpace(b.String())
}

func num(v float64) string {
	return fmt.Sprintf("%g", v)
}

func band(m models.Metric) string {
	return fmt.Sprintf("%s-%s%s", num(m.IdealMin), num(m.IdealMax), m.Unit)
}

func side(low bool) string {
	if low {
		return "below"
	}
	return "above"
}

func threshold(b *strings.Builder, c Threshold) {
	z, m := c.Zone, c.Metric
	low := c.Value < m.IdealMin
	critical := c.Severity == models.SeverityCritical

	switch m.Key {
	case models.MetricSoilMoisture:
		fmt.Fprintf(b, "Soil moisture in %s is currently %.1f%s, %s the optimal range of %s. ",
			z.Name, c.Value, m.Unit, side(low), band(m))
		fmt.Fprintf(b, "This zone has %s exposure", z.Exposure)
		if z.Exposure == models.ExposureHigh {
			b.WriteString(", which may be increasing evaporation. ")
		} else {
			b.WriteString(". ")
		}
		switch {
		case low && critical:
			b.WriteString("Immediate watering is recommended to prevent plant stress.")
		case low:
			b.WriteString("Consider checking the irrigation schedule or adjusting watering frequency.")
		default:
			b.WriteString("Reduce watering frequency to prevent root rot.")
		}

	case models.MetricTemperature:
		fmt.Fprintf(b, "Temperature in %s is currently %.1f%s, %s the optimal range of %s. ",
			z.Name, c.Value, m.Unit, side(low), band(m))
		if !z.Interior() {
			amount := "excessive"
			if low {
				amount = "insufficient"
			}
			fmt.Fprintf(b, "This %s-facing zone may be receiving %s direct sunlight. ", z.Orientation, amount)
		}
		if low {
			b.WriteString("Consider relocating heat-sensitive plants or improving insulation.")
		} else {
			b.WriteString("Consider adding shade or adjusting ventilation to cool the area.")
		}
		if critical {
			b.WriteString(" The deviation is severe, so act promptly.")
		}

	case models.MetricHumidity:
		fmt.Fprintf(b, "Humidity in %s is currently %.1f%s, %s the optimal range of %s. ",
			z.Name, c.Value, m.Unit, side(low), band(m))
		if low {
			fmt.Fprintf(b, "Low humidity can stress %s. Consider misting or adding a humidifier.", z.PlantType)
		} else {
			b.WriteString("High humidity may promote fungal growth. Improve air circulation.")
		}

	case models.MetricLight:
		fmt.Fprintf(b, "Light levels in %s are currently %.0f%s, %s the optimal range of %s. ",
			z.Name, c.Value, m.Unit, side(low), band(m))
		if low {
			fmt.Fprintf(b, "%s may not be receiving adequate light for healthy growth. Consider supplemental lighting or relocating plants.", z.PlantType)
		} else {
			b.WriteString("Excessive light may cause leaf burn. Add shade cloth or relocate sensitive plants.")
		}

	default:
		fmt.Fprintf(b, "%s in %s is currently %.1f%s, %s the optimal range of %s. ",
			m.Description, z.Name, c.Value, m.Unit, side(low), band(m))
		b.WriteString("Investigate the cause and adjust conditions for this zone.")
	}
}

func duration(b *strings.Builder, c Duration) {
	z, m := c.Zone, c.Metric
	d := stats.FormatDuration(c.Hours)

	switch m.Key {
	case models.MetricSoilMoisture:
		fmt.Fprintf(b, "Soil moisture in %s has remained below optimal (%s%s) for %s. ", z.Name, num(m.IdealMin), m.Unit, d)
		fmt.Fprintf(b, "This sustained low moisture level may indicate an irrigation system malfunction or insufficient watering frequency for %s. ", z.PlantType)
		b.WriteString("Recommend immediate inspection of the watering system and manual watering if necessary.")
	case models.MetricTemperature:
		fmt.Fprintf(b, "Temperature in %s has remained above optimal (%s%s) for %s. ", z.Name, num(m.IdealMax), m.Unit, d)
		fmt.Fprintf(b, "This %s zone may be receiving excessive direct sunlight or inadequate ventilation. ", z.Orientation)
		b.WriteString("Consider adding shade, improving air circulation, or relocating heat-sensitive plants.")
	case models.MetricHumidity:
		fmt.Fprintf(b, "Humidity in %s has been outside the optimal range for %s. ", z.Name, d)
		b.WriteString("Prolonged humidity issues can stress plants and promote disease. ")
		b.WriteString("Check ventilation systems and consider environmental controls.")
	case models.MetricLight:
		fmt.Fprintf(b, "Light levels in %s have been outside optimal range for %s. ", z.Name, d)
		fmt.Fprintf(b, "%s require consistent appropriate light levels for healthy growth. ", z.PlantType)
		b.WriteString("Review lighting schedules and equipment functionality.")
	default:
		fmt.Fprintf(b, "%s in %s has been outside the optimal range of %s for %s. ", m.Description, z.Name, band(m), d)
		b.WriteString("Investigate the cause and adjust conditions for this zone.")
	}

	if c.Severity == models.SeverityCritical {
		b.WriteString(" The condition has lasted more than a day and needs attention now.")
	}
}

func trend(b *strings.Builder, c Trend) {
	z, m := c.Zone, c.Metric
	rate := math.Abs(c.Slope)

	switch m.Key {
	case models.MetricSoilMoisture:
		fmt.Fprintf(b, "Soil moisture in %s is trending downward at a rate of %.2f%s per hour. ", z.Name, rate, m.Unit)
		fmt.Fprintf(b, "At this rate, moisture may reach %.1f%s within %s hours, potentially falling below critical levels. ", c.Projected, m.Unit, num(c.HoursAhead))
		fmt.Fprintf(b, "This declining trend suggests the irrigation system may not be functioning properly for this zone's %s. ", z.PlantType)
		b.WriteString("Recommend immediate inspection of the watering system to prevent plant stress.")
	case models.MetricTemperature:
		dir, effect := "downward", "cooling conditions"
		if c.Slope > 0 {
			dir, effect = "upward", "increasing heat exposure"
		}
		fmt.Fprintf(b, "Temperature in %s is trending %s at %.2f%s per hour. ", z.Name, dir, rate, m.Unit)
		fmt.Fprintf(b, "This trend may indicate %s that could affect plant health. ", effect)
		b.WriteString("Monitor closely and adjust environmental controls as needed.")
	default:
		fmt.Fprintf(b, "%s in %s is showing a concerning trend. ", m.Description, z.Name)
		b.WriteString("Recommend monitoring this metric closely and investigating potential causes.")
	}
}

func sensorOffline(b *strings.Builder, c SensorOffline) {
	fmt.Fprintf(b, "No data received from %s %s sensor for %d minutes. ",
		c.Zone.Name, strings.ToLower(c.Metric.Description), c.Minutes)
	b.WriteString("This may indicate a sensor malfunction, connectivity issue, or power problem. ")
	b.WriteString("Check sensor status, connections, and power supply.")
	if c.Minutes > 60 {
		b.WriteString(" Extended sensor downtime requires immediate attention to ensure proper monitoring.")
	}
}
