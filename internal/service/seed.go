package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"garden_insights/internal/anomaly"
	"garden_insights/internal/logger"
	"garden_insights/internal/models"
	"garden_insights/internal/repository"
)

const (
	DefaultSeedHistory = 24 * time.Hour
	DefaultSeedStep    = 5 * time.Minute
)

// SeedOptions tunes Seed. Zero values take the defaults.
type SeedOptions struct {
	Reset   bool // wipe every table first
	History time.Duration
	Step    time.Duration
	Now     time.Time
}

type SeedSummary struct {
	Gardens  int `json:"gardens"`
	Zones    int `json:"zones"`
	Metrics  int `json:"metrics"`
	Readings int `json:"readings"`
}

// DefaultMetrics is the seeded catalog.
var DefaultMetrics = []models.Metric{
	{Key: models.MetricSoilMoisture, Unit: "%", IdealMin: 30, IdealMax: 45, Description: "Volumetric water content in soil"},
	{Key: models.MetricTemperature, Unit: "°C", IdealMin: 18, IdealMax: 26, Description: "Ambient air temperature"},
	{Key: models.MetricHumidity, Unit: "%", IdealMin: 45, IdealMax: 70, Description: "Relative humidity"},
	{Key: models.MetricLight, Unit: "lux", IdealMin: 800, IdealMax: 2500, Description: "Light intensity (PAR approximation)"},
}

var defaultGardens = []models.Garden{
	{ID: "lobby", Name: "Lobby Vertical Garden", Type: "vertical_garden", Orientation: models.OrientationInterior},
	{ID: "rooftop", Name: "Rooftop Garden", Type: "green_roof", Orientation: models.OrientationSouth},
}

var defaultZones = []models.Zone{
	{ID: "lobby-a", GardenID: "lobby", Name: "Zone A - Upper Left", PlantType: "Ferns & Philodendrons", Exposure: models.ExposureLow},
	{ID: "lobby-b", GardenID: "lobby", Name: "Zone B - Upper Right", PlantType: "Pothos & Snake Plants", Exposure: models.ExposureLow},
	{ID: "lobby-c", GardenID: "lobby", Name: "Zone C - Middle", PlantType: "Mixed Tropical", Exposure: models.ExposureMedium},
	{ID: "lobby-d", GardenID: "lobby", Name: "Zone D - Lower Left", PlantType: "Moss & Ferns", Exposure: models.ExposureLow},
	{ID: "lobby-e", GardenID: "lobby", Name: "Zone E - Lower Right", PlantType: "Succulents", Exposure: models.ExposureMedium},
	{ID: "rooftop-a", GardenID: "rooftop", Name: "Zone A - North Section", PlantType: "Sedums & Grasses", Exposure: models.ExposureHigh},
	{ID: "rooftop-b", GardenID: "rooftop", Name: "Zone B - South Section", PlantType: "Drought-Resistant Succulents", Exposure: models.ExposureHigh},
	{ID: "rooftop-c", GardenID: "rooftop", Name: "Zone C - East Section", PlantType: "Native Grasses", Exposure: models.ExposureHigh},
	{ID: "rooftop-d", GardenID: "rooftop", Name: "Zone D - West Section", PlantType: "Wildflowers", Exposure: models.ExposureMedium},
	{ID: "rooftop-e", GardenID: "rooftop", Name: "Zone E - Center", PlantType: "Mixed Perennials", Exposure: models.ExposureHigh},
}

// SeedService writes the demo installation: gardens, zones, the metric
// catalog, and a day of history.
type SeedService struct {
	repos *repository.Repository
	rnd   anomaly.Random
	loc   *time.Location
	log   *logger.Logger
}

func NewSeedService(repos *repository.Repository, rnd anomaly.Random, loc *time.Location, log *logger.Logger) *SeedService {
	if rnd == nil {
		rnd = anomaly.DefaultRandom
	}
	if loc == nil {
		loc = time.Local
	}
	return &SeedService{repos: repos, rnd: rnd, loc: loc, log: log.Named("seed")}
}

// Seed upserts the fixed gardens, zones and metrics. History is written
// only for pairs that have no readings yet, so reseeding without Reset does
// not duplicate it.
func (s *SeedService) Seed(ctx context.Context, opts SeedOptions) (SeedSummary, error) {
	history, step, now := opts.History, opts.Step, opts.Now
	if history <= 0 {
		history = DefaultSeedHistory
	}
	if step <= 0 {
		step = DefaultSeedStep
	}
	if now.IsZero() {
		now = time.Now()
	}

	var sum SeedSummary
	if opts.Reset {
		if err := s.repos.Maintenance.Reset(ctx); err != nil {
			return sum, err
		}
		s.log.Infow("seed_reset")
	}

	for _, g := range defaultGardens {
		g.CreatedAt = now
		if err := s.repos.Gardens.Upsert(ctx, g); err != nil {
			return sum, err
		}
		sum.Gardens++
	}
	for _, m := range DefaultMetrics {
		if err := s.repos.Metrics.Upsert(ctx, m); err != nil {
			return sum, err
		}
		sum.Metrics++
	}

	steps := int(history / step)
	for _, z := range defaultZones {
		z.CreatedAt = now
		if err := s.repos.Zones.Upsert(ctx, z); err != nil {
			return sum, err
		}
		sum.Zones++

		var batch []models.Reading
		for _, m := range DefaultMetrics {
			last, err := s.repos.Readings.Latest(ctx, z.ID, m.Key)
			if err != nil {
				return sum, err
			}
			if last != nil {
				continue
			}
			for i := 0; i < steps; i++ {
				ts := now.Add(-time.Duration(i) * step)
				batch = append(batch, models.Reading{
					ZoneID:    z.ID,
					MetricKey: m.Key,
					Value:     s.historyValue(m.Key, ts),
					Timestamp: ts.UTC(),
					Source:    models.SourceSimulated,
				})
			}
		}
		if err := s.repos.Readings.Append(ctx, batch); err != nil {
			return sum, fmt.Errorf("seed history for %s: %w", z.ID, err)
		}
		sum.Readings += len(batch)
	}

	s.log.Infow("seed_done", "gardens", sum.Gardens, "zones", sum.Zones, "metrics", sum.Metrics, "readings", sum.Readings)
	return sum, nil
}

// historyValue is a plausible back-filled value with no anomalies and no
// watering model.
func (s *SeedService) historyValue(metricKey string, ts time.Time) float64 {
	hour := hourOfDay(ts.In(s.loc))
	noise := func(width float64) float64 { return (s.rnd.Float64() - 0.5) * width }
	phase := math.Sin((hour - dayStartHour) * math.Pi / 12)

	switch metricKey {
	case models.MetricSoilMoisture:
		return clamp(40-s.rnd.Float64()*8+noise(3), 28, 45)
	case models.MetricTemperature:
		return clamp(21+3*phase+noise(2), 16, 28)
	case models.MetricHumidity:
		return clamp(60-10*phase+noise(5), 40, 75)
	case models.MetricLight:
		if hour < dayStartHour || hour >= dayEndHour {
			return s.rnd.Float64() * 100
		}
		return clamp(1500+800*phase+noise(300), LightMin, LightMax)
	default:
		return 0
	}
}
