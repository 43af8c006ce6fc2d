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

	"golang.org/x/sync/errgroup"
)

// ----------- Simulation constants -----------
const (
	TickHours = 5.0 / 60 // one cycle is five minutes

	LightMin, LightMax               = 0.0, 3000.0
	TemperatureMin, TemperatureMax   = 15.0, 30.0
	HumidityMin, HumidityMax         = 35.0, 80.0
	SoilMoistureMin, SoilMoistureMax = 25.0, 45.0

	DefaultSoilMoisture = 38.0

	dayStartHour, dayEndHour = 6.0, 18.0
	temperatureLagHours      = 1.5

	wateringChanceDry    = 0.02  // per tick when moisture < wateringDryBelow
	wateringChanceNormal = 0.007 // about twice a day
	wateringDryBelow     = 32.0
)

// decayPerHour is soil moisture loss in % per hour by exposure.
var decayPerHour = map[models.Exposure]float64{
	models.ExposureHigh:   0.12,
	models.ExposureMedium: 0.08,
	models.ExposureLow:    0.05,
}

// SimulatorService produces synthetic readings, consulting the anomaly
// store for injected deviations.
type SimulatorService struct {
	readings  repository.ReadingRepo
	anomalies *anomaly.Store
	rnd       anomaly.Random
	loc       *time.Location
	workers   int
	log       *logger.Logger
}

type SimulatorOption func(*SimulatorService)

// WithSimulatorRandom replaces the uniform source. It must be safe for
// concurrent use when workers > 1.
func WithSimulatorRandom(r anomaly.Random) SimulatorOption {
	return func(s *SimulatorService) { s.rnd = r }
}

// WithLocation sets the zone used to derive local hour of day.
func WithLocation(loc *time.Location) SimulatorOption {
	return func(s *SimulatorService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithWorkers bounds how many zones GenerateCycle simulates at once.
func WithWorkers(n int) SimulatorOption {
	return func(s *SimulatorService) {
		if n > 0 {
			s.workers = n
		}
	}
}

func NewSimulatorService(readings repository.ReadingRepo, anomalies *anomaly.Store, log *logger.Logger, opts ...SimulatorOption) *SimulatorService {
	s := &SimulatorService{
		readings:  readings,
		anomalies: anomalies,
		rnd:       anomaly.DefaultRandom,
		loc:       time.Local,
		workers:   4,
		log:       log.Named("simulator"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateReading returns one value for (zone, metricKey) at ts. Unknown
// metric keys yield 0.
func (s *SimulatorService) GenerateReading(ctx context.Context, zone models.Zone, metricKey string, ts time.Time) (float64, error) {
	kind := s.anomalies.Check(zone.ID)
	hour := hourOfDay(ts.In(s.loc))

	switch metricKey {
	case models.MetricLight:
		return s.light(zone, hour, kind), nil
	case models.MetricTemperature:
		return s.temperature(zone, hour, kind), nil
	case models.MetricHumidity:
		return s.humidity(zone, hour, kind), nil
	case models.MetricSoilMoisture:
		return s.soilMoisture(ctx, zone, kind)
	default:
		return 0, nil
	}
}

// GenerateCycle produces one reading per zone and metric at ts. Zones are
// simulated in parallel; the result keeps zone then metric order.
func (s *SimulatorService) GenerateCycle(ctx context.Context, zones []models.Zone, metrics []models.Metric, ts time.Time) ([]models.Reading, error) {
	perZone := make([][]models.Reading, len(zones))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, zone := range zones {
		g.Go(func() error {
			out := make([]models.Reading, 0, len(metrics))
			for _, m := range metrics {
				v, err := s.GenerateReading(gctx, zone, m.Key, ts)
				if err != nil {
					return fmt.Errorf("simulate %s/%s: %w", zone.ID, m.Key, err)
				}
				out = append(out, models.Reading{
					ZoneID:    zone.ID,
					MetricKey: m.Key,
					Value:     v,
					Timestamp: ts.UTC(),
					Source:    models.SourceSimulated,
				})
			}
			perZone[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	readings := make([]models.Reading, 0, len(zones)*len(metrics))
	for _, rs := range perZone {
		readings = append(readings, rs...)
	}
	return readings, nil
}

func (s *SimulatorService) light(zone models.Zone, hour float64, kind anomaly.Kind) float64 {
	if kind == anomaly.Flatline {
		return s.anomalies.Hold(zone.ID, models.MetricLight, func() float64 { return s.between(1200, 1600) })
	}
	if hour < dayStartHour || hour >= dayEndHour {
		return s.rnd.Float64() * 100
	}

	v := 1500 + 1000*math.Sin((hour-dayStartHour)*math.Pi/12)
	v = v*lightModifier(zone) + s.noise(300)
	return clamp(v, LightMin, LightMax)
}

// lightModifier scales daylight by placement; interior wins over exposure.
func lightModifier(zone models.Zone) float64 {
	switch {
	case zone.Interior():
		return 0.7
	case zone.Exposure == models.ExposureHigh:
		return 1.2
	case zone.Exposure == models.ExposureLow:
		return 0.8
	default:
		return 1.0
	}
}

func (s *SimulatorService) temperature(zone models.Zone, hour float64, kind anomaly.Kind) float64 {
	switch kind {
	case anomaly.Flatline:
		return s.anomalies.Hold(zone.ID, models.MetricTemperature, func() float64 { return s.between(20, 24) })
	case anomaly.OutOfRange:
		return s.anomalies.Hold(zone.ID, models.MetricTemperature, func() float64 {
			if s.rnd.Float64() < 0.5 {
				return s.between(28, 31)
			}
			return s.between(15, 17)
		})
	}

	v := 21 + 3*math.Sin((hour-temperatureLagHours-dayStartHour)*math.Pi/12)
	if !zone.Interior() && hour > 10 && hour < 16 {
		v += 2
	}
	v += s.noise(2)
	return clamp(v, TemperatureMin, TemperatureMax)
}

func (s *SimulatorService) humidity(zone models.Zone, hour float64, kind anomaly.Kind) float64 {
	if kind == anomaly.Flatline {
		return s.anomalies.Hold(zone.ID, models.MetricHumidity, func() float64 { return s.between(50, 65) })
	}

	v := 60 - 10*math.Sin((hour-dayStartHour)*math.Pi/12)
	switch zone.Exposure {
	case models.ExposureHigh:
		v -= 5
	case models.ExposureLow:
		v += 5
	}
	v += s.noise(4)
	return clamp(v, HumidityMin, HumidityMax)
}

func (s *SimulatorService) soilMoisture(ctx context.Context, zone models.Zone, kind anomaly.Kind) (float64, error) {
	if kind == anomaly.Flatline {
		return s.anomalies.Hold(zone.ID, models.MetricSoilMoisture, func() float64 { return s.between(32, 38) }), nil
	}

	moisture := DefaultSoilMoisture
	last, err := s.readings.Latest(ctx, zone.ID, models.MetricSoilMoisture)
	if err != nil {
		return 0, err
	}
	if last != nil {
		moisture = last.Value
	}
	moisture -= decayPerHour[zone.Exposure] * TickHours

	if kind == anomaly.NoRecovery {
		// no watering: decay only, floor at the clamp minimum
		return math.Max(SoilMoistureMin, moisture), nil
	}

	// TODO: couple decay to time since watering once a curve is agreed on.
	// For now the value only shows up in the watering log.
	sinceWatering := s.anomalies.HoursSinceWatering(zone.ID)

	chance := wateringChanceNormal
	if moisture < wateringDryBelow {
		chance = wateringChanceDry
	}
	if s.rnd.Float64() < chance {
		moisture = s.between(40, 43)
		s.anomalies.TriggerWatering(zone.ID)
		s.log.Debugw("zone_watered", "zone_id", zone.ID, "hours_since_last", sinceWatering, "moisture", moisture)
	}
	return clamp(moisture, SoilMoistureMin, SoilMoistureMax), nil
}

// between draws uniformly from [lo, hi).
func (s *SimulatorService) between(lo, hi float64) float64 {
	return lo + s.rnd.Float64()*(hi-lo)
}

// noise draws uniformly from [-width/2, width/2).
func (s *SimulatorService) noise(width float64) float64 {
	return (s.rnd.Float64() - 0.5) * width
}

func hourOfDay(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
