package service

import (
	"context"
	"errors"
	"time"

	"garden_insights/internal/anomaly"
	"garden_insights/internal/logger"
	"garden_insights/internal/models"
	"garden_insights/internal/notify"
	"garden_insights/internal/repository"
)

var (
	// ErrCycleInProgress is returned when a cycle is requested while another
	// one is running.
	ErrCycleInProgress = errors.New("evaluation cycle already in progress")
	ErrNotFound        = errors.New("not found")
	ErrInvalidFilter   = errors.New("invalid filter")
)

// Simulator produces synthetic readings.
type Simulator interface {
	GenerateReading(ctx context.Context, zone models.Zone, metricKey string, ts time.Time) (float64, error)
	GenerateCycle(ctx context.Context, zones []models.Zone, metrics []models.Metric, ts time.Time) ([]models.Reading, error)
}

// Rules evaluates stored readings into insights.
type Rules interface {
	EvaluateAll(ctx context.Context) (CycleResult, error)
	EvaluatePair(ctx context.Context, zone models.Zone, metric models.Metric, now time.Time) (*models.Insight, error)
	ResolveRecovered(ctx context.Context, now time.Time) ([]models.Insight, error)
}

// Cycles runs generate and evaluate cycles, on demand or on a schedule.
// Stop Run via context cancellation.
type Cycles interface {
	RunCycle(ctx context.Context) (CycleReport, error)
	Run(ctx context.Context, schedule string, loc *time.Location) error
	LastReport() (CycleReport, bool)
}

type Seeder interface {
	Seed(ctx context.Context, opts SeedOptions) (SeedSummary, error)
}

// Catalog exposes the metric definitions.
type Catalog interface {
	ListMetrics(ctx context.Context) ([]models.Metric, error)
	GetMetric(ctx context.Context, key string) (*models.Metric, error)
}

// Gardens exposes installations and the zones they group.
type Gardens interface {
	ListGardens(ctx context.Context) ([]models.Garden, error)
	GetGarden(ctx context.Context, id string) (*GardenDetail, error)
}

// Zones exposes zones and their readings. An empty gardenID lists all zones.
type Zones interface {
	ListZones(ctx context.Context, gardenID string) ([]models.Zone, error)
	GetZone(ctx context.Context, id string) (*ZoneDetail, error)
	ZoneReadings(ctx context.Context, zoneID, metricKey string, since time.Time) ([]models.Reading, error)
}

// Insights exposes stored insights.
type Insights interface {
	ListInsights(ctx context.Context, f models.InsightFilter) ([]models.Insight, error)
	OpenInsights(ctx context.Context) ([]models.InsightDetail, error)
}

// Service aggregates all sub-services.
type Service struct {
	Simulator
	Rules
	Cycles
	Seeder
	Catalog
	Gardens
	Zones
	Insights
}

// Options carries the collaborators and knobs NewService needs. Zero values
// fall back to defaults.
type Options struct {
	Log          *logger.Logger
	Publisher    notify.Publisher
	Anomalies    *anomaly.Store
	Random       anomaly.Random
	Location     *time.Location
	Workers      int
	CycleTimeout time.Duration
}

// NewService wires the repository layer into concrete services.
func NewService(repos *repository.Repository, opts Options) *Service {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	if opts.Random == nil {
		opts.Random = anomaly.DefaultRandom
	}
	if opts.Anomalies == nil {
		opts.Anomalies = anomaly.NewStore(anomaly.WithRandom(opts.Random))
	}

	sim := NewSimulatorService(repos.Readings, opts.Anomalies, log,
		WithSimulatorRandom(opts.Random), WithLocation(opts.Location), WithWorkers(opts.Workers))
	rules := NewRulesService(repos, log)
	query := NewQueryService(repos)

	return &Service{
		Simulator: sim,
		Rules:     rules,
		Cycles:    NewCycleRunner(repos, sim, rules, opts.Publisher, opts.CycleTimeout, log),
		Seeder:    NewSeedService(repos, opts.Random, opts.Location, log),
		Catalog:   query,
		Gardens:   query,
		Zones:     query,
		Insights:  query,
	}
}
