package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"garden_insights/internal/models"
	"garden_insights/internal/repository"
)

const (
	DefaultReadingsWindow = 24 * time.Hour
	maxInsightsPage       = 500
)

// ZoneDetail is a zone with its latest reading per metric and its open
// insights.
type ZoneDetail struct {
	models.Zone
	Latest   map[string]*models.Reading `json:"latest"`
	Insights []models.Insight           `json:"insights"`
}

// GardenDetail is a garden with every zone it owns, each with its latest
// readings and open insights.
type GardenDetail struct {
	models.Garden
	Zones []ZoneDetail `json:"zones"`
}

// QueryService serves the read side of the API.
type QueryService struct {
	gardens  repository.GardenRepo
	zones    repository.ZoneRepo
	metrics  repository.MetricRepo
	readings repository.ReadingRepo
	insights repository.InsightRepo
	now      func() time.Time
}

func NewQueryService(repos *repository.Repository) *QueryService {
	return &QueryService{
		gardens:  repos.Gardens,
		zones:    repos.Zones,
		metrics:  repos.Metrics,
		readings: repos.Readings,
		insights: repos.Insights,
		now:      time.Now,
	}
}

func (s *QueryService) ListMetrics(ctx context.Context) ([]models.Metric, error) {
	return s.metrics.List(ctx)
}

func (s *QueryService) GetMetric(ctx context.Context, key string) (*models.Metric, error) {
	m, err := s.metrics.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("metric %q: %w", key, ErrNotFound)
	}
	return m, nil
}

func (s *QueryService) ListGardens(ctx context.Context) ([]models.Garden, error) {
	return s.gardens.List(ctx)
}

func (s *QueryService) GetGarden(ctx context.Context, id string) (*GardenDetail, error) {
	g, err := s.gardens.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("garden %q: %w", id, ErrNotFound)
	}

	zones, err := s.zonesOf(ctx, id)
	if err != nil {
		return nil, err
	}
	catalog, err := s.metrics.List(ctx)
	if err != nil {
		return nil, err
	}
	d := &GardenDetail{Garden: *g, Zones: make([]ZoneDetail, 0, len(zones))}
	for _, z := range zones {
		zd, err := s.zoneDetail(ctx, z, catalog)
		if err != nil {
			return nil, err
		}
		d.Zones = append(d.Zones, *zd)
	}
	return d, nil
}

// ListZones returns every zone, or only those of gardenID when it is set.
// An unknown garden is ErrNotFound.
func (s *QueryService) ListZones(ctx context.Context, gardenID string) ([]models.Zone, error) {
	if gardenID == "" {
		return s.zones.List(ctx)
	}
	g, err := s.gardens.Get(ctx, gardenID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("garden %q: %w", gardenID, ErrNotFound)
	}
	return s.zonesOf(ctx, gardenID)
}

func (s *QueryService) zonesOf(ctx context.Context, gardenID string) ([]models.Zone, error) {
	all, err := s.zones.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Zone, 0, len(all))
	for _, z := range all {
		if z.GardenID == gardenID {
			out = append(out, z)
		}
	}
	return out, nil
}

func (s *QueryService) GetZone(ctx context.Context, id string) (*ZoneDetail, error) {
	z, err := s.zones.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if z == nil {
		return nil, fmt.Errorf("zone %q: %w", id, ErrNotFound)
	}

	catalog, err := s.metrics.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.zoneDetail(ctx, *z, catalog)
}

func (s *QueryService) zoneDetail(ctx context.Context, z models.Zone, catalog []models.Metric) (*ZoneDetail, error) {
	d := &ZoneDetail{Zone: z, Latest: make(map[string]*models.Reading, len(catalog))}
	for _, m := range catalog {
		r, err := s.readings.Latest(ctx, z.ID, m.Key)
		if err != nil {
			return nil, err
		}
		d.Latest[m.Key] = r
	}

	var err error
	d.Insights, err = s.insights.List(ctx, models.InsightFilter{Status: models.InsightStatusActive, ZoneID: z.ID})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ZoneReadings returns a pair's readings since the given time, ascending.
// A zero since means the last DefaultReadingsWindow.
func (s *QueryService) ZoneReadings(ctx context.Context, zoneID, metricKey string, since time.Time) ([]models.Reading, error) {
	z, err := s.zones.Get(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	if z == nil {
		return nil, fmt.Errorf("zone %q: %w", zoneID, ErrNotFound)
	}
	if _, err := s.GetMetric(ctx, metricKey); err != nil {
		return nil, err
	}
	if since.IsZero() {
		since = s.now().Add(-DefaultReadingsWindow)
	}
	return s.readings.Since(ctx, zoneID, metricKey, since)
}

// ListInsights filters by status (active, resolved, all; empty is all) and
// zone, newest first.
func (s *QueryService) ListInsights(ctx context.Context, f models.InsightFilter) ([]models.Insight, error) {
	f.Status = strings.ToLower(strings.TrimSpace(f.Status))
	switch f.Status {
	case "", models.InsightStatusActive, models.InsightStatusResolved, models.InsightStatusAll:
	default:
		return nil, fmt.Errorf("status %q: %w", f.Status, ErrInvalidFilter)
	}
	if f.Limit <= 0 || f.Limit > maxInsightsPage {
		f.Limit = maxInsightsPage
	}
	return s.insights.List(ctx, f)
}

// OpenInsights returns unresolved insights with zone and metric attached.
func (s *QueryService) OpenInsights(ctx context.Context) ([]models.InsightDetail, error) {
	return s.insights.ListUnresolved(ctx)
}
