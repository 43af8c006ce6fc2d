package handlers

import (
	"context"
	"sync"
	"time"

	"garden_insights/internal/models"
	"garden_insights/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockCatalog struct {
	metrics []models.Metric
	err     error
	lastKey string
}

func (m *mockCatalog) ListMetrics(context.Context) ([]models.Metric, error) {
	return m.metrics, m.err
}

func (m *mockCatalog) GetMetric(_ context.Context, key string) (*models.Metric, error) {
	m.lastKey = key
	if m.err != nil {
		return nil, m.err
	}
	for _, mt := range m.metrics {
		if mt.Key == key {
			return &mt, nil
		}
	}
	return nil, service.ErrNotFound
}

type mockGardens struct {
	gardens []models.Garden
	detail  *service.GardenDetail
	err     error
	lastID  string
}

func (m *mockGardens) ListGardens(context.Context) ([]models.Garden, error) {
	return m.gardens, m.err
}

func (m *mockGardens) GetGarden(_ context.Context, id string) (*service.GardenDetail, error) {
	m.lastID = id
	return m.detail, m.err
}

type mockZones struct {
	zones    []models.Zone
	detail   *service.ZoneDetail
	readings []models.Reading
	err      error

	lastGarden string
	lastZoneID string
	lastMetric string
	lastSince  time.Time
}

func (m *mockZones) ListZones(_ context.Context, gardenID string) ([]models.Zone, error) {
	m.lastGarden = gardenID
	return m.zones, m.err
}

func (m *mockZones) GetZone(_ context.Context, id string) (*service.ZoneDetail, error) {
	m.lastZoneID = id
	return m.detail, m.err
}

func (m *mockZones) ZoneReadings(_ context.Context, zoneID, metricKey string, since time.Time) ([]models.Reading, error) {
	m.lastZoneID = zoneID
	m.lastMetric = metricKey
	m.lastSince = since
	return m.readings, m.err
}

type mockInsights struct {
	mu         sync.Mutex
	list       []models.Insight
	open       []models.InsightDetail
	err        error
	lastFilter models.InsightFilter
	openCalls  int
}

func (m *mockInsights) ListInsights(_ context.Context, f models.InsightFilter) ([]models.Insight, error) {
	m.lastFilter = f
	return m.list, m.err
}

func (m *mockInsights) OpenInsights(context.Context) ([]models.InsightDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openCalls++
	return m.open, m.err
}

type mockCycles struct {
	report   service.CycleReport
	err      error
	last     *service.CycleReport
	runCalls int
}

func (m *mockCycles) RunCycle(context.Context) (service.CycleReport, error) {
	m.runCalls++
	return m.report, m.err
}

func (m *mockCycles) Run(ctx context.Context, _ string, _ *time.Location) error {
	<-ctx.Done()
	return nil
}

func (m *mockCycles) LastReport() (service.CycleReport, bool) {
	if m.last == nil {
		return service.CycleReport{}, false
	}
	return *m.last, true
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}
