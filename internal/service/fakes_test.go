package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"garden_insights/internal/models"
	"garden_insights/internal/notify"
	"garden_insights/internal/repository"

	"github.com/google/uuid"
)

// ---- Test doubles ----

// memStore is an in-memory stand-in for every repository interface.
type memStore struct {
	mu       sync.Mutex
	gardens  map[string]models.Garden
	zones    []models.Zone
	metrics  []models.Metric
	readings []models.Reading
	insights []models.Insight

	listZonesErr       error
	appendErr          error
	// sinceIgnoresWindow makes Since return every reading of the pair.
	sinceIgnoresWindow bool
	// raceOnCreate stores a competing insight and reports false.
	raceOnCreate       bool
	resets             int
}

func newMemStore() *memStore {
	return &memStore{gardens: map[string]models.Garden{}}
}

func (m *memStore) repos() *repository.Repository {
	return &repository.Repository{
		Gardens:     memGardens{m},
		Zones:       memZones{m},
		Metrics:     memMetrics{m},
		Readings:    memReadings{m},
		Insights:    memInsights{m},
		Maintenance: memMaintenance{m},
	}
}

func (m *memStore) addReading(zoneID, metricKey string, v float64, ts time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readings = append(m.readings, models.Reading{
		ID: uuid.NewString(), ZoneID: zoneID, MetricKey: metricKey, Value: v, Timestamp: ts, Source: models.SourceSimulated,
	})
}

func (m *memStore) open() []models.Insight {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Insight
	for _, in := range m.insights {
		if in.Open() {
			out = append(out, in)
		}
	}
	return out
}

func (m *memStore) pair(zoneID, metricKey string) []models.Reading {
	var out []models.Reading
	for _, r := range m.readings {
		if r.ZoneID == zoneID && r.MetricKey == metricKey {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

type memGardens struct{ *memStore }

func (g memGardens) Upsert(_ context.Context, garden models.Garden) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gardens[garden.ID] = garden
	return nil
}

func (g memGardens) List(context.Context) ([]models.Garden, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]models.Garden, 0, len(g.gardens))
	for _, v := range g.gardens {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (g memGardens) Get(_ context.Context, id string) (*models.Garden, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if garden, ok := g.gardens[id]; ok {
		return &garden, nil
	}
	return nil, nil
}

type memZones struct{ *memStore }

func (z memZones) Upsert(_ context.Context, zone models.Zone) error {
	z.mu.Lock()
	defer z.mu.Unlock()
	if g, ok := z.gardens[zone.GardenID]; ok {
		zone.Orientation = g.Orientation
	}
	for i := range z.zones {
		if z.zones[i].ID == zone.ID {
			z.zones[i] = zone
			return nil
		}
	}
	z.zones = append(z.zones, zone)
	return nil
}

func (z memZones) List(context.Context) ([]models.Zone, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.listZonesErr != nil {
		return nil, z.listZonesErr
	}
	return append([]models.Zone(nil), z.zones...), nil
}

func (z memZones) Get(_ context.Context, id string) (*models.Zone, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	for _, zone := range z.zones {
		if zone.ID == id {
			return &zone, nil
		}
	}
	return nil, nil
}

type memMetrics struct{ *memStore }

func (mm memMetrics) Upsert(_ context.Context, metric models.Metric) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	for i := range mm.metrics {
		if mm.metrics[i].Key == metric.Key {
			mm.metrics[i] = metric
			return nil
		}
	}
	mm.metrics = append(mm.metrics, metric)
	return nil
}

func (mm memMetrics) List(context.Context) ([]models.Metric, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return append([]models.Metric(nil), mm.metrics...), nil
}

func (mm memMetrics) Get(_ context.Context, key string) (*models.Metric, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	for _, metric := range mm.metrics {
		if metric.Key == key {
			return &metric, nil
		}
	}
	return nil, nil
}

type memReadings struct{ *memStore }

func (r memReadings) Append(_ context.Context, rs []models.Reading) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	r.readings = append(r.readings, rs...)
	return nil
}

func (r memReadings) Latest(_ context.Context, zoneID, metricKey string) (*models.Reading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rs := r.pair(zoneID, metricKey)
	if len(rs) == 0 {
		return nil, nil
	}
	last := rs[len(rs)-1]
	return &last, nil
}

func (r memReadings) Since(_ context.Context, zoneID, metricKey string, since time.Time) ([]models.Reading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Reading
	for _, rd := range r.pair(zoneID, metricKey) {
		if r.sinceIgnoresWindow || !rd.Timestamp.Before(since) {
			out = append(out, rd)
		}
	}
	return out, nil
}

func (r memReadings) CountSince(ctx context.Context, zoneID, metricKey string, since time.Time) (int, error) {
	rs, err := r.Since(ctx, zoneID, metricKey, since)
	return len(rs), err
}

func (r memReadings) Recent(_ context.Context, zoneID, metricKey string, since time.Time, limit int) ([]models.Reading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rs := r.pair(zoneID, metricKey)
	var out []models.Reading
	for i := len(rs) - 1; i >= 0 && len(out) < limit; i-- {
		if !rs[i].Timestamp.Before(since) {
			out = append(out, rs[i])
		}
	}
	return out, nil
}

type memInsights struct{ *memStore }

func (s memInsights) findOpen(zoneID, metricKey string) *models.Insight {
	for i := range s.insights {
		in := s.insights[i]
		if in.ZoneID == zoneID && in.MetricKey == metricKey && in.Open() {
			return &in
		}
	}
	return nil
}

func (s memInsights) FindUnresolved(_ context.Context, zoneID, metricKey string) (*models.Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findOpen(zoneID, metricKey), nil
}

func (s memInsights) Create(_ context.Context, in models.Insight) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raceOnCreate {
		rival := in
		rival.ID = "rival"
		s.insights = append(s.insights, rival)
		return false, nil
	}
	if s.findOpen(in.ZoneID, in.MetricKey) != nil {
		return false, nil
	}
	s.insights = append(s.insights, in)
	return true, nil
}

func (s memInsights) ListUnresolved(context.Context) ([]models.InsightDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.InsightDetail
	for _, in := range s.insights {
		if !in.Open() {
			continue
		}
		d := models.InsightDetail{Insight: in}
		for _, z := range s.zones {
			if z.ID == in.ZoneID {
				d.Zone = z
			}
		}
		for _, m := range s.metrics {
			if m.Key == in.MetricKey {
				d.Metric = m
			}
		}
		out = append(out, d)
	}
	return out, nil
}

func (s memInsights) Resolve(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.insights {
		if s.insights[i].ID == id && s.insights[i].Open() {
			t := at
			s.insights[i].ResolvedAt = &t
		}
	}
	return nil
}

func (s memInsights) List(_ context.Context, f models.InsightFilter) ([]models.Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Insight
	for i := len(s.insights) - 1; i >= 0; i-- {
		in := s.insights[i]
		switch f.Status {
		case models.InsightStatusActive:
			if !in.Open() {
				continue
			}
		case models.InsightStatusResolved:
			if in.Open() {
				continue
			}
		}
		if f.ZoneID != "" && in.ZoneID != f.ZoneID {
			continue
		}
		out = append(out, in)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

type memMaintenance struct{ *memStore }

func (mm memMaintenance) Reset(context.Context) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.resets++
	mm.gardens = map[string]models.Garden{}
	mm.zones, mm.metrics, mm.readings, mm.insights = nil, nil, nil, nil
	return nil
}

// fixedRandom always returns the same draw.
type fixedRandom float64

func (f fixedRandom) Float64() float64 { return float64(f) }

// seqRandom replays values, then repeats the last one.
type seqRandom struct {
	mu     sync.Mutex
	values []float64
}

func (s *seqRandom) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.values[0]
	if len(s.values) > 1 {
		s.values = s.values[1:]
	}
	return v
}

// recordingPublisher keeps published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
	ctxErr error // ctx.Err() seen by the last Publish
}

func (p *recordingPublisher) Publish(ctx context.Context, events ...notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ctxErr = ctx.Err()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

var errBoom = errors.New("boom")
