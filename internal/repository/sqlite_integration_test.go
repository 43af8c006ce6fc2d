package repository_test

import (
	"testing"
	"time"

	"garden_insights/internal/models"
	"garden_insights/internal/repository"
	"garden_insights/internal/repository/db"
)

func newSQLiteRepo(t *testing.T) *repository.Repository {
	t.Helper()
	conn, err := db.InitDB(":memory:")
	if err != nil {
		t.Fatalf("InitDB(): %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return repository.NewRepository(conn)
}

func seedPair(t *testing.T, repo *repository.Repository) {
	t.Helper()
	c := ctx(t)
	if err := repo.Gardens.Upsert(c, models.Garden{ID: "g1", Name: "Rooftop", Type: "outdoor", Orientation: models.OrientationSouth}); err != nil {
		t.Fatalf("garden upsert: %v", err)
	}
	if err := repo.Zones.Upsert(c, models.Zone{ID: "z1", GardenID: "g1", Name: "Herb bed", PlantType: "basil", Exposure: models.ExposureHigh}); err != nil {
		t.Fatalf("zone upsert: %v", err)
	}
	if err := repo.Metrics.Upsert(c, models.Metric{Key: "soil_moisture", Unit: "%", IdealMin: 30, IdealMax: 45, Description: "Volumetric water content"}); err != nil {
		t.Fatalf("metric upsert: %v", err)
	}
}

func TestSQLite_OneOpenInsightPerPair(t *testing.T) {
	repo := newSQLiteRepo(t)
	seedPair(t, repo)
	c := ctx(t)

	base := models.Insight{ZoneID: "z1", MetricKey: "soil_moisture", Rule: models.RuleThreshold,
		Severity: models.SeverityWarning, Explanation: "dry", Confidence: 0.9}

	created, err := repo.Insights.Create(c, base)
	if err != nil || !created {
		t.Fatalf("first Create() = %v, %v", created, err)
	}
	created, err = repo.Insights.Create(c, base)
	if err != nil || created {
		t.Fatalf("duplicate Create() = %v, %v; want false, nil", created, err)
	}

	open, err := repo.Insights.FindUnresolved(c, "z1", "soil_moisture")
	if err != nil || open == nil {
		t.Fatalf("FindUnresolved() = %v, %v", open, err)
	}
	if err := repo.Insights.Resolve(c, open.ID, time.Now()); err != nil {
		t.Fatalf("Resolve(): %v", err)
	}

	// once resolved, the pair accepts a new insight
	created, err = repo.Insights.Create(c, base)
	if err != nil || !created {
		t.Fatalf("Create() after resolve = %v, %v", created, err)
	}

	all, err := repo.Insights.List(c, models.InsightFilter{Status: models.InsightStatusAll})
	if err != nil {
		t.Fatalf("List(): %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("List() len = %d, want 2", len(all))
	}

	details, err := repo.Insights.ListUnresolved(c)
	if err != nil {
		t.Fatalf("ListUnresolved(): %v", err)
	}
	if len(details) != 1 || details[0].Zone.Orientation != models.OrientationSouth || details[0].Metric.IdealMax != 45 {
		t.Fatalf("ListUnresolved() = %+v", details)
	}
}

func TestSQLite_ReadingsWindowAndReset(t *testing.T) {
	repo := newSQLiteRepo(t)
	seedPair(t, repo)
	c := ctx(t)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	var batch []models.Reading
	for i := 0; i < 6; i++ {
		batch = append(batch, models.Reading{
			ZoneID: "z1", MetricKey: "soil_moisture", Value: float64(30 + i),
			Timestamp: now.Add(time.Duration(i-5) * 5 * time.Minute),
		})
	}
	if err := repo.Readings.Append(c, batch); err != nil {
		t.Fatalf("Append(): %v", err)
	}

	since := now.Add(-10 * time.Minute)
	got, err := repo.Readings.Since(c, "z1", "soil_moisture", since)
	if err != nil {
		t.Fatalf("Since(): %v", err)
	}
	if len(got) != 3 || got[0].Value != 33 || got[2].Value != 35 {
		t.Fatalf("Since() = %+v", got)
	}

	n, err := repo.Readings.CountSince(c, "z1", "soil_moisture", since)
	if err != nil || n != 3 {
		t.Fatalf("CountSince() = %d, %v; want 3", n, err)
	}

	latest, err := repo.Readings.Latest(c, "z1", "soil_moisture")
	if err != nil || latest == nil || latest.Value != 35 {
		t.Fatalf("Latest() = %+v, %v", latest, err)
	}

	recent, err := repo.Readings.Recent(c, "z1", "soil_moisture", now.Add(-time.Hour), 2)
	if err != nil || len(recent) != 2 || recent[0].Value != 35 {
		t.Fatalf("Recent() = %+v, %v", recent, err)
	}

	if err := repo.Maintenance.Reset(c); err != nil {
		t.Fatalf("Reset(): %v", err)
	}
	zones, err := repo.Zones.List(c)
	if err != nil || len(zones) != 0 {
		t.Fatalf("zones after Reset() = %+v, %v", zones, err)
	}
}
