package service

import (
	"context"
	"testing"
	"time"

	"garden_insights/internal/logger"
	"garden_insights/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testNow  = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	testZone = models.Zone{
		ID: "z1", GardenID: "g1", Name: "Herb bed", PlantType: "basil",
		Exposure: models.ExposureMedium, Orientation: models.OrientationSouth,
	}
	soil = models.Metric{Key: models.MetricSoilMoisture, Unit: "%", IdealMin: 30, IdealMax: 45}
	// wide keeps trend fixtures clear of the threshold and duration rules
	wide = models.Metric{Key: models.MetricSoilMoisture, Unit: "%", IdealMin: 0, IdealMax: 100}
)

func newRulesFixture(t *testing.T, metric models.Metric) (*memStore, *RulesService) {
	t.Helper()
	store := newMemStore()
	store.zones = []models.Zone{testZone}
	store.metrics = []models.Metric{metric}
	svc := NewRulesService(store.repos(), logger.Nop(), WithRulesClock(func() time.Time { return testNow }))
	return store, svc
}

func evaluate(t *testing.T, svc *RulesService, metric models.Metric) *models.Insight {
	t.Helper()
	in, err := svc.EvaluatePair(context.Background(), testZone, metric, testNow)
	require.NoError(t, err)
	return in
}

func TestThreshold_SeverityBoundary(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  models.Severity
	}{
		{"half the band above max is critical", 52.5, models.SeverityCritical},
		{"just under half above max is warning", 51.9, models.SeverityWarning},
		{"half the band below min is critical", 22.5, models.SeverityCritical},
		{"slightly below min is warning", 29.0, models.SeverityWarning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, svc := newRulesFixture(t, soil)
			store.addReading("z1", soil.Key, tt.value, testNow)

			in := evaluate(t, svc, soil)
			require.NotNil(t, in)
			assert.Equal(t, models.RuleThreshold, in.Rule)
			assert.Equal(t, tt.want, in.Severity)
			assert.Equal(t, 1.0, in.Confidence)
			assert.NotEmpty(t, in.Explanation)
		})
	}
}

func TestThreshold_InRangeAndBoundsDoNotFire(t *testing.T) {
	for _, v := range []float64{30, 37.5, 45} {
		store, svc := newRulesFixture(t, soil)
		store.addReading("z1", soil.Key, v, testNow)
		assert.Nil(t, evaluate(t, svc, soil), "value %v", v)
	}
}

func TestDuration_Span(t *testing.T) {
	tests := []struct {
		name string
		span time.Duration
		want models.Severity // empty means no insight
	}{
		{"5h59m does not fire", 5*time.Hour + 59*time.Minute, ""},
		{"6h fires as warning", 6 * time.Hour, models.SeverityWarning},
		{"over a day is critical", 25 * time.Hour, models.SeverityCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, svc := newRulesFixture(t, soil)
			store.sinceIgnoresWindow = true

			first := testNow.Add(-10 * time.Minute).Add(-tt.span)
			store.addReading("z1", soil.Key, 20, first)
			store.addReading("z1", soil.Key, 38, first.Add(time.Hour)) // in range, still inside the span
			store.addReading("z1", soil.Key, 20, testNow.Add(-10*time.Minute))
			store.addReading("z1", soil.Key, 38, testNow) // latest in range: threshold stays quiet

			in := evaluate(t, svc, soil)
			if tt.want == "" {
				assert.Nil(t, in)
				return
			}
			require.NotNil(t, in)
			assert.Equal(t, models.RuleDuration, in.Rule)
			assert.Equal(t, tt.want, in.Severity)
			assert.Equal(t, 0.9, in.Confidence)
		})
	}
}

// addLine writes 25 hourly readings ending at testNow on base + slope·h,
// with alternating ±wobble. The wobble is orthogonal to time, so the fitted
// slope is exact and r² = 1300·slope² / (1300·slope² + 24.96·wobble²).
func addLine(store *memStore, base, slope, wobble float64) {
	start := testNow.Add(-24 * time.Hour)
	for i := 0; i <= 24; i++ {
		e := wobble
		if i%2 == 1 {
			e = -wobble
		}
		store.addReading("z1", wide.Key, base+slope*float64(i)+e, start.Add(time.Duration(i)*time.Hour))
	}
}

func TestTrend(t *testing.T) {
	tests := []struct {
		name          string
		slope, wobble float64
		fires         bool
	}{
		{"slope -0.4 with r2 about 0.7 fires", -0.4, 1.85, true},
		{"slope -0.2 is too shallow", -0.2, 0, false},
		{"slope -0.5 with r2 about 0.5 is not confident", -0.5, 3.6, false},
		{"rising series never fires", 0.6, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, svc := newRulesFixture(t, wide)
			addLine(store, 50, tt.slope, tt.wobble)

			in := evaluate(t, svc, wide)
			if !tt.fires {
				assert.Nil(t, in)
				return
			}
			require.NotNil(t, in)
			assert.Equal(t, models.RuleTrend, in.Rule)
			assert.Equal(t, models.SeverityWarning, in.Severity)
			assert.InDelta(t, 0.709, in.Confidence, 0.01)
		})
	}
}

func TestTrend_NeedsTwentyReadings(t *testing.T) {
	store, svc := newRulesFixture(t, wide)
	for i := 0; i < TrendMinReadings-1; i++ {
		store.addReading("z1", wide.Key, 80-float64(i), testNow.Add(-time.Duration(TrendMinReadings-1-i)*time.Hour))
	}
	assert.Nil(t, evaluate(t, svc, wide))
}

func TestSensorOffline(t *testing.T) {
	t.Run("silent sensor with history fires", func(t *testing.T) {
		store, svc := newRulesFixture(t, soil)
		store.addReading("z1", soil.Key, 38, testNow.Add(-45*time.Minute))

		in := evaluate(t, svc, soil)
		require.NotNil(t, in)
		assert.Equal(t, models.RuleSensorOffline, in.Rule)
		assert.Equal(t, models.SeverityCritical, in.Severity)
		assert.Equal(t, 1.0, in.Confidence)
		assert.Contains(t, in.Explanation, "45")
	})

	t.Run("never reported does not fire", func(t *testing.T) {
		_, svc := newRulesFixture(t, soil)
		assert.Nil(t, evaluate(t, svc, soil))
	})

	t.Run("recent reading keeps it online", func(t *testing.T) {
		store, svc := newRulesFixture(t, soil)
		store.addReading("z1", soil.Key, 38, testNow.Add(-29*time.Minute))
		assert.Nil(t, evaluate(t, svc, soil))
	})
}

func TestEvaluateAll_DedupAcrossRuns(t *testing.T) {
	store, svc := newRulesFixture(t, soil)
	store.addReading("z1", soil.Key, 60, testNow)

	first, err := svc.EvaluateAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, first.Created, 1)
	assert.Equal(t, 1, first.Pairs)

	second, err := svc.EvaluateAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second.Created)
	assert.Len(t, store.open(), 1)
}

func TestEvaluatePair_AtMostOneInsightPerCycle(t *testing.T) {
	// threshold, duration and offline would all fire; only the first is kept
	store, svc := newRulesFixture(t, soil)
	store.addReading("z1", soil.Key, 10, testNow.Add(-8*time.Hour))
	store.addReading("z1", soil.Key, 10, testNow.Add(-40*time.Minute))

	in := evaluate(t, svc, soil)
	require.NotNil(t, in)
	assert.Equal(t, models.RuleThreshold, in.Rule)
	assert.Len(t, store.open(), 1)
}

func TestEvaluatePair_LostCreateRaceIsNotAnError(t *testing.T) {
	store, svc := newRulesFixture(t, soil)
	store.raceOnCreate = true
	store.addReading("z1", soil.Key, 60, testNow)

	assert.Nil(t, evaluate(t, svc, soil))
	assert.Len(t, store.open(), 1)
}

func TestResolveRecovered(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64 // newest first, 5 minutes apart
		resolved bool
	}{
		{"six in range resolves", []float64{38, 38, 37, 36, 35, 34}, true},
		{"one out of range keeps it open", []float64{38, 38, 50, 36, 35, 34}, false},
		{"no recent data keeps it open", nil, false},
		{"only the six newest count", []float64{38, 38, 37, 36, 35, 34, 10}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, svc := newRulesFixture(t, soil)
			store.insights = []models.Insight{{ID: "i1", ZoneID: "z1", MetricKey: soil.Key, CreatedAt: testNow.Add(-time.Hour)}}
			for i, v := range tt.values {
				store.addReading("z1", soil.Key, v, testNow.Add(-time.Duration(i)*5*time.Minute))
			}
			// old readings outside the window never count
			store.addReading("z1", soil.Key, 38, testNow.Add(-2*time.Hour))

			got, err := svc.ResolveRecovered(context.Background(), testNow)
			require.NoError(t, err)
			if !tt.resolved {
				assert.Empty(t, got)
				assert.Len(t, store.open(), 1)
				return
			}
			require.Len(t, got, 1)
			require.NotNil(t, got[0].ResolvedAt)
			assert.True(t, got[0].ResolvedAt.Equal(testNow))
			assert.Empty(t, store.open())
		})
	}
}

func TestEvaluateAll_PropagatesStorageErrors(t *testing.T) {
	store, svc := newRulesFixture(t, soil)
	store.listZonesErr = errBoom

	_, err := svc.EvaluateAll(context.Background())
	assert.ErrorIs(t, err, errBoom)
}

func TestEvaluateAll_NoZonesIsNoop(t *testing.T) {
	store, svc := newRulesFixture(t, soil)
	store.zones = nil

	res, err := svc.EvaluateAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Pairs)
	assert.Empty(t, res.Created)
}
