package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"garden_insights/internal/explain"
	"garden_insights/internal/logger"
	"garden_insights/internal/models"
	"garden_insights/internal/repository"
	"garden_insights/internal/stats"

	"github.com/google/uuid"
)

// Rule tuning.
const (
	// threshold
	criticalDeviationShare = 0.5 // of the ideal band width
	thresholdConfidence    = 1.0

	// duration
	DurationWindow        = 24 * time.Hour
	MinDurationHours      = 6.0
	CriticalDurationHours = 24.0
	durationConfidence    = 0.9

	// trend
	TrendWindow      = 24 * time.Hour
	TrendMinReadings = 20
	TrendMaxSlope    = -0.3 // units per hour; only declines count
	TrendMinR2       = 0.6
	TrendHoursAhead  = 48.0

	// sensor offline
	OfflineWindow     = 30 * time.Minute
	offlineConfidence = 1.0

	// resolution
	ResolutionWindow  = 30 * time.Minute
	ResolutionSamples = 6
)

// CycleResult summarises one evaluation pass.
type CycleResult struct {
	Pairs    int
	Created  []models.Insight
	Resolved []models.Insight
}

// finding is a check that fired, before it is stored.
type finding struct {
	rule       models.Rule
	severity   models.Severity
	confidence float64
	context    explain.Context
}

type checkFunc func(ctx context.Context, zone models.Zone, metric models.Metric, now time.Time) (*finding, error)

// RulesService turns stored readings into insights and resolves them once
// the pair recovers.
type RulesService struct {
	zones    repository.ZoneRepo
	metrics  repository.MetricRepo
	readings repository.ReadingRepo
	insights repository.InsightRepo
	now      func() time.Time
	log      *logger.Logger
}

type RulesOption func(*RulesService)

// WithRulesClock overrides time.Now for window and resolution stamps.
func WithRulesClock(now func() time.Time) RulesOption {
	return func(s *RulesService) { s.now = now }
}

func NewRulesService(repos *repository.Repository, log *logger.Logger, opts ...RulesOption) *RulesService {
	s := &RulesService{
		zones:    repos.Zones,
		metrics:  repos.Metrics,
		readings: repos.Readings,
		insights: repos.Insights,
		now:      time.Now,
		log:      log.Named("rules"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EvaluateAll checks every (zone, metric) pair, then runs the resolution
// scan. On error the partial result is returned with it; whatever was
// already stored stays stored.
func (s *RulesService) EvaluateAll(ctx context.Context) (CycleResult, error) {
	var res CycleResult

	zones, err := s.zones.List(ctx)
	if err != nil {
		return res, fmt.Errorf("list zones: %w", err)
	}
	metrics, err := s.metrics.List(ctx)
	if err != nil {
		return res, fmt.Errorf("list metrics: %w", err)
	}

	now := s.now().UTC()
	for _, zone := range zones {
		for _, metric := range metrics {
			res.Pairs++
			in, err := s.EvaluatePair(ctx, zone, metric, now)
			if err != nil {
				return res, err
			}
			if in != nil {
				res.Created = append(res.Created, *in)
			}
		}
	}

	resolved, err := s.ResolveRecovered(ctx, now)
	res.Resolved = resolved
	if err != nil {
		return res, err
	}
	return res, nil
}

// EvaluatePair runs threshold, duration, trend and sensor-offline checks in
// that order and stores the first finding. Nothing runs while the pair has
// an open insight. Returns the stored insight, or nil.
func (s *RulesService) EvaluatePair(ctx context.Context, zone models.Zone, metric models.Metric, now time.Time) (*models.Insight, error) {
	open, err := s.insights.FindUnresolved(ctx, zone.ID, metric.Key)
	if err != nil {
		return nil, fmt.Errorf("find open insight %s/%s: %w", zone.ID, metric.Key, err)
	}
	if open != nil {
		return nil, nil
	}

	for _, check := range []checkFunc{s.checkThreshold, s.checkDuration, s.checkTrend, s.checkOffline} {
		f, err := check(ctx, zone, metric, now)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s/%s: %w", zone.ID, metric.Key, err)
		}
		if f == nil {
			continue
		}

		in := models.Insight{
			ID:          uuid.NewString(),
			ZoneID:      zone.ID,
			MetricKey:   metric.Key,
			Rule:        f.rule,
			Severity:    f.severity,
			Explanation: explain.Explain(f.context),
			Confidence:  f.confidence,
			CreatedAt:   now,
		}
		created, err := s.insights.Create(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("create %s insight %s/%s: %w", f.rule, zone.ID, metric.Key, err)
		}
		if !created {
			// another writer opened an insight for this pair first
			s.log.Infow("insight_create_skipped", "zone_id", zone.ID, "metric", metric.Key, "rule", f.rule)
			return nil, nil
		}
		s.log.Infow("insight_created",
			"zone_id", zone.ID, "metric", metric.Key, "rule", f.rule,
			"severity", f.severity, "confidence", f.confidence)
		return &in, nil
	}
	return nil, nil
}

// checkThreshold fires when the latest reading is outside the ideal band.
// Deviation is measured past the violated bound; at or above half the band
// width it is critical. Measuring to the far bound instead would rate every
// violation critical, so that formula is not used.
func (s *RulesService) checkThreshold(ctx context.Context, zone models.Zone, metric models.Metric, _ time.Time) (*finding, error) {
	latest, err := s.readings.Latest(ctx, zone.ID, metric.Key)
	if err != nil || latest == nil {
		return nil, err
	}
	if metric.InRange(latest.Value) {
		return nil, nil
	}

	sev := models.SeverityWarning
	if deviation(metric, latest.Value) >= criticalDeviationShare*metric.Width() {
		sev = models.SeverityCritical
	}
	return &finding{
		rule:       models.RuleThreshold,
		severity:   sev,
		confidence: thresholdConfidence,
		context:    explain.Threshold{Zone: zone, Metric: metric, Value: latest.Value, Severity: sev},
	}, nil
}

// deviation is how far v lies past the nearest violated bound, 0 in range.
func deviation(m models.Metric, v float64) float64 {
	switch {
	case v < m.IdealMin:
		return m.IdealMin - v
	case v > m.IdealMax:
		return v - m.IdealMax
	default:
		return 0
	}
}

// checkDuration fires when out-of-range readings in the window span at
// least MinDurationHours. The span runs from the first to the last
// out-of-range reading, in-range readings between them included.
func (s *RulesService) checkDuration(ctx context.Context, zone models.Zone, metric models.Metric, now time.Time) (*finding, error) {
	readings, err := s.readings.Since(ctx, zone.ID, metric.Key, now.Add(-DurationWindow))
	if err != nil {
		return nil, err
	}

	var out []stats.Point
	for _, r := range readings {
		if !metric.InRange(r.Value) {
			out = append(out, stats.Point{Time: r.Timestamp, Value: r.Value})
		}
	}
	hours := stats.DurationHours(out)
	if hours < MinDurationHours {
		return nil, nil
	}

	sev := models.SeverityWarning
	if hours > CriticalDurationHours {
		sev = models.SeverityCritical
	}
	return &finding{
		rule:       models.RuleDuration,
		severity:   sev,
		confidence: durationConfidence,
		context:    explain.Duration{Zone: zone, Metric: metric, Hours: hours, Severity: sev},
	}, nil
}

// checkTrend fires on a confident decline. Confidence is the fit's r².
func (s *RulesService) checkTrend(ctx context.Context, zone models.Zone, metric models.Metric, now time.Time) (*finding, error) {
	readings, err := s.readings.Since(ctx, zone.ID, metric.Key, now.Add(-TrendWindow))
	if err != nil {
		return nil, err
	}
	if len(readings) < TrendMinReadings {
		return nil, nil
	}

	points := make([]stats.Point, len(readings))
	for i, r := range readings {
		points[i] = stats.Point{Time: r.Timestamp, Value: r.Value}
	}
	reg := stats.LinearRegression(points)
	if reg.Slope >= TrendMaxSlope || reg.R2 <= TrendMinR2 {
		return nil, nil
	}

	current := readings[len(readings)-1].Value
	return &finding{
		rule:       models.RuleTrend,
		severity:   models.SeverityWarning,
		confidence: reg.R2,
		context: explain.Trend{
			Zone:       zone,
			Metric:     metric,
			Slope:      reg.Slope,
			Projected:  stats.ProjectValue(reg, TrendHoursAhead, current),
			HoursAhead: TrendHoursAhead,
		},
	}, nil
}

// checkOffline fires when a sensor that has reported before is silent for
// the whole OfflineWindow.
func (s *RulesService) checkOffline(ctx context.Context, zone models.Zone, metric models.Metric, now time.Time) (*finding, error) {
	n, err := s.readings.CountSince(ctx, zone.ID, metric.Key, now.Add(-OfflineWindow))
	if err != nil || n > 0 {
		return nil, err
	}
	latest, err := s.readings.Latest(ctx, zone.ID, metric.Key)
	if err != nil || latest == nil {
		return nil, err
	}

	minutes := int(math.Round(now.Sub(latest.Timestamp).Minutes()))
	return &finding{
		rule:       models.RuleSensorOffline,
		severity:   models.SeverityCritical,
		confidence: offlineConfidence,
		context:    explain.SensorOffline{Zone: zone, Metric: metric, Minutes: minutes},
	}, nil
}

// ResolveRecovered resolves every open insight whose pair reported only
// in-range values recently. A pair with no recent readings stays open.
func (s *RulesService) ResolveRecovered(ctx context.Context, now time.Time) ([]models.Insight, error) {
	open, err := s.insights.ListUnresolved(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open insights: %w", err)
	}

	var resolved []models.Insight
	for _, d := range open {
		recent, err := s.readings.Recent(ctx, d.ZoneID, d.MetricKey, now.Add(-ResolutionWindow), ResolutionSamples)
		if err != nil {
			return resolved, fmt.Errorf("recent readings %s/%s: %w", d.ZoneID, d.MetricKey, err)
		}
		if !recovered(d.Metric, recent) {
			continue
		}
		if err := s.insights.Resolve(ctx, d.ID, now); err != nil {
			return resolved, err
		}

		in := d.Insight
		at := now
		in.ResolvedAt = &at
		resolved = append(resolved, in)
		s.log.Infow("insight_resolved", "insight_id", in.ID, "zone_id", in.ZoneID, "metric", in.MetricKey,
			"open_for", now.Sub(in.CreatedAt).Round(time.Second).String())
	}
	return resolved, nil
}

func recovered(m models.Metric, recent []models.Reading) bool {
	if len(recent) == 0 {
		return false
	}
	for _, r := range recent {
		if !m.InRange(r.Value) {
			return false
		}
	}
	return true
}
