package models

import "time"

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rule names the check that produced an insight.
type Rule string

const (
	RuleThreshold     Rule = "threshold"
	RuleDuration      Rule = "duration"
	RuleTrend         Rule = "trend"
	RuleSensorOffline Rule = "sensor_offline"
)

// Insight is an explained alert for a single (zone, metric) pair.
// It stays open until ResolvedAt is set.
type Insight struct {
	ID          string     `json:"id"`
	ZoneID      string     `json:"zoneId"`
	MetricKey   string     `json:"metricKey"`
	Rule        Rule       `json:"rule"`
	Severity    Severity   `json:"severity"`
	Explanation string     `json:"explanation"`
	Confidence  float64    `json:"confidence"`
	CreatedAt   time.Time  `json:"createdAt"`
	ResolvedAt  *time.Time `json:"resolvedAt"`
}

// Open reports whether the insight has not been resolved yet.
func (i Insight) Open() bool {
	return i.ResolvedAt == nil
}

// InsightDetail is an insight joined with its zone and metric.
type InsightDetail struct {
	Insight
	Zone   Zone   `json:"zone"`
	Metric Metric `json:"metric"`
}

// InsightFilter narrows insight listings.
type InsightFilter struct {
	Status string // active | resolved | all
	ZoneID string
	Limit  int
}

const (
	InsightStatusActive   = "active"
	InsightStatusResolved = "resolved"
	InsightStatusAll      = "all"
)
