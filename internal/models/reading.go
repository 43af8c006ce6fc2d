package models

import "time"

type ReadingSource string

const (
	SourceSimulated ReadingSource = "simulated"
	SourceExternal  ReadingSource = "external"
)

// Reading is one timestamped observation of a metric in a zone.
type Reading struct {
	ID        string        `json:"id"`
	ZoneID    string        `json:"zoneId"`
	MetricKey string        `json:"metricKey"`
	Value     float64       `json:"value"`
	Timestamp time.Time     `json:"timestamp"`
	Source    ReadingSource `json:"source"`
}
