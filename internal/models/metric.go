package models

// Metric keys of the seeded catalog.
const (
	MetricSoilMoisture = "soil_moisture"
	MetricTemperature  = "temperature"
	MetricHumidity     = "humidity"
	MetricLight        = "light"
)

// Metric is a measurable quantity with its ideal band.
type Metric struct {
	Key         string  `json:"key"`
	Unit        string  `json:"unit"`
	IdealMin    float64 `json:"idealMin"`
	IdealMax    float64 `json:"idealMax"`
	Description string  `json:"description"`
}

// InRange reports whether v lies inside [IdealMin, IdealMax].
func (m Metric) InRange(v float64) bool {
	return v >= m.IdealMin && v <= m.IdealMax
}

// Width is the size of the ideal band.
func (m Metric) Width() float64 {
	return m.IdealMax - m.IdealMin
}
