package models

import "time"

type Exposure string

const (
	ExposureLow    Exposure = "low"
	ExposureMedium Exposure = "medium"
	ExposureHigh   Exposure = "high"
)

type Orientation string

const (
	OrientationInterior Orientation = "interior"
	OrientationNorth    Orientation = "north"
	OrientationSouth    Orientation = "south"
	OrientationEast     Orientation = "east"
	OrientationWest     Orientation = "west"
)

// Garden groups zones that share an orientation.
type Garden struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Orientation Orientation `json:"orientation"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Zone is a monitored area. Orientation is copied from the owning garden.
type Zone struct {
	ID          string      `json:"id"`
	GardenID    string      `json:"gardenId"`
	Name        string      `json:"name"`
	PlantType   string      `json:"plantType"`
	Exposure    Exposure    `json:"exposure"`
	Orientation Orientation `json:"orientation"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Interior reports whether the zone sits inside a building.
func (z Zone) Interior() bool {
	return z.Orientation == OrientationInterior
}
