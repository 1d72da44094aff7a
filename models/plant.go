package models

import "time"

const (
	PlantThirsty      = "THIRSTY"
	PlantMalnourished = "MALNOURISHED"
	PlantHealthy      = "HEALTHY"
	PlantStressed     = "STRESSED"
)

// PlantState is the full multi-variable state of the plant twin.
type PlantState struct {
	Timestamp    time.Time `json:"timestamp"`
	SoilMoisture float64   `json:"soil_moisture"`
	Humidity     float64   `json:"humidity"`
	Nutrients    float64   `json:"nutrients"`
	Health       float64   `json:"health"`
	GrowthStage  float64   `json:"growth_stage"`
	Light        float64   `json:"light"`
	Temperature  float64   `json:"temp"`
	Status       string    `json:"status"`
	IsWatering   bool      `json:"is_watering"`
}

// PlantRecord is one plant observation as written to the log.
type PlantRecord struct {
	ID    int64      `json:"id"`
	State PlantState `json:"state"`
}

// PlantStatus derives the status label from the state's variables.
func PlantStatus(s PlantState) string {
	switch {
	case s.SoilMoisture < 35:
		return PlantThirsty
	case s.Nutrients < 20:
		return PlantMalnourished
	case s.Health > 80:
		return PlantHealthy
	default:
		return PlantStressed
	}
}
