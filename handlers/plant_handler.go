package handlers

import (
	"context"
	"net/http"

	"digital-twin-engine/models"
)

type PlantTwin interface {
	State() models.PlantState
	Irrigate(ctx context.Context) (models.PlantState, error)
	Fertilize() float64
	PredictGrowth(hours int) []float64
	ReadHistory(ctx context.Context, n int) ([]models.PlantRecord, error)
}

type PlantHandler struct {
	twin PlantTwin
}

func NewPlantHandler(twin PlantTwin) *PlantHandler {
	return &PlantHandler{twin: twin}
}

func (h *PlantHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.twin.State())
}

// HandleWater blocks for the valve's actuation time.
func (h *PlantHandler) HandleWater(w http.ResponseWriter, r *http.Request) {
	state, err := h.twin.Irrigate(r.Context())
	if err != nil {
		http.Error(w, "Irrigation interrupted: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "watered",
		"state":  state,
	})
}

func (h *PlantHandler) HandleFertilize(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "fertilized",
		"nutrients": h.twin.Fertilize(),
	})
}

func (h *PlantHandler) HandleGrowth(w http.ResponseWriter, r *http.Request) {
	hours, ok := intParam(r, "hours", 24, 24*30)
	if !ok {
		http.Error(w, "hours must be a positive integer", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"hours":      hours,
		"prediction": h.twin.PredictGrowth(hours),
	})
}

func (h *PlantHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	n, ok := intParam(r, "n", 100, 1000)
	if !ok {
		http.Error(w, "n must be a positive integer", http.StatusBadRequest)
		return
	}

	rows, err := h.twin.ReadHistory(r.Context(), n)
	if err != nil {
		http.Error(w, "Failed to read history: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []models.PlantRecord{}
	}
	writeJSON(w, http.StatusOK, rows)
}
