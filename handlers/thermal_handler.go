package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"digital-twin-engine/models"
)

// ThermalTwin is the boundary surface of the temperature twin.
type ThermalTwin interface {
	Summary() models.Summary
	Forecast(steps int) ([]float64, bool)
	ApplyFeedback(delta float64) float64
	Bias() float64
	LastAction() (models.ActionResult, bool)
	ReadHistory(ctx context.Context, n int) ([]models.Reading, error)
}

type ThermalHandler struct {
	twin ThermalTwin
}

func NewThermalHandler(twin ThermalTwin) *ThermalHandler {
	return &ThermalHandler{twin: twin}
}

func (h *ThermalHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.twin.Summary())
}

func (h *ThermalHandler) HandleForecast(w http.ResponseWriter, r *http.Request) {
	steps, ok := intParam(r, "steps", 8, 100)
	if !ok {
		http.Error(w, "steps must be a positive integer", http.StatusBadRequest)
		return
	}

	predictions, ok := h.twin.Forecast(steps)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"predictions": []float64{},
			"status":      "insufficient data",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"predictions": predictions,
		"steps":       steps,
	})
}

type feedbackRequest struct {
	Delta *float64 `json:"delta"`
}

func (h *ThermalHandler) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if req.Delta == nil {
		http.Error(w, "delta is required", http.StatusBadRequest)
		return
	}

	applied := h.twin.ApplyFeedback(*req.Delta)
	writeJSON(w, http.StatusOK, map[string]float64{
		"applied": applied,
		"bias":    h.twin.Bias(),
	})
}

func (h *ThermalHandler) HandleLastAction(w http.ResponseWriter, r *http.Request) {
	action, ok := h.twin.LastAction()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{"status": "no action taken yet"})
		return
	}
	writeJSON(w, http.StatusOK, action)
}

func (h *ThermalHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
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
		rows = []models.Reading{}
	}
	writeJSON(w, http.StatusOK, rows)
}
