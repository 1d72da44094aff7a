package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"digital-twin-engine/factory"
	"digital-twin-engine/models"
)

type Factory interface {
	State() models.FactoryState
	SetSpeed(speed float64) float64
	ApplyOptimization(action string) (float64, error)
}

type FactoryHandler struct {
	factory Factory
}

func NewFactoryHandler(f Factory) *FactoryHandler {
	return &FactoryHandler{factory: f}
}

func (h *FactoryHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.factory.State())
}

type speedRequest struct {
	Speed *float64 `json:"speed"`
}

func (h *FactoryHandler) HandleSpeed(w http.ResponseWriter, r *http.Request) {
	var req speedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if req.Speed == nil {
		http.Error(w, "speed is required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"speed": h.factory.SetSpeed(*req.Speed)})
}

type optimizeRequest struct {
	Action string `json:"action"`
}

func (h *FactoryHandler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	speed, err := h.factory.ApplyOptimization(req.Action)
	if errors.Is(err, factory.ErrUnknownOptimization) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"action": req.Action,
		"speed":  speed,
	})
}
