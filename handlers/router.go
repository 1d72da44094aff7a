package handlers

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires every twin's handlers under its own prefix.
func NewRouter(thermal ThermalTwin, plant PlantTwin, f Factory) *mux.Router {
	r := mux.NewRouter()
	r.Use(Instrument)

	r.HandleFunc("/health", HealthCheck).Methods("GET")

	th := NewThermalHandler(thermal)
	t := r.PathPrefix("/twins/thermal").Subrouter()
	t.HandleFunc("/summary", th.HandleSummary).Methods("GET")
	t.HandleFunc("/forecast", th.HandleForecast).Methods("GET")
	t.HandleFunc("/feedback", th.HandleFeedback).Methods("POST")
	t.HandleFunc("/last-action", th.HandleLastAction).Methods("GET")
	t.HandleFunc("/history", th.HandleHistory).Methods("GET")

	ph := NewPlantHandler(plant)
	p := r.PathPrefix("/twins/plant").Subrouter()
	p.HandleFunc("/state", ph.HandleState).Methods("GET")
	p.HandleFunc("/water", ph.HandleWater).Methods("POST")
	p.HandleFunc("/fertilize", ph.HandleFertilize).Methods("POST")
	p.HandleFunc("/growth", ph.HandleGrowth).Methods("GET")
	p.HandleFunc("/history", ph.HandleHistory).Methods("GET")

	fh := NewFactoryHandler(f)
	fr := r.PathPrefix("/factory").Subrouter()
	fr.HandleFunc("/state", fh.HandleState).Methods("GET")
	fr.HandleFunc("/speed", fh.HandleSpeed).Methods("POST")
	fr.HandleFunc("/optimize", fh.HandleOptimize).Methods("POST")

	r.Path("/metrics").Handler(promhttp.Handler())
	return r
}
