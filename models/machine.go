package models

import "time"

type MachineStatus string

const (
	MachineIdle        MachineStatus = "IDLE"
	MachineWorking     MachineStatus = "WORKING"
	MachineBlocked     MachineStatus = "BLOCKED"
	MachineMaintenance MachineStatus = "MAINTENANCE"
)

// MachineSnapshot is a momentary copy of one factory machine.
type MachineSnapshot struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Status       MachineStatus `json:"status"`
	IdlePower    float64       `json:"idle_power"`
	WorkingPower float64       `json:"working_power"`
	Consumption  float64       `json:"consumption"`
	EnergyKWh    float64       `json:"total_energy_kwh"`
	Production   int           `json:"production"`
	LastUpdate   time.Time     `json:"last_update"`
}

// MachineRecord is a machine snapshot as written to the factory log.
type MachineRecord struct {
	ID        int64           `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Machine   MachineSnapshot `json:"machine"`
}

// FactoryState aggregates every machine at read time.
type FactoryState struct {
	Timestamp           time.Time                  `json:"timestamp"`
	TotalEnergyKWh      float64                    `json:"total_energy_kwh"`
	TotalProduction     int                        `json:"total_production"`
	SustainabilityScore float64                    `json:"sustainability_score"`
	FactorySpeed        float64                    `json:"factory_speed"`
	TotalPowerKW        float64                    `json:"total_power_kw"`
	EnergyLimit         float64                    `json:"energy_limit"`
	Machines            map[string]MachineSnapshot `json:"machines"`
}
