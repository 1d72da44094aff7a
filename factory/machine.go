package factory

import (
	"sync"
	"time"

	"digital-twin-engine/models"
)

// Machine is one factory entity. The registry's loop integrates its energy
// and claims it for a work cycle; the cycle goroutine is the only writer while
// the machine is WORKING.
type Machine struct {
	mu   sync.Mutex
	snap models.MachineSnapshot
}

func NewMachine(id, name string, idlePower, workingPower float64, now time.Time) *Machine {
	return &Machine{snap: models.MachineSnapshot{
		ID:           id,
		Name:         name,
		Status:       models.MachineIdle,
		IdlePower:    idlePower,
		WorkingPower: workingPower,
		Consumption:  idlePower,
		LastUpdate:   now,
	}}
}

func (m *Machine) Snapshot() models.MachineSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

func (m *Machine) Idle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Status == models.MachineIdle
}

// integrateLocked accumulates energy at the current draw up to now.
func (m *Machine) integrateLocked(now time.Time) {
	dt := now.Sub(m.snap.LastUpdate).Hours()
	if dt > 0 {
		m.snap.EnergyKWh += m.snap.Consumption * dt
	}
	m.snap.LastUpdate = now
}

func (m *Machine) integrate(now time.Time) {
	m.mu.Lock()
	m.integrateLocked(now)
	m.mu.Unlock()
}

// claim moves an idle machine to WORKING at the given power. It reports false
// if the machine is busy.
func (m *Machine) claim(now time.Time, power float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap.Status != models.MachineIdle {
		return false
	}
	m.integrateLocked(now)
	m.snap.Status = models.MachineWorking
	m.snap.Consumption = power
	return true
}

// finish completes a work cycle: one more unit produced, back to idle power.
func (m *Machine) finish(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.integrateLocked(now)
	m.snap.Production++
	m.snap.Status = models.MachineIdle
	m.snap.Consumption = m.snap.IdlePower
}
