// Package factory simulates a small production line: a fixed set of machines
// that start work cycles at random, driven by a shared speed knob.
package factory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"digital-twin-engine/analytics"
	"digital-twin-engine/events"
	"digital-twin-engine/models"
	"digital-twin-engine/simulator"
	"digital-twin-engine/storage"
)

const (
	MinSpeed = 0.1
	MaxSpeed = 2.0
)

var ErrUnknownOptimization = errors.New("unknown optimization action")

// Optimization presets accepted by ApplyOptimization.
const (
	OptimizeEcoMode = "REDUCE_SPEED_ECO_MODE"
	OptimizeBoost   = "BOOST_PRODUCTION"
	OptimizeNormal  = "NORMAL_MODE"
)

var presets = map[string]float64{
	OptimizeEcoMode: 0.5,
	OptimizeBoost:   1.5,
	OptimizeNormal:  1.0,
}

type MachineConfig struct {
	ID        string
	Name      string
	IdlePower float64
}

type Config struct {
	Name     string
	Machines []MachineConfig
	// WorkingPower is the nominal draw of a working machine, jittered by
	// PowerJitter either way each cycle.
	WorkingPower float64
	PowerJitter  float64
	// StartProbability is the per-tick chance an idle machine starts a cycle
	// at speed 1.
	StartProbability float64
	CycleMin         time.Duration
	CycleMax         time.Duration
	// LogProbability is the per-tick chance all machines are snapshotted to
	// the log.
	LogProbability float64
	EnergyLimit    float64
	Speed          float64
}

func DefaultConfig() Config {
	return Config{
		Name: "factory",
		Machines: []MachineConfig{
			{ID: "M1", Name: "Laser-Cutter", IdlePower: 0.5},
			{ID: "M2", Name: "Robotic-Assembler", IdlePower: 0.8},
			{ID: "M3", Name: "Smart-Packer", IdlePower: 0.4},
		},
		WorkingPower:     5.0,
		PowerJitter:      0.5,
		StartProbability: 0.2,
		CycleMin:         2 * time.Second,
		CycleMax:         5 * time.Second,
		LogProbability:   0.1,
		EnergyLimit:      12.0,
		Speed:            1.0,
	}
}

// Registry owns the factory's machines. Tick is called from a single loop
// goroutine; State, SetSpeed and ApplyOptimization are safe from any
// goroutine.
type Registry struct {
	cfg       Config
	machines  []*Machine
	rng       *rand.Rand
	clock     simulator.Clock
	journal   *storage.Journal
	publisher events.Publisher
	logger    *slog.Logger

	mu    sync.RWMutex
	speed float64

	cycles sync.WaitGroup
}

func NewRegistry(cfg Config, rng *rand.Rand, clock simulator.Clock, journal *storage.Journal, publisher events.Publisher, logger *slog.Logger) *Registry {
	if rng == nil {
		rng = simulator.NewRand(0)
	}
	if clock == nil {
		clock = time.Now
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CycleMax < cfg.CycleMin {
		cfg.CycleMax = cfg.CycleMin
	}

	now := clock()
	r := &Registry{
		cfg:       cfg,
		rng:       rng,
		clock:     clock,
		journal:   journal,
		publisher: publisher,
		logger:    logger.With("twin", cfg.Name),
		speed:     clampSpeed(cfg.Speed),
	}
	for _, mc := range cfg.Machines {
		r.machines = append(r.machines, NewMachine(mc.ID, mc.Name, mc.IdlePower, cfg.WorkingPower, now))
	}
	factorySpeed.Set(r.speed)
	return r
}

// Tick integrates energy for every machine, starts new work cycles on idle
// machines and occasionally snapshots the line to the log. It returns the
// number of cycles started.
func (r *Registry) Tick(ctx context.Context) int {
	now := r.clock()
	p := math.Min(1, r.cfg.StartProbability*r.Speed())

	started := 0
	for _, m := range r.machines {
		m.integrate(now)
		if !m.Idle() || r.rng.Float64() >= p {
			continue
		}
		d := r.cfg.CycleMin + time.Duration(r.rng.Float64()*float64(r.cfg.CycleMax-r.cfg.CycleMin))
		power := r.cfg.WorkingPower + (r.rng.Float64()*2-1)*r.cfg.PowerJitter
		if !m.claim(now, power) {
			continue
		}
		started++
		machinesWorking.Inc()
		r.cycles.Add(1)
		go r.runCycle(m, d)
	}

	if r.rng.Float64() < r.cfg.LogProbability {
		r.snapshot(ctx, now)
	}
	return started
}

func (r *Registry) runCycle(m *Machine, d time.Duration) {
	defer r.cycles.Done()
	time.Sleep(d)
	m.finish(r.clock())
	machinesWorking.Dec()

	snap := m.Snapshot()
	workCyclesTotal.WithLabelValues(snap.ID).Inc()
	r.logger.Debug("work cycle finished", "machine", snap.ID, "production", snap.Production)
}

func (r *Registry) snapshot(ctx context.Context, now time.Time) {
	if r.journal == nil {
		return
	}
	for _, m := range r.machines {
		r.journal.AppendMachine(ctx, models.MachineRecord{Timestamp: now, Machine: m.Snapshot()})
	}
	state := r.State()
	if err := r.publisher.Publish(ctx, events.Envelope{Twin: r.cfg.Name, Kind: events.KindFactory, Timestamp: now, Payload: state}); err != nil {
		r.logger.Warn("publish failed", "kind", events.KindFactory, "err", err)
	}
}

// Settle blocks until every in-flight work cycle has finished.
func (r *Registry) Settle() {
	r.cycles.Wait()
}

func (r *Registry) Speed() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.speed
}

// SetSpeed sets the speed multiplier, clamped to [MinSpeed, MaxSpeed], and
// returns the value applied.
func (r *Registry) SetSpeed(speed float64) float64 {
	speed = clampSpeed(speed)
	r.mu.Lock()
	r.speed = speed
	r.mu.Unlock()

	factorySpeed.Set(speed)
	r.logger.Info("factory speed changed", "speed", speed)
	return speed
}

// ApplyOptimization switches to a named speed preset.
func (r *Registry) ApplyOptimization(action string) (float64, error) {
	speed, ok := presets[action]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownOptimization, action)
	}
	r.logger.Info("optimization applied", "action", action)
	return r.SetSpeed(speed), nil
}

// State aggregates every machine as of now.
func (r *Registry) State() models.FactoryState {
	st := models.FactoryState{
		Timestamp:    r.clock(),
		FactorySpeed: r.Speed(),
		EnergyLimit:  r.cfg.EnergyLimit,
		Machines:     make(map[string]models.MachineSnapshot, len(r.machines)),
	}
	for _, m := range r.machines {
		s := m.Snapshot()
		st.Machines[s.ID] = s
		st.TotalEnergyKWh += s.EnergyKWh
		st.TotalProduction += s.Production
		st.TotalPowerKW += s.Consumption
	}
	st.SustainabilityScore = sustainability(st.TotalProduction, st.TotalEnergyKWh)
	return st
}

// RecentSnapshots returns up to n logged machine snapshots, newest first.
func (r *Registry) RecentSnapshots(ctx context.Context, n int) ([]models.MachineRecord, error) {
	if r.journal == nil {
		return nil, nil
	}
	return r.journal.RecentMachines(ctx, n)
}

func (r *Registry) Run(ctx context.Context, period time.Duration) {
	analytics.RunEvery(ctx, r.cfg.Name, period, r.logger, func(ctx context.Context) {
		r.Tick(ctx)
	})
}

func sustainability(production int, energy float64) float64 {
	if production <= 0 {
		return 0
	}
	score := float64(production) / (energy + 0.1) * 10
	score = math.Max(0, math.Min(100, score))
	return math.Round(score*100) / 100
}

func clampSpeed(s float64) float64 {
	if math.IsNaN(s) {
		return 1.0
	}
	return math.Max(MinSpeed, math.Min(MaxSpeed, s))
}
