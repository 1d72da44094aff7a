package simulator

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"digital-twin-engine/models"
)

type ThermalConfig struct {
	BaseTemp         float64
	DailyAmplitude   float64
	PhaseHour        float64
	Noise            float64
	SpikeProbability float64
	SpikeMin         float64
	SpikeMax         float64
	// PositiveSpikeShare is the probability that a spike raises the value.
	PositiveSpikeShare float64
	BiasDecay          float64
	BiasSnap           float64
}

func DefaultThermalConfig() ThermalConfig {
	return ThermalConfig{
		BaseTemp:           22.0,
		DailyAmplitude:     5.0,
		PhaseHour:          6.0,
		Noise:              0.3,
		SpikeProbability:   0.05,
		SpikeMin:           5.0,
		SpikeMax:           10.0,
		PositiveSpikeShare: 0.6,
		BiasDecay:          0.95,
		BiasSnap:           0.1,
	}
}

// Thermal simulates a temperature sensor: a sinusoidal day cycle, bounded
// noise, rare spikes and the external bias fed back by automation.
type Thermal struct {
	cfg   ThermalConfig
	rng   *rand.Rand
	clock Clock

	mu          sync.Mutex
	bias        Bias
	temperature float64
	lastUpdate  time.Time
}

func NewThermal(cfg ThermalConfig, rng *rand.Rand, clock Clock) *Thermal {
	if rng == nil {
		rng = NewRand(0)
	}
	if clock == nil {
		clock = time.Now
	}
	now := clock()
	return &Thermal{
		cfg:         cfg,
		rng:         rng,
		clock:       clock,
		bias:        NewBias(cfg.BiasDecay, cfg.BiasSnap),
		temperature: cfg.BaseTemp,
		lastUpdate:  now,
	}
}

// Baseline is the deterministic day-cycle temperature at t.
func (t *Thermal) Baseline(at time.Time) float64 {
	return t.cfg.BaseTemp + t.cfg.DailyAmplitude*math.Sin(math.Pi*(hourOfDay(at)-t.cfg.PhaseHour)/12)
}

// Tick advances the sensor by one step and returns the new reading.
func (t *Thermal) Tick() models.Reading {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock()
	temp := t.Baseline(now)
	if t.cfg.Noise > 0 {
		temp += uniform(t.rng, -t.cfg.Noise, t.cfg.Noise)
	}
	temp += t.bias.Consume()

	if t.cfg.SpikeProbability > 0 && t.rng.Float64() < t.cfg.SpikeProbability {
		spike := uniform(t.rng, t.cfg.SpikeMin, t.cfg.SpikeMax)
		if t.rng.Float64() >= t.cfg.PositiveSpikeShare {
			spike = -spike
		}
		temp += spike
	}

	t.temperature = temp
	t.lastUpdate = now
	return models.Reading{Timestamp: now, Value: temp}
}

// ApplyFeedback adds delta to the external bias. It takes effect on the next
// tick.
func (t *Thermal) ApplyFeedback(delta float64) {
	t.mu.Lock()
	t.bias.Add(delta)
	t.mu.Unlock()
}

func (t *Thermal) Bias() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bias.Value()
}

func (t *Thermal) Temperature() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.temperature
}

func (t *Thermal) LastUpdate() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastUpdate
}
