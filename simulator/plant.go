package simulator

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"digital-twin-engine/models"
)

type PlantConfig struct {
	InitialMoisture     float64
	InitialHumidity     float64
	EvaporationRate     float64
	GrowthRate          float64
	IrrigationAmount    float64
	NutrientConsumption float64
	FertilizeAmount     float64
	// ActuationTime is how long a manual irrigation keeps the valve open.
	ActuationTime time.Duration
}

func DefaultPlantConfig() PlantConfig {
	return PlantConfig{
		InitialMoisture:     60.0,
		InitialHumidity:     45.0,
		EvaporationRate:     0.8,
		GrowthRate:          0.08,
		IrrigationAmount:    25.0,
		NutrientConsumption: 0.05,
		FertilizeAmount:     30.0,
		ActuationTime:       time.Second,
	}
}

const (
	minHumidity  = 20.0
	minPlantTemp = -40.0
	maxPlantTemp = 60.0
)

// Plant is a multi-variable twin. Light and air follow the day cycle; soil
// moisture, nutrients, health and growth integrate over elapsed real time.
type Plant struct {
	cfg   PlantConfig
	rng   *rand.Rand
	clock Clock

	mu         sync.Mutex
	state      models.PlantState
	lastUpdate time.Time
	// watering counts irrigations still actuating; IsWatering mirrors it.
	watering int
}

func NewPlant(cfg PlantConfig, rng *rand.Rand, clock Clock) *Plant {
	if rng == nil {
		rng = NewRand(0)
	}
	if clock == nil {
		clock = time.Now
	}
	now := clock()
	p := &Plant{
		cfg:        cfg,
		rng:        rng,
		clock:      clock,
		lastUpdate: now,
		state: models.PlantState{
			Timestamp:    now,
			SoilMoisture: clamp(cfg.InitialMoisture, 0, 100),
			Humidity:     clamp(cfg.InitialHumidity, minHumidity, 100),
			Nutrients:    100,
			Health:       100,
			Temperature:  22,
		},
	}
	p.state.Status = models.PlantStatus(p.state)
	return p
}

// Tick runs one biological step and returns the resulting state.
func (p *Plant) Tick() models.PlantState {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock()
	dt := now.Sub(p.lastUpdate).Seconds()
	if dt < 0 {
		dt = 0
	}
	s := &p.state
	hour := hourOfDay(now)

	s.Light = clamp(100*math.Sin(math.Pi*(hour-6)/12), 0, 100)
	s.Temperature = clamp(20+5*math.Sin(math.Pi*(hour-8)/12)+uniform(p.rng, -0.5, 0.5), minPlantTemp, maxPlantTemp)
	s.Humidity = clamp(50-(s.Temperature-20)*2+uniform(p.rng, -2, 2), minHumidity, 100)

	humidityFactor := (100 - s.Humidity) / 50
	loss := p.cfg.EvaporationRate * (s.Light / 50) * (s.Temperature / 20) * humidityFactor * dt
	s.SoilMoisture = clamp(s.SoilMoisture-loss, 0, 100)

	if s.SoilMoisture > 30 && s.SoilMoisture < 80 && s.Nutrients > 0 {
		boost := p.cfg.GrowthRate * (s.Light / 100) * (s.Nutrients / 100)
		s.GrowthStage = clamp(s.GrowthStage+boost, 0, 100)
		s.Health = clamp(s.Health+0.2, 0, 100)
		if p.cfg.GrowthRate > 0 {
			s.Nutrients = clamp(s.Nutrients-p.cfg.NutrientConsumption*(boost/p.cfg.GrowthRate), 0, 100)
		}
	} else {
		s.Health = clamp(s.Health-0.3, 0, 100)
	}

	if s.Health < 20 {
		s.GrowthStage = clamp(s.GrowthStage-0.1, 0, 100)
	}

	s.Timestamp = now
	s.Status = models.PlantStatus(*s)
	p.lastUpdate = now
	return *s
}

// State returns a copy of the current state without advancing it.
func (p *Plant) State() models.PlantState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// ApplyFeedback changes soil moisture directly, the way an automatic
// irrigation pulse does.
func (p *Plant) ApplyFeedback(delta float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.SoilMoisture = clamp(p.state.SoilMoisture+delta, 0, 100)
	p.state.Status = models.PlantStatus(p.state)
}

// Irrigate opens the valve: moisture rises immediately and the call blocks
// for the actuation time while the water flows. Ticks continue meanwhile.
// It returns ctx.Err() if ctx ends first; the water has been added either way.
// Overlapping calls keep IsWatering set until the last one finishes.
func (p *Plant) Irrigate(ctx context.Context) error {
	p.mu.Lock()
	p.watering++
	p.state.IsWatering = true
	p.state.SoilMoisture = clamp(p.state.SoilMoisture+p.cfg.IrrigationAmount, 0, 100)
	p.state.Status = models.PlantStatus(p.state)
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.watering--
		p.state.IsWatering = p.watering > 0
		p.mu.Unlock()
	}()

	timer := time.NewTimer(p.cfg.ActuationTime)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fertilize tops up nutrients and returns the new level.
func (p *Plant) Fertilize() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Nutrients = clamp(p.state.Nutrients+p.cfg.FertilizeAmount, 0, 100)
	p.state.Status = models.PlantStatus(p.state)
	return p.state.Nutrients
}

// PredictGrowth projects the growth stage hour by hour from the current
// health. It is a rough dashboard estimate, not a simulation.
func (p *Plant) PredictGrowth(hours int) []float64 {
	p.mu.Lock()
	health, growth := p.state.Health, p.state.GrowthStage
	p.mu.Unlock()

	if hours <= 0 {
		return nil
	}
	out := make([]float64, hours)
	for i := range out {
		if health > 50 {
			growth += p.cfg.GrowthRate * 60
		}
		out[i] = math.Min(100, growth)
	}
	return out
}
