package analytics

import (
	"context"
	"log/slog"
	"time"

	"digital-twin-engine/automation"
	"digital-twin-engine/events"
	"digital-twin-engine/models"
	"digital-twin-engine/simulator"
	"digital-twin-engine/storage"
)

// PlantEngine runs the plant twin: each tick advances the biology and lets
// the plant rules react to the new state.
type PlantEngine struct {
	name      string
	plant     *simulator.Plant
	rules     *automation.PlantRules
	journal   *storage.Journal
	publisher events.Publisher
	logger    *slog.Logger
}

func NewPlantEngine(name string, plant *simulator.Plant, th automation.PlantThresholds, journal *storage.Journal, publisher events.Publisher, logger *slog.Logger) *PlantEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	logger = logger.With("twin", name)
	return &PlantEngine{
		name:      name,
		plant:     plant,
		rules:     automation.NewPlantRules(th, plant, journal, logger),
		journal:   journal,
		publisher: publisher,
		logger:    logger,
	}
}

func (p *PlantEngine) Tick(ctx context.Context) (models.PlantState, []models.ActionResult) {
	state := p.plant.Tick()
	ticksTotal.WithLabelValues(p.name).Inc()
	p.journal.AppendPlant(ctx, state)

	actions := p.rules.Evaluate(ctx, state)
	for _, a := range actions {
		automationActionsTotal.WithLabelValues(p.name, string(a.Action)).Inc()
		p.publish(ctx, events.KindAction, a.Timestamp, a)
	}
	p.publish(ctx, events.KindPlant, state.Timestamp, state)
	return state, actions
}

func (p *PlantEngine) publish(ctx context.Context, kind events.Kind, ts time.Time, payload any) {
	err := p.publisher.Publish(ctx, events.Envelope{Twin: p.name, Kind: kind, Timestamp: ts, Payload: payload})
	if err != nil {
		p.logger.Warn("publish failed", "kind", kind, "err", err)
	}
}

func (p *PlantEngine) State() models.PlantState { return p.plant.State() }

// Irrigate waters the plant on demand and blocks for the actuation time.
func (p *PlantEngine) Irrigate(ctx context.Context) (models.PlantState, error) {
	p.logger.Info("manual irrigation started")
	err := p.plant.Irrigate(ctx)
	return p.plant.State(), err
}

func (p *PlantEngine) Fertilize() float64 {
	n := p.plant.Fertilize()
	p.logger.Info("fertilized", "nutrients", n)
	return n
}

func (p *PlantEngine) PredictGrowth(hours int) []float64 { return p.plant.PredictGrowth(hours) }

// ReadHistory returns up to n persisted plant observations, newest first.
func (p *PlantEngine) ReadHistory(ctx context.Context, n int) ([]models.PlantRecord, error) {
	return p.journal.RecentPlants(ctx, n)
}

func (p *PlantEngine) LastAction() (models.ActionResult, bool) { return p.rules.LastAction() }

func (p *PlantEngine) Run(ctx context.Context, period time.Duration) {
	RunEvery(ctx, p.name, period, p.logger, func(ctx context.Context) {
		p.Tick(ctx)
	})
}
