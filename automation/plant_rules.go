package automation

import (
	"context"
	"log/slog"
	"sync"

	"digital-twin-engine/models"
)

type PlantThresholds struct {
	DroughtMoisture float64
	IrrigationPulse float64
	LowNutrients    float64
}

func DefaultPlantThresholds() PlantThresholds {
	return PlantThresholds{DroughtMoisture: 30, IrrigationPulse: 20, LowNutrients: 15}
}

// PlantRules watches every plant tick. A drought triggers an irrigation pulse
// back into the plant; nutrient depletion is only reported.
type PlantRules struct {
	th       PlantThresholds
	target   Feedback
	recorder ActionRecorder
	logger   *slog.Logger

	mu   sync.RWMutex
	last *models.ActionResult
}

func NewPlantRules(th PlantThresholds, target Feedback, recorder ActionRecorder, logger *slog.Logger) *PlantRules {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlantRules{th: th, target: target, recorder: recorder, logger: logger}
}

// Evaluate applies the rules to s and returns the actions taken, in order.
func (p *PlantRules) Evaluate(ctx context.Context, s models.PlantState) []models.ActionResult {
	var out []models.ActionResult

	if s.SoilMoisture < p.th.DroughtMoisture && !s.IsWatering {
		p.target.ApplyFeedback(p.th.IrrigationPulse)
		out = append(out, p.record(ctx, s, models.ActionSmartIrrigation, p.th.IrrigationPulse, s.SoilMoisture))
		p.logger.Warn("critical drought, activating smart irrigation", "moisture", s.SoilMoisture)
	}
	if s.Nutrients < p.th.LowNutrients {
		out = append(out, p.record(ctx, s, models.ActionNutrientAlert, 0, s.Nutrients))
		p.logger.Warn("nutrient depletion, growth stunted", "nutrients", s.Nutrients)
	}
	return out
}

func (p *PlantRules) record(ctx context.Context, s models.PlantState, kind models.ActionKind, delta, trigger float64) models.ActionResult {
	res := models.ActionResult{Action: kind, Delta: delta, Timestamp: s.Timestamp}
	if p.recorder != nil {
		p.recorder.AppendAction(ctx, models.ActionRecord{
			Timestamp:    s.Timestamp,
			Action:       kind,
			Delta:        delta,
			TriggerValue: trigger,
		})
	}
	p.mu.Lock()
	p.last = &res
	p.mu.Unlock()
	return res
}

func (p *PlantRules) LastAction() (models.ActionResult, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return models.ActionResult{}, false
	}
	return *p.last, true
}
