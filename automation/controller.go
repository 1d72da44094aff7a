// Package automation closes the loop between analysis and simulation: it turns
// detected conditions into corrective actions, feeds them back into the twin
// and records every action it takes.
package automation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"digital-twin-engine/models"
)

type EventKind string

// EventAnomalyDetected is the only event the thermal controller acts on.
const EventAnomalyDetected EventKind = "dto.kpi.anomaly_detected"

type Event struct {
	Kind      EventKind
	Value     float64
	Timestamp time.Time
}

// Feedback receives corrective deltas. Simulators implement it.
type Feedback interface {
	ApplyFeedback(delta float64)
}

// ActionRecorder persists actions. It must not fail the caller.
type ActionRecorder interface {
	AppendAction(ctx context.Context, a models.ActionRecord) models.ActionRecord
}

type State int

const (
	Idle State = iota
	Acted
)

func (s State) String() string {
	if s == Acted {
		return "Acted"
	}
	return "Idle"
}

type Rules struct {
	// Upper and Lower bound the comfortable range of the twin's value.
	Upper float64
	Lower float64
	// CoolingDelta is applied above Upper, HeatingDelta below Lower.
	CoolingDelta float64
	HeatingDelta float64
}

func DefaultRules() Rules {
	return Rules{Upper: 28, Lower: 15, CoolingDelta: -2, HeatingDelta: 2}
}

// Decide maps an anomalous value to an action and its bias delta.
func (r Rules) Decide(value float64) (models.ActionKind, float64) {
	switch {
	case value > r.Upper:
		return models.ActionCooling, r.CoolingDelta
	case value < r.Lower:
		return models.ActionHeating, r.HeatingDelta
	default:
		return models.ActionEquipmentCheck, 0
	}
}

// Controller reacts to anomaly events of one twin.
type Controller struct {
	rules    Rules
	target   Feedback
	recorder ActionRecorder
	logger   *slog.Logger
	onAction func(models.ActionResult)

	mu    sync.RWMutex
	state State
	last  models.ActionResult
}

type Option func(*Controller)

// WithActionHook registers fn to be called after every action.
func WithActionHook(fn func(models.ActionResult)) Option {
	return func(c *Controller) { c.onAction = fn }
}

func NewController(rules Rules, target Feedback, recorder ActionRecorder, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		rules:    rules,
		target:   target,
		recorder: recorder,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProcessEvent handles ev and reports the action taken. Unknown event kinds
// are ignored and report false.
func (c *Controller) ProcessEvent(ctx context.Context, ev Event) (models.ActionResult, bool) {
	if ev.Kind != EventAnomalyDetected {
		return models.ActionResult{}, false
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	kind, delta := c.rules.Decide(ev.Value)
	res := models.ActionResult{Action: kind, Delta: delta, Timestamp: ev.Timestamp}

	c.target.ApplyFeedback(delta)
	if c.recorder != nil {
		c.recorder.AppendAction(ctx, models.ActionRecord{
			Timestamp:    ev.Timestamp,
			Action:       kind,
			Delta:        delta,
			TriggerValue: ev.Value,
		})
	}

	c.mu.Lock()
	c.state = Acted
	c.last = res
	c.mu.Unlock()

	c.logger.Info("automation action", "action", kind, "value", ev.Value, "delta", delta)
	if c.onAction != nil {
		c.onAction(res)
	}
	return res, true
}

// LastAction reports the most recent action, or false before the first one.
func (c *Controller) LastAction() (models.ActionResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last, c.state == Acted
}

func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}
