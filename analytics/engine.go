package analytics

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"digital-twin-engine/automation"
	"digital-twin-engine/events"
	"digital-twin-engine/models"
	"digital-twin-engine/storage"
)

// Source is a single-variable twin simulator.
type Source interface {
	Tick() models.Reading
	ApplyFeedback(delta float64)
	Bias() float64
}

type EngineConfig struct {
	Name          string
	WindowSize    int
	MinSamples    int
	Contamination float64
	SMAWindow     int
	// ForecastSteps is the horizon published with every reading.
	ForecastSteps int
	// MaxFeedback bounds the magnitude of a manual feedback delta.
	MaxFeedback float64
	Rules       automation.Rules
}

func DefaultEngineConfig(name string) EngineConfig {
	return EngineConfig{
		Name:          name,
		WindowSize:    50,
		MinSamples:    DefaultMinSamples,
		Contamination: DefaultContamination,
		SMAWindow:     10,
		ForecastSteps: 8,
		MaxFeedback:   10,
		Rules:         automation.DefaultRules(),
	}
}

// Engine runs the closed loop of one twin: simulate, classify against the
// rolling window, log, and let the controller feed a correction back into the
// simulator. Ingest is called by a single loop goroutine; every other method
// may be called concurrently from the boundary layer.
type Engine struct {
	cfg        EngineConfig
	sim        Source
	detector   *AnomalyDetector
	controller *automation.Controller
	journal    *storage.Journal
	publisher  events.Publisher
	logger     *slog.Logger

	mu       sync.RWMutex
	window   *RollingWindow
	lifetime int64
}

func NewEngine(cfg EngineConfig, sim Source, journal *storage.Journal, publisher events.Publisher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if cfg.SMAWindow < 1 {
		cfg.SMAWindow = 10
	}
	logger = logger.With("twin", cfg.Name)

	e := &Engine{
		cfg:       cfg,
		sim:       sim,
		detector:  NewAnomalyDetector(cfg.MinSamples, cfg.Contamination),
		journal:   journal,
		publisher: publisher,
		logger:    logger,
		window:    NewRollingWindow(cfg.WindowSize),
	}
	e.controller = automation.NewController(cfg.Rules, sim, journal, logger, automation.WithActionHook(e.onAction))
	return e
}

// Ingest advances the twin by one tick and returns the new reading with the
// summary that follows it.
func (e *Engine) Ingest(ctx context.Context) (models.Reading, models.Summary) {
	reading := e.sim.Tick()
	ticksTotal.WithLabelValues(e.cfg.Name).Inc()

	e.mu.RLock()
	values := e.window.Values()
	e.mu.RUnlock()

	start := time.Now()
	isAnomaly, zScore := e.detector.Classify(reading.Value, values)
	classifyDurationSeconds.WithLabelValues(e.cfg.Name).Observe(time.Since(start).Seconds())
	reading.IsAnomaly = isAnomaly

	reading = e.journal.AppendReading(ctx, reading)

	e.mu.Lock()
	e.window.Push(reading)
	if isAnomaly {
		e.lifetime++
	}
	summary := e.summaryLocked()
	avg := e.window.Average()
	e.mu.Unlock()

	if isAnomaly {
		anomaliesDetectedTotal.WithLabelValues(e.cfg.Name).Inc()
		e.logger.Warn("ANOMALY DETECTED", "value", reading.Value, "z_score", zScore, "rolling_avg", avg)

		e.controller.ProcessEvent(ctx, automation.Event{
			Kind:      automation.EventAnomalyDetected,
			Value:     round2(reading.Value),
			Timestamp: reading.Timestamp,
		})
	}
	externalBias.WithLabelValues(e.cfg.Name).Set(e.sim.Bias())

	forecast, _ := e.Forecast(e.cfg.ForecastSteps)
	e.publish(ctx, events.KindReading, reading.Timestamp, readingEvent{Reading: reading, Summary: summary, Predictions: forecast})
	return reading, summary
}

type readingEvent struct {
	models.Reading
	Summary     models.Summary `json:"summary"`
	Predictions []float64      `json:"predictions"`
}

func (e *Engine) onAction(res models.ActionResult) {
	automationActionsTotal.WithLabelValues(e.cfg.Name, string(res.Action)).Inc()
	e.publish(context.Background(), events.KindAction, res.Timestamp, res)
}

func (e *Engine) publish(ctx context.Context, kind events.Kind, ts time.Time, payload any) {
	err := e.publisher.Publish(ctx, events.Envelope{Twin: e.cfg.Name, Kind: kind, Timestamp: ts, Payload: payload})
	if err != nil {
		e.logger.Warn("publish failed", "kind", kind, "err", err)
	}
}

// Summary reports the twin's current condition.
func (e *Engine) Summary() models.Summary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.summaryLocked()
}

func (e *Engine) summaryLocked() models.Summary {
	s := models.Summary{
		Status:            models.StatusInitializing,
		HistoryCount:      e.window.Size(),
		AnomaliesCount:    e.window.AnomalyCount(),
		LifetimeAnomalies: e.lifetime,
	}
	if latest, ok := e.window.Latest(); ok {
		v := round2(latest.Value)
		s.CurrentValue = &v
		s.Status = models.StatusNormal
		if latest.IsAnomaly {
			s.Status = models.StatusAlarm
		}
	}
	if sma, ok := e.window.SMA(e.cfg.SMAWindow); ok {
		sma = round2(sma)
		s.SMA = &sma
	}
	return s
}

// Forecast projects the window's linear trend steps readings ahead. It
// reports false until enough readings have been collected.
func (e *Engine) Forecast(steps int) ([]float64, bool) {
	e.mu.RLock()
	values := e.window.Values()
	e.mu.RUnlock()
	return Forecast(values, steps)
}

// ApplyFeedback nudges the simulator from outside the loop. The delta is
// clamped to the configured bound and the applied value is returned.
func (e *Engine) ApplyFeedback(delta float64) float64 {
	if e.cfg.MaxFeedback > 0 {
		delta = math.Max(-e.cfg.MaxFeedback, math.Min(e.cfg.MaxFeedback, delta))
	}
	e.sim.ApplyFeedback(delta)
	e.logger.Info("manual feedback applied", "delta", delta)
	return delta
}

func (e *Engine) Bias() float64 { return e.sim.Bias() }

// LastAction reports the controller's most recent action, false if it has
// not acted yet.
func (e *Engine) LastAction() (models.ActionResult, bool) {
	return e.controller.LastAction()
}

// ReadHistory returns up to n persisted readings, newest first.
func (e *Engine) ReadHistory(ctx context.Context, n int) ([]models.Reading, error) {
	return e.journal.RecentReadings(ctx, n)
}

// RecentActions returns up to n persisted actions, newest first.
func (e *Engine) RecentActions(ctx context.Context, n int) ([]models.ActionRecord, error) {
	return e.journal.RecentActions(ctx, n)
}

// WarmStart refills the window from the last m persisted readings and
// returns how many were loaded. Only the newest WindowSize of them stay.
func (e *Engine) WarmStart(ctx context.Context, m int) (int, error) {
	rows, err := e.journal.RecentReadings(ctx, m)
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	loaded := 0
	for i := len(rows) - 1; i >= 0; i-- {
		if err := rows[i].Validate(); err != nil {
			e.logger.Warn("skipping invalid persisted reading", "id", rows[i].ID, "err", err)
			continue
		}
		e.window.Push(rows[i])
		loaded++
	}
	e.logger.Info("history warm-started", "rows", loaded, "window", e.window.Size())
	return loaded, nil
}

// Run drives Ingest once per period until ctx is done.
func (e *Engine) Run(ctx context.Context, period time.Duration) {
	RunEvery(ctx, e.cfg.Name, period, e.logger, func(ctx context.Context) {
		e.Ingest(ctx)
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
