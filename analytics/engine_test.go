package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital-twin-engine/automation"
	"digital-twin-engine/events"
	"digital-twin-engine/models"
	"digital-twin-engine/storage"
)

// scriptedSource replays fixed values and adds the pending bias to the next
// value only, like the real simulators do.
type scriptedSource struct {
	mu     sync.Mutex
	values []float64
	i      int
	bias   float64
}

func (s *scriptedSource) Tick() models.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.values[s.i%len(s.values)] + s.bias
	s.bias = 0
	s.i++
	return models.Reading{Timestamp: time.Unix(1_700_000_000+int64(s.i), 0), Value: v}
}

func (s *scriptedSource) ApplyFeedback(delta float64) {
	s.mu.Lock()
	s.bias += delta
	s.mu.Unlock()
}

func (s *scriptedSource) Bias() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bias
}

type capturePublisher struct {
	mu   sync.Mutex
	envs []events.Envelope
}

func (c *capturePublisher) Publish(_ context.Context, env events.Envelope) error {
	c.mu.Lock()
	c.envs = append(c.envs, env)
	c.mu.Unlock()
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func (c *capturePublisher) kinds() []events.Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]events.Kind, 0, len(c.envs))
	for _, e := range c.envs {
		out = append(out, e.Kind)
	}
	return out
}

type failingLog struct{}

func (failingLog) Append(context.Context, storage.Stream, []byte) (int64, error) {
	return 0, errors.New("disk full")
}

func (failingLog) Recent(context.Context, storage.Stream, int) ([]storage.Entry, error) {
	return nil, errors.New("disk full")
}

func (failingLog) Close() error { return nil }

func steadyValues(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 22 + 0.1*float64(i%3-1)
	}
	return out
}

func newTestEngine(t *testing.T, name string, src Source, log storage.Log, pub events.Publisher) *Engine {
	t.Helper()
	journal := storage.NewJournal(name, log, nil)
	return NewEngine(DefaultEngineConfig(name), src, journal, pub, nil)
}

func TestEngineSummaryBeforeFirstReading(t *testing.T) {
	e := newTestEngine(t, "sum-empty", &scriptedSource{values: []float64{22}}, storage.NewMemoryLog(), nil)

	s := e.Summary()
	assert.Equal(t, models.StatusInitializing, s.Status)
	assert.Nil(t, s.CurrentValue)
	assert.Nil(t, s.SMA)
	assert.Zero(t, s.HistoryCount)

	_, ok := e.Forecast(3)
	assert.False(t, ok)
	_, ok = e.LastAction()
	assert.False(t, ok)
}

func TestEngineColdStartNeverFlags(t *testing.T) {
	values := append(steadyValues(5), 90, -50, 90)
	e := newTestEngine(t, "cold", &scriptedSource{values: values}, storage.NewMemoryLog(), nil)

	for i := 0; i < DefaultMinSamples+1; i++ {
		r, _ := e.Ingest(context.Background())
		require.False(t, r.IsAnomaly, "tick %d", i)
	}
}

func TestEngineClosedLoopBiasVisibleNextTick(t *testing.T) {
	ctx := context.Background()
	values := append(steadyValues(30), 40, 24.6, 22)
	src := &scriptedSource{values: values}
	pub := &capturePublisher{}
	log := storage.NewMemoryLog()
	e := newTestEngine(t, "loop", src, log, pub)

	for i := 0; i < 30; i++ {
		e.Ingest(ctx)
	}

	spike, summary := e.Ingest(ctx)
	require.True(t, spike.IsAnomaly)
	assert.Equal(t, 40.0, spike.Value, "the spike tick carries no correction of its own")
	assert.Equal(t, models.StatusAlarm, summary.Status)
	assert.Equal(t, int64(1), summary.LifetimeAnomalies)
	assert.Equal(t, -2.0, src.Bias())

	action, ok := e.LastAction()
	require.True(t, ok)
	assert.Equal(t, models.ActionCooling, action.Action)
	assert.Equal(t, -2.0, action.Delta)

	next, summary := e.Ingest(ctx)
	assert.InDelta(t, 22.6, next.Value, 1e-9)
	assert.False(t, next.IsAnomaly)
	assert.Equal(t, models.StatusNormal, summary.Status)
	assert.Equal(t, 0.0, src.Bias())

	actions, err := e.RecentActions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, 40.0, actions[0].TriggerValue)

	assert.Contains(t, pub.kinds(), events.KindAction)
	assert.Equal(t, 1.0, testutil.ToFloat64(automationActionsTotal.WithLabelValues("loop", string(models.ActionCooling))))
}

func TestEngineSummaryWindowAndSMA(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = float64(i % 10)
	}
	// While the window is filling its mean sits below 4.5, so some 9s score
	// above the boundary and are flagged. 9 is under Lower, which means a
	// heating action; zero deltas keep that from shifting later values.
	cfg := DefaultEngineConfig("sma")
	cfg.Rules = automation.Rules{Upper: 28, Lower: 15}
	e := NewEngine(cfg, &scriptedSource{values: values}, storage.NewJournal("sma", storage.NewMemoryLog(), nil), nil, nil)

	var s models.Summary
	for i := 0; i < 60; i++ {
		_, s = e.Ingest(context.Background())
	}
	assert.Equal(t, 50, s.HistoryCount)
	require.NotNil(t, s.SMA)
	assert.InDelta(t, 4.5, *s.SMA, 1e-9)
	require.NotNil(t, s.CurrentValue)
	assert.Equal(t, 9.0, *s.CurrentValue)
	assert.Positive(t, s.LifetimeAnomalies)
}

func TestEngineWithoutJournal(t *testing.T) {
	e := NewEngine(DefaultEngineConfig("nolog"), &scriptedSource{values: append(steadyValues(30), 40)}, nil, nil, nil)

	var last models.Reading
	require.NotPanics(t, func() {
		for i := 0; i < 31; i++ {
			last, _ = e.Ingest(context.Background())
		}
	})
	assert.True(t, last.IsAnomaly)
	action, ok := e.LastAction()
	require.True(t, ok)
	assert.Equal(t, models.ActionCooling, action.Action)

	rows, err := e.ReadHistory(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEngineSwallowsLogFailures(t *testing.T) {
	e := newTestEngine(t, "broken", &scriptedSource{values: steadyValues(3)}, failingLog{}, nil)

	for i := 0; i < 5; i++ {
		r, _ := e.Ingest(context.Background())
		assert.Zero(t, r.ID)
	}
	assert.Equal(t, 5, e.Summary().HistoryCount)

	_, err := e.ReadHistory(context.Background(), 5)
	assert.Error(t, err)
}

func TestEngineReadHistoryNewestFirst(t *testing.T) {
	e := newTestEngine(t, "history", &scriptedSource{values: []float64{1, 2, 3, 4}}, storage.NewMemoryLog(), nil)
	for i := 0; i < 4; i++ {
		e.Ingest(context.Background())
	}

	rows, err := e.ReadHistory(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 4.0, rows[0].Value)
	assert.Equal(t, int64(4), rows[0].ID)
	assert.Equal(t, 3.0, rows[1].Value)
}

func TestEngineWarmStart(t *testing.T) {
	ctx := context.Background()
	log := storage.NewMemoryLog()

	first := newTestEngine(t, "warm", &scriptedSource{values: []float64{10, 11, 12}}, log, nil)
	for i := 0; i < 70; i++ {
		first.Ingest(ctx)
	}

	second := newTestEngine(t, "warm", &scriptedSource{values: []float64{10}}, log, nil)
	loaded, err := second.WarmStart(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, 70, loaded)

	s := second.Summary()
	assert.Equal(t, 50, s.HistoryCount)
	require.NotNil(t, s.CurrentValue)
	assert.Equal(t, first.Summary().CurrentValue, s.CurrentValue)
}

func TestEngineApplyFeedbackIsClamped(t *testing.T) {
	src := &scriptedSource{values: []float64{22}}
	e := newTestEngine(t, "manual", src, storage.NewMemoryLog(), nil)

	assert.Equal(t, 10.0, e.ApplyFeedback(50))
	assert.Equal(t, -10.0, e.ApplyFeedback(-50))
	assert.Equal(t, 1.5, e.ApplyFeedback(1.5))
	assert.InDelta(t, 1.5, e.Bias(), 1e-12)
}

func TestRunEveryRecoversPanics(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	calls := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		RunEvery(ctx, "panicky", 5*time.Millisecond, slogDiscard(), func(context.Context) {
			mu.Lock()
			calls++
			n := calls
			mu.Unlock()
			if n == 1 {
				panic("boom")
			}
			if n == 3 {
				cancel()
			}
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, calls, 3)
	assert.Equal(t, 1.0, testutil.ToFloat64(tickPanicsTotal.WithLabelValues("panicky")))
}
