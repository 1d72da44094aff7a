package automation

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital-twin-engine/models"
)

type fakeTwin struct {
	mu     sync.Mutex
	deltas []float64
}

func (f *fakeTwin) ApplyFeedback(d float64) {
	f.mu.Lock()
	f.deltas = append(f.deltas, d)
	f.mu.Unlock()
}

type fakeRecorder struct {
	actions []models.ActionRecord
}

func (f *fakeRecorder) AppendAction(_ context.Context, a models.ActionRecord) models.ActionRecord {
	a.ID = int64(len(f.actions) + 1)
	f.actions = append(f.actions, a)
	return a
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestControllerThresholds(t *testing.T) {
	tests := []struct {
		name   string
		value  float64
		action models.ActionKind
		delta  float64
	}{
		{"too hot", 35.2, models.ActionCooling, -2},
		{"too cold", 9.1, models.ActionHeating, 2},
		{"in range", 22, models.ActionEquipmentCheck, 0},
		{"upper bound is inclusive of normal", 28, models.ActionEquipmentCheck, 0},
		{"lower bound is inclusive of normal", 15, models.ActionEquipmentCheck, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			twin := &fakeTwin{}
			rec := &fakeRecorder{}
			c := NewController(DefaultRules(), twin, rec, quiet())
			ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

			res, ok := c.ProcessEvent(context.Background(), Event{Kind: EventAnomalyDetected, Value: tt.value, Timestamp: ts})
			require.True(t, ok)
			assert.Equal(t, tt.action, res.Action)
			assert.Equal(t, tt.delta, res.Delta)
			assert.Equal(t, ts, res.Timestamp)

			assert.Equal(t, []float64{tt.delta}, twin.deltas)
			require.Len(t, rec.actions, 1)
			assert.Equal(t, tt.value, rec.actions[0].TriggerValue)
			assert.Equal(t, tt.action, rec.actions[0].Action)
		})
	}
}

func TestControllerIgnoresUnknownEvents(t *testing.T) {
	twin := &fakeTwin{}
	rec := &fakeRecorder{}
	c := NewController(DefaultRules(), twin, rec, quiet())

	_, ok := c.ProcessEvent(context.Background(), Event{Kind: "dto.kpi.something_else", Value: 99})
	assert.False(t, ok)
	assert.Empty(t, twin.deltas)
	assert.Empty(t, rec.actions)
	assert.Equal(t, Idle, c.State())
	_, ok = c.LastAction()
	assert.False(t, ok)
}

func TestControllerStateMachine(t *testing.T) {
	var hooked []models.ActionKind
	c := NewController(DefaultRules(), &fakeTwin{}, &fakeRecorder{}, quiet(),
		WithActionHook(func(r models.ActionResult) { hooked = append(hooked, r.Action) }))
	require.Equal(t, Idle, c.State())

	c.ProcessEvent(context.Background(), Event{Kind: EventAnomalyDetected, Value: 40})
	require.Equal(t, Acted, c.State())
	last, ok := c.LastAction()
	require.True(t, ok)
	assert.Equal(t, models.ActionCooling, last.Action)

	c.ProcessEvent(context.Background(), Event{Kind: EventAnomalyDetected, Value: 2})
	assert.Equal(t, Acted, c.State())
	last, _ = c.LastAction()
	assert.Equal(t, models.ActionHeating, last.Action)
	assert.Equal(t, []models.ActionKind{models.ActionCooling, models.ActionHeating}, hooked)
}

func TestPlantRules(t *testing.T) {
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("drought irrigates", func(t *testing.T) {
		twin := &fakeTwin{}
		rec := &fakeRecorder{}
		r := NewPlantRules(DefaultPlantThresholds(), twin, rec, quiet())

		got := r.Evaluate(context.Background(), models.PlantState{Timestamp: ts, SoilMoisture: 12, Nutrients: 80})
		require.Len(t, got, 1)
		assert.Equal(t, models.ActionSmartIrrigation, got[0].Action)
		assert.Equal(t, []float64{20}, twin.deltas)
		require.Len(t, rec.actions, 1)
		assert.Equal(t, 12.0, rec.actions[0].TriggerValue)
	})

	t.Run("no pulse while watering", func(t *testing.T) {
		twin := &fakeTwin{}
		r := NewPlantRules(DefaultPlantThresholds(), twin, &fakeRecorder{}, quiet())
		got := r.Evaluate(context.Background(), models.PlantState{Timestamp: ts, SoilMoisture: 12, Nutrients: 80, IsWatering: true})
		assert.Empty(t, got)
		assert.Empty(t, twin.deltas)
	})

	t.Run("nutrient alert only reports", func(t *testing.T) {
		twin := &fakeTwin{}
		r := NewPlantRules(DefaultPlantThresholds(), twin, &fakeRecorder{}, quiet())
		got := r.Evaluate(context.Background(), models.PlantState{Timestamp: ts, SoilMoisture: 50, Nutrients: 5})
		require.Len(t, got, 1)
		assert.Equal(t, models.ActionNutrientAlert, got[0].Action)
		assert.Empty(t, twin.deltas)
		last, ok := r.LastAction()
		require.True(t, ok)
		assert.Equal(t, models.ActionNutrientAlert, last.Action)
	})

	t.Run("healthy plant does nothing", func(t *testing.T) {
		r := NewPlantRules(DefaultPlantThresholds(), &fakeTwin{}, &fakeRecorder{}, quiet())
		assert.Empty(t, r.Evaluate(context.Background(), models.PlantState{SoilMoisture: 50, Nutrients: 90}))
		_, ok := r.LastAction()
		assert.False(t, ok)
	})
}
