package models

import "time"

type ActionKind string

const (
	ActionCooling         ActionKind = "ACTIVATE_COOLING_SYSTEM"
	ActionHeating         ActionKind = "ACTIVATE_HEATING_UNIT"
	ActionEquipmentCheck  ActionKind = "EQUIPMENT_CHECK_LOGGED"
	ActionSmartIrrigation ActionKind = "SMART_IRRIGATION"
	ActionNutrientAlert   ActionKind = "NUTRIENT_DEPLETION_ALERT"
)

// ActionResult is what a controller reports for one corrective decision.
type ActionResult struct {
	Action    ActionKind `json:"action"`
	Delta     float64    `json:"delta"`
	Timestamp time.Time  `json:"timestamp"`
}

// ActionRecord is the persisted form of an ActionResult together with the
// value that triggered it.
type ActionRecord struct {
	ID           int64      `json:"id"`
	Timestamp    time.Time  `json:"timestamp"`
	Action       ActionKind `json:"action_kind"`
	Delta        float64    `json:"delta"`
	TriggerValue float64    `json:"trigger_value"`
}

func (a ActionRecord) Result() ActionResult {
	return ActionResult{Action: a.Action, Delta: a.Delta, Timestamp: a.Timestamp}
}
