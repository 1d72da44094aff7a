package models

import (
	"errors"
	"math"
	"time"
)

// Reading is one observation of a twin's primary variable. It is immutable
// once logged; ID is assigned by the log and is zero until then.
type Reading struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	IsAnomaly bool      `json:"is_anomaly"`
}

func (r *Reading) Validate() error {
	if r.Timestamp.IsZero() {
		return errors.New("timestamp is required")
	}
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return errors.New("value must be a finite number")
	}
	return nil
}

const (
	StatusInitializing = "Initializing..."
	StatusNormal       = "Normal"
	StatusAlarm        = "ALARM: Anomaly Detected!"
)

// Summary is the synchronous view of a twin handed to the boundary layer.
//
// AnomaliesCount only covers the readings still held in the rolling window and
// drops as old entries are evicted. LifetimeAnomalies counts every flag raised
// since the process started.
type Summary struct {
	CurrentValue      *float64 `json:"current_temp"`
	Status            string   `json:"status"`
	HistoryCount      int      `json:"history_count"`
	AnomaliesCount    int      `json:"anomalies_count"`
	LifetimeAnomalies int64    `json:"lifetime_anomalies"`
	SMA               *float64 `json:"sma"`
}
