package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"digital-twin-engine/models"
)

var logWriteFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "twin_log_write_failures_total",
		Help: "Total number of records that could not be persisted",
	},
	[]string{"twin", "stream"},
)

// Journal is the typed view of one twin's log. Writes are best effort: a
// failed append is logged and counted, never returned, so a broken store
// cannot stop a simulation tick. A nil *Journal drops writes and reads as
// empty.
type Journal struct {
	twin   string
	log    Log
	logger *slog.Logger
}

func NewJournal(twin string, log Log, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{
		twin:   twin,
		log:    log,
		logger: logger.With("twin", twin),
	}
}

func (j *Journal) AppendReading(ctx context.Context, r models.Reading) models.Reading {
	r.ID = appendRecord(ctx, j, StreamReadings, r)
	return r
}

func (j *Journal) AppendAction(ctx context.Context, a models.ActionRecord) models.ActionRecord {
	a.ID = appendRecord(ctx, j, StreamActions, a)
	return a
}

func (j *Journal) AppendMachine(ctx context.Context, m models.MachineRecord) models.MachineRecord {
	m.ID = appendRecord(ctx, j, StreamMachines, m)
	return m
}

// AppendPlant logs a plant observation on the readings stream.
func (j *Journal) AppendPlant(ctx context.Context, s models.PlantState) models.PlantRecord {
	rec := models.PlantRecord{State: s}
	rec.ID = appendRecord(ctx, j, StreamReadings, rec)
	return rec
}

// RecentReadings returns up to n readings, newest first.
func (j *Journal) RecentReadings(ctx context.Context, n int) ([]models.Reading, error) {
	return recentRecords[models.Reading](ctx, j, StreamReadings, n)
}

// RecentActions returns up to n actions, newest first.
func (j *Journal) RecentActions(ctx context.Context, n int) ([]models.ActionRecord, error) {
	return recentRecords[models.ActionRecord](ctx, j, StreamActions, n)
}

// RecentMachines returns up to n machine snapshots, newest first.
func (j *Journal) RecentMachines(ctx context.Context, n int) ([]models.MachineRecord, error) {
	return recentRecords[models.MachineRecord](ctx, j, StreamMachines, n)
}

// RecentPlants returns up to n plant observations, newest first.
func (j *Journal) RecentPlants(ctx context.Context, n int) ([]models.PlantRecord, error) {
	return recentRecords[models.PlantRecord](ctx, j, StreamReadings, n)
}

// appendRecord returns the assigned id, or 0 when the write failed.
func appendRecord[T models.Record](ctx context.Context, j *Journal, stream Stream, rec T) int64 {
	if j == nil {
		return 0
	}
	b, err := models.Encode(rec)
	if err == nil {
		var id int64
		id, err = j.log.Append(ctx, stream, b)
		if err == nil {
			return id
		}
	}
	logWriteFailuresTotal.WithLabelValues(j.twin, string(stream)).Inc()
	j.logger.Error("log write failed, continuing in memory", "stream", stream, "err", err)
	return 0
}

func recentRecords[T models.Record](ctx context.Context, j *Journal, stream Stream, n int) ([]T, error) {
	if j == nil {
		return nil, nil
	}
	entries, err := j.log.Recent(ctx, stream, n)
	if err != nil {
		return nil, fmt.Errorf("read %s of %s: %w", stream, j.twin, err)
	}
	out := make([]T, 0, len(entries))
	for _, e := range entries {
		rec, err := models.Decode[T](e.ID, e.Data)
		if err != nil {
			j.logger.Warn("skipping undecodable row", "stream", stream, "id", e.ID, "err", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
