// Package storage holds the append-only record streams of every twin.
//
// A Log stores opaque rows per stream and assigns them strictly increasing
// ids starting at 1. Recent always returns rows newest first, whatever the
// backend.
package storage

import (
	"context"
	"encoding/json"
	"errors"
)

type Stream string

const (
	StreamReadings Stream = "readings"
	StreamActions  Stream = "actions"
	StreamMachines Stream = "machines"
)

// Entry is one stored row.
type Entry struct {
	ID   int64           `json:"id"`
	Data json.RawMessage `json:"data"`
}

type Log interface {
	Append(ctx context.Context, stream Stream, data []byte) (int64, error)
	// Recent returns up to n rows of stream, newest first.
	Recent(ctx context.Context, stream Stream, n int) ([]Entry, error)
	Close() error
}

var ErrClosed = errors.New("storage: log is closed")
