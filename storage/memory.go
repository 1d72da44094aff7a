package storage

import (
	"context"
	"sync"
)

// MemoryLog keeps every stream in process memory.
type MemoryLog struct {
	mu      sync.RWMutex
	streams map[Stream][]Entry
	closed  bool
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{streams: make(map[Stream][]Entry)}
}

func (m *MemoryLog) Append(_ context.Context, stream Stream, data []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	rows := m.streams[stream]
	id := int64(len(rows)) + 1
	m.streams[stream] = append(rows, Entry{ID: id, Data: append([]byte(nil), data...)})
	return id, nil
}

func (m *MemoryLog) Recent(_ context.Context, stream Stream, n int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	return newestFirst(m.streams[stream], n), nil
}

func (m *MemoryLog) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// newestFirst copies the last n rows of an ascending slice in reverse.
func newestFirst(rows []Entry, n int) []Entry {
	if n <= 0 || n > len(rows) {
		n = len(rows)
	}
	out := make([]Entry, 0, n)
	for i := len(rows) - 1; i >= len(rows)-n; i-- {
		out = append(out, rows[i])
	}
	return out
}
