package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseLog checks the contract every backend shares.
func exerciseLog(t *testing.T, l Log) {
	t.Helper()
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		id, err := l.Append(ctx, StreamReadings, []byte(fmt.Sprintf(`{"n":%d}`, i)))
		require.NoError(t, err)
		require.Equal(t, int64(i), id)
	}
	id, err := l.Append(ctx, StreamActions, []byte(`{"n":100}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), id, "ids are per stream")

	got, err := l.Recent(ctx, StreamReadings, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{5, 4, 3}, ids(got))
	assert.JSONEq(t, `{"n":5}`, string(got[0].Data))

	all, err := l.Recent(ctx, StreamReadings, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 4, 3, 2, 1}, ids(all))

	more, err := l.Recent(ctx, StreamReadings, 50)
	require.NoError(t, err)
	assert.Len(t, more, 5)

	none, err := l.Recent(ctx, StreamMachines, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func ids(entries []Entry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestMemoryLog(t *testing.T) {
	l := NewMemoryLog()
	exerciseLog(t, l)

	require.NoError(t, l.Close())
	_, err := l.Append(context.Background(), StreamReadings, []byte(`{}`))
	require.ErrorIs(t, err, ErrClosed)
}

func TestSQLiteLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thermal.sqlite3")
	l, err := NewSQLiteLog(context.Background(), path)
	require.NoError(t, err)
	exerciseLog(t, l)
	require.NoError(t, l.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)
	_, err = l.Recent(context.Background(), StreamReadings, 1)
	require.ErrorIs(t, err, ErrClosed)
}

func TestSQLiteLogContinuesIDsAfterReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thermal.sqlite3")
	ctx := context.Background()

	l, err := NewSQLiteLog(ctx, path)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := l.Append(ctx, StreamReadings, []byte(`{}`))
		require.NoError(t, err)
	}
	require.NoError(t, l.Close())

	l, err = NewSQLiteLog(ctx, path)
	require.NoError(t, err)
	defer l.Close()
	id, err := l.Append(ctx, StreamReadings, []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)

	got, err := l.Recent(ctx, StreamReadings, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 3, 2, 1}, ids(got))
}

func TestSQLiteLogRejectsUnknownStream(t *testing.T) {
	l, err := NewSQLiteLog(context.Background(), filepath.Join(t.TempDir(), "x.sqlite3"))
	require.NoError(t, err)
	defer l.Close()

	_, err = l.Append(context.Background(), Stream("readings; DROP TABLE actions"), []byte(`{}`))
	assert.Error(t, err)
}

// A boundary read of a long history must not hold up the tick's write.
func TestSQLiteLogAppendNotBlockedByRecent(t *testing.T) {
	ctx := context.Background()
	l, err := NewSQLiteLog(ctx, filepath.Join(t.TempDir(), "thermal.sqlite3"))
	require.NoError(t, err)
	defer l.Close()

	const rows = 20000
	for i := 0; i < rows; i++ {
		_, err := l.Append(ctx, StreamReadings, []byte(`{"v":22.5}`))
		require.NoError(t, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			got, err := l.Recent(ctx, StreamReadings, 1)
			assert.NoError(t, err)
			assert.Len(t, got, 1)
		}
	}()

	start := time.Now()
	id, err := l.Append(ctx, StreamReadings, []byte(`{"v":23}`))
	waited := time.Since(start)
	<-done

	require.NoError(t, err)
	assert.Equal(t, int64(rows+1), id)
	assert.Less(t, waited, 250*time.Millisecond)
}

func TestRedisLog(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	prefix := fmt.Sprintf("test:%s", t.Name())

	l, err := NewRedisLog(ctx, addr, prefix)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	t.Cleanup(func() {
		for _, s := range []Stream{StreamReadings, StreamActions, StreamMachines} {
			l.client.Del(ctx, l.key(s), l.key(s)+":seq")
		}
	})
	exerciseLog(t, l)
}
