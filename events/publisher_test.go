package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageKeyedByTwin(t *testing.T) {
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	msg, err := Message(Envelope{Twin: "thermal", Kind: KindReading, Timestamp: ts, Payload: map[string]float64{"value": 21.5}})
	require.NoError(t, err)

	assert.Equal(t, "thermal", string(msg.Key))
	assert.Equal(t, ts, msg.Time)

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "reading", got["kind"])
	assert.Equal(t, 21.5, got["payload"].(map[string]any)["value"])
}

func TestMessageRejectsUnencodablePayload(t *testing.T) {
	_, err := Message(Envelope{Twin: "x", Kind: KindAction, Payload: make(chan int)})
	require.Error(t, err)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	require.NoError(t, p.Publish(context.Background(), Envelope{}))
	require.NoError(t, p.Close())
}
