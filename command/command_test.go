package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaygo/relayer/config"
	"github.com/relaygo/relayer/ibc"
)

func TestQueueSendTryRecvIsFIFO(t *testing.T) {
	q := NewQueue()
	assert.Equal(t, 0, q.Len())

	reply := make(chan SupervisorState, 1)
	first := NewDumpState(reply)
	second := NewStop(nil)

	q.Send(first)
	q.Send(second)
	assert.Equal(t, 2, q.Len())

	got, ok := q.TryRecv()
	require.True(t, ok)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, KindDumpState, got.Kind)

	got, ok = q.TryRecv()
	require.True(t, ok)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, KindStop, got.Kind)

	_, ok = q.TryRecv()
	assert.False(t, ok, "queue should be empty after draining both commands")
}

func TestQueueTryRecvOnEmptyQueue(t *testing.T) {
	q := NewQueue()
	_, ok := q.TryRecv()
	assert.False(t, ok)
}

func TestNewUpdateConfigCarriesPayload(t *testing.T) {
	update := ConfigUpdate{
		Kind:  UpdateAdd,
		Chain: config.ChainConfig{ID: ibc.ChainID("chainA"), RPCAddr: "mock://a"},
	}
	cmd := NewUpdateConfig(update)

	assert.Equal(t, KindUpdateConfig, cmd.Kind)
	assert.Equal(t, update, cmd.Update)
	assert.NotEqual(t, uuidNilString, cmd.ID.String(), "a fresh command should mint a non-nil correlation id")
}

func TestEachConstructorMintsADistinctID(t *testing.T) {
	a := NewStop(nil)
	b := NewStop(nil)
	assert.NotEqual(t, a.ID, b.ID, "two commands should not share a correlation id")
}

const uuidNilString = "00000000-0000-0000-0000-000000000000"
