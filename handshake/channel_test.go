package handshake

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaygo/relayer/chain"
	"github.com/relaygo/relayer/ibc"
	"github.com/relaygo/relayer/internal/chainmock"
)

// setupConnectedChains wires two mock chains with an already-established
// connection on each side, the precondition New documents.
func setupConnectedChains(t *testing.T) (*chainmock.Chain, *chainmock.Chain) {
	t.Helper()
	a := chainmock.New("chainA")
	b := chainmock.New("chainB")

	a.SetConnection("connection-0", ibc.ConnectionEnd{
		ClientID:     "07-tendermint-0",
		Counterparty: ibc.ConnectionCounterparty{ClientID: "07-tendermint-1", ConnectionID: "connection-1"},
		DelayPeriod:  0,
	})
	b.SetConnection("connection-1", ibc.ConnectionEnd{
		ClientID:     "07-tendermint-1",
		Counterparty: ibc.ConnectionCounterparty{ClientID: "07-tendermint-0", ConnectionID: "connection-0"},
		DelayPeriod:  0,
	})
	return a, b
}

// wireHandshakeSubmission makes each mock chain's Submit calls progress
// its own channel map the way a real chain would in response to the
// corresponding handshake message, and emit the matching event.
func wireHandshakeSubmission(t *testing.T, a, b *chainmock.Chain) {
	t.Helper()
	var aChannelSeq, bChannelSeq int

	a.SetOnSubmit(func(msgs []chain.Msg) ([]ibc.Event, error) {
		var events []ibc.Event
		for _, m := range msgs {
			switch msg := m.(type) {
			case MsgChanOpenInit:
				aChannelSeq++
				id := ibc.ChannelID("channel-a0")
				a.SetChannel(ibc.ChannelKey{PortID: msg.PortID, ChannelID: id}, ibc.ChannelEnd{
					State:          ibc.Init,
					Ordering:       msg.Ordering,
					Counterparty:   ibc.Counterparty{PortID: msg.CounterpartyPortID},
					ConnectionHops: msg.ConnectionHops,
					Version:        msg.Version,
				})
				events = append(events, ibc.Event{Type: ibc.EventOpenInitChannel, Raw: []byte(`{"port_id":"` + string(msg.PortID) + `","channel_id":"` + string(id) + `"}`)})
			case MsgChanOpenAck:
				key := ibc.ChannelKey{PortID: msg.PortID, ChannelID: msg.ChannelID}
				end := a.MustChannel(key)
				end.State = ibc.Open
				end.Counterparty.ChannelID = msg.CounterpartyChannelID
				a.SetChannel(key, end)
			case MsgChanCloseInit:
				key := ibc.ChannelKey{PortID: msg.PortID, ChannelID: msg.ChannelID}
				end := a.MustChannel(key)
				end.State = ibc.Closed
				a.SetChannel(key, end)
			}
		}
		return events, nil
	})

	b.SetOnSubmit(func(msgs []chain.Msg) ([]ibc.Event, error) {
		var events []ibc.Event
		for _, m := range msgs {
			switch msg := m.(type) {
			case MsgChanOpenTry:
				bChannelSeq++
				id := ibc.ChannelID("channel-b0")
				b.SetChannel(ibc.ChannelKey{PortID: msg.PortID, ChannelID: id}, ibc.ChannelEnd{
					State:          ibc.TryOpen,
					Ordering:       msg.Ordering,
					Counterparty:   ibc.Counterparty{PortID: msg.CounterpartyPortID, ChannelID: msg.CounterpartyChannelID},
					ConnectionHops: msg.ConnectionHops,
					Version:        msg.Version,
				})
				events = append(events, ibc.Event{Type: ibc.EventOpenTryChannel, Raw: []byte(`{"port_id":"` + string(msg.PortID) + `","channel_id":"` + string(id) + `"}`)})
			case MsgChanOpenConfirm:
				key := ibc.ChannelKey{PortID: msg.PortID, ChannelID: msg.ChannelID}
				end := b.MustChannel(key)
				end.State = ibc.Open
				b.SetChannel(key, end)
			case MsgChanCloseConfirm:
				key := ibc.ChannelKey{PortID: msg.PortID, ChannelID: msg.ChannelID}
				end := b.MustChannel(key)
				end.State = ibc.Closed
				b.SetChannel(key, end)
			}
		}
		return events, nil
	})
}

func TestNewDrivesFullHandshakeToOpen(t *testing.T) {
	a, b := setupConnectedChains(t)
	wireHandshakeSubmission(t, a, b)

	ch, err := New(context.Background(), a, b, "connection-0", ibc.UnorderedChannel, "transfer", "transfer", "ics20-1")
	require.NoError(t, err)

	assert.Equal(t, ibc.ChannelID("channel-a0"), ch.ASide.ChannelID)
	assert.Equal(t, ibc.ChannelID("channel-b0"), ch.BSide.ChannelID)

	aEnd, err := a.QueryChannel(context.Background(), ibc.QueryChannelRequest{PortID: "transfer", ChannelID: "channel-a0"})
	require.NoError(t, err)
	assert.Equal(t, ibc.Open, aEnd.State)

	bEnd, err := b.QueryChannel(context.Background(), ibc.QueryChannelRequest{PortID: "transfer", ChannelID: "channel-b0"})
	require.NoError(t, err)
	assert.Equal(t, ibc.Open, bEnd.State)
}

func TestRestoreFromStateFirstMatchWins(t *testing.T) {
	a, b := setupConnectedChains(t)

	a.SetChannel(ibc.ChannelKey{PortID: "transfer", ChannelID: "channel-a0"}, ibc.ChannelEnd{
		State:          ibc.Init,
		ConnectionHops: []ibc.ConnectionID{"connection-0"},
		Counterparty:   ibc.Counterparty{PortID: "transfer"},
	})

	// Two channels on b both counterparty to a0; first-listed wins.
	b.SetChannel(ibc.ChannelKey{PortID: "transfer", ChannelID: "channel-bX"}, ibc.ChannelEnd{
		State:          ibc.TryOpen,
		ConnectionHops: []ibc.ConnectionID{"connection-1"},
		Counterparty:   ibc.Counterparty{PortID: "transfer", ChannelID: "channel-a0"},
	})

	obj := ibc.NewChannelObject("chainA", "channel-a0", "transfer", "chainB")
	ch, state, err := RestoreFromState(context.Background(), a, b, obj, ibc.QueryHeight{})
	require.NoError(t, err)
	assert.Equal(t, ibc.Init, state)
	assert.Equal(t, ibc.ChannelID("channel-bX"), ch.BSide.ChannelID)
}

func TestRestoreFromStateMissingConnectionHops(t *testing.T) {
	a, b := setupConnectedChains(t)
	a.SetChannel(ibc.ChannelKey{PortID: "transfer", ChannelID: "channel-a0"}, ibc.ChannelEnd{State: ibc.Init})

	obj := ibc.NewChannelObject("chainA", "channel-a0", "transfer", "chainB")
	_, _, err := RestoreFromState(context.Background(), a, b, obj, ibc.QueryHeight{})
	require.Error(t, err)
	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, ErrKindMissingConnectionHops, herr.Kind)
	assert.False(t, herr.Retryable())
}

func TestRestoreFromEventUsesConnectionCounterparty(t *testing.T) {
	a, b := setupConnectedChains(t)
	ev := ibc.Event{Type: ibc.EventOpenTryChannel, Raw: []byte(
		`{"port_id":"transfer","channel_id":"channel-a0","connection_id":"connection-0","counterparty_port_id":"transfer","counterparty_channel_id":"channel-b0"}`,
	)}

	ch, err := RestoreFromEvent(context.Background(), a, b, ev)
	require.NoError(t, err)
	assert.Equal(t, ibc.ClientID("07-tendermint-0"), ch.ASide.ClientID)
	assert.Equal(t, ibc.ClientID("07-tendermint-1"), ch.BSide.ClientID)
	assert.Equal(t, ibc.ConnectionID("connection-1"), ch.BSide.ConnectionID)
}

func TestHandshakeAdoptsInitWonByCompetingRelayer(t *testing.T) {
	a, b := setupConnectedChains(t)
	wireHandshakeSubmission(t, a, b)

	// A competing relayer already ran Init on a; the driver must adopt
	// that channel instead of opening a second one.
	a.SetChannel(ibc.ChannelKey{PortID: "transfer", ChannelID: "channel-a0"}, ibc.ChannelEnd{
		State:          ibc.Init,
		Ordering:       ibc.UnorderedChannel,
		Counterparty:   ibc.Counterparty{PortID: "transfer"},
		ConnectionHops: []ibc.ConnectionID{"connection-0"},
		Version:        "ics20-1",
	})

	ch, err := New(context.Background(), a, b, "connection-0", ibc.UnorderedChannel, "transfer", "transfer", "ics20-1")
	require.NoError(t, err)
	assert.Equal(t, ibc.ChannelID("channel-a0"), ch.ASide.ChannelID)

	for _, msg := range a.Submitted() {
		_, isInit := msg.(MsgChanOpenInit)
		assert.False(t, isInit, "driver must not submit its own OpenInit")
	}

	aEnd, err := a.QueryChannel(context.Background(), ibc.QueryChannelRequest{PortID: "transfer", ChannelID: "channel-a0"})
	require.NoError(t, err)
	assert.Equal(t, ibc.Open, aEnd.State)
}

func TestHandshakeRetriesTransientTryFailure(t *testing.T) {
	a, b := setupConnectedChains(t)
	wireHandshakeSubmission(t, a, b)

	// First submission to b fails; the retry wrapper must absorb it.
	inner := func(msgs []chain.Msg) ([]ibc.Event, error) { return nil, nil }
	tries := 0
	b.SetOnSubmit(func(msgs []chain.Msg) ([]ibc.Event, error) {
		tries++
		if tries == 1 {
			return nil, errors.New("rpc: connection reset")
		}
		return inner(msgs)
	})
	// Re-wire b's real behaviour underneath the failure shim.
	wireB(t, b, &inner)

	ch, err := New(context.Background(), a, b, "connection-0", ibc.UnorderedChannel, "transfer", "transfer", "ics20-1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, tries, 2)

	bEnd, err := b.QueryChannel(context.Background(), ibc.QueryChannelRequest{PortID: "transfer", ChannelID: ch.BSide.ChannelID})
	require.NoError(t, err)
	assert.Equal(t, ibc.Open, bEnd.State)
}

// wireB installs b's half of wireHandshakeSubmission into target, for
// tests that wrap the submission path with their own shim.
func wireB(t *testing.T, b *chainmock.Chain, target *func(msgs []chain.Msg) ([]ibc.Event, error)) {
	t.Helper()
	*target = func(msgs []chain.Msg) ([]ibc.Event, error) {
		var events []ibc.Event
		for _, m := range msgs {
			switch msg := m.(type) {
			case MsgChanOpenTry:
				id := ibc.ChannelID("channel-b0")
				b.SetChannel(ibc.ChannelKey{PortID: msg.PortID, ChannelID: id}, ibc.ChannelEnd{
					State:          ibc.TryOpen,
					Ordering:       msg.Ordering,
					Counterparty:   ibc.Counterparty{PortID: msg.CounterpartyPortID, ChannelID: msg.CounterpartyChannelID},
					ConnectionHops: msg.ConnectionHops,
					Version:        msg.Version,
				})
				events = append(events, ibc.Event{Type: ibc.EventOpenTryChannel, Raw: []byte(`{"port_id":"` + string(msg.PortID) + `","channel_id":"` + string(id) + `"}`)})
			case MsgChanOpenConfirm:
				key := ibc.ChannelKey{PortID: msg.PortID, ChannelID: msg.ChannelID}
				end := b.MustChannel(key)
				end.State = ibc.Open
				b.SetChannel(key, end)
			}
		}
		return events, nil
	}
}

func TestHandshakeAgainstOpenChannelsSubmitsNothing(t *testing.T) {
	a, b := setupConnectedChains(t)
	wireHandshakeSubmission(t, a, b)

	a.SetChannel(ibc.ChannelKey{PortID: "transfer", ChannelID: "channel-a0"}, ibc.ChannelEnd{
		State:          ibc.Open,
		Counterparty:   ibc.Counterparty{PortID: "transfer", ChannelID: "channel-b0"},
		ConnectionHops: []ibc.ConnectionID{"connection-0"},
		Version:        "ics20-1",
	})
	b.SetChannel(ibc.ChannelKey{PortID: "transfer", ChannelID: "channel-b0"}, ibc.ChannelEnd{
		State:          ibc.Open,
		Counterparty:   ibc.Counterparty{PortID: "transfer", ChannelID: "channel-a0"},
		ConnectionHops: []ibc.ConnectionID{"connection-1"},
		Version:        "ics20-1",
	})

	ch := &Channel{
		Ordering: ibc.UnorderedChannel,
		ASide:    Side{ChainID: "chainA", ClientID: "07-tendermint-0", ConnectionID: "connection-0", PortID: "transfer", ChannelID: "channel-a0"},
		BSide:    Side{ChainID: "chainB", ClientID: "07-tendermint-1", ConnectionID: "connection-1", PortID: "transfer", ChannelID: "channel-b0"},
		Version:  "ics20-1",
		aHandle:  a,
		bHandle:  b,
	}
	require.NoError(t, ch.Handshake(context.Background()))
	assert.Empty(t, a.Submitted())
	assert.Empty(t, b.Submitted())
}

func TestValidatedExpectedChannelRejectsDivergedCounterparty(t *testing.T) {
	a, b := setupConnectedChains(t)

	// b's channel points back at a different channel on a.
	b.SetChannel(ibc.ChannelKey{PortID: "transfer", ChannelID: "channel-b0"}, ibc.ChannelEnd{
		State:          ibc.TryOpen,
		Counterparty:   ibc.Counterparty{PortID: "transfer", ChannelID: "channel-a9"},
		ConnectionHops: []ibc.ConnectionID{"connection-1"},
	})

	ch := &Channel{
		ASide:   Side{ChainID: "chainA", ConnectionID: "connection-0", PortID: "transfer", ChannelID: "channel-a0"},
		BSide:   Side{ChainID: "chainB", ConnectionID: "connection-1", PortID: "transfer", ChannelID: "channel-b0"},
		aHandle: a,
		bHandle: b,
	}
	_, err := ch.ValidatedExpectedChannel(context.Background(), ChannelMsgOpenAck)
	require.Error(t, err)
	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, ErrKindChannelAlreadyExist, herr.Kind)
	assert.False(t, herr.Retryable())
}

func TestValidatedExpectedChannelMissingOnDestination(t *testing.T) {
	a, b := setupConnectedChains(t)

	ch := &Channel{
		ASide:   Side{ChainID: "chainA", ConnectionID: "connection-0", PortID: "transfer", ChannelID: "channel-a0"},
		BSide:   Side{ChainID: "chainB", ConnectionID: "connection-1", PortID: "transfer", ChannelID: "channel-b0"},
		aHandle: a,
		bHandle: b,
	}
	_, err := ch.ValidatedExpectedChannel(context.Background(), ChannelMsgOpenAck)
	require.Error(t, err)
	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, ErrKindMissingChannelOnDestination, herr.Kind)
}

func TestCloseInitRequiresLocalChannelID(t *testing.T) {
	a, b := setupConnectedChains(t)
	ch := &Channel{ASide: Side{ChainID: "chainA"}, BSide: Side{ChainID: "chainB"}}
	_ = a
	_ = b
	err := ch.CloseInitAndSend(context.Background())
	require.Error(t, err)
	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, ErrKindMissingLocalChannelID, herr.Kind)
}
