// Package handshake drives the four-step channel handshake
// (Init → Try → Ack → Confirm) between two chains. Every step that can
// race a competing relayer or hit a flaky RPC is wrapped in the fibonacci
// backoff from the retry package; structural failures (mismatched port,
// missing connection) fail fast instead.
package handshake

import (
	"context"
	"errors"
	"fmt"

	"github.com/relaygo/relayer/chain"
	"github.com/relaygo/relayer/ibc"
	"github.com/relaygo/relayer/retry"
)

// Side is one chain's view of a channel-in-progress.
type Side struct {
	ChainID      ibc.ChainID
	ClientID     ibc.ClientID
	ConnectionID ibc.ConnectionID
	PortID       ibc.PortID
	ChannelID    ibc.ChannelID // empty until assigned
}

// HasChannelID reports whether this side's channel id is known yet.
func (s Side) HasChannelID() bool { return s.ChannelID != "" }

// Channel is one channel handshake attempt between a's side and b's side.
// Field names are deliberately neutral: ASide/BSide name "the two sides of
// this attempt", not a source/destination synonym — orientation for any
// given step is pinned by which side is building and sending the message,
// never by a fixed "a is always source" convention.
type Channel struct {
	Ordering        ibc.Order
	ASide           Side
	BSide           Side
	ConnectionDelay uint64
	Version         string

	aHandle chain.Handle
	bHandle chain.Handle
}

// New starts a fresh channel handshake on top of an already-established
// connection and drives it to completion. Each phase retries retryable
// failures with backoff; New returns on the first non-retryable error or
// an exhausted retry budget, together with the partly built Channel.
func New(ctx context.Context, aHandle, bHandle chain.Handle, aConnectionID ibc.ConnectionID, ordering ibc.Order, aPort, bPort ibc.PortID, version string) (*Channel, error) {
	aConn, err := aHandle.QueryConnection(ctx, ibc.QueryConnectionRequest{ConnectionID: aConnectionID})
	if err != nil {
		return nil, errQuery(aHandle.ChainID(), err)
	}
	if !aConn.Counterparty.HasConnectionID() {
		return nil, errMissingCounterpartyConnection()
	}

	c := &Channel{
		Ordering: ordering,
		ASide: Side{
			ChainID:      aHandle.ChainID(),
			ClientID:     aConn.ClientID,
			ConnectionID: aConnectionID,
			PortID:       aPort,
		},
		BSide: Side{
			ChainID:      bHandle.ChainID(),
			ClientID:     aConn.Counterparty.ClientID,
			ConnectionID: aConn.Counterparty.ConnectionID,
			PortID:       bPort,
		},
		ConnectionDelay: aConn.DelayPeriod,
		Version:         version,
		aHandle:         aHandle,
		bHandle:         bHandle,
	}

	if err := c.Handshake(ctx); err != nil {
		return c, err
	}
	return c, nil
}

// RestoreFromEvent rebuilds a Channel from a freshly observed
// channel-handshake event, the path the worker takes when it's spawned in
// response to an OpenInit/OpenTry event rather than at startup.
func RestoreFromEvent(ctx context.Context, aHandle, bHandle chain.Handle, ev ibc.Event) (*Channel, error) {
	attrs, ok := ev.ChannelAttributes()
	if !ok {
		return nil, errInvalidEvent(ev.Type)
	}

	aConn, err := aHandle.QueryConnection(ctx, ibc.QueryConnectionRequest{ConnectionID: attrs.ConnectionID})
	if err != nil {
		return nil, errQuery(aHandle.ChainID(), err)
	}
	if !aConn.Counterparty.HasConnectionID() {
		return nil, errMissingCounterpartyConnection()
	}

	// The event does not carry channel ordering or version; they are read
	// from an on-chain query of a's channel end below.
	ch := &Channel{
		ASide: Side{
			ChainID:      aHandle.ChainID(),
			ClientID:     aConn.ClientID,
			ConnectionID: attrs.ConnectionID,
			PortID:       attrs.PortID,
			ChannelID:    attrs.ChannelID,
		},
		BSide: Side{
			ChainID:      bHandle.ChainID(),
			ClientID:     aConn.Counterparty.ClientID,
			ConnectionID: aConn.Counterparty.ConnectionID,
			PortID:       attrs.CounterpartyPortID,
			ChannelID:    attrs.CounterpartyChannelID,
		},
		ConnectionDelay: aConn.DelayPeriod,
		aHandle:         aHandle,
		bHandle:         bHandle,
	}
	if attrs.ChannelID != "" {
		aChannel, err := aHandle.QueryChannel(ctx, ibc.QueryChannelRequest{PortID: attrs.PortID, ChannelID: attrs.ChannelID})
		if err != nil {
			return nil, errQuery(aHandle.ChainID(), err)
		}
		ch.Ordering = aChannel.Ordering
		ch.Version = aChannel.Version
	}
	return ch, nil
}

// RestoreFromState rebuilds a Channel purely from chain-state queries,
// the path a worker takes when spawned from a startup/reload scan rather
// than from an event. Returns the channel along with a-side's current
// state, so the caller can decide whether a handshake step is even needed.
//
// When a-side is in Init and b-side's channel id isn't known from a's
// query alone, b's channels are listed on its connection and searched in
// query order for the first whose counterparty channel id matches a's —
// first match wins. Competing relayers can legitimately leave more than
// one candidate behind, so this is a deliberate tie-break; a wrong
// adoption is caught by validation on the next build step.
func RestoreFromState(ctx context.Context, aHandle, bHandle chain.Handle, obj ibc.Object, height ibc.QueryHeight) (*Channel, ibc.State, error) {
	aChannel, err := aHandle.QueryChannel(ctx, ibc.QueryChannelRequest{PortID: obj.SrcPortID, ChannelID: obj.SrcChannelID, Height: height})
	if err != nil {
		return nil, ibc.Uninitialized, errQuery(aHandle.ChainID(), err)
	}
	if len(aChannel.ConnectionHops) == 0 {
		return nil, ibc.Uninitialized, errMissingConnectionHops(obj.SrcChannelID, aHandle.ChainID())
	}

	aConnectionID := aChannel.ConnectionHops[0]
	aConn, err := aHandle.QueryConnection(ctx, ibc.QueryConnectionRequest{ConnectionID: aConnectionID})
	if err != nil {
		return nil, ibc.Uninitialized, errQuery(aHandle.ChainID(), err)
	}
	if !aConn.Counterparty.HasConnectionID() {
		return nil, ibc.Uninitialized, errMissingCounterpartyConnection()
	}
	bConnectionID := aConn.Counterparty.ConnectionID

	channel := &Channel{
		Ordering: aChannel.Ordering,
		ASide: Side{
			ChainID:      aHandle.ChainID(),
			ClientID:     aConn.ClientID,
			ConnectionID: aConnectionID,
			PortID:       obj.SrcPortID,
			ChannelID:    obj.SrcChannelID,
		},
		BSide: Side{
			ChainID:      bHandle.ChainID(),
			ClientID:     aConn.Counterparty.ClientID,
			ConnectionID: bConnectionID,
			PortID:       aChannel.Counterparty.PortID,
			ChannelID:    aChannel.Counterparty.ChannelID,
		},
		ConnectionDelay: aConn.DelayPeriod,
		Version:         aChannel.Version,
		aHandle:         aHandle,
		bHandle:         bHandle,
	}

	if aChannel.State == ibc.Init && !channel.BSide.HasChannelID() {
		bChannels, _, err := bHandle.QueryConnectionChannels(ctx, ibc.QueryConnectionChannelsRequest{
			ConnectionID: bConnectionID,
			Pagination:   ibc.AllPages(),
		})
		if err != nil {
			return nil, ibc.Uninitialized, errQuery(bHandle.ChainID(), err)
		}
		for _, bChannel := range bChannels {
			if bChannel.Counterparty.ChannelID == obj.SrcChannelID {
				channel.BSide.ChannelID = bChannel.ChannelID
				break
			}
		}
	}

	return channel, aChannel.State, nil
}

// Flipped swaps the two sides, for the steps that are built from b's view
// and executed on a: the proof always travels from the flipped channel's
// a-side to its b-side, so each doChan* helper can assume "submit on
// bHandle, prove against aHandle" regardless of which physical chain that
// is.
func (c *Channel) Flipped() *Channel {
	return &Channel{
		Ordering:        c.Ordering,
		ASide:           c.BSide,
		BSide:           c.ASide,
		ConnectionDelay: c.ConnectionDelay,
		Version:         c.Version,
		aHandle:         c.bHandle,
		bHandle:         c.aHandle,
	}
}

// Handshake runs all three of the relayer's own handshake steps in order:
// Init, Try, then finalize (Ack + Confirm) against whatever state the
// channel is actually found in.
func (c *Channel) Handshake(ctx context.Context) error {
	if err := c.doChanOpenInitAndSendWithRetry(ctx); err != nil {
		return err
	}
	if err := c.doChanOpenTryAndSendWithRetry(ctx); err != nil {
		return err
	}
	return c.doChanOpenFinalizeWithRetry(ctx)
}

func (c *Channel) doChanOpenInitAndSendWithRetry(ctx context.Context) error {
	return wrapRetry(retry.Do(ctx, "channel open init", func() error {
		return c.doChanOpenInitAndSend(ctx)
	}), "failed to finish channel open init")
}

// wrapRetry labels an exhausted retry as a handshake error; a fail-fast
// error that never entered the backoff loop passes through untouched so
// its own kind survives.
func wrapRetry(err error, description string) error {
	if err == nil {
		return nil
	}
	var maxRetry *retry.MaxRetryError
	if errors.As(err, &maxRetry) {
		return errMaxRetry(description, err)
	}
	return err
}

// doChanOpenInitAndSend submits the opening Init on a's own chain. Init
// carries no proof, so the flipped helper convention doesn't apply: the
// message is built and executed on the same side.
func (c *Channel) doChanOpenInitAndSend(ctx context.Context) error {
	if c.ASide.HasChannelID() {
		// A competing relayer (or an earlier attempt) already ran Init
		// for this channel; the Try step picks it up from there.
		return nil
	}

	// A competing relayer may have won the Init race before this driver
	// started; adopt its channel instead of opening a second one.
	aChannels, _, err := c.aHandle.QueryConnectionChannels(ctx, ibc.QueryConnectionChannelsRequest{
		ConnectionID: c.ASide.ConnectionID,
		Pagination:   ibc.AllPages(),
	})
	if err != nil {
		return errQuery(c.aHandle.ChainID(), err)
	}
	for _, ch := range aChannels {
		if ch.State == ibc.Init && ch.PortID == c.ASide.PortID && ch.Counterparty.PortID == c.BSide.PortID && !ch.Counterparty.HasChannelID() {
			c.ASide.ChannelID = ch.ChannelID
			return nil
		}
	}

	version := c.Version
	if version == "" {
		v, err := c.aHandle.ModuleVersion(ctx, c.ASide.PortID)
		if err != nil {
			return errQuery(c.aHandle.ChainID(), err)
		}
		version = v
		c.Version = v
	}
	signer, err := c.aHandle.GetSigner(ctx)
	if err != nil {
		return errQuery(c.aHandle.ChainID(), err)
	}

	events, err := c.aHandle.Submit(ctx, []chain.Msg{MsgChanOpenInit{
		PortID:             c.ASide.PortID,
		Ordering:           c.Ordering,
		ConnectionHops:     []ibc.ConnectionID{c.ASide.ConnectionID},
		Version:            version,
		CounterpartyPortID: c.BSide.PortID,
		Signer:             signer,
	}})
	if err != nil {
		return errSubmit(c.aHandle.ChainID(), err)
	}
	if err := checkSubmitEvents(c.aHandle.ChainID(), events); err != nil {
		return err
	}

	channelID, ok := extractChannelID(events)
	if !ok {
		return errMissingEvent("no channel open init event in response")
	}
	c.ASide.ChannelID = channelID
	return nil
}

func (c *Channel) doChanOpenTryAndSendWithRetry(ctx context.Context) error {
	return wrapRetry(retry.Do(ctx, "channel open try", func() error {
		return c.doChanOpenTryAndSend(ctx)
	}), "failed to finish channel open try")
}

// doChanOpenTryAndSend submits Try on b, proving a's Init.
func (c *Channel) doChanOpenTryAndSend(ctx context.Context) error {
	if !c.ASide.HasChannelID() {
		return errMissingLocalChannelID()
	}
	if c.BSide.HasChannelID() {
		// Try already ran (crash recovery or a competing relayer);
		// finalize picks it up from there.
		return nil
	}

	aChannel, err := c.aHandle.QueryChannel(ctx, ibc.QueryChannelRequest{PortID: c.ASide.PortID, ChannelID: c.ASide.ChannelID, Height: ibc.QueryHeight{Query: ibc.LatestHeight()}})
	if err != nil {
		return errQuery(c.aHandle.ChainID(), err)
	}
	aHeight, err := c.aHandle.QueryLatestHeight(ctx)
	if err != nil {
		return errQuery(c.aHandle.ChainID(), err)
	}
	proofs, err := c.aHandle.BuildChannelProofs(ctx, c.ASide.PortID, c.ASide.ChannelID, aHeight)
	if err != nil {
		return errQuery(c.aHandle.ChainID(), err)
	}

	version := c.Version
	if version == "" {
		v, err := c.bHandle.ModuleVersion(ctx, c.BSide.PortID)
		if err != nil {
			return errQuery(c.bHandle.ChainID(), err)
		}
		version = v
	}

	// Resume a partially-opened channel: a's recorded counterparty wins,
	// then any channel id already pinned on b's side.
	previousChannelID := aChannel.Counterparty.ChannelID
	if previousChannelID == "" {
		previousChannelID = c.BSide.ChannelID
	}

	signer, err := c.bHandle.GetSigner(ctx)
	if err != nil {
		return errQuery(c.bHandle.ChainID(), err)
	}

	events, err := c.bHandle.Submit(ctx, []chain.Msg{MsgChanOpenTry{
		PortID:                c.BSide.PortID,
		PreviousChannelID:     previousChannelID,
		CounterpartyPortID:    c.ASide.PortID,
		CounterpartyChannelID: c.ASide.ChannelID,
		Ordering:              c.Ordering,
		ConnectionHops:        []ibc.ConnectionID{c.BSide.ConnectionID},
		Version:               version,
		CounterpartyVersion:   aChannel.Version,
		ProofInit:             proofs,
		Signer:                signer,
	}})
	if err != nil {
		return errSubmit(c.bHandle.ChainID(), err)
	}
	if err := checkSubmitEvents(c.bHandle.ChainID(), events); err != nil {
		return err
	}

	channelID, ok := extractChannelID(events)
	if !ok {
		return errMissingEvent("no channel open try event in response")
	}
	c.BSide.ChannelID = channelID
	return nil
}

func (c *Channel) doChanOpenFinalizeWithRetry(ctx context.Context) error {
	return wrapRetry(retry.Do(ctx, "channel open finalize", func() error {
		return c.doChanOpenFinalize(ctx)
	}), "failed to finish channel handshake")
}

func (c *Channel) queryChannelStates(ctx context.Context) (ibc.State, ibc.State, error) {
	if !c.ASide.HasChannelID() {
		return 0, 0, errMissingLocalChannelID()
	}
	if !c.BSide.HasChannelID() {
		return 0, 0, errMissingCounterpartyChannelID()
	}

	aChannel, err := c.aHandle.QueryChannel(ctx, ibc.QueryChannelRequest{PortID: c.ASide.PortID, ChannelID: c.ASide.ChannelID})
	if err != nil {
		return 0, 0, errQuery(c.aHandle.ChainID(), err)
	}
	bChannel, err := c.bHandle.QueryChannel(ctx, ibc.QueryChannelRequest{PortID: c.BSide.PortID, ChannelID: c.BSide.ChannelID})
	if err != nil {
		return 0, 0, errQuery(c.bHandle.ChainID(), err)
	}
	return aChannel.State, bChannel.State, nil
}

func (c *Channel) expectChannelStates(ctx context.Context, wantA, wantB ibc.State) error {
	a, b, err := c.queryChannelStates(ctx)
	if err != nil {
		return err
	}
	if a == wantA && b == wantB {
		return nil
	}
	return errPartialOpenHandshake(wantA, wantB)
}

// doChanOpenFinalize drives whatever's left of the handshake from the
// channel's current on-chain state. It dispatches on the (a, b) state pair
// rather than tracking its own progress, so it's safe to call repeatedly —
// each call just does the next step the current states call for.
func (c *Channel) doChanOpenFinalize(ctx context.Context) error {
	aState, bState, err := c.queryChannelStates(ctx)
	if err != nil {
		return err
	}

	switch {
	case aState == ibc.Init && bState == ibc.TryOpen, aState == ibc.TryOpen && bState == ibc.TryOpen:
		// Ack on a, then confirm on b.
		if err := c.Flipped().doChanOpenAckAndSend(ctx); err != nil {
			return err
		}
		if err := c.expectChannelStates(ctx, ibc.Open, ibc.TryOpen); err != nil {
			return err
		}
		if err := c.doChanOpenConfirmAndSend(ctx); err != nil {
			return err
		}
		return c.expectChannelStates(ctx, ibc.Open, ibc.Open)

	case aState == ibc.TryOpen && bState == ibc.Init:
		// Ack on b, then confirm on a.
		if err := c.doChanOpenAckAndSend(ctx); err != nil {
			return err
		}
		if err := c.expectChannelStates(ctx, ibc.TryOpen, ibc.Open); err != nil {
			return err
		}
		if err := c.Flipped().doChanOpenConfirmAndSend(ctx); err != nil {
			return err
		}
		return c.expectChannelStates(ctx, ibc.Open, ibc.Open)

	case aState == ibc.Open && bState == ibc.TryOpen:
		if err := c.doChanOpenConfirmAndSend(ctx); err != nil {
			return err
		}
		return c.expectChannelStates(ctx, ibc.Open, ibc.Open)

	case aState == ibc.TryOpen && bState == ibc.Open:
		if err := c.Flipped().doChanOpenConfirmAndSend(ctx); err != nil {
			return err
		}
		return c.expectChannelStates(ctx, ibc.Open, ibc.Open)

	case aState == ibc.Open && bState == ibc.Open:
		return nil

	default:
		// Handshake doesn't apply (e.g. one end closed); nothing for
		// this driver to do.
		return nil
	}
}

// ValidatedExpectedChannel builds the channel end b should show before
// msgType is submitted to it, queries the actual end, and checks the
// actual end has not diverged: its state must not have progressed past
// the highest state acceptable for msgType (TryOpen ahead of Ack/Confirm,
// Open ahead of CloseConfirm), its connection hops must match, and its
// counterparty — once recorded — must point back at a's port and channel
// exactly. A divergent end means a competing relayer opened a different
// channel under the id this driver adopted.
func (c *Channel) ValidatedExpectedChannel(ctx context.Context, msgType ChannelMsgType) (ibc.ChannelEnd, error) {
	if !c.BSide.HasChannelID() {
		return ibc.ChannelEnd{}, errMissingChannelOnDestination()
	}

	var expectedState ibc.State
	switch msgType {
	case ChannelMsgOpenTry:
		expectedState = ibc.Init
	case ChannelMsgOpenAck, ChannelMsgOpenConfirm:
		expectedState = ibc.TryOpen
	case ChannelMsgCloseConfirm:
		expectedState = ibc.Open
	default:
		return ibc.ChannelEnd{}, &Error{Kind: ErrKindInvalidEvent, Message: fmt.Sprintf("no expected channel state for %s", msgType)}
	}

	expected := ibc.ChannelEnd{
		State:          expectedState,
		Ordering:       c.Ordering,
		Counterparty:   ibc.Counterparty{PortID: c.ASide.PortID, ChannelID: c.ASide.ChannelID},
		ConnectionHops: []ibc.ConnectionID{c.BSide.ConnectionID},
		Version:        c.Version,
	}

	actual, err := c.bHandle.QueryChannel(ctx, ibc.QueryChannelRequest{PortID: c.BSide.PortID, ChannelID: c.BSide.ChannelID})
	if err != nil {
		return ibc.ChannelEnd{}, errQuery(c.bHandle.ChainID(), err)
	}
	if actual.State == ibc.Uninitialized {
		return ibc.ChannelEnd{}, errMissingChannelOnDestination()
	}
	if actual.State > expected.State {
		return ibc.ChannelEnd{}, errChannelAlreadyExist(c.BSide.ChannelID)
	}
	if len(actual.ConnectionHops) != 1 || actual.ConnectionHops[0] != expected.ConnectionHops[0] {
		return ibc.ChannelEnd{}, errChannelAlreadyExist(c.BSide.ChannelID)
	}
	if actual.Counterparty.HasChannelID() {
		if actual.Counterparty.PortID != expected.Counterparty.PortID || actual.Counterparty.ChannelID != expected.Counterparty.ChannelID {
			return ibc.ChannelEnd{}, errChannelAlreadyExist(c.BSide.ChannelID)
		}
	} else if actual.Counterparty.PortID != expected.Counterparty.PortID {
		return ibc.ChannelEnd{}, errMismatchPort(c.bHandle.ChainID(), actual.Counterparty.PortID, expected.Counterparty.PortID)
	}

	return expected, nil
}

// doChanOpenAckAndSend submits Ack on b, proving a's TryOpen.
func (c *Channel) doChanOpenAckAndSend(ctx context.Context) error {
	if !c.ASide.HasChannelID() {
		return errMissingLocalChannelID()
	}
	if _, err := c.ValidatedExpectedChannel(ctx, ChannelMsgOpenAck); err != nil {
		return err
	}

	aChannel, err := c.aHandle.QueryChannel(ctx, ibc.QueryChannelRequest{PortID: c.ASide.PortID, ChannelID: c.ASide.ChannelID})
	if err != nil {
		return errQuery(c.aHandle.ChainID(), err)
	}
	aHeight, err := c.aHandle.QueryLatestHeight(ctx)
	if err != nil {
		return errQuery(c.aHandle.ChainID(), err)
	}
	proofs, err := c.aHandle.BuildChannelProofs(ctx, c.ASide.PortID, c.ASide.ChannelID, aHeight)
	if err != nil {
		return errQuery(c.aHandle.ChainID(), err)
	}
	signer, err := c.bHandle.GetSigner(ctx)
	if err != nil {
		return errQuery(c.bHandle.ChainID(), err)
	}

	events, err := c.bHandle.Submit(ctx, []chain.Msg{MsgChanOpenAck{
		PortID:                c.BSide.PortID,
		ChannelID:             c.BSide.ChannelID,
		CounterpartyChannelID: c.ASide.ChannelID,
		CounterpartyVersion:   aChannel.Version,
		ProofTry:              proofs,
		Signer:                signer,
	}})
	if err != nil {
		return errSubmit(c.bHandle.ChainID(), err)
	}
	return checkSubmitEvents(c.bHandle.ChainID(), events)
}

// doChanOpenConfirmAndSend submits Confirm on b, proving a's Open.
func (c *Channel) doChanOpenConfirmAndSend(ctx context.Context) error {
	if !c.ASide.HasChannelID() {
		return errMissingLocalChannelID()
	}
	if _, err := c.ValidatedExpectedChannel(ctx, ChannelMsgOpenConfirm); err != nil {
		return err
	}

	aHeight, err := c.aHandle.QueryLatestHeight(ctx)
	if err != nil {
		return errQuery(c.aHandle.ChainID(), err)
	}
	proofs, err := c.aHandle.BuildChannelProofs(ctx, c.ASide.PortID, c.ASide.ChannelID, aHeight)
	if err != nil {
		return errQuery(c.aHandle.ChainID(), err)
	}
	signer, err := c.bHandle.GetSigner(ctx)
	if err != nil {
		return errQuery(c.bHandle.ChainID(), err)
	}

	events, err := c.bHandle.Submit(ctx, []chain.Msg{MsgChanOpenConfirm{
		PortID:    c.BSide.PortID,
		ChannelID: c.BSide.ChannelID,
		ProofAck:  proofs,
		Signer:    signer,
	}})
	if err != nil {
		return errSubmit(c.bHandle.ChainID(), err)
	}
	return checkSubmitEvents(c.bHandle.ChainID(), events)
}

// HandshakeStep inspects the counterparty's current state and performs
// whatever single next step the driver would take — used by a worker that
// wants to react to one freshly observed event rather than polling
// doChanOpenFinalize to completion. localState is a-side's state as the
// worker last saw it.
func (c *Channel) HandshakeStep(ctx context.Context, localState ibc.State) error {
	var counterpartyState ibc.State
	if c.BSide.HasChannelID() {
		bChannel, err := c.bHandle.QueryChannel(ctx, ibc.QueryChannelRequest{PortID: c.BSide.PortID, ChannelID: c.BSide.ChannelID})
		if err != nil {
			return errQuery(c.bHandle.ChainID(), err)
		}
		counterpartyState = bChannel.State
	}

	switch {
	case localState == ibc.Init && counterpartyState == ibc.Uninitialized,
		localState == ibc.Init && counterpartyState == ibc.Init:
		return c.doChanOpenTryAndSend(ctx)
	case localState == ibc.TryOpen && counterpartyState == ibc.Init:
		// b did the Init; it receives the ack.
		return c.doChanOpenAckAndSend(ctx)
	case localState == ibc.TryOpen && counterpartyState == ibc.TryOpen:
		// Crossing hellos; ack lands on a.
		return c.Flipped().doChanOpenAckAndSend(ctx)
	case localState == ibc.Open && counterpartyState == ibc.TryOpen:
		return c.doChanOpenConfirmAndSend(ctx)
	default:
		return nil
	}
}

// CloseInitAndSend sends the channel close-init message on a's side.
func (c *Channel) CloseInitAndSend(ctx context.Context) error {
	if !c.ASide.HasChannelID() {
		return errMissingLocalChannelID()
	}
	signer, err := c.aHandle.GetSigner(ctx)
	if err != nil {
		return errQuery(c.aHandle.ChainID(), err)
	}
	events, err := c.aHandle.Submit(ctx, []chain.Msg{MsgChanCloseInit{
		PortID:    c.ASide.PortID,
		ChannelID: c.ASide.ChannelID,
		Signer:    signer,
	}})
	if err != nil {
		return errSubmit(c.aHandle.ChainID(), err)
	}
	return checkSubmitEvents(c.aHandle.ChainID(), events)
}

// CloseConfirmAndSend sends the channel close-confirm message on b's
// side, proving the close a initiated.
func (c *Channel) CloseConfirmAndSend(ctx context.Context) error {
	if !c.ASide.HasChannelID() {
		return errMissingLocalChannelID()
	}
	if _, err := c.ValidatedExpectedChannel(ctx, ChannelMsgCloseConfirm); err != nil {
		return err
	}

	aHeight, err := c.aHandle.QueryLatestHeight(ctx)
	if err != nil {
		return errQuery(c.aHandle.ChainID(), err)
	}
	proofs, err := c.aHandle.BuildChannelProofs(ctx, c.ASide.PortID, c.ASide.ChannelID, aHeight)
	if err != nil {
		return errQuery(c.aHandle.ChainID(), err)
	}
	signer, err := c.bHandle.GetSigner(ctx)
	if err != nil {
		return errQuery(c.bHandle.ChainID(), err)
	}

	events, err := c.bHandle.Submit(ctx, []chain.Msg{MsgChanCloseConfirm{
		PortID:    c.BSide.PortID,
		ChannelID: c.BSide.ChannelID,
		ProofInit: proofs,
		Signer:    signer,
	}})
	if err != nil {
		return errSubmit(c.bHandle.ChainID(), err)
	}
	return checkSubmitEvents(c.bHandle.ChainID(), events)
}
