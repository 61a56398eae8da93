// Package workers holds the concrete per-object-kind Worker
// implementations the supervisor spawns into its worker.Map. The channel
// worker carries the real state machine; the client, connection and
// packet workers are thin bookkeeping layers over collaborators that live
// below the chain.Handle boundary.
package workers

import (
	"context"

	"go.uber.org/zap"

	"github.com/relaygo/relayer/chain"
	"github.com/relaygo/relayer/handshake"
	"github.com/relaygo/relayer/ibc"
	"github.com/relaygo/relayer/logging"
	"github.com/relaygo/relayer/worker"
)

// ChannelWorker owns one channel-object's progress toward Open, restoring
// the handshake driver from current on-chain state and taking the next
// step every time it's notified of a new block or a handshake event.
// Unlike the full New()/Handshake() sequence, which drives both sides of
// a still-unopened pair, a worker only ever owns one side: it advances its own local state one HandshakeStep at a time,
// matching the Object model's src/dst split (each side of a handshake
// gets its own Object and its own worker).
type ChannelWorker struct {
	*worker.Base

	obj       ibc.Object
	srcHandle chain.Handle
	dstHandle chain.Handle
	log       *zap.Logger
}

// NewChannelWorker builds and starts a ChannelWorker for obj, immediately
// kicking off one advance from current chain state in the background so
// the worker "starts from the current chain state (queried, not
// replayed)" without blocking the caller (typically worker.Map.GetOrSpawn,
// which holds its write lock across the factory call).
func NewChannelWorker(obj ibc.Object, src, dst chain.Handle) worker.Worker {
	w := &ChannelWorker{
		obj:       obj,
		srcHandle: src,
		dstHandle: dst,
		log:       logging.ForObject(obj.ShortName()),
	}
	w.Base = worker.NewBase(obj, w)
	go w.advance(context.Background())
	return w
}

func (w *ChannelWorker) HandleNewBlock(ibc.Height) { w.advance(context.Background()) }
func (w *ChannelWorker) HandleEvents([]ibc.Event)  { w.advance(context.Background()) }
func (w *ChannelWorker) ClearPendingPackets()      {}

// advance re-queries both ends of the channel and, if this side hasn't
// reached Open yet, submits whatever message HandshakeStep decides is
// next. A concurrent advance from the initial spawn goroutine racing one
// triggered by an early event is safe for the same reason two competing
// relayers are: both re-query current state before submitting anything,
// and the messages themselves are idempotent.
func (w *ChannelWorker) advance(ctx context.Context) {
	ch, localState, err := handshake.RestoreFromState(ctx, w.srcHandle, w.dstHandle, w.obj, ibc.QueryHeight{Query: ibc.LatestHeight()})
	if err != nil {
		w.log.Debug("channel worker: restore from state failed", zap.Error(err))
		return
	}

	switch localState {
	case ibc.Open, ibc.Closed, ibc.Uninitialized:
		return
	}

	if err := ch.HandshakeStep(ctx, localState); err != nil {
		w.log.Warn("channel worker: handshake step failed", zap.Error(err))
	}
}
