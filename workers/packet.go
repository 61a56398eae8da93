package workers

import (
	"sync"

	"go.uber.org/zap"

	"github.com/relaygo/relayer/chain"
	"github.com/relaygo/relayer/ibc"
	"github.com/relaygo/relayer/logging"
	"github.com/relaygo/relayer/worker"
)

// PacketWorker tracks the sequences this channel has outstanding relay
// work for. Building and submitting the actual RecvPacket/Acknowledgement/
// Timeout messages (proof construction, ordering, batching) happens below
// the chain.Handle boundary; what belongs here is routing events into the
// pending set and clearing it when a subscription is cancelled.
type PacketWorker struct {
	*worker.Base

	obj ibc.Object
	log *zap.Logger

	mu      sync.Mutex
	pending map[ibc.Sequence]ibc.EventType
}

func NewPacketWorker(obj ibc.Object, _, _ chain.Handle) worker.Worker {
	w := &PacketWorker{
		obj:     obj,
		log:     logging.ForObject(obj.ShortName()),
		pending: make(map[ibc.Sequence]ibc.EventType),
	}
	w.Base = worker.NewBase(obj, w)
	return w
}

func (w *PacketWorker) HandleNewBlock(ibc.Height) {}

func (w *PacketWorker) HandleEvents(events []ibc.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ev := range events {
		seqStr, ok := ev.Attr("packet_sequence")
		if !ok {
			continue
		}
		var seq uint64
		for _, r := range seqStr {
			if r < '0' || r > '9' {
				seq = 0
				ok = false
				break
			}
			seq = seq*10 + uint64(r-'0')
		}
		if !ok {
			continue
		}
		switch ev.Type {
		case ibc.EventWriteAcknowledgement, ibc.EventTimeoutPacket:
			delete(w.pending, ibc.Sequence(seq))
		default:
			w.pending[ibc.Sequence(seq)] = ev.Type
		}
	}
}

// Pending returns how many sequences this worker currently believes need
// relaying, for tests and DumpState-style diagnostics.
func (w *PacketWorker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// ClearPendingPackets discards every tracked sequence without shutting
// the worker down, the reset a cancelled subscription forces: any
// sequence observed before the gap may have been resolved inside it.
func (w *PacketWorker) ClearPendingPackets() {
	w.mu.Lock()
	cleared := len(w.pending)
	w.pending = make(map[ibc.Sequence]ibc.EventType)
	w.mu.Unlock()
	w.log.Debug("packet worker: cleared pending packets", zap.Int("count", cleared))
}
