package workers

import (
	"go.uber.org/zap"

	"github.com/relaygo/relayer/chain"
	"github.com/relaygo/relayer/ibc"
	"github.com/relaygo/relayer/logging"
	"github.com/relaygo/relayer/worker"
)

// ClientWorker tracks one light client's UpdateClient traffic. Deciding
// when to submit a client update or detect misbehaviour happens below the
// chain.Handle boundary; this type exists so the worker map has a real,
// exercised Worker for ObjectClient rather than leaving that kind
// unhandled.
type ClientWorker struct {
	*worker.Base

	obj ibc.Object
	log *zap.Logger
}

func NewClientWorker(obj ibc.Object, _, _ chain.Handle) worker.Worker {
	w := &ClientWorker{obj: obj, log: logging.ForObject(obj.ShortName())}
	w.Base = worker.NewBase(obj, w)
	return w
}

func (w *ClientWorker) HandleNewBlock(ibc.Height) {}

func (w *ClientWorker) HandleEvents(events []ibc.Event) {
	w.log.Debug("client worker: observed update", zap.Int("events", len(events)))
}

func (w *ClientWorker) ClearPendingPackets() {}
