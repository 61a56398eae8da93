package workers

import (
	"github.com/relaygo/relayer/chain"
	"github.com/relaygo/relayer/ibc"
	"github.com/relaygo/relayer/worker"
)

// Factories collects the one constructor per ObjectKind the supervisor
// and spawncontext need to turn an admitted Object into a live worker.
// worker.Map's own Factory type is obj-only — the supervisor and
// spawncontext close over src/dst at the call site when spawning.
type Factories struct {
	Client     func(obj ibc.Object, src, dst chain.Handle) worker.Worker
	Connection func(obj ibc.Object, src, dst chain.Handle) worker.Worker
	Channel    func(obj ibc.Object, src, dst chain.Handle) worker.Worker
	Packet     func(obj ibc.Object, src, dst chain.Handle) worker.Worker
}

// DefaultFactories wires each ObjectKind to this package's concrete
// worker implementation.
func DefaultFactories() Factories {
	return Factories{
		Client:     NewClientWorker,
		Connection: NewConnectionWorker,
		Channel:    NewChannelWorker,
		Packet:     NewPacketWorker,
	}
}

// For returns the constructor for kind, or nil if kind is unrecognized.
func (f Factories) For(kind ibc.ObjectKind) func(obj ibc.Object, src, dst chain.Handle) worker.Worker {
	switch kind {
	case ibc.ObjectClient:
		return f.Client
	case ibc.ObjectConnection:
		return f.Connection
	case ibc.ObjectChannel:
		return f.Channel
	case ibc.ObjectPacket:
		return f.Packet
	default:
		return nil
	}
}
