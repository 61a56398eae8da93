// Package worker implements the per-Object relay workers and the map
// that owns them. Each worker is an independent goroutine-backed state
// machine; the supervisor only ever talks to it through the Worker
// interface's three input methods and Shutdown.
package worker

import (
	"github.com/relaygo/relayer/ibc"
)

// Worker is the supervisor's view of one Object's relay task. The three
// notify methods deliberately return no error: the queues behind them are
// in-process, and a send to a stopped worker is dropped — the only thing
// a caller could do with the failure is log it, which the worker's own
// shutdown already does.
type Worker interface {
	Object() ibc.Object

	// SendNewBlock notifies the worker a new block was observed on its
	// source chain.
	SendNewBlock(height ibc.Height)

	// SendEvents delivers the events the classifier routed to this
	// worker's Object from one batch.
	SendEvents(events []ibc.Event)

	// ClearPendingPackets discards any packet the worker was tracking
	// that hasn't yet been relayed, without tearing the worker down. Used
	// when the subscription to the worker's source chain is cancelled.
	ClearPendingPackets()

	// Shutdown stops the worker, draining its input channels before
	// returning.
	Shutdown()
}
