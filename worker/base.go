package worker

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/relaygo/relayer/ibc"
	"github.com/relaygo/relayer/logging"
)

const (
	notStarted int32 = iota
	started
	stopped
)

type newBlockMsg struct{ height ibc.Height }
type eventsMsg struct{ events []ibc.Event }

// Handler is the object-kind-specific logic a Base worker drives: it
// receives new blocks and routed events and decides what, if anything, to
// relay. Concrete handlers are the channel, packet, client and connection
// workers in the workers package.
type Handler interface {
	HandleNewBlock(height ibc.Height)
	HandleEvents(events []ibc.Event)
	ClearPendingPackets()
}

// Base is the common worker scaffold: one goroutine, one input queue per
// message kind, and a started/stopped flag (atomic int32 rather than a
// mutex-guarded bool, since it's read far more often than written).
type Base struct {
	object  ibc.Object
	handler Handler
	log     *zap.Logger

	state int32
	wg    sync.WaitGroup

	newBlockCh chan newBlockMsg
	eventsCh   chan eventsMsg
	clearCh    chan struct{}
	doneCh     chan struct{}
}

// NewBase builds and starts a worker for obj, driven by handler.
func NewBase(obj ibc.Object, handler Handler) *Base {
	b := &Base{
		object:     obj,
		handler:    handler,
		log:        logging.ForObject(obj.ShortName()),
		newBlockCh: make(chan newBlockMsg, 1),
		eventsCh:   make(chan eventsMsg, 64),
		clearCh:    make(chan struct{}, 1),
		doneCh:     make(chan struct{}),
	}
	atomic.StoreInt32(&b.state, started)
	b.wg.Add(1)
	go b.run()
	return b
}

func (b *Base) Object() ibc.Object { return b.object }

func (b *Base) run() {
	defer b.wg.Done()
	for {
		select {
		case <-b.doneCh:
			b.drain()
			return
		case msg := <-b.newBlockCh:
			b.handler.HandleNewBlock(msg.height)
		case msg := <-b.eventsCh:
			b.handler.HandleEvents(msg.events)
		case <-b.clearCh:
			b.handler.ClearPendingPackets()
		}
	}
}

// drain processes whatever was already queued before doneCh was closed,
// so shutdown doesn't silently lose in-flight work.
func (b *Base) drain() {
	for {
		select {
		case msg := <-b.newBlockCh:
			b.handler.HandleNewBlock(msg.height)
		case msg := <-b.eventsCh:
			b.handler.HandleEvents(msg.events)
		case <-b.clearCh:
			b.handler.ClearPendingPackets()
		default:
			return
		}
	}
}

func (b *Base) SendNewBlock(height ibc.Height) {
	if atomic.LoadInt32(&b.state) != started {
		return
	}
	select {
	case b.newBlockCh <- newBlockMsg{height}:
	case <-b.doneCh:
	}
}

func (b *Base) SendEvents(events []ibc.Event) {
	if atomic.LoadInt32(&b.state) != started {
		return
	}
	select {
	case b.eventsCh <- eventsMsg{events}:
	case <-b.doneCh:
	}
}

func (b *Base) ClearPendingPackets() {
	if atomic.LoadInt32(&b.state) != started {
		return
	}
	select {
	case b.clearCh <- struct{}{}:
	case <-b.doneCh:
	}
}

func (b *Base) Shutdown() {
	if !atomic.CompareAndSwapInt32(&b.state, started, stopped) {
		return
	}
	close(b.doneCh)
	b.wg.Wait()
	b.log.Debug("worker stopped")
}
