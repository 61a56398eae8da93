// Package command defines the supervisor's external control surface: the
// command union and an unbounded FIFO queue for delivering it — a
// mutex-guarded slice rather than a fixed-size buffered channel, since a
// blocked command sender is worse than an unbounded backlog here.
package command

import (
	"sync"

	"github.com/gofrs/uuid"

	"github.com/relaygo/relayer/config"
	"github.com/relaygo/relayer/ibc"
)

// Kind discriminates the three commands the supervisor loop accepts.
type Kind uint8

const (
	KindUpdateConfig Kind = iota
	KindDumpState
	KindStop
)

// UpdateKind discriminates the three config mutations UpdateConfig can
// carry.
type UpdateKind uint8

const (
	UpdateAdd UpdateKind = iota
	UpdateRemove
	UpdateUpdate
)

// ConfigUpdate is the payload of a KindUpdateConfig command.
type ConfigUpdate struct {
	Kind    UpdateKind
	ChainID ibc.ChainID       // Remove, and the removal half of Update
	Chain   config.ChainConfig // Add, and the add half of Update
}

// SupervisorState is the snapshot DumpState replies with: the live chain
// set and every worker's Object.
type SupervisorState struct {
	Chains  []ibc.ChainID
	Objects []ibc.Object
}

// Cmd is one command read off the queue. At most one of ReplyState/
// ReplyStop is set (ReplyState for DumpState, ReplyStop for Stop,
// neither for a config update), matching which Kind it carries; callers
// provide their own single-shot reply channel. ID is a
// correlation id for logging a command's dispatch and completion as one
// traceable pair, not a dedup key — resubmitting the same logical
// command just gets a fresh ID.
type Cmd struct {
	ID     uuid.UUID
	Kind   Kind
	Update ConfigUpdate

	ReplyState chan<- SupervisorState
	ReplyStop  chan<- struct{}
}

// NewUpdateConfig builds a KindUpdateConfig command.
func NewUpdateConfig(u ConfigUpdate) Cmd {
	return Cmd{ID: newID(), Kind: KindUpdateConfig, Update: u}
}

// NewDumpState builds a KindDumpState command replying on reply.
func NewDumpState(reply chan<- SupervisorState) Cmd {
	return Cmd{ID: newID(), Kind: KindDumpState, ReplyState: reply}
}

// NewStop builds a KindStop command acknowledging on reply.
func NewStop(reply chan<- struct{}) Cmd {
	return Cmd{ID: newID(), Kind: KindStop, ReplyStop: reply}
}

// newID mints the correlation id. Collisions are not worth treating as
// errors here — a duplicate only ever degrades log correlation, never
// command delivery, so a NewV4 generation failure just falls back to the
// nil UUID rather than surfacing an error through every New* constructor.
func newID() uuid.UUID {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil
	}
	return id
}

// Queue is an unbounded FIFO of Cmd values. Send never blocks; TryRecv
// never blocks either, returning ok=false when empty — the shape the
// supervisor loop's non-blocking command poll needs.
type Queue struct {
	mu    sync.Mutex
	items []Cmd
}

// NewQueue builds an empty command queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Send appends cmd to the queue.
func (q *Queue) Send(cmd Cmd) {
	q.mu.Lock()
	q.items = append(q.items, cmd)
	q.mu.Unlock()
}

// TryRecv pops the oldest queued command, if any.
func (q *Queue) TryRecv() (Cmd, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Cmd{}, false
	}
	cmd := q.items[0]
	q.items = q.items[1:]
	return cmd, true
}

// Len reports how many commands are currently queued, for tests and
// diagnostics.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
