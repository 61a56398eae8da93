// Package chainmock is an in-memory chain.Handle test double used across
// the relayer's package tests: a fully wired fake that lets the
// supervisor, registry, filter and handshake logic be exercised without a
// real chain.
package chainmock

import (
	"context"
	"sync"

	"github.com/relaygo/relayer/chain"
	"github.com/relaygo/relayer/config"
	"github.com/relaygo/relayer/ibc"
)

// Chain is an in-memory chain.Handle. Zero value is not usable; build one
// with New.
type Chain struct {
	id ibc.ChainID

	mu             sync.Mutex
	height         ibc.Height
	clients        map[ibc.ClientID]*clientState
	connections    map[ibc.ConnectionID]ibc.ConnectionEnd
	channels       map[ibc.ChannelKey]ibc.ChannelEnd
	moduleVersions map[ibc.PortID]string
	submitted      []chain.Msg
	onSubmit       func(msgs []chain.Msg) ([]ibc.Event, error)

	events chan ibc.EventBatch
	closed bool
}

type clientState struct {
	clientID ibc.ClientID
	chainID  ibc.ChainID
	height   ibc.Height
	frozen   bool
}

func (c *clientState) ClientID() ibc.ClientID   { return c.clientID }
func (c *clientState) ChainID() ibc.ChainID     { return c.chainID }
func (c *clientState) LatestHeight() ibc.Height { return c.height }
func (c *clientState) IsFrozen() bool           { return c.frozen }

// New builds an empty mock chain at height 1-1.
func New(id ibc.ChainID) *Chain {
	return &Chain{
		id:             id,
		height:         ibc.Height{RevisionNumber: 1, RevisionHeight: 1},
		clients:        make(map[ibc.ClientID]*clientState),
		connections:    make(map[ibc.ConnectionID]ibc.ConnectionEnd),
		channels:       make(map[ibc.ChannelKey]ibc.ChannelEnd),
		moduleVersions: make(map[ibc.PortID]string),
		events:         make(chan ibc.EventBatch, 64),
	}
}

// Factory adapts a pre-built registry of mock chains into a chain.Factory,
// for tests that want the registry's spawn-on-demand path exercised
// against fixed fakes.
func Factory(chains map[ibc.ChainID]*Chain) chain.Factory {
	return func(_ context.Context, cfg config.ChainConfig) (chain.Handle, error) {
		if c, ok := chains[cfg.ID]; ok {
			return c, nil
		}
		return New(cfg.ID), nil
	}
}

func (c *Chain) ChainID() ibc.ChainID { return c.id }

// HealthCheck always reports healthy unless the mock has been shut down,
// the same "only ever unhealthy once torn down" behaviour a real
// websocket-backed handle shows once its connection drops.
func (c *Chain) HealthCheck(context.Context) (chain.Health, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return chain.Unhealthy, nil
	}
	return chain.Healthy, nil
}

// Push injects an event batch as if the chain had produced it, and bumps
// the mock's height to match.
func (c *Chain) Push(batch ibc.EventBatch) {
	c.mu.Lock()
	if batch.Height.Compare(c.height) > 0 {
		c.height = batch.Height
	}
	c.mu.Unlock()
	c.events <- batch
}

// SetClient registers a client's light-client state for QueryClientState.
func (c *Chain) SetClient(clientID ibc.ClientID, trackedChain ibc.ChainID, height ibc.Height, frozen bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clients[clientID] = &clientState{clientID: clientID, chainID: trackedChain, height: height, frozen: frozen}
}

// SetConnection registers a connection end.
func (c *Chain) SetConnection(id ibc.ConnectionID, end ibc.ConnectionEnd) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connections[id] = end
}

// SetChannel registers a channel end.
func (c *Chain) SetChannel(key ibc.ChannelKey, end ibc.ChannelEnd) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels[key] = end
}

// MustChannel returns a previously set channel end, panicking if it
// doesn't exist. Test-only convenience for OnSubmit callbacks that need to
// read-modify-write a channel's state.
func (c *Chain) MustChannel(key ibc.ChannelKey) ibc.ChannelEnd {
	c.mu.Lock()
	defer c.mu.Unlock()
	end, ok := c.channels[key]
	if !ok {
		panic("chainmock: no channel " + key.String())
	}
	return end
}

// Submitted returns every message passed to Submit so far.
func (c *Chain) Submitted() []chain.Msg {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]chain.Msg, len(c.submitted))
	copy(out, c.submitted)
	return out
}

func (c *Chain) Subscribe(ctx context.Context) (<-chan ibc.EventBatch, error) {
	out := make(chan ibc.EventBatch)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case b, ok := <-c.events:
				if !ok {
					return
				}
				select {
				case out <- b:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (c *Chain) QueryLatestHeight(context.Context) (ibc.Height, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height, nil
}

func (c *Chain) QueryClientState(_ context.Context, req ibc.QueryClientStateRequest) (chain.ClientState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cs, ok := c.clients[req.ClientID]
	if !ok {
		return nil, errNotFound("client", string(req.ClientID))
	}
	return cs, nil
}

func (c *Chain) QueryClientStates(context.Context, ibc.QueryClientStatesRequest) ([]chain.ClientState, ibc.PageResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]chain.ClientState, 0, len(c.clients))
	for _, cs := range c.clients {
		out = append(out, cs)
	}
	return out, ibc.PageResponse{Total: uint64(len(out))}, nil
}

func (c *Chain) QueryConsensusState(context.Context, ibc.QueryConsensusStateRequest) (chain.ConsensusState, error) {
	return nil, errNotFound("consensus state", "")
}

func (c *Chain) QueryConsensusStates(context.Context, ibc.QueryConsensusStatesRequest) ([]chain.ConsensusState, ibc.PageResponse, error) {
	return nil, ibc.PageResponse{}, nil
}

func (c *Chain) QueryConnection(_ context.Context, req ibc.QueryConnectionRequest) (ibc.ConnectionEnd, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	end, ok := c.connections[req.ConnectionID]
	if !ok {
		return ibc.ConnectionEnd{}, errNotFound("connection", string(req.ConnectionID))
	}
	return end, nil
}

func (c *Chain) QueryConnections(context.Context, ibc.QueryConnectionsRequest) ([]chain.IdentifiedConnection, ibc.PageResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]chain.IdentifiedConnection, 0, len(c.connections))
	for id, end := range c.connections {
		out = append(out, chain.IdentifiedConnection{ID: id, ConnectionEnd: end})
	}
	return out, ibc.PageResponse{Total: uint64(len(out))}, nil
}

func (c *Chain) QueryClientConnections(_ context.Context, req ibc.QueryClientConnectionsRequest) ([]ibc.ConnectionID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []ibc.ConnectionID
	for id, end := range c.connections {
		if end.ClientID == req.ClientID {
			out = append(out, id)
		}
	}
	return out, nil
}

func (c *Chain) QueryConnectionChannels(_ context.Context, req ibc.QueryConnectionChannelsRequest) ([]chain.IdentifiedChannel, ibc.PageResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []chain.IdentifiedChannel
	for key, end := range c.channels {
		for _, hop := range end.ConnectionHops {
			if hop == req.ConnectionID {
				out = append(out, chain.IdentifiedChannel{PortID: key.PortID, ChannelID: key.ChannelID, ChannelEnd: end})
				break
			}
		}
	}
	return out, ibc.PageResponse{Total: uint64(len(out))}, nil
}

// QueryChannel returns the zero ChannelEnd (state Uninitialized) for a
// channel that doesn't exist, matching the on-chain convention the
// handshake driver's validation depends on.
func (c *Chain) QueryChannel(_ context.Context, req ibc.QueryChannelRequest) (ibc.ChannelEnd, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channels[ibc.ChannelKey{PortID: req.PortID, ChannelID: req.ChannelID}], nil
}

func (c *Chain) QueryChannels(context.Context, ibc.QueryChannelsRequest) ([]chain.IdentifiedChannel, ibc.PageResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]chain.IdentifiedChannel, 0, len(c.channels))
	for key, end := range c.channels {
		out = append(out, chain.IdentifiedChannel{PortID: key.PortID, ChannelID: key.ChannelID, ChannelEnd: end})
	}
	return out, ibc.PageResponse{Total: uint64(len(out))}, nil
}

func (c *Chain) QueryChannelClientState(_ context.Context, req ibc.QueryChannelClientStateRequest) (chain.ClientState, error) {
	c.mu.Lock()
	end, ok := c.channels[ibc.ChannelKey{PortID: req.PortID, ChannelID: req.ChannelID}]
	c.mu.Unlock()
	if !ok {
		return nil, errNotFound("channel", req.ChannelID.String())
	}
	conn, err := c.QueryConnection(context.Background(), ibc.QueryConnectionRequest{ConnectionID: end.ConnectionHops[0]})
	if err != nil {
		return nil, err
	}
	return c.QueryClientState(context.Background(), ibc.QueryClientStateRequest{ClientID: conn.ClientID})
}

func (c *Chain) QueryPacketCommitment(context.Context, ibc.QueryPacketCommitmentRequest) ([]byte, error) {
	return nil, errNotFound("packet commitment", "")
}

func (c *Chain) QueryPacketCommitments(context.Context, ibc.QueryPacketCommitmentsRequest) ([]ibc.Sequence, ibc.PageResponse, error) {
	return nil, ibc.PageResponse{}, nil
}

func (c *Chain) QueryPacketReceipt(context.Context, ibc.QueryPacketReceiptRequest) (bool, error) {
	return false, nil
}

func (c *Chain) QueryUnreceivedPackets(_ context.Context, req ibc.QueryUnreceivedPacketsRequest) ([]ibc.Sequence, error) {
	return req.Sequences, nil
}

func (c *Chain) QueryPacketAcknowledgement(context.Context, ibc.QueryPacketAcknowledgementRequest) ([]byte, error) {
	return nil, errNotFound("packet ack", "")
}

func (c *Chain) QueryPacketAcknowledgements(context.Context, ibc.QueryPacketAcknowledgementsRequest) ([]ibc.Sequence, ibc.PageResponse, error) {
	return nil, ibc.PageResponse{}, nil
}

func (c *Chain) QueryUnreceivedAcks(_ context.Context, req ibc.QueryUnreceivedAcksRequest) ([]ibc.Sequence, error) {
	return req.PacketAckSequences, nil
}

func (c *Chain) QueryNextSequenceReceive(context.Context, ibc.QueryNextSequenceReceiveRequest) (ibc.Sequence, error) {
	return 1, nil
}

func (c *Chain) QueryUpgradedClientState(context.Context, ibc.QueryUpgradedClientStateRequest) (chain.ClientState, error) {
	return nil, errNotFound("upgraded client state", "")
}

func (c *Chain) QueryUpgradedConsensusState(context.Context, ibc.QueryUpgradedConsensusStateRequest) (chain.ConsensusState, error) {
	return nil, errNotFound("upgraded consensus state", "")
}

func (c *Chain) QueryHostConsensusState(context.Context, ibc.QueryHostConsensusStateRequest) (chain.ConsensusState, error) {
	return nil, errNotFound("host consensus state", "")
}

func (c *Chain) BuildChannelProofs(_ context.Context, portID ibc.PortID, channelID ibc.ChannelID, height ibc.Height) (chain.Proofs, error) {
	return chain.Proofs{
		Object: []byte("proof/" + string(portID) + "/" + string(channelID)),
		Height: height,
	}, nil
}

func (c *Chain) GetSigner(context.Context) (chain.Signer, error) {
	return chain.Signer("signer-" + string(c.id)), nil
}

// SetModuleVersion overrides the version string ModuleVersion reports for
// one port.
func (c *Chain) SetModuleVersion(portID ibc.PortID, version string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.moduleVersions[portID] = version
}

func (c *Chain) ModuleVersion(_ context.Context, portID ibc.PortID) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.moduleVersions[portID]; ok {
		return v, nil
	}
	return string(portID) + "-1", nil
}

// OnSubmit, when set, is invoked by Submit instead of the default no-op
// behaviour, letting a test simulate a chain assigning a new identifier or
// progressing a channel's state in response to a handshake message.
func (c *Chain) SetOnSubmit(fn func(msgs []chain.Msg) ([]ibc.Event, error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSubmit = fn
}

func (c *Chain) Submit(_ context.Context, msgs []chain.Msg) ([]ibc.Event, error) {
	c.mu.Lock()
	c.submitted = append(c.submitted, msgs...)
	fn := c.onSubmit
	c.mu.Unlock()

	if fn != nil {
		return fn(msgs)
	}
	return nil, nil
}

func (c *Chain) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.events)
	return nil
}

type notFoundError struct {
	kind string
	id   string
}

func (e *notFoundError) Error() string {
	if e.id == "" {
		return e.kind + ": not found"
	}
	return e.kind + " " + e.id + ": not found"
}

func errNotFound(kind, id string) error { return &notFoundError{kind: kind, id: id} }
