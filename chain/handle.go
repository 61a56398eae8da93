// Package chain defines the Handle contract the rest of the relayer talks
// to instead of any one chain's native RPC client: one interface every
// concrete driver implements, with the supervisor coded only against the
// interface.
package chain

import (
	"context"
	"errors"

	"github.com/relaygo/relayer/config"
	"github.com/relaygo/relayer/ibc"
)

// ErrSubscriptionCancelled is the event-monitor error a Handle's
// subscription reports when the underlying stream was torn down out from
// under it. A concrete driver wraps this rather than returning it bare so
// the chain id and cause survive in the log.
var ErrSubscriptionCancelled = errors.New("chain: subscription cancelled")

// Handle is the full query/subscription surface a relayer needs from one
// chain. A concrete implementation wraps that chain's RPC client;
// internal/chainmock provides an in-memory test double.
type Handle interface {
	ChainID() ibc.ChainID

	// HealthCheck reports this chain's reachability. A failed or unhealthy
	// check does not stop the supervisor's startup sequence: it is logged
	// and treated as non-fatal.
	HealthCheck(ctx context.Context) (Health, error)

	// Subscribe streams event batches until ctx is cancelled or the
	// handle is shut down. The returned channel is closed when the
	// subscription ends for any reason.
	Subscribe(ctx context.Context) (<-chan ibc.EventBatch, error)

	QueryLatestHeight(ctx context.Context) (ibc.Height, error)

	QueryClientState(ctx context.Context, req ibc.QueryClientStateRequest) (ClientState, error)
	QueryClientStates(ctx context.Context, req ibc.QueryClientStatesRequest) ([]ClientState, ibc.PageResponse, error)
	QueryConsensusState(ctx context.Context, req ibc.QueryConsensusStateRequest) (ConsensusState, error)
	QueryConsensusStates(ctx context.Context, req ibc.QueryConsensusStatesRequest) ([]ConsensusState, ibc.PageResponse, error)

	QueryConnection(ctx context.Context, req ibc.QueryConnectionRequest) (ibc.ConnectionEnd, error)
	QueryConnections(ctx context.Context, req ibc.QueryConnectionsRequest) ([]IdentifiedConnection, ibc.PageResponse, error)
	QueryClientConnections(ctx context.Context, req ibc.QueryClientConnectionsRequest) ([]ibc.ConnectionID, error)
	QueryConnectionChannels(ctx context.Context, req ibc.QueryConnectionChannelsRequest) ([]IdentifiedChannel, ibc.PageResponse, error)

	QueryChannel(ctx context.Context, req ibc.QueryChannelRequest) (ibc.ChannelEnd, error)
	QueryChannels(ctx context.Context, req ibc.QueryChannelsRequest) ([]IdentifiedChannel, ibc.PageResponse, error)
	QueryChannelClientState(ctx context.Context, req ibc.QueryChannelClientStateRequest) (ClientState, error)

	QueryPacketCommitment(ctx context.Context, req ibc.QueryPacketCommitmentRequest) ([]byte, error)
	QueryPacketCommitments(ctx context.Context, req ibc.QueryPacketCommitmentsRequest) ([]ibc.Sequence, ibc.PageResponse, error)
	QueryPacketReceipt(ctx context.Context, req ibc.QueryPacketReceiptRequest) (bool, error)
	QueryUnreceivedPackets(ctx context.Context, req ibc.QueryUnreceivedPacketsRequest) ([]ibc.Sequence, error)
	QueryPacketAcknowledgement(ctx context.Context, req ibc.QueryPacketAcknowledgementRequest) ([]byte, error)
	QueryPacketAcknowledgements(ctx context.Context, req ibc.QueryPacketAcknowledgementsRequest) ([]ibc.Sequence, ibc.PageResponse, error)
	QueryUnreceivedAcks(ctx context.Context, req ibc.QueryUnreceivedAcksRequest) ([]ibc.Sequence, error)
	QueryNextSequenceReceive(ctx context.Context, req ibc.QueryNextSequenceReceiveRequest) (ibc.Sequence, error)

	QueryUpgradedClientState(ctx context.Context, req ibc.QueryUpgradedClientStateRequest) (ClientState, error)
	QueryUpgradedConsensusState(ctx context.Context, req ibc.QueryUpgradedConsensusStateRequest) (ConsensusState, error)
	QueryHostConsensusState(ctx context.Context, req ibc.QueryHostConsensusStateRequest) (ConsensusState, error)

	// BuildChannelProofs builds the membership proof of this chain's
	// channel end at the given height, for inclusion in a handshake
	// message submitted to the counterparty. The returned Proofs.Height
	// is the height the counterparty's light client must be updated to
	// (or past) before it can verify the proof.
	BuildChannelProofs(ctx context.Context, portID ibc.PortID, channelID ibc.ChannelID, height ibc.Height) (Proofs, error)

	// GetSigner returns the identity this handle signs submitted
	// messages with.
	GetSigner(ctx context.Context) (Signer, error)

	// ModuleVersion returns the protocol version string the on-chain
	// application bound to portID speaks.
	ModuleVersion(ctx context.Context, portID ibc.PortID) (string, error)

	// Submit sends a batch of chain-specific messages as one transaction
	// and returns the events that transaction produced, in the same
	// order the chain applied the messages. A handshake step that
	// assigns a new identifier (e.g. ChanOpenInit assigning a channel
	// id) reports it through one of these events, the same as any other
	// on-chain event.
	Submit(ctx context.Context, msgs []Msg) ([]ibc.Event, error)

	Shutdown() error
}

// Proofs is an opaque membership proof of some piece of chain state at
// Height. The relayer never inspects Object; it only carries it from the
// proving chain into the message submitted to the verifying chain.
type Proofs struct {
	Object []byte
	Height ibc.Height
}

// Signer is the identity a handle signs submitted messages with.
type Signer string

func (s Signer) String() string { return string(s) }

// Health is the outcome of a chain's HealthCheck.
type Health uint8

const (
	Healthy Health = iota
	Unhealthy
)

func (h Health) String() string {
	if h == Healthy {
		return "healthy"
	}
	return "unhealthy"
}

// ClientState is an opaque handle to a light-client state: its concrete
// shape is chain-type specific, so the relayer core only ever inspects the
// few fields every client type carries.
type ClientState interface {
	ClientID() ibc.ClientID
	ChainID() ibc.ChainID
	LatestHeight() ibc.Height
	IsFrozen() bool
}

// ConsensusState is an opaque handle to a light-client consensus state at
// one height.
type ConsensusState interface {
	Height() ibc.Height
	Timestamp() int64
}

// IdentifiedConnection pairs a ConnectionEnd with the id it was queried
// under.
type IdentifiedConnection struct {
	ID ibc.ConnectionID
	ibc.ConnectionEnd
}

// IdentifiedChannel pairs a ChannelEnd with the port/channel id it was
// queried under.
type IdentifiedChannel struct {
	PortID    ibc.PortID
	ChannelID ibc.ChannelID
	ibc.ChannelEnd
}

// Msg is one chain-specific message a Handle can submit. Concrete drivers
// type-assert to their own message types; the relayer core only ever
// passes opaque values it received from a handshake or packet builder back
// into Submit.
type Msg interface {
	Type() string
}

// Factory builds a Handle for one chain's configuration. The registry uses
// this to lazily spawn handles on demand.
type Factory func(ctx context.Context, cfg config.ChainConfig) (Handle, error)
