package ibc

// The types below are the complete query-request surface a chain handle
// serves. Each maps 1:1 to a wire request a real implementation issues;
// the supervisor core itself issues only the client-state, connection and
// channel queries directly (from the filter policy, the spawn-context
// scan, the supervisor and the handshake driver), but a handle is written
// against the whole surface so implementers have one contract to fulfill.

type QueryHeight struct {
	Query  HeightQuery
	Height Height // populated when Query.IsLatest() is false
}

type QueryClientStateRequest struct {
	ClientID ClientID
	Height   QueryHeight
}

type QueryClientStatesRequest struct {
	Pagination PageRequest
}

type QueryConsensusStateRequest struct {
	ClientID        ClientID
	ConsensusHeight Height
	Height          QueryHeight
}

type QueryConsensusStatesRequest struct {
	ClientID   ClientID
	Pagination PageRequest
}

type QueryConnectionRequest struct {
	ConnectionID ConnectionID
	Height       QueryHeight
}

type QueryConnectionsRequest struct {
	Pagination PageRequest
}

type QueryClientConnectionsRequest struct {
	ClientID ClientID
}

type QueryConnectionChannelsRequest struct {
	ConnectionID ConnectionID
	Pagination   PageRequest
}

type QueryChannelRequest struct {
	PortID    PortID
	ChannelID ChannelID
	Height    QueryHeight
}

type QueryChannelsRequest struct {
	Pagination PageRequest
}

type QueryChannelClientStateRequest struct {
	PortID    PortID
	ChannelID ChannelID
}

type QueryPacketCommitmentRequest struct {
	PortID    PortID
	ChannelID ChannelID
	Sequence  Sequence
	Height    QueryHeight
}

type QueryPacketCommitmentsRequest struct {
	PortID     PortID
	ChannelID  ChannelID
	Pagination PageRequest
}

type QueryPacketReceiptRequest struct {
	PortID    PortID
	ChannelID ChannelID
	Sequence  Sequence
	Height    QueryHeight
}

type QueryUnreceivedPacketsRequest struct {
	PortID    PortID
	ChannelID ChannelID
	Sequences []Sequence
}

type QueryPacketAcknowledgementRequest struct {
	PortID    PortID
	ChannelID ChannelID
	Sequence  Sequence
	Height    QueryHeight
}

type QueryPacketAcknowledgementsRequest struct {
	PortID                    PortID
	ChannelID                 ChannelID
	PacketCommitmentSequences []Sequence
	Pagination                PageRequest
}

type QueryUnreceivedAcksRequest struct {
	PortID             PortID
	ChannelID          ChannelID
	PacketAckSequences []Sequence
}

type QueryNextSequenceReceiveRequest struct {
	PortID    PortID
	ChannelID ChannelID
	Height    QueryHeight
}

type QueryUpgradedClientStateRequest struct {
	Height QueryHeight
}

type QueryUpgradedConsensusStateRequest struct {
	Height QueryHeight
}

type QueryHostConsensusStateRequest struct {
	Height QueryHeight
}
