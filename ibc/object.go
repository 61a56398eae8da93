package ibc

import "fmt"

// ObjectKind discriminates the four relay-object variants. Object is
// represented as one struct with a Kind tag and the union of fields each
// kind needs, rather than an interface type, so that Object stays
// comparable and can be used directly as a worker-map key.
type ObjectKind uint8

const (
	ObjectClient ObjectKind = iota
	ObjectConnection
	ObjectChannel
	ObjectPacket
)

func (k ObjectKind) String() string {
	switch k {
	case ObjectClient:
		return "client"
	case ObjectConnection:
		return "connection"
	case ObjectChannel:
		return "channel"
	case ObjectPacket:
		return "packet"
	default:
		return "unknown"
	}
}

// Object is the key that identifies one relay task. Equality is structural
// over all fields; unused fields for a given Kind are left at their zero
// value and never read.
type Object struct {
	Kind ObjectKind

	// Client
	DstChainID  ChainID
	DstClientID ClientID
	SrcChainID  ChainID // also used by Connection/Channel/Packet

	// Connection
	SrcConnectionID ConnectionID

	// Channel / Packet
	SrcChannelID ChannelID
	SrcPortID    PortID
}

// NewClientObject builds the Client-kind Object.
func NewClientObject(dstChainID ChainID, dstClientID ClientID, srcChainID ChainID) Object {
	return Object{Kind: ObjectClient, DstChainID: dstChainID, DstClientID: dstClientID, SrcChainID: srcChainID}
}

// NewConnectionObject builds the Connection-kind Object.
func NewConnectionObject(srcChainID ChainID, srcConnectionID ConnectionID, dstChainID ChainID) Object {
	return Object{Kind: ObjectConnection, SrcChainID: srcChainID, SrcConnectionID: srcConnectionID, DstChainID: dstChainID}
}

// NewChannelObject builds the Channel-kind Object.
func NewChannelObject(srcChainID ChainID, srcChannelID ChannelID, srcPortID PortID, dstChainID ChainID) Object {
	return Object{Kind: ObjectChannel, SrcChainID: srcChainID, SrcChannelID: srcChannelID, SrcPortID: srcPortID, DstChainID: dstChainID}
}

// NewPacketObject builds the Packet-kind Object.
func NewPacketObject(srcChainID ChainID, srcChannelID ChannelID, srcPortID PortID, dstChainID ChainID) Object {
	return Object{Kind: ObjectPacket, SrcChainID: srcChainID, SrcChannelID: srcChannelID, SrcPortID: srcPortID, DstChainID: dstChainID}
}

// ShortName is a stable string used only for logging.
func (o Object) ShortName() string {
	switch o.Kind {
	case ObjectClient:
		return fmt.Sprintf("client::%s->%s:%s", o.SrcChainID, o.DstChainID, o.DstClientID)
	case ObjectConnection:
		return fmt.Sprintf("connection::%s:%s->%s", o.SrcChainID, o.SrcConnectionID, o.DstChainID)
	case ObjectChannel:
		return fmt.Sprintf("channel::%s:%s/%s->%s", o.SrcChainID, o.SrcPortID, o.SrcChannelID, o.DstChainID)
	case ObjectPacket:
		return fmt.Sprintf("packet::%s:%s/%s->%s", o.SrcChainID, o.SrcPortID, o.SrcChannelID, o.DstChainID)
	default:
		return "unknown"
	}
}

// SrcChain returns the chain this object's worker treats as the source.
func (o Object) SrcChain() ChainID { return o.SrcChainID }

// DstChain returns the chain this object's worker treats as the
// destination.
func (o Object) DstChain() ChainID { return o.DstChainID }
