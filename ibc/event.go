package ibc

import (
	"github.com/buger/jsonparser"
)

// EventType enumerates the IBC event kinds the classifier cares about.
// Any event type not named here is classified as EventOther and ignored.
type EventType string

const (
	EventNewBlock             EventType = "new_block"
	EventUpdateClient         EventType = "update_client"
	EventOpenInitConnection   EventType = "connection_open_init"
	EventOpenTryConnection    EventType = "connection_open_try"
	EventOpenAckConnection    EventType = "connection_open_ack"
	EventOpenInitChannel      EventType = "channel_open_init"
	EventOpenTryChannel       EventType = "channel_open_try"
	EventOpenAckChannel       EventType = "channel_open_ack"
	EventOpenConfirmChannel   EventType = "channel_open_confirm"
	EventCloseInitChannel     EventType = "channel_close_init"
	EventCloseConfirmChannel  EventType = "channel_close_confirm"
	EventSendPacket           EventType = "send_packet"
	EventTimeoutPacket        EventType = "timeout_packet"
	EventWriteAcknowledgement EventType = "write_acknowledgement"
	EventChainError           EventType = "chain_error"
	EventOther                EventType = "other"
)

// Event is one item out of a chain's event stream. Attributes are kept as
// raw JSON bytes and decoded lazily with jsonparser rather than unmarshalled
// eagerly into a typed struct: the classifier only ever reads one or two
// string attributes per event, and most events in a batch are never routed
// anywhere.
type Event struct {
	Type EventType
	Raw  []byte // JSON object of string-valued attributes
}

// Attr reads a single string attribute out of the event's raw JSON. The
// second return value is false if the key is absent or the value isn't a
// string — both treated identically by callers, which drop the event.
func (e Event) Attr(key string) (string, bool) {
	if len(e.Raw) == 0 {
		return "", false
	}
	v, err := jsonparser.GetString(e.Raw, key)
	if err != nil {
		return "", false
	}
	return v, true
}

// ChannelAttributes pulls out the fields a channel-handshake event carries.
// ok is false if any required attribute is missing; such events belong to
// channels the relayer cannot service and are dropped.
func (e Event) ChannelAttributes() (attrs ChannelEventAttributes, ok bool) {
	portID, ok1 := e.Attr("port_id")
	channelID, _ := e.Attr("channel_id") // may be absent until assigned
	connID, ok2 := e.Attr("connection_id")
	cpPortID, ok3 := e.Attr("counterparty_port_id")
	cpChannelID, _ := e.Attr("counterparty_channel_id")
	if !ok1 || !ok2 || !ok3 {
		return ChannelEventAttributes{}, false
	}
	return ChannelEventAttributes{
		PortID:                PortID(portID),
		ChannelID:             ChannelID(channelID),
		ConnectionID:          ConnectionID(connID),
		CounterpartyPortID:    PortID(cpPortID),
		CounterpartyChannelID: ChannelID(cpChannelID),
	}, true
}

// ChannelEventAttributes is the typed projection of a channel-handshake
// event's attributes, used by both the classifier (to build Objects) and
// the handshake driver (RestoreFromEvent).
type ChannelEventAttributes struct {
	PortID                PortID
	ChannelID             ChannelID
	ConnectionID          ConnectionID
	CounterpartyPortID    PortID
	CounterpartyChannelID ChannelID
}

// ConnectionAttributes pulls out the fields a connection-handshake event
// carries.
func (e Event) ConnectionAttributes() (connID ConnectionID, clientID ClientID, ok bool) {
	c, ok1 := e.Attr("connection_id")
	cl, ok2 := e.Attr("client_id")
	if !ok1 || !ok2 {
		return "", "", false
	}
	return ConnectionID(c), ClientID(cl), true
}

// PacketAttributes pulls out the fields a packet lifecycle event carries.
func (e Event) PacketAttributes() (attrs PacketEventAttributes, ok bool) {
	portID, ok1 := e.Attr("packet_src_port")
	channelID, ok2 := e.Attr("packet_src_channel")
	dstPortID, ok3 := e.Attr("packet_dst_port")
	dstChannelID, ok4 := e.Attr("packet_dst_channel")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return PacketEventAttributes{}, false
	}
	return PacketEventAttributes{
		SrcPortID:    PortID(portID),
		SrcChannelID: ChannelID(channelID),
		DstPortID:    PortID(dstPortID),
		DstChannelID: ChannelID(dstChannelID),
	}, true
}

// PacketEventAttributes is the typed projection of a packet event's
// attributes.
type PacketEventAttributes struct {
	SrcPortID    PortID
	SrcChannelID ChannelID
	DstPortID    PortID
	DstChannelID ChannelID
}

// UpdateClientAttributes pulls out the client id an UpdateClient event
// concerns, plus the chain the client tracks.
func (e Event) UpdateClientAttributes() (clientID ClientID, clientChainID ChainID, ok bool) {
	c, ok1 := e.Attr("client_id")
	h, ok2 := e.Attr("client_chain_id")
	if !ok1 || !ok2 {
		return "", "", false
	}
	return ClientID(c), ChainID(h), true
}

// EventBatch is the unit a chain's subscription emits: every event the
// chain produced at one height. A subscription can also yield an
// event-monitor error instead of a real batch; when Err is non-nil,
// ChainID/Height/Events carry no meaningful data and callers should
// inspect Err instead.
type EventBatch struct {
	ChainID ChainID
	Height  Height
	Events  []Event
	Err     error
}
