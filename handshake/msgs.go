package handshake

import (
	"github.com/relaygo/relayer/chain"
	"github.com/relaygo/relayer/ibc"
)

// The Msg types below are what the channel driver hands to chain.Handle's
// Submit. A concrete Handle implementation is responsible for turning one
// into the chain's actual wire message, prefixing the batch with whatever
// light-client update the destination needs before it can verify the
// attached proof — client-update construction is chain-type specific and
// lives below the Handle boundary, not in this package.

type MsgChanOpenInit struct {
	PortID             ibc.PortID
	Ordering           ibc.Order
	ConnectionHops     []ibc.ConnectionID
	Version            string
	CounterpartyPortID ibc.PortID
	Signer             chain.Signer
}

func (MsgChanOpenInit) Type() string { return "MsgChannelOpenInit" }

type MsgChanOpenTry struct {
	PortID                ibc.PortID
	PreviousChannelID     ibc.ChannelID // set when resuming a partially-opened channel
	CounterpartyPortID    ibc.PortID
	CounterpartyChannelID ibc.ChannelID
	Ordering              ibc.Order
	ConnectionHops        []ibc.ConnectionID
	Version               string
	CounterpartyVersion   string
	ProofInit             chain.Proofs
	Signer                chain.Signer
}

func (MsgChanOpenTry) Type() string { return "MsgChannelOpenTry" }

type MsgChanOpenAck struct {
	PortID                ibc.PortID
	ChannelID             ibc.ChannelID
	CounterpartyChannelID ibc.ChannelID
	CounterpartyVersion   string
	ProofTry              chain.Proofs
	Signer                chain.Signer
}

func (MsgChanOpenAck) Type() string { return "MsgChannelOpenAck" }

type MsgChanOpenConfirm struct {
	PortID    ibc.PortID
	ChannelID ibc.ChannelID
	ProofAck  chain.Proofs
	Signer    chain.Signer
}

func (MsgChanOpenConfirm) Type() string { return "MsgChannelOpenConfirm" }

type MsgChanCloseInit struct {
	PortID    ibc.PortID
	ChannelID ibc.ChannelID
	Signer    chain.Signer
}

func (MsgChanCloseInit) Type() string { return "MsgChannelCloseInit" }

type MsgChanCloseConfirm struct {
	PortID    ibc.PortID
	ChannelID ibc.ChannelID
	ProofInit chain.Proofs
	Signer    chain.Signer
}

func (MsgChanCloseConfirm) Type() string { return "MsgChannelCloseConfirm" }

// ChannelMsgType names the handshake step a message build is validating
// for. ValidatedExpectedChannel maps it to the highest destination state
// acceptable before that step is submitted.
type ChannelMsgType uint8

const (
	ChannelMsgOpenTry ChannelMsgType = iota
	ChannelMsgOpenAck
	ChannelMsgOpenConfirm
	ChannelMsgCloseConfirm
)

func (t ChannelMsgType) String() string {
	switch t {
	case ChannelMsgOpenTry:
		return "OpenTry"
	case ChannelMsgOpenAck:
		return "OpenAck"
	case ChannelMsgOpenConfirm:
		return "OpenConfirm"
	case ChannelMsgCloseConfirm:
		return "CloseConfirm"
	default:
		return "unknown"
	}
}

// extractChannelID pulls the assigned channel id out of the first
// channel-handshake event in events. The submitting chain reports a
// freshly-assigned id only through the tx response event, never through
// the message itself.
func extractChannelID(events []ibc.Event) (ibc.ChannelID, bool) {
	for _, ev := range events {
		switch ev.Type {
		case ibc.EventOpenInitChannel, ibc.EventOpenTryChannel, ibc.EventOpenAckChannel, ibc.EventOpenConfirmChannel:
			if id, ok := ev.Attr("channel_id"); ok && id != "" {
				return ibc.ChannelID(id), true
			}
		}
	}
	return "", false
}

// checkSubmitEvents scans a submit response for a chain-error event, which
// reports an on-chain rejection the transport itself did not surface as an
// error.
func checkSubmitEvents(chainID ibc.ChainID, events []ibc.Event) error {
	for _, ev := range events {
		if ev.Type == ibc.EventChainError {
			reason, _ := ev.Attr("error")
			return errTxResponse(chainID, reason)
		}
	}
	return nil
}
