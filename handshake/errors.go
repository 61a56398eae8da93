package handshake

import (
	"fmt"

	"github.com/relaygo/relayer/ibc"
)

// Error is the channel driver's error type. Every failure mode names
// whether the supervisor should retry the handshake step that produced it
// — a query timeout is retryable, a channel found in an unexpected state
// the driver doesn't know how to progress from is not.
type Error struct {
	Kind    ErrorKind
	Message string
	Source  error
}

type ErrorKind uint8

const (
	ErrKindQuery ErrorKind = iota
	ErrKindSubmit
	ErrKindTxResponse
	ErrKindMissingEvent
	ErrKindInvalidEvent
	ErrKindMissingCounterpartyConnection
	ErrKindMissingCounterpartyChannelID
	ErrKindMissingLocalChannelID
	ErrKindMissingConnectionHops
	ErrKindMismatchPort
	ErrKindChannelAlreadyExist
	ErrKindMissingChannelOnDestination
	ErrKindPartialOpenHandshake
	ErrKindMaxRetry
)

func (e *Error) Error() string {
	if e.Source != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Source)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Source }

// Retryable reports whether the supervisor should schedule another
// handshake attempt after this error. Query/submit failures, on-chain
// rejections, a missing response event, and a partially-progressed
// handshake (one more step needed) are retryable; structural problems
// like a mismatched port or a missing connection are not, since retrying
// without config or chain-state changes would just fail the same way.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case ErrKindQuery, ErrKindSubmit, ErrKindTxResponse, ErrKindMissingEvent, ErrKindPartialOpenHandshake, ErrKindMaxRetry:
		return true
	default:
		return false
	}
}

func errQuery(chainID ibc.ChainID, source error) *Error {
	return &Error{Kind: ErrKindQuery, Message: fmt.Sprintf("query failed on %s", chainID), Source: source}
}

func errSubmit(chainID ibc.ChainID, source error) *Error {
	return &Error{Kind: ErrKindSubmit, Message: fmt.Sprintf("submit failed on %s", chainID), Source: source}
}

func errTxResponse(chainID ibc.ChainID, reason string) *Error {
	return &Error{Kind: ErrKindTxResponse, Message: fmt.Sprintf("%s rejected the transaction: %s", chainID, reason)}
}

func errMissingEvent(reason string) *Error {
	return &Error{Kind: ErrKindMissingEvent, Message: fmt.Sprintf("missing event in response: %s", reason)}
}

func errInvalidEvent(evType ibc.EventType) *Error {
	return &Error{Kind: ErrKindInvalidEvent, Message: fmt.Sprintf("event %s does not carry channel attributes", evType)}
}

func errMissingCounterpartyConnection() *Error {
	return &Error{Kind: ErrKindMissingCounterpartyConnection, Message: "counterparty connection id not yet known"}
}

func errMissingCounterpartyChannelID() *Error {
	return &Error{Kind: ErrKindMissingCounterpartyChannelID, Message: "counterparty channel id not yet known"}
}

func errMissingLocalChannelID() *Error {
	return &Error{Kind: ErrKindMissingLocalChannelID, Message: "local channel id not yet known"}
}

func errMissingConnectionHops(channelID ibc.ChannelID, chainID ibc.ChainID) *Error {
	return &Error{Kind: ErrKindMissingConnectionHops, Message: fmt.Sprintf("channel %s on %s has no connection hops", channelID, chainID)}
}

func errMismatchPort(chainID ibc.ChainID, got, want ibc.PortID) *Error {
	return &Error{Kind: ErrKindMismatchPort, Message: fmt.Sprintf("channel on %s is bound to port %s, not %s", chainID, got, want)}
}

func errChannelAlreadyExist(channelID ibc.ChannelID) *Error {
	return &Error{Kind: ErrKindChannelAlreadyExist, Message: fmt.Sprintf("channel %s already exists with a different shape", channelID)}
}

func errMissingChannelOnDestination() *Error {
	return &Error{Kind: ErrKindMissingChannelOnDestination, Message: "expected channel does not exist on destination"}
}

func errPartialOpenHandshake(wantA, wantB ibc.State) *Error {
	return &Error{Kind: ErrKindPartialOpenHandshake, Message: fmt.Sprintf("channel not yet progressed to (%s, %s)", wantA, wantB)}
}

func errMaxRetry(description string, source error) *Error {
	return &Error{Kind: ErrKindMaxRetry, Message: description, Source: source}
}
