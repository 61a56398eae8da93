// Package ibc holds the identifier, height, event, and object types shared
// by every other package in the relayer, kept dependency-light so it can
// be imported from config, classify, registry, filter, worker, and
// handshake alike without cycles.
package ibc

import "fmt"

// ChainID, ClientID, ConnectionID, PortID and ChannelID are opaque,
// string-backed identifiers. They are distinct named types rather than
// plain strings so that a function signature expecting a ConnectionID
// cannot silently accept a ChannelID.
type (
	ChainID      string
	ClientID     string
	ConnectionID string
	PortID       string
	ChannelID    string
	Sequence     uint64
)

func (c ChainID) String() string      { return string(c) }
func (c ClientID) String() string     { return string(c) }
func (c ConnectionID) String() string { return string(c) }
func (p PortID) String() string       { return string(p) }
func (c ChannelID) String() string    { return string(c) }
func (s Sequence) String() string     { return fmt.Sprintf("%d", uint64(s)) }

// ChannelKey uniquely identifies a channel end on one chain.
type ChannelKey struct {
	PortID    PortID
	ChannelID ChannelID
}

func (k ChannelKey) String() string {
	return fmt.Sprintf("%s/%s", k.PortID, k.ChannelID)
}
