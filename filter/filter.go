// Package filter implements the packet/channel/connection/client
// admission policy: before the supervisor will spawn a worker for an
// Object, the policy must grant it Permission. Cheap local checks run
// first; the trust decision behind them is cached so repeated checks for
// the same key don't re-hit the network.
package filter

import (
	"context"
	"sync"

	"github.com/relaygo/relayer/chain"
	"github.com/relaygo/relayer/config"
	"github.com/relaygo/relayer/ibc"
	"github.com/relaygo/relayer/registry"
)

// Permission is the cached verdict for one (chain, client) pair.
type Permission uint8

const (
	Deny Permission = iota
	Allow
)

// TrustFunc decides whether a queried client state should be trusted. The
// default, DefaultTrust, denies only frozen clients; callers that need
// stricter rules (e.g. an expected-chain allowlist) can supply their own.
type TrustFunc func(cs chain.ClientState) bool

// DefaultTrust allows any client state that isn't frozen.
func DefaultTrust(cs chain.ClientState) bool { return !cs.IsFrozen() }

type cacheKey struct {
	chainID  ibc.ChainID
	clientID ibc.ClientID
}

// Policy is the stateful filter: a client-trust cache plus the static
// per-chain channel allowlists pulled from config.
type Policy struct {
	registry *registry.Registry
	trust    TrustFunc

	mu    sync.Mutex
	cache map[cacheKey]Permission

	filterMu sync.RWMutex
	filters  map[ibc.ChainID]config.FilterConfig
}

// New builds a Policy over the given registry, using DefaultTrust.
func New(reg *registry.Registry, filters map[ibc.ChainID]config.FilterConfig) *Policy {
	return NewWithTrust(reg, filters, DefaultTrust)
}

// NewWithTrust builds a Policy with a custom trust function.
func NewWithTrust(reg *registry.Registry, filters map[ibc.ChainID]config.FilterConfig, trust TrustFunc) *Policy {
	return &Policy{
		registry: reg,
		trust:    trust,
		cache:    make(map[cacheKey]Permission),
		filters:  filters,
	}
}

// SetFilter replaces the channel allowlist for one chain, used on config
// reload.
func (p *Policy) SetFilter(chainID ibc.ChainID, f config.FilterConfig) {
	p.filterMu.Lock()
	defer p.filterMu.Unlock()
	p.filters[chainID] = f
}

// InvalidateClient drops a cached verdict, forcing the next check for that
// (chain, client) pair to re-query.
func (p *Policy) InvalidateClient(chainID ibc.ChainID, clientID ibc.ClientID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cache, cacheKey{chainID, clientID})
}

// ControlClientObject decides whether client updates on srcChain for
// clientID may spawn a client worker.
func (p *Policy) ControlClientObject(ctx context.Context, srcChain ibc.ChainID, clientID ibc.ClientID) Permission {
	return p.checkClient(ctx, srcChain, clientID)
}

// ControlConnObject decides whether a connection handshake on srcChain
// resolving to clientID may spawn a connection worker.
func (p *Policy) ControlConnObject(ctx context.Context, srcChain ibc.ChainID, clientID ibc.ClientID) Permission {
	return p.checkClient(ctx, srcChain, clientID)
}

// ControlChanObject decides whether a channel whose connection resolves to
// clientID on srcChain may spawn a channel worker. portID/channelID are
// checked against the chain's allowlist first, before any client-state
// query is issued, so a denied channel never costs a network round trip.
func (p *Policy) ControlChanObject(ctx context.Context, srcChain ibc.ChainID, portID ibc.PortID, channelID ibc.ChannelID, clientID ibc.ClientID) Permission {
	if !p.allowsChannel(srcChain, portID, channelID) {
		return Deny
	}
	return p.checkClient(ctx, srcChain, clientID)
}

// ControlPacketObject decides whether a packet on the given channel of
// srcChain, whose connection resolves to clientID, may spawn a packet
// worker. Same allowlist-before-client-query ordering as ControlChanObject.
func (p *Policy) ControlPacketObject(ctx context.Context, srcChain ibc.ChainID, portID ibc.PortID, channelID ibc.ChannelID, clientID ibc.ClientID) Permission {
	if !p.allowsChannel(srcChain, portID, channelID) {
		return Deny
	}
	return p.checkClient(ctx, srcChain, clientID)
}

// AllowsChannel is the public form of the cheap channel-id allowlist
// check, exposed so callers resolving an Object's client id (a query)
// can skip that query entirely when the allowlist alone already denies.
func (p *Policy) AllowsChannel(chainID ibc.ChainID, portID ibc.PortID, channelID ibc.ChannelID) bool {
	return p.allowsChannel(chainID, portID, channelID)
}

func (p *Policy) allowsChannel(chainID ibc.ChainID, portID ibc.PortID, channelID ibc.ChannelID) bool {
	p.filterMu.RLock()
	f, ok := p.filters[chainID]
	p.filterMu.RUnlock()
	if !ok {
		return true
	}
	return f.Allows(portID, channelID)
}

func (p *Policy) checkClient(ctx context.Context, chainID ibc.ChainID, clientID ibc.ClientID) Permission {
	key := cacheKey{chainID, clientID}

	p.mu.Lock()
	if perm, ok := p.cache[key]; ok {
		p.mu.Unlock()
		return perm
	}
	p.mu.Unlock()

	perm := p.resolve(ctx, chainID, clientID)

	p.mu.Lock()
	p.cache[key] = perm
	p.mu.Unlock()
	return perm
}

func (p *Policy) resolve(ctx context.Context, chainID ibc.ChainID, clientID ibc.ClientID) Permission {
	h, err := p.registry.GetOrSpawn(ctx, chainID)
	if err != nil {
		return Deny
	}
	cs, err := h.QueryClientState(ctx, ibc.QueryClientStateRequest{ClientID: clientID})
	if err != nil {
		return Deny
	}
	if p.trust(cs) {
		return Allow
	}
	return Deny
}
