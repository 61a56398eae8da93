package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaygo/relayer/chain"
	"github.com/relaygo/relayer/config"
	"github.com/relaygo/relayer/ibc"
	"github.com/relaygo/relayer/internal/chainmock"
	"github.com/relaygo/relayer/registry"
)

func setup(t *testing.T) (*Policy, *chainmock.Chain) {
	t.Helper()
	c := chainmock.New("chainA")
	c.SetClient("07-tendermint-0", "chainB", ibc.Height{RevisionNumber: 1, RevisionHeight: 10}, false)
	c.SetClient("07-tendermint-1", "chainC", ibc.Height{RevisionNumber: 1, RevisionHeight: 10}, true)

	reg := registry.New(map[ibc.ChainID]config.ChainConfig{"chainA": {ID: "chainA", RPCAddr: "x"}},
		chainmock.Factory(map[ibc.ChainID]*chainmock.Chain{"chainA": c}))

	p := New(reg, map[ibc.ChainID]config.FilterConfig{
		"chainA": {Policy: true, Channels: []config.ChannelFilterEntry{{PortID: "transfer", ChannelID: "channel-0"}}},
	})
	return p, c
}

func TestControlClientObjectAllowsHealthyClient(t *testing.T) {
	p, _ := setup(t)
	assert.Equal(t, Allow, p.ControlClientObject(context.Background(), "chainA", "07-tendermint-0"))
}

func TestControlClientObjectDeniesFrozenClient(t *testing.T) {
	p, _ := setup(t)
	assert.Equal(t, Deny, p.ControlClientObject(context.Background(), "chainA", "07-tendermint-1"))
}

func TestControlClientObjectDeniesUnknownClient(t *testing.T) {
	p, _ := setup(t)
	assert.Equal(t, Deny, p.ControlClientObject(context.Background(), "chainA", "does-not-exist"))
}

func TestCheckClientIsMemoized(t *testing.T) {
	p, c := setup(t)
	assert.Equal(t, Allow, p.ControlClientObject(context.Background(), "chainA", "07-tendermint-0"))

	c.SetClient("07-tendermint-0", "chainB", ibc.Height{RevisionNumber: 1, RevisionHeight: 10}, true)
	// Cached verdict still wins until invalidated.
	assert.Equal(t, Allow, p.ControlClientObject(context.Background(), "chainA", "07-tendermint-0"))

	p.InvalidateClient("chainA", "07-tendermint-0")
	assert.Equal(t, Deny, p.ControlClientObject(context.Background(), "chainA", "07-tendermint-0"))
}

func TestControlChanObjectDeniedByAllowlistSkipsClientQuery(t *testing.T) {
	p, _ := setup(t)
	perm := p.ControlChanObject(context.Background(), "chainA", "transfer", "channel-9", "07-tendermint-1")
	require.Equal(t, Deny, perm)

	// The denied channel's client must not have been queried/cached.
	p.mu.Lock()
	_, cached := p.cache[cacheKey{"chainA", "07-tendermint-1"}]
	p.mu.Unlock()
	assert.False(t, cached)
}

func TestControlChanObjectAllowedByAllowlistAndHealthyClient(t *testing.T) {
	p, _ := setup(t)
	perm := p.ControlChanObject(context.Background(), "chainA", "transfer", "channel-0", "07-tendermint-0")
	assert.Equal(t, Allow, perm)
}

func TestNoFilterConfiguredAllowsAnyChannel(t *testing.T) {
	c := chainmock.New("chainB")
	c.SetClient("07-tendermint-0", "chainA", ibc.Height{RevisionNumber: 1, RevisionHeight: 1}, false)
	reg := registry.New(map[ibc.ChainID]config.ChainConfig{"chainB": {ID: "chainB", RPCAddr: "x"}},
		chainmock.Factory(map[ibc.ChainID]*chainmock.Chain{"chainB": c}))
	p := New(reg, map[ibc.ChainID]config.FilterConfig{})

	perm := p.ControlPacketObject(context.Background(), "chainB", "transfer", "channel-123", "07-tendermint-0")
	assert.Equal(t, Allow, perm)
}

var _ chain.ClientState = (*fakeClientState)(nil)

type fakeClientState struct{}

func (fakeClientState) ClientID() ibc.ClientID   { return "" }
func (fakeClientState) ChainID() ibc.ChainID     { return "" }
func (fakeClientState) LatestHeight() ibc.Height { return ibc.Height{} }
func (fakeClientState) IsFrozen() bool           { return false }
