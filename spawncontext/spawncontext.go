// Package spawncontext implements the one-shot reconciliation scan:
// given one chain, enumerate its clients, connections and channels, and
// seed a worker for every Object the filter policy admits. The same scan
// runs at startup (every configured chain) and on a config reload (just
// the chain that changed) — the two call sites share this package rather
// than duplicating the enumeration logic.
package spawncontext

import (
	"context"

	"go.uber.org/zap"

	"github.com/relaygo/relayer/chain"
	"github.com/relaygo/relayer/config"
	"github.com/relaygo/relayer/filter"
	"github.com/relaygo/relayer/ibc"
	"github.com/relaygo/relayer/logging"
	"github.com/relaygo/relayer/registry"
	"github.com/relaygo/relayer/worker"
	"github.com/relaygo/relayer/workers"
)

// Mode distinguishes a startup scan from a config-reload scan, purely for
// logging — both run the identical enumeration.
type Mode uint8

const (
	Startup Mode = iota
	Reload
)

func (m Mode) String() string {
	if m == Reload {
		return "reload"
	}
	return "startup"
}

// Scan enumerates chainID's clients, connections and channels (each
// gated by its own mode.*.Enabled flag) and seeds a worker for every
// Object the filter policy admits.
func Scan(ctx context.Context, chainID ibc.ChainID, mode config.ModeConfig, reg *registry.Registry, pol *filter.Policy, wm *worker.Map, factories workers.Factories, scanMode Mode) error {
	h, err := reg.GetOrSpawn(ctx, chainID)
	if err != nil {
		return err
	}
	log := logging.ForChain(string(chainID)).With(zap.String("scan", scanMode.String()))

	if mode.Clients.Enabled {
		scanClients(ctx, chainID, h, reg, pol, wm, factories, log)
	}
	if mode.Connections.Enabled {
		scanConnections(ctx, chainID, h, reg, pol, wm, factories, log)
	}
	if mode.Channels.Enabled || mode.Packets.Enabled {
		scanChannels(ctx, chainID, mode, h, reg, pol, wm, factories, log)
	}
	return nil
}

func scanClients(ctx context.Context, chainID ibc.ChainID, h chain.Handle, reg *registry.Registry, pol *filter.Policy, wm *worker.Map, factories workers.Factories, log *zap.Logger) {
	states, _, err := h.QueryClientStates(ctx, ibc.QueryClientStatesRequest{Pagination: ibc.AllPages()})
	if err != nil {
		log.Warn("spawn-context: query client states failed", zap.Error(err))
		return
	}
	for _, cs := range states {
		if pol.ControlClientObject(ctx, chainID, cs.ClientID()) != filter.Allow {
			continue
		}
		obj := ibc.NewClientObject(cs.ChainID(), cs.ClientID(), chainID)
		seed(ctx, reg, wm, factories, obj, log)
	}
}

func scanConnections(ctx context.Context, chainID ibc.ChainID, h chain.Handle, reg *registry.Registry, pol *filter.Policy, wm *worker.Map, factories workers.Factories, log *zap.Logger) {
	conns, _, err := h.QueryConnections(ctx, ibc.QueryConnectionsRequest{Pagination: ibc.AllPages()})
	if err != nil {
		log.Warn("spawn-context: query connections failed", zap.Error(err))
		return
	}
	for _, ic := range conns {
		if pol.ControlConnObject(ctx, chainID, ic.ClientID) != filter.Allow {
			continue
		}
		cs, err := h.QueryClientState(ctx, ibc.QueryClientStateRequest{ClientID: ic.ClientID})
		if err != nil {
			log.Debug("spawn-context: resolve connection client failed", zap.String("connection_id", string(ic.ID)), zap.Error(err))
			continue
		}
		obj := ibc.NewConnectionObject(chainID, ic.ID, cs.ChainID())
		seed(ctx, reg, wm, factories, obj, log)
	}
}

func scanChannels(ctx context.Context, chainID ibc.ChainID, mode config.ModeConfig, h chain.Handle, reg *registry.Registry, pol *filter.Policy, wm *worker.Map, factories workers.Factories, log *zap.Logger) {
	chans, _, err := h.QueryChannels(ctx, ibc.QueryChannelsRequest{Pagination: ibc.AllPages()})
	if err != nil {
		log.Warn("spawn-context: query channels failed", zap.Error(err))
		return
	}
	for _, ic := range chans {
		if len(ic.ConnectionHops) == 0 {
			continue
		}
		conn, err := h.QueryConnection(ctx, ibc.QueryConnectionRequest{ConnectionID: ic.ConnectionHops[0]})
		if err != nil {
			log.Debug("spawn-context: resolve channel connection failed", zap.String("channel_id", string(ic.ChannelID)), zap.Error(err))
			continue
		}
		cs, err := h.QueryClientState(ctx, ibc.QueryClientStateRequest{ClientID: conn.ClientID})
		if err != nil {
			log.Debug("spawn-context: resolve channel client failed", zap.String("channel_id", string(ic.ChannelID)), zap.Error(err))
			continue
		}
		dstChain := cs.ChainID()

		if mode.Channels.Enabled && pol.ControlChanObject(ctx, chainID, ic.PortID, ic.ChannelID, conn.ClientID) == filter.Allow {
			seed(ctx, reg, wm, factories, ibc.NewChannelObject(chainID, ic.ChannelID, ic.PortID, dstChain), log)
		}
		if mode.Packets.Enabled && pol.ControlPacketObject(ctx, chainID, ic.PortID, ic.ChannelID, conn.ClientID) == filter.Allow {
			seed(ctx, reg, wm, factories, ibc.NewPacketObject(chainID, ic.ChannelID, ic.PortID, dstChain), log)
		}
	}
}

func seed(ctx context.Context, reg *registry.Registry, wm *worker.Map, factories workers.Factories, obj ibc.Object, log *zap.Logger) {
	if wm.Contains(obj) {
		return
	}
	src, err := reg.GetOrSpawn(ctx, obj.SrcChain())
	if err != nil {
		log.Warn("spawn-context: src chain spawn failed", zap.String("object", obj.ShortName()), zap.Error(err))
		return
	}
	dst, err := reg.GetOrSpawn(ctx, obj.DstChain())
	if err != nil {
		log.Warn("spawn-context: dst chain spawn failed", zap.String("object", obj.ShortName()), zap.Error(err))
		return
	}
	factory := factories.For(obj.Kind)
	if factory == nil {
		return
	}
	if _, spawned := wm.GetOrSpawn(obj, func(obj ibc.Object) worker.Worker {
		return factory(obj, src, dst)
	}); spawned {
		log.Debug("spawn-context: seeded worker", zap.String("object", obj.ShortName()))
	}
}
