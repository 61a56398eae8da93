// Package supervisor implements the relayer's top-level event loop: it
// owns the registry, worker map and filter policy, fans in every
// configured chain's event subscription, classifies and routes each
// batch, and drains the command queue. One goroutine polls
// subscriptions, commands, an optional REST intake and a tick; since
// that goroutine is the only writer of config/registry/workers/filter,
// no reader/writer locking is needed around them here.
package supervisor

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/relaygo/relayer/chain"
	"github.com/relaygo/relayer/classify"
	"github.com/relaygo/relayer/command"
	"github.com/relaygo/relayer/config"
	"github.com/relaygo/relayer/filter"
	"github.com/relaygo/relayer/ibc"
	"github.com/relaygo/relayer/logging"
	"github.com/relaygo/relayer/registry"
	"github.com/relaygo/relayer/rest"
	"github.com/relaygo/relayer/spawncontext"
	"github.com/relaygo/relayer/worker"
	"github.com/relaygo/relayer/workers"
)

// tick is the loop's idle sleep between non-blocking poll rounds.
const tick = 50 * time.Millisecond

// ErrNoChainsAvailable is fatal at startup; mid-loop, a config change
// that would leave no chains keeps the old subscription set instead.
var ErrNoChainsAvailable = errors.New("supervisor: no chains available")

type subscription struct {
	chainID ibc.ChainID
	ch      <-chan ibc.EventBatch
}

// Supervisor is one relayer process's coordinator. The zero value isn't
// usable; build one with New.
type Supervisor struct {
	cfg       *config.Config
	registry  *registry.Registry
	workers   *worker.Map
	policy    *filter.Policy
	factories workers.Factories

	cmds *command.Queue
	rest *rest.Server

	log  *zap.Logger
	subs []subscription
}

// New builds a Supervisor from cfg. factory mints chain.Handle instances;
// trust customizes the filter policy's client-trust rule (nil selects
// filter.DefaultTrust).
func New(cfg *config.Config, factory chain.Factory, trust filter.TrustFunc, factories workers.Factories, cmds *command.Queue, restServer *rest.Server) *Supervisor {
	reg := registry.New(cfg.Chains, factory)
	filters := make(map[ibc.ChainID]config.FilterConfig, len(cfg.Chains))
	for id, cc := range cfg.Chains {
		filters[id] = cc.Mode.Packets.Filter
	}
	var pol *filter.Policy
	if trust != nil {
		pol = filter.NewWithTrust(reg, filters, trust)
	} else {
		pol = filter.New(reg, filters)
	}
	return &Supervisor{
		cfg:       cfg,
		registry:  reg,
		workers:   worker.NewMap(),
		policy:    pol,
		factories: factories,
		cmds:      cmds,
		rest:      restServer,
		log:       logging.L().With(zap.String("component", "supervisor")),
	}
}

// Run starts the loop: health check, spawn-context scan, subscribe,
// then step until a Stop command arrives or ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	s.healthCheckAll(ctx)

	for id := range s.cfg.Chains {
		if err := spawncontext.Scan(ctx, id, s.cfg.Chains[id].Mode, s.registry, s.policy, s.workers, s.factories, spawncontext.Startup); err != nil {
			s.log.Warn("spawn-context scan failed", zap.String("chain_id", string(id)), zap.Error(err))
		}
	}

	if err := s.initSubscriptions(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			s.workers.Shutdown()
			return ctx.Err()
		default:
		}

		stop, err := s.runStep(ctx)
		if err != nil {
			return err
		}
		if stop {
			s.workers.Shutdown()
			return nil
		}
		time.Sleep(tick)
	}
}

// healthCheckLimit bounds how many health-check RPCs the startup health
// check issues per second across all chains. The checks run one after
// another, so a HealthCheck that blocks delays the checks after it.
const healthCheckLimit = 5

func (s *Supervisor) healthCheckAll(ctx context.Context) {
	limiter := rate.NewLimiter(rate.Limit(healthCheckLimit), 1)
	for id := range s.cfg.Chains {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		h, err := s.registry.GetOrSpawn(ctx, id)
		if err != nil {
			s.log.Warn("health check: spawn failed", zap.String("chain_id", string(id)), zap.Error(err))
			continue
		}
		status, err := h.HealthCheck(ctx)
		if err != nil || status != chain.Healthy {
			s.log.Warn("health check: unhealthy", zap.String("chain_id", string(id)), zap.Error(err))
		}
	}
}

// initSubscriptions builds a fresh subscription set from the current
// config, replacing s.subs wholesale rather than mutating it in place. A
// chain that fails to spawn or subscribe is skipped and logged; if none
// succeed, it's ErrNoChainsAvailable.
func (s *Supervisor) initSubscriptions(ctx context.Context) error {
	subs := make([]subscription, 0, len(s.cfg.Chains))
	for id := range s.cfg.Chains {
		h, err := s.registry.GetOrSpawn(ctx, id)
		if err != nil {
			s.log.Error("init subscriptions: spawn failed", zap.String("chain_id", string(id)), zap.Error(err))
			continue
		}
		ch, err := h.Subscribe(ctx)
		if err != nil {
			s.log.Error("init subscriptions: subscribe failed", zap.String("chain_id", string(id)), zap.Error(err))
			continue
		}
		subs = append(subs, subscription{chainID: id, ch: ch})
	}
	if len(subs) == 0 {
		return ErrNoChainsAvailable
	}
	s.subs = subs
	return nil
}

// runStep is one poll round: at most one ready batch, then at most one
// ready command, then at most one REST request.
// stop reports whether a Stop command was processed.
func (s *Supervisor) runStep(ctx context.Context) (stop bool, err error) {
	if chainID, batch, ok := s.pollSubscriptions(); ok {
		s.handleBatch(ctx, chainID, batch)
	}

	if cmd, ok := s.cmds.TryRecv(); ok {
		stop, err = s.handleCommand(ctx, cmd)
		if err != nil {
			return false, err
		}
		if stop {
			return true, nil
		}
	}

	if s.rest != nil {
		select {
		case req := <-s.rest.Requests():
			s.replyState(req)
		default:
		}
	}

	return false, nil
}

// pollSubscriptions is a non-blocking multi-receive: every subscription
// gets one non-blocking receive per step, in order, and the first ready
// batch wins. Preserving iteration order across steps (rather than e.g.
// randomizing it) keeps behaviour deterministic for tests; it does not
// imply any fairness guarantee across chains under sustained load.
func (s *Supervisor) pollSubscriptions() (ibc.ChainID, ibc.EventBatch, bool) {
	for _, sub := range s.subs {
		select {
		case batch, ok := <-sub.ch:
			if !ok {
				continue
			}
			return sub.chainID, batch, true
		default:
		}
	}
	return "", ibc.EventBatch{}, false
}

// handleBatch dispatches one received batch: a cancelled-subscription
// monitor error clears pending packets on every
// worker for that chain instead of being routed; any other batch error is
// logged only.
func (s *Supervisor) handleBatch(ctx context.Context, chainID ibc.ChainID, batch ibc.EventBatch) {
	if batch.Err != nil {
		if errors.Is(batch.Err, chain.ErrSubscriptionCancelled) {
			for _, w := range s.workers.ToNotify(chainID) {
				w.ClearPendingPackets()
			}
			return
		}
		s.log.Error("event batch error", zap.String("chain_id", string(chainID)), zap.Error(batch.Err))
		return
	}
	s.processBatch(ctx, chainID, batch)
}

// processBatch classifies, broadcasts NewBlock, then routes each object's events to its worker,
// filtering first so a denied object never causes a registry spawn.
func (s *Supervisor) processBatch(ctx context.Context, chainID ibc.ChainID, batch ibc.EventBatch) {
	if batch.ChainID != chainID {
		s.log.Error("batch chain id mismatch", zap.String("expected", string(chainID)), zap.String("got", string(batch.ChainID)))
		return
	}

	mode := s.cfg.Chains[chainID].Mode
	collected := classify.CollectEvents(batch, mode, s.workers.Contains)

	if collected.NewBlock {
		for _, w := range s.workers.ToNotify(chainID) {
			w.SendNewBlock(collected.Height)
		}
	}

	for obj, events := range collected.PerObject {
		resolved, ok := s.admitAndResolve(ctx, obj)
		if !ok {
			s.log.Debug("process batch: object denied or unresolved", zap.String("object", obj.ShortName()))
			continue
		}

		src, err := s.registry.GetOrSpawn(ctx, resolved.SrcChain())
		if err != nil {
			s.log.Warn("process batch: src spawn failed", zap.String("object", resolved.ShortName()), zap.Error(err))
			continue
		}
		dst, err := s.registry.GetOrSpawn(ctx, resolved.DstChain())
		if err != nil {
			s.log.Warn("process batch: dst spawn failed", zap.String("object", resolved.ShortName()), zap.Error(err))
			continue
		}

		factory := s.factories.For(resolved.Kind)
		if factory == nil {
			continue
		}
		w, _ := s.workers.GetOrSpawn(resolved, func(obj ibc.Object) worker.Worker {
			return factory(obj, src, dst)
		})
		w.SendEvents(events)
	}
}

// admitAndResolve consults the filter policy entrypoint for obj's kind
// and, for the connection/channel/packet objects the classifier keys with
// a blank destination, fills the destination chain in by walking
// channel → connection → client state — the same walk spawncontext's scan
// does, so an event-driven spawn and a scan-seeded worker key the map
// identically. The cheap channel allowlist check runs before any
// client-state query. An object whose destination cannot be resolved is
// dropped: there is no chain to spawn a worker against.
func (s *Supervisor) admitAndResolve(ctx context.Context, obj ibc.Object) (ibc.Object, bool) {
	switch obj.Kind {
	case ibc.ObjectClient:
		if s.policy.ControlClientObject(ctx, obj.SrcChainID, obj.DstClientID) != filter.Allow {
			return obj, false
		}
		return obj, obj.DstChainID != ""

	case ibc.ObjectConnection:
		clientID, ok := s.resolveConnectionClient(ctx, obj.SrcChainID, obj.SrcConnectionID)
		if !ok {
			return obj, false
		}
		if s.policy.ControlConnObject(ctx, obj.SrcChainID, clientID) != filter.Allow {
			return obj, false
		}
		return s.fillDst(ctx, obj, clientID)

	case ibc.ObjectChannel, ibc.ObjectPacket:
		if !s.policy.AllowsChannel(obj.SrcChainID, obj.SrcPortID, obj.SrcChannelID) {
			return obj, false
		}
		clientID, ok := s.resolveChannelClient(ctx, obj.SrcChainID, obj.SrcPortID, obj.SrcChannelID)
		if !ok {
			return obj, false
		}
		if obj.Kind == ibc.ObjectChannel {
			if s.policy.ControlChanObject(ctx, obj.SrcChainID, obj.SrcPortID, obj.SrcChannelID, clientID) != filter.Allow {
				return obj, false
			}
		} else if s.policy.ControlPacketObject(ctx, obj.SrcChainID, obj.SrcPortID, obj.SrcChannelID, clientID) != filter.Allow {
			return obj, false
		}
		return s.fillDst(ctx, obj, clientID)

	default:
		return obj, false
	}
}

// fillDst resolves the chain that clientID on srcChain tracks and pins it
// as obj's destination. A no-op when the destination is already known
// (scan-seeded objects arrive resolved).
func (s *Supervisor) fillDst(ctx context.Context, obj ibc.Object, clientID ibc.ClientID) (ibc.Object, bool) {
	if obj.DstChainID != "" {
		return obj, true
	}
	h, err := s.registry.GetOrSpawn(ctx, obj.SrcChainID)
	if err != nil {
		return obj, false
	}
	cs, err := h.QueryClientState(ctx, ibc.QueryClientStateRequest{ClientID: clientID})
	if err != nil {
		return obj, false
	}
	obj.DstChainID = cs.ChainID()
	return obj, true
}

// resolveConnectionClient queries srcChain for the client id a connection
// resolves to, needed because classify.CollectEvents only has the
// connection id a connection-handshake event carries, not the client id
// the filter policy consults.
func (s *Supervisor) resolveConnectionClient(ctx context.Context, srcChain ibc.ChainID, connID ibc.ConnectionID) (ibc.ClientID, bool) {
	h, err := s.registry.GetOrSpawn(ctx, srcChain)
	if err != nil {
		return "", false
	}
	conn, err := h.QueryConnection(ctx, ibc.QueryConnectionRequest{ConnectionID: connID})
	if err != nil {
		return "", false
	}
	return conn.ClientID, true
}

// resolveChannelClient walks channel -> connection -> client the same way
// spawncontext.scanChannels does, so an event-driven admission check uses
// the same client id a startup scan would have found.
func (s *Supervisor) resolveChannelClient(ctx context.Context, srcChain ibc.ChainID, portID ibc.PortID, channelID ibc.ChannelID) (ibc.ClientID, bool) {
	h, err := s.registry.GetOrSpawn(ctx, srcChain)
	if err != nil {
		return "", false
	}
	ch, err := h.QueryChannel(ctx, ibc.QueryChannelRequest{PortID: portID, ChannelID: channelID})
	if err != nil || len(ch.ConnectionHops) == 0 {
		return "", false
	}
	return s.resolveConnectionClient(ctx, srcChain, ch.ConnectionHops[0])
}

func (s *Supervisor) replyState(req rest.Request) {
	state := s.dumpState()
	select {
	case req.Reply <- state:
	default:
	}
}

func (s *Supervisor) dumpState() command.SupervisorState {
	return command.SupervisorState{
		Chains:  s.registry.Chains(),
		Objects: s.workers.Objects(),
	}
}
