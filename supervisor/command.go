package supervisor

import (
	"context"

	"go.uber.org/zap"

	"github.com/relaygo/relayer/command"
	"github.com/relaygo/relayer/config"
	"github.com/relaygo/relayer/ibc"
	"github.com/relaygo/relayer/spawncontext"
)

// handleCommand dispatches one control command. stop reports KindStop.
func (s *Supervisor) handleCommand(ctx context.Context, cmd command.Cmd) (stop bool, err error) {
	log := s.log.With(zap.Stringer("cmd_id", cmd.ID))
	log.Debug("dispatching command", zap.Uint8("kind", uint8(cmd.Kind)))
	defer func() { log.Debug("command handled", zap.Bool("stop", stop)) }()

	switch cmd.Kind {
	case command.KindUpdateConfig:
		changed := s.applyConfigUpdate(ctx, cmd.Update)
		if changed {
			if subErr := s.initSubscriptions(ctx); subErr != nil {
				if subErr == ErrNoChainsAvailable {
					s.log.Warn("update config: no chains available, keeping previous subscriptions")
				} else {
					return false, subErr
				}
			}
		}
		return false, nil

	case command.KindDumpState:
		state := s.dumpState()
		if cmd.ReplyState != nil {
			select {
			case cmd.ReplyState <- state:
			default:
			}
		}
		return false, nil

	case command.KindStop:
		if cmd.ReplyStop != nil {
			select {
			case cmd.ReplyStop <- struct{}{}:
			default:
			}
		}
		return true, nil

	default:
		return false, nil
	}
}

// applyConfigUpdate mutates config/registry/workers for one
// ConfigUpdate and reports whether anything actually changed (i.e.
// whether subscriptions need rebuilding).
func (s *Supervisor) applyConfigUpdate(ctx context.Context, u command.ConfigUpdate) bool {
	switch u.Kind {
	case command.UpdateAdd:
		return s.addChain(ctx, u.Chain)
	case command.UpdateRemove:
		return s.removeChain(ctx, u.ChainID)
	case command.UpdateUpdate:
		removed := s.removeChain(ctx, u.Chain.ID)
		added := s.addChain(ctx, u.Chain)
		return removed || added
	default:
		return false
	}
}

// addChain handles an Add update: no-op if already configured;
// otherwise register the config, try to spawn the handle, and roll back
// on failure so a bad chain config never leaves a half-added entry
// behind.
func (s *Supervisor) addChain(ctx context.Context, cc config.ChainConfig) bool {
	if _, ok := s.cfg.Chains[cc.ID]; ok {
		return false
	}

	s.cfg.Chains[cc.ID] = cc
	s.registry.AddConfig(cc)

	if _, err := s.registry.GetOrSpawn(ctx, cc.ID); err != nil {
		s.log.Error("add chain: spawn failed, rolling back", zap.String("chain_id", string(cc.ID)), zap.Error(err))
		delete(s.cfg.Chains, cc.ID)
		_ = s.registry.RemoveConfig(cc.ID)
		return false
	}

	s.policy.SetFilter(cc.ID, cc.Mode.Packets.Filter)

	if err := spawncontext.Scan(ctx, cc.ID, cc.Mode, s.registry, s.policy, s.workers, s.factories, spawncontext.Reload); err != nil {
		s.log.Warn("add chain: spawn-context scan failed", zap.String("chain_id", string(cc.ID)), zap.Error(err))
	}
	return true
}

// removeChain handles a Remove update: no-op if absent; otherwise drop
// the config, shut down the chain's workers, then shut down its handle —
// in that order, so no worker is left holding a handle past its
// shutdown.
func (s *Supervisor) removeChain(_ context.Context, id ibc.ChainID) bool {
	if _, ok := s.cfg.Chains[id]; !ok {
		return false
	}
	delete(s.cfg.Chains, id)

	s.workers.ShutdownChain(id)

	if err := s.registry.RemoveConfig(id); err != nil {
		s.log.Error("remove chain: handle shutdown failed", zap.String("chain_id", string(id)), zap.Error(err))
	}
	return true
}
