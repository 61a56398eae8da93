package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relaygo/relayer/chain"
	"github.com/relaygo/relayer/command"
	"github.com/relaygo/relayer/config"
	"github.com/relaygo/relayer/filter"
	"github.com/relaygo/relayer/ibc"
	"github.com/relaygo/relayer/internal/chainmock"
	"github.com/relaygo/relayer/spawncontext"
	"github.com/relaygo/relayer/workers"
)

func testConfig(a, b ibc.ChainID) *config.Config {
	mode := config.ModeConfig{
		Clients:     config.ClientsConfig{Enabled: true},
		Connections: config.ConnectionsConfig{Enabled: true},
		Channels:    config.ChannelsConfig{Enabled: true},
		Packets:     config.PacketsConfig{Enabled: true},
	}
	return &config.Config{
		Chains: map[ibc.ChainID]config.ChainConfig{
			a: {ID: a, RPCAddr: "mock://a", Mode: mode},
			b: {ID: b, RPCAddr: "mock://b", Mode: mode},
		},
	}
}

func newTestSupervisor(t *testing.T, chains map[ibc.ChainID]*chainmock.Chain, cfg *config.Config) (*Supervisor, *command.Queue) {
	t.Helper()
	cmds := command.NewQueue()
	factory := chainmock.Factory(chains)
	sup := New(cfg, factory, filter.DefaultTrust, workers.DefaultFactories(), cmds, nil)
	return sup, cmds
}

func runAsync(t *testing.T, sup *Supervisor) (context.CancelFunc, chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()
	return cancel, done
}

func TestRunNoChainsAvailableIsFatal(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{Chains: map[ibc.ChainID]config.ChainConfig{}}
	sup, _ := newTestSupervisor(t, nil, cfg)

	err := sup.Run(context.Background())
	require.ErrorIs(t, err, ErrNoChainsAvailable)
}

func TestRunStartsAndStopsOnCommand(t *testing.T) {
	t.Parallel()
	a := chainmock.New("chainA")
	b := chainmock.New("chainB")
	cfg := testConfig("chainA", "chainB")
	sup, cmds := newTestSupervisor(t, map[ibc.ChainID]*chainmock.Chain{"chainA": a, "chainB": b}, cfg)

	cancel, done := runAsync(t, sup)
	defer cancel()

	reply := make(chan struct{}, 1)
	require.Eventually(t, func() bool {
		cmds.Send(command.NewStop(reply))
		select {
		case <-reply:
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop in time")
	}
}

func TestProcessBatchSpawnsPacketWorkerWithResolvedDestination(t *testing.T) {
	t.Parallel()
	a := chainmock.New("chainA")
	b := chainmock.New("chainB")
	a.SetConnection("connection-0", ibc.ConnectionEnd{ClientID: "client-0"})
	a.SetChannel(ibc.ChannelKey{PortID: "transfer", ChannelID: "channel-0"}, ibc.ChannelEnd{
		State:          ibc.Open,
		ConnectionHops: []ibc.ConnectionID{"connection-0"},
	})
	a.SetClient("client-0", "chainB", ibc.Height{RevisionNumber: 1, RevisionHeight: 5}, false)

	cfg := testConfig("chainA", "chainB")
	sup, _ := newTestSupervisor(t, map[ibc.ChainID]*chainmock.Chain{"chainA": a, "chainB": b}, cfg)

	ctx := context.Background()
	_, err := sup.registry.GetOrSpawn(ctx, "chainA")
	require.NoError(t, err)
	_, err = sup.registry.GetOrSpawn(ctx, "chainB")
	require.NoError(t, err)

	batch := ibc.EventBatch{
		ChainID: "chainA",
		Height:  ibc.Height{RevisionNumber: 1, RevisionHeight: 5},
		Events: []ibc.Event{
			{Type: ibc.EventNewBlock},
			{Type: ibc.EventSendPacket, Raw: []byte(`{"packet_src_port":"transfer","packet_src_channel":"channel-0","packet_dst_port":"transfer","packet_dst_channel":"channel-1"}`)},
		},
	}

	sup.processBatch(ctx, "chainA", batch)

	require.Eventually(t, func() bool {
		return sup.workers.Size() > 0
	}, time.Second, 10*time.Millisecond)

	// The worker key carries the destination chain resolved through the
	// channel's connection client, not the blank the classifier emits.
	obj := ibc.NewPacketObject("chainA", "channel-0", "transfer", "chainB")
	require.True(t, sup.workers.Contains(obj), "packet worker should have been spawned for the send_packet event")
}

func TestEventAndScanSeedTheSameWorker(t *testing.T) {
	t.Parallel()
	a := chainmock.New("chainA")
	b := chainmock.New("chainB")
	a.SetConnection("connection-0", ibc.ConnectionEnd{ClientID: "client-0"})
	a.SetChannel(ibc.ChannelKey{PortID: "transfer", ChannelID: "channel-0"}, ibc.ChannelEnd{
		State:          ibc.Open,
		ConnectionHops: []ibc.ConnectionID{"connection-0"},
	})
	a.SetClient("client-0", "chainB", ibc.Height{RevisionNumber: 1, RevisionHeight: 5}, false)

	cfg := testConfig("chainA", "chainB")
	sup, _ := newTestSupervisor(t, map[ibc.ChainID]*chainmock.Chain{"chainA": a, "chainB": b}, cfg)

	ctx := context.Background()
	require.NoError(t, spawncontext.Scan(ctx, "chainA", cfg.Chains["chainA"].Mode, sup.registry, sup.policy, sup.workers, sup.factories, spawncontext.Startup))
	seeded := sup.workers.Size()
	require.Greater(t, seeded, 0)
	require.True(t, sup.workers.Contains(ibc.NewPacketObject("chainA", "channel-0", "transfer", "chainB")))

	// An event for the scan-seeded channel must route to the existing
	// worker, not mint a second one under a different key.
	batch := ibc.EventBatch{
		ChainID: "chainA",
		Events: []ibc.Event{
			{Type: ibc.EventSendPacket, Raw: []byte(`{"packet_src_port":"transfer","packet_src_channel":"channel-0","packet_dst_port":"transfer","packet_dst_channel":"channel-1"}`)},
		},
	}
	sup.processBatch(ctx, "chainA", batch)
	require.Equal(t, seeded, sup.workers.Size())
}

func TestHandleBatchClearsPendingOnSubscriptionCancelled(t *testing.T) {
	t.Parallel()
	a := chainmock.New("chainA")
	b := chainmock.New("chainB")
	a.SetConnection("connection-0", ibc.ConnectionEnd{ClientID: "client-0"})
	a.SetChannel(ibc.ChannelKey{PortID: "transfer", ChannelID: "channel-0"}, ibc.ChannelEnd{
		State:          ibc.Open,
		ConnectionHops: []ibc.ConnectionID{"connection-0"},
	})
	a.SetClient("client-0", "chainB", ibc.Height{RevisionNumber: 1, RevisionHeight: 5}, false)

	cfg := testConfig("chainA", "chainB")
	sup, _ := newTestSupervisor(t, map[ibc.ChainID]*chainmock.Chain{"chainA": a, "chainB": b}, cfg)

	ctx := context.Background()
	batch := ibc.EventBatch{
		ChainID: "chainA",
		Events: []ibc.Event{
			{Type: ibc.EventSendPacket, Raw: []byte(`{"packet_src_port":"transfer","packet_src_channel":"channel-0","packet_dst_port":"transfer","packet_dst_channel":"channel-1","packet_sequence":"7"}`)},
		},
	}
	sup.processBatch(ctx, "chainA", batch)

	var pw *workers.PacketWorker
	require.Eventually(t, func() bool {
		for _, w := range sup.workers.WorkersForChain("chainA") {
			if p, ok := w.(*workers.PacketWorker); ok && p.Pending() > 0 {
				pw = p
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond, "packet worker should be tracking the send_packet sequence")

	// The cancellation path clears pending packets on the chain's workers
	// instead of routing the batch.
	sup.handleBatch(ctx, "chainA", ibc.EventBatch{Err: chain.ErrSubscriptionCancelled})
	require.Eventually(t, func() bool { return pw.Pending() == 0 }, time.Second, 10*time.Millisecond)
}

func TestUpdateConfigRemovingEveryChainKeepsLoopRunning(t *testing.T) {
	t.Parallel()
	a := chainmock.New("chainA")
	b := chainmock.New("chainB")
	cfg := testConfig("chainA", "chainB")
	sup, cmds := newTestSupervisor(t, map[ibc.ChainID]*chainmock.Chain{"chainA": a, "chainB": b}, cfg)

	cancel, done := runAsync(t, sup)
	defer cancel()

	cmds.Send(command.NewUpdateConfig(command.ConfigUpdate{Kind: command.UpdateRemove, ChainID: "chainA"}))
	cmds.Send(command.NewUpdateConfig(command.ConfigUpdate{Kind: command.UpdateRemove, ChainID: "chainB"}))

	require.Eventually(t, func() bool {
		state := make(chan command.SupervisorState, 1)
		cmds.Send(command.NewDumpState(state))
		select {
		case st := <-state:
			return len(st.Chains) == 0
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	// The loop survives losing every chain; only Stop ends it.
	select {
	case err := <-done:
		t.Fatalf("loop exited prematurely: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	reply := make(chan struct{}, 1)
	cmds.Send(command.NewStop(reply))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop in time")
	}
}

func TestAddThenRemoveChainRestoresState(t *testing.T) {
	t.Parallel()
	a := chainmock.New("chainA")
	b := chainmock.New("chainB")
	c := chainmock.New("chainC")
	cfg := testConfig("chainA", "chainB")
	sup, _ := newTestSupervisor(t, map[ibc.ChainID]*chainmock.Chain{"chainA": a, "chainB": b, "chainC": c}, cfg)

	ctx := context.Background()
	chainsBefore := len(cfg.Chains)
	workersBefore := sup.workers.Size()

	added := sup.addChain(ctx, config.ChainConfig{ID: "chainC", RPCAddr: "mock://c", Mode: cfg.Chains["chainA"].Mode})
	require.True(t, added)
	require.Len(t, cfg.Chains, chainsBefore+1)
	require.True(t, sup.registry.Contains("chainC"))

	removed := sup.removeChain(ctx, "chainC")
	require.True(t, removed)
	require.Len(t, cfg.Chains, chainsBefore)
	require.False(t, sup.registry.Contains("chainC"))
	require.Empty(t, sup.workers.WorkersForChain("chainC"))
	require.Equal(t, workersBefore, sup.workers.Size())
}
