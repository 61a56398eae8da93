package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaygo/relayer/chain"
	"github.com/relaygo/relayer/config"
	"github.com/relaygo/relayer/ibc"
	"github.com/relaygo/relayer/internal/chainmock"
)

func testConfigs() map[ibc.ChainID]config.ChainConfig {
	return map[ibc.ChainID]config.ChainConfig{
		"chainA": {ID: "chainA", RPCAddr: "tcp://a"},
	}
}

func TestGetOrSpawnUnknownChain(t *testing.T) {
	r := New(testConfigs(), chainmock.Factory(nil))
	_, err := r.GetOrSpawn(context.Background(), "chainZ")
	assert.ErrorIs(t, err, ErrUnknownChain)
}

func TestGetOrSpawnCachesHandle(t *testing.T) {
	var spawns int
	factory := func(_ context.Context, cfg config.ChainConfig) (chain.Handle, error) {
		spawns++
		return chainmock.New(cfg.ID), nil
	}
	r := New(testConfigs(), factory)

	h1, err := r.GetOrSpawn(context.Background(), "chainA")
	require.NoError(t, err)
	h2, err := r.GetOrSpawn(context.Background(), "chainA")
	require.NoError(t, err)

	assert.Same(t, h1, h2)
	assert.Equal(t, 1, spawns)
	assert.True(t, r.Contains("chainA"))
	assert.Equal(t, 1, r.Size())
}

func TestGetOrSpawnDedupsConcurrentCallers(t *testing.T) {
	var spawns int
	var mu sync.Mutex
	factory := func(_ context.Context, cfg config.ChainConfig) (chain.Handle, error) {
		mu.Lock()
		spawns++
		mu.Unlock()
		return chainmock.New(cfg.ID), nil
	}
	r := New(testConfigs(), factory)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.GetOrSpawn(context.Background(), "chainA")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, spawns)
}

func TestShutdown(t *testing.T) {
	r := New(testConfigs(), chainmock.Factory(nil))
	_, err := r.GetOrSpawn(context.Background(), "chainA")
	require.NoError(t, err)

	require.NoError(t, r.Shutdown())
	assert.Equal(t, 0, r.Size())
	assert.Empty(t, r.Chains())
}

func TestAddRemoveConfig(t *testing.T) {
	r := New(testConfigs(), chainmock.Factory(nil))
	r.AddConfig(config.ChainConfig{ID: "chainB", RPCAddr: "tcp://b"})

	h, err := r.GetOrSpawn(context.Background(), "chainB")
	require.NoError(t, err)
	assert.Equal(t, ibc.ChainID("chainB"), h.ChainID())

	require.NoError(t, r.RemoveConfig("chainB"))
	assert.False(t, r.Contains("chainB"))

	_, err = r.GetOrSpawn(context.Background(), "chainB")
	assert.ErrorIs(t, err, ErrUnknownChain)
}
