package chainsol_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solairdrop/chainsol"
	"solairdrop/chainsol/stub"
)

func TestResolveNetwork(t *testing.T) {
	tests := []struct {
		explicit string
		url      string
		want     string
	}{
		{"", "https://api.devnet.solana.com", chainsol.NetworkDevnet},
		{"", "https://api.testnet.solana.com", chainsol.NetworkTestnet},
		{"", "https://api.mainnet-beta.solana.com", chainsol.NetworkMainnet},
		{"", "https://solana-mainnet.g.alchemy.com/v2/key", chainsol.NetworkMainnet},
		{"", "http://localhost:8899", chainsol.NetworkLocalnet},
		// explicit setting wins over a misleading URL
		{"mainnet", "https://my-devnet-proxy.example.com", chainsol.NetworkMainnet},
		{"Devnet", "https://rpc.example.com", chainsol.NetworkDevnet},
		{"custom", "https://rpc.example.com", chainsol.NetworkLocalnet},
	}
	for _, tt := range tests {
		got, err := chainsol.ResolveNetwork(tt.explicit, tt.url)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%q %q", tt.explicit, tt.url)
	}

	_, err := chainsol.ResolveNetwork("betanet", "")
	assert.Error(t, err)
}

func TestGetExplorerURL(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		network string
		rpcURL  string
		want    string
	}{
		{"devnet", "", "https://explorer.solana.com/tx/SIG?cluster=devnet"},
		{"testnet", "", "https://explorer.solana.com/tx/SIG?cluster=testnet"},
		{"mainnet-beta", "", "https://explorer.solana.com/tx/SIG"},
		{"", "http://localhost:8899", "https://explorer.solana.com/tx/SIG?cluster=custom&customUrl=http%3A%2F%2Flocalhost%3A8899"},
	}
	for _, tt := range tests {
		chain, err := chainsol.NewSolChain(ctx, chainsol.Config{RPCURL: tt.rpcURL, Network: tt.network}, chainsol.WithRPC(stub.New()))
		require.NoError(t, err)
		assert.Equal(t, tt.want, chain.GetExplorerURL("SIG"))
	}
}

func TestNewSolChain_RequiresURL(t *testing.T) {
	_, err := chainsol.NewSolChain(context.Background(), chainsol.Config{})
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	ledger := stub.New()
	chain, err := chainsol.NewSolChain(context.Background(), chainsol.Config{Network: "devnet"}, chainsol.WithRPC(ledger))
	require.NoError(t, err)

	require.NoError(t, chain.HealthCheck(context.Background()))
	assert.Equal(t, 1, ledger.Calls("getHealth"))
}

func TestPool_CachesPerConfig(t *testing.T) {
	ledger := stub.New()
	pool := chainsol.NewPool(chainsol.WithRPC(ledger))
	defer pool.Close()
	ctx := context.Background()

	a, err := pool.Connect(ctx, chainsol.Config{RPCURL: "https://api.devnet.solana.com"})
	require.NoError(t, err)
	b, err := pool.Connect(ctx, chainsol.Config{RPCURL: "https://api.devnet.solana.com"})
	require.NoError(t, err)
	c, err := pool.Connect(ctx, chainsol.Config{RPCURL: "https://api.testnet.solana.com"})
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, pool.Len())

	_, err = pool.Connect(ctx, chainsol.Config{RPCURL: "x", Network: "nope"})
	assert.Error(t, err)
	assert.Equal(t, 2, pool.Len())
}
