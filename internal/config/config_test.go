package config_test

import (
	"math/big"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/witnet/ethrpc-gateway/internal/config"
)

func clearEnv(t *testing.T, keys ...string) {
	for _, k := range keys {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func TestLoadRequiresAWalletSource(t *testing.T) {
	clearEnv(t, "ETHRPC_SEED_PHRASE", "ETHRPC_PRIVATE_KEYS")
	_, err := config.Load()
	require.Error(t, err)
}

func TestLoadDefaultsBackendConfig(t *testing.T) {
	clearEnv(t, "ETHRPC_ETHERS_GAS_PRICE", "ETHRPC_ETHERS_GAS_LIMIT")
	os.Setenv("ETHRPC_SEED_PHRASE", "candy maple cake sugar pudding cream honey rich smooth crumble sweet treat")
	t.Cleanup(func() { os.Unsetenv("ETHRPC_SEED_PHRASE") })

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, big.NewInt(20_000_000_000).String(), cfg.Ethers.DefaultGasPrice.String())
	require.Equal(t, uint64(6_000_000), cfg.Ethers.DefaultGasLimit)
	require.True(t, cfg.Ethers.EstimateGasPrice)
	require.True(t, cfg.Ethers.EstimateGasLimit)
}

// §4.6: CELO_GAS_PRICE_MAX wires into Celo.DefaultGasPrice so the shared
// gas-price threshold check enforces it without Celo-specific branching.
func TestLoadWiresCeloGasPriceMaxIntoDefaultGasPrice(t *testing.T) {
	os.Setenv("ETHRPC_SEED_PHRASE", "candy maple cake sugar pudding cream honey rich smooth crumble sweet treat")
	os.Setenv("CELO_GAS_PRICE_MAX", "5000000000")
	t.Cleanup(func() {
		os.Unsetenv("ETHRPC_SEED_PHRASE")
		os.Unsetenv("CELO_GAS_PRICE_MAX")
	})

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "5000000000", cfg.Celo.GasPriceMax.String())
	require.Equal(t, "5000000000", cfg.Celo.DefaultGasPrice.String())
}

func TestLoadRejectsMalformedCeloGasPriceMax(t *testing.T) {
	os.Setenv("ETHRPC_SEED_PHRASE", "candy maple cake sugar pudding cream honey rich smooth crumble sweet treat")
	os.Setenv("CELO_GAS_PRICE_MAX", "not-a-number")
	t.Cleanup(func() {
		os.Unsetenv("ETHRPC_SEED_PHRASE")
		os.Unsetenv("CELO_GAS_PRICE_MAX")
	})

	_, err := config.Load()
	require.Error(t, err)
}

func TestLoadZkSyncForcesEIP1559(t *testing.T) {
	os.Setenv("ETHRPC_SEED_PHRASE", "candy maple cake sugar pudding cream honey rich smooth crumble sweet treat")
	t.Cleanup(func() { os.Unsetenv("ETHRPC_SEED_PHRASE") })

	cfg, err := config.Load()
	require.NoError(t, err)
	require.True(t, cfg.ZkSync.ForceEIP1559)
	require.False(t, cfg.Ethers.ForceEIP1559)
}
