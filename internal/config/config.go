// Package config loads the gateway's typed configuration from the
// environment variables spec §6 enumerates. It deliberately stops at
// "collection": parsing flags, loading .env files, and choosing which
// backend adapter to instantiate are external-collaborator concerns (§1).
package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/witnet/ethrpc-gateway/internal/gwlog"
)

// EpochLabel is one of Conflux's four epoch tags (§3 BackendConfig).
type EpochLabel string

const (
	EpochLatestState      EpochLabel = "latest_state"
	EpochLatestConfirmed  EpochLabel = "latest_confirmed"
	EpochLatestFinalized  EpochLabel = "latest_finalized"
	EpochLatestCheckpoint EpochLabel = "latest_checkpoint"
)

// BackendConfig holds the tuning knobs §3 enumerates per backend. Not every
// field is meaningful for every backend kind; adapters read only the
// fields relevant to them.
type BackendConfig struct {
	DefaultGasPrice  *big.Int
	DefaultGasLimit  uint64
	EstimateGasPrice bool
	EstimateGasLimit bool
	GasPriceFactor   float64
	GasLimitFactor   float64
	ForceEIP155      bool
	ForceEIP1559     bool
	InterleaveBlocks uint64
	AlwaysSynced     bool
	MockFilters      bool
	EthGasPriceFactor bool

	// Conflux-only.
	EpochLabel         EpochLabel
	ConfirmationEpochs uint64
	NetworkID          uint32

	// Celo-only.
	FeeCurrency string
	GasPriceMax *big.Int

	// Reef-only.
	GraphURL string
}

// WalletConfig holds the inputs to WalletSet construction (§4.7).
type WalletConfig struct {
	SeedPhrase      string
	SeedWallets     int
	PrivateKeysJSON string
}

// Config is the gateway's full typed configuration.
type Config struct {
	Port        string
	ProviderURL string
	ProviderKey string
	Network     string

	Wallet WalletConfig

	Ethers  BackendConfig
	Infura  BackendConfig
	Conflux BackendConfig
	Celo    BackendConfig
	Reef    BackendConfig
	ZkSync  BackendConfig

	LogLevel gwlog.Level
}

// Load reads process environment variables into a Config. It never exits
// the process; validation failures are returned as errors so the caller
// (the launcher, out of scope per §1) decides how to fail.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getenv("ETHRPC_PORT", "8545"),
		ProviderURL: os.Getenv("ETHRPC_PROVIDER_URL"),
		ProviderKey: os.Getenv("ETHRPC_PROVIDER_KEY"),
		Network:     os.Getenv("ETHRPC_NETWORK"),
		Wallet: WalletConfig{
			SeedPhrase:      os.Getenv("ETHRPC_SEED_PHRASE"),
			SeedWallets:     getenvInt("ETHRPC_SEED_PHRASE_WALLETS", 5),
			PrivateKeysJSON: os.Getenv("ETHRPC_PRIVATE_KEYS"),
		},
		LogLevel: gwlog.ParseLevel(getenv("ETHRPC_LOG_LEVEL", "info")),
	}

	cfg.Ethers = loadBackendConfig("ETHRPC_ETHERS_")
	cfg.Infura = loadBackendConfig("ETHRPC_INFURA_")
	cfg.Conflux = loadBackendConfig("ETHRPC_CONFLUX_")
	cfg.Celo = loadBackendConfig("ETHRPC_CELO_")
	cfg.Reef = loadBackendConfig("ETHRPC_REEF_")
	cfg.ZkSync = loadBackendConfig("ETHRPC_ZKSYNC_")

	interleave := getenvUint("ETHRPC_CALL_INTERLEAVE_BLOCKS", 0)
	cfg.Ethers.InterleaveBlocks = interleave
	cfg.Infura.InterleaveBlocks = interleave
	cfg.Celo.InterleaveBlocks = interleave
	cfg.ZkSync.InterleaveBlocks = interleave
	cfg.ZkSync.ForceEIP1559 = true // zkSync-era preset; overrides the environment.

	cfg.Conflux.EpochLabel = EpochLabel(getenv("ETHRPC_CONFLUX_DEFAULT_EPOCH_LABEL", string(EpochLatestState)))
	cfg.Conflux.AlwaysSynced = getenvBool("ETHRPC_CONFLUX_ALWAYS_SYNCED", false)
	cfg.Conflux.ConfirmationEpochs = getenvUint("ETHRPC_CONFLUX_CONFIRMATION_EPOCHS", 0)
	// cfx_call reuses the same interleave-binding/rollback-check path as the
	// EVM-family backends (handlers.Call); ConfirmationEpochs is Conflux's
	// equivalent of InterleaveBlocks.
	cfg.Conflux.InterleaveBlocks = cfg.Conflux.ConfirmationEpochs

	cfg.Reef.GraphURL = os.Getenv("REEF_GRAPHQL_URL")

	cfg.Celo.FeeCurrency = os.Getenv("CELO_FEE_CURRENCY")
	if v := os.Getenv("CELO_GAS_PRICE_MAX"); v != "" {
		n, ok := new(big.Int).SetString(v, 10)
		if !ok {
			return nil, fmt.Errorf("config: invalid CELO_GAS_PRICE_MAX %q", v)
		}
		cfg.Celo.GasPriceMax = n
		// The shared gas-price threshold check (internal/backend.getGasPrice)
		// always compares against DefaultGasPrice; Celo's distinct cap (§3,
		// §4.6) is wired through that same check rather than adding a
		// Celo-specific branch to the shared composeTransaction logic.
		cfg.Celo.DefaultGasPrice = n
	}

	if cfg.Wallet.SeedPhrase == "" && cfg.Wallet.PrivateKeysJSON == "" {
		return nil, fmt.Errorf("config: at least one of ETHRPC_SEED_PHRASE or ETHRPC_PRIVATE_KEYS must be set")
	}

	return cfg, nil
}

func loadBackendConfig(prefix string) BackendConfig {
	bc := BackendConfig{
		DefaultGasPrice:   getenvBigInt(prefix+"GAS_PRICE", big.NewInt(20_000_000_000)),
		DefaultGasLimit:   getenvUint(prefix+"GAS_LIMIT", 6_000_000),
		EstimateGasPrice:  getenvBool(prefix+"ESTIMATE_GAS_PRICE", true),
		EstimateGasLimit:  getenvBool(prefix+"ESTIMATE_GAS_LIMIT", true),
		GasPriceFactor:    getenvFloat(prefix+"GAS_PRICE_FACTOR", 1.0),
		GasLimitFactor:    getenvFloat(prefix+"GAS_LIMIT_FACTOR", 1.0),
		ForceEIP155:       getenvBool(prefix+"FORCE_EIP_155", false),
		ForceEIP1559:      getenvBool(prefix+"FORCE_EIP_1559", false),
		AlwaysSynced:      getenvBool(prefix+"ALWAYS_SYNCED", false),
		MockFilters:       getenvBool(prefix+"MOCK_FILTERS", false),
		EthGasPriceFactor: getenvBool(prefix+"ETH_GAS_PRICE_FACTOR", false),
	}
	return bc
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvUint(key string, def uint64) uint64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBigInt(key string, def *big.Int) *big.Int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	v = strings.TrimSpace(v)
	n, ok2 := new(big.Int).SetString(v, 10)
	if !ok2 {
		return def
	}
	return n
}
