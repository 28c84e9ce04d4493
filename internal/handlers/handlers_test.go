package handlers_test

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	"github.com/witnet/ethrpc-gateway/internal/backend"
	"github.com/witnet/ethrpc-gateway/internal/config"
	"github.com/witnet/ethrpc-gateway/internal/gwerrors"
	"github.com/witnet/ethrpc-gateway/internal/gwlog"
	"github.com/witnet/ethrpc-gateway/internal/handlers"
	"github.com/witnet/ethrpc-gateway/internal/wallet"
)

const testMnemonic = "candy maple cake sugar pudding cream honey rich smooth crumble sweet treat"

type stubWrapper struct {
	cfg        config.BackendConfig
	wallets    *wallet.WalletSet
	chainID    *big.Int
	sendHash   string
	rawResults map[string]json.RawMessage
}

func newStubWrapper(t *testing.T) *stubWrapper {
	ws, err := wallet.Build(wallet.BuildParams{SeedPhrase: testMnemonic, NumAddrs: 1})
	require.NoError(t, err)
	return &stubWrapper{
		cfg:        config.BackendConfig{DefaultGasPrice: big.NewInt(20_000_000_000), DefaultGasLimit: 6_000_000},
		wallets:    ws,
		chainID:    big.NewInt(1),
		sendHash:   "0xdeadbeef",
		rawResults: map[string]json.RawMessage{},
	}
}

func (s *stubWrapper) EstimateGasPrice(ctx context.Context, tx *backend.Tx) (*big.Int, error) {
	return big.NewInt(21_000_000_000), nil
}
func (s *stubWrapper) EstimateGasLimit(ctx context.Context, tx *backend.Tx) (uint64, error) {
	return 21000, nil
}
func (s *stubWrapper) ChainID(ctx context.Context) (*big.Int, error) { return s.chainID, nil }
func (s *stubWrapper) RawSend(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	if r, ok := s.rawResults[method]; ok {
		return r, nil
	}
	return json.RawMessage(`null`), nil
}
func (s *stubWrapper) SendRawTransaction(ctx context.Context, raw []byte) (string, error) {
	return s.sendHash, nil
}
func (s *stubWrapper) PendingNonceAt(ctx context.Context, addr [20]byte) (uint64, error) {
	return 7, nil
}
func (s *stubWrapper) Config() config.BackendConfig { return s.cfg }
func (s *stubWrapper) Wallets() *wallet.WalletSet    { return s.wallets }
func (s *stubWrapper) Logger() *gwlog.Logger         { return gwlog.New("test", gwlog.LevelSilly) }

func TestAccountsReturnsWalletAddresses(t *testing.T) {
	w := newStubWrapper(t)
	raw, err := handlers.Accounts(context.Background(), w, "eth_accounts", nil)
	require.NoError(t, err)

	var addrs []string
	require.NoError(t, json.Unmarshal(raw, &addrs))
	require.Len(t, addrs, 1)
	require.Equal(t, w.Wallets().Addresses()[0].Hex(), addrs[0])
}

func TestChainIDReturnsHexEncoded(t *testing.T) {
	w := newStubWrapper(t)
	raw, err := handlers.ChainID(context.Background(), w, "eth_chainId", nil)
	require.NoError(t, err)

	var hexStr string
	require.NoError(t, json.Unmarshal(raw, &hexStr))
	require.Equal(t, "0x1", hexStr)
}

func TestNetVersionReturnsDecimalString(t *testing.T) {
	w := newStubWrapper(t)
	raw, err := handlers.NetVersion(context.Background(), w, "net_version", nil)
	require.NoError(t, err)

	var s string
	require.NoError(t, json.Unmarshal(raw, &s))
	require.Equal(t, "1", s)
}

// Scenario 2: eth_sign against an address the gateway has no managed
// wallet for returns UnknownSigner (-32000).
func TestSignRejectsUnmanagedAddress(t *testing.T) {
	w := newStubWrapper(t)
	params, err := json.Marshal([]interface{}{"0x0000000000000000000000000000000000dEaD", "0xdeadbeef"})
	require.NoError(t, err)

	_, err = handlers.Sign(context.Background(), w, "eth_sign", params)
	require.Error(t, err)
	gerr, ok := gwerrors.As(err)
	require.True(t, ok)
	require.Equal(t, gwerrors.KindUnknownSigner, gerr.Kind)
	require.Equal(t, -32000, gerr.Code())
}

func TestSignSucceedsForManagedAddress(t *testing.T) {
	w := newStubWrapper(t)
	addr := w.Wallets().Default().Address.Hex()
	params, err := json.Marshal([]interface{}{addr, "0x68656c6c6f"})
	require.NoError(t, err)

	raw, err := handlers.Sign(context.Background(), w, "eth_sign", params)
	require.NoError(t, err)

	var sig string
	require.NoError(t, json.Unmarshal(raw, &sig))
	require.True(t, len(sig) > 2)
}

func TestGasPriceFallsBackToGetGasPriceWhenNoOverride(t *testing.T) {
	w := newStubWrapper(t)
	w.cfg.EstimateGasPrice = false

	raw, err := handlers.GasPrice(context.Background(), w, "eth_gasPrice", nil)
	require.NoError(t, err)

	var hexStr string
	require.NoError(t, json.Unmarshal(raw, &hexStr))
	require.Equal(t, hexutil.EncodeBig(w.cfg.DefaultGasPrice), hexStr)
}

func TestEstimateGasReturnsComposedGasLimit(t *testing.T) {
	w := newStubWrapper(t)
	w.cfg.EstimateGasLimit = true
	w.cfg.GasLimitFactor = 1.0

	from := w.Wallets().Default().Address
	tx := map[string]interface{}{"from": from.Hex()}
	payload, err := json.Marshal(tx)
	require.NoError(t, err)
	params, err := json.Marshal([]json.RawMessage{payload})
	require.NoError(t, err)

	raw, err := handlers.EstimateGas(context.Background(), w, "eth_estimateGas", params)
	require.NoError(t, err)

	var hexStr string
	require.NoError(t, json.Unmarshal(raw, &hexStr))
	require.Equal(t, hexutil.EncodeUint64(21000), hexStr)
}

func TestUninstallFilterAlwaysReturnsTrue(t *testing.T) {
	w := newStubWrapper(t)
	raw, err := handlers.UninstallFilter(context.Background(), w, "eth_uninstallFilter", nil)
	require.NoError(t, err)
	var ok bool
	require.NoError(t, json.Unmarshal(raw, &ok))
	require.True(t, ok)
}

func TestSendTransactionFetchesNonceAndSigns(t *testing.T) {
	w := newStubWrapper(t)
	w.cfg.EstimateGasPrice = false
	w.cfg.EstimateGasLimit = false

	from := w.Wallets().Default().Address
	tx := map[string]interface{}{"from": from.Hex()}
	payload, err := json.Marshal(tx)
	require.NoError(t, err)
	params, err := json.Marshal([]json.RawMessage{payload})
	require.NoError(t, err)

	raw, err := handlers.SendTransaction(context.Background(), w, "eth_sendTransaction", params)
	require.NoError(t, err)

	var hash string
	require.NoError(t, json.Unmarshal(raw, &hash))
	require.Equal(t, w.sendHash, hash)
}

func TestSendTransactionRejectsUnmanagedFrom(t *testing.T) {
	w := newStubWrapper(t)
	tx := map[string]interface{}{"from": "0x0000000000000000000000000000000000dEaD"}
	payload, err := json.Marshal(tx)
	require.NoError(t, err)
	params, err := json.Marshal([]json.RawMessage{payload})
	require.NoError(t, err)

	_, err = handlers.SendTransaction(context.Background(), w, "eth_sendTransaction", params)
	require.Error(t, err)
	gerr, ok := gwerrors.As(err)
	require.True(t, ok)
	require.Equal(t, gwerrors.KindUnknownSigner, gerr.Kind)
}

func TestSyncingReturnsFalse(t *testing.T) {
	w := newStubWrapper(t)
	raw, err := handlers.Syncing(context.Background(), w, "eth_syncing", nil)
	require.NoError(t, err)
	var synced bool
	require.NoError(t, json.Unmarshal(raw, &synced))
	require.False(t, synced)
}
