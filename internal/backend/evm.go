package backend

import (
	"context"

	"github.com/witnet/ethrpc-gateway/internal/config"
	"github.com/witnet/ethrpc-gateway/internal/gwlog"
	"github.com/witnet/ethrpc-gateway/internal/wallet"
)

// EVMWrapper is the generic EVM-compatible backend wrapper (spec §1: "an
// EVM-compatible endpoint reached via a generic Ethereum JSON-RPC client
// (Infura-style included)"). Infura uses the same implementation with its
// own BackendConfig instance — the spec draws no behavioral distinction
// between them beyond tuning knobs (§6's ETHRPC_ETHERS_*/ETHRPC_INFURA_*
// prefixes).
type EVMWrapper struct {
	*JSONRPCTransport
	cfg      config.BackendConfig
	wallets  *wallet.WalletSet
	logger   *gwlog.Logger
	rollback *RollbackState
}

// NewEVMWrapper dials url and returns a ready-to-use generic EVM wrapper.
func NewEVMWrapper(ctx context.Context, url string, cfg config.BackendConfig, wallets *wallet.WalletSet, logger *gwlog.Logger) (*EVMWrapper, error) {
	t, err := Dial(ctx, url, "eth_sendRawTransaction", "eth_gasPrice")
	if err != nil {
		return nil, err
	}
	return &EVMWrapper{
		JSONRPCTransport: t,
		cfg:              cfg,
		wallets:          wallets,
		logger:           logger,
		rollback:         NewRollbackState(),
	}, nil
}

func (w *EVMWrapper) Config() config.BackendConfig { return w.cfg }
func (w *EVMWrapper) Wallets() *wallet.WalletSet    { return w.wallets }
func (w *EVMWrapper) Logger() *gwlog.Logger         { return w.logger }
func (w *EVMWrapper) Rollback() *RollbackState      { return w.rollback }

// GasPrice returns eth_gasPrice's raw result, optionally factored per
// §4.2's `ethGasPriceFactor` knob.
func (w *EVMWrapper) GasPrice(ctx context.Context) (interface{}, error) {
	if !w.cfg.EthGasPriceFactor {
		return w.RawSend(ctx, "eth_gasPrice", nil)
	}
	price, err := w.EstimateGasPrice(ctx, nil)
	if err != nil {
		return nil, err
	}
	factored := applyFactorCeil(price, w.cfg.GasPriceFactor)
	return hexBig(factored), nil
}
