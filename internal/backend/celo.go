package backend

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/witnet/ethrpc-gateway/internal/config"
	"github.com/witnet/ethrpc-gateway/internal/gwlog"
	"github.com/witnet/ethrpc-gateway/internal/wallet"
)

// CeloWrapper specializes the generic EVM wrapper per §4.6: the gas-price
// lookup passes the configured feeCurrency to eth_gasPrice. Signed
// transactions do not carry a feeCurrency field (see ApplyFeeCurrency).
type CeloWrapper struct {
	*JSONRPCTransport
	cfg     config.BackendConfig
	wallets *wallet.WalletSet
	logger  *gwlog.Logger
}

func NewCeloWrapper(ctx context.Context, url string, cfg config.BackendConfig, wallets *wallet.WalletSet, logger *gwlog.Logger) (*CeloWrapper, error) {
	t, err := Dial(ctx, url, "eth_sendRawTransaction", "eth_gasPrice")
	if err != nil {
		return nil, err
	}
	return &CeloWrapper{JSONRPCTransport: t, cfg: cfg, wallets: wallets, logger: logger}, nil
}

func (w *CeloWrapper) Config() config.BackendConfig { return w.cfg }
func (w *CeloWrapper) Wallets() *wallet.WalletSet    { return w.wallets }
func (w *CeloWrapper) Logger() *gwlog.Logger         { return w.logger }

// EstimateGasPrice overrides the generic transport to pass feeCurrency
// through to the backend (§4.6). It returns the raw, unfactored estimate;
// ComposeTransaction's shared getGasPrice (tx.go) applies GasPriceFactor
// and the threshold check uniformly for every backend. Config.Load wires
// Celo's DefaultGasPrice to CELO_GAS_PRICE_MAX so that shared check
// enforces gasPriceMax without Celo-specific branching in tx.go.
func (w *CeloWrapper) EstimateGasPrice(ctx context.Context, tx *Tx) (*big.Int, error) {
	args := []interface{}{}
	if w.cfg.FeeCurrency != "" {
		args = append(args, w.cfg.FeeCurrency)
	}
	var result hexutil.Big
	if err := w.RPC.CallContext(ctx, &result, "eth_gasPrice", args...); err != nil {
		return nil, translateBackendError(err)
	}
	return (*big.Int)(&result), nil
}

// ApplyFeeCurrency stamps tx.FeeCurrency from configuration. The signing
// path (handlers.SendTransaction) does not call it, and the conversion to
// a go-ethereum transaction drops FeeCurrency, so signed transactions are
// sent without it.
func (w *CeloWrapper) ApplyFeeCurrency(tx *Tx) {
	if w.cfg.FeeCurrency == "" {
		return
	}
	addr := hexToAddr(w.cfg.FeeCurrency)
	tx.FeeCurrency = &addr
}
