package backend

import (
	"context"

	"github.com/witnet/ethrpc-gateway/internal/config"
	"github.com/witnet/ethrpc-gateway/internal/gwlog"
	"github.com/witnet/ethrpc-gateway/internal/wallet"
)

// ZkSyncWrapper is the zkSync-era backend (Open Question resolution, §9:
// modeled as a generic EVM endpoint with forceEIP1559 always on, since
// zkSync-era's JSON-RPC surface is EVM-compatible aside from a few zks_*
// extension methods this gateway does not need). It reuses the generic
// transport verbatim; the distinguishing behavior lives entirely in
// config.Load setting ZkSync.ForceEIP1559 to true whatever the environment
// says.
type ZkSyncWrapper struct {
	*JSONRPCTransport
	cfg      config.BackendConfig
	wallets  *wallet.WalletSet
	logger   *gwlog.Logger
	rollback *RollbackState
}

func NewZkSyncWrapper(ctx context.Context, url string, cfg config.BackendConfig, wallets *wallet.WalletSet, logger *gwlog.Logger) (*ZkSyncWrapper, error) {
	t, err := Dial(ctx, url, "eth_sendRawTransaction", "eth_gasPrice")
	if err != nil {
		return nil, err
	}
	return &ZkSyncWrapper{
		JSONRPCTransport: t,
		cfg:              cfg,
		wallets:          wallets,
		logger:           logger,
		rollback:         NewRollbackState(),
	}, nil
}

func (w *ZkSyncWrapper) Config() config.BackendConfig { return w.cfg }
func (w *ZkSyncWrapper) Wallets() *wallet.WalletSet    { return w.wallets }
func (w *ZkSyncWrapper) Logger() *gwlog.Logger         { return w.logger }
func (w *ZkSyncWrapper) Rollback() *RollbackState      { return w.rollback }
