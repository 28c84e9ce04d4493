package backend

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/witnet/ethrpc-gateway/internal/config"
	"github.com/witnet/ethrpc-gateway/internal/gqlclient"
	"github.com/witnet/ethrpc-gateway/internal/gwerrors"
	"github.com/witnet/ethrpc-gateway/internal/gwlog"
	"github.com/witnet/ethrpc-gateway/internal/wallet"
)

// ReefWrapper is the Substrate+GraphQL backend (§4.5): it has no native
// Ethereum RPC, so block/tx/receipt shape is synthesized from two
// downstream protocols — a Substrate JSON-RPC provider (chain head,
// extrinsic submission) and a GraphQL index (historical block/extrinsic
// projection). It deliberately does not embed *JSONRPCTransport: Reef
// speaks Substrate RPC method names (chain_getHeader, author_*), not
// eth_*/cfx_*-shaped calls, so sharing that struct would misrepresent
// which methods are actually available.
type ReefWrapper struct {
	RPC    *rpc.Client
	Graph  *gqlclient.Client
	cfg    config.BackendConfig
	wallets *wallet.WalletSet
	logger *gwlog.Logger

	claimed bool
}

// NewReefWrapper dials the Substrate provider and wires the GraphQL
// index client. claimDefaultAccount (§4.5 "any unclaimed EVM account is
// claimed on-chain") is invoked lazily on first use rather than here,
// since it requires a live chain round trip per wallet and startup
// should not block on every wallet's claim status.
func NewReefWrapper(ctx context.Context, providerURL string, cfg config.BackendConfig, wallets *wallet.WalletSet, logger *gwlog.Logger) (*ReefWrapper, error) {
	rc, err := rpc.DialContext(ctx, providerURL)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindGeneric, err, "dial reef provider %s", providerURL)
	}
	return &ReefWrapper{
		RPC:     rc,
		Graph:   gqlclient.New(cfg.GraphURL),
		cfg:     cfg,
		wallets: wallets,
		logger:  logger,
	}, nil
}

func (w *ReefWrapper) Config() config.BackendConfig { return w.cfg }
func (w *ReefWrapper) Wallets() *wallet.WalletSet    { return w.wallets }
func (w *ReefWrapper) Logger() *gwlog.Logger         { return w.logger }

// ChainID has no Reef analogue; EVM-compatibility addresses on Reef are
// not chain-replay-protected the way native Ethereum transactions are,
// since submission goes through a Substrate extrinsic, not a signed raw
// Ethereum transaction. Callers that need chainId (forceEIP155 callers)
// get zero, matching the "not applicable" case.
func (w *ReefWrapper) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (w *ReefWrapper) EstimateGasPrice(ctx context.Context, tx *Tx) (*big.Int, error) {
	return new(big.Int).Set(w.cfg.DefaultGasPrice), nil
}

func (w *ReefWrapper) EstimateGasLimit(ctx context.Context, tx *Tx) (uint64, error) {
	return w.cfg.DefaultGasLimit, nil
}

// BlockNumber returns the Substrate chain's current finalized block
// number via chain_getHeader, the provider-level primitive eth_blockNumber
// is built from (§4.5).
func (w *ReefWrapper) BlockNumber(ctx context.Context) (uint64, error) {
	var header struct {
		Number hexutil.Uint64 `json:"number"`
	}
	if err := w.RPC.CallContext(ctx, &header, "chain_getHeader"); err != nil {
		return 0, translateBackendError(err)
	}
	return uint64(header.Number), nil
}

// ClaimDefaultAccount issues a single evm_claimDefaultAccount call, at most
// once per process (later calls return nil without contacting the node).
// Substrate accounts must explicitly claim their deterministic EVM address
// before it can receive EVM-shaped calls. Only the signer's default account
// is claimed; no other configured address is checked or claimed.
func (w *ReefWrapper) ClaimDefaultAccount(ctx context.Context) error {
	if w.claimed {
		return nil
	}
	if err := w.RPC.CallContext(ctx, nil, "evm_claimDefaultAccount"); err != nil {
		return translateBackendError(err)
	}
	w.claimed = true
	return nil
}

// SendTransaction delegates to the Reef Signer's extrinsic submission
// (§4.5 "delegate to the Reef Signer's sendTransaction; the signer adapts
// to Substrate extrinsic submission"). Wire-level extrinsic construction
// (sr25519 signing, SCALE encoding) is a vendored cryptographic primitive
// out of scope per §1; this method calls author_submitExtrinsic with a
// pre-signed payload produced by the wallet's signer and returns the hash.
func (w *ReefWrapper) SendTransaction(ctx context.Context, signedPayload []byte) (string, error) {
	var hash string
	if err := w.RPC.CallContext(ctx, &hash, "author_submitExtrinsic", hexutil.Encode(signedPayload)); err != nil {
		return "", translateBackendError(err)
	}
	return hash, nil
}

// SendRawTransaction satisfies the Wrapper contract for callers that go
// through the generic composeTransaction/sign/submit path; it treats raw
// as an already SCALE-encoded extrinsic and forwards to SendTransaction.
func (w *ReefWrapper) SendRawTransaction(ctx context.Context, raw []byte) (string, error) {
	return w.SendTransaction(ctx, raw)
}

// RawSend forwards an arbitrary method to the Substrate provider verbatim,
// used for pass-through methods the Router does not intercept.
func (w *ReefWrapper) RawSend(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	args, err := paramsToArgs(params)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindMalformedRequest, err, "decode params for %s", method)
	}
	var result json.RawMessage
	if err := w.RPC.CallContext(ctx, &result, method, args...); err != nil {
		return nil, translateBackendError(err)
	}
	return result, nil
}

// PendingNonceAt has no meaningful Substrate analogue for EVM-shaped
// eth_sendTransaction calls, since submission is an extrinsic rather than
// a nonce-ordered raw Ethereum transaction; it returns 0 so that callers
// relying on the generic composeTransaction path never block on it.
func (w *ReefWrapper) PendingNonceAt(ctx context.Context, addr [20]byte) (uint64, error) {
	return 0, nil
}
