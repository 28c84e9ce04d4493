// Package handlers implements the per-backend MethodHandlers table (spec
// §4.2): pure functions over (context, wrapper, method, params) for every
// locally-intercepted method. Handlers are shared across EVM, Infura,
// Celo, Conflux, and zkSync-era — all drive backend.Wrapper and
// backend.ComposeTransaction identically; only the dispatched method name
// and the translator ahead of them differ per backend (§4.4).
package handlers

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/witnet/ethrpc-gateway/internal/backend"
	"github.com/witnet/ethrpc-gateway/internal/envelope"
	"github.com/witnet/ethrpc-gateway/internal/gwerrors"
	"github.com/witnet/ethrpc-gateway/internal/wallet"
)

// Handler is a locally-intercepted method's implementation (spec §4.2).
// method is the dispatch-time (post-alias) name the Router resolved this
// handler under — e.g. "cfx_call" for a Conflux eth_call — so a handler
// that forwards to the downstream verbatim reaches it under its native
// name rather than the original eth_* one.
type Handler func(ctx context.Context, w backend.Wrapper, method string, params json.RawMessage) (json.RawMessage, error)

// Table is a per-backend mapping rewritten-method → Handler (§4.1 step 3,
// "The handler table below is keyed by the rewritten name").
type Table map[string]Handler

// Generic is the core handler set every signing backend registers (§4.2).
// Callers add backend-specific entries (filter mocks, syncing mock) on
// top of this base table per their own BackendConfig flags.
func Generic() Table {
	return Table{
		"eth_accounts":             Accounts,
		"net_version":              NetVersion,
		"eth_chainId":              ChainID,
		"eth_sign":                 Sign,
		"eth_sendTransaction":      SendTransaction,
		"eth_estimateGas":          EstimateGas,
		"eth_gasPrice":             GasPrice,
		"eth_call":                 Call,
		"eth_getBlockByNumber":     GetBlockByNumber,
		"eth_uninstallFilter":      UninstallFilter,
	}
}

// WithAlwaysSynced adds eth_syncing→false when cfg.AlwaysSynced (§4.2).
func WithAlwaysSynced(t Table) Table {
	t["eth_syncing"] = Syncing
	return t
}

// WithMockFilters adds the filter-mock trio when cfg.MockFilters (§4.2,
// Open Question: mock filter-changes returns the block-number hash).
func WithMockFilters(t Table) Table {
	t["eth_newBlockFilter"] = NewBlockFilter
	t["eth_getFilterChanges"] = GetFilterChanges
	return t
}

func Accounts(ctx context.Context, w backend.Wrapper, method string, params json.RawMessage) (json.RawMessage, error) {
	addrs := w.Wallets().Addresses()
	return envelope.MustRaw(addrs), nil
}

func NetVersion(ctx context.Context, w backend.Wrapper, method string, params json.RawMessage) (json.RawMessage, error) {
	id, err := w.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	return envelope.MustRaw(id.String()), nil
}

func ChainID(ctx context.Context, w backend.Wrapper, method string, params json.RawMessage) (json.RawMessage, error) {
	id, err := w.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	return envelope.MustRaw(hexutil.EncodeBig(id)), nil
}

// Sign implements eth_sign (§4.2): resolve wallet by address, UnknownSigner
// if absent, else signMessage(message).
func Sign(ctx context.Context, w backend.Wrapper, method string, params json.RawMessage) (json.RawMessage, error) {
	var addrHex, msgHex string
	if err := envelope.ParamAt(params, 0, &addrHex); err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindMalformedRequest, err, "decode eth_sign address")
	}
	if err := envelope.ParamAt(params, 1, &msgHex); err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindMalformedRequest, err, "decode eth_sign message")
	}

	wlt, ok := w.Wallets().LookupHex(addrHex)
	if !ok {
		return nil, gwerrors.New(gwerrors.KindUnknownSigner, "no managed wallet for address %s", addrHex)
	}

	msg, err := hexutil.Decode(msgHex)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindInvalidParameter, err, "decode eth_sign message bytes")
	}
	sig, err := wlt.SignMessage(msg)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindGeneric, err, "sign message")
	}
	return envelope.MustRaw(hexutil.Encode(sig)), nil
}

// SendTransaction implements eth_sendTransaction (§4.2): composeTransaction,
// resolve wallet (default wallet 0), fetch nonce if missing, sign,
// sendRawTransaction, return hash.
func SendTransaction(ctx context.Context, w backend.Wrapper, method string, params json.RawMessage) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := envelope.ParamAt(params, 0, &raw); err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindMalformedRequest, err, "decode eth_sendTransaction params")
	}
	in, err := backend.FromJSON(raw)
	if err != nil {
		return nil, err
	}

	composed, err := backend.ComposeTransaction(ctx, w.Config(), w, in, false)
	if err != nil {
		return nil, err
	}

	wlt, err := resolveSender(w, composed)
	if err != nil {
		return nil, err
	}
	composed.From = &wlt.Address

	if composed.Nonce == nil {
		var hash string
		err := w.Wallets().Nonces().WithLock(ctx, wlt.Address, func() error {
			n, err := w.PendingNonceAt(ctx, wlt.Address)
			if err != nil {
				return err
			}
			v := hexutil.Uint64(n)
			composed.Nonce = &v

			signed, err := signAndSend(ctx, w, wlt, composed)
			if err != nil {
				return err
			}
			hash = signed
			return nil
		})
		if err != nil {
			return nil, err
		}
		return envelope.MustRaw(hash), nil
	}

	hash, err := signAndSend(ctx, w, wlt, composed)
	if err != nil {
		return nil, err
	}
	return envelope.MustRaw(hash), nil
}

func resolveSender(w backend.Wrapper, tx *backend.Tx) (*wallet.Wallet, error) {
	if tx.From != nil {
		wlt, ok := w.Wallets().Lookup(*tx.From)
		if !ok {
			return nil, gwerrors.New(gwerrors.KindUnknownSigner, "no managed wallet for address %s", tx.From.Hex())
		}
		return wlt, nil
	}
	return w.Wallets().Default(), nil
}

func signAndSend(ctx context.Context, w backend.Wrapper, wlt *wallet.Wallet, tx *backend.Tx) (string, error) {
	var signer types.Signer
	if tx.ChainID != nil {
		signer = types.NewLondonSigner((*big.Int)(tx.ChainID))
	} else {
		signer = types.HomesteadSigner{}
	}

	ethTx := toEthTx(tx)
	signed, err := wlt.SignTransaction(ethTx, signer)
	if err != nil {
		return "", gwerrors.Wrap(gwerrors.KindGeneric, err, "sign transaction")
	}

	rawBytes, err := signed.MarshalBinary()
	if err != nil {
		return "", gwerrors.Wrap(gwerrors.KindGeneric, err, "encode signed transaction")
	}
	hash, err := w.SendRawTransaction(ctx, rawBytes)
	if err != nil {
		return "", err
	}
	return hash, nil
}

// toEthTx converts a composed backend.Tx into a go-ethereum types.Transaction
// ready for signing. forceEIP1559 transactions (type=2, carrying
// maxFeePerGas/maxPriorityFeePerGas) use types.DynamicFeeTx; everything
// else uses the legacy types.LegacyTx shape, matching composeTransaction's
// own EIP-1559-vs-legacy branch (§4.3 step 7).
func toEthTx(tx *backend.Tx) *types.Transaction {
	var to *common.Address
	if tx.To != nil {
		to = tx.To
	}
	var gasLimit uint64
	valueBig := new(big.Int)
	if tx.Value != nil {
		valueBig = (*big.Int)(tx.Value)
	}
	if tx.GasLimit != nil {
		gasLimit = uint64(*tx.GasLimit)
	}
	var data []byte
	if tx.Data != nil {
		data = *tx.Data
	}
	var nonce uint64
	if tx.Nonce != nil {
		nonce = uint64(*tx.Nonce)
	}

	if tx.Type != nil && uint64(*tx.Type) == 2 {
		chainID := new(big.Int)
		if tx.ChainID != nil {
			chainID = (*big.Int)(tx.ChainID)
		}
		maxFee := new(big.Int)
		if tx.MaxFeePerGas != nil {
			maxFee = (*big.Int)(tx.MaxFeePerGas)
		}
		maxPriority := new(big.Int)
		if tx.MaxPriorityFeePerGas != nil {
			maxPriority = (*big.Int)(tx.MaxPriorityFeePerGas)
		}
		return types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: maxPriority,
			GasFeeCap: maxFee,
			Gas:       gasLimit,
			To:        to,
			Value:     valueBig,
			Data:      data,
		})
	}

	gasPrice := new(big.Int)
	if tx.GasPrice != nil {
		gasPrice = (*big.Int)(tx.GasPrice)
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       to,
		Value:    valueBig,
		Data:     data,
	})
}

// EstimateGas implements eth_estimateGas (§4.2): composeTransaction with
// gas cleared, return gasLimit.
func EstimateGas(ctx context.Context, w backend.Wrapper, method string, params json.RawMessage) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := envelope.ParamAt(params, 0, &raw); err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindMalformedRequest, err, "decode eth_estimateGas params")
	}
	in, err := backend.FromJSON(raw)
	if err != nil {
		return nil, err
	}
	in.GasLimit = nil

	composed, err := backend.ComposeTransaction(ctx, w.Config(), w, in, true)
	if err != nil {
		return nil, err
	}
	if composed.GasLimit == nil {
		return envelope.MustRaw(hexutil.EncodeUint64(w.Config().DefaultGasLimit)), nil
	}
	return envelope.MustRaw(hexutil.EncodeUint64(uint64(*composed.GasLimit))), nil
}

// gasPricer is implemented by wrappers with backend-specific gas-price
// semantics (EVMWrapper's ethGasPriceFactor passthrough); GasPrice prefers
// it when available. Other wrappers, Celo included, go through
// backend.GetGasPrice.
type gasPricer interface {
	GasPrice(ctx context.Context) (interface{}, error)
}

// GasPrice implements eth_gasPrice (§4.2): return getGasPrice (factored if
// ethGasPriceFactor), else the backend's raw gas price as 0x-hex.
func GasPrice(ctx context.Context, w backend.Wrapper, method string, params json.RawMessage) (json.RawMessage, error) {
	if gp, ok := w.(gasPricer); ok {
		result, err := gp.GasPrice(ctx)
		if err != nil {
			return nil, err
		}
		return envelope.MustRaw(result), nil
	}
	price, err := backend.GetGasPrice(ctx, w.Config(), w)
	if err != nil {
		return nil, err
	}
	return envelope.MustRaw(hexutil.EncodeBig(price)), nil
}

// blockNumberer is implemented by wrappers that track a head height for
// interleaveBlocks binding (§4.2, §9 "zero-cost path when interleaveBlocks
// is 0").
type blockNumberer interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// Call implements eth_call (§4.2): composeTransaction (no nonce); if
// interleaveBlocks>0, bind the call to latest−interleaveBlocks (the Open
// Question in §9 notes this only applies when >0 — a zero-cost path when
// it is 0, so no extra backend round trip happens in the common case).
func Call(ctx context.Context, w backend.Wrapper, method string, params json.RawMessage) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := envelope.ParamAt(params, 0, &raw); err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindMalformedRequest, err, "decode eth_call params")
	}
	in, err := backend.FromJSON(raw)
	if err != nil {
		return nil, err
	}
	if _, err := backend.ComposeTransaction(ctx, w.Config(), w, in, true); err != nil {
		return nil, err
	}

	if w.Config().InterleaveBlocks == 0 {
		return w.RawSend(ctx, method, params)
	}

	bn, ok := w.(blockNumberer)
	if !ok {
		return w.RawSend(ctx, method, params)
	}
	head, err := bn.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	bound := int64(head) - int64(w.Config().InterleaveBlocks)
	if bound < 0 {
		bound = 0
	}
	if rb, ok := w.(rollbacker); ok {
		switch rb.Rollback().CheckRollback(int64(head), int64(w.Config().ConfirmationEpochs)) {
		case backend.ObservationFilteredRollback:
			w.Logger().Warn("rollback observed on read-only call", "head", head)
		case backend.ObservationCompromisingRollback:
			w.Logger().Error("compromising rollback observed on read-only call", "head", head)
		}
	}

	tag := hexutil.EncodeUint64(uint64(bound))
	rewrittenParams, marshalErr := json.Marshal([]json.RawMessage{raw, envelope.MustRaw(tag)})
	if marshalErr != nil {
		return nil, gwerrors.Wrap(gwerrors.KindGeneric, marshalErr, "rebuild eth_call params")
	}
	return w.RawSend(ctx, method, rewrittenParams)
}

// rollbacker is implemented by wrappers with a RollbackState tracker.
type rollbacker interface {
	Rollback() *backend.RollbackState
}

// GetBlockByNumber forwards (under the dispatch-time method name — e.g.
// cfx_getBlockByEpochNumber for Conflux) then hex-normalizes
// baseFeePerGas/difficulty/gasLimit/gasUsed (§4.2).
func GetBlockByNumber(ctx context.Context, w backend.Wrapper, method string, params json.RawMessage) (json.RawMessage, error) {
	result, err := w.RawSend(ctx, method, params)
	if err != nil {
		return nil, err
	}
	return normalizeBlockHexFields(result), nil
}

func normalizeBlockHexFields(result json.RawMessage) json.RawMessage {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(result, &obj); err != nil {
		return result
	}
	for _, field := range []string{"baseFeePerGas", "difficulty", "gasLimit", "gasUsed"} {
		v, ok := obj[field]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			continue
		}
		if !strings.HasPrefix(s, "0x") {
			obj[field], _ = json.Marshal("0x" + s)
		}
	}
	out, err := json.Marshal(obj)
	if err != nil {
		return result
	}
	return out
}

func Syncing(ctx context.Context, w backend.Wrapper, method string, params json.RawMessage) (json.RawMessage, error) {
	return envelope.MustRaw(false), nil
}

// NewBlockFilter implements the mocked eth_newBlockFilter (§4.2).
func NewBlockFilter(ctx context.Context, w backend.Wrapper, method string, params json.RawMessage) (json.RawMessage, error) {
	return envelope.MustRaw("0x1"), nil
}

// GetFilterChanges implements the mocked eth_getFilterChanges (§4.2, §9
// Open Question: returns an array containing the current block number,
// matching the most recent source revision rather than a full header). It
// goes through the blockNumberer interface rather than a hardcoded
// "eth_blockNumber" RawSend so the right native primitive gets hit on
// backends with no such method (e.g. Conflux's cfx_epochNumber).
func GetFilterChanges(ctx context.Context, w backend.Wrapper, method string, params json.RawMessage) (json.RawMessage, error) {
	if bn, ok := w.(blockNumberer); ok {
		head, err := bn.BlockNumber(ctx)
		if err != nil {
			return nil, err
		}
		return envelope.MustRaw([]string{hexutil.EncodeUint64(head)}), nil
	}
	result, err := w.RawSend(ctx, "eth_blockNumber", nil)
	if err != nil {
		return nil, err
	}
	var head string
	if err := json.Unmarshal(result, &head); err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindInvalidJSONResponse, err, "decode eth_blockNumber result")
	}
	return envelope.MustRaw([]string{head}), nil
}

func UninstallFilter(ctx context.Context, w backend.Wrapper, method string, params json.RawMessage) (json.RawMessage, error) {
	return envelope.MustRaw(true), nil
}
