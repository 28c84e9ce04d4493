package handlers

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/witnet/ethrpc-gateway/internal/backend"
	"github.com/witnet/ethrpc-gateway/internal/envelope"
	"github.com/witnet/ethrpc-gateway/internal/gwerrors"
	"github.com/witnet/ethrpc-gateway/internal/translate"
)

// ReefTable builds the dedicated handler table for the Reef backend
// (§4.5). Reef's handlers differ too much in shape from the generic
// EVM/Celo/Conflux set to share Generic()'s implementations — there is no
// composeTransaction-driven eth_call/eth_estimateGas analogue, and every
// read goes through a GraphQL projector instead of a raw JSON-RPC forward.
func ReefTable(projector *translate.ReefProjector) Table {
	return Table{
		"eth_accounts":               reefAccounts,
		"eth_blockNumber":            reefBlockNumber,
		"eth_getBlockByNumber":       reefGetBlockByNumber(projector),
		"eth_getTransactionByHash":   reefGetTransactionByHash(projector),
		"eth_getTransactionReceipt":  reefGetTransactionReceipt(projector),
		"eth_sendTransaction":        reefSendTransaction,
	}
}

func reefWrapper(w backend.Wrapper) (*backend.ReefWrapper, error) {
	rw, ok := w.(*backend.ReefWrapper)
	if !ok {
		return nil, gwerrors.New(gwerrors.KindGeneric, "reef handler invoked with non-Reef wrapper")
	}
	return rw, nil
}

// reefAccounts implements §4.5 "the configured EVM address(es) each tied
// to a Reef keypair". It first runs ClaimDefaultAccount, which claims only
// the default account and only once per process; the other returned
// addresses are not claimed.
func reefAccounts(ctx context.Context, w backend.Wrapper, method string, params json.RawMessage) (json.RawMessage, error) {
	rw, err := reefWrapper(w)
	if err != nil {
		return nil, err
	}
	if err := rw.ClaimDefaultAccount(ctx); err != nil {
		return nil, err
	}
	return envelope.MustRaw(rw.Wallets().Addresses()), nil
}

func reefBlockNumber(ctx context.Context, w backend.Wrapper, method string, params json.RawMessage) (json.RawMessage, error) {
	rw, err := reefWrapper(w)
	if err != nil {
		return nil, err
	}
	n, err := rw.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	return envelope.MustRaw(hexutil.EncodeUint64(n)), nil
}

func reefGetBlockByNumber(projector *translate.ReefProjector) Handler {
	return func(ctx context.Context, w backend.Wrapper, method string, params json.RawMessage) (json.RawMessage, error) {
		var tag string
		if err := envelope.ParamAt(params, 0, &tag); err != nil {
			return nil, gwerrors.Wrap(gwerrors.KindMalformedRequest, err, "decode eth_getBlockByNumber tag")
		}

		var block *translate.Block
		var err error
		if tag == "" || tag == "latest" || tag == "pending" {
			block, err = projector.LatestBlock(ctx)
		} else {
			n, decErr := hexutil.DecodeUint64(tag)
			if decErr != nil {
				return nil, gwerrors.Wrap(gwerrors.KindInvalidParameter, decErr, "decode block number %q", tag)
			}
			block, err = projector.BlockByNumber(ctx, int64(n))
		}
		if err != nil {
			return nil, gwerrors.Wrap(gwerrors.KindExecutionError, err, "project reef block")
		}
		return envelope.MustRaw(block), nil
	}
}

func reefGetTransactionByHash(projector *translate.ReefProjector) Handler {
	return func(ctx context.Context, w backend.Wrapper, method string, params json.RawMessage) (json.RawMessage, error) {
		var hash string
		if err := envelope.ParamAt(params, 0, &hash); err != nil {
			return nil, gwerrors.Wrap(gwerrors.KindMalformedRequest, err, "decode eth_getTransactionByHash hash")
		}
		tx, err := projector.TransactionByHash(ctx, hash)
		if err != nil {
			return nil, gwerrors.Wrap(gwerrors.KindExecutionError, err, "project reef transaction")
		}
		return envelope.MustRaw(tx), nil
	}
}

func reefGetTransactionReceipt(projector *translate.ReefProjector) Handler {
	return func(ctx context.Context, w backend.Wrapper, method string, params json.RawMessage) (json.RawMessage, error) {
		var hash string
		if err := envelope.ParamAt(params, 0, &hash); err != nil {
			return nil, gwerrors.Wrap(gwerrors.KindMalformedRequest, err, "decode eth_getTransactionReceipt hash")
		}
		receipt, err := projector.ReceiptByHash(ctx, hash)
		if err != nil {
			return nil, gwerrors.Wrap(gwerrors.KindExecutionError, err, "project reef receipt")
		}
		return envelope.MustRaw(receipt), nil
	}
}

// reefSendTransaction implements §4.5 "delegate to the Reef Signer's
// sendTransaction". The gateway does not itself perform sr25519/SCALE
// extrinsic construction (a vendored cryptographic primitive out of
// scope per §1); it expects the caller's "data" field to already carry
// the signer-produced extrinsic payload.
func reefSendTransaction(ctx context.Context, w backend.Wrapper, method string, params json.RawMessage) (json.RawMessage, error) {
	rw, err := reefWrapper(w)
	if err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := envelope.ParamAt(params, 0, &raw); err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindMalformedRequest, err, "decode eth_sendTransaction params")
	}
	tx, err := backend.FromJSON(raw)
	if err != nil {
		return nil, err
	}
	if tx.Data == nil {
		return nil, gwerrors.New(gwerrors.KindInvalidParameter, "reef eth_sendTransaction requires a pre-signed extrinsic payload in data")
	}
	hash, err := rw.SendTransaction(ctx, *tx.Data)
	if err != nil {
		return nil, err
	}
	return envelope.MustRaw(hash), nil
}
